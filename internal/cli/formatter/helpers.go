package formatter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Header renders an upper-case section title with an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	return StyleHeader.Render(upper) + "\n" + StyleDim.Render(strings.Repeat("─", len(upper)))
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleBold.Render(text)
}

// RelativeDateFrom describes t relative to now in whole days.
func RelativeDateFrom(t, now time.Time) string {
	days := int(math.Round(t.Sub(now).Hours() / 24))
	switch {
	case days == 0:
		return "Today"
	case days == -1:
		return "Yesterday"
	case days == 1:
		return "Tomorrow"
	case days < 0 && days > -14:
		return fmt.Sprintf("%dd ago", -days)
	case days < 0 && days > -60:
		return fmt.Sprintf("%dw ago", -days/7)
	case days < 0:
		return fmt.Sprintf("%dmo ago", -days/30)
	default:
		return fmt.Sprintf("In %dd", days)
	}
}

// LastCompleted renders an assignment completion time; nil is "never".
func LastCompleted(t *time.Time, now time.Time) string {
	if t == nil {
		return StyleRed.Render("never")
	}
	return StyleFg.Render(RelativeDateFrom(*t, now))
}

// FormatDuration renders d rounded to seconds, e.g. "4m 12s".
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// TruncID shortens an id to its first 8 characters, dimmed.
func TruncID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return StyleDim.Render(id)
}

// RoomList renders room ids as "1, 4, 7", or a dim dash when empty.
func RoomList(ids []int) string {
	if len(ids) == 0 {
		return Dim("--")
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}
