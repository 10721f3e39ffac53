package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/custodian/internal/domain"
)

// FormatLog renders log entries newest first.
func FormatLog(entries []*domain.LogEntry, now time.Time) string {
	if len(entries) == 0 {
		return Dim("No log entries.") + "\n"
	}
	rows := make([][]string, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		rows = append(rows, []string{
			TruncID(e.ID),
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			Dim(RelativeDateFrom(e.CreatedAt, now)),
			fmt.Sprint(e.RoomID),
			StatusPill(e.Status),
			taskList(e.Tasks),
			fmt.Sprintf("%d/%d", e.FoundDirtspots, e.FoundTrashcans),
			fmt.Sprintf("%.1f m²", e.CleanedSurfaceArea),
			Dim(e.Reason),
		})
	}
	var b strings.Builder
	b.WriteString(RenderTable([]string{"ID", "WHEN", "", "ROOM", "STATUS", "TASKS", "DIRT/TRASH", "AREA", "REASON"}, rows))
	fmt.Fprintf(&b, "\n%s\n", Dim(fmt.Sprintf("%d entries", len(entries))))
	return b.String()
}
