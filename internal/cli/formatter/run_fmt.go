package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/custodian/internal/application"
	"github.com/alexanderramin/custodian/internal/domain"
)

const runProgressBarWidth = 20

// FormatRunReport renders the per-room outcomes of a run and a summary line.
func FormatRunReport(r *application.RunReport) string {
	var b strings.Builder
	title := "Run " + r.Now.Format("2006-01-02")
	if r.Restored {
		title += " (resumed)"
	}
	fmt.Fprintf(&b, "%s\n", Header(title))
	fmt.Fprintf(&b, "%s %s   %s %s\n\n", Dim("run"), TruncID(r.RunID), Dim("state"), Bold(r.State.String()))

	if len(r.Visits) == 0 {
		b.WriteString(Dim("Nothing to clean.") + "\n")
		return b.String()
	}

	rows := make([][]string, 0, len(r.Visits))
	for _, v := range r.Visits {
		rows = append(rows, []string{
			fmt.Sprint(v.RoomID),
			StatusPill(v.Status),
			taskList(v.Tasks),
			fmt.Sprint(v.FoundDirtspots),
			fmt.Sprint(v.FoundTrashcans),
			FormatDuration(v.Duration),
			Dim(v.Reason),
		})
	}
	b.WriteString(RenderTable([]string{"ROOM", "STATUS", "TASKS", "DIRT", "TRASH", "TIME", "REASON"}, rows))

	done := r.Count(domain.LogCompleted) + r.Count(domain.LogSkipped)
	fmt.Fprintf(&b, "\n%s  %s · %s · %s\n",
		RenderProgress(float64(done)/float64(len(r.Visits)), runProgressBarWidth),
		StyleGreen.Render(fmt.Sprintf("%d done", done)),
		StyleRed.Render(fmt.Sprintf("%d failed", r.Count(domain.LogFailed))),
		StyleYellow.Render(fmt.Sprintf("%d cancelled", r.Count(domain.LogCancelled))),
	)
	return b.String()
}

func taskList(tasks []domain.TaskType) string {
	if len(tasks) == 0 {
		return Dim("--")
	}
	parts := make([]string, len(tasks))
	for i, t := range tasks {
		parts[i] = t.String()
	}
	return strings.Join(parts, "+")
}
