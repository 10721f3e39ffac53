package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/custodian/internal/domain"
	"github.com/alexanderramin/custodian/internal/schedule"
)

// FormatDue renders the rooms due and overdue on the resolution's date.
// rooms supplies names and cleaning methods; unknown ids are shown bare.
func FormatDue(res *schedule.Resolution, rooms []*domain.Room) string {
	byID := make(map[int]*domain.Room, len(rooms))
	for _, r := range rooms {
		byID[r.ID] = r
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", Header("Due "+res.Now.Format("Mon Jan 2, 2006")))
	fmt.Fprintf(&b, "%s %s   %s %s\n\n",
		Dim("slot"), Bold(res.Slot.String()),
		Dim("last completed"), LastCompleted(res.DueAssignment.LastCompleted, res.Now))

	b.WriteString(roomTable(res.DueCleaning, res.DueTrash, byID))

	if len(res.OverdueAssignments) == 0 {
		b.WriteString("\n" + Dim("No overdue assignments.") + "\n")
		return b.String()
	}

	fmt.Fprintf(&b, "\n%s\n", Header("Overdue"))
	rows := make([][]string, 0, len(res.OverdueAssignments))
	for _, a := range res.OverdueAssignments {
		rows = append(rows, []string{
			a.Slot.String(),
			LastCompleted(a.LastCompleted, res.Now),
			RoomList(a.CleaningRooms),
			RoomList(a.TrashRooms),
		})
	}
	b.WriteString(RenderTable([]string{"SLOT", "LAST DONE", "CLEANING", "TRASH"}, rows))
	b.WriteString("\n")
	b.WriteString(roomTable(res.OverdueCleaning, res.OverdueTrash, byID))
	return b.String()
}

func roomTable(cleaning, trash []int, rooms map[int]*domain.Room) string {
	if len(cleaning) == 0 && len(trash) == 0 {
		return Dim("No rooms.") + "\n"
	}
	tasks := make(map[int][]string)
	var order []int
	add := func(id int, task string) {
		if _, ok := tasks[id]; !ok {
			order = append(order, id)
		}
		tasks[id] = append(tasks[id], task)
	}
	for _, id := range cleaning {
		task := domain.TaskDry.String()
		if r, ok := rooms[id]; ok && r.Method == domain.MethodWet {
			task = domain.TaskWet.String()
		}
		add(id, task)
	}
	for _, id := range trash {
		add(id, domain.TaskTrash.String())
	}

	rows := make([][]string, 0, len(order))
	for _, id := range order {
		name, method := Dim("?"), Dim("?")
		if r, ok := rooms[id]; ok {
			name, method = Bold(r.Name), MethodBadge(r.Method)
		}
		rows = append(rows, []string{fmt.Sprint(id), name, method, strings.Join(tasks[id], "+")})
	}
	return RenderTable([]string{"ROOM", "NAME", "METHOD", "TASKS"}, rows)
}
