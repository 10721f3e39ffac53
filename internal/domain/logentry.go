package domain

import "time"

type LogStatus int

const (
	LogCompleted LogStatus = 1
	LogSkipped   LogStatus = 2
	LogFailed    LogStatus = 3
	LogCancelled LogStatus = 4
)

func (s LogStatus) String() string {
	switch s {
	case LogCompleted:
		return "completed"
	case LogSkipped:
		return "skipped"
	case LogFailed:
		return "failed"
	case LogCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// LogEntry records the outcome of one room visit. Entries are append-only.
type LogEntry struct {
	ID                 string
	RoomID             int
	Status             LogStatus
	Tasks              []TaskType
	FoundDirtspots     int
	FoundTrashcans     int
	CleanedSurfaceArea float64
	UsedWaterAmount    float64
	BatteryUsage       float64
	Reason             string
	CreatedAt          time.Time
}
