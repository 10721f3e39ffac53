//go:build !unix

package cli

import (
	"os"
	"syscall"

	"github.com/alexanderramin/custodian/internal/behavior"
)

// Pause and resume need SIGUSR1/SIGUSR2 and are unavailable here.
var runSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

func interruptLevel(s os.Signal) (behavior.Level, bool) {
	switch s {
	case os.Interrupt, syscall.SIGTERM:
		return behavior.LevelCancel, true
	}
	return behavior.LevelNone, false
}
