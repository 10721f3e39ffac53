//go:build unix

package cli

import (
	"os"
	"syscall"

	"github.com/alexanderramin/custodian/internal/behavior"
)

var runSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2}

func interruptLevel(s os.Signal) (behavior.Level, bool) {
	switch s {
	case os.Interrupt, syscall.SIGTERM:
		return behavior.LevelCancel, true
	case syscall.SIGUSR1:
		return behavior.LevelPause, true
	case syscall.SIGUSR2:
		return behavior.LevelNone, true
	}
	return behavior.LevelNone, false
}
