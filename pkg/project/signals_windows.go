//go:build windows

package project

import (
	"os"
	"os/signal"
)

// interruptSignals on Windows is limited to os.Interrupt: the "syscall"
// package there does not define SIGHUP/SIGTERM/SIGQUIT the way unix
// platforms do, and CTRL_BREAK_EVENT is already delivered by the runtime as
// os.Interrupt through signal.Notify.
var interruptSignals = []os.Signal{os.Interrupt}

func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, interruptSignals...)
}
