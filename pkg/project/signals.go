//go:build !windows

package project

import (
	"os"
	"os/signal"
	"syscall"
)

// interruptSignals lists the OS signals a Driver listens for to cancel an
// in-progress build. Unix additionally listens for SIGQUIT (a forceful
// "print stack, then die" signal operators send when SIGINT/SIGTERM is
// ignored); Windows has no POSIX equivalent, so its variant
// (signals_windows.go) omits it.
var interruptSignals = []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}

func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, interruptSignals...)
}
