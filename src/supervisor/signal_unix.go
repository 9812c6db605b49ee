//go:build !windows

package supervisor

import (
	"os"
	"os/signal"
	"syscall"
)

// WaitForShutdownSignal blocks until SIGINT or SIGTERM arrives.
func WaitForShutdownSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c
}
