//go:build windows

package supervisor

import (
	"os"
	"os/signal"
)

// WaitForShutdownSignal blocks until SIGINT (Ctrl+C) arrives; Windows has
// no SIGTERM equivalent worth listening for here.
func WaitForShutdownSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
}
