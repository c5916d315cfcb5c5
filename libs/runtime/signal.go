package runtime

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext returns a context canceled on interrupt or SIGTERM. Calling
// stop restores default signal handling, so a second signal during a stuck
// shutdown kills the process instead of being swallowed.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
