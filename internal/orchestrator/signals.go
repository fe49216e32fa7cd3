package orchestrator

import (
	"context"
	"os/signal"

	"golang.org/x/sys/unix"
)

// withSignalCancel derives a context that is canceled on SIGINT/SIGTERM, so
// workers observing ctx.Done() at the per-chunk/per-message suspension
// points required by spec §4.4 "Cancellation" unwind cooperatively instead
// of leaving the run directory half-written.
func withSignalCancel(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, unix.SIGINT, unix.SIGTERM)
}
