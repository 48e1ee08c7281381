package util

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/golang/glog"
)

// ContextWithCancelOnSignal builds a context that gets cancelled in case of receiving one of the
// signals passed as arguments.
// Additionally there is a panic after `waitTime` unless we cleanly exit the process, to avoid
// leaving the process dangling forever, e.g. if the fetch tool ignores the interruption.
func ContextWithCancelOnSignal(
	ctx context.Context,
	waitTime time.Duration,
	signals ...os.Signal,
) context.Context {

	ctx, cancel := context.WithCancel(ctx)
	stop := make(chan os.Signal, len(signals))
	signal.Notify(stop, signals...)

	// Listen to the signals, and if received, cancel the context.
	go func() {
		defer signal.Stop(stop)
		select {
		case sig := <-stop:
			glog.Warningf("received %s, stopping after the current step (at most %s)",
				sig, waitTime)
			cancel()
		case <-ctx.Done():
			// Cleanly exit if somebody else cancelled the context we returned.
			return
		}

		// If the main go routine finishes before waitTime, the panic will not execute.
		time.Sleep(waitTime)
		glog.Flush()
		panic(fmt.Errorf("main routine still running %s after signal, shutting down via panic",
			waitTime))
	}()

	// This context will be cancelled if the signal is trapped.
	return ctx
}
