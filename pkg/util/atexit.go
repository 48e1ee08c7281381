package util

import (
	"errors"
	"os"
	"sync"
)

// ShutdownFunction runs all registered shutdown functions, the last registered first.
// It only works if the main function exits with a return, and not on os.Exit functions.
// Replace os.Exit calls with Exit(int) here to allow the shutdown function to work.
var ShutdownFunction = func() error {
	shutdownMu.Lock()
	fcns := shutdownFuncs
	shutdownFuncs = nil
	shutdownMu.Unlock()

	var errs []error
	for i := len(fcns) - 1; i >= 0; i-- {
		errs = append(errs, fcns[i]())
	}
	return errors.Join(errs...)
}

// Exit acts as a wrapper around os.Exit, but calling the shutdown functions before exiting.
func Exit(code int) {
	ShutdownFunction()
	os.Exit(code)
}

// RegisterShutdownFunc adds fcn to the functions run by ShutdownFunction. Each one runs once.
func RegisterShutdownFunc(fcn func() error) {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	shutdownFuncs = append(shutdownFuncs, fcn)
}

var (
	shutdownMu    sync.Mutex
	shutdownFuncs []func() error
)
