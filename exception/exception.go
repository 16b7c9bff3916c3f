package exception

import (
	"runtime/debug"

	"github.com/mezonai/ppy/logx"
	"github.com/mezonai/ppy/monitoring"
)

// SafeGo runs fn on its own goroutine and logs instead of crashing on panic.
func SafeGo(name string, fn func()) {
	go func() {
		defer Recover(name)
		fn()
	}()
}

// Recover is meant to be deferred; it swallows a panic after recording it.
func Recover(name string) {
	if r := recover(); r != nil {
		monitoring.IncreasePanicCount()
		logx.Error("PANIC", "Panic in: ", name, " ", r, " ", string(debug.Stack()))
	}
}
