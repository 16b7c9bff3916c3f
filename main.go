package main

import (
	"os"
	"runtime/debug"

	"github.com/mezonai/ppy/cmd"
	"github.com/mezonai/ppy/logx"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			_ = logx.Errorf("PPY CRASHED: %v\n%s", r, debug.Stack())
			os.Exit(1)
		}
	}()

	cmd.Execute()
}
