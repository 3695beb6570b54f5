// Package main provides the expense-tracker binary entry point.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/c360studio/expense-tracker/commands"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	commands.Execute()
}
