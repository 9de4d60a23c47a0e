//go:build !linux && !darwin && !windows

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(
		os.Stderr,
		"opcreach relies on the platform netstat command and is only supported on Linux, macOS, and Windows.",
	)
	os.Exit(1)
}
