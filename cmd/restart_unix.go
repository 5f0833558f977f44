//go:build unix

package main

import (
	"os"
	"syscall"
)

// restart replaces the current process image with a fresh copy of the
// executable, so the new process reloads configuration from scratch.
func restart() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	return syscall.Exec(exe, os.Args, os.Environ())
}
