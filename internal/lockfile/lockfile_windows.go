//go:build windows

package lockfile

import "os"

// processAlive checks whether a process with the given PID exists (Windows).
// FindProcess only succeeds for live processes on Windows.
func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	process.Release()
	return true
}
