//go:build !windows

package transport

import "os"

// removeStaleSocket unlinks a leftover unix socket file from an unclean
// shutdown. Absent-file is not an error; any other removal failure is
// surfaced so Listen's subsequent bind reports the real cause.
func removeStaleSocket(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
