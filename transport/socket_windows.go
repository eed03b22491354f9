//go:build windows

package transport

// removeStaleSocket is a no-op on windows; unix-domain stream sockets
// aren't the default transport there, so this build is expected to run with
// network "tcp".
func removeStaleSocket(path string) error { return nil }
