//go:build unix

package irbridge

import "golang.org/x/sys/unix"

// canAccess reports whether the process may open path for reading and
// writing
func canAccess(path string) bool {
	return unix.Access(path, unix.R_OK|unix.W_OK) == nil
}
