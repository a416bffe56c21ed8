//go:build !unix

package irbridge

import "os"

// canAccess opens and closes path, the only portable access check
func canAccess(path string) bool {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
