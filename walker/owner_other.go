//go:build !unix

package walker

import "io/fs"

// fileOwner returns zero UID/GID on non-Unix systems.
func fileOwner(_ fs.FileInfo) (uid, gid uint32) {
	return 0, 0
}
