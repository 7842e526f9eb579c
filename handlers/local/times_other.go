//go:build !linux

package local

import (
	"io/fs"

	"github.com/dmitrymomot/filestorage"
)

// fillTimes falls back to the modification time where the platform stat
// record is not read.
func fillTimes(info *filestorage.FileInfo, fi fs.FileInfo) {
	info.AccessedTime = fi.ModTime()
	info.CreatedTime = fi.ModTime()
}
