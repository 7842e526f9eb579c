//go:build linux

package local

import (
	"io/fs"
	"syscall"
	"time"

	"github.com/dmitrymomot/filestorage"
)

// fillTimes reads access and status-change times from the stat record.
func fillTimes(info *filestorage.FileInfo, fi fs.FileInfo) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}
	info.AccessedTime = time.Unix(st.Atim.Unix())
	info.CreatedTime = time.Unix(st.Ctim.Unix())
}
