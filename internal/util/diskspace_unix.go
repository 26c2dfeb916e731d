//go:build !windows

package util

import (
	"syscall"
)

type DiskSpaceInfo struct {
	Avail uint64
	Total uint64
	Used  uint64
}

func GetDiskSpace(path string) (DiskSpaceInfo, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return DiskSpaceInfo{}, err
	}
	avail := stat.Bavail * uint64(stat.Bsize)
	total := stat.Blocks * uint64(stat.Bsize)
	return DiskSpaceInfo{
		Avail: avail,
		Total: total,
		Used:  total - avail,
	}, nil
}
