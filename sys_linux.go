//go:build linux

package arithshard

import (
	"os"

	"golang.org/x/sys/unix"
)

// madvPopulateWrite is MADV_POPULATE_WRITE (Linux 5.14+). Older kernels
// answer EINVAL.
const madvPopulateWrite = 23

// adviseSequential tells the kernel the input will be scanned once, front to
// back, so it can read ahead aggressively.
func adviseSequential(f *os.File, size int64) {
	_ = unix.Fadvise(int(f.Fd()), 0, size, unix.FADV_SEQUENTIAL)
}

// reserveFile sizes a new snapshot file and backs it with disk blocks, so a
// store through the mapping cannot fault on a full disk. Filesystems without
// fallocate (NFS, some FUSE mounts) fall back to a sparse truncate.
func reserveFile(f *os.File, size int64) error {
	fd := int(f.Fd())
	_ = unix.Fallocate(fd, 0, 0, size)
	return unix.Ftruncate(fd, size)
}

// populateForWrite faults in the pages of a fresh mapping up front instead of
// one at a time while records are copied in. region must start on a page
// boundary.
func populateForWrite(region []byte) error {
	if len(region) == 0 {
		return nil
	}
	return unix.Madvise(region, madvPopulateWrite)
}
