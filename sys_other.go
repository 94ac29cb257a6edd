//go:build !linux && !darwin

package arithshard

import "os"

func adviseSequential(*os.File, int64) {}

// reserveFile only sets the size; blocks are allocated on first write.
func reserveFile(f *os.File, size int64) error {
	return f.Truncate(size)
}

func populateForWrite([]byte) error { return nil }
