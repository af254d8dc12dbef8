//go:build darwin

package fsys

import (
	"fmt"
	"os"
	"syscall"
	"time"
)

// Ctime returns the creation timestamp of path. Darwin exposes a real birth
// time on the stat structure.
func (l *Local) Ctime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return time.Time{}, fmt.Errorf("no stat data for %s", path)
	}
	return time.Unix(st.Birthtimespec.Sec, st.Birthtimespec.Nsec), nil
}
