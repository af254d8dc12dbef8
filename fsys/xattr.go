package fsys

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/pkg/xattr"
)

// GetXattr reads the named attribute as a UTF-8 string. A missing attribute
// returns "" with no error; anything else is a real failure.
func (l *Local) GetXattr(path, name string) (string, error) {
	value, err := xattr.Get(path, name)
	if err != nil {
		if isMissingXattr(err) {
			return "", nil
		}
		return "", fmt.Errorf("get xattr %s on %s: %w", name, path, err)
	}
	return string(value), nil
}

// SetXattr writes the named attribute as a UTF-8 string.
func (l *Local) SetXattr(path, name, value string) error {
	if err := xattr.Set(path, name, []byte(value)); err != nil {
		return fmt.Errorf("set xattr %s on %s: %w", name, path, err)
	}
	return nil
}

// isMissingXattr matches the per-platform "no such attribute" errors.
// ENOATTR is not universal; some systems report ENODATA.
func isMissingXattr(err error) bool {
	var xattrErr *xattr.Error
	if errors.As(err, &xattrErr) {
		err = xattrErr.Err
	}
	return errors.Is(err, xattr.ENOATTR) || errors.Is(err, syscall.ENODATA)
}
