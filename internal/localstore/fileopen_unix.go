//go:build !windows

package localstore

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/narrsvc/internal/errors"
)

// openSeedFile opens a seed file for reading with O_NOFOLLOW, so a symlink
// in the final path component is refused.
func openSeedFile(path string) (*os.File, error) {
	fd, err := syscall.Open(path, syscall.O_RDONLY|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, 0)
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidArgument("cannot read from symlink")
		}
		if stderrors.Is(err, syscall.ENOENT) {
			return nil, errors.NewNotFound(path)
		}
		return nil, errors.NewInternal(err)
	}
	return os.NewFile(uintptr(fd), path), nil
}
