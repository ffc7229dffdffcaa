//go:build windows

package localstore

import (
	"os"

	"github.com/hpungsan/narrsvc/internal/errors"
)

// openSeedFile opens a seed file for reading.
// O_NOFOLLOW is not available on Windows.
func openSeedFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound(path)
		}
		return nil, errors.NewInternal(err)
	}
	return f, nil
}
