package extract

import (
	"fmt"
	"os"
	"path/filepath"
)

func deferErr(errOut *error, fn func() error) {
	deferredErr := fn()
	if *errOut == nil {
		*errOut = deferredErr
	}
}

// fileExists reports whether path is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// singleEntry returns the path of the only entry in dir.
func singleEntry(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	if len(entries) != 1 {
		return "", fmt.Errorf("%w in %s, found %d", ErrNotSingleEntry, dir, len(entries))
	}
	return filepath.Join(dir, entries[0].Name()), nil
}
