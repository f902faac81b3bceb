package install

import (
	"encoding/hex"
	"errors"
	"hash/fnv"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	cp "github.com/otiai10/copy"
	"github.com/rogpeppe/go-internal/lockedfile"
)

// lockdown gives the owner full access to root and everything in it and removes access for everyone else.
// Symlinks are left alone.
func lockdown(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		return os.Chmod(path, 0o700)
	})
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

func samePath(a, b string) bool {
	return absPath(a) == absPath(b)
}

// within reports whether path is root or somewhere below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(absPath(root), absPath(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// move renames src to dst, falling back to copy and remove when they are on different devices.
func move(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return err
	}
	err = cp.Copy(src, dst, cp.Options{PreserveTimes: true})
	if err != nil {
		return err
	}
	return os.RemoveAll(src)
}

// lockPath returns the lock file for root. It lives outside root so it doesn't end up in installs.
func lockPath(lockDir, root string) string {
	hasher := fnv.New64a()
	// hash.Hash.Write() never returns an error
	_, _ = hasher.Write([]byte(absPath(root)))
	return filepath.Join(lockDir, "modextract-"+hex.EncodeToString(hasher.Sum(nil))+".lock")
}

// lockRoot takes an exclusive lock for installing into root. It blocks until the lock is available.
func lockRoot(lockDir, root string) (unlock func(), _ error) {
	err := os.MkdirAll(lockDir, 0o777)
	if err != nil {
		return nil, err
	}
	return lockedfile.MutexAt(lockPath(lockDir, root)).Lock()
}
