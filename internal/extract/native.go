package extract

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archiver/v4"
)

// Native unpacks containers in-process.
type Native struct{}

func nativeFormat(format Format) (archiver.Extractor, error) {
	switch format {
	case FormatTarball:
		return archiver.CompressedArchive{
			Compression: archiver.Gz{},
			Archival:    archiver.Tar{},
		}, nil
	case FormatZip:
		return archiver.Zip{}, nil
	case FormatSevenZip:
		return archiver.SevenZip{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Unpack extracts src into dir.
func (Native) Unpack(ctx context.Context, format Format, src, dir string) (errOut error) {
	extractor, err := nativeFormat(format)
	if err != nil {
		return err
	}
	// zip and 7z need an io.ReaderAt and io.Seeker, which *os.File provides
	file, err := os.Open(src)
	if err != nil {
		return err
	}
	defer deferErr(&errOut, file.Close)
	err = extractor.Extract(ctx, file, nil, func(_ context.Context, af archiver.File) error {
		return writeEntry(dir, af)
	})
	if err != nil {
		return fmt.Errorf("error extracting %s: %w", filepath.Base(src), err)
	}
	return nil
}

// entryPath returns the path for an archive entry under dir. It errors when the entry would land outside dir.
func entryPath(dir, nameInArchive string) (string, error) {
	target := filepath.Join(dir, filepath.FromSlash(nameInArchive))
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q is outside the extract directory", nameInArchive)
	}
	return target, nil
}

func writeEntry(dir string, af archiver.File) (errOut error) {
	target, err := entryPath(dir, af.NameInArchive)
	if err != nil {
		return err
	}
	mode := af.Mode()
	if af.IsDir() {
		return os.MkdirAll(target, mode.Perm()|0o700)
	}
	err = os.MkdirAll(filepath.Dir(target), 0o755)
	if err != nil {
		return err
	}
	if mode&fs.ModeSymlink != 0 {
		if af.LinkTarget == "" {
			return nil
		}
		return os.Symlink(af.LinkTarget, target)
	}
	if !mode.IsRegular() {
		return nil
	}
	rdr, err := af.Open()
	if err != nil {
		return err
	}
	defer deferErr(&errOut, rdr.Close)
	writer, err := os.OpenFile(target, os.O_RDWR|os.O_CREATE|os.O_TRUNC, mode.Perm()|0o600)
	if err != nil {
		return err
	}
	defer deferErr(&errOut, writer.Close)
	_, err = io.Copy(writer, rdr)
	return err
}
