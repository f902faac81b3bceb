package testutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/mholt/archiver/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// DescriptorFile is the descriptor file name. It is duplicated here so fixtures don't depend on the
// packages under test.
const DescriptorFile = "moduledescriptor.xml"

// ProjectRoot returns the absolute path of the project root.
func ProjectRoot() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..")
}

// ProjectPath exchanges a path relative to the project root for an absolute path
func ProjectPath(path ...string) string {
	return filepath.Join(ProjectRoot(), filepath.Join(path...))
}

// SevenZipImage returns testdata/images/game.7z. It is a real 7z archive holding image.img, a zip-format
// image whose 0.img carries GamePayload("mygame"). Unpack the images with ZipImages.
func SevenZipImage() string {
	return ProjectPath("testdata", "images", "game.7z")
}

// DescriptorXML returns a descriptor document with a single module element.
func DescriptorXML(moduleType, installPath string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<modules>
  <module ModuleType=%q ModuleInstallPath=%q/>
</modules>
`, moduleType, installPath)
}

// MustWriteFile writes content to filename, creating parent directories.
func MustWriteFile(t testing.TB, filename, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(filename), 0o755))
	require.NoError(t, os.WriteFile(filename, []byte(content), 0o644))
}

// WriteTree writes files (slash-separated relative path to content) under dir.
func WriteTree(t testing.TB, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		MustWriteFile(t, filepath.Join(dir, filepath.FromSlash(name)), content)
	}
}

// GamePayload returns the files of a GAME module installed as name.
func GamePayload(name string) map[string]string {
	return map[string]string{
		DescriptorFile:  DescriptorXML("GAME", "/games/games/"+name),
		"bin/game.elf":  "elf",
		"data/level.db": "levels",
	}
}

func diskFiles(t testing.TB, dir string) []archiver.File {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make(map[string]string, len(entries))
	for _, entry := range entries {
		names[filepath.Join(dir, entry.Name())] = ""
	}
	files, err := archiver.FilesFromDisk(nil, names)
	require.NoError(t, err)
	return files
}

func writeArchive(t testing.TB, dst string, files []archiver.File, format archiver.Archiver) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
	out, err := os.Create(dst)
	require.NoError(t, err)
	err = format.Archive(context.Background(), out, files)
	require.NoError(t, err)
	require.NoError(t, out.Close())
}

// ZipDir writes a zip archive of the contents of dir to dst.
func ZipDir(t testing.TB, dir, dst string) {
	t.Helper()
	writeArchive(t, dst, diskFiles(t, dir), archiver.Zip{})
}

// TarGzDir writes a gzip compressed tarball of the contents of dir to dst.
func TarGzDir(t testing.TB, dir, dst string) {
	t.Helper()
	writeArchive(t, dst, diskFiles(t, dir), archiver.CompressedArchive{
		Compression: archiver.Gz{},
		Archival:    archiver.Tar{},
	})
}

// BuildImage writes a test disk image to dst. Test images are zip files: an outer image holding 0.img,
// which holds payload. Use ZipImages to unpack them.
func BuildImage(t testing.TB, dst string, payload map[string]string) {
	t.Helper()
	payloadDir := t.TempDir()
	WriteTree(t, payloadDir, payload)
	innerDir := t.TempDir()
	ZipDir(t, payloadDir, filepath.Join(innerDir, "0.img"))
	ZipDir(t, innerDir, dst)
}

// BuildFlatImage writes a test disk image holding payload directly, without a nested 0.img.
func BuildFlatImage(t testing.TB, dst string, payload map[string]string) {
	t.Helper()
	payloadDir := t.TempDir()
	WriteTree(t, payloadDir, payload)
	ZipDir(t, payloadDir, dst)
}

// ZipImages unpacks the zip formatted images written by BuildImage.
type ZipImages struct {
	// Calls records the images unpacked.
	Calls []string
}

func (z *ZipImages) UnpackImage(ctx context.Context, image, dir string) (errOut error) {
	z.Calls = append(z.Calls, image)
	file, err := os.Open(image)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := file.Close()
		if errOut == nil {
			errOut = closeErr
		}
	}()
	return archiver.Zip{}.Extract(ctx, file, nil, func(_ context.Context, af archiver.File) error {
		target := filepath.Join(dir, filepath.FromSlash(af.NameInArchive))
		if af.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		err := os.MkdirAll(filepath.Dir(target), 0o755)
		if err != nil {
			return err
		}
		rdr, err := af.Open()
		if err != nil {
			return err
		}
		defer rdr.Close() //nolint:errcheck // read only
		content, err := io.ReadAll(rdr)
		if err != nil {
			return err
		}
		return os.WriteFile(target, content, 0o644)
	})
}

// AssertTree asserts that dir contains files with the given content.
func AssertTree(t testing.TB, dir string, files map[string]string) bool {
	t.Helper()
	ok := true
	for name, want := range files {
		got, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		if !assert.NoError(t, err) {
			ok = false
			continue
		}
		ok = assert.Equal(t, want, string(got), name) && ok
	}
	return ok
}

// AssertDirGone asserts that dir does not exist.
func AssertDirGone(t testing.TB, dir string) bool {
	t.Helper()
	_, err := os.Stat(dir)
	return assert.Truef(t, os.IsNotExist(err), "expected %s to not exist", dir)
}

// ListDir returns the names in dir.
func ListDir(t testing.TB, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}
