// Package extract unwraps console image archives down to the directory holding the module descriptor.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// NestedImageName is the name of the image found inside the outer disk image.
const NestedImageName = "0.img"

// ContainerUnpacker extracts tarballs, zip and 7z archives.
type ContainerUnpacker interface {
	Unpack(ctx context.Context, format Format, src, dir string) error
}

// ImageUnpacker extracts disk images.
type ImageUnpacker interface {
	UnpackImage(ctx context.Context, image, dir string) error
}

// Options configures an Extractor.
type Options struct {
	// WorkDir is where working directories are created. Default is the current directory.
	WorkDir string

	// Containers defaults to Native.
	Containers ContainerUnpacker

	// Images defaults to SevenZip.
	Images ImageUnpacker

	Stdout io.Writer
	Logger *log.Logger
}

// Extractor unwraps a single input file. Every directory it creates is tracked and removed by Cleanup, so
// callers should defer Cleanup right after New succeeds.
type Extractor struct {
	archivePath string
	workDir     string
	containers  ContainerUnpacker
	images      ImageUnpacker
	stdout      io.Writer
	logger      *log.Logger
	tracked     []string
}

// New returns an Extractor for archivePath. opts may be nil.
func New(archivePath string, opts *Options) (*Extractor, error) {
	if opts == nil {
		opts = &Options{}
	}
	if !fileExists(archivePath) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, archivePath)
	}
	absPath, err := filepath.Abs(archivePath)
	if err != nil {
		return nil, err
	}
	workDir := opts.WorkDir
	if workDir == "" {
		workDir = "."
	}
	workDir, err = filepath.Abs(workDir)
	if err != nil {
		return nil, err
	}
	e := &Extractor{
		archivePath: absPath,
		workDir:     workDir,
		containers:  opts.Containers,
		images:      opts.Images,
		stdout:      opts.Stdout,
		logger:      opts.Logger,
	}
	if e.containers == nil {
		e.containers = Native{}
	}
	if e.images == nil {
		e.images = SevenZip{}
	}
	if e.stdout == nil {
		e.stdout = io.Discard
	}
	if e.logger == nil {
		e.logger = log.Default()
	}
	return e, nil
}

// WorkDirs returns the directories created so far.
func (e *Extractor) WorkDirs() []string {
	return append([]string(nil), e.tracked...)
}

// mkdir creates a new working directory and tracks it for cleanup.
func (e *Extractor) mkdir() (string, error) {
	err := os.MkdirAll(e.workDir, 0o755)
	if err != nil {
		return "", err
	}
	prefix := "out-" + time.Now().Format("20060102150405.000000") + "-"
	dir, err := os.MkdirTemp(e.workDir, prefix)
	if err != nil {
		return "", err
	}
	e.tracked = append(e.tracked, dir)
	e.logger.Debug("created working directory", "dir", dir)
	return dir, nil
}

// cleanupOnErr runs Cleanup when *errOut is set and adds any cleanup error to it.
func (e *Extractor) cleanupOnErr(errOut *error) {
	if *errOut == nil {
		return
	}
	cleanupErr := e.Cleanup()
	if cleanupErr != nil {
		*errOut = errors.Join(*errOut, cleanupErr)
	}
}

// Cleanup removes every tracked directory that still exists. It is safe to call more than once.
func (e *Extractor) Cleanup() error {
	var errs []error
	for _, dir := range e.tracked {
		info, err := os.Stat(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				errs = append(errs, err)
			}
			continue
		}
		if !info.IsDir() {
			continue
		}
		e.logger.Debug("removing working directory", "dir", dir)
		err = os.RemoveAll(dir)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run unwraps the input file and returns the directory containing the descriptor and payload. The returned
// directory is a tracked working directory, so Cleanup removes it unless it has been moved away first.
func (e *Extractor) Run(ctx context.Context) (_ string, errOut error) {
	defer e.cleanupOnErr(&errOut)
	outDir, err := e.mkdir()
	if err != nil {
		return "", err
	}
	format := FormatOf(e.archivePath)
	e.logger.Debug("dispatching input", "file", e.archivePath, "format", format)
	var image string
	switch format {
	case FormatTarball:
		image, err = e.unpackContainer(ctx, format, outDir)
	case FormatZip, FormatSevenZip:
		var containerDir string
		containerDir, err = e.mkdir()
		if err != nil {
			return "", err
		}
		image, err = e.unpackContainer(ctx, format, containerDir)
	case FormatDiskImage:
		image = e.archivePath
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(e.archivePath))
	}
	if err != nil {
		return "", err
	}
	return e.ExtractImage(ctx, image)
}

func (e *Extractor) unpackContainer(ctx context.Context, format Format, dir string) (string, error) {
	err := e.containers.Unpack(ctx, format, e.archivePath, dir)
	if err != nil {
		return "", err
	}
	return singleEntry(dir)
}

// ExtractImage unwraps a disk image and the 0.img nested in it. It returns the directory the nested image
// was extracted to. When there is no nested image it returns ErrNoNestedImage.
func (e *Extractor) ExtractImage(ctx context.Context, image string) (_ string, errOut error) {
	defer e.cleanupOnErr(&errOut)
	if filepath.Ext(image) != ImageExt {
		return "", fmt.Errorf("%w: %s", ErrNotDiskImage, image)
	}
	if !fileExists(image) {
		return "", fmt.Errorf("%w: %s", ErrNotExist, image)
	}
	fmt.Fprintf(e.stdout, "extracting %s\n", image)
	outerDir, err := e.mkdir()
	if err != nil {
		return "", err
	}
	err = e.images.UnpackImage(ctx, image, outerDir)
	if err != nil {
		return "", err
	}
	nested := filepath.Join(outerDir, NestedImageName)
	if !fileExists(nested) {
		return "", fmt.Errorf("%w in %s", ErrNoNestedImage, filepath.Base(image))
	}
	innerDir, err := e.mkdir()
	if err != nil {
		return "", err
	}
	err = e.images.UnpackImage(ctx, nested, innerDir)
	if err != nil {
		return "", err
	}
	return innerDir, nil
}
