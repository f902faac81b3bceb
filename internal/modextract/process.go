// Package modextract runs the extract, rename and install pipeline for console module images.
package modextract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/willabides/modextract/internal/descriptor"
	"github.com/willabides/modextract/internal/extract"
	"github.com/willabides/modextract/internal/install"
)

// ErrNoModuleName is returned when no module in the descriptor has a ModuleInstallPath.
var ErrNoModuleName = errors.New("module descriptor has no install path")

// ProcessOpts configures Process.
type ProcessOpts struct {
	Copy    bool
	Replace bool

	// SkipToolCheck skips looking for (and installing) 7z before extracting.
	SkipToolCheck bool

	// Images overrides the disk image unpacker. Default is 7z.
	Images extract.ImageUnpacker

	Stdout io.Writer
	Logger *log.Logger
}

// Result describes a processed module.
type Result struct {
	// Dir is the extracted module directory, named after the module.
	Dir        string
	ModuleType string
	Name       string

	// Installed is true when the module was copied or moved into place.
	Installed bool
}

// Process extracts archivePath, renames the result after the module it holds and installs it when opts asks
// to. It returns a nil Result and no error when 7z is unavailable and could not be installed.
func Process(ctx context.Context, cfg *Config, archivePath string, opts *ProcessOpts) (_ *Result, errOut error) {
	if opts == nil {
		opts = &ProcessOpts{}
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	images := opts.Images
	if images == nil {
		images = extract.SevenZip{Program: cfg.SevenZip}
	}

	ex, err := extract.New(archivePath, &extract.Options{
		WorkDir:    cfg.WorkDir,
		Containers: cfg.containers(),
		Images:     images,
		Stdout:     stdout,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	if !opts.SkipToolCheck && !extract.EnsureTool(ctx, cfg.SevenZip, cfg.InstallCommand, logger) {
		return nil, nil
	}
	defer func() {
		cleanupErr := ex.Cleanup()
		if cleanupErr != nil {
			errOut = errors.Join(errOut, cleanupErr)
		}
	}()

	outDir, err := ex.Run(ctx)
	if err != nil {
		return nil, err
	}
	desc, err := descriptor.Load(filepath.Join(outDir, descriptor.FileName), logger)
	if err != nil {
		return nil, err
	}
	name, ok := desc.ResolvedName()
	if !ok {
		return nil, fmt.Errorf("%w in %s", ErrNoModuleName, archivePath)
	}
	fmt.Fprintf(stdout, "theme name %s\n", name)
	moduleType, _ := desc.ModuleType()

	moduleDir := filepath.Join(filepath.Dir(outDir), name)
	err = os.RemoveAll(moduleDir)
	if err != nil {
		return nil, err
	}
	err = os.Rename(outDir, moduleDir)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(stdout, "successfully extracted the image to %s\n", moduleDir)
	result := &Result{
		Dir:        moduleDir,
		ModuleType: moduleType,
		Name:       name,
	}

	if !opts.Copy && !opts.Replace {
		return result, nil
	}
	inst, err := install.New(moduleType, name, moduleDir, &install.Options{
		Copy:      opts.Copy,
		Replace:   opts.Replace,
		MGSRoot:   cfg.MGSRoot,
		GamesRoot: cfg.GamesRoot,
		Stdout:    stdout,
		Logger:    logger,
	})
	if err != nil {
		return result, err
	}
	result.Installed = inst.Run(ctx)
	if result.Installed && opts.Replace {
		result.Dir = inst.Target()
	}
	return result, nil
}
