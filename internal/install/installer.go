// Package install places extracted modules under the console's system roots.
package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	cp "github.com/otiai10/copy"
)

// ModuleType is the ModuleType attribute of a module descriptor. It decides the install root.
type ModuleType string

const (
	ModuleTypeMultiGameUI ModuleType = "MULTI_GAME_UI"
	ModuleTypeGame        ModuleType = "GAME"
)

const (
	DefaultMGSRoot   = "/games/"
	DefaultGamesRoot = "/games/games/"
)

var (
	// ErrUnsupportedModuleType is returned by New for module types that have no install root.
	ErrUnsupportedModuleType = errors.New("installing is not supported for module type")

	// ErrSourceIsTarget is returned by New when the module was extracted to its own install target.
	ErrSourceIsTarget = errors.New("module is already at its install target")
)

// Options configures an Installer.
type Options struct {
	// Copy copies the module unless the target already exists.
	Copy bool

	// Replace moves the module, removing an existing target first. It takes precedence over Copy.
	Replace bool

	// MGSRoot is the root for MULTI_GAME_UI modules. Permissions are locked down from here.
	MGSRoot string

	// GamesRoot is the root for GAME modules.
	GamesRoot string

	// LockDir holds the install lock file. Default is os.TempDir().
	LockDir string

	Stdout io.Writer
	Logger *log.Logger
}

// Installer installs one extracted module.
type Installer struct {
	moduleType ModuleType
	name       string
	source     string
	root       string
	target     string
	mgsRoot    string
	gamesRoot  string
	lockDir    string
	copy       bool
	replace    bool
	stdout     io.Writer
	logger     *log.Logger
}

// New returns an Installer for the module extracted to source. opts may be nil.
func New(moduleType, name, source string, opts *Options) (*Installer, error) {
	if opts == nil {
		opts = &Options{}
	}
	inst := &Installer{
		moduleType: ModuleType(moduleType),
		name:       name,
		source:     source,
		mgsRoot:    opts.MGSRoot,
		gamesRoot:  opts.GamesRoot,
		lockDir:    opts.LockDir,
		copy:       opts.Copy,
		replace:    opts.Replace,
		stdout:     opts.Stdout,
		logger:     opts.Logger,
	}
	if inst.mgsRoot == "" {
		inst.mgsRoot = DefaultMGSRoot
	}
	if inst.gamesRoot == "" {
		inst.gamesRoot = DefaultGamesRoot
	}
	if inst.lockDir == "" {
		inst.lockDir = os.TempDir()
	}
	if inst.stdout == nil {
		inst.stdout = io.Discard
	}
	if inst.logger == nil {
		inst.logger = log.Default()
	}
	fmt.Fprintf(inst.stdout, "module type is %s\n", moduleType)
	switch inst.moduleType {
	case ModuleTypeMultiGameUI:
		inst.root = inst.mgsRoot
	case ModuleTypeGame:
		inst.root = inst.gamesRoot
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedModuleType, moduleType)
	}
	if name == "" {
		return nil, errors.New("module name is required")
	}
	inst.target = filepath.Join(inst.root, name)
	if samePath(source, inst.target) {
		return nil, fmt.Errorf("%w: %s", ErrSourceIsTarget, inst.target)
	}
	return inst, nil
}

// Root returns the root the module is installed under.
func (i *Installer) Root() string {
	return i.root
}

// Target returns the path the module is installed to.
func (i *Installer) Target() string {
	return i.target
}

// Run installs the module and reports whether it succeeded. Failures are printed with a hint to finish the
// install manually and are never returned.
func (i *Installer) Run(ctx context.Context) bool {
	if !i.install(ctx) {
		return false
	}
	fmt.Fprintf(i.stdout, "copied %s to %s successfully\n", i.name, i.root)
	return true
}

func (i *Installer) softFail(msg string, err error) {
	keyvals := []any{"name", i.name, "target", i.target}
	if err != nil {
		fmt.Fprintf(i.stdout, "%s: %v\n", msg, err)
		keyvals = append(keyvals, "err", err)
	} else {
		fmt.Fprintln(i.stdout, msg)
	}
	i.logger.Warn(msg, keyvals...)
}

func (i *Installer) install(ctx context.Context) bool {
	if !i.replace && !i.copy {
		return false
	}
	if err := ctx.Err(); err != nil {
		i.softFail("install canceled, please copy manually", err)
		return false
	}
	// the games root lives under the mgs root, so this creates both by default
	err := os.MkdirAll(i.gamesRoot, 0o700)
	if err == nil {
		err = os.MkdirAll(i.mgsRoot, 0o700)
	}
	if err != nil {
		i.softFail("could not create install directory, please copy manually", err)
		return false
	}
	unlock, err := lockRoot(i.lockDir, i.mgsRoot)
	if err != nil {
		i.softFail("could not lock install directory, please copy manually", err)
		return false
	}
	defer unlock()

	if i.replace {
		if dirExists(i.target) {
			i.logger.Debug("removing existing install", "target", i.target)
			err = os.RemoveAll(i.target)
			if err != nil {
				i.softFail("could not remove existing install, please copy manually", err)
				return false
			}
		}
		err = move(i.source, i.target)
	} else {
		if dirExists(i.target) {
			i.softFail(fmt.Sprintf("directory exists, please copy manually: %s", i.target), nil)
			return false
		}
		err = cp.Copy(i.source, i.target, cp.Options{PreserveTimes: true})
	}
	if err != nil {
		i.softFail("copy failed, please copy manually", err)
		return false
	}

	for _, root := range i.lockdownRoots() {
		err = lockdown(root)
		if err != nil {
			i.softFail(fmt.Sprintf("please set enough permission for %s", root), err)
			return false
		}
	}
	return true
}

// lockdownRoots returns the mgs root, plus the install root when it lives outside the mgs root.
func (i *Installer) lockdownRoots() []string {
	roots := []string{i.mgsRoot}
	if !within(i.mgsRoot, i.root) {
		roots = append(roots, i.root)
	}
	return roots
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
