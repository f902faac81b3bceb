package extract

import (
	"context"

	"github.com/charmbracelet/log"
)

// DefaultInstallCommand installs 7z on Debian based systems.
var DefaultInstallCommand = []string{"apt", "install", "p7zip-full", "-y"}

// EnsureTool checks that program is on PATH and tries installCmd when it isn't. It returns false when the
// program is still unavailable. Failures are logged rather than returned so callers can stop quietly.
func EnsureTool(ctx context.Context, program string, installCmd []string, logger *log.Logger) bool {
	if logger == nil {
		logger = log.Default()
	}
	tool := Tool{Program: program}
	if tool.Available() {
		return true
	}
	logger.Warn("program not found, trying to install", "program", program)
	if len(installCmd) == 0 {
		logger.Error("no install command configured, please install it to proceed", "program", program)
		return false
	}
	installer := Tool{Program: installCmd[0]}
	_, err := installer.Run(ctx, installCmd[1:]...)
	if err != nil {
		logger.Error("install failed, please install it to proceed", "program", program, "err", err)
		return false
	}
	if !tool.Available() {
		logger.Error("program still not found after install", "program", program)
		return false
	}
	return true
}
