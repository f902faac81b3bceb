package extract

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotExist          = errors.New("input file does not exist")
	ErrUnsupportedFormat = errors.New("unsupported input format")
	ErrNotDiskImage      = errors.New("incorrect file given, expected a disk image")
	ErrNotSingleEntry    = errors.New("expected exactly one extracted entry")
	ErrNoNestedImage     = errors.New("no nested disk image found")
)

// ToolError is returned when an external program exits unsuccessfully.
type ToolError struct {
	Program string
	Args    []string
	Output  string
	Err     error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Program, strings.Join(e.Args, " "), e.Err)
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return msg
	}
	return msg + "\n" + out
}

func (e *ToolError) Unwrap() error {
	return e.Err
}
