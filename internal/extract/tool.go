package extract

import (
	"context"
	"os/exec"
)

// Tool is an external program.
type Tool struct {
	Program string
}

// Available reports whether the program can be found.
func (t Tool) Available() bool {
	_, err := exec.LookPath(t.Program)
	return err == nil
}

// Run runs the program with args and returns its combined output. A non-zero exit is returned as a *ToolError.
func (t Tool) Run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, t.Program, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, &ToolError{
			Program: t.Program,
			Args:    args,
			Output:  string(out),
			Err:     err,
		}
	}
	return out, nil
}

// SevenZip unpacks disk images with the 7z program.
type SevenZip struct {
	Program string
}

func (s SevenZip) tool() Tool {
	if s.Program == "" {
		return Tool{Program: "7z"}
	}
	return Tool{Program: s.Program}
}

// UnpackImage extracts image into dir.
func (s SevenZip) UnpackImage(ctx context.Context, image, dir string) error {
	_, err := s.tool().Run(ctx, "x", image, "-o"+dir, "-y")
	return err
}

// ToolUnpacker unpacks containers with external programs: tar for tarballs and 7z for everything else.
type ToolUnpacker struct {
	SevenZip SevenZip
	Tar      string
}

// Unpack extracts src into dir.
func (u ToolUnpacker) Unpack(ctx context.Context, format Format, src, dir string) error {
	switch format {
	case FormatTarball:
		tar := Tool{Program: u.Tar}
		if tar.Program == "" {
			tar.Program = "tar"
		}
		_, err := tar.Run(ctx, "xzf", src, "-C", dir)
		return err
	case FormatZip, FormatSevenZip:
		return u.SevenZip.UnpackImage(ctx, src, dir)
	default:
		return ErrUnsupportedFormat
	}
}
