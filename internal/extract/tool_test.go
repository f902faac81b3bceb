package extract

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/willabides/modextract/internal/testutil"
)

// writeScript writes an executable shell script to dir/name.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	filename := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(filename, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return filename
}

func TestTool_Run(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		prog := writeScript(t, t.TempDir(), "ok", `echo "hello $1"`)
		out, err := Tool{Program: prog}.Run(context.Background(), "world")
		require.NoError(t, err)
		assert.Equal(t, "hello world\n", string(out))
	})

	t.Run("failure carries output", func(t *testing.T) {
		prog := writeScript(t, t.TempDir(), "fail", `echo "boom"; exit 2`)
		_, err := Tool{Program: prog}.Run(context.Background(), "x", "y")
		var toolErr *ToolError
		require.True(t, errors.As(err, &toolErr))
		assert.Equal(t, prog, toolErr.Program)
		assert.Equal(t, []string{"x", "y"}, toolErr.Args)
		assert.Equal(t, "boom\n", toolErr.Output)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("missing program", func(t *testing.T) {
		_, err := Tool{Program: filepath.Join(t.TempDir(), "nope")}.Run(context.Background())
		var toolErr *ToolError
		require.True(t, errors.As(err, &toolErr))
	})
}

func TestSevenZip_UnpackImage(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	prog := writeScript(t, dir, "7z", `echo "$@" > `+argsFile)
	outDir := t.TempDir()
	err := SevenZip{Program: prog}.UnpackImage(context.Background(), "/in/game1.img", outDir)
	require.NoError(t, err)
	got, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Equal(t, "x /in/game1.img -o"+outDir+" -y", strings.TrimSpace(string(got)))
}

func TestToolUnpacker_Unpack(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	tar := writeScript(t, dir, "tar", `echo "tar $@" >> `+argsFile)
	sevenZip := writeScript(t, dir, "7z", `echo "7z $@" >> `+argsFile)
	u := ToolUnpacker{SevenZip: SevenZip{Program: sevenZip}, Tar: tar}
	ctx := context.Background()
	require.NoError(t, u.Unpack(ctx, FormatTarball, "a.tgz", "out"))
	require.NoError(t, u.Unpack(ctx, FormatZip, "a.zip", "out"))
	require.NoError(t, u.Unpack(ctx, FormatSevenZip, "a.7z", "out"))
	require.ErrorIs(t, u.Unpack(ctx, FormatDiskImage, "a.img", "out"), ErrUnsupportedFormat)
	got, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Equal(t, `tar xzf a.tgz -C out
7z x a.zip -oout -y
7z x a.7z -oout -y`, strings.TrimSpace(string(got)))
}

func TestExtractor_Run_toolFailure(t *testing.T) {
	prog := writeScript(t, t.TempDir(), "7z", `echo "ERROR: unsupported image"; exit 2`)
	input := filepath.Join(t.TempDir(), "game1.img")
	testutil.BuildImage(t, input, testutil.GamePayload("mygame"))
	ex, workDir := newTestExtractor(t, input, &Options{Images: SevenZip{Program: prog}})
	_, err := ex.Run(context.Background())
	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Contains(t, toolErr.Output, "ERROR: unsupported image")
	assertAllGone(t, ex)
	assert.Empty(t, testutil.ListDir(t, workDir))
}

func TestEnsureTool(t *testing.T) {
	ctx := context.Background()

	t.Run("available", func(t *testing.T) {
		prog := writeScript(t, t.TempDir(), "7z", "exit 0")
		assert.True(t, EnsureTool(ctx, prog, nil, log.New(&bytes.Buffer{})))
	})

	t.Run("missing without install command", func(t *testing.T) {
		var buf bytes.Buffer
		assert.False(t, EnsureTool(ctx, filepath.Join(t.TempDir(), "7z"), nil, log.New(&buf)))
		assert.Contains(t, buf.String(), "no install command configured")
	})

	t.Run("install fails", func(t *testing.T) {
		var buf bytes.Buffer
		installer := writeScript(t, t.TempDir(), "apt", `echo "E: permission denied"; exit 100`)
		assert.False(t, EnsureTool(ctx, filepath.Join(t.TempDir(), "7z"), []string{installer, "install"}, log.New(&buf)))
		assert.Contains(t, buf.String(), "install failed")
	})

	t.Run("install succeeds", func(t *testing.T) {
		dir := t.TempDir()
		prog := filepath.Join(dir, "7z")
		installer := writeScript(t, t.TempDir(), "apt", `printf '#!/bin/sh\nexit 0\n' > "$1" && chmod +x "$1"`)
		assert.True(t, EnsureTool(ctx, prog, []string{installer, prog}, log.New(&bytes.Buffer{})))
	})
}
