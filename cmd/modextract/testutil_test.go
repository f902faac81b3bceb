package main

import (
	"bytes"
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/willabides/modextract/internal/testutil"
)

type cmdRunner struct {
	t         testing.TB
	workDir   string
	mgsRoot   string
	gamesRoot string
	images    *testutil.ZipImages
}

func newCmdRunner(t testing.TB) *cmdRunner {
	t.Helper()
	dir := t.TempDir()
	mgsRoot := filepath.Join(dir, "games")
	return &cmdRunner{
		t:         t,
		workDir:   filepath.Join(dir, "work"),
		mgsRoot:   mgsRoot,
		gamesRoot: filepath.Join(mgsRoot, "games"),
		images:    &testutil.ZipImages{},
	}
}

func (c *cmdRunner) run(commandLine ...string) *runCmdResult {
	c.t.Helper()
	result := runCmdResult{t: c.t}
	if c.workDir != "" {
		commandLine = append(commandLine, "--work-dir", c.workDir)
	}
	if c.mgsRoot != "" {
		commandLine = append(commandLine, "--mgs-root", c.mgsRoot)
	}
	Run(
		context.Background(),
		commandLine,
		&runOpts{
			stdout:        &result.stdOut,
			stderr:        &result.stdErr,
			cmdName:       "cmd",
			images:        c.images,
			skipToolCheck: true,
			exitHandler: func(i int) {
				result.exited = true
				result.exitVal = i
			},
		},
	)
	return &result
}

type runCmdResult struct {
	t       testing.TB
	stdOut  bytes.Buffer
	stdErr  bytes.Buffer
	exited  bool
	exitVal int
}

func (r *runCmdResult) assertStdOut(want string) {
	r.t.Helper()
	assertEqualOrMatch(r.t, want, r.stdOut.String())
}

func (r *runCmdResult) assertStdErr(want string) {
	r.t.Helper()
	assertEqualOrMatch(r.t, want, r.stdErr.String())
}

type resultState struct {
	stdout string
	stderr string
	exit   int
}

func (r *runCmdResult) assertState(state resultState) {
	r.t.Helper()
	r.assertStdOut(state.stdout)
	r.assertStdErr(state.stderr)
	assert.Equal(r.t, state.exit, r.exitVal)
	assert.Equal(r.t, state.exit != 0, r.exited)
}

func assertEqualOrMatch(t testing.TB, want, got string) {
	t.Helper()
	if want == "" {
		assert.Equal(t, "", got)
		return
	}
	want = strings.TrimSpace(want)
	got = strings.TrimSpace(got)
	if want == got {
		return
	}
	re, err := regexp.Compile(want)
	if err != nil {
		assert.Equal(t, strings.TrimSpace(want), got)
		return
	}
	assert.Regexp(t, re, got)
}
