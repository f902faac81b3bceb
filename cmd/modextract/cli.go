package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/posener/complete"
	"github.com/willabides/kongplete"
	"github.com/willabides/modextract/internal/extract"
	"github.com/willabides/modextract/internal/modextract"
)

var version = "unknown"

var kongVars = kong.Vars{
	"input_file_help": `input image file of type .img, .tgz, .7z or .zip`,
	"copy_help":       `copy to the install root (/games/ or /games/games/) unless it is already installed`,
	"replace_help":    `move to the install root (/games/ or /games/games/), replacing an existing install`,
	"config_help":     `file with modextract config`,
	"work_dir_help":   `directory to extract in. default is the current directory`,
	"mgs_root_help":   `install root for MULTI_GAME_UI modules`,
	"games_root_help": `install root for GAME modules. default is the games directory under the mgs root`,
	"log_level_help":  `log level`,
	"quiet_help":      `suppress output to stdout`,
	"version":         version,
}

type rootCmd struct {
	InputFile string           `kong:"arg,name=input-file,type=path,help=${input_file_help},predictor=archive"`
	Copy      bool             `kong:"short=c,help=${copy_help}"`
	Replace   bool             `kong:"short=r,help=${replace_help}"`
	Config    string           `kong:"type=path,help=${config_help},env='MODEXTRACT_CONFIG'"`
	WorkDir   string           `kong:"name=work-dir,type=path,help=${work_dir_help}"`
	MGSRoot   string           `kong:"name=mgs-root,type=path,help=${mgs_root_help}"`
	GamesRoot string           `kong:"name=games-root,type=path,help=${games_root_help}"`
	LogLevel  string           `kong:"name=log-level,enum='debug,info,warn,error',default=warn,help=${log_level_help},env='MODEXTRACT_LOG_LEVEL'"`
	Quiet     bool             `kong:"short=q,help=${quiet_help}"`
	Version   kong.VersionFlag `kong:"help='show modextract version'"`
}

type runContext struct {
	parent  context.Context
	stdout  io.Writer
	stderr  io.Writer
	logger  *log.Logger
	rootCmd *rootCmd

	// used in tests
	images        extract.ImageUnpacker
	skipToolCheck bool
}

func (r *runContext) Deadline() (deadline time.Time, ok bool) {
	return r.parent.Deadline()
}

func (r *runContext) Done() <-chan struct{} {
	return r.parent.Done()
}

func (r *runContext) Err() error {
	return r.parent.Err()
}

func (r *runContext) Value(key any) any {
	return r.parent.Value(key)
}

type runOpts struct {
	stdout        io.Writer
	stderr        io.Writer
	cmdName       string
	exitHandler   func(int)
	images        extract.ImageUnpacker
	skipToolCheck bool
}

// Run let's light this candle
func Run(ctx context.Context, args []string, opts *runOpts) {
	if opts == nil {
		opts = &runOpts{}
	}
	var root rootCmd
	runCtx := &runContext{
		parent:        ctx,
		stdout:        opts.stdout,
		stderr:        opts.stderr,
		rootCmd:       &root,
		images:        opts.images,
		skipToolCheck: opts.skipToolCheck,
	}
	if runCtx.stdout == nil {
		runCtx.stdout = os.Stdout
	}
	if runCtx.stderr == nil {
		runCtx.stderr = os.Stderr
	}

	kongOptions := []kong.Option{
		kong.HelpOptions{Compact: true},
		kong.BindTo(runCtx, &runCtx),
		kongVars,
		kong.UsageOnError(),
		kong.Writers(runCtx.stdout, runCtx.stderr),
		kong.Description(`Extract a game or multi game UI module from a console image.
Input can be of type .img, .tgz, .7z or .zip. With --copy or --replace the module is installed under
/games (or /games/games) and the required folder permissions are set.`),
	}
	if opts.exitHandler != nil {
		kongOptions = append(kongOptions, kong.Exit(opts.exitHandler))
	}
	if opts.cmdName != "" {
		kongOptions = append(kongOptions, kong.Name(opts.cmdName))
	}

	parser := kong.Must(&root, kongOptions...)
	kongplete.Complete(parser,
		kongplete.WithPredictor("archive", complete.PredictOr(
			complete.PredictFiles("*.img"),
			complete.PredictFiles("*.tgz"),
			complete.PredictFiles("*.7z"),
			complete.PredictFiles("*.zip"),
		)),
	)

	kongCtx, err := parser.Parse(args)
	parser.FatalIfErrorf(err)
	if err != nil {
		return
	}
	if root.Quiet {
		runCtx.stdout = io.Discard
		kongCtx.Stdout = io.Discard
	}
	level, err := log.ParseLevel(root.LogLevel)
	if err != nil {
		level = log.WarnLevel
	}
	runCtx.logger = log.NewWithOptions(runCtx.stderr, log.Options{
		Prefix: "modextract",
		Level:  level,
	})
	err = kongCtx.Run()
	kongCtx.FatalIfErrorf(err)
}

func (r *rootCmd) Run(ctx *runContext) error {
	cfg, err := modextract.NewConfig(r.Config)
	if err != nil {
		return err
	}
	if r.WorkDir != "" {
		cfg.WorkDir = r.WorkDir
	}
	cfg.SetRoots(r.MGSRoot, r.GamesRoot)
	_, err = modextract.Process(ctx, cfg, r.InputFile, &modextract.ProcessOpts{
		Copy:          r.Copy,
		Replace:       r.Replace,
		SkipToolCheck: ctx.skipToolCheck,
		Images:        ctx.images,
		Stdout:        ctx.stdout,
		Logger:        ctx.logger,
	})
	return err
}
