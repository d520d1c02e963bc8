package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"threadsctl/domain/model"
	"threadsctl/domain/repository"
	"threadsctl/infrastructure/logger"
	"threadsctl/usecase"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"
)

// Options are the flags accepted before any command
type Options struct {
	JSON    bool `long:"json" description:"Write results and errors as a JSON envelope on stdout"`
	Verbose bool `short:"v" long:"verbose" description:"Log debug output to stderr"`
}

// Defaults are the configured values commands fall back to
type Defaults struct {
	AppID        string
	AppSecret    string
	RedirectPort int
}

type Deps struct {
	Auth     usecase.IAuthUsecase
	Publish  usecase.IPublishUsecase
	Threads  usecase.IThreadsUsecase
	Store    repository.ICredentialStore
	Defaults Defaults
	Stdout   io.Writer
	Stderr   io.Writer
}

type App struct {
	Deps
	opts Options
	ctx  context.Context
}

func NewApp(deps Deps) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	return &App{Deps: deps}
}

// Run parses args, executes the selected command and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	a.ctx = ctx
	parser := a.parser()

	_, err := parser.ParseArgs(args)
	if err == nil {
		return 0
	}
	if flags.WroteHelp(err) {
		fmt.Fprintln(a.Stdout, err.Error())
		return 0
	}
	return a.fail(err)
}

func (a *App) parser() *flags.Parser {
	parser := flags.NewParser(&a.opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "threadsctl"
	parser.LongDescription = "Command-line client for the Threads API."
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if a.opts.Verbose {
			logger.SetLevel(log.DebugLevel)
		}
		if cmd == nil {
			return nil
		}
		return cmd.Execute(args)
	}
	registerCommands(parser, a)
	return parser
}

func (a *App) fail(err error) int {
	ce := toCliErr(err)
	logger.GetLogger().WithField("code", ce.Code).WithError(err).Debug("command failed")
	if a.opts.JSON {
		_ = json.NewEncoder(a.Stdout).Encode(map[string]interface{}{
			"ok":    false,
			"error": ce,
		})
	} else {
		fmt.Fprintln(a.Stderr, "Error:", ce.Msg)
	}
	return 1
}

// emit writes a command result: the JSON envelope with --json, otherwise
// the human rendering.
func (a *App) emit(data interface{}, render func(w io.Writer)) error {
	if a.opts.JSON {
		return json.NewEncoder(a.Stdout).Encode(map[string]interface{}{"ok": true, "data": data})
	}
	render(a.Stdout)
	return nil
}

func (a *App) session() (model.Session, error) {
	if a.Threads == nil {
		return model.Session{}, errors.New("threads usecase not configured")
	}
	return a.Threads.ResolveSession(a.ctx)
}
