// Package cli implements the bookmarks command line tool on top of the
// catalog service and the bookmark exchange.
package cli

import (
	"context"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"aggregat4/bookmarkcatalog/internal/catalog"
	"aggregat4/bookmarkcatalog/internal/config"
	"aggregat4/bookmarkcatalog/internal/domain"
	catalogerrors "aggregat4/bookmarkcatalog/internal/errors"
	"aggregat4/bookmarkcatalog/internal/exchange"
	"aggregat4/bookmarkcatalog/internal/logger"
	"aggregat4/bookmarkcatalog/internal/normalize"
	"aggregat4/bookmarkcatalog/internal/repository"
)

// App holds the streams and lazily opened services of one CLI invocation.
type App struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// EnvFile is loaded before the environment is read; empty skips it.
	EnvFile string

	dbFilename string
	logLevel   string
	noColor    bool

	out      io.Writer
	store    *repository.Store
	config   domain.Configuration
	catalog  *catalog.Service
	exchange *exchange.Exchange
}

func New() *App {
	return &App{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr, EnvFile: ".env"}
}

// Run executes the command line in args and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(a.Stdin)
	root.SetOut(a.Stdout)
	root.SetErr(a.Stderr)

	err := root.ExecuteContext(ctx)
	if a.store != nil {
		if closeErr := a.store.Close(); err == nil && closeErr != nil {
			err = catalogerrors.StorageFault(closeErr, "close")
		}
	}
	if err != nil {
		code := catalogerrors.CodeOf(err)
		failure(terminalWriter(a.Stderr, a.colorDisabled()), "%s: %s", code.Label(), err.Error())
		return code.ExitCode()
	}
	return 0
}

func (a *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "bookmarks",
		Short:         "Manage a personal bookmark catalog",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.out = terminalWriter(a.Stdout, a.colorDisabled())
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return catalogerrors.InvalidInput(err.Error())
	})
	flags := root.PersistentFlags()
	flags.StringVar(&a.dbFilename, "db", "", "path to the bookmark database (default $XDG_DATA_HOME/bookmark_catalog/bookmarks.sqlite)")
	flags.StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	flags.BoolVar(&a.noColor, "no-color", false, "disable coloured output")

	root.AddCommand(
		a.addCommand(),
		a.showCommand(),
		a.listCommand(),
		a.searchCommand(),
		a.updateCommand(),
		a.deleteCommand(),
		a.tagsCommand(),
		a.tagCommand(),
		a.importCommand(),
		a.exportCommand(),
	)
	return root
}

func (a *App) colorDisabled() bool {
	return a.noColor || os.Getenv("NO_COLOR") != ""
}

// open loads the configuration and opens the database on first use.
func (a *App) open() error {
	if a.catalog != nil {
		return nil
	}
	cfg, err := config.Load(a.EnvFile)
	if err != nil {
		if catalogerrors.CodeOf(err) == catalogerrors.CodeUnknown {
			err = catalogerrors.Wrap(err, catalogerrors.CodeInvalidInput, "cannot load configuration")
		}
		return err
	}
	if a.dbFilename != "" {
		cfg.DbFilename = a.dbFilename
	}
	log := logger.New(logger.Config{
		Writer: a.Stderr,
		Format: cfg.LogFormat,
		Level:  logger.ParseLevel(a.logLevel),
	})
	store, err := repository.Open(cfg.DbFilename, cfg, log)
	if err != nil {
		return err
	}
	a.store = store
	a.config = cfg
	a.catalog = catalog.NewService(store, normalize.New(cfg), log)
	a.exchange = exchange.New(a.catalog, cfg, log)
	return nil
}

// usageArgs reports positional argument mistakes as invalid input.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return catalogerrors.InvalidInput(err.Error())
		}
		return nil
	}
}

func parseId(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, catalogerrors.InvalidInputf("invalid bookmark id: %q", s)
	}
	return id, nil
}
