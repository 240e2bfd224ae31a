package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Julie-03/Kapee/internal/app"
	"github.com/Julie-03/Kapee/internal/authclient"
	"github.com/Julie-03/Kapee/internal/cartclient"
	"github.com/Julie-03/Kapee/internal/catalogclient"
	"github.com/Julie-03/Kapee/internal/config"
	"github.com/Julie-03/Kapee/internal/util"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"
	Verbose    bool

	open Opener
}

// Opener builds the application for one command run.
type Opener func(cmd *cobra.Command, opts *RootOptions) (*app.App, error)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the kapee CLI.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOpener(openFromConfig)
}

// NewRootCommandWithOpener creates the root command with a custom way of
// building the application.
func NewRootCommandWithOpener(open Opener) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "kapee",
		Short: "Kapee storefront client",
		Long:  "Browse the Kapee catalog and manage a cart that stays in sync with your account.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return WrapExitError(ExitCommandError, "invalid flags",
					fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default config.yaml or $KAPEE_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging on stderr")

	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewRegisterCommand(opts))
	cmd.AddCommand(NewWhoamiCommand(opts))
	cmd.AddCommand(NewProductsCommand(opts))
	cmd.AddCommand(NewCartCommand(opts))
	cmd.AddCommand(NewCheckoutCommand(opts))

	return cmd
}

func openFromConfig(cmd *cobra.Command, opts *RootOptions) (*app.App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	util.InitLogger(level, cmd.ErrOrStderr())

	a, err := app.New(commandContext(cmd), app.ConfigFromFile(cfg))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to init app", err)
	}
	return a, nil
}

// run opens the app, runs fn with a request-scoped context and maps any
// error onto the output format and an exit code.
func run(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *app.App, out *OutputFormatter) error) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	a, err := opts.open(cmd, opts)
	if err != nil {
		_ = out.Error(ErrCodeInvalid, err.Error())
		return err
	}
	defer a.Close()

	ctx := util.WithRequestID(commandContext(cmd), "")

	if err := fn(ctx, a, out); err != nil {
		// Already reported by the command itself.
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return err
		}
		exit, code := classify(err)
		_ = out.Error(code, err.Error())
		return WrapExitError(exit, "command failed", err)
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func classify(err error) (int, string) {
	var authErr *authclient.APIError
	var catalogErr *catalogclient.APIError
	switch {
	case errors.Is(err, cartclient.ErrUnauthenticated), errors.Is(err, cartclient.ErrUnauthorized):
		return ExitFailure, ErrCodeAuth
	case errors.As(err, &authErr) && authErr.Status == 401:
		return ExitFailure, ErrCodeAuth
	case errors.Is(err, catalogclient.ErrNotFound):
		return ExitFailure, ErrCodeNotFound
	case errors.Is(err, app.ErrEmptyCart), errors.Is(err, app.ErrNoProducts):
		return ExitCommandError, ErrCodeInvalid
	case errors.Is(err, cartclient.ErrNetwork), errors.Is(err, cartclient.ErrServer),
		authErr != nil, errors.As(err, &catalogErr):
		return ExitFailure, ErrCodeBackend
	default:
		return ExitFailure, ErrCodeGeneric
	}
}
