package locsetupcli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/phillip-england/locsetup/internal/config"
	"github.com/phillip-england/locsetup/internal/envutil"
	"github.com/phillip-england/locsetup/internal/fsapi"
	"github.com/phillip-england/locsetup/internal/logger"
	"github.com/phillip-england/locsetup/internal/tasks"
	"github.com/phillip-england/locsetup/internal/webapp"
	"github.com/spf13/cobra"
)

var ErrUsage = errors.New("usage")

type app struct {
	stdout io.Writer
	stderr io.Writer

	envFile    string
	logLevel   string
	logJSON    bool
	backendURL string
}

func Execute(args []string) error {
	return execute(context.Background(), args, os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := newRootCommand(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// PrintUsage writes the command overview to w.
func PrintUsage(w io.Writer) {
	cmd := newRootCommand(w, w)
	cmd.SetOut(w)
	_ = cmd.Usage()
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}
	cmd := &cobra.Command{
		Use:           "locsetup",
		Short:         "Turn a locations CSV into setup tasks and talk to the site backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          usageArgs(cobra.NoArgs),
		RunE: func(*cobra.Command, []string) error {
			return usageError()
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	})

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", ".env", "path to .env file")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	flags.BoolVar(&a.logJSON, "log-json", false, "log as JSON")
	flags.StringVar(&a.backendURL, "backend-url", "", "site backend base URL")

	cmd.AddCommand(a.newSetupCommand())
	cmd.AddCommand(a.newServeCommand())
	cmd.AddCommand(a.newPreviewCommand())
	cmd.AddCommand(a.newExportCommand())
	cmd.AddCommand(a.newAPICommand())
	return cmd
}

func usageError() error {
	return fmt.Errorf("%w: locsetup <setup|serve|preview|export|api> [...]", ErrUsage)
}

func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrUsage, cmd.CommandPath(), err)
		}
		return nil
	}
}

// load reads the .env file and the environment, then applies flag overrides.
func (a *app) load(cmd *cobra.Command) (config.Config, logger.Logger, error) {
	if err := envutil.LoadDotEnv(a.envFile); err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if cmd.Flags().Changed("log-json") {
		cfg.LogJSON = a.logJSON
	}
	if a.backendURL != "" {
		cfg.BackendURL = a.backendURL
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, nil, err
	}

	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.LogLevel),
		Output:     a.stderr,
		JSON:       cfg.LogJSON,
		TimeFormat: "15:04:05",
	})
	logger.SetDefault(log)
	return cfg, log, nil
}

func (a *app) client(cfg config.Config, log logger.Logger) *fsapi.Client {
	opts := fsapi.Options{
		BaseURL:  cfg.BackendURL,
		Timeout:  cfg.RequestTimeout,
		CSRFPage: cfg.CSRFPage,
		Logger:   log,
	}
	if cfg.CSRFToken != "" {
		opts.Token = fsapi.StaticToken(cfg.CSRFToken)
	}
	return fsapi.New(opts)
}

func (a *app) newSetupCommand() *cobra.Command {
	var (
		addr      string
		csrfToken string
		csrfPage  string
		force     bool
	)
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Write a starter .env file",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(*cobra.Command, []string) error {
			defaults := config.Default()
			backend := a.backendURL
			if backend == "" {
				backend = defaults.BackendURL
			}
			values := map[string]string{
				config.EnvPrefix + "ADDR":        addr,
				config.EnvPrefix + "BACKEND_URL": backend,
				config.EnvPrefix + "CSRF_PAGE":   csrfPage,
				config.EnvPrefix + "LOG_LEVEL":   defaults.LogLevel,
			}
			if csrfToken != "" {
				values[config.EnvPrefix+"CSRF_TOKEN"] = csrfToken
			}
			if err := envutil.WriteDotEnv(a.envFile, values, force); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "wrote %s\n", a.envFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", config.Default().Addr, "web listen address")
	cmd.Flags().StringVar(&csrfToken, "csrf-token", "", "fixed backend CSRF token")
	cmd.Flags().StringVar(&csrfPage, "csrf-page", config.Default().CSRFPage, "backend page carrying the csrf-token meta tag")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing env file")
	return cmd
}

func (a *app) newServeCommand() *cobra.Command {
	var csvPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the import page",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := a.load(cmd)
			if err != nil {
				return err
			}

			store := tasks.NewStore()
			if csvPath != "" {
				result, err := buildFile(cmd.Context(), csvPath, 0, log)
				if err != nil {
					return err
				}
				snap := store.Replace(csvPath, result)
				log.Info("preloaded csv", "file", csvPath, "tasks", len(snap.Tasks))
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			if err := webapp.Run(ctx, webapp.ConfigFrom(cfg), store, log); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV file to load before serving")
	return cmd
}
