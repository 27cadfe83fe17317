package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bank-reconciliation-service/cmd/reconciler/config"
	"bank-reconciliation-service/internal/reconciler"
	"bank-reconciliation-service/internal/reporter"
	"bank-reconciliation-service/pkg/errors"
	"bank-reconciliation-service/pkg/logger"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// app is the state shared by one command tree.
type app struct {
	v       *viper.Viper
	cfgFile string
	verbose bool

	cfg *config.AppConfig
	log logger.Logger

	out io.Writer
}

// NewRootCmd builds the command tree writing results to out and
// diagnostics to errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out, log: logger.NewNopLogger()}
	config.SetDefaults(a.v)

	root := &cobra.Command{
		Use:   "reconciler",
		Short: "Bank statement reconciliation tool",
		Long: `Reconciler imports bank statement extracts, proposes matches against the
completed payments of a company, and records the confirmations and
discrepancies a reviewer decides on.

Examples:
  reconciler import --company acme --file statement.csv
  reconciler payments load --company acme --file payments.csv
  reconciler automatch --company acme --min-confidence 80
  reconciler confirm --transaction <bank-txn-id> --payment <payment-id> --user alice
  reconciler summary --company acme --output-format json`,
		Version:           getVersionString(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.initConfig,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (optional)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose error output")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text, json")
	flags.StringP("output-format", "f", "", "output format: console, json, csv")
	flags.StringP("output-file", "o", "", "write the result to this file instead of stdout")
	flags.String("store-driver", "", "record store: memory, sqlite, firestore")
	flags.String("sqlite-path", "", "sqlite database file")
	flags.String("firestore-project", "", "Google Cloud project of the Firestore database")

	bindings := map[string]string{
		"log.level":                  "log-level",
		"log.format":                 "log-format",
		"output.format":              "output-format",
		"output.file":                "output-file",
		"store.driver":               "store-driver",
		"store.sqlite.path":          "sqlite-path",
		"store.firestore.project_id": "firestore-project",
	}
	for key, flag := range bindings {
		a.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		newImportCmd(a),
		newPaymentsCmd(a),
		newAutoMatchCmd(a),
		newConfirmCmd(a),
		newDiscrepancyCmd(a),
		newPendingCmd(a),
		newSummaryCmd(a),
		newVersionCmd(a),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd(os.Stdout, os.Stderr)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	verbose, _ := root.PersistentFlags().GetBool("verbose")
	return NewCLIErrorHandler(os.Stderr, verbose).HandleError(err)
}

// initConfig reads the config file, applies environment and flag
// overrides, and installs the configured logger.
func (a *app) initConfig(cmd *cobra.Command, args []string) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return errors.ConfigurationError(errors.CodeInvalidConfig, "config", a.cfgFile, err).
				WithSuggestion("Check that the config file exists and is valid YAML, JSON or TOML")
		}
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	log, err := logger.NewLogger(cfg.LoggerConfig())
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "log", cfg.Log, err)
	}
	logger.SetGlobalLogger(log)
	a.log = log.WithComponent("cli")

	if a.cfgFile != "" {
		a.log.WithField("config_file", a.v.ConfigFileUsed()).Debug("Using config file")
	}
	return nil
}

// withBackend opens the configured store for the duration of fn.
func (a *app) withBackend(ctx context.Context, fn func(config.Backend) error) error {
	backend, err := config.OpenStore(ctx, a.cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := backend.Close(); cerr != nil {
			a.log.WithError(cerr).Warn("Failed to close store")
		}
	}()

	if a.cfg.Store.Driver == config.DriverMemory {
		a.log.Warn("Memory store selected: records are discarded when the command exits")
	}
	return fn(backend)
}

// withService runs fn against a service over the configured store. A nil
// rc uses the loaded configuration.
func (a *app) withService(ctx context.Context, rc *reconciler.Config, fn func(*reconciler.Service) error) error {
	if rc == nil {
		rc = a.cfg.ReconcilerConfig()
	}
	return a.withBackend(ctx, func(backend config.Backend) error {
		svc, err := reconciler.NewService(backend, rc, reconciler.WithLogger(logger.GetGlobalLogger().WithComponent("reconciler")))
		if err != nil {
			return err
		}
		return fn(svc)
	})
}

// finish renders result and passes the operation error through, so the
// exit code reflects the failure even when the result was printed.
func (a *app) finish(result interface{}, opErr error) error {
	return a.finishWith(result, opErr, nil)
}

// finishWith is finish with a per-command adjustment of the report settings.
func (a *app) finishWith(result interface{}, opErr error, adjust func(*reporter.ReportConfig)) error {
	gen, err := reporter.NewSafeReportGenerator(a.cfg.ReportConfig(), logger.GetGlobalLogger())
	if err != nil {
		return err
	}
	if adjust != nil {
		rc := *gen.GetConfiguration()
		adjust(&rc)
		if err := gen.UpdateConfiguration(&rc); err != nil {
			return err
		}
	}

	var renderErr error
	if path := a.cfg.Output.File; path != "" {
		var written string
		if written, renderErr = gen.WriteToFile(result, path); renderErr == nil {
			a.log.WithField("path", written).Info("Report written")
			fmt.Fprintf(a.out, "Report written to %s\n", written)
		}
	} else {
		renderErr = gen.RenderSafely(result, a.out)
	}

	if renderErr != nil && opErr == nil {
		return renderErr
	}
	return opErr
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "reconciler %s\n", getVersionString())
		},
	}
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
