package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vitebski/mysql-nl-query/internal/metrics"
	"github.com/vitebski/mysql-nl-query/internal/nl2sql"
	"github.com/vitebski/mysql-nl-query/internal/pipeline"
	"github.com/vitebski/mysql-nl-query/internal/utils"
)

// app carries the resolved flags and the logger shared by every subcommand
type app struct {
	host        string
	user        string
	password    string
	database    string
	port        string
	envFile     string
	logLevel    string
	provider    string
	model       string
	metricsAddr string

	logger *logrus.Logger
}

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "mysql-nl-query",
		Short: "Query MySQL databases in plain English",
		Long: `MySQL Natural Language Query

A Go tool that turns natural-language questions into SQL with a generative
model and runs them against a MySQL database. It can also list databases and
tables, describe tables, create tables and insert records.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.host, "host", "H", "", "MySQL host (default: localhost)")
	rootCmd.PersistentFlags().StringVarP(&a.user, "user", "u", "", "MySQL user (default: root)")
	rootCmd.PersistentFlags().StringVarP(&a.password, "password", "p", "", "MySQL password")
	rootCmd.PersistentFlags().StringVarP(&a.database, "database", "d", "", "MySQL database name")
	rootCmd.PersistentFlags().StringVarP(&a.port, "port", "P", "", "MySQL port (default: 3306)")
	rootCmd.PersistentFlags().StringVarP(&a.envFile, "env-file", "e", ".env", "Path to .env file")
	rootCmd.PersistentFlags().StringVarP(&a.logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&a.provider, "provider", "", "Model provider: gemini or openai (default: gemini)")
	rootCmd.PersistentFlags().StringVarP(&a.model, "model", "m", "", "Model name (default depends on provider)")
	rootCmd.PersistentFlags().StringVar(&a.metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address, e.g. :9090")

	rootCmd.AddCommand(
		a.databasesCommand(),
		a.tablesCommand(),
		a.describeCommand(),
		a.askCommand(),
		a.createTableCommand(),
		a.insertCommand(),
		a.shellCommand(),
		a.keyCommand(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the environment, fills connection flags from it and validates them
func (a *app) setup() error {
	a.logger = utils.SetupLogging(a.logLevel)
	utils.LoadEnvironmentVariables(a.envFile, a.logger)

	if a.host == "" {
		a.host = os.Getenv("MYSQL_HOST")
	}
	if a.user == "" {
		a.user = os.Getenv("MYSQL_USER")
	}
	if a.password == "" {
		a.password = os.Getenv("MYSQL_PASSWORD")
	}
	if a.database == "" {
		a.database = os.Getenv("MYSQL_DATABASE")
	}
	if a.port == "" {
		a.port = os.Getenv("MYSQL_PORT")
		if a.port == "" {
			a.port = "3306"
		}
	}
	if a.host == "" {
		a.host = "localhost"
	}
	if a.user == "" {
		a.user = "root"
	}

	if !utils.ValidateConnectionParams(a.host, a.user, a.password, a.port, a.logger) {
		return errors.New("invalid connection parameters")
	}

	if a.metricsAddr != "" {
		go a.serveMetrics()
	}
	return nil
}

func (a *app) serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	a.logger.Infof("Serving metrics on %s/metrics", a.metricsAddr)
	if err := http.ListenAndServe(a.metricsAddr, mux); err != nil {
		a.logger.Errorf("Metrics server stopped: %v", err)
	}
}

func (a *app) openSession(ctx context.Context) (*pipeline.Session, error) {
	return pipeline.OpenSession(ctx, pipeline.ConnectionParams{
		Host:     a.host,
		User:     a.user,
		Password: a.password,
		Database: a.database,
		Port:     a.port,
	}, a.logger)
}

// newPipeline builds the pipeline. The model client is only created when withModel
// is set, so schema-only commands work without an API key.
func (a *app) newPipeline(ctx context.Context, withModel bool) (*pipeline.Pipeline, error) {
	if !withModel {
		return pipeline.NewPipeline(nil, a.logger), nil
	}

	var secrets utils.SecretStore
	if store, err := utils.OpenKeyring(); err != nil {
		a.logger.Debugf("Keyring unavailable: %v", err)
	} else {
		secrets = store
	}
	cfg := utils.LoadModelSettings(a.provider, a.model, secrets, a.logger)
	synthesizer, err := nl2sql.NewSynthesizer(ctx, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "set up %s model (store a key with: mysql-nl-query key set %s)", cfg.Provider, cfg.Provider)
	}
	a.logger.Debugf("Using %s model %s", synthesizer.Provider(), synthesizer.Model())
	return pipeline.NewPipeline(synthesizer, a.logger), nil
}
