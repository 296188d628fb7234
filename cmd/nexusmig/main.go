package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rflorenc/nexus-migration-workbench/internal/api"
	"github.com/rflorenc/nexus-migration-workbench/internal/config"
	"github.com/rflorenc/nexus-migration-workbench/internal/logging"
	"github.com/rflorenc/nexus-migration-workbench/internal/models"
	"github.com/rflorenc/nexus-migration-workbench/internal/report"
	"github.com/rflorenc/nexus-migration-workbench/internal/workbench"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "nexusmig",
	Short: "Migrate Nexus2 security and repository data into Nexus3",
	Long: `nexusmig reads the Nexus2 export tables (migration_nexus2_*) from PostgreSQL
and recreates privileges, repositories, roles and users in Nexus3 through its
REST API, in that order. Every created entity is journaled locally so a run
can be rolled back.`,
	SilenceUsage: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("NEXUSMIG")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "YAML config file")
	flags.StringSlice("env-file", []string{".env"}, "dotenv files to load (missing files are ignored)")
	flags.Bool("debug", false, "debug logging")
	flags.String("log-file", "", "append log output to this file")
	flags.String("journal", "", "path of the local run journal (SQLite)")
	flags.String("metrics-file", "", "write Prometheus counters to this file after a run")
	flags.String("db-driver", "", "PostgreSQL driver: pgx or postgres")
	flags.String("nexus-url", "", "Nexus3 base URL")
	for _, name := range []string{"config", "env-file", "debug", "log-file", "journal", "metrics-file", "db-driver", "nexus-url"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(rollbackCmd())
	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())
}

// loadConfig layers flags (through viper) over file, dotenv and environment.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(viper.GetString("config"), viper.GetStringSlice("env-file"))
	if err != nil {
		return config.Config{}, err
	}
	if viper.GetBool("debug") {
		cfg.Settings.Debug = true
	}
	if v := viper.GetString("log-file"); v != "" {
		cfg.Settings.LogFile = v
	}
	if v := viper.GetString("journal"); v != "" {
		cfg.Settings.JournalPath = v
	}
	if v := viper.GetString("metrics-file"); v != "" {
		cfg.Settings.MetricsFile = v
	}
	if v := viper.GetString("db-driver"); v != "" {
		cfg.DB.Driver = v
	}
	if v := viper.GetString("nexus-url"); v != "" {
		cfg.Nexus.BaseURL = v
	}
	return cfg, nil
}

// withWorkbench builds the logger and workbench for one command.
func withWorkbench(fn func(w *workbench.Workbench, log *logrus.Logger) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, closeLog, err := logging.New(logging.Options{Debug: cfg.Settings.Debug, File: cfg.Settings.LogFile})
	if err != nil {
		return err
	}
	defer closeLog()

	w, err := workbench.Open(cfg, log)
	if err != nil {
		return err
	}
	defer w.Close()
	return fn(w, log)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func migrateCmd() *cobra.Command {
	var (
		dryRun, skipPreflight, asJSON bool
		only                          []string
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run the migration stages (privileges, repositories, roles, users)",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := make([]models.Kind, 0, len(only))
			for _, name := range only {
				k, err := models.ParseKind(strings.TrimSpace(name))
				if err != nil {
					return err
				}
				kinds = append(kinds, k)
			}
			return withWorkbench(func(w *workbench.Workbench, log *logrus.Logger) error {
				rep, checks, err := w.Migrate(cmd.Context(), workbench.MigrateOptions{
					DryRun:        dryRun,
					Kinds:         kinds,
					SkipPreflight: skipPreflight,
				})
				if rep == nil {
					if len(checks) > 0 {
						report.RenderChecks(os.Stdout, checks)
					}
					return err
				}
				if asJSON {
					if perr := printJSON(rep); perr != nil {
						return perr
					}
				} else {
					report.RenderSummary(os.Stdout, rep)
				}
				if err != nil {
					return errors.Wrapf(err, "run %s", rep.RunID)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "map every row and report what would be created, without calling Nexus3")
	cmd.Flags().StringSliceVar(&only, "only", nil, "restrict to these kinds (privileges,repositories,roles,users)")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "do not verify schema and target version first")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the report as JSON")
	return cmd
}

func rollbackCmd() *cobra.Command {
	var (
		runID      string
		fromBackup bool
	)
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Delete the entities created by a run (users, roles, repositories, privileges)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if runID != "" && fromBackup {
				return errors.New("--run and --from-backup are mutually exclusive")
			}
			return withWorkbench(func(w *workbench.Workbench, log *logrus.Logger) error {
				rep, err := w.Rollback(cmd.Context(), workbench.RollbackOptions{RunID: runID, FromBackup: fromBackup})
				if rep != nil {
					report.RenderRollback(os.Stdout, rep)
				}
				if err != nil {
					return err
				}
				if rep.Failed() > 0 {
					return errors.Errorf("%d deletes failed", rep.Failed())
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id to roll back (default: latest run)")
	cmd.Flags().BoolVar(&fromBackup, "from-backup", false, "read identifiers from the migration_nexus2_*_backup tables")
	return cmd
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check database schema and Nexus3 connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkbench(func(w *workbench.Workbench, log *logrus.Logger) error {
				checks, err := w.Verify(cmd.Context(), nil)
				if len(checks) > 0 {
					report.RenderChecks(os.Stdout, checks)
				}
				return err
			})
		},
	}
}

func runsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List journaled runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkbench(func(w *workbench.Workbench, log *logrus.Logger) error {
				runs, err := w.Journal().Runs(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(runs)
				}
				lines := make([]report.RunLine, 0, len(runs))
				for _, r := range runs {
					lines = append(lines, report.RunLine{ID: r.ID, Status: r.Status, DryRun: r.DryRun, StartedAt: r.StartedAt})
				}
				report.RenderRuns(os.Stdout, lines)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP control surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkbench(func(w *workbench.Workbench, log *logrus.Logger) error {
				server := &api.Server{Workbench: w, Jobs: models.NewJobStore(), Log: log}
				srv := &http.Server{Addr: addr, Handler: api.NewRouter(server), ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-cmd.Context().Done()
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(ctx)
				}()
				log.Infof("nexusmig %s serving on http://%s", version, addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("nexusmig %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
