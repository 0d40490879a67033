package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vitebski/mysql-context-extractor/internal/config"
	"github.com/vitebski/mysql-context-extractor/internal/connector"
	"github.com/vitebski/mysql-context-extractor/internal/copier"
	"github.com/vitebski/mysql-context-extractor/internal/dialect"
	"github.com/vitebski/mysql-context-extractor/internal/exporter"
	"github.com/vitebski/mysql-context-extractor/internal/masker"
	"github.com/vitebski/mysql-context-extractor/internal/scanner"
	"github.com/vitebski/mysql-context-extractor/internal/utils"
	"github.com/vitebski/mysql-context-extractor/pkg/models"
)

type options struct {
	source     config.ConnectionConfig
	target     config.ConnectionConfig
	column     string
	value      string
	matchType  string
	envFile    string
	logLevel   string
	format     string
	output     string
	withDelete bool
	anonymize  bool
	batchSize  int
	yes        bool
}

// session is one scan of the source database
type session struct {
	logger *logrus.Logger
	db     *connector.DatabaseConnector
	result *scanner.ScanResult
}

func (s *session) close() {
	if s.db != nil {
		s.db.Disconnect()
	}
}

func main() {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "mysql-context-extractor",
		Short: "Extract every row belonging to one context from a relational database",
		Long: `MySQL Context Extractor

Finds every table of a catalog that carries a given column, fetches the rows
where that column equals a given value and orders the tables so that parents
come before the tables referencing them. The rows can be reported, exported
as SQL or JSON, copied into another database or purged.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.source.Driver, "driver", "", "Database driver: "+fmt.Sprint(dialect.Names())+" (default: mysql)")
	flags.StringVarP(&opts.source.Host, "host", "H", "", "Database host (default: localhost)")
	flags.StringVarP(&opts.source.User, "user", "u", "", "Database user (default: root)")
	flags.StringVarP(&opts.source.Password, "password", "p", "", "Database password")
	flags.StringVarP(&opts.source.Database, "database", "d", "", "Database name")
	flags.StringVarP(&opts.source.Port, "port", "P", "", "Database port (default: driver port)")
	flags.StringVar(&opts.source.SSLMode, "sslmode", "", "PostgreSQL sslmode (default: disable)")
	flags.StringVar(&opts.source.Catalog, "catalog", "", "Catalog to scan (default: the database for MySQL, public for PostgreSQL)")
	flags.StringVarP(&opts.column, "column", "c", "", "Column rows are matched on")
	flags.StringVarP(&opts.value, "value", "V", "", "Value the match column must equal")
	flags.StringVarP(&opts.matchType, "type", "t", "integer", "SQL type of the match value")
	flags.StringVarP(&opts.envFile, "env-file", "e", ".env", "Path to .env file")
	flags.StringVarP(&opts.logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newScanCommand(opts),
		newExportCommand(opts),
		newCopyCommand(opts),
		newPurgeCommand(opts),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newScanCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Report the matched tables, their row counts and insertion order",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts)
			if s != nil {
				defer s.close()
			}
			if s == nil || s.result == nil {
				return err
			}
			utils.PrintScanReport(cmd.OutOrStdout(), s.result, err)
			return err
		},
	}
}

func newExportCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the matched rows as an SQL script or a JSON document",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := exporter.ParseFormat(opts.format)
			if err != nil {
				return err
			}

			s, err := openSession(opts)
			if s != nil {
				defer s.close()
			}
			// JSON can carry tables that could not be ordered
			if err != nil && !(format == exporter.FormatJSON && s != nil && s.result != nil) {
				return err
			}
			if err != nil {
				s.logger.Warningf("Exporting tables without an insertion order: %v", err)
			}

			result := s.result
			if opts.anonymize {
				result = masker.NewMasker(s.logger).MaskResult(result)
			}

			var w io.Writer = cmd.OutOrStdout()
			if opts.output != "" && opts.output != "-" {
				f, err := os.Create(opts.output)
				if err != nil {
					return errors.Wrapf(err, "creating %s", opts.output)
				}
				defer f.Close()
				w = f
			}

			exp := exporter.NewExporter(s.db.Dialect, s.logger)
			exp.IncludeDelete = opts.withDelete
			if err := exp.Write(w, result, format); err != nil {
				return err
			}
			if opts.output != "" && opts.output != "-" {
				s.logger.Infof("Export written to %s", opts.output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", string(exporter.FormatSQL), "Output format (sql, json)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&opts.withDelete, "with-delete", false, "Delete the matched rows before inserting them again")
	cmd.Flags().BoolVar(&opts.anonymize, "anonymize", false, "Replace personal data with fake values")
	return cmd
}

func newCopyCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Insert the matched rows into a target database",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts)
			if s != nil {
				defer s.close()
			}
			if err != nil {
				return err
			}

			targetCfg := config.FromEnv(config.TargetPrefix, opts.target)
			if !targetCfg.Validate(s.logger.WithField("connection", "target")) {
				return errors.New("invalid target connection parameters")
			}
			target, err := connector.NewDatabaseConnector(targetCfg, s.logger.WithField("connection", "target"))
			if err != nil {
				return err
			}
			if err := target.Connect(); err != nil {
				return err
			}
			defer target.Disconnect()

			result := s.result
			if opts.anonymize {
				result = masker.NewMasker(s.logger).MaskResult(result)
			}

			batchSize := opts.batchSize
			if batchSize <= 0 {
				batchSize = utils.GetEnvInt(config.TargetPrefix+"_BATCH_SIZE", copier.DefaultBatchSize)
			}
			c := copier.NewCopier(target, targetCfg.Catalog, batchSize, s.logger)
			s.logger.Info("Starting copy...")
			copyErr := c.Copy(result)
			utils.PrintCopySummary(cmd.OutOrStdout(), "copy summary", c.Copied, c.Failed())
			return copyErr
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.target.Driver, "target-driver", "", "Target database driver (default: mysql)")
	flags.StringVar(&opts.target.Host, "target-host", "", "Target database host (default: localhost)")
	flags.StringVar(&opts.target.User, "target-user", "", "Target database user (default: root)")
	flags.StringVar(&opts.target.Password, "target-password", "", "Target database password")
	flags.StringVar(&opts.target.Database, "target-database", "", "Target database name")
	flags.StringVar(&opts.target.Port, "target-port", "", "Target database port (default: driver port)")
	flags.StringVar(&opts.target.SSLMode, "target-sslmode", "", "Target PostgreSQL sslmode (default: disable)")
	flags.StringVar(&opts.target.Catalog, "target-catalog", "", "Target catalog (default: the target database for MySQL, public for PostgreSQL)")
	flags.IntVarP(&opts.batchSize, "batch-size", "b", 0, "Rows inserted per transaction (default: 100)")
	flags.BoolVar(&opts.anonymize, "anonymize", false, "Replace personal data with fake values")
	return cmd
}

func newPurgeCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete the matched rows from the source database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.yes {
				return errors.New("purge deletes data; pass --yes to confirm")
			}

			s, err := openSession(opts)
			if s != nil {
				defer s.close()
			}
			if err != nil {
				return err
			}

			c := copier.NewCopier(s.db, s.result.Catalog, 0, s.logger)
			purgeErr := c.Purge(s.result)
			utils.PrintCopySummary(cmd.OutOrStdout(), "purge summary", c.Deleted, c.Failed())
			return purgeErr
		},
	}

	cmd.Flags().BoolVar(&opts.yes, "yes", false, "Confirm deleting the matched rows")
	return cmd
}

// openSession connects to the source database and scans it. When the tables
// cannot be ordered the session still carries the scan result.
func openSession(opts *options) (*session, error) {
	logger := utils.SetupLogging(opts.logLevel)
	utils.LoadEnvironmentVariables(opts.envFile, logger)

	if opts.column == "" {
		opts.column = os.Getenv(config.SourcePrefix + "_COLUMN")
	}
	if opts.value == "" {
		opts.value = os.Getenv(config.SourcePrefix + "_VALUE")
	}
	if opts.column == "" {
		return nil, errors.New("match column must be provided with --column or " + config.SourcePrefix + "_COLUMN")
	}
	sqlType, err := models.ParseSQLType(opts.matchType)
	if err != nil {
		return nil, err
	}

	cfg := config.FromEnv(config.SourcePrefix, opts.source)
	if !cfg.Validate(logger) {
		return nil, errors.New("invalid connection parameters")
	}

	db, err := connector.NewDatabaseConnector(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Connect(); err != nil {
		return nil, err
	}
	s := &session{logger: logger, db: db}

	sc := scanner.NewSchemaScanner(db, logger)
	if err := sc.Configure(cfg.Catalog); err != nil {
		return s, err
	}
	if err := sc.SetMatchCriterion(opts.column, opts.value, sqlType); err != nil {
		return s, err
	}

	s.result, err = sc.Scan()
	return s, err
}
