package utils

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-context-extractor/internal/config"
	"github.com/vitebski/mysql-context-extractor/internal/depgraph"
	"github.com/vitebski/mysql-context-extractor/internal/scanner"
)

// SetupLogging configures the logging system. Logs go to stderr so exports
// written to stdout stay clean.
func SetupLogging(logLevel string) *logrus.Logger {
	logger := logrus.New()

	// Get log level from environment variable or parameter
	levelStr := logLevel
	if levelStr == "" {
		levelStr = os.Getenv(config.SourcePrefix + "_LOG_LEVEL")
		if levelStr == "" {
			levelStr = "info"
		}
	}

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetOutput(os.Stderr)

	logger.Debugf("Logging configured with level: %s", level)
	return logger
}

// LoadEnvironmentVariables loads environment variables from envFile when it
// exists. Variables already set in the environment win.
func LoadEnvironmentVariables(envFile string, logger *logrus.Logger) bool {
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		sampleEnvFile := envFile + ".sample"
		if _, err := os.Stat(sampleEnvFile); err == nil {
			logger.Infof("No %s file found, but %s exists. Consider copying %s to %s and updating it.",
				envFile, sampleEnvFile, sampleEnvFile, envFile)
		}
		logger.Debugf("No %s file found, using existing environment variables", envFile)
		return false
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warningf("Error loading %s file: %v", envFile, err)
		return false
	}
	logger.Infof("Loaded environment variables from %s", envFile)

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		for _, env := range os.Environ() {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) != 2 || !hasConfigPrefix(parts[0]) {
				continue
			}
			if strings.HasSuffix(parts[0], "_PASSWORD") {
				logger.Debugf("%s=********", parts[0])
			} else {
				logger.Debugf("%s=%s", parts[0], parts[1])
			}
		}
	}

	return true
}

func hasConfigPrefix(name string) bool {
	return strings.HasPrefix(name, config.SourcePrefix+"_") || strings.HasPrefix(name, config.TargetPrefix+"_")
}

// GetEnvInt gets an integer value from environment variable
func GetEnvInt(varName string, defaultValue int) int {
	value := os.Getenv(varName)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// PrintScanReport prints the matched tables, their row counts and the order
// they can be inserted in. sortErr is the error the scan returned, if any.
func PrintScanReport(w io.Writer, result *scanner.ScanResult, sortErr error) {
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w, "SCAN REPORT")
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "Catalog: %s\n", result.Catalog)
	fmt.Fprintf(w, "Match:   %s = %v (%s)\n", result.MatchColumn, result.MatchValue, result.MatchType)
	fmt.Fprintf(w, "Tables:  %d\n", len(result.Tables))
	fmt.Fprintf(w, "Rows:    %d\n\n", result.RowCount())

	tables := result.InsertionOrder
	ordered := tables != nil
	if !ordered {
		tables = result.Tables
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"#", "Table", "Category", "Rows", "References"})
	for i, td := range tables {
		position := "-"
		if ordered {
			position = strconv.Itoa(i + 1)
		}
		table.Append([]string{
			position,
			td.Name,
			td.Category().String(),
			strconv.Itoa(len(td.Rows)),
			strings.Join(td.OutgoingReferences(), ", "),
		})
	}
	table.Render()

	var inconsistency *depgraph.InconsistencyError
	if errors.As(sortErr, &inconsistency) {
		fmt.Fprintln(w, "\nCIRCULAR DEPENDENCIES")
		for _, cycle := range inconsistency.Cycles {
			fmt.Fprintf(w, "  %s\n", strings.Join(cycle, " <-> "))
		}
		fmt.Fprintf(w, "Unordered tables: %s\n", strings.Join(inconsistency.Remaining, ", "))
	}
}

// PrintCopySummary prints the outcome of a copy or purge
func PrintCopySummary(w io.Writer, title string, counts map[string]int64, failedTables []string) {
	names := make([]string, 0, len(counts))
	var total int64
	for name, count := range counts {
		names = append(names, name)
		total += count
	}
	sort.Strings(names)

	fmt.Fprintln(w, "\n"+strings.Repeat("=", 50))
	fmt.Fprintln(w, strings.ToUpper(title))
	fmt.Fprintln(w, strings.Repeat("=", 50))

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Table", "Rows"})
	for _, name := range names {
		table.Append([]string{name, strconv.FormatInt(counts[name], 10)})
	}
	table.SetFooter([]string{"Total", strconv.FormatInt(total, 10)})
	table.Render()

	if len(failedTables) > 0 {
		fmt.Fprintf(w, "\nFailed tables: %d\n", len(failedTables))
		for _, name := range failedTables {
			fmt.Fprintf(w, "  - %s\n", name)
		}
	}
}
