// Package cli implements the lhn CLI commands.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rcliao/lhn/internal/config"
	"github.com/rcliao/lhn/internal/model"
	"github.com/rcliao/lhn/internal/store"
	"github.com/spf13/cobra"
)

var (
	dbPath     string
	configPath string
	formatFlag string
	logLevel   string
	strictFlag bool

	cfg    *config.Config
	logger = slog.Default()
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "lhn",
	Short: "Left-hand navigation report list",
	Long:  "Store reports, policies and viewer state, and derive the ordered list of reports the navigation shows.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.DB = dbPath
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("strict-chat-types") {
			cfg.StrictChatTypes = strictFlag
		}
		logger = newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
		slog.SetDefault(logger)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $LHN_DB or ~/.lhn/lhn.db)")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.lhn/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	RootCmd.PersistentFlags().BoolVar(&strictFlag, "strict-chat-types", false, "Hide reports with unrecognized chat types")
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lv slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lv = slog.LevelDebug
	case "warn", "warning":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv}))
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cfg.DB, store.Options{
		Collections: model.Collections,
		Logger:      logger,
	})
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
