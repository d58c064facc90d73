package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/custedit/internal/application"
	"github.com/JonMunkholm/custedit/internal/config"
	"github.com/JonMunkholm/custedit/internal/core"
	"github.com/JonMunkholm/custedit/internal/logging"
)

var (
	outDir  string
	logFile string
)

// rootCmd opens the terminal editor
var rootCmd = &cobra.Command{
	Use:   "custedit-tui [file.csv]",
	Short: "Edit customer records in the terminal",
	Long: `Load a customer CSV file, then search, select, add, edit and delete rows.

Selected rows can be exported to exported_data.csv in the output directory
or listed by their send field. Nothing is written back to the source file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEditor,
}

func init() {
	rootCmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory exports are written to")
	rootCmd.Flags().StringVar(&logFile, "log", "", "Write logs to this file (default: discard)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runEditor(cmd *cobra.Command, args []string) error {
	// Environment overrides are optional for the terminal editor
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// The terminal owns stdout, so logs go to a file or nowhere
	var w io.Writer = io.Discard
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		w = f
	}
	logger := logging.New(w, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	opts := application.Options{
		OutDir:      outDir,
		SearchDelay: cfg.Table.SearchDebounce,
		Logger:      logger,
	}
	if len(args) == 1 {
		opts.File = args[0]
	}

	svc := core.NewService(core.OptionsFromConfig(cfg), core.NewMemoryAudit(cfg.Table.AuditCapacity))
	m := application.New(svc, opts)
	defer m.Close()

	logger.Info("editor started", "file", opts.File, "out", outDir)

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run editor: %w", err)
	}
	return nil
}
