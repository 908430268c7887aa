// Package main is the entry point for the usage indicator. The root command
// runs the terminal UI; subcommands poll once or render a single icon.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/j-veylop/usage-indicator/internal/app"
	"github.com/j-veylop/usage-indicator/internal/config"
	"github.com/j-veylop/usage-indicator/internal/icon"
	"github.com/j-veylop/usage-indicator/internal/logger"
	"github.com/j-veylop/usage-indicator/internal/models"
	"github.com/j-veylop/usage-indicator/internal/services"
	"github.com/j-veylop/usage-indicator/internal/ui/tabs/activity"
	"github.com/j-veylop/usage-indicator/internal/ui/tabs/indicator"
	"github.com/j-veylop/usage-indicator/internal/ui/tabs/info"
	"github.com/j-veylop/usage-indicator/internal/version"
)

var exportPath string

var rootCmd = &cobra.Command{
	Use:   "usage-indicator",
	Short: "Claude usage indicator with adaptive polling",
	Long: `Usage Indicator polls the Claude usage endpoint, adapts the poll interval
to how fast usage changes, and renders a tray-style icon and tooltip.

Credentials are read from CLAUDE_ORG_ID and CLAUDE_SESSION_KEY, either from
the environment or from the first .env file found in:
  - the current directory
  - ~/.config/usage-indicator/.env

Keyboard Shortcuts:
  1-3             Switch between tabs (Indicator, Activity, Info)
  Tab/Shift+Tab   Navigate between tabs
  r               Retry now
  ?               Toggle help
  q, Ctrl+C       Quit`,
	Version:       version.GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the terminal indicator (default)",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Poll once, print the tooltip and optionally write the icon",
	Args:  cobra.NoArgs,
	RunE:  runOnce,
}

var iconCmd = &cobra.Command{
	Use:   "icon",
	Short: "Render a single icon without polling",
	Example: `  usage-indicator icon --pct 42 -o icon.png
  usage-indicator icon --pct 93 --status stale -o icon.ico
  usage-indicator icon --pct 60 --size 22 -o icon.rgba`,
	Args: cobra.NoArgs,
	RunE: runIcon,
}

var (
	onceIconPath string
	onceTimeout  time.Duration

	iconPct    float64
	iconStatus string
	iconSize   int
	iconOut    string
)

func init() {
	rootCmd.SetVersionTemplate(version.Info() + "\n")
	rootCmd.PersistentFlags().StringVar(&exportPath, "export", app.DefaultExportPath, "path the icon is exported to with 'e'")

	onceCmd.Flags().StringVar(&onceIconPath, "icon", "", "write the icon to this .png, .ico or .rgba file")
	onceCmd.Flags().DurationVar(&onceTimeout, "timeout", time.Minute, "overall time limit")

	iconCmd.Flags().Float64Var(&iconPct, "pct", 0, "usage percentage, negative for unknown")
	iconCmd.Flags().StringVar(&iconStatus, "status", models.StatusNormal.String(), "status class")
	iconCmd.Flags().IntVar(&iconSize, "size", icon.DefaultOptions().Size, "icon edge length in pixels")
	iconCmd.Flags().StringVarP(&iconOut, "output", "o", "icon.png", "output .png, .ico or .rgba file")

	rootCmd.AddCommand(runCmd, onceCmd, iconCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and configures logging. The TUI owns the
// terminal, so it always logs to a file.
func setup(toFile bool) (*config.Config, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logPath := cfg.LogFile
	if logPath == "" && toFile {
		logPath = config.DefaultLogPath()
	}
	closeLog, err := logger.Setup(cfg.LogLevel, logPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, closeLog, nil
}

func runTUI(_ *cobra.Command, _ []string) error {
	cfg, closeLog, err := setup(true)
	if err != nil {
		return err
	}
	defer closeLog()

	mgr, err := services.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if closeErr := mgr.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: error closing services: %v\n", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := mgr.Start(ctx); err != nil {
		return err
	}
	logger.Info("usage indicator started", "version", version.GetVersion(), "env", cfg.EnvPath)

	model := app.NewModel(mgr)
	model.SetExportPath(exportPath)

	state := model.GetState()
	model.SetTabs([]app.Tab{
		indicator.New(state, indicator.Options{
			Metric:     cfg.IconMetric,
			StaleAfter: cfg.StaleAfter,
		}),
		activity.New(state, nil),
		info.New(state, cfg, mgr),
	})

	// Cancelling ctx on a signal also stops the program.
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg, closeLog, err := setup(false)
	if err != nil {
		return err
	}
	defer closeLog()

	mgr, err := services.NewManager(cfg, services.WithoutConfigWatch())
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer mgr.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), onceTimeout)
	defer cancel()

	_, pollErr := mgr.PollOnce(ctx)
	fmt.Fprintln(cmd.OutOrStdout(), mgr.Tooltip())

	if onceIconPath != "" {
		bmp, err := mgr.Icon()
		if err != nil {
			return err
		}
		if err := bmp.WriteFile(onceIconPath); err != nil {
			return err
		}
	}
	return pollErr
}

func runIcon(cmd *cobra.Command, _ []string) error {
	status, err := models.ParseStatus(iconStatus)
	if err != nil {
		return err
	}

	opts := icon.DefaultOptions()
	opts.Size = iconSize
	opts.CacheSize = 1
	r, err := icon.NewRenderer(opts)
	if err != nil {
		return err
	}

	bmp, err := r.RenderPercent(iconPct, status)
	if err != nil {
		return err
	}
	if err := bmp.WriteFile(iconOut); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", iconOut, bmp.Key)
	return nil
}
