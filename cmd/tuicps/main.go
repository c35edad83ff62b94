// Package main provides the CLI entrypoint for tuicps.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/tuicps/internal/config"
	"github.com/verte-zerg/tuicps/internal/cps"
	"github.com/verte-zerg/tuicps/internal/model"
	"github.com/verte-zerg/tuicps/internal/stats"
	"github.com/verte-zerg/tuicps/internal/statsui"
	"github.com/verte-zerg/tuicps/internal/store"
	"github.com/verte-zerg/tuicps/internal/tui"
)

const (
	defaultWindowMs    = 5000
	defaultTickMs      = 33
	defaultClickKey    = "space"
	defaultCurveWindow = 10
)

var (
	testWindowMs int
	testTickMs   int
	testClickKey string

	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsPlain       bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tuicps",
		Short:         "TUI click speed tester",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTestCmd,
	}

	rootCmd.Flags().IntVar(&testWindowMs, "window", defaultWindowMs, "test window in milliseconds")
	rootCmd.Flags().IntVar(&testTickMs, "tick", defaultTickMs, "display refresh interval in milliseconds")
	rootCmd.Flags().StringVar(&testClickKey, "click-key", defaultClickKey, "key that registers a click")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newBestCmd())
	rootCmd.AddCommand(newStatsCmd())

	return rootCmd
}

func runTestCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "window", &testWindowMs, fileCfg.Test.WindowMs)
	applyIntConfig(cmd, "tick", &testTickMs, fileCfg.Test.TickMs)
	applyStringConfig(cmd, "click-key", &testClickKey, fileCfg.Test.ClickKey)

	cfg := model.Config{
		WindowMs: testWindowMs,
		TickMs:   testTickMs,
		ClickKey: testClickKey,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	m := tui.NewModel(cfg, st)
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := ensureConfigFile(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func ensureConfigFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}
	return nil
}

func newBestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "best",
		Short: "Print the best CPS",
		Args:  cobra.NoArgs,
		RunE:  runBestCmd,
	}
}

func runBestCmd(cmd *cobra.Command, _ []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	return printBest(cmd.Context(), cmd.OutOrStdout(), st)
}

func printBest(ctx context.Context, w io.Writer, kv cps.KV) error {
	if ctx == nil {
		ctx = context.Background()
	}
	raw, ok, err := kv.GetValue(ctx, cps.BestKey)
	if err != nil {
		return fmt.Errorf("failed to read best score: %w", err)
	}
	best := 0.0
	if ok {
		best = cps.ParseBest(raw)
	}
	if _, err := fmt.Fprintf(w, "%.2f\n", best); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show run history",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N runs")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a text report instead of the TUI")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "curve-window", &statsCurveWindow, fileCfg.Stats.CurveWindow)

	cfg, err := buildStatsConfig(statsSince, statsLast, statsCurveWindow)
	if err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	out := cmd.OutOrStdout()
	if statsPlain || !stats.IsTerminal(out) {
		report, err := stats.BuildReport(context.Background(), st, cfg)
		if err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}
		return stats.RenderText(out, report, cfg.CurveWindow, stats.TerminalWidth(out))
	}

	m := statsui.NewModel(st, cfg)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func buildStatsConfig(since string, last, curveWindow int) (model.StatsConfig, error) {
	if last < 0 {
		return model.StatsConfig{}, fmt.Errorf("--last must be >= 0")
	}
	if curveWindow <= 0 {
		return model.StatsConfig{}, fmt.Errorf("--curve-window must be > 0")
	}
	cfg := model.StatsConfig{Last: last, CurveWindow: curveWindow}
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		cfg.Since = &parsed
	}
	return cfg, nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# tuicps configuration
# Uncomment a value to enable it. CLI flags override config values.

[test]
# window = %d             # Test window in milliseconds
# tick = %d                 # Display refresh interval in milliseconds
# click-key = %q       # Key that registers a click

[stats]
# curve-window = %d        # Moving average window for the CPS trend
`,
		defaultWindowMs,
		defaultTickMs,
		defaultClickKey,
		defaultCurveWindow,
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.WindowMs <= 0 {
		return fmt.Errorf("--window must be > 0")
	}
	if cfg.TickMs <= 0 {
		return fmt.Errorf("--tick must be > 0")
	}
	if cfg.TickMs > cfg.WindowMs {
		return fmt.Errorf("--tick must not exceed --window")
	}
	if strings.TrimSpace(cfg.ClickKey) == "" {
		return fmt.Errorf("--click-key must not be empty")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.ClickKey)) {
	case "s", "r", "q":
		return fmt.Errorf("--click-key %q is reserved", cfg.ClickKey)
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
