// Package main provides the CLI entrypoint for mnemo.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/mnemo/internal/catalog"
	"github.com/verte-zerg/mnemo/internal/config"
	"github.com/verte-zerg/mnemo/internal/difficulty"
	"github.com/verte-zerg/mnemo/internal/engine"
	"github.com/verte-zerg/mnemo/internal/model"
	"github.com/verte-zerg/mnemo/internal/selector"
	"github.com/verte-zerg/mnemo/internal/stats"
	"github.com/verte-zerg/mnemo/internal/statsui"
	"github.com/verte-zerg/mnemo/internal/store"
	"github.com/verte-zerg/mnemo/internal/tui"
)

const (
	defaultRounds      = 5
	defaultMinItems    = 3
	defaultMaxItems    = 8
	defaultGridCols    = 4
	defaultGridRows    = 3
	defaultCurveWindow = 20
)

var (
	recallRounds   int
	recallMinItems int
	recallMaxItems int
	recallGridCols int
	recallGridRows int
	recallBias     float64
	recallCatalog  string

	oddoneRounds  int
	oddoneBias    float64
	oddoneCatalog string

	statsGame        string
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsPlain       bool

	catalogPath string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "mnemo",
		Short:         "TUI memory trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runRecallCmd,
	}

	rootCmd.Flags().IntVar(&recallRounds, "rounds", defaultRounds, "rounds per session")
	rootCmd.Flags().IntVar(&recallMinItems, "min-items", defaultMinItems, "items per round at the easiest difficulty")
	rootCmd.Flags().IntVar(&recallMaxItems, "max-items", defaultMaxItems, "items per round at the hardest difficulty")
	rootCmd.Flags().IntVar(&recallGridCols, "grid-cols", defaultGridCols, "board columns")
	rootCmd.Flags().IntVar(&recallGridRows, "grid-rows", defaultGridRows, "board rows")
	rootCmd.Flags().Float64Var(&recallBias, "bias", 0, "difficulty bias (-0.2 to 0.2)")
	rootCmd.Flags().StringVar(&recallCatalog, "catalog", "", "item catalog file (TOML)")

	rootCmd.AddCommand(newOddOneCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newCatalogCmd())

	return rootCmd
}

func runRecallCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "rounds", &recallRounds, fileCfg.Recall.Rounds)
	applyIntConfig(cmd, "min-items", &recallMinItems, fileCfg.Recall.MinItems)
	applyIntConfig(cmd, "max-items", &recallMaxItems, fileCfg.Recall.MaxItems)
	applyIntConfig(cmd, "grid-cols", &recallGridCols, fileCfg.Recall.GridCols)
	applyIntConfig(cmd, "grid-rows", &recallGridRows, fileCfg.Recall.GridRows)
	applyFloatConfig(cmd, "bias", &recallBias, fileCfg.Recall.Bias)
	applyStringConfig(cmd, "catalog", &recallCatalog, fileCfg.Recall.Catalog)

	cfg := model.RecallConfig{
		Rounds:      recallRounds,
		MinItems:    recallMinItems,
		MaxItems:    recallMaxItems,
		GridCols:    recallGridCols,
		GridRows:    recallGridRows,
		Bias:        recallBias,
		CatalogPath: recallCatalog,
	}
	if err := validateRecallConfig(cfg); err != nil {
		return err
	}

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	sel, err := selector.NewGrid(cat, rnd, cfg.MinItems, cfg.MaxItems, cfg.GridCols*cfg.GridRows)
	if err != nil {
		return fmt.Errorf("failed to build selector: %w", err)
	}
	tracker := difficulty.New(difficulty.Options{Bias: cfg.Bias, FrequencyBonus: true})

	return runGame(model.GameRecall, cat, sel, tracker, engine.Options{
		Game:       model.GameRecall,
		RoundCap:   cfg.Rounds,
		StudyPhase: true,
	}, cfg.GridCols, cfg.GridRows)
}

func newOddOneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oddone",
		Short: "Play odd-one-out",
		Args:  cobra.NoArgs,
		RunE:  runOddOneCmd,
	}
	cmd.Flags().IntVar(&oddoneRounds, "rounds", defaultRounds, "rounds per session")
	cmd.Flags().Float64Var(&oddoneBias, "bias", 0, "difficulty bias (-0.2 to 0.2)")
	cmd.Flags().StringVar(&oddoneCatalog, "catalog", "", "item catalog file (TOML)")
	return cmd
}

func runOddOneCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "rounds", &oddoneRounds, fileCfg.OddOne.Rounds)
	applyFloatConfig(cmd, "bias", &oddoneBias, fileCfg.OddOne.Bias)
	applyStringConfig(cmd, "catalog", &oddoneCatalog, fileCfg.OddOne.Catalog)

	cfg := model.OddOneConfig{
		Rounds:      oddoneRounds,
		Bias:        oddoneBias,
		CatalogPath: oddoneCatalog,
	}
	if cfg.Rounds <= 0 {
		return fmt.Errorf("--rounds must be > 0")
	}
	if cfg.Bias < -0.2 || cfg.Bias > 0.2 {
		return fmt.Errorf("--bias must be between -0.2 and 0.2")
	}

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	sel, err := selector.NewBank(cat, rnd)
	if err != nil {
		return fmt.Errorf("failed to build selector: %w", err)
	}
	tracker := difficulty.New(difficulty.Options{Bias: cfg.Bias})

	return runGame(model.GameOddOne, cat, sel, tracker, engine.Options{
		Game:     model.GameOddOne,
		RoundCap: cfg.Rounds,
	}, 0, 0)
}

func runGame(game model.Game, cat *catalog.Catalog, sel engine.Selector, tracker *difficulty.Tracker, opts engine.Options, cols, rows int) error {
	storePath := config.DefaultDBPath()
	st, err := store.Open(storePath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	progress, err := st.BumpProgress(context.Background(), game, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	opts.SessionsToday = progress.SessionsToday

	session := engine.NewSession(cat, sel, tracker, opts)
	m, err := tui.NewModel(session, st, game, cols, rows)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsGame, "game", "", "game filter (recall or oddone)")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print stats to stdout instead of the TUI")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "curve-window", &statsCurveWindow, fileCfg.Stats.CurveWindow)

	if statsGame != "" && statsGame != string(model.GameRecall) && statsGame != string(model.GameOddOne) {
		return fmt.Errorf("invalid --game value %q (use recall or oddone)", statsGame)
	}
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}

	cfg := model.StatsConfig{
		Game:        statsGame,
		Since:       sinceTime,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
		Plain:       statsPlain,
	}

	storePath := config.DefaultDBPath()
	st, err := store.Open(storePath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if cfg.Plain {
		return printPlainStats(cmd, st, cfg)
	}

	m := statsui.NewModel(st, cfg)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func printPlainStats(cmd *cobra.Command, st *store.Store, cfg model.StatsConfig) error {
	report, err := stats.BuildReport(context.Background(), st, cfg)
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	out := cmd.OutOrStdout()
	if err := stats.RenderSummary(out, report.Sessions); err != nil {
		return fmt.Errorf("failed to render summary: %w", err)
	}
	if len(report.RoundAggs) > 0 {
		if _, err := fmt.Fprintln(out); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if err := stats.RenderRoundTable(out, report.RoundAggs); err != nil {
			return fmt.Errorf("failed to render round table: %w", err)
		}
	}
	if len(report.Sessions) > 1 {
		if _, err := fmt.Fprintln(out); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if err := stats.RenderCurves(out, report.Sessions, cfg.CurveWindow); err != nil {
			return fmt.Errorf("failed to render curves: %w", err)
		}
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

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Validate and summarize the item catalog",
		Args:  cobra.NoArgs,
		RunE:  runCatalogCmd,
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "item catalog file (TOML)")
	return cmd
}

func runCatalogCmd(cmd *cobra.Command, _ []string) error {
	cat, err := loadCatalog(catalogPath)
	if err != nil {
		return err
	}
	source := catalogPath
	if source == "" {
		if _, statErr := os.Stat(config.DefaultCatalogPath()); statErr == nil {
			source = config.DefaultCatalogPath()
		} else {
			source = "built-in"
		}
	}
	out := cmd.OutOrStdout()
	lines := []string{
		fmt.Sprintf("Catalog:   %s", source),
		fmt.Sprintf("Items:     %d", len(cat.Items())),
		fmt.Sprintf("Groups:    %d", len(cat.Groups())),
		fmt.Sprintf("Questions: %d", cat.NumQuestions()),
	}
	for _, group := range cat.Groups() {
		lines = append(lines, fmt.Sprintf("  %-12s %d items", group.Name, len(group.Items)))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

// loadCatalog resolves the catalog in order: explicit path, the user's
// catalog file if present, the built-in catalog.
func loadCatalog(path string) (*catalog.Catalog, error) {
	if path != "" {
		cat, err := catalog.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog %s: %w", path, err)
		}
		return cat, nil
	}
	userPath := config.DefaultCatalogPath()
	if _, err := os.Stat(userPath); err == nil {
		cat, err := catalog.LoadFile(userPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog %s: %w", userPath, err)
		}
		return cat, nil
	}
	cat, err := catalog.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load built-in catalog: %w", err)
	}
	return cat, nil
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

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# mnemo configuration
# Uncomment a value to enable it. CLI flags override config values.

[recall]
# rounds = %d          # Rounds per session
# min-items = %d       # Items per round at the easiest difficulty
# max-items = %d       # Items per round at the hardest difficulty
# grid-cols = %d       # Board columns
# grid-rows = %d       # Board rows
# bias = 0.0          # Difficulty bias (-0.2 to 0.2)
# catalog = ""        # Item catalog file (TOML)

[oddone]
# rounds = %d          # Rounds per session
# bias = 0.0          # Difficulty bias (-0.2 to 0.2)
# catalog = ""        # Item catalog file (TOML)

[stats]
# curve-window = %d   # Moving average window
`,
		defaultRounds,
		defaultMinItems,
		defaultMaxItems,
		defaultGridCols,
		defaultGridRows,
		defaultRounds,
		defaultCurveWindow,
	)
}

func validateRecallConfig(cfg model.RecallConfig) error {
	if cfg.Rounds <= 0 {
		return fmt.Errorf("--rounds must be > 0")
	}
	if cfg.MinItems < 3 {
		return fmt.Errorf("--min-items must be >= 3")
	}
	if cfg.MaxItems < cfg.MinItems {
		return fmt.Errorf("--max-items must be >= --min-items")
	}
	if cfg.GridCols <= 0 || cfg.GridRows <= 0 {
		return fmt.Errorf("--grid-cols and --grid-rows must be > 0")
	}
	if cfg.GridCols*cfg.GridRows < cfg.MaxItems {
		return fmt.Errorf("board is too small: %dx%d grid cannot hold %d items", cfg.GridCols, cfg.GridRows, cfg.MaxItems)
	}
	if cfg.Bias < -0.2 || cfg.Bias > 0.2 {
		return fmt.Errorf("--bias must be between -0.2 and 0.2")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
