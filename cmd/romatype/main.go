// Package main provides the CLI entrypoint for romatype.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/romatype/internal/config"
	"github.com/verte-zerg/romatype/internal/logging"
	"github.com/verte-zerg/romatype/internal/model"
	"github.com/verte-zerg/romatype/internal/phrases"
	"github.com/verte-zerg/romatype/internal/stats"
	"github.com/verte-zerg/romatype/internal/store"
	"github.com/verte-zerg/romatype/internal/tui"
)

const (
	defaultDifficulty  = "easy"
	defaultSource      = "file"
	defaultAPIURL      = "http://localhost:8080"
	defaultTrendWindow = 5
	httpTimeout        = 10 * time.Second

	sourceFile = "file"
	sourceHTTP = "http"
)

var (
	practiceDifficulty string
	practiceSource     string
	practicePhrases    string
	practiceAPIURL     string

	historyDifficulty string
	historySince      string
	historyLast       int
	historyWindow     int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "romatype",
		Short:         "Timed romaji typing practice",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.Flags().StringVar(&practiceDifficulty, "difficulty", defaultDifficulty, "difficulty: easy, medium or hard")
	rootCmd.Flags().StringVar(&practiceSource, "source", defaultSource, "phrase source: file or http")
	rootCmd.Flags().StringVar(&practicePhrases, "phrases", "", "phrases JSON file (default: built-in set)")
	rootCmd.Flags().StringVar(&practiceAPIURL, "api-url", defaultAPIURL, "phrase API base URL for --source http")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newAudioCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "difficulty", &practiceDifficulty, fileCfg.Practice.Difficulty)
	applyStringConfig(cmd, "source", &practiceSource, fileCfg.Practice.Source)
	applyStringConfig(cmd, "phrases", &practicePhrases, fileCfg.Practice.Phrases)
	applyStringConfig(cmd, "api-url", &practiceAPIURL, fileCfg.Practice.APIURL)

	difficulty, err := model.ParseDifficulty(practiceDifficulty)
	if err != nil {
		return fmt.Errorf("--difficulty: %w", err)
	}
	source, err := buildSource(practiceSource, practicePhrases, practiceAPIURL)
	if err != nil {
		return err
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("romatype needs an interactive terminal")
	}

	logger, logFile, err := logging.OpenFile(config.DefaultLogPath())
	if err != nil {
		return err
	}
	defer func() {
		_ = logFile.Close()
	}()

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logger.Error().Err(cerr).Msg("failed to close db")
		}
	}()

	audio, err := st.Audio(context.Background())
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load audio preference")
	}

	logger.Info().Str("difficulty", difficulty.String()).Str("source", practiceSource).Msg("starting practice")
	m := tui.NewModel(source, tui.Options{
		Difficulty: difficulty,
		Audio:      audio,
		Store:      st,
		Logger:     logger,
		Bell:       os.Stderr,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func buildSource(kind, phrasesPath, apiURL string) (phrases.Source, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case sourceFile:
		list, err := loadPhrases(phrasesPath)
		if err != nil {
			return nil, err
		}
		return phrases.NewPicker(list), nil
	case sourceHTTP:
		return phrases.NewHTTPSource(apiURL, &http.Client{Timeout: httpTimeout})
	default:
		return nil, fmt.Errorf("--source must be %q or %q, got %q", sourceFile, sourceHTTP, kind)
	}
}

func loadPhrases(path string) ([]model.Phrase, error) {
	if path == "" {
		return phrases.Default()
	}
	list, err := phrases.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load phrases from %s: %w", path, err)
	}
	return list, nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past sessions",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historyDifficulty, "difficulty", "", "difficulty filter")
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&historyWindow, "window", defaultTrendWindow, "moving average window for the accuracy trend")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	filter := model.HistoryFilter{Last: historyLast}
	if historyDifficulty != "" {
		d, err := model.ParseDifficulty(historyDifficulty)
		if err != nil {
			return fmt.Errorf("--difficulty: %w", err)
		}
		filter.Difficulty = d
	}
	if historySince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", historySince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = &parsed
	}
	if historyLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		_ = st.Close()
	}()

	report, err := stats.BuildReport(cmd.Context(), st, filter, historyWindow)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	report.Width = terminalWidth(os.Stdout)
	report.Color = stats.ColorEnabled(os.Stdout)
	return report.Render(cmd.OutOrStdout())
}

func terminalWidth(f *os.File) int {
	if !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

func newAudioCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "audio [on|off]",
		Short:     "Show or set sound feedback",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE:      runAudioCmd,
	}
}

func runAudioCmd(cmd *cobra.Command, args []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		_ = st.Close()
	}()

	ctx := cmd.Context()
	if len(args) == 1 {
		if err := st.SetBool(ctx, store.PrefAudio, args[0] == "on"); err != nil {
			return fmt.Errorf("failed to save audio preference: %w", err)
		}
	}
	enabled, err := st.Audio(ctx)
	if err != nil {
		return fmt.Errorf("failed to load audio preference: %w", err)
	}
	state := "off"
	if enabled {
		state = "on"
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "audio %s\n", state)
	return err
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
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
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
	return fmt.Sprintf(`# romatype configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# difficulty = %q        # easy (120s), medium (240s) or hard (380s)
# source = %q            # "file" or "http"
# phrases = ""             # Phrases JSON file; empty uses the built-in set
# api-url = %q  # Phrase API for source = "http"

[server]
# addr = %q              # Listen address; PORT overrides
# phrases = ""             # Phrases JSON file served by "romatype serve"
# rate-limit-rps = %d      # Requests per second per client
# rate-limit-burst = %d   # Burst size per client
`,
		defaultDifficulty,
		defaultSource,
		defaultAPIURL,
		defaultServerAddr,
		defaultRateLimitRPS,
		defaultRateLimitBurst,
	)
}
