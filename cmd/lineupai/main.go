// Command lineupai analyzes a Sleeper fantasy football roster and prints
// AI-generated lineup strategies for the week.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/fantasyops/lineupai/config"
	"github.com/fantasyops/lineupai/pipeline"
)

const usage = `lineupai - AI fantasy football lineup optimizer

Usage:
  lineupai init                      create or replace the encrypted config
  lineupai analyze [flags]           run the weekly lineup analysis
  lineupai trending [flags]          show the most-added players
  lineupai cache [clear]             show or clear the API cache
  lineupai provider                  show the active AI provider

Flags for analyze:
  -week N        NFL week to analyze (default: current week)
  -format F      output format: txt, json, csv (default txt)
  -out FILE      write the export to FILE instead of stdout

Environment:
  LINEUPAI_PASSWORD   config password (prompted for if unset)
  LINEUPAI_PROVIDER, LINEUPAI_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY,
  SLEEPER_USERNAME, FANTASYPROS_API_KEY override stored settings.
`

func main() {
	_ = godotenv.Load()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
	if lvl, err := zerolog.ParseLevel(os.Getenv("LINEUPAI_LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		log = log.Level(lvl)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := run(os.Args[1], os.Args[2:], log); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func run(command string, args []string, log zerolog.Logger) error {
	vaultPath, cacheDir, err := appPaths()
	if err != nil {
		return err
	}
	opt := pipeline.New(vaultPath, cacheDir, log)

	switch command {
	case "init":
		return runInit(vaultPath, log)
	case "analyze":
		return runAnalyze(opt, args)
	case "trending":
		return runTrending(opt, args)
	case "cache":
		return runCache(opt, args)
	case "provider":
		return runProvider(opt)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

// appPaths resolves the vault file and cache directory under the user's
// config directory.
func appPaths() (string, string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", "", fmt.Errorf("resolve config dir: %w", err)
	}
	root := filepath.Join(base, "lineupai")
	return filepath.Join(root, "config.enc"), filepath.Join(root, "cache"), nil
}

func runInit(vaultPath string, log zerolog.Logger) error {
	in := bufio.NewReader(os.Stdin)
	cfg := config.DefaultConfig()

	cfg.SleeperUsername = prompt(in, "Sleeper username: ")
	cfg.AIProvider = promptDefault(in, "AI provider (mock/openai/anthropic) [mock]: ", config.ProviderMock)
	if cfg.AIProvider != config.ProviderMock {
		cfg.AIAPIKey = prompt(in, "API key: ")
	}
	cfg.FantasyProsAPIKey = promptDefault(in, "FantasyPros API key (optional): ", "")

	if err := cfg.Validate(); err != nil {
		return err
	}
	pw := password(in, "Choose a config password: ")
	if pw == "" {
		return fmt.Errorf("password must not be empty")
	}

	store := config.NewStore(vaultPath, log)
	if err := store.Save(cfg, pw); err != nil {
		return err
	}
	fmt.Printf("Config saved to %s\n", vaultPath)
	return nil
}

func runAnalyze(opt *pipeline.Optimizer, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	week := fs.Int("week", 0, "NFL week to analyze")
	format := fs.String("format", pipeline.FormatTXT, "output format: txt, json, csv")
	outPath := fs.String("out", "", "write export to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := unlock(opt); err != nil {
		return err
	}

	ctx := context.Background()
	w := *week
	if w == 0 {
		w = pipeline.CurrentWeek(time.Now())
	}
	if err := opt.LoadWeek(ctx, w); err != nil {
		return err
	}
	result, err := opt.Analyze(ctx)
	if err != nil {
		return err
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return pipeline.Export(out, result, *format)
}

func runTrending(opt *pipeline.Optimizer, args []string) error {
	fs := flag.NewFlagSet("trending", flag.ExitOnError)
	limit := fs.Int("limit", 10, "number of players to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := unlock(opt); err != nil {
		return err
	}

	players, err := opt.TrendingPlayers(context.Background(), *limit)
	if err != nil {
		return err
	}
	fmt.Printf("%-6s %-24s %-4s %-4s %s\n", "ADDS", "PLAYER", "POS", "TEAM", "ID")
	for _, p := range players {
		fmt.Printf("%-6d %-24s %-4s %-4s %s\n", p.Adds, p.Name, p.Position, p.Team, p.PlayerID)
	}
	return nil
}

func runCache(opt *pipeline.Optimizer, args []string) error {
	if err := unlock(opt); err != nil {
		return err
	}
	if len(args) > 0 && args[0] == "clear" {
		if err := opt.ClearCache(); err != nil {
			return err
		}
		fmt.Println("Cache cleared.")
		return nil
	}
	info, err := opt.CacheInfo()
	if err != nil {
		return err
	}
	fmt.Printf("Cache enabled: %v\nCache size: %.1f KB\n", info.Enabled, float64(info.SizeBytes)/1024)
	return nil
}

func runProvider(opt *pipeline.Optimizer) error {
	if err := unlock(opt); err != nil {
		return err
	}
	info, err := opt.ProviderInfo()
	if err != nil {
		return err
	}
	fmt.Printf("Provider: %s\nCredential configured: %v\n", info.Name, info.HasCredential)
	return nil
}

// unlock decrypts the stored config using LINEUPAI_PASSWORD or an
// interactive prompt.
func unlock(opt *pipeline.Optimizer) error {
	pw := os.Getenv("LINEUPAI_PASSWORD")
	if pw == "" {
		pw = password(bufio.NewReader(os.Stdin), "Config password: ")
	}
	if err := opt.Unlock(pw); err != nil {
		if errors.Is(err, config.ErrAuth) {
			return fmt.Errorf("wrong password or corrupted config (run 'lineupai init' to start over)")
		}
		return err
	}
	return nil
}

func prompt(in *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

func promptDefault(in *bufio.Reader, label, fallback string) string {
	v := prompt(in, label)
	if v == "" {
		return fallback
	}
	return v
}

func password(in *bufio.Reader, label string) string {
	return prompt(in, label)
}
