// Command run-events scrapes running-event listings from the supported
// upstream sites, reconciles them against the local event store, and
// persists the change-set.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/runmaidan/run-events/internal/cache"
	"github.com/runmaidan/run-events/internal/config"
	"github.com/runmaidan/run-events/internal/orchestrator"
	"github.com/runmaidan/run-events/internal/reconcile"
	"github.com/runmaidan/run-events/internal/runner"
	"github.com/runmaidan/run-events/internal/scraper"
	"github.com/runmaidan/run-events/internal/store"
)

var (
	flagConfig  string
	flagSource  string
	flagVerbose bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "run-events",
		Short: "Aggregate running-event listings into a local event store",
		Long: `run-events scrapes running-event listings from IndiaRunning,
BhaagoIndia, CityWoofer, and AllEvents, normalizes them into a canonical
schema, and reconciles them against the local event store.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagVerbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to YAML config file")
	root.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")

	scrapeCmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run one scrape-and-reconcile pass",
		RunE:  runScrape,
	}
	scrapeCmd.Flags().StringVar(&flagSource, "source", "", "Scrape a single source (e.g. indiarunning)")

	clearCmd := &cobra.Command{
		Use:   "clear-cache",
		Short: "Clear cached scrape results",
		RunE:  runClearCache,
	}
	clearCmd.Flags().StringVar(&flagSource, "source", "", "Clear a single source's cache (default: all)")

	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run scheduled scrapes until interrupted",
		RunE:  runDaemon,
	}

	root.AddCommand(scrapeCmd, clearCmd, daemonCmd)
	return root
}

func buildRunner() (*runner.Runner, *config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, err
	}

	c, err := cache.New(expandHome(cfg.CacheDir), cfg.CacheTTL())
	if err != nil {
		return nil, nil, fmt.Errorf("initializing cache: %w", err)
	}

	st, err := store.NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing store: %w", err)
	}

	sources := scraper.All(cfg.HTTPTimeout())
	if len(cfg.Sources) > 0 {
		sources = filterSources(sources, cfg.Sources)
	}

	orch := orchestrator.New(sources, c, cfg.MaxRetries)
	rec := reconcile.New(cfg.FuzzyThreshold)
	return runner.New(orch, rec, st), cfg, nil
}

func runScrape(cmd *cobra.Command, args []string) error {
	r, _, err := buildRunner()
	if err != nil {
		return err
	}

	res, err := r.Run(cmd.Context(), flagSource)
	if err != nil {
		return fmt.Errorf("scrape run: %w", err)
	}

	fmt.Println("========== SCRAPE SUMMARY ==========")
	fmt.Printf("New events added:       %d\n", res.Created)
	fmt.Printf("Events updated:         %d\n", res.Updated)
	fmt.Printf("Duplicates skipped:     %d\n", res.SkippedDuplicate)
	fmt.Printf("Past-dated skipped:     %d\n", res.SkippedPastDate)
	fmt.Printf("Missing-URL skipped:    %d\n", res.SkippedNoURL)
	fmt.Println("====================================")

	for i, d := range res.Details {
		if i == 10 {
			fmt.Printf("... and %d more\n", len(res.Details)-10)
			break
		}
		fmt.Printf("- %s: %s (%s)\n", d.Decision, d.Title, d.URL)
	}
	return nil
}

func runClearCache(cmd *cobra.Command, args []string) error {
	r, _, err := buildRunner()
	if err != nil {
		return err
	}
	if err := r.ClearCache(flagSource); err != nil {
		return err
	}
	if flagSource != "" {
		fmt.Printf("Cache cleared for %s\n", flagSource)
	} else {
		fmt.Println("All caches cleared")
	}
	return nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	r, cfg, err := buildRunner()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := r.Schedule(ctx, cfg.ScrapeCron); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// expandHome resolves a leading "~/" against the home directory, falling
// back to the literal path when the home directory is unknown.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func canonical(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.TrimSuffix(s, "scraper")
	s = strings.TrimSuffix(s, "api")
	return s
}

func filterSources(sources []scraper.Source, enabled []string) []scraper.Source {
	want := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		want[canonical(name)] = true
	}
	var out []scraper.Source
	for _, src := range sources {
		if want[canonical(src.Name())] {
			out = append(out, src)
		}
	}
	return out
}
