package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alvmarrod/pathweb/internal/config"
	"github.com/alvmarrod/pathweb/internal/crawler"
	"github.com/alvmarrod/pathweb/internal/logging"
	"github.com/alvmarrod/pathweb/internal/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const progressInterval = 10 * time.Second

var rootCmd = &cobra.Command{
	Use:   "pathweb --url URL",
	Short: "Map the link graph reachable from a seed URL",
	Long: `pathweb crawls outward from a seed URL, following the links found on each
page up to a depth and node limit, and records which pages link to which.`,
	SilenceUsage: true,
	RunE:         runCrawl,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a graph stored in a SQLite database",
	Args:  cobra.NoArgs,
	RunE:  runShow,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pathweb %s\n", version.Version)
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.String("config", "", "Config file (json or yaml)")
	flags.String("url", "", "Seed URL")
	flags.Int("depth", 3, "Maximum link depth from the seed")
	flags.Int("max-urls", 10000, "Maximum number of distinct pages")
	flags.String("match-url", "", "Only follow URLs containing this text")
	flags.StringSlice("ignore", nil, "Skip URLs containing this text (repeatable)")
	flags.StringSlice("ignore-ext", crawler.DefaultIgnoredExtensions, "File extensions never followed")
	flags.Int("concurrency", 4, "Number of crawl workers")
	flags.Int("verbose", 1, "Console output: 0 none, 1 discoveries and errors, 2 everything")
	flags.String("extractor", "literal", "Link extractor: literal, html or both")
	flags.String("user-agent", "", "User-Agent header")
	flags.Int("timeout", 10000, "Request timeout in milliseconds")
	flags.Int("delay", 0, "Delay between requests to the same host in milliseconds")
	flags.Bool("respect-robots", false, "Honour robots.txt")
	flags.Int("max-body-size", 0, "Maximum response body size in bytes (0 for no limit)")
	flags.Int("idle-backoff", 50, "Idle worker backoff in milliseconds")
	flags.Bool("no-color", false, "Disable coloured console output")
	flags.String("db", "", "Write the graph to this SQLite database")
	flags.String("graph", "", "Write the graph to this JSON file")
	flags.String("metrics", "", "Write run metrics to this JSON file")
	flags.String("log-level", "info", "Log level")
	flags.String("log-file", "", "Also log to this file, rotated")

	showCmd.Flags().String("db", "", "SQLite database to read")
	showCmd.Flags().Int64("run", 0, "Run ID (default latest)")
	showCmd.Flags().Bool("json", false, "Print the graph as JSON")
	_ = showCmd.MarkFlagRequired("db")

	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(versionCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(configPath, cmd.Flags())
	if err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	logCfg.File = cfg.LogFile
	logCloser, err := logging.Setup(logCfg)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	logrus.Infof("pathweb v%s starting...", version.Version)
	logrus.Infof("Configuration loaded: seed=%s, depth=%d, max urls=%d, workers=%d",
		cfg.SeedURL, cfg.MaxDepth, cfg.MaxURLs, cfg.Concurrency)

	fetcher, err := crawler.NewCollyFetcher(cfg.FetcherConfig())
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}
	extractor, err := crawler.NewExtractor(cfg.Extractor)
	if err != nil {
		return err
	}
	reporter := crawler.NewConsoleReporter(cmd.OutOrStdout(), cfg.NoColor)

	c, err := crawler.NewCrawler(cfg.CrawlerOptions(), fetcher, extractor, reporter)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progressDone := make(chan struct{})
	go logProgress(ctx, c, progressDone)

	result, err := c.Run(ctx, cfg.SeedURL)
	close(progressDone)
	if err != nil {
		return err
	}

	logrus.Info("Final stats: " + c.Tracker().LogProgress())

	if err := export(cfg, c, result); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Crawl %s: %d nodes, %d edges\n",
		result.Reason, len(result.Nodes), len(result.Edges))
	return nil
}

// logProgress logs the tracker every progressInterval until done is closed
func logProgress(ctx context.Context, c *crawler.Crawler, done <-chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logrus.Info(c.Tracker().LogProgress())
		case <-ctx.Done():
			logrus.Warn("Interrupted, stopping workers and keeping the partial graph")
			return
		case <-done:
			return
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
