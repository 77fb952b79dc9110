package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/alvmarrod/pathweb/internal/config"
	"github.com/alvmarrod/pathweb/internal/crawler"
	"github.com/alvmarrod/pathweb/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// graphDocument is the JSON form of a crawl graph
type graphDocument struct {
	Seed  string         `json:"seed"`
	Nodes []storage.Node `json:"nodes"`
	Edges []storage.Edge `json:"edges"`
}

func newGraphDocument(seed string, nodes []storage.Node, edges []storage.Edge) graphDocument {
	if nodes == nil {
		nodes = []storage.Node{}
	}
	if edges == nil {
		edges = []storage.Edge{}
	}
	return graphDocument{Seed: seed, Nodes: nodes, Edges: edges}
}

func writeGraphJSON(w io.Writer, doc graphDocument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}
	return nil
}

func writeGraphFile(path string, doc graphDocument) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create graph file: %w", err)
	}
	defer file.Close()

	return writeGraphJSON(file, doc)
}

// export writes the finished graph and metrics to every configured sink.
// Each sink is attempted even if an earlier one fails.
func export(cfg *config.Config, c *crawler.Crawler, result *crawler.Result) error {
	var firstErr error
	keep := func(err error) {
		if err != nil {
			logrus.Error(err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if cfg.GraphPath != "" {
		err := writeGraphFile(cfg.GraphPath, newGraphDocument(result.SeedURL, result.Nodes, result.Edges))
		if err == nil {
			logrus.Infof("Graph written to %s", cfg.GraphPath)
		}
		keep(err)
	}

	if cfg.DBPath != "" {
		keep(saveGraph(cfg.DBPath, c, result))
	}

	if cfg.MetricsPath != "" {
		err := c.Tracker().WriteToFile(cfg.MetricsPath, result.Reason)
		if err == nil {
			logrus.Infof("Metrics written to %s", cfg.MetricsPath)
		}
		keep(err)
	}

	return firstErr
}

func saveGraph(dbPath string, c *crawler.Crawler, result *crawler.Result) error {
	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	_, err = c.Graph().Flush(store, storage.NewRun(result.SeedURL, result.StartedAt, result.Reason))
	return err
}

func runShow(cmd *cobra.Command, args []string) error {
	dbPath, _ := cmd.Flags().GetString("db")
	runID, _ := cmd.Flags().GetInt64("run")
	asJSON, _ := cmd.Flags().GetBool("json")

	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	return showRun(cmd.OutOrStdout(), store, runID, asJSON)
}

// showRun prints a stored run; runID 0 selects the latest one
func showRun(w io.Writer, store *storage.Storage, runID int64, asJSON bool) error {
	if runID == 0 {
		latest, err := store.LatestRunID()
		if err != nil {
			return err
		}
		if latest == 0 {
			return fmt.Errorf("no runs stored")
		}
		runID = latest
	}

	run, err := store.GetRun(runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %d not found", runID)
	}

	nodes, edges, err := store.LoadGraph(runID)
	if err != nil {
		return err
	}

	if asJSON {
		return writeGraphJSON(w, newGraphDocument(run.SeedURL, nodes, edges))
	}

	fmt.Fprintf(w, "Run %d: %s (%s)\n", run.RunID, run.SeedURL, run.TerminationReason)
	fmt.Fprintf(w, "Nodes: %d | Edges: %d\n", run.NodeCount, run.EdgeCount)
	for _, n := range nodes {
		fmt.Fprintf(w, "%d\t%d\t%s\n", n.NodeID, n.Depth, n.DisplayURL)
	}
	for _, e := range edges {
		fmt.Fprintf(w, "%d -> %d\n", e.FromNodeID, e.ToNodeID)
	}
	return nil
}
