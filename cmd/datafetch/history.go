package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tmontague/datafetch/internal/config"
	"github.com/tmontague/datafetch/internal/database"
	"github.com/tmontague/datafetch/internal/model"
	"github.com/tmontague/datafetch/internal/report"
)

// Default number of runs listed by history.
const defaultHistoryLimit = 10

// NewHistoryCmd creates the history command.
// It reads the run history recorded by previous runs.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
		Long: `History lists previous runs recorded in the history database.

Each run shows how many lanes succeeded and failed. Use --run to see the
lanes of a single run, or --kind to follow one lane across runs; a changed
payload digest means the source data changed between runs.

Examples:
  # List the 10 most recent runs
  datafetch history

  # Show the lanes of one run
  datafetch history --run 2f1c...

  # Follow the CSV lane across the last 20 runs
  datafetch history --kind csv -n 20

  # Output as JSON
  datafetch history --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to show (0 for all)")
	cmd.Flags().String("run", "",
		"Show the lanes of the run with this ID")
	cmd.Flags().StringP("kind", "k", "",
		"Show the history of one lane: "+kindNames())
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().String("history-dir", "",
		"History database directory (default: $XDG_DATA_HOME/datafetch)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	runID, err := flags.GetString("run")
	if err != nil {
		return err
	}
	kindName, err := flags.GetString("kind")
	if err != nil {
		return err
	}
	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	dir, err := flags.GetString("history-dir")
	if err != nil {
		return err
	}
	if dir == "" {
		dir = config.XDGDataDir()
	}

	// Validate arguments before opening the database.
	var kind model.ContentKind
	if kindName != "" {
		if kind, err = model.ParseContentKind(kindName); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()

	if _, err := os.Stat(filepath.Join(dir, database.FileName)); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	db, err := database.Open(dir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()

	switch {
	case runID != "":
		run, err := db.GetRun(ctx, runID)
		if err != nil {
			return err
		}
		if jsonOutput {
			_, err = report.NewJSONWriter(out, report.WithPrettyPrint()).Write(run)
			return err
		}
		_, err = report.NewSimpleWriter(out, report.WithVerbose(true)).Write(run)
		return err

	case kindName != "":
		lanes, err := db.LaneHistory(ctx, kind, limit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(out, lanes)
		}
		printLaneHistory(out, kind, lanes)
		return nil

	default:
		runs, err := db.ListRuns(ctx, limit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(out, runs)
		}
		printRuns(out, runs)
		return nil
	}
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// printRuns writes the run list as a table.
func printRuns(w io.Writer, runs []database.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded yet.")
		return
	}

	fmt.Fprintf(w, "Recorded runs (%d):\n\n", len(runs))
	fmt.Fprintf(w, "  %-36s  %-20s  %-9s  %s\n", "ID", "Started", "Succeeded", "Failed")
	for _, run := range runs {
		fmt.Fprintf(w, "  %-36s  %-20s  %-9d  %d\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Succeeded,
			run.Failed,
		)
	}
}

// printLaneHistory writes one lane's outcomes, newest first, marking runs
// whose payload digest differs from the run before.
func printLaneHistory(w io.Writer, kind model.ContentKind, lanes []database.LaneRecord) {
	if len(lanes) == 0 {
		fmt.Fprintf(w, "No history for the %s lane.\n", kind)
		return
	}

	fmt.Fprintf(w, "History of the %s lane (%d runs):\n\n", kind, len(lanes))
	fmt.Fprintf(w, "  %-20s  %-10s  %-16s  %s\n", "Started", "Status", "Digest", "Change")
	for i, lane := range lanes {
		status := "ok"
		if lane.FailedStage != "" {
			status = lane.FailedStage + "/" + lane.ErrorKind
		}
		fmt.Fprintf(w, "  %-20s  %-10s  %-16s  %s\n",
			lane.StartedAt.Local().Format("2006-01-02 15:04:05"),
			status,
			shortDigest(lane.PayloadDigest),
			digestChange(lanes, i),
		)
	}
}

// digestChange compares lane i with the next older lane that has a digest.
func digestChange(lanes []database.LaneRecord, i int) string {
	current := lanes[i].PayloadDigest
	if current == "" {
		return "-"
	}
	for _, older := range lanes[i+1:] {
		if older.PayloadDigest == "" {
			continue
		}
		if older.PayloadDigest == current {
			return "unchanged"
		}
		return "changed"
	}
	return "first"
}

// shortDigest returns the first 16 characters of a digest, or "-".
func shortDigest(digest string) string {
	if digest == "" {
		return "-"
	}
	return digest[:min(len(digest), 16)]
}
