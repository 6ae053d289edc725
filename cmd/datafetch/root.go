package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for datafetch.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datafetch",
		Short: "Fetch datasets and derive reports from them",
		Long: `datafetch fetches one dataset per content kind (text, CSV, Excel, JSON),
writes each raw payload below a root directory, and derives a report from it:

  text   word frequencies           -> result_txt.txt
  csv    column averages            -> result_csv.txt
  excel  workbook sorted by a column -> result_excel.xlsx
  json   title and genres per movie  -> result_json.txt

A failing lane is reported and never stops the other lanes.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
