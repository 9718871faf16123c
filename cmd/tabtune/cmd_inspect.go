package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/tabtune/dataset"
	"github.com/YuminosukeSato/tabtune/pkg/errors"
)

func newInspectCommand() *cobra.Command {
	var (
		dataPath string
		bins     int
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print missing counts, the target summary and its histogram",
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := loadForInspect(dataPath)
			if err != nil {
				return err
			}
			report, err := dataset.Inspect(tbl, dataset.TargetColumn, bins)
			if err != nil {
				return err
			}
			printInspection(cmd.OutOrStdout(), tbl, report)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "CSV file to use instead of the bundled table")
	cmd.Flags().IntVar(&bins, "bins", 10, "number of histogram bins")

	return cmd
}

func loadForInspect(dataPath string) (*dataset.Table, error) {
	if dataPath == "" {
		return dataset.LoadHousing()
	}
	f, err := os.Open(dataPath)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", dataPath)
	}
	defer f.Close()
	return dataset.ReadCSV(f)
}

func printInspection(w io.Writer, tbl *dataset.Table, report *dataset.Report) {
	fmt.Fprintf(w, "%d rows, %d columns, target %s\n\n",
		tbl.NumRows(), tbl.NumCols(), dataset.TargetColumn)

	if total := report.TotalMissing(); total == 0 {
		fmt.Fprintln(w, "no missing values")
	} else {
		fmt.Fprintf(w, "%d missing values:\n", total)
		cols := make([]string, 0, len(report.MissingCounts))
		for col, n := range report.MissingCounts {
			if n > 0 {
				cols = append(cols, col)
			}
		}
		sort.Strings(cols)
		for _, col := range cols {
			fmt.Fprintf(w, "  %s: %d\n", col, report.MissingCounts[col])
		}
	}

	s := report.TargetSummary
	fmt.Fprintf(w, "\n%s summary: min %.2f / q1 %.2f / median %.2f / q3 %.2f / max %.2f\n\n",
		dataset.TargetColumn, s.Min, s.Q1, s.Median, s.Q3, s.Max)

	maxCount := 0
	for _, b := range report.TargetHistogram {
		if b.Count > maxCount {
			maxCount = b.Count
		}
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, b := range report.TargetHistogram {
		barLen := 0
		if maxCount > 0 {
			barLen = b.Count * 40 / maxCount
		}
		fmt.Fprintf(tw, "[%.1f, %.1f)\t%d\t%s\n", b.Lower, b.Upper, b.Count, strings.Repeat("#", barLen))
	}
	tw.Flush()
}
