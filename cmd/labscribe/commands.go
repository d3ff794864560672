package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"labscribe/pkg/labscribe"

	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var keys, phases []string
	cmd := &cobra.Command{
		Use:   "init EXPERIMENT",
		Short: "Start a metrics block with per-phase headers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			block, err := sess.InitMetrics(cmd.Context(), args[0], keys, phases)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "row\t%d\n", block.Row)
			for _, p := range block.Layout.Phases() {
				col, _ := block.Layout.Column(p)
				if p == labscribe.DefaultPhase {
					p = "-"
				}
				fmt.Fprintf(out, "%s\t%d\n", p, col)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&keys, "keys", "k", nil, "Metric names, in column order")
	cmd.Flags().StringSliceVarP(&phases, "phases", "p", nil, "Phase names, e.g. train,eval")
	return cmd
}

func newMetricsCmd() *cobra.Command {
	var iter string
	var row, col int
	cmd := &cobra.Command{
		Use:   "metrics KEY=VALUE...",
		Short: "Append a row of metrics below the last populated cell of a column",
		RunE: func(cmd *cobra.Command, args []string) error {
			metrics, err := parseFields(args)
			if err != nil {
				return err
			}
			var it interface{}
			if iter != "" {
				it = parseValue(iter)
			}
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			if row > 0 {
				if col == 0 {
					col = 1
				}
				err = sess.UploadMetricsAt(cmd.Context(), metrics, it, row, col)
			} else {
				row, err = sess.UploadMetrics(cmd.Context(), metrics, it, col)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "row\t%d\n", row)
			return nil
		},
	}
	cmd.Flags().StringVarP(&iter, "iter", "i", "", "Iteration written before the metrics")
	cmd.Flags().IntVar(&col, "col", 1, "First column of the row")
	cmd.Flags().IntVar(&row, "row", 0, "Write at this row instead of appending")
	return cmd
}

func newBeginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "begin EXPERIMENT [KEY=VALUE...]",
		Short: "Append an experiment row and print its row number",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseFields(args[1:])
			if err != nil {
				return err
			}
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			row, err := sess.BeginExperiment(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "row\t%d\n", row)
			return nil
		},
	}
}

func newResultsCmd() *cobra.Command {
	var row, col int
	cmd := &cobra.Command{
		Use:   "results EXPERIMENT KEY=VALUE...",
		Short: "Write results at a row, overwriting existing cells",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := parseFields(args[1:])
			if err != nil {
				return err
			}
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			return sess.UploadResults(cmd.Context(), args[0], results, row, col)
		},
	}
	cmd.Flags().IntVar(&row, "row", 1, "Row to write, usually printed by begin")
	cmd.Flags().IntVar(&col, "col", 1, "First column to write")
	return cmd
}

func newAppendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "append VALUE...",
		Short: "Append a row after the worksheet's data",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make([]interface{}, len(args))
			for i, a := range args {
				values[i] = parseValue(a)
			}
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			return sess.AddRow(cmd.Context(), values)
		},
	}
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every value from the worksheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			return sess.ClearWorksheet(cmd.Context())
		},
	}
}

// parseFields parses KEY=VALUE arguments in order.
func parseFields(args []string) (labscribe.Record, error) {
	r := make(labscribe.Record, 0, len(args))
	seen := make(map[string]bool, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%q: want KEY=VALUE", a)
		}
		if seen[k] {
			return nil, fmt.Errorf("%q given twice", k)
		}
		seen[k] = true
		r = append(r, labscribe.Field{Key: k, Value: parseValue(v)})
	}
	return r, nil
}

// parseValue returns int64 for integers, float64 for decimals, or the original string.
func parseValue(s string) interface{} {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return s
}
