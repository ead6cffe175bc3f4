package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"Storey/internal/calc/drift"
	"Storey/internal/calc/report"
	"Storey/internal/calc/torsion"
	"Storey/internal/engine"
	"Storey/internal/table"

	"github.com/spf13/cobra"
)

func (a *app) driftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drift",
		Short: "Rank story drift ratios of the drift combinations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := a.driftLimit()
			if err != nil {
				return err
			}
			var rep drift.Report
			err = a.withHandle(cmd.Context(), func(h *engine.Handle) error {
				rep, err = drift.Check(cmd.Context(), h, limit)
				return err
			})
			if err != nil {
				return err
			}
			a.logFailures(rep.Failures)
			return a.print(cmd.OutOrStdout(), drift.Result{Report: rep, Table: rep.Table()}, rep.Table())
		},
	}
	cmd.Flags().StringVarP(&a.limit, "limit", "l", "", "Allowable drift ratio (default from config, 0.01)")
	cmd.Flags().BoolVar(&a.jsonOut, "json", false, "Print JSON instead of a table")
	return cmd
}

func (a *app) torsionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "torsion",
		Short: "Rank torsional displacement amplification per story",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rep torsion.Report
			err := a.withHandle(cmd.Context(), func(h *engine.Handle) error {
				var err error
				rep, err = torsion.Check(cmd.Context(), h)
				return err
			})
			if err != nil {
				return err
			}
			a.logFailures(rep.Failures)
			return a.print(cmd.OutOrStdout(), torsion.Result{Report: rep, Table: rep.Table()}, rep.Table())
		},
	}
	cmd.Flags().BoolVar(&a.jsonOut, "json", false, "Print JSON instead of a table")
	return cmd
}

func (a *app) checkCmd() *cobra.Command {
	var (
		xlsxPath string
		pdfPath  string
		strict   bool
		meta     report.Meta
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the drift and torsion checks and export the results",
		Long: `Run both checks and print their tables.

Exit codes:
  0 - checks ran
  1 - error
  3 - --strict and a story drift exceeds the limit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := a.driftLimit()
			if err != nil {
				return err
			}
			var (
				dr drift.Report
				tr torsion.Report
			)
			err = a.withHandle(cmd.Context(), func(h *engine.Handle) error {
				if dr, err = drift.Check(cmd.Context(), h, limit); err != nil {
					return err
				}
				tr, err = torsion.Check(cmd.Context(), h)
				return err
			})
			if err != nil {
				return err
			}
			a.logFailures(dr.Failures)
			a.logFailures(tr.Failures)

			tables := []table.Table{dr.Table(), tr.Table()}
			out := cmd.OutOrStdout()
			if a.jsonOut {
				if err := writeJSON(out, map[string]any{
					"drift":   drift.Result{Report: dr, Table: tables[0]},
					"torsion": torsion.Result{Report: tr, Table: tables[1]},
				}); err != nil {
					return err
				}
			} else {
				for i, t := range tables {
					if i > 0 {
						fmt.Fprintln(out)
					}
					fmt.Fprintf(out, "%s\n", t.Sheet)
					if err := writeTable(out, t); err != nil {
						return err
					}
				}
			}

			if xlsxPath != "" {
				if err := report.SaveWorkbook(xlsxPath, tables...); err != nil {
					return fmt.Errorf("save workbook: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", xlsxPath)
			}
			if pdfPath != "" {
				if meta.Project == "" {
					meta.Project = a.model
				}
				if err := savePDF(pdfPath, meta, tables); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", pdfPath)
			}

			if strict {
				for _, r := range dr.Records {
					if r.Ratio > 1 {
						return &ExitError{Code: 3, Message: fmt.Sprintf("drift %.4f at %s under %s exceeds limit %g", r.Drift, r.Story, r.Combo, limit)}
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&a.limit, "limit", "l", "", "Allowable drift ratio (default from config, 0.01)")
	cmd.Flags().BoolVar(&a.jsonOut, "json", false, "Print JSON instead of tables")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Save both tables to this workbook")
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "Save a PDF report to this file")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with code 3 when a drift exceeds the limit")
	cmd.Flags().StringVar(&meta.Title, "title", "", "PDF report title")
	cmd.Flags().StringVar(&meta.Project, "project", "", "PDF report project (default: model)")
	cmd.Flags().StringVar(&meta.Author, "author", "", "PDF report author")
	return cmd
}

func savePDF(path string, meta report.Meta, tables []table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WritePDF(f, meta, tables...); err != nil {
		f.Close()
		return fmt.Errorf("write pdf: %w", err)
	}
	return f.Close()
}

func (a *app) print(w io.Writer, result any, t table.Table) error {
	if a.jsonOut {
		return writeJSON(w, result)
	}
	return writeTable(w, t)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, t table.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Columns, "\t"))
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = table.Text(c)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if len(t.Rows) == 0 {
		fmt.Fprintln(tw, "(no results)")
	}
	return tw.Flush()
}
