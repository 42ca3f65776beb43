package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/goleakscan/internal/scan"
)

func newScanCmd(opts *options) *cobra.Command {
	var req scan.Request
	cmd := &cobra.Command{
		Use:   "scan SUBJECT",
		Short: "Run one scan and print the finished session as JSON",
		Long:  "Run one scan for SUBJECT. Without --keywords the subject's learned suggestions are used.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			orch := a.Orchestrator()

			req.Subject = args[0]
			if len(req.Keywords) == 0 {
				if req.Keywords, err = orch.Suggest(req.Subject, 0); err != nil {
					return err
				}
			}
			s, err := orch.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), s); err != nil {
				return err
			}
			if s.Status != scan.StatusCompleted {
				return fmt.Errorf("scan %s ended with status %s: %s", s.ID, s.Status, s.Error)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringSliceVarP(&req.Keywords, "keywords", "k", nil, "Search keywords (comma separated or repeated)")
	f.StringVar(&req.Timeframe, "timeframe", "", `Recency window: "today", "lifetime" or "last N days|weeks|months" (default last 30 days)`)
	f.IntVar(&req.MaxCalls, "max-calls", 10, "Search call budget for the session")
	f.StringVar(&req.ContentType, "content-type", "all", "Filter reported matches: all, video or image")
	return cmd
}

func newSuggestCmd(opts *options) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "suggest SUBJECT",
		Short: "Print the subject's top learned keywords, one per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			kws, err := a.Orchestrator().Suggest(args[0], n)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), strings.Join(kws, "\n")+"\n")
			return err
		},
	}
	cmd.Flags().IntVarP(&n, "number", "n", 10, "Number of suggestions")
	return cmd
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats SUBJECT",
		Short: "Print knowledge-base statistics for a subject as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			st, err := a.Orchestrator().Stats(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), st)
		},
	}
}

func newExportCmd(opts *options) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export SUBJECT",
		Short: "Export the subject's ledger and print the written path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			p, err := a.Orchestrator().Export(args[0], format)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), p)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Export format: csv, excel, xlsx or json")
	return cmd
}

func newReportCmd(opts *options) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "report SUBJECT",
		Short: "Render a PDF or DOCX report of the subject's ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			p, err := a.Orchestrator().Report(args[0], format)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), p)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "pdf", "Report format: pdf or docx")
	return cmd
}

func newForgetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "forget SUBJECT",
		Short: "Drop the subject's cached keyword rankings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			n, err := a.ForgetRankings(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached rankings\n", n)
			return err
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
