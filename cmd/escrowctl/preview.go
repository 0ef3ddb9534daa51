package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xraph/escrow/pause"
	"github.com/xraph/escrow/policy"
	"github.com/xraph/escrow/schedule"
	"github.com/xraph/escrow/types"
)

// previewFile is the YAML document read by the preview command.
type previewFile struct {
	Symbol   string            `yaml:"symbol"`
	Decimals uint8             `yaml:"decimals"`
	Total    string            `yaml:"total"`
	Schedule schedule.Schedule `yaml:"schedule"`
	Pauses   []pauseSpan       `yaml:"pauses"`
}

// pauseSpan is one pause; a zero To means still paused.
type pauseSpan struct {
	From time.Time `yaml:"from"`
	To   time.Time `yaml:"to"`
}

type previewRow struct {
	At      time.Time
	Paused  time.Duration
	Earned  uint64
	Percent string
}

func newPreviewCmd() *cobra.Command {
	var (
		steps int
		at    string
	)
	cmd := &cobra.Command{
		Use:   "preview <schedule.yaml>",
		Short: "Print how much a schedule has earned over its window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			pf, total, err := parsePreview(data)
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			if at != "" {
				if now, err = time.Parse(time.RFC3339, at); err != nil {
					return fmt.Errorf("--at: %w", err)
				}
			}
			rows, err := preview(pf, total, steps, now)
			if err != nil {
				return err
			}
			return printPreview(cmd.OutOrStdout(), pf, rows)
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 10, "number of intervals to sample across the window")
	cmd.Flags().StringVar(&at, "at", "", "RFC 3339 instant for schedules without a time window")
	return cmd
}

// parsePreview decodes and validates a preview document.
func parsePreview(data []byte) (*previewFile, uint64, error) {
	var pf previewFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, 0, fmt.Errorf("parse schedule: %w", err)
	}
	total, err := types.ParseUnits(pf.Total, pf.Decimals)
	if err != nil {
		return nil, 0, err
	}
	pf.Schedule.AssignIDs()
	if err := pf.Schedule.Validate(total, policy.Default().Limits()); err != nil {
		return nil, 0, err
	}
	return &pf, total, nil
}

// preview samples the schedule at steps+1 evenly spaced instants across its
// pause-extended window, or once at now for schedules without a window.
func preview(pf *previewFile, total uint64, steps int, now time.Time) ([]previewRow, error) {
	var instants []time.Time
	if start, end, ok := pf.Schedule.Window(); ok {
		if steps < 1 {
			steps = 1
		}
		end = end.Add(pausedBy(pf.Pauses, end, start))
		span := end.Sub(start)
		for i := 0; i <= steps; i++ {
			instants = append(instants, start.Add(span*time.Duration(i)/time.Duration(steps)))
		}
	} else {
		instants = []time.Time{now}
	}

	rows := make([]previewRow, 0, len(instants))
	for _, t := range instants {
		l := ledgerAt(pf.Pauses, t)
		earned, err := pf.Schedule.Earned(total, l.Timeline(t))
		if err != nil {
			return nil, err
		}
		rows = append(rows, previewRow{
			At:      t,
			Paused:  l.TotalPaused + l.Current(t),
			Earned:  earned,
			Percent: percent(earned, total),
		})
	}
	return rows, nil
}

// ledgerAt replays the pauses that began before t.
func ledgerAt(spans []pauseSpan, t time.Time) pause.Ledger {
	var l pause.Ledger
	for _, s := range spans {
		if s.From.After(t) {
			break
		}
		// No cap and a zero window: preview ignores both limits.
		_ = l.Pause(s.From, math.MaxUint8, 0)
		if !s.To.IsZero() && !s.To.After(t) {
			_ = l.Resume(s.To, math.MaxUint8, 0)
		}
	}
	return l
}

// pausedBy is the pause time accrued by the window end, which itself moves
// out as pauses land inside it.
func pausedBy(spans []pauseSpan, end, start time.Time) time.Duration {
	var total time.Duration
	for _, s := range spans {
		if s.From.Before(start) || !s.From.Before(end.Add(total)) {
			continue
		}
		if s.To.IsZero() {
			continue
		}
		total += s.To.Sub(s.From)
	}
	return total
}

func percent(earned, total uint64) string {
	if total == 0 {
		return "0.00%"
	}
	bps, err := types.MulDiv(earned, 10_000, total)
	if err != nil {
		return "?"
	}
	return types.FormatUnits(bps, 2) + "%"
}

func printPreview(w io.Writer, pf *previewFile, rows []previewRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "TIME\tPAUSED\tEARNED %s\tPROGRESS\n", pf.Symbol)
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			r.At.Format(time.RFC3339),
			r.Paused,
			types.FormatUnits(r.Earned, pf.Decimals),
			r.Percent,
		)
	}
	return tw.Flush()
}
