package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/arshiaxbt/Aura/internal/metrics"
	"github.com/arshiaxbt/Aura/internal/remote"
	"github.com/arshiaxbt/Aura/pkg/conductor"
	"github.com/arshiaxbt/Aura/pkg/dom"
	"github.com/arshiaxbt/Aura/pkg/page"
	"github.com/arshiaxbt/Aura/pkg/runloop"
)

var (
	scanTimeout   time.Duration
	scanAnnotated string
	scanStats     bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <file|url>",
	Short: "Annotate an HTML document and report its identifiers",
	Long: `Scan an HTML document the way the extension scans a page: find every
address and name, resolve names, fetch reputation, and print one line per
identifier once all lookups have finished.

Examples:
  aura scan ./page.html
  aura scan https://example.com --annotated out.html
  aura scan ./page.html --json --stats`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), scanTimeout)
		defer cancel()

		src, err := readSource(ctx, args[0])
		if err != nil {
			return err
		}
		doc, err := dom.ParseHTML(bytes.NewReader(src))
		if err != nil {
			return fmt.Errorf("parsing %s: %w", args[0], err)
		}

		reg := prometheus.NewRegistry()
		recs, err := scanDocument(ctx, doc, metrics.New(reg))
		if err != nil {
			return err
		}

		if scanAnnotated != "" {
			var buf bytes.Buffer
			if err := doc.Render(&buf); err != nil {
				return err
			}
			if err := os.WriteFile(scanAnnotated, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", scanAnnotated, err)
			}
			printSuccess("annotated document written to %s", scanAnnotated)
		}

		w := cmd.OutOrStdout()
		if jsonOut {
			if err := printJSON(w, recordsJSON(recs)); err != nil {
				return err
			}
		} else {
			printRecords(w, recs)
		}
		if scanStats {
			return printStats(cmd.ErrOrStderr(), reg)
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 2*time.Minute, "give up when lookups take longer than this")
	scanCmd.Flags().StringVar(&scanAnnotated, "annotated", "", "write the annotated HTML to this path")
	scanCmd.Flags().BoolVar(&scanStats, "stats", false, "print pipeline metrics to stderr")
	rootCmd.AddCommand(scanCmd)
}

func readSource(ctx context.Context, src string) ([]byte, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		b, err := remote.New(remoteOptions("fetch")).GetBody(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", src, err)
		}
		return b, nil
	}
	b, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", src, err)
	}
	return b, nil
}

// scanDocument runs the page pipeline over doc on its own loop and returns
// the records once the scan and every lookup have finished.
func scanDocument(ctx context.Context, doc *dom.HTMLDocument, m *metrics.Metrics) ([]page.Record, error) {
	loop := runloop.New()
	go loop.Run()
	defer loop.Close()

	scanned := make(chan int, 1)
	var c *conductor.Conductor
	loop.Do(func() {
		c = conductor.New(conductor.Deps{
			Doc:      doc,
			Sched:    loop,
			Resolver: newResolver(),
			Scorer:   newScorer(m),
			Metrics:  m,
		}, conductor.ConfigFrom(cfg))
		c.Start(func(n int) { scanned <- n })
	})

	select {
	case <-scanned:
	case <-ctx.Done():
		return nil, fmt.Errorf("scan did not finish: %w", ctx.Err())
	}

	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		var settled bool
		loop.Do(func() { settled = c.Settled() })
		if settled {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("lookups did not finish: %w", ctx.Err())
		case <-tick.C:
		}
	}

	var recs []page.Record
	loop.Do(func() {
		recs = c.Snapshot()
		c.Close()
	})
	return recs, nil
}

type recordJSON struct {
	Identifier string `json:"identifier"`
	Kind       string `json:"kind"`
	Address    string `json:"address,omitempty"`
	Score      *int   `json:"score"`
	Tier       string `json:"tier"`
	Name       string `json:"displayName,omitempty"`
}

func recordsJSON(recs []page.Record) []recordJSON {
	out := make([]recordJSON, len(recs))
	for i, r := range recs {
		out[i] = recordJSON{
			Identifier: r.Identifier,
			Kind:       r.Kind.String(),
			Address:    r.Address(),
			Score:      r.Score,
			Tier:       string(r.Tier),
			Name:       r.DisplayName,
		}
	}
	return out
}

func printRecords(w io.Writer, recs []page.Record) {
	if len(recs) == 0 {
		printWarning("no identifiers found")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IDENTIFIER\tKIND\tTIER\tSCORE\tADDRESS\tNAME")
	for _, r := range recs {
		score := "-"
		if r.Score != nil {
			score = strconv.Itoa(*r.Score)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Identifier, r.Kind, r.Tier, score, orDash(r.Address()), orDash(r.DisplayName))
	}
	tw.Flush()
}

func printStats(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			var labels []string
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			v := m.GetCounter().GetValue() + m.GetGauge().GetValue()
			name := f.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			printStatus(w, name, "%g", v)
		}
	}
	return nil
}
