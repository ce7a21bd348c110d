package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/webframp/otalog/catalog"
	"github.com/webframp/otalog/db"
	"github.com/webframp/otalog/plaintext"
	"github.com/webframp/otalog/publish"
	"github.com/webframp/otalog/srv"
)

// errDrift makes generate --check exit non-zero.
var errDrift = errors.New("published artifacts are out of date")

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var (
		checkFlag   bool
		forceFlag   bool
		outputFlag  string
		metricsFlag string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Pre-render plain-text changelogs for every device",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, err := ctx.loadCatalog()
			if err != nil {
				return err
			}
			if outputFlag != "" {
				cfg.OutputDir = outputFlag
			}

			sink, err := publish.OpenSink(cmd.Context(), publish.SinkConfig{
				Driver:      cfg.BlobDriver,
				Dir:         cfg.OutputDir,
				S3Bucket:    cfg.S3Bucket,
				S3Region:    cfg.S3Region,
				S3Endpoint:  cfg.S3Endpoint,
				S3PathStyle: cfg.S3PathStyle,
			})
			if err != nil {
				return err
			}
			renderer := plaintext.Renderer{DateStyle: cfg.DateStyle}

			if checkFlag {
				return runCheck(cmd, store, renderer, sink)
			}

			unlock, err := publish.Lock(cfg.OutputDir)
			if err != nil {
				return err
			}
			defer func() {
				if err := unlock(); err != nil {
					slog.Warn("release generation lock", "error", err)
				}
			}()

			reg := prometheus.NewRegistry()
			gen := &publish.Generator{
				Store:    store,
				Renderer: renderer,
				Target:   plaintext.AviumTarget,
				Sink:     sink,
				Metrics:  publish.NewMetrics(reg),
				Workers:  cfg.GenerateWorkers,
				Force:    forceFlag,
			}
			if cfg.LedgerPath != "" {
				ledger, err := db.OpenLedger(cfg.LedgerPath)
				if err != nil {
					return err
				}
				defer ledger.Close()
				gen.Ledger = ledger
			}

			res, err := gen.Run(cmd.Context())
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), res)

			srv.NewMarkerClient().CreatePublishMarker(res.RunID,
				res.Count(publish.OutcomeWritten), res.Count(publish.OutcomeUnchanged),
				res.Started, res.Finished)

			if metricsFlag != "" {
				if err := publish.WriteTextfile(metricsFlag, reg); err != nil {
					return fmt.Errorf("write metrics: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkFlag, "check", false, "Diff published artifacts against a fresh render instead of writing")
	cmd.Flags().BoolVar(&forceFlag, "force", false, "Write every artifact even when the ledger says it is unchanged")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output directory (overrides config)")
	cmd.Flags().StringVar(&metricsFlag, "metrics-file", "", "Write run metrics in Prometheus text format to this file")
	return cmd
}

func runCheck(cmd *cobra.Command, store *catalog.Store, renderer plaintext.Renderer, sink publish.Sink) error {
	drifts, err := publish.Check(cmd.Context(), store, renderer, plaintext.AviumTarget, sink)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, d := range drifts {
		switch {
		case d.Missing:
			fmt.Fprintf(out, "missing: %s\n", d.Key)
		case d.Stale:
			fmt.Fprintf(out, "stale: %s\n", d.Key)
		default:
			fmt.Fprint(out, d.Diff)
		}
	}
	if len(drifts) > 0 {
		return fmt.Errorf("%w: %d artifact(s)", errDrift, len(drifts))
	}
	fmt.Fprintln(out, "all artifacts up to date")
	return nil
}

func printSummary(w io.Writer, res publish.Result) {
	rows := make([][]string, 0, len(res.Artifacts))
	for _, a := range res.Artifacts {
		size := ""
		if a.Outcome == publish.OutcomeWritten || a.Outcome == publish.OutcomeUnchanged {
			size = strconv.Itoa(a.Size)
		}
		rows = append(rows, []string{a.Codename, string(a.Outcome), size, a.Key})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Device", "Outcome", "Bytes", "Key"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))
	fmt.Fprintf(w, "run %s: %d written, %d unchanged, %d empty, %d removed in %s\n",
		res.RunID,
		res.Count(publish.OutcomeWritten),
		res.Count(publish.OutcomeUnchanged),
		res.Count(publish.OutcomeEmpty),
		res.Count(publish.OutcomeRemoved),
		res.Finished.Sub(res.Started).Round(time.Millisecond),
	)
}
