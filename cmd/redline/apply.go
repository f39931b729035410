package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrWong99/redline/internal/config"
	"github.com/MrWong99/redline/internal/format"
	"github.com/MrWong99/redline/internal/reconcile"
	"github.com/MrWong99/redline/internal/schedule"
	"github.com/MrWong99/redline/pkg/suggestion"
)

type applyFlags struct {
	document    string
	format      string
	suggestions string
	out         string
	report      string
	logLevel    string

	minConfidence  float64
	respectAuto    bool
	exactOnly      bool
	noMerge        bool
	strictSegments bool
}

func newApplyCmd() *cobra.Command {
	var f applyFlags
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a suggestion file to a transcript file",
		Example: `  redline apply --document talk.json --suggestions analysis.json --out talk.fixed.json
  redline apply --document asr-result.json --format asr --suggestions analysis.json > fixed.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApply(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.document, "document", "", "transcript file")
	fl.StringVar(&f.format, "format", string(format.Native), "transcript format: native or asr")
	fl.StringVar(&f.suggestions, "suggestions", "", "suggestion payload file")
	fl.StringVar(&f.out, "out", "", "write the corrected transcript here instead of stdout")
	fl.StringVar(&f.report, "report", "", "write the full JSON report to this file")
	fl.StringVar(&f.logLevel, "log-level", string(config.LogWarn), "log level: debug, info, warn, error")
	fl.Float64Var(&f.minConfidence, "min-confidence", 0, "skip suggestions below this confidence")
	fl.BoolVar(&f.respectAuto, "respect-auto-apply", false, "skip suggestions marked autoApply=false")
	fl.BoolVar(&f.exactOnly, "exact-only", false, "disable punctuation-insensitive and flexible matching")
	fl.BoolVar(&f.noMerge, "no-merge", false, "do not re-merge segments after patching")
	fl.BoolVar(&f.strictSegments, "strict-segments", false, "skip matches outside a suggestion's segmentIndex")
	_ = cmd.MarkFlagRequired("document")
	_ = cmd.MarkFlagRequired("suggestions")
	return cmd
}

func (f applyFlags) options() reconcile.Options {
	o := reconcile.DefaultOptions()
	o.MinConfidence = f.minConfidence
	o.ApplyAll = !f.respectAuto
	o.AllowPartialMatch = !f.exactOnly
	o.MergeSegments = !f.noMerge
	if f.strictSegments {
		o.SegmentPolicy = schedule.SegmentPolicyStrict
	}
	return o
}

func runApply(cmd *cobra.Command, f applyFlags) error {
	level := config.LogLevel(f.logLevel)
	if !level.IsValid() {
		return fmt.Errorf("invalid --log-level %q", f.logLevel)
	}
	logger := newLogger(cmd.ErrOrStderr(), levelVar(level))

	docFormat, err := format.ParseFormat(f.format)
	if err != nil {
		return err
	}
	opts := f.options()
	if err := opts.Validate(); err != nil {
		return err
	}

	in, err := os.Open(f.document)
	if err != nil {
		return err
	}
	doc, err := format.Decode(in, docFormat)
	in.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", f.document, err)
	}

	payload, err := os.ReadFile(f.suggestions)
	if err != nil {
		return err
	}
	batch, dropped, err := suggestion.Decode(payload)
	if err != nil {
		return fmt.Errorf("read %s: %w", f.suggestions, err)
	}
	if dropped > 0 {
		logger.Warn("suggestions without original or suggested text were dropped", "count", dropped)
	}

	eng := reconcile.New(reconcile.WithOptions(opts), reconcile.WithLogger(logger))
	res, err := eng.Reconcile(cmd.Context(), doc, batch)
	if err != nil {
		return err
	}

	summaryOut := cmd.OutOrStdout()
	if f.out == "" {
		// stdout carries the document.
		if err := format.Encode(cmd.OutOrStdout(), res.Document); err != nil {
			return err
		}
		summaryOut = cmd.ErrOrStderr()
	} else if err := writeFile(f.out, func(w io.Writer) error { return format.Encode(w, res.Document) }); err != nil {
		return err
	}

	if f.report != "" {
		if err := writeFile(f.report, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}); err != nil {
			return err
		}
	}

	fmt.Fprintln(summaryOut, res.Summary())
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
