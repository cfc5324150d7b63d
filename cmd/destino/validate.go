package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eringen/destino/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Check prerendered output for required SEO tags",
	Long: `Samples the HTML files of a build and checks each for a title, meta
description, canonical link, Open Graph tags and a non-empty body. Also checks
that sitemap.xml and robots.txt exist. Defaults to the configured output dir.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.String("dir", "", "Output directory (default build.out)")
	f.Int("sample", 0, "Pages to check; -1 checks all")
	f.Int64("min-bytes", 0, "Smallest acceptable page")
}

func runValidate(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	dir := cfg.Build.Out
	if v, _ := f.GetString("dir"); v != "" {
		dir = v
	}
	if len(args) == 1 {
		dir = args[0]
	}
	sample := cfg.Build.Validate.SampleSize
	if f.Changed("sample") {
		sample, _ = f.GetInt("sample")
	}
	minBytes := cfg.Build.Validate.MinBytes
	if f.Changed("min-bytes") {
		minBytes, _ = f.GetInt64("min-bytes")
	}

	sum, err := validate.Dir(validate.Options{
		Dir:        dir,
		SampleSize: sample,
		MinBytes:   minBytes,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, r := range sum.Checked {
		status := "ok"
		if !r.OK() {
			status = "FAIL"
		}
		fmt.Fprintf(out, "%-4s %s (%d bytes)\n", status, r.Path, r.Bytes)
		for _, e := range r.Errors {
			fmt.Fprintf(out, "       error: %s\n", e)
		}
		for _, w := range r.Warnings {
			fmt.Fprintf(out, "       warning: %s\n", w)
		}
	}
	for _, m := range sum.Missing {
		fmt.Fprintf(out, "missing %s\n", m)
	}
	fmt.Fprintf(out, "checked %d of %d pages in %s\n", len(sum.Checked), sum.Total, dir)

	if !sum.OK() {
		return fmt.Errorf("validation failed: %d invalid pages, %d missing files", len(sum.Failed()), len(sum.Missing))
	}
	return nil
}
