package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eringen/destino/deploy"
)

var deployCmd = &cobra.Command{
	Use:   "deploy [dir]",
	Short: "Hand the validated output to static hosting",
	Long: `Verifies the build output, writes a manifest, then optionally copies it to
a target directory, archives it and runs a deploy command. "{dir}" in the
command is replaced with the output directory.

Example:
  destino deploy --archive site.tar.gz --command "rsync -a {dir}/ web:/srv/site/"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDeploy,
}

func init() {
	f := deployCmd.Flags()
	f.String("dir", "", "Output directory (default build.out)")
	f.Bool("dry-run", false, "Verify and summarize without writing anything")
	f.String("target", "", "Copy the output into this directory")
	f.String("archive", "", "Write a .tar.gz of the output")
	f.String("command", "", "Command run after packaging")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	d := cfg.Build.Deploy
	f := cmd.Flags()
	dir := cfg.Build.Out
	if v, _ := f.GetString("dir"); v != "" {
		dir = v
	}
	if len(args) == 1 {
		dir = args[0]
	}
	if v, _ := f.GetString("target"); v != "" {
		d.Target = v
	}
	if v, _ := f.GetString("archive"); v != "" {
		d.Archive = v
	}
	if v, _ := f.GetString("command"); v != "" {
		d.Command = v
	}
	dryRun, _ := f.GetBool("dry-run")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := deploy.Package(ctx, deploy.Options{
		Dir:     dir,
		Target:  d.Target,
		Archive: d.Archive,
		Command: d.Command,
		DryRun:  dryRun,
		Stdout:  cmd.OutOrStdout(),
		Stderr:  cmd.ErrOrStderr(),
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d files, %d bytes\n", res.Summary.Files, res.Summary.Bytes)
	for cat, n := range res.Summary.Categories {
		fmt.Fprintf(out, "  %-6s %d\n", cat, n)
	}
	if dryRun {
		fmt.Fprintln(out, "dry run: nothing written")
		return nil
	}
	if res.Manifest != "" {
		fmt.Fprintf(out, "manifest %s\n", res.Manifest)
	}
	if res.Target != "" {
		fmt.Fprintf(out, "copied to %s\n", res.Target)
	}
	if res.Archive != "" {
		fmt.Fprintf(out, "archive %s\n", res.Archive)
	}
	if res.Ran {
		fmt.Fprintf(out, "ran %v\n", res.Command)
	}
	return nil
}
