package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eringen/destino"
	"github.com/eringen/destino/prerender"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Prerender every public route into static HTML",
	Long: `Runs the static pipeline:
  1. Build: prepare the output directory and copy assets
  2. Prerender: render each route and inject resolved SEO metadata into the shell
  3. Sitemap: write sitemap.xml and robots.txt
  4. Validate: sample the output and check the required tags

Without --origin the site is started in-process on a loopback port.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.String("renderer", "", `Renderer: "http" or "browser"`)
	f.String("origin", "", "Render pages from a running site instead of starting one")
	f.StringP("out", "o", "", "Output directory")
	f.Int("concurrency", 0, "Routes rendered in parallel")
	f.Bool("clean", false, "Empty the output directory first")
	f.Bool("strict", false, "Fail the build when validation fails")
	f.Bool("watch", false, "Rebuild when the shell or assets change")
}

func applyBuildFlags(cmd *cobra.Command, c *destino.SiteConfig) {
	f := cmd.Flags()
	if v, _ := f.GetString("renderer"); v != "" {
		c.Build.Renderer = v
	}
	if v, _ := f.GetString("origin"); v != "" {
		c.Build.Origin = v
	}
	if v, _ := f.GetString("out"); v != "" {
		c.Build.Out = v
	}
	if v, _ := f.GetInt("concurrency"); v > 0 {
		c.Build.Concurrency = v
	}
	if f.Changed("clean") {
		c.Build.Clean, _ = f.GetBool("clean")
	}
	if f.Changed("strict") {
		c.Build.Validate.Strict, _ = f.GetBool("strict")
	}
}

// reloadConfig reads the config file again and reapplies the command's
// flags, so a rebuild sees edits made since the last one.
func reloadConfig(cmd *cobra.Command) error {
	c, err := destino.LoadConfig(configPath)
	if err != nil {
		return err
	}
	applyBuildFlags(cmd, &c)
	cfg = c
	return nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	applyBuildFlags(cmd, &cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := buildOnce(ctx, cmd); err != nil {
		return err
	}
	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		return watchAndRebuild(ctx, cmd)
	}
	return nil
}

func buildOnce(ctx context.Context, cmd *cobra.Command) error {
	sum, err := destino.Build(ctx, cfg, logger)
	if sum != nil {
		printSummary(cmd, sum)
	}
	return err
}

func printSummary(cmd *cobra.Command, sum *prerender.Summary) {
	out := cmd.OutOrStdout()
	if sum.Report != nil {
		fmt.Fprintln(out, sum.Report.String())
		for _, res := range sum.Report.Results {
			if res.Err != nil {
				fmt.Fprintf(out, "  FAIL %s: %v\n", res.Path, res.Err)
			}
		}
	}
	if v := sum.Validation; v != nil {
		for _, m := range v.Missing {
			fmt.Fprintf(out, "  missing %s\n", m)
		}
		for _, r := range v.Failed() {
			fmt.Fprintf(out, "  invalid %s: %v\n", r.Path, r.Errors)
		}
		fmt.Fprintf(out, "validated %d of %d pages\n", len(v.Checked), v.Total)
	}
	fmt.Fprintf(out, "built %d routes into %s in %s\n", len(sum.Routes), cfg.Build.Out, sum.Duration.Round(time.Millisecond))
}

// watchAndRebuild rebuilds whenever the shell, the config or an asset
// changes. Bursts of events are folded into one rebuild.
func watchAndRebuild(ctx context.Context, cmd *cobra.Command) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	for _, p := range watchPaths() {
		if err := watcher.Add(p); err != nil {
			logger.Warn("cannot watch path", zap.String("path", p), zap.Error(err))
			continue
		}
		logger.Debug("watching", zap.String("path", p))
	}

	const debounce = 300 * time.Millisecond
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	logger.Info("watching for changes")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !relevant(event.Name) {
				continue
			}
			logger.Debug("change detected", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))
		case <-timer.C:
			if err := reloadConfig(cmd); err != nil {
				logger.Error("reload config failed; keeping the previous one", zap.Error(err))
			}
			if err := buildOnce(ctx, cmd); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				logger.Error("rebuild failed", zap.Error(err))
			}
		}
	}
}

// relevant reports whether a change to name should trigger a rebuild: the
// shell, the config file or anything under the assets dir.
func relevant(name string) bool {
	abs := func(p string) string {
		a, err := filepath.Abs(p)
		if err != nil {
			return filepath.Clean(p)
		}
		return a
	}
	n := abs(name)
	if n == abs(cfg.Build.Shell) || (configPath != "" && n == abs(configPath)) {
		return true
	}
	if cfg.Build.Assets == "" {
		return false
	}
	rel, err := filepath.Rel(abs(cfg.Build.Assets), n)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// watchPaths returns the directories holding the shell and config plus every
// directory under the assets dir. fsnotify watches are not recursive.
func watchPaths() []string {
	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		paths = append(paths, p)
	}
	add(filepath.Dir(cfg.Build.Shell))
	if configPath != "" {
		add(filepath.Dir(configPath))
	}
	if cfg.Build.Assets != "" {
		_ = filepath.WalkDir(cfg.Build.Assets, func(p string, d os.DirEntry, err error) error {
			if err == nil && d.IsDir() {
				add(p)
			}
			return nil
		})
	}
	return paths
}
