package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/CageChen/ctxhub/internal/aggregate"
	"github.com/CageChen/ctxhub/internal/config"
	mfs "github.com/CageChen/ctxhub/internal/fs"
	"github.com/CageChen/ctxhub/internal/report"
	"github.com/CageChen/ctxhub/internal/tokens"
)

type snapshotFlags struct {
	gitRef    string
	format    string
	output    string
	clipboard bool
	noTokens  bool
}

func newSnapshotCmd(cfgFile *string) *cobra.Command {
	v := viper.New()
	var f snapshotFlags

	cmd := &cobra.Command{
		Use:   "snapshot [DIR]",
		Short: "Print a size-capped snapshot of a directory",
		Long: `Walks DIR (default ".") and prints every text file wrapped in
<file path="..."> blocks until the budget is used up. A coverage summary
is written to stderr.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, *cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runSnapshot(cmd, cfg, dir, f)
		},
	}

	flags := cmd.Flags()
	flags.Int("budget", 0, "Maximum snapshot size in bytes")
	flags.Int("sample-size", 0, "Leading bytes checked when detecting binary files")
	flags.Int("workers", 0, "Concurrent file readers")
	flags.Duration("timeout", 0, "Stop walking after this long and keep the partial snapshot")
	flags.String("token-model", "", "Model whose tokenizer estimates the token count")
	flags.StringVar(&f.gitRef, "git-ref", "", "Snapshot a committed git ref instead of the working tree")
	flags.StringVarP(&f.format, "format", "f", "view", "Output format: view, json, or report")
	flags.StringVarP(&f.output, "output", "o", "", "Write output to this file")
	flags.BoolVarP(&f.clipboard, "clipboard", "c", false, "Copy output to the clipboard")
	flags.BoolVar(&f.noTokens, "no-tokens", false, "Skip token counting")
	for key, name := range map[string]string{
		"budget":      "budget",
		"sample_size": "sample-size",
		"workers":     "workers",
		"timeout":     "timeout",
		"token_model": "token-model",
	} {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
	return cmd
}

func runSnapshot(cmd *cobra.Command, cfg *config.Config, dir string, f snapshotFlags) error {
	if f.format != "view" && f.format != "json" && f.format != "report" {
		return fmt.Errorf("unsupported format %q: use view, json, or report", f.format)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	var fsys mfs.FileSystem = mfs.NewLocalFS(abs)
	if f.gitRef != "" {
		fsys = mfs.NewGitFS(abs, f.gitRef)
	}

	stderr := cmd.ErrOrStderr()
	agg := aggregate.New(cfg.Options(), aggregate.NotifierFunc(func(e aggregate.Event) {
		if e.Type == aggregate.EventLoading {
			fmt.Fprintf(stderr, "%s (%s)\n", e.Message, e.Root)
		}
	}))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	res, err := agg.Aggregate(ctx, fsys)
	if res == nil {
		return err
	}
	if err != nil {
		log.Printf("Warning: snapshot interrupted: %v", err)
	}

	var counter tokens.Counter = tokens.Estimator{}
	if !f.noTokens {
		counter = tokens.NewCounter(cfg.TokenModel)
	}
	tokenCount := counter.Count(res.View())

	var out string
	switch f.format {
	case "view":
		out = res.View()
	case "json":
		data, err := json.MarshalIndent(struct {
			report.Summary
			View string `json:"view"`
		}{report.Summarize(res, tokenCount, counter.Name()), res.View()}, "", "  ")
		if err != nil {
			return err
		}
		out = string(data) + "\n"
	case "report":
		out = report.Markdown(res, tokenCount)
	}

	if err := emit(cmd.OutOrStdout(), stderr, out, f); err != nil {
		return err
	}
	printSummary(stderr, res, tokenCount)
	return nil
}

func emit(stdout, stderr io.Writer, out string, f snapshotFlags) error {
	switch {
	case f.output != "":
		if err := os.WriteFile(f.output, []byte(out), 0644); err != nil {
			return fmt.Errorf("write %s: %w", f.output, err)
		}
		fmt.Fprintf(stderr, "Output saved to %s\n", f.output)
	case f.clipboard:
		if err := clipboard.WriteAll(out); err != nil {
			fmt.Fprintf(stderr, "Error writing to clipboard: %v\n", err)
			_, err = io.WriteString(stdout, out)
			return err
		}
		fmt.Fprintln(stderr, "Output copied to clipboard.")
	default:
		_, err := io.WriteString(stdout, out)
		return err
	}
	return nil
}

func printSummary(w io.Writer, res *aggregate.Result, tokenCount int) {
	fmt.Fprintf(w, "%s: %d included, %d skipped, %d/%d bytes, ~%d tokens\n",
		report.Status(res), len(res.Included), len(res.Skipped), res.Size, res.Budget, tokenCount)
	for _, s := range res.Skipped {
		fmt.Fprintf(w, "  skipped (%s) %s\n", s.Reason, s.Path)
	}
}
