package main

import (
	"fmt"
	"log"
	"os/exec"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/CageChen/ctxhub/internal/config"
	"github.com/CageChen/ctxhub/internal/handler"
	"github.com/CageChen/ctxhub/internal/tokens"
)

func newServeCmd(cfgFile *string) *cobra.Command {
	v := viper.New()
	var path string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve snapshots of the configured folders over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, *cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if path != "" {
				cfg.UsePath(path)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return serve(cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&path, "path", "p", "", "Serve only this directory, ignoring saved folders")
	flags.Int("port", 8080, "HTTP server port")
	flags.Bool("open", false, "Open browser on startup")
	flags.Int("budget", 0, "Snapshot size budget in bytes")
	flags.Int("workers", 0, "Concurrent file readers")
	flags.Duration("timeout", 0, "Deadline for one snapshot")
	for key, name := range map[string]string{
		"port":    "port",
		"open":    "open",
		"budget":  "budget",
		"workers": "workers",
		"timeout": "timeout",
	} {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
	return cmd
}

func serve(cfg *config.Config) error {
	log.Printf("ctxhub - Context Snapshots")
	log.Printf("Config file: %s", cfg.GetConfigFilePath())
	log.Printf("Budget: %d bytes, sample size: %d, workers: %d, timeout: %s",
		cfg.Budget, cfg.SampleSize, cfg.Workers, cfg.Timeout)
	log.Printf("Serving %d folder(s):", len(cfg.Folders))
	for i, f := range cfg.Folders {
		if f.GitRef != "" {
			log.Printf("  [%d] %s -> %s (git ref: %s)", i, f.Alias, f.Path, f.GitRef)
		} else {
			log.Printf("  [%d] %s -> %s", i, f.Alias, f.Path)
		}
	}
	log.Printf("Server starting at: http://localhost:%d", cfg.Port)

	gin.SetMode(gin.ReleaseMode)
	r, _ := handler.NewRouter(cfg, tokens.NewCounter(cfg.TokenModel))

	if cfg.Open {
		go openBrowser(fmt.Sprintf("http://localhost:%d/api/folders", cfg.Port))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	if err := r.Run(addr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "windows":
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler", url}
	case "darwin":
		cmd = "open"
		args = []string{url}
	default: // linux, etc.
		cmd = "xdg-open"
		args = []string{url}
	}

	_ = exec.Command(cmd, args...).Start()
}
