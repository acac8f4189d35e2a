// Command webview serves the browser viewer: the same workspace the desktop
// shell edits, driven over a websocket instead of raylib. Configuration comes
// from the environment so the process can run headless under a supervisor.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/caarlos0/env/v11"

	envfile "mesh-studio/internal/env"
	"mesh-studio/internal/web"
	"mesh-studio/internal/workspace"
)

type config struct {
	Addr      string `env:"WEBVIEW_ADDR" envDefault:":8080"`
	ModelDir  string `env:"WEBVIEW_MODEL_DIR" envDefault:"models"`
	Workspace string `env:"WEBVIEW_WORKSPACE"`
	Verbose   bool   `env:"WEBVIEW_VERBOSE"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("webview exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	if err := envfile.Load(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ws := workspace.New(log, cfg.ModelDir)
	srv := web.New(ws, cfg.ModelDir, log)
	defer srv.Close()

	if cfg.Workspace != "" {
		if err := ws.Open(cfg.Workspace); err != nil {
			log.Warn("workspace not restored", "path", cfg.Workspace, "err", err)
		} else {
			log.Info("workspace restored", "path", cfg.Workspace, "entities", ws.Scene().Len())
		}
	}

	log.Info("webview listening", "addr", cfg.Addr, "models", cfg.ModelDir)
	return http.ListenAndServe(cfg.Addr, srv.Handler())
}
