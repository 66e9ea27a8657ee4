package app

import (
	"context"
	"os/signal"
	"syscall"
)

// Serve loads configuration from path (optional) and the environment, then
// runs the server until SIGINT or SIGTERM.
func Serve(ctx context.Context, configPath string) error {
	cfg, err := Load(configPath)
	if err != nil {
		return err
	}
	log := NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := New(ctx, cfg, log)
	if err != nil {
		log.Error("server.init.fail", "err", err)
		return err
	}
	return a.Run(ctx)
}
