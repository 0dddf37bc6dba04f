package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"objconsole/internal/config"
	"objconsole/internal/eval"
	"objconsole/internal/logger"
	"objconsole/internal/tui"
)

var log = logger.Named("main")

func main() {
	logger.Configure()

	cli, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		log.Fatalf("parse args: %v", err)
	}

	cfg, err := config.Load(cli.cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg = config.ApplyKVOverrides(cfg, cli.overrides)
	if cli.logPath != "" {
		cfg.LogPath = cli.logPath
	}

	if logFile, path, err := logger.SetupFile(cfg.LogPath); err != nil {
		log.Warnf("failed to initialize log file: %v", err)
	} else {
		defer logFile.Close()
		log.Debugf("logging to %s", path)
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		log.Warnf("%v", err)
	}
	if cfg.Source != "" {
		log.Infof("config: %s", cfg.Source)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker := eval.NewWorker(eval.NewExprBackend(cli.shell), eval.WorkerConfig{})
	worker.Start(ctx)
	defer worker.Close()

	if len(cli.exprs) > 0 {
		code := runExec(ctx, worker, worker.Events(), cfg, cli.exprs, cli.depth, os.Stdout)
		worker.Close()
		stop()
		os.Exit(code)
	}

	err = tui.Run(tui.Options{
		Context:   ctx,
		Config:    cfg,
		Evaluator: worker,
		Events:    worker.Events(),
		Names:     worker.Names,
		Bell:      os.Stderr,
		Reload:    reloader(cli),
	})
	if err != nil {
		log.Errorf("tui: %v", err)
		worker.Close()
		os.Exit(1)
	}
}

// reloader 按启动时的路径和 -c 覆盖重新读取配置。
func reloader(cli cliArgs) func() (config.Config, error) {
	return func() (config.Config, error) {
		cfg, err := config.Load(cli.cfgPath)
		if err != nil {
			return config.Config{}, err
		}
		return config.ApplyKVOverrides(cfg, cli.overrides), nil
	}
}
