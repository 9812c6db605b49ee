package main

import (
	"context"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/wchklaus97/claw-core/src/config"
	"github.com/wchklaus97/claw-core/src/gc"
	"github.com/wchklaus97/claw-core/src/rpc"
	"github.com/wchklaus97/claw-core/src/server"
	"github.com/wchklaus97/claw-core/src/session"
	"github.com/wchklaus97/claw-core/src/stats"
	"github.com/wchklaus97/claw-core/src/supervisor"
)

func main() {
	cmd := config.NewCommand(run)
	if err := cmd.Execute(); err != nil {
		logrus.WithError(err).Error("trld exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if err := supervisor.EnsureNonRoot(cfg.AllowRoot); err != nil {
		logrus.WithError(err).Error("cannot start")
		return err
	}

	pidPath := supervisor.DerivePIDPath(cfg.SocketPath)
	pidGuard, err := supervisor.CheckAndWritePID(pidPath)
	if err != nil {
		logrus.WithError(err).Error("cannot start")
		return err
	}
	defer pidGuard.Close()
	logrus.Infof("wrote PID %d to %s", os.Getpid(), pidPath)

	pool := session.NewPool(cfg.MaxSessions)
	runtimeStats := stats.New()
	dispatcher := rpc.New(cfg, pool, runtimeStats)
	gcLoop := gc.New(cfg, pool, runtimeStats)
	srv := server.New(cfg.SocketPath, dispatcher)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		gcLoop.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := srv.Run(ctx); err != nil {
			logrus.WithError(err).Error("server stopped with error")
		}
	}()

	supervisor.WaitForShutdownSignal()
	logrus.Info("shutdown requested")
	cancel()
	wg.Wait()

	cleared := pool.DestroyAll()
	if cleared > 0 {
		logrus.Infof("destroyed %d sessions during shutdown", cleared)
	}

	logrus.Info("runtime stopped")
	return nil
}
