//go:build unix

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"liftctl/lib/driver-go/elevio"
	"liftctl/src/config"
	"liftctl/src/elev"
	"liftctl/src/system"
	"liftctl/src/utils"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	envFile := flag.String("env", ".env", "env file with LIFTCTL_* overrides")
	port := flag.Int("port", config.DefaultPort, "TCP port to listen on")
	simAddr := flag.String("sim", "", "elevator server address to mirror the car onto")
	logLevel := flag.String("log-level", "", "debug, info, warn or error")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	if err := config.ApplyEnv(&cfg, *envFile); err != nil {
		fatal(err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Network.Port = *port
		case "sim":
			cfg.Simulator.Addr = *simAddr
		case "log-level":
			cfg.Log.Level = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}

	level, _ := config.ParseLevel(cfg.Log.Level)
	logFile, err := utils.InitLogger(level, cfg.Log.File)
	if err != nil {
		fatal(err)
	}
	defer logFile.Close()

	var driver elev.Driver = elev.LogDriver{}
	if cfg.Simulator.Addr != "" {
		drv, err := elevio.Dial(cfg.Simulator.Addr)
		if err != nil {
			slog.Error("Elevator server unavailable", "addr", cfg.Simulator.Addr, "error", err)
			os.Exit(1)
		}
		sim := elev.NewSimDriver(drv)
		defer sim.Close()
		driver = sim
		slog.Info("Mirroring car to elevator server", "addr", cfg.Simulator.Addr)
	}

	sys, err := system.New(cfg, driver)
	if err != nil {
		slog.Error("Setup failed", "error", err)
		os.Exit(1)
	}
	if err := sys.Start(); err != nil {
		slog.Error("Start failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("Shutting down")
		sys.Stop()
	}()

	if err := sys.Wait(); err != nil {
		slog.Error("Controller stopped", "error", err)
		os.Exit(1)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "liftctl:", err)
	os.Exit(1)
}
