package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/pasis/pppoat2/internal/config"
	"github.com/pasis/pppoat2/internal/packet"
	"github.com/pasis/pppoat2/internal/pipeline"
)

// Options carries the CLI-parsed arguments into Run, mirroring
// original_source/src/main.c's parsed getopt state.
type Options struct {
	Flags      config.Flags
	Positional []string
}

// defaultInterface and defaultTransport match spec.md §6's CLI
// defaults.
const (
	defaultInterface = "pppd"
	defaultTransport = "udp"
)

// Run loads configuration, resolves the interface and transport
// modules it names, builds and starts a two-module pipeline, and
// blocks until SIGINT/SIGTERM requests shutdown. It returns a non-nil
// error only for conditions spec.md §6 maps to exit code 1 (fatal
// init errors); a normal signal-triggered shutdown returns nil.
func Run(opt Options) error {
	signal.Ignore(syscall.SIGPIPE)

	if opt.Flags.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if opt.Flags.List {
		for _, line := range ListModules() {
			fmt.Println(line)
		}
		return nil
	}

	conf, err := loadConfig(opt)
	if err != nil {
		return fmt.Errorf("app: load config: %w", err)
	}

	ifaceName := conf.FindStringDefault("interface", defaultInterface)
	transportName := conf.FindStringDefault("transport", defaultTransport)

	ifaceStage, err := NewInterface(ifaceName)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	transportStage, err := NewTransport(transportName)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}

	pool := packet.NewPool()
	defer pool.Close()

	log := logrus.WithFields(logrus.Fields{"interface": ifaceName, "transport": transportName})
	pipe := pipeline.New(pool, log)
	pipe.Add(ifaceStage)
	pipe.Add(transportStage)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pipe.Start(ctx, conf); err != nil {
		return fmt.Errorf("app: start pipeline: %w", err)
	}

	log.Info("pipeline started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	pipe.Stop()

	return nil
}

// loadConfig builds the config.Store per spec.md §6's precedence:
// argv is read first (its Set calls always win), then an optional
// -c/--config file is read with SetIfAbsent semantics so it never
// overrides a key argv already supplied.
func loadConfig(opt Options) (*config.Store, error) {
	conf := config.New()

	if err := config.ReadArgv(conf, opt.Flags, opt.Positional); err != nil {
		return nil, err
	}

	path := opt.Flags.Config
	if path == "" {
		return conf, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file %q: %w", path, err)
	}
	defer f.Close()

	if err := config.ReadFile(conf, f); err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	return conf, nil
}
