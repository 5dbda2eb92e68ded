// Command enl is a CLI client for the Energy Prediction Service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/and161185/enlite/internal/api"
	"github.com/and161185/enlite/internal/config"
	"github.com/and161185/enlite/internal/errs"
)

func usage() {
	fmt.Fprintf(os.Stderr, `enl CLI
Usage:
  enl [-config file] [-api URL] <cmd> [args]

Commands:
  version
  register   -u <username> -e <email> -p <password>
  login      -u <username> -p <password>          (saves session)
  logout
  whoami
  plans
  checkout   -plan <Basic|Super|Premium>
  redirect   -set <path>                          (after next login; empty clears)
`)
	os.Exit(2)
}

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands.
func main() {
	cfgPath := flag.String("config", "", "config file (YAML)")
	apiBase := flag.String("api", "", "backend base URL (overrides config)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)
	if cmd == "version" {
		fmt.Printf("enl %s (%s)\n", version, buildDate)
		return
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fail(err)
	}
	if *apiBase != "" {
		cfg.APIBase = *apiBase
	}

	log, err := newLogger(cfg.Env)
	if err != nil {
		fail(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log, os.Stdout)
	if err != nil {
		fail(err)
	}
	defer a.close()

	args := flag.Args()[1:]
	switch cmd {
	case "register":
		err = a.register(ctx, args)
	case "login":
		err = a.login(ctx, args)
	case "logout":
		err = a.logout(ctx)
	case "whoami":
		err = a.whoami(ctx)
	case "plans":
		err = a.plans()
	case "checkout":
		err = a.checkout(ctx, args)
	case "redirect":
		err = a.redirect(ctx, args)
	default:
		a.close()
		usage()
	}
	if err != nil {
		a.close()
		fail(err)
	}
}

// newLogger builds a production logger for env=prod and a development one otherwise.
func newLogger(env string) (*zap.Logger, error) {
	if env == "prod" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func fail(err error) {
	var alert *errs.AlertError
	if errors.As(err, &alert) {
		fmt.Fprintln(os.Stderr, alert.Message)
		os.Exit(1)
	}
	if msg := api.ServerMessage(err); msg != "" {
		fmt.Fprintf(os.Stderr, "server error: %s\n", msg)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
