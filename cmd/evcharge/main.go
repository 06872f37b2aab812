package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/pflag"

	"github.com/jrsteele09/evcharge-client/internal/config"
	"github.com/jrsteele09/evcharge-client/internal/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	flags := globalFlags()
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	rest := flags.Args()
	if len(rest) == 0 {
		printUsage(os.Stdout, flags)
		return nil
	}

	cmd, ok := lookupCommand(rest[0])
	if !ok {
		printUsage(os.Stderr, flags)
		return fmt.Errorf("unknown command %q", rest[0])
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}

	quiet, _ := flags.GetBool("quiet")
	if !quiet {
		displayAppname(cfg.GetAppName())
	}

	logger := logging.Discard()
	if verbose, _ := flags.GetBool("verbose"); verbose {
		logger = logging.New(cfg.GetEnv())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	return cmd.execute(ctx, a, rest[1:])
}

func globalFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("evcharge", pflag.ContinueOnError)
	flags.SetInterspersed(false)
	flags.String("origin", "", "backend origin, e.g. http://localhost:8080")
	flags.Duration("timeout", 0, "per request timeout")
	flags.String("session-backend", "", "where the session is kept: file, memory or redis")
	flags.String("session-file", "", "session file for the file backend")
	flags.String("redis-addr", "", "redis address for the redis backend")
	flags.String("env", "", "environment name (DEV, PROD)")
	flags.BoolP("quiet", "q", false, "do not print the banner")
	flags.BoolP("verbose", "v", false, "log requests to stderr")
	return flags
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
