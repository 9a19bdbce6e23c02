package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/ronny/linkdb"
	"github.com/ronny/linkdb/cmd/internal/bootstrap"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()

	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			log.Error().Err(err).Msg("linkdb")
		}
		os.Exit(1)
	}
}

type app struct {
	flags *bootstrap.Flags
	db    *linkdb.LinkDB
	out   io.Writer
}

func run(ctx context.Context, args []string, out io.Writer) error {
	rootFlags := flag.NewFlagSet("linkdb", flag.ContinueOnError)
	a := &app{
		flags: bootstrap.RegisterFlags(rootFlags),
		out:   out,
	}
	_ = rootFlags.String("config", "", "config file (optional)")

	root := &ffcli.Command{
		Name:       "linkdb",
		ShortUsage: "linkdb [flags] <subcommand> [flags]",
		ShortHelp:  "Manage a JSON link database of documentation and reference links.",
		FlagSet:    rootFlags,
		Options: []ff.Option{
			ff.WithEnvVarPrefix("LINKDB"),
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ff.JSONParser),
		},
		Subcommands: []*ffcli.Command{
			a.createCommand(),
			a.getCommand(),
		},
		Exec: func(ctx context.Context, args []string) error {
			return flag.ErrHelp
		},
	}

	if err := root.Parse(args); err != nil {
		return err
	}

	if err := a.flags.SetupLogging(); err != nil {
		return err
	}

	options, err := a.flags.LinkDBOptions(ctx)
	if err != nil {
		return err
	}
	a.db, err = linkdb.NewLinkDB(options...)
	if err != nil {
		return fmt.Errorf("linkdb.NewLinkDB: %w", err)
	}

	return root.Run(ctx)
}
