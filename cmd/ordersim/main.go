package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ordersim: %v\n", err)
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "ordersim",
		Usage:     "generate synthetic storefront order datasets for demand forecasting",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML, TOML or JSON settings file",
				EnvVars: []string{"ORDERSIM_CONFIG_FILE"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "dotenv file layered under the process environment",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
		},
		Commands: []*cli.Command{
			generateCommand(),
			serveCommand(),
			holidaysCommand(),
		},
	}
}
