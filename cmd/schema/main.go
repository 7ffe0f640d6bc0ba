// Command schema writes JSON schema of newsdesk configuration and checks config files against it
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/umputun/newsdesk/pkg/config"
)

type options struct {
	Out   string `short:"o" long:"out" default:"schema.json" description:"output file, - for stdout"`
	Check string `short:"c" long:"check" description:"config file to check instead of writing schema"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if err := run(opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, stdout io.Writer) error {
	if opts.Check != "" {
		cfg, err := config.Load(opts.Check)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s is valid: %d categories, %d sources\n", opts.Check, len(cfg.Categories), len(cfg.Sources))
		return nil
	}

	schema := config.GenerateSchema()
	schema.Title = "newsdesk configuration"
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if opts.Out == "-" {
		_, err = fmt.Fprintln(stdout, string(data))
		return err
	}
	if err := os.WriteFile(opts.Out, data, 0o600); err != nil {
		return fmt.Errorf("write schema file: %w", err)
	}
	fmt.Fprintf(stdout, "schema written to %s\n", opts.Out)
	return nil
}
