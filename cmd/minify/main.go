package main

import (
	"fmt"
	"os"

	"github.com/woozymasta/cngmap/internal/config"
	"github.com/woozymasta/cngmap/internal/page"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	ConfigFile string `short:"c" long:"config" env:"CONFIG_FILE" description:"Path to configuration file" default:"config.yaml"`
	Output     string `short:"o" long:"out"    description:"Output HTML path" default:"index.html"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error read config:", err)
		os.Exit(1)
	}

	finalHTML, err := page.Build(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error build page:", err)
		os.Exit(1)
	}

	if err := os.WriteFile(opts.Output, finalHTML, 0644); err != nil {
		fmt.Fprintln(os.Stderr, "error write page:", err)
		os.Exit(1)
	}

	fmt.Printf("minify done: %s (%d bytes)\n", opts.Output, len(finalHTML))
}
