package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	toon "github.com/mateuszkardas/toon-go"

	"github.com/nikitaxru/tagreports"
)

// errReported — ошибка уже напечатана пользователю.
var errReported = errors.New("reported")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr, os.Getenv); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	if len(args) == 0 {
		printUsage(stderr)
		return errors.New("не указана команда")
	}
	switch args[0] {
	case "parse-template", "parse_template":
		return runParseTemplate(args[1:], stdout, stderr, getenv)
	case "inspect":
		return runInspect(args[1:], stdout, stderr, getenv)
	case "-h", "--help", "help":
		printUsage(stdout)
		return nil
	}
	printUsage(stderr)
	return fmt.Errorf("неизвестная команда %q", args[0])
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage:
  tagreports parse-template --template_file NAME [--config FILE] [--data FILE] [--output NAME]
  tagreports inspect --template_file NAME [--config FILE] [--format toon|json]
`)
}

func runParseTemplate(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("parse-template", flag.ContinueOnError)
	flags.SetOutput(stderr)
	var (
		templateFile = flags.String("template_file", "", "Name of the template file")
		configPath   = flags.String("config", "", "Path to YAML config")
		dataPath     = flags.String("data", "", "Path to JSON records")
		output       = flags.String("output", "", "Report file name (defaults to the template name)")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *templateFile == "" {
		return errors.New("--template_file обязателен")
	}

	cfg, err := tagreports.LoadConfig(*configPath, getenv)
	if err != nil {
		return err
	}
	logger := log.New(stderr, "", log.LstdFlags)

	err = parseTemplate(cfg, *templateFile, *dataPath, *output, logger)
	if errors.Is(err, tagreports.ErrPluginNotFound) {
		fmt.Fprintf(stdout, "The following error occurred: %v\n", err)
		return errReported
	}
	return err
}

func parseTemplate(cfg *tagreports.Config, templateFile, dataPath, output string, logger *log.Logger) error {
	tags, err := cfg.BuildTags()
	if err != nil {
		return err
	}
	if len(tags) == 0 {
		dm, err := tagreports.LookupDataManager(cfg.DataManagerClass)
		if err != nil {
			return err
		}
		if tags, err = tagreports.DefaultTags(dm); err != nil {
			return err
		}
	}

	var records []any
	if dataPath != "" {
		if records, err = tagreports.LoadRecordsFile(dataPath); err != nil {
			return err
		}
	}

	r, err := tagreports.NewRenderer(cfg, tags, templateFile, tagreports.WithLogger(logger))
	if err != nil {
		return err
	}
	defer r.Close()

	if err := r.Validate(); err != nil {
		return err
	}
	if output == "" {
		output = filepath.Base(templateFile)
	}
	return r.Generate(records, tagreports.ToFile(filepath.Join(cfg.ReportsDirectory, output)))
}

func runInspect(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("inspect", flag.ContinueOnError)
	flags.SetOutput(stderr)
	var (
		templateFile = flags.String("template_file", "", "Name of the template file")
		configPath   = flags.String("config", "", "Path to YAML config")
		format       = flags.String("format", "toon", "Output format: toon or json")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *templateFile == "" {
		return errors.New("--template_file обязателен")
	}
	cfg, err := tagreports.LoadConfig(*configPath, getenv)
	if err != nil {
		return err
	}
	path := *templateFile
	if cfg.TemplatesDirectory != "" && !filepath.IsAbs(path) {
		path = filepath.Join(cfg.TemplatesDirectory, path)
	}
	info, err := tagreports.InspectTemplate(path, cfg.Placeholder)
	if err != nil {
		return err
	}

	switch strings.ToLower(*format) {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	case "toon":
		out, err := toon.Marshal(info, nil)
		if err != nil {
			return fmt.Errorf("toon: %w", err)
		}
		fmt.Fprintln(stdout, out)
		return nil
	}
	return fmt.Errorf("неизвестный формат %q", *format)
}
