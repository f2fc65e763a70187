package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/insightdelivered/statement-batch/internal/api"
	"github.com/insightdelivered/statement-batch/internal/batch"
	"github.com/insightdelivered/statement-batch/internal/extractor"
	"github.com/insightdelivered/statement-batch/internal/fields"
	"github.com/insightdelivered/statement-batch/internal/logger"
	"github.com/insightdelivered/statement-batch/internal/txparse"
	"github.com/insightdelivered/statement-batch/internal/writer"
)

const version = "1.0.0"

func main() {
	inputFlag := flag.String("input", "data", "Directory containing statement PDFs")
	outFlag := flag.String("out", "output", "Directory for the output tables and run log")
	formatFlag := flag.String("format", writer.FormatCSV, "Output format: csv or xlsx")
	configFlag := flag.String("config", "", "Optional YAML config file overriding field patterns and parser policy")
	workersFlag := flag.Int("workers", 4, "Number of documents processed concurrently")
	timeoutFlag := flag.Duration("timeout", 30*time.Second, "Per-document processing time budget")
	maxDocsFlag := flag.Int("max-docs", 100, "Maximum documents per batch run")
	serveFlag := flag.Bool("serve", false, "Run the HTTP extraction API instead of a batch")
	addrFlag := flag.String("addr", ":8080", "Listen address for --serve mode")
	versionFlag := flag.Bool("version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Statement Batch Extractor

Converts a batch of bank-statement PDFs into two normalized tables
(accounts, transactions) plus a structured run log.

Usage:
  statement-batch [flags]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Extract every PDF under ./data into ./output
  statement-batch --input=data --out=output

  # XLSX workbook instead of CSV tables
  statement-batch --input=data --out=output --format=xlsx

  # Custom field patterns for a new statement layout
  statement-batch --config=patterns.yaml

  # Single-document HTTP API
  statement-batch --serve --addr=:8080
`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("statement-batch v%s\n", version)
		os.Exit(0)
	}

	log := logger.New()
	ctx := logger.WithContext(context.Background(), log)

	v := viper.New()
	fields.SetDefaults(v)
	txparse.SetDefaults(v)
	if *configFlag != "" {
		v.SetConfigFile(*configFlag)
		if err := v.ReadInConfig(); err != nil {
			log.Fatal().Err(err).Str("config", *configFlag).Msg("reading config file")
		}
	}

	matcher, err := fields.NewMatcher(v)
	if err != nil {
		log.Fatal().Err(err).Msg("compiling field patterns")
	}
	policy := txparse.PolicyFromConfig(v)

	if *serveFlag {
		h := &api.Handler{Matcher: matcher, Policy: policy}
		log.Info().Str("addr", *addrFlag).Msg("starting extraction API")
		if err := h.App().Listen(*addrFlag); err != nil {
			log.Fatal().Err(err).Msg("http server stopped")
		}
		return
	}

	src := &extractor.Directory{Dir: *inputFlag, MaxDocs: *maxDocsFlag}
	proc := &batch.Processor{
		Matcher:    matcher,
		Policy:     policy,
		Workers:    *workersFlag,
		DocTimeout: *timeoutFlag,
	}

	result, err := proc.Run(ctx, src)
	if err != nil {
		log.Fatal().Err(err).Msg("batch run failed")
	}

	w := writer.New(*outFlag, *formatFlag)
	if err := w.Write(result); err != nil {
		log.Fatal().Err(err).Msg("writing batch output")
	}

	log.Info().Str("out", *outFlag).Msg("batch output written")
}
