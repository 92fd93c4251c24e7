// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	filingvec "github.com/poiesic/filingvec"
	"github.com/poiesic/filingvec/config"
	"github.com/poiesic/filingvec/core"
	"github.com/poiesic/filingvec/filings"
	"github.com/poiesic/filingvec/reindex"
	"github.com/poiesic/filingvec/search"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:   "filingvec",
		Usage:  "Semantic retrieval over company filing text",
		Before: setupLogger,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest chunk files into the vector collection",
				ArgsUsage: "FILE [FILE...]",
				Action:    ingestCommand,
			},
			{
				Name:      "search",
				Usage:     "Semantic search over ingested chunks",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags:     append(filterFlags(), thresholdFlag()),
			},
			{
				Name:      "hybrid",
				Usage:     "Semantic search post-filtered by keyword presence",
				ArgsUsage: "QUERY",
				Action:    hybridCommand,
				Flags: append(filterFlags(),
					&cli.StringSliceFlag{
						Name:    "keyword",
						Aliases: []string{"k"},
						Usage:   "Keyword to require (repeatable, OR semantics)",
					},
					&cli.BoolFlag{
						Name:  "explain",
						Usage: "Show candidate counts for each stage",
					}),
			},
			{
				Name:      "delete",
				Usage:     "Delete every chunk for a ticker",
				ArgsUsage: "TICKER",
				Action:    deleteCommand,
			},
			{
				Name:   "info",
				Usage:  "Show collection point counts and status",
				Action: infoCommand,
			},
			{
				Name:   "health",
				Usage:  "Check vector store and filings store liveness",
				Action: healthCommand,
			},
			{
				Name:   "reindex",
				Usage:  "Re-embed every stored chunk with the configured model",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent embedding batches (0 = half the CPUs)",
					},
				},
			},
			{
				Name:  "company",
				Usage: "Manage company master data",
				Subcommands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "Add or update a company",
						ArgsUsage: "TICKER NAME CIK",
						Action:    companyAddCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "industry"},
							&cli.StringFlag{Name: "sector"},
							&cli.StringFlag{Name: "sic-code"},
						},
					},
					{
						Name:   "list",
						Usage:  "List known companies",
						Action: companyListCommand,
					},
				},
			},
			{
				Name:  "filing",
				Usage: "Track SEC filing metadata",
				Subcommands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "Record a filing",
						ArgsUsage: "TICKER ACCESSION-NUMBER",
						Action:    filingAddCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "type", Value: "10-K", Usage: "Filing type (10-K, 10-Q)"},
							&cli.IntFlag{Name: "fiscal-year", Required: true},
							&cli.StringFlag{Name: "fiscal-period", Value: "FY", Usage: "Q1-Q4 or FY"},
							&cli.TimestampFlag{Name: "filed", Layout: "2006-01-02", Usage: "Filing date"},
							&cli.StringFlag{Name: "url", Usage: "Document URL"},
						},
					},
					{
						Name:      "list",
						Usage:     "List filings for a ticker",
						ArgsUsage: "TICKER",
						Action:    filingListCommand,
					},
					{
						Name:      "done",
						Usage:     "Mark a filing as processed",
						ArgsUsage: "ACCESSION-NUMBER",
						Action:    filingDoneCommand,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "ticker",
			Aliases: []string{"t"},
			Usage:   "Restrict to one company",
		},
		&cli.StringFlag{
			Name:    "section",
			Aliases: []string{"s"},
			Usage:   "Restrict to one filing section",
		},
		&cli.IntFlag{
			Name:  "top-k",
			Usage: "Maximum number of results",
			Value: search.DefaultTopK,
		},
	}
}

func thresholdFlag() cli.Flag {
	return &cli.Float64Flag{
		Name:  "threshold",
		Usage: "Minimum similarity score (0 disables)",
		Value: search.DefaultScoreThreshold,
	}
}

// chunkFile is the on-disk ingest format: a JSON array of chunks.
type chunkFile []struct {
	Text       string `json:"text"`
	Ticker     string `json:"ticker"`
	Section    string `json:"section"`
	FiscalYear *int   `json:"fiscal_year"`
	Page       *int   `json:"page"`
	ChunkIndex *int   `json:"chunk_index"`
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one chunk file is required")
	}

	db, err := filingvec.Default()
	if err != nil {
		return err
	}

	total := 0
	for _, path := range c.Args().Slice() {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		var chunks chunkFile
		if err := json.Unmarshal(data, &chunks); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}

		texts := make([]string, len(chunks))
		metas := make([]core.ChunkMetadata, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Text
			metas[i] = core.ChunkMetadata{
				Ticker:     chunk.Ticker,
				Section:    chunk.Section,
				FiscalYear: chunk.FiscalYear,
				Page:       chunk.Page,
				ChunkIndex: chunk.ChunkIndex,
			}
		}

		count, err := db.UpsertDocuments(c.Context, texts, metas)
		total += count
		if err != nil {
			return fmt.Errorf("ingesting %s (wrote %d chunks): %w", path, total, err)
		}
		fmt.Printf("%s: %d chunks\n", path, count)
	}

	fmt.Printf("Ingested %d chunks total\n", total)
	return nil
}

func searchCommand(c *cli.Context) error {
	query := c.Args().First()
	if query == "" {
		return fmt.Errorf("query is required")
	}

	db, err := filingvec.Default()
	if err != nil {
		return err
	}

	results, err := db.Search(c.Context, query, search.Options{
		Ticker:         c.String("ticker"),
		Section:        c.String("section"),
		TopK:           c.Int("top-k"),
		ScoreThreshold: float32(c.Float64("threshold")),
	})
	if err != nil {
		return err
	}

	printResults(results)
	return nil
}

func hybridCommand(c *cli.Context) error {
	query := c.Args().First()
	if query == "" {
		return fmt.Errorf("query is required")
	}

	db, err := filingvec.Default()
	if err != nil {
		return err
	}

	opts := search.Options{
		Ticker:  c.String("ticker"),
		Section: c.String("section"),
		TopK:    c.Int("top-k"),
	}
	keywords := c.StringSlice("keyword")

	var results []*core.ScoredChunk
	if c.Bool("explain") {
		engine, err := search.NewEngine(db.Embedder(), db.Store())
		if err != nil {
			return err
		}
		results, err = engine.HybridSearchWithMonitor(c.Context, query, keywords, opts,
			&explainMonitor{out: os.Stderr})
		if err != nil {
			return err
		}
	} else {
		results, err = db.HybridSearch(c.Context, query, keywords, opts)
		if err != nil {
			return err
		}
	}

	printResults(results)
	return nil
}

func deleteCommand(c *cli.Context) error {
	ticker := c.Args().First()
	if ticker == "" {
		return fmt.Errorf("ticker is required")
	}

	db, err := filingvec.Default()
	if err != nil {
		return err
	}

	if err := db.DeleteByTicker(c.Context, ticker); err != nil {
		return err
	}
	fmt.Printf("Deleted all chunks for %s\n", ticker)
	return nil
}

func infoCommand(c *cli.Context) error {
	db, err := filingvec.Default()
	if err != nil {
		return err
	}

	info, err := db.CollectionInfo(c.Context)
	if err != nil {
		return err
	}

	fmt.Printf("Collection: %s\n", info.Name)
	fmt.Printf("Points:     %d\n", info.PointsCount)
	fmt.Printf("Vectors:    %d\n", info.VectorsCount)
	fmt.Printf("Status:     %s\n", info.Status)
	return nil
}

func healthCommand(c *cli.Context) error {
	db, err := filingvec.Default()
	if err != nil {
		return err
	}

	if err := db.HealthCheck(c.Context); err != nil {
		return fmt.Errorf("vector store: %w", err)
	}
	fmt.Println("vector store: ok")

	store, err := openFilingsStore()
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.HealthCheck(c.Context); err != nil {
		return fmt.Errorf("filings store: %w", err)
	}
	fmt.Println("filings store: ok")
	return nil
}

func reindexCommand(c *cli.Context) error {
	db, err := filingvec.Default()
	if err != nil {
		return err
	}

	cfg := reindex.DefaultConfig()
	cfg.BatchSize = c.Int("batch-size")
	cfg.ReportInterval = c.Int("report-interval")
	cfg.MaxRetries = c.Int("max-retries")
	cfg.RetryDelay = c.Duration("retry-delay")
	if workers := c.Int("workers"); workers > 0 {
		cfg.Workers = workers
	}

	if cfg.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if cfg.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if cfg.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	reindexer, err := reindex.NewReindexer(db.Store(), db.Embedder(), cfg, os.Stderr)
	if err != nil {
		return err
	}
	return reindexer.Run(c.Context)
}

func companyAddCommand(c *cli.Context) error {
	if c.NArg() < 3 {
		return fmt.Errorf("usage: company add TICKER NAME CIK")
	}

	store, err := openFilingsStore()
	if err != nil {
		return err
	}
	defer store.Close()

	company := &filings.Company{
		Ticker:   c.Args().Get(0),
		Name:     c.Args().Get(1),
		CIK:      c.Args().Get(2),
		Industry: c.String("industry"),
		Sector:   c.String("sector"),
		SICCode:  c.String("sic-code"),
	}
	if err := store.UpsertCompany(c.Context, company); err != nil {
		return err
	}
	fmt.Printf("%s (%s) saved\n", company.Ticker, company.Name)
	return nil
}

func companyListCommand(c *cli.Context) error {
	store, err := openFilingsStore()
	if err != nil {
		return err
	}
	defer store.Close()

	companies, err := store.ListCompanies(c.Context)
	if err != nil {
		return err
	}
	for _, company := range companies {
		fmt.Printf("%-8s %-40s CIK %s\n", company.Ticker, company.Name, company.CIK)
	}
	return nil
}

func filingAddCommand(c *cli.Context) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: filing add TICKER ACCESSION-NUMBER")
	}

	store, err := openFilingsStore()
	if err != nil {
		return err
	}
	defer store.Close()

	filedAt := time.Now().UTC()
	if ts := c.Timestamp("filed"); ts != nil {
		filedAt = *ts
	}

	filing := &filings.Filing{
		Ticker:          c.Args().Get(0),
		AccessionNumber: c.Args().Get(1),
		FilingType:      c.String("type"),
		FiscalYear:      c.Int("fiscal-year"),
		FiscalPeriod:    c.String("fiscal-period"),
		FilingDate:      filedAt,
		DocumentURL:     c.String("url"),
	}
	if err := store.AddFiling(c.Context, filing); err != nil {
		return err
	}
	fmt.Printf("Filing %s recorded\n", filing.AccessionNumber)
	return nil
}

func filingListCommand(c *cli.Context) error {
	ticker := c.Args().First()
	if ticker == "" {
		return fmt.Errorf("ticker is required")
	}

	store, err := openFilingsStore()
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.FilingsByTicker(c.Context, ticker)
	if err != nil {
		return err
	}
	for _, filing := range list {
		status := " "
		if filing.Processed {
			status = "✓"
		}
		fmt.Printf("[%s] %-6s %d %-3s %s %s\n", status, filing.FilingType,
			filing.FiscalYear, filing.FiscalPeriod,
			filing.FilingDate.Format("2006-01-02"), filing.AccessionNumber)
	}
	return nil
}

func filingDoneCommand(c *cli.Context) error {
	accession := c.Args().First()
	if accession == "" {
		return fmt.Errorf("accession number is required")
	}

	store, err := openFilingsStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.MarkProcessed(c.Context, accession); err != nil {
		return err
	}
	fmt.Printf("Filing %s marked processed\n", accession)
	return nil
}

func openFilingsStore() (*filings.Store, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}
	return filings.NewStore(settings.SQLitePath)
}

func printResults(results []*core.ScoredChunk) {
	if len(results) == 0 {
		fmt.Println("No results")
		return
	}
	for i, result := range results {
		record := result.Record
		fmt.Printf("%d. [%.3f] %s / %s\n", i+1, result.Score, record.Ticker, record.Section)
		fmt.Printf("   %s\n", record.Text)
	}
}

// explainMonitor prints stage sizes for hybrid search.
type explainMonitor struct {
	out *os.File
}

func (m *explainMonitor) Start(query string, keywords []string) {
	fmt.Fprintf(m.out, "query: %q, keywords: %s\n", query, strings.Join(keywords, ", "))
}

func (m *explainMonitor) AfterSemanticStage(candidates []*core.ScoredChunk) {
	fmt.Fprintf(m.out, "semantic stage: %d candidates\n", len(candidates))
}

func (m *explainMonitor) Finish(results []*core.ScoredChunk) {
	fmt.Fprintf(m.out, "after keyword filter: %d results\n", len(results))
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
