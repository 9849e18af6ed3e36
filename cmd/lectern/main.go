// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/lectern"
	"github.com/poiesic/lectern/answer"
	"github.com/poiesic/lectern/config"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/ingest"
	"github.com/poiesic/lectern/reindex"
	"github.com/poiesic/lectern/storage"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "lectern",
		Usage:    "Turn lecture slides and scanned handouts into a searchable study library",
		Metadata: map[string]interface{}{},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Value:   "lectern.yaml",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Override the configured log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Override the configured log format (text, json)",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write a starter configuration file",
				Action: initCommand,
			},
			{
				Name:  "subject",
				Usage: "Manage subjects",
				Subcommands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "Create a subject",
						ArgsUsage: "NAME",
						Flags: []cli.Flag{
							&cli.StringSliceFlag{
								Name:  "meta",
								Usage: "Metadata entry as key=value (repeatable)",
							},
						},
						Action: subjectAddCommand,
					},
					{
						Name:   "list",
						Usage:  "List subjects",
						Action: subjectListCommand,
					},
					{
						Name:      "rm",
						Usage:     "Delete a subject, its assets and everything derived from them",
						ArgsUsage: "SUBJECT",
						Action:    subjectRemoveCommand,
					},
				},
			},
			{
				Name:      "add",
				Usage:     "Store files under a subject",
				ArgsUsage: "FILE [FILE...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "subject",
						Aliases:  []string{"s"},
						Usage:    "Subject id or name",
						Required: true,
					},
				},
				Action: addCommand,
			},
			{
				Name:  "index",
				Usage: "Run stored assets through the indexing pipeline",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "subject",
						Aliases:  []string{"s"},
						Usage:    "Subject id or name",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Reprocess every stage even when already indexed",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Cap how many assets this run processes (0 means no cap)",
					},
				},
				Action: indexCommand,
			},
			{
				Name:      "ask",
				Usage:     "Ask a question over the indexed material",
				ArgsUsage: "QUESTION",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "subject",
						Aliases: []string{"s"},
						Usage:   "Limit retrieval to one subject (id or name)",
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Override the configured similarity hit budget",
					},
					&cli.BoolFlag{
						Name:  "force-web",
						Usage: "Search the web regardless of retrieval strength",
					},
					&cli.BoolFlag{
						Name:  "debug",
						Usage: "Print retrieval debug detail as JSON to stderr",
					},
				},
				Action: askCommand,
			},
			{
				Name:  "notes",
				Usage: "Generate, save and inspect study notes",
				Subcommands: []*cli.Command{
					{
						Name:  "generate",
						Usage: "Generate study notes for an indexed asset",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "subject",
								Aliases:  []string{"s"},
								Usage:    "Subject id or name",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "asset",
								Aliases:  []string{"a"},
								Usage:    "Asset id or filename",
								Required: true,
							},
						},
						Action: notesGenerateCommand,
					},
					{
						Name:  "save",
						Usage: "Save a markdown file as the next notes version for an asset",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "subject",
								Aliases:  []string{"s"},
								Usage:    "Subject id or name",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "asset",
								Aliases:  []string{"a"},
								Usage:    "Asset id or filename",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "file",
								Aliases:  []string{"f"},
								Usage:    "Markdown file to save",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "title",
								Usage: "Notes title (defaults to \"Study Notes\")",
							},
							&cli.StringSliceFlag{
								Name:  "url",
								Usage: "Source URL the notes draw on (repeatable)",
							},
						},
						Action: notesSaveCommand,
					},
					{
						Name:  "show",
						Usage: "Print the latest notes version as markdown",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "subject",
								Aliases:  []string{"s"},
								Usage:    "Subject id or name",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "asset",
								Aliases:  []string{"a"},
								Usage:    "Asset id or filename",
								Required: true,
							},
						},
						Action: notesShowCommand,
					},
					{
						Name:  "list",
						Usage: "List notes versions for a subject or one of its assets",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "subject",
								Aliases:  []string{"s"},
								Usage:    "Subject id or name",
								Required: true,
							},
							&cli.StringFlag{
								Name:    "asset",
								Aliases: []string{"a"},
								Usage:   "Asset id or filename",
							},
						},
						Action: notesListCommand,
					},
					{
						Name:      "rm",
						Usage:     "Delete one notes version, its index points and its artifact",
						ArgsUsage: "NOTES_ID",
						Action:    notesRemoveCommand,
					},
				},
			},
			{
				Name:  "asset",
				Usage: "Inspect and manage stored assets",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "List a subject's assets with their pipeline stage",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "subject",
								Aliases:  []string{"s"},
								Usage:    "Subject id or name",
								Required: true,
							},
						},
						Action: assetListCommand,
					},
					{
						Name:  "rm",
						Usage: "Delete an asset and everything derived from it",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "subject",
								Aliases:  []string{"s"},
								Usage:    "Subject id or name",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "asset",
								Aliases:  []string{"a"},
								Usage:    "Asset id or filename",
								Required: true,
							},
						},
						Action: assetRemoveCommand,
					},
					{
						Name:  "reset",
						Usage: "Clear an asset's derived data so the next index run starts over",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "subject",
								Aliases:  []string{"s"},
								Usage:    "Subject id or name",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "asset",
								Aliases:  []string{"a"},
								Usage:    "Asset id or filename",
								Required: true,
							},
						},
						Action: assetResetCommand,
					},
				},
			},
			{
				Name:  "reindex",
				Usage: "Rebuild every vector point from the catalog",
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
				},
				Action: reindexCommand,
			},
			{
				Name:   "health",
				Usage:  "Probe the catalog, vector index, data directory, OCR engine and models",
				Action: healthCommand,
			},
		},
	}
}

// setup loads .env, the configuration file and the logger before any command
// runs. Flag overrides win over the configured logging values.
func setup(c *cli.Context) error {
	_ = godotenv.Load()

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	format := cfg.Logging.Format
	if c.IsSet("log-format") {
		format = c.String("log-format")
	}
	if err := setupLogger(level, format); err != nil {
		return err
	}

	c.App.Metadata["config"] = cfg
	return nil
}

func setupLogger(levelStr, format string) error {
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "", "info":
		level = slog.LevelInfo
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

func configFrom(c *cli.Context) *config.Config {
	return c.App.Metadata["config"].(*config.Config)
}

func openLibrary(c *cli.Context) (*lectern.Library, error) {
	return lectern.Open(configFrom(c))
}

// resolveSubject accepts a subject id or display name.
func resolveSubject(ctx context.Context, subjects storage.SubjectRepository, ref string) (*core.Subject, error) {
	subject, err := subjects.GetSubject(ctx, ref)
	if err == nil {
		return subject, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	return subjects.GetSubjectByName(ctx, ref)
}

// resolveAsset accepts an asset id or the original filename within a subject.
func resolveAsset(ctx context.Context, assets storage.AssetRepository, subjectID, ref string) (*core.Asset, error) {
	asset, err := assets.GetAsset(ctx, ref)
	if err == nil && asset.SubjectId == subjectID {
		return asset, nil
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	all, err := assets.ListAssets(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	for _, a := range all {
		if a.Filename == ref {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: asset %q in subject %s", storage.ErrNotFound, ref, subjectID)
}

// parseMeta turns repeated key=value flags into a metadata map.
func parseMeta(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	meta := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid metadata %q: want key=value", pair)
		}
		meta[key] = value
	}
	return meta, nil
}

func initCommand(c *cli.Context) error {
	path := c.String("config")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := config.Default().Save(path); err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", path)
	return nil
}

func subjectAddCommand(c *cli.Context) error {
	ctx := context.Background()

	name := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("subject name is required")
	}
	metadata, err := parseMeta(c.StringSlice("meta"))
	if err != nil {
		return err
	}

	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	subject, err := lib.CreateSubject(ctx, name, metadata)
	if err != nil {
		return err
	}

	fmt.Printf("%s  %s\n", subject.Id, subject.Name)
	return nil
}

func subjectListCommand(c *cli.Context) error {
	ctx := context.Background()

	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	subjects, err := lib.SubjectRepository().ListSubjects(ctx)
	if err != nil {
		return err
	}

	for _, subject := range subjects {
		fmt.Printf("%s  %s  %s\n",
			subject.Id, subject.CreatedAt.Format("2006-01-02"), subject.Name)
	}
	return nil
}

func subjectRemoveCommand(c *cli.Context) error {
	ctx := context.Background()

	ref := c.Args().First()
	if ref == "" {
		return fmt.Errorf("subject id or name is required")
	}

	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	subject, err := resolveSubject(ctx, lib.SubjectRepository(), ref)
	if err != nil {
		return err
	}
	if err := lib.DeleteSubject(ctx, subject.Id); err != nil {
		return err
	}

	fmt.Printf("Deleted subject %s (%s)\n", subject.Name, subject.Id)
	return nil
}

func addCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}

	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	subject, err := resolveSubject(ctx, lib.SubjectRepository(), c.String("subject"))
	if err != nil {
		return err
	}

	for _, path := range c.Args().Slice() {
		asset, err := lib.AddAsset(ctx, subject.Id, path)
		if err != nil {
			return fmt.Errorf("add %s: %w", path, err)
		}
		fmt.Printf("%s  %s\n", asset.Id, asset.Filename)
	}
	return nil
}

func indexCommand(c *cli.Context) error {
	ctx := context.Background()

	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	subject, err := resolveSubject(ctx, lib.SubjectRepository(), c.String("subject"))
	if err != nil {
		return err
	}

	if err := lib.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	pipeline, err := lib.NewPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	fmt.Fprintf(os.Stderr, "Subject: %s (%s)\n", subject.Name, subject.Id)
	fmt.Fprintf(os.Stderr, "Collection: %s\n", configFrom(c).Qdrant.Collection)
	fmt.Fprintln(os.Stderr)

	summary, err := pipeline.ProcessSubject(ctx, subject.Id, ingest.BatchOptions{
		Force: c.Bool("force"),
		Limit: c.Int("limit"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("Processed %d assets: %d indexed, %d missing, %d failed\n",
		summary.Processed, summary.Indexed, summary.SkippedMissing, summary.Failed)
	for _, detail := range summary.Details {
		if detail.Error != "" {
			fmt.Fprintf(os.Stderr, "  %s  %s: %s\n", detail.AssetId, detail.Stage, detail.Error)
		}
	}
	return nil
}

func askCommand(c *cli.Context) error {
	ctx := context.Background()

	question := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("question is required")
	}

	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	subjectID := ""
	if ref := c.String("subject"); ref != "" {
		subject, err := resolveSubject(ctx, lib.SubjectRepository(), ref)
		if err != nil {
			return err
		}
		subjectID = subject.Id
	}

	answerer, err := lib.NewAnswerer()
	if err != nil {
		return err
	}

	result, err := answerer.Ask(ctx, answer.Question{
		SubjectID: subjectID,
		Text:      question,
		TopK:      c.Int("top-k"),
		ForceWeb:  c.Bool("force-web"),
	})
	if err != nil {
		return err
	}

	fmt.Println(result.Text)
	if len(result.Citations) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for i, citation := range result.Citations {
			fmt.Printf("  [%d] %s\n", i+1, formatCitation(citation))
		}
	}
	if result.UsedWeb {
		fmt.Println()
		fmt.Println("Web search was used to supplement the indexed material.")
	}

	if c.Bool("debug") {
		data, err := json.MarshalIndent(result.Debug, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, string(data))
	}
	return nil
}

// formatCitation renders one citation as a single line for the terminal.
func formatCitation(citation answer.Citation) string {
	switch citation.Type {
	case answer.CitationWeb:
		return fmt.Sprintf("web    %s  %s", citation.Title, citation.URL)
	case answer.CitationNotes:
		line := fmt.Sprintf("notes  %s", citation.Source)
		if citation.Section != "" {
			line += "  " + citation.Section
		}
		return line
	default:
		return fmt.Sprintf("slide  %s  page %d  (%.2f)",
			citation.Source, citation.Page, citation.Score)
	}
}

func notesGenerateCommand(c *cli.Context) error {
	ctx := context.Background()

	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	subject, err := resolveSubject(ctx, lib.SubjectRepository(), c.String("subject"))
	if err != nil {
		return err
	}
	asset, err := resolveAsset(ctx, lib.AssetRepository(), subject.Id, c.String("asset"))
	if err != nil {
		return err
	}

	service, err := lib.NewNotesService()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Generating notes for %s...\n", asset.Filename)
	result, err := service.Generate(ctx, subject.Id, asset.Id)
	if err != nil {
		return err
	}

	fmt.Printf("Saved notes %s v%d (%d chunks)\n%s\n",
		result.NotesID, result.Version, result.ChunkCount, result.Path)
	return nil
}

func notesSaveCommand(c *cli.Context) error {
	ctx := context.Background()

	markdown, err := os.ReadFile(c.String("file"))
	if err != nil {
		return fmt.Errorf("read notes file: %w", err)
	}

	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	subject, err := resolveSubject(ctx, lib.SubjectRepository(), c.String("subject"))
	if err != nil {
		return err
	}
	asset, err := resolveAsset(ctx, lib.AssetRepository(), subject.Id, c.String("asset"))
	if err != nil {
		return err
	}

	service, err := lib.NewNotesService()
	if err != nil {
		return err
	}

	result, err := service.Save(ctx, subject.Id, asset.Id,
		c.String("title"), string(markdown), c.StringSlice("url"))
	if err != nil {
		return err
	}

	fmt.Printf("Saved notes %s v%d (%d chunks)\n%s\n",
		result.NotesID, result.Version, result.ChunkCount, result.Path)
	return nil
}

func notesShowCommand(c *cli.Context) error {
	ctx := context.Background()

	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	subject, err := resolveSubject(ctx, lib.SubjectRepository(), c.String("subject"))
	if err != nil {
		return err
	}
	asset, err := resolveAsset(ctx, lib.AssetRepository(), subject.Id, c.String("asset"))
	if err != nil {
		return err
	}

	notes, err := lib.NotesRepository().GetLatestNotes(ctx, subject.Id, asset.Id)
	if err != nil {
		return err
	}

	fmt.Println(notes.Markdown)
	return nil
}

func notesListCommand(c *cli.Context) error {
	ctx := context.Background()

	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	subject, err := resolveSubject(ctx, lib.SubjectRepository(), c.String("subject"))
	if err != nil {
		return err
	}

	var rows []*core.Notes
	if ref := c.String("asset"); ref != "" {
		asset, err := resolveAsset(ctx, lib.AssetRepository(), subject.Id, ref)
		if err != nil {
			return err
		}
		rows, err = lib.NotesRepository().ListNotesByAsset(ctx, subject.Id, asset.Id)
		if err != nil {
			return err
		}
	} else {
		rows, err = lib.NotesRepository().ListNotesBySubject(ctx, subject.Id)
		if err != nil {
			return err
		}
	}

	for _, n := range rows {
		fmt.Printf("%s  v%-3d  %s  %s\n",
			n.Id, n.Version, n.CreatedAt.Format("2006-01-02"), n.Title)
	}
	return nil
}

func notesRemoveCommand(c *cli.Context) error {
	ctx := context.Background()

	notesID := c.Args().First()
	if notesID == "" {
		return fmt.Errorf("notes id is required")
	}

	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	if err := lib.DeleteNotes(ctx, notesID); err != nil {
		return err
	}

	fmt.Printf("Deleted notes %s\n", notesID)
	return nil
}

func assetListCommand(c *cli.Context) error {
	ctx := context.Background()

	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	subject, err := resolveSubject(ctx, lib.SubjectRepository(), c.String("subject"))
	if err != nil {
		return err
	}
	assets, err := lib.AssetRepository().ListAssets(ctx, subject.Id)
	if err != nil {
		return err
	}

	for _, asset := range assets {
		stage, message, err := lib.AssetRepository().GetStage(ctx, asset.Id)
		if errors.Is(err, storage.ErrNotFound) {
			stage = "-"
		} else if err != nil {
			return err
		}

		fmt.Printf("%s  %-8s  %9d  %s", asset.Id, stage, asset.SizeBytes, asset.Filename)
		if message != "" {
			fmt.Printf("  (%s)", message)
		}
		fmt.Println()
	}
	return nil
}

func assetRemoveCommand(c *cli.Context) error {
	ctx := context.Background()

	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	subject, err := resolveSubject(ctx, lib.SubjectRepository(), c.String("subject"))
	if err != nil {
		return err
	}
	asset, err := resolveAsset(ctx, lib.AssetRepository(), subject.Id, c.String("asset"))
	if err != nil {
		return err
	}

	if err := lib.DeleteAsset(ctx, subject.Id, asset.Id); err != nil {
		return err
	}

	fmt.Printf("Deleted asset %s (%s)\n", asset.Filename, asset.Id)
	return nil
}

func assetResetCommand(c *cli.Context) error {
	ctx := context.Background()

	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	subject, err := resolveSubject(ctx, lib.SubjectRepository(), c.String("subject"))
	if err != nil {
		return err
	}
	asset, err := resolveAsset(ctx, lib.AssetRepository(), subject.Id, c.String("asset"))
	if err != nil {
		return err
	}

	if err := lib.ResetAsset(ctx, subject.Id, asset.Id); err != nil {
		return err
	}

	fmt.Printf("Reset asset %s (%s)\n", asset.Filename, asset.Id)
	return nil
}

func reindexCommand(c *cli.Context) error {
	ctx := context.Background()

	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	reindexer, err := lib.NewReindexer(&reindex.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}, os.Stderr)
	if err != nil {
		return err
	}

	cfg := configFrom(c)
	fmt.Fprintf(os.Stderr, "Data dir: %s\n", cfg.DataDir)
	fmt.Fprintf(os.Stderr, "Collection: %s\n", cfg.Qdrant.Collection)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", cfg.AI.EmbeddingModel)
	fmt.Fprintln(os.Stderr)

	if err := reindexer.Run(ctx); err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}
	return nil
}

func healthCommand(c *cli.Context) error {
	ctx := context.Background()

	lib, err := openLibrary(c)
	if err != nil {
		return err
	}
	defer lib.Close()

	report := lib.Health(ctx)
	for _, check := range report.Checks {
		status := "ok"
		detail := check.Detail
		if !check.OK {
			status = "fail"
			detail = check.Error
		}
		fmt.Printf("%-4s  %-12s  %s\n", status, check.Component, detail)
	}

	if !report.OK {
		return fmt.Errorf("health check failed")
	}
	return nil
}
