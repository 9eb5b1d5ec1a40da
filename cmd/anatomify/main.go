package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sgchandra/anatomify/internal/anki"
	"github.com/sgchandra/anatomify/internal/config"
	"github.com/sgchandra/anatomify/internal/document"
	"github.com/sgchandra/anatomify/internal/export"
	"github.com/sgchandra/anatomify/internal/gemini"
	"github.com/sgchandra/anatomify/internal/imaging"
	"github.com/sgchandra/anatomify/internal/pipeline"
	"github.com/sgchandra/anatomify/internal/scanner"
	"github.com/sgchandra/anatomify/pkg/logger"
	"github.com/sgchandra/anatomify/pkg/models"
	"github.com/sgchandra/anatomify/pkg/updater"
	"github.com/sgchandra/anatomify/pkg/version"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	filePath := flag.String("file", "", "single document to process (pdf, png, jpg)")
	dirPath := flag.String("dir", "", "directory of documents to process")
	formatName := flag.String("format", "", "export format: csv, mobile-text, markdown, archive (overrides config)")
	outputDir := flag.String("output-dir", "exports", "directory to write export artifacts")
	deckName := flag.String("deck", "", "deck name (overrides config)")
	cardCount := flag.Int("cards", 0, "card count (0 = use the analysis recommendation)")
	language := flag.String("lang", "", "generation language (default: document language)")
	push := flag.Bool("push", false, "also push cards to a running Anki via AnkiConnect")
	checkUpdates := flag.Bool("check-updates", false, "check for a newer release and exit")
	verbose := flag.Bool("verbose", false, "enable verbose logging")
	debug := flag.Bool("debug", false, "enable debug mode with trace logging")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	log := logger.New(logger.WithPrefix("[anatomify] "))
	log.SetVerbose(*verbose)
	if *debug {
		log.SetLevel(logger.LevelTrace)
	}

	if *showVersion {
		fmt.Println(version.GetDetailedVersionInfo())
		return
	}

	if *checkUpdates {
		info, err := updater.NewChecker(log).CheckForUpdates()
		if err != nil {
			log.Fatal("Update check failed: %v", err)
		}
		if info != nil && info.IsAvailable {
			fmt.Printf("Update available: %s -> %s\n%s\n", info.CurrentVersion, info.LatestVersion, info.DownloadURL)
		} else {
			fmt.Println("Already up to date.")
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatal("Error loading config: %v", err)
		}
		log.Debug("No config file at %s, using defaults", *configPath)
		cfg = config.Default()
	}

	if *deckName != "" {
		cfg.DeckName = *deckName
	}
	if *formatName != "" {
		cfg.DefaultFormat = *formatName
	}

	format, err := models.ParseExportFormat(cfg.DefaultFormat)
	if err != nil {
		log.Fatal("%v", err)
	}

	if *filePath == "" && *dirPath == "" {
		log.Fatal("Provide a document with -file or a directory with -dir")
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatal("Error creating output directory: %v", err)
	}

	ctx := context.Background()

	client := gemini.NewClient(gemini.Config{
		BaseURL: cfg.Service.BaseURL,
		APIKey:  cfg.Service.APIKey,
		Model:   cfg.Service.Model,
	}, log)

	limits := imaging.Limits{
		MaxIngestDim:   cfg.Annotation.MaxIngestDim,
		MaxAnnotateDim: cfg.Annotation.MaxAnnotateDim,
		JPEGQuality:    cfg.Annotation.JPEGQuality,
	}

	loader := document.NewLoader(log)
	orch := pipeline.New(client, client,
		imaging.NewAnnotator(log, imaging.WithLimits(limits)),
		newSerializer(cfg), log,
		pipeline.WithLimits(limits))

	var ankiService *anki.Service
	if *push {
		ankiService = anki.NewService(log)
		ankiService.SetURL(cfg.AnkiConnectURL)
		log.Debug("Checking Anki connection...")
		if err := ankiService.CheckConnection(); err != nil {
			log.Fatal("Anki connection error: %v", err)
		}
		log.Info("Successfully connected to Anki")
	}

	paths := collectPaths(ctx, log, *filePath, *dirPath)

	var failures int
	for _, path := range paths {
		if err := processDocument(ctx, log, loader, client, orch, ankiService, cfg, path, *outputDir, format, *cardCount, *language); err != nil {
			log.Warn("Skipping %s: %v", path, err)
			failures++
		}
	}

	if failures > 0 {
		log.Fatal("%d of %d documents failed", failures, len(paths))
	}
	log.Info("Done: %d document(s) exported to %s", len(paths), *outputDir)
}

func collectPaths(ctx context.Context, log *logger.Logger, filePath, dirPath string) []string {
	if filePath != "" {
		return []string{filePath}
	}

	log.Info("Scanning directory: %s", dirPath)
	docs, err := scanner.New(log).FindDocuments(ctx, dirPath)
	if err != nil {
		log.Fatal("Error finding documents: %v", err)
	}
	log.Info("Found %d documents to process", len(docs))

	paths := make([]string, 0, len(docs))
	for _, d := range docs {
		paths = append(paths, d.AbsolutePath)
	}
	return paths
}

func newSerializer(cfg *config.Config) *export.Serializer {
	if cfg.FlatMedia != nil && !*cfg.FlatMedia {
		return export.NewSerializer(export.WithNestedMedia())
	}
	return export.NewSerializer()
}

func processDocument(ctx context.Context, log *logger.Logger, loader *document.Loader, client *gemini.Client, orch *pipeline.Orchestrator, ankiService *anki.Service, cfg *config.Config, path, outputDir string, format models.ExportFormat, cardCount int, language string) error {
	src, err := loader.Load(path)
	if err != nil {
		return err
	}

	analysis, err := client.AnalyzeDocument(ctx, src.Data, src.MediaType)
	if err != nil {
		return err
	}
	log.Info("%s: %s (%s), %d cards recommended", src.Filename, analysis.Topic, analysis.Language, analysis.RecommendedCards)
	log.Debug("analysis rationale: %s", analysis.Rationale)

	// An imagery-dominant scan gets the image treatment: rasterize the
	// first page and annotate it like a photo.
	if !src.IsImage() && analysis.HasImagery {
		data, mediaType, err := loader.RasterizeFirstPage(path)
		if err != nil {
			log.Warn("Could not rasterize %s, keeping PDF pipeline: %v", src.Filename, err)
		} else {
			src.Data = data
			src.MediaType = mediaType
		}
	}

	prefs := models.GenerationPrefs{
		CardCount: cardCount,
		Language:  language,
		DeckName:  cfg.DeckName,
	}
	if prefs.CardCount == 0 {
		prefs.CardCount = analysis.RecommendedCards
	}

	artifact, cards, err := orch.Run(ctx, src, prefs, format)
	if err != nil {
		return err
	}

	outPath := filepath.Join(outputDir, artifact.Filename)
	if err := os.WriteFile(outPath, artifact.Data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	orch.MarkDelivered()
	log.Info("Wrote %s (%d cards)", outPath, len(cards))

	if ankiService != nil {
		deck := anki.GetDeckNameFromPath(cfg.DeckName, src.Filename)
		if err := ankiService.CreateDeck(deck); err != nil {
			return fmt.Errorf("failed to create deck: %w", err)
		}
		if err := ankiService.AddAllFlashcards(deck, cards); err != nil {
			return err
		}
		log.Info("Pushed %d cards to deck %s", len(cards), deck)
	}

	return nil
}
