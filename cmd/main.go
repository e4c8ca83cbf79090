package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"document-assistant/internal/api"
	"document-assistant/internal/chromemdb"
	"document-assistant/internal/config"
	"document-assistant/internal/db"
	"document-assistant/internal/embedding"
	"document-assistant/internal/helper"
	"document-assistant/internal/llmservice"
	"document-assistant/internal/models"
	"document-assistant/internal/parser"
	"document-assistant/internal/rag"
	"document-assistant/internal/session"
)

const defaultConfigPath = "./configs/config.yaml"

// Version is set at build time.
var Version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to the YAML config file")
	filePath := flag.String("file", "", "Path to the document file")
	query := flag.String("query", "", "Question to answer against -file")
	dryRun := flag.Bool("dry-run", false, "Print the chunks of -file and exit without calling the LLM")
	flag.Parse()

	setupLogger(config.LogConfig{Level: "info"})

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	setupLogger(cfg.Log)
	log.Debug().Interface("config", redacted(cfg)).Msg("Loaded config")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *query != "" && *filePath == "" {
		log.Fatal().Msg("Please provide the document to ask about using the -file flag")
	}

	if *filePath != "" {
		if err := runFile(ctx, cfg, *filePath, *query, *dryRun); err != nil {
			log.Fatal().Err(err).Msg("Error processing file")
		}
		return
	}

	if err := runServer(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
}

func setupLogger(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		zerolog.TimeFieldFormat = time.RFC3339
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()
		return
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()
}

// redacted returns a copy of cfg safe to log.
func redacted(cfg *config.Config) config.Config {
	c := *cfg
	if c.LLM.Key != "" {
		c.LLM.Key = "***"
	}
	if c.Embedding.Key != "" {
		c.Embedding.Key = "***"
	}
	if c.Database.DSN != "" {
		c.Database.DSN = "***"
	}
	return c
}

// newAssistant builds the RAG service. Without a credential the service still
// serves uploads and reports; LLM operations report the missing key.
func newAssistant(ctx context.Context, cfg *config.Config) (*rag.Service, error) {
	var llm llmservice.Client
	if cfg.HasLLMKey() {
		client, err := llmservice.New(ctx, cfg.LLM)
		if err != nil {
			return nil, err
		}
		llm = client
	} else {
		log.Warn().Str("provider", cfg.LLM.Provider).Msg("LLM API key is not configured, summaries and answers are disabled")
	}

	var ranker rag.Ranker
	if cfg.RAG.Strategy == config.StrategySimilarity {
		embedder, err := embedding.NewEmbedder(cfg.Embedding)
		if err != nil {
			return nil, err
		}
		ranker = chromemdb.NewRanker(embedder)
		log.Info().Int("top_k", cfg.RAG.TopK).Msg("Similarity ranking enabled")
	}

	return rag.NewService(llm, ranker, cfg.RAG), nil
}

func newRecorder(ctx context.Context, cfg *config.Config) (db.Recorder, error) {
	if !cfg.Database.Enabled {
		return db.NopRecorder{}, nil
	}
	rec, err := db.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("Recording turns and feedback to database")
	return rec, nil
}

func runServer(ctx context.Context, cfg *config.Config) error {
	assistant, err := newAssistant(ctx, cfg)
	if err != nil {
		return err
	}
	recorder, err := newRecorder(ctx, cfg)
	if err != nil {
		return err
	}
	defer recorder.Close()

	sessions := session.NewManager(cfg.Server.MaxSessions)
	go sessions.RunCleanup(ctx,
		time.Duration(cfg.Server.CleanupIntervalMinutes)*time.Minute,
		time.Duration(cfg.Server.SessionTimeoutMinutes)*time.Minute,
	)

	h := api.NewHandler(sessions, assistant, recorder, Version)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	api.SetupMiddleware(e, &cfg.Server)
	api.RegisterRoutes(e, h)

	srv := &http.Server{
		Addr:         cfg.ServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", Version).Msg("Starting server")
		if err := e.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// runFile handles the one-shot CLI mode.
func runFile(ctx context.Context, cfg *config.Config, path, query string, dryRun bool) error {
	doc, chunks, err := parser.ParseFile(path, cfg.RAG.ChunkSize)
	if err != nil {
		return err
	}
	log.Info().Str("file", doc.Filename).Int("chunks", len(chunks)).Msg("Parsed document")

	if dryRun {
		return helper.PrettyPrint(os.Stdout, chunks)
	}

	assistant, err := newAssistant(ctx, cfg)
	if err != nil {
		return err
	}

	if query == "" {
		summary, err := assistant.Summarize(ctx, doc)
		if err != nil {
			return err
		}
		log.Info().Msg("Summary: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
		fmt.Printf("%s\n\n", summary.Text)
		log.Info().Msg("Smart questions: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
		for i, q := range summary.Questions {
			fmt.Printf("%d. %s\n", i+1, q)
		}
		return nil
	}

	sess, err := session.New(filepath.Base(path), models.ModeClientAsks)
	if err != nil {
		return err
	}
	if err := sess.AddDocument(doc); err != nil {
		return err
	}
	resp, err := assistant.Ask(ctx, sess, query)
	if err != nil {
		return err
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", resp.Query)
	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", resp.Answer)
	return nil
}
