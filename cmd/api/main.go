package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"thooimai-go/internal/config"
	"thooimai-go/internal/dataset"
	"thooimai-go/internal/extractor"
	"thooimai-go/internal/logger"
	"thooimai-go/internal/metrics"
	"thooimai-go/internal/pipeline"
	"thooimai-go/internal/records"
	"thooimai-go/internal/sarvam"
	"thooimai-go/internal/server"
	"thooimai-go/internal/storage"
	"thooimai-go/internal/synthesis"
	"thooimai-go/internal/transcription"
	"thooimai-go/internal/translation"
)

const service = "thooimai-go"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithOptions(cfg.Environment, cfg.LogLevel, os.Stdout)
	log.WithField("service", service).Info("starting service")

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	creds := &config.EnvCredentials{Reload: cfg.ReloadCredentials}
	if c := creds.CurrentCredentials(); c.SarvamAPIKey == "" || c.LLMAPIKey == "" {
		log.Warn("SARVAM_API_KEY or LLM_API_KEY is not set; provider calls will be rejected")
	}

	// locality gazetteer is optional prompt grounding
	var localities []dataset.Locality
	if cfg.LocalityDatasetPath != "" {
		log.WithField("dataset_path", cfg.LocalityDatasetPath).Info("loading locality dataset")
		localities, err = dataset.LoadLocalities(cfg.LocalityDatasetPath, log)
		if err != nil {
			log.WithError(err).Warn("locality dataset not loaded, continuing without it")
		} else {
			log.WithField("localities", len(localities)).Info("locality dataset loaded")
		}
	}

	objects, err := storage.NewMinioStore(storage.MinioConfig{
		Endpoint:   cfg.MinioEndpoint,
		AccessKey:  cfg.MinioAccessKey,
		SecretKey:  cfg.MinioSecretKey,
		Bucket:     cfg.AudioBucket,
		Region:     cfg.MinioRegion,
		UseSSL:     cfg.MinioUseSSL,
		PublicBase: cfg.MinioPublicBase,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("failed to create object store")
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		log.WithError(err).Fatal("failed to prepare bucket")
	}

	store, err := records.Connect(ctx, cfg.MongoURI, cfg.MongoDB, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to record store")
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = store.Close(cctx)
	}()
	if err := store.EnsureIndexes(ctx, cfg.ReportsTable); err != nil {
		log.WithError(err).Warn("failed to create report indexes")
	}

	httpClient := &http.Client{}
	client := sarvam.New(sarvam.Options{
		BaseURL:     cfg.SarvamBaseURL,
		Credentials: creds,
		HTTPClient:  httpClient,
		MaxRetries:  cfg.MaxRetries,
		Logger:      log,
	})

	m := metrics.New()
	asm := pipeline.New(pipeline.Deps{
		Recognizer:  transcription.NewRecognizer(client, cfg.RecognizeTimeout, log),
		Translator:  translation.NewTranslator(client, cfg.ProviderTimeout, log),
		Synthesizer: synthesis.NewSynthesizer(client, cfg.ProviderTimeout, log),
		Extractor: extractor.New(extractor.Options{
			BaseURL:     cfg.LLMBaseURL,
			Model:       cfg.LLMModel,
			Credentials: creds,
			HTTPClient:  httpClient,
			Timeout:     cfg.ProviderTimeout,
			MaxRetries:  cfg.MaxRetries,
			City:        cfg.CityName,
			Localities:  localities,
			Logger:      log,
		}),
		Objects: objects,
		Records: store,
		Table:   cfg.ReportsTable,
		City:    cfg.CityName,
		Logger:  log,
		Metrics: m,
	})

	srv, err := server.New(server.Options{
		Service:     service,
		Assembler:   asm,
		Logger:      log,
		Metrics:     m,
		JWTSecret:   cfg.AuthJWTSecret,
		RateLimit:   cfg.RateLimit,
		CORSOrigins: cfg.CORSOrigins,
		MaxUploadMB: cfg.MaxUploadMB,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to build server")
	}

	addr := fmt.Sprintf(":%s", cfg.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.WithError(err).Fatal("failed to listen")
	}
	log.WithField("addr", addr).WithField("auth", cfg.AuthJWTSecret != "").Info("listening")
	// returns only after in-flight reports finish, so the store stays open for them
	if err := server.Serve(ctx, httpSrv, ln, 30*time.Second, log); err != nil {
		log.WithError(err).Error("server terminated")
	}
}
