package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/icd-mapper/pkg/coding"
	"github.com/synaptica-ai/icd-mapper/pkg/common/config"
	"github.com/synaptica-ai/icd-mapper/pkg/common/database"
	"github.com/synaptica-ai/icd-mapper/pkg/common/kafka"
	"github.com/synaptica-ai/icd-mapper/pkg/common/logger"
	"github.com/synaptica-ai/icd-mapper/pkg/common/middleware"
	"github.com/synaptica-ai/icd-mapper/pkg/icdmap"
	"github.com/synaptica-ai/icd-mapper/pkg/observability/metrics"
	"github.com/synaptica-ai/icd-mapper/pkg/terminology"
)

const auditCleanupInterval = time.Hour

func main() {
	logger.Init()
	cfg := config.Load()

	// reference data is loaded before anything starts serving
	engine := buildEngine(cfg)
	metrics.SetVocabularySize(engine.Vocabulary().Len())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var opts []coding.Option

	if cfg.CacheEnabled {
		opts = append(opts, coding.WithCache(coding.NewRedisCache(database.GetRedis(cfg), cfg.CacheTTL)))
		defer database.CloseRedis()
	}

	if cfg.AuditEnabled {
		if repo := openAuditRepository(cfg); repo != nil {
			opts = append(opts, coding.WithStore(repo))
			defer database.ClosePostgres()
			go cleanupAuditRuns(ctx, repo, cfg.AuditRetention)
		}
	}

	if cfg.KafkaEnabled {
		producer := kafka.NewProducer(cfg, cfg.KafkaSuggestionsTopic)
		defer producer.Close()
		dlq := kafka.NewProducer(cfg, cfg.KafkaDLQTopic)
		defer dlq.Close()
		opts = append(opts, coding.WithPublisher(producer, dlq))
	}

	service := coding.NewService(engine, opts...)

	if cfg.KafkaEnabled {
		consumer := kafka.NewConsumer(cfg, cfg.KafkaConceptsTopic, cfg.KafkaGroupID)
		defer consumer.Close()

		go func() {
			if err := consumer.Consume(ctx, service.HandleConceptEvent); err != nil && !errors.Is(err, context.Canceled) {
				logger.Log.WithError(err).Error("Consumer error")
			}
		}()
	}

	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))
	coding.NewHandler(service).Register(router)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      middleware.CORS(router),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":  cfg.ServerHost,
			"port":  cfg.ServerPort,
			"kafka": cfg.KafkaEnabled,
			"cache": cfg.CacheEnabled,
			"audit": cfg.AuditEnabled,
		}).Info("ICD Mapper Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down ICD Mapper Service...")
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("ICD Mapper Service stopped")
}

func buildEngine(cfg *config.Config) *icdmap.Engine {
	log := logger.Component("startup")

	vocab, err := terminology.LoadVocabulary(cfg.ICD10CodesPath, cfg.ICD10CSVPath)
	if err != nil {
		log.WithError(err).Warn("ICD-10 reference files unavailable")
	}
	log.WithFields(map[string]interface{}{
		"source": vocab.Source(),
		"codes":  vocab.Len(),
	}).Info("Loaded ICD-10 vocabulary")

	tables, err := terminology.LoadMappingTables(cfg.MappingsPath)
	if err != nil {
		log.WithError(err).Warn("Using fallback condition mappings")
	}
	log.WithFields(map[string]interface{}{
		"specific_conditions": len(tables.SpecificConditions),
		"synonym_groups":      len(tables.Synonyms),
		"exclusions":          len(tables.MedicationExclusions),
	}).Info("Loaded condition mappings")

	return icdmap.NewEngine(vocab, tables,
		icdmap.WithFuzzyThreshold(cfg.FuzzyThreshold),
		icdmap.WithFuzzyWorkers(cfg.FuzzyWorkers),
		icdmap.WithRankPolicy(icdmap.RankPolicy{
			SpecificCap: cfg.SpecificCap,
			Window:      cfg.SuggestionCap,
		}),
	)
}

func openAuditRepository(cfg *config.Config) *coding.Repository {
	db, err := database.GetPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Warn("Mapping audit disabled: database unavailable")
		return nil
	}
	repo := coding.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Warn("Mapping audit disabled: migration failed")
		return nil
	}
	return repo
}

func cleanupAuditRuns(ctx context.Context, repo *coding.Repository, retention time.Duration) {
	ticker := time.NewTicker(auditCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := repo.CleanupExpired(ctx, retention); err != nil {
				logger.Log.WithError(err).Warn("Failed to clean up mapping runs")
			}
		}
	}
}
