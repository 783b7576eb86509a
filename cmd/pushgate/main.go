package main

import (
	"context"
	"crypto/rsa"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/mithileshchellappan/pushgate/internal/apns"
	"github.com/mithileshchellappan/pushgate/internal/archive"
	"github.com/mithileshchellappan/pushgate/internal/auth"
	"github.com/mithileshchellappan/pushgate/internal/config"
	"github.com/mithileshchellappan/pushgate/internal/dispatch"
	"github.com/mithileshchellappan/pushgate/internal/events"
	"github.com/mithileshchellappan/pushgate/internal/fcm"
	"github.com/mithileshchellappan/pushgate/internal/keystore"
	"github.com/mithileshchellappan/pushgate/internal/scheduler"
	"github.com/mithileshchellappan/pushgate/internal/server"
	"github.com/mithileshchellappan/pushgate/internal/service"
	"github.com/mithileshchellappan/pushgate/internal/storage"
	"github.com/mithileshchellappan/pushgate/internal/worker"
	"github.com/mithileshchellappan/pushgate/pkg/logger"
	"github.com/mithileshchellappan/pushgate/pkg/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logger.New(cfg.LogLevel))

	var store storage.Store
	var err error

	switch cfg.DatabaseDriver {
	case "sqlite":
		store, err = storage.NewSQLStore(cfg.DatabaseURL)
	case "postgres":
		store, err = storage.NewPostgresStore(cfg.DatabaseURL)
	default:
		slog.Error("unsupported database driver", "driver", cfg.DatabaseDriver)
		os.Exit(1)
	}
	if err != nil {
		slog.Error("cannot create store", "error", err)
		os.Exit(1)
	}

	var keys keystore.Store
	if cfg.RedisAddr != "" {
		keys = keystore.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		slog.Info("signature verification enabled", "redis", cfg.RedisAddr)
	} else {
		slog.Warn("REDIS_ADDR not configured, signature verification disabled")
	}

	var archiver archive.Archiver
	if cfg.MinioEndpoint != "" {
		minioArchiver, err := archive.NewMinioArchiver(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseTLS, cfg.MinioBucket)
		if err != nil {
			slog.Error("cannot create archiver", "error", err)
			os.Exit(1)
		}
		if err := minioArchiver.EnsureBucket(context.Background()); err != nil {
			slog.Error("cannot ensure archive bucket", "bucket", cfg.MinioBucket, "error", err)
			os.Exit(1)
		}
		archiver = minioArchiver
		slog.Info("archiver initialized", "endpoint", cfg.MinioEndpoint, "bucket", cfg.MinioBucket)
	} else {
		slog.Warn("MINIO_ENDPOINT not configured, archiving disabled")
	}

	var publisher *events.Publisher
	if cfg.KafkaBrokers != "" {
		var signingKey *rsa.PrivateKey
		if cfg.ServerKeyPath != "" {
			signingKey, err = auth.LoadPrivateKeyFile(cfg.ServerKeyPath)
			if err != nil {
				slog.Error("cannot load server signing key", "path", cfg.ServerKeyPath, "error", err)
				os.Exit(1)
			}
		}
		publisher = events.NewPublisher(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaReceiptTopic, signingKey)
		slog.Info("delivery event publisher initialized", "topic", cfg.KafkaReceiptTopic, "signed", signingKey != nil)
	} else {
		slog.Warn("KAFKA_BROKERS not configured, delivery events disabled")
	}

	dispatchers := make(map[string]dispatch.Dispatcher)

	if cfg.APNSKeyID != "" {
		apnsKeyPath := cfg.APNSKeyPath
		if apnsKeyPath == "" {
			apnsKeyPath = "keys/AuthKey_" + cfg.APNSKeyID + ".p8"
		}
		p8Bytes, err := os.ReadFile(apnsKeyPath)
		if err != nil {
			slog.Warn("APNS disabled, cannot read key file", "path", apnsKeyPath, "error", err)
		} else {
			dispatchers[dispatch.PlatformAPNS] = apns.NewClient(p8Bytes, cfg.APNSKeyID, cfg.APNSTeamID, cfg.APNSTopicID, cfg.APNSSandbox)
			slog.Info("APNS dispatcher initialized")
		}
	} else {
		slog.Warn("APNS disabled, APNS_KEY_ID not configured")
	}

	serviceAccountBytes, err := os.ReadFile(cfg.FCMKeyPath)
	if err != nil {
		slog.Warn("FCM disabled, cannot read service account", "path", cfg.FCMKeyPath, "error", err)
	} else {
		fcmClient, err := fcm.NewClient(context.Background(), serviceAccountBytes)
		if err != nil {
			slog.Warn("FCM disabled, cannot create client", "error", err)
		} else {
			dispatchers[dispatch.PlatformFCM] = fcmClient
			slog.Info("FCM dispatcher initialized")
		}
	}

	if len(dispatchers) == 0 {
		slog.Warn("no push notification dispatchers configured")
	}

	m := metrics.New()

	pushgateService := service.NewPushgateService(store, archiver)

	workerPool := worker.NewPool(store, dispatchers, publisher, m, cfg.WorkerCount, cfg.SenderCount, cfg.JobQueueSize, cfg.BatchSize)
	workerPool.Start()

	sched := scheduler.New(store, workerPool, 10)
	sched.Start()

	httpServer := server.New(pushgateService, workerPool, keys, m, int64(cfg.SignatureSkewSeconds))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := httpServer.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			slog.Error("could not start server", "error", err)
			stop()
		}
	}()
	<-ctx.Done()

	slog.Info("shutdown signal received, stopping app")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	sched.Stop()
	workerPool.Stop()

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			slog.Error("error closing event publisher", "error", err)
		}
	}
	if keys != nil {
		if err := keys.Close(); err != nil {
			slog.Error("error closing keystore", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}

	slog.Info("server exiting")
}
