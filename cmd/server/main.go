package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/holo2k/AdvertControl-sub000/internal/broker"
	"github.com/holo2k/AdvertControl-sub000/internal/resolver"
	"github.com/holo2k/AdvertControl-sub000/internal/store"
	transport "github.com/holo2k/AdvertControl-sub000/internal/transport/http"
	"github.com/holo2k/AdvertControl-sub000/internal/utils"
	"github.com/holo2k/AdvertControl-sub000/pkg/storage"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	config := utils.LoadServerConfig()

	db, err := store.Open(config.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	// Without object storage, direct asset references still work; only
	// storage-backed references need the signer.
	var signer storage.URLSigner
	if config.StorageEndpoint != "" {
		objectStorage, err := storage.NewObjectStorage(
			config.StorageEndpoint, config.StorageAccess, config.StorageSecret,
			config.StorageBucket, config.StorageUseSSL,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to object storage")
		}
		signer = objectStorage
	}

	pairingBroker := broker.NewBroker(db, config.AssignmentTTL, log)
	if err := pairingBroker.Start(config.JanitorPeriod); err != nil {
		log.Fatal().Err(err).Msg("Failed to start pairing broker")
	}
	defer pairingBroker.Stop()

	configResolver := resolver.NewResolver(db, signer, config.SignedURLTTL, log)

	server := transport.NewServer(
		pairingBroker, configResolver, db, signer,
		time.Duration(config.MaxCodeMinutes)*time.Minute, config.SignedURLTTL, log,
	)

	httpServer := &http.Server{
		Addr:         config.Addr,
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", config.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
}
