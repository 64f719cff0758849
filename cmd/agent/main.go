package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/holo2k/AdvertControl-sub000/internal/agent"
	"github.com/holo2k/AdvertControl-sub000/internal/api"
	"github.com/holo2k/AdvertControl-sub000/internal/cache"
	"github.com/holo2k/AdvertControl-sub000/internal/display"
	"github.com/holo2k/AdvertControl-sub000/internal/utils"
	"github.com/holo2k/AdvertControl-sub000/pkg/file"
	"github.com/holo2k/AdvertControl-sub000/pkg/identity"
	"github.com/holo2k/AdvertControl-sub000/pkg/mqtt"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	fileClient := file.NewFileService()

	config, err := utils.LoadConfig(configPath, fileClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	screenInfo := identity.NewScreenInfo(config.Identity.ScreenFile, fileClient)
	if err := screenInfo.LoadScreenInfo(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load screen identity")
	}

	client := api.NewClient(config.Server.BaseURL, config.Server.Timeout, log)

	contentCache, err := cache.NewContentCache(config.Cache.Dir, config.Cache.MaxBytes, client, fileClient, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize content cache")
	}

	renderer := display.NewLogRenderer(log)

	// Status publishing is optional; the agent pairs and plays without it.
	var mqttClient mqtt.MQTTClient
	if config.Status.Enabled {
		clientID := config.Status.ClientID + "-" + uuid.New().String()
		mqttService := mqtt.NewMqttService(fileClient)
		if err := mqttService.Initialize(config.Status.Broker, clientID, config.Status.CACertificate); err != nil {
			log.Error().Err(err).Msg("Failed to initialize MQTT connection, status publishing disabled")
		} else {
			mqttClient = mqttService
			defer mqttService.Disconnect(250)
		}
	}

	hostname, _ := os.Hostname()
	deviceInfo, _ := json.Marshal(map[string]string{"hostname": hostname})

	machine := agent.NewStateMachine(config, client, screenInfo, renderer, contentCache, mqttClient, deviceInfo, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := machine.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("Agent terminated unexpectedly")
	}

	log.Info().Msg("Shutting down gracefully...")
}
