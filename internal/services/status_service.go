package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/mem"

	"github.com/holo2k/AdvertControl-sub000/internal/models"
	"github.com/holo2k/AdvertControl-sub000/pkg/identity"
	"github.com/holo2k/AdvertControl-sub000/pkg/mqtt"
)

// StatusService periodically publishes the device's status over MQTT: the
// state machine's current state, the loops' status line and a few host
// gauges. Playback never depends on it; failures are logged and dropped.
type StatusService struct {
	PubTopic   string
	Interval   time.Duration
	QOS        int
	ScreenInfo identity.ScreenInfoInterface
	StateFn    func() string
	StatusFn   func() string
	MqttClient mqtt.MQTTClient
	Logger     zerolog.Logger

	startedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewStatusService initializes a new StatusService.
func NewStatusService(pubTopic string, interval time.Duration, qos int, screenInfo identity.ScreenInfoInterface,
	stateFn func() string, statusFn func() string, mqttClient mqtt.MQTTClient, logger zerolog.Logger) *StatusService {

	return &StatusService{
		PubTopic:   pubTopic,
		Interval:   interval,
		QOS:        qos,
		ScreenInfo: screenInfo,
		StateFn:    stateFn,
		StatusFn:   statusFn,
		MqttClient: mqttClient,
		Logger:     logger,
	}
}

// Start launches the status loop in a separate goroutine.
func (s *StatusService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		s.Logger.Warn().Msg("StatusService is already running")
		return errors.New("status service is already running")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.startedAt = time.Now()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runStatusLoop()
	}()

	s.Logger.Info().Str("topic", s.PubTopic).Msg("StatusService started successfully")
	return nil
}

// Stop gracefully stops the status service.
func (s *StatusService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		s.Logger.Warn().Msg("StatusService is not running")
		return errors.New("status service is not running")
	}

	s.cancel()
	s.wg.Wait()

	s.ctx = nil
	s.cancel = nil

	s.Logger.Info().Msg("StatusService stopped successfully")
	return nil
}

// runStatusLoop publishes status events at the configured interval.
func (s *StatusService) runStatusLoop() {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.publishStatus()
		case <-s.ctx.Done():
			s.Logger.Info().Msg("StatusService stopping gracefully")
			return
		}
	}
}

func (s *StatusService) publishStatus() {
	status := models.DeviceStatus{
		ScreenID:      s.ScreenInfo.GetScreenID(),
		State:         s.StateFn(),
		StatusText:    s.StatusFn(),
		Timestamp:     time.Now(),
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	}

	if percentages, err := cpu.Percent(0, false); err == nil && len(percentages) > 0 {
		status.CPUPercent = percentages[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		status.MemoryPercent = vm.UsedPercent
	}
	if du, err := disk.Usage("/"); err == nil {
		status.DiskPercent = du.UsedPercent
	}

	payload, err := json.Marshal(status)
	if err != nil {
		s.Logger.Error().Err(err).Msg("Failed to serialize status message")
		return
	}

	token := s.MqttClient.Publish(s.PubTopic, byte(s.QOS), false, payload)
	token.Wait()

	if err := token.Error(); err != nil {
		s.Logger.Error().Err(err).Msg("Failed to publish status message")
	} else {
		s.Logger.Debug().Msg("Status published successfully")
	}
}
