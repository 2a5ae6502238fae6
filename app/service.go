package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/voltbridge/ocpp-gateway/api/commands"
	"github.com/voltbridge/ocpp-gateway/api/devices"
	"github.com/voltbridge/ocpp-gateway/config"
	"github.com/voltbridge/ocpp-gateway/core/command"
	"github.com/voltbridge/ocpp-gateway/core/devicestate"
	"github.com/voltbridge/ocpp-gateway/core/dispatch"
	coreledger "github.com/voltbridge/ocpp-gateway/core/ledger"
	coremetrics "github.com/voltbridge/ocpp-gateway/core/metrics"
	coremqtt "github.com/voltbridge/ocpp-gateway/core/mqtt"
	"github.com/voltbridge/ocpp-gateway/core/ocpp"
	infraledger "github.com/voltbridge/ocpp-gateway/infra/ledger"
	"github.com/voltbridge/ocpp-gateway/infra/logger"
	"github.com/voltbridge/ocpp-gateway/infra/metrics"
	"github.com/voltbridge/ocpp-gateway/infra/mqtt"
	"github.com/voltbridge/ocpp-gateway/infra/shadow"
	"github.com/voltbridge/ocpp-gateway/internal/eventbus"
)

// Service orchestrates the dispatcher, command sender and the API servers.
type Service struct {
	Dispatcher *dispatch.Dispatcher
	Sender     *command.Sender
	Store      *devicestate.MemoryStore

	cfg    *config.Config
	client coremqtt.Client
	led    coreledger.Ledger
	bus    eventbus.EventBus
	sink   coremetrics.Sink
	log    logger.Logger

	closers []func() error
}

// New creates a Service from the configuration.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	client, err := mqtt.NewPahoClient(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("mqtt client: %w", err)
	}
	return newWithClient(ctx, cfg, client, logg)
}

// NewWithClient creates a Service wired to a caller-supplied MQTT client.
// Used by integration tests.
func NewWithClient(ctx context.Context, cfg *config.Config, client coremqtt.Client) (*Service, error) {
	return newWithClient(ctx, cfg, client, logger.New("service"))
}

func newWithClient(ctx context.Context, cfg *config.Config, client coremqtt.Client, logg logger.Logger) (*Service, error) {
	svc := &Service{cfg: cfg, client: client, log: logg}

	led, err := svc.buildLedger(ctx)
	if err != nil {
		client.Close()
		return nil, err
	}
	svc.led = led

	sink := svc.buildSink()
	svc.sink = sink
	bus := eventbus.New()
	svc.bus = bus
	svc.closers = append(svc.closers, func() error { bus.Close(); return nil })

	store := devicestate.NewMemoryStore()
	svc.Store = store
	var stateStore devicestate.Store = store
	if cfg.Gateway.ShadowEnabled {
		stateStore = devicestate.NewMultiStore(store, shadow.NewPublisher(client))
	}

	heartbeat := time.Duration(cfg.Gateway.HeartbeatIntervalSeconds) * time.Second
	registry := dispatch.DefaultRegistry(stateStore, heartbeat, logg)
	resultHandler := dispatch.NewCommandResultHandler(stateStore, bus, logg)

	disp, err := dispatch.NewDispatcher(registry, led,
		dispatch.DefaultResultHandlers(resultHandler), resultHandler, sink, bus, logg)
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("dispatcher: %w", err)
	}
	svc.Dispatcher = disp

	ttl := time.Duration(cfg.Gateway.CommandTTLSeconds) * time.Second
	sender, err := command.NewSender(led, client, sink, bus, logg, ttl)
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("command sender: %w", err)
	}
	svc.Sender = sender
	return svc, nil
}

func (s *Service) buildLedger(ctx context.Context) (coreledger.Ledger, error) {
	switch s.cfg.Ledger.Backend {
	case "redis":
		led, err := infraledger.NewRedisLedger(ctx, s.cfg.Ledger.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis ledger: %w", err)
		}
		s.closers = append(s.closers, led.Close)
		return led, nil
	default:
		return coreledger.NewMemoryLedger(), nil
	}
}

func (s *Service) buildSink() coremetrics.Sink {
	var sinks []coremetrics.Sink
	if s.cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(s.cfg.Metrics)
		if err != nil {
			s.log.Errorf("prom sink: %v", err)
		} else {
			sinks = append(sinks, sink)
		}
	}
	if s.cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(
			s.cfg.Metrics.InfluxURL, s.cfg.Metrics.InfluxToken,
			s.cfg.Metrics.InfluxOrg, s.cfg.Metrics.InfluxBucket))
	}
	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}
	case 1:
		return sinks[0]
	default:
		return metrics.NewMultiSink(sinks...)
	}
}

// Run subscribes to the inbound topic and blocks until the context is
// cancelled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.client.Subscribe(s.cfg.Gateway.InboundTopic, s.handleMessage(ctx)); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.cfg.Gateway.InboundTopic, err)
	}
	s.log.Infof("subscribed to %s", s.cfg.Gateway.InboundTopic)

	metrics.StartEventCollector(ctx, s.bus, s.sink)
	if _, ok := s.led.(*coreledger.MemoryLedger); ok {
		go s.runExpiry(ctx)
	}
	if s.cfg.API.Enabled {
		go func() {
			if err := s.runAPI(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Errorf("api server: %v", err)
			}
		}()
	}
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	<-ctx.Done()
	return nil
}

// handleMessage decodes, dispatches and answers one inbound frame. A failure
// on one message never affects the next.
func (s *Service) handleMessage(ctx context.Context) coremqtt.MessageHandler {
	return func(topic string, payload []byte) {
		deviceID, ok := deviceIDFromTopic(s.cfg.Gateway.InboundTopic, topic)
		if !ok {
			s.log.Warnf("cannot extract device id from topic %s", topic)
			return
		}
		frame, err := ocpp.Decode(payload)
		if err != nil {
			s.log.Warnf("device %s: %v", deviceID, err)
			return
		}
		reply, err := s.Dispatcher.Dispatch(ctx, deviceID, frame)
		if err != nil {
			s.log.Errorf("device %s: dispatch: %v", deviceID, err)
			return
		}
		if reply == nil {
			return
		}
		raw, err := ocpp.Encode(*reply)
		if err != nil {
			s.log.Errorf("device %s: encode reply: %v", deviceID, err)
			return
		}
		if err := s.client.Publish(command.OutTopic(deviceID), raw); err != nil {
			s.log.Errorf("device %s: publish reply: %v", deviceID, err)
		}
	}
}

func (s *Service) runExpiry(ctx context.Context) {
	interval := time.Duration(s.cfg.Ledger.ExpireIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := s.led.Expire(ctx, now)
			if err != nil {
				s.log.Errorf("ledger expiry: %v", err)
			} else if n > 0 {
				s.log.Infof("expired %d pending commands", n)
			}
		}
	}
}

func (s *Service) runAPI(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/api/commands/start", commands.NewStartHandler(s.Sender, s.log))
	mux.Handle("/api/commands/stop", commands.NewStopHandler(s.Sender, s.log))
	mux.Handle("/api/devices/state", devices.NewStateHandler(s.Store))
	srv := &http.Server{Addr: s.cfg.API.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.log.Infof("command api listening on %s", s.cfg.API.Addr)
	return srv.ListenAndServe()
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	s.client.Close()
	return errors.Join(errs...)
}

// deviceIDFromTopic extracts the segment matched by the single-level wildcard
// of the subscription filter.
func deviceIDFromTopic(filter, topic string) (string, bool) {
	fparts := strings.Split(filter, "/")
	tparts := strings.Split(topic, "/")
	if len(fparts) != len(tparts) {
		return "", false
	}
	deviceID := ""
	for i, fp := range fparts {
		if fp == "+" {
			if tparts[i] == "" {
				return "", false
			}
			deviceID = tparts[i]
			continue
		}
		if fp != tparts[i] {
			return "", false
		}
	}
	return deviceID, deviceID != ""
}
