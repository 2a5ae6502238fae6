package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/voltbridge/ocpp-gateway/core/metrics"
)

// PromSink records gateway activity in Prometheus metrics.
type PromSink struct {
	frames      *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	commands    *prometheus.CounterVec
	resolutions *prometheus.CounterVec
}

// NewPromSink registers gateway metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusAddr.
func NewPromSink(cfg coremetrics.Config) (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	frames := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ocpp_frames_total",
		Help: "Total number of inbound OCPP frames by action and outcome",
	}, []string{"type", "action", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ocpp_dispatch_seconds",
		Help:    "Time spent dispatching one inbound frame",
		Buckets: prometheus.DefBuckets,
	}, []string{"type", "action"})
	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ocpp_commands_total",
		Help: "Total number of remote commands issued to charge points",
	}, []string{"action", "sent"})
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ocpp_command_resolutions_total",
		Help: "Total number of command replies resolved, by acceptance",
	}, []string{"action", "accepted"})

	if err := reg.Register(frames); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			frames = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(latency); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			latency = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(commands); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			commands = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(resolutions); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			resolutions = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	return &PromSink{frames: frames, latency: latency, commands: commands, resolutions: resolutions}, nil
}

func (s *PromSink) RecordFrame(ev coremetrics.FrameEvent) error {
	action := ev.Action
	if action == "" {
		action = "none"
	}
	s.frames.WithLabelValues(ev.Type.String(), action, ev.Outcome).Inc()
	s.latency.WithLabelValues(ev.Type.String(), action).Observe(ev.Latency.Seconds())
	return nil
}

func (s *PromSink) RecordCommand(ev coremetrics.CommandEvent) error {
	sent := "false"
	if ev.Sent {
		sent = "true"
	}
	s.commands.WithLabelValues(ev.Action, sent).Inc()
	return nil
}

func (s *PromSink) RecordResolution(ev coremetrics.ResolutionEvent) error {
	accepted := "false"
	if ev.Accepted {
		accepted = "true"
	}
	s.resolutions.WithLabelValues(ev.Action, accepted).Inc()
	return nil
}
