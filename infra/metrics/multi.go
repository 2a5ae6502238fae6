package metrics

import coremetrics "github.com/voltbridge/ocpp-gateway/core/metrics"

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordFrame forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordFrame(ev coremetrics.FrameEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordFrame(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordCommand forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordCommand(ev coremetrics.CommandEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordCommand(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordResolution forwards the event to the sinks that support it.
func (m *MultiSink) RecordResolution(ev coremetrics.ResolutionEvent) error {
	for _, s := range m.Sinks {
		if r, ok := s.(coremetrics.CommandResolutionRecorder); ok {
			if err := r.RecordResolution(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
