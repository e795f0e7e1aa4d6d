package activity

import "context"

// NopSink discards every record.
type NopSink struct{}

func (NopSink) Append(context.Context, Record) error { return nil }
func (NopSink) Close() error                         { return nil }

// MultiSink fans an append out to several sinks. Every sink is attempted
// even when an earlier one fails; the first error is returned.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines the given sinks. With a single sink it is returned
// unchanged.
func NewMultiSink(sinks ...Sink) Sink {
	if len(sinks) == 1 {
		return sinks[0]
	}
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Append(ctx context.Context, rec Record) error {
	var first error
	for _, s := range m.sinks {
		if err := s.Append(ctx, rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *MultiSink) Close() error {
	var first error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
