package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/MrEthical07/authcore/audit"
	"go.uber.org/zap"
)

// Sink receives audit entries.
type Sink interface {
	Emit(ctx context.Context, entry audit.Entry)
}

// NoOpSink drops entries.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, audit.Entry) {}

// ChannelSink writes entries into a buffered channel.
type ChannelSink struct {
	entries chan audit.Entry
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{entries: make(chan audit.Entry, buffer)}
}

func (s *ChannelSink) Emit(ctx context.Context, entry audit.Entry) {
	select {
	case s.entries <- entry:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Entries() <-chan audit.Entry {
	return s.entries
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		return &JSONWriterSink{}
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, entry audit.Entry) {
	if s == nil || s.enc == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(entry)
}

// ZapSink writes each entry as one structured log line.
type ZapSink struct {
	logger *zap.Logger
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger.Named("audit")}
}

func (s *ZapSink) Emit(_ context.Context, entry audit.Entry) {
	fields := []zap.Field{
		zap.String("audit_id", entry.ID),
		zap.String("action", string(entry.Action)),
		zap.String("result", string(entry.Result)),
		zap.String("actor_id", entry.ActorID),
		zap.String("target_user_id", entry.TargetUserID),
		zap.String("ip", entry.IPAddress),
		zap.String("user_agent", entry.UserAgent),
		zap.Time("occurred_at", entry.OccurredAt),
	}
	if len(entry.Changes) > 0 {
		fields = append(fields, zap.Any("changes", entry.Changes))
	}
	if len(entry.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", entry.Metadata))
	}

	if entry.Succeeded() {
		s.logger.Info("audit", fields...)
		return
	}
	s.logger.Warn("audit", append(fields, zap.String("error", entry.ErrorMessage))...)
}

// Store is an append-only persistence backend.
type Store interface {
	Append(ctx context.Context, entry audit.Entry) error
}

// StoreSink appends entries to a Store and reports failures to onError.
type StoreSink struct {
	store   Store
	onError func(audit.Entry, error)
}

func NewStoreSink(store Store, onError func(audit.Entry, error)) *StoreSink {
	return &StoreSink{store: store, onError: onError}
}

func (s *StoreSink) Emit(ctx context.Context, entry audit.Entry) {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Append(ctx, entry); err != nil && s.onError != nil {
		s.onError(entry, err)
	}
}

// MultiSink fans out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, entry audit.Entry) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, entry)
		}
	}
}
