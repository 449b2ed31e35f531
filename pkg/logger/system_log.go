// Package logger builds the application zap logger and keeps a bounded
// in-memory tail of recent entries for the admin log endpoint.
package logger

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultStoreCapacity = 1000
	defaultQueryLimit    = 50
	maxQueryLimit        = 500
)

// New builds the application logger. level falls back to info; development
// switches to console encoding.
func New(level string, development bool) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		parsed = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	return cfg.Build()
}

type Entry struct {
	ID        int64                  `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Caller    string                 `json:"caller,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Store is a fixed-capacity ring of recent log entries, newest first on read.
type Store struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
	next     int
	count    int
	seq      int64
}

func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = defaultStoreCapacity
	}
	return &Store{
		entries:  make([]Entry, capacity),
		capacity: capacity,
	}
}

// Attach wraps the logger so every emitted entry is also kept in the store.
func Attach(base *zap.Logger, store *Store) *zap.Logger {
	if base == nil || store == nil {
		return base
	}
	return base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &storeCore{Core: core, store: store}
	}))
}

// Query returns up to limit entries, newest first, filtered by level and
// keyword when supplied.
func (s *Store) Query(level, keyword string, limit int) []Entry {
	if s == nil {
		return nil
	}
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}

	level = strings.ToLower(strings.TrimSpace(level))
	keyword = strings.ToLower(strings.TrimSpace(keyword))

	out := make([]Entry, 0, limit)
	for _, entry := range s.snapshot() {
		if level != "" && !strings.EqualFold(entry.Level, level) {
			continue
		}
		if keyword != "" && !entryMatches(entry, keyword) {
			continue
		}
		out = append(out, entry)
		if len(out) == limit {
			break
		}
	}
	return out
}

func entryMatches(entry Entry, keyword string) bool {
	if strings.Contains(strings.ToLower(entry.Message), keyword) {
		return true
	}
	if strings.Contains(strings.ToLower(entry.Caller), keyword) {
		return true
	}
	if len(entry.Fields) > 0 && strings.Contains(strings.ToLower(fmt.Sprintf("%v", entry.Fields)), keyword) {
		return true
	}
	return false
}

func (s *Store) add(entry zapcore.Entry, fields []zapcore.Field) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.entries[s.next] = Entry{
		ID:        s.seq,
		Timestamp: entry.Time.UTC(),
		Level:     entry.Level.String(),
		Message:   entry.Message,
		Caller:    entry.Caller.TrimmedPath(),
		Fields:    fieldsToMap(fields),
	}
	s.next = (s.next + 1) % s.capacity
	if s.count < s.capacity {
		s.count++
	}
}

func (s *Store) snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, s.count)
	for i := 0; i < s.count; i++ {
		idx := s.next - 1 - i
		if idx < 0 {
			idx += s.capacity
		}
		out = append(out, s.entries[idx])
	}
	return out
}

func fieldsToMap(fields []zapcore.Field) map[string]interface{} {
	if len(fields) == 0 {
		return nil
	}

	enc := zapcore.NewMapObjectEncoder()
	for _, field := range fields {
		field.AddTo(enc)
	}
	if len(enc.Fields) == 0 {
		return nil
	}

	out := make(map[string]interface{}, len(enc.Fields))
	for k, v := range enc.Fields {
		out[k] = v
	}
	return out
}

type storeCore struct {
	zapcore.Core
	store *Store
}

func (c *storeCore) With(fields []zapcore.Field) zapcore.Core {
	return &storeCore{Core: c.Core.With(fields), store: c.store}
}

func (c *storeCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Core.Check(entry, nil) == nil {
		return checked
	}
	return checked.AddCore(entry, c)
}

func (c *storeCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if c.store != nil {
		c.store.add(entry, fields)
	}
	return c.Core.Write(entry, fields)
}
