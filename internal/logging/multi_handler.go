package logging

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// MultiHandler fans one record out to several destinations, typically
// stdout plus the systemd journal.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler creates a handler that writes to all provided handlers.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

// Enabled reports whether any destination wants records at this level.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle forwards the record to every destination that accepts its
// level. One destination failing does not stop the others.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs implements slog.Handler.
func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: next}
}

// WithGroup implements slog.Handler.
func (m *MultiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithGroup(name)
	}
	return &MultiHandler{handlers: next}
}

// swapHandler is a stable indirection in front of a replaceable
// handler. Module loggers hold one so Initialize can change the output
// format without invalidating cached *slog.Logger pointers.
type swapHandler struct {
	mu    sync.RWMutex
	inner slog.Handler
}

func (s *swapHandler) swap(h slog.Handler) {
	s.mu.Lock()
	s.inner = h
	s.mu.Unlock()
}

func (s *swapHandler) current() slog.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inner
}

func (s *swapHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return s.current().Enabled(ctx, level)
}

func (s *swapHandler) Handle(ctx context.Context, r slog.Record) error {
	return s.current().Handle(ctx, r)
}

// WithAttrs derives from the handler installed right now. The derived
// logger keeps working after a swap but stays on the format it was
// created with.
func (s *swapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return s.current().WithAttrs(attrs)
}

// WithGroup implements slog.Handler.
func (s *swapHandler) WithGroup(name string) slog.Handler {
	return s.current().WithGroup(name)
}
