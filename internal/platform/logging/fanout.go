package logging

import (
	"context"
	"errors"
	"log/slog"
)

// FanoutHandler sends each record to every child handler that accepts its
// level. The service uses it to write the console stream and the rolling
// file at once.
type FanoutHandler struct {
	children []slog.Handler
}

// NewFanoutHandler combines children into one handler.
func NewFanoutHandler(children ...slog.Handler) *FanoutHandler {
	return &FanoutHandler{children: children}
}

// Enabled reports whether any child accepts level.
func (h *FanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, child := range h.children {
		if child.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

// Handle writes r to each accepting child. A failing child does not stop the others.
func (h *FanoutHandler) Handle(ctx context.Context, r slog.Record) error { //nolint:gocritic // slog.Handler signature
	var errs []error

	for _, child := range h.children {
		if !child.Enabled(ctx, r.Level) {
			continue
		}

		if err := child.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (h *FanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(child slog.Handler) slog.Handler { return child.WithAttrs(attrs) })
}

func (h *FanoutHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(child slog.Handler) slog.Handler { return child.WithGroup(name) })
}

func (h *FanoutHandler) derive(fn func(slog.Handler) slog.Handler) *FanoutHandler {
	children := make([]slog.Handler, len(h.children))
	for i, child := range h.children {
		children[i] = fn(child)
	}

	return &FanoutHandler{children: children}
}
