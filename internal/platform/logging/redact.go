package logging

import (
	"context"
	"log/slog"
	"regexp"
	"slices"

	"github.com/m-mizutani/masq"
)

var (
	jwtPattern       = regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`)
	bearerPattern    = regexp.MustCompile(`(?i)^bearer\s+.+$`)
	basicAuthPattern = regexp.MustCompile(`(?i)^basic\s+.+$`)
)

// sensitiveFields are attribute and struct field names whose values are
// never logged. Session ids count as credentials.
var sensitiveFields = []string{
	"password",
	"secret",
	"token",
	"apiKey", "apikey", "api_key",
	"accessToken", "access_token",
	"refreshToken", "refresh_token",
	"credential", "credentials",
	"authorization", "auth", "bearer",
	"cookie",
	"session", "sessionId", "session_id", "SessionID",
	"privateKey", "private_key",
}

// DefaultRedactOptions returns the masq options for secret redaction.
// Extend with project specific options via NewReplaceAttr.
func DefaultRedactOptions() []masq.Option {
	opts := make([]masq.Option, 0, len(sensitiveFields)+5)
	for _, name := range sensitiveFields {
		opts = append(opts, masq.WithFieldName(name))
	}

	return append(opts,
		masq.WithFieldPrefix("secret"),
		masq.WithFieldPrefix("private"),
		masq.WithRegex(jwtPattern),
		masq.WithRegex(bearerPattern),
		masq.WithRegex(basicAuthPattern),
	)
}

// NewReplaceAttr creates a slog.HandlerOptions.ReplaceAttr that redacts
// sensitive data using DefaultRedactOptions plus opts.
//
//	opts := &slog.HandlerOptions{ReplaceAttr: logging.NewReplaceAttr()}
func NewReplaceAttr(opts ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(append(DefaultRedactOptions(), opts...)...)
}

// RedactHandler applies a ReplaceAttr function to every attribute before
// handing the record on. It brings redaction to handlers that have no
// ReplaceAttr option of their own, such as the charm terminal handler.
type RedactHandler struct {
	next    slog.Handler
	replace func(groups []string, a slog.Attr) slog.Attr
	groups  []string
}

// NewRedactHandler wraps next. A nil replace uses NewReplaceAttr().
func NewRedactHandler(next slog.Handler, replace func(groups []string, a slog.Attr) slog.Attr) *RedactHandler {
	if replace == nil {
		replace = NewReplaceAttr()
	}

	return &RedactHandler{next: next, replace: replace}
}

// Enabled implements slog.Handler.
func (h *RedactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *RedactHandler) Handle(ctx context.Context, r slog.Record) error { //nolint:gocritic // slog.Handler interface requires value
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redact(h.groups, a))
		return true
	})

	return h.next.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *RedactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redact(h.groups, a)
	}

	return &RedactHandler{next: h.next.WithAttrs(redacted), replace: h.replace, groups: h.groups}
}

// WithGroup implements slog.Handler.
func (h *RedactHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	return &RedactHandler{
		next:    h.next.WithGroup(name),
		replace: h.replace,
		groups:  append(slices.Clone(h.groups), name),
	}
}

func (h *RedactHandler) redact(groups []string, a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() != slog.KindGroup {
		return h.replace(groups, a)
	}

	inner := groups
	if a.Key != "" {
		inner = append(slices.Clone(groups), a.Key)
	}

	members := a.Value.Group()
	redacted := make([]slog.Attr, len(members))
	for i, m := range members {
		redacted[i] = h.redact(inner, m)
	}

	return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}
}
