// Package log собирает slog-логгер, который не пропускает в вывод секреты:
// ключ классификатора, токен бота, строки подключения к базе.
package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// MaskValue заменяет скрытые значения.
const MaskValue = "***REDACTED***"

// Значения атрибутов с этими именами всегда скрываются.
var sensitiveKeys = map[string]bool{
	"api_key":        true,
	"apikey":         true,
	"token":          true,
	"telegram_token": true,
	"secret":         true,
	"password":       true,
	"dsn":            true,
	"store_dsn":      true,
	"authorization":  true,
}

// Подстроки имён атрибутов, которые тоже считаются секретными.
var sensitiveKeywords = []string{"password", "secret", "token", "credential"}

var (
	// Ключ в query-параметрах: ...?api_key=XXXX&...
	apiKeyParam = regexp.MustCompile(`(?i)(api_key=)[^&\s"]+`)

	// Токен Telegram-бота: 123456789:AA...
	botToken = regexp.MustCompile(`\b\d{6,}:[A-Za-z0-9_-]{30,}\b`)

	// DSN MySQL: user:password@tcp(...)
	dsnPassword = regexp.MustCompile(`([A-Za-z0-9_]+:)[^@\s/]+(@tcp\()`)
)

// SecureHandler оборачивает slog.Handler и маскирует секреты в атрибутах.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler оборачивает handler; nil означает slog.Default().Handler().
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled делегирует проверку уровня.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle маскирует сообщение и атрибуты записи.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, Scrub(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs маскирует атрибуты до передачи обёрнутому обработчику.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(out)}
}

// WithGroup возвращает обработчик с группой.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

func sanitizeAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		out := make([]slog.Attr, len(group))
		for i, g := range group {
			out[i] = sanitizeAttr(g)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	key := strings.ToLower(a.Key)
	if sensitiveKeys[key] || containsSensitiveKeyword(key) {
		return slog.String(a.Key, MaskValue)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, Scrub(a.Value.String()))
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, Scrub(err.Error()))
		}
	}
	return a
}

func containsSensitiveKeyword(key string) bool {
	for _, kw := range sensitiveKeywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

// Scrub вырезает секреты из произвольной строки.
func Scrub(s string) string {
	s = apiKeyParam.ReplaceAllString(s, "${1}"+MaskValue)
	s = botToken.ReplaceAllString(s, MaskValue)
	s = dsnPassword.ReplaceAllString(s, "${1}"+MaskValue+"${2}")
	return s
}

// NewSecureLogger создаёт текстовый логгер с маскированием.
// verbose включает уровень Debug, иначе Info.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewSecureHandler(handler))
}
