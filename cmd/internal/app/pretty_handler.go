package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset   = "\x1b[0m"
	ansiBold    = "\x1b[1m"
	ansiDim     = "\x1b[2m"
	ansiRed     = "\x1b[31m"
	ansiGreen   = "\x1b[32m"
	ansiYellow  = "\x1b[33m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

// prettyHandler writes one key=value line per record, for LOG_FORMAT=text.
type prettyHandler struct {
	w      io.Writer
	level  slog.Leveler
	source bool
	color  bool

	prefix string // rendered WithAttrs output
	group  string // dotted WithGroup path

	mu *sync.Mutex
}

func newPrettyHandler(w io.Writer, opts *slog.HandlerOptions, color bool) slog.Handler {
	h := &prettyHandler{w: w, level: slog.LevelInfo, color: color, mu: &sync.Mutex{}}
	if opts != nil {
		if opts.Level != nil {
			h.level = opts.Level
		}
		h.source = opts.AddSource
	}
	return h
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ts=%s lvl=%s msg=%s",
		h.paint(ts.Format("15:04:05.000"), ansiDim),
		h.levelTag(r.Level),
		h.paint(r.Message, ansiBold),
	)

	if h.source && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		if f.File != "" {
			b.WriteString(" src=")
			b.WriteString(h.paint(filepath.Base(f.File)+":"+strconv.Itoa(f.Line), ansiDim))
		}
	}

	b.WriteString(h.prefix)
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&b, a, h.group)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	for _, a := range attrs {
		h.writeAttr(&b, a, h.group)
	}
	cp := *h
	cp.prefix += b.String()
	return &cp
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	name = strings.TrimSpace(name)
	if name == "" {
		return h
	}
	cp := *h
	cp.group = joinKey(h.group, name)
	return &cp
}

func (h *prettyHandler) writeAttr(b *strings.Builder, a slog.Attr, group string) {
	a.Value = a.Value.Resolve()
	key := strings.TrimSpace(a.Key)
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		// Inline groups (empty key) splice their members into the parent.
		for _, ga := range a.Value.Group() {
			h.writeAttr(b, ga, joinKey(group, key))
		}
		return
	}
	if key == "" {
		return
	}

	full := joinKey(group, key)
	b.WriteByte(' ')
	b.WriteString(displayKey(full))
	b.WriteByte('=')
	b.WriteString(h.formatValue(full, a.Value))
}

func joinKey(parent, key string) string {
	switch {
	case parent == "":
		return key
	case key == "":
		return parent
	default:
		return parent + "." + key
	}
}

// displayKey shortens the request-log keys on terminals.
func displayKey(k string) string {
	switch k {
	case "status_class":
		return "class"
	case "duration_ms":
		return "duration"
	}
	return k
}

func (h *prettyHandler) formatValue(key string, v slog.Value) string {
	switch key {
	case "method":
		m := strings.ToUpper(v.String())
		return h.paint(m, methodColor(m))
	case "path":
		return h.paint(v.String(), ansiCyan)
	case "status":
		if n, ok := asInt(v); ok {
			return h.paint(strconv.FormatInt(n, 10), statusColor(int(n)))
		}
	case "status_class":
		return h.paint(v.String(), classColor(v.String()))
	case "duration_ms":
		if n, ok := asInt(v); ok {
			return h.paint(strconv.FormatInt(n, 10)+"ms", durationColor(n))
		}
	case "result", "code":
		return h.paint(v.String(), resultColor(strings.ToLower(v.String())))
	case "request_id", "username":
		return h.paint(v.String(), ansiDim)
	case "err":
		return h.paint(quote(v.String()), ansiRed)
	}
	return quote(plain(v))
}

var levelColors = []struct {
	min   slog.Level
	tag   string
	color string
}{
	{slog.LevelError, "[ERROR]", ansiRed},
	{slog.LevelWarn, "[WARN]", ansiYellow},
	{slog.LevelInfo, "[INFO]", ansiBlue},
}

func (h *prettyHandler) levelTag(l slog.Level) string {
	for _, lc := range levelColors {
		if l >= lc.min {
			return h.paint(lc.tag, lc.color)
		}
	}
	return h.paint("[DEBUG]", ansiMagenta)
}

func (h *prettyHandler) paint(s, code string) string {
	if !h.color || code == "" {
		return s
	}
	return code + s + ansiReset
}

func methodColor(m string) string {
	switch m {
	case "GET", "HEAD":
		return ansiGreen
	case "POST":
		return ansiYellow
	case "DELETE":
		return ansiRed
	}
	return ansiMagenta
}

func statusColor(code int) string {
	switch {
	case code >= 500:
		return ansiRed
	case code >= 400:
		return ansiYellow
	case code >= 300:
		return ansiCyan
	}
	return ansiGreen
}

func classColor(class string) string {
	switch class {
	case "5xx":
		return ansiRed
	case "4xx":
		return ansiYellow
	}
	return ansiGreen
}

func durationColor(ms int64) string {
	switch {
	case ms >= 1000:
		return ansiRed
	case ms >= 250:
		return ansiYellow
	}
	return ansiDim
}

// resultColor covers both request-log results and API error codes.
func resultColor(r string) string {
	switch r {
	case "success", "ok":
		return ansiGreen
	case "client_error":
		return ansiYellow
	case "server_error", "error", "internal_error":
		return ansiRed
	}
	return ""
}

func asInt(v slog.Value) (int64, bool) {
	switch v.Kind() {
	case slog.KindInt64:
		return v.Int64(), true
	case slog.KindUint64:
		return int64(v.Uint64()), true // #nosec G115 -- log rendering only.
	case slog.KindFloat64:
		return int64(v.Float64()), true
	case slog.KindString:
		n, err := strconv.ParseInt(strings.TrimSpace(v.String()), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func plain(v slog.Value) string {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		return fmt.Sprint(v.Any())
	}
	return v.String()
}

func quote(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
