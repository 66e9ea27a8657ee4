package api

import (
	"context"
	"log/slog"
	"strings"
)

// Audit events are emitted through the handler's logger at info level for
// successes and debug level for rejections. The request id is attached by
// the logger's context handler.

func (h *Handler) auditLoginSuccess(ctx context.Context, username, ip, ua string) {
	h.audit(ctx, slog.LevelInfo, "auth.login.success", "username", username, "ip", ip, "user_agent", trimUA(ua))
}

func (h *Handler) auditLoginFailed(ctx context.Context, username, ip, code string) {
	h.audit(ctx, slog.LevelDebug, "auth.login.failed", "username", username, "ip", ip, "reason", code)
}

func (h *Handler) auditLogout(ctx context.Context, ip string) {
	h.audit(ctx, slog.LevelDebug, "auth.logout", "ip", ip)
}

func (h *Handler) auditConnectMinted(ctx context.Context, serverHash, ip string) {
	h.audit(ctx, slog.LevelInfo, "auth.connect.minted", "server_hash", strings.ToLower(serverHash), "ip", ip)
}

func (h *Handler) auditConnectVerified(ctx context.Context, username string) {
	h.audit(ctx, slog.LevelInfo, "auth.connect.verified", "username", username)
}

func (h *Handler) auditConnectRejected(ctx context.Context, username, code string) {
	h.audit(ctx, slog.LevelDebug, "auth.connect.rejected", "username", username, "reason", code)
}

func (h *Handler) audit(ctx context.Context, level slog.Level, event string, args ...any) {
	if h == nil || h.log == nil {
		return
	}
	h.log.Log(ctx, level, event, args...)
}

func trimUA(ua string) string {
	ua = strings.TrimSpace(ua)
	if len(ua) > 256 {
		return ua[:256]
	}
	return ua
}
