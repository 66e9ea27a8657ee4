// Package api exposes the session and connect services over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"gatehouse/cmd/internal/auth/connect"
	"gatehouse/cmd/internal/auth/session"
	"gatehouse/cmd/internal/metrics"
)

// Sessions is the subset of session.Service the API needs.
type Sessions interface {
	Validate(ctx context.Context, token string) (session.Principal, error)
	Login(ctx context.Context, in session.LoginInput) (session.Issued, error)
	Logout(ctx context.Context, token string) error
}

// Connects is the subset of connect.Service the API needs.
type Connects interface {
	Mint(ctx context.Context, in connect.MintInput) (string, error)
	Redeem(ctx context.Context, in connect.RedeemInput) error
}

// Recorder counts endpoint outcomes by result code.
type Recorder interface {
	Login(result string)
	SessionValidation(result string)
	ConnectMint(result string)
	ConnectVerification(result string)
}

type nopRecorder struct{}

func (nopRecorder) Login(string) {}
func (nopRecorder) SessionValidation(string) {}
func (nopRecorder) ConnectMint(string) {}
func (nopRecorder) ConnectVerification(string) {}

// sessionHeader carries the session token on authenticated endpoints.
const sessionHeader = "session"

// Handler wires HTTP endpoints to the session and connect services.
type Handler struct {
	log *slog.Logger
	cfg Config

	sessions Sessions
	connects Connects
	rec      Recorder
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithRecorder overrides the default no-op outcome recorder.
func WithRecorder(rec Recorder) HandlerOption {
	return func(h *Handler) {
		if h == nil || rec == nil {
			return
		}
		h.rec = rec
	}
}

// NewHandler constructs an API Handler.
func NewHandler(log *slog.Logger, cfg Config, sessions Sessions, connects Connects, opts ...HandlerOption) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sessions == nil || connects == nil {
		return nil, errors.New("api: missing service")
	}
	if log == nil {
		log = slog.Default()
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		sessions: sessions,
		connects: connects,
		rec:      nopRecorder{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Register wires API routes onto mux under the path of the configured base
// URL.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	base, _ := BasePath(h.cfg.BaseURL)
	prefix := strings.TrimSuffix(base, "/")

	mux.HandleFunc(prefix+"/api/info", h.handleInfo)
	mux.HandleFunc(prefix+"/api/session", h.handleSession)
	mux.HandleFunc(prefix+"/api/login", h.handleLogin)
	mux.HandleFunc(prefix+"/api/logout", h.handleLogout)
	mux.HandleFunc(prefix+"/api/doconnect", h.handleDoConnect)
	mux.HandleFunc(prefix+"/api/verifyconnect", h.handleVerifyConnect)
}

// ---- handlers ----

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, infoResponse{
		Status:              statusOK,
		BaseURL:             h.cfg.BaseURL,
		RegistrationEnabled: h.cfg.RegistrationEnabled,
		LoginNotice:         h.cfg.LoginNotice,
	})
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	p, err := h.sessions.Validate(r.Context(), r.Header.Get(sessionHeader))
	if err != nil {
		f := h.failure(r, "api.session", err)
		h.rec.SessionValidation(f.code)
		writeError(w, f)
		return
	}

	h.rec.SessionValidation(metrics.ResultOK)
	writeJSON(w, http.StatusOK, sessionResponse{Status: statusOK, User: p.Username})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		f := bodyFailure(err)
		h.rec.Login(f.code)
		writeError(w, f)
		return
	}

	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)
	issued, err := h.sessions.Login(ctx, session.LoginInput{
		Username: req.Username,
		Password: req.Password,
		UUID:     req.UUID,
		RemoteIP: ip,
	})
	if err != nil {
		f := h.failure(r, "api.login", err)
		h.rec.Login(f.code)
		h.auditLoginFailed(ctx, req.Username, ip, f.code)
		writeError(w, f)
		return
	}

	h.rec.Login(metrics.ResultOK)
	h.auditLoginSuccess(ctx, issued.Username, ip, r.UserAgent())
	writeJSON(w, http.StatusCreated, loginResponse{
		Status:   statusOK,
		Username: issued.Username,
		Expiry:   issued.Expires.UnixMilli(),
		Token:    issued.Token,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := h.sessions.Logout(r.Context(), r.Header.Get(sessionHeader)); err != nil {
		f := h.failure(r, "api.logout", err)
		// Logging out of a session that is already gone is a 404 here, not
		// the 401 authenticated endpoints use.
		if errors.Is(err, session.ErrInvalidSession) {
			f.status = http.StatusNotFound
		}
		writeError(w, f)
		return
	}

	h.auditLogout(r.Context(), clientIP(r, h.cfg.TrustProxy))
	writeJSON(w, http.StatusOK, okResponse{Status: statusOK})
}

func (h *Handler) handleDoConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req doConnectRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		f := bodyFailure(err)
		h.rec.ConnectMint(f.code)
		writeError(w, f)
		return
	}

	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)
	tok, err := h.connects.Mint(ctx, connect.MintInput{
		SessionToken:  r.Header.Get(sessionHeader),
		ServerHashHex: req.ServerHash,
		RemoteIP:      ip,
	})
	if err != nil {
		f := h.failure(r, "api.doconnect", err)
		if errors.Is(err, connect.ErrBadRequest) {
			f.description = "required parameters were not provided"
		}
		h.rec.ConnectMint(f.code)
		writeError(w, f)
		return
	}

	h.rec.ConnectMint(metrics.ResultOK)
	h.auditConnectMinted(ctx, req.ServerHash, ip)
	writeJSON(w, http.StatusCreated, doConnectResponse{Status: statusOK, Token: tok})
}

func (h *Handler) handleVerifyConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req verifyConnectRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		f := bodyFailure(err)
		h.rec.ConnectVerification(f.code)
		writeError(w, f)
		return
	}

	ctx := r.Context()
	err := h.connects.Redeem(ctx, connect.RedeemInput{
		Token:    req.Token,
		Username: req.Username,
		ServerID: req.ServerID,
		IP:       req.IP,
	})
	if err != nil {
		f := h.failure(r, "api.verifyconnect", err)
		h.rec.ConnectVerification(f.code)
		h.auditConnectRejected(ctx, req.Username, f.code)
		writeError(w, f)
		return
	}

	h.rec.ConnectVerification(metrics.ResultOK)
	h.auditConnectVerified(ctx, req.Username)
	writeJSON(w, http.StatusOK, okResponse{Status: statusOK})
}

// failure maps err for the client. Unexpected errors are logged with their
// cause under "<op>.fail".
func (h *Handler) failure(r *http.Request, op string, err error) failure {
	f, ok := failureFor(err)
	if !ok {
		h.log.ErrorContext(r.Context(), op+".fail", "err", err)
	}
	return f
}
