package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"ordertrack/console/internal/auth"
	"ordertrack/console/internal/backend"
	"ordertrack/console/internal/session"
	"ordertrack/console/internal/util"
)

const (
	clientCookie   = "console_client"
	clientIDPrefix = "cl"
	clientTTL      = 365 * 24 * time.Hour
)

type HTTPServer struct {
	service      *Service
	corsOrigin   string
	cookieSecret []byte
	secureCookie bool
	metrics      http.Handler
	log          *zap.Logger
}

type ServerOption func(*HTTPServer)

// WithMetrics serves h on /metrics.
func WithMetrics(h http.Handler) ServerOption {
	return func(s *HTTPServer) {
		s.metrics = h
	}
}

func WithLogger(log *zap.Logger) ServerOption {
	return func(s *HTTPServer) {
		s.log = log
	}
}

// WithSecureCookie marks the client cookie Secure.
func WithSecureCookie(secure bool) ServerOption {
	return func(s *HTTPServer) {
		s.secureCookie = secure
	}
}

func NewHTTPServer(service *Service, corsOrigin string, cookieSecret []byte, opts ...ServerOption) *HTTPServer {
	s := &HTTPServer{
		service:      service,
		corsOrigin:   corsOrigin,
		cookieSecret: cookieSecret,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{}
		for name, err := range s.service.Readiness(ctx) {
			if err != nil {
				status = "not_ready"
				statusCode = http.StatusServiceUnavailable
				checks[name] = map[string]any{"status": "error", "error": err.Error()}
				continue
			}
			checks[name] = map[string]any{"status": "ok"}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/metrics" && s.metrics != nil {
		s.metrics.ServeHTTP(w, r)
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && strings.HasPrefix(r.URL.Path, "/views/") {
		s.handleView(w, r, strings.TrimPrefix(r.URL.Path, "/views/"))
		return
	}

	if !strings.HasPrefix(r.URL.Path, "/api/") {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	sess, ok := s.clientSession(w, r)
	if !ok {
		return
	}
	acceptLanguage := r.Header.Get("Accept-Language")

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		writeJSON(w, http.StatusOK, sess.Snapshot())
		return
	}

	if r.Method == http.MethodPost && (r.URL.Path == "/api/session/login" || r.URL.Path == "/api/session/setup") {
		var body backend.Credentials
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		var (
			snapshot session.Snapshot
			err      error
		)
		if r.URL.Path == "/api/session/setup" {
			snapshot, err = s.service.Setup(r.Context(), sess, body)
		} else {
			snapshot, err = s.service.Login(r.Context(), sess, body)
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/logout" {
		if err := s.service.Logout(r.Context(), sess); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/status" {
		done, err := s.service.Status(r.Context(), sess)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"setupCompleted": done})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/navigate" {
		target := strings.TrimSpace(r.URL.Query().Get("path"))
		if target == "" {
			writeError(w, http.StatusBadRequest, "INVALID_QUERY", "path is required", nil)
			return
		}
		result, err := s.service.Navigate(r.Context(), sess, target)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/navigation" {
		nav, err := s.service.Navigation(r.Context(), sess, acceptLanguage)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, nav)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/routes" {
		writeJSON(w, http.StatusOK, map[string]any{"routes": s.service.Routes(sess)})
		return
	}

	if r.URL.Path == "/api/preferences" {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, s.service.Preferences(sess, acceptLanguage))
		case http.MethodPut:
			var body PreferencesInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			prefs, err := s.service.UpdatePreferences(r.Context(), sess, body)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, prefs)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	parts := splitPath(r.URL.Path)

	if len(parts) >= 2 && parts[1] == "modules" {
		s.handleModules(w, r, sess, parts[2:], acceptLanguage)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/dashboard" {
		dash, err := s.service.Dashboard(r.Context(), sess, acceptLanguage)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, dash)
		return
	}

	if r.Method == http.MethodGet && len(parts) >= 2 && parts[1] == "orders" {
		s.handleOrders(w, r, sess, parts[2:], acceptLanguage)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleModules(w http.ResponseWriter, r *http.Request, sess *session.Session, rest []string, acceptLanguage string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		modules, err := s.service.Modules(r.Context(), sess, acceptLanguage)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"modules": modules})
	case len(rest) == 1 && r.Method == http.MethodPut:
		var body struct {
			Enabled *bool `json:"enabled"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if body.Enabled == nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "enabled is required", nil)
			return
		}
		module, err := s.service.SetModuleEnabled(r.Context(), sess, rest[0], *body.Enabled, acceptLanguage)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, module)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleOrders(w http.ResponseWriter, r *http.Request, sess *session.Session, rest []string, acceptLanguage string) {
	switch len(rest) {
	case 0:
		query := r.URL.Query()
		orders, err := s.service.Orders(r.Context(), sess, backend.OrderFilter{
			Status: strings.TrimSpace(query.Get("status")),
			Search: strings.TrimSpace(query.Get("search")),
		}, acceptLanguage)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
	case 1:
		id, err := strconv.ParseInt(rest[0], 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "INVALID_ID", "order id must be a positive integer", nil)
			return
		}
		order, err := s.service.Order(r.Context(), sess, id, acceptLanguage)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, order)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleView(w http.ResponseWriter, r *http.Request, name string) {
	view, err := s.service.View(r.Context(), name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	etag := `"` + view.Digest + `"`
	header := w.Header()
	header.Set("Content-Type", "text/html; charset=utf-8")
	header.Set("Cache-Control", "no-cache")
	header.Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(view.Body)
	}
}

// clientSession identifies the browser by its signed cookie, issuing a new
// client id when the cookie is missing or no longer verifies.
func (s *HTTPServer) clientSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	now := time.Now()
	clientID := ""
	if cookie, err := r.Cookie(clientCookie); err == nil {
		claims, err := auth.ParseClientToken(s.cookieSecret, cookie.Value, now)
		if err == nil {
			clientID = claims.ClientID
		} else {
			s.log.Debug("discarding client cookie", zap.Error(err))
		}
	}
	if clientID == "" {
		clientID = util.NewID(clientIDPrefix)
		token, err := auth.NewClientToken(s.cookieSecret, clientID, now, clientTTL)
		if err != nil {
			s.fail(w, r, err)
			return nil, false
		}
		http.SetCookie(w, &http.Cookie{
			Name:     clientCookie,
			Value:    token,
			Path:     "/",
			Expires:  now.Add(clientTTL),
			HttpOnly: true,
			Secure:   s.secureCookie,
			SameSite: http.SameSiteLaxMode,
		})
	}

	sess, err := s.service.Session(r.Context(), clientID)
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("request_id", requestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		s.log.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", writer.status),
			zap.Int64("duration_ms", time.Since(started).Milliseconds()),
		)
	})
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	if corsOrigin != "*" {
		header.Set("Access-Control-Allow-Credentials", "true")
		header.Add("Vary", "Origin")
	}
	header.Set("Access-Control-Allow-Headers", "Content-Type, Accept-Language, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
