package httpx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sector-iot/sector-platform/internal/repository"
	"github.com/sector-iot/sector-platform/internal/service/auth"
	"github.com/sector-iot/sector-platform/internal/service/device"
	"github.com/sector-iot/sector-platform/internal/service/firmware"
	"github.com/sector-iot/sector-platform/internal/service/group"
	"github.com/sector-iot/sector-platform/internal/service/repo"
	"github.com/sector-iot/sector-platform/internal/ws"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	auth     auth.Service
	devices  device.Service
	groups   group.Service
	repos    repo.Service
	builds   firmware.Service
	hub      *ws.Hub
	upgrader websocket.Upgrader
	limiter  RateLimiter
	dbHealth func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
}

const (
	rateWindowDefault  = time.Minute
	rateWindowRealtime = 30 * time.Second
	rateLimitSignup    = 5
	rateLimitLogin     = 12
	rateLimitUserWrite = 60
	rateLimitUserRead  = 120
	rateLimitWebsocket = 30
	healthCheckTimeout = 2 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, authSvc auth.Service, deviceSvc device.Service, groupSvc group.Service, repoSvc repo.Service, firmwareSvc firmware.Service, hub *ws.Hub, limiter RateLimiter, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:     http.NewServeMux(),
		logger:  logger,
		auth:    authSvc,
		devices: deviceSvc,
		groups:  groupSvc,
		repos:   repoSvc,
		builds:  firmwareSvc,
		hub:     hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:  limiter,
		dbHealth: dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("GET /healthz", r.audit(r.handleHealthz))
	r.mux.HandleFunc("GET /metrics", promhttp.Handler().ServeHTTP)

	r.mux.HandleFunc("POST /auth/signup", r.audit(r.withRateLimit("/auth/signup", rateLimitSignup, rateWindowDefault, rateLimitKeyIP, r.handleSignup)))
	r.mux.HandleFunc("POST /auth/login", r.audit(r.withRateLimit("/auth/login", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleLogin)))

	r.mux.HandleFunc("POST /devices", r.authWrite(r.handleDeviceCreate))
	r.mux.HandleFunc("GET /devices", r.authRead(r.handleDeviceList))
	r.mux.HandleFunc("GET /devices/{id}", r.authRead(r.handleDeviceGet))
	r.mux.HandleFunc("PUT /devices/{id}", r.authWrite(r.handleDeviceUpdate))
	r.mux.HandleFunc("DELETE /devices/{id}", r.authWrite(r.handleDeviceDelete))
	r.mux.HandleFunc("GET /devices/{id}/groups", r.authRead(r.handleDeviceGroups))
	r.mux.HandleFunc("PUT /devices/{id}/repository", r.authWrite(r.handleDeviceLinkRepository))
	r.mux.HandleFunc("DELETE /devices/{id}/repository", r.authWrite(r.handleDeviceUnlinkRepository))

	r.mux.HandleFunc("POST /groups", r.authWrite(r.handleGroupCreate))
	r.mux.HandleFunc("GET /groups", r.authRead(r.handleGroupList))
	r.mux.HandleFunc("GET /groups/{id}", r.authRead(r.handleGroupGet))
	r.mux.HandleFunc("PUT /groups/{id}", r.authWrite(r.handleGroupUpdate))
	r.mux.HandleFunc("DELETE /groups/{id}", r.authWrite(r.handleGroupDelete))
	r.mux.HandleFunc("GET /groups/{id}/devices", r.authRead(r.handleGroupDevices))
	r.mux.HandleFunc("POST /groups/{id}/devices/{deviceId}", r.authWrite(r.handleGroupAddDevice))
	r.mux.HandleFunc("DELETE /groups/{id}/devices/{deviceId}", r.authWrite(r.handleGroupRemoveDevice))
	r.mux.HandleFunc("POST /groups/{id}/repository/{repositoryId}", r.authWrite(r.handleGroupLinkRepository))
	r.mux.HandleFunc("DELETE /groups/{id}/repository/{repositoryId}", r.authWrite(r.handleGroupUnlinkRepository))

	r.mux.HandleFunc("POST /repositories", r.authWrite(r.handleRepositoryCreate))
	r.mux.HandleFunc("GET /repositories", r.authRead(r.handleRepositoryList))
	r.mux.HandleFunc("GET /repositories/{id}", r.authRead(r.handleRepositoryGet))
	r.mux.HandleFunc("PUT /repositories/{id}", r.authWrite(r.handleRepositoryUpdate))
	r.mux.HandleFunc("DELETE /repositories/{id}", r.authWrite(r.handleRepositoryDelete))

	r.mux.HandleFunc("POST /firmware", r.authWrite(r.handleFirmwareCreate))
	r.mux.HandleFunc("GET /firmware", r.authRead(r.handleFirmwareList))
	r.mux.HandleFunc("GET /firmware/{id}", r.authRead(r.handleFirmwareLatest))
	r.mux.HandleFunc("GET /firmware/device/{deviceId}", r.authRead(r.handleFirmwareForDevice))
	r.mux.HandleFunc("PUT /firmware/{id}", r.authWrite(r.handleFirmwareUpdate))
	r.mux.HandleFunc("DELETE /firmware/{id}", r.authWrite(r.handleFirmwareDelete))

	r.mux.HandleFunc("GET /ws/events", r.audit(r.handlerAuthRate("/ws/events", rateLimitWebsocket, rateWindowRealtime, r.handleEventsWS)))
}

func (r *Router) authWrite(next http.HandlerFunc) http.HandlerFunc {
	return r.audit(r.handlerAuthRate("", rateLimitUserWrite, rateWindowDefault, next))
}

func (r *Router) authRead(next http.HandlerFunc) http.HandlerFunc {
	return r.audit(r.handlerAuthRate("", rateLimitUserRead, rateWindowDefault, next))
}

// actingUser extracts the authenticated user ID; requireAuth guarantees
// it is present on every route using these helpers.
func (r *Router) actingUser(w http.ResponseWriter, req *http.Request) (string, bool) {
	info, ok := authInfoFromContext(req.Context())
	if !ok || info.UserID == "" {
		r.logger.Error("auth context missing", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return "", false
	}
	return info.UserID, true
}

// serviceError maps service failures onto HTTP statuses: missing rows
// are 404, cross-tenant build access is 403, everything else uses the
// handler's fallback status.
func (r *Router) serviceError(w http.ResponseWriter, err error, fallback int) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, firmware.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	default:
		writeError(w, fallback, err.Error())
	}
}

func decodeBody(w http.ResponseWriter, req *http.Request, target any) bool {
	if err := json.NewDecoder(req.Body).Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (r *Router) handleSignup(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, req, &payload) {
		return
	}
	user, tokens, err := r.auth.Signup(req.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"user": map[string]any{
			"id":    user.ID,
			"email": user.Email,
		},
		"tokens": tokens,
	})
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, req, &payload) {
		return
	}
	user, tokens, err := r.auth.Login(req.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]any{
			"id":    user.ID,
			"email": user.Email,
		},
		"tokens": tokens,
	})
}

func (r *Router) handleDeviceCreate(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	var payload device.CreateInput
	if !decodeBody(w, req, &payload) {
		return
	}
	created, err := r.devices.Create(req.Context(), userID, payload)
	if err != nil {
		r.serviceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (r *Router) handleDeviceList(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	devices, err := r.devices.List(req.Context(), userID)
	if err != nil {
		r.serviceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (r *Router) handleDeviceGet(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	found, err := r.devices.Get(req.Context(), userID, req.PathValue("id"))
	if err != nil {
		r.serviceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (r *Router) handleDeviceUpdate(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	var payload device.UpdateInput
	if !decodeBody(w, req, &payload) {
		return
	}
	updated, err := r.devices.Update(req.Context(), userID, req.PathValue("id"), payload)
	if err != nil {
		r.serviceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (r *Router) handleDeviceDelete(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	if err := r.devices.Delete(req.Context(), userID, req.PathValue("id")); err != nil {
		r.serviceError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleDeviceGroups(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	groups, err := r.devices.Groups(req.Context(), userID, req.PathValue("id"))
	if err != nil {
		r.serviceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (r *Router) handleDeviceLinkRepository(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	var payload struct {
		RepositoryID string `json:"repositoryId"`
	}
	if !decodeBody(w, req, &payload) {
		return
	}
	if strings.TrimSpace(payload.RepositoryID) == "" {
		writeError(w, http.StatusBadRequest, "repositoryId is required")
		return
	}
	updated, err := r.devices.LinkRepository(req.Context(), userID, req.PathValue("id"), payload.RepositoryID)
	if err != nil {
		r.serviceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (r *Router) handleDeviceUnlinkRepository(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	updated, err := r.devices.UnlinkRepository(req.Context(), userID, req.PathValue("id"))
	if err != nil {
		r.serviceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (r *Router) handleGroupCreate(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	var payload group.CreateInput
	if !decodeBody(w, req, &payload) {
		return
	}
	created, err := r.groups.Create(req.Context(), userID, payload)
	if err != nil {
		r.serviceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (r *Router) handleGroupList(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	groups, err := r.groups.List(req.Context(), userID)
	if err != nil {
		r.serviceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (r *Router) handleGroupGet(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	found, err := r.groups.Get(req.Context(), userID, req.PathValue("id"))
	if err != nil {
		r.serviceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (r *Router) handleGroupUpdate(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	var payload group.UpdateInput
	if !decodeBody(w, req, &payload) {
		return
	}
	updated, err := r.groups.Update(req.Context(), userID, req.PathValue("id"), payload)
	if err != nil {
		r.serviceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (r *Router) handleGroupDelete(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	if err := r.groups.Delete(req.Context(), userID, req.PathValue("id")); err != nil {
		r.serviceError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleGroupDevices(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	devices, err := r.groups.Devices(req.Context(), userID, req.PathValue("id"))
	if err != nil {
		r.serviceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (r *Router) handleGroupAddDevice(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	if err := r.groups.AddDevice(req.Context(), userID, req.PathValue("id"), req.PathValue("deviceId")); err != nil {
		r.serviceError(w, err, http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleGroupRemoveDevice(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	if err := r.groups.RemoveDevice(req.Context(), userID, req.PathValue("id"), req.PathValue("deviceId")); err != nil {
		r.serviceError(w, err, http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleGroupLinkRepository(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	if err := r.groups.LinkRepository(req.Context(), userID, req.PathValue("id"), req.PathValue("repositoryId")); err != nil {
		r.serviceError(w, err, http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleGroupUnlinkRepository(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	if err := r.groups.UnlinkRepository(req.Context(), userID, req.PathValue("id"), req.PathValue("repositoryId")); err != nil {
		r.serviceError(w, err, http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleRepositoryCreate(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	var payload repo.CreateInput
	if !decodeBody(w, req, &payload) {
		return
	}
	created, err := r.repos.Create(req.Context(), userID, payload)
	if err != nil {
		r.serviceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (r *Router) handleRepositoryList(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	repos, err := r.repos.List(req.Context(), userID)
	if err != nil {
		r.serviceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, repos)
}

func (r *Router) handleRepositoryGet(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	found, err := r.repos.Get(req.Context(), userID, req.PathValue("id"))
	if err != nil {
		r.serviceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (r *Router) handleRepositoryUpdate(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	var payload repo.UpdateInput
	if !decodeBody(w, req, &payload) {
		return
	}
	updated, err := r.repos.Update(req.Context(), userID, req.PathValue("id"), payload)
	if err != nil {
		r.serviceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (r *Router) handleRepositoryDelete(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	if err := r.repos.Delete(req.Context(), userID, req.PathValue("id")); err != nil {
		r.serviceError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleFirmwareCreate(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	var payload firmware.CreateInput
	if !decodeBody(w, req, &payload) {
		return
	}
	created, err := r.builds.Create(req.Context(), userID, payload)
	if err != nil {
		r.serviceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (r *Router) handleFirmwareList(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	builds, err := r.builds.List(req.Context(), userID)
	if err != nil {
		r.serviceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, builds)
}

// handleFirmwareLatest returns the newest build for a repository.
func (r *Router) handleFirmwareLatest(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	build, err := r.builds.GetLatestForRepository(req.Context(), userID, req.PathValue("id"))
	if err != nil {
		r.serviceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, build)
}

func (r *Router) handleFirmwareForDevice(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	build, err := r.builds.ResolveForDevice(req.Context(), userID, req.PathValue("deviceId"))
	if err != nil {
		r.serviceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, build)
}

func (r *Router) handleFirmwareUpdate(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	var payload firmware.UpdateInput
	if !decodeBody(w, req, &payload) {
		return
	}
	updated, err := r.builds.Update(req.Context(), userID, req.PathValue("id"), payload)
	if err != nil {
		r.serviceError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (r *Router) handleFirmwareDelete(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	if err := r.builds.Delete(req.Context(), userID, req.PathValue("id")); err != nil {
		r.serviceError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleEventsWS(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.actingUser(w, req)
	if !ok {
		return
	}
	if r.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	r.hub.Register(userID, client)
	go func() {
		defer func() {
			r.hub.Unregister(userID, client)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		route := req.Pattern
		if route == "" {
			route = req.URL.Path
		}
		r.recordRequestMetrics(req.Method, route, status, duration)

		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", info.UserID)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) applyRateHeaders(w http.ResponseWriter, limit int, decision rateDecision) {
	if limit <= 0 {
		return
	}
	remaining := limit - decision.count
	if remaining < 0 {
		remaining = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.windowEnd.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}
