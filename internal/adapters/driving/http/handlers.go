package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/swaggo/swag"

	"github.com/custodia-labs/influmetrics-core/internal/core/domain"
	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driving"
)

// loginStateCookie carries the signed pending login across the provider redirect
const loginStateCookie = "ig_login_state"

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error   string `json:"error" example:"invalid request body"`
	Details string `json:"details,omitempty" example:"exchange_code: provider returned 400: This authorization code has been used."`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the liveness of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings the database and, when configured, Redis
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", "dependency", "database", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "database unavailable"})
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", "dependency", "redis", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "redis unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

func (s *Server) handleSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "api documentation not registered")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(doc))
}

// Auth endpoints

// handleRegister godoc
// @Summary      Register user
// @Description  Create an account and receive a JWT token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.RegisterRequest  true  "Account details"
// @Success      201      {object}  domain.LoginResponse
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      409      {object}  ErrorResponse  "Email or user name taken"
// @Router       /auth/register [post]
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.Register(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// handleLogin godoc
// @Summary      User login
// @Description  Authenticate with email or user name and password to receive a JWT token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.LoginRequest  true  "Login credentials"
// @Success      200      {object}  domain.LoginResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Invalid credentials"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /auth/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.Authenticate(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleRefresh godoc
// @Summary      Refresh token
// @Description  Exchange a refresh token for a new JWT token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.RefreshRequest  true  "Refresh token"
// @Success      200      {object}  domain.LoginResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Invalid refresh token"
// @Router       /auth/refresh [post]
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.RefreshToken(r.Context(), req)
	if err != nil {
		var persistErr *domain.PersistenceError
		if errors.As(err, &persistErr) {
			s.writeServiceError(w, r, err)
			return
		}
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleLogout godoc
// @Summary      Logout user
// @Description  Invalidate the current session
// @Tags         Authentication
// @Security     BearerAuth
// @Success      204
// @Router       /auth/logout [post]
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := s.authService.Logout(r.Context(), authCtx.SessionID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// User endpoints

// handleGetMe godoc
// @Summary      Get current user
// @Description  Get the currently authenticated user's profile
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.UserSummary
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "User not found"
// @Router       /me [get]
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := s.authService.CurrentUser(r.Context(), authCtx.Principal())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// Instagram endpoints

// handleInstagramLoginStart godoc
// @Summary      Start Instagram login
// @Description  Sets the pending login cookie and redirects to the provider, or returns the URL when redirect=false
// @Tags         Instagram
// @Produce      json
// @Security     BearerAuth
// @Param        state     query     string  false  "Return path after the callback"
// @Param        redirect  query     bool    false  "Redirect to the provider (default true)"
// @Success      200       {object}  driving.StartLoginResponse
// @Success      302
// @Failure      401       {object}  ErrorResponse  "Unauthorized"
// @Router       /instagram/login/start [get]
func (s *Server) handleInstagramLoginStart(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := r.URL.Query()
	resp, err := s.connectionService.StartLogin(r.Context(), authCtx.Principal(),
		driving.StartLoginRequest{ReturnPath: q.Get("state")})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	http.SetCookie(w, s.loginStateCookie(resp.State, int(s.pendingLoginTTL.Seconds())))

	if !parseRedirectFlag(q.Get("redirect")) {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	http.Redirect(w, r, resp.URL, http.StatusFound)
}

// handleInstagramCallback godoc
// @Summary      Instagram login callback
// @Description  Completes the login started by /instagram/login/start and redirects to the front end
// @Tags         Instagram
// @Produce      json
// @Param        code   query  string  true   "Authorization code"
// @Param        state  query  string  false  "Signed pending login state"
// @Success      302
// @Failure      400  {object}  ErrorResponse  "Missing code"
// @Failure      401  {object}  ErrorResponse  "Unresolvable pending login"
// @Failure      500  {object}  ErrorResponse  "Login failed"
// @Router       /instagram/login/callback [get]
func (s *Server) handleInstagramCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := q.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing code")
		return
	}

	req := driving.CallbackRequest{Code: code, State: q.Get("state")}
	if c, err := r.Cookie(loginStateCookie); err == nil {
		req.CookieState = c.Value
	}
	// The pending login is single use whatever the outcome
	http.SetCookie(w, s.loginStateCookie("", -1))

	resp, err := s.connectionService.Callback(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	http.Redirect(w, r, s.frontendURL+domain.AppendConnectedFlag(resp.ReturnPath), http.StatusFound)
}

// handleInstagramStatus godoc
// @Summary      Connection status
// @Description  Returns the stored Instagram connection state without calling the provider
// @Tags         Instagram
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.ConnectionStatus
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Router       /instagram/status [get]
func (s *Server) handleInstagramStatus(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	status, err := s.connectionService.Status(r.Context(), authCtx.Principal())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleInstagramDisconnect godoc
// @Summary      Disconnect Instagram
// @Description  Clears the stored tokens of the caller's latest connection
// @Tags         Instagram
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Router       /instagram/disconnect [post]
func (s *Server) handleInstagramDisconnect(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := s.connectionService.Disconnect(r.Context(), authCtx.Principal()); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleInstagramRefresh godoc
// @Summary      Refresh the long-lived token
// @Description  Re-exchanges the caller's long-lived token now
// @Tags         Instagram
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.ConnectionStatus
// @Failure      409  {object}  ErrorResponse  "Not connected or token invalidated"
// @Failure      500  {object}  ErrorResponse  "Provider failure"
// @Router       /instagram/refresh [post]
func (s *Server) handleInstagramRefresh(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	status, err := s.connectionService.Refresh(r.Context(), authCtx.Principal())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleInstagramMetrics godoc
// @Summary      Account metrics
// @Description  Followers, reach and interactions per day for the connected account
// @Tags         Instagram
// @Produce      json
// @Security     BearerAuth
// @Param        from  query     string  true  "First day (YYYY-MM-DD)"
// @Param        to    query     string  true  "Last day (YYYY-MM-DD)"
// @Success      200   {object}  domain.MetricsReport
// @Failure      400   {object}  ErrorResponse  "Invalid dates"
// @Failure      409   {object}  ErrorResponse  "Not connected or token invalidated"
// @Failure      500   {object}  ErrorResponse  "Provider failure"
// @Router       /instagram/metrics [get]
func (s *Server) handleInstagramMetrics(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := r.URL.Query()
	report, err := s.metricsService.Metrics(r.Context(), authCtx.Principal(), q.Get("from"), q.Get("to"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// loginStateCookie builds the pending login cookie. A negative maxAge deletes it.
func (s *Server) loginStateCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     loginStateCookie,
		Value:    value,
		Path:     "/api/v1/instagram/login",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// parseRedirectFlag defaults to true; only explicit negatives disable it.
func parseRedirectFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "false", "0", "no", "n":
		return false
	}
	return true
}

// writeServiceError maps service errors to HTTP responses
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		loginErr    *domain.LoginError
		providerErr *domain.ProviderError
	)

	switch {
	case errors.As(err, &loginErr):
		s.logger.Warn("instagram login failed", "stage", loginErr.Stage, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "instagram login failed", Details: err.Error()})
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrMissingRequiredField):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, domain.ErrTokenInvalidated):
		writeError(w, http.StatusConflict, "instagram token invalidated, reconnect required")
	case errors.Is(err, domain.ErrNotConnected):
		writeError(w, http.StatusConflict, "instagram account not connected")
	case errors.As(err, &providerErr):
		s.logger.Warn("instagram request failed", "op", providerErr.Op, "status", providerErr.StatusCode, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "instagram request failed", Details: err.Error()})
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
