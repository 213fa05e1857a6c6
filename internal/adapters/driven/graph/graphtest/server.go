// Package graphtest provides an in-process fake of the Graph API endpoints
// used by the Instagram login and metrics flows.
package graphtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Defaults used by the happy-path login.
const (
	Code            = "abc123"
	ShortToken      = "s1"
	LongToken       = "l1"
	LongExpiresIn   = 5184000
	PageID          = "pg_9"
	PageToken       = "pt_1"
	AccountID       = "ig_42"
	AccountUsername = "acme"
)

// Page is a /me/accounts entry and its optional linked business account.
type Page struct {
	ID          string
	Name        string
	AccessToken string
	AccountID   string
	Username    string
}

// Insight is one day of one metric.
type Insight struct {
	Metric string
	Day    string // YYYY-MM-DD
	Value  int64
}

// Server is a fake Graph API. Fields may be changed between requests.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	Codes     map[string]string // authorization code -> short token
	Exchanges map[string]string // token -> long-lived token
	Pages     []Page
	Followers int64
	Insights  []Insight
	Rejected  map[string]bool // tokens answered with OAuthException 190
	Requests  []string        // request paths, in order
}

// NewServer starts a fake Graph API with the happy-path login configured.
func NewServer() *Server {
	s := &Server{
		Codes:     map[string]string{Code: ShortToken},
		Exchanges: map[string]string{ShortToken: LongToken, LongToken: LongToken + "-renewed"},
		Pages: []Page{{
			ID:          PageID,
			Name:        "Acme Page",
			AccessToken: PageToken,
			AccountID:   AccountID,
			Username:    AccountUsername,
		}},
		Followers: 1000,
		Rejected:  map[string]bool{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/access_token", s.handleToken)
	mux.HandleFunc("GET /me/accounts", s.handleAccounts)
	mux.HandleFunc("GET /{id}/insights", s.handleInsights)
	mux.HandleFunc("GET /{id}", s.handleNode)

	s.Server = httptest.NewServer(s.record(mux))
	return s
}

// Reject makes every call with token fail as an invalid OAuth token.
func (s *Server) Reject(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Rejected[token] = true
}

// RequestCount returns how many requests hit a path.
func (s *Server) RequestCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.Requests {
		if p == path {
			n++
		}
	}
	return n
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.Requests = append(s.Requests, r.URL.Path)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.FormValue("grant_type") {
	case "authorization_code":
		short, ok := s.Codes[r.FormValue("code")]
		if !ok {
			writeError(w, http.StatusBadRequest, 100, 36009, "This authorization code has been used.")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"access_token": short, "token_type": "bearer"})
	case "fb_exchange_token":
		token := r.FormValue("fb_exchange_token")
		if s.Rejected[token] {
			writeInvalidToken(w)
			return
		}
		long, ok := s.Exchanges[token]
		if !ok {
			writeInvalidToken(w)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": long,
			"token_type":   "bearer",
			"expires_in":   LongExpiresIn,
		})
	default:
		writeError(w, http.StatusBadRequest, 100, 0, "Unsupported grant_type")
	}
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Rejected[r.FormValue("access_token")] {
		writeInvalidToken(w)
		return
	}
	data := make([]map[string]string, 0, len(s.Pages))
	for _, p := range s.Pages {
		data = append(data, map[string]string{"id": p.ID, "name": p.Name, "access_token": p.AccessToken})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Rejected[r.FormValue("access_token")] {
		writeInvalidToken(w)
		return
	}

	id := r.PathValue("id")
	for _, p := range s.Pages {
		if p.ID == id {
			body := map[string]any{"id": p.ID}
			if p.AccountID != "" {
				body["instagram_business_account"] = map[string]string{"id": p.AccountID, "username": p.Username}
			}
			writeJSON(w, http.StatusOK, body)
			return
		}
		if p.AccountID != "" && p.AccountID == id {
			writeJSON(w, http.StatusOK, map[string]any{
				"id":              p.AccountID,
				"username":        p.Username,
				"followers_count": s.Followers,
			})
			return
		}
	}
	writeError(w, http.StatusNotFound, 803, 0, "Some of the aliases you requested do not exist: "+id)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Rejected[r.FormValue("access_token")] {
		writeInvalidToken(w)
		return
	}

	data := []map[string]any{}
	for _, metric := range strings.Split(r.FormValue("metric"), ",") {
		values := []map[string]any{}
		for _, in := range s.Insights {
			if in.Metric == metric {
				values = append(values, map[string]any{"value": in.Value, "end_time": in.Day + "T07:00:00+0000"})
			}
		}
		data = append(data, map[string]any{"name": metric, "period": "day", "values": values})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func writeInvalidToken(w http.ResponseWriter) {
	writeError(w, http.StatusBadRequest, 190, 460, "Error validating access token: The session has been invalidated because the user changed their password.")
}

func writeError(w http.ResponseWriter, status, code, subcode int, message string) {
	body := map[string]any{"message": message, "type": "OAuthException", "code": code}
	if subcode != 0 {
		body["error_subcode"] = subcode
	}
	writeJSON(w, status, map[string]any{"error": body})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
