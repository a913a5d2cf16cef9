// Package mockapi is an in-process stand-in for the staffline backend. It
// serves the endpoints the CLI talks to, backed by memory.
package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/staffline/staffline-api/internal/metrics"
	"github.com/staffline/staffline-api/internal/session"
)

// Defaults for a zero Options.
const (
	DefaultPrefix   = "/api"
	DefaultTokenTTL = 24 * time.Hour
)

// Account is a user the mock server accepts at login.
type Account struct {
	User     session.User
	Password string
}

// AttendanceRecord is one check-in.
type AttendanceRecord struct {
	ID       string     `json:"id"`
	UserID   int        `json:"userId"`
	Date     string     `json:"date"`
	CheckIn  time.Time  `json:"checkIn"`
	CheckOut *time.Time `json:"checkOut,omitempty"`
	Note     string     `json:"note,omitempty"`
}

// Options configures a Server.
type Options struct {
	Prefix   string
	Secret   []byte
	TokenTTL time.Duration
	Clock    clockwork.Clock
	Accounts []Account
	// Registry, when set, receives request metrics and is served at
	// /metrics outside the prefix.
	Registry *prometheus.Registry
}

// Server holds the mock state and its router.
type Server struct {
	router   *mux.Router
	secret   []byte
	ttl      time.Duration
	clock    clockwork.Clock
	mu       sync.Mutex
	accounts map[string]Account
	records  []AttendanceRecord
	requests *metrics.Requests
}

// DemoAccount is seeded when no accounts are given.
var DemoAccount = Account{
	User:     session.User{ID: 1, Email: "demo@staffline.dev", Name: "Demo Manager", Role: "manager", CompanyID: 1},
	Password: "demo",
}

// New builds a Server with its routes mounted under opts.Prefix.
func New(opts Options) *Server {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = DefaultTokenTTL
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if len(opts.Secret) == 0 {
		opts.Secret = []byte(uuid.NewString())
	}
	if len(opts.Accounts) == 0 {
		opts.Accounts = []Account{DemoAccount}
	}

	s := &Server{
		router:   mux.NewRouter(),
		secret:   opts.Secret,
		ttl:      opts.TokenTTL,
		clock:    opts.Clock,
		accounts: make(map[string]Account, len(opts.Accounts)),
	}
	for _, a := range opts.Accounts {
		s.accounts[strings.ToLower(a.User.Email)] = a
	}

	if opts.Registry != nil {
		s.requests = metrics.NewRequests(opts.Registry)
		s.router.Handle("/metrics", metrics.Handler(opts.Registry)).Methods(http.MethodGet)
	}

	s.router.Use(logging)
	s.router.Use(s.instrument)
	api := s.router.PathPrefix(opts.Prefix).Subrouter()
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	authed := api.NewRoute().Subrouter()
	authed.Use(s.requireAuth)
	authed.HandleFunc("/users/me", s.handleMe).Methods(http.MethodGet)
	authed.HandleFunc("/attendance", s.handleListAttendance).Methods(http.MethodGet)
	authed.HandleFunc("/attendance", s.handleCheckIn).Methods(http.MethodPost)
	authed.HandleFunc("/attendance/{id}", s.handleCheckOut).Methods(http.MethodPatch)
	authed.HandleFunc("/attendance/{id}", s.handleDeleteAttendance).Methods(http.MethodDelete)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// IssueToken signs a token for user that expires after the server's TTL.
func (s *Server) IssueToken(user session.User) (string, error) {
	now := s.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.Email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

var (
	errTokenExpired = errors.New("token expired")
	errUnknownUser  = errors.New("unknown user")
)

type userKey struct{}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		user, err := s.verify(raw)
		if errors.Is(err, errTokenExpired) {
			writeError(w, http.StatusUnauthorized, "Token expired")
			return
		}
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	})
}

func (s *Server) verify(raw string) (session.User, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return session.User{}, errTokenExpired
	case err != nil:
		return session.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[strings.ToLower(claims.Subject)]
	if !ok {
		return session.User{}, errUnknownUser
	}
	return a.User, nil
}

func currentUser(r *http.Request) session.User {
	u, _ := r.Context().Value(userKey{}).(session.User)
	return u
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the body of a successful login. It carries the user
// both flattened and nested.
type LoginResponse struct {
	Success bool         `json:"success"`
	Token   string       `json:"token"`
	UserID  int          `json:"userId"`
	Email   string       `json:"email"`
	User    session.User `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeJSON(w, http.StatusUnprocessableEntity, Envelope{Success: false, Message: "Email and password are required"})
		return
	}

	s.mu.Lock()
	a, ok := s.accounts[strings.ToLower(strings.TrimSpace(req.Email))]
	s.mu.Unlock()
	if !ok || a.Password != req.Password {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := s.IssueToken(a.User)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		Token:   token,
		UserID:  a.User.ID,
		Email:   a.User.Email,
		User:    a.User,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"}, "")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, currentUser(r), "")
}

func (s *Server) handleListAttendance(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	s.mu.Lock()
	out := make([]AttendanceRecord, 0, len(s.records))
	for _, rec := range s.records {
		if rec.UserID != user.ID {
			continue
		}
		if (from != "" && rec.Date < from) || (to != "" && rec.Date > to) {
			continue
		}
		out = append(out, rec)
	}
	s.mu.Unlock()

	writeData(w, http.StatusOK, out, "")
}

type checkInRequest struct {
	Note string `json:"note"`
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	user := currentUser(r)
	now := s.clock.Now().UTC()
	rec := AttendanceRecord{
		ID:      uuid.NewString(),
		UserID:  user.ID,
		Date:    now.Format(time.DateOnly),
		CheckIn: now,
		Note:    req.Note,
	}

	s.mu.Lock()
	for _, existing := range s.records {
		if existing.UserID == user.ID && existing.Date == rec.Date && existing.CheckOut == nil {
			s.mu.Unlock()
			writeError(w, http.StatusConflict, "Already checked in today")
			return
		}
	}
	s.records = append(s.records, rec)
	s.mu.Unlock()

	writeData(w, http.StatusCreated, rec, "Checked in")
}

func (s *Server) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	user := currentUser(r)
	now := s.clock.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(id, user.ID)
	if i < 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Attendance record %s not found", id))
		return
	}
	if s.records[i].CheckOut != nil {
		writeError(w, http.StatusConflict, "Already checked out")
		return
	}
	s.records[i].CheckOut = &now
	writeData(w, http.StatusOK, s.records[i], "Checked out")
}

func (s *Server) handleDeleteAttendance(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	user := currentUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(id, user.ID)
	if i < 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Attendance record %s not found", id))
		return
	}
	s.records = slices.Delete(s.records, i, i+1)
	w.WriteHeader(http.StatusNoContent)
}

// find returns the index of the user's record id, or -1. Callers hold mu.
func (s *Server) find(id string, userID int) int {
	return slices.IndexFunc(s.records, func(rec AttendanceRecord) bool {
		return rec.ID == id && rec.UserID == userID
	})
}
