// SPDX-License-Identifier: GPL-3.0-or-later
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/log"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	defaultActivityDays = 7
	defaultPageSize     = 50
	maxPageSize         = 500
)

// Trigger starts a triage run asynchronously.
type Trigger interface {
	Trigger() bool
	Running() bool
}

// Server exposes health, metrics, the manual trigger and read-only decision
// statistics over HTTP.
type Server struct {
	addr      string
	trigger   Trigger
	decisions domain.DecisionStore

	server *http.Server
	l      *logrus.Logger
}

func NewServer(addr string, trigger Trigger, decisions domain.DecisionStore) *Server {
	return &Server{
		addr:      addr,
		trigger:   trigger,
		decisions: decisions,
		l:         log.Logger(log.LOG_ADMIN),
	}
}

// Start serves until ctx is done and then shuts down gracefully. It returns
// once in-flight requests have completed.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		s.l.Info("Shutting down admin server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.l.WithField("error", err).Warn("Error shutting down admin server")
		}
	}()

	s.l.WithField("addr", s.addr).Info("Starting admin server")
	err := s.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin server failed: %w", err)
	}

	// in-flight handlers finish before Start returns
	<-shutdownDone
	return nil
}

func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.loggingMiddleware)

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// no subrouter here, it answers a method mismatch with 404
	router.HandleFunc("/api/run", s.handleRun).Methods(http.MethodPost)
	router.HandleFunc("/api/stats", s.handleStats).Methods(http.MethodGet)
	router.HandleFunc("/api/activity", s.handleActivity).Methods(http.MethodGet)
	router.HandleFunc("/api/decisions", s.handleDecisions).Methods(http.MethodGet)

	return router
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.l.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path, "remote": r.RemoteAddr, "duration": time.Since(start)}).Debug("Handled request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"running": s.trigger.Running(),
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if !s.trigger.Trigger() {
		s.writeError(w, http.StatusConflict, "run already in progress")
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

type statsResponse struct {
	Total      int64            `json:"total"`
	ByCategory map[string]int64 `json:"byCategory"`
	ByAction   map[string]int64 `json:"byAction"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.decisions.DecisionStats()
	if err != nil {
		s.l.WithField("error", err).Error("Could not load decision stats")
		s.writeError(w, http.StatusInternalServerError, "could not load stats")
		return
	}

	resp := &statsResponse{
		Total:      stats.Total,
		ByCategory: map[string]int64{},
		ByAction:   map[string]int64{},
	}
	for _, c := range []domain.Category{domain.Spam, domain.Useless, domain.Important} {
		resp.ByCategory[string(c)] = stats.ByCategory[c]
	}
	for _, a := range []domain.Action{domain.Deleted, domain.Kept} {
		resp.ByAction[string(a)] = stats.ByAction[a]
	}

	s.writeJSON(w, http.StatusOK, resp)
}

type activityResponse struct {
	Day     string `json:"day"`
	Total   int64  `json:"total"`
	Deleted int64  `json:"deleted"`
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", defaultActivityDays)
	if err != nil || days <= 0 {
		s.writeError(w, http.StatusBadRequest, "days must be a positive integer")
		return
	}

	activity, err := s.decisions.RecentActivity(days)
	if err != nil {
		s.l.WithField("error", err).Error("Could not load activity")
		s.writeError(w, http.StatusInternalServerError, "could not load activity")
		return
	}

	resp := make([]*activityResponse, 0, len(activity))
	for _, a := range activity {
		resp = append(resp, &activityResponse{
			Day:     a.Day.Format("2006-01-02"),
			Total:   a.Total,
			Deleted: a.Deleted,
		})
	}

	s.writeJSON(w, http.StatusOK, resp)
}

type decisionResponse struct {
	Id        int64     `json:"id"`
	MessageID string    `json:"messageId"`
	From      string    `json:"from"`
	Subject   string    `json:"subject"`
	Category  string    `json:"category"`
	Reason    string    `json:"reason"`
	Action    string    `json:"action"`
	DecidedAt time.Time `json:"decidedAt"`
}

func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultPageSize)
	if err != nil || limit <= 0 || limit > maxPageSize {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxPageSize))
		return
	}

	offset, err := intParam(r, "offset", 0)
	if err != nil || offset < 0 {
		s.writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	decisions, err := s.decisions.RecentDecisions(limit, offset)
	if err != nil {
		s.l.WithField("error", err).Error("Could not load decisions")
		s.writeError(w, http.StatusInternalServerError, "could not load decisions")
		return
	}

	resp := make([]*decisionResponse, 0, len(decisions))
	for _, d := range decisions {
		resp = append(resp, &decisionResponse{
			Id:        d.Id,
			MessageID: d.MessageID,
			From:      d.FromAddress,
			Subject:   d.Subject,
			Category:  string(d.Category),
			Reason:    d.Reason,
			Action:    string(d.Action),
			DecidedAt: d.DecidedAt,
		})
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.l.WithField("error", err).Warn("Error encoding JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
