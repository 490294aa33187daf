// SPDX-License-Identifier: GPL-3.0-or-later
package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/CrawX/go-imap-triage/domain"
	"github.com/CrawX/go-imap-triage/domain/mocks"
	"github.com/CrawX/go-imap-triage/log"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
)

type fakeTrigger struct {
	accept   bool
	running  bool
	triggers int
}

func (f *fakeTrigger) Trigger() bool {
	f.triggers++
	return f.accept
}

func (f *fakeTrigger) Running() bool {
	return f.running
}

func setup(t *testing.T, trigger *fakeTrigger) (*gomock.Controller, http.Handler, *mocks.MockDecisionStore) {
	log.InitLogging("error")
	ctrl := gomock.NewController(t)
	decisions := mocks.NewMockDecisionStore(ctrl)
	return ctrl, NewServer("127.0.0.1:0", trigger, decisions).Handler(), decisions
}

func do(handler http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestServer_Run(t *testing.T) {
	tests := []struct {
		name     string
		accept   bool
		status   int
		expected string
	}{
		{"accepted", true, http.StatusAccepted, `{"status":"accepted"}`},
		{"already running", false, http.StatusConflict, `{"error":"run already in progress"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger := &fakeTrigger{accept: tt.accept}
			ctrl, handler, _ := setup(t, trigger)
			defer ctrl.Finish()

			rec := do(handler, http.MethodPost, "/api/run")
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.expected, rec.Body.String())
			assert.Equal(t, 1, trigger.triggers)
		})
	}
}

func TestServer_WrongMethod(t *testing.T) {
	tests := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/api/run"},
		{http.MethodDelete, "/api/run"},
		{http.MethodPost, "/api/stats"},
		{http.MethodPost, "/api/decisions"},
		{http.MethodPost, "/healthz"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			trigger := &fakeTrigger{accept: true}
			ctrl, handler, _ := setup(t, trigger)
			defer ctrl.Finish()

			rec := do(handler, tt.method, tt.target)
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Equal(t, 0, trigger.triggers)
		})
	}
}

func TestServer_UnknownPath(t *testing.T) {
	ctrl, handler, _ := setup(t, &fakeTrigger{})
	defer ctrl.Finish()

	rec := do(handler, http.MethodGet, "/api/nothing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Health(t *testing.T) {
	ctrl, handler, _ := setup(t, &fakeTrigger{running: true})
	defer ctrl.Finish()

	rec := do(handler, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","running":true}`, rec.Body.String())
}

func TestServer_Metrics(t *testing.T) {
	ctrl, handler, _ := setup(t, &fakeTrigger{})
	defer ctrl.Finish()

	rec := do(handler, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestServer_Stats(t *testing.T) {
	ctrl, handler, decisions := setup(t, &fakeTrigger{})
	defer ctrl.Finish()

	decisions.EXPECT().DecisionStats().Return(&domain.DecisionStats{
		Total:      3,
		ByCategory: map[domain.Category]int64{domain.Spam: 2, domain.Important: 1},
		ByAction:   map[domain.Action]int64{domain.Deleted: 2, domain.Kept: 1},
	}, nil)

	rec := do(handler, http.MethodGet, "/api/stats")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{
		"total": 3,
		"byCategory": {"SPAM": 2, "USELESS": 0, "IMPORTANT": 1},
		"byAction": {"DELETED": 2, "KEPT": 1}
	}`, rec.Body.String())
}

func TestServer_StatsError(t *testing.T) {
	ctrl, handler, decisions := setup(t, &fakeTrigger{})
	defer ctrl.Finish()

	decisions.EXPECT().DecisionStats().Return(nil, errors.New("locked"))

	rec := do(handler, http.MethodGet, "/api/stats")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"could not load stats"}`, rec.Body.String())
}

func TestServer_Activity(t *testing.T) {
	ctrl, handler, decisions := setup(t, &fakeTrigger{})
	defer ctrl.Finish()

	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	decisions.EXPECT().RecentActivity(30).Return([]*domain.DailyActivity{
		{Day: day, Total: 10, Deleted: 4},
		{Day: day.AddDate(0, 0, -1), Total: 2, Deleted: 0},
	}, nil)

	rec := do(handler, http.MethodGet, "/api/activity?days=30")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"day": "2024-05-01", "total": 10, "deleted": 4},
		{"day": "2024-04-30", "total": 2, "deleted": 0}
	]`, rec.Body.String())

	decisions.EXPECT().RecentActivity(defaultActivityDays).Return(nil, nil)
	rec = do(handler, http.MethodGet, "/api/activity")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestServer_Decisions(t *testing.T) {
	ctrl, handler, decisions := setup(t, &fakeTrigger{})
	defer ctrl.Finish()

	decidedAt := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	decisions.EXPECT().RecentDecisions(10, 20).Return([]*domain.Decision{
		{Id: 4, MessageID: "<a@x>", FromAddress: "a@x", Subject: "Hi", Category: domain.Useless, Reason: "newsletter", Action: domain.Deleted, DecidedAt: decidedAt},
	}, nil)

	rec := do(handler, http.MethodGet, "/api/decisions?limit=10&offset=20")
	assert.Equal(t, http.StatusOK, rec.Code)

	resp := []*decisionResponse{}
	assert.NoError(t, json.NewDecoder(strings.NewReader(rec.Body.String())).Decode(&resp))
	if assert.Len(t, resp, 1) {
		assert.Equal(t, &decisionResponse{
			Id:        4,
			MessageID: "<a@x>",
			From:      "a@x",
			Subject:   "Hi",
			Category:  "USELESS",
			Reason:    "newsletter",
			Action:    "DELETED",
			DecidedAt: decidedAt,
		}, resp[0])
	}
}

func TestServer_BadParameters(t *testing.T) {
	tests := []struct {
		target   string
		expected string
	}{
		{"/api/activity?days=0", `{"error":"days must be a positive integer"}`},
		{"/api/activity?days=abc", `{"error":"days must be a positive integer"}`},
		{"/api/decisions?limit=0", `{"error":"limit must be between 1 and 500"}`},
		{"/api/decisions?limit=501", `{"error":"limit must be between 1 and 500"}`},
		{"/api/decisions?offset=-1", `{"error":"offset must be a non-negative integer"}`},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			ctrl, handler, _ := setup(t, &fakeTrigger{})
			defer ctrl.Finish()

			rec := do(handler, http.MethodGet, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, tt.expected, rec.Body.String())
		})
	}
}
