package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/partsync/partsync/internal/model"
)

// Handler returns the coordinator's HTTP mux.
//
// The boundary toward the extension is fire-and-forget: handlers report
// whether a payload was structurally accepted, never whether validation
// later passes, and malformed payloads are dropped with a warning rather
// than crashing anything.
func (c *Coordinator) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", c.handlePing)
	mux.HandleFunc("/session", c.handleRegisterSession)
	mux.HandleFunc("/scrape", c.handleSubmitResult)
	mux.HandleFunc("/close", c.handlePollClose)
	mux.HandleFunc("/closed", c.handleNotifyClosed)
	mux.HandleFunc("/queue/next", c.handleDequeue)

	if reg := c.metrics.Registry(); reg != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	return mux
}

// handlePing is the liveness probe. No side effects.
func (c *Coordinator) handlePing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// registerRequest is the POST /session payload.
type registerRequest struct {
	RecordID string `json:"recordId"`
	Vendor   string `json:"vendor"`
	URL      string `json:"url"`
}

func (c *Coordinator) handleRegisterSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RecordID == "" {
		c.logger.Warn("malformed session registration dropped", slog.Any("error", err))
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	sess := c.OpenSession(req.RecordID, req.Vendor, req.URL)
	writeJSON(w, http.StatusOK, map[string]string{"sessionId": sess.ID})
}

// scrapeRequest is the POST /scrape payload.
type scrapeRequest struct {
	SessionID string            `json:"sessionId"`
	RecordID  string            `json:"recordId"`
	Vendor    string            `json:"vendor"`
	Fields    map[string]string `json:"fields"`
}

func (c *Coordinator) handleSubmitResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.logger.Warn("malformed scrape result dropped", slog.Any("error", err))
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" || req.Fields == nil {
		c.logger.Warn("structurally invalid scrape result dropped",
			slog.String("session", req.SessionID))
		http.Error(w, "sessionId and fields are required", http.StatusBadRequest)
		return
	}

	c.Submit(&model.QueueEntry{
		SessionID:  req.SessionID,
		RecordID:   req.RecordID,
		Vendor:     req.Vendor,
		Fields:     req.Fields,
		CapturedAt: time.Now(),
	})
	writeJSON(w, http.StatusOK, map[string]bool{"accepted": true})
}

// handlePollClose answers the extension's ~1s close poll. Unknown and
// expired sessions get a well-defined false.
func (c *Coordinator) handlePollClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Query().Get("session")
	writeJSON(w, http.StatusOK, map[string]bool{"shouldClose": c.broker.ShouldClose(sessionID)})
}

// closedRequest is the POST /closed payload.
type closedRequest struct {
	SessionID string `json:"sessionId"`
}

// handleNotifyClosed accepts the extension's best-effort close confirmation.
// Always 200: the sender is unloading the page and cannot act on a failure.
func (c *Coordinator) handleNotifyClosed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req closedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.SessionID != "" {
		c.notifyClosed(req.SessionID)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleDequeue hands the oldest buffered result to the consumer.
func (c *Coordinator) handleDequeue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entry, ok := c.Dequeue()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
