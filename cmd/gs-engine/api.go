package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"GeoStream/internal/engine/session"
	"GeoStream/internal/model"
	"GeoStream/internal/query"

	"github.com/gorilla/mux"
)

// APIHandler holds the dependencies for the control API handlers.
type APIHandler struct {
	svc     *session.Service
	querier query.Querier
}

type startRequest struct {
	RequestID string             `json:"request_id"`
	Params    model.StreamParams `json:"params"`
}

type startResponse struct {
	RequestID string `json:"request_id"`
}

type cancelRequest struct {
	RequestID string `json:"request_id"`
}

type cancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// startStreamHandler begins a new streaming session.
func (h *APIHandler) startStreamHandler(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}

	id, err := h.svc.Start(req.RequestID, req.Params)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to start session: %v", err), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusAccepted, startResponse{RequestID: id})
}

// cancelStreamHandler cancels a live session. It always succeeds and reports
// whether a live session was found.
func (h *APIHandler) cancelStreamHandler(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, cancelResponse{Cancelled: h.svc.Cancel(req.RequestID)})
}

// getSessionHandler returns one stored session result.
func (h *APIHandler) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	if h.querier == nil {
		http.Error(w, "no result store configured", http.StatusServiceUnavailable)
		return
	}
	summary, err := h.querier.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to fetch session: %v", err), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// listSessionsHandler returns the most recent stored session results.
func (h *APIHandler) listSessionsHandler(w http.ResponseWriter, r *http.Request) {
	if h.querier == nil {
		http.Error(w, "no result store configured", http.StatusServiceUnavailable)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	sessions, err := h.querier.ListSessions(r.Context(), limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to list sessions: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// healthHandler reports liveness and the number of in-flight sessions.
func (h *APIHandler) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"live_sessions": h.svc.Registry().Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding API response: %v", err)
	}
}
