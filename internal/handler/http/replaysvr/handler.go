// Package replaysvr exposes the /replay and /summary endpoints,
// translating query parameters into usecase requests and core
// sentinel errors into HTTP status codes.
package replaysvr

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"podreplay/internal/entity"
	"podreplay/internal/httpcache"
	"podreplay/internal/usecase/replay"
	"podreplay/internal/usecase/summary"
)

// Handler serves /replay and /summary.
type Handler struct {
	Replay  *replay.Service
	Summary *summary.Service
	// Now, when set, overrides time.Now for server-clock comparisons in
	// tests. Nil means use the real clock.
	Now func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

// Register attaches the handler's routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/replay", h.ServeReplay)
	mux.HandleFunc("/summary", h.ServeSummary)
}

// ServeReplay handles GET /replay.
func (h *Handler) ServeReplay(w http.ResponseWriter, r *http.Request) {
	req, err := parseReplayRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	serverClock := h.now()
	if req.Now.IsZero() {
		req.Now = serverClock
	}
	if err := replay.ValidateNow(req.Now, serverClock); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.Replay.Replay(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	if resp.NotModified {
		w.Header().Set("ETag", resp.ETag)
		w.Header().Set("Expires", formatExpires(resp.Expires))
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", resp.ContentType)
	w.Header().Set("ETag", resp.ETag)
	w.Header().Set("Expires", formatExpires(resp.Expires))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(resp.Body); err != nil {
		slog.Warn("failed writing replay response body", slog.Any("error", err))
	}
}

// ServeSummary handles GET /summary.
func (h *Handler) ServeSummary(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		writeError(w, invalid("uri is required"))
		return
	}

	res, err := h.Summary.Summarize(r.Context(), uri, r.Header.Get("If-None-Match"))
	if err != nil {
		writeError(w, err)
		return
	}

	if res.NotModified {
		w.Header().Set("ETag", res.ETag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if res.ETag != "" {
		w.Header().Set("ETag", res.ETag)
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(summaryResponse{
		URI:           res.URI,
		Title:         res.Summary.Title,
		MarkedPrivate: res.Summary.MarkedPrivate,
		Items:         res.Summary.Items,
	}); err != nil {
		slog.Warn("failed encoding summary response", slog.Any("error", err))
	}
}

type summaryResponse struct {
	URI           string               `json:"uri"`
	Title         string               `json:"title"`
	MarkedPrivate bool                 `json:"marked_private"`
	Items         []entity.SummaryItem `json:"items"`
}

func formatExpires(t time.Time) string {
	return httpcache.FormatExpiresHeader(t)
}

func writeError(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	if status >= 500 {
		slog.Error("replay request failed", slog.Int("status", status), slog.Any("error", err))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// statusFor maps a sentinel core error to its HTTP status, per the
// replay endpoint's error handling contract: invalid request -> 400,
// not modified -> 304, upstream/parse failures -> 502, feed not
// found -> 404, everything else -> 500.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, entity.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, entity.ErrNotModified):
		return http.StatusNotModified, ""
	case errors.Is(err, entity.ErrFetchUpstream), errors.Is(err, entity.ErrParseFeed), errors.Is(err, entity.ErrNotAFeed):
		return http.StatusBadGateway, "upstream fetch failed"
	case errors.Is(err, entity.ErrFeedNotFound):
		return http.StatusNotFound, "feed not found"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
