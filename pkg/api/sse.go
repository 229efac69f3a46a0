package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/yourusername/ludoengine/pkg/agent"
)

// SimulateSSE streams self-play progress as Server-Sent Events.
// GET /api/simulate/stream?seats=hard,easy&trials=...&workers=...&seed=...&maxTurns=...
//
// Events are "progress" per batch, then "result" and "done", or a single
// "error".
func (h *Handlers) SimulateSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	query := r.URL.Query()
	req := SimulateRequest{
		Seats:    parseSeats(query.Get("seats")),
		Trials:   parseIntParam(query.Get("trials"), 100),
		Workers:  parseIntParam(query.Get("workers"), 0),
		Seed:     parseUintParam(query.Get("seed"), 0),
		MaxTurns: parseIntParam(query.Get("maxTurns"), 0),
	}
	if len(req.Seats) == 0 {
		writeSSEError(w, "seats is required")
		return
	}
	opts, err := simulationOptions(req)
	if err != nil {
		writeSSEError(w, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeSSEError(w, "streaming not supported")
		return
	}

	// A long run outlives the server write timeout.
	http.NewResponseController(w).SetWriteDeadline(time.Time{})

	if h.pool != nil {
		if err := h.pool.AcquireSlowWithTimeout(r.Context(), h.slowTimeout); err != nil {
			writeSSEError(w, "server busy")
			return
		}
		defer h.pool.ReleaseSlow()
	}

	// Progress calls are serialized by Simulate.
	callback := func(p agent.SimulationProgress) {
		writeSSEEvent(w, "progress", p)
		flusher.Flush()
	}

	result, err := agent.Simulate(r.Context(), opts, callback)
	if err != nil {
		writeSSEError(w, "simulation failed: "+err.Error())
		return
	}

	writeSSEEvent(w, "result", result)
	flusher.Flush()

	writeSSEEvent(w, "done", nil)
	flusher.Flush()
}

// writeSSEEvent writes a Server-Sent Event to the response.
func writeSSEEvent(w http.ResponseWriter, event string, data any) {
	fmt.Fprintf(w, "event: %s\n", event)
	if data != nil {
		jsonData, _ := json.Marshal(data)
		fmt.Fprintf(w, "data: %s\n", jsonData)
	}
	fmt.Fprintf(w, "\n")
}

// writeSSEError writes an error event and closes the stream.
func writeSSEError(w http.ResponseWriter, message string) {
	writeSSEEvent(w, "error", ErrorResponse{Error: message, Code: "SIMULATION_FAILED"})
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// parseIntParam parses an integer from a string with a default value.
func parseIntParam(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	var val int
	if _, err := fmt.Sscanf(s, "%d", &val); err != nil {
		return defaultVal
	}
	return val
}
