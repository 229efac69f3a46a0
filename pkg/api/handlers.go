package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/ludoengine/internal/stateid"
	"github.com/yourusername/ludoengine/internal/storage"
	"github.com/yourusername/ludoengine/pkg/agent"
	"github.com/yourusername/ludoengine/pkg/engine"
	"github.com/yourusername/ludoengine/pkg/session"
)

// maxSimulationTrials caps a single simulation request.
const maxSimulationTrials = 10000

// Handlers holds the HTTP handlers and their collaborators.
type Handlers struct {
	sessions    *session.Manager
	hub         *Hub
	pool        *WorkerPool
	log         logrus.FieldLogger
	version     string
	slowTimeout time.Duration
}

// NewHandlers creates handlers over a session manager. hub and pool may be
// nil; without a hub the WebSocket route is unavailable and without a pool
// requests are not throttled.
func NewHandlers(sessions *session.Manager, hub *Hub, pool *WorkerPool, log logrus.FieldLogger, version string) *Handlers {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Handlers{
		sessions:    sessions,
		hub:         hub,
		pool:        pool,
		log:         log,
		version:     version,
		slowTimeout: 2 * time.Minute,
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, msg string, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: msg,
		Code:  code,
	})
}

// errorStatus maps domain errors to an HTTP status and an error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrNotYourTurn):
		return http.StatusConflict, "NOT_YOUR_TURN"
	case errors.Is(err, engine.ErrRollNotAllowed):
		return http.StatusConflict, "ROLL_NOT_ALLOWED"
	case errors.Is(err, engine.ErrNoLegalMoves):
		return http.StatusConflict, "NO_LEGAL_MOVES"
	case errors.Is(err, engine.ErrInvalidMove):
		return http.StatusUnprocessableEntity, "INVALID_MOVE"
	case errors.Is(err, engine.ErrInvalidDice):
		return http.StatusBadRequest, "INVALID_DICE"
	case errors.Is(err, engine.ErrInvalidPlayerCount):
		return http.StatusBadRequest, "INVALID_PLAYER_COUNT"
	case errors.Is(err, stateid.ErrMalformed), errors.Is(err, engine.ErrInvalidState):
		return http.StatusBadRequest, "INVALID_STATE"
	case errors.Is(err, session.ErrRoomNotFound):
		return http.StatusNotFound, "ROOM_NOT_FOUND"
	case errors.Is(err, session.ErrRoomFull):
		return http.StatusConflict, "ROOM_FULL"
	case errors.Is(err, session.ErrGameStarted):
		return http.StatusConflict, "GAME_STARTED"
	case errors.Is(err, session.ErrGameNotStarted):
		return http.StatusConflict, "GAME_NOT_STARTED"
	case errors.Is(err, session.ErrNotHost):
		return http.StatusForbidden, "NOT_HOST"
	case errors.Is(err, session.ErrNotEnoughPlayers):
		return http.StatusConflict, "NOT_ENOUGH_PLAYERS"
	case errors.Is(err, session.ErrNameTaken):
		return http.StatusConflict, "NAME_TAKEN"
	case errors.Is(err, session.ErrUnknownPlayer):
		return http.StatusForbidden, "UNKNOWN_PLAYER"
	case errors.Is(err, session.ErrInvalidName):
		return http.StatusBadRequest, "INVALID_NAME"
	case errors.Is(err, session.ErrInvalidMode):
		return http.StatusBadRequest, "INVALID_MODE"
	case errors.Is(err, agent.ErrUnknownDifficulty):
		return http.StatusBadRequest, "INVALID_DIFFICULTY"
	case errors.Is(err, agent.ErrInvalidOptions):
		return http.StatusBadRequest, "INVALID_OPTIONS"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "SERVER_BUSY"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// writeDomainError writes err as an error response, logging unexpected
// failures.
func (h *Handlers) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		writeError(w, status, "internal error", code)
		return
	}
	writeError(w, status, err.Error(), code)
}

// decode reads a JSON body into v, writing the error response on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return false
	}
	return true
}

// fast runs fn in a fast pool slot.
func (h *Handlers) fast(w http.ResponseWriter, r *http.Request, fn func()) {
	if h.pool != nil {
		if err := h.pool.AcquireFast(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "server busy", "SERVER_BUSY")
			return
		}
		defer h.pool.ReleaseFast()
	}
	fn()
}

// slow runs fn in a slow pool slot, waiting at most slowTimeout for one.
func (h *Handlers) slow(w http.ResponseWriter, r *http.Request, fn func()) {
	if h.pool != nil {
		if err := h.pool.AcquireSlowWithTimeout(r.Context(), h.slowTimeout); err != nil {
			writeError(w, http.StatusServiceUnavailable, "server busy", "SERVER_BUSY")
			return
		}
		defer h.pool.ReleaseSlow()
	}
	fn()
}

// Health handles GET /api/health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Version: h.version,
		Ready:   h.sessions != nil,
	}
	if h.hub != nil {
		resp.Clients = h.hub.Clients()
	}
	if h.pool != nil {
		stats := h.pool.Stats()
		resp.Pool = &stats
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListRooms handles GET /api/rooms.
func (h *Handlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.sessions.ListRooms(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if rooms == nil {
		rooms = []storage.Room{}
	}
	writeJSON(w, http.StatusOK, RoomsResponse{Rooms: rooms})
}

// CreateRoom handles POST /api/rooms.
func (h *Handlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if !decode(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.TrimSpace(req.Player) + "'s room"
	}
	room, err := h.sessions.CreateRoom(r.Context(), name, req.Player, storage.Mode(req.Mode))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

// GetRoom handles GET /api/rooms/{id}.
func (h *Handlers) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.sessions.Room(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// JoinRoom handles POST /api/rooms/{id}/join.
func (h *Handlers) JoinRoom(w http.ResponseWriter, r *http.Request) {
	var req PlayerRequest
	if !decode(w, r, &req) {
		return
	}
	room, seat, err := h.sessions.JoinRoom(r.Context(), r.PathValue("id"), req.Player)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, JoinResponse{Room: room, Seat: seat})
}

// AddBot handles POST /api/rooms/{id}/bots.
func (h *Handlers) AddBot(w http.ResponseWriter, r *http.Request) {
	var req AddBotRequest
	if !decode(w, r, &req) {
		return
	}
	difficulty, err := agent.ParseDifficulty(req.Difficulty)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	room, err := h.sessions.AddBot(r.Context(), r.PathValue("id"), req.Player, difficulty)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// LeaveRoom handles POST /api/rooms/{id}/leave.
func (h *Handlers) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	var req PlayerRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.sessions.LeaveRoom(r.Context(), r.PathValue("id"), req.Player); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "left"})
}

// StartGame handles POST /api/rooms/{id}/start.
func (h *Handlers) StartGame(w http.ResponseWriter, r *http.Request) {
	var req PlayerRequest
	if !decode(w, r, &req) {
		return
	}
	gs, err := h.sessions.StartGame(r.Context(), r.PathValue("id"), req.Player)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gs)
}

// State handles GET /api/rooms/{id}/state. With format=id only the compact
// state ID is returned.
func (h *Handlers) State(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	room, err := h.sessions.Room(r.Context(), roomID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	gs, err := h.sessions.State(r.Context(), roomID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	id, err := engine.EncodeStateID(gs)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "id" {
		writeJSON(w, http.StatusOK, StateIDResponse{RoomID: roomID, StateID: id})
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{Room: room, State: gs, StateID: id})
}

// seat resolves the acting player of a room command.
func (h *Handlers) seat(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	if strings.TrimSpace(name) == "" {
		writeError(w, http.StatusBadRequest, "player is required", "INVALID_NAME")
		return -1, false
	}
	seat, err := h.sessions.PlayerSeat(r.Context(), r.PathValue("id"), name)
	if err != nil {
		h.writeDomainError(w, r, err)
		return -1, false
	}
	return seat, true
}

// Roll handles POST /api/rooms/{id}/roll.
func (h *Handlers) Roll(w http.ResponseWriter, r *http.Request) {
	var req PlayerRequest
	if !decode(w, r, &req) {
		return
	}
	h.fast(w, r, func() {
		seat, ok := h.seat(w, r, req.Player)
		if !ok {
			return
		}
		res, err := h.sessions.Roll(r.Context(), r.PathValue("id"), seat)
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})
}

// Move handles POST /api/rooms/{id}/move.
func (h *Handlers) Move(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Piece == nil {
		writeError(w, http.StatusBadRequest, "piece is required", "INVALID_MOVE")
		return
	}
	h.fast(w, r, func() {
		seat, ok := h.seat(w, r, req.Player)
		if !ok {
			return
		}
		res, err := h.sessions.Move(r.Context(), r.PathValue("id"), seat, *req.Piece)
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})
}

// Hint handles GET /api/rooms/{id}/hint?player=NAME.
func (h *Handlers) Hint(w http.ResponseWriter, r *http.Request) {
	h.fast(w, r, func() {
		seat, ok := h.seat(w, r, r.URL.Query().Get("player"))
		if !ok {
			return
		}
		roomID := r.PathValue("id")
		moves, err := h.sessions.Hint(r.Context(), roomID, seat)
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		gs, err := h.sessions.State(r.Context(), roomID)
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, hintResponse(gs.DiceValue, moves))
	})
}

func hintResponse(dice int, moves []agent.ScoredMove) HintResponse {
	resp := HintResponse{Dice: dice, Moves: moves}
	if resp.Moves == nil {
		resp.Moves = []agent.ScoredMove{}
	}
	if len(moves) > 0 {
		best := moves[0]
		resp.Best = &best
	}
	return resp
}

// Review handles POST /api/review: it grades a move in a position given by
// state ID.
func (h *Handlers) Review(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if !decode(w, r, &req) {
		return
	}
	if req.StateID == "" {
		writeError(w, http.StatusBadRequest, "stateId is required", "INVALID_STATE")
		return
	}
	h.fast(w, r, func() {
		gs, err := engine.DecodeStateID(req.StateID, nil)
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		review, err := agent.Review(gs, gs.CurrentPlayer, req.Piece)
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, review)
	})
}

// simulationOptions converts a request into agent options.
func simulationOptions(req SimulateRequest) (agent.SimulationOptions, error) {
	opts := agent.SimulationOptions{
		Trials:   req.Trials,
		Workers:  req.Workers,
		Seed:     req.Seed,
		MaxTurns: req.MaxTurns,
	}
	if opts.Trials > maxSimulationTrials {
		return opts, fmt.Errorf("%w: at most %d trials", agent.ErrInvalidOptions, maxSimulationTrials)
	}
	for _, s := range req.Seats {
		d, err := agent.ParseDifficulty(s)
		if err != nil {
			return opts, err
		}
		opts.Seats = append(opts.Seats, d)
	}
	return opts, nil
}

// Simulate handles POST /api/simulate.
func (h *Handlers) Simulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if !decode(w, r, &req) {
		return
	}
	opts, err := simulationOptions(req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.slow(w, r, func() {
		res, err := agent.Simulate(r.Context(), opts, nil)
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})
}

// parseSeats splits a comma-separated seat list such as "hard,easy".
func parseSeats(s string) []string {
	var seats []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			seats = append(seats, part)
		}
	}
	return seats
}

// parseUintParam parses an unsigned integer with a default value.
func parseUintParam(s string, defaultVal uint64) uint64 {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return defaultVal
	}
	return v
}
