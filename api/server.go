package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/wricardo/kalah-game/game/boards"
	"github.com/wricardo/kalah-game/game/config"
	"github.com/wricardo/kalah-game/game/engine"
	"github.com/wricardo/kalah-game/game/security"
	"github.com/wricardo/kalah-game/game/service"
	"github.com/wricardo/kalah-game/transport/websocket"
)

// Request headers
const (
	HeaderAccessToken = "access-token"
	HeaderPassword    = "password"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil.
func NewServer(gameService service.GameService, hub *websocket.Hub) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(logRequests)

	v1 := s.router.PathPrefix("/v1").Subrouter()

	// Security
	v1.HandleFunc("/security/access_token", s.handleAccessToken).Methods("GET")
	v1.HandleFunc("/security/players", s.handleListPlayers).Methods("GET")

	// Boards (list must be registered before {boardId})
	v1.HandleFunc("/board/list", s.handleListBoards).Methods("GET")
	v1.HandleFunc("/board", s.handleCreateBoard).Methods("POST")
	v1.HandleFunc("/board/{boardId}", s.handleGetBoard).Methods("GET")
	v1.HandleFunc("/board/{boardId}/turn", s.handleTurn).Methods("PUT")

	// Presets
	v1.HandleFunc("/presets", s.handleListPresets).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps err to a status code and writes it
func respondServiceError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	respondError(w, status, err.Error())
}

// StatusFor returns the HTTP status for an error returned by the game service
func StatusFor(err error) int {
	switch {
	case errors.Is(err, security.ErrMissingToken),
		errors.Is(err, security.ErrEmptyName),
		errors.Is(err, security.ErrComputerPlayer),
		errors.Is(err, service.ErrMissingSecondPlayer),
		errors.Is(err, service.ErrNotActivePlayer),
		errors.Is(err, engine.ErrIllegalMove),
		errors.Is(err, engine.ErrPitOutOfRange),
		errors.Is(err, engine.ErrSamePlayers),
		errors.Is(err, config.ErrInvalidConfig):
		return http.StatusBadRequest

	case errors.Is(err, security.ErrInvalidToken),
		errors.Is(err, security.ErrWrongPassword):
		return http.StatusForbidden

	case errors.Is(err, security.ErrPlayerNotFound),
		errors.Is(err, boards.ErrBoardNotFound),
		errors.Is(err, config.ErrConfigNotFound):
		return http.StatusNotFound

	case errors.Is(err, security.ErrPlayerExists),
		errors.Is(err, engine.ErrGameOver):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func accessToken(r *http.Request) string {
	return r.Header.Get(HeaderAccessToken)
}

// Security Handlers

func (s *Server) handleAccessToken(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "name parameter required")
		return
	}

	result, err := s.service.Login(r.Context(), name, r.Header.Get(HeaderPassword))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.service.ListPlayers(r.Context(), accessToken(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, players)
}

// Board Handlers

func (s *Server) handleListBoards(w http.ResponseWriter, r *http.Request) {
	list, err := s.service.ListBoards(r.Context(), accessToken(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateBoard(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	board, err := s.service.CreateBoard(r.Context(), accessToken(r), query.Get("secondPlayerName"), query.Get("preset"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastBoard(board, nil)
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"board_id": board.ID,
		"board":    board,
	})
}

func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	boardID := mux.Vars(r)["boardId"]

	board, err := s.service.GetBoard(r.Context(), accessToken(r), boardID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, board)
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	boardID := mux.Vars(r)["boardId"]

	pitParam := r.URL.Query().Get("nextTurnPitNum")
	if pitParam == "" {
		respondError(w, http.StatusBadRequest, "nextTurnPitNum parameter required")
		return
	}
	pit, err := strconv.Atoi(pitParam)
	if err != nil {
		respondError(w, http.StatusBadRequest, "nextTurnPitNum must be an integer")
		return
	}

	result, err := s.service.Turn(r.Context(), accessToken(r), boardID, pit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastBoard(result.Board, result.Moves)
	}

	respondJSON(w, http.StatusOK, result)
}

// Preset Handlers

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := s.service.ListPresets(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, presets)
}

// WebSocket Handler

// handleWebSocket subscribes to a board. Browsers cannot set headers on the
// upgrade request, so the token may also be passed as access_token.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "websocket updates are disabled")
		return
	}

	query := r.URL.Query()
	boardID := query.Get("board")
	if boardID == "" {
		respondError(w, http.StatusBadRequest, "board parameter required")
		return
	}

	token := accessToken(r)
	if token == "" {
		token = query.Get("access_token")
	}
	if _, err := s.service.GetBoard(r.Context(), token, boardID); err != nil {
		respondServiceError(w, err)
		return
	}

	s.hub.ServeWS(w, r, boardID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The upgrade needs the raw writer's Hijacker
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
