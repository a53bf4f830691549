package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/engine"
	"live-quiz-service/internal/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// GameHandler exposes the engine over HTTP: a small REST surface for
// hosts to create and destroy games, and a websocket endpoint carrying
// the live game protocol for both roles.
type GameHandler struct {
	engine   *engine.Engine
	upgrader websocket.Upgrader
}

func NewGameHandler(eng *engine.Engine) *GameHandler {
	return &GameHandler{
		engine: eng,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Register wires the handler's routes into mux.
func (h *GameHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/games", h.CreateGame)
	mux.HandleFunc("/api/games/", h.DestroyGame)
	mux.HandleFunc("/ws", h.ServeWS)
}

type createGameRequest struct {
	QuizID         string `json:"quizId"`
	HostID         string `json:"hostId"`
	CaptchaEnabled bool   `json:"captchaEnabled"`
}

type createGameResponse struct {
	GameID string `json:"gameId"`
	Pin    string `json:"pin"`
	Title  string `json:"title"`
}

// CreateGame allocates a new session in lobby state and returns its pin.
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuizID == "" || req.HostID == "" {
		http.Error(w, "missing quizId or hostId", http.StatusBadRequest)
		return
	}

	session, err := h.engine.CreateSession(r.Context(), req.QuizID, req.HostID, req.CaptchaEnabled)
	switch {
	case errors.Is(err, domain.ErrQuizNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, domain.ErrCapacityExceeded):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
		return
	case err != nil:
		logger.Error("create game failed", "quizId", req.QuizID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	logger.Info("game created", "gameId", session.ID(), "pin", session.Pin(), "quizId", req.QuizID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(createGameResponse{
		GameID: session.ID(),
		Pin:    session.Pin(),
		Title:  session.Quiz().Title,
	})
}

// DestroyGame removes a session and releases its pin; idempotent.
func (h *GameHandler) DestroyGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	gameID := r.URL.Path[len("/api/games/"):]
	if gameID == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}
	h.engine.Destroy(gameID)
	w.WriteHeader(http.StatusNoContent)
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerMessage struct {
	Index     int      `json:"index"`
	Answer    string   `json:"answer,omitempty"`
	Answers   []string `json:"answers,omitempty"`
	Value     *float64 `json:"value,omitempty"`
	TimeTaken float64  `json:"timeTaken"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type joinedPayload struct {
	GameID   string `json:"gameId"`
	Pin      string `json:"pin"`
	Title    string `json:"title"`
	Username string `json:"username,omitempty"`
	State    string `json:"state"`
}

// ServeWS upgrades the connection and speaks the live game protocol.
// Hosts connect with ?role=host&gameId=...&hostId=...; players with
// ?pin=...&username=... plus an optional captcha token (verified
// upstream; the engine only sees pass/fail) and custom field value.
func (h *GameHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("role") == "host" {
		h.serveHost(w, r)
		return
	}
	h.servePlayer(w, r)
}

func (h *GameHandler) serveHost(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("gameId")
	hostID := r.URL.Query().Get("hostId")
	if gameID == "" || hostID == "" {
		http.Error(w, "missing gameId or hostId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	session, err := h.engine.Get(gameID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: newErrorPayload(err)})
		return
	}
	if session.HostID() != hostID {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorPayload{Code: "forbidden", Message: "not the host of this game"}})
		return
	}

	events, cancel := session.Subscribe()
	defer cancel()
	pump := startPump(conn, events)
	defer pump.shutdown()

	pump.push(outboundMessage{Type: "joined", Payload: joinedPayload{
		GameID: session.ID(),
		Pin:    session.Pin(),
		Title:  session.Quiz().Title,
		State:  session.State(),
	}})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			if err := session.Start(); err != nil {
				pump.push(outboundMessage{Type: "error", Payload: newErrorPayload(err)})
			}
		case "next":
			finished, err := session.AdvanceQuestion(r.Context())
			if err != nil && !errors.Is(err, domain.ErrPersistenceFailed) {
				pump.push(outboundMessage{Type: "error", Payload: newErrorPayload(err)})
				continue
			}
			if err != nil {
				// The game still finished; tell the host the write needs a retry.
				logger.Error("results write failed", "gameId", session.ID(), "error", err)
				pump.push(outboundMessage{Type: "error", Payload: newErrorPayload(err)})
			}
			if finished {
				logger.Info("game finished", "gameId", session.ID())
			}
		case "hide":
			session.HideQuestion()
		case "end":
			if err := session.End(r.Context()); err != nil {
				pump.push(outboundMessage{Type: "error", Payload: newErrorPayload(err)})
			}
		default:
			pump.push(outboundMessage{Type: "error", Payload: errorPayload{Code: "bad_request", Message: "unsupported message type"}})
		}
	}
}

func (h *GameHandler) servePlayer(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	pin := query.Get("pin")
	username := query.Get("username")
	if pin == "" || username == "" {
		http.Error(w, "missing pin or username", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	session, err := h.engine.ResolvePin(pin)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: newErrorPayload(err)})
		return
	}

	sid := uuid.NewString()
	captchaPassed := query.Get("captcha") != ""
	player, err := session.Join(username, sid, captchaPassed, query.Get("custom"))
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: newErrorPayload(err)})
		return
	}
	defer session.Disconnect(sid)

	events, cancel := session.Subscribe()
	defer cancel()
	pump := startPump(conn, events)
	defer pump.shutdown()

	pump.push(outboundMessage{Type: "joined", Payload: joinedPayload{
		GameID:   session.ID(),
		Pin:      session.Pin(),
		Title:    session.Quiz().Title,
		Username: player.Username,
		State:    session.State(),
	}})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var msg answerMessage
			if err := json.Unmarshal(inbound.Payload, &msg); err != nil {
				pump.push(outboundMessage{Type: "error", Payload: errorPayload{Code: "bad_request", Message: "invalid answer payload"}})
				continue
			}
			record, err := session.SubmitAnswer(username, msg.Index, domain.AnswerPayload{
				Answer:  msg.Answer,
				Answers: msg.Answers,
				Value:   msg.Value,
			}, msg.TimeTaken)
			if err != nil {
				pump.push(outboundMessage{Type: "error", Payload: newErrorPayload(err)})
				continue
			}
			pump.push(outboundMessage{Type: "answerResult", Payload: record})
		default:
			pump.push(outboundMessage{Type: "error", Payload: errorPayload{Code: "bad_request", Message: "unsupported message type"}})
		}
	}
}

// newErrorPayload maps engine errors onto stable wire codes clients can
// branch on.
func newErrorPayload(err error) errorPayload {
	code := "internal"
	switch {
	case errors.Is(err, domain.ErrStaleQuestion):
		code = "stale_question"
	case errors.Is(err, domain.ErrQuestionHidden):
		code = "question_hidden"
	case errors.Is(err, domain.ErrDuplicateAnswer):
		code = "duplicate"
	case errors.Is(err, domain.ErrNotAnswerable):
		code = "not_answerable"
	case errors.Is(err, domain.ErrUnknownPlayer):
		code = "unknown_player"
	case errors.Is(err, domain.ErrCaptchaFailed):
		code = "captcha_failed"
	case errors.Is(err, domain.ErrUsernameTaken):
		code = "username_taken"
	case errors.Is(err, domain.ErrGameAlreadyStarted):
		code = "game_already_started"
	case errors.Is(err, domain.ErrGameFinished):
		code = "game_finished"
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrPinNotFound), errors.Is(err, domain.ErrPlayerNotFound):
		code = "not_found"
	case errors.Is(err, domain.ErrInvalidTransition):
		code = "invalid_transition"
	case errors.Is(err, domain.ErrCapacityExceeded):
		code = "capacity_exceeded"
	case errors.Is(err, domain.ErrPersistenceFailed):
		code = "persistence_failed"
	}
	return errorPayload{Code: code, Message: err.Error()}
}
