package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"trivia-live-service/internal/app"
	"trivia-live-service/internal/domain"
)

// WSHandler exposes the sync engine over websockets: one endpoint for the
// host device driving the session, one for player devices. Each connection
// gets its own controller/agent; the shared store is the only thing they
// have in common.
type WSHandler struct {
	manager          *app.SessionManager
	store            app.SessionStore
	catalog          app.QuizCatalog
	clock            clockwork.Clock
	log              zerolog.Logger
	autoAdvanceDelay time.Duration
	upgrader         websocket.Upgrader
}

func NewWSHandler(manager *app.SessionManager, store app.SessionStore, catalog app.QuizCatalog, clock clockwork.Clock, log zerolog.Logger, autoAdvanceDelay time.Duration) *WSHandler {
	return &WSHandler{
		manager:          manager,
		store:            store,
		catalog:          catalog,
		clock:            clock,
		log:              log.With().Str("component", "ws").Logger(),
		autoAdvanceDelay: autoAdvanceDelay,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
}

type timeUpPayload struct {
	QuestionID string `json:"questionId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

var errUnsupported = errors.New("unsupported message type")

type questionStartedPayload struct {
	AdjustedTimeLimit int `json:"adjustedTimeLimit"`
}

type phasePayload struct {
	Phase string `json:"phase"`
}

type joinedPayload struct {
	PlayerID string         `json:"playerId"`
	Session  domain.Session `json:"session"`
}

// CreateSession mints a new lobby-state session for a quiz.
func (h *WSHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	quizID := r.URL.Query().Get("quizId")
	hostID := r.URL.Query().Get("hostId")
	if quizID == "" || hostID == "" {
		http.Error(w, "missing quizId or hostId", http.StatusBadRequest)
		return
	}

	session, err := h.manager.CreateSession(r.Context(), quizID, hostID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrQuizNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(session)
}

// ServeHostWS attaches the host device: it streams session snapshots, accepts
// drive commands, and runs the auto-advance watchdog for the lifetime of the
// connection.
func (h *WSHandler) ServeHostWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "missing sessionId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("host ws upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	controller := app.NewHostController(h.store, h.catalog, h.clock, h.log, sessionID,
		app.WithAutoAdvanceDelay(h.autoAdvanceDelay))

	snapshots, cancel, err := h.store.Subscribe(ctx, sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Warn().Err(err).Msg("host ws write error")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-snapshots:
				if !ok {
					return
				}
				controller.HandleSnapshot(ctx, snap)
				select {
				case send <- outboundMessage[any]{Type: "session", Payload: snap}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		var cmdErr error
		switch inbound.Type {
		case "start":
			cmdErr = controller.Start(ctx)
		case "next":
			cmdErr = controller.Advance(ctx)
		case "reveal":
			cmdErr = controller.RevealResults(ctx)
		case "leaderboard":
			cmdErr = controller.ShowLeaderboard(ctx)
		case "end":
			cmdErr = controller.End(ctx)
		default:
			cmdErr = errUnsupported
		}
		if cmdErr != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: cmdErr.Error()}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// ServePlayerWS attaches a player device: it joins the session, streams
// snapshots and per-player feedback, and accepts answer submissions.
func (h *WSHandler) ServePlayerWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	nickname := r.URL.Query().Get("nickname")
	badge := r.URL.Query().Get("badge")
	playerID := r.URL.Query().Get("playerId")
	if sessionID == "" || nickname == "" {
		http.Error(w, "missing sessionId or nickname", http.StatusBadRequest)
		return
	}
	if playerID == "" {
		playerID = "player-" + uuid.NewString()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("player ws upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	agent := app.NewPlayerAgent(h.store, h.clock, h.log, sessionID, playerID)

	if err := agent.Join(ctx, nickname, badge); err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	snapshots, cancel, err := agent.Subscribe(ctx)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()
	defer agent.Leave(context.WithoutCancel(ctx))

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Warn().Err(err).Msg("player ws write error")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-snapshots:
				if !ok {
					return
				}
				events := agent.HandleSnapshot(ctx, snap)
				outbound := make([]outboundMessage[any], 0, len(events)+1)
				outbound = append(outbound, outboundMessage[any]{Type: "session", Payload: snap})
				for _, ev := range events {
					switch ev.Kind {
					case app.EventFeedbackReady:
						outbound = append(outbound, outboundMessage[any]{Type: "feedback", Payload: ev.Feedback})
					case app.EventQuestionStarted:
						outbound = append(outbound, outboundMessage[any]{Type: "question", Payload: questionStartedPayload{AdjustedTimeLimit: ev.AdjustedTimeLimit}})
					case app.EventPhaseChanged:
						outbound = append(outbound, outboundMessage[any]{Type: "phase", Payload: phasePayload{Phase: string(ev.Phase)}})
					}
				}
				for _, msg := range outbound {
					select {
					case send <- msg:
					case <-closeSignals:
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "joined", Payload: joinedPayload{PlayerID: playerID, Session: mustGetSession(ctx, h.store, sessionID)}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			if err := agent.SubmitResponse(ctx, payload.QuestionID, payload.OptionID); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		case "timeup":
			var payload timeUpPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid timeup payload"}}
				continue
			}
			agent.MarkTimeUp(payload.QuestionID)
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func mustGetSession(ctx context.Context, store app.SessionStore, sessionID string) domain.Session {
	snap, err := store.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Session{ID: sessionID}
	}
	return snap
}
