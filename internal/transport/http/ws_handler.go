package http

import (
	"encoding/json"
	"log"
	"net/http"

	"amt-quiz-service/internal/domain"
	"amt-quiz-service/internal/quiz"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service  *quiz.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *quiz.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
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
	Option domain.OptionLabel `json:"option"`
}

type startedPayload struct {
	SessionID string `json:"sessionId"`
}

type selectedPayload struct {
	Index  int                `json:"index"`
	Option domain.OptionLabel `json:"option"`
}

type tickPayload struct {
	RemainingSeconds int `json:"remainingSeconds"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and drives one quiz session
// per connection: the client sends start, then answer/skip/next/submit;
// question views, timer ticks, and the final summary are pushed back.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	subtopicID := r.URL.Query().Get("subtopic")
	if userID == "" || subtopicID == "" {
		http.Error(w, "missing userId or subtopic", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// The first message must configure and start the session.
	var first inboundMessage
	if err := conn.ReadJSON(&first); err != nil {
		return
	}
	if first.Type != "start" {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "expected start message"}})
		return
	}
	var cfg domain.QuizConfig
	if err := json.Unmarshal(first.Payload, &cfg); err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "invalid start payload"}})
		return
	}

	sessionID := quiz.NewSessionID()
	session, err := h.service.Start(r.Context(), sessionID, userID, subtopicID, cfg)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.service.Abandon(sessionID)

	events, cancel, err := h.service.Subscribe(sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundEvent(event):
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "started", Payload: startedPayload{SessionID: sessionID}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage("invalid answer payload")
				continue
			}
			if err := h.service.SelectAnswer(sessionID, payload.Option); err != nil {
				send <- errorMessage(err.Error())
				continue
			}
			view := session.Current()
			if view != nil {
				send <- outboundMessage[any]{Type: "selected", Payload: selectedPayload{Index: view.Index, Option: payload.Option}}
			}
		case "skip":
			if _, err := h.service.Skip(sessionID); err != nil {
				send <- errorMessage(err.Error())
			}
			// the new question view arrives via the event stream
		case "next":
			if _, _, err := h.service.Advance(sessionID); err != nil {
				send <- errorMessage(err.Error())
			}
		case "submit":
			if _, err := h.service.Submit(sessionID); err != nil {
				send <- errorMessage(err.Error())
			}
		default:
			send <- errorMessage("unsupported message type")
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

func outboundEvent(event quiz.Event) outboundMessage[any] {
	switch event.Type {
	case quiz.EventTick:
		return outboundMessage[any]{Type: "tick", Payload: tickPayload{RemainingSeconds: event.RemainingSeconds}}
	case quiz.EventFinished:
		return outboundMessage[any]{Type: "finished", Payload: event.Summary}
	default:
		return outboundMessage[any]{Type: "question", Payload: event.Question}
	}
}

func errorMessage(message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}
