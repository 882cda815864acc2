package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/100xengineers/self-discovery-backend/internal/api/middleware"
	"github.com/100xengineers/self-discovery-backend/internal/chat"
	"github.com/100xengineers/self-discovery-backend/internal/models"
	"github.com/100xengineers/self-discovery-backend/internal/modules"
)

// ChatStreamRequest is the body of a metered turn. The messages slice is the
// full transcript so far, ending with the new user message.
type ChatStreamRequest struct {
	Kind       string               `json:"kind"` // "ikigai" or "ideation"
	ChatNumber int                  `json:"chat_number,omitempty"`
	Module     string               `json:"module,omitempty"`
	Messages   []models.ChatMessage `json:"messages"`
	Model      string               `json:"model,omitempty"`
}

// ChatHandler runs metered chat turns over SSE and WebSocket.
type ChatHandler struct {
	runner *chat.Runner
	logger *logrus.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(runner *chat.Runner, logger *logrus.Logger) *ChatHandler {
	return &ChatHandler{runner: runner, logger: logger}
}

func (r *ChatStreamRequest) kind() (chat.Kind, error) {
	switch r.Kind {
	case "ikigai":
		n := r.ChatNumber
		if n <= 0 {
			n = 1
		}
		return chat.IkigaiKind{ChatNumber: n}, nil
	case "ideation":
		module, err := modules.ByKey(r.Module)
		if err != nil {
			return nil, err
		}
		return chat.IdeationKind{Module: module}, nil
	}
	return nil, fmt.Errorf("unknown chat kind: %q", r.Kind)
}

func (r *ChatStreamRequest) split() (history []models.ChatMessage, last models.ChatMessage, err error) {
	if len(r.Messages) == 0 {
		return nil, models.ChatMessage{}, fmt.Errorf("messages required")
	}
	last = r.Messages[len(r.Messages)-1]
	if last.Role != "user" {
		return nil, models.ChatMessage{}, fmt.Errorf("last message must be from the user")
	}
	return r.Messages[:len(r.Messages)-1], last, nil
}

// StreamSSE handles POST /api/v1/chat/stream. Events go out as SSE data
// frames, one JSON TurnEvent each, closed by a [DONE] frame.
func (h *ChatHandler) StreamSSE(c *fiber.Ctx) error {
	user := middleware.GetUserContext(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated"})
	}

	var req ChatStreamRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	kind, err := req.kind()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	history, userMessage, err := req.split()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	session, err := h.runner.OpenSession(c.Context(), user.UserID, kind, history)
	if err != nil {
		h.logger.WithError(err).Error("failed to open chat session")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Profile system unavailable"})
	}
	if req.Model != "" {
		session.Model = req.Model
	}

	events, err := h.runner.SubmitTurn(c.Context(), session, userMessage)
	if err != nil {
		h.logger.WithError(err).Error("failed to start completion stream")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Completion service unavailable"})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		for ev := range events {
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			if err := w.Flush(); err != nil {
				// Client disconnected; the runner keeps going so the turn
				// is still metered and persisted.
				for range events {
				}
				return
			}
		}
		fmt.Fprintf(w, "data: [DONE]\n\n")
		w.Flush()
	})

	return nil
}

// StreamWS handles the /ws/chat socket: one turn request in, a stream of
// TurnEvents out, connection left open for the next turn.
func (h *ChatHandler) StreamWS(conn *websocket.Conn) {
	defer conn.Close()

	user, ok := conn.Locals("user_context").(*models.UserContext)
	if !ok || user == nil {
		conn.WriteJSON(chat.TurnEvent{Type: chat.EventError, Content: "Not authenticated"})
		return
	}

	for {
		var req ChatStreamRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		if err := h.runTurnWS(conn, user, &req); err != nil {
			conn.WriteJSON(chat.TurnEvent{Type: chat.EventError, Content: err.Error()})
		}
	}
}

func (h *ChatHandler) runTurnWS(conn *websocket.Conn, user *models.UserContext, req *ChatStreamRequest) error {
	kind, err := req.kind()
	if err != nil {
		return err
	}

	history, userMessage, err := req.split()
	if err != nil {
		return err
	}

	ctx := context.Background()

	session, err := h.runner.OpenSession(ctx, user.UserID, kind, history)
	if err != nil {
		h.logger.WithError(err).Error("failed to open chat session")
		return fmt.Errorf("profile system unavailable")
	}
	if req.Model != "" {
		session.Model = req.Model
	}

	events, err := h.runner.SubmitTurn(ctx, session, userMessage)
	if err != nil {
		h.logger.WithError(err).Error("failed to start completion stream")
		return fmt.Errorf("completion service unavailable")
	}

	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			// Client gone; drain so the turn still finishes server-side.
			for range events {
			}
			return nil
		}
	}
	return nil
}
