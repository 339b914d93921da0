package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/devconnect/server/chat"
	ws "github.com/devconnect/server/websocket"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

type ChatSocketHandler struct {
	Store    *chat.Store
	Fanout   *chat.Fanout
	Presence *chat.Presence
	Hub      *ws.Hub
}

func NewChatSocketHandler(store *chat.Store, fanout *chat.Fanout, presence *chat.Presence, hub *ws.Hub) *ChatSocketHandler {
	return &ChatSocketHandler{Store: store, Fanout: fanout, Presence: presence, Hub: hub}
}

type chatSession struct {
	handler        *ChatSocketHandler
	client         *ws.Client
	conversationID uuid.UUID
}

// chatOp is one entry of the inbound dispatch table. Ops marked
// participantOnly re-verify membership on every dispatch, so a user removed
// from a group mid-session loses access immediately.
type chatOp struct {
	participantOnly bool
	handle          func(*chatSession, ws.InboundEvent)
}

var chatOps = map[string]chatOp{
	ws.EventMessage:     {participantOnly: true, handle: (*chatSession).handleMessage},
	ws.EventTyping:      {participantOnly: true, handle: (*chatSession).handleTyping},
	ws.EventTypingStop:  {participantOnly: true, handle: (*chatSession).handleTypingStop},
	ws.EventReadReceipt: {participantOnly: true, handle: (*chatSession).handleReadReceipt},
}

// chatJoin is a resolved, authorized connection attempt.
type chatJoin struct {
	userID         uuid.UUID
	username       string
	avatar         *string
	conversationID uuid.UUID
}

// resolveJoin authenticates the upgrade request and verifies conversation
// membership. A connection is registered in the room only after this
// succeeds, so a rejected attempt never appears in any subscriber set.
func (h *ChatSocketHandler) resolveJoin(tokenString, conversationParam string) (*chatJoin, error) {
	claims, err := parseToken(tokenString)
	if err != nil {
		return nil, chat.ErrUnauthenticated
	}
	rawUserID, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return nil, chat.ErrUnauthenticated
	}
	username, _ := claims["username"].(string)

	conversationID, err := uuid.Parse(conversationParam)
	if err != nil {
		return nil, chat.ErrNotFound
	}

	isParticipant, err := h.Store.IsParticipant(conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !isParticipant {
		return nil, chat.ErrForbidden
	}

	join := &chatJoin{userID: userID, username: username, conversationID: conversationID}
	if conversation, err := h.Store.GetConversation(conversationID); err == nil {
		for _, participant := range conversation.Participants {
			if participant.ID == userID {
				join.avatar = participant.AvatarURL
				if join.username == "" {
					join.username = participant.Username
				}
				break
			}
		}
	}
	return join, nil
}

// rejectSocket closes a connection that failed authentication or
// authorization. Only a policy close code goes out, never an application
// event, so room existence is not leaked.
func rejectSocket(c *websocketcontrib.Conn) {
	_ = c.WriteMessage(websocketcontrib.CloseMessage,
		websocketcontrib.FormatCloseMessage(websocketcontrib.ClosePolicyViolation, ""))
	c.Close()
}

// ServeChat runs one chat room connection.
func (h *ChatSocketHandler) ServeChat(c *websocketcontrib.Conn) {
	join, err := h.resolveJoin(c.Query("token"), c.Params("conversationId"))
	if err != nil {
		rejectSocket(c)
		return
	}

	client := ws.NewClient(join.userID, join.username, join.avatar, c)
	go client.Run()

	h.Hub.JoinRoom(join.conversationID, client)
	if err := h.Presence.SetOnline(join.userID, client.ID); err != nil {
		log.Printf("Error marking user %s online: %v", join.userID, err)
	}
	h.Hub.BroadcastRoom(join.conversationID, ws.PresenceEvent{
		Type:      "user_join",
		UserID:    join.userID.String(),
		Username:  join.username,
		Timestamp: time.Now().Format(time.RFC3339),
	})

	defer func() {
		h.Hub.LeaveRoom(join.conversationID, client)
		client.Close()
		if err := h.Presence.SetOffline(join.userID); err != nil {
			log.Printf("Error marking user %s offline: %v", join.userID, err)
		}
		h.Hub.BroadcastRoom(join.conversationID, ws.PresenceEvent{
			Type:      "user_leave",
			UserID:    join.userID.String(),
			Username:  join.username,
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}()

	session := &chatSession{handler: h, client: client, conversationID: join.conversationID}

	for {
		_, payload, err := c.ReadMessage()
		if err != nil {
			if websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseAbnormalClosure) {
				log.Printf("WebSocket closed for client %s: %v", join.userID, err)
			}
			return
		}
		session.handleFrame(payload)
	}
}

// handleFrame decodes one inbound frame and routes it through the dispatch
// table. Malformed or unknown frames produce an error event for the
// originating connection only.
func (s *chatSession) handleFrame(payload []byte) {
	var event ws.InboundEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		_ = s.client.SendJSON(ws.NewErrorEvent("Invalid JSON format"))
		return
	}

	op, ok := chatOps[event.Type]
	if !ok {
		_ = s.client.SendJSON(ws.NewErrorEvent("Unknown event type"))
		return
	}
	if op.participantOnly {
		member, err := s.handler.Store.IsParticipant(s.conversationID, s.client.UserID)
		if err != nil || !member {
			_ = s.client.SendJSON(ws.NewErrorEvent("Not a participant"))
			return
		}
	}
	op.handle(s, event)
}

func (s *chatSession) handleMessage(event ws.InboundEvent) {
	message, err := s.handler.Store.CreateMessage(s.conversationID, s.client.UserID, event.Message, "", nil)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrInvalidArgument):
			_ = s.client.SendJSON(ws.NewErrorEvent("Message cannot be empty"))
		case errors.Is(err, chat.ErrForbidden), errors.Is(err, chat.ErrNotFound):
			_ = s.client.SendJSON(ws.NewErrorEvent("Cannot send to this conversation"))
		default:
			log.Printf("Failed to save message for client %s: %v", s.client.UserID, err)
			_ = s.client.SendJSON(ws.NewErrorEvent("Failed to save message"))
		}
		return
	}

	announceMessage(s.handler.Hub, s.handler.Fanout, message)
}

func (s *chatSession) handleTyping(ws.InboundEvent) {
	s.handler.Hub.BroadcastRoom(s.conversationID, ws.TypingEvent{
		Type:     "user_typing",
		UserID:   s.client.UserID.String(),
		Username: s.client.Username,
	})
}

func (s *chatSession) handleTypingStop(ws.InboundEvent) {
	s.handler.Hub.BroadcastRoom(s.conversationID, ws.TypingEvent{
		Type:     "user_typing_stop",
		UserID:   s.client.UserID.String(),
		Username: s.client.Username,
	})
}

func (s *chatSession) handleReadReceipt(event ws.InboundEvent) {
	messageID, err := uuid.Parse(event.MessageID)
	if err != nil {
		_ = s.client.SendJSON(ws.NewErrorEvent("Invalid message ID"))
		return
	}

	if err := s.handler.Store.MarkRead(messageID, s.client.UserID); err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			_ = s.client.SendJSON(ws.NewErrorEvent("Message not found"))
		} else {
			log.Printf("Failed to mark message %s read: %v", messageID, err)
			_ = s.client.SendJSON(ws.NewErrorEvent("Failed to mark message read"))
		}
		return
	}

	s.handler.Hub.BroadcastRoom(s.conversationID, ws.ReadReceiptEvent{
		Type:      "read_receipt",
		MessageID: messageID.String(),
		UserID:    s.client.UserID.String(),
		Username:  s.client.Username,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
