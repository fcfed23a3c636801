package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"portfolio_chat_service/internal/chat/domain"
	"portfolio_chat_service/internal/chat/repository"
	"portfolio_chat_service/pkg/logger"
	"portfolio_chat_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// pingInterval server ping period
const pingInterval = 30 * time.Second

// ChatWebsocketHandler 可包含所有需要的 UseCase
type ChatWebsocketHandler struct {
	chatUC  *ChatUseCase
	inboxUC *InboxUseCase
	feed    repository.ConversationFeed
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(chatUC *ChatUseCase, inboxUC *InboxUseCase, feed repository.ConversationFeed) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		chatUC:  chatUC,
		inboxUC: inboxUC,
		feed:    feed,
	}
}

// wsClient 同一條連線的寫入必須序列化
type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	viewer  domain.Participant

	session *ChatSession
}

// Render implements Renderer
func (c *wsClient) Render(state domain.ViewState) {
	c.send(domain.WSResponse{
		Action:  string(domain.SnapshotPush),
		Success: true,
		Payload: map[string]interface{}{"view": state},
	})
}

// Notify implements Notifier
func (c *wsClient) Notify(n domain.Notification) {
	c.send(domain.WSResponse{
		Action:  string(domain.NotifyPush),
		Success: true,
		Payload: map[string]interface{}{"notification": n},
	})
}

// send - 發送 JSON 給前端
func (c *wsClient) send(resp domain.WSResponse) {
	b, err := json.Marshal(resp)
	if err != nil {
		logger.Log.Error("marshal ws response failed", zap.String("action", resp.Action), zap.Error(err))
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		logger.Log.Debug("write message error", zap.String("viewer", c.viewer.ID), zap.Error(err))
	}
}

func (c *wsClient) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(time.Second))
}

func (c *wsClient) closeSession() {
	if c.session != nil {
		c.session.Close()
		c.session = nil
	}
}

// ParticipantFromLocals identity placed by the JWT middleware, email normalized like conversation ids
func ParticipantFromLocals(locals func(key string) interface{}) (domain.Participant, bool) {
	raw, _ := locals(middlewares.TokenParticipantID).(string)
	id := domain.ConversationIDFor(raw)
	name, _ := locals(middlewares.TokenName).(string)
	role, _ := locals(middlewares.TokenRole).(string)
	if id == "" {
		return domain.Participant{}, false
	}
	return domain.Participant{ID: id, Name: name, Role: domain.SenderRole(role)}, true
}

// HandleConnection 是 WebSocket 連線的進入點
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	viewer, ok := ParticipantFromLocals(func(key string) interface{} { return conn.Locals(key) })
	if !ok {
		closeWebSocketConnection(conn, websocket.ClosePolicyViolation, "missing identity")
		return
	}
	logger.Log.Info("websocket connected", zap.String("viewer", viewer.ID), zap.String("role", string(viewer.Role)))

	client := &wsClient{conn: conn, viewer: viewer}
	ctxClose, cancel := context.WithCancel(ctx)
	ticker := time.NewTicker(pingInterval)

	defer func() {
		ticker.Stop()
		client.closeSession()
		cancel()
		logger.Log.Info("websocket close", zap.String("viewer", viewer.ID))
		conn.Close()
	}()

	//client發出close, fiber 會在 read msg 回傳 err, 這裡只記錄
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Debug("websocket close frame", zap.Int("code", code), zap.String("text", text))
		return nil
	})

	conn.SetPongHandler(func(appData string) error {
		logger.Log.Debug("received pong", zap.String("viewer", viewer.ID))
		return nil
	})

	// admin 連線訂閱 inbox 變更
	if viewer.Role == domain.RoleAdmin && h.feed != nil {
		unsubscribe, err := h.feed.SubscribeInbox(ctxClose, func(string) {
			h.pushInbox(ctxClose, client)
		})
		if err != nil {
			logger.Log.Warn("inbox subscribe failed", zap.Error(err))
		} else {
			defer unsubscribe()
		}
	}

	// 定期發送 Ping
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := client.ping(); err != nil {
					logger.Log.Debug("ping error", zap.String("viewer", viewer.ID), zap.Error(err))
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Debug("connection closed", zap.String("viewer", viewer.ID))
			} else {
				//直接斷線 1006
				logger.Log.Warn("websocket read error", zap.String("viewer", viewer.ID), zap.Error(err))
			}
			return
		}
		h.execWebsocketAction(ctxClose, client, mt, message)
	}
}

func (h *ChatWebsocketHandler) execWebsocketAction(ctx context.Context, client *wsClient, mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.textMessageAction(ctx, client, msg)
	default:
		h.sendError(client, "unsupported message type")
	}
}

func (h *ChatWebsocketHandler) textMessageAction(ctx context.Context, client *wsClient, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		h.sendError(client, "invalid request")
		return
	}

	resp := domain.WSResponse{Action: string(req.Action), Payload: map[string]interface{}{}}
	err := h.dispatch(ctx, client, req, resp.Payload)
	if err != nil {
		resp.Error = err.Error()
		if !errors.Is(err, domain.ErrEmptySubmission) {
			logger.Log.Warn("websocket action failed",
				zap.String("viewer", client.viewer.ID),
				zap.String("action", string(req.Action)),
				zap.Error(err))
		}
	} else {
		resp.Success = true
	}
	client.send(resp)
}

func (h *ChatWebsocketHandler) dispatch(ctx context.Context, client *wsClient, req domain.WSRequest, payload map[string]interface{}) error {
	switch req.Action {
	//進入對話, 同一條連線只保留一個 session
	case domain.EnterConversation:
		client.closeSession()
		s, err := h.chatUC.Open(ctx, client.viewer, req.ConversationID, client)
		if err != nil {
			return err
		}
		client.session = s
		payload["conversation_id"] = s.ConversationID()
		return nil

	case domain.ListConversations:
		entries, err := h.inboxUC.List(ctx, client.viewer)
		if err != nil {
			return err
		}
		payload["conversations"] = entries
		return nil
	}

	s := client.session
	if s == nil {
		return domain.ErrNoConversation
	}

	switch req.Action {
	case domain.LeaveConversation:
		payload["conversation_id"] = s.ConversationID()
		client.closeSession()

	case domain.SendMessage:
		draft := domain.Draft{Text: req.Text}
		if req.Attachment != nil {
			draft.Attachment = &domain.Attachment{
				Name:        req.Attachment.Name,
				ContentType: req.Attachment.ContentType,
				Data:        req.Attachment.Data,
			}
		}
		id, err := s.Submit(ctx, draft)
		if err != nil {
			return err
		}
		payload["message_id"] = id

	case domain.Typing:
		s.Keystroke()

	case domain.StopTyping:
		s.StopTyping(ctx)

	case domain.ToggleReactionAction:
		if err := s.ToggleReaction(ctx, req.MessageID, req.Emoji); err != nil {
			return err
		}
		payload["message_id"] = req.MessageID

	case domain.MarkRead:
		n, err := s.MarkRead(ctx)
		if err != nil {
			return err
		}
		payload["marked"] = n

	case domain.Heartbeat:
		s.Heartbeat(ctx)

	default:
		return errors.New("unknown action")
	}
	return nil
}

func (h *ChatWebsocketHandler) pushInbox(ctx context.Context, client *wsClient) {
	entries, err := h.inboxUC.List(ctx, client.viewer)
	if err != nil {
		logger.Log.Warn("inbox refresh failed", zap.Error(err))
		return
	}
	client.send(domain.WSResponse{
		Action:  string(domain.InboxPush),
		Success: true,
		Payload: map[string]interface{}{"conversations": entries},
	})
}

func (h *ChatWebsocketHandler) sendError(client *wsClient, errorMsg string) {
	client.send(domain.WSResponse{
		Action:  "error",
		Success: false,
		Error:   errorMsg,
	})
}

func closeWebSocketConnection(conn *websocket.Conn, code int, reason string) {
	if err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason)); err != nil {
		logger.Log.Debug("send close message failed", zap.Error(err))
	}
	conn.Close()
}
