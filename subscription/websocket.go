package subscription

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"taskboard/domain"
	"taskboard/internal/consts"
	"taskboard/session"
)

const writeWait = 5 * time.Second

// WebSocketChannel subscribes through the server's socket endpoint by sending
// join and leave control messages for a board.
type WebSocketChannel struct {
	URL     string
	Session session.Session
	Dialer  *websocket.Dialer
	Logger  *log.Logger
}

type controlMessage struct {
	Type    string `json:"type"`
	BoardID string `json:"boardId"`
}

// NewWebSocketChannel returns a channel dialing url as sess.
func NewWebSocketChannel(url string, sess session.Session, logger *log.Logger) *WebSocketChannel {
	return &WebSocketChannel{URL: url, Session: sess, Logger: logger}
}

func (w *WebSocketChannel) Subscribe(ctx context.Context, boardID string, handler Handler) (Subscription, error) {
	if boardID == "" {
		return nil, fmt.Errorf("%w: board id is required", domain.ErrValidation)
	}
	if w.Session.Token == "" {
		return nil, fmt.Errorf("%w: missing bearer token", domain.ErrUnauthorized)
	}
	dialer := w.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	header := http.Header{}
	header.Set("Authorization", w.Session.Authorization())
	conn, resp, err := dialer.DialContext(ctx, w.URL, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: push handshake rejected: %s", domain.ErrUnauthorized, resp.Status)
		}
		return nil, fmt.Errorf("%w: dial push channel: %v", domain.ErrTransport, err)
	}

	s := &wsSubscription{
		conn:    conn,
		boardID: boardID,
		disp:    newDispatcher(boardID, handler, w.Logger, "websocket"),
		done:    make(chan struct{}),
	}
	if err := s.send(consts.JoinBoard); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: join board: %v", domain.ErrTransport, err)
	}
	go s.readLoop()
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()
	return s, nil
}

type wsSubscription struct {
	conn    *websocket.Conn
	boardID string
	disp    *dispatcher
	done    chan struct{}

	writeMu sync.Mutex
	once    sync.Once
	err     error
}

func (s *wsSubscription) send(kind string) error {
	data, err := sonic.Marshal(controlMessage{Type: kind, BoardID: s.boardID})
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *wsSubscription) readLoop() {
	defer close(s.done)
	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			if !s.disp.closed.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.disp.logger.WithError(err).Warn("push connection lost")
			}
			return
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}
		s.disp.frame(data)
	}
}

// Close leaves the board and closes the socket. It is safe to call more than
// once.
func (s *wsSubscription) Close() error {
	s.once.Do(func() {
		s.disp.stop()
		if err := s.send(consts.LeaveBoard); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			s.disp.logger.WithError(err).Debug("leave board failed")
		}
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		s.writeMu.Unlock()
		s.err = s.conn.Close()
	})
	return s.err
}
