package ws

import (
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"
)

const (
	MessageTypePing = "ping"
	MessageTypePong = "pong"
)

// ControlMessage 代表客戶端與伺服器之間的保活控制訊息
type ControlMessage struct {
	Type string `json:"type"`
}

// Session 代表單一客戶端在某個主題上的連線會期。
// 會期負責將連線註冊到 hub、回應客戶端的 ping，
// 並保證連線結束時自 hub 移除。
type Session struct {
	hub    IConnectionHub
	conn   *Conn
	topic  string
	logger *slog.Logger
}

// NewSession 建立一個尚未啟動的連線會期
func NewSession(hub IConnectionHub, conn *Conn, topic string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		hub:   hub,
		conn:  conn,
		topic: topic,
		logger: logger.With(
			slog.String("caller", "Session"),
			slog.String("topic", topic),
		),
	}
}

// Run 將連線註冊到主題後進入讀取迴圈，直到連線關閉才返回。
// 伺服器不設置閒置期限也不主動發送 ping，保活完全由客戶端驅動；
// 取消的唯一途徑是連線關閉。無論以何種方式離開迴圈，
// 連線都會自 hub 移除並關閉，且每個離開路徑僅移除一次。
func (s *Session) Run() {
	s.hub.Register(s.topic, s.conn)
	defer func() {
		s.hub.Unregister(s.topic, s.conn)
		_ = s.conn.Close()
	}()

	for {
		data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("Connection closed unexpectedly", slog.Any("error", err))
			}
			return
		}

		// 先嘗試解析為控制訊息，解析失敗視為原始資料；
		// 只有格式正確的 ping 會得到回應，其他訊息一律忽略
		var msg ControlMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != MessageTypePing {
			continue
		}

		if err := s.conn.WriteJSON(ControlMessage{Type: MessageTypePong}); err != nil {
			s.logger.Warn("Fail to reply pong, close session", slog.Any("error", err))
			return
		}
	}
}
