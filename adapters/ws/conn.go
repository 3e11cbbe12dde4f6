package ws

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// Conn 包裝一條 WebSocket 連線並序列化所有寫入。
// gorilla 的連線同一時間僅允許一個寫入者，
// 會期的 pong 回覆與 hub 的廣播都必須經由這裡送出。
type Conn struct {
	socket  ISocket
	writeMu sync.Mutex
}

// NewConn 將底層連線包裝為可供多個寫入者共用的 Conn
func NewConn(socket ISocket) *Conn {
	return &Conn{socket: socket}
}

// WriteJSON 將 payload 編碼為 JSON 後以文字訊息寫入連線
func (c *Conn) WriteJSON(payload any) error {
	const op = "WriteJSON"

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("[%s] Fail to encode payload, err=%w", op, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.socket.WriteMessage(websocket.TextMessage, data)
}

// ReadMessage 自連線讀取下一則訊息
// 不設置任何讀取期限，呼叫者會阻塞直到有訊息或連線關閉
func (c *Conn) ReadMessage() ([]byte, error) {
	_, data, err := c.socket.ReadMessage()
	return data, err
}

// Close 關閉底層連線，重複關閉的錯誤由呼叫者自行忽略
func (c *Conn) Close() error {
	return c.socket.Close()
}
