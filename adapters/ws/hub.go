package ws

import (
	"log/slog"
	"sync"
)

// ConnectionHub 依主題管理所有 WebSocket 連線並負責訊息廣播。
// 主題與連線的對應以巢狀集合儲存，廣播時先在鎖內快照成員，
// 實際寫入在鎖外逐一進行，緩慢的連線不會阻塞其他主題的操作。
type ConnectionHub struct {
	logger *slog.Logger

	mu     sync.RWMutex
	topics map[string]map[*Conn]struct{}
}

// NewConnectionHub 建立一個新的連線中樞
func NewConnectionHub(logger *slog.Logger) *ConnectionHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnectionHub{
		logger: logger.With(slog.String("caller", "ConnectionHub")),
		topics: make(map[string]map[*Conn]struct{}),
	}
}

// Register 將連線加入指定主題的集合，主題不存在時建立。
// 同一條連線重複註冊不會改變集合內容。
func (h *ConnectionHub) Register(topic string, conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.topics[topic]
	if !ok {
		conns = make(map[*Conn]struct{})
		h.topics[topic] = conns
	}
	conns[conn] = struct{}{}
}

// Unregister 將連線自主題的集合移除，集合清空時立即移除主題鍵，
// 不會留下空集合。主題或連線不存在時不做任何事。
func (h *ConnectionHub) Unregister(topic string, conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.topics[topic]
	if !ok {
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.topics, topic)
	}
}

// Broadcast 將 payload 送往主題下快照當下的每一條連線。
// 任一連線傳送失敗只會記錄並繼續送往其餘連線，
// 失敗的連線於本輪結束後經由 Unregister 移除並關閉，
// 下一輪廣播的快照不會再包含它；錯誤永遠不會回傳給呼叫者。
func (h *ConnectionHub) Broadcast(topic string, payload any) {
	h.mu.RLock()
	conns, ok := h.topics[topic]
	if !ok {
		h.mu.RUnlock()
		return
	}
	snapshot := make([]*Conn, 0, len(conns))
	for conn := range conns {
		snapshot = append(snapshot, conn)
	}
	h.mu.RUnlock()

	var failed []*Conn
	for _, conn := range snapshot {
		if err := conn.WriteJSON(payload); err != nil {
			h.logger.Warn("Fail to deliver broadcast, drop connection",
				slog.String("topic", topic),
				slog.Any("error", err),
			)
			failed = append(failed, conn)
		}
	}

	for _, conn := range failed {
		h.Unregister(topic, conn)
		_ = conn.Close()
	}
}

// Subscribers 回傳主題目前註冊的連線數量，主題不存在時為 0
func (h *ConnectionHub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
