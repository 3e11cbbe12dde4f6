//go:generate mockgen -package=ws -destination=mock.go -source=interfaces.go

package ws

// ISocket 定義了 Session 所需的最小 WebSocket 連線行為
// 讓測試可以用假連線替換 gorilla 的實作
type ISocket interface {
	// ReadMessage 讀取下一則完整訊息，連線關閉時回傳錯誤
	ReadMessage() (messageType int, p []byte, err error)
	// WriteMessage 將一則完整訊息寫入連線
	WriteMessage(messageType int, data []byte) error
	// Close 關閉底層連線
	Close() error
}

// IConnectionHub 定義了依主題管理連線與廣播的介面
type IConnectionHub interface {
	// Register 將連線加入指定主題，重複註冊同一條連線不會產生副作用
	Register(topic string, conn *Conn)
	// Unregister 將連線自指定主題移除，主題底下沒有連線時一併移除主題
	Unregister(topic string, conn *Conn)
	// Broadcast 將訊息廣播給主題下的所有連線
	// 傳送失敗的連線會在本輪廣播結束後被移除，錯誤不會回傳給呼叫者
	Broadcast(topic string, payload any)
	// Subscribers 回傳主題目前註冊的連線數量，主題不存在時為 0
	Subscribers(topic string) int
}
