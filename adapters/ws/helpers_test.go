package ws

import (
	"net"
	"sync"

	"github.com/gorilla/websocket"
)

// fakeSocket 模擬底層 WebSocket 連線，讓測試能精確控制讀寫行為
type fakeSocket struct {
	mu       sync.Mutex
	attempts int
	written  [][]byte
	writeErr error

	// 非 nil 時每次寫入都會先停在這裡等待放行
	writeGate chan struct{}

	reads     chan []byte
	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{
		reads:  make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeSocket) ReadMessage() (int, []byte, error) {
	select {
	case data := <-f.reads:
		return websocket.TextMessage, data, nil
	case <-f.closed:
		return 0, nil, net.ErrClosed
	}
}

func (f *fakeSocket) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	f.attempts++
	f.mu.Unlock()

	if f.writeGate != nil {
		<-f.writeGate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, data)
	return nil
}

func (f *fakeSocket) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeSocket) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func (f *fakeSocket) writtenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}

func (f *fakeSocket) lastWritten() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.written) == 0 {
		return nil
	}
	return f.written[len(f.written)-1]
}

// countingHub 記錄 Register 與 Unregister 的呼叫次數，供會期測試檢查清理行為
type countingHub struct {
	mu          sync.Mutex
	registers   int
	unregisters int
}

func (h *countingHub) Register(topic string, conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.registers++
}

func (h *countingHub) Unregister(topic string, conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unregisters++
}

func (h *countingHub) Broadcast(topic string, payload any) {}

func (h *countingHub) Subscribers(topic string) int { return 0 }

func (h *countingHub) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registers, h.unregisters
}
