package ws

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestSessionPingPong(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewConnectionHub(nil)
	socket := newFakeSocket()
	session := NewSession(hub, NewConn(socket), "course-1", nil)

	done := make(chan struct{})
	go func() {
		session.Run()
		close(done)
	}()

	// 會期啟動後連線先註冊到主題上
	require.Eventually(t, func() bool {
		return hub.Subscribers("course-1") == 1
	}, time.Second, 5*time.Millisecond)

	// 收到 ping 時回覆 pong
	socket.reads <- []byte(`{"type":"ping"}`)
	require.Eventually(t, func() bool {
		return socket.writtenCount() == 1
	}, time.Second, 5*time.Millisecond)
	require.JSONEq(t, `{"type":"pong"}`, string(socket.lastWritten()))

	// 關閉連線後會期結束並自 hub 移除
	_ = socket.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("session did not stop after the connection closed")
	}
	require.Equal(t, 0, hub.Subscribers("course-1"))
}

func TestSessionIgnoresNonPingMessages(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{
			name:  "非 JSON 的原始文字",
			frame: []byte("hello there"),
		},
		{
			name:  "其他種類的控制訊息",
			frame: []byte(`{"type":"subscribe"}`),
		},
		{
			name:  "缺少 type 欄位的 JSON",
			frame: []byte(`{"course":"math"}`),
		},
		{
			name:  "空訊息",
			frame: []byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer goleak.VerifyNone(t)

			hub := NewConnectionHub(nil)
			socket := newFakeSocket()
			session := NewSession(hub, NewConn(socket), "course-1", nil)

			done := make(chan struct{})
			go func() {
				session.Run()
				close(done)
			}()

			// 送出不該得到回應的訊息，再送出 ping 作為基準點
			socket.reads <- tt.frame
			socket.reads <- []byte(`{"type":"ping"}`)

			// 只會收到 ping 的回覆，前一則訊息被忽略且迴圈仍在運作
			require.Eventually(t, func() bool {
				return socket.writtenCount() == 1
			}, time.Second, 5*time.Millisecond)
			require.JSONEq(t, `{"type":"pong"}`, string(socket.lastWritten()))

			_ = socket.Close()
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("session did not stop after the connection closed")
			}
		})
	}
}

func TestSessionUnregistersOnceOnWriteFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	// 回覆 pong 失敗時會期須結束，且連線僅自 hub 移除一次
	hub := &countingHub{}
	socket := newFakeSocket()
	socket.writeErr = net.ErrClosed
	session := NewSession(hub, NewConn(socket), "course-1", nil)

	done := make(chan struct{})
	go func() {
		session.Run()
		close(done)
	}()

	socket.reads <- []byte(`{"type":"ping"}`)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("session did not stop after the write failure")
	}

	registers, unregisters := hub.counts()
	require.Equal(t, 1, registers)
	require.Equal(t, 1, unregisters)
}

func TestSessionOverWebsocket(t *testing.T) {
	defer goleak.VerifyNone(t)

	// 以真實的 WebSocket 連線驗證握手、保活與廣播的完整流程
	hub := NewConnectionHub(nil)
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		socket, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewSession(hub, NewConn(socket), "course-e2e", nil).Run()
	}))
	defer server.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return hub.Subscribers("course-e2e") == 1
	}, time.Second, 5*time.Millisecond)

	// ping 往返
	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	_, reply, err := client.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"pong"}`, string(reply))

	// hub 的廣播會送達客戶端
	hub.Broadcast("course-e2e", map[string]string{"event": "generation_complete"})
	_, event, err := client.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"generation_complete"}`, string(event))

	// 客戶端離線後連線自 hub 移除
	require.NoError(t, client.Close())
	require.Eventually(t, func() bool {
		return hub.Subscribers("course-e2e") == 0
	}, time.Second, 5*time.Millisecond)
}
