package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"sensai/adapters/ws"
	"sensai/models"
)

// 生成進度頁面可能部署在不同網域，跨域限制交由前方的反向代理處理
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// 客戶端僅會送出keep-alive用的控制訊息，限制訊息大小避免濫用
const maxControlMessageSize = 1024

// Track course generation progress
// (GET /ws/courses/{courseID}/generation)
func (impl *ServerImpl) GetCourseGenerationSocket(c *gin.Context) {
	const op = "GetCourseGenerationSocket"
	// 檢查課程ID是否合法
	courseID, err := uuid.Parse(c.Param("courseID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid course ID"})
		return
	}
	// 檢查課程是否存在
	course := models.Course{ID: courseID}
	if result := impl.db.First(&course); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Course not found"})
			return
		}
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to find course, err=%w", op, result.Error))
		return
	}
	// 升級HTTP連線為WebSocket
	socket, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// 升級失敗時gorilla已經寫入錯誤回應，這裡僅記錄
		slog.Warn("Fail to upgrade connection", slog.String("op", op), slog.Any("error", err))
		return
	}
	socket.SetReadLimit(maxControlMessageSize)
	// 升級成功後連線交由session loop管理，直到客戶端離線
	session := ws.NewSession(impl.hub, ws.NewConn(socket), courseID.String(), slog.Default())
	session.Run()
}
