package api

import "github.com/google/uuid"

// GenerationJob 是課程結構生成任務的訊息格式
// 透過msgpack編碼後寫入Redis stream，由背景worker消費
type GenerationJob struct {
	JobID            uuid.UUID
	CourseID         uuid.UUID
	Description      string
	IntendedAudience string
	Instructions     string
}

// 生成進度事件的種類，透過WebSocket推送給訂閱課程的前端
const (
	EventTaskCreated        = "task_created"
	EventTaskGenerated      = "task_generated"
	EventGenerationComplete = "generation_complete"
)

// GenerationEvent 是推送給前端的生成進度事件
type GenerationEvent struct {
	Event    string     `json:"event"`
	CourseID uuid.UUID  `json:"course_id"`
	TaskID   *uuid.UUID `json:"task_id,omitempty"`
	Title    string     `json:"title,omitempty"`
	TaskType string     `json:"task_type,omitempty"`
}
