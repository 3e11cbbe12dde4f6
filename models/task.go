package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskType 描述學習任務的種類
type TaskType string

const (
	TaskTypeLearningMaterial TaskType = "learning_material"
	TaskTypeQuiz             TaskType = "quiz"
)

// TaskStatus 描述學習任務目前的發佈狀態
type TaskStatus string

const (
	TaskStatusDraft     TaskStatus = "draft"
	TaskStatusPublished TaskStatus = "published"
)

// Task 代表課程中的一個學習任務
// 可能是學習教材或測驗，內容以區塊列表的形式儲存於 jsonb 欄位
type Task struct {
	gorm.Model

	ID                 uuid.UUID  `gorm:"type:uuid;default:public.uuid_generate_v7();primaryKey;<-:false"`
	CourseID           uuid.UUID  `gorm:"type:uuid;not null;<-:create;index"`
	MilestoneID        *uuid.UUID `gorm:"type:uuid;index"`
	Type               TaskType   `gorm:"type:varchar(32);not null;<-:create"`
	Title              string     `gorm:"type:varchar(255);not null"`
	Status             TaskStatus `gorm:"type:varchar(16);not null;default:'draft'"`
	Ordering           int        `gorm:"type:integer;not null;default:0"`
	Blocks             []Block    `gorm:"serializer:json;type:jsonb"`
	ScheduledPublishAt *time.Time `gorm:"type:timestamp with time zone"`

	// 外鍵關聯
	Course    Course
	Milestone *Milestone `gorm:"foreignKey:MilestoneID"`
	Questions []Question
}
