package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskCompletion 代表使用者完成任務或題目的紀錄
// 同一使用者對同一任務（或題目）僅會有一筆紀錄
// 唯一索引僅約束未刪除的紀錄，取消完成後可以重新標記
type TaskCompletion struct {
	gorm.Model

	ID          uuid.UUID  `gorm:"type:uuid;default:public.uuid_generate_v7();primaryKey;<-:false"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;<-:create;uniqueIndex:idx_completions_user_task_question"`
	TaskID      uuid.UUID  `gorm:"type:uuid;not null;<-:create;uniqueIndex:idx_completions_user_task_question"`
	QuestionID  *uuid.UUID `gorm:"type:uuid;<-:create;uniqueIndex:idx_completions_user_task_question,where:deleted_at IS NULL"`
	CompletedAt time.Time  `gorm:"type:timestamp with time zone;not null"`

	// 外鍵關聯
	Task     Task
	Question *Question `gorm:"foreignKey:QuestionID"`
}
