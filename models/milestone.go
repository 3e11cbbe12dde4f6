package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Milestone 代表課程中的一個學習里程碑
// 課程結構生成時依序建立，底下掛載多個學習任務
type Milestone struct {
	gorm.Model

	ID       uuid.UUID `gorm:"type:uuid;default:public.uuid_generate_v7();primaryKey;<-:false"`
	CourseID uuid.UUID `gorm:"type:uuid;not null;<-:create;index"`
	Name     string    `gorm:"type:varchar(255);not null"`
	Color    string    `gorm:"type:varchar(32);not null;default:''"`
	Ordering int       `gorm:"type:integer;not null;default:0"`

	// 外鍵關聯
	Course Course
	Tasks  []Task
}
