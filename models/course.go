package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Course 代表平台上的一門課程
// 包含課程名稱、描述以及所屬梯次的識別碼
type Course struct {
	gorm.Model

	ID          uuid.UUID  `gorm:"type:uuid;default:public.uuid_generate_v7();primaryKey;<-:false"`
	Name        string     `gorm:"type:varchar(255);not null"`
	Description string     `gorm:"type:text;not null;default:''"`
	CohortID    *uuid.UUID `gorm:"type:uuid;index"`

	// 外鍵關聯
	Milestones []Milestone
	Tasks      []Task
}
