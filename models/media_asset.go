package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MediaAsset 代表使用者上傳的媒體檔案
// 記錄儲存位置、公開網址與檔案的基本屬性
type MediaAsset struct {
	gorm.Model

	ID          uuid.UUID `gorm:"type:uuid;default:public.uuid_generate_v7();primaryKey;<-:false"`
	Key         string    `gorm:"type:text;not null;<-:create"`
	Url         string    `gorm:"type:text;not null;<-:create"`
	ContentType string    `gorm:"type:varchar(128);not null;<-:create"`
	Size        int64     `gorm:"type:bigint;not null;<-:create"`
	Filename    string    `gorm:"type:varchar(255);not null;<-:create"`
}
