package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuestionType 描述題目的作答判定方式
type QuestionType string

const (
	QuestionTypeObjective  QuestionType = "objective"
	QuestionTypeSubjective QuestionType = "subjective"
)

// Question 代表測驗任務中的一道題目
// 題幹、正解與批改指引皆以區塊列表的形式儲存
type Question struct {
	gorm.Model

	ID              uuid.UUID    `gorm:"type:uuid;default:public.uuid_generate_v7();primaryKey;<-:false"`
	TaskID          uuid.UUID    `gorm:"type:uuid;not null;<-:create;index"`
	Type            QuestionType `gorm:"type:varchar(16);not null"`
	Title           string       `gorm:"type:varchar(255);not null;default:''"`
	Blocks          []Block      `gorm:"serializer:json;type:jsonb"`
	AnswerBlocks    []Block      `gorm:"serializer:json;type:jsonb"`
	CoachingBlocks  []Block      `gorm:"serializer:json;type:jsonb"`
	InputType       string       `gorm:"type:varchar(32);not null;default:'text'"`
	ResponseType    string       `gorm:"type:varchar(32);not null;default:'chat'"`
	MaxAttempts     *int         `gorm:"type:integer"`
	IsFeedbackShown bool         `gorm:"type:boolean;not null;default:true"`
	Ordering        int          `gorm:"type:integer;not null;default:0"`

	// 外鍵關聯
	Task Task
}
