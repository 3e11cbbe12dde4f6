package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Schedule 代表一門課程的學習排程
// 每門課程僅保留一份，重新生成時整份覆寫
type Schedule struct {
	gorm.Model

	ID          uuid.UUID     `gorm:"type:uuid;default:public.uuid_generate_v7();primaryKey;<-:false"`
	CourseID    uuid.UUID     `gorm:"type:uuid;not null;<-:create;uniqueIndex"`
	GeneratedAt time.Time     `gorm:"type:timestamp with time zone;not null"`
	Timezone    string        `gorm:"type:varchar(64);not null;default:'UTC'"`
	Days        []ScheduleDay `gorm:"serializer:json;type:jsonb"`

	// 外鍵關聯
	Course Course
}

// ScheduleDay 代表排程中的一天以及當天安排的學習項目
type ScheduleDay struct {
	Date    DateOnly       `json:"date"`
	Items   []ScheduleItem `json:"items"`
	Summary *string        `json:"summary,omitempty"`
}

// ScheduleItemType 描述排程項目的種類
type ScheduleItemType string

const (
	ScheduleItemLearning ScheduleItemType = "learning"
	ScheduleItemQuiz     ScheduleItemType = "quiz"
)

// ScheduleItem 代表排程中一天內的一個學習項目
type ScheduleItem struct {
	Type            ScheduleItemType `json:"type"`
	TaskID          uuid.UUID        `json:"task_id"`
	MilestoneID     *uuid.UUID       `json:"milestone_id,omitempty"`
	Title           string           `json:"title"`
	DurationMinutes int              `json:"duration_minutes"`
}

// DateOnly 代表僅包含日期的時間值
// JSON 表示格式為 YYYY-MM-DD
type DateOnly struct {
	time.Time
}

// NewDateOnly 將時間值截斷至當天零點後包裝為 DateOnly
func NewDateOnly(t time.Time) DateOnly {
	return DateOnly{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())}
}

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(time.DateOnly) + `"`), nil
}

func (d *DateOnly) UnmarshalJSON(data []byte) error {
	t, err := time.Parse(time.DateOnly, strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}
