package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sensai/adapters/llm"
	"sensai/models"
)

// GenerateScheduleRequest 是排程生成的使用者偏好，所有欄位皆可省略
type GenerateScheduleRequest struct {
	StartDate       *models.DateOnly  `json:"start_date"`
	IncludeWeekends *bool             `json:"include_weekends"`
	ExcludeWeekdays []int             `json:"exclude_weekdays"`
	ExcludeDates    []models.DateOnly `json:"exclude_dates"`
	HoursPerDay     *float64          `json:"hours_per_day"`
	DaysPerWeek     *int              `json:"days_per_week"`
	Timezone        string            `json:"timezone"`
}

const schedulePlannerPrompt = `You are a course scheduling planner. Use the provided course structure (milestones and tasks) and user preferences
to produce a detailed day-by-day plan. Return JSON that matches the provided schema exactly. Do not add extra fields.

Rules:
- Maintain pedagogy: schedule learning material before quizzes of the same concept.
- Respect excluded weekdays and specific dates. If include_weekends is false, avoid weekends unless not in excluded list and explicitly allowed.
- Balance to approximately hours_per_day across working days; avoid gaps when possible.
- Always include task_id and milestone_id when known; include short titles.`

const scheduleJSONSchema = `{
  "type": "object",
  "properties": {
    "course_id": {"type": "string", "format": "uuid"},
    "generated_at": {"type": "string", "format": "date-time"},
    "timezone": {"type": "string"},
    "days": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "date": {"type": "string", "format": "date"},
          "items": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "type": {"type": "string", "enum": ["learning", "quiz"]},
                "task_id": {"type": "string", "format": "uuid"},
                "milestone_id": {"type": "string", "format": "uuid"},
                "title": {"type": "string"},
                "duration_minutes": {"type": "integer"}
              },
              "required": ["type", "task_id", "title", "duration_minutes"]
            }
          },
          "summary": {"type": "string"}
        },
        "required": ["date", "items"]
      }
    }
  },
  "required": ["days"]
}`

// Generate a day-by-day schedule for a course
// (POST /api/ai/courses/{courseID}/schedule)
func (impl *ServerImpl) PostGenerateCourseSchedule(c *gin.Context) {
	const op = "PostGenerateCourseSchedule"
	// 檢查課程ID是否合法
	courseID, err := uuid.Parse(c.Param("courseID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid course ID"})
		return
	}
	mock, _ := strconv.ParseBool(c.DefaultQuery("mock", "false"))
	persist, _ := strconv.ParseBool(c.DefaultQuery("persist", "false"))
	// 偏好設定可以整份省略
	var req GenerateScheduleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
			return
		}
	}
	// 檢查課程是否存在，一併載入里程碑與任務
	course := models.Course{ID: courseID}
	if result := impl.db.
		Preload("Milestones", func(db *gorm.DB) *gorm.DB {
			return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "ordering"}})
		}).
		Preload("Milestones.Tasks", func(db *gorm.DB) *gorm.DB {
			return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "ordering"}})
		}).
		First(&course); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Course not found"})
			return
		}
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to find course, err=%w", op, result.Error))
		return
	}

	var schedule models.Schedule
	if mock {
		schedule = buildMockSchedule(course, req, time.Now().UTC())
	} else {
		generated, err := impl.generateScheduleWithLLM(c.Request.Context(), course, req)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"message": "LLM error: " + err.Error()})
			return
		}
		schedule = generated
	}

	if persist {
		// 每門課程僅保留一份排程，重複生成時整份覆寫
		if result := impl.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "course_id"}},
			UpdateAll: true,
		}).Create(&schedule); result.Error != nil {
			impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to save schedule, err=%w", op, result.Error))
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"schedule": schedule})
}

// 依使用者偏好將課程任務依序排入行程，每個可用日安排一個任務
func buildMockSchedule(course models.Course, req GenerateScheduleRequest, now time.Time) models.Schedule {
	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}
	includeWeekends := req.IncludeWeekends != nil && *req.IncludeWeekends
	excludedWeekdays := make(map[int]struct{}, len(req.ExcludeWeekdays))
	for _, weekday := range req.ExcludeWeekdays {
		excludedWeekdays[weekday] = struct{}{}
	}
	excludedDates := make(map[string]struct{}, len(req.ExcludeDates))
	for _, date := range req.ExcludeDates {
		excludedDates[date.Format(time.DateOnly)] = struct{}{}
	}
	allowed := func(day time.Time) bool {
		if _, ok := excludedDates[day.Format(time.DateOnly)]; ok {
			return false
		}
		if _, ok := excludedWeekdays[int(day.Weekday())]; ok {
			return false
		}
		if !includeWeekends && (day.Weekday() == time.Saturday || day.Weekday() == time.Sunday) {
			return false
		}
		return true
	}

	current := now
	if req.StartDate != nil {
		current = req.StartDate.Time
	}
	current = time.Date(current.Year(), current.Month(), current.Day(), 0, 0, 0, 0, time.UTC)

	days := make([]models.ScheduleDay, 0)
	for _, milestone := range course.Milestones {
		for _, task := range milestone.Tasks {
			// 排除條件可能涵蓋所有日期，連續跳過超過一年時直接排入
			for skipped := 0; !allowed(current) && skipped < 366; skipped++ {
				current = current.AddDate(0, 0, 1)
			}
			item := models.ScheduleItem{
				Type:            models.ScheduleItemLearning,
				TaskID:          task.ID,
				MilestoneID:     task.MilestoneID,
				Title:           task.Title,
				DurationMinutes: 90,
			}
			if task.Type == models.TaskTypeQuiz {
				item.Type = models.ScheduleItemQuiz
				item.DurationMinutes = 30
			}
			days = append(days, models.ScheduleDay{
				Date:  models.NewDateOnly(current),
				Items: []models.ScheduleItem{item},
			})
			current = current.AddDate(0, 0, 1)
		}
	}

	return models.Schedule{
		CourseID:    course.ID,
		GeneratedAt: now,
		Timezone:    timezone,
		Days:        days,
	}
}

// 將課程結構與使用者偏好交給LLM規劃逐日排程
func (impl *ServerImpl) generateScheduleWithLLM(ctx context.Context, course models.Course, req GenerateScheduleRequest) (models.Schedule, error) {
	type promptTask struct {
		ID    uuid.UUID       `json:"id"`
		Title string          `json:"title"`
		Type  models.TaskType `json:"type"`
	}
	type promptMilestone struct {
		ID    uuid.UUID    `json:"id"`
		Name  string       `json:"name"`
		Tasks []promptTask `json:"tasks"`
	}
	milestones := lo.Map(course.Milestones, func(milestone models.Milestone, _ int) promptMilestone {
		return promptMilestone{
			ID:   milestone.ID,
			Name: milestone.Name,
			Tasks: lo.Map(milestone.Tasks, func(task models.Task, _ int) promptTask {
				return promptTask{ID: task.ID, Title: task.Title, Type: task.Type}
			}),
		}
	})
	milestonesJSON, err := json.Marshal(milestones)
	if err != nil {
		return models.Schedule{}, fmt.Errorf("fail to encode milestones, err=%w", err)
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}
	preferences := map[string]any{
		"start_date":       req.StartDate,
		"include_weekends": req.IncludeWeekends != nil && *req.IncludeWeekends,
		"exclude_weekdays": req.ExcludeWeekdays,
		"exclude_dates":    req.ExcludeDates,
		"hours_per_day":    req.HoursPerDay,
		"days_per_week":    req.DaysPerWeek,
		"timezone":         timezone,
	}
	preferencesJSON, err := json.Marshal(preferences)
	if err != nil {
		return models.Schedule{}, fmt.Errorf("fail to encode preferences, err=%w", err)
	}

	userContent := fmt.Sprintf(
		"Course ID: %s\nCourse name: %s\nMilestones and tasks (JSON): %s\nUser preferences (JSON): %s\nReturn JSON matching this JSON Schema strictly: %s",
		course.ID, course.Name, milestonesJSON, preferencesJSON, scheduleJSONSchema,
	)

	var generated struct {
		Days []models.ScheduleDay `json:"days"`
	}
	if err := impl.llmClient.GenerateJSON(ctx, llm.Request{
		System:    schedulePlannerPrompt,
		User:      userContent,
		MaxTokens: 8192,
	}, &generated); err != nil {
		return models.Schedule{}, err
	}

	return models.Schedule{
		CourseID:    course.ID,
		GeneratedAt: time.Now().UTC(),
		Timezone:    timezone,
		Days:        generated.Days,
	}, nil
}
