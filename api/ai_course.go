package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sensai/adapters/llm"
	redisAdapter "sensai/adapters/redis"
	"sensai/models"
)

type GenerateCourseStructureRequest struct {
	Description      string `json:"description" binding:"required"`
	IntendedAudience string `json:"intended_audience"`
	Instructions     string `json:"instructions"`
}

const courseArchitectPrompt = `You are a curriculum architect. Design a course structure for the given topic as a list of milestones, each containing an ordered sequence of tasks. Return ONLY JSON conforming to the schema. Order tasks so learning material comes before the quizzes that assess it. Keep titles short and specific.`

const structureJSONSchema = `{
  "type": "object",
  "properties": {
    "milestones": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "color": {"type": "string", "description": "hex color like #2563EB"},
          "tasks": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "title": {"type": "string"},
                "type": {"type": "string", "enum": ["learning_material", "quiz"]}
              },
              "required": ["title", "type"]
            }
          }
        },
        "required": ["name", "tasks"]
      }
    }
  },
  "required": ["milestones"]
}`

// generatedStructure 是LLM輸出的課程結構格式
type generatedStructure struct {
	Milestones []struct {
		Name  string `json:"name"`
		Color string `json:"color"`
		Tasks []struct {
			Title string          `json:"title"`
			Type  models.TaskType `json:"type"`
		} `json:"tasks"`
	} `json:"milestones"`
}

// 里程碑未指定顏色時依序套用的預設色票
var milestonePalette = []string{"#2563EB", "#9333EA", "#0D9488", "#EA580C", "#DB2777"}

// Start course structure generation in the background
// (POST /api/ai/courses/{courseID}/structure)
func (impl *ServerImpl) PostGenerateCourseStructure(c *gin.Context) {
	const op = "PostGenerateCourseStructure"
	// 檢查課程ID是否合法
	courseID, err := uuid.Parse(c.Param("courseID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid course ID"})
		return
	}
	var req GenerateCourseStructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
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
	// 檢查生成請求的內容安全性
	verdict := impl.safetyFilter.EvaluateCourseRequest(c.Request.Context(), req.Description, req.IntendedAudience, req.Instructions)
	if !verdict.IsSafe {
		c.JSON(http.StatusBadRequest, gin.H{"message": verdict.Reason})
		return
	}
	// 建立生成任務並透過Lua script確保同一課程同時只有一個生成流程
	job := GenerationJob{
		JobID:            uuid.New(),
		CourseID:         courseID,
		Description:      req.Description,
		IntendedAudience: req.IntendedAudience,
		Instructions:     req.Instructions,
	}
	values, err := redisAdapter.EncodeStreamValues(job)
	if err != nil {
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to encode generation job, err=%w", op, err))
		return
	}
	claimed, err := EnqueueGenerationScript.Run(
		c.Request.Context(),
		impl.redisClient,
		[]string{impl.generationClaimKey(courseID), impl.config.Redis.StreamKeys.Generation},
		job.JobID.String(),
		values["data"],
		int(impl.config.Generation.ClaimTTL.Seconds()),
	).Int()
	if err != nil {
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to enqueue generation job, err=%w", op, err))
		return
	}
	if claimed == 0 {
		c.JSON(http.StatusConflict, gin.H{"message": "Generation already in progress"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": job.JobID})
}

// 課程生成鎖的Redis key
func (impl *ServerImpl) generationClaimKey(courseID uuid.UUID) string {
	return fmt.Sprintf("%sgeneration:course:%s", impl.config.Redis.KeyPrefix, courseID)
}

// 執行課程結構生成任務
// 生成過程中透過hub將進度事件推送給訂閱該課程的連線
func (impl *ServerImpl) runGeneration(ctx context.Context, logger *slog.Logger, job GenerationJob) error {
	topic := job.CourseID.String()
	// 生成結束後釋放生成鎖，流程中斷時由TTL負責過期
	defer func() {
		if err := impl.redisClient.Del(context.WithoutCancel(ctx), impl.generationClaimKey(job.CourseID)).Err(); err != nil {
			logger.Warn("Fail to release generation claim", slog.Any("error", err))
		}
	}()
	// 課程可能在任務排隊期間被刪除
	course := models.Course{ID: job.CourseID}
	if result := impl.db.First(&course); result.Error != nil {
		return fmt.Errorf("fail to find course, err=%w", result.Error)
	}
	// 生成課程結構
	structure, err := impl.generateCourseStructure(ctx, course, job)
	if err != nil {
		return fmt.Errorf("fail to generate course structure, err=%w", err)
	}
	// 依生成結果建立里程碑與草稿任務
	type createdTask struct {
		task          models.Task
		milestoneName string
	}
	var created []createdTask
	err = impl.db.Transaction(func(tx *gorm.DB) error {
		milestoneOrdering, err := nextMilestoneOrdering(tx, course.ID)
		if err != nil {
			return err
		}
		taskOrdering, err := nextTaskOrdering(tx, course.ID)
		if err != nil {
			return err
		}
		for i, generatedMilestone := range structure.Milestones {
			color := generatedMilestone.Color
			if color == "" {
				color = milestonePalette[i%len(milestonePalette)]
			}
			milestone := models.Milestone{
				CourseID: course.ID,
				Name:     generatedMilestone.Name,
				Color:    color,
				Ordering: milestoneOrdering,
			}
			milestoneOrdering++
			if result := tx.Omit(clause.Associations).Create(&milestone); result.Error != nil {
				return fmt.Errorf("fail to create milestone, err=%w", result.Error)
			}
			for _, generatedTask := range generatedMilestone.Tasks {
				taskType := generatedTask.Type
				if taskType != models.TaskTypeQuiz {
					taskType = models.TaskTypeLearningMaterial
				}
				task := models.Task{
					CourseID:    course.ID,
					MilestoneID: &milestone.ID,
					Type:        taskType,
					Title:       generatedTask.Title,
					Status:      models.TaskStatusDraft,
					Ordering:    taskOrdering,
				}
				taskOrdering++
				if result := tx.Omit(clause.Associations).Create(&task); result.Error != nil {
					return fmt.Errorf("fail to create task, err=%w", result.Error)
				}
				created = append(created, createdTask{task: task, milestoneName: milestone.Name})
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("fail to save course structure, err=%w", err)
	}
	// 逐一通知結構中的新任務
	for _, entry := range created {
		impl.hub.Broadcast(topic, GenerationEvent{
			Event:    EventTaskCreated,
			CourseID: job.CourseID,
			TaskID:   &entry.task.ID,
			Title:    entry.task.Title,
			TaskType: string(entry.task.Type),
		})
	}
	// 分批為測驗任務生成題目，單一任務失敗不中斷其他任務
	group := new(errgroup.Group)
	group.SetLimit(impl.config.Generation.QuestionBatch)
	for _, entry := range created {
		if entry.task.Type != models.TaskTypeQuiz {
			continue
		}
		group.Go(func() error {
			quiz := entry.task
			if err := impl.generateQuestionsForQuiz(ctx, &quiz, course.Name, entry.milestoneName); err != nil {
				logger.Error("Fail to generate questions for quiz task", slog.String("taskID", quiz.ID.String()), slog.Any("error", err))
				return nil
			}
			impl.hub.Broadcast(topic, GenerationEvent{
				Event:    EventTaskGenerated,
				CourseID: job.CourseID,
				TaskID:   &quiz.ID,
				Title:    quiz.Title,
				TaskType: string(quiz.Type),
			})
			return nil
		})
	}
	group.Wait()
	// 通知生成流程結束
	impl.hub.Broadcast(topic, GenerationEvent{
		Event:    EventGenerationComplete,
		CourseID: job.CourseID,
	})
	return nil
}

// 將課程描述與受眾資訊交給LLM規劃里程碑與任務結構
func (impl *ServerImpl) generateCourseStructure(ctx context.Context, course models.Course, job GenerationJob) (generatedStructure, error) {
	userContent := fmt.Sprintf(
		"Course name: %s\nCourse description: %s\nIntended audience: %s\nAdditional instructions: %s\nReturn JSON matching this JSON Schema strictly: %s",
		course.Name, job.Description, job.IntendedAudience, job.Instructions, structureJSONSchema,
	)
	var structure generatedStructure
	if err := impl.llmClient.GenerateJSON(ctx, llm.Request{
		System:    courseArchitectPrompt,
		User:      userContent,
		MaxTokens: 8192,
	}, &structure); err != nil {
		return generatedStructure{}, err
	}
	return structure, nil
}

func nextMilestoneOrdering(tx *gorm.DB, courseID uuid.UUID) (int, error) {
	var maxOrdering int
	if result := tx.Model(&models.Milestone{}).
		Where("course_id = ?", courseID).
		Select("COALESCE(MAX(ordering), -1)").
		Scan(&maxOrdering); result.Error != nil {
		return 0, fmt.Errorf("fail to compute milestone ordering, err=%w", result.Error)
	}
	return maxOrdering + 1, nil
}
