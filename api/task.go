package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sensai/models"
)

type CreateTaskRequest struct {
	Title       string          `json:"title" binding:"required"`
	Type        models.TaskType `json:"type" binding:"required"`
	CourseID    uuid.UUID       `json:"course_id" binding:"required"`
	MilestoneID *uuid.UUID      `json:"milestone_id"`
}

type UpdateLearningMaterialRequest struct {
	Title              string            `json:"title" binding:"required"`
	Blocks             []models.Block    `json:"blocks"`
	ScheduledPublishAt *time.Time        `json:"scheduled_publish_at"`
	Status             models.TaskStatus `json:"status"`
}

type UpdateQuizRequest struct {
	Title              string                `json:"title" binding:"required"`
	Questions          []QuizQuestionPayload `json:"questions"`
	ScheduledPublishAt *time.Time            `json:"scheduled_publish_at"`
	Status             models.TaskStatus     `json:"status"`
}

// QuizQuestionPayload 是題目在請求與LLM輸出中的傳輸格式
type QuizQuestionPayload struct {
	Type            models.QuestionType `json:"type"`
	Title           string              `json:"title"`
	Blocks          []models.Block      `json:"blocks"`
	Answer          []models.Block      `json:"answer"`
	Coaching        []models.Block      `json:"coaching"`
	InputType       string              `json:"input_type"`
	ResponseType    string              `json:"response_type"`
	MaxAttempts     *int                `json:"max_attempts"`
	IsFeedbackShown *bool               `json:"is_feedback_shown"`
}

// SimplifiedQuestion 是給學習者作答介面的精簡題目格式
// 題幹、選項與解說從題目的區塊內容中提取
type SimplifiedQuestion struct {
	ID          uuid.UUID `json:"id"`
	TaskID      uuid.UUID `json:"task_id"`
	Type        string    `json:"type"`
	Question    string    `json:"question"`
	Options     []string  `json:"options,omitempty"`
	Answer      any       `json:"answer,omitempty"`
	Explanation string    `json:"explanation,omitempty"`
}

type MarkTaskCompletedRequest struct {
	UserID     uuid.UUID  `json:"user_id" binding:"required"`
	QuestionID *uuid.UUID `json:"question_id"`
}

// Add a new draft task
// (POST /api/tasks)
func (impl *ServerImpl) PostTask(c *gin.Context) {
	const op = "PostTask"
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	if req.Type != models.TaskTypeLearningMaterial && req.Type != models.TaskTypeQuiz {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid task type"})
		return
	}
	// 檢查課程是否存在
	course := models.Course{ID: req.CourseID}
	if result := impl.db.First(&course); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Course not found"})
			return
		}
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to find course, err=%w", op, result.Error))
		return
	}
	// 建立草稿任務
	task, err := impl.createDraftTask(strings.TrimSpace(req.Title), req.Type, req.CourseID, req.MilestoneID)
	if err != nil {
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to create draft task, err=%w", op, err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": task.ID})
}

// Get task details
// (GET /api/tasks/{taskID})
func (impl *ServerImpl) GetTask(c *gin.Context) {
	const op = "GetTask"
	// 檢查任務ID是否合法
	taskID, err := uuid.Parse(c.Param("taskID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid task ID"})
		return
	}
	// 檢查任務是否存在
	task := models.Task{ID: taskID}
	if result := impl.db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "ordering"}})
		}).
		First(&task); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
			return
		}
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to find task, err=%w", op, result.Error))
		return
	}
	c.JSON(http.StatusOK, task)
}

// Get simplified questions of a quiz task
// (GET /api/tasks/{taskID}/questions)
func (impl *ServerImpl) GetTaskQuestions(c *gin.Context) {
	const op = "GetTaskQuestions"
	// 檢查任務ID是否合法
	taskID, err := uuid.Parse(c.Param("taskID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid task ID"})
		return
	}
	includeAnswers, _ := strconv.ParseBool(c.DefaultQuery("include_answers", "false"))
	// 檢查任務是否存在且為測驗
	task := models.Task{ID: taskID}
	result := impl.db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "ordering"}})
		}).
		First(&task)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Quiz task not found"})
			return
		}
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to find task, err=%w", op, result.Error))
		return
	}
	if task.Type != models.TaskTypeQuiz {
		c.JSON(http.StatusNotFound, gin.H{"message": "Quiz task not found"})
		return
	}
	// 將題目轉換為精簡格式
	simplified := lo.Map(task.Questions, func(question models.Question, _ int) SimplifiedQuestion {
		return simplifyQuestion(question, includeAnswers)
	})
	c.JSON(http.StatusOK, gin.H{"task_id": taskID, "questions": simplified})
}

// 將題目的區塊內容轉換為作答介面用的精簡格式
//  - 題幹取第一個段落或標題區塊，沒有則退回題目標題
//  - 選項取第一個清單區塊的子項目
//  - 解說取第一個note區塊
//  - 正解文字如果出現在選項中則轉為選項索引
func simplifyQuestion(question models.Question, includeAnswers bool) SimplifiedQuestion {
	asType := "short"
	if question.Type == models.QuestionTypeObjective {
		asType = "mcq"
	}

	var stem, explanation string
	var options []string
	for _, block := range question.Blocks {
		switch {
		case (block.Type == "paragraph" || block.Type == "heading") && stem == "":
			stem = block.PlainText()
		case (block.Type == "bulleted_list" || block.Type == "numbered_list") && options == nil:
			for _, item := range block.Children {
				options = append(options, item.PlainText())
			}
		case block.Type == "note" && explanation == "":
			explanation = block.PlainText()
		}
	}
	if stem == "" {
		stem = question.Title
	}

	entry := SimplifiedQuestion{
		ID:          question.ID,
		TaskID:      question.TaskID,
		Type:        asType,
		Question:    stem,
		Options:     options,
		Explanation: explanation,
	}
	if !includeAnswers {
		return entry
	}

	// 正解區塊可能有多個，以最後一個有文字內容的為準
	var answerText string
	for _, block := range question.AnswerBlocks {
		if text := block.PlainText(); text != "" {
			answerText = text
		}
	}
	if answerText == "" {
		return entry
	}
	if len(options) > 0 {
		if index := lo.IndexOf(options, answerText); index >= 0 {
			entry.Answer = index
		} else {
			entry.Answer = answerText
		}
	} else {
		entry.Answer = answerText
	}
	return entry
}

// Update a learning material task
// (PUT /api/tasks/{taskID}/learning_material)
func (impl *ServerImpl) PutTaskLearningMaterial(c *gin.Context) {
	const op = "PutTaskLearningMaterial"
	// 檢查任務ID是否合法
	taskID, err := uuid.Parse(c.Param("taskID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid task ID"})
		return
	}
	var req UpdateLearningMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	if !validTaskStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid task status"})
		return
	}
	// 檢查任務是否存在且為學習教材
	task := models.Task{ID: taskID}
	if result := impl.db.First(&task); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
			return
		}
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to find task, err=%w", op, result.Error))
		return
	}
	if task.Type != models.TaskTypeLearningMaterial {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Task is not a learning material"})
		return
	}
	// 更新任務內容
	task.Title = req.Title
	task.Blocks = req.Blocks
	task.ScheduledPublishAt = req.ScheduledPublishAt
	if req.Status != "" {
		task.Status = req.Status
	}
	if result := impl.db.Omit(clause.Associations).Save(&task); result.Error != nil {
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to update task, err=%w", op, result.Error))
		return
	}
	c.JSON(http.StatusOK, task)
}

// Replace the questions of a quiz task
// (PUT /api/tasks/{taskID}/quiz)
func (impl *ServerImpl) PutTaskQuiz(c *gin.Context) {
	const op = "PutTaskQuiz"
	// 檢查任務ID是否合法
	taskID, err := uuid.Parse(c.Param("taskID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid task ID"})
		return
	}
	var req UpdateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	if !validTaskStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid task status"})
		return
	}
	// 檢查任務是否存在且為測驗
	task := models.Task{ID: taskID}
	if result := impl.db.First(&task); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
			return
		}
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to find task, err=%w", op, result.Error))
		return
	}
	if task.Type != models.TaskTypeQuiz {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Task is not a quiz"})
		return
	}
	// 整份覆寫題目
	if err := impl.replaceQuizQuestions(&task, req.Title, req.Questions, req.ScheduledPublishAt, req.Status); err != nil {
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to update quiz, err=%w", op, err))
		return
	}
	c.JSON(http.StatusOK, task)
}

// Duplicate a task with its questions
// (POST /api/tasks/{taskID}/duplicate)
func (impl *ServerImpl) PostTaskDuplicate(c *gin.Context) {
	const op = "PostTaskDuplicate"
	// 檢查任務ID是否合法
	taskID, err := uuid.Parse(c.Param("taskID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid task ID"})
		return
	}
	// 複製目標預設為原課程和里程碑，可由請求指定
	var req struct {
		CourseID    *uuid.UUID `json:"course_id"`
		MilestoneID *uuid.UUID `json:"milestone_id"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
			return
		}
	}
	// 檢查任務是否存在
	task := models.Task{ID: taskID}
	if result := impl.db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "ordering"}})
		}).
		First(&task); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
			return
		}
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to find task, err=%w", op, result.Error))
		return
	}
	targetCourseID := task.CourseID
	if req.CourseID != nil {
		targetCourseID = *req.CourseID
	}
	targetMilestoneID := task.MilestoneID
	if req.MilestoneID != nil {
		targetMilestoneID = req.MilestoneID
	}
	// 複製任務與題目，副本以草稿狀態建立
	duplicated := models.Task{
		CourseID:           targetCourseID,
		MilestoneID:        targetMilestoneID,
		Type:               task.Type,
		Title:              task.Title,
		Status:             models.TaskStatusDraft,
		Blocks:             task.Blocks,
		ScheduledPublishAt: task.ScheduledPublishAt,
	}
	err = impl.db.Transaction(func(tx *gorm.DB) error {
		ordering, err := nextTaskOrdering(tx, targetCourseID)
		if err != nil {
			return err
		}
		duplicated.Ordering = ordering
		if result := tx.Omit(clause.Associations).Create(&duplicated); result.Error != nil {
			return fmt.Errorf("fail to create duplicated task, err=%w", result.Error)
		}
		if len(task.Questions) == 0 {
			return nil
		}
		questions := make([]models.Question, len(task.Questions))
		for i, question := range task.Questions {
			questions[i] = models.Question{
				TaskID:          duplicated.ID,
				Type:            question.Type,
				Title:           question.Title,
				Blocks:          question.Blocks,
				AnswerBlocks:    question.AnswerBlocks,
				CoachingBlocks:  question.CoachingBlocks,
				InputType:       question.InputType,
				ResponseType:    question.ResponseType,
				MaxAttempts:     question.MaxAttempts,
				IsFeedbackShown: question.IsFeedbackShown,
				Ordering:        question.Ordering,
			}
		}
		if result := tx.Omit(clause.Associations).Create(&questions); result.Error != nil {
			return fmt.Errorf("fail to create duplicated questions, err=%w", result.Error)
		}
		duplicated.Questions = questions
		return nil
	})
	if err != nil {
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to duplicate task, err=%w", op, err))
		return
	}
	c.JSON(http.StatusCreated, duplicated)
}

// Publish a task
// (PUT /api/tasks/{taskID}/publish)
func (impl *ServerImpl) PutTaskPublish(c *gin.Context) {
	const op = "PutTaskPublish"
	// 檢查任務ID是否合法
	taskID, err := uuid.Parse(c.Param("taskID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid task ID"})
		return
	}
	// 檢查任務是否存在
	task := models.Task{ID: taskID}
	if result := impl.db.First(&task); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
			return
		}
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to find task, err=%w", op, result.Error))
		return
	}
	// 更新發佈狀態
	task.Status = models.TaskStatusPublished
	if result := impl.db.Omit(clause.Associations).Save(&task); result.Error != nil {
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to publish task, err=%w", op, result.Error))
		return
	}
	c.JSON(http.StatusOK, task)
}

// Delete a task
// (DELETE /api/tasks/{taskID})
func (impl *ServerImpl) DeleteTask(c *gin.Context) {
	const op = "DeleteTask"
	// 檢查任務ID是否合法
	taskID, err := uuid.Parse(c.Param("taskID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid task ID"})
		return
	}
	// 檢查任務是否存在
	task := models.Task{ID: taskID}
	if result := impl.db.First(&task); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
			return
		}
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to find task, err=%w", op, result.Error))
		return
	}
	// 刪除任務與其題目和完成紀錄
	err = impl.db.Transaction(func(tx *gorm.DB) error {
		if result := tx.Where("task_id = ?", taskID).Delete(&models.Question{}); result.Error != nil {
			return fmt.Errorf("fail to delete questions, err=%w", result.Error)
		}
		if result := tx.Where("task_id = ?", taskID).Delete(&models.TaskCompletion{}); result.Error != nil {
			return fmt.Errorf("fail to delete completions, err=%w", result.Error)
		}
		if result := tx.Delete(&task); result.Error != nil {
			return fmt.Errorf("fail to delete task, err=%w", result.Error)
		}
		return nil
	})
	if err != nil {
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to delete task, err=%w", op, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Mark a task as completed for a user
// (POST /api/tasks/{taskID}/complete)
func (impl *ServerImpl) PostTaskComplete(c *gin.Context) {
	const op = "PostTaskComplete"
	// 檢查任務ID是否合法
	taskID, err := uuid.Parse(c.Param("taskID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid task ID"})
		return
	}
	var req MarkTaskCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	// 檢查任務是否存在
	task := models.Task{ID: taskID}
	if result := impl.db.First(&task); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
			return
		}
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to find task, err=%w", op, result.Error))
		return
	}
	// 重複標記時不產生新紀錄
	// 唯一索引擋不住question_id為NULL的重複，這裡一律先查再寫
	query := impl.db.Model(&models.TaskCompletion{}).Where("task_id = ? AND user_id = ?", taskID, req.UserID)
	if req.QuestionID != nil {
		query = query.Where("question_id = ?", *req.QuestionID)
	} else {
		query = query.Where("question_id IS NULL")
	}
	var existing int64
	if result := query.Count(&existing); result.Error != nil {
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to check existing completion, err=%w", op, result.Error))
		return
	}
	if existing > 0 {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}
	completion := models.TaskCompletion{
		UserID:      req.UserID,
		TaskID:      taskID,
		QuestionID:  req.QuestionID,
		CompletedAt: time.Now(),
	}
	if result := impl.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&completion); result.Error != nil {
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to mark task completed, err=%w", op, result.Error))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Unmark a task completion for a user
// (DELETE /api/tasks/{taskID}/complete)
func (impl *ServerImpl) DeleteTaskComplete(c *gin.Context) {
	const op = "DeleteTaskComplete"
	// 檢查任務ID是否合法
	taskID, err := uuid.Parse(c.Param("taskID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid task ID"})
		return
	}
	var req MarkTaskCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	// 未指定題目時移除該任務的全部完成紀錄
	query := impl.db.Where("task_id = ? AND user_id = ?", taskID, req.UserID)
	if req.QuestionID != nil {
		query = query.Where("question_id = ?", *req.QuestionID)
	}
	if result := query.Delete(&models.TaskCompletion{}); result.Error != nil {
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to unmark task completion, err=%w", op, result.Error))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// List completed task IDs of a user within a cohort
// (GET /api/cohorts/{cohortID}/users/{userID}/completions)
func (impl *ServerImpl) GetUserCompletions(c *gin.Context) {
	const op = "GetUserCompletions"
	// 檢查路徑參數是否合法
	cohortID, err := uuid.Parse(c.Param("cohortID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid cohort ID"})
		return
	}
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid user ID"})
		return
	}
	// 計算統計區間的起點
	var since time.Time
	now := time.Now().UTC()
	switch c.DefaultQuery("view", "All time") {
	case "All time":
	case "Weekly":
		// 從本週一的零點開始
		weekday := (int(now.Weekday()) + 6) % 7
		since = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -weekday)
	case "Monthly":
		since = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid view type"})
		return
	}
	// 取得cohort中所有課程的任務
	var taskIDs []uuid.UUID
	if result := impl.db.Model(&models.Task{}).
		Joins("Course").
		Where(`"Course".cohort_id = ?`, cohortID).
		Pluck("tasks.id", &taskIDs); result.Error != nil {
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to list cohort tasks, err=%w", op, result.Error))
		return
	}
	completedTaskIDs := make([]uuid.UUID, 0)
	if len(taskIDs) == 0 {
		c.JSON(http.StatusOK, completedTaskIDs)
		return
	}
	// 查詢區間內的完成紀錄
	query := impl.db.Model(&models.TaskCompletion{}).
		Where("user_id = ? AND task_id IN ?", userID, taskIDs)
	if !since.IsZero() {
		query = query.Where("completed_at >= ?", since)
	}
	if result := query.Distinct().Pluck("task_id", &completedTaskIDs); result.Error != nil {
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to list completions, err=%w", op, result.Error))
		return
	}
	c.JSON(http.StatusOK, completedTaskIDs)
}

func validTaskStatus(status models.TaskStatus) bool {
	return status == "" || status == models.TaskStatusDraft || status == models.TaskStatusPublished
}

// 在課程中建立一個草稿任務，順序接在課程現有任務之後
func (impl *ServerImpl) createDraftTask(title string, taskType models.TaskType, courseID uuid.UUID, milestoneID *uuid.UUID) (*models.Task, error) {
	task := &models.Task{
		CourseID:    courseID,
		MilestoneID: milestoneID,
		Type:        taskType,
		Title:       title,
		Status:      models.TaskStatusDraft,
	}
	err := impl.db.Transaction(func(tx *gorm.DB) error {
		ordering, err := nextTaskOrdering(tx, courseID)
		if err != nil {
			return err
		}
		task.Ordering = ordering
		if result := tx.Omit(clause.Associations).Create(task); result.Error != nil {
			return fmt.Errorf("fail to create task, err=%w", result.Error)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func nextTaskOrdering(tx *gorm.DB, courseID uuid.UUID) (int, error) {
	var maxOrdering int
	if result := tx.Model(&models.Task{}).
		Where("course_id = ?", courseID).
		Select("COALESCE(MAX(ordering), -1)").
		Scan(&maxOrdering); result.Error != nil {
		return 0, fmt.Errorf("fail to compute task ordering, err=%w", result.Error)
	}
	return maxOrdering + 1, nil
}

// 以傳入的題目整份覆寫測驗任務的題目並更新任務欄位
func (impl *ServerImpl) replaceQuizQuestions(task *models.Task, title string, payloads []QuizQuestionPayload, scheduledPublishAt *time.Time, status models.TaskStatus) error {
	return impl.db.Transaction(func(tx *gorm.DB) error {
		if result := tx.Where("task_id = ?", task.ID).Delete(&models.Question{}); result.Error != nil {
			return fmt.Errorf("fail to delete existing questions, err=%w", result.Error)
		}
		questions := make([]models.Question, len(payloads))
		for i, payload := range payloads {
			questions[i] = quizQuestionToModel(task.ID, i, payload)
		}
		if len(questions) > 0 {
			if result := tx.Omit(clause.Associations).Create(&questions); result.Error != nil {
				return fmt.Errorf("fail to create questions, err=%w", result.Error)
			}
		}
		task.Title = title
		task.ScheduledPublishAt = scheduledPublishAt
		if status != "" {
			task.Status = status
		}
		if result := tx.Omit(clause.Associations).Save(task); result.Error != nil {
			return fmt.Errorf("fail to update quiz task, err=%w", result.Error)
		}
		task.Questions = questions
		return nil
	})
}

// 將傳輸格式的題目轉換為資料庫模型，未指定的欄位套用預設值
func quizQuestionToModel(taskID uuid.UUID, ordering int, payload QuizQuestionPayload) models.Question {
	question := models.Question{
		TaskID:          taskID,
		Type:            payload.Type,
		Title:           payload.Title,
		Blocks:          payload.Blocks,
		AnswerBlocks:    payload.Answer,
		CoachingBlocks:  payload.Coaching,
		InputType:       payload.InputType,
		ResponseType:    payload.ResponseType,
		MaxAttempts:     payload.MaxAttempts,
		IsFeedbackShown: payload.IsFeedbackShown == nil || *payload.IsFeedbackShown,
		Ordering:        ordering,
	}
	if question.Type == "" {
		question.Type = models.QuestionTypeObjective
	}
	if question.InputType == "" {
		question.InputType = "text"
	}
	if question.ResponseType == "" {
		question.ResponseType = "chat"
	}
	return question
}
