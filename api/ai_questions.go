package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sensai/adapters/llm"
	"sensai/models"
)

const assessmentAuthorPrompt = `You are an assessment author. Generate a small, high-quality set of questions for the given topic. Return ONLY JSON conforming to the schema. Provide a mix of objective (MCQ) and short questions. For MCQs include 3-5 options and an explanation.`

const questionsJSONSchema = `{
  "type": "object",
  "properties": {
    "questions": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "question_type": {"type": "string", "enum": ["objective", "subjective"]},
          "title": {"type": "string"},
          "blocks": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "type": {"type": "string", "enum": ["paragraph", "heading", "bulleted_list", "numbered_list", "note"]},
                "content": {
                  "type": "array",
                  "items": {
                    "type": "object",
                    "properties": {
                      "type": {"type": "string", "enum": ["text"]},
                      "text": {"type": "string"}
                    },
                    "required": ["type", "text"]
                  }
                },
                "children": {"type": "array", "items": {"type": "object"}}
              },
              "required": ["type"]
            }
          },
          "correct_answer": {"type": "string"},
          "answer_type": {"type": "string", "enum": ["text"]},
          "context": {"type": "string"},
          "coding_languages": {"type": "array", "items": {"type": "string"}}
        },
        "required": ["question_type", "title", "blocks", "correct_answer"]
      }
    }
  },
  "required": ["questions"]
}`

// generatedQuestion 是LLM輸出的單一題目格式
type generatedQuestion struct {
	QuestionType    string         `json:"question_type"`
	Title           string         `json:"title"`
	Blocks          []models.Block `json:"blocks"`
	CorrectAnswer   string         `json:"correct_answer"`
	AnswerType      string         `json:"answer_type"`
	Context         string         `json:"context"`
	CodingLanguages []string       `json:"coding_languages"`
}

// Generate questions for a quiz task
// (POST /api/ai/tasks/{taskID}/questions)
func (impl *ServerImpl) PostGenerateTaskQuestions(c *gin.Context) {
	const op = "PostGenerateTaskQuestions"
	// 檢查任務ID是否合法
	taskID, err := uuid.Parse(c.Param("taskID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid task ID"})
		return
	}
	// 檢查任務是否存在，一併載入課程與里程碑
	task := models.Task{ID: taskID}
	if result := impl.db.Preload("Course").Preload("Milestone").First(&task); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Task not found"})
			return
		}
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to find task, err=%w", op, result.Error))
		return
	}
	if task.MilestoneID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Task metadata not found"})
		return
	}
	milestoneName := ""
	if task.Milestone != nil {
		milestoneName = task.Milestone.Name
	}
	// 對學習教材出題時先建立配對的測驗任務，後續在新任務上生成
	target := task
	if task.Type == models.TaskTypeLearningMaterial {
		quizTitle := "Quiz: Generated"
		if task.Title != "" {
			quizTitle = "Quiz: " + task.Title
		}
		quiz, err := impl.createDraftTask(quizTitle, models.TaskTypeQuiz, task.CourseID, task.MilestoneID)
		if err != nil {
			impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to create paired quiz, err=%w", op, err))
			return
		}
		target = *quiz
	} else if task.Type != models.TaskTypeQuiz {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Task is not a quiz"})
		return
	}
	// 生成題目並以草稿狀態寫入
	if err := impl.generateQuestionsForQuiz(c.Request.Context(), &target, task.Course.Name, milestoneName); err != nil {
		var generationErr *llmGenerationError
		if errors.As(err, &generationErr) {
			c.JSON(http.StatusBadGateway, gin.H{"message": "LLM error: " + generationErr.Error()})
			return
		}
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to generate questions, err=%w", op, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// llmGenerationError 標記出題流程中LLM呼叫階段的失敗
type llmGenerationError struct {
	cause error
}

func (e *llmGenerationError) Error() string {
	return e.cause.Error()
}

func (e *llmGenerationError) Unwrap() error {
	return e.cause
}

// 針對測驗任務生成題目，整份覆寫既有題目並將任務保持在草稿狀態
// 同里程碑的學習教材會作為出題參考一併提供給LLM
func (impl *ServerImpl) generateQuestionsForQuiz(ctx context.Context, task *models.Task, courseName, milestoneName string) error {
	// 取得同里程碑的學習教材
	var materials []models.Task
	if result := impl.db.
		Where("course_id = ? AND milestone_id = ? AND type = ?", task.CourseID, task.MilestoneID, models.TaskTypeLearningMaterial).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "ordering"}}).
		Find(&materials); result.Error != nil {
		return fmt.Errorf("fail to list learning materials, err=%w", result.Error)
	}
	type promptMaterial struct {
		Title  string         `json:"title"`
		Blocks []models.Block `json:"blocks"`
	}
	materialsJSON, err := json.Marshal(lo.Map(materials, func(material models.Task, _ int) promptMaterial {
		return promptMaterial{Title: material.Title, Blocks: material.Blocks}
	}))
	if err != nil {
		return fmt.Errorf("fail to encode learning materials, err=%w", err)
	}

	userContent := fmt.Sprintf(
		"Course: %s\nModule: %s\nQuiz Topic: %s\nReference Learning Materials (JSON): %s\nReturn JSON matching this JSON Schema strictly: %s",
		courseName, milestoneName, task.Title, materialsJSON, questionsJSONSchema,
	)

	var generated struct {
		Questions []generatedQuestion `json:"questions"`
	}
	if err := impl.llmClient.GenerateJSON(ctx, llm.Request{
		System:    assessmentAuthorPrompt,
		User:      userContent,
		MaxTokens: 4096,
	}, &generated); err != nil {
		return &llmGenerationError{cause: err}
	}

	payloads := lo.Map(generated.Questions, func(question generatedQuestion, index int) QuizQuestionPayload {
		return adaptGeneratedQuestion(question, index)
	})
	if err := impl.replaceQuizQuestions(task, task.Title, payloads, nil, models.TaskStatusDraft); err != nil {
		return fmt.Errorf("fail to save generated questions, err=%w", err)
	}
	return nil
}

// 將LLM輸出的題目轉換為儲存用的傳輸格式，缺漏欄位套用預設值
func adaptGeneratedQuestion(question generatedQuestion, index int) QuizQuestionPayload {
	questionType := models.QuestionTypeObjective
	if question.QuestionType == string(models.QuestionTypeSubjective) {
		questionType = models.QuestionTypeSubjective
	}
	title := question.Title
	if title == "" {
		title = fmt.Sprintf("Question %d", index+1)
	}
	var answerBlocks []models.Block
	if question.CorrectAnswer != "" {
		answerBlocks = []models.Block{models.NewTextBlock("paragraph", question.CorrectAnswer)}
	}
	var coachingBlocks []models.Block
	if question.Context != "" {
		coachingBlocks = []models.Block{models.NewTextBlock("paragraph", question.Context)}
	}
	return QuizQuestionPayload{
		Type:     questionType,
		Title:    title,
		Blocks:   question.Blocks,
		Answer:   answerBlocks,
		Coaching: coachingBlocks,
	}
}
