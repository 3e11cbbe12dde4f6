package api

import (
	"testing"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"

	"sensai/models"
)

func TestSimplifyQuestion(t *testing.T) {
	questionID := uuid.New()
	taskID := uuid.New()
	newQuestion := func(questionType models.QuestionType, blocks, answerBlocks []models.Block) models.Question {
		return models.Question{
			ID:           questionID,
			TaskID:       taskID,
			Type:         questionType,
			Title:        "Fallback title",
			Blocks:       blocks,
			AnswerBlocks: answerBlocks,
		}
	}
	testCases := []struct {
		description    string
		question       models.Question
		includeAnswers bool
		expected       SimplifiedQuestion
	}{
		{
			description: "選擇題應提取題幹選項與解說並將正解轉為選項索引",
			question: newQuestion(models.QuestionTypeObjective, []models.Block{
				models.NewTextBlock("paragraph", "What is the capital of France?"),
				{Type: "bulleted_list", Children: []models.Block{
					models.NewTextBlock("list_item", "Paris"),
					models.NewTextBlock("list_item", "London"),
					models.NewTextBlock("list_item", "Berlin"),
				}},
				models.NewTextBlock("note", "Paris has been the capital since 987."),
			}, []models.Block{
				models.NewTextBlock("paragraph", "Paris"),
			}),
			includeAnswers: true,
			expected: SimplifiedQuestion{
				ID:          questionID,
				TaskID:      taskID,
				Type:        "mcq",
				Question:    "What is the capital of France?",
				Options:     []string{"Paris", "London", "Berlin"},
				Answer:      0,
				Explanation: "Paris has been the capital since 987.",
			},
		},
		{
			description: "未要求正解時不應帶出答案欄位",
			question: newQuestion(models.QuestionTypeObjective, []models.Block{
				models.NewTextBlock("paragraph", "What is the capital of France?"),
				{Type: "numbered_list", Children: []models.Block{
					models.NewTextBlock("list_item", "Paris"),
					models.NewTextBlock("list_item", "London"),
				}},
			}, []models.Block{
				models.NewTextBlock("paragraph", "Paris"),
			}),
			includeAnswers: false,
			expected: SimplifiedQuestion{
				ID:       questionID,
				TaskID:   taskID,
				Type:     "mcq",
				Question: "What is the capital of France?",
				Options:  []string{"Paris", "London"},
			},
		},
		{
			description: "正解不在選項中時應保留原始文字",
			question: newQuestion(models.QuestionTypeObjective, []models.Block{
				models.NewTextBlock("heading", "Pick the prime number"),
				{Type: "bulleted_list", Children: []models.Block{
					models.NewTextBlock("list_item", "4"),
					models.NewTextBlock("list_item", "6"),
				}},
			}, []models.Block{
				models.NewTextBlock("paragraph", "7"),
			}),
			includeAnswers: true,
			expected: SimplifiedQuestion{
				ID:       questionID,
				TaskID:   taskID,
				Type:     "mcq",
				Question: "Pick the prime number",
				Options:  []string{"4", "6"},
				Answer:   "7",
			},
		},
		{
			description: "多個正解區塊時應以最後一個非空白的為準",
			question: newQuestion(models.QuestionTypeSubjective, []models.Block{
				models.NewTextBlock("paragraph", "Explain what a goroutine is."),
			}, []models.Block{
				models.NewTextBlock("paragraph", "A thread"),
				models.NewTextBlock("paragraph", ""),
				models.NewTextBlock("paragraph", "A lightweight thread managed by the runtime"),
			}),
			includeAnswers: true,
			expected: SimplifiedQuestion{
				ID:       questionID,
				TaskID:   taskID,
				Type:     "short",
				Question: "Explain what a goroutine is.",
				Answer:   "A lightweight thread managed by the runtime",
			},
		},
		{
			description:    "沒有題幹區塊時應退回題目標題",
			question:       newQuestion(models.QuestionTypeSubjective, nil, nil),
			includeAnswers: true,
			expected: SimplifiedQuestion{
				ID:       questionID,
				TaskID:   taskID,
				Type:     "short",
				Question: "Fallback title",
			},
		},
		{
			description: "只取第一個清單區塊作為選項來源",
			question: newQuestion(models.QuestionTypeObjective, []models.Block{
				models.NewTextBlock("paragraph", "Which layer handles routing?"),
				{Type: "numbered_list", Children: []models.Block{
					models.NewTextBlock("list_item", "Network"),
					models.NewTextBlock("list_item", "Physical"),
				}},
				{Type: "bulleted_list", Children: []models.Block{
					models.NewTextBlock("list_item", "Session"),
				}},
			}, nil),
			includeAnswers: true,
			expected: SimplifiedQuestion{
				ID:       questionID,
				TaskID:   taskID,
				Type:     "mcq",
				Question: "Which layer handles routing?",
				Options:  []string{"Network", "Physical"},
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			assert.Equal(t, testCase.expected, simplifyQuestion(testCase.question, testCase.includeAnswers))
		})
	}
}

func TestQuizQuestionToModel(t *testing.T) {
	taskID := uuid.New()
	t.Run("未指定的欄位應套用預設值", func(t *testing.T) {
		question := quizQuestionToModel(taskID, 3, QuizQuestionPayload{
			Title:  "Question 4",
			Blocks: []models.Block{models.NewTextBlock("paragraph", "stem")},
		})
		assert.Equal(t, taskID, question.TaskID)
		assert.Equal(t, models.QuestionTypeObjective, question.Type)
		assert.Equal(t, "text", question.InputType)
		assert.Equal(t, "chat", question.ResponseType)
		assert.True(t, question.IsFeedbackShown)
		assert.Nil(t, question.MaxAttempts)
		assert.Equal(t, 3, question.Ordering)
	})
	t.Run("明確指定的欄位應原樣保留", func(t *testing.T) {
		question := quizQuestionToModel(taskID, 0, QuizQuestionPayload{
			Type:            models.QuestionTypeSubjective,
			Title:           "Essay",
			InputType:       "code",
			ResponseType:    "exam",
			MaxAttempts:     lo.ToPtr(2),
			IsFeedbackShown: lo.ToPtr(false),
		})
		assert.Equal(t, models.QuestionTypeSubjective, question.Type)
		assert.Equal(t, "code", question.InputType)
		assert.Equal(t, "exam", question.ResponseType)
		assert.Equal(t, 2, *question.MaxAttempts)
		assert.False(t, question.IsFeedbackShown)
	})
}
