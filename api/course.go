package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sensai/models"
)

type CreateCourseRequest struct {
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	CohortID    *uuid.UUID `json:"cohort_id"`
}

// Add a new course
// (POST /api/courses)
func (impl *ServerImpl) PostCourse(c *gin.Context) {
	const op = "PostCourse"
	var req CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	// 檢查課程名稱是否合法
	name := strings.TrimSpace(req.Name)
	if len(name) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Course name cannot be empty"})
		return
	}
	// 處理課程描述，過濾惡意的HTML內容
	course := models.Course{
		Name:        name,
		Description: impl.htmlChecker.Sanitize(req.Description),
		CohortID:    req.CohortID,
	}
	// 儲存課程
	if result := impl.db.Create(&course); result.Error != nil {
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to create course, err=%w", op, result.Error))
		return
	}
	c.JSON(http.StatusCreated, course)
}

// Get course details
// (GET /api/courses/{courseID})
func (impl *ServerImpl) GetCourse(c *gin.Context) {
	const op = "GetCourse"
	// 檢查課程ID是否合法
	courseID, err := uuid.Parse(c.Param("courseID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid course ID"})
		return
	}
	// 檢查課程是否存在
	// 里程碑和其中的任務依照設定的順序排列，未屬於任何里程碑的任務放在課程層級
	course := models.Course{ID: courseID}
	if result := impl.db.
		Preload("Milestones", func(db *gorm.DB) *gorm.DB {
			return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "ordering"}})
		}).
		Preload("Milestones.Tasks", func(db *gorm.DB) *gorm.DB {
			return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "ordering"}})
		}).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB {
			return db.Where("milestone_id IS NULL").Order(clause.OrderByColumn{Column: clause.Column{Name: "ordering"}})
		}).
		First(&course); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Course not found"})
			return
		}
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to find course, err=%w", op, result.Error))
		return
	}
	c.JSON(http.StatusOK, course)
}

// Delete a course and its nested resources
// (DELETE /api/courses/{courseID})
func (impl *ServerImpl) DeleteCourse(c *gin.Context) {
	const op = "DeleteCourse"
	// 檢查課程ID是否合法
	courseID, err := uuid.Parse(c.Param("courseID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid course ID"})
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
	// 刪除課程與其巢狀資源
	err = impl.db.Transaction(func(tx *gorm.DB) error {
		var taskIDs []uuid.UUID
		if result := tx.Model(&models.Task{}).Where("course_id = ?", courseID).Pluck("id", &taskIDs); result.Error != nil {
			return fmt.Errorf("fail to list course tasks, err=%w", result.Error)
		}
		if len(taskIDs) > 0 {
			if result := tx.Where("task_id IN ?", taskIDs).Delete(&models.Question{}); result.Error != nil {
				return fmt.Errorf("fail to delete questions, err=%w", result.Error)
			}
			if result := tx.Where("task_id IN ?", taskIDs).Delete(&models.TaskCompletion{}); result.Error != nil {
				return fmt.Errorf("fail to delete completions, err=%w", result.Error)
			}
		}
		if result := tx.Where("course_id = ?", courseID).Delete(&models.Task{}); result.Error != nil {
			return fmt.Errorf("fail to delete tasks, err=%w", result.Error)
		}
		if result := tx.Where("course_id = ?", courseID).Delete(&models.Milestone{}); result.Error != nil {
			return fmt.Errorf("fail to delete milestones, err=%w", result.Error)
		}
		if result := tx.Where("course_id = ?", courseID).Delete(&models.Schedule{}); result.Error != nil {
			return fmt.Errorf("fail to delete schedule, err=%w", result.Error)
		}
		if result := tx.Delete(&course); result.Error != nil {
			return fmt.Errorf("fail to delete course, err=%w", result.Error)
		}
		return nil
	})
	if err != nil {
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to delete course, err=%w", op, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
