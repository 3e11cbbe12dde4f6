package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"sensai/models"
)

// Get the stored schedule of a course
// (GET /api/courses/{courseID}/schedule)
func (impl *ServerImpl) GetCourseSchedule(c *gin.Context) {
	const op = "GetCourseSchedule"
	// 檢查課程ID是否合法
	courseID, err := uuid.Parse(c.Param("courseID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid course ID"})
		return
	}
	// 查詢課程最後儲存的排程
	var schedule models.Schedule
	if result := impl.db.Where("course_id = ?", courseID).First(&schedule); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Schedule not found"})
			return
		}
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to find schedule, err=%w", op, result.Error))
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule": schedule})
}
