package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	internalS3 "sensai/adapters/s3"
	"sensai/models"
)

const maxMediaSize = 5 << 20

// Upload a media file
// (POST /api/media)
func (impl *ServerImpl) PostMedia(c *gin.Context) {
	const op = "PostMedia"
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing file field"})
		return
	}
	source, err := fileHeader.Open()
	if err != nil {
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to open uploaded file, err=%w", op, err))
		return
	}
	defer source.Close()
	// 限制媒體檔案
	// 	1. 小於5MB
	// 	2. MIME類型為不包含腳本的媒體檔案
	body := internalS3.NewMaxSizeReader(source, maxMediaSize)
	file, err := io.ReadAll(body)
	if errors.As(err, &internalS3.ErrReachLimitType) {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if err != nil {
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to read media file, err=%w", op, err))
		return
	}
	mimeType := http.DetectContentType(file)
	secure, ext := internalS3.CheckSecureMediaAndGetExtension(mimeType)
	if !secure {
		c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("Invalid media type: %s", mimeType)})
		return
	}
	// 透過S3 API儲存媒體檔案
	key := internalS3.NewMediaKey(ext)
	url, err := impl.s3Operator.UploadMedia(c.Request.Context(), key, mimeType, file)
	if err != nil {
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to upload media file, err=%w", op, err))
		return
	}
	// 在DB紀錄媒體檔案的上傳資訊
	asset := models.MediaAsset{
		Key:         key,
		Url:         url,
		ContentType: mimeType,
		Size:        int64(len(file)),
		Filename:    filepath.Base(fileHeader.Filename),
	}
	if result := impl.db.Create(&asset); result.Error != nil {
		impl.abortWithInternalError(c, fmt.Errorf("[%s] Fail to create media asset, err=%w", op, result.Error))
		return
	}
	c.JSON(http.StatusCreated, asset)
}
