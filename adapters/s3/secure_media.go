package s3

// SecureMediaTypesExtension 定義了允許上傳的媒體類型及其對應的副檔名
// 涵蓋課程內容會用到的圖片與語音檔案
var SecureMediaTypesExtension = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
	"audio/mpeg": "mp3",
	"audio/wave": "wav",
}

// CheckSecureMediaAndGetExtension 檢查給定的 MIME 類型是否為允許的媒體類型，並返回對應的副檔名
func CheckSecureMediaAndGetExtension(mimeType string) (bool, string) {
	ext, ok := SecureMediaTypesExtension[mimeType]
	return ok, ext
}
