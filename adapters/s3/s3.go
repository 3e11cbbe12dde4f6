package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type S3Operator struct {
	// Client 是 S3 客戶端。
	Client *s3.Client
	// Bucket 是 S3 存儲桶的名稱。
	Bucket string
	// PublicEndpoint 是 S3 存儲桶的公開 Endpoint。
	PublicEndpoint *url.URL
}

func NewS3Operator(client *s3.Client, bucket, publicBaseURL string) (*S3Operator, error) {
	const op = "NewS3Operator"
	publicEndpoint, err := url.Parse(publicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to parse public base URL, err=%w", op, err)
	}
	return &S3Operator{Client: client, Bucket: bucket, PublicEndpoint: publicEndpoint}, nil
}

// NewMediaKey 為上傳的媒體產生唯一的物件鍵
// 鍵值以 media/ 為前綴，檔名部分使用 uuid 避免碰撞
func NewMediaKey(ext string) string {
	return path.Join("media", fmt.Sprintf("%s.%s", uuid.NewString(), ext))
}

// UploadMedia 將媒體內容上傳至 S3 並返回公開存取網址
func (s *S3Operator) UploadMedia(ctx context.Context, key, contentType string, content []byte) (string, error) {
	const op = "UploadMedia"
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("[%s] Fail to upload media to S3, err=%w", op, err)
	}
	return s.PublicURL(key), nil
}

// PublicURL 組合物件鍵對應的公開存取網址
func (s *S3Operator) PublicURL(key string) string {
	uri := *s.PublicEndpoint
	uri.Path = key
	return uri.String()
}
