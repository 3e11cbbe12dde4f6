package api

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	redisAdapter "sensai/adapters/redis"
)

func TestEnqueueGenerationScript(t *testing.T) {
	// 設置 miniredis
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer mr.Close()

	// 建立 Redis 客戶端
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	defer client.Close()

	ctx := context.Background()
	jobID := uuid.New()
	courseID := uuid.New()
	claimKey := "generation:course:" + courseID.String()
	streamKey := "stream:generation"

	job := GenerationJob{
		JobID:            jobID,
		CourseID:         courseID,
		Description:      "An introductory course on marine biology",
		IntendedAudience: "first-year undergraduates",
	}
	values, err := redisAdapter.EncodeStreamValues(job)
	assert.NoError(t, err)

	tests := []struct {
		name        string
		setupFunc   func()
		want        int
		checkStream bool
	}{
		{
			name: "課程已在生成中時應返回0且不寫入stream",
			setupFunc: func() {
				mr.Set(claimKey, uuid.NewString())
			},
			want: 0,
		},
		{
			name:        "建立成功時應返回1且寫入stream",
			setupFunc:   func() {},
			want:        1,
			checkStream: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// 重置 Redis
			mr.FlushAll()

			// 設置測試資料
			tt.setupFunc()

			// 執行腳本
			result, err := EnqueueGenerationScript.Run(ctx, client,
				[]string{claimKey, streamKey},
				jobID.String(), values["data"], "600",
			).Int()

			// 驗證結果
			assert.NoError(t, err)
			assert.Equal(t, tt.want, result)

			// 如果需要檢查stream
			if tt.checkStream {
				// 檢查生成鎖的持有者
				val, err := client.Get(ctx, claimKey).Result()
				assert.NoError(t, err)
				assert.Equal(t, jobID.String(), val)

				// 檢查過期時間
				ttl, err := client.TTL(ctx, claimKey).Result()
				assert.NoError(t, err)
				assert.True(t, ttl > 0)

				// 檢查stream記錄
				streams, err := client.XRange(ctx, streamKey, "-", "+").Result()
				assert.NoError(t, err)
				assert.Equal(t, 1, len(streams))

				// 解析stream中的任務內容
				decoded, err := redisAdapter.DecodeStreamValues[GenerationJob](map[string]any{"data": streams[0].Values["data"]})
				assert.NoError(t, err)
				assert.Equal(t, job, decoded)
			} else {
				// 失敗時不應寫入stream
				streams, err := client.XRange(ctx, streamKey, "-", "+").Result()
				assert.NoError(t, err)
				assert.Empty(t, streams)
			}
		})
	}
}
