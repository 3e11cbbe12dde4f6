package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestNewJobConsumer(t *testing.T) {
	tests := []struct {
		name     string
		client   *redis.Client
		stream   string
		group    string
		consumer string
		wantErr  bool
		errMsg   string
	}{
		{
			name:     "valid configuration",
			client:   redis.NewClient(&redis.Options{}),
			stream:   "generation-jobs",
			group:    "workers",
			consumer: "worker-1",
			wantErr:  false,
		},
		{
			name:     "nil client",
			client:   nil,
			stream:   "generation-jobs",
			group:    "workers",
			consumer: "worker-1",
			wantErr:  true,
			errMsg:   "redis client cannot be nil",
		},
		{
			name:     "empty stream",
			client:   redis.NewClient(&redis.Options{}),
			stream:   "",
			group:    "workers",
			consumer: "worker-1",
			wantErr:  true,
			errMsg:   "stream, group and consumer cannot be empty",
		},
		{
			name:     "empty group",
			client:   redis.NewClient(&redis.Options{}),
			stream:   "generation-jobs",
			group:    "",
			consumer: "worker-1",
			wantErr:  true,
			errMsg:   "stream, group and consumer cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer goleak.VerifyNone(t)

			consumer, err := NewJobConsumer[TestJob](tt.client, tt.stream, tt.group, tt.consumer)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Nil(t, consumer)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, consumer)
			}

			if tt.client != nil {
				tt.client.Close()
			}
		})
	}
}

func TestJobConsumerDeliversAndAcks(t *testing.T) {
	defer goleak.VerifyNone(t)
	_, client, cleanup := setupTest(t)
	defer cleanup()

	// 先塞入一筆以預設編碼寫入的工作
	values, err := EncodeStreamValues(TestJob{ID: "job-1", Course: "course-1"})
	require.NoError(t, err)
	require.NoError(t, client.XAdd(context.Background(), &redis.XAddArgs{
		Stream: "generation-jobs",
		Values: values,
	}).Err())

	consumer, err := NewJobConsumer[TestJob](client, "generation-jobs", "workers", "worker-1",
		WithJobConsumerBlockTimeout[TestJob](10*time.Millisecond),
	)
	require.NoError(t, err)
	require.NoError(t, consumer.Start())
	defer func() { require.NoError(t, consumer.Close()) }()

	// 下游收到解碼後的工作
	select {
	case job := <-consumer.Subscribe():
		require.Equal(t, "job-1", job.Payload.ID)
		require.Equal(t, "course-1", job.Payload.Course)

		// Done 之後訊息自 pending 清單消失，重複呼叫不再 ack
		require.NoError(t, job.Done(context.Background()))
		require.NoError(t, job.Done(context.Background()))
	case <-time.After(2 * time.Second):
		t.Fatal("job was not delivered downstream")
	}

	pending, err := client.XPending(context.Background(), "generation-jobs", "workers").Result()
	require.NoError(t, err)
	require.Zero(t, pending.Count)
}

func TestJobConsumerDeadLettersUndecodableMessage(t *testing.T) {
	defer goleak.VerifyNone(t)
	_, client, cleanup := setupTest(t)
	defer cleanup()

	// 內容不是合法編碼的訊息
	require.NoError(t, client.XAdd(context.Background(), &redis.XAddArgs{
		Stream: "generation-jobs",
		Values: map[string]any{"data": "!!! not base64 !!!"},
	}).Err())

	consumer, err := NewJobConsumer[TestJob](client, "generation-jobs", "workers", "worker-1",
		WithJobConsumerBlockTimeout[TestJob](10*time.Millisecond),
	)
	require.NoError(t, err)
	require.NoError(t, consumer.Start())
	defer func() { require.NoError(t, consumer.Close()) }()

	// 解碼失敗的訊息會被移往 dead-letter stream，且不會送往下游
	require.Eventually(t, func() bool {
		entries, rangeErr := client.XRange(context.Background(), "generation-jobs:dead-letter", "-", "+").Result()
		return rangeErr == nil && len(entries) == 1
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case job, ok := <-consumer.Subscribe():
		if ok {
			t.Fatalf("undecodable message should not reach downstream, got %+v", job)
		}
	default:
	}

	// 原訊息已被確認，不會留在 pending 清單中
	pending, err := client.XPending(context.Background(), "generation-jobs", "workers").Result()
	require.NoError(t, err)
	require.Zero(t, pending.Count)
}

func TestJobDoneAcksExactlyOnce(t *testing.T) {
	client, mock := redismock.NewClientMock()
	defer client.Close()

	job := &Job[TestJob]{
		Payload:   TestJob{ID: "job-1"},
		client:    client,
		messageID: "1-0",
		stream:    "generation-jobs",
		group:     "workers",
	}

	mock.ExpectXAck("generation-jobs", "workers", "1-0").SetVal(1)

	require.NoError(t, job.Done(context.Background()))
	// 已確認過的工作不會再送出任何指令
	require.NoError(t, job.Done(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobFailCommandSequence(t *testing.T) {
	client, mock := redismock.NewClientMock()
	defer client.Close()

	job := &Job[TestJob]{
		Payload:   TestJob{ID: "job-1"},
		client:    client,
		messageID: "1-0",
		stream:    "generation-jobs",
		group:     "workers",
		raw:       map[string]any{},
	}

	// 先將錯誤訊息寫入dead-letter，再確認原訊息
	mock.ExpectXAdd(&redis.XAddArgs{
		Stream: "generation-jobs:dead-letter",
		Values: map[string]any{"error": "llm unavailable"},
	}).SetVal("1-1")
	mock.ExpectXAck("generation-jobs", "workers", "1-0").SetVal(1)

	require.NoError(t, job.Fail(context.Background(), errors.New("llm unavailable")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobFailKeepsJobUnsettledOnError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	defer client.Close()

	job := &Job[TestJob]{
		Payload:   TestJob{ID: "job-1"},
		client:    client,
		messageID: "1-0",
		stream:    "generation-jobs",
		group:     "workers",
		raw:       map[string]any{},
	}

	mock.ExpectXAdd(&redis.XAddArgs{
		Stream: "generation-jobs:dead-letter",
		Values: map[string]any{"error": "boom"},
	}).SetErr(errors.New("redis down"))

	err := job.Fail(context.Background(), errors.New("boom"))
	require.Error(t, err)
	require.False(t, job.settled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobFailMovesToDeadLetter(t *testing.T) {
	defer goleak.VerifyNone(t)
	_, client, cleanup := setupTest(t)
	defer cleanup()

	values, err := EncodeStreamValues(TestJob{ID: "job-2", Course: "course-9"})
	require.NoError(t, err)
	require.NoError(t, client.XAdd(context.Background(), &redis.XAddArgs{
		Stream: "generation-jobs",
		Values: values,
	}).Err())

	consumer, err := NewJobConsumer[TestJob](client, "generation-jobs", "workers", "worker-1",
		WithJobConsumerBlockTimeout[TestJob](10*time.Millisecond),
	)
	require.NoError(t, err)
	require.NoError(t, consumer.Start())
	defer func() { require.NoError(t, consumer.Close()) }()

	select {
	case job := <-consumer.Subscribe():
		// 回報失敗後，原始內容連同錯誤訊息一併進入 dead-letter stream
		require.NoError(t, job.Fail(context.Background(), errors.New("llm unavailable")))
	case <-time.After(2 * time.Second):
		t.Fatal("job was not delivered downstream")
	}

	entries, err := client.XRange(context.Background(), "generation-jobs:dead-letter", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "llm unavailable", entries[0].Values["error"])
	require.Contains(t, entries[0].Values, "data")

	pending, err := client.XPending(context.Background(), "generation-jobs", "workers").Result()
	require.NoError(t, err)
	require.Zero(t, pending.Count)
}
