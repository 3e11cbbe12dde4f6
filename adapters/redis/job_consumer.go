package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Job 封裝一筆待處理的工作以及回報處理結果所需的資料
type Job[T any] struct {
	Payload T

	client    *redis.Client
	settled   bool
	messageID string
	stream    string
	group     string

	raw map[string]any
}

// Done 確認工作已處理完成
func (j *Job[T]) Done(ctx context.Context) error {
	const op = "Job.Done"
	if j.settled {
		return nil
	}
	if err := j.client.XAck(ctx, j.stream, j.group, j.messageID).Err(); err != nil {
		return fmt.Errorf("[%s] failed to ack job: %w", op, err)
	}
	j.settled = true
	return nil
}

// Fail 確認工作處理失敗，原始內容連同錯誤訊息移往 dead-letter stream
func (j *Job[T]) Fail(ctx context.Context, cause error) error {
	const op = "Job.Fail"
	if j.settled {
		return nil
	}

	j.raw["error"] = cause.Error()
	if err := j.client.XAdd(ctx, &redis.XAddArgs{
		Stream: j.stream + ":dead-letter",
		Values: j.raw,
	}).Err(); err != nil {
		return fmt.Errorf("[%s] failed to move job to dead letter stream: %w", op, err)
	}

	if err := j.client.XAck(ctx, j.stream, j.group, j.messageID).Err(); err != nil {
		return fmt.Errorf("[%s] failed to ack failed job: %w", op, err)
	}
	j.settled = true
	return nil
}

// JobConsumer 以 consumer group 的方式消費 Redis Stream 上的工作。
// 解碼失敗的訊息直接移往 dead-letter stream，
// 其餘訊息包裝成 Job 交由下游處理，由下游呼叫 Done 或 Fail 決定去向。
type JobConsumer[T any] struct {
	client     *redis.Client
	stream     string
	group      string
	consumer   string
	downStream chan *Job[T]
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	closed     bool
	logger     *slog.Logger
	options    jobConsumerOptions[T]
}

type jobConsumerOptions[T any] struct {
	logger       *slog.Logger
	decodeFunc   func(map[string]any) (T, error)
	bufferSize   int
	blockTimeout time.Duration
}

type JobConsumerOption[T any] func(*jobConsumerOptions[T])

// WithJobConsumerLogger 設置日誌記錄器
func WithJobConsumerLogger[T any](logger *slog.Logger) JobConsumerOption[T] {
	return func(o *jobConsumerOptions[T]) {
		o.logger = logger
	}
}

// WithJobConsumerDecodeFunc 設置工作內容的解碼函數
func WithJobConsumerDecodeFunc[T any](fn func(map[string]any) (T, error)) JobConsumerOption[T] {
	return func(o *jobConsumerOptions[T]) {
		o.decodeFunc = fn
	}
}

// WithJobConsumerBufferSize 設置下游 channel 的緩衝大小
func WithJobConsumerBufferSize[T any](size int) JobConsumerOption[T] {
	return func(o *jobConsumerOptions[T]) {
		o.bufferSize = size
	}
}

// WithJobConsumerBlockTimeout 設置阻塞讀取的超時時間
func WithJobConsumerBlockTimeout[T any](d time.Duration) JobConsumerOption[T] {
	return func(o *jobConsumerOptions[T]) {
		o.blockTimeout = d
	}
}

func NewJobConsumer[T any](
	client *redis.Client,
	stream, group, consumer string,
	opts ...JobConsumerOption[T],
) (*JobConsumer[T], error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if stream == "" || group == "" || consumer == "" {
		return nil, errors.New("stream, group and consumer cannot be empty")
	}

	// 默認選項
	options := jobConsumerOptions[T]{
		logger:       slog.Default(),
		decodeFunc:   DecodeStreamValues[T],
		bufferSize:   1,
		blockTimeout: time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &JobConsumer[T]{
		logger: options.logger.With(
			slog.String("caller", "JobConsumer"),
			slog.String("stream", stream),
			slog.String("group", group),
			slog.String("consumer", consumer),
		),
		client:   client,
		stream:   stream,
		group:    group,
		consumer: consumer,
		closed:   true,
		options:  options,
	}, nil
}

// Start 確保 consumer group 存在後啟動消費迴圈
func (s *JobConsumer[T]) Start() error {
	const op = "JobConsumer.Start"
	if !s.closed {
		return nil
	}

	// group 已存在時 redis 回報 BUSYGROUP，視為正常情況
	if err := s.client.XGroupCreateMkStream(context.Background(), s.stream, s.group, "0").Err(); err != nil &&
		!strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("[%s] failed to create consumer group: %w", op, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.downStream = make(chan *Job[T], s.options.bufferSize)
	s.cancelFunc = cancel
	s.closed = false
	s.logger.Info("starting job consumer")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.logger.Info("job consumer goroutine stopped")
		defer close(s.downStream)

		for {
			if err := s.consumeLoop(ctx); err != nil {
				if errors.Is(err, context.Canceled) && ctx.Err() != nil {
					return
				}
				// 其他錯誤情況下重啟消費迴圈
				s.logger.Error("error processing jobs, restarting consume loop", slog.Any("error", err))
			}
		}
	}()

	return nil
}

// Subscribe 訂閱工作，返回的 channel 會在 Close 後關閉
func (s *JobConsumer[T]) Subscribe() <-chan *Job[T] {
	return s.downStream
}

func (s *JobConsumer[T]) Close() error {
	if s.closed {
		return nil
	}
	s.logger.Info("closing job consumer")
	s.closed = true
	s.cancelFunc()

	s.wg.Wait()
	s.logger.Info("job consumer closed gracefully")
	return nil
}

// consumeLoop 逐一讀取新訊息、解碼並送往下游
func (s *JobConsumer[T]) consumeLoop(ctx context.Context) error {
	for {
		streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    s.group,
			Consumer: s.consumer,
			Streams:  []string{s.stream, ">"},
			Count:    1,
			Block:    s.options.blockTimeout,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) {
				return err
			}
			// 一般是與 redis 之間的瞬時通訊異常，重試即可
			s.logger.Error("fetch job error", slog.Any("error", err))
			continue
		}
		if len(streams) == 0 || len(streams[0].Messages) == 0 {
			continue
		}
		message := streams[0].Messages[0]

		payload, err := s.options.decodeFunc(message.Values)
		if err != nil {
			// 解碼失敗不會因重試而成功，直接移往 dead-letter 讓系統繼續前進
			s.logger.Error("failed to decode job",
				slog.String("messageId", message.ID),
				slog.Any("error", err),
			)
			if deadLetterErr := s.moveToDeadLetter(ctx, message); deadLetterErr != nil {
				// 移往 dead-letter 失敗時，訊息會以 pending 狀態留在 stream 中，需要手動處理
				s.logger.Error("error moving job to dead letter",
					slog.String("messageId", message.ID),
					slog.Any("error", deadLetterErr),
				)
				return deadLetterErr
			}
			continue
		}

		job := &Job[T]{
			Payload:   payload,
			messageID: message.ID,
			stream:    s.stream,
			group:     s.group,
			client:    s.client,
			raw:       message.Values,
		}
		select {
		case <-ctx.Done():
			// 尚未送達下游的訊息以 pending 狀態留在 stream 中
			return context.Canceled
		case s.downStream <- job:
		}
	}
}

// moveToDeadLetter 將無法處理的訊息轉移到 dead-letter stream 並確認原訊息
func (s *JobConsumer[T]) moveToDeadLetter(ctx context.Context, message redis.XMessage) error {
	if err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream + ":dead-letter",
		Values: message.Values,
	}).Err(); err != nil {
		return fmt.Errorf("failed to move job to dead letter stream: %w", err)
	}
	return s.client.XAck(ctx, s.stream, s.group, message.ID).Err()
}
