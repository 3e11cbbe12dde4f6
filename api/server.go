package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"sensai/adapters/llm"
	redisAdapter "sensai/adapters/redis"
	internalS3 "sensai/adapters/s3"
	"sensai/adapters/safety"
	"sensai/adapters/ws"
)

type ServerImpl struct {
	hub          ws.IConnectionHub
	s3Operator   *internalS3.S3Operator
	htmlChecker  *bluemonday.Policy
	redisClient  *redis.Client
	llmClient    llm.ILLMClient
	safetyFilter *safety.Filter
	jobConsumer  redisAdapter.IJobConsumer[GenerationJob]
	wg           sync.WaitGroup
	cancelFunc   context.CancelFunc
	db           *gorm.DB

	config ServerConfig
}

func NewServer(config ServerConfig) (*ServerImpl, error) {
	const op = "NewServer"

	// 初始化S3客戶端
	s3Cfg, err := awsCfg.LoadDefaultConfig(
		context.Background(),
		awsCfg.WithBaseEndpoint(config.S3.Endpoint),
		awsCfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(config.S3.AccessKeyID, config.S3.SecretAccessKey, "")),
		awsCfg.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to load AWS config, err=%w", op, err)
	}
	s3Operator, err := internalS3.NewS3Operator(s3.NewFromConfig(s3Cfg), config.S3.Bucket, config.S3.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create S3 operator, err=%w", op, err)
	}

	// 初始化資料庫連線
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s", config.DB.User, config.DB.Password, config.DB.Host, config.DB.Port, config.DB.Database, config.DB.Schema)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: config.DB.Schema + ".",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to connect to database, err=%w", op, err)
	}

	// 初始化Redis連線
	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})

	// 初始化WebSocket連線註冊中心
	hub := ws.NewConnectionHub(slog.Default())

	// 初始化LLM客戶端與內容安全過濾器
	llmClient := llm.NewClient(config.LLM.APIKey, config.LLM.BaseURL, config.LLM.Model)
	safetyFilter := safety.NewFilter(llmClient, slog.Default())

	// 初始化生成任務的consumer
	jobConsumer, err := redisAdapter.NewJobConsumer[GenerationJob](
		redisClient,
		config.Redis.StreamKeys.Generation,
		config.Generation.ConsumerGroup,
		config.ID,
		redisAdapter.WithJobConsumerLogger[GenerationJob](slog.Default()),
	)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create job consumer, err=%w", op, err)
	}

	return &ServerImpl{
		hub:          hub,
		s3Operator:   s3Operator,
		htmlChecker:  bluemonday.UGCPolicy(),
		redisClient:  redisClient,
		llmClient:    llmClient,
		safetyFilter: safetyFilter,
		jobConsumer:  jobConsumer,
		db:           db,
		config:       config,
	}, nil
}

func (impl *ServerImpl) Start() error {
	const op = "Start"
	// 啟動job consumer
	if err := impl.jobConsumer.Start(); err != nil {
		return fmt.Errorf("[%s] Fail to start job consumer, err=%w", op, err)
	}
	// 啟動一個worker用於處理課程生成任務
	ctx, cancel := context.WithCancel(context.Background())
	impl.cancelFunc = cancel
	slog.Info("Start course generation worker")
	impl.wg.Add(1)
	go func() {
		logger := slog.Default().With(slog.String("caller", "CourseGeneration"))
		defer impl.wg.Done()
		defer slog.Info("Course generation worker stopped")
		ch := impl.jobConsumer.Subscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				logger.Debug("Receive generation job", slog.String("jobID", msg.Payload.JobID.String()), slog.String("courseID", msg.Payload.CourseID.String()))
				handleErr := impl.runGeneration(ctx, logger, msg.Payload)
				if handleErr != nil {
					logger.Error("Fail to generate course structure", slog.Any("error", handleErr))
					if err := msg.Fail(ctx, handleErr); err != nil {
						logger.Error("Fail to fail message", slog.Any("error", err))
					}
					continue
				}
				if err := msg.Done(ctx); err != nil {
					logger.Error("Generation success but fail to done message", slog.Any("error", err))
					if err := msg.Fail(ctx, err); err != nil {
						logger.Error("Generation success but fail to fail message", slog.Any("error", err))
					}
					continue
				}
				logger.Debug("Generation success")
			}
		}
	}()
	return nil
}

func (impl *ServerImpl) Close() {
	// 關閉job consumer
	impl.jobConsumer.Close()
	// 關閉worker
	if impl.cancelFunc != nil {
		impl.cancelFunc()
	}
	impl.wg.Wait()
	// 關閉Redis連線
	impl.redisClient.Close()
}

func (impl *ServerImpl) RegisterRoutes(router *gin.Engine) {
	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/courses", impl.PostCourse)
		apiGroup.GET("/courses/:courseID", impl.GetCourse)
		apiGroup.DELETE("/courses/:courseID", impl.DeleteCourse)
		apiGroup.GET("/courses/:courseID/schedule", impl.GetCourseSchedule)

		apiGroup.POST("/tasks", impl.PostTask)
		apiGroup.GET("/tasks/:taskID", impl.GetTask)
		apiGroup.GET("/tasks/:taskID/questions", impl.GetTaskQuestions)
		apiGroup.PUT("/tasks/:taskID/learning_material", impl.PutTaskLearningMaterial)
		apiGroup.PUT("/tasks/:taskID/quiz", impl.PutTaskQuiz)
		apiGroup.POST("/tasks/:taskID/duplicate", impl.PostTaskDuplicate)
		apiGroup.PUT("/tasks/:taskID/publish", impl.PutTaskPublish)
		apiGroup.DELETE("/tasks/:taskID", impl.DeleteTask)
		apiGroup.POST("/tasks/:taskID/complete", impl.PostTaskComplete)
		apiGroup.DELETE("/tasks/:taskID/complete", impl.DeleteTaskComplete)
		apiGroup.GET("/cohorts/:cohortID/users/:userID/completions", impl.GetUserCompletions)

		apiGroup.POST("/ai/courses/:courseID/structure", impl.PostGenerateCourseStructure)
		apiGroup.POST("/ai/courses/:courseID/schedule", impl.PostGenerateCourseSchedule)
		apiGroup.POST("/ai/tasks/:taskID/questions", impl.PostGenerateTaskQuestions)

		apiGroup.POST("/media", impl.PostMedia)
	}
	router.GET("/ws/courses/:courseID/generation", impl.GetCourseGenerationSocket)
}

// 回應500並將完整的錯誤內容記錄到日誌，錯誤細節不外洩給客戶端
func (impl *ServerImpl) abortWithInternalError(c *gin.Context, err error) {
	slog.Error("Request failed", slog.String("path", c.FullPath()), slog.Any("error", err))
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
}
