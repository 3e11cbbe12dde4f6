package api

import "time"

type ServerConfig struct {
	ID string

	S3         S3Config
	DB         DBConfig
	Redis      RedisConfig
	LLM        LLMConfig
	Generation GenerationConfig
}

type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	Bucket          string
	PublicBaseURL   string
}

type DBConfig struct {
	User     string
	Password string
	Host     string
	Port     int
	Database string
	Schema   string
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string

	StreamKeys RedisStreamKeys
}

type RedisStreamKeys struct {
	Generation string
}

type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type GenerationConfig struct {
	ConsumerGroup string
	ClaimTTL      time.Duration
	QuestionBatch int
}
