package main

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"sensai/api"
)

func ParseArgs() Args {
	hostname, _ := os.Hostname()

	// server config
	pflag.String("server-url", "0.0.0.0:8080", "")
	pflag.String("id", hostname, "")

	// s3 config
	pflag.String("s3-endpoint", "", "")
	pflag.String("s3-bucket", "", "")
	pflag.String("s3-public-base-url", "", "")
	pflag.String("s3-access-key-id", "", "")
	pflag.String("s3-secret-access-key", "", "")

	// db config
	pflag.String("db-user", "", "")
	pflag.String("db-password", "", "")
	pflag.String("db-host", "", "")
	pflag.Int("db-port", 5432, "")
	pflag.String("db-database", "", "")
	pflag.String("db-schema", "", "")

	// redis config
	pflag.String("redis-addr", "", "")
	pflag.String("redis-password", "", "")
	pflag.Int("redis-db", 15, "")
	pflag.String("redis-key-prefix", "sensai:", "")

	// redis stream keys
	pflag.String("redis-stream-key-for-generation", "sensai-generation-stream", "")

	// llm config
	pflag.String("llm-api-key", "", "")
	pflag.String("llm-base-url", "", "")
	pflag.String("llm-model", "gpt-4o-mini", "")

	// generation config
	pflag.String("generation-consumer-group", "sensai-generation-workers", "")
	pflag.Duration("generation-claim-ttl", 10*time.Minute, "")
	pflag.Int("generation-question-batch", 12, "")

	// bind pflag to viper
	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)
	viper.AutomaticEnv()
	viper.SetEnvPrefix("SENSAI")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// initial arguments
	return Args{
		ServerURL: viper.GetString("server-url"),
		ServerConfig: api.ServerConfig{
			ID: viper.GetString("id"),
			S3: api.S3Config{
				Endpoint:        viper.GetString("s3-endpoint"),
				Bucket:          viper.GetString("s3-bucket"),
				PublicBaseURL:   viper.GetString("s3-public-base-url"),
				AccessKeyID:     viper.GetString("s3-access-key-id"),
				SecretAccessKey: viper.GetString("s3-secret-access-key"),
			},
			DB: api.DBConfig{
				User:     viper.GetString("db-user"),
				Password: viper.GetString("db-password"),
				Host:     viper.GetString("db-host"),
				Port:     viper.GetInt("db-port"),
				Database: viper.GetString("db-database"),
				Schema:   viper.GetString("db-schema"),
			},
			Redis: api.RedisConfig{
				Addr:      viper.GetString("redis-addr"),
				Password:  viper.GetString("redis-password"),
				DB:        viper.GetInt("redis-db"),
				KeyPrefix: viper.GetString("redis-key-prefix"),
				StreamKeys: api.RedisStreamKeys{
					Generation: viper.GetString("redis-stream-key-for-generation"),
				},
			},
			LLM: api.LLMConfig{
				APIKey:  viper.GetString("llm-api-key"),
				BaseURL: viper.GetString("llm-base-url"),
				Model:   viper.GetString("llm-model"),
			},
			Generation: api.GenerationConfig{
				ConsumerGroup: viper.GetString("generation-consumer-group"),
				ClaimTTL:      viper.GetDuration("generation-claim-ttl"),
				QuestionBatch: viper.GetInt("generation-question-batch"),
			},
		},
	}
}

type Args struct {
	ServerURL    string
	ServerConfig api.ServerConfig
}

func (args Args) Validate() bool {
	return args.ServerURL != "" && args.ServerConfig.ID != "" && args.ServerConfig.DB.Host != "" && args.ServerConfig.DB.User != "" && args.ServerConfig.DB.Database != "" && args.ServerConfig.Redis.Addr != ""
}
