// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"

	"helpdesk-go/internal/recommend"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Slack         SlackConfig         `mapstructure:"slack"`
	Recommend     RecommendConfig     `mapstructure:"recommend"`
	Admin         AdminSeedConfig     `mapstructure:"admin"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
// Driver 取值 mysql 或 sqlite。
type DatabaseConfig struct {
	Driver string       `mapstructure:"driver"`
	MySQL  MySQLConfig  `mapstructure:"mysql"`
	SQLite SQLiteConfig `mapstructure:"sqlite"`
	Redis  RedisConfig  `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// SQLiteConfig 存储本地 SQLite 数据库文件路径。
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
	RefreshTokenExpireDays int    `mapstructure:"refresh_token_expire_days"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。Brokers 为空时语料重建在进程内执行。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// Enabled 报告是否配置了 Kafka。
func (k KafkaConfig) Enabled() bool {
	return strings.TrimSpace(k.Brokers) != ""
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。Addresses 为空时禁用工单检索。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// LLMConfig 存储大语言模型相关的配置。
// Provider 取值 openai（兼容 OpenAI 的 chat/completions 接口）或 anthropic；APIKey 为空时不启用增强。
type LLMConfig struct {
	Provider   string              `mapstructure:"provider"`
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Model      string              `mapstructure:"model"`
	Generation LLMGenerationConfig `mapstructure:"generation"`
	Prompt     LLMPromptConfig     `mapstructure:"prompt"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// LLMPromptConfig 配置系统提示（可选）。
type LLMPromptConfig struct {
	System string `mapstructure:"system"`
}

// SlackConfig 存储升级通知相关配置。Token 为空时只记录日志。
type SlackConfig struct {
	Token   string `mapstructure:"token"`
	Channel string `mapstructure:"channel"`
	APIURL  string `mapstructure:"api_url"`
}

// AdminSeedConfig 配置启动时自动创建的管理员账号。
type AdminSeedConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Email    string `mapstructure:"email"`
}

// RecommendConfig 存储推荐引擎、语料来源与快照相关的配置。
type RecommendConfig struct {
	TopK              int     `mapstructure:"top_k"`
	CategoryBoost     float64 `mapstructure:"category_boost"`
	SubstringBoost    float64 `mapstructure:"substring_boost"`
	MinScore          float64 `mapstructure:"min_score"`
	ClampScore        bool    `mapstructure:"clamp_score"`
	Deduplicate       *bool   `mapstructure:"deduplicate"`
	DedupWindow       int     `mapstructure:"dedup_window"`
	TypeWeight        *int    `mapstructure:"type_weight"`
	SubjectWeight     *int    `mapstructure:"subject_weight"`
	DescriptionWeight int     `mapstructure:"description_weight"`
	IncludeResolution *bool   `mapstructure:"include_resolution"`
	MinDF             int     `mapstructure:"min_df"`
	MaxDFRatio        float64 `mapstructure:"max_df_ratio"`
	SublinearTF       bool    `mapstructure:"sublinear_tf"`

	Corpus          CorpusSourceConfig `mapstructure:"corpus"`
	Snapshot        SnapshotConfig     `mapstructure:"snapshot"`
	RebuildSchedule string             `mapstructure:"rebuild_schedule"`
}

// CorpusSourceConfig 描述历史记录的来源。Type 取值 database、json 或 csv。
type CorpusSourceConfig struct {
	Type string `mapstructure:"type"`
	Path string `mapstructure:"path"`
}

// SnapshotConfig 描述快照的存储位置。Backend 取值 file、minio 或 none。
type SnapshotConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	Object  string `mapstructure:"object"`
}

// EngineOptions 将配置转换为引擎参数，未配置或零值的字段回退到默认值，指针字段以是否配置为准。
func (c RecommendConfig) EngineOptions() recommend.Options {
	opts := recommend.DefaultOptions()
	if c.TopK > 0 {
		opts.TopK = c.TopK
	}
	if c.CategoryBoost > 0 {
		opts.CategoryBoost = c.CategoryBoost
	}
	if c.SubstringBoost > 0 {
		opts.SubstringBoost = c.SubstringBoost
	}
	if c.MinScore > 0 {
		opts.MinScore = c.MinScore
	}
	opts.ClampScore = c.ClampScore
	if c.Deduplicate != nil {
		opts.Deduplicate = *c.Deduplicate
	}
	if c.DedupWindow > 0 {
		opts.DedupWindow = c.DedupWindow
	}
	// 类型与标题允许显式配置为 0，表示不参与建索引
	if c.TypeWeight != nil {
		opts.TypeWeight = *c.TypeWeight
	}
	if c.SubjectWeight != nil {
		opts.SubjectWeight = *c.SubjectWeight
	}
	if c.DescriptionWeight > 0 {
		opts.DescriptionWeight = c.DescriptionWeight
	}
	if c.IncludeResolution != nil {
		opts.IncludeResolution = *c.IncludeResolution
	}
	if c.MinDF > 0 {
		opts.MinDF = c.MinDF
	}
	if c.MaxDFRatio > 0 {
		opts.MaxDFRatio = c.MaxDFRatio
	}
	opts.SublinearTF = c.SublinearTF
	return opts
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
// 以 HELPDESK_ 为前缀的环境变量覆盖同名配置项，例如 HELPDESK_LLM_API_KEY。
func Init(configPath string) {
	if err := Load(configPath, &Conf); err != nil {
		panic(err)
	}
}

// Load 读取配置文件到 out，供 Init 与命令行工具复用。
func Load(configPath string, out *Config) error {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("HELPDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return nil
}
