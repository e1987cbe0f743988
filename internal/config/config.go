package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Backend    BackendConfig    `mapstructure:"backend"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Generation GenerationConfig `mapstructure:"generation"`
	Poller     PollerConfig     `mapstructure:"poller"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Log        LogConfig        `mapstructure:"log"`
	Storage    StorageConfig    `mapstructure:"storage"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

// BackendConfig 本地 LLM 平台的 REST 地址
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type GenerationConfig struct {
	Provider     string `mapstructure:"provider"` // "ollama" | "openai"
	DefaultModel string `mapstructure:"default_model"`
}

type PollerConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	GracePeriod time.Duration `mapstructure:"grace_period"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type StorageConfig struct {
	Type       string `mapstructure:"type"` // "memory" | "disk" | "sqlite"
	DataDir    string `mapstructure:"data_dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.max_header_bytes", 1<<20)

	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.timeout", 5*time.Minute)

	v.SetDefault("openai.base_url", "https://api.openai.com/v1")

	v.SetDefault("generation.provider", "ollama")
	v.SetDefault("generation.default_model", "llama3")

	v.SetDefault("poller.interval", time.Second)
	v.SetDefault("poller.grace_period", 3*time.Second)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Authorization"})
	v.SetDefault("cors.max_age", 43200)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("storage.type", "disk")
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.sqlite_path", "./data/llmdesk.db")
}

// Load 读取配置文件；文件不存在时仅使用默认值与环境变量
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LLMDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, err
	}

	// 配置文件优先，如果配置文件中没有设置，则使用环境变量
	if c.Backend.Token == "" {
		c.Backend.Token = os.Getenv("LLMDESK_BACKEND_TOKEN")
	}
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return c, nil
}
