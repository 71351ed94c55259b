package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const DefaultAIProxyURL = "https://gemini-proxy.minhnaath.workers.dev"

// Config medig-server 配置（全部来自环境变量）
type Config struct {
	HTTP struct {
		Addr        string
		CORSOrigins []string
	}
	Store struct {
		Backend string // redis | memory
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	AI     AIConfig
	Export ExportConfig
}

// AIConfig AI 代理（/gemini、/verify）
type AIConfig struct {
	ProxyURL   string
	Timeout    time.Duration
	RetryCount int
}

type ExportConfig struct {
	ImageMaxWidth int // px
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.HTTP.CORSOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "*"))

	cfg.Store.Backend = getEnv("STORE_BACKEND", "redis")
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.AI.ProxyURL = strings.TrimRight(getEnv("AI_PROXY_URL", DefaultAIProxyURL), "/")
	cfg.AI.Timeout = parseDuration(getEnv("AI_TIMEOUT", "60s"), 60*time.Second)
	cfg.AI.RetryCount = parseInt(getEnv("AI_RETRY_COUNT", "1"), 1)

	cfg.Export.ImageMaxWidth = parseInt(getEnv("EXPORT_IMAGE_MAX_WIDTH", "500"), 500)

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
