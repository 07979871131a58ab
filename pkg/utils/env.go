package utils

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// LoadEnv 加载 .env 以及 .env.<env> 文件，已存在的环境变量不会被覆盖
func LoadEnv(env string) error {
	files := []string{".env"}
	if env != "" {
		files = append([]string{fmt.Sprintf(".env.%s", env)}, files...)
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// GetEnv 获取环境变量（去除首尾空白）
func GetEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// GetIntEnv 获取整型环境变量，无法解析时返回 0
func GetIntEnv(key string) int64 {
	return cast.ToInt64(GetEnv(key))
}

// GetFloatEnv 获取浮点型环境变量
func GetFloatEnv(key string) float64 {
	return cast.ToFloat64(GetEnv(key))
}

// GetBoolEnv 获取布尔型环境变量
func GetBoolEnv(key string) bool {
	return cast.ToBool(GetEnv(key))
}

// GetDurationEnv 获取时长，支持 "30s" 形式，纯数字按毫秒处理
func GetDurationEnv(key string) time.Duration {
	v := GetEnv(key)
	if v == "" {
		return 0
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return time.Duration(cast.ToInt64(v)) * time.Millisecond
}
