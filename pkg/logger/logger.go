package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig 日志配置
type LogConfig struct {
	Level      string `json:"level" yaml:"level" default:"info"`
	Filename   string `json:"filename" yaml:"filename" default:"./logs/app.log"`
	MaxSize    int    `json:"max_size" yaml:"max_size" default:"100"`
	MaxAge     int    `json:"max_age" yaml:"max_age" default:"30"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups" default:"5"`
	Daily      bool   `json:"daily" yaml:"daily" default:"true"`
}

var (
	Lg        *zap.Logger = zap.NewNop()
	mu        sync.Mutex
	rotator   *lumberjack.Logger
	stopDaily chan struct{}
)

// Init 初始化全局日志，development 模式输出彩色控制台日志，其余模式输出 JSON
func Init(cfg *LogConfig, mode string) error {
	mu.Lock()
	defer mu.Unlock()

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeDuration = zapcore.StringDurationEncoder

	var cores []zapcore.Core
	if mode == "development" {
		devCfg := encCfg
		devCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(devCfg), zapcore.Lock(os.Stdout), level))
	} else {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(os.Stdout), level))
	}

	if cfg.Filename != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Filename), 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		closeRotator()
		rotator = &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxAge:     cfg.MaxAge,
			MaxBackups: cfg.MaxBackups,
			LocalTime:  true,
			Compress:   false,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotator), level))
		if cfg.Daily {
			stopDaily = make(chan struct{})
			go rotateDaily(rotator, stopDaily)
		}
	}

	Lg = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	zap.ReplaceGlobals(Lg)
	return nil
}

// Sync 刷新缓冲并关闭文件
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	_ = Lg.Sync()
	closeRotator()
}

func closeRotator() {
	if stopDaily != nil {
		close(stopDaily)
		stopDaily = nil
	}
	if rotator != nil {
		_ = rotator.Close()
		rotator = nil
	}
}

// rotateDaily 每天零点切分日志文件
func rotateDaily(l *lumberjack.Logger, stop <-chan struct{}) {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-timer.C:
			_ = l.Rotate()
		case <-stop:
			timer.Stop()
			return
		}
	}
}

func Debug(msg string, fields ...zap.Field) { Lg.Debug(msg, fields...) }

func Info(msg string, fields ...zap.Field) { Lg.Info(msg, fields...) }

func Warn(msg string, fields ...zap.Field) { Lg.Warn(msg, fields...) }

func Error(msg string, fields ...zap.Field) { Lg.Error(msg, fields...) }

func Fatal(msg string, fields ...zap.Field) { Lg.Fatal(msg, fields...) }
