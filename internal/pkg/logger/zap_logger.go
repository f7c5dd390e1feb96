package logger

import (
	"bufio"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ILogger interface {
	Debug(module, message string, details map[string]interface{})
	Info(module, message string, details map[string]interface{})
	Warn(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
	Sync() error
	GetLogs(level string, limit, offset int) ([]LogEntry, error)
}

type ZapLogger struct {
	logger   *zap.Logger
	filePath string
}

func jsonEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.MessageKey = "message"
	cfg.LevelKey = "level"
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(cfg)
}

func fileCore(logFilePath string) zapcore.Core {
	rotator := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	return zapcore.NewCore(jsonEncoder(), zapcore.AddSync(rotator), zap.InfoLevel)
}

// NewZapLogger writes JSON lines to a rotating file and mirrors everything to stdout.
func NewZapLogger(logFilePath string, isProd bool) *ZapLogger {
	consoleEncoder := jsonEncoder()
	if !isProd {
		consoleEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}
	consoleCore := zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), zap.DebugLevel)

	core := zapcore.NewTee(fileCore(logFilePath), consoleCore)
	return &ZapLogger{
		logger:   zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)),
		filePath: logFilePath,
	}
}

// NewIsolatedLogger only writes to its own file. Used for chatty websocket traffic.
func NewIsolatedLogger(logFilePath string) *ZapLogger {
	return &ZapLogger{
		logger:   zap.New(fileCore(logFilePath), zap.AddCaller(), zap.AddCallerSkip(1)),
		filePath: logFilePath,
	}
}

// NewNopLogger discards everything. GetLogs always returns an empty slice.
func NewNopLogger() *ZapLogger {
	return &ZapLogger{logger: zap.NewNop()}
}

func (l *ZapLogger) fields(module string, details map[string]interface{}) []zap.Field {
	if details == nil {
		details = map[string]interface{}{}
	}
	return []zap.Field{zap.String("module", module), zap.Any("details", details)}
}

func (l *ZapLogger) Debug(module, message string, details map[string]interface{}) {
	l.logger.Debug(message, l.fields(module, details)...)
}

func (l *ZapLogger) Info(module, message string, details map[string]interface{}) {
	l.logger.Info(message, l.fields(module, details)...)
}

func (l *ZapLogger) Warn(module, message string, details map[string]interface{}) {
	l.logger.Warn(message, l.fields(module, details)...)
}

func (l *ZapLogger) Error(module, message string, details map[string]interface{}) {
	fields := l.fields(module, details)
	if err, ok := details["error"]; ok {
		fields = append(fields, zap.Any("error_ref", err))
	}
	l.logger.Error(message, fields...)
}

func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

type LogEntry struct {
	Id        string                 `json:"id"`
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Module    string                 `json:"module,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// GetLogs reads the active log file back, newest first, optionally filtered by level.
// Rotated (compressed) files are not scanned.
func (l *ZapLogger) GetLogs(level string, limit, offset int) ([]LogEntry, error) {
	if l.filePath == "" {
		return []LogEntry{}, nil
	}
	file, err := os.Open(l.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []LogEntry{}, nil
		}
		return nil, err
	}
	defer file.Close()

	var entries []LogEntry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		var entry LogEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		if level != "" && entry.Level != level {
			continue
		}
		if entry.Id == "" {
			entry.Id = fmt.Sprintf("%x", sha1.Sum(line))
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	if offset >= len(entries) {
		return []LogEntry{}, nil
	}
	end := offset + limit
	if end > len(entries) {
		end = len(entries)
	}
	return entries[offset:end], nil
}
