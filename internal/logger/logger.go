// Package logger provides leveled logging for the tracker, storage and CLI.
// It wraps the standard log package with level filtering and a tag per line.
// Until Init is called every function is a no-op, so library code and tests
// stay quiet unless a binary opts in.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Level represents a logging level
type Level int

const (
	// DebugLevel is for per-operation detail such as computed scores.
	DebugLevel Level = iota
	// InfoLevel is the default; state mutations are logged here.
	InfoLevel
	// WarnLevel is for skipped records and recoverable problems.
	WarnLevel
	// ErrorLevel is for failed persistence and notification attempts.
	ErrorLevel
)

var levelNames = map[string]Level{
	"debug": DebugLevel,
	"info":  InfoLevel,
	"warn":  WarnLevel,
	"error": ErrorLevel,
}

// Logger provides leveled logging
type Logger struct {
	level  Level
	format string
	logger *log.Logger
}

var (
	mu            sync.RWMutex
	defaultLogger *Logger
)

// ParseLevel maps a level name to a Level. Unknown names fall back to InfoLevel.
func ParseLevel(name string) (Level, bool) {
	l, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return InfoLevel, false
	}
	return l, true
}

// Init initializes the default logger writing to stderr.
func Init(level string, format string) {
	InitWithOutput(level, format, os.Stderr)
}

// InitWithOutput initializes the default logger writing to w.
// Format "text" adds the caller's file and line; "json" emits one JSON object per line.
func InitWithOutput(level string, format string, w io.Writer) {
	l, _ := ParseLevel(level)
	format = strings.ToLower(format)

	flags := log.LstdFlags | log.Lmicroseconds
	switch format {
	case "text":
		flags |= log.Lshortfile
	case "json":
		flags = 0
	}

	mu.Lock()
	defer mu.Unlock()
	defaultLogger = &Logger{
		level:  l,
		format: format,
		logger: log.New(w, "", flags),
	}
}

type jsonLine struct {
	Level string `json:"level"`
	Msg   string `json:"msg"`
}

// SetOutput redirects the default logger, initializing it at info level if needed.
func SetOutput(w io.Writer) {
	mu.RLock()
	current := defaultLogger
	mu.RUnlock()
	if current == nil {
		InitWithOutput("info", "text", w)
		return
	}
	current.logger.SetOutput(w)
}

func output(l Level, tag string, format string, args ...interface{}) {
	mu.RLock()
	lg := defaultLogger
	mu.RUnlock()
	if lg == nil || lg.level > l {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if lg.format == "json" {
		line, err := json.Marshal(jsonLine{Level: strings.ToLower(tag), Msg: msg})
		if err != nil {
			return
		}
		msg = string(line)
	} else {
		msg = "[" + tag + "] " + msg
	}
	_ = lg.logger.Output(3, msg)
}

// Debug logs a message at DebugLevel
func Debug(format string, args ...interface{}) {
	output(DebugLevel, "DEBUG", format, args...)
}

// Info logs a message at InfoLevel
func Info(format string, args ...interface{}) {
	output(InfoLevel, "INFO", format, args...)
}

// Warn logs a message at WarnLevel
func Warn(format string, args ...interface{}) {
	output(WarnLevel, "WARN", format, args...)
}

// Error logs a message at ErrorLevel
func Error(format string, args ...interface{}) {
	output(ErrorLevel, "ERROR", format, args...)
}

// Fatal logs a message and exits
func Fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf("[FATAL] "+format, args...)
	mu.RLock()
	lg := defaultLogger
	mu.RUnlock()
	if lg != nil {
		_ = lg.logger.Output(2, msg)
	} else {
		log.Print(msg)
	}
	os.Exit(1)
}
