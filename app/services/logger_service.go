package services

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"
)

// LoggerService writes daily log files and tees them to stdout
type LoggerService struct {
	mu         sync.Mutex
	logDir     string
	logFile    *os.File
	logger     *log.Logger
	currentDay string
	console    io.Writer
}

// NewLoggerService creates a logger writing into logDir ("logs" when empty)
func NewLoggerService(logDir string) *LoggerService {
	return newLoggerService(logDir, os.Stdout)
}

func newLoggerService(logDir string, console io.Writer) *LoggerService {
	if logDir == "" {
		logDir = "logs"
	}
	service := &LoggerService{logDir: logDir, console: console}
	service.initializeLogger()
	return service
}

// initializeLogger sets up the logging system
func (s *LoggerService) initializeLogger() {
	if err := os.MkdirAll(s.logDir, 0755); err != nil {
		log.Printf("Warning: Could not create logs directory: %v", err)
	}

	if err := s.rotateLogFile(); err != nil {
		log.Printf("Warning: Could not create log file: %v. Logging to stdout only.", err)
		s.logger = log.New(s.console, "", log.LstdFlags|log.Lshortfile)
		return
	}

	multiWriter := io.MultiWriter(s.console, s.logFile)
	s.logger = log.New(multiWriter, "", log.LstdFlags|log.Lshortfile)

	// Services log through the standard logger
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	s.LogInfo("Logger initialized", fmt.Sprintf("Log directory: %s", s.logDir))
}

// rotateLogFile creates a new log file for the current day
func (s *LoggerService) rotateLogFile() error {
	today := time.Now().Format("2006-01-02")
	if s.currentDay == today && s.logFile != nil {
		return nil
	}

	if s.logFile != nil {
		s.logFile.Close()
	}

	logFilePath := filepath.Join(s.logDir, fmt.Sprintf("%s.log", today))
	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	s.logFile = file
	s.currentDay = today
	return nil
}

func (s *LoggerService) write(level, message, extra string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkAndRotate()
	s.logger.Printf("[%s] %s%s", level, message, extra)
}

func detail(details []string) string {
	if len(details) > 0 {
		return " | " + details[0]
	}
	return ""
}

// LogInfo logs an informational message
func (s *LoggerService) LogInfo(message string, details ...string) {
	s.write("INFO", message, detail(details))
}

// LogWarning logs a warning message
func (s *LoggerService) LogWarning(message string, details ...string) {
	s.write("WARNING", message, detail(details))
}

// LogError logs an error message
func (s *LoggerService) LogError(message string, err error, details ...string) {
	errorStr := ""
	if err != nil {
		errorStr = fmt.Sprintf(" | Error: %v", err)
	}
	s.write("ERROR", message, errorStr+detail(details))
}

// LogPanic logs a panic with stack trace
func (s *LoggerService) LogPanic(recovered interface{}) {
	s.write("PANIC", fmt.Sprintf("Recovered from panic: %v", recovered), "\n"+string(debug.Stack()))
}

// checkAndRotate moves to a new file when the day changes. Callers hold mu.
func (s *LoggerService) checkAndRotate() {
	if s.currentDay == time.Now().Format("2006-01-02") {
		return
	}
	if err := s.rotateLogFile(); err != nil || s.logFile == nil {
		return
	}
	multiWriter := io.MultiWriter(s.console, s.logFile)
	s.logger.SetOutput(multiWriter)
	log.SetOutput(multiWriter)
}

// GetLogDirectory returns the directory where logs are stored
func (s *LoggerService) GetLogDirectory() string {
	return s.logDir
}

// GetTodayLogPath returns the path to today's log file
func (s *LoggerService) GetTodayLogPath() string {
	return filepath.Join(s.logDir, fmt.Sprintf("%s.log", time.Now().Format("2006-01-02")))
}

// CleanOldLogs removes log files older than daysToKeep
func (s *LoggerService) CleanOldLogs(daysToKeep int) error {
	files, err := os.ReadDir(s.logDir)
	if err != nil {
		return err
	}

	cutoffDate := time.Now().AddDate(0, 0, -daysToKeep)
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".log" {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoffDate) {
			filePath := filepath.Join(s.logDir, file.Name())
			s.LogInfo("Deleting old log file", filePath)
			os.Remove(filePath)
		}
	}
	return nil
}

// Close closes the log file and points the standard logger back at the console
func (s *LoggerService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	log.SetOutput(s.console)
	if s.logFile != nil {
		s.logFile.Close()
		s.logFile = nil
	}
}

// RecoverPanic is a helper to recover from panics in goroutines
func (s *LoggerService) RecoverPanic() {
	if r := recover(); r != nil {
		s.LogPanic(r)
	}
}
