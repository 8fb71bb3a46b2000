package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger writes one session's activity to its own log file. Trade
// executions get a dedicated level so they are easy to grep out of the
// operational noise.
type Logger struct {
	sessionID string
	logFile   *os.File
	logger    *log.Logger
	mu        sync.Mutex
}

// Level tags a log entry.
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARN"
	LevelError   Level = "ERROR"
	LevelTrade   Level = "TRADE"
	LevelStatus  Level = "STATUS"
)

// New creates a logger writing to <dir>/<sessionID>_<date>.log.
func New(dir, sessionID string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.log", sessionID, time.Now().Format("2006-01-02"))
	file, err := os.OpenFile(filepath.Join(dir, filename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := &Logger{
		sessionID: sessionID,
		logFile:   file,
		logger:    log.New(file, "", 0),
	}
	l.banner("TRADING SESSION STARTED")
	return l, nil
}

// NewDiscard returns a logger that drops everything. Useful in tests.
func NewDiscard() *Logger {
	return &Logger{logger: log.New(io.Discard, "", 0)}
}

func (l *Logger) banner(title string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logger.Printf("================================================================================")
	l.logger.Printf("%s | session=%s | %s", title, l.sessionID, time.Now().Format("2006-01-02 15:04:05"))
	l.logger.Printf("================================================================================")
}

// Log writes one entry at the given level.
func (l *Logger) Log(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	l.logger.Printf("[%s] [%s] %s", timestamp, level, fmt.Sprintf(format, args...))
}

func (l *Logger) Info(format string, args ...interface{})    { l.Log(LevelInfo, format, args...) }
func (l *Logger) Warning(format string, args ...interface{}) { l.Log(LevelWarning, format, args...) }
func (l *Logger) Error(format string, args ...interface{})   { l.Log(LevelError, format, args...) }
func (l *Logger) Trade(format string, args ...interface{})   { l.Log(LevelTrade, format, args...) }
func (l *Logger) Status(format string, args ...interface{})  { l.Log(LevelStatus, format, args...) }

// LogError logs an error with a short context label.
func (l *Logger) LogError(context string, err error) {
	l.Error("%s: %v", context, err)
}

// LogTradeExecution records a fill with the fields an operator wants to
// see when auditing the trade log.
func (l *Logger) LogTradeExecution(side, symbol, orderID string, quantity, price, commission float64) {
	l.Trade("%s %s qty=%.4f price=%.4f commission=%.4f order=%s",
		side, symbol, quantity, price, commission, orderID)
}

// LogTickStatus records the per-tick portfolio snapshot.
func (l *Logger) LogTickStatus(date string, cash, totalValue float64, positions, executed, rejected int) {
	l.Status("tick=%s cash=%.2f total_value=%.2f positions=%d executed=%d rejected=%d",
		date, cash, totalValue, positions, executed, rejected)
}

// Close writes the session end banner and closes the file.
func (l *Logger) Close() error {
	if l.logFile == nil {
		return nil
	}
	l.banner("TRADING SESSION ENDED")
	return l.logFile.Close()
}
