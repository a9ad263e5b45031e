package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const megabyte = 1 << 20

// RSyncWrite is a rotable and concurrent safe file-based logs writer.
// It implements zapcore.WriteSyncer. A new file is opened in the logs
// folder once the current one would exceed the max size.
type RSyncWrite struct {
	sync.Mutex
	clock  Clocker
	file   *os.File
	folder string
	max    int64
	size   int64
	isProd bool
}

// NewRSyncWriter returns a writer which lazily creates its first file.
func NewRSyncWriter(config *Config, clock Clocker) *RSyncWrite {
	return &RSyncWrite{
		clock:  clock,
		folder: config.LogFolder,
		max:    int64(config.LogMaxSize) * megabyte,
		isProd: config.IsProduction,
	}
}

// Close closes the current log file.
func (rsw *RSyncWrite) Close() error {
	rsw.Lock()
	defer rsw.Unlock()
	if rsw.file == nil {
		return nil
	}
	err := rsw.file.Close()
	rsw.file = nil
	return err
}

// Sync flushes the current log file.
func (rsw *RSyncWrite) Sync() error {
	rsw.Lock()
	defer rsw.Unlock()
	if rsw.file == nil {
		return nil
	}
	return rsw.file.Sync()
}

// Write implements io.Writer with file rotation on max size.
func (rsw *RSyncWrite) Write(p []byte) (int, error) {
	rsw.Lock()
	defer rsw.Unlock()
	pLen := int64(len(p))
	if pLen > rsw.max {
		return 0, fmt.Errorf("logging: log size %d exceeds max file size %d", pLen, rsw.max)
	}
	if rsw.file == nil || pLen+rsw.size > rsw.max {
		if err := rsw.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := rsw.file.Write(p)
	rsw.size += int64(n)
	return n, err
}

// rotate closes the current file if any and opens a new one.
// It must be called with the lock held.
func (rsw *RSyncWrite) rotate() error {
	if rsw.file != nil {
		if err := rsw.file.Close(); err != nil {
			return err
		}
		rsw.file = nil
	}
	if err := os.MkdirAll(rsw.folder, 0o700); err != nil {
		return err
	}
	path := CreateLogFilePath(rsw.folder, rsw.isProd, rsw.clock.Now())
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	rsw.file = file
	rsw.size = 0
	return nil
}

// stdoutSyncer avoids the usual `Handle is invalid` or `inappropriate ioctl`
// error when calling Sync() on a logger which writes to the terminal.
type stdoutSyncer struct {
	out *os.File
}

func (s *stdoutSyncer) Sync() error { return nil }

func (s *stdoutSyncer) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

// SetupLogging initializes the logging module. In production all logs are
// saved as json to the rotated files. In development the same logs are
// printed to standard output as well. Only fatal level logs get a stacktrace.
// All entries carry the build details.
func SetupLogging(config *Config, w zapcore.WriteSyncer, clock zapcore.Clock) (*zap.Logger, func() error) {
	var zapConfig zapcore.EncoderConfig
	if config.IsProduction {
		zapConfig = zap.NewProductionEncoderConfig()
	} else {
		zapConfig = zap.NewDevelopmentEncoderConfig()
	}
	zapConfig.TimeKey = "ts"
	zapConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.LevelKey = "lvl"
	zapConfig.NameKey = "name"
	zapConfig.MessageKey = "msg"
	zapConfig.CallerKey = "caller"
	zapConfig.StacktraceKey = "skt"

	cores := []zapcore.Core{zapcore.NewCore(zapcore.NewJSONEncoder(zapConfig), w, config.LogLevel)}
	if !config.IsProduction {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(zapConfig),
			zapcore.Lock(&stdoutSyncer{os.Stdout}),
			config.LogLevel,
		))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.FatalLevel), zap.WithClock(clock))
	logger = logger.With(
		zap.String("app.commit", config.GitCommit),
		zap.String("app.tag", config.GitTag),
		zap.String("app.built", config.BuildTime),
	)

	flusher := func() error {
		if err := logger.Sync(); err != nil {
			return fmt.Errorf("[flush logs]: %w", err)
		}
		return nil
	}

	return logger, flusher
}

// CreateLogFilePath returns the path of a new log file named after t.
func CreateLogFilePath(folder string, isProd bool, t time.Time) string {
	envKey := "dev"
	if isProd {
		envKey = "prod"
	}
	name := fmt.Sprintf("%04d%02d%02d.%02d%02d%02d.%09d.%s.log",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), envKey)
	return filepath.Join(folder, name)
}
