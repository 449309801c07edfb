package zapLogger

import (
	"io"
	"os"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	once sync.Once
	Log  *zap.SugaredLogger
)

// New builds a logger that writes to stdout and, when path is not empty, to
// the file at path. The returned file is nil when no file is used and must
// be closed by the caller otherwise.
func New(path, level string) (*zap.Logger, *os.File, error) {
	lvl := zap.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, nil, err
		}
	}

	writers := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	var logFile *os.File
	if path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, err
		}
		logFile = f
		writers = append(writers, zapcore.AddSync(f))
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.NewMultiWriteSyncer(writers...),
		lvl,
	)
	return zap.New(core, zap.AddCaller()), logFile, nil
}

// Init initializes the package logger once and returns the opened log file
// handle.
func Init(path, level string) (*zap.Logger, *os.File) {
	var (
		base    *zap.Logger
		logFile *os.File
	)
	once.Do(func() {
		var err error
		base, logFile, err = New(path, level)
		if err != nil {
			panic("cannot initialize logger: " + err.Error())
		}
		Log = base.Sugar()
	})
	if base == nil && Log != nil {
		base = Log.Desugar()
	}
	return base, logFile
}

// FiberLoggingMiddleware returns Fiber's built-in logger middleware writing
// logs to stdout and, when not nil, to logFile.
func FiberLoggingMiddleware(logFile *os.File) fiber.Handler {
	var out io.Writer = os.Stdout
	if logFile != nil {
		out = io.MultiWriter(os.Stdout, logFile)
	}
	return logger.New(logger.Config{
		Output:     out,
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	})
}
