package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide zap logger, set by Init.
var Logger *zap.Logger

// Init builds the process logger: JSON output to stdout plus a
// size-rotated file. It also replaces zap's globals so packages can
// use zap.S() without carrying a reference.
func Init(level, file string) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	fileSink := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
	}
	writer := zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout), zapcore.AddSync(fileSink))

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	core := zapcore.NewCore(encoder, writer, lvl)
	Logger = zap.New(core, zap.AddCaller())
	zap.ReplaceGlobals(Logger)
	return Logger
}
