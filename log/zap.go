package log

import (
	"errors"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	STDOUT     bool   // stdout
	File       string // log output file path, empty means no log file
	Level      int8   // debug -1 | info 0 (default) | warn 1 | error 2
	MaxAge     int    // days to keep rotated files, 0 keeps them forever
	MaxSize    int    // megabytes per file
	MaxBackups int
	Compress   bool
	JsonFormat bool
}

// Logger and Sugar discard everything until Init is called.
var Logger, Sugar = nopLogger()

func nopLogger() (*zap.Logger, *zap.SugaredLogger) {
	l := zap.NewNop()
	return l, l.Sugar()
}

func Init(config Config) error {

	var wss []zapcore.WriteSyncer
	if len(config.File) > 0 {
		hook := lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    config.MaxSize, // megabytes
			MaxAge:     config.MaxAge,
			MaxBackups: config.MaxBackups,
			LocalTime:  false,
			Compress:   config.Compress,
		}
		wss = append(wss, zapcore.AddSync(&hook))
	}

	if config.STDOUT {
		wss = append(wss, zapcore.AddSync(os.Stdout))
	}

	if len(wss) == 0 {
		return errors.New("write syncer needed")
	}

	core := zapcore.NewCore(newEncoder(config.JsonFormat), zapcore.NewMultiWriteSyncer(wss...), level(config.Level))
	Logger = zap.New(core, zap.AddCaller())
	Sugar = Logger.Sugar()

	return nil
}

// Sync flushes buffered entries, ignoring the error stdout returns on some platforms.
func Sync() {
	_ = Logger.Sync()
}

func newEncoder(json bool) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		TimeKey:        "T",
		LevelKey:       "L",
		NameKey:        "N",
		CallerKey:      "C",
		MessageKey:     "M",
		StacktraceKey:  "S",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}

	if json {
		return zapcore.NewJSONEncoder(cfg)
	}
	return zapcore.NewConsoleEncoder(cfg)
}

func level(l int8) zapcore.Level {
	switch zapcore.Level(l) {
	case zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel:
		return zapcore.Level(l)
	default:
		return zapcore.InfoLevel
	}
}
