package logger

import (
	"context"
	"io"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var log = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Config параметры глобального логгера сервиса
type Config struct {
	Service      string // Имя сервиса, добавляется в каждую запись
	Level        string // debug, info, warn, error
	LogstashAddr string // Адрес Logstash TCP input (опционально)
	Pretty       bool   // Человекочитаемый вывод для локальной разработки
}

// Init настраивает глобальный логгер
// Если Logstash недоступен, пишет только в stdout и возвращает ошибку подключения
func Init(cfg Config) error {
	var out io.Writer = os.Stdout
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	if cfg.LogstashAddr == "" {
		InitWithWriter(cfg.Service, cfg.Level, out)
		return nil
	}

	conn, err := net.DialTimeout("tcp", cfg.LogstashAddr, 5*time.Second)
	if err != nil {
		InitWithWriter(cfg.Service, cfg.Level, out)
		return err
	}

	InitWithWriter(cfg.Service, cfg.Level, zerolog.MultiLevelWriter(out, conn))
	return nil
}

// InitWithWriter используется в тестах для перехвата вывода
func InitWithWriter(serviceName string, level string, w io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	log = zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}

type ctxKey struct{}

// WithRequestID кладет request id в контекст запроса
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// RequestID достает request id из контекста, пустая строка если его нет
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		return id
	}
	return ""
}

// Ctx возвращает логгер с request_id из контекста
func Ctx(ctx context.Context) *zerolog.Logger {
	l := log
	if id := RequestID(ctx); id != "" {
		l = log.With().Str("request_id", id).Logger()
	}
	return &l
}
