// Package logging はlogrusロガーを設定から組み立てる
package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"corsserve/internal/config"
)

// New は設定に従ってロガーを作成する
func New(cfg config.LogConfig, w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("無効なログレベル: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(level)

	switch cfg.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	default:
		return nil, fmt.Errorf("無効なログ形式: %q", cfg.Format)
	}

	return logger, nil
}
