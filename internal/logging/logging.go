// Package logging selects where the service writes its logs.
package logging

import (
	"io"
	"log"
	"os"

	"geodirectory-sync/internal/config"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Output returns stderr, or a size-rotated file when cfg.File is set.
func Output(cfg config.LoggingConfig) io.Writer {
	if cfg.File == "" {
		return os.Stderr
	}

	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
}

// New returns a logger writing to out with a "[component] " prefix.
func New(out io.Writer, component string) *log.Logger {
	return log.New(out, "["+component+"] ", log.LstdFlags)
}
