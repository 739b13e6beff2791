package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// newLogger writes text records to stderr and appends them to the run log
func newLogger(logPath string, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	handler := slog.NewTextHandler(io.MultiWriter(stderr, f), &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(handler), f, nil
}
