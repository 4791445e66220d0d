package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

const (
	maxLogBytes  = 6 * 1024 * 1024
	keepLogBytes = 5 * 1024 * 1024
)

// boundedLog is an append-only log file that drops its oldest bytes once it
// grows past maxBytes, keeping the newest keepBytes.
type boundedLog struct {
	mu        sync.Mutex
	file      *os.File
	maxBytes  int64
	keepBytes int64
}

func openBoundedLog(path string, maxBytes, keepBytes int64) (*boundedLog, error) {
	if keepBytes > maxBytes {
		return nil, fmt.Errorf("log keep size %d exceeds max %d", keepBytes, maxBytes)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	l := &boundedLog{file: file, maxBytes: maxBytes, keepBytes: keepBytes}
	if err := l.trim(); err != nil {
		_ = file.Close()
		return nil, err
	}
	return l, nil
}

func (l *boundedLog) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, err := l.file.Write(p)
	if err != nil {
		return n, err
	}
	return n, l.trim()
}

func (l *boundedLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

func (l *boundedLog) trim() error {
	info, err := l.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= l.maxBytes {
		return nil
	}

	tail := make([]byte, l.keepBytes)
	n, err := l.file.ReadAt(tail, size-l.keepBytes)
	if err != nil && err != io.EOF {
		return err
	}

	if err := l.file.Truncate(0); err != nil {
		return err
	}
	// O_APPEND writes go to the end regardless of offset.
	_, err = l.file.Write(tail[:n])
	return err
}
