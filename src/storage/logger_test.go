package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoggerWritesEntries(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")

	logger, err := NewLogger(logPath)
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	logger.Info("报表处理完成")
	logger.Error("处理失败")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)

	if !strings.Contains(content, "INFO: 报表处理完成") {
		t.Errorf("缺少INFO日志: %q", content)
	}
	if !strings.Contains(content, "ERROR: 处理失败") {
		t.Errorf("缺少ERROR日志: %q", content)
	}
}

func TestLoggerSubscribe(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(filepath.Join(dir, "app.log"))
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	ch := logger.Subscribe()
	logger.Warning("磁盘空间不足")

	select {
	case entry := <-ch:
		if !strings.Contains(entry, "WARNING: 磁盘空间不足") {
			t.Errorf("订阅收到的日志不对: %q", entry)
		}
	case <-time.After(time.Second):
		t.Fatal("订阅通道未收到日志")
	}
}

func TestLoggerRotate(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")

	logger, err := NewLogger(logPath)
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	for i := 0; i < 50; i++ {
		logger.Info("填充日志内容以触发轮转")
	}

	// 阈值1字节，必然轮转
	if err := logger.CheckRotate("1"); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	rotated := false
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "app.log.") {
			rotated = true
		}
	}
	if !rotated {
		t.Error("未找到轮转后的日志文件")
	}

	// 轮转后继续写入新文件
	logger.Info("轮转后的日志")
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "轮转后的日志") {
		t.Error("轮转后未写入新文件")
	}
}

func TestLogLevelString(t *testing.T) {
	tests := map[LogLevel]string{
		DEBUG:        "DEBUG",
		INFO:         "INFO",
		WARNING:      "WARNING",
		ERROR:        "ERROR",
		FATAL:        "FATAL",
		LogLevel(99): "UNKNOWN",
	}
	for level, want := range tests {
		if got := level.String(); got != want {
			t.Errorf("%d.String() = %q, 期望 %q", level, got, want)
		}
	}
}
