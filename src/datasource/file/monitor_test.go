package file

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMonitorDetectsNewReport(t *testing.T) {
	dir := t.TempDir()

	monitor, err := NewFileMonitor(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer monitor.Close()

	got := make(chan string, 1)
	go monitor.Watch(func(path string) {
		select {
		case got <- path:
		default:
		}
	})

	// 等watcher就绪
	time.Sleep(100 * time.Millisecond)

	reportPath := filepath.Join(dir, "20240601_flights.csv")
	if err := os.WriteFile(reportPath, []byte("Flight ID,Budget\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case path := <-got:
		if !strings.HasSuffix(path, "20240601_flights.csv") {
			t.Errorf("回调路径 = %q", path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("未检测到新报表文件")
	}
}
