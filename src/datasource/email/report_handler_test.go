package email

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"AdOpsAutomation/src/storage"
)

func newTestLogger(t *testing.T) *storage.Logger {
	t.Helper()
	logger, err := storage.NewLogger(filepath.Join(t.TempDir(), "test.log"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger
}

func newReportEmail(uid uint32, subject string) *Email {
	return &Email{
		UID:     uid,
		Date:    time.Now(),
		From:    "platform@example.com",
		Subject: subject,
		Attachments: []*Attachment{
			{Filename: "20240601_flights.csv", Content: []byte("Flight ID,Budget\nF1,0\n")},
			{Filename: "20240601_budgets.xlsx", Content: []byte{0x50, 0x4b}},
			{Filename: "logo.png", Content: []byte{0x89}},
		},
	}
}

func TestHandleSavesReportAttachments(t *testing.T) {
	dataDir := t.TempDir()
	h := NewReportAttachmentHandler("投放日报", dataDir)

	saved, err := h.Handle(newReportEmail(1, "6月投放日报"), newTestLogger(t))
	if err != nil {
		t.Fatal(err)
	}

	// png附件被跳过，只落盘csv和xlsx
	if len(saved) != 2 {
		t.Fatalf("保存了 %d 个附件, 期望 2: %v", len(saved), saved)
	}
	for _, p := range saved {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("附件未落盘: %v", err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dataDir, "20240601_flights.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Flight ID,Budget\nF1,0\n" {
		t.Errorf("附件内容不一致: %q", data)
	}
}

func TestHandleSkipsMismatchedSubject(t *testing.T) {
	h := NewReportAttachmentHandler("投放日报", t.TempDir())

	saved, err := h.Handle(newReportEmail(2, "会议通知"), newTestLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	if saved != nil {
		t.Errorf("主题不匹配仍保存了附件: %v", saved)
	}
}

func TestHandleDeduplicatesByUID(t *testing.T) {
	h := NewReportAttachmentHandler("投放日报", t.TempDir())
	logger := newTestLogger(t)

	first, err := h.Handle(newReportEmail(3, "6月投放日报"), logger)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) == 0 {
		t.Fatal("首次处理未保存附件")
	}

	second, err := h.Handle(newReportEmail(3, "6月投放日报"), logger)
	if err != nil {
		t.Fatal(err)
	}
	if second != nil {
		t.Errorf("同一UID重复处理: %v", second)
	}
}

func TestHandleNilEmail(t *testing.T) {
	h := NewReportAttachmentHandler("投放日报", t.TempDir())
	if saved, err := h.Handle(nil, newTestLogger(t)); err != nil || saved != nil {
		t.Errorf("nil邮件应直接跳过, got %v, %v", saved, err)
	}
}

func TestFilterLatestTargetEmail(t *testing.T) {
	now := time.Now()
	emails := []*Email{
		{UID: 1, Subject: "6月投放日报", Date: now.Add(-2 * time.Hour)},
		{UID: 2, Subject: "6月投放日报(更新)", Date: now},
		{UID: 3, Subject: "其他邮件", Date: now.Add(time.Hour)},
	}

	got := filterLatestTargetEmail(emails, "投放日报")
	if got == nil || got.UID != 2 {
		t.Errorf("filterLatestTargetEmail = %+v, 期望 UID 2", got)
	}

	if got := filterLatestTargetEmail(emails, "不存在"); got != nil {
		t.Errorf("期望 nil, 得到 %+v", got)
	}
}
