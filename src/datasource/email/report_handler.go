// report_handler.go
package email

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"AdOpsAutomation/src/storage"
	"AdOpsAutomation/src/utils"
)

// 报表附件的扩展名: 航班/素材导出为csv，包预算工作簿为xlsx
var reportAttachmentExts = []string{".csv", ".xlsx"}

// ReportAttachmentHandler 把报表邮件的附件落盘到数据目录
type ReportAttachmentHandler struct {
	TargetSubject string          // 目标邮件主题关键词
	DataDir       string          // 附件保存目录
	processedUIDs map[uint32]bool // 已处理邮件UID记录
	mu            sync.RWMutex    // 保护processedUIDs的读写锁
}

func NewReportAttachmentHandler(subject, dataDir string) *ReportAttachmentHandler {
	return &ReportAttachmentHandler{
		TargetSubject: subject,
		DataDir:       dataDir,
		processedUIDs: make(map[uint32]bool),
	}
}

// isProcessed 检查邮件是否已处理过（线程安全）
func (h *ReportAttachmentHandler) isProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

// markAsProcessed 标记邮件为已处理（线程安全）
func (h *ReportAttachmentHandler) markAsProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// Handle 处理单个报表邮件，返回保存的附件路径
func (h *ReportAttachmentHandler) Handle(email *Email, logger *storage.Logger) ([]string, error) {
	if email == nil || h.isProcessed(email.UID) {
		return nil, nil
	}

	if !strings.Contains(email.Subject, h.TargetSubject) {
		logger.Info(fmt.Sprintf("跳过主题不匹配的邮件: %s", email.Subject))
		return nil, nil
	}

	logger.Info(fmt.Sprintf("处理邮件: %s 发件人: %s 日期: %s",
		email.Subject, email.From, email.Date.Format("2006-01-02 15:04:05")))

	if err := os.MkdirAll(h.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("创建目录失败: %w", err)
	}

	var saved []string
	for _, attachment := range email.Attachments {
		if !utils.Contains(reportAttachmentExts, strings.ToLower(filepath.Ext(attachment.Filename))) {
			continue
		}

		filePath := filepath.Join(h.DataDir, filepath.Base(attachment.Filename))
		if err := os.WriteFile(filePath, attachment.Content, 0644); err != nil {
			return saved, fmt.Errorf("保存附件失败: %w", err)
		}

		logger.Info("附件已保存到: " + filePath)
		saved = append(saved, filePath)
	}

	// 只有真正落盘了报表附件才记为已处理
	if len(saved) > 0 {
		h.markAsProcessed(email.UID)
	}

	return saved, nil
}
