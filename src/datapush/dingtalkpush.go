// dingtalkpush.go
package datapush

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	RETRY_TIMES    = 5
	RETRY_INTERVAL = 2 * time.Second
)

// 钉钉机器人响应结构体
type DingTalkResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// ReallocationSummary 一次预算重分配的执行摘要
type ReallocationSummary struct {
	ReportDate string        // 数据日期
	Packages   int           // 待处理的包数量
	StartDates int           // 待处理的开始日期数量
	FlightRows int           // 航班表总行数
	OutputPath string        // 输出报表路径
	Elapsed    time.Duration // 处理耗时
}

// sign 自定义机器人加签: timestamp+"\n"+secret 做HmacSHA256后base64
func sign(secret string, timestamp int64) string {
	payload := fmt.Sprintf("%d\n%s", timestamp, secret)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// signedWebhook 给webhook地址追加timestamp和sign参数
func signedWebhook(webhook, secret string) string {
	if secret == "" {
		return webhook
	}
	timestamp := time.Now().UnixMilli()
	sep := "&"
	if !strings.Contains(webhook, "?") {
		sep = "?"
	}
	return fmt.Sprintf("%s%stimestamp=%d&sign=%s",
		webhook, sep, timestamp, url.QueryEscape(sign(secret, timestamp)))
}

// PushReallocationSummary 把执行摘要推送到钉钉群机器人
func PushReallocationSummary(webhook, secret string, s ReallocationSummary) error {
	if webhook == "" {
		return nil // 未配置机器人则跳过
	}

	text := fmt.Sprintf(
		"### 预算重分配完成\n\n- 数据日期: %s\n- 处理包数: %d\n- 开始日期数: %d\n- 航班行数: %d\n- 输出文件: %s\n- 耗时: %v",
		s.ReportDate, s.Packages, s.StartDates, s.FlightRows, s.OutputPath, s.Elapsed.Round(time.Millisecond))

	payload := map[string]interface{}{
		"msgtype": "markdown",
		"markdown": map[string]string{
			"title": "预算重分配完成",
			"text":  text,
		},
	}

	return retry(func() error {
		return postMessage(signedWebhook(webhook, secret), payload)
	}, RETRY_TIMES, RETRY_INTERVAL)
}

// postMessage 发送机器人消息
func postMessage(webhook string, payload map[string]interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化请求体失败: %v", err)
	}

	req, err := http.NewRequest("POST", webhook, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return fmt.Errorf("创建请求失败: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %v", err)
	}

	var result DingTalkResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("解析响应失败: %v", err)
	}

	if result.ErrCode != 0 {
		return fmt.Errorf("推送消息失败: %s", result.ErrMsg)
	}

	return nil
}

// retry 重试函数
func retry(fn func() error, times int, interval time.Duration) error {
	var err error
	for i := 0; i < times; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < times-1 {
			time.Sleep(interval)
		}
	}
	return fmt.Errorf("重试 %d 次后失败: %v", times, err)
}
