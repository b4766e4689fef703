package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config 结构体定义了应用程序的配置结构
type Config struct {
	Email struct {
		Server        string   `json:"server"`         // 邮件服务器地址
		Username      string   `json:"username"`       // 邮箱用户名
		Password      string   `json:"password"`       // 邮箱密码
		TargetSubject string   `json:"target_subject"` // 需要匹配的报表邮件主题
		CheckInterval Duration `json:"check_interval"` // 检查新邮件的间隔时间
	} `json:"email"`

	SendEmail struct {
		Server    string   `json:"server"`    // SMTP服务器地址
		Username  string   `json:"username"`  // 发件邮箱
		Password  string   `json:"password"`  // 发件密码/授权码
		Subject   string   `json:"subject"`   // 回发报表的邮件主题
		Receivers []string `json:"receivers"` // 收件人列表
	} `json:"send_email"`

	DingTalk struct {
		Webhook string `json:"webhook"` // 自定义机器人webhook地址
		Secret  string `json:"secret"`  // 加签密钥，留空则不加签
	} `json:"dingtalk"`

	Reports struct {
		FlightsKeyword     string `json:"flights_keyword"`     // 航班导出文件名关键词
		PredictionsKeyword string `json:"predictions_keyword"` // 素材预测文件名关键词
		BudgetsKeyword     string `json:"budgets_keyword"`     // 包预算文件名关键词
		OutputTag          string `json:"output_tag"`          // 插入输出文件名的标记
	} `json:"reports"`

	DataDir    string `json:"data_dir"`   // 报表附件保存目录
	OutputDir  string `json:"output_dir"` // 处理结果输出目录
	SheetName  string `json:"sheet_name"` // 预算工作簿的sheet名
	LogName    string `json:"log_name"`
	LogMaxSize string `json:"log_max_size"`
}

// ReportConfig 报表的列结构与待处理的键集合
type ReportConfig struct {
	MergeColumn    string   `json:"mergeColumn"`    // 两份CSV合并的键列
	ColumnNames    []string `json:"columnNames"`    // 预算表原始列名
	NewColumnNames []string `json:"newColumnNames"` // 重命名后的开始日期列名
	Packages       []string `json:"packages"`       // 待分摊预算的包，允许重复
	StartDates     []string `json:"startDates"`     // 待分摊预算的开始日期，允许重复
}

var (
	once                 sync.Once
	instance             *Config
	reportConfigInstance *ReportConfig
	mu                   sync.RWMutex
)

func LoadConfig(jsonFolder, jsonFile, reportJsonFile string) (*Config, *ReportConfig, error) {
	var err error
	once.Do(func() {
		instance, reportConfigInstance, err = loadConfigs(jsonFolder, jsonFile, reportJsonFile)
	})
	return instance, reportConfigInstance, err
}

func loadConfigs(jsonFolder, jsonFile, reportJsonFile string) (*Config, *ReportConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	reportConfigFile := filepath.Join(jsonFolder, reportJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	reportConfigData, err := readFile(reportConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取报表配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	rcfgChan := make(chan *ReportConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parseReportConfig(reportConfigData, rcfgChan, errChan)

	cfg, rcfg, err := waitForResults(cfgChan, rcfgChan, errChan)
	if err != nil {
		return nil, nil, err
	}

	return cfg, rcfg, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		errChan <- fmt.Errorf("解析Config失败: %w", err)
		return
	}
	resultChan <- &cfg
}

func parseReportConfig(data []byte, resultChan chan<- *ReportConfig, errChan chan<- error) {
	var rcfg ReportConfig
	if err := json.Unmarshal(data, &rcfg); err != nil {
		errChan <- fmt.Errorf("解析ReportConfig失败: %w", err)
		return
	}
	resultChan <- &rcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	rcfgChan <-chan *ReportConfig,
	errChan <-chan error,
) (*Config, *ReportConfig, error) {
	var (
		cfg    *Config
		rcfg   *ReportConfig
		errors []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case r := <-rcfgChan:
			rcfg = r
		case err := <-errChan:
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, nil, combineErrors(errors)
	}

	if cfg == nil || rcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, rcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// GetPackages 返回待处理包列表的副本(线程安全)
func (rc *ReportConfig) GetPackages() []string {
	mu.RLock()
	defer mu.RUnlock()
	return append([]string{}, rc.Packages...)
}

// GetStartDates 返回待处理开始日期列表的副本(线程安全)
func (rc *ReportConfig) GetStartDates() []string {
	mu.RLock()
	defer mu.RUnlock()
	return append([]string{}, rc.StartDates...)
}

// SetKeys 更新待处理的包和开始日期(线程安全)
func (rc *ReportConfig) SetKeys(packages, startDates []string) {
	mu.Lock()
	defer mu.Unlock()
	rc.Packages = append([]string{}, packages...)
	rc.StartDates = append([]string{}, startDates...)
}
