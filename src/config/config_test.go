package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

const testConfigJSON = `{
  "email": {
    "server": "imap.example.com:993",
    "username": "ops@example.com",
    "password": "secret",
    "target_subject": "投放日报",
    "check_interval": "5m"
  },
  "send_email": {
    "server": "smtp.example.com:465",
    "username": "ops@example.com",
    "password": "secret",
    "subject": "预算重分配报表",
    "receivers": ["team@example.com"]
  },
  "reports": {
    "flights_keyword": "flights",
    "predictions_keyword": "predictions",
    "budgets_keyword": "budgets",
    "output_tag": "_updated"
  },
  "data_dir": "./data",
  "output_dir": "./output",
  "sheet_name": "Package Budgets",
  "log_name": "app.log",
  "log_max_size": "10 * 1024 * 1024"
}`

const testReportConfigJSON = `{
  "mergeColumn": "Flight ID",
  "columnNames": ["Q3 Budget 6/1"],
  "newColumnNames": ["2024-06-01"],
  "packages": ["Summer Launch", "Summer Launch"],
  "startDates": ["2024-06-01"]
}`

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(testConfigJSON), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "reportconfig.json"), []byte(testReportConfigJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, rcfg, err := LoadConfig(dir, "config.json", "reportconfig.json")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Email.Server != "imap.example.com:993" {
		t.Errorf("Email.Server = %q", cfg.Email.Server)
	}
	if got := time.Duration(cfg.Email.CheckInterval); got != 5*time.Minute {
		t.Errorf("CheckInterval = %v, 期望 5m", got)
	}
	if cfg.Reports.FlightsKeyword != "flights" {
		t.Errorf("FlightsKeyword = %q", cfg.Reports.FlightsKeyword)
	}

	if rcfg.MergeColumn != "Flight ID" {
		t.Errorf("MergeColumn = %q", rcfg.MergeColumn)
	}
	// 配置允许重复项，由重分配流程自行去重
	if got := rcfg.GetPackages(); !reflect.DeepEqual(got, []string{"Summer Launch", "Summer Launch"}) {
		t.Errorf("Packages = %v", got)
	}
}

func TestReportConfigSetKeys(t *testing.T) {
	rcfg := &ReportConfig{}
	rcfg.SetKeys([]string{"P1"}, []string{"D1", "D2"})

	if got := rcfg.GetPackages(); !reflect.DeepEqual(got, []string{"P1"}) {
		t.Errorf("Packages = %v", got)
	}
	if got := rcfg.GetStartDates(); !reflect.DeepEqual(got, []string{"D1", "D2"}) {
		t.Errorf("StartDates = %v", got)
	}

	// 返回的是副本，改动不影响内部状态
	dates := rcfg.GetStartDates()
	dates[0] = "改动"
	if got := rcfg.GetStartDates(); got[0] != "D1" {
		t.Error("GetStartDates 返回了内部切片")
	}
}

func TestDurationUnmarshalInvalid(t *testing.T) {
	var d Duration
	if err := d.UnmarshalJSON([]byte(`"不是时长"`)); err == nil {
		t.Error("期望解析失败")
	}
}
