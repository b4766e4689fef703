package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron"

	"AdOpsAutomation/src/config"
	"AdOpsAutomation/src/datapush"
	"AdOpsAutomation/src/datasource/email"
	"AdOpsAutomation/src/datasource/file"
	"AdOpsAutomation/src/processor"
	"AdOpsAutomation/src/storage"
	"AdOpsAutomation/src/utils"
)

func main() {
	jsonFolder := "./config"
	jsonFile := "config.json"
	reportJsonFile := "reportconfig.json"
	cfg, rcfg, err := config.LoadConfig(jsonFolder, jsonFile, reportJsonFile)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Close()

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		log.Fatal("Failed to create output dir:", err)
	}

	// 报表邮箱客户端与附件处理器
	emailClient := email.NewEmailClient(
		cfg.Email.Server,
		cfg.Email.Username,
		cfg.Email.Password)
	handler := email.NewReportAttachmentHandler(cfg.Email.TargetSubject, cfg.DataDir)

	// 设置定时任务
	c := cron.New()
	interval := time.Duration(cfg.Email.CheckInterval).String()
	cronSpec := fmt.Sprintf("@every %s", interval)

	err = c.AddFunc(cronSpec, func() {
		logger.Info(fmt.Sprintf("开始定时检查报表邮箱(间隔: %v)...", cronSpec))

		newEmail, err := email.CheckAndProcessEmails(emailClient, cfg.Email.TargetSubject, logger)
		if err != nil {
			logger.Error("检查报表邮件失败: " + err.Error())
			return
		}
		if newEmail == nil {
			return
		}

		// 附件落盘后触发处理流水线
		saved, err := handler.Handle(newEmail, logger)
		if err != nil {
			logger.Error(fmt.Sprintf("保存报表附件失败(UID:%d): %v", newEmail.UID, err))
			return
		}
		if len(saved) == 0 {
			return
		}

		if err := runPipeline(cfg, rcfg, logger); err != nil {
			logger.Error("报表处理失败: " + err.Error())
		}

		if err := logger.CheckRotate(cfg.LogMaxSize); err != nil {
			logger.Error("日志轮转失败: " + err.Error())
		}
	})
	if err != nil {
		logger.Error("创建定时任务失败: " + err.Error())
		return
	}

	// 数据目录直投路径: 航班导出直接拷进目录时也触发处理
	monitor, err := file.NewFileMonitor(cfg.DataDir)
	if err != nil {
		logger.Error("创建目录监控失败: " + err.Error())
	} else {
		defer monitor.Close()
		go func() {
			err := monitor.Watch(func(path string) {
				if !strings.Contains(filepath.Base(path), cfg.Reports.FlightsKeyword) {
					return
				}
				logger.Info("检测到新报表文件: " + path)
				if err := runPipeline(cfg, rcfg, logger); err != nil {
					logger.Error("报表处理失败: " + err.Error())
				}
			})
			if err != nil {
				logger.Error("目录监控异常: " + err.Error())
			}
		}()
	}

	c.Start()
	defer c.Stop()

	logger.Info(fmt.Sprintf("报表监控服务已启动(检查间隔: %v)，按Ctrl+C退出", interval))
	select {}
}

// runPipeline 完整的报表处理流水线:
// 定位三份最新报表 -> 合并素材名 -> 预处理预算表 -> 重分配预算 -> 写出并推送
func runPipeline(cfg *config.Config, rcfg *config.ReportConfig, logger *storage.Logger) error {
	t1 := time.Now()

	flightsPath, err := file.FindLatestReport(cfg.DataDir, cfg.Reports.FlightsKeyword, []string{".csv"})
	if err != nil {
		return err
	}
	predictionsPath, err := file.FindLatestReport(cfg.DataDir, cfg.Reports.PredictionsKeyword, []string{".csv"})
	if err != nil {
		return err
	}
	budgetsPath, err := file.FindLatestReport(cfg.DataDir, cfg.Reports.BudgetsKeyword, []string{".xlsx"})
	if err != nil {
		return err
	}

	flights, err := file.ReadCSVToDataFrame(flightsPath)
	if err != nil {
		return err
	}
	predictions, err := file.ReadCSVToDataFrame(predictionsPath)
	if err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("航班表 %d 行 %d 列，素材表 %d 行 %d 列",
		flights.Nrow(), flights.Ncol(), predictions.Nrow(), predictions.Ncol()))

	merged, err := processor.MapCreativeNameToFlights(flights, predictions, rcfg.MergeColumn)
	if err != nil {
		return err
	}

	budgets, err := file.ReadXLSXToDataFrame(budgetsPath, cfg.SheetName)
	if err != nil {
		return err
	}
	budgets, err = processor.ProcessPackageBudgets(budgets, rcfg.ColumnNames, rcfg.NewColumnNames)
	if err != nil {
		return err
	}

	packages := rcfg.GetPackages()
	startDates := rcfg.GetStartDates()
	updated, err := processor.ReallocateBudgets(merged, budgets, packages, startDates)
	if err != nil {
		return err
	}

	outPath, err := file.GenerateNewCSV(updated, flightsPath, cfg.Reports.OutputTag, cfg.OutputDir)
	if err != nil {
		return err
	}

	// 同步保存一份xlsx副本，便于直接转发
	xlsxPath := strings.TrimSuffix(outPath, ".csv") + ".xlsx"
	if err := utils.SaveToExcel(updated, xlsxPath); err != nil {
		logger.Warning("保存xlsx副本失败: " + err.Error())
	}

	if err := email.SendReport(cfg, outPath); err != nil {
		logger.Warning("回发报表失败: " + err.Error())
	}

	summary := datapush.ReallocationSummary{
		ReportDate: time.Now().Format("2006-01-02"),
		Packages:   len(packages),
		StartDates: len(startDates),
		FlightRows: updated.Nrow(),
		OutputPath: outPath,
		Elapsed:    time.Since(t1),
	}
	if err := datapush.PushReallocationSummary(cfg.DingTalk.Webhook, cfg.DingTalk.Secret, summary); err != nil {
		logger.Warning("推送钉钉摘要失败: " + err.Error())
	}

	logger.Info(fmt.Sprintf("报表处理完成: %s (耗时 %v)", outPath, time.Since(t1)))
	return nil
}
