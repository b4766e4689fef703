// reader.go
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"

	"AdOpsAutomation/src/utils"
)

// ReadCSVToDataFrame 读取报表CSV为DataFrame，第一行为表头
func ReadCSVToDataFrame(filePath string) (dataframe.DataFrame, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("打开CSV文件失败: %w", err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f)
	if df.Err != nil {
		return df, fmt.Errorf("解析CSV文件 %s 失败: %w", filePath, df.Err)
	}
	return df, nil
}

// ReadXLSXToDataFrame 读取预算工作簿指定sheet为DataFrame
func ReadXLSXToDataFrame(filePath, sheetName string) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.New(), fmt.Errorf("打开xlsx文件失败: %w", err)
	}

	if len(xlFile.Sheets) == 0 {
		return dataframe.New(), fmt.Errorf("excel文件 %s 中没有工作表", filePath)
	}

	sheet, ok := xlFile.Sheet[sheetName]
	if !ok {
		return dataframe.New(), fmt.Errorf("excel文件 %s 中没有sheet %q", filePath, sheetName)
	}

	df := convertSheetToDataFrame(sheet)
	if df.Err != nil {
		return df, fmt.Errorf("sheet %q 转换为dataframe失败: %w", sheetName, df.Err)
	}
	return df, nil
}

// convertSheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame
// 报表工作簿第一行即标题行
func convertSheetToDataFrame(sheet *xlsx.Sheet) dataframe.DataFrame {
	if len(sheet.Rows) == 0 {
		return dataframe.New()
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, cell.String())
	}

	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(sheet.Rows)-1)
	}

	for _, row := range sheet.Rows[1:] {
		for i := range headers {
			// 行尾缺失的单元格补空串，保持各列等长
			if i < len(row.Cells) {
				columns[i] = append(columns[i], row.Cells[i].String())
			} else {
				columns[i] = append(columns[i], "")
			}
		}
	}

	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}

	return dataframe.New(seriesList...)
}

// WriteCSV 将DataFrame写出为CSV文件
func WriteCSV(df dataframe.DataFrame, filePath string) error {
	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("创建CSV文件失败: %w", err)
	}
	defer f.Close()

	if err := df.WriteCSV(f); err != nil {
		return fmt.Errorf("写出CSV文件 %s 失败: %w", filePath, err)
	}
	return nil
}

// GenerateNewCSV 按原始文件名生成新文件并写出DataFrame
// 新文件名在原文件名第9个字符处插入tag(文件名不足9个字符时追加到末尾)，
// 与上游导出文件"YYYYMMDD_"前缀的命名约定配合
func GenerateNewCSV(df dataframe.DataFrame, csvPath, tag, outputDir string) (string, error) {
	name := filepath.Base(csvPath)
	idx := 9
	if len(name) < idx {
		idx = len(name)
	}
	updated := name[:idx] + tag + name[idx:]

	outPath := filepath.Join(outputDir, updated)
	if err := WriteCSV(df, outPath); err != nil {
		return "", err
	}
	return outPath, nil
}

// FindLatestReport 在目录下查找文件名包含keyword且扩展名匹配的最新文件
func FindLatestReport(dir, keyword string, exts []string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("读取目录失败: %w", err)
	}

	var (
		latestPath string
		latestMod  int64
	)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if !utils.Contains(exts, strings.ToLower(filepath.Ext(info.Name()))) ||
			!strings.Contains(info.Name(), keyword) {
			continue
		}

		if latestPath == "" || info.ModTime().UnixNano() > latestMod {
			latestPath = filepath.Join(dir, info.Name())
			latestMod = info.ModTime().UnixNano()
		}
	}

	if latestPath == "" {
		return "", fmt.Errorf("目录 %s 中没有匹配 %q 的报表文件", dir, keyword)
	}
	return latestPath, nil
}
