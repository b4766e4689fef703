// clean.go
package processor

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"AdOpsAutomation/src/utils"
)

// 预算字段里的货币符号、千分位、空白和占位横线
var budgetNoise = regexp.MustCompile(`[\s$,-]`)

// UpdateColumnNames 按位置对应关系批量重命名列
// 旧列名在表中不存在时跳过，与上游导出列不稳定的情况兼容
func UpdateColumnNames(df dataframe.DataFrame, columnNames, newColumnNames []string) (dataframe.DataFrame, error) {
	if len(columnNames) != len(newColumnNames) {
		return df, fmt.Errorf("列名映射长度不一致: %d != %d", len(columnNames), len(newColumnNames))
	}

	for i, old := range columnNames {
		if !utils.HasColumn(df, old) {
			continue
		}
		df = df.Rename(newColumnNames[i], old)
		if df.Err != nil {
			return df, fmt.Errorf("重命名列 %q -> %q 失败: %w", old, newColumnNames[i], df.Err)
		}
	}
	return df, nil
}

// CleanBudgetColumns 清洗预算列并转为数值
// 去掉空白、美元符、逗号和横线后解析为浮点数，解析失败的单元置为NaN
func CleanBudgetColumns(df dataframe.DataFrame, columnsToProcess []string) (dataframe.DataFrame, error) {
	for _, col := range columnsToProcess {
		if !utils.HasColumn(df, col) {
			return df, &MissingColumnError{Column: col}
		}

		records := df.Col(col).Records()
		cleaned := make([]float64, len(records))
		for i, r := range records {
			v, err := strconv.ParseFloat(budgetNoise.ReplaceAllString(r, ""), 64)
			if err != nil {
				cleaned[i] = math.NaN()
				continue
			}
			cleaned[i] = v
		}

		df = df.Mutate(series.New(cleaned, series.Float, col))
		if df.Err != nil {
			return df, fmt.Errorf("清洗列 %q 失败: %w", col, df.Err)
		}
	}
	return df, nil
}

// CreateBudgetHeaderColumns 为每个预算列生成稀疏宽表需要的两列:
// Header_<col> 固定存列名本身，Values_<col> 复制数值
func CreateBudgetHeaderColumns(df dataframe.DataFrame, columnsToProcess []string) (dataframe.DataFrame, error) {
	for _, col := range columnsToProcess {
		if !utils.HasColumn(df, col) {
			return df, &MissingColumnError{Column: col}
		}

		headers := make([]string, df.Nrow())
		for i := range headers {
			headers[i] = col
		}

		df = df.Mutate(series.New(headers, series.String, HeaderPrefix+col))
		if df.Err != nil {
			return df, fmt.Errorf("生成列 %q 失败: %w", HeaderPrefix+col, df.Err)
		}

		df = df.Mutate(series.New(df.Col(col).Float(), series.Float, ValuesPrefix+col))
		if df.Err != nil {
			return df, fmt.Errorf("生成列 %q 失败: %w", ValuesPrefix+col, df.Err)
		}
	}
	return df, nil
}

// ProcessPackageBudgets 预算表预处理流水线: 重命名 -> 清洗 -> 生成Header/Values列
// newColumnNames 即需要清洗和展开的开始日期列
func ProcessPackageBudgets(df dataframe.DataFrame, columnNames, newColumnNames []string) (dataframe.DataFrame, error) {
	df, err := UpdateColumnNames(df, columnNames, newColumnNames)
	if err != nil {
		return df, err
	}

	df, err = CleanBudgetColumns(df, newColumnNames)
	if err != nil {
		return df, err
	}

	return CreateBudgetHeaderColumns(df, newColumnNames)
}
