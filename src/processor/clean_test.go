package processor

import (
	"math"
	"reflect"
	"testing"

	"github.com/go-gota/gota/dataframe"

	"AdOpsAutomation/src/utils"
)

func TestUpdateColumnNames(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{"Package", "Q3 Budget 6/1"},
		{"P1", "100"},
	})

	renamed, err := UpdateColumnNames(df,
		[]string{"Package", "Q3 Budget 6/1", "不存在的列"},
		[]string{ColPackageName, "D1", "X"})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{ColPackageName, "D1"}
	if !reflect.DeepEqual(renamed.Names(), want) {
		t.Errorf("列名 = %v, 期望 %v", renamed.Names(), want)
	}
}

func TestUpdateColumnNamesLengthMismatch(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{"A"},
		{"1"},
	})

	if _, err := UpdateColumnNames(df, []string{"A", "B"}, []string{"X"}); err == nil {
		t.Error("期望映射长度不一致时报错")
	}
}

func TestCleanBudgetColumns(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{ColPackageName, "D1"},
		{"P1", "$1,000"},
		{"P2", " 500 "},
		{"P3", "$2,345.50"},
		{"P4", "-"},
	}, dataframe.DetectTypes(false))

	cleaned, err := CleanBudgetColumns(df, []string{"D1"})
	if err != nil {
		t.Fatal(err)
	}

	got := cleaned.Col("D1").Float()
	want := []float64{1000, 500, 2345.50, math.NaN()}
	for i := range want {
		if math.IsNaN(want[i]) {
			if !math.IsNaN(got[i]) {
				t.Errorf("第%d行 = %v, 期望 NaN", i, got[i])
			}
			continue
		}
		if !almostEqual(got[i], want[i]) {
			t.Errorf("第%d行 = %v, 期望 %v", i, got[i], want[i])
		}
	}
}

func TestCleanBudgetColumnsMissingColumn(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{ColPackageName},
		{"P1"},
	})

	if _, err := CleanBudgetColumns(df, []string{"D1"}); err == nil {
		t.Error("期望缺少列时报错")
	}
}

func TestCreateBudgetHeaderColumns(t *testing.T) {
	df := dataframe.LoadRecords([][]string{
		{ColPackageName, "D1"},
		{"P1", "100"},
		{"P2", "30"},
	})

	expanded, err := CreateBudgetHeaderColumns(df, []string{"D1"})
	if err != nil {
		t.Fatal(err)
	}

	for _, col := range []string{"Header_D1", "Values_D1"} {
		if !utils.HasColumn(expanded, col) {
			t.Fatalf("缺少生成列 %q", col)
		}
	}

	headers := expanded.Col("Header_D1").Records()
	for i, h := range headers {
		if h != "D1" {
			t.Errorf("Header_D1 第%d行 = %q, 期望 %q", i, h, "D1")
		}
	}

	values := expanded.Col("Values_D1").Float()
	want := []float64{100, 30}
	for i := range want {
		if !almostEqual(values[i], want[i]) {
			t.Errorf("Values_D1 第%d行 = %v, 期望 %v", i, values[i], want[i])
		}
	}
}

// 预算表流水线 + 汇总的端到端检查
func TestProcessPackageBudgets(t *testing.T) {
	raw := dataframe.LoadRecords([][]string{
		{ColPackageName, "Q3 Budget 6/1"},
		{"P1", "$1,000"},
		{"P1", "500"},
		{"P2", "$30"},
	}, dataframe.DetectTypes(false))

	budgets, err := ProcessPackageBudgets(raw,
		[]string{"Q3 Budget 6/1"},
		[]string{"D1"})
	if err != nil {
		t.Fatal(err)
	}

	total, err := AggregateBudget(budgets, "P1", "D1")
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(total, 1500) {
		t.Errorf("AggregateBudget(P1, D1) = %v, 期望 1500", total)
	}
}
