package xl

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/pmezard/go-difflib/difflib"
)

// zipParts reads a saved package back into a part name to content map.
func zipParts(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open package: %v", err)
	}
	parts := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		body, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		parts[f.Name] = string(body)
	}
	return parts
}

func unifiedDiff(t *testing.T, a, b string) string {
	t.Helper()
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: "first save",
		ToFile:   "second save",
		Context:  2,
	})
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	return diff
}

func TestEmptyWorkbookGetsDefaultSheet(t *testing.T) {
	wb := NewWorkbook()
	data, err := wb.SaveToBuffer()
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if len(wb.Sheets()) != 1 || wb.Sheets()[0].Name != "Sheet1" {
		t.Fatalf("empty workbook sheets = %v", wb.Sheets())
	}
	if !wb.Sheets()[0].active {
		t.Fatalf("default sheet is not active")
	}

	parts := zipParts(t, data)
	if !strings.Contains(parts["xl/workbook.xml"], `name="Sheet1"`) {
		t.Fatalf("workbook.xml missing default sheet:\n%s", parts["xl/workbook.xml"])
	}
	if _, ok := parts["xl/worksheets/sheet1.xml"]; !ok {
		t.Fatalf("worksheet part missing")
	}
}

func TestSheetNamingAndLookup(t *testing.T) {
	wb := NewWorkbook()
	wb.AddSheet()
	second := wb.AddSheet()
	if second.Name != "Sheet2" {
		t.Fatalf("second sheet named %q", second.Name)
	}

	if err := second.SetName("Data"); err != nil {
		t.Fatalf("SetName: %v", err)
	}
	if err := second.SetName("bad[name]"); err == nil {
		t.Fatalf("invalid rename accepted")
	}

	sheet, err := wb.SheetFromName("Data")
	if err != nil || sheet != second {
		t.Fatalf("SheetFromName: %v", err)
	}
	if _, err = wb.SheetFromName("Nope"); !errors.Is(err, ErrUnknownSheet) {
		t.Fatalf("lookup of missing sheet: %v", err)
	}
	if _, err = wb.SheetFromIndex(5); !errors.Is(err, ErrUnknownSheet) {
		t.Fatalf("lookup of out-of-range index: %v", err)
	}
}

func TestDuplicateSheetNamesRejected(t *testing.T) {
	wb := NewWorkbook()
	a := wb.AddSheet()
	b := wb.AddSheet()
	if err := a.SetName("Data"); err != nil {
		t.Fatal(err)
	}
	if err := b.SetName("Data"); err != nil {
		t.Fatal(err)
	}

	_, err := wb.SaveToBuffer()
	var dup *SheetNameReusedError
	if !errors.As(err, &dup) || dup.Name != "Data" {
		t.Fatalf("save err = %v, want SheetNameReusedError for Data", err)
	}
}

func TestDuplicateTableNamesRejected(t *testing.T) {
	wb := NewWorkbook()
	a := wb.AddSheet()
	b := wb.AddSheet()
	a.AddTable(1, 1, 5, 2, "Sales")

	// Table names collide case-insensitively, across sheets.
	b.AddTable(1, 1, 5, 2, "SALES")

	_, err := wb.SaveToBuffer()
	var dup *TableNameReusedError
	if !errors.As(err, &dup) {
		t.Fatalf("save err = %v, want TableNameReusedError", err)
	}
}

func TestChartCachesResolvedOnceAndShared(t *testing.T) {
	wb := NewWorkbook()
	data := wb.AddSheet()
	for i := 1; i <= 3; i++ {
		row := data.AddRow()
		row.AddCell().SetInt(int64(i))
		row.AddCell().SetStr("cat")
	}

	chart := NewChart(ChartColumn)
	series := chart.AddSeries()
	series.Values = NewChartRange("Sheet1", 1, 1, 3, 1)
	series.Categories = NewChartRange("Sheet1", 1, 2, 3, 2)
	// The title references the same range as the values.
	series.Title.SetRange(NewChartRange("Sheet1", 1, 1, 3, 1))
	data.AddChart(5, 1, chart)

	if _, err := wb.SaveToBuffer(); err != nil {
		t.Fatalf("save: %v", err)
	}

	if series.valueCache == nil || series.categoryCache == nil {
		t.Fatalf("caches not populated")
	}
	if series.Title.cache != series.valueCache {
		t.Fatalf("identical ranges did not share one cache")
	}
	if !series.valueCache.IsNumeric || len(series.valueCache.Values) != 3 {
		t.Fatalf("value cache = %+v", series.valueCache)
	}
	if series.categoryCache.IsNumeric {
		t.Fatalf("string category cache reported numeric")
	}

	// Three references, two distinct ranges, two resolutions.
	if wb.cacheResolutions != 2 {
		t.Fatalf("cacheResolutions = %d, want 2", wb.cacheResolutions)
	}
}

func TestChartRangeToMissingSheetYieldsEmptyCache(t *testing.T) {
	wb := NewWorkbook()
	sheet := wb.AddSheet()
	chart := NewChart(ChartLine)
	series := chart.AddSeries()
	series.Values = NewChartRange("Nope", 1, 1, 3, 1)
	sheet.AddChart(1, 1, chart)

	if _, err := wb.SaveToBuffer(); err != nil {
		t.Fatalf("save: %v", err)
	}
	if series.valueCache == nil || series.valueCache.hasData() {
		t.Fatalf("missing sheet cache = %+v, want empty", series.valueCache)
	}
}

func TestRepeatedSavesAreIdentical(t *testing.T) {
	wb := NewWorkbook()
	wb.SetProperties(NewDocProperties().
		SetAuthor("test").
		SetCreationTime(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))

	sheet := wb.AddSheet()
	row := sheet.AddRow()
	row.AddCell().SetStr("Hello")
	row.AddCell().SetFloat(1.25).SetFormat(NewFormat().SetBold().SetNumFormat("0.00"))
	sheet.AddRow().AddCell().SetFormula("=SUM(A1:B1)")
	sheet.SetAutofilter(1, 1, 2, 2)
	wb.DefineName("Rate", "=0.96")

	first, err := wb.SaveToBuffer()
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	second, err := wb.SaveToBuffer()
	if err != nil {
		t.Fatalf("second save: %v", err)
	}

	if !bytes.Equal(first, second) {
		a := zipParts(t, first)
		b := zipParts(t, second)
		for name, body := range a {
			if b[name] != body {
				t.Errorf("part %s differs between saves:\n%s", name, unifiedDiff(t, body, b[name]))
			}
		}
		t.Fatalf("repeated saves produced different packages")
	}
}

func TestFailedSaveLeavesWorkbookReusable(t *testing.T) {
	wb := NewWorkbook()
	a := wb.AddSheet()
	b := wb.AddSheet()
	if err := b.SetName("Sheet1"); err != nil {
		t.Fatal(err)
	}
	if _, err := wb.SaveToBuffer(); err == nil {
		t.Fatalf("expected duplicate name failure")
	}

	// Fixing the model makes the next save succeed; derived state from the
	// failed attempt is discarded by the reset.
	if err := b.SetName("Sheet2"); err != nil {
		t.Fatal(err)
	}
	a.AddRow().AddCell().SetStr("ok")
	if _, err := wb.SaveToBuffer(); err != nil {
		t.Fatalf("save after fixing: %v", err)
	}
}

func TestReadOnlyRecommended(t *testing.T) {
	wb := NewWorkbook()
	wb.AddSheet()
	wb.ReadOnlyRecommended()

	data, err := wb.SaveToBuffer()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	parts := zipParts(t, data)
	if !strings.Contains(parts["xl/workbook.xml"], `readOnlyRecommended="1"`) {
		t.Fatalf("workbook.xml missing fileSharing element")
	}
	if !strings.Contains(parts["docProps/app.xml"], "<DocSecurity>2</DocSecurity>") {
		t.Fatalf("app.xml missing DocSecurity")
	}
}

func TestActiveAndHiddenSheets(t *testing.T) {
	wb := NewWorkbook()
	wb.AddSheet()
	second := wb.AddSheet()
	third := wb.AddSheet()
	second.SetHidden()
	third.SetActive()

	data, err := wb.SaveToBuffer()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	parts := zipParts(t, data)
	workbook := parts["xl/workbook.xml"]
	if !strings.Contains(workbook, `activeTab="2"`) {
		t.Errorf("workbook.xml missing activeTab:\n%s", workbook)
	}
	if !strings.Contains(workbook, `state="hidden"`) {
		t.Errorf("workbook.xml missing hidden sheet state")
	}
	if !strings.Contains(parts["xl/worksheets/sheet3.xml"], `tabSelected="1"`) {
		t.Errorf("active sheet view not selected")
	}
}
