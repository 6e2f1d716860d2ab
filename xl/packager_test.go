package xl

import (
	"bytes"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func fileExists(t *testing.T, dir, rel string) bool {
	t.Helper()
	_, err := os.Stat(filepath.Join(dir, rel))
	return err == nil
}

var pngStub = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

func TestPackagePartCoverage(t *testing.T) {
	wb := NewWorkbook()
	wb.SetProperties(NewDocProperties().
		SetTitle("Report").
		SetCustomProperty("Checked by", "QA"))

	sheet := wb.AddSheet()
	row := sheet.AddRow()
	row.AddCell().SetStr("Region")
	row.AddCell().SetInt(42)
	sheet.AddRow().AddCell().SetDynamicFormula("=SORT(B1:B1)", "A2:A2")
	sheet.AddRow().AddCell().SetURL("https://example.com")

	sheet.InsertImage(5, 1, &Image{Extension: ".png", Blob: pngStub})
	sheet.SetHeaderImage(&Image{Extension: ".png", Blob: pngStub})
	sheet.AddTable(1, 1, 3, 2, "Summary")

	chart := NewChart(ChartColumn)
	chart.AddSeries().Values = NewChartRange("Sheet1", 1, 2, 1, 2)
	sheet.AddChart(8, 1, chart)

	data, err := wb.SaveToBuffer()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	parts := zipParts(t, data)

	want := []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"docProps/core.xml",
		"docProps/app.xml",
		"docProps/custom.xml",
		"xl/workbook.xml",
		"xl/_rels/workbook.xml.rels",
		"xl/worksheets/sheet1.xml",
		"xl/worksheets/_rels/sheet1.xml.rels",
		"xl/styles.xml",
		"xl/theme/theme1.xml",
		"xl/sharedStrings.xml",
		"xl/metadata.xml",
		"xl/drawings/drawing1.xml",
		"xl/drawings/_rels/drawing1.xml.rels",
		"xl/drawings/vmlDrawing1.vml",
		"xl/drawings/_rels/vmlDrawing1.vml.rels",
		"xl/charts/chart1.xml",
		"xl/tables/table1.xml",
		"xl/media/image1.png",
	}
	for _, name := range want {
		if _, ok := parts[name]; !ok {
			t.Errorf("missing part %s", name)
		}
	}

	ctypes := parts["[Content_Types].xml"]
	for _, frag := range []string{
		`Extension="rels"`,
		`Extension="png" ContentType="image/png"`,
		`Extension="vml"`,
		`PartName="/xl/workbook.xml"`,
		`PartName="/xl/metadata.xml"`,
		`PartName="/xl/charts/chart1.xml"`,
		`PartName="/xl/tables/table1.xml"`,
		`PartName="/docProps/custom.xml"`,
	} {
		if !strings.Contains(ctypes, frag) {
			t.Errorf("[Content_Types].xml missing %s", frag)
		}
	}

	// Identical image blobs collapse to one media part.
	if _, ok := parts["xl/media/image2.png"]; ok {
		t.Errorf("duplicate image blob was not deduplicated")
	}

	// Every entry is covered by an extension Default or a part Override.
	for name := range parts {
		if name == "[Content_Types].xml" {
			continue
		}
		ext := strings.TrimPrefix(path.Ext(name), ".")
		if strings.Contains(ctypes, `PartName="/`+name+`"`) {
			continue
		}
		if strings.Contains(ctypes, `Extension="`+ext+`"`) {
			continue
		}
		t.Errorf("part %s has no content-type declaration", name)
	}
}

func TestWorksheetCellEmission(t *testing.T) {
	wb := NewWorkbook()
	sheet := wb.AddSheet()
	row := sheet.AddRow()
	row.AddCell().SetStr("name")
	row.AddCell().SetFloat(2.5)
	row.AddCell().SetBool(true)
	row.AddCell().SetFormula("=A1&\"!\"")
	sheet.SetColumnWidth(2, 12.5)

	data, err := wb.SaveToBuffer()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	parts := zipParts(t, data)
	ws := parts["xl/worksheets/sheet1.xml"]

	for _, frag := range []string{
		`<c r="A1" t="s">`,
		`<c r="B1">`,
		`<v>2.5</v>`,
		`<c r="C1" t="b">`,
		`<f>A1&amp;"!"</f>`,
		`<col min="2" max="2" width="12.5" customWidth="1"`,
	} {
		if !strings.Contains(ws, frag) {
			t.Errorf("sheet1.xml missing %s\n%s", frag, ws)
		}
	}
}

func TestSharedStringsDeduplicated(t *testing.T) {
	wb := NewWorkbook()
	sheet := wb.AddSheet()
	for i := 0; i < 3; i++ {
		sheet.AddRow().AddCell().SetStr("repeat")
	}
	sheet.AddRow().AddCell().SetStr("other")

	data, err := wb.SaveToBuffer()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	parts := zipParts(t, data)
	sst := parts["xl/sharedStrings.xml"]

	if !strings.Contains(sst, `uniqueCount="2"`) {
		t.Errorf("sharedStrings uniqueCount wrong:\n%s", sst)
	}
	if got := strings.Count(sst, "<si>"); got != 2 {
		t.Errorf("shared string entries = %d, want 2", got)
	}

	// All three repeats reference index 0.
	ws := parts["xl/worksheets/sheet1.xml"]
	if got := strings.Count(ws, "<v>0</v>"); got != 3 {
		t.Errorf("references to shared string 0 = %d, want 3", got)
	}
}

func TestHyperlinkEmission(t *testing.T) {
	wb := NewWorkbook()
	sheet := wb.AddSheet()
	sheet.AddRow().AddCell().SetURLWithText("https://example.com/x", "link")

	data, err := wb.SaveToBuffer()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	parts := zipParts(t, data)

	rels := parts["xl/worksheets/_rels/sheet1.xml.rels"]
	if !strings.Contains(rels, `Target="https://example.com/x"`) ||
		!strings.Contains(rels, `TargetMode="External"`) {
		t.Errorf("hyperlink relationship wrong:\n%s", rels)
	}

	ws := parts["xl/worksheets/sheet1.xml"]
	if !strings.Contains(ws, `<hyperlink ref="A1" r:id="rId1"`) {
		t.Errorf("worksheet missing hyperlink element:\n%s", ws)
	}

	// The hyperlink cell style occupies global index 1 with the standard
	// Hyperlink cell style behind it.
	styles := parts["xl/styles.xml"]
	if !strings.Contains(styles, `name="Hyperlink"`) || !strings.Contains(styles, `builtinId="8"`) {
		t.Errorf("styles.xml missing Hyperlink cell style:\n%s", styles)
	}
	if !strings.Contains(ws, `s="1"`) {
		t.Errorf("hyperlink cell not bound to style 1:\n%s", ws)
	}
}

func TestStylesEmission(t *testing.T) {
	wb := NewWorkbook()
	sheet := wb.AddSheet()
	row := sheet.AddRow()
	row.AddCell().SetStr("x").SetFormat(NewFormat().
		SetBold().
		SetBackgroundColor(ColorYellow).
		SetBorder(BorderThin).
		SetNumFormat("0.00").
		SetAlign(AlignCenter).
		SetTextWrap())
	row.AddCell().SetStr("=literal").SetFormat(NewFormat().SetQuotePrefix())

	data, err := wb.SaveToBuffer()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	styles := zipParts(t, data)["xl/styles.xml"]

	for _, frag := range []string{
		`<numFmt numFmtId="164" formatCode="0.00"`,
		`<patternFill patternType="gray125"`,
		`<fgColor rgb="FFFFFF00"`,
		`<bgColor indexed="64"`,
		`style="thin"`,
		`quotePrefix="1"`,
		`horizontal="center"`,
		`wrapText="1"`,
		`applyNumberFormat="1"`,
	} {
		if !strings.Contains(styles, frag) {
			t.Errorf("styles.xml missing %s\n%s", frag, styles)
		}
	}
}

func TestChartPartEmission(t *testing.T) {
	wb := NewWorkbook()
	sheet := wb.AddSheet()
	for i := 1; i <= 3; i++ {
		row := sheet.AddRow()
		row.AddCell().SetStr("c")
		row.AddCell().SetInt(int64(i))
	}

	chart := NewChart(ChartColumn)
	series := chart.AddSeries()
	series.Categories = NewChartRange("Sheet1", 1, 1, 3, 1)
	series.Values = NewChartRange("Sheet1", 1, 2, 3, 2)
	sheet.AddChart(5, 1, chart)

	data, err := wb.SaveToBuffer()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	body := zipParts(t, data)["xl/charts/chart1.xml"]

	for _, frag := range []string{
		`<c:barChart>`,
		`<c:f>Sheet1!$A$1:$A$3</c:f>`,
		`<c:f>Sheet1!$B$1:$B$3</c:f>`,
		`<c:numCache>`,
		`<c:strCache>`,
		`<c:ptCount val="3"`,
		`<c:v>2</c:v>`,
	} {
		if !strings.Contains(body, frag) {
			t.Errorf("chart1.xml missing %s\n%s", frag, body)
		}
	}
}

func TestExcelizeRoundTrip(t *testing.T) {
	wb := NewWorkbook()
	first := wb.AddSheet()
	row := first.AddRow()
	row.AddCell().SetStr("Hello")
	row.AddCell().SetFloat(42.5)
	second := wb.AddSheet()
	if err := second.SetName("Data"); err != nil {
		t.Fatal(err)
	}
	second.AddRow().AddCell().SetInt(7)
	if err := wb.DefineName("Rate", "=0.96"); err != nil {
		t.Fatal(err)
	}

	data, err := wb.SaveToBuffer()
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("excelize open: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "Sheet1" || sheets[1] != "Data" {
		t.Fatalf("sheet list = %v", sheets)
	}

	if v, err := f.GetCellValue("Sheet1", "A1"); err != nil || v != "Hello" {
		t.Errorf("A1 = %q, %v", v, err)
	}
	if v, err := f.GetCellValue("Sheet1", "B1"); err != nil || v != "42.5" {
		t.Errorf("B1 = %q, %v", v, err)
	}
	if v, err := f.GetCellValue("Data", "A1"); err != nil || v != "7" {
		t.Errorf("Data!A1 = %q, %v", v, err)
	}

	found := false
	for _, d := range f.GetDefinedName() {
		if d.Name == "Rate" && d.RefersTo == "0.96" {
			found = true
		}
	}
	if !found {
		t.Errorf("defined name not read back: %+v", f.GetDefinedName())
	}
}

func TestDirStorageOutput(t *testing.T) {
	wb := NewWorkbook()
	wb.AddSheet().AddRow().AddCell().SetStr("x")

	dir := t.TempDir()
	if err := wb.SaveToStorage(NewDirStorage(dir)); err != nil {
		t.Fatalf("SaveToStorage: %v", err)
	}

	for _, rel := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"xl/workbook.xml",
		"xl/worksheets/sheet1.xml",
	} {
		if !fileExists(t, dir, rel) {
			t.Errorf("missing %s in directory output", rel)
		}
	}
}
