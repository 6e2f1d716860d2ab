package xl

import (
	"strings"
	"testing"
)

func TestColumnNumberAsLetters(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "A"},
		{2, "B"},
		{26, "Z"},
		{27, "AA"},
		{28, "AB"},
		{702, "ZZ"},
		{703, "AAA"},
	}
	for _, tt := range tests {
		if got := ColumnNumberAsLetters(tt.n); got != tt.want {
			t.Errorf("ColumnNumberAsLetters(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestCellCoordAsString(t *testing.T) {
	if got := CellCoordAsString(28, 3); got != "AB3" {
		t.Errorf("CellCoordAsString(28, 3) = %q, want AB3", got)
	}
	if got := areaRef(1, 1, 4, 11); got != "A1:D11" {
		t.Errorf("areaRef = %q, want A1:D11", got)
	}
	if got := absAreaRef(1, 1, 4, 11); got != "$A$1:$D$11" {
		t.Errorf("absAreaRef = %q, want $A$1:$D$11", got)
	}
}

func TestValidateSheetName(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"Revenue 2026", true},
		{"Sheet1", true},
		{"", false},
		{strings.Repeat("x", 32), false},
		{"bad[name]", false},
		{"with/slash", false},
		{"'leading quote", false},
		{"trailing quote'", false},
	}
	for _, tt := range tests {
		err := validateSheetName(tt.name)
		if (err == nil) != tt.ok {
			t.Errorf("validateSheetName(%q): err = %v, want ok=%v", tt.name, err, tt.ok)
		}
	}
}

func TestCellCoordinatesFollowInsertionOrder(t *testing.T) {
	wb := NewWorkbook()
	sheet := wb.AddSheet()

	r1 := sheet.AddRow()
	a1 := r1.AddCell()
	b1 := r1.AddCell()
	r2 := sheet.AddRow()
	a2 := r2.AddCell()

	if a1.coord != "A1" || b1.coord != "B1" || a2.coord != "A2" {
		t.Fatalf("coords = %q %q %q", a1.coord, b1.coord, a2.coord)
	}
}

func TestGetCacheData(t *testing.T) {
	wb := NewWorkbook()
	sheet := wb.AddSheet()
	for i := 1; i <= 3; i++ {
		row := sheet.AddRow()
		row.AddCell().SetInt(int64(i * 10))
		if i == 1 {
			row.AddCell().SetStr("North")
		}
	}

	numeric := sheet.getCacheData(1, 1, 3, 1)
	if !numeric.IsNumeric {
		t.Errorf("numeric column cache IsNumeric = false")
	}
	if len(numeric.Values) != 3 || numeric.Values[0] != "10" || numeric.Values[2] != "30" {
		t.Errorf("numeric cache values = %v", numeric.Values)
	}

	// A range touching a string cell is not numeric, cells outside the
	// authored area resolve to empty strings.
	mixed := sheet.getCacheData(1, 2, 3, 2)
	if mixed.IsNumeric {
		t.Errorf("mixed cache reported numeric")
	}
	if len(mixed.Values) != 3 || mixed.Values[0] != "North" || mixed.Values[1] != "" {
		t.Errorf("mixed cache values = %v", mixed.Values)
	}

	// Invalid ranges produce an empty cache rather than an error.
	if invalid := sheet.getCacheData(3, 1, 1, 1); invalid.hasData() {
		t.Errorf("invalid range produced data: %v", invalid.Values)
	}
}

func TestSheetLocalFormatTable(t *testing.T) {
	wb := NewWorkbook()
	sheet := wb.AddSheet()

	bold := sheet.formatIndex(NewFormat().SetBold())
	if bold != 1 {
		t.Fatalf("first non-default format index = %d, want 1", bold)
	}
	if again := sheet.formatIndex(NewFormat().SetBold()); again != bold {
		t.Fatalf("repeated format got new index %d", again)
	}

	// Local indices survive translation to global indices across a save.
	sheet.AddRow().AddCell().SetStr("x").SetFormat(NewFormat().SetBold())
	if _, err := wb.SaveToBuffer(); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := sheet.globalXf(bold); got == 0 {
		t.Fatalf("bold format translated to the default global index")
	}
}
