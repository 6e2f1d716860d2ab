package xl

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Sheet owns its cell data and a locally indexed format table, so it can be
// authored without touching the workbook global style state. All local style
// references are reconciled against the workbook registry at save time.
type Sheet struct {
	Name    string
	Rows    []*Row
	Columns map[int]*Column // 1-based

	workbook      *Workbook
	nextRowNumber int // 1-based, incremented as we add rows

	xfFormats []Format
	xfIndices map[string]int

	// Local to global style index translation table, valid for the duration
	// of one save and cleared by reset.
	globalXfIndices []int

	charts       []*chartAnchor
	tables       []*Table
	images       []*imageAnchor
	headerImages []*Image

	// Structural ranges that fold into defined names at save time.
	autofilterArea   structuralRange
	printArea        structuralRange
	repeatRows       structuralRange
	repeatCols       structuralRange
	autofilterRef    string // relative form for the worksheet autoFilter element

	usesStringTable   bool
	hasDynamicArrays  bool
	hasHyperlinkStyle bool

	active     bool
	firstSheet bool
	hidden     bool

	drawingID int // sequential drawing part number, assigned per save
}

type Column struct {
	Width float32
}

// structuralRange is a sheet range that synthesizes a defined name when used.
type structuralRange struct {
	inUse     bool
	rangeText string
}

func newSheet(wb *Workbook, name string) *Sheet {
	def := NewFormat()
	return &Sheet{
		workbook:      wb,
		Name:          name,
		Columns:       map[int]*Column{},
		nextRowNumber: 1,
		xfFormats:     []Format{def},
		xfIndices:     map[string]int{def.key(): 0},
	}
}

func (s *Sheet) AddRow() *Row {
	r := &Row{
		sheet:            s,
		rowNumber:        s.nextRowNumber,
		nextColumnNumber: 1,
	}
	s.nextRowNumber++
	s.Rows = append(s.Rows, r)
	return r
}

func (s *Sheet) SetColumnWidth(colNumber int, w float32) {
	if colNumber <= 0 {
		return
	}
	if w <= 0.0 {
		delete(s.Columns, colNumber)
	} else {
		s.Columns[colNumber] = &Column{Width: w}
	}
}

// SetName renames the sheet. Names are limited to 31 characters and may not
// contain any of :\/?*[] or begin or end with a single quote.
func (s *Sheet) SetName(name string) error {
	if err := validateSheetName(name); err != nil {
		return err
	}
	s.Name = name
	return nil
}

// SetActive selects the sheet tab shown when the file is opened.
func (s *Sheet) SetActive() *Sheet {
	s.active = true
	return s
}

// SetFirstVisible makes this the leftmost visible sheet tab.
func (s *Sheet) SetFirstVisible() *Sheet {
	s.firstSheet = true
	return s
}

// SetHidden hides the sheet tab.
func (s *Sheet) SetHidden() *Sheet {
	s.hidden = true
	return s
}

// SetAutofilter turns on the filter controls over the given range and
// records the hidden _FilterDatabase defined name for it.
func (s *Sheet) SetAutofilter(firstRow, firstCol, lastRow, lastCol int) {
	s.autofilterArea = structuralRange{
		inUse:     true,
		rangeText: absAreaRef(firstCol, firstRow, lastCol, lastRow),
	}
	s.autofilterRef = areaRef(firstCol, firstRow, lastCol, lastRow)
}

// SetPrintArea restricts printing to the given range.
func (s *Sheet) SetPrintArea(firstRow, firstCol, lastRow, lastCol int) {
	s.printArea = structuralRange{
		inUse:     true,
		rangeText: absAreaRef(firstCol, firstRow, lastCol, lastRow),
	}
}

// SetRepeatRows repeats the given rows at the top of each printed page.
func (s *Sheet) SetRepeatRows(firstRow, lastRow int) {
	s.repeatRows = structuralRange{
		inUse:     true,
		rangeText: "$" + strconv.Itoa(firstRow) + ":$" + strconv.Itoa(lastRow),
	}
}

// SetRepeatColumns repeats the given columns at the left of each printed page.
func (s *Sheet) SetRepeatColumns(firstCol, lastCol int) {
	s.repeatCols = structuralRange{
		inUse:     true,
		rangeText: "$" + ColumnNumberAsLetters(firstCol) + ":$" + ColumnNumberAsLetters(lastCol),
	}
}

// AddChart anchors a chart with its top-left corner at the given cell.
func (s *Sheet) AddChart(row, col int, chart *Chart) {
	s.charts = append(s.charts, &chartAnchor{chart: chart, row: row, col: col})
}

// InsertImage anchors an image with its top-left corner at the given cell.
func (s *Sheet) InsertImage(row, col int, image *Image) {
	s.images = append(s.images, &imageAnchor{image: image, row: row, col: col})
}

// SetHeaderImage places an image in the page header. Header and footer
// images are carried in a legacy VML part.
func (s *Sheet) SetHeaderImage(image *Image) {
	s.headerImages = append(s.headerImages, image)
}

// AddTable creates a table over the given range. The first row of the range
// is the header row. The name must be unique in the workbook; duplicates are
// rejected at save time.
func (s *Sheet) AddTable(firstRow, firstCol, lastRow, lastCol int, name string) *Table {
	t := &Table{
		Name:       name,
		FirstRow:   firstRow,
		FirstCol:   firstCol,
		LastRow:    lastRow,
		LastCol:    lastCol,
		HeaderRow:  true,
		Autofilter: true,
	}
	s.tables = append(s.tables, t)
	return t
}

// formatIndex registers a format in the sheet local table and returns its
// local index. Index 0 is the default format.
func (s *Sheet) formatIndex(f Format) int {
	key := f.key()
	if index, ok := s.xfIndices[key]; ok {
		return index
	}
	index := len(s.xfFormats)
	s.xfFormats = append(s.xfFormats, f)
	s.xfIndices[key] = index
	return index
}

// setGlobalXfIndices installs the local to global translation table produced
// by the workbook registry. Cell emission resolves through it.
func (s *Sheet) setGlobalXfIndices(indices []int) {
	s.globalXfIndices = indices
}

// globalXf translates a cell's local format index to the workbook global
// style index.
func (s *Sheet) globalXf(local int) int {
	if local < len(s.globalXfIndices) {
		return s.globalXfIndices[local]
	}
	return 0
}

// getCacheData resolves the literal cell values in a range for chart caches.
// Cells outside the authored area resolve to empty strings; the cache is
// numeric only if every populated cell in the range holds a number.
func (s *Sheet) getCacheData(firstRow, firstCol, lastRow, lastCol int) *ChartSeriesCacheData {
	cache := &ChartSeriesCacheData{IsNumeric: true}
	if firstRow < 1 || firstCol < 1 || lastRow < firstRow || lastCol < firstCol {
		return &ChartSeriesCacheData{}
	}

	for rowNum := firstRow; rowNum <= lastRow; rowNum++ {
		for colNum := firstCol; colNum <= lastCol; colNum++ {
			c := s.cellAt(rowNum, colNum)
			if c == nil {
				cache.Values = append(cache.Values, "")
				continue
			}
			cache.Values = append(cache.Values, c.v)
			if c.typ != CellTypeNumber {
				cache.IsNumeric = false
			}
		}
	}
	return cache
}

func (s *Sheet) cellAt(rowNum, colNum int) *Cell {
	if rowNum > len(s.Rows) {
		return nil
	}
	row := s.Rows[rowNum-1]
	if colNum > len(row.Cells) {
		return nil
	}
	return row.Cells[colNum-1]
}

// reset clears per-save derived state so repeated saves are independent.
func (s *Sheet) reset() {
	s.globalXfIndices = nil
	s.drawingID = 0
	for _, anchor := range s.charts {
		anchor.chart.reset()
	}
	for _, t := range s.tables {
		t.id = 0
	}
}

func (s *Sheet) hasDrawing() bool {
	return len(s.images) > 0 || len(s.charts) > 0
}

func (s *Sheet) hasHeaderFooterImages() bool {
	return len(s.headerImages) > 0
}

func validateSheetName(s string) error {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return errors.New("empty sheet name is not allowed")
	} else if n > 31 {
		return errors.New("the sheet name is too long")
	}
	if strings.HasPrefix(s, "'") || strings.HasSuffix(s, "'") {
		return errors.New("the first or last character of the sheet name can not be a single quote")
	}
	if strings.ContainsAny(s, ":\\/?*[]") {
		return errors.New("the sheet can not contain any of the characters :\\/?*[]")
	}
	return nil
}
