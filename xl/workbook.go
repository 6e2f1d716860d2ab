package xl

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/tiendc/go-deepcopy"
)

// Workbook is the root of the document model and the orchestrator of the
// save pipeline. A workbook can only produce new files; it never reads or
// modifies existing ones.
//
// Save runs the full assembly state machine: reset, style reconciliation,
// chart caching, defined name resolution, manifest derivation, validation
// and emission. Any validation failure aborts before a single part is
// written; derived state left behind by a failed save is discarded by the
// mandatory reset at the start of the next save.
type Workbook struct {
	AppName string

	sheets       []*Sheet
	registry     *formatRegistry
	properties   DocProperties
	definedNames []*DefinedName // resolved and sorted, rebuilt per save
	userNames    []DefinedName

	readOnlyMode int
	activeTab    int
	firstSheet   int

	// Count of unique chart range resolutions in the last save. Identical
	// references share one resolution.
	cacheResolutions int
}

// NewWorkbook creates an empty workbook.
func NewWorkbook() *Workbook {
	return &Workbook{
		AppName:  "go-xlbook",
		registry: newFormatRegistry(),
	}
}

// AddSheet appends a new sheet named by the standard convention
// ("Sheet1", "Sheet2", ...). Use Sheet.SetName to rename it.
func (wb *Workbook) AddSheet() *Sheet {
	name := fmt.Sprintf("Sheet%d", len(wb.sheets)+1)
	sheet := newSheet(wb, name)
	wb.sheets = append(wb.sheets, sheet)
	return sheet
}

// Sheets returns the sheets in creation order.
func (wb *Workbook) Sheets() []*Sheet { return wb.sheets }

// SheetFromIndex returns the sheet at the given creation-order index.
func (wb *Workbook) SheetFromIndex(index int) (*Sheet, error) {
	if index < 0 || index >= len(wb.sheets) {
		return nil, fmt.Errorf("sheet index %d: %w", index, ErrUnknownSheet)
	}
	return wb.sheets[index], nil
}

// SheetFromName returns the sheet with the given name (exact match).
func (wb *Workbook) SheetFromName(name string) (*Sheet, error) {
	for _, sheet := range wb.sheets {
		if sheet.Name == name {
			return sheet, nil
		}
	}
	return nil, fmt.Errorf("sheet %q: %w", name, ErrUnknownSheet)
}

// DefineName creates a defined name to use as a variable in formulas.
//
// A plain name like "Exchange_rate" is global to the workbook. A name
// prefixed with a sheet reference like "Sheet2!Sales" is local to that
// sheet; the sheet must exist by the time the workbook is saved. The name
// must start with a letter, underscore or backslash and cannot contain a
// space or any of the characters ,/*[]:"'.
func (wb *Workbook) DefineName(name, formula string) error {
	d, err := parseDefinedName(name, formula)
	if err != nil {
		return err
	}
	wb.userNames = append(wb.userNames, d)
	return nil
}

// DefinedNames returns the resolved, canonically sorted name list produced
// by the most recent save.
func (wb *Workbook) DefinedNames() []*DefinedName { return wb.definedNames }

// SetProperties sets the document metadata. The value is deep copied so the
// workbook never aliases caller-owned state.
func (wb *Workbook) SetProperties(p DocProperties) {
	var copied DocProperties
	if err := deepcopy.Copy(&copied, &p); err == nil {
		wb.properties = copied
	} else {
		wb.properties = p
	}
}

// ReadOnlyRecommended asks the spreadsheet application to suggest opening
// the file in read-only mode.
func (wb *Workbook) ReadOnlyRecommended() {
	wb.readOnlyMode = 2
}

// Save writes the workbook to an xlsx file at the given path, overwriting
// any existing file. A failed save may leave a truncated or missing file at
// the target location.
func (wb *Workbook) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	err = wb.SaveToWriter(f)
	cerr := f.Close()
	if err != nil {
		return err
	}
	return cerr
}

// SaveToBuffer writes the workbook to an in-memory xlsx container and
// returns its bytes.
func (wb *Workbook) SaveToBuffer() ([]byte, error) {
	bb := bytes.Buffer{}
	if err := wb.SaveToWriter(&bb); err != nil {
		return nil, err
	}
	return bb.Bytes(), nil
}

// SaveToWriter writes the workbook as a zip container to w. The zip stream
// is finalized on every exit path.
func (wb *Workbook) SaveToWriter(w io.Writer) error {
	zs := NewZipStorage(w)
	err := wb.assemble(zs)
	cerr := zs.Close()
	if err != nil {
		return err
	}
	if cerr != nil {
		return fmt.Errorf("finalizing package: %w", cerr)
	}
	return nil
}

// SaveToStorage writes the workbook parts to an arbitrary storage, such as
// a DirStorage for debugging.
func (wb *Workbook) SaveToStorage(out Storage) error {
	return wb.assemble(out)
}

// assemble runs the save pipeline against the given output sink.
func (wb *Workbook) assemble(out Storage) error {
	// Reset between saves so repeated saves of an edited workbook are
	// independent and reproducible.
	wb.reset()

	// A workbook must contain at least one sheet.
	if len(wb.sheets) == 0 {
		wb.AddSheet()
	}
	wb.setActiveSheets()

	// If any sheet used hyperlink formatting, reserve global style index 1
	// for the hyperlink style before sheet formats are registered.
	for _, sheet := range wb.sheets {
		if sheet.hasHyperlinkStyle {
			wb.registry.injectHyperlinkStyle()
			break
		}
	}

	// Reconcile every sheet local format table against the global registry
	// and hand each sheet its translation table.
	for _, sheet := range wb.sheets {
		indices := make([]int, len(sheet.xfFormats))
		for i, format := range sheet.xfFormats {
			indices[i] = wb.registry.register(format)
		}
		sheet.setGlobalXfIndices(indices)
	}

	// Number the drawing and chart parts in creation order.
	wb.prepareDrawings()

	// Resolve chart range references into shared caches.
	wb.prepareChartCaches()

	// Reconcile the font/fill/border/numFmt sub-tables.
	wb.registry.prepareSubTables()

	// Number the tables and validate name uniqueness.
	if err := wb.prepareTables(); err != nil {
		return err
	}

	// Derive the package manifest and resolve defined names. Validation
	// failures abort here, before any bytes are written.
	opts, err := wb.packagerOptions()
	if err != nil {
		return err
	}

	return newPackager(out, wb, opts).assemble()
}

// reset reinitializes all per-save derived state.
func (wb *Workbook) reset() {
	wb.registry.reset()
	wb.definedNames = nil
	wb.activeTab = 0
	wb.firstSheet = 0
	wb.cacheResolutions = 0
	for _, sheet := range wb.sheets {
		sheet.reset()
	}
}

// setActiveSheets ensures exactly one sheet is active and records the
// active and first visible tab positions. Defaults to the first sheet.
func (wb *Workbook) setActiveSheets() {
	active := 0
	for i, sheet := range wb.sheets {
		if sheet.active {
			active = i
		}
		if sheet.firstSheet {
			wb.firstSheet = i
		}
	}
	wb.sheets[active].active = true
	wb.activeTab = active
}

// prepareDrawings assigns sequential part numbers to each sheet's drawing
// and to every chart, in creation order.
func (wb *Workbook) prepareDrawings() {
	chartID := 1
	drawingID := 1
	for _, sheet := range wb.sheets {
		for _, anchor := range sheet.charts {
			anchor.chart.id = chartID
			chartID++
		}
		if sheet.hasDrawing() {
			sheet.drawingID = drawingID
			drawingID++
		}
	}
}

// prepareChartCaches stitches worksheet data into chart caches in three
// phases: collect the distinct range keys used anywhere in any chart,
// resolve each key once against the referenced sheet, then fan the shared
// results back into every element that used the key. Missing sheets or
// ranges produce an empty cache rather than an error; the cache is a
// rendering aid, not a structural requirement.
func (wb *Workbook) prepareChartCaches() {
	caches := map[chartRangeKey]*ChartSeriesCacheData{}

	for _, sheet := range wb.sheets {
		for _, anchor := range sheet.charts {
			for _, slot := range anchor.chart.cacheSlots() {
				caches[slot.rng.key()] = nil
			}
		}
	}

	for key := range caches {
		cache := &ChartSeriesCacheData{}
		if sheet, err := wb.SheetFromName(key.sheet); err == nil {
			cache = sheet.getCacheData(key.firstRow, key.firstCol, key.lastRow, key.lastCol)
		}
		caches[key] = cache
		wb.cacheResolutions++
	}

	for _, sheet := range wb.sheets {
		for _, anchor := range sheet.charts {
			for _, slot := range anchor.chart.cacheSlots() {
				*slot.dest = caches[slot.rng.key()]
			}
		}
	}
}

// prepareTables assigns sequential table ids and default names, and rejects
// case-insensitive duplicate table names across the whole workbook.
func (wb *Workbook) prepareTables() error {
	tableID := 1
	seen := map[string]bool{}

	for _, sheet := range wb.sheets {
		for _, t := range sheet.tables {
			t.id = tableID
			if t.Name == "" {
				t.Name = fmt.Sprintf("Table%d", t.id)
			}
			tableID++
		}
	}

	for _, sheet := range wb.sheets {
		for _, t := range sheet.tables {
			lower := strings.ToLower(t.Name)
			if seen[lower] {
				return &TableNameReusedError{Name: t.Name}
			}
			seen[lower] = true
		}
	}
	return nil
}

// packagerOptions derives the manifest consumed by the packager and
// finalizes the defined name list. It validates sheet name uniqueness and
// local defined name sheet references.
func (wb *Workbook) packagerOptions() (*packagerOptions, error) {
	opts := &packagerOptions{
		docSecurity: wb.readOnlyMode,
		properties:  wb.properties,
	}

	names := make([]DefinedName, len(wb.userNames))
	copy(names, wb.userNames)

	sheetIndices := map[string]int{}

	for sheetIndex, sheet := range wb.sheets {
		if _, dup := sheetIndices[sheet.Name]; dup {
			return nil, &SheetNameReusedError{Name: sheet.Name}
		}
		sheetIndices[sheet.Name] = sheetIndex
		opts.sheetNames = append(opts.sheetNames, sheet.Name)

		if sheet.usesStringTable {
			opts.hasSharedStrings = true
		}
		if sheet.hasDynamicArrays {
			opts.hasDynamicArrays = true
		}
		if sheet.hasHeaderFooterImages() {
			opts.hasVML = true
		}
		if sheet.hasDrawing() {
			opts.numDrawings++
		}
		opts.numCharts += len(sheet.charts)
		opts.numTables += len(sheet.tables)

		for _, anchor := range sheet.images {
			if f := anchor.image.format(); f >= 0 {
				opts.imageTypes[f] = true
			}
		}
		for _, image := range sheet.headerImages {
			if f := image.format(); f >= 0 {
				opts.imageTypes[f] = true
			}
		}

		// Fold the structural ranges into the defined name list.
		quoted := quoteSheetName(sheet.Name)
		if sheet.autofilterArea.inUse {
			d := DefinedName{nameType: definedNameAutofilter, rangeText: sheet.autofilterArea.rangeText}
			d.initialize(quoted)
			names = append(names, d)
		}
		if sheet.printArea.inUse {
			d := DefinedName{nameType: definedNamePrintArea, rangeText: sheet.printArea.rangeText}
			d.initialize(quoted)
			names = append(names, d)
		}
		if sheet.repeatRows.inUse || sheet.repeatCols.inUse {
			var parts []string
			if sheet.repeatCols.inUse {
				parts = append(parts, quoted+"!"+sheet.repeatCols.rangeText)
			}
			if sheet.repeatRows.inUse {
				parts = append(parts, quoted+"!"+sheet.repeatRows.rangeText)
			}
			d := DefinedName{
				nameType:        definedNamePrintTitles,
				quotedSheetName: quoted,
				rangeText:       strings.Join(parts, ","),
			}
			d.setSortName()
			names = append(names, d)
		}
	}

	// Resolve each local name's sheet reference to a sheet index.
	for i := range names {
		d := &names[i]
		sheetName := d.unquotedSheetName()
		if sheetName == "" {
			continue
		}
		index, ok := sheetIndices[sheetName]
		if !ok {
			return nil, &ParameterError{
				Msg: fmt.Sprintf("unknown sheet name %q in defined name %q", sheetName, d.name),
			}
		}
		d.sheetIndex = index
	}

	// Defined names are stored in canonical sorted order.
	sort.SliceStable(names, func(i, j int) bool {
		if names[i].sortName != names[j].sortName {
			return names[i].sortName < names[j].sortName
		}
		return names[i].rangeText < names[j].rangeText
	})

	wb.definedNames = make([]*DefinedName, len(names))
	for i := range names {
		wb.definedNames[i] = &names[i]
		if appName := names[i].appName(); appName != "" {
			opts.definedNames = append(opts.definedNames, appName)
		}
	}

	return opts, nil
}
