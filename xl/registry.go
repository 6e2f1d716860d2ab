package xl

// formatRegistry is the workbook global style table. Sheets author formats
// locally; at save time every local format is registered here and the
// resulting indices are handed back to the sheet as a translation table.
//
// The registry is owned by the workbook and fully reinitialized by reset() at
// the start of every save, so repeated saves and multiple workbooks in one
// process stay independent.
type formatRegistry struct {
	xfFormats []Format
	xfIndices map[string]int

	fontCount   int
	fillCount   int
	borderCount int
	numFormats  []string // user defined number formats, ids from 164
}

// userNumFormatBase is the first id available for user defined number
// formats. Ids below it are reserved for the built-in Excel formats.
const userNumFormatBase = 164

func newFormatRegistry() *formatRegistry {
	r := &formatRegistry{}
	r.reset()
	return r
}

func (r *formatRegistry) reset() {
	def := NewFormat()
	r.xfFormats = []Format{def}
	r.xfIndices = map[string]int{def.key(): 0}
	r.fontCount = 0
	r.fillCount = 0
	r.borderCount = 0
	r.numFormats = nil
}

// register deduplicates a format by structural identity and returns its
// global index. Indices are assigned in call order, so a fixed traversal
// order over the sheets yields a deterministic style table.
func (r *formatRegistry) register(f Format) int {
	key := f.key()
	if index, ok := r.xfIndices[key]; ok {
		return index
	}
	index := len(r.xfFormats)
	r.xfFormats = append(r.xfFormats, f)
	r.xfIndices[key] = index
	return index
}

// injectHyperlinkStyle reserves global index 1 for the standard hyperlink
// format. Called right after reset, before any sheet format is registered,
// when at least one sheet used hyperlink formatting, so hyperlink rendering
// is consistent even across sheets that never requested the style.
func (r *formatRegistry) injectHyperlinkStyle() {
	f := NewFormat().SetHyperlink()
	r.xfIndices[f.key()] = len(r.xfFormats)
	r.xfFormats = append(r.xfFormats, f)
}

func (r *formatRegistry) hasHyperlinkStyle() bool {
	for _, f := range r.xfFormats {
		if f.hyperlink {
			return true
		}
	}
	return false
}

// prepareSubTables reconciles the registered formats into the font, fill,
// border and number format sub-tables referenced by index from each style
// record. It runs once per save, after all sheets have contributed.
func (r *formatRegistry) prepareSubTables() {
	r.prepareFonts()
	r.prepareFills()
	r.prepareBorders()
	r.prepareNumFormats()
}

func (r *formatRegistry) prepareFonts() {
	count := 0
	indices := map[string]int{}

	for i := range r.xfFormats {
		f := &r.xfFormats[i]
		if index, ok := indices[f.font.key()]; ok {
			f.fontIndex = index
			f.firstFont = false
		} else {
			indices[f.font.key()] = count
			f.fontIndex = count
			f.firstFont = true
			count++
		}
	}
	r.fontCount = count
}

func (r *formatRegistry) prepareFills() {
	// Two fills are always present: patternType="none" and "gray125".
	// User fills start from index 2.
	count := 2
	indices := map[string]int{}
	indices[Fill{}.key()] = 0
	indices[Fill{Pattern: PatternGray125}.key()] = 1

	for i := range r.xfFormats {
		fill := &r.xfFormats[i].fill

		// For a solid fill Excel reverses the roles of the foreground and
		// background colors relative to the authoring API.
		if fill.Pattern == PatternSolid && fill.Background.IsSet() && fill.Foreground.IsSet() {
			fill.Foreground, fill.Background = fill.Background, fill.Foreground
		}

		// A background color without a pattern means the user wanted a solid
		// fill, which stores its color as foreground.
		if (fill.Pattern == PatternNone || fill.Pattern == PatternSolid) &&
			fill.Background.IsSet() && !fill.Foreground.IsSet() {
			fill.Foreground = fill.Background
			fill.Background = Color{}
			fill.Pattern = PatternSolid
		}

		if (fill.Pattern == PatternNone || fill.Pattern == PatternSolid) &&
			!fill.Background.IsSet() && fill.Foreground.IsSet() {
			fill.Pattern = PatternSolid
		}

		f := &r.xfFormats[i]
		if index, ok := indices[fill.key()]; ok {
			f.fillIndex = index
			f.firstFill = false
		} else {
			indices[fill.key()] = count
			f.fillIndex = count
			f.firstFill = true
			count++
		}
	}
	r.fillCount = count
}

func (r *formatRegistry) prepareBorders() {
	count := 0
	indices := map[string]int{}

	for i := range r.xfFormats {
		f := &r.xfFormats[i]
		if index, ok := indices[f.border.key()]; ok {
			f.borderIndex = index
			f.firstBorder = false
		} else {
			indices[f.border.key()] = count
			f.borderIndex = count
			f.firstBorder = true
			count++
		}
	}
	r.borderCount = count
}

func (r *formatRegistry) prepareNumFormats() {
	unique := map[string]int{}
	index := userNumFormatBase

	for i := range r.xfFormats {
		f := &r.xfFormats[i]
		if f.numFormatID > 0 {
			f.numFmtIndex = f.numFormatID
			continue
		}
		if f.numFormat == "" {
			continue
		}

		if id, ok := unique[f.numFormat]; ok {
			f.numFmtIndex = id
		} else {
			unique[f.numFormat] = index
			f.numFmtIndex = index
			r.numFormats = append(r.numFormats, f.numFormat)
			index++
		}
	}
}
