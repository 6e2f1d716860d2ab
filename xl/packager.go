package xl

import (
	"bytes"
	"fmt"
	"slices"
	"time"

	"github.com/adnsv/srw/xml"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
)

// packagerOptions is the manifest derived from the workbook at the start of
// packaging: everything the packager needs to know about which parts to
// emit, without walking the model again.
type packagerOptions struct {
	sheetNames       []string
	docSecurity      int
	properties       DocProperties
	hasSharedStrings bool
	hasDynamicArrays bool
	hasVML           bool
	numDrawings      int
	numCharts        int
	numTables        int
	imageTypes       [numImageFormats]bool
	definedNames     []string // app.xml "Named Ranges" entries
}

// RelInfo describes one relationship entry: the schema type url, the target
// path relative to the owning part, and an optional target mode.
type RelInfo struct {
	Type   string
	Target string
	Mode   string // "External" for hyperlink targets
}

type mediaEntry struct {
	name string // image1.png etc.
	rid  string // rel id within the owning drawing or vml part
}

// packager assembles the zip package from a finalized workbook: every part
// is written exactly once, every distinct extension gets a content-type
// Default or every special part an Override, and every cross-part reference
// gets a relationship entry with a sequential numeric id.
type packager struct {
	out  Storage
	wb   *Workbook
	opts *packagerOptions

	lastGlobalID   int
	lastWorkbookID int

	globalRels          map[string]RelInfo
	workbookRels        map[string]RelInfo
	defaultContentTypes map[string]string // extension to content-type
	partContentTypes    map[string]string // part name to content-type

	sharedStrings   []string
	sharedStringMap map[string]int

	mediaIndex map[string]string // blob hash key to media file name
	vmlCount   int
}

func newPackager(out Storage, wb *Workbook, opts *packagerOptions) *packager {
	p := &packager{
		out:  out,
		wb:   wb,
		opts: opts,

		globalRels:          map[string]RelInfo{},
		workbookRels:        map[string]RelInfo{},
		defaultContentTypes: map[string]string{},
		partContentTypes:    map[string]string{},

		sharedStringMap: map[string]int{},
		mediaIndex:      map[string]string{},
	}

	p.defaultContentTypes["xml"] = "application/xml"
	p.defaultContentTypes["rels"] = "application/vnd.openxmlformats-package.relationships+xml"

	for format := 0; format < numImageFormats; format++ {
		if opts.imageTypes[format] {
			ext, ctype := imageContentType(format)
			p.defaultContentTypes[ext] = ctype
		}
	}
	if opts.hasVML {
		p.defaultContentTypes["vml"] = "application/vnd.openxmlformats-officedocument.vmlDrawing"
	}

	return p
}

func (p *packager) nextGlobalID() string {
	p.lastGlobalID++
	return fmt.Sprintf("rId%d", p.lastGlobalID)
}

func (p *packager) nextWorkbookID() string {
	p.lastWorkbookID++
	return fmt.Sprintf("rId%d", p.lastWorkbookID)
}

// SharedString deduplicates a string into the shared string table and
// returns its 0-based index.
func (p *packager) SharedString(s string) int {
	if i, ok := p.sharedStringMap[s]; ok {
		return i
	}
	i := len(p.sharedStrings)
	p.sharedStrings = append(p.sharedStrings, s)
	p.sharedStringMap[s] = i
	return i
}

func (p *packager) assemble() error {
	err := p.writeWorkbook()
	if err != nil {
		return err
	}

	err = p.writeDrawings()
	if err != nil {
		return err
	}

	err = p.writeTables()
	if err != nil {
		return err
	}

	err = p.writeTheme()
	if err != nil {
		return err
	}

	err = p.writeStyles()
	if err != nil {
		return err
	}

	if len(p.sharedStrings) > 0 {
		err = p.writeSharedStrings()
		if err != nil {
			return err
		}
	}

	if p.opts.hasDynamicArrays {
		err = p.writeMetadata()
		if err != nil {
			return err
		}
	}

	err = p.writeCoreProperties()
	if err != nil {
		return err
	}
	err = p.writeExtendedProperties()
	if err != nil {
		return err
	}
	if len(p.opts.properties.custom) > 0 {
		err = p.writeCustomProperties()
		if err != nil {
			return err
		}
	}

	err = p.writeRels("/xl/_rels/workbook.xml.rels", p.workbookRels)
	if err != nil {
		return err
	}

	err = p.writeRels("/_rels/.rels", p.globalRels)
	if err != nil {
		return err
	}

	return p.writeContentTypes()
}

func (p *packager) writeWorkbook() error {
	rid := p.nextGlobalID()

	relpath := "xl/workbook.xml"
	abspath := "/" + relpath

	p.partContentTypes[abspath] = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"
	p.globalRels[rid] = RelInfo{
		Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument",
		Target: relpath,
	}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("workbook")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/spreadsheetml/2006/main")
	x.Attr("xmlns:r", "http://schemas.openxmlformats.org/officeDocument/2006/relationships")

	x.OTag("+fileVersion")
	x.Attr("appName", "xl")
	x.Attr("lastEdited", 4)
	x.Attr("lowestEdited", 4)
	x.Attr("rupBuild", 4505)
	x.CTag()

	if p.opts.docSecurity == 2 {
		x.OTag("+fileSharing").Attr("readOnlyRecommended", 1).CTag()
	}

	x.OTag("+workbookPr").Attr("defaultThemeVersion", "124226").CTag()

	x.OTag("+bookViews")
	{
		x.OTag("+workbookView")
		x.Attr("xWindow", 240)
		x.Attr("yWindow", 15)
		x.Attr("windowWidth", 16095)
		x.Attr("windowHeight", 9660)
		if p.wb.firstSheet > 0 {
			x.Attr("firstSheet", p.wb.firstSheet+1)
		}
		if p.wb.activeTab > 0 {
			x.Attr("activeTab", p.wb.activeTab)
		}
		x.CTag()
	}
	x.CTag()

	x.OTag("+sheets")
	type sheetEntry struct {
		sheet *Sheet
		rid   string
	}
	var entries []sheetEntry
	for i, sheet := range p.wb.sheets {
		rid := p.nextWorkbookID()
		entries = append(entries, sheetEntry{sheet, rid})

		x.OTag("+sheet")
		x.Attr("name", sheet.Name)
		x.Attr("sheetId", i+1)
		if sheet.hidden {
			x.Attr("state", "hidden")
		}
		x.Attr("r:id", rid)
		x.CTag()
	}
	x.CTag()

	if len(p.wb.definedNames) > 0 {
		x.OTag("+definedNames")
		for _, d := range p.wb.definedNames {
			x.OTag("+definedName")
			x.Attr("name", d.Name())
			if !d.IsGlobal() {
				x.Attr("localSheetId", d.sheetIndex)
			}
			if d.nameType == definedNameAutofilter {
				x.Attr("hidden", 1)
			}
			x.Write(d.rangeText)
			x.CTag()
		}
		x.CTag()
	}

	x.OTag("+calcPr").Attr("calcId", "124519").Attr("fullCalcOnLoad", 1).CTag()

	x.CTag() // workbook

	err := p.out.WriteBlob(abspath, bb.Bytes())
	if err != nil {
		return err
	}

	for i, e := range entries {
		err = p.writeSheet(e.sheet, i+1, e.rid)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *packager) writeSheet(sh *Sheet, index int, rid string) error {
	relpath := fmt.Sprintf("worksheets/sheet%d.xml", index)
	abspath := "/xl/" + relpath

	p.partContentTypes[abspath] = "application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"
	p.workbookRels[rid] = RelInfo{
		Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet",
		Target: relpath,
	}

	sheetRels := map[string]RelInfo{}
	lastSheetRel := 0
	nextSheetRel := func() string {
		lastSheetRel++
		return fmt.Sprintf("rId%d", lastSheetRel)
	}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("worksheet")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/spreadsheetml/2006/main")
	x.Attr("xmlns:r", "http://schemas.openxmlformats.org/officeDocument/2006/relationships")

	x.OTag("+sheetViews")
	x.OTag("+sheetView")
	if sh.active {
		x.Attr("tabSelected", 1)
	}
	x.Attr("workbookViewId", 0)
	x.CTag()
	x.CTag()

	if len(sh.Columns) > 0 {
		x.OTag("+cols")
		enumerate(sh.Columns, func(n int, v *Column) error {
			x.OTag("+col").Attr("min", n).Attr("max", n)
			if v.Width > 0 {
				x.Attr("width", v.Width).Attr("customWidth", 1)
			}
			x.CTag()
			return nil
		})
		x.CTag()
	}

	type hyperlinkEntry struct {
		coord string
		url   string
	}
	var hyperlinks []hyperlinkEntry

	x.OTag("+sheetData")
	for _, row := range sh.Rows {
		if len(row.Cells) == 0 && row.Height == 0 {
			continue
		}
		x.OTag("+row").Attr("r", row.rowNumber)
		if row.Height > 0 {
			x.Attr("ht", row.Height).Attr("customHeight", 1)
		}

		for _, cell := range row.Cells {
			if cell.typ == CellTypeUnset && cell.xf == 0 {
				continue
			}
			x.OTag("+c").Attr("r", cell.coord)
			if xf := sh.globalXf(cell.xf); xf > 0 {
				x.Attr("s", xf)
			}

			switch cell.typ {
			case CellTypeBool:
				x.Attr("t", "b")
				x.OTag("v").Write(cell.v).CTag()
			case CellTypeNumber:
				x.OTag("v").Write(cell.v).CTag()
			case CellTypeError:
				x.Attr("t", "e")
				x.OTag("v").Write(cell.v).CTag()
			case CellTypeFormula:
				if cell.arrayRange != "" {
					x.Attr("cm", 1)
					x.OTag("f").Attr("t", "array").Attr("ref", cell.arrayRange)
					x.Write(cell.formula)
					x.CTag()
				} else {
					x.OTag("f").Write(cell.formula).CTag()
				}
				x.OTag("v").Write(cell.v).CTag()
			case CellTypeSharedString:
				x.Attr("t", "s")
				x.OTag("v").Write(p.SharedString(cell.v)).CTag()
				if cell.url != "" {
					hyperlinks = append(hyperlinks, hyperlinkEntry{cell.coord, cell.url})
				}
			}
			x.CTag() // c
		}

		x.CTag() // row
	}
	x.CTag() // sheetData

	if sh.autofilterRef != "" {
		x.OTag("+autoFilter").Attr("ref", sh.autofilterRef).CTag()
	}

	if len(hyperlinks) > 0 {
		x.OTag("+hyperlinks")
		for _, h := range hyperlinks {
			rid := nextSheetRel()
			sheetRels[rid] = RelInfo{
				Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink",
				Target: h.url,
				Mode:   "External",
			}
			x.OTag("+hyperlink").Attr("ref", h.coord).Attr("r:id", rid).CTag()
		}
		x.CTag()
	}

	if sh.hasDrawing() {
		rid := nextSheetRel()
		sheetRels[rid] = RelInfo{
			Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/drawing",
			Target: fmt.Sprintf("../drawings/drawing%d.xml", sh.drawingID),
		}
		x.OTag("+drawing").Attr("r:id", rid).CTag()
	}

	if sh.hasHeaderFooterImages() {
		p.vmlCount++
		rid := nextSheetRel()
		sheetRels[rid] = RelInfo{
			Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/vmlDrawing",
			Target: fmt.Sprintf("../drawings/vmlDrawing%d.vml", p.vmlCount),
		}
		x.OTag("+legacyDrawingHF").Attr("r:id", rid).CTag()

		err := p.writeVMLDrawing(sh, p.vmlCount)
		if err != nil {
			return err
		}
	}

	if len(sh.tables) > 0 {
		x.OTag("+tableParts").Attr("count", len(sh.tables))
		for _, t := range sh.tables {
			rid := nextSheetRel()
			sheetRels[rid] = RelInfo{
				Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/table",
				Target: fmt.Sprintf("../tables/table%d.xml", t.id),
			}
			x.OTag("+tablePart").Attr("r:id", rid).CTag()
		}
		x.CTag()
	}

	x.CTag() // worksheet

	err := p.out.WriteBlob(abspath, bb.Bytes())
	if err != nil {
		return err
	}

	if len(sheetRels) > 0 {
		err = p.writeRels(fmt.Sprintf("/xl/worksheets/_rels/sheet%d.xml.rels", index), sheetRels)
		if err != nil {
			return err
		}
	}
	return nil
}

// addMedia deduplicates an image blob into the media directory and returns
// its file name. Identical blobs across cells and sheets share one part.
func (p *packager) addMedia(image *Image) (string, error) {
	key := image.hashKey()
	if name, ok := p.mediaIndex[key]; ok {
		return name, nil
	}
	name := fmt.Sprintf("image%d.%s", len(p.mediaIndex)+1, image.contentExtension())
	p.mediaIndex[key] = name
	return name, p.out.WriteBlob("/xl/media/"+name, image.Blob)
}

func (p *packager) writeDrawings() error {
	for _, sheet := range p.wb.sheets {
		if !sheet.hasDrawing() {
			continue
		}
		err := p.writeDrawing(sheet)
		if err != nil {
			return err
		}
		for _, anchor := range sheet.charts {
			err = p.writeChart(anchor.chart)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *packager) writeDrawing(sh *Sheet) error {
	relpath := fmt.Sprintf("drawings/drawing%d.xml", sh.drawingID)
	abspath := "/xl/" + relpath

	p.partContentTypes[abspath] = "application/vnd.openxmlformats-officedocument.drawing+xml"

	drawingRels := map[string]RelInfo{}
	lastRel := 0
	nextRel := func() string {
		lastRel++
		return fmt.Sprintf("rId%d", lastRel)
	}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("xdr:wsDr")
	x.Attr("xmlns:xdr", "http://schemas.openxmlformats.org/drawingml/2006/spreadsheetDrawing")
	x.Attr("xmlns:a", "http://schemas.openxmlformats.org/drawingml/2006/main")
	x.Attr("xmlns:r", "http://schemas.openxmlformats.org/officeDocument/2006/relationships")

	shapeID := 1
	anchorFrom := func(row, col int) {
		x.OTag("+xdr:from")
		x.OTag("+xdr:col").Write(col - 1).CTag()
		x.OTag("xdr:colOff").Write(0).CTag()
		x.OTag("xdr:row").Write(row - 1).CTag()
		x.OTag("xdr:rowOff").Write(0).CTag()
		x.CTag()
	}

	for _, anchor := range sh.images {
		name, err := p.addMedia(anchor.image)
		if err != nil {
			return err
		}
		rid := nextRel()
		drawingRels[rid] = RelInfo{
			Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image",
			Target: "../media/" + name,
		}

		x.OTag("+xdr:oneCellAnchor")
		anchorFrom(anchor.row, anchor.col)
		x.OTag("+xdr:ext").Attr("cx", 2743200).Attr("cy", 1828800).CTag()
		x.OTag("+xdr:pic")
		{
			x.OTag("+xdr:nvPicPr")
			x.OTag("+xdr:cNvPr").Attr("id", shapeID).Attr("name", fmt.Sprintf("Picture %d", shapeID)).CTag()
			x.OTag("xdr:cNvPicPr").CTag()
			x.CTag()
			x.OTag("xdr:blipFill")
			x.OTag("+a:blip").Attr("r:embed", rid).CTag()
			x.OTag("a:stretch")
			x.OTag("a:fillRect").CTag()
			x.CTag()
			x.CTag()
			x.OTag("xdr:spPr")
			x.OTag("+a:prstGeom").Attr("prst", "rect")
			x.OTag("a:avLst").CTag()
			x.CTag()
			x.CTag()
		}
		x.CTag() // pic
		x.OTag("xdr:clientData").CTag()
		x.CTag() // oneCellAnchor
		shapeID++
	}

	for _, anchor := range sh.charts {
		rid := nextRel()
		drawingRels[rid] = RelInfo{
			Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/chart",
			Target: fmt.Sprintf("../charts/chart%d.xml", anchor.chart.id),
		}

		x.OTag("+xdr:oneCellAnchor")
		anchorFrom(anchor.row, anchor.col)
		x.OTag("+xdr:ext").Attr("cx", 5486400).Attr("cy", 3200400).CTag()
		x.OTag("+xdr:graphicFrame")
		{
			x.OTag("+xdr:nvGraphicFramePr")
			x.OTag("+xdr:cNvPr").Attr("id", shapeID).Attr("name", fmt.Sprintf("Chart %d", anchor.chart.id)).CTag()
			x.OTag("xdr:cNvGraphicFramePr").CTag()
			x.CTag()
			x.OTag("xdr:xfrm")
			x.OTag("+a:off").Attr("x", 0).Attr("y", 0).CTag()
			x.OTag("a:ext").Attr("cx", 0).Attr("cy", 0).CTag()
			x.CTag()
			x.OTag("a:graphic")
			x.OTag("+a:graphicData").Attr("uri", "http://schemas.openxmlformats.org/drawingml/2006/chart")
			x.OTag("+c:chart")
			x.Attr("xmlns:c", "http://schemas.openxmlformats.org/drawingml/2006/chart")
			x.Attr("r:id", rid)
			x.CTag()
			x.CTag()
			x.CTag()
		}
		x.CTag() // graphicFrame
		x.OTag("xdr:clientData").CTag()
		x.CTag() // oneCellAnchor
		shapeID++
	}

	x.CTag() // wsDr

	err := p.out.WriteBlob(abspath, bb.Bytes())
	if err != nil {
		return err
	}

	return p.writeRels(fmt.Sprintf("/xl/drawings/_rels/drawing%d.xml.rels", sh.drawingID), drawingRels)
}

// writeCache emits a strRef or numRef with the resolved cache values for a
// chart range reference.
func writeCache(x *xml.Writer, rng ChartRange, cache *ChartSeriesCacheData) {
	numeric := cache != nil && cache.IsNumeric && cache.hasData()
	refTag, cacheTag := xml.NameString("c:strRef"), xml.NameString("c:strCache")
	if numeric {
		refTag, cacheTag = "c:numRef", "c:numCache"
	}

	x.OTag("+" + refTag)
	x.OTag("+c:f").Write(rng.formula()).CTag()
	x.OTag(cacheTag)
	if numeric {
		x.OTag("+c:formatCode").Write("General").CTag()
	}
	count := 0
	if cache != nil {
		count = len(cache.Values)
	}
	x.OTag("+c:ptCount").Attr("val", count).CTag()
	if cache != nil {
		for i, v := range cache.Values {
			if v == "" {
				continue
			}
			x.OTag("+c:pt").Attr("idx", i)
			x.OTag("c:v").Write(v).CTag()
			x.CTag()
		}
	}
	x.CTag() // cache
	x.CTag() // ref
}

func (p *packager) writeChart(ch *Chart) error {
	relpath := fmt.Sprintf("charts/chart%d.xml", ch.id)
	abspath := "/xl/" + relpath

	p.partContentTypes[abspath] = "application/vnd.openxmlformats-officedocument.drawingml.chart+xml"

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("c:chartSpace")
	x.Attr("xmlns:c", "http://schemas.openxmlformats.org/drawingml/2006/chart")
	x.Attr("xmlns:a", "http://schemas.openxmlformats.org/drawingml/2006/main")
	x.Attr("xmlns:r", "http://schemas.openxmlformats.org/officeDocument/2006/relationships")

	x.OTag("+c:chart")

	title := ch.Title.Text
	if title == "" && ch.Title.cache != nil && ch.Title.cache.hasData() {
		title = ch.Title.cache.Values[0]
	}
	if title != "" {
		x.OTag("+c:title")
		x.OTag("+c:tx")
		x.OTag("+c:rich")
		x.OTag("+a:bodyPr").CTag()
		x.OTag("a:p")
		x.OTag("+a:r")
		x.OTag("+a:t").Write(title).CTag()
		x.CTag()
		x.CTag()
		x.CTag()
		x.CTag()
		x.CTag()
		x.OTag("+c:autoTitleDeleted").Attr("val", 0).CTag()
	}

	x.OTag("+c:plotArea")
	x.OTag("+c:layout").CTag()

	plotTag := xml.NameString("c:barChart")
	switch ch.Type {
	case ChartLine:
		plotTag = "c:lineChart"
	case ChartPie:
		plotTag = "c:pieChart"
	}
	x.OTag("+" + plotTag)
	if ch.Type == ChartBar || ch.Type == ChartColumn || ch.Type == "" {
		dir := "col"
		if ch.Type == ChartBar {
			dir = "bar"
		}
		x.OTag("+c:barDir").Attr("val", dir).CTag()
		x.OTag("c:grouping").Attr("val", "clustered").CTag()
	}
	if ch.Type == ChartLine {
		x.OTag("+c:grouping").Attr("val", "standard").CTag()
	}

	for i, s := range ch.Series {
		x.OTag("+c:ser")
		x.OTag("+c:idx").Attr("val", i).CTag()
		x.OTag("c:order").Attr("val", i).CTag()

		if s.Title.Range.hasData() {
			x.OTag("c:tx")
			writeCache(x, s.Title.Range, s.Title.cache)
			x.CTag()
		} else if s.Title.Text != "" {
			x.OTag("c:tx")
			x.OTag("+c:v").Write(s.Title.Text).CTag()
			x.CTag()
		}

		if s.Categories.hasData() {
			x.OTag("c:cat")
			writeCache(x, s.Categories, s.categoryCache)
			x.CTag()
		}
		if s.Values.hasData() {
			x.OTag("c:val")
			writeCache(x, s.Values, s.valueCache)
			x.CTag()
		}
		x.CTag() // ser
	}

	if ch.Type != ChartPie {
		x.OTag("+c:axId").Attr("val", 50010001).CTag()
		x.OTag("c:axId").Attr("val", 50010002).CTag()
	}
	x.CTag() // plot tag

	if ch.Type != ChartPie {
		x.OTag("+c:catAx")
		x.OTag("+c:axId").Attr("val", 50010001).CTag()
		x.OTag("c:scaling")
		x.OTag("+c:orientation").Attr("val", "minMax").CTag()
		x.CTag()
		x.OTag("c:delete").Attr("val", 0).CTag()
		x.OTag("c:axPos").Attr("val", "b").CTag()
		x.OTag("c:crossAx").Attr("val", 50010002).CTag()
		x.CTag()

		x.OTag("+c:valAx")
		x.OTag("+c:axId").Attr("val", 50010002).CTag()
		x.OTag("c:scaling")
		x.OTag("+c:orientation").Attr("val", "minMax").CTag()
		x.CTag()
		x.OTag("c:delete").Attr("val", 0).CTag()
		x.OTag("c:axPos").Attr("val", "l").CTag()
		x.OTag("c:crossAx").Attr("val", 50010001).CTag()
		x.CTag()
	}

	x.CTag() // plotArea
	x.OTag("+c:plotVisOnly").Attr("val", 1).CTag()
	x.CTag() // chart
	x.CTag() // chartSpace

	return p.out.WriteBlob(abspath, bb.Bytes())
}

func (p *packager) writeVMLDrawing(sh *Sheet, index int) error {
	abspath := fmt.Sprintf("/xl/drawings/vmlDrawing%d.vml", index)

	vmlRels := map[string]RelInfo{}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})

	x.OTag("xml")
	x.Attr("xmlns:v", "urn:schemas-microsoft-com:vml")
	x.Attr("xmlns:o", "urn:schemas-microsoft-com:office:office")
	x.Attr("xmlns:x", "urn:schemas-microsoft-com:office:excel")

	x.OTag("+v:shapetype")
	x.Attr("id", "_x0000_t75")
	x.Attr("coordsize", "21600,21600")
	x.Attr("o:spt", 75)
	x.Attr("path", "m@4@5l@4@11@9@11@9@5xe")
	x.OTag("+v:stroke").Attr("joinstyle", "miter").CTag()
	x.OTag("v:path").Attr("o:extrusionok", "f").Attr("gradientshapeok", "t").Attr("o:connecttype", "rect").CTag()
	x.CTag()

	for i, image := range sh.headerImages {
		name, err := p.addMedia(image)
		if err != nil {
			return err
		}
		rid := fmt.Sprintf("rId%d", i+1)
		vmlRels[rid] = RelInfo{
			Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image",
			Target: "../media/" + name,
		}

		x.OTag("+v:shape")
		x.Attr("id", "CH")
		x.Attr("type", "#_x0000_t75")
		x.Attr("style", "position:absolute;width:144pt;height:48pt")
		x.OTag("+v:imagedata").Attr("o:relid", rid).Attr("o:title", name).CTag()
		x.CTag()
	}

	x.CTag() // xml

	err := p.out.WriteBlob(abspath, bb.Bytes())
	if err != nil {
		return err
	}

	return p.writeRels(fmt.Sprintf("/xl/drawings/_rels/vmlDrawing%d.vml.rels", index), vmlRels)
}

func (p *packager) writeTables() error {
	for _, sheet := range p.wb.sheets {
		for _, t := range sheet.tables {
			err := p.writeTable(t)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *packager) writeTable(t *Table) error {
	relpath := fmt.Sprintf("tables/table%d.xml", t.id)
	abspath := "/xl/" + relpath

	p.partContentTypes[abspath] = "application/vnd.openxmlformats-officedocument.spreadsheetml.table+xml"

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("table")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/spreadsheetml/2006/main")
	x.Attr("id", t.id)
	x.Attr("name", t.Name)
	x.Attr("displayName", t.Name)
	x.Attr("ref", t.ref())
	if !t.HeaderRow {
		x.Attr("headerRowCount", 0)
	}

	if t.HeaderRow && t.Autofilter {
		x.OTag("+autoFilter").Attr("ref", t.ref()).CTag()
	}

	columns := t.LastCol - t.FirstCol + 1
	x.OTag("+tableColumns").Attr("count", columns)
	for i := 0; i < columns; i++ {
		x.OTag("+tableColumn").Attr("id", i+1).Attr("name", t.columnName(i)).CTag()
	}
	x.CTag()

	x.OTag("+tableStyleInfo")
	x.Attr("name", "TableStyleMedium9")
	x.Attr("showFirstColumn", 0)
	x.Attr("showLastColumn", 0)
	x.Attr("showRowStripes", 1)
	x.Attr("showColumnStripes", 0)
	x.CTag()

	x.CTag() // table

	return p.out.WriteBlob(abspath, bb.Bytes())
}

func (p *packager) writeTheme() error {
	rid := p.nextWorkbookID()

	relpath := "theme/theme1.xml"
	abspath := "/xl/" + relpath

	p.partContentTypes[abspath] = "application/vnd.openxmlformats-officedocument.theme+xml"
	p.workbookRels[rid] = RelInfo{
		Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme",
		Target: relpath,
	}

	return p.out.WriteBlob(abspath, []byte(themeXML))
}

func (p *packager) writeStyles() error {
	rid := p.nextWorkbookID()

	relpath := "styles.xml"
	abspath := "/xl/" + relpath

	p.partContentTypes[abspath] = "application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml"
	p.workbookRels[rid] = RelInfo{
		Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles",
		Target: relpath,
	}

	reg := p.wb.registry

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("styleSheet")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/spreadsheetml/2006/main")

	if len(reg.numFormats) > 0 {
		x.OTag("+numFmts").Attr("count", len(reg.numFormats))
		for i, nf := range reg.numFormats {
			x.OTag("+numFmt")
			x.Attr("numFmtId", userNumFormatBase+i)
			x.Attr("formatCode", nf)
			x.CTag()
		}
		x.CTag()
	}

	x.OTag("+fonts").Attr("count", reg.fontCount)
	for _, f := range reg.xfFormats {
		if !f.firstFont {
			continue
		}
		font := f.font
		x.OTag("+font")
		if font.Bold {
			x.OTag("+b").CTag()
		}
		if font.Italic {
			x.OTag("+i").CTag()
		}
		if font.Strikethrough {
			x.OTag("+strike").CTag()
		}
		if font.Underline != UnderlineNone {
			x.OTag("+u")
			if font.Underline != UnderlineSingle {
				x.Attr("val", string(font.Underline))
			}
			x.CTag()
		}
		size := font.Size
		if size == 0 {
			size = 11
		}
		x.OTag("+sz").Attr("val", size).CTag()
		if font.Color.IsSet() {
			x.OTag("color").Attr("rgb", font.Color.hex()).CTag()
		} else {
			x.OTag("color").Attr("theme", 1).CTag()
		}
		name := font.Name
		if name == "" {
			name = "Calibri"
		}
		x.OTag("name").Attr("val", name).CTag()
		x.OTag("family").Attr("val", 2).CTag()
		if name == "Calibri" {
			x.OTag("scheme").Attr("val", "minor").CTag()
		}
		x.CTag() // font
	}
	x.CTag() // fonts

	x.OTag("+fills").Attr("count", reg.fillCount)
	x.OTag("+fill")
	x.OTag("+patternFill").Attr("patternType", "none").CTag()
	x.CTag()
	x.OTag("fill")
	x.OTag("+patternFill").Attr("patternType", "gray125").CTag()
	x.CTag()
	for _, f := range reg.xfFormats {
		if !f.firstFill {
			continue
		}
		fill := f.fill
		x.OTag("fill")
		x.OTag("+patternFill")
		if fill.Pattern != PatternNone {
			x.Attr("patternType", string(fill.Pattern))
		}
		if fill.Foreground.IsSet() {
			x.OTag("+fgColor").Attr("rgb", fill.Foreground.hex()).CTag()
		}
		if fill.Background.IsSet() {
			x.OTag("bgColor").Attr("rgb", fill.Background.hex()).CTag()
		} else if fill.Foreground.IsSet() {
			x.OTag("bgColor").Attr("indexed", 64).CTag()
		}
		x.CTag()
		x.CTag() // fill
	}
	x.CTag() // fills

	x.OTag("+borders").Attr("count", reg.borderCount)
	for _, f := range reg.xfFormats {
		if !f.firstBorder {
			continue
		}
		border := f.border
		x.OTag("+border")
		writeBorderEdge(x, "left", border.Left)
		writeBorderEdge(x, "right", border.Right)
		writeBorderEdge(x, "top", border.Top)
		writeBorderEdge(x, "bottom", border.Bottom)
		x.OTag("diagonal").CTag()
		x.CTag()
	}
	x.CTag() // borders

	hyperlink := reg.hasHyperlinkStyle()
	styleXfCount := 1
	if hyperlink {
		styleXfCount = 2
	}
	x.OTag("+cellStyleXfs").Attr("count", styleXfCount)
	x.OTag("+xf").Attr("numFmtId", 0).Attr("fontId", 0).Attr("fillId", 0).Attr("borderId", 0).CTag()
	if hyperlink {
		x.OTag("xf")
		x.Attr("numFmtId", 0).Attr("fontId", 1).Attr("fillId", 0).Attr("borderId", 0)
		x.Attr("applyNumberFormat", 0).Attr("applyFill", 0).Attr("applyBorder", 0)
		x.Attr("applyAlignment", 0).Attr("applyProtection", 0)
		x.CTag()
	}
	x.CTag()

	x.OTag("+cellXfs").Attr("count", len(reg.xfFormats))
	for _, f := range reg.xfFormats {
		x.OTag("+xf")
		x.Attr("numFmtId", f.numFmtIndex)
		x.Attr("fontId", f.fontIndex)
		x.Attr("fillId", f.fillIndex)
		x.Attr("borderId", f.borderIndex)
		if f.hyperlink {
			x.Attr("xfId", 1)
		} else {
			x.Attr("xfId", 0)
		}
		if f.numFmtIndex > 0 {
			x.Attr("applyNumberFormat", 1)
		}
		if f.fontIndex > 0 {
			x.Attr("applyFont", 1)
		}
		if f.fillIndex > 1 {
			x.Attr("applyFill", 1)
		}
		if f.borderIndex > 0 {
			x.Attr("applyBorder", 1)
		}
		if f.quotePrefix {
			x.Attr("quotePrefix", 1)
		}
		if f.hasAlignment() {
			x.Attr("applyAlignment", 1)
			x.OTag("+alignment")
			if f.alignH != "" {
				x.Attr("horizontal", string(f.alignH))
			}
			if f.alignV != "" {
				x.Attr("vertical", string(f.alignV))
			}
			if f.wrap {
				x.Attr("wrapText", 1)
			}
			x.CTag()
		}
		x.CTag()
	}
	x.CTag() // cellXfs

	x.OTag("+cellStyles").Attr("count", styleXfCount)
	x.OTag("+cellStyle").Attr("name", "Normal").Attr("xfId", 0).Attr("builtinId", 0).CTag()
	if hyperlink {
		x.OTag("cellStyle").Attr("name", "Hyperlink").Attr("xfId", 1).Attr("builtinId", 8).CTag()
	}
	x.CTag()

	x.OTag("+dxfs").Attr("count", 0).CTag()
	x.OTag("tableStyles")
	x.Attr("count", 0)
	x.Attr("defaultTableStyle", "TableStyleMedium9")
	x.Attr("defaultPivotStyle", "PivotStyleLight16")
	x.CTag()

	x.CTag() // styleSheet

	return p.out.WriteBlob(abspath, bb.Bytes())
}

func writeBorderEdge(x *xml.Writer, tag xml.NameString, edge BorderEdge) {
	x.OTag("+" + tag)
	if edge.Style != BorderNone {
		x.Attr("style", string(edge.Style))
		if edge.Color.IsSet() {
			x.OTag("+color").Attr("rgb", edge.Color.hex()).CTag()
		} else {
			x.OTag("+color").Attr("auto", 1).CTag()
		}
	}
	x.CTag()
}

func (p *packager) writeSharedStrings() error {
	rid := p.nextWorkbookID()

	relpath := "sharedStrings.xml"
	abspath := "/xl/" + relpath

	p.partContentTypes[abspath] = "application/vnd.openxmlformats-officedocument.spreadsheetml.sharedStrings+xml"
	p.workbookRels[rid] = RelInfo{
		Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/sharedStrings",
		Target: relpath,
	}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("sst")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/spreadsheetml/2006/main")
	x.Attr("count", len(p.sharedStrings))
	x.Attr("uniqueCount", len(p.sharedStrings))

	for _, s := range p.sharedStrings {
		x.OTag("+si")
		x.OTag("t").Write(s).CTag()
		x.CTag()
	}

	x.CTag()

	return p.out.WriteBlob(abspath, bb.Bytes())
}

func (p *packager) writeMetadata() error {
	rid := p.nextWorkbookID()

	relpath := "metadata.xml"
	abspath := "/xl/" + relpath

	p.partContentTypes[abspath] = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheetMetadata+xml"
	p.workbookRels[rid] = RelInfo{
		Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/sheetMetadata",
		Target: relpath,
	}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("metadata")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/spreadsheetml/2006/main")
	x.Attr("xmlns:xda", "http://schemas.microsoft.com/office/spreadsheetml/2017/dynamicarray")

	x.OTag("+metadataTypes").Attr("count", 1)
	x.OTag("+metadataType")
	x.Attr("name", "XLDAPR")
	x.Attr("minSupportedVersion", 120000)
	for _, s := range []xml.NameString{"copy", "pasteAll", "pasteValues",
		"merge", "splitFirst", "rowColShift", "clearFormats",
		"clearComments", "assign", "coerce"} {
		x.Attr(s, 1)
	}
	x.Attr("cellMeta", 1)
	x.CTag() // metadataType
	x.CTag() // metadataTypes

	x.OTag("futureMetadata").Attr("name", "XLDAPR").Attr("count", 1)
	x.OTag("+bk")
	x.OTag("extLst")
	x.OTag("ext").Attr("uri", "{bdbb8cdc-fa1e-496e-a857-3c3f30c029c3}")
	x.OTag("xda:dynamicArrayProperties").Attr("fDynamic", 1).Attr("fCollapsed", 0).CTag()
	x.CTag() // ext
	x.CTag() // extLst
	x.CTag() // bk
	x.CTag() // futureMetadata

	x.OTag("cellMetadata").Attr("count", 1)
	x.OTag("+bk")
	x.OTag("rc").Attr("t", 1).Attr("v", 0).CTag()
	x.CTag()
	x.CTag()

	x.CTag() // metadata

	return p.out.WriteBlob(abspath, bb.Bytes())
}

func (p *packager) writeCoreProperties() error {
	rid := p.nextGlobalID()

	relpath := "docProps/core.xml"
	abspath := "/" + relpath

	p.partContentTypes[abspath] = "application/vnd.openxmlformats-package.core-properties+xml"
	p.globalRels[rid] = RelInfo{
		Type:   "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties",
		Target: relpath,
	}

	props := p.opts.properties
	created := props.CreationTime
	if created.IsZero() {
		created = time.Now().UTC()
	}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})

	x.XmlStandaloneDecl()
	x.OTag("cp:coreProperties")
	x.Attr("xmlns:cp", "http://schemas.openxmlformats.org/package/2006/metadata/core-properties")
	x.Attr("xmlns:dc", "http://purl.org/dc/elements/1.1/")
	x.Attr("xmlns:dcterms", "http://purl.org/dc/terms/")
	x.Attr("xmlns:dcmitype", "http://purl.org/dc/dcmitype/")
	x.Attr("xmlns:xsi", "http://www.w3.org/2001/XMLSchema-instance")

	if props.Title != "" {
		x.OTag("+dc:title").Write(props.Title).CTag()
	}
	if props.Subject != "" {
		x.OTag("+dc:subject").Write(props.Subject).CTag()
	}
	if props.Author != "" {
		x.OTag("+dc:creator").Write(props.Author).CTag()
		x.OTag("cp:lastModifiedBy").Write(props.Author).CTag()
	}
	if props.Keywords != "" {
		x.OTag("+cp:keywords").Write(props.Keywords).CTag()
	}
	if props.Comments != "" {
		x.OTag("+dc:description").Write(props.Comments).CTag()
	}

	stamp := created.Format(time.RFC3339)
	x.OTag("+dcterms:created")
	x.Attr("xsi:type", "dcterms:W3CDTF")
	x.Write(stamp)
	x.CTag()
	x.OTag("dcterms:modified")
	x.Attr("xsi:type", "dcterms:W3CDTF")
	x.Write(stamp)
	x.CTag()

	if props.Category != "" {
		x.OTag("+cp:category").Write(props.Category).CTag()
	}

	x.CTag()

	return p.out.WriteBlob(abspath, bb.Bytes())
}

func (p *packager) writeExtendedProperties() error {
	rid := p.nextGlobalID()

	relpath := "docProps/app.xml"
	abspath := "/" + relpath

	p.partContentTypes[abspath] = "application/vnd.openxmlformats-officedocument.extended-properties+xml"
	p.globalRels[rid] = RelInfo{
		Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties",
		Target: relpath,
	}

	opts := p.opts
	props := opts.properties

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("Properties")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/officeDocument/2006/extended-properties")
	x.Attr("xmlns:vt", "http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes")

	x.OTag("+Application").Write(p.wb.AppName).CTag()
	x.OTag("DocSecurity").Write(opts.docSecurity).CTag()
	x.OTag("ScaleCrop").Write("false").CTag()

	x.OTag("HeadingPairs")
	x.OTag("+vt:vector").Attr("size", headingPairCount(opts)).Attr("baseType", "variant")
	x.OTag("+vt:variant")
	x.OTag("+vt:lpstr").Write("Worksheets").CTag()
	x.CTag()
	x.OTag("vt:variant")
	x.OTag("+vt:i4").Write(len(opts.sheetNames)).CTag()
	x.CTag()
	if len(opts.definedNames) > 0 {
		x.OTag("vt:variant")
		x.OTag("+vt:lpstr").Write("Named Ranges").CTag()
		x.CTag()
		x.OTag("vt:variant")
		x.OTag("+vt:i4").Write(len(opts.definedNames)).CTag()
		x.CTag()
	}
	x.CTag() // vector
	x.CTag() // HeadingPairs

	x.OTag("TitlesOfParts")
	x.OTag("+vt:vector")
	x.Attr("size", len(opts.sheetNames)+len(opts.definedNames))
	x.Attr("baseType", "lpstr")
	for _, name := range opts.sheetNames {
		x.OTag("+vt:lpstr").Write(name).CTag()
	}
	for _, name := range opts.definedNames {
		x.OTag("+vt:lpstr").Write(name).CTag()
	}
	x.CTag()
	x.CTag() // TitlesOfParts

	if props.Manager != "" {
		x.OTag("+Manager").Write(props.Manager).CTag()
	}
	if props.Company != "" {
		x.OTag("+Company").Write(props.Company).CTag()
	}

	x.OTag("+LinksUpToDate").Write("false").CTag()
	x.OTag("SharedDoc").Write("false").CTag()
	x.OTag("HyperlinksChanged").Write("false").CTag()
	x.OTag("AppVersion").Write("12.0000").CTag()

	x.CTag() // Properties

	return p.out.WriteBlob(abspath, bb.Bytes())
}

func headingPairCount(opts *packagerOptions) int {
	if len(opts.definedNames) > 0 {
		return 4
	}
	return 2
}

func (p *packager) writeCustomProperties() error {
	rid := p.nextGlobalID()

	relpath := "docProps/custom.xml"
	abspath := "/" + relpath

	p.partContentTypes[abspath] = "application/vnd.openxmlformats-officedocument.custom-properties+xml"
	p.globalRels[rid] = RelInfo{
		Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/custom-properties",
		Target: relpath,
	}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("Properties")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/officeDocument/2006/custom-properties")
	x.Attr("xmlns:vt", "http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes")

	for i, prop := range p.opts.properties.custom {
		x.OTag("+property")
		x.Attr("fmtid", "{D5CDD505-2E9C-101B-9397-08002B2CF9AE}")
		x.Attr("pid", i+2)
		x.Attr("name", prop.Name)
		x.OTag("+vt:lpwstr").Write(prop.Value).CTag()
		x.CTag()
	}

	x.CTag()

	return p.out.WriteBlob(abspath, bb.Bytes())
}

func (p *packager) writeContentTypes() error {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})

	x.XmlStandaloneDecl()
	x.OTag("Types")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/package/2006/content-types")
	enumerate(p.defaultContentTypes, func(ext, ctype string) error {
		x.OTag("+Default").Attr("Extension", ext).Attr("ContentType", ctype).CTag()
		return nil
	})
	enumerate(p.partContentTypes, func(abspath, ctype string) error {
		x.OTag("+Override").Attr("PartName", abspath).Attr("ContentType", ctype).CTag()
		return nil
	})

	x.CTag()

	return p.out.WriteBlob("[Content_Types].xml", bb.Bytes())
}

func (p *packager) writeRels(path string, rels map[string]RelInfo) error {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("Relationships")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/package/2006/relationships")
	err := enumerate(rels, func(rid string, info RelInfo) error {
		x.OTag("+Relationship").Attr("Id", rid).Attr("Type", info.Type).Attr("Target", info.Target)
		if info.Mode != "" {
			x.Attr("TargetMode", info.Mode)
		}
		x.CTag()
		return nil
	})
	if err != nil {
		return err
	}
	x.CTag()

	return p.out.WriteBlob(path, bb.Bytes())
}

func enumerate[M ~map[K]V, K constraints.Ordered, V any](m M, callback func(k K, v V) error) error {
	keys := maps.Keys(m)
	slices.Sort(keys)
	for _, k := range keys {
		err := callback(k, m[k])
		if err != nil {
			return err
		}
	}
	return nil
}
