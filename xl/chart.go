package xl

import "strconv"

// ChartType selects the plot family of a chart part.
type ChartType string

const (
	ChartBar    ChartType = "bar"
	ChartColumn ChartType = "col"
	ChartLine   ChartType = "line"
	ChartPie    ChartType = "pie"
)

// ChartRange is a reference to a worksheet cell range used by a chart
// element. The referenced sheet may differ from the sheet holding the chart.
// Rows and columns are 1-based.
type ChartRange struct {
	Sheet    string
	FirstRow int
	FirstCol int
	LastRow  int
	LastCol  int
}

// NewChartRange creates a range reference like ("Sheet1", 1, 1, 5, 1) for
// Sheet1!$A$1:$A$5.
func NewChartRange(sheet string, firstRow, firstCol, lastRow, lastCol int) ChartRange {
	return ChartRange{
		Sheet:    sheet,
		FirstRow: firstRow,
		FirstCol: firstCol,
		LastRow:  lastRow,
		LastCol:  lastCol,
	}
}

func (r ChartRange) hasData() bool {
	return r.Sheet != "" && r.FirstRow > 0 && r.FirstCol > 0
}

// chartRangeKey identifies a range for cache sharing: chart elements that
// reference the identical key receive the identical resolved cache.
type chartRangeKey struct {
	sheet    string
	firstRow int
	firstCol int
	lastRow  int
	lastCol  int
}

func (r ChartRange) key() chartRangeKey {
	return chartRangeKey{r.Sheet, r.FirstRow, r.FirstCol, r.LastRow, r.LastCol}
}

// formula returns the reference in formula form, "'Sheet 1'!$A$1:$A$5".
func (r ChartRange) formula() string {
	ref := quoteSheetName(r.Sheet) + "!" +
		"$" + ColumnNumberAsLetters(r.FirstCol) + "$" + strconv.Itoa(r.FirstRow)
	if r.LastRow != r.FirstRow || r.LastCol != r.FirstCol {
		ref += ":$" + ColumnNumberAsLetters(r.LastCol) + "$" + strconv.Itoa(r.LastRow)
	}
	return ref
}

// ChartSeriesCacheData holds the literal values resolved from a chart range,
// written into the chart part so third-party consumers can render the chart
// without recalculating worksheet data.
type ChartSeriesCacheData struct {
	IsNumeric bool
	Values    []string
}

func (c *ChartSeriesCacheData) hasData() bool { return len(c.Values) > 0 }

// ChartTitle is a static or range-sourced title used by charts, axes and
// custom data labels.
type ChartTitle struct {
	Text  string
	Range ChartRange

	cache *ChartSeriesCacheData
}

// SetText sets a literal title.
func (t *ChartTitle) SetText(text string) { t.Text = text }

// SetRange sources the title from a worksheet cell range.
func (t *ChartTitle) SetRange(r ChartRange) { t.Range = r }

// ChartDataLabel is a custom data label on a series point.
type ChartDataLabel struct {
	Title ChartTitle
}

// ChartSeries is one plotted series of a chart.
type ChartSeries struct {
	Title      ChartTitle
	Values     ChartRange
	Categories ChartRange
	DataLabels []*ChartDataLabel

	valueCache    *ChartSeriesCacheData
	categoryCache *ChartSeriesCacheData
}

// AddDataLabel appends a custom data label to the series.
func (s *ChartSeries) AddDataLabel() *ChartDataLabel {
	l := &ChartDataLabel{}
	s.DataLabels = append(s.DataLabels, l)
	return l
}

// Chart is a chart attached to a worksheet. Only the structural skeleton and
// the cached range values are emitted; rendering detail is left to the
// consuming application.
type Chart struct {
	Type   ChartType
	Title  ChartTitle
	XAxis  ChartTitle
	YAxis  ChartTitle
	Series []*ChartSeries

	id int // sequential chart part number, assigned per save
}

// NewChart creates a chart of the given type.
func NewChart(t ChartType) *Chart {
	return &Chart{Type: t}
}

// AddSeries appends an empty series to the chart.
func (c *Chart) AddSeries() *ChartSeries {
	s := &ChartSeries{}
	c.Series = append(c.Series, s)
	return s
}

// cacheSlot pairs a range reference with the destination its resolved cache
// is fanned out to.
type cacheSlot struct {
	rng  ChartRange
	dest **ChartSeriesCacheData
}

// cacheSlots enumerates every range-bearing element of the chart: the chart
// title, both axis titles, and for each series its title, value range,
// category range and custom data label titles.
func (c *Chart) cacheSlots() []cacheSlot {
	var slots []cacheSlot
	add := func(rng ChartRange, dest **ChartSeriesCacheData) {
		if rng.hasData() {
			slots = append(slots, cacheSlot{rng, dest})
		}
	}

	add(c.Title.Range, &c.Title.cache)
	add(c.XAxis.Range, &c.XAxis.cache)
	add(c.YAxis.Range, &c.YAxis.cache)

	for _, s := range c.Series {
		add(s.Title.Range, &s.Title.cache)
		add(s.Values, &s.valueCache)
		add(s.Categories, &s.categoryCache)
		for _, l := range s.DataLabels {
			add(l.Title.Range, &l.Title.cache)
		}
	}
	return slots
}

// reset clears save-scoped chart state.
func (c *Chart) reset() {
	c.id = 0
	c.Title.cache = nil
	c.XAxis.cache = nil
	c.YAxis.cache = nil
	for _, s := range c.Series {
		s.Title.cache = nil
		s.valueCache = nil
		s.categoryCache = nil
		for _, l := range s.DataLabels {
			l.Title.cache = nil
		}
	}
}
