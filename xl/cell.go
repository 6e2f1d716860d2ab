package xl

import "strconv"

type Cell struct {
	row          *Row
	columnNumber int // 1-based
	coord        string
	typ          CellType
	v            string
	xf           int // index into the sheet local format table
	formula      string
	arrayRange   string // set for dynamic array formulas
	url          string
}

// CellType is the type of cell value type.
type CellType int

// Cell value types enumeration.
const (
	CellTypeUnset CellType = iota
	CellTypeBool
	CellTypeError
	CellTypeFormula
	CellTypeNumber
	CellTypeSharedString
)

func (c *Cell) SetBool(v bool) *Cell {
	c.typ = CellTypeBool
	if v {
		c.v = "1"
	} else {
		c.v = "0"
	}
	return c
}

func (c *Cell) SetInt(v int64) *Cell {
	c.typ = CellTypeNumber
	c.v = strconv.FormatInt(v, 10)
	return c
}

func (c *Cell) SetFloat(v float64) *Cell {
	c.typ = CellTypeNumber
	c.v = strconv.FormatFloat(v, 'g', -1, 64)
	return c
}

func (c *Cell) SetStr(v string) *Cell {
	c.typ = CellTypeSharedString
	c.v = v
	c.row.sheet.usesStringTable = true
	return c
}

// SetFormula writes a formula. The leading "=" is optional and stripped.
func (c *Cell) SetFormula(formula string) *Cell {
	c.typ = CellTypeFormula
	c.formula = trimFormula(formula)
	c.v = "0" // placeholder result, recalculated on load
	return c
}

// SetDynamicFormula writes a dynamic array formula that spills into the
// given range, for example "A1:A5". Triggers the metadata part on save.
func (c *Cell) SetDynamicFormula(formula, spillRange string) *Cell {
	c.SetFormula(formula)
	c.arrayRange = spillRange
	if c.arrayRange == "" {
		c.arrayRange = c.coord
	}
	c.row.sheet.hasDynamicArrays = true
	return c
}

// SetURL writes a hyperlink with the URL as the display text. The cell gets
// the standard hyperlink style.
func (c *Cell) SetURL(url string) *Cell {
	return c.SetURLWithText(url, url)
}

// SetURLWithText writes a hyperlink with custom display text.
func (c *Cell) SetURLWithText(url, text string) *Cell {
	c.SetStr(text)
	c.url = url
	sheet := c.row.sheet
	sheet.hasHyperlinkStyle = true
	c.xf = sheet.formatIndex(NewFormat().SetHyperlink())
	return c
}

// SetFormat registers the format in the sheet local style table and points
// the cell at it. The local index is rewritten to the workbook global index
// during save.
func (c *Cell) SetFormat(f Format) *Cell {
	sheet := c.row.sheet
	if f.hyperlink {
		sheet.hasHyperlinkStyle = true
	}
	c.xf = sheet.formatIndex(f)
	return c
}

func trimFormula(formula string) string {
	if len(formula) > 0 && formula[0] == '=' {
		return formula[1:]
	}
	return formula
}
