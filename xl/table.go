package xl

import "fmt"

// Table is a worksheet table: a structured range with a header row and an
// optional autofilter. Table names must be unique in the workbook
// (case-insensitive); the collision check runs at save time.
type Table struct {
	Name       string
	FirstRow   int // 1-based
	FirstCol   int
	LastRow    int
	LastCol    int
	Columns    []string
	HeaderRow  bool
	Autofilter bool

	id int // sequential table part number, assigned per save
}

// SetColumns overrides the default "Column1".."ColumnN" header captions.
func (t *Table) SetColumns(captions []string) *Table {
	t.Columns = captions
	return t
}

// SetAutofilter toggles the filter buttons on the table header row.
func (t *Table) SetAutofilter(on bool) *Table {
	t.Autofilter = on
	return t
}

// columnName returns the caption of the i-th (0-based) table column.
func (t *Table) columnName(i int) string {
	if i < len(t.Columns) && t.Columns[i] != "" {
		return t.Columns[i]
	}
	return fmt.Sprintf("Column%d", i+1)
}

func (t *Table) ref() string {
	return areaRef(t.FirstCol, t.FirstRow, t.LastCol, t.LastRow)
}
