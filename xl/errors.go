package xl

import (
	"errors"
	"fmt"
)

// ErrUnknownSheet indicates a sheet lookup by a name or index that does not
// exist in the workbook.
var ErrUnknownSheet = errors.New("unknown sheet name or index")

// ParameterError reports an invalid user supplied parameter, such as a
// malformed defined name or a local defined name that references a sheet
// missing from the workbook at save time.
type ParameterError struct {
	Msg string
}

func (e *ParameterError) Error() string {
	return "parameter error: " + e.Msg
}

// SheetNameReusedError reports two sheets sharing the same name. Sheet names
// must be unique within a workbook; the collision is detected during save,
// before any output is written.
type SheetNameReusedError struct {
	Name string
}

func (e *SheetNameReusedError) Error() string {
	return fmt.Sprintf("sheet name %q is already in use", e.Name)
}

// TableNameReusedError reports two tables sharing the same name. Table name
// comparison is case-insensitive, matching Excel.
type TableNameReusedError struct {
	Name string
}

func (e *TableNameReusedError) Error() string {
	return fmt.Sprintf("table name %q is already in use", e.Name)
}
