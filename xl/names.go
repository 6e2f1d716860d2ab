package xl

import (
	"fmt"
	"strings"
)

// definedNameType distinguishes user defined names from the structural names
// synthesized by sheets for autofilters and print settings.
type definedNameType int

const (
	definedNameGlobal definedNameType = iota
	definedNameLocal
	definedNameAutofilter
	definedNamePrintArea
	definedNamePrintTitles
)

// DefinedName is a named formula or cell range, either global to the
// workbook or local to one sheet.
type DefinedName struct {
	name            string
	nameType        definedNameType
	sortName        string
	rangeText       string
	quotedSheetName string
	sheetIndex      int
}

// Name returns the name as stored in the workbook, including the "_xlnm."
// prefix for structural names.
func (d *DefinedName) Name() string {
	switch d.nameType {
	case definedNameAutofilter:
		return "_xlnm._FilterDatabase"
	case definedNamePrintArea:
		return "_xlnm.Print_Area"
	case definedNamePrintTitles:
		return "_xlnm.Print_Titles"
	default:
		return d.name
	}
}

// RangeText returns the formula or range the name refers to, without a
// leading "=".
func (d *DefinedName) RangeText() string { return d.rangeText }

// IsGlobal reports whether the name has workbook scope.
func (d *DefinedName) IsGlobal() bool { return d.nameType == definedNameGlobal }

// SheetIndex returns the 0-based index of the owning sheet for local names.
func (d *DefinedName) SheetIndex() int { return d.sheetIndex }

// setSortName derives the key Excel sorts defined names by: the stored name
// with the structural "_xlnm." prefix removed.
func (d *DefinedName) setSortName() {
	d.sortName = strings.TrimPrefix(d.Name(), "_xlnm.")
}

// unquotedSheetName strips the Excel single-quote convention from the sheet
// reference, so "'New Data'" resolves against the sheet named "New Data".
func (d *DefinedName) unquotedSheetName() string {
	s := d.quotedSheetName
	if strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'") && len(s) > 1 {
		s = strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}

// initialize binds a structural name to its owning sheet by prefixing the
// stored range with the quoted sheet name.
func (d *DefinedName) initialize(quotedSheetName string) {
	d.quotedSheetName = quotedSheetName
	d.rangeText = quotedSheetName + "!" + d.rangeText
	d.setSortName()
}

// appName returns the form of the name exported to the document metadata
// (app.xml "Named Ranges" section), or "" when the name is not exported.
func (d *DefinedName) appName() string {
	switch d.nameType {
	case definedNameGlobal:
		return d.name
	case definedNameLocal:
		return d.quotedSheetName + "!" + d.name
	case definedNameAutofilter:
		return d.quotedSheetName + "!_FilterDatabase"
	case definedNamePrintArea:
		return d.quotedSheetName + "!Print_Area"
	case definedNamePrintTitles:
		return d.quotedSheetName + "!Print_Titles"
	}
	return ""
}

// parseDefinedName splits a user supplied name on the first "!" into an
// optional quoted sheet scope and the name proper, and validates the name
// against the Excel naming rules.
func parseDefinedName(name, formula string) (DefinedName, error) {
	d := DefinedName{}

	if pos := strings.Index(name, "!"); pos >= 0 {
		d.quotedSheetName = name[:pos]
		d.name = name[pos+1:]
		d.nameType = definedNameLocal
	} else {
		d.name = name
		d.nameType = definedNameGlobal
	}

	// The name must start with a letter or underscore. A leading backslash
	// is also allowed but undocumented by Excel.
	if d.name == "" || !isNameStart(rune(d.name[0])) {
		return d, &ParameterError{
			Msg: fmt.Sprintf("name %q must start with a letter or underscore", d.name),
		}
	}

	if strings.ContainsAny(d.name, " ,/*[]:\"'") {
		return d, &ParameterError{
			Msg: fmt.Sprintf("name %q cannot contain a space or any of the characters ,/*[]:\"'", d.name),
		}
	}

	d.rangeText = strings.TrimPrefix(formula, "=")
	d.setSortName()

	return d, nil
}

func isNameStart(r rune) bool {
	return r == '_' || r == '\\' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r >= 0x80
}

// quoteSheetName applies the Excel convention of single-quoting sheet names
// that contain spaces or other characters with syntactic meaning in formulas.
func quoteSheetName(name string) string {
	if name == "" || !strings.ContainsAny(name, " !$%&'()+,-;<=>@^{}~\"#") {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
