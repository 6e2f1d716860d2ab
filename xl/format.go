package xl

import (
	"fmt"
	"strings"
)

// Color is an RGB cell color. The zero value means "not set", which lets
// formats distinguish an explicit black from an absent color.
type Color struct {
	rgb uint32
	set bool
}

// RGB creates a color from a 0xRRGGBB value.
func RGB(v uint32) Color {
	return Color{rgb: v & 0xFFFFFF, set: true}
}

// Predefined colors.
var (
	ColorBlack  = RGB(0x000000)
	ColorWhite  = RGB(0xFFFFFF)
	ColorRed    = RGB(0xFF0000)
	ColorGreen  = RGB(0x008000)
	ColorBlue   = RGB(0x0000FF)
	ColorYellow = RGB(0xFFFF00)
	ColorGray   = RGB(0x808080)
)

// IsSet reports whether the color was explicitly assigned.
func (c Color) IsSet() bool { return c.set }

// hex returns the ARGB form used in styles.xml.
func (c Color) hex() string { return fmt.Sprintf("FF%06X", c.rgb) }

func (c Color) key() string {
	if !c.set {
		return "-"
	}
	return fmt.Sprintf("%06X", c.rgb)
}

// Pattern is a fill pattern type (ST_PatternType).
type Pattern string

const (
	PatternNone       Pattern = ""
	PatternSolid      Pattern = "solid"
	PatternGray125    Pattern = "gray125"
	PatternMediumGray Pattern = "mediumGray"
	PatternDarkGray   Pattern = "darkGray"
	PatternLightGray  Pattern = "lightGray"
)

// UnderlineType represents the type of underline formatting (ST_UnderlineValues).
type UnderlineType string

const (
	UnderlineNone             UnderlineType = ""
	UnderlineSingle           UnderlineType = "single"
	UnderlineDouble           UnderlineType = "double"
	UnderlineSingleAccounting UnderlineType = "singleAccounting"
	UnderlineDoubleAccounting UnderlineType = "doubleAccounting"
)

// Font holds the font properties of a format. The zero value is the default
// workbook font (Calibri 11).
type Font struct {
	Name          string
	Size          float64
	Bold          bool
	Italic        bool
	Underline     UnderlineType
	Strikethrough bool
	Color         Color
}

func (f Font) key() string {
	return fmt.Sprintf("%s|%g|%t|%t|%s|%t|%s",
		f.Name, f.Size, f.Bold, f.Italic, f.Underline, f.Strikethrough, f.Color.key())
}

// Fill holds the pattern fill properties of a format.
type Fill struct {
	Pattern    Pattern
	Foreground Color
	Background Color
}

func (f Fill) key() string {
	return fmt.Sprintf("%s|%s|%s", f.Pattern, f.Foreground.key(), f.Background.key())
}

// BorderStyle is a cell border line style (ST_BorderStyle).
type BorderStyle string

const (
	BorderNone   BorderStyle = ""
	BorderThin   BorderStyle = "thin"
	BorderMedium BorderStyle = "medium"
	BorderThick  BorderStyle = "thick"
	BorderDashed BorderStyle = "dashed"
	BorderDotted BorderStyle = "dotted"
	BorderDouble BorderStyle = "double"
)

// BorderEdge is one side of a cell border.
type BorderEdge struct {
	Style BorderStyle
	Color Color
}

func (e BorderEdge) key() string {
	return string(e.Style) + "/" + e.Color.key()
}

// Border holds the four border edges of a format.
type Border struct {
	Left   BorderEdge
	Right  BorderEdge
	Top    BorderEdge
	Bottom BorderEdge
}

func (b Border) key() string {
	return strings.Join([]string{
		b.Left.key(), b.Right.key(), b.Top.key(), b.Bottom.key(),
	}, "|")
}

func (b Border) isDefault() bool { return b == Border{} }

// Alignment values for SetAlign/SetVerticalAlign.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
	AlignTop    Align = "top"
	AlignMiddle Align = "center" // vertical
	AlignBottom Align = "bottom"
)

// Format is an immutable cell format value. Builder methods return a modified
// copy so formats can be composed and reused freely; two formats with equal
// field values collapse to a single style table entry at save time.
//
// A Format carries no index of its own. Indices into the global style table
// and its font/fill/border/numFmt sub-tables are assigned by the workbook
// during save and are meaningless before that.
type Format struct {
	font        Font
	fill        Fill
	border      Border
	numFormat   string
	numFormatID int // built-in number format id, when non-zero
	alignH      Align
	alignV      Align
	wrap        bool
	quotePrefix bool
	hyperlink   bool

	// Sub-table indices, valid only between style reconciliation and
	// emission of the current save.
	fontIndex   int
	fillIndex   int
	borderIndex int
	numFmtIndex int
	firstFont   bool
	firstFill   bool
	firstBorder bool
}

// NewFormat creates a default cell format.
func NewFormat() Format { return Format{} }

// key returns a canonical serialization of every authored field. It is the
// structural identity used for deduplication and must be stable across runs.
func (f Format) key() string {
	return strings.Join([]string{
		f.font.key(), f.fill.key(), f.border.key(),
		f.numFormat, fmt.Sprint(f.numFormatID),
		string(f.alignH), string(f.alignV),
		fmt.Sprintf("%t%t%t", f.wrap, f.quotePrefix, f.hyperlink),
	}, "#")
}

func (f Format) SetBold() Format {
	f.font.Bold = true
	return f
}

func (f Format) SetItalic() Format {
	f.font.Italic = true
	return f
}

func (f Format) SetUnderline(u UnderlineType) Format {
	f.font.Underline = u
	return f
}

func (f Format) SetStrikethrough() Format {
	f.font.Strikethrough = true
	return f
}

func (f Format) SetFontName(name string) Format {
	f.font.Name = name
	return f
}

func (f Format) SetFontSize(size float64) Format {
	f.font.Size = size
	return f
}

func (f Format) SetFontColor(c Color) Format {
	f.font.Color = c
	return f
}

func (f Format) SetPattern(p Pattern) Format {
	f.fill.Pattern = p
	return f
}

func (f Format) SetForegroundColor(c Color) Format {
	f.fill.Foreground = c
	return f
}

func (f Format) SetBackgroundColor(c Color) Format {
	f.fill.Background = c
	return f
}

// SetBorder applies the same line style to all four border edges.
func (f Format) SetBorder(style BorderStyle) Format {
	edge := BorderEdge{Style: style}
	f.border = Border{Left: edge, Right: edge, Top: edge, Bottom: edge}
	return f
}

func (f Format) SetBorderColor(c Color) Format {
	f.border.Left.Color = c
	f.border.Right.Color = c
	f.border.Top.Color = c
	f.border.Bottom.Color = c
	return f
}

// SetNumFormat sets a user defined number format string such as "0.000" or
// "yyyy-mm-dd". User defined formats are assigned ids from 164 upward during
// save, in first-seen order.
func (f Format) SetNumFormat(format string) Format {
	f.numFormat = format
	f.numFormatID = 0
	return f
}

// SetNumFormatID sets one of the built-in Excel number format ids (0-163).
func (f Format) SetNumFormatID(id int) Format {
	f.numFormatID = id
	f.numFormat = ""
	return f
}

func (f Format) SetAlign(a Align) Format {
	f.alignH = a
	return f
}

func (f Format) SetVerticalAlign(a Align) Format {
	f.alignV = a
	return f
}

func (f Format) SetTextWrap() Format {
	f.wrap = true
	return f
}

// SetQuotePrefix marks the cell so Excel treats a leading value character such
// as "=" as literal text rather than the start of a formula.
func (f Format) SetQuotePrefix() Format {
	f.quotePrefix = true
	return f
}

// SetHyperlink gives the format the standard Excel hyperlink appearance.
// Cells written with a URL get this style implicitly.
func (f Format) SetHyperlink() Format {
	f.hyperlink = true
	f.font.Underline = UnderlineSingle
	f.font.Color = RGB(0x0563C1)
	return f
}

func (f Format) hasAlignment() bool {
	return f.alignH != "" || f.alignV != "" || f.wrap
}
