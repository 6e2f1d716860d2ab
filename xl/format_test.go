package xl

import "testing"

func TestRegistryDeduplicatesFormats(t *testing.T) {
	reg := newFormatRegistry()

	a := NewFormat().SetBold().SetFontSize(14)
	b := NewFormat().SetBold().SetFontSize(14)
	if i, j := reg.register(a), reg.register(b); i != j {
		t.Fatalf("equal formats got distinct indices %d and %d", i, j)
	}

	c := NewFormat().SetItalic()
	if reg.register(c) == reg.register(a) {
		t.Fatalf("distinct formats collapsed to one index")
	}

	if i := reg.register(NewFormat()); i != 0 {
		t.Fatalf("default format index = %d, want 0", i)
	}
}

func TestRegistryResetIsIdempotent(t *testing.T) {
	reg := newFormatRegistry()
	reg.register(NewFormat().SetBold())
	reg.register(NewFormat().SetNumFormat("0.000"))
	reg.prepareSubTables()

	reg.reset()
	if len(reg.xfFormats) != 1 {
		t.Fatalf("after reset: %d formats, want 1", len(reg.xfFormats))
	}
	if reg.numFormats != nil {
		t.Fatalf("after reset: numFormats = %v, want nil", reg.numFormats)
	}

	i := reg.register(NewFormat().SetBold())
	if i != 1 {
		t.Fatalf("first registration after reset = %d, want 1", i)
	}
}

func TestPrepareSubTableCounts(t *testing.T) {
	reg := newFormatRegistry()
	reg.prepareSubTables()

	// A default-only registry still carries the mandatory entries: one font,
	// the two fixed fills and the empty border.
	if reg.fontCount != 1 {
		t.Errorf("fontCount = %d, want 1", reg.fontCount)
	}
	if reg.fillCount != 2 {
		t.Errorf("fillCount = %d, want 2", reg.fillCount)
	}
	if reg.borderCount != 1 {
		t.Errorf("borderCount = %d, want 1", reg.borderCount)
	}
}

func TestFillNormalization(t *testing.T) {
	// A background color without a pattern becomes a solid fill with the
	// color stored as foreground.
	reg := newFormatRegistry()
	i := reg.register(NewFormat().SetBackgroundColor(ColorYellow))
	reg.prepareSubTables()
	fill := reg.xfFormats[i].fill
	if fill.Pattern != PatternSolid {
		t.Errorf("pattern = %q, want solid", fill.Pattern)
	}
	if fill.Foreground != ColorYellow {
		t.Errorf("foreground = %v, want yellow", fill.Foreground)
	}
	if fill.Background.IsSet() {
		t.Errorf("background still set after normalization")
	}

	// A solid fill with both colors swaps their roles.
	reg = newFormatRegistry()
	i = reg.register(NewFormat().
		SetPattern(PatternSolid).
		SetForegroundColor(ColorRed).
		SetBackgroundColor(ColorBlue))
	reg.prepareSubTables()
	fill = reg.xfFormats[i].fill
	if fill.Foreground != ColorBlue || fill.Background != ColorRed {
		t.Errorf("solid fill colors not swapped: fg=%v bg=%v", fill.Foreground, fill.Background)
	}

	// A foreground color alone implies a solid pattern.
	reg = newFormatRegistry()
	i = reg.register(NewFormat().SetForegroundColor(ColorGreen))
	reg.prepareSubTables()
	if reg.xfFormats[i].fill.Pattern != PatternSolid {
		t.Errorf("foreground-only fill did not become solid")
	}
}

func TestNumberFormatIndices(t *testing.T) {
	reg := newFormatRegistry()
	user1 := reg.register(NewFormat().SetNumFormat("0.000"))
	user2 := reg.register(NewFormat().SetNumFormat("yyyy-mm-dd"))
	again := reg.register(NewFormat().SetBold().SetNumFormat("0.000"))
	builtin := reg.register(NewFormat().SetNumFormatID(4))
	reg.prepareSubTables()

	if got := reg.xfFormats[user1].numFmtIndex; got != 164 {
		t.Errorf("first user format id = %d, want 164", got)
	}
	if got := reg.xfFormats[user2].numFmtIndex; got != 165 {
		t.Errorf("second user format id = %d, want 165", got)
	}
	if got := reg.xfFormats[again].numFmtIndex; got != 164 {
		t.Errorf("repeated format string id = %d, want 164", got)
	}
	if got := reg.xfFormats[builtin].numFmtIndex; got != 4 {
		t.Errorf("built-in format id = %d, want 4", got)
	}
	if len(reg.numFormats) != 2 {
		t.Errorf("numFormats = %v, want 2 entries", reg.numFormats)
	}
}

func TestInjectHyperlinkStyle(t *testing.T) {
	reg := newFormatRegistry()
	reg.injectHyperlinkStyle()

	if len(reg.xfFormats) != 2 {
		t.Fatalf("format count = %d, want 2", len(reg.xfFormats))
	}
	if !reg.xfFormats[1].hyperlink {
		t.Fatalf("index 1 is not the hyperlink style")
	}
	if !reg.hasHyperlinkStyle() {
		t.Fatalf("hasHyperlinkStyle = false after injection")
	}

	// Registering the hyperlink format again resolves to the reserved slot.
	if i := reg.register(NewFormat().SetHyperlink()); i != 1 {
		t.Fatalf("hyperlink format registered at %d, want 1", i)
	}
}

func TestFormatBuildersDoNotMutateReceiver(t *testing.T) {
	base := NewFormat().SetBold()
	derived := base.SetItalic()

	if base.font.Italic {
		t.Fatalf("SetItalic mutated the receiver")
	}
	if !derived.font.Bold || !derived.font.Italic {
		t.Fatalf("derived format lost builder state")
	}
	if base.key() == derived.key() {
		t.Fatalf("distinct formats share a key")
	}
}
