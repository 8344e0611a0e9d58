package tui

// glyphs are the symbols used for chrome. The ascii set is for terminals
// without good unicode fonts (tui.glyphs: ascii).
type glyphs struct {
	cursor   string
	grabbed  string
	bullet   string
	barFull  string
	barEmpty string
	locked   string
}

var unicodeGlyphs = glyphs{
	cursor:   "›",
	grabbed:  "✋",
	bullet:   "•",
	barFull:  "█",
	barEmpty: "░",
	locked:   "🔒",
}

var asciiGlyphs = glyphs{
	cursor:   ">",
	grabbed:  "*",
	bullet:   "-",
	barFull:  "#",
	barEmpty: ".",
	locked:   "(ro)",
}

func glyphsFor(ascii bool) glyphs {
	if ascii {
		return asciiGlyphs
	}
	return unicodeGlyphs
}

// progressBar renders pct (0..100) as a bar of width cells.
func (g glyphs) progressBar(pct, width int) string {
	if width <= 0 {
		return ""
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	full := pct * width / 100
	out := ""
	for i := 0; i < width; i++ {
		if i < full {
			out += g.barFull
		} else {
			out += g.barEmpty
		}
	}
	return out
}
