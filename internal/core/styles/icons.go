package styles

var (
	IconExpanded  = "▾"
	IconCollapsed = "▸"
	IconSearch    = "⌕"
	IconLoading   = "…"
)

// Scrollbar glyphs
var (
	GlyphScrollTrack = "│"
	GlyphScrollThumb = "┃"
)
