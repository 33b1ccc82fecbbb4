package presence

// paletteEntry pairs a display color with its hue so clients can
// derive tinted variants without parsing the color string.
type paletteEntry struct {
	Color string
	Hue   int
}

// defaultPalette is fixed at startup; color assignment depends on its
// length, so changing it mid-process would break color stability.
var defaultPalette = []paletteEntry{
	{"#f43f5e", 350}, // rose
	{"#f97316", 25},  // orange
	{"#f59e0b", 38},  // amber
	{"#84cc16", 84},  // lime
	{"#10b981", 160}, // emerald
	{"#06b6d4", 188}, // cyan
	{"#3b82f6", 217}, // blue
	{"#8b5cf6", 258}, // violet
	{"#d946ef", 292}, // fuchsia
	{"#ec4899", 330}, // pink
}

// colorFor maps a connection id onto the palette with a 31-multiplier
// polynomial hash truncated to 32 bits. Same id, same entry for the
// process lifetime; collisions between different ids are acceptable.
func colorFor(id string, palette []paletteEntry) paletteEntry {
	var h int32
	for _, c := range id {
		h = h*31 + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return palette[v%int64(len(palette))]
}
