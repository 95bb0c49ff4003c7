package fonts

// Advance widths of the Helvetica base font for character codes 32..126,
// in 1000-unit glyph space, from the AFM that ships with every PDF reader.
var helveticaWidths = [95]int{
	278, 278, 355, 556, 556, 889, 667, 222, 333, 333, 389, 584, 278, 333, 278, 278,
	556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556,
	1015, 667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, 722, 778,
	667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556,
	222, 556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, 556, 556,
	556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584,
}

// HelveticaWidth measures ASCII text in points at the given size using the
// built-in Helvetica metrics. Characters outside 32..126 count as an em/2.
func HelveticaWidth(text string, fontSize float64) float64 {
	var total int
	for _, r := range text {
		if r >= 32 && r <= 126 {
			total += helveticaWidths[r-32]
		} else {
			total += 500
		}
	}
	return float64(total) / 1000 * fontSize
}
