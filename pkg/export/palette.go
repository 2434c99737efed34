package export

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// DefaultPalette colors categorical values. It is the 20-color palette scanpy
// uses for categories, so labels look the same as in the upstream plots.
var DefaultPalette = []string{
	"#1f77b4", "#ff7f0e", "#279e68", "#d62728", "#aa40fc",
	"#8c564b", "#e377c2", "#b5bd61", "#17becf", "#aec7e8",
	"#ffbb78", "#98df8a", "#ff9896", "#c5b0d5", "#c49c94",
	"#f7b6d2", "#dbdb8d", "#9edae5", "#ad494a", "#8c6d31",
}

// geneStops are the anchor colors of the expression colormap (viridis, low to high).
var geneStops = [][3]float64{
	{68, 1, 84},
	{59, 82, 139},
	{33, 145, 140},
	{94, 201, 98},
	{253, 231, 37},
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// LegendEntry maps one label value to its color.
type LegendEntry struct {
	Value string `json:"value"`
	Color string `json:"color"`
}

// LabelLegend assigns a color to every distinct value. values must be sorted
// and distinct. A valid hex color in overrides wins over the palette; the
// palette repeats when there are more values than colors.
func LabelLegend(values []string, overrides map[string]string) []LegendEntry {
	legend := make([]LegendEntry, len(values))
	for i, v := range values {
		c := DefaultPalette[i%len(DefaultPalette)]
		if o, ok := overrides[v]; ok && hexColor.MatchString(o) {
			c = strings.ToLower(o)
		}
		legend[i] = LegendEntry{Value: v, Color: c}
	}
	return legend
}

// GeneColor maps v onto the expression colormap between lo and hi.
// Values outside the range are clamped; a flat range maps to the low end.
func GeneColor(v, lo, hi float64) string {
	t := 0.0
	if hi > lo {
		t = (v - lo) / (hi - lo)
	}
	t = math.Max(0, math.Min(1, t))
	if !(t >= 0) {
		t = 0 // NaN survives Max/Min
	}

	seg := t * float64(len(geneStops)-1)
	i := int(seg)
	if i >= len(geneStops)-1 {
		i = len(geneStops) - 2
	}
	f := seg - float64(i)

	a, b := geneStops[i], geneStops[i+1]
	var rgb [3]int
	for c := range rgb {
		rgb[c] = int(math.Round(a[c] + (b[c]-a[c])*f))
	}
	return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2])
}
