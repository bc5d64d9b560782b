// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package charts

import "strings"

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders values scaled to top as block characters; gaps are
// spaces.
func Sparkline(values []*float64, top float64) string {
	if top <= 0 {
		top = 1
	}
	var b strings.Builder
	for _, v := range values {
		if v == nil {
			b.WriteRune(' ')
			continue
		}
		i := int(*v / top * float64(len(sparkRunes)-1))
		b.WriteRune(sparkRunes[min(max(i, 0), len(sparkRunes)-1)])
	}
	return b.String()
}

// Latest returns the last non-nil value of a series.
func Latest(values []*float64) (float64, bool) {
	for i := len(values) - 1; i >= 0; i-- {
		if values[i] != nil {
			return *values[i], true
		}
	}
	return 0, false
}
