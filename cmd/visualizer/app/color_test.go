package app

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	testCases := []struct {
		input    string
		expected color.RGBA
	}{
		{"white", color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}},
		{"Blue", color.RGBA{B: 0xff, A: 0xff}},
		{"#ff8000", color.RGBA{R: 0xff, G: 0x80, A: 0xff}},
		{"00ff00", color.RGBA{G: 0xff, A: 0xff}},
		{"#f00", color.RGBA{R: 0xff, A: 0xff}},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			c, err := parseColor(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, c)
		})
	}

	_, err := parseColor("chartreuse-ish")
	assert.Error(t, err)
}

func TestColorMapper_Clamps(t *testing.T) {
	cm := NewColorMapperWithSize(ClassicTheme, 0, 10, 16)

	assert.Equal(t, cm.Color(0), cm.Color(-5))
	assert.Equal(t, cm.Color(10), cm.Color(100))
	assert.NotEqual(t, cm.Color(0), cm.Color(10))
}

func TestColorMapper_EmptyRange(t *testing.T) {
	cm := NewColorMapper(ClassicTheme, 0, 0)
	assert.Equal(t, cm.Color(1), cm.Color(0))
}

func TestColorThemes_Opaque(t *testing.T) {
	for theme := range validBarThemes {
		t.Run(string(theme), func(t *testing.T) {
			cm := NewColorMapperWithSize(theme, 0, 1, 8)
			for _, v := range []float64{0, 0.3, 0.6, 1} {
				assert.Equal(t, uint8(0xff), cm.Color(v).A)
			}
		})
	}
}
