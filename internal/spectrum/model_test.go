package spectrum

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	doc := `{
		"freqs": [0, 100, 200],
		"channel_1": [
			{"begin": 0, "spectrum": [1, -5, 2]},
			{"begin": "00:00.050", "spectrum": [0.5, 0.25, 0]}
		]
	}`

	d, err := Load(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, 3, d.BinCount())
	assert.Equal(t, 2, d.FrameCount())
	assert.Equal(t, Label("0"), d.Channel1[0].Begin)
	assert.Equal(t, Label("00:00.050"), d.Channel1[1].Begin)
	assert.Equal(t, []float64{1, -5, 2}, d.Channel1[0].Spectrum)
}

func TestLoad_Malformed(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
	}{
		{"not json", `{"freqs": [`},
		{"missing freqs", `{"channel_1": []}`},
		{"missing channel", `{"freqs": [1, 2]}`},
		{"missing spectrum", `{"freqs": [1, 2], "channel_1": [{"begin": 0}]}`},
		{"short spectrum", `{"freqs": [1, 2], "channel_1": [{"begin": 0, "spectrum": [1]}]}`},
		{"long spectrum", `{"freqs": [1], "channel_1": [{"begin": 0, "spectrum": [1, 2]}]}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tc.doc))
			assert.ErrorIs(t, err, ErrMalformedDataset)
		})
	}
}

func TestLoad_MalformedFrameError(t *testing.T) {
	doc := `{"freqs": [1, 2, 3], "channel_1": [
		{"begin": 0, "spectrum": [1, 2, 3]},
		{"begin": 1, "spectrum": [1, 2]}
	]}`

	_, err := Load(strings.NewReader(doc))

	var frameErr *MalformedFrameError
	require.ErrorAs(t, err, &frameErr)
	assert.Equal(t, 1, frameErr.Index)
	assert.Equal(t, 2, frameErr.Got)
	assert.Equal(t, 3, frameErr.Want)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spectrum.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"freqs": [5], "channel_1": [{"begin": 12.5, "spectrum": [3]}]}`), 0o644))

	d, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Label("12.5"), d.Channel1[0].Begin)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLabel_JSON(t *testing.T) {
	testCases := []struct {
		label    Label
		expected string
	}{
		{"150", `150`},
		{"0.5", `0.5`},
		{"00:01", `"00:01"`},
		{"", `""`},
		{"-3", `-3`},
		{"1e3", `1e3`},
		{".5", `".5"`},
		{"+1", `"+1"`},
		{"NaN", `"NaN"`},
		{"Inf", `"Inf"`},
		{"0x10", `"0x10"`},
		{"1 2", `"1 2"`},
	}

	for _, tc := range testCases {
		p, err := json.Marshal(tc.label)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, string(p))

		var back Label
		require.NoError(t, json.Unmarshal(p, &back))
		assert.Equal(t, tc.label, back)
	}
}
