package market

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := []string{
		"2024-03-01T12:00:00Z",
		"2024-03-01T14:00:00+02:00",
		"2024-03-01T12:00:00",
		"2024-03-01 12:00:00",
		"1709294400",
		"1709294400000",
	}
	for _, raw := range cases {
		t.Run(raw, func(t *testing.T) {
			got, err := ParseTimestamp(raw)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}

	_, err := ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestReadCSV(t *testing.T) {
	data := `timestamp,open,high,low,close,volume,vwap
2024-03-01 12:01:00,11,12,10,11.5,2,11
2024-03-01 12:00:00,10,11,9,10.5,1,10
2024-03-01 12:01:00,11,13,10,12,3,11
`
	s, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, s, 2)
	assert.Equal(t, 10.5, s[0].Close)
	// duplicated timestamp keeps the last row
	assert.Equal(t, 12.0, s[1].Close)
	assert.Equal(t, 3.0, s[1].Volume)
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = ReadCSV(strings.NewReader("timestamp,open,high,low,close,volume\n"))
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = ReadCSV(strings.NewReader("timestamp,open,close\n1,2,3\n"))
	assert.ErrorContains(t, err, "missing column")

	_, err = ReadCSV(strings.NewReader("timestamp,open,high,low,close,volume\n1709294400,x,1,1,1,1\n"))
	assert.ErrorContains(t, err, "column open")
}

func TestReadCSV_InvalidRows(t *testing.T) {
	const header = "timestamp,open,high,low,close,volume\n"
	const good = "1709294400,10,11,9,10.5,1\n"
	cases := map[string]string{
		"nan close":        "1709294460,10,11,9,NaN,1\n",
		"inf high":         "1709294460,10,+Inf,9,10,1\n",
		"high below low":   "1709294460,10,9,11,10,1\n",
		"close above high": "1709294460,10,11,9,12,1\n",
		"negative volume":  "1709294460,10,11,9,10,-1\n",
		"negative low":     "1709294460,0,1,-1,0,1\n",
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(header + good + row))
			assert.ErrorIs(t, err, ErrInvalidCandle)
			assert.ErrorContains(t, err, "line 3")
		})
	}
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	in := Series{
		{Timestamp: t0, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Timestamp: t0.Add(time.Minute), Open: 1.5, High: 1.75, Low: 1.25, Close: 1.25, Volume: 0.125},
	}
	require.NoError(t, WriteCSV(path, in))

	out, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLoadCSV_MissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
