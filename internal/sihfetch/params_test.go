package sihfetch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeDefaultsYearAndMonth(t *testing.T) {
	now := time.Date(2024, 11, 15, 10, 0, 0, 0, time.UTC)
	p := Params{UF: []string{"RJ"}}.Normalize(now)

	require.Equal(t, []string{"24"}, p.Year)
	require.Equal(t, []string{"10"}, p.Month)
}

func TestNormalizeJanuaryRollsBackToDecember(t *testing.T) {
	now := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	p := Params{}.Normalize(now)

	require.Equal(t, []string{"25"}, p.Year)
	require.Equal(t, []string{"12"}, p.Month)
}

func TestNormalizeTreatsBlankListAsAbsent(t *testing.T) {
	now := time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC)
	p := Params{Year: []string{""}, Month: []string{""}}.Normalize(now)

	require.Equal(t, []string{"24"}, p.Year)
	require.Equal(t, []string{"02"}, p.Month)
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	now := time.Date(2024, 11, 15, 0, 0, 0, 0, time.UTC)
	p := Params{
		UF:    []string{"SP", "MG"},
		Year:  []string{"23"},
		Month: []string{"01", "02"},
	}.Normalize(now)

	require.Equal(t, []string{"23"}, p.Year)
	require.Equal(t, []string{"01", "02"}, p.Month)
	require.Len(t, p.Tuples(), 4)
}

func TestTupleFileName(t *testing.T) {
	tp := Tuple{UF: "RJ", Year: "24", Month: "10"}
	require.Equal(t, "RDRJ2410.dbc", tp.FileName())
}
