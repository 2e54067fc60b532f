package sihfetch

import (
	"fmt"
	"time"
)

// Params selects SIH-RD reports by state, two-digit year, and two-digit
// zero-padded month. Lists multiply: the selection is the full cross
// product.
type Params struct {
	UF    []string
	Year  []string
	Month []string
}

// Tuple is one (uf, year, month) selection key.
type Tuple struct {
	UF    string
	Year  string
	Month string
}

// FileName returns the archive file name for the tuple.
func (t Tuple) FileName() string {
	return fmt.Sprintf("RD%s%s%s.dbc", t.UF, t.Year, t.Month)
}

// Normalize fills in the defaults for an absent or empty year and month:
// the current two-digit year, and the previous calendar month zero-padded
// (January resolves to "12"). A list whose entries are all "" counts as
// absent.
func (p Params) Normalize(now time.Time) Params {
	out := Params{
		UF:    compact(p.UF),
		Year:  compact(p.Year),
		Month: compact(p.Month),
	}
	if len(out.Year) == 0 {
		out.Year = []string{now.Format("06")}
	}
	if len(out.Month) == 0 {
		firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		out.Month = []string{firstOfMonth.AddDate(0, 0, -1).Format("01")}
	}
	return out
}

// Tuples expands the selection into its cross product.
func (p Params) Tuples() []Tuple {
	var out []Tuple
	for _, uf := range p.UF {
		for _, y := range p.Year {
			for _, m := range p.Month {
				out = append(out, Tuple{UF: uf, Year: y, Month: m})
			}
		}
	}
	return out
}

func compact(in []string) []string {
	var out []string
	for _, v := range in {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
