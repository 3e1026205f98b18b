package table

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type (
	// ColumnSummary is a describe()-style summary. Numeric fields are only
	// set for numeric columns, Unique/Top/Freq only for text columns.
	ColumnSummary struct {
		Name    string
		Numeric bool
		Count   int
		Missing int

		Mean   float64 `json:",omitempty"`
		Std    float64 `json:",omitempty"`
		Min    float64 `json:",omitempty"`
		Q25    float64 `json:",omitempty"`
		Median float64 `json:",omitempty"`
		Q75    float64 `json:",omitempty"`
		Max    float64 `json:",omitempty"`

		Unique int    `json:",omitempty"`
		Top    string `json:",omitempty"`
		Freq   int    `json:",omitempty"`
	}
)

func Summarize(t *Table) []ColumnSummary {
	out := make([]ColumnSummary, 0, len(t.Columns))
	for _, name := range t.Columns {
		values, _ := t.Column(name)
		if IsNumeric(values) {
			out = append(out, summarizeNumeric(name, values))
		} else {
			out = append(out, summarizeText(name, values))
		}
	}
	return out
}

func summarizeNumeric(name string, values []string) ColumnSummary {
	s := ColumnSummary{Name: name, Numeric: true}
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		f, err := ParseNumeric(v)
		if err != nil || math.IsNaN(f) {
			s.Missing++
			continue
		}
		nums = append(nums, f)
	}
	s.Count = len(nums)
	if s.Count == 0 {
		return s
	}

	sort.Float64s(nums)
	s.Mean = stat.Mean(nums, nil)
	if s.Count > 1 {
		s.Std = stat.StdDev(nums, nil)
	}
	s.Min = floats.Min(nums)
	s.Max = floats.Max(nums)
	s.Q25 = quantile(nums, 0.25)
	s.Median = quantile(nums, 0.5)
	s.Q75 = quantile(nums, 0.75)
	return s
}

// quantile interpolates between closest ranks the way describe() does
// (Hyndman-Fan type 7). gonum's stat.LinInterp is type 4. sorted must be
// ascending and non-empty.
func quantile(sorted []float64, p float64) float64 {
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[i]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

func summarizeText(name string, values []string) ColumnSummary {
	s := ColumnSummary{Name: name}
	counts := map[string]int{}
	var order []string
	for _, v := range values {
		if IsMissing(v) {
			s.Missing++
			continue
		}
		s.Count++
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}
	s.Unique = len(counts)
	// first-seen wins ties so the result is stable
	for _, v := range order {
		if counts[v] > s.Freq {
			s.Top = v
			s.Freq = counts[v]
		}
	}
	return s
}
