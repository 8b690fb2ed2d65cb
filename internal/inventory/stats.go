package inventory

import (
	"slices"

	"filecensus/internal/bytesize"
)

// Stats summarizes the sizes of a set of records.
type Stats struct {
	Count  int     `json:"count"`
	Total  int64   `json:"totalBytes"`
	Mean   float64 `json:"meanBytes"`
	Median float64 `json:"medianBytes"`
}

// Summarize computes Stats over records. An empty input yields zero Stats.
func Summarize(records []FileRecord) Stats {
	if len(records) == 0 {
		return Stats{}
	}

	sizes := make([]int64, len(records))
	var total int64
	for i, record := range records {
		sizes[i] = record.Size
		total += record.Size
	}
	slices.Sort(sizes)

	mid := len(sizes) / 2
	median := float64(sizes[mid])
	if len(sizes)%2 == 0 {
		median = (float64(sizes[mid-1]) + float64(sizes[mid])) / 2
	}

	return Stats{
		Count:  len(records),
		Total:  total,
		Mean:   float64(total) / float64(len(records)),
		Median: median,
	}
}

// MeanSize returns the mean formatted for display.
func (s Stats) MeanSize() string {
	return bytesize.FormatFloat(s.Mean)
}

// MedianSize returns the median formatted for display.
func (s Stats) MedianSize() string {
	return bytesize.FormatFloat(s.Median)
}
