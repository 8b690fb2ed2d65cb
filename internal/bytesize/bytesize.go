// Package bytesize converts between raw byte counts and the human readable
// size strings shown to users and typed into size filters.
package bytesize

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Binary units, largest first.
const (
	KB int64 = 1 << 10
	MB int64 = 1 << 20
	GB int64 = 1 << 30
	TB int64 = 1 << 40
)

// ErrInvalidSize is returned when a size string has no numeric value.
var ErrInvalidSize = errors.New("invalid size")

type unit struct {
	size   int64
	name   string
	suffix string
}

var units = []unit{
	{size: TB, name: "TB", suffix: "tb"},
	{size: GB, name: "GB", suffix: "gb"},
	{size: MB, name: "MB", suffix: "mb"},
	{size: KB, name: "KB", suffix: "kb"},
}

// Format renders bytes using the largest unit the value reaches, with three
// decimals. Values below one kilobyte are rendered as "N Bytes".
func Format(bytes int64) string {
	if bytes < KB {
		return strconv.FormatInt(bytes, 10) + " Bytes"
	}
	return FormatFloat(float64(bytes))
}

// FormatFloat is Format for aggregates such as a mean or a median.
func FormatFloat(value float64) string {
	for _, u := range units {
		scaled := value / float64(u.size)
		if scaled >= 1 {
			return fmt.Sprintf("%.3f %s", scaled, u.name)
		}
	}
	return strconv.FormatFloat(value, 'f', -1, 64) + " Bytes"
}

// Parse converts a size such as "1.5 MB", "200kb", "12 bytes" or "512" into
// a byte count. Fractional values are truncated after scaling.
func Parse(text string) (int64, error) {
	normalized := strings.ReplaceAll(strings.ToLower(text), " ", "")

	for _, u := range units {
		if !strings.HasSuffix(normalized, u.suffix) {
			continue
		}
		number := strings.TrimSuffix(normalized, u.suffix)
		value, err := strconv.ParseFloat(number, 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidSize, text)
		}
		scaled := value * float64(u.size)
		if scaled >= math.MaxInt64 || scaled <= math.MinInt64 {
			return 0, fmt.Errorf("%w: %q overflows", ErrInvalidSize, text)
		}
		return int64(scaled), nil
	}

	if strings.HasSuffix(normalized, "b") || strings.HasSuffix(normalized, "byte") || strings.HasSuffix(normalized, "bytes") {
		normalized = strings.ReplaceAll(normalized, "b", "")
		normalized = strings.ReplaceAll(normalized, "yte", "")
		normalized = strings.ReplaceAll(normalized, "s", "")
	}

	value, err := strconv.ParseInt(normalized, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, text)
	}
	return value, nil
}
