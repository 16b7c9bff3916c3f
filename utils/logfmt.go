package utils

import (
	"math"
	"time"
)

// ShortenLog keeps the head and tail of a transaction id or key for log lines.
func ShortenLog(id string) string {
	keep := 8
	if len(id) <= keep {
		return id
	}
	if len(id) <= 2*keep {
		keep = 4
	}
	return id[:keep] + "..." + id[len(id)-keep:]
}

// SecondsBetween is the elapsed time from from to to, rounded to milliseconds.
func SecondsBetween(from, to time.Time) float64 {
	return math.Round(to.Sub(from).Seconds()*1000) / 1000
}
