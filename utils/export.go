package utils

import (
	"strings"
	"time"

	"github.com/gosimple/slug"
)

// ExportFilename builds a download name such as
// "usuarios_2026-03-01_10-00-00.csv". Subject is slugged and may be empty;
// layout formats the timestamp.
func ExportFilename(prefix, subject string, at time.Time, layout string) string {
	parts := []string{prefix}
	if s := slug.Make(subject); s != "" {
		parts = append(parts, s)
	}
	parts = append(parts, at.UTC().Format(layout))
	return strings.Join(parts, "_") + ".csv"
}
