package utils

import (
	"encoding/csv"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewCSVReader returns a lenient CSV reader that strips a leading UTF-8 or
// UTF-16 byte order mark. Spreadsheet exports often carry one, and it would
// otherwise end up glued to the first header name. Rows may have any number
// of fields.
func NewCSVReader(r io.Reader) *csv.Reader {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return cr
}
