package table

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// StripBOM decodes r as UTF-8, dropping a leading byte order mark. Census
// downloads saved from spreadsheet tools usually carry one, which would
// otherwise stick to the first header name. UTF-16 input with a BOM is
// transcoded to UTF-8.
func StripBOM(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}
