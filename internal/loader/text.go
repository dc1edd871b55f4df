package loader

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decode honours a UTF-8 or UTF-16 byte order mark and drops invalid UTF-8.
func Decode(data []byte) string {
	out, _, err := transform.Bytes(unicode.BOMOverride(encoding.Nop.NewDecoder()), data)
	if err != nil {
		out = data
	}
	return strings.ToValidUTF8(string(out), "")
}

// PlainText is the Format for .txt files.
func PlainText(data []byte) (string, error) {
	return Decode(data), nil
}
