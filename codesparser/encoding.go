package codesparser

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// toUTF8 returns body as UTF-8 without a byte order mark. Bodies that are not
// valid UTF-8 are decoded as Windows-1252, the charset NUCC exports use.
func toUTF8(body []byte) []byte {
	body = bytes.TrimPrefix(body, utf8BOM)
	if utf8.Valid(body) {
		return body
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(body)
	if err != nil {
		return body
	}
	return decoded
}
