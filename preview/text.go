package preview

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DecodeText converts fetched bytes into UTF-8. A BOM selects UTF-8 or
// UTF-16; data without BOM is kept when it is valid UTF-8 and otherwise
// decoded as GB18030.
func DecodeText(data []byte) (string, error) {
	var enc encoding.Encoding
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		enc = unicode.UTF8BOM
	case bytes.HasPrefix(data, bomUTF16LE):
		enc = unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)
	case bytes.HasPrefix(data, bomUTF16BE):
		enc = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)
	}

	if enc == nil {
		if utf8.Valid(data) {
			return string(data), nil
		}
		enc = simplifiedchinese.GB18030
	}

	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode text: %w", err)
	}
	return string(decoded), nil
}

// TruncateText cuts s to at most limit bytes without splitting a rune.
func TruncateText(s string, limit int) (string, bool) {
	if limit <= 0 || len(s) <= limit {
		return s, false
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], true
}

// trimCutRune drops an incomplete UTF-8 sequence left at the end of data by
// a bounded read. Data that is not UTF-8 is returned unchanged.
func trimCutRune(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}
	for k := 1; k < utf8.UTFMax && k <= len(data); k++ {
		head := data[:len(data)-k]
		if utf8.RuneStart(data[len(data)-k]) && utf8.Valid(head) {
			return head
		}
	}
	return data
}
