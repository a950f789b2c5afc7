package parser

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ToUTF8 returns src as UTF-8. Valid UTF-8 is returned unchanged (minus a
// byte order mark); anything else is decoded with the detected charset,
// which falls back to windows-1252 for legacy Latin sources.
func ToUTF8(src []byte) ([]byte, string, error) {
	if bytes.HasPrefix(src, utf8BOM) {
		return src[len(utf8BOM):], "utf-8", nil
	}
	if utf8.Valid(src) {
		return src, "utf-8", nil
	}

	// UTF-16 sources carry a BOM; BOMOverride picks the right endianness
	if len(src) >= 2 && ((src[0] == 0xFF && src[1] == 0xFE) || (src[0] == 0xFE && src[1] == 0xFF)) {
		dec := unicode.BOMOverride(unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder())
		out, _, err := transform.Bytes(dec, src)
		return out, "utf-16", err
	}

	enc, name, _ := charset.DetermineEncoding(src, "text/plain")
	out, _, err := transform.Bytes(enc.NewDecoder(), src)
	if err != nil {
		return nil, name, err
	}
	return out, name, nil
}
