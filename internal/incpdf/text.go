package incpdf

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// String encodes text as a PDF string object. ASCII text becomes an escaped
// literal string; anything else is encoded as UTF-16BE with a BOM, which
// every conforming reader accepts for text strings.
func String(text string) string {
	if !isASCII(text) {
		enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
		res, _, err := transform.String(enc, text)
		if err != nil {
			// The UTF-16 encoder accepts any valid string; fall back to
			// dropping the offending bytes rather than failing the write.
			res = strings.Map(func(r rune) rune {
				if r > 0x7f {
					return -1
				}
				return r
			}, text)
		}
		return "(" + escapeString(res) + ")"
	}
	return "(" + escapeString(text) + ")"
}

func escapeString(text string) string {
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, "(", "\\(")
	text = strings.ReplaceAll(text, ")", "\\)")
	text = strings.ReplaceAll(text, "\r", "\\r")
	return text
}

// DateTime formats a timestamp as a PDF date string, including the
// timezone offset in the D:YYYYMMDDHHmmSSOHH'mm' form.
func DateTime(date time.Time) string {
	_, offsetSeconds := date.Zone()
	sign := "+"
	if offsetSeconds < 0 {
		sign = "-"
		offsetSeconds = -offsetSeconds
	}
	hours := offsetSeconds / 3600
	minutes := offsetSeconds % 3600 / 60

	return String(fmt.Sprintf("D:%s%s%02d'%02d'", date.Format("20060102150405"), sign, hours, minutes))
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > 0x7f {
			return false
		}
	}
	return true
}
