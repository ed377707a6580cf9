package encoder

import (
	"unicode/utf8"

	"json-decoding/internal/models"
)

const hexDigits = "0123456789abcdef"

// FormatLiteral renders text as the literal for tag using JSON escaping
func FormatLiteral(tag models.TypeTag, text string) string {
	return string(AppendLiteral(nil, tag, text, EscapeJSON))
}

// AppendLiteral appends the literal for text rendered as tag.
// Numeric text is emitted bare, bit strings as "B'...'", booleans as true/false
// and everything else as a quoted string. It never fails.
func AppendLiteral(dst []byte, tag models.TypeTag, text string, esc Escaping) []byte {
	switch tag {
	case models.TypeSignedInteger, models.TypeFloatingPoint, models.TypeArbitraryPrecision:
		return append(dst, text...)

	case models.TypeBitString:
		dst = append(dst, `"B'`...)
		dst = append(dst, text...)
		return append(dst, `'"`...)

	case models.TypeBoolean:
		if text == "t" {
			return append(dst, "true"...)
		}
		return append(dst, "false"...)

	default:
		return appendQuoted(dst, text, esc)
	}
}

func appendQuoted(dst []byte, s string, esc Escaping) []byte {
	if esc == EscapeLegacy {
		return appendLegacyString(dst, s)
	}
	return appendJSONString(dst, s)
}

// appendLegacyString doubles single quotes and copies everything else verbatim
func appendLegacyString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\'' {
			dst = append(dst, c)
		}
		dst = append(dst, c)
	}
	return append(dst, '"')
}

func appendJSONString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	start := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			if c >= 0x20 && c != '"' && c != '\\' {
				i++
				continue
			}
			dst = append(dst, s[start:i]...)
			switch c {
			case '"', '\\':
				dst = append(dst, '\\', c)
			case '\n':
				dst = append(dst, '\\', 'n')
			case '\r':
				dst = append(dst, '\\', 'r')
			case '\t':
				dst = append(dst, '\\', 't')
			case '\b':
				dst = append(dst, '\\', 'b')
			case '\f':
				dst = append(dst, '\\', 'f')
			default:
				dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
			}
			i++
			start = i
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			dst = append(dst, s[start:i]...)
			dst = append(dst, `\ufffd`...)
			i += size
			start = i
			continue
		}
		i += size
	}
	dst = append(dst, s[start:]...)
	return append(dst, '"')
}
