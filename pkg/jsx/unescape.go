package jsx

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// unescapeJS decodes the escape sequences of a JavaScript string literal
// body. Malformed escapes are kept as written.
func unescapeJS(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var sb strings.Builder

	sb.Grow(len(s))

	for i := 0; i < len(s); {
		if s[i] != '\\' || i+1 >= len(s) {
			sb.WriteByte(s[i])
			i++

			continue
		}

		c := s[i+1]
		i += 2

		switch c {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '0':
			sb.WriteByte(0)
		case '\n':
			// line continuation
		case '\r':
			if i < len(s) && s[i] == '\n' {
				i++
			}
		case 'x':
			r, n := hexRune(s[i:], 2) //nolint:mnd // \xHH
			if n == 0 {
				sb.WriteString(`\x`)

				continue
			}

			sb.WriteRune(r)
			i += n
		case 'u':
			r, n := unicodeEscape(s[i:])
			if n == 0 {
				sb.WriteString(`\u`)

				continue
			}

			// Combine a UTF-16 surrogate pair written as two escapes.
			if r >= 0xD800 && r < 0xDC00 && strings.HasPrefix(s[i+n:], `\u`) {
				lo, m := unicodeEscape(s[i+n+2:])
				if m > 0 && lo >= 0xDC00 && lo < 0xE000 {
					r = (r-0xD800)<<10 + (lo - 0xDC00) + 0x10000 //nolint:mnd // surrogate arithmetic
					n += 2 + m
				}
			}

			sb.WriteRune(r)
			i += n
		default:
			r, size := utf8.DecodeRuneInString(s[i-1:])
			sb.WriteRune(r)
			i += size - 1
		}
	}

	return sb.String()
}

// unicodeEscape reads the part of a \u escape after the "u": either four hex
// digits or a braced code point. It returns the rune and bytes consumed.
func unicodeEscape(s string) (rune, int) {
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 2 { //nolint:mnd // at least one digit
			return 0, 0
		}

		v, err := strconv.ParseUint(s[1:end], 16, 32)
		if err != nil || v > utf8.MaxRune {
			return 0, 0
		}

		return rune(v), end + 1
	}

	return hexRune(s, 4) //nolint:mnd // \uHHHH
}

func hexRune(s string, digits int) (rune, int) {
	if len(s) < digits {
		return 0, 0
	}

	v, err := strconv.ParseUint(s[:digits], 16, 32)
	if err != nil {
		return 0, 0
	}

	return rune(v), digits
}
