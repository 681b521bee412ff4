package sourcemap

import (
	"errors"
	"fmt"
	"strings"
)

const (
	vlqBaseShift       = 5
	vlqBase            = 1 << vlqBaseShift
	vlqBaseMask        = vlqBase - 1
	vlqContinuationBit = vlqBase
	base64Chars        = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
)

// Sentinel errors for mapping decoding.
var (
	ErrInvalidBase64 = errors.New("invalid base64 character in mappings")
	ErrTruncatedVLQ  = errors.New("truncated VLQ value in mappings")
)

var base64Values = func() [128]int8 {
	var table [128]int8

	for i := range table {
		table[i] = -1
	}

	for i := range len(base64Chars) {
		table[base64Chars[i]] = int8(i)
	}

	return table
}()

// writeVLQ appends the Base64 VLQ encoding of value to sb.
func writeVLQ(sb *strings.Builder, value int) {
	vlq := value << 1
	if value < 0 {
		vlq = (-value << 1) | 1
	}

	for {
		digit := vlq & vlqBaseMask
		vlq >>= vlqBaseShift

		if vlq > 0 {
			digit |= vlqContinuationBit
		}

		sb.WriteByte(base64Chars[digit])

		if vlq == 0 {
			return
		}
	}
}

// readVLQ decodes one Base64 VLQ value from s starting at pos and returns the
// value and the position after it.
func readVLQ(s string, pos int) (value, next int, err error) {
	shift := 0
	result := 0

	for {
		if pos >= len(s) {
			return 0, pos, ErrTruncatedVLQ
		}

		ch := s[pos]
		pos++

		if ch >= 128 || base64Values[ch] < 0 {
			return 0, pos, fmt.Errorf("%w: %q", ErrInvalidBase64, ch)
		}

		digit := int(base64Values[ch])
		result += (digit & vlqBaseMask) << shift
		shift += vlqBaseShift

		if digit&vlqContinuationBit == 0 {
			break
		}
	}

	if result&1 == 1 {
		return -(result >> 1), pos, nil
	}

	return result >> 1, pos, nil
}
