package sourcemap

import "strings"

const base64Digits = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

const (
	vlqShift    = 5
	vlqBase     = 1 << vlqShift
	vlqMask     = vlqBase - 1
	vlqContinue = vlqBase
)

// writeVLQ appends n in base64 VLQ: sign in the lowest bit, five bits per
// digit, low digits first
func writeVLQ(b *strings.Builder, n int) {
	v := n << 1
	if n < 0 {
		v = (-n << 1) | 1
	}
	for {
		digit := v & vlqMask
		v >>= vlqShift
		if v > 0 {
			digit |= vlqContinue
		}
		b.WriteByte(base64Digits[digit])
		if v == 0 {
			return
		}
	}
}

// readVLQ decodes one value from s and returns the rest of s
func readVLQ(s string) (int, string, bool) {
	v, shift := 0, 0
	for i := 0; i < len(s); i++ {
		digit := strings.IndexByte(base64Digits, s[i])
		if digit < 0 {
			return 0, s, false
		}
		v |= (digit & vlqMask) << shift
		if digit&vlqContinue == 0 {
			n := v >> 1
			if v&1 == 1 {
				n = -n
			}
			return n, s[i+1:], true
		}
		shift += vlqShift
	}
	return 0, s, false
}

// Decode parses a mappings field produced by Encode back into a table. The
// source index is ignored since Encode writes a single source.
func Decode(mappings string) ([]Mapping, bool) {
	var out []Mapping
	col, srcLine, srcCol := 0, 0, 0
	for i, line := range strings.Split(mappings, ";") {
		col = 0
		if line == "" {
			continue
		}
		for _, seg := range strings.Split(line, ",") {
			var fields [4]int
			n := 0
			for seg != "" && n < 4 {
				v, rest, ok := readVLQ(seg)
				if !ok {
					return nil, false
				}
				fields[n], seg, n = v, rest, n+1
			}
			if n != 4 || seg != "" {
				return nil, false
			}
			col += fields[0]
			srcLine += fields[2]
			srcCol += fields[3]
			out = append(out, Mapping{GenLine: i + 1, GenCol: col + 1, SrcLine: srcLine + 1, SrcCol: srcCol + 1})
		}
	}
	return out, true
}
