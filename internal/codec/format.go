package codec

import (
	"fmt"
	"strconv"

	"github.com/mbtools/modpoll/internal/domain"
)

// Rendering is the lossless projection of decoded values into three textual
// views for display and export. Purely presentational.
type Rendering struct {
	Decimal []string
	Hex     []string
	Binary  []string
}

// Format renders v in decimal, hexadecimal and binary. Bits render as single
// digits; words render zero-padded to their full 16-bit width.
func Format(v domain.DecodedValues) Rendering {
	switch v.Kind {
	case domain.ValueBits:
		r := Rendering{
			Decimal: make([]string, len(v.Bits)),
			Hex:     make([]string, len(v.Bits)),
			Binary:  make([]string, len(v.Bits)),
		}
		for i, b := range v.Bits {
			d := "0"
			if b {
				d = "1"
			}
			r.Decimal[i] = d
			r.Hex[i] = "0x" + d
			r.Binary[i] = "0b" + d
		}
		return r

	case domain.ValueWords:
		r := Rendering{
			Decimal: make([]string, len(v.Words)),
			Hex:     make([]string, len(v.Words)),
			Binary:  make([]string, len(v.Words)),
		}
		for i, w := range v.Words {
			r.Decimal[i] = strconv.FormatUint(uint64(w), 10)
			r.Hex[i] = fmt.Sprintf("0x%04X", w)
			r.Binary[i] = fmt.Sprintf("0b%016b", w)
		}
		return r

	default:
		return Rendering{}
	}
}
