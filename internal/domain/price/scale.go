package price

import (
	"encoding/hex"
	"math"
	"strings"

	"github.com/holiman/uint256"
)

const i128Len = 16

var two128 = new(uint256.Int).Lsh(uint256.NewInt(1), 128)

// DecodeResult decodes an oracle callback result: a SCALE encoded i128
// (16 bytes, little endian, two's complement), optionally hex with 0x prefix.
func DecodeResult(raw string) (int64, error) {
	s := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(raw), "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != i128Len {
		return 0, ErrInvalidResult
	}
	return DecodeI128(b)
}

// DecodeI128 decodes a little endian two's complement i128 that must fit in int64.
func DecodeI128(le []byte) (int64, error) {
	if len(le) != i128Len {
		return 0, ErrInvalidResult
	}
	be := make([]byte, i128Len)
	for i, c := range le {
		be[i128Len-1-i] = c
	}
	v := new(uint256.Int).SetBytes(be)
	negative := be[0]&0x80 != 0
	if negative {
		v = new(uint256.Int).Sub(two128, v)
	}
	if !v.IsUint64() {
		return 0, ErrOutOfRange
	}
	mag := v.Uint64()
	switch {
	case !negative && mag <= math.MaxInt64:
		return int64(mag), nil
	case negative && mag <= math.MaxInt64:
		return -int64(mag), nil
	case negative && mag == math.MaxInt64+1:
		return math.MinInt64, nil
	}
	return 0, ErrOutOfRange
}

// EncodeI128 is the inverse of DecodeI128, used by relays and tests.
func EncodeI128(v int64) []byte {
	out := make([]byte, i128Len)
	u := uint64(v)
	for i := 0; i < 8; i++ {
		out[i] = byte(u >> (8 * i))
	}
	if v < 0 {
		for i := 8; i < i128Len; i++ {
			out[i] = 0xff
		}
	}
	return out
}
