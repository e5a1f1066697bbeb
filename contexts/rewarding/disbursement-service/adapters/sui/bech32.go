package sui

import (
	"errors"
	"fmt"
	"strings"
)

// Minimal bech32 decoder, enough to read the suiprivkey export format. No
// repo in our stack carries a bech32 library, and the format is stable.

const bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

func bech32Polymod(values []byte) uint32 {
	generator := []uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}
	checksum := uint32(1)
	for _, value := range values {
		top := checksum >> 25
		checksum = (checksum&0x1ffffff)<<5 ^ uint32(value)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 == 1 {
				checksum ^= generator[i]
			}
		}
	}
	return checksum
}

func bech32HRPExpand(hrp string) []byte {
	expanded := make([]byte, 0, len(hrp)*2+1)
	for _, c := range hrp {
		expanded = append(expanded, byte(c)>>5)
	}
	expanded = append(expanded, 0)
	for _, c := range hrp {
		expanded = append(expanded, byte(c)&31)
	}
	return expanded
}

func bech32Decode(encoded string) (string, []byte, error) {
	if strings.ToLower(encoded) != encoded && strings.ToUpper(encoded) != encoded {
		return "", nil, errors.New("bech32 string uses mixed case")
	}
	encoded = strings.ToLower(encoded)
	separator := strings.LastIndex(encoded, "1")
	if separator < 1 || separator+7 > len(encoded) {
		return "", nil, errors.New("bech32 separator misplaced")
	}
	hrp := encoded[:separator]
	data := make([]byte, 0, len(encoded)-separator-1)
	for _, c := range encoded[separator+1:] {
		index := strings.IndexRune(bech32Charset, c)
		if index < 0 {
			return "", nil, fmt.Errorf("invalid bech32 character %q", c)
		}
		data = append(data, byte(index))
	}
	if bech32Polymod(append(bech32HRPExpand(hrp), data...)) != 1 {
		return "", nil, errors.New("bech32 checksum mismatch")
	}
	return hrp, data[:len(data)-6], nil
}

// convertBits regroups the 5-bit bech32 payload into bytes.
func convertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	var accumulator uint32
	var bits uint
	maxValue := uint32(1<<toBits) - 1
	converted := make([]byte, 0, len(data)*int(fromBits)/int(toBits)+1)
	for _, value := range data {
		if uint32(value)>>fromBits != 0 {
			return nil, fmt.Errorf("invalid data value %d", value)
		}
		accumulator = accumulator<<fromBits | uint32(value)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			converted = append(converted, byte(accumulator>>bits&maxValue))
		}
	}
	if pad {
		if bits > 0 {
			converted = append(converted, byte(accumulator<<(toBits-bits)&maxValue))
		}
	} else if bits >= fromBits || accumulator<<(toBits-bits)&maxValue != 0 {
		return nil, errors.New("invalid padding in bech32 data")
	}
	return converted, nil
}
