package stego

import (
	"fmt"
	"strings"
)

// Bits is an ordered bitstream; every element is 0 or 1.
type Bits []byte

// String renders the bitstream as a run of '0' and '1'.
func (b Bits) String() string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, bit := range b {
		sb.WriteByte('0' + bit)
	}
	return sb.String()
}

// ParseBits parses a string of '0' and '1' characters.
func ParseBits(s string) (Bits, error) {
	bits := make(Bits, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '0':
			bits[i] = 0
		case '1':
			bits[i] = 1
		default:
			return nil, fmt.Errorf("%w: invalid bit %q at offset %d", ErrMalformedPayload, s[i], i)
		}
	}
	return bits, nil
}

// BytesToBits expands each byte into 8 bits, most significant bit first.
func BytesToBits(data []byte) Bits {
	bits := make(Bits, 0, len(data)*8)
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			bits = append(bits, (b>>uint(i))&1)
		}
	}
	return bits
}

// BitsToBytes packs bits back into bytes. The length must be a multiple of 8.
func BitsToBytes(bits Bits) ([]byte, error) {
	if len(bits)%8 != 0 {
		return nil, fmt.Errorf("%w: %d bits is not a whole number of bytes", ErrMalformedPayload, len(bits))
	}
	data := make([]byte, len(bits)/8)
	for i, bit := range bits {
		if bit > 1 {
			return nil, fmt.Errorf("%w: invalid bit value %d at offset %d", ErrMalformedPayload, bit, i)
		}
		data[i/8] = data[i/8]<<1 | bit
	}
	return data, nil
}

// Frame serializes salt ‖ nonce ‖ ciphertext into a bitstream.
// There is no length field; the ciphertext is everything after the nonce.
func Frame(p *Payload) Bits {
	return BytesToBits(p.Bytes())
}

// Unframe splits a bitstream back into salt (128 bits), nonce (96 bits) and the remaining ciphertext.
func Unframe(bits Bits) (*Payload, error) {
	data, err := BitsToBytes(bits)
	if err != nil {
		return nil, err
	}
	return splitPayload(data)
}

func splitPayload(data []byte) (*Payload, error) {
	if len(data) < SaltSize+NonceSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than salt and nonce", ErrMalformedPayload, len(data))
	}
	return &Payload{
		Salt:       data[:SaltSize:SaltSize],
		Nonce:      data[SaltSize : SaltSize+NonceSize : SaltSize+NonceSize],
		Ciphertext: data[SaltSize+NonceSize:],
	}, nil
}
