package stego

import (
	"encoding/binary"
	"fmt"
)

// Hamming(7,4) framing: a 4-byte big-endian length header followed by the payload,
// every nibble expanded to a 7-bit block that corrects one flipped bit.

const (
	hammingHeaderSize = 4
	hammingBlockBits  = 7
	hammingByteBits   = 2 * hammingBlockBits
)

// HammingEncode frames the payload with a length header and Hamming(7,4) protection.
func HammingEncode(p *Payload) Bits {
	data := p.Bytes()
	buf := make([]byte, hammingHeaderSize, hammingHeaderSize+len(data))
	binary.BigEndian.PutUint32(buf, uint32(len(data)))
	buf = append(buf, data...)

	bits := make(Bits, 0, len(buf)*hammingByteBits)
	for _, b := range buf {
		bits = append(bits, encodeNibble(b>>4)...)
		bits = append(bits, encodeNibble(b&0x0f)...)
	}
	return bits
}

// HammingDecode reverses HammingEncode, correcting at most one bit per 7-bit block.
// It returns the payload and the number of blocks that needed a correction.
func HammingDecode(bits Bits) (*Payload, int, error) {
	if len(bits)%hammingByteBits != 0 {
		return nil, 0, fmt.Errorf("%w: invalid Hamming bit length %d", ErrMalformedPayload, len(bits))
	}

	buf := make([]byte, len(bits)/hammingByteBits)
	corrected := 0
	for i := range buf {
		chunk := bits[i*hammingByteBits : (i+1)*hammingByteBits]
		hi, e1, err := decodeBlock(chunk[:hammingBlockBits])
		if err != nil {
			return nil, corrected, err
		}
		lo, e2, err := decodeBlock(chunk[hammingBlockBits:])
		if err != nil {
			return nil, corrected, err
		}
		if e1 {
			corrected++
		}
		if e2 {
			corrected++
		}
		buf[i] = hi<<4 | lo
	}

	if len(buf) < hammingHeaderSize {
		return nil, corrected, fmt.Errorf("%w: missing length header", ErrMalformedPayload)
	}
	length := binary.BigEndian.Uint32(buf[:hammingHeaderSize])
	data := buf[hammingHeaderSize:]
	if uint64(length) > uint64(len(data)) {
		return nil, corrected, fmt.Errorf("%w: header claims %d bytes, only %d present", ErrMalformedPayload, length, len(data))
	}

	p, err := splitPayload(data[:length])
	return p, corrected, err
}

// encodeNibble returns p1 p2 d0 p4 d1 d2 d3
func encodeNibble(n byte) Bits {
	d0, d1, d2, d3 := (n>>3)&1, (n>>2)&1, (n>>1)&1, n&1
	p1 := d0 ^ d1 ^ d3
	p2 := d0 ^ d2 ^ d3
	p4 := d1 ^ d2 ^ d3
	return Bits{p1, p2, d0, p4, d1, d2, d3}
}

func decodeBlock(block Bits) (byte, bool, error) {
	b := make(Bits, hammingBlockBits)
	for i, bit := range block {
		if bit > 1 {
			return 0, false, fmt.Errorf("%w: invalid bit value %d", ErrMalformedPayload, bit)
		}
		b[i] = bit
	}

	s1 := b[0] ^ b[2] ^ b[4] ^ b[6]
	s2 := b[1] ^ b[2] ^ b[5] ^ b[6]
	s4 := b[3] ^ b[4] ^ b[5] ^ b[6]
	syndrome := s4<<2 | s2<<1 | s1
	if syndrome > 0 {
		b[syndrome-1] ^= 1
	}
	return b[2]<<3 | b[4]<<2 | b[5]<<1 | b[6], syndrome > 0, nil
}
