package protocol

import (
	"bufio"
	"fmt"
	"io"
)

// Pair is a decoded FastCGI name/value pair (§3). Name and Value are
// owned byte slices independent of the stream that produced them.
type Pair struct {
	Name  []byte
	Value []byte
}

const maxPairLength = 0x7fffffff

// EncodeLength appends the variable-width length prefix for n to dst per
// §4.2: one byte if n ≤ 127, otherwise four bytes carrying a big-endian
// 31-bit length with the top bit set.
func EncodeLength(dst []byte, n int) []byte {
	if n < 0 || n > maxPairLength {
		panic(fmt.Sprintf("fcgi: name/value length out of range: %d", n))
	}
	if n <= 127 {
		return append(dst, byte(n))
	}
	return append(dst,
		byte(n>>24)|0x80,
		byte(n>>16),
		byte(n>>8),
		byte(n),
	)
}

// WritePair appends the wire encoding of one name/value pair to dst and
// returns the extended slice.
func WritePair(dst []byte, name, value []byte) []byte {
	dst = EncodeLength(dst, len(name))
	dst = EncodeLength(dst, len(value))
	dst = append(dst, name...)
	dst = append(dst, value...)
	return dst
}

// decodeLength reads one variable-width length prefix from br.
func decodeLength(br io.ByteReader) (int, error) {
	b0, err := br.ReadByte()
	if err != nil {
		return 0, err
	}
	if b0&0x80 == 0 {
		return int(b0), nil
	}
	var rest [3]byte
	for i := range rest {
		b, err := br.ReadByte()
		if err != nil {
			return 0, NewProtocolError("decode name/value length", io.ErrUnexpectedEOF)
		}
		rest[i] = b
	}
	n := int(b0&0x7f)<<24 | int(rest[0])<<16 | int(rest[1])<<8 | int(rest[2])
	return n, nil
}

// DecodePairs decodes a full name/value stream from r until clean EOF.
// hint preallocates the result slice's capacity. A truncated length or
// truncated name/value data mid-pair is a protocol violation.
func DecodePairs(r io.Reader, hint int) ([]Pair, error) {
	br := bufio.NewReader(r)
	pairs := make([]Pair, 0, hint)
	for {
		nameLen, err := decodeLength(br)
		if err == io.EOF {
			return pairs, nil
		}
		if err != nil {
			return nil, NewProtocolError("decode name/value pair", err)
		}
		valueLen, err := decodeLength(br)
		if err != nil {
			return nil, NewProtocolError("decode name/value pair", err)
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(br, name); err != nil {
			return nil, NewProtocolError("decode name/value pair", err)
		}
		value := make([]byte, valueLen)
		if _, err := io.ReadFull(br, value); err != nil {
			return nil, NewProtocolError("decode name/value pair", err)
		}
		pairs = append(pairs, Pair{Name: name, Value: value})
	}
}
