package database

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Codec converts a fixed-layout value type to and from its raw byte
// encoding. Encodings are little-endian and independent of the machine's
// alignment rules: Decode always copies out of the source buffer rather
// than reinterpreting it in place, so engines may hand the codec
// arbitrarily aligned slices into memory-mapped pages.
//
// The round-trip law holds for every codec: Decode(Encode(v)) == v.
type Codec[T any] interface {
	// Encode returns the byte encoding of value in a freshly allocated
	// slice.
	Encode(value T) []byte

	// Decode decodes a value from data without retaining data. Fixed
	// width codecs reject buffers of any other length.
	Decode(data []byte) (T, error)
}

// Built-in codecs for the primitive key and value types the node's
// schemas are made of.
var (
	Uint8  Codec[uint8]    = uint8Codec{}
	Uint16 Codec[uint16]   = uint16Codec{}
	Uint32 Codec[uint32]   = uint32Codec{}
	Uint64 Codec[uint64]   = uint64Codec{}
	Bytes  Codec[[]byte]   = bytesCodec{}
	Hash32 Codec[[32]byte] = hash32Codec{}
)

func wrongLengthError(what string, want, got int) error {
	return errors.Errorf("cannot decode %s: expected %d bytes, got %d", what, want, got)
}

type uint8Codec struct{}

func (uint8Codec) Encode(value uint8) []byte {
	return []byte{value}
}

func (uint8Codec) Decode(data []byte) (uint8, error) {
	if len(data) != 1 {
		return 0, wrongLengthError("uint8", 1, len(data))
	}
	return data[0], nil
}

type uint16Codec struct{}

func (uint16Codec) Encode(value uint16) []byte {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], value)
	return buf[:]
}

func (uint16Codec) Decode(data []byte) (uint16, error) {
	if len(data) != 2 {
		return 0, wrongLengthError("uint16", 2, len(data))
	}
	return binary.LittleEndian.Uint16(data), nil
}

type uint32Codec struct{}

func (uint32Codec) Encode(value uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	return buf[:]
}

func (uint32Codec) Decode(data []byte) (uint32, error) {
	if len(data) != 4 {
		return 0, wrongLengthError("uint32", 4, len(data))
	}
	return binary.LittleEndian.Uint32(data), nil
}

type uint64Codec struct{}

func (uint64Codec) Encode(value uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	return buf[:]
}

func (uint64Codec) Decode(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, wrongLengthError("uint64", 8, len(data))
	}
	return binary.LittleEndian.Uint64(data), nil
}

// bytesCodec stores raw byte slices. Decoding copies even though no
// re-layout is needed, because callers receive values that outlive the
// transaction and must not alias backend memory.
type bytesCodec struct{}

func (bytesCodec) Encode(value []byte) []byte {
	encoded := make([]byte, len(value))
	copy(encoded, value)
	return encoded
}

func (bytesCodec) Decode(data []byte) ([]byte, error) {
	decoded := make([]byte, len(data))
	copy(decoded, data)
	return decoded, nil
}

type hash32Codec struct{}

func (hash32Codec) Encode(value [32]byte) []byte {
	encoded := make([]byte, 32)
	copy(encoded, value[:])
	return encoded
}

func (hash32Codec) Decode(data []byte) ([32]byte, error) {
	var decoded [32]byte
	if len(data) != 32 {
		return decoded, wrongLengthError("hash", 32, len(data))
	}
	copy(decoded[:], data)
	return decoded, nil
}
