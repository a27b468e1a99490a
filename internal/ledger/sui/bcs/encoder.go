// Package bcs implements the subset of Binary Canonical Serialization needed
// to build programmable transactions.
package bcs

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/louisbranch/formledger/internal/ledger"
)

// AddressLength is the size of an account address or object id.
const AddressLength = 32

// Address is an account address or object id.
type Address [AddressLength]byte

// ParseAddress decodes a hex address, with or without 0x, left padding short
// forms such as 0x2.
func ParseAddress(s string) (Address, error) {
	var addr Address
	norm, err := ledger.NormalizeID(s)
	if err != nil {
		return addr, fmt.Errorf("address: %w", err)
	}
	b, err := hexutil.Decode(norm)
	if err != nil {
		return addr, fmt.Errorf("address %q: %w", s, err)
	}
	copy(addr[:], b)
	return addr, nil
}

// String renders the full 0x-prefixed hex form.
func (a Address) String() string {
	return hexutil.Encode(a[:])
}

// Encoder accumulates BCS output.
type Encoder struct {
	buf bytes.Buffer
}

// Bytes returns the encoded output.
func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

// ULEB128 writes an unsigned LEB128 value, used for lengths and enum tags.
func (e *Encoder) ULEB128(v uint64) {
	for v >= 0x80 {
		e.buf.WriteByte(byte(v) | 0x80)
		v >>= 7
	}
	e.buf.WriteByte(byte(v))
}

// U8 writes a single byte.
func (e *Encoder) U8(v uint8) {
	e.buf.WriteByte(v)
}

// U16 writes a little-endian u16.
func (e *Encoder) U16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

// U64 writes a little-endian u64.
func (e *Encoder) U64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

// Bool writes 1 or 0.
func (e *Encoder) Bool(v bool) {
	if v {
		e.buf.WriteByte(1)
		return
	}
	e.buf.WriteByte(0)
}

// Fixed writes b without a length prefix.
func (e *Encoder) Fixed(b []byte) {
	e.buf.Write(b)
}

// ByteVector writes a length-prefixed byte vector.
func (e *Encoder) ByteVector(b []byte) {
	e.ULEB128(uint64(len(b)))
	e.buf.Write(b)
}

// String writes s as a length-prefixed UTF-8 byte vector.
func (e *Encoder) String(s string) {
	e.ByteVector([]byte(s))
}

// Address writes the 32 raw address bytes.
func (e *Encoder) Address(a Address) {
	e.buf.Write(a[:])
}

// PureString returns the BCS encoding of a Move String.
func PureString(s string) []byte {
	var e Encoder
	e.String(s)
	return e.Bytes()
}

// PureStrings returns the BCS encoding of a vector<String>.
func PureStrings(values []string) []byte {
	var e Encoder
	e.ULEB128(uint64(len(values)))
	for _, v := range values {
		e.String(v)
	}
	return e.Bytes()
}

// PureU64 returns the BCS encoding of a u64.
func PureU64(v uint64) []byte {
	var e Encoder
	e.U64(v)
	return e.Bytes()
}

// PureAddress returns the BCS encoding of an address or ID.
func PureAddress(a Address) []byte {
	return append([]byte(nil), a[:]...)
}
