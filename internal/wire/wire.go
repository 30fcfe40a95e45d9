// Package wire frames the values the encrypt layer writes to its inner store.
package wire

import (
	"bytes"
	"errors"
)

const (
	version byte = 1

	// FlagIntegrity marks an envelope that carries a MAC tag.
	FlagIntegrity byte = 1 << 0

	maxField = 0xFF
)

var (
	ErrCorrupt = errors.New("layercache: corrupt envelope")
	magic4     = [...]byte{'L', 'C', 'E', 'V'}
)

// Envelope is one stored entry. Nonce and Tag may be empty.
type Envelope struct {
	Cipher     byte
	Flags      byte
	Nonce      []byte
	Tag        []byte
	Ciphertext []byte
}

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Encode:
//
//	magic(4) | ver(1) | cipher(1) | flags(1) | nlen(1) | nonce(nlen) | tlen(1) | tag(tlen) | ciphertext(rest)
func Encode(e Envelope) []byte {
	if len(e.Nonce) > maxField || len(e.Tag) > maxField {
		panic("layercache: envelope nonce or tag too long")
	}
	var buf bytes.Buffer
	buf.Grow(4 + 1 + 1 + 1 + 1 + len(e.Nonce) + 1 + len(e.Tag) + len(e.Ciphertext))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(e.Cipher)
	buf.WriteByte(e.Flags)

	buf.WriteByte(byte(len(e.Nonce)))
	buf.Write(e.Nonce)

	buf.WriteByte(byte(len(e.Tag)))
	buf.Write(e.Tag)

	buf.Write(e.Ciphertext)
	return buf.Bytes()
}

// Decode returns slices aliasing b.
func Decode(b []byte) (Envelope, error) {
	const hdr = 4 + 1 + 1 + 1
	if len(b) < hdr+1 || !hasMagic(b) || b[4] != version {
		return Envelope{}, ErrCorrupt
	}
	e := Envelope{Cipher: b[5], Flags: b[6]}
	off := hdr

	// nonce
	nlen := int(b[off])
	off++
	if nlen > len(b)-off {
		return Envelope{}, ErrCorrupt
	}
	e.Nonce = b[off : off+nlen]
	off += nlen

	// tag
	if off+1 > len(b) {
		return Envelope{}, ErrCorrupt
	}
	tlen := int(b[off])
	off++
	if tlen > len(b)-off {
		return Envelope{}, ErrCorrupt
	}
	e.Tag = b[off : off+tlen]
	off += tlen

	if (e.Flags&FlagIntegrity != 0) != (tlen > 0) {
		return Envelope{}, ErrCorrupt
	}

	e.Ciphertext = b[off:]
	return e, nil
}
