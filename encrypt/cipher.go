package encrypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/salsa20"
)

// Cipher names a value cipher.
type Cipher string

const (
	// Salsa20 is XSalsa20 with key and nonce derived from key and secret.
	Salsa20 Cipher = "Salsa20"
	// ChaCha20 is XChaCha20 with key and nonce derived from key and secret.
	ChaCha20 Cipher = "ChaCha20"
	// AES128CBC is AES-128 in CBC mode with PKCS#7 padding and a derived IV.
	AES128CBC Cipher = "AES-128-CBC"
	// AES256GCM is authenticated; each write draws a fresh 12-byte nonce.
	AES256GCM Cipher = "AES-256-GCM"
	// XChaCha20Poly1305 is authenticated; each write draws a fresh 24-byte nonce.
	XChaCha20Poly1305 Cipher = "XChaCha20-Poly1305"
)

// Ciphers lists the supported ciphers.
func Ciphers() []Cipher {
	return []Cipher{Salsa20, ChaCha20, AES128CBC, AES256GCM, XChaCha20Poly1305}
}

var errPadding = errors.New("encrypt: bad padding")

// valueCipher seals one value with material taken from the derived hash.
// Stream and CBC ciphers keep their nonce implicit and return a nil nonce.
type valueCipher interface {
	id() byte
	authenticated() bool
	seal(derived *[64]byte, ad, plaintext []byte, rnd io.Reader) (nonce, ct []byte, err error)
	open(derived *[64]byte, ad, nonce, ct []byte) ([]byte, error)
}

func lookupCipher(c Cipher) (valueCipher, bool) {
	switch c {
	case Salsa20:
		return salsaCipher{}, true
	case ChaCha20:
		return chachaCipher{}, true
	case AES128CBC:
		return cbcCipher{}, true
	case AES256GCM:
		return gcmCipher{}, true
	case XChaCha20Poly1305:
		return xpolyCipher{}, true
	}
	return nil, false
}

// Salsa20

type salsaCipher struct{}

func (salsaCipher) id() byte            { return 1 }
func (salsaCipher) authenticated() bool { return false }

func (salsaCipher) xor(derived *[64]byte, in []byte) []byte {
	var key [32]byte
	copy(key[:], derived[32:64])
	out := make([]byte, len(in))
	salsa20.XORKeyStream(out, in, derived[8:32], &key)
	return out
}

func (s salsaCipher) seal(derived *[64]byte, _, pt []byte, _ io.Reader) ([]byte, []byte, error) {
	return nil, s.xor(derived, pt), nil
}

func (s salsaCipher) open(derived *[64]byte, _, _, ct []byte) ([]byte, error) {
	return s.xor(derived, ct), nil
}

// ChaCha20

type chachaCipher struct{}

func (chachaCipher) id() byte            { return 2 }
func (chachaCipher) authenticated() bool { return false }

func (chachaCipher) xor(derived *[64]byte, in []byte) ([]byte, error) {
	// a 24-byte nonce selects XChaCha20
	c, err := chacha20.NewUnauthenticatedCipher(derived[32:64], derived[8:32])
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(in))
	c.XORKeyStream(out, in)
	return out, nil
}

func (c chachaCipher) seal(derived *[64]byte, _, pt []byte, _ io.Reader) ([]byte, []byte, error) {
	ct, err := c.xor(derived, pt)
	return nil, ct, err
}

func (c chachaCipher) open(derived *[64]byte, _, _, ct []byte) ([]byte, error) {
	return c.xor(derived, ct)
}

// AES-128-CBC

type cbcCipher struct{}

func (cbcCipher) id() byte            { return 3 }
func (cbcCipher) authenticated() bool { return false }

func (cbcCipher) seal(derived *[64]byte, _, pt []byte, _ io.Reader) ([]byte, []byte, error) {
	block, err := aes.NewCipher(derived[48:64])
	if err != nil {
		return nil, nil, err
	}
	padded := pad(pt, aes.BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, derived[32:48]).CryptBlocks(ct, padded)
	return nil, ct, nil
}

func (cbcCipher) open(derived *[64]byte, _, _, ct []byte) ([]byte, error) {
	if len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return nil, errPadding
	}
	block, err := aes.NewCipher(derived[48:64])
	if err != nil {
		return nil, err
	}
	pt := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, derived[32:48]).CryptBlocks(pt, ct)
	return unpad(pt, aes.BlockSize)
}

// pad applies PKCS#7; a full block is added when len(b) is a multiple of size.
func pad(b []byte, size int) []byte {
	n := size - len(b)%size
	out := make([]byte, len(b), len(b)+n)
	copy(out, b)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 {
		return nil, errPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, errPadding
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, errPadding
		}
	}
	return b[:len(b)-n], nil
}

// AEADs

func sealAEAD(a cipher.AEAD, ad, pt []byte, rnd io.Reader) ([]byte, []byte, error) {
	nonce := make([]byte, a.NonceSize())
	if _, err := io.ReadFull(rnd, nonce); err != nil {
		return nil, nil, err
	}
	return nonce, a.Seal(nil, nonce, pt, ad), nil
}

func openAEAD(a cipher.AEAD, ad, nonce, ct []byte) ([]byte, error) {
	if len(nonce) != a.NonceSize() {
		return nil, errors.New("encrypt: bad nonce size")
	}
	return a.Open(nil, nonce, ct, ad)
}

type gcmCipher struct{}

func (gcmCipher) id() byte            { return 4 }
func (gcmCipher) authenticated() bool { return true }

func (gcmCipher) aead(derived *[64]byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(derived[32:64])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (g gcmCipher) seal(derived *[64]byte, ad, pt []byte, rnd io.Reader) ([]byte, []byte, error) {
	a, err := g.aead(derived)
	if err != nil {
		return nil, nil, err
	}
	return sealAEAD(a, ad, pt, rnd)
}

func (g gcmCipher) open(derived *[64]byte, ad, nonce, ct []byte) ([]byte, error) {
	a, err := g.aead(derived)
	if err != nil {
		return nil, err
	}
	return openAEAD(a, ad, nonce, ct)
}

type xpolyCipher struct{}

func (xpolyCipher) id() byte            { return 5 }
func (xpolyCipher) authenticated() bool { return true }

func (xpolyCipher) seal(derived *[64]byte, ad, pt []byte, rnd io.Reader) ([]byte, []byte, error) {
	a, err := chacha20poly1305.NewX(derived[32:64])
	if err != nil {
		return nil, nil, err
	}
	return sealAEAD(a, ad, pt, rnd)
}

func (xpolyCipher) open(derived *[64]byte, ad, nonce, ct []byte) ([]byte, error) {
	a, err := chacha20poly1305.NewX(derived[32:64])
	if err != nil {
		return nil, err
	}
	return openAEAD(a, ad, nonce, ct)
}
