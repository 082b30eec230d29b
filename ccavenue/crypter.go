package ccavenue

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
)

// CCAvenue's API encrypts every payload with AES-128-CBC using the MD5 digest
// of the merchant working key and a fixed incrementing IV. The scheme is
// deterministic on purpose: the gateway decrypts with the same derived key and
// there is no per-call nonce in the protocol.

var ErrMissingKey = errors.New("ccavenue: encryption key is not set")

// iv is mandated by the gateway; both sides hardcode it.
var iv = []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f}

// Crypter encrypts and decrypts gateway payloads with a merchant working key.
type Crypter struct {
	key string
}

func NewCrypter(workingKey string) *Crypter {
	return &Crypter{key: workingKey}
}

// Encrypt returns the hex-encoded AES-128-CBC ciphertext of data.
// An empty working key is a configuration error, never empty ciphertext.
func (c *Crypter) Encrypt(data []byte) (string, error) {
	if c.key == "" {
		return "", ErrMissingKey
	}
	block, err := aes.NewCipher(c.derivedKey())
	if err != nil {
		return "", fmt.Errorf("ccavenue: init cipher: %w", err)
	}
	padded := pkcs7Pad(data, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return hex.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. It fails on malformed hex, truncated ciphertext
// or bad padding (wrong key) and never returns partially decrypted data.
func (c *Crypter) Decrypt(enc string) ([]byte, error) {
	if c.key == "" {
		return nil, ErrMissingKey
	}
	raw, err := hex.DecodeString(enc)
	if err != nil {
		return nil, fmt.Errorf("ccavenue: ciphertext is not valid hex: %w", err)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return nil, errors.New("ccavenue: ciphertext length is not a multiple of the block size")
	}
	block, err := aes.NewCipher(c.derivedKey())
	if err != nil {
		return nil, fmt.Errorf("ccavenue: init cipher: %w", err)
	}
	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, raw)
	plain, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return nil, err
	}
	return plain, nil
}

func (c *Crypter) derivedKey() []byte {
	sum := md5.Sum([]byte(c.key))
	return sum[:]
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("ccavenue: empty plaintext")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errors.New("ccavenue: bad padding (wrong key or corrupt ciphertext)")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("ccavenue: bad padding (wrong key or corrupt ciphertext)")
		}
	}
	return data[:len(data)-n], nil
}
