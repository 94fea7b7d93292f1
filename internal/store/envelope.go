package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha1"
	"errors"

	"golang.org/x/crypto/pbkdf2"

	"steamguard/internal/domain"
	"steamguard/internal/util/memzero"
)

// Envelope parameters. These are fixed by the manifest format being
// interoperated with; changing any of them requires a new format version.
const (
	formatVersion = 1

	kdfIterations = 50000
	saltSize      = 8
	keySize       = 32 // AES-256
)

// envelope is the cleartext metadata stored beside the ciphertext. []byte
// fields serialize as standard base64 under encoding/json.
type envelope struct {
	Version int    `json:"version"`
	Salt    []byte `json:"salt"`
	IV      []byte `json:"iv"`
	Cipher  []byte `json:"cipher"`
}

// seal encrypts plaintext under a key derived from passphrase with a
// fresh random salt and IV.
func seal(passphrase string, plaintext []byte) (envelope, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return envelope{}, err
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return envelope{}, err
	}
	return sealWith(passphrase, plaintext, salt, iv)
}

// sealWith is the deterministic core of seal, split out so tests can pin
// the envelope format against fixed parameters.
func sealWith(passphrase string, plaintext, salt, iv []byte) (envelope, error) {
	if len(iv) != aes.BlockSize {
		return envelope{}, errors.New("iv must be one aes block")
	}
	key := deriveKey(passphrase, salt)
	defer memzero.Zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return envelope{}, err
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)

	return envelope{Version: formatVersion, Salt: salt, IV: iv, Cipher: ct}, nil
}

// open decrypts the envelope. Every failure mode (bad padding, wrong
// version, malformed ciphertext) collapses into ErrWrongPassphrase so the
// error signal leaks nothing about which check failed.
func (e envelope) open(passphrase string) ([]byte, error) {
	if e.Version != formatVersion {
		return nil, domain.ErrWrongPassphrase
	}
	if len(e.IV) != aes.BlockSize || len(e.Cipher) == 0 || len(e.Cipher)%aes.BlockSize != 0 {
		return nil, domain.ErrWrongPassphrase
	}

	key := deriveKey(passphrase, e.Salt)
	defer memzero.Zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, domain.ErrWrongPassphrase
	}
	padded := make([]byte, len(e.Cipher))
	cipher.NewCBCDecrypter(block, e.IV).CryptBlocks(padded, e.Cipher)

	plaintext, ok := pkcs7Unpad(padded, aes.BlockSize)
	if !ok {
		memzero.Zero(padded)
		return nil, domain.ErrWrongPassphrase
	}
	return plaintext, nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, kdfIterations, keySize, sha1.New)
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	out := make([]byte, len(b)+n)
	copy(out, b)
	for i := len(b); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, bool) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, false
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, false
	}
	for _, c := range b[len(b)-n:] {
		if c != byte(n) {
			return nil, false
		}
	}
	return b[:len(b)-n], true
}
