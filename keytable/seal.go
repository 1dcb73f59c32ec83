package keytable

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	saltSize  = 16
	nonceSize = 24
	keySize   = 32

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

var sealMagic = []byte("RKT1")

// ErrSealed is returned by Open when the data is not a sealed table or the
// passphrase is wrong.
var ErrSealed = errors.New("keytable: cannot open sealed data")

func deriveKey(passphrase string, salt []byte) (*[keySize]byte, error) {
	k, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, err
	}
	var key [keySize]byte
	copy(key[:], k)
	return &key, nil
}

// Seal encrypts plain under a key derived from passphrase. The output is
// magic | salt | nonce | secretbox.
func Seal(plain []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, errors.New("keytable: empty passphrase")
	}
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("keytable: salt: %w", err)
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("keytable: nonce: %w", err)
	}
	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, fmt.Errorf("keytable: derive key: %w", err)
	}

	out := make([]byte, 0, len(sealMagic)+saltSize+nonceSize+len(plain)+secretbox.Overhead)
	out = append(out, sealMagic...)
	out = append(out, salt...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, plain, &nonce, key), nil
}

// Open reverses Seal.
func Open(sealed []byte, passphrase string) ([]byte, error) {
	head := len(sealMagic) + saltSize + nonceSize
	if len(sealed) < head+secretbox.Overhead || string(sealed[:len(sealMagic)]) != string(sealMagic) {
		return nil, ErrSealed
	}
	salt := sealed[len(sealMagic) : len(sealMagic)+saltSize]
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[len(sealMagic)+saltSize:head])

	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, fmt.Errorf("keytable: derive key: %w", err)
	}
	plain, ok := secretbox.Open(nil, sealed[head:], &nonce, key)
	if !ok {
		return nil, ErrSealed
	}
	return plain, nil
}
