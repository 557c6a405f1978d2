package secure

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"io"
	"sync"

	appErrors "geoform/internal/errors"
)

// Encrypter turns one plaintext into ciphertext under publicKey.
type Encrypter interface {
	Encrypt(plaintext, publicKey string) (string, error)
}

// EncrypterFunc adapts a function to Encrypter.
type EncrypterFunc func(plaintext, publicKey string) (string, error)

// Encrypt implements Encrypter.
func (f EncrypterFunc) Encrypt(plaintext, publicKey string) (string, error) {
	return f(plaintext, publicKey)
}

// RSAEncrypter encrypts with RSAES-PKCS1-v1_5 and returns base64 (standard
// encoding), which is what the backend's PKCS#1 v1.5 decryptor expects.
type RSAEncrypter struct {
	// Random defaults to crypto/rand.Reader.
	Random io.Reader

	mu     sync.Mutex
	pemKey string
	parsed *rsa.PublicKey
}

// NewRSAEncrypter returns an encrypter using crypto/rand.
func NewRSAEncrypter() *RSAEncrypter {
	return &RSAEncrypter{Random: rand.Reader}
}

// Encrypt implements Encrypter.
func (e *RSAEncrypter) Encrypt(plaintext, publicKey string) (string, error) {
	key, err := e.key(publicKey)
	if err != nil {
		return "", err
	}
	random := e.Random
	if random == nil {
		random = rand.Reader
	}
	out, err := rsa.EncryptPKCS1v15(random, key, []byte(plaintext))
	if err != nil {
		return "", appErrors.New(appErrors.CodeEncryption, "rsa encrypt", err)
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

func (e *RSAEncrypter) key(publicKey string) (*rsa.PublicKey, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.parsed != nil && e.pemKey == publicKey {
		return e.parsed, nil
	}
	key, err := ParsePublicKey(publicKey)
	if err != nil {
		return nil, err
	}
	e.pemKey, e.parsed = publicKey, key
	return key, nil
}

// ParsePublicKey decodes a PEM "PUBLIC KEY" (PKIX) or "RSA PUBLIC KEY"
// (PKCS#1) block.
func ParsePublicKey(pemKey string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemKey))
	if block == nil {
		return nil, appErrors.New(appErrors.CodeEncryption, "public key is not PEM encoded", nil)
	}
	switch block.Type {
	case "PUBLIC KEY":
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, appErrors.New(appErrors.CodeEncryption, "parse public key", err)
		}
		key, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, appErrors.New(appErrors.CodeEncryption, fmt.Sprintf("public key is %T, not RSA", parsed), nil)
		}
		return key, nil
	case "RSA PUBLIC KEY":
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, appErrors.New(appErrors.CodeEncryption, "parse public key", err)
		}
		return key, nil
	default:
		return nil, appErrors.New(appErrors.CodeEncryption, fmt.Sprintf("unexpected PEM block %q", block.Type), nil)
	}
}
