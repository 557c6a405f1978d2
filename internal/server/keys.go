package server

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	appErrors "geoform/internal/errors"
)

// KeyBits is the modulus size of generated key pairs.
const KeyBits = 2048

// KeyPair holds the private key and its PEM encoded public half.
type KeyPair struct {
	private   *rsa.PrivateKey
	publicPEM string
}

// GenerateKeyPair creates a fresh RSA key pair.
func GenerateKeyPair(bits int) (*KeyPair, error) {
	if bits <= 0 {
		bits = KeyBits
	}
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}
	return newKeyPair(priv)
}

// LoadKeyPair reads a PEM private key (PKCS#1 or PKCS#8) from path.
func LoadKeyPair(path string) (*KeyPair, error) {
	//nolint:gosec // G304: key path is operator configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, appErrors.New(appErrors.CodeKeyLoad, "read private key", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, appErrors.New(appErrors.CodeKeyLoad, fmt.Sprintf("%s: no PEM block", path), nil)
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return newKeyPair(key)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, appErrors.New(appErrors.CodeKeyLoad, fmt.Sprintf("%s: parse private key", path), err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, appErrors.New(appErrors.CodeKeyLoad, fmt.Sprintf("%s: not an RSA key", path), nil)
	}
	return newKeyPair(key)
}

func newKeyPair(priv *rsa.PrivateKey) (*KeyPair, error) {
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	pub := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return &KeyPair{private: priv, publicPEM: string(pub)}, nil
}

// PublicPEM returns the SubjectPublicKeyInfo PEM of the pair.
func (k *KeyPair) PublicPEM() string {
	return k.publicPEM
}

// PrivatePEM returns the PKCS#1 PEM of the private key.
func (k *KeyPair) PrivatePEM() string {
	return string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(k.private),
	}))
}

// Decrypt reverses secure.RSAEncrypter: base64 then PKCS#1 v1.5.
func (k *KeyPair) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ciphertext))
	if err != nil {
		return "", appErrors.New(appErrors.CodeEncryption, "decode ciphertext", err)
	}
	plain, err := rsa.DecryptPKCS1v15(rand.Reader, k.private, raw)
	if err != nil {
		return "", appErrors.New(appErrors.CodeEncryption, "decrypt field", err)
	}
	if !utf8.Valid(plain) {
		return "", appErrors.New(appErrors.CodeEncryption, "decrypted value is not UTF-8", nil)
	}
	return string(plain), nil
}

// WriteFiles writes private.pem and public.pem into dir and returns the
// private key path.
func (k *KeyPair) WriteFiles(dir string) (string, error) {
	//nolint:gosec // G301: key directory needs standard permissions
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create key directory: %w", err)
	}
	privPath := filepath.Join(dir, "private.pem")
	if err := os.WriteFile(privPath, []byte(k.PrivatePEM()), 0o600); err != nil {
		return "", fmt.Errorf("write private key: %w", err)
	}
	//nolint:gosec // G306: public key is meant to be readable
	if err := os.WriteFile(filepath.Join(dir, "public.pem"), []byte(k.publicPEM), 0o644); err != nil {
		return "", fmt.Errorf("write public key: %w", err)
	}
	return privPath, nil
}
