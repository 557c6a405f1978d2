package secure

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"testing"

	appErrors "geoform/internal/errors"
)

func TestRSAEncrypterRoundTrip(t *testing.T) {
	priv, pubPEM := testKeyPair(t)
	enc := NewRSAEncrypter()

	ct, err := enc.Encrypt("secret123", pubPEM)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(ct)
	if err != nil {
		t.Fatalf("ciphertext is not base64: %v", err)
	}
	plain, err := rsa.DecryptPKCS1v15(rand.Reader, priv, raw)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if string(plain) != "secret123" {
		t.Fatalf("round trip = %q", plain)
	}

	again, err := enc.Encrypt("secret123", pubPEM)
	if err != nil {
		t.Fatal(err)
	}
	if again == ct {
		t.Fatal("PKCS#1 v1.5 padding is randomised; ciphertexts should differ")
	}
}

func TestParsePublicKeyFormats(t *testing.T) {
	priv, pkix := testKeyPair(t)
	pkcs1 := string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PUBLIC KEY",
		Bytes: x509.MarshalPKCS1PublicKey(&priv.PublicKey),
	}))

	for name, in := range map[string]string{"pkix": pkix, "pkcs1": pkcs1} {
		t.Run(name, func(t *testing.T) {
			key, err := ParsePublicKey(in)
			if err != nil {
				t.Fatalf("ParsePublicKey: %v", err)
			}
			if key.N.Cmp(priv.PublicKey.N) != 0 {
				t.Fatal("modulus mismatch")
			}
		})
	}
}

func TestParsePublicKeyRejectsGarbage(t *testing.T) {
	tests := map[string]string{
		"not pem":     "definitely not a key",
		"wrong block": string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{1, 2, 3}})),
		"bad der":     string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: []byte{1, 2, 3}})),
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePublicKey(in)
			if !appErrors.IsCode(err, appErrors.CodeEncryption) {
				t.Fatalf("expected encryption error, got %v", err)
			}
		})
	}
}
