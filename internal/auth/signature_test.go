package auth_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"

	"github.com/mithileshchellappan/pushgate/internal/auth"
)

func newTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating test key: %v", err)
	}
	return key
}

func TestSignVerifyRoundTrip(t *testing.T) {
	key := newTestKey(t)

	data := auth.Canonicalize(auth.Params{
		"domain": "news",
		"title":  "Hello",
	}, "1700000000")

	sig, err := auth.Sign(data, key)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if strings.ContainsAny(sig, "\r\n") {
		t.Errorf("signature contains line breaks: %q", sig)
	}
	if !auth.Verify(data, sig, &key.PublicKey) {
		t.Errorf("Verify() = false for a signature we just produced")
	}
}

func TestVerifyTamper(t *testing.T) {
	key := newTestKey(t)
	data := []byte("canonicalbytes")

	sig, err := auth.Sign(data, key)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	t.Run("flipped data byte", func(t *testing.T) {
		tampered := []byte("canonicalbytez")
		if auth.Verify(tampered, sig, &key.PublicKey) {
			t.Error("Verify() accepted tampered data")
		}
	})

	t.Run("flipped signature char", func(t *testing.T) {
		flipped := []byte(sig)
		if flipped[0] == 'A' {
			flipped[0] = 'B'
		} else {
			flipped[0] = 'A'
		}
		if auth.Verify(data, string(flipped), &key.PublicKey) {
			t.Error("Verify() accepted tampered signature")
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		other := newTestKey(t)
		if auth.Verify(data, sig, &other.PublicKey) {
			t.Error("Verify() accepted signature from another key")
		}
	})
}

func TestVerifyMalformedSignature(t *testing.T) {
	key := newTestKey(t)
	data := []byte("payload")

	for name, sig := range map[string]string{
		"not base64":    "%%%not-base64%%%",
		"empty":         "",
		"truncated":     "QQ==",
		"garbage bytes": "aGVsbG8gd29ybGQ=",
	} {
		t.Run(name, func(t *testing.T) {
			if auth.Verify(data, sig, &key.PublicKey) {
				t.Errorf("Verify() = true for %q", sig)
			}
		})
	}
}

func TestParseKeysRoundTrip(t *testing.T) {
	key := newTestKey(t)

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshaling public key: %v", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	priv, err := auth.ParsePrivateKey(privPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey() error: %v", err)
	}
	pub, err := auth.ParsePublicKey(pubPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey() error: %v", err)
	}

	data := []byte("sign me")
	sig, err := auth.Sign(data, priv)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if !auth.Verify(data, sig, pub) {
		t.Error("Verify() = false after PEM round trip")
	}
}

func TestParseKeysRejectsGarbage(t *testing.T) {
	if _, err := auth.ParsePrivateKey([]byte("not a key")); err == nil {
		t.Error("ParsePrivateKey() accepted garbage")
	}
	if _, err := auth.ParsePublicKey([]byte("not a key")); err == nil {
		t.Error("ParsePublicKey() accepted garbage")
	}
}
