package auth

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// ErrSignatureInvalid is returned by the verification middleware when a
// request signature does not match the canonical form.
var ErrSignatureInvalid = errors.New("request signature invalid")

// Sign produces the base64 signature of data using SHA-224 and RSA PKCS#1 v1.5.
// The output is plain standard base64 with no line wrapping.
func Sign(data []byte, key *rsa.PrivateKey) (string, error) {
	digest := sha256.Sum224(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA224, digest[:])
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks a base64 signature against data with the caller's public key.
// A structurally invalid signature string is a mismatch, not an error.
func Verify(data []byte, signature string, key *rsa.PublicKey) bool {
	raw, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	digest := sha256.Sum224(data)
	return rsa.VerifyPKCS1v15(key, crypto.SHA224, digest[:], raw) == nil
}
