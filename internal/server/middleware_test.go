package server

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mithileshchellappan/pushgate/internal/auth"
	"github.com/mithileshchellappan/pushgate/internal/keystore"
	"github.com/mithileshchellappan/pushgate/pkg/metrics"
)

type fakeKeystore struct {
	keys map[string]*keystore.AccessKey
}

func (f *fakeKeystore) Lookup(ctx context.Context, keyID string) (*keystore.AccessKey, error) {
	if key, ok := f.keys[keyID]; ok {
		return key, nil
	}
	return nil, keystore.ErrNotFound
}

func (f *fakeKeystore) Close() error { return nil }

func generateTestKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		t.Fatalf("marshaling public key: %v", err)
	}
	pemText := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return privateKey, string(pemText)
}

func signedRequest(t *testing.T, key *rsa.PrivateKey, form url.Values, timestamp string) *http.Request {
	t.Helper()

	set := auth.Params{}
	for name := range form {
		set[name] = form.Get(name)
	}
	signature, err := auth.Sign(auth.Canonicalize(set, timestamp), key)
	if err != nil {
		t.Fatalf("signing request: %v", err)
	}

	r := httptest.NewRequest("POST", "/v1/messages", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("X-Push-Timestamp", timestamp)
	r.Header.Set("X-Push-Signature", signature)
	return r
}

func TestVerifySignature(t *testing.T) {
	privateKey, publicPEM := generateTestKey(t)
	otherKey, _ := generateTestKey(t)

	keys := &fakeKeystore{keys: map[string]*keystore.AccessKey{
		"app-1": {PublicKey: publicPEM, KeyType: keystore.KeyTypeApp},
	}}

	now := strconv.FormatInt(time.Now().Unix(), 10)
	stale := strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)

	form := url.Values{}
	form.Set("access_key", "app-1")
	form.Set("domain", "alerts")
	form.Set("title", "Hello")

	tests := map[string]struct {
		request    func(t *testing.T) *http.Request
		wantStatus int
	}{
		"valid signature passes": {
			request: func(t *testing.T) *http.Request {
				return signedRequest(t, privateKey, form, now)
			},
			wantStatus: http.StatusOK,
		},
		"tampered parameter rejected": {
			request: func(t *testing.T) *http.Request {
				signed := signedRequest(t, privateKey, form, now)
				tampered := url.Values{}
				for name := range form {
					tampered.Set(name, form.Get(name))
				}
				tampered.Set("title", "Changed")
				r := httptest.NewRequest("POST", "/v1/messages", strings.NewReader(tampered.Encode()))
				r.Header = signed.Header.Clone()
				return r
			},
			wantStatus: http.StatusUnauthorized,
		},
		"wrong key rejected": {
			request: func(t *testing.T) *http.Request {
				return signedRequest(t, otherKey, form, now)
			},
			wantStatus: http.StatusUnauthorized,
		},
		"unknown access key rejected": {
			request: func(t *testing.T) *http.Request {
				unknown := url.Values{}
				unknown.Set("access_key", "nobody")
				return signedRequest(t, privateKey, unknown, now)
			},
			wantStatus: http.StatusUnauthorized,
		},
		"stale timestamp rejected": {
			request: func(t *testing.T) *http.Request {
				return signedRequest(t, privateKey, form, stale)
			},
			wantStatus: http.StatusUnauthorized,
		},
		"missing signature headers rejected": {
			request: func(t *testing.T) *http.Request {
				r := httptest.NewRequest("POST", "/v1/messages", strings.NewReader(form.Encode()))
				r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				return r
			},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := New(nil, nil, keys, metrics.New(), 300)
			handler := s.verifySignature(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			r := tt.request(t)
			if r.Header.Get("Content-Type") == "" {
				r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body: %s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestVerifySignatureDisabledWithoutKeystore(t *testing.T) {
	s := New(nil, nil, nil, metrics.New(), 300)
	handler := s.verifySignature(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest("GET", "/v1/inbox?domain=alerts", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}
