package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mithileshchellappan/pushgate/internal/auth"
	"github.com/mithileshchellappan/pushgate/internal/keystore"
)

const (
	timestampHeader = "X-Push-Timestamp"
	signatureHeader = "X-Push-Signature"
)

// verifySignature authenticates a request against the caller's registered
// public key. The caller canonicalizes its form parameters together with the
// timestamp header and signs the result; we rebuild the same byte string from
// the parsed form and verify. Disabled when no keystore is configured.
func (s *Server) verifySignature(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.keys == nil {
			next.ServeHTTP(w, r)
			return
		}

		if err := r.ParseForm(); err != nil {
			s.reject(w, r, "malformed form body")
			return
		}

		timestamp := r.Header.Get(timestampHeader)
		signature := r.Header.Get(signatureHeader)
		if timestamp == "" || signature == "" {
			s.reject(w, r, "missing signature headers")
			return
		}

		if s.maxSkew > 0 {
			ts, err := strconv.ParseInt(timestamp, 10, 64)
			if err != nil {
				s.reject(w, r, "malformed timestamp header")
				return
			}
			skew := time.Now().Unix() - ts
			if skew < -s.maxSkew || skew > s.maxSkew {
				s.reject(w, r, "timestamp outside accepted window")
				return
			}
		}

		accessKey := r.Form.Get("access_key")
		if accessKey == "" {
			s.reject(w, r, "missing access_key")
			return
		}

		key, err := s.keys.Lookup(r.Context(), accessKey)
		if err != nil {
			if errors.Is(err, keystore.ErrNotFound) {
				s.reject(w, r, "unknown access_key")
				return
			}
			slog.Error("keystore lookup failed", "request", middleware.GetReqID(r.Context()), "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		publicKey, err := auth.ParsePublicKey([]byte(key.PublicKey))
		if err != nil {
			slog.Error("stored public key is unparseable", "request", middleware.GetReqID(r.Context()), "access_key", accessKey, "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		set := auth.Params{}
		for name, values := range r.Form {
			if len(values) > 0 {
				set[name] = values[0]
			}
		}

		if !auth.Verify(auth.Canonicalize(set, timestamp), signature, publicKey) {
			s.reject(w, r, "signature mismatch")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) reject(w http.ResponseWriter, r *http.Request, reason string) {
	s.metrics.IncRejected()
	slog.Warn("rejected request", "request", middleware.GetReqID(r.Context()), "reason", reason)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
