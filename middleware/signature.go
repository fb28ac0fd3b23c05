package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
)

// SignatureHeader carries base64(HMAC-SHA256(secret, body)) on internal
// service-to-service requests.
const SignatureHeader = "X-Signature"

// DefaultMaxSignedBody bounds the body read by RequireSignature.
const DefaultMaxSignedBody = 1 << 20

// SignBody returns the SignatureHeader value for body.
func SignBody(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// RequireSignature rejects requests whose body does not match the
// SignatureHeader under secret. The body is restored for next.
func RequireSignature(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			received, err := base64.StdEncoding.DecodeString(r.Header.Get(SignatureHeader))
			if err != nil || len(received) == 0 || len(secret) == 0 {
				http.Error(w, "invalid signature", http.StatusUnauthorized)
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, DefaultMaxSignedBody))
			if err != nil {
				http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
				return
			}

			mac := hmac.New(sha256.New, secret)
			mac.Write(body)
			if !hmac.Equal(mac.Sum(nil), received) {
				http.Error(w, "invalid signature", http.StatusUnauthorized)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
			next.ServeHTTP(w, r)
		})
	}
}
