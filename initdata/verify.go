package initdata

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// HashField carries the hex-encoded payload signature.
	HashField = "hash"
	// MarkerField must be present for a payload to be considered at all.
	MarkerField = "query_id"
	// UserField carries the JSON-encoded platform user object.
	UserField = "user"
	// AuthDateField carries the unix time the payload was signed at.
	AuthDateField = "auth_date"

	secretDomain = "WebAppData"

	// maxClockSkew bounds how far auth_date may sit ahead of the local clock.
	maxClockSkew = 30 * time.Second
)

var (
	// ErrMalformed is returned when the payload cannot be parsed or lacks
	// the hash or marker field.
	ErrMalformed = errors.New("initdata malformed")
	// ErrSignature is returned when the computed digest does not match.
	ErrSignature = errors.New("initdata signature mismatch")
	// ErrExpired is returned when auth_date is older than the allowed age or
	// lies further in the future than clock skew explains.
	ErrExpired = errors.New("initdata expired")
)

// Verifier checks payloads against a single bot token.
type Verifier struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewVerifier derives the signing key from botToken once. maxAge <= 0
// disables the auth_date freshness check.
func NewVerifier(botToken string, maxAge time.Duration) *Verifier {
	return &Verifier{
		secret: deriveSecret(botToken),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Check verifies payload and returns the parsed values on success.
func (v *Verifier) Check(payload string) (url.Values, error) {
	values, err := parse(payload)
	if err != nil {
		return nil, err
	}
	if !matches(values, v.secret) {
		return nil, ErrSignature
	}
	if v.maxAge > 0 {
		signedAt, err := strconv.ParseInt(values.Get(AuthDateField), 10, 64)
		if err != nil {
			return nil, ErrMalformed
		}
		age := v.now().Sub(time.Unix(signedAt, 0))
		if age > v.maxAge || age < -maxClockSkew {
			return nil, ErrExpired
		}
	}
	return values, nil
}

// Verify reports whether payload carries a valid signature for botToken.
// It never panics and fails closed on malformed input.
func Verify(payload, botToken string) bool {
	values, err := parse(payload)
	if err != nil {
		return false
	}
	return matches(values, deriveSecret(botToken))
}

// ExtractUserID returns the integer id of the user object in payload, or 0
// when the field is missing or not a well-formed integer. 0 is never a
// valid identity.
func ExtractUserID(payload string) int64 {
	values, err := url.ParseQuery(payload)
	if err != nil {
		return 0
	}
	return UserIDFromValues(values)
}

// UserIDFromValues reads the user id from already parsed values.
func UserIDFromValues(values url.Values) int64 {
	raw := values.Get(UserField)
	if raw == "" {
		return 0
	}

	var user struct {
		ID *int64 `json:"id"`
	}
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return 0
	}
	if user.ID == nil || *user.ID <= 0 {
		return 0
	}
	return *user.ID
}

// Sign computes the hex hash for values under botToken. It is the inverse
// of Verify and is used by clients and tests to build payloads.
func Sign(values url.Values, botToken string) string {
	return hex.EncodeToString(digest(values, deriveSecret(botToken)))
}

func parse(payload string) (url.Values, error) {
	values, err := url.ParseQuery(payload)
	if err != nil {
		return nil, ErrMalformed
	}
	if !values.Has(HashField) || !values.Has(MarkerField) {
		return nil, ErrMalformed
	}
	return values, nil
}

func matches(values url.Values, secret []byte) bool {
	received, err := hex.DecodeString(values.Get(HashField))
	if err != nil {
		return false
	}
	return hmac.Equal(digest(values, secret), received)
}

func deriveSecret(botToken string) []byte {
	mac := hmac.New(sha256.New, []byte(secretDomain))
	mac.Write([]byte(botToken))
	return mac.Sum(nil)
}

func digest(values url.Values, secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(checkString(values)))
	return mac.Sum(nil)
}

func checkString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == HashField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(values.Get(k))
	}
	return b.String()
}
