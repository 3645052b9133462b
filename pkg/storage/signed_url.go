package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrTokenInvalid covers malformed tokens and signature mismatches.
	ErrTokenInvalid = errors.New("invalid download token")
	// ErrTokenExpired is returned for well-signed tokens past their expiry.
	ErrTokenExpired = errors.New("download token expired")
)

// DownloadClaims identifies a stored file and who it was issued for.
type DownloadClaims struct {
	Subject   string
	Key       string
	ExpiresAt time.Time
}

// SignedURLSigner issues short-lived HMAC-SHA256 download tokens of the form
// subject.expiry.key.signature, every part URL-safe.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer. ttl <= 0 defaults to 24h.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate returns a token for key issued to subject, plus its expiry.
func (s *SignedURLSigner) Generate(subject, key string) (string, time.Time, error) {
	if subject == "" || key == "" {
		return "", time.Time{}, fmt.Errorf("subject and key required")
	}
	if strings.Contains(subject, ".") {
		return "", time.Time{}, fmt.Errorf("subject must not contain '.'")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	body := strings.Join([]string{
		subject,
		strconv.FormatInt(expiresAt.Unix(), 10),
		base64.RawURLEncoding.EncodeToString([]byte(key)),
	}, ".")
	return body + "." + s.sign(body), expiresAt, nil
}

// Verify checks the signature and expiry. Expired tokens return their claims
// together with ErrTokenExpired.
func (s *SignedURLSigner) Verify(token string) (DownloadClaims, error) {
	idx := strings.LastIndexByte(token, '.')
	if idx < 0 || len(s.secret) == 0 {
		return DownloadClaims{}, ErrTokenInvalid
	}
	body, sig := token[:idx], token[idx+1:]
	if !hmac.Equal([]byte(s.sign(body)), []byte(sig)) {
		return DownloadClaims{}, ErrTokenInvalid
	}

	parts := strings.Split(body, ".")
	if len(parts) != 3 {
		return DownloadClaims{}, ErrTokenInvalid
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return DownloadClaims{}, ErrTokenInvalid
	}
	key, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return DownloadClaims{}, ErrTokenInvalid
	}

	claims := DownloadClaims{Subject: parts[0], Key: string(key), ExpiresAt: time.Unix(exp, 0)}
	if s.now().After(claims.ExpiresAt) {
		return claims, ErrTokenExpired
	}
	return claims, nil
}

func (s *SignedURLSigner) sign(body string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
