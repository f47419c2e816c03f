package storage

import (
	"bytes"
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
	ErrTokenMalformed = errors.New("malformed download token")
	ErrTokenSignature = errors.New("download token signature mismatch")
	ErrTokenExpired   = errors.New("download token expired")
)

// Grant is what a download token authorises: one stored export of one session
// until ExpiresAt.
type Grant struct {
	SessionID string
	Path      string
	ExpiresAt time.Time
}

// DownloadSigner issues HMAC-SHA256 tokens for stored absence exports. A token
// is "<body>.<mac>", both base64url, where body is "session|unix-expiry|path".
type DownloadSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewDownloadSigner builds a signer. A non-positive ttl means one day.
func NewDownloadSigner(secret string, ttl time.Duration) *DownloadSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DownloadSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a grant for relPath within sessionID.
func (s *DownloadSigner) Issue(sessionID, relPath string) (string, Grant, error) {
	if sessionID == "" || relPath == "" {
		return "", Grant{}, fmt.Errorf("session id and path required")
	}
	if strings.Contains(sessionID, "|") {
		return "", Grant{}, fmt.Errorf("session id %q contains a separator", sessionID)
	}
	if len(s.secret) == 0 {
		return "", Grant{}, fmt.Errorf("signing secret missing")
	}

	grant := Grant{SessionID: sessionID, Path: relPath, ExpiresAt: s.now().Add(s.ttl).Truncate(time.Second)}
	body := []byte(sessionID + "|" + strconv.FormatInt(grant.ExpiresAt.Unix(), 10) + "|" + relPath)
	enc := base64.RawURLEncoding
	return enc.EncodeToString(body) + "." + enc.EncodeToString(s.mac(body)), grant, nil
}

// Verify checks the signature and expiry of token.
func (s *DownloadSigner) Verify(token string) (Grant, error) {
	encBody, encMAC, ok := strings.Cut(token, ".")
	if !ok {
		return Grant{}, ErrTokenMalformed
	}
	body, err := base64.RawURLEncoding.DecodeString(encBody)
	if err != nil {
		return Grant{}, ErrTokenMalformed
	}
	mac, err := base64.RawURLEncoding.DecodeString(encMAC)
	if err != nil {
		return Grant{}, ErrTokenMalformed
	}
	if !hmac.Equal(mac, s.mac(body)) {
		return Grant{}, ErrTokenSignature
	}

	parts := bytes.SplitN(body, []byte("|"), 3)
	if len(parts) != 3 {
		return Grant{}, ErrTokenMalformed
	}
	expiry, err := strconv.ParseInt(string(parts[1]), 10, 64)
	if err != nil {
		return Grant{}, ErrTokenMalformed
	}
	grant := Grant{SessionID: string(parts[0]), Path: string(parts[2]), ExpiresAt: time.Unix(expiry, 0)}
	if s.now().After(grant.ExpiresAt) {
		return grant, ErrTokenExpired
	}
	return grant, nil
}

func (s *DownloadSigner) mac(body []byte) []byte {
	h := hmac.New(sha256.New, s.secret)
	_, _ = h.Write(body)
	return h.Sum(nil)
}
