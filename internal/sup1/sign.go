package sup1

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"
)

// LongDateFormat is the X-Sup-Date / string-to-sign timestamp layout.
const LongDateFormat = "20060102T150405Z"

// ShortDateFormat is the scope (credential-date) layout.
const ShortDateFormat = "20060102"

// Scope returns the YYYYMMDD UTC scope string for a signing datetime.
func Scope(t time.Time) string {
	return t.UTC().Format(ShortDateFormat)
}

// StringToSign builds the four-line string-to-sign for a given datetime
// and canonical request.
func StringToSign(datetime time.Time, canonicalRequest string) string {
	sum := sha256.Sum256([]byte(canonicalRequest))
	return fmt.Sprintf("%s\n%s\n%s\n%s",
		Algorithm,
		datetime.UTC().Format(LongDateFormat),
		Scope(datetime),
		hex.EncodeToString(sum[:]),
	)
}

func hmacSHA256(key, msg []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(msg)
	return h.Sum(nil)
}

// SigningKey derives the per-day signing key: a single HMAC step over the
// scope date, keyed by "SUP1-HMAC-SHA256" + secret. Unlike AWS SigV4's
// four-step region/service chain, SUP1 has no region or service dimension.
func SigningKey(secret []byte, datetime time.Time) []byte {
	key := append([]byte(Algorithm), secret...)
	return hmacSHA256(key, []byte(Scope(datetime)))
}

// Signature computes hex_lower(HMAC_SHA256(signingKey, stringToSign)).
func Signature(signingKey []byte, stringToSign string) string {
	return hex.EncodeToString(hmacSHA256(signingKey, []byte(stringToSign)))
}

// Sign is the full signer: given a secret, datetime, and the already-built
// canonical request, returns the hex-lower signature.
func Sign(secret []byte, datetime time.Time, canonicalRequest string) string {
	key := SigningKey(secret, datetime)
	sts := StringToSign(datetime, canonicalRequest)
	return Signature(key, sts)
}

// Envelope is the set of inputs needed to build the X-Sup-* query
// parameters that carry the signing metadata (everything except the
// signature itself, which the caller appends after signing). The envelope
// parameters are not part of the signed canonical request.
type Envelope struct {
	AccessKey     string
	Datetime      time.Time
	ExpiresSecs   int
	ProxyURL      *url.URL
	SignedHeaders string // ';'-joined lowercase header names
	SignBody      bool
}

// QueryNoSignature builds the "?X-Sup-Algorithm=...&...&X-Sup-Body=..."
// query string in the fixed key order spec §4.2 requires, omitting
// X-Sup-Signature (which the caller computes over the canonical request of
// the proxy URL and then appends).
func (e Envelope) QueryNoSignature() (string, error) {
	if e.ProxyURL.Scheme == "" || e.ProxyURL.Host == "" {
		return "", fmt.Errorf("sup1: proxy url must be absolute")
	}

	credential := e.AccessKey + "/" + Scope(e.Datetime)
	proxy := e.ProxyURL.Scheme + "://" + e.ProxyURL.Host + e.ProxyURL.Path

	signBody := "false"
	if e.SignBody {
		signBody = "true"
	}

	q := "?" + QueryAlgorithm + "=" + Algorithm +
		"&" + QueryCredential + "=" + percentEncode(credential, &fragmentSlash) +
		"&" + QueryDate + "=" + e.Datetime.UTC().Format(LongDateFormat) +
		"&" + QueryExpires + "=" + fmt.Sprintf("%d", e.ExpiresSecs) +
		"&" + QueryProxy + "=" + percentEncode(proxy, &fragmentSlash) +
		"&" + QuerySignedHeaders + "=" + percentEncode(e.SignedHeaders, &fragmentSlash) +
		"&" + QueryBody + "=" + signBody

	return q, nil
}

// Query parameter names for the signing envelope (spec §6).
const (
	QueryAlgorithm     = "X-Sup-Algorithm"
	QueryCredential    = "X-Sup-Credential"
	QueryDate          = "X-Sup-Date"
	QueryExpires       = "X-Sup-Expires"
	QueryProxy         = "X-Sup-Proxy"
	QuerySignedHeaders = "X-Sup-SignedHeaders"
	QueryBody          = "X-Sup-Body"
	QuerySignature     = "X-Sup-Signature"
)
