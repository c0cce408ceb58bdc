package sup1

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedEnvelope is returned when a required X-Sup-* parameter is
// missing, mistyped, or fails to parse. Deliberately generic: the caller
// must not use the underlying cause to distinguish "unauthenticated" from
// "malformed" in its response (spec §4.4 edge-case policy).
var ErrMalformedEnvelope = errors.New("sup1: malformed signing envelope")

// SignRequest is the tuple that gets canonicalized and signed: the method,
// upstream (proxy) URL, the subset of headers named by the signer, an
// optional body, the signing datetime, the declared expiry, and the
// principal id. It is built once per inbound request and consumed by the
// gateway handler; Body starts nil and is filled in after the handler
// buffers the request body (if body-signing was requested).
type SignRequest struct {
	Method      string
	ProxyURL    *url.URL
	Headers     http.Header
	Body        *string
	Datetime    time.Time
	ExpiresSecs int
	PrincipalID string
}

// CanonicalRequest renders the seven-line canonical form (spec §4.1) for
// this SignRequest, using Body's contents if present or the empty string
// if body-signing was disabled.
func (r SignRequest) CanonicalRequest() string {
	body := ""
	if r.Body != nil {
		body = *r.Body
	}
	return Request(r.Method, r.ProxyURL, r.Headers, body)
}

// Sign computes the SUP1 signature for this SignRequest under secret.
func (r SignRequest) Sign(secret []byte) string {
	return Sign(secret, r.Datetime, r.CanonicalRequest())
}

// SignatureInfo is parsed from an inbound request's signing envelope: the
// claim being made about who signed it and what was signed, independent of
// whether that claim verifies.
type SignatureInfo struct {
	PrincipalID       string
	Signature         string
	IncludeBody       bool
	ProxyURL          *url.URL
	Datetime          time.Time
	ExpiresSecs       int
	SignedHeaderNames []string
}

// FromRequest extracts a SignRequest and SignatureInfo from an inbound
// request's URL query (spec §4.3). The returned SignRequest carries the
// *proxy* URL, not the inbound URL, and a nil Body placeholder; the caller
// fills Body in after buffering (see gateway.Handler).
func FromRequest(method string, inboundURL *url.URL, headers http.Header) (SignRequest, SignatureInfo, error) {
	q := inboundURL.Query()

	algorithm := q.Get(QueryAlgorithm)
	if algorithm != Algorithm {
		return SignRequest{}, SignatureInfo{}, ErrMalformedEnvelope
	}

	credential := q.Get(QueryCredential)
	principalID, _, ok := strings.Cut(credential, "/")
	if !ok || principalID == "" {
		return SignRequest{}, SignatureInfo{}, ErrMalformedEnvelope
	}

	signature := q.Get(QuerySignature)
	if signature == "" {
		return SignRequest{}, SignatureInfo{}, ErrMalformedEnvelope
	}

	dateStr := q.Get(QueryDate)
	datetime, err := time.ParseInLocation(LongDateFormat, dateStr, time.UTC)
	if err != nil {
		return SignRequest{}, SignatureInfo{}, ErrMalformedEnvelope
	}

	expiresStr := q.Get(QueryExpires)
	expires, err := strconv.Atoi(expiresStr)
	if err != nil || expires < 0 {
		return SignRequest{}, SignatureInfo{}, ErrMalformedEnvelope
	}

	proxyRaw := q.Get(QueryProxy)
	if proxyRaw == "" {
		return SignRequest{}, SignatureInfo{}, ErrMalformedEnvelope
	}
	proxyURL, err := url.Parse(proxyRaw)
	if err != nil || proxyURL.Scheme == "" || proxyURL.Host == "" {
		return SignRequest{}, SignatureInfo{}, ErrMalformedEnvelope
	}

	includeBodyStr := q.Get(QueryBody)
	if includeBodyStr != "true" && includeBodyStr != "false" {
		return SignRequest{}, SignatureInfo{}, ErrMalformedEnvelope
	}
	includeBody := includeBodyStr == "true"

	signedHeadersStr := q.Get(QuerySignedHeaders)
	var signedHeaderNames []string
	if signedHeadersStr != "" {
		signedHeaderNames = strings.Split(signedHeadersStr, ";")
	}

	signed := make(http.Header, len(signedHeaderNames))
	for _, name := range signedHeaderNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if v := headers.Get(name); v != "" {
			signed.Set(name, v)
		}
	}

	info := SignatureInfo{
		PrincipalID:       principalID,
		Signature:         signature,
		IncludeBody:       includeBody,
		ProxyURL:          proxyURL,
		Datetime:          datetime,
		ExpiresSecs:       expires,
		SignedHeaderNames: signedHeaderNames,
	}

	toSign := SignRequest{
		Method:      method,
		ProxyURL:    proxyURL,
		Headers:     signed,
		Body:        nil,
		Datetime:    datetime,
		ExpiresSecs: expires,
		PrincipalID: principalID,
	}

	return toSign, info, nil
}
