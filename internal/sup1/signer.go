package sup1

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// SignOptions describes a request to be signed by the companion signer
// tool (spec §1: "a companion signer... shares the canonicalization rules
// of §4 but is otherwise an independent tool that falls outside the
// gateway core").
type SignOptions struct {
	AccessKey   string
	Secret      []byte
	Now         time.Time
	ExpiresSecs int
	Method      string
	ProxyURL    *url.URL
	Headers     http.Header // the subset of headers to sign
	Body        string
	SignBody    bool
}

// BuildSignedURL produces a full URL against gatewayBase carrying the
// X-Sup-* signing envelope, including X-Sup-Signature, for opts. The
// signature is computed over the canonical request built from ProxyURL
// (never gatewayBase); the X-Sup-* envelope parameters are not part of the
// signed bytes, and X-Sup-Signature is appended only after signing.
func BuildSignedURL(gatewayBase string, opts SignOptions) (string, error) {
	base, err := url.Parse(gatewayBase)
	if err != nil {
		return "", fmt.Errorf("sup1: invalid gateway base: %w", err)
	}

	env := Envelope{
		AccessKey:     opts.AccessKey,
		Datetime:      opts.Now,
		ExpiresSecs:   opts.ExpiresSecs,
		ProxyURL:      opts.ProxyURL,
		SignedHeaders: SignedHeaders(opts.Headers),
		SignBody:      opts.SignBody,
	}

	queryNoSig, err := env.QueryNoSignature()
	if err != nil {
		return "", err
	}

	signingURL := *base
	signingURL.RawQuery = queryNoSig[1:] // drop leading '?'

	toSign := SignRequest{
		Method:      opts.Method,
		ProxyURL:    opts.ProxyURL,
		Headers:     opts.Headers,
		Datetime:    opts.Now,
		ExpiresSecs: opts.ExpiresSecs,
		PrincipalID: opts.AccessKey,
	}
	if opts.SignBody {
		body := opts.Body
		toSign.Body = &body
	}

	signature := toSign.Sign(opts.Secret)

	// Append the signature by hand rather than through url.Values.Encode,
	// which would re-sort keys and re-escape them under Go's query-escape
	// rules instead of the FRAGMENT_SLASH set spec §6 requires.
	signingURL.RawQuery += "&" + QuerySignature + "=" + signature

	return signingURL.String(), nil
}
