// Package gateway implements the signing gateway's HTTP surface: the
// state machine that turns a pre-signed inbound request into a verified,
// forwarded upstream call, plus the server and middleware around it.
package gateway

import (
	"crypto/hmac"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/espen/sup-gateway/internal/metrics"
	"github.com/espen/sup-gateway/internal/secretstore"
	"github.com/espen/sup-gateway/internal/sup1"
)

// Handler implements the S0→S4 state machine described for the gateway:
// parse envelope, resolve secret, settle body, verify signature, dispatch.
// It is safe for concurrent use; the zero value is not usable, use New.
type Handler struct {
	Store         secretstore.Store
	Client        *http.Client
	EnforceExpiry bool
	Now           func() time.Time
}

// New builds a Handler with a process-wide outbound client, matching the
// spec's "shared resources" note that the outbound client is conventionally
// reused across requests for connection pooling.
func New(store secretstore.Store, enforceExpiry bool) *Handler {
	return &Handler{
		Store:         store,
		Client:        &http.Client{Timeout: 30 * time.Second},
		EnforceExpiry: enforceExpiry,
		Now:           time.Now,
	}
}

// ServeHTTP is infallible from the caller's perspective: every failure
// path is recovered locally and turned into a response, never a panic.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	toSign, info, failure := h.verify(r)
	if failure != nil {
		metrics.AuthFailuresTotal.WithLabelValues(authFailureReason(failure.Kind)).Inc()
		writeFailure(w, failure)
		return
	}

	h.dispatch(w, r, toSign, info)
}

// verify runs S0 through S3: parse the envelope, resolve the secret,
// settle the body, and check the computed signature against the declared
// one. On success it returns the SignRequest used to verify (with Body
// populated if signing the body was requested) and the parsed
// SignatureInfo.
func (h *Handler) verify(r *http.Request) (sup1.SignRequest, sup1.SignatureInfo, *Failure) {
	// S0 → S1: parse envelope.
	toSign, info, err := sup1.FromRequest(r.Method, r.URL, r.Header)
	if err != nil {
		return sup1.SignRequest{}, sup1.SignatureInfo{}, fail(MalformedEnvelope, err)
	}

	if h.EnforceExpiry {
		age := h.Now().Sub(info.Datetime)
		if age < 0 || age > time.Duration(info.ExpiresSecs)*time.Second {
			return sup1.SignRequest{}, sup1.SignatureInfo{}, fail(BadSignature, nil)
		}
	}

	// S1 → S2: resolve the secret.
	secret, err := h.Store.GetSecret(r.Context(), info.PrincipalID)
	if err != nil {
		if err == secretstore.ErrUnknownPrincipal {
			return sup1.SignRequest{}, sup1.SignatureInfo{}, fail(UnknownPrincipal, err)
		}
		return sup1.SignRequest{}, sup1.SignatureInfo{}, fail(SecretStoreFailure, err)
	}

	// S2 → S3: settle the body if the signer chose to include it.
	if info.IncludeBody {
		body, failure := readExactBody(r)
		if failure != nil {
			return sup1.SignRequest{}, sup1.SignatureInfo{}, failure
		}
		toSign.Body = &body
		r.Body = io.NopCloser(strings.NewReader(body))
	}

	// S3 → S4: recompute and compare.
	computed := toSign.Sign(secret.Key)
	if !hmac.Equal([]byte(computed), []byte(info.Signature)) {
		return sup1.SignRequest{}, sup1.SignatureInfo{}, fail(BadSignature, nil)
	}

	return toSign, info, nil
}

// readExactBody reads exactly the declared Content-Length bytes, per the
// handler's "read N bytes, then present that buffer to both the
// canonicalizer and the outbound client" body-buffering rule. A missing
// or non-numeric Content-Length is a 400; a short read is a 400; a
// Content-Length shorter than the actual body silently truncates, and a
// Content-Length longer than the body blocks until the client closes and
// then fails as a short read — both match the source's documented (if
// imprecise) behavior.
func readExactBody(r *http.Request) (string, *Failure) {
	declared := r.Header.Get("Content-Length")
	n, err := strconv.ParseInt(declared, 10, 64)
	if err != nil || n < 0 {
		return "", fail(BadBody, err)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(io.LimitReader(r.Body, n), buf); err != nil {
		return "", fail(BadBody, err)
	}
	return string(buf), nil
}

// dispatch is S4: rewrite the request for the proxy URL and forward it,
// streaming the upstream response back verbatim.
func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, toSign sup1.SignRequest, info sup1.SignatureInfo) {
	if !isDispatchableProxyURL(info.ProxyURL) {
		metrics.AuthFailuresTotal.WithLabelValues(authFailureReason(BadProxyURL)).Inc()
		writeFailure(w, fail(BadProxyURL, nil))
		return
	}

	outbound, err := http.NewRequestWithContext(r.Context(), r.Method, info.ProxyURL.String(), bodyReader(toSign))
	if err != nil {
		writeFailure(w, fail(SigningComputationFailure, err))
		return
	}
	outbound.Host = info.ProxyURL.Host
	copyForwardableHeaders(r.Header, outbound.Header)
	outbound.Header.Set("Host", info.ProxyURL.Host)

	start := time.Now()
	resp, err := h.Client.Do(outbound)
	metrics.UpstreamDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamErrorsTotal.Inc()
		writeFailure(w, fail(UpstreamTransportFailure, err))
		return
	}
	defer resp.Body.Close()

	copyForwardableHeaders(resp.Header, w.Header())
	w.WriteHeader(resp.StatusCode)
	n, _ := io.Copy(w, resp.Body)
	metrics.BytesSent.Add(float64(n))
}

// isDispatchableProxyURL re-checks the proxy URL immediately before
// dispatch. S0's envelope parse already rejects an empty scheme/host, but
// accepts anything url.Parse will take, including schemes net/http's
// client refuses outright (e.g. "ftp"). Without this check such a URL
// would reach http.Client.Do and surface as an UpstreamTransportFailure
// (502, error text in body) instead of the 400 this class of malformed
// input is meant to produce.
func isDispatchableProxyURL(proxyURL *url.URL) bool {
	if proxyURL.Host == "" {
		return false
	}
	switch proxyURL.Scheme {
	case "http", "https":
		return true
	default:
		return false
	}
}

func bodyReader(toSign sup1.SignRequest) io.Reader {
	if toSign.Body == nil {
		return nil
	}
	return strings.NewReader(*toSign.Body)
}

// copyForwardableHeaders copies every header except Host, which is
// rewritten separately from the proxy URL per the handler's S3 rule.
func copyForwardableHeaders(src, dst http.Header) {
	for name, values := range src {
		if name == "Host" {
			continue
		}
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}

