package gateway

import (
	"net/http"

	"github.com/espen/sup-gateway/internal/metrics"
)

// FailureKind classifies why a request did not reach a successful
// upstream dispatch. The HTTP status and body policy for each kind is
// fixed by the 400/500/502 taxonomy: malformed input and failed
// verification are deliberately indistinguishable to a caller, store and
// signing failures are server faults, and upstream transport failures are
// the one case worth explaining in the body.
type FailureKind int

const (
	// MalformedEnvelope, BadSignature, UnknownPrincipal, BadBody, and
	// BadProxyURL all produce an empty 400 response. Disclosing which one
	// occurred would help an attacker distinguish "wrong secret" from
	// "malformed request".
	MalformedEnvelope FailureKind = iota
	BadSignature
	UnknownPrincipal
	BadBody
	BadProxyURL

	// SecretStoreFailure and SigningComputationFailure are server faults.
	SecretStoreFailure
	SigningComputationFailure

	// UpstreamTransportFailure is surfaced to the caller with detail,
	// since the caller has already been authenticated.
	UpstreamTransportFailure
)

// Failure is the error type returned by each stage of Handler.ServeHTTP.
// It never escapes the handler; writeFailure turns it into a response.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return f.Err.Error()
	}
	return "gateway: request rejected"
}

func fail(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

// writeFailure maps a Failure to its response. Every path here writes
// exactly once and never panics.
func writeFailure(w http.ResponseWriter, f *Failure) {
	switch f.Kind {
	case MalformedEnvelope, BadSignature, UnknownPrincipal, BadBody, BadProxyURL:
		w.WriteHeader(http.StatusBadRequest)
	case SecretStoreFailure, SigningComputationFailure:
		w.WriteHeader(http.StatusInternalServerError)
	case UpstreamTransportFailure:
		w.WriteHeader(http.StatusBadGateway)
		if f.Err != nil {
			_, _ = w.Write([]byte(f.Err.Error()))
		}
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// authFailureReason maps a Failure to a metrics label, without leaking
// that label to the HTTP response itself.
func authFailureReason(kind FailureKind) string {
	switch kind {
	case MalformedEnvelope:
		return metrics.AuthReasonMalformedEnvelope
	case BadSignature:
		return metrics.AuthReasonBadSignature
	case UnknownPrincipal:
		return metrics.AuthReasonUnknownPrincipal
	case BadBody:
		return metrics.AuthReasonBadBody
	case BadProxyURL:
		return metrics.AuthReasonBadProxyURL
	default:
		return metrics.AuthReasonOther
	}
}
