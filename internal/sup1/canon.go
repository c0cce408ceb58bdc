// Package sup1 implements the SUP1-HMAC-SHA256 request canonicalization and
// signing protocol: a deterministic byte encoding of an HTTP request plus
// the HMAC key-derivation chain used to sign and verify it.
package sup1

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Algorithm is the literal value carried in X-Sup-Algorithm and as the
// first line of the string to sign.
const Algorithm = "SUP1-HMAC-SHA256"

// fragment is the AsciiSet of bytes that must be percent-encoded in a
// canonical URI. It mirrors RFC 3986's reserved/unsafe set used by the
// reference signer, expressed as a lookup table instead of an AsciiSet
// type since the standard library has no equivalent.
var fragment = buildSet(":?#[]@!$&'()*+,;=\" <>%{}|\\^`")

// fragmentSlash additionally escapes '/', used for query keys/values and
// for the credential, proxy-url and signed-headers envelope fields.
var fragmentSlash = buildSet(":?#[]@!$&'()*+,;=\" <>%{}|\\^`/")

func buildSet(specials string) [256]bool {
	var set [256]bool
	for c := 0; c < 0x20; c++ {
		set[c] = true
	}
	set[0x7f] = true
	for _, c := range []byte(specials) {
		set[c] = true
	}
	return set
}

// percentEncode re-encodes s, escaping every byte marked in set as
// uppercase-hex %XX and passing every other byte through unchanged.
func percentEncode(s string, set *[256]bool) string {
	var needsEncoding bool
	for i := 0; i < len(s); i++ {
		if set[s[i]] {
			needsEncoding = true
			break
		}
	}
	if !needsEncoding {
		return s
	}

	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if set[c] {
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0xf])
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// CanonicalURI percent-decodes the URL path and re-encodes it under the
// FRAGMENT set, normalizing over- or under-encoded paths to one form.
func CanonicalURI(u *url.URL) string {
	// url.URL.Path is already percent-decoded by the parser.
	return percentEncode(u.Path, &fragment)
}

// CanonicalQuery sorts the URL's query pairs lexicographically by
// (key, value) in byte order and re-encodes each side under
// FRAGMENT_SLASH. Duplicate keys are preserved; the sort is stable on
// equal keys so repeated (key, value) pairs keep their relative order.
func CanonicalQuery(u *url.URL) string {
	raw := u.Query()
	if len(raw) == 0 {
		return ""
	}

	type pair struct{ key, value string }
	var pairs []pair
	for k, values := range raw {
		for _, v := range values {
			pairs = append(pairs, pair{k, v})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].key != pairs[j].key {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].value < pairs[j].value
	})

	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = percentEncode(p.key, &fragmentSlash) + "=" + percentEncode(p.value, &fragmentSlash)
	}
	return strings.Join(parts, "&")
}

// CanonicalHeaders concatenates "lowercase(name):trim(value)" for every
// header, one per line, sorted lexicographically.
func CanonicalHeaders(headers http.Header) string {
	lines := make([]string, 0, len(headers))
	for name, values := range headers {
		value := ""
		if len(values) > 0 {
			value = values[0]
		}
		lines = append(lines, strings.ToLower(name)+":"+strings.TrimSpace(value))
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

// SignedHeaders lowercases and sorts the header names, joined with ';'.
func SignedHeaders(headers http.Header) string {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, strings.ToLower(name))
	}
	sort.Strings(names)
	return strings.Join(names, ";")
}

// Request builds the seven-line canonical request described in spec §4.1:
//
//	METHOD
//	canonical_uri
//	canonical_query
//	canonical_headers
//	(blank line)
//	signed_headers
//	body
func Request(method string, u *url.URL, headers http.Header, body string) string {
	return strings.Join([]string{
		method,
		CanonicalURI(u),
		CanonicalQuery(u),
		CanonicalHeaders(headers),
		"",
		SignedHeaders(headers),
		body,
	}, "\n")
}
