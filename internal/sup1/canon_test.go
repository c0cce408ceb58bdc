package sup1

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"testing"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

// TestMinimalGETGoldenVector checks the exact canonical-request bytes from
// spec §8 for a GET with no headers, no query, no body.
func TestMinimalGETGoldenVector(t *testing.T) {
	u := mustParse(t, "https://h/p")
	got := Request("GET", u, http.Header{}, "")
	want := "GET\n/p\n\n\n\n\n"
	if got != want {
		t.Fatalf("canonical request = %q, want %q", got, want)
	}

	sum := sha256.Sum256([]byte(got))
	// Golden SHA-256 of "GET\n/p\n\n\n\n\n".
	const wantHash = "a60c4c4790ecd2a78a71e6c197d525b78f82d547cb97fbeb7c892a5082067248"
	if hex.EncodeToString(sum[:]) != wantHash {
		t.Fatalf("sha256(canonical) = %x, want %s", sum, wantHash)
	}
}

func TestCanonicalURIDecodesThenReencodes(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/a b", "/a%20b"},
		{"/a%20b", "/a%20b"},
		{"/a+b", "/a%2Bb"}, // '+' is in FRAGMENT
		{"/réservé", "/réservé"},
	}
	for _, c := range cases {
		u := mustParse(t, "https://h"+c.path)
		got := CanonicalURI(u)
		if got != c.want {
			t.Errorf("CanonicalURI(%q) = %q, want %q", c.path, got, c.want)
		}
	}
}

func TestCanonicalURIReservedCharsEncodeConsistently(t *testing.T) {
	// A path containing a reserved character, encoded either raw or
	// percent-encoded in the input, must canonicalize to the same string.
	raw := mustParse(t, "https://h/a:b")
	encoded := mustParse(t, "https://h/a%3Ab")
	if CanonicalURI(raw) != CanonicalURI(encoded) {
		t.Fatalf("CanonicalURI(raw)=%q != CanonicalURI(encoded)=%q", CanonicalURI(raw), CanonicalURI(encoded))
	}
}

func TestCanonicalQueryOrderInsensitive(t *testing.T) {
	a := mustParse(t, "https://h/p?b=2&a=1")
	b := mustParse(t, "https://h/p?a=1&b=2")
	if CanonicalQuery(a) != CanonicalQuery(b) {
		t.Fatalf("canonical query differs by input order: %q vs %q", CanonicalQuery(a), CanonicalQuery(b))
	}
}

func TestCanonicalQueryEmpty(t *testing.T) {
	u := mustParse(t, "https://h/p")
	if got := CanonicalQuery(u); got != "" {
		t.Fatalf("CanonicalQuery empty case = %q, want empty", got)
	}
}

func TestCanonicalQueryEscapesSlash(t *testing.T) {
	u := mustParse(t, "https://h/p?k=a/b")
	got := CanonicalQuery(u)
	want := "k=a%2Fb"
	if got != want {
		t.Fatalf("CanonicalQuery slash case = %q, want %q", got, want)
	}
}

func TestCanonicalQueryDuplicateKeysPreserved(t *testing.T) {
	u := mustParse(t, "https://h/p?a=2&a=1")
	got := CanonicalQuery(u)
	// Sorted by (key, value): a=1 before a=2.
	want := "a=1&a=2"
	if got != want {
		t.Fatalf("CanonicalQuery duplicate keys = %q, want %q", got, want)
	}
}

func TestCanonicalHeadersCaseInsensitiveNames(t *testing.T) {
	h1 := http.Header{"X-Foo": {"bar"}}
	h2 := http.Header{"x-foo": {"bar"}}
	if CanonicalHeaders(h1) != CanonicalHeaders(h2) {
		t.Fatalf("header name case changed canonical form: %q vs %q", CanonicalHeaders(h1), CanonicalHeaders(h2))
	}
}

func TestCanonicalHeadersTrimsValue(t *testing.T) {
	h := http.Header{"X-Foo": {"  bar  "}}
	got := CanonicalHeaders(h)
	want := "x-foo:bar"
	if got != want {
		t.Fatalf("CanonicalHeaders = %q, want %q", got, want)
	}
}

func TestCanonicalHeadersSorted(t *testing.T) {
	h := http.Header{"Zeta": {"1"}, "Alpha": {"2"}}
	got := CanonicalHeaders(h)
	want := "alpha:2\nzeta:1"
	if got != want {
		t.Fatalf("CanonicalHeaders sort = %q, want %q", got, want)
	}
}

func TestSignedHeadersSortedAndJoined(t *testing.T) {
	h := http.Header{"Zeta": {"1"}, "Alpha": {"2"}, "Mid": {"3"}}
	got := SignedHeaders(h)
	want := "alpha;mid;zeta"
	if got != want {
		t.Fatalf("SignedHeaders = %q, want %q", got, want)
	}
}

func TestTamperingMethodChangesCanonicalRequest(t *testing.T) {
	u := mustParse(t, "https://h/p")
	a := Request("GET", u, http.Header{}, "")
	b := Request("POST", u, http.Header{}, "")
	if a == b {
		t.Fatalf("method tamper did not change canonical request")
	}
}

func TestTamperingBodyChangesCanonicalRequest(t *testing.T) {
	u := mustParse(t, "https://h/p")
	a := Request("POST", u, http.Header{}, "hello")
	b := Request("POST", u, http.Header{}, "hellO")
	if a == b {
		t.Fatalf("body tamper did not change canonical request")
	}
}
