package sup1

import (
	"net/http"
	"net/url"
	"testing"
	"time"
)

func BenchmarkCanonicalRequest(b *testing.B) {
	u, _ := url.Parse("https://upstream.example.test/objects/path/to/key.txt?partNumber=1&uploadId=abc123")
	headers := http.Header{
		"Host":         {"upstream.example.test"},
		"Content-Type": {"application/octet-stream"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Request("PUT", u, headers, "")
	}
}

func BenchmarkSigningKey(b *testing.B) {
	secret := []byte("wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY")
	dt, _ := time.ParseInLocation(LongDateFormat, "20230101T120000Z", time.UTC)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = SigningKey(secret, dt)
	}
}

func BenchmarkSign(b *testing.B) {
	secret := []byte("wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY")
	dt, _ := time.ParseInLocation(LongDateFormat, "20230101T120000Z", time.UTC)
	u, _ := url.Parse("https://upstream.example.test/objects/key.txt")
	headers := http.Header{"Host": {"upstream.example.test"}}
	canonical := Request("GET", u, headers, "")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Sign(secret, dt, canonical)
	}
}

func BenchmarkFromRequest(b *testing.B) {
	dt, _ := time.ParseInLocation(LongDateFormat, "20230101T120000Z", time.UTC)
	proxy, _ := url.Parse("https://upstream.example.test/objects/key.txt")
	raw, err := BuildSignedURL("https://gw.example.test", SignOptions{
		AccessKey: "AKID", Secret: []byte("shh"), Now: dt, ExpiresSecs: 300,
		Method: "GET", ProxyURL: proxy, Headers: http.Header{},
	})
	if err != nil {
		b.Fatalf("BuildSignedURL: %v", err)
	}
	u, _ := url.Parse(raw)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, err := FromRequest("GET", u, http.Header{})
		if err != nil {
			b.Fatalf("FromRequest: %v", err)
		}
	}
}

func BenchmarkPercentEncodeQuery(b *testing.B) {
	u, _ := url.Parse("https://h/p?prefix=path/to/objects/&delimiter=/&max-keys=1000&marker=last-key")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = CanonicalQuery(u)
	}
}

func BenchmarkCanonicalHeaders(b *testing.B) {
	headers := http.Header{
		"Host":                 {"upstream.example.test"},
		"X-Sup-Signed-Headers": {"host;content-type"},
		"Content-Type":         {"application/octet-stream"},
		"X-Custom-Header":      {"value"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = CanonicalHeaders(headers)
	}
}

func BenchmarkFullSignFlow(b *testing.B) {
	secret := []byte("wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY")
	proxy, _ := url.Parse("https://upstream.example.test/objects/key.txt")
	headers := http.Header{"Host": {"upstream.example.test"}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := SignRequest{
			Method:   "GET",
			ProxyURL: proxy,
			Headers:  headers,
			Datetime: time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC),
		}
		_ = req.Sign(secret)
	}
}
