// sup-sign builds a SUP1-HMAC-SHA256 signed URL for a request against a
// running sup-gatewayd instance. It shares the canonicalization rules of
// internal/sup1 but is otherwise an independent tool: it knows nothing
// about secretstore, metrics, or the HTTP server.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/espen/sup-gateway/internal/sup1"
)

func main() {
	gateway := flag.String("gateway", "", "base URL of the signing gateway (required)")
	proxy := flag.String("proxy", "", "upstream URL the request should be forwarded to (required)")
	accessKey := flag.String("access-key", "", "principal id / access key (required)")
	secretHex := flag.String("secret", "", "hex-encoded secret key (required)")
	method := flag.String("method", http.MethodGet, "HTTP method")
	expires := flag.Int("expires", 300, "signature lifetime in seconds")
	signBody := flag.Bool("sign-body", false, "include the request body in the signature")
	body := flag.String("body", "", "request body, signed only if -sign-body is set")
	signedHeaders := flag.String("signed-headers", "", "comma-separated header=value pairs to include in the signature")
	flag.Parse()

	if *gateway == "" || *proxy == "" || *accessKey == "" || *secretHex == "" {
		fmt.Fprintln(os.Stderr, "Usage: sup-sign -gateway https://gw.example -proxy https://upstream.example/path -access-key AKID -secret <hex> [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	secret, err := hex.DecodeString(*secretHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -secret: %v\n", err)
		os.Exit(1)
	}

	proxyURL, err := url.Parse(*proxy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -proxy: %v\n", err)
		os.Exit(1)
	}

	headers, err := parseHeaders(*signedHeaders)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -signed-headers: %v\n", err)
		os.Exit(1)
	}

	signed, err := sup1.BuildSignedURL(*gateway, sup1.SignOptions{
		AccessKey:   *accessKey,
		Secret:      secret,
		Now:         time.Now().UTC(),
		ExpiresSecs: *expires,
		Method:      strings.ToUpper(*method),
		ProxyURL:    proxyURL,
		Headers:     headers,
		Body:        *body,
		SignBody:    *signBody,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "sup-sign: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(signed)
}

// parseHeaders turns a comma-separated "name=value,name=value" string into
// an http.Header, matching X-Sup-SignedHeaders' declared-subset semantics.
func parseHeaders(spec string) (http.Header, error) {
	headers := make(http.Header)
	if spec == "" {
		return headers, nil
	}
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected name=value, got %q", pair)
		}
		headers.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return headers, nil
}
