package app

import (
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// newHTTPClient returns the client shared by the search and model providers.
// Requests carry ua when the caller did not set one. With verbose set each
// round trip is logged at debug level without its query string, which holds
// the search API key.
func newHTTPClient(ua string, verbose bool) *http.Client {
	var rt http.RoundTripper = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       60 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	rt = &tracingTransport{next: rt, ua: ua, verbose: verbose}
	return &http.Client{Transport: rt, Timeout: 45 * time.Second}
}

type tracingTransport struct {
	next    http.RoundTripper
	ua      string
	verbose bool
}

func (t *tracingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.ua != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.ua)
	}
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	if t.verbose {
		ev := log.Debug().Str("stage", "http").Str("method", req.Method).Str("host", req.URL.Host).Str("path", req.URL.Path).Dur("took", time.Since(start))
		if err != nil {
			ev = ev.Err(err)
		} else {
			ev = ev.Int("status", resp.StatusCode)
		}
		ev.Msg("round trip")
	}
	return resp, err
}
