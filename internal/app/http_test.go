package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPClient_DefaultUserAgent(t *testing.T) {
	uas := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uas <- r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	hc := newHTTPClient("goleakscan-test/1.0", true)
	resp, err := hc.Get(srv.URL + "/a?key=secret")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/b", nil)
	req.Header.Set("User-Agent", "custom")
	resp, err = hc.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	hc.CloseIdleConnections()

	if got := <-uas; got != "goleakscan-test/1.0" {
		t.Fatalf("default user agent: %q", got)
	}
	if got := <-uas; got != "custom" {
		t.Fatalf("explicit user agent: %q", got)
	}
}
