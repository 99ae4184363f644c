package market

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

type trackedBody struct {
	io.Reader
	closed bool
}

func (b *trackedBody) Close() error {
	b.closed = true
	return nil
}

// cannedTransport serves one canned response for every request.
type cannedTransport struct {
	status int
	body   *trackedBody
}

func (ct *cannedTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: ct.status,
		Body:       ct.body,
		Header:     make(http.Header),
	}, nil
}

func cannedSource(status int, body string) (*massiveSource, *trackedBody) {
	tb := &trackedBody{Reader: strings.NewReader(body)}
	return &massiveSource{
		APIKey:  "test-key",
		Client:  &http.Client{Transport: &cannedTransport{status: status, body: tb}},
		BaseURL: "https://api.massive.com",
		Expiry:  time.Date(2026, time.March, 20, 0, 0, 0, 0, time.UTC),
	}, tb
}

func TestMassiveQuoteErrorStatusClosesBody(t *testing.T) {
	src, body := cannedSource(http.StatusInternalServerError, `{"message":"unknown ticker"}`)

	_, err := src.Quote("SPY", 696, Call, time.Now())
	if err == nil {
		t.Fatalf("expected error for status 500")
	}
	if !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "unknown ticker") {
		t.Fatalf("error should carry status and upstream message, got %v", err)
	}
	if !body.closed {
		t.Fatalf("response body not closed on error status")
	}
}

func TestMassiveSpotErrorStatusClosesBody(t *testing.T) {
	src, body := cannedSource(http.StatusForbidden, `{"message":"plan does not cover aggs"}`)

	_, err := src.Spot("SPY", time.Now())
	if err == nil {
		t.Fatalf("expected error for status 403")
	}
	if !body.closed {
		t.Fatalf("response body not closed on error status")
	}
}

func TestMassiveQuoteNoResults(t *testing.T) {
	src, _ := cannedSource(http.StatusOK, `{"status":"OK","results":[]}`)

	_, err := src.Quote("SPY", 696, Call, time.Now())
	if !errors.Is(err, ErrNoQuote) {
		t.Fatalf("expected ErrNoQuote for empty results, got %v", err)
	}
}
