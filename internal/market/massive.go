// Massive-backed QuoteSource.
//
// Retrieves underlying spot prices and option NBBO quotes via Massive HTTP
// APIs. Uses raw HTTP calls instead of the official Massive SDK, supports
// rate-limiting retries and an optional fallback source.
package market

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/contactkeval/pair-credit/internal/logger"
)

// massiveSource implements QuoteSource against Massive APIs.
type massiveSource struct {
	// APIKey used for authenticating requests with Massive.
	APIKey string

	// Client is the HTTP client used to make API requests.
	Client *http.Client

	// BaseURL is the root endpoint for Massive APIs
	// (e.g., https://api.massive.com).
	BaseURL string

	// Expiry is the option expiration the source resolves contracts against.
	Expiry time.Time

	// secondary is an optional fallback source.
	secondary QuoteSource
}

// massiveQuote models a single NBBO record from the quotes endpoint.
type massiveQuote struct {
	BidPrice     float64 `json:"bid_price"`
	AskPrice     float64 `json:"ask_price"`
	SipTimestamp int64   `json:"sip_timestamp"` // epoch nanos
}

type massiveQuotesResp struct {
	Results   []massiveQuote `json:"results"`
	Status    string         `json:"status"`
	RequestID string         `json:"request_id"`
	NextURL   string         `json:"next_url"`
}

// NewMassiveSource constructs a Massive-backed quote source for contracts
// expiring on expiry. An optional secondary source is consulted whenever
// Massive has no observation.
func NewMassiveSource(apiKey string, expiry time.Time, secondary QuoteSource) QuoteSource {
	logger.Infof("initializing Massive quote source expiry=%s", expiry.Format("2006-01-02"))

	return &massiveSource{
		APIKey: apiKey,
		Client: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
				DisableCompression:    false, // must be false to enable gzip auto-decompression
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          100,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		BaseURL:   "https://api.massive.com",
		Expiry:    expiry,
		secondary: secondary,
	}
}

// Secondary returns the configured fallback source, if any.
func (massiveSrc *massiveSource) Secondary() QuoteSource {
	return massiveSrc.secondary
}

// Quote returns the latest NBBO observed at or before the instant for the
// given contract. The "latest at-or-before wins" rule is encoded in the
// query itself: timestamp.lte with descending sort and limit 1.
func (massiveSrc *massiveSource) Quote(
	instrument string,
	strike float64,
	right Right,
	at time.Time,
) (Quote, error) {

	symbol := OptionSymbol(instrument, massiveSrc.Expiry, right, strike)

	logger.Debugf(
		"quote lookup: %s strike=%.2f %s at=%s",
		instrument, strike, right, at.Format(time.RFC3339),
	)

	u, err := url.Parse(massiveSrc.BaseURL + "/v3/quotes/" + symbol)
	if err != nil {
		return Quote{}, err
	}

	query := u.Query()
	query.Set("timestamp.lte", fmt.Sprintf("%d", at.UnixNano()))
	query.Set("order", "desc")
	query.Set("sort", "timestamp")
	query.Set("limit", "1")
	query.Set("apiKey", massiveSrc.APIKey)
	u.RawQuery = query.Encode()

	req, err := http.NewRequest("GET", u.String(), nil)
	if err != nil {
		return Quote{}, err
	}
	req.Header.Set("Authorization", "Bearer "+massiveSrc.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "massive-client/1.0")

	resp, err := massiveSrc.processGetRequest(req)
	if err != nil {
		return Quote{}, err
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return Quote{}, err
	}

	if resp.StatusCode != http.StatusOK {
		var dbg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &dbg)
		logger.Errorf("massive quotes API error status=%d message=%s", resp.StatusCode, dbg.Message)
		return Quote{}, fmt.Errorf("massive returned status %d: %s", resp.StatusCode, dbg.Message)
	}

	var massiveResp massiveQuotesResp
	if err := json.Unmarshal(body, &massiveResp); err != nil {
		return Quote{}, fmt.Errorf("decode: %w", err)
	}

	if len(massiveResp.Results) == 0 {
		logger.Tracef("no quote for %s at %s", symbol, at.Format(time.RFC3339))
		if massiveSrc.secondary != nil {
			return massiveSrc.secondary.Quote(instrument, strike, right, at)
		}
		return Quote{}, fmt.Errorf("%w: %s at %s", ErrNoQuote, symbol, at.Format(time.RFC3339))
	}

	r := massiveResp.Results[0]
	q := Quote{
		Instrument: instrument,
		Strike:     strike,
		Right:      right,
		Bid:        r.BidPrice,
		Ask:        r.AskPrice,
		ObservedAt: time.Unix(0, r.SipTimestamp).UTC(),
	}
	if err := q.Validate(); err != nil {
		return Quote{}, err
	}
	return q, nil
}

// Spot returns the underlying close of the last minute bar at or before
// the instant.
func (massiveSrc *massiveSource) Spot(instrument string, at time.Time) (float64, error) {

	logger.Debugf("spot lookup: %s at=%s", instrument, at.Format(time.RFC3339))

	u := fmt.Sprintf(
		"%s/v2/aggs/ticker/%s/range/1/minute/%s/%s?adjusted=true&sort=asc&limit=50000&apiKey=%s",
		massiveSrc.BaseURL,
		instrument,
		at.Add(-5*time.Minute).Format("2006-01-02"),
		at.Format("2006-01-02"),
		massiveSrc.APIKey,
	)

	req, err := http.NewRequest("GET", u, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("x-api-key", massiveSrc.APIKey)

	resp, err := massiveSrc.processGetRequest(req)
	if err != nil {
		return 0, fmt.Errorf("massive api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("massive bars status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}

	// Massive/POLYGON style response model
	var body struct {
		Ticker  string `json:"ticker"`
		Results []struct {
			Close     float64 `json:"c"`
			Timestamp int64   `json:"t"` // epoch millis
		} `json:"results"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("parsing massive response: %w", err)
	}

	spot := 0.0
	for _, r := range body.Results {
		if time.UnixMilli(r.Timestamp).After(at) {
			break
		}
		spot = r.Close
	}
	if spot <= 0 {
		if massiveSrc.secondary != nil {
			return massiveSrc.secondary.Spot(instrument, at)
		}
		return 0, fmt.Errorf("no spot bars for %s at %s", instrument, at.Format(time.RFC3339))
	}

	logger.Tracef("spot resolved %s=%.2f", instrument, spot)
	return spot, nil
}

// processGetRequest executes an HTTP GET request with rate-limit handling.
//
// Behavior:
//   - Retries indefinitely on HTTP 429
//   - Sleeps until the next minute boundary
//   - Returns immediately on success (<400)
//   - Returns an error for other status codes; the response body is
//     consumed and closed here, callers never see it
func (massiveSrc *massiveSource) processGetRequest(req *http.Request) (*http.Response, error) {
	for {
		resp, err := massiveSrc.Client.Do(req)
		if err != nil {
			return nil, err
		}

		// Success
		if resp.StatusCode < 400 {
			return resp, nil
		}

		// Handle per-minute rate limit (commonly 429)
		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()

			// Sleep until the next minute boundary
			now := time.Now()
			sleepDuration := time.Until(
				now.Truncate(time.Minute).Add(time.Minute),
			)

			logger.Infof("rate limit hit, sleeping for %s", sleepDuration)
			time.Sleep(sleepDuration)
			continue
		}

		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code %d: %s",
			resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
}
