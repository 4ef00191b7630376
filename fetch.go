package filecache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// Fetcher retrieves the payload behind url. The payload is anything Encode
// accepts.
type Fetcher interface {
	Get(ctx context.Context, url string) (any, error)
}

// FetcherFunc adapts a function to Fetcher
type FetcherFunc func(ctx context.Context, url string) (any, error)

func (f FetcherFunc) Get(ctx context.Context, url string) (any, error) {
	return f(ctx, url)
}

// HTTPFetcher is the default Fetcher. JSON responses are decoded into generic
// values, everything else is returned as a string.
type HTTPFetcher struct {
	// Client defaults to http.DefaultClient. Timeouts, redirects and auth are
	// its business.
	Client    *http.Client
	UserAgent string
}

func (f *HTTPFetcher) Get(ctx context.Context, url string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("bad HTTP response %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if isJSON(resp.Header.Get("Content-Type")) {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err == nil && trailingEOF(dec) {
			return v, nil
		}
	}
	return string(body), nil
}

// trailingEOF reports whether dec has nothing left but whitespace.
func trailingEOF(dec *json.Decoder) bool {
	_, err := dec.Token()
	return errors.Is(err, io.EOF)
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// Encode turns a fetched payload into the text that gets cached: its JSON
// encoding without HTML escaping. Plain text becomes a quoted JSON string and
// []byte is treated as text.
func Encode(payload any) (string, error) {
	if b, ok := payload.([]byte); ok {
		payload = string(b)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
