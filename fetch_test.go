package filecache

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/text":
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /admin\n"))
		case "/json":
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			_, _ = w.Write([]byte("{\"b\": [1, 2.5], \"a\": \"x\"}\n"))
		case "/problem":
			w.Header().Set("Content-Type", "application/problem+json")
			_, _ = w.Write([]byte(`{"title": "nope"}`))
		case "/badjson":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"truncated": `))
		case "/trailing":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"a":1} {"b":2}`))
		case "/garbage":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"a":1}garbage`))
		case "/ua":
			_, _ = w.Write([]byte(r.Header.Get("User-Agent")))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	ctx := context.Background()
	f := &HTTPFetcher{UserAgent: "filecache-test"}

	t.Run("text", func(t *testing.T) {
		v, err := f.Get(ctx, ts.URL+"/text")
		require.NoError(t, err)
		require.Equal(t, "User-agent: *\nDisallow: /admin\n", v)
	})

	t.Run("json", func(t *testing.T) {
		v, err := f.Get(ctx, ts.URL+"/json")
		require.NoError(t, err)
		require.Equal(t, map[string]any{
			"a": "x",
			"b": []any{json.Number("1"), json.Number("2.5")},
		}, v)
	})

	t.Run("json suffix", func(t *testing.T) {
		v, err := f.Get(ctx, ts.URL+"/problem")
		require.NoError(t, err)
		require.Equal(t, map[string]any{"title": "nope"}, v)
	})

	t.Run("broken json falls back to text", func(t *testing.T) {
		v, err := f.Get(ctx, ts.URL+"/badjson")
		require.NoError(t, err)
		require.Equal(t, `{"truncated": `, v)
	})

	t.Run("trailing data falls back to text", func(t *testing.T) {
		v, err := f.Get(ctx, ts.URL+"/trailing")
		require.NoError(t, err)
		require.Equal(t, `{"a":1} {"b":2}`, v)

		v, err = f.Get(ctx, ts.URL+"/garbage")
		require.NoError(t, err)
		require.Equal(t, `{"a":1}garbage`, v)

		c := newTestCache(t, WithFetcher(f))
		got := c.ReadOrUpdateFile(ctx, "/x.json", ts.URL+"/trailing", 0, false)
		require.Equal(t, `"{\"a\":1} {\"b\":2}"`, got)
	})

	t.Run("trailing whitespace is fine", func(t *testing.T) {
		v, err := f.Get(ctx, ts.URL+"/json")
		require.NoError(t, err)
		require.IsType(t, map[string]any{}, v)
	})

	t.Run("user agent", func(t *testing.T) {
		v, err := f.Get(ctx, ts.URL+"/ua")
		require.NoError(t, err)
		require.Equal(t, "filecache-test", v)
	})

	t.Run("bad status", func(t *testing.T) {
		_, err := f.Get(ctx, ts.URL+"/missing")
		require.ErrorContains(t, err, "404")
	})

	t.Run("canceled", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := f.Get(canceled, ts.URL+"/text")
		require.Error(t, err)
	})
}

func TestFetcherFunc(t *testing.T) {
	var f Fetcher = FetcherFunc(func(ctx context.Context, url string) (any, error) {
		return url, nil
	})
	v, err := f.Get(context.Background(), "x")
	require.NoError(t, err)
	require.Equal(t, "x", v)
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		want    string
	}{
		{"text", "plain text", `"plain text"`},
		{"no html escaping", "<a href=\"/x\">&</a>", `"<a href=\"/x\">&</a>"`},
		{"bytes as text", []byte("raw"), `"raw"`},
		{"decoded json", map[string]any{"b": []any{json.Number("1")}, "a": nil}, `{"a":null,"b":[1]}`},
		{"number", 42, `42`},
		{"bool", true, `true`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.payload)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := Encode(make(chan int))
	require.Error(t, err)
}
