//go:build integration

package filecache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTorExitList(t *testing.T) {
	url := "https://check.torproject.org/torbulkexitlist"

	c, err := New(WithRoot(t.TempDir()))
	require.NoError(t, err)

	body := c.ReadOrUpdateFile(context.Background(), "/tor/exits.json", url, time.Hour, false)
	require.NotEmpty(t, body)
	require.Equal(t, byte('"'), body[0], "plain text is cached as a JSON string")

	// Empty the cached copy but keep it fresh, the next read must not refetch
	require.NoError(t, os.Truncate(c.Path("/tor/exits.json"), 0))
	now := time.Now()
	require.NoError(t, os.Chtimes(c.Path("/tor/exits.json"), now, now))

	require.Equal(t, "", c.ReadOrUpdateFile(context.Background(), "/tor/exits.json", url, time.Hour, false))

	// Forcing refetches
	refetched := c.ReadOrUpdateFile(context.Background(), "/tor/exits.json", url, time.Hour, true)
	require.NotEmpty(t, refetched)
	require.Equal(t, body[:1], refetched[:1])
}
