package wsaa

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequest(t *testing.T) {
	now := time.Date(2025, 3, 14, 15, 9, 26, 500_000_000, time.UTC)

	req := BuildRequest("wsfe", now)

	t.Run("uniqueId is whole seconds since epoch", func(t *testing.T) {
		assert.Equal(t, now.Unix(), req.UniqueID)
	})

	t.Run("generation time is one minute in the past", func(t *testing.T) {
		assert.Equal(t, now.Truncate(time.Second).Add(-60*time.Second), req.GenerationTime)
	})

	t.Run("expiration time is ten hours ahead", func(t *testing.T) {
		assert.Equal(t, now.Truncate(time.Second).Add(36000*time.Second), req.ExpirationTime)
		assert.Equal(t, 36060*time.Second, req.ExpirationTime.Sub(req.GenerationTime))
	})

	t.Run("service is carried verbatim", func(t *testing.T) {
		assert.Equal(t, "wsfe", req.ServiceID)
	})
}

func TestMarshalRequest(t *testing.T) {
	now := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	doc := string(MarshalRequest(BuildRequest("ws_sr_padron_a13", now)))

	t.Run("fixed root and version attribute", func(t *testing.T) {
		assert.Contains(t, doc, `<loginTicketRequest version="1.0">`)
		assert.True(t, strings.HasPrefix(doc, `<?xml version="1.0" encoding="UTF-8"?>`))
	})

	t.Run("field order follows the wire contract", func(t *testing.T) {
		unique := strings.Index(doc, "<uniqueId>")
		generation := strings.Index(doc, "<generationTime>")
		expiration := strings.Index(doc, "<expirationTime>")
		service := strings.Index(doc, "<service>")

		require.NotEqual(t, -1, unique)
		require.NotEqual(t, -1, generation)
		require.NotEqual(t, -1, expiration)
		require.NotEqual(t, -1, service)

		assert.Less(t, unique, generation)
		assert.Less(t, generation, expiration)
		assert.Less(t, expiration, service)
	})

	t.Run("timestamps are ISO-8601", func(t *testing.T) {
		assert.Contains(t, doc, "<generationTime>2025-03-14T15:08:26Z</generationTime>")
		assert.Contains(t, doc, "<expirationTime>2025-03-15T01:09:26Z</expirationTime>")
	})

	t.Run("service name embedded", func(t *testing.T) {
		assert.Contains(t, doc, "<service>ws_sr_padron_a13</service>")
	})

	t.Run("markup characters in the service name are escaped", func(t *testing.T) {
		hostile := string(MarshalRequest(BuildRequest("wsfe</service><service>other", now)))

		assert.Contains(t, hostile, "<service>wsfe&lt;/service&gt;&lt;service&gt;other</service>")
		assert.Equal(t, 1, strings.Count(hostile, "<service>"))
		assert.Contains(t, string(MarshalRequest(BuildRequest("a&b", now))), "<service>a&amp;b</service>")
	})
}
