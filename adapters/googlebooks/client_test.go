package googlebooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfstream/catalog"
)

const volumesPayload = `{
	"totalItems": 1,
	"items": [
		{
			"id": "vol-1",
			"volumeInfo": {
				"title": "The Go Programming Language",
				"authors": ["Alan A. A. Donovan", "Brian W. Kernighan"],
				"publisher": "Addison-Wesley",
				"publishedDate": "2015-10-26",
				"pageCount": 380,
				"language": "en"
			}
		}
	]
}`

func TestClientLookupISBN(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/volumes", r.URL.Path)
			assert.Equal(t, "isbn:9780134685991", r.URL.Query().Get("q"))
			w.Write([]byte(volumesPayload))
		}))
		defer server.Close()

		client := NewClientWithBaseURL(server.URL, "", &catalog.NoopLogger{})

		volume, err := client.LookupISBN(context.Background(), "978-0-13-468599-1")
		require.NoError(t, err)
		assert.Equal(t, "The Go Programming Language", volume.VolumeInfo.Title)
		assert.Equal(t, 380, volume.VolumeInfo.PageCount)
	})

	t.Run("no match", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"totalItems": 0}`))
		}))
		defer server.Close()

		client := NewClientWithBaseURL(server.URL, "", &catalog.NoopLogger{})

		_, err := client.LookupISBN(context.Background(), "0306406152")
		assert.True(t, catalog.IsNoData(err))
	})

	t.Run("invalid ISBN rejected before request", func(t *testing.T) {
		client := NewClientWithBaseURL("http://127.0.0.1:0", "", &catalog.NoopLogger{})
		_, err := client.LookupISBN(context.Background(), "garbage")
		assert.Equal(t, catalog.ErrCodeValidation, catalog.CodeOf(err))
	})

	t.Run("upstream error surfaces as delivery failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client := NewClientWithBaseURL(server.URL, "", &catalog.NoopLogger{})
		_, err := client.LookupISBN(context.Background(), "0306406152")
		assert.Equal(t, catalog.ErrCodeDelivery, catalog.CodeOf(err))
	})
}

func TestClientSearch(t *testing.T) {
	t.Run("passes query and api key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "golang", r.URL.Query().Get("q"))
			assert.Equal(t, "5", r.URL.Query().Get("maxResults"))
			assert.Equal(t, "test-key", r.URL.Query().Get("key"))
			w.Write([]byte(volumesPayload))
		}))
		defer server.Close()

		client := NewClientWithBaseURL(server.URL, "test-key", &catalog.NoopLogger{})

		volumes, err := client.Search(context.Background(), "golang", 5)
		require.NoError(t, err)
		require.Len(t, volumes, 1)
		assert.Equal(t, "vol-1", volumes[0].ID)
	})

	t.Run("empty query rejected", func(t *testing.T) {
		client := NewClientWithBaseURL("http://127.0.0.1:0", "", &catalog.NoopLogger{})
		_, err := client.Search(context.Background(), "", 5)
		assert.Error(t, err)
	})
}
