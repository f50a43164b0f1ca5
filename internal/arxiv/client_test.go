package arxiv

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wgilpin/paperstore/internal/paper"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.00001v1</id>
    <title>A Study of
  Wrapped Titles</title>
    <published>2023-01-02T18:00:00Z</published>
    <summary>We study the effect of
  line wrapping on abstracts.</summary>
    <author><name>Ada Lovelace</name></author>
    <author><name>Alan Turing</name></author>
  </entry>
</feed>`

const emptyFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom"></feed>`

func TestFetchParsesAtomEntry(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "2301.00001", r.URL.Query().Get("id_list"))
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	client := NewClient(Config{Endpoint: srv.URL})
	meta, err := client.Fetch(context.Background(), "2301.00001")
	require.NoError(t, err)

	require.Equal(t, "A Study of Wrapped Titles", meta.Title)
	require.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, meta.Authors)
	require.Equal(t, "We study the effect of line wrapping on abstracts.", meta.Abstract)
	require.Equal(t, "2301.00001", meta.ArxivID)
	require.NotNil(t, meta.PublishedDate)
	require.Equal(t, time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), *meta.PublishedDate)
}

func TestFetchUnknownIDIsFetchError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(emptyFeed))
	}))
	defer srv.Close()

	client := NewClient(Config{Endpoint: srv.URL})
	_, err := client.Fetch(context.Background(), "9999.99999")
	var fe *paper.FetchError
	require.ErrorAs(t, err, &fe)
}

func TestFetchServerErrorIsFetchError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(Config{Endpoint: srv.URL})
	_, err := client.Fetch(context.Background(), "2301.00001")
	var fe *paper.FetchError
	require.ErrorAs(t, err, &fe)
}

func TestFetchUnreachableHostIsFetchError(t *testing.T) {
	t.Parallel()

	client := NewClient(Config{Endpoint: "http://127.0.0.1:1", Timeout: time.Second})
	_, err := client.Fetch(context.Background(), "2301.00001")
	var fe *paper.FetchError
	require.True(t, errors.As(err, &fe))
}
