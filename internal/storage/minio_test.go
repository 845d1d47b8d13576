package storage

import (
	"context"
	"net/url"
	"testing"

	"github.com/Domenick1991/deliverydesk/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *DocumentStore {
	t.Helper()
	store, err := NewDocumentStore(config.MinioConfig{
		Endpoint:       "localhost:9000",
		AccessKey:      "minio",
		SecretKey:      "minio-secret",
		Bucket:         "booking-docs",
		Region:         "us-east-1",
		LinkTTLMinutes: 15,
	})
	require.NoError(t, err)
	return store
}

func TestDocumentStore_PresignedURL(t *testing.T) {
	store := newTestStore(t)

	link, err := store.PresignedURL(context.Background(), "/bookings/b1/license.pdf")
	require.NoError(t, err)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/booking-docs/bookings/b1/license.pdf", u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
	assert.Equal(t, "inline", u.Query().Get("response-content-disposition"))
}

func TestDocumentStore_AbsoluteLinkPassThrough(t *testing.T) {
	store := newTestStore(t)

	link, err := store.PresignedURL(context.Background(), "https://cdn.example.com/doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/doc.pdf", link)
}

func TestNewDocumentStore_InvalidEndpoint(t *testing.T) {
	_, err := NewDocumentStore(config.MinioConfig{Endpoint: "http://bad endpoint"})
	assert.Error(t, err)
}
