package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestyClientGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "custom", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short"))
	}))
	defer srv.Close()

	c := NewRestyClient(time.Second, WithUserAgent("default"))
	resp, err := c.Get(context.Background(), srv.URL, map[string]string{"User-Agent": "custom"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode())
	assert.Equal(t, "short", string(resp.Body()))
}

func TestWithBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 128)))
	}))
	defer srv.Close()

	_, err := NewRestyClient(time.Second, WithBodyLimit(32)).Get(context.Background(), srv.URL, nil)
	assert.ErrorIs(t, err, resty.ErrResponseBodyTooLarge)

	resp, err := NewRestyClient(time.Second, WithBodyLimit(0)).Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Len(t, resp.Body(), 128)
}

func TestNewRestyAppliesOptions(t *testing.T) {
	c := NewResty(3*time.Second, nil, WithUserAgent("harvester"))
	assert.Equal(t, "harvester", c.Header.Get("User-Agent"))
	assert.Equal(t, 0, c.RetryCount)
}
