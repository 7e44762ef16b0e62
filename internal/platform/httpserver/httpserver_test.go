package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewAppliesServiceDefaults(t *testing.T) {
	srv := New(":8080", http.NewServeMux())

	assert.Equal(t, ":8080", srv.Addr)
	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)
	assert.Greater(t, srv.WriteTimeout, 30*time.Second,
		"write timeout must outlast the per-request handler timeout")
	assert.NotZero(t, srv.IdleTimeout)
	assert.NotZero(t, srv.MaxHeaderBytes)
}
