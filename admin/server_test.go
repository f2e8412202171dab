package admin

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_StartStop(t *testing.T) {
	s := NewServer("127.0.0.1:0", newTestRouter(t, 1024))
	assert.Nil(t, s.Addr())
	require.NoError(t, s.Start())

	resp, err := http.Get("http://" + s.Addr().String() + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)

	require.NoError(t, s.Stop(context.Background()))

	_, err = http.Get("http://" + s.Addr().String() + "/health")
	assert.Error(t, err)
}
