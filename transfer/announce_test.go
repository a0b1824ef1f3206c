package transfer

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/retadi-server/types"
)

func TestAnnounce(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		_, _ = io.WriteString(w, types.ConnectAck)
	}))
	defer srv.Close()

	ack, err := Announce(context.Background(), srv.URL, []byte("tablet-1"))
	require.NoError(t, err)
	assert.Equal(t, types.ConnectAck, ack)
	assert.Equal(t, "/api/connect", gotPath)
	assert.Equal(t, "tablet-1", gotBody)

	ack, err = AnnounceDevice(context.Background(), srv.URL+"/", types.DeviceInfo{Alias: "Tab"})
	require.NoError(t, err)
	assert.Equal(t, types.ConnectAck, ack)
	assert.JSONEq(t, `{"alias":"Tab"}`, gotBody)
}

func TestAnnounceErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := Announce(context.Background(), srv.URL, nil)
	assert.Error(t, err)

	_, err = Announce(context.Background(), "not-a-url", nil)
	assert.Error(t, err)
}
