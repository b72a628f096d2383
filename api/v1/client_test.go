package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drillwatch.org/drillwatch/model"
)

func TestSyncPush(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/sync/events", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "01ARZ3NDEKTSV4RRFFQ69G5FAV", body["localId"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{
			"serverId": "9f6a2c1e",
			"status":   "created",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-token")

	res, err := client.Sync.Push(context.Background(), model.KindEvent, EventPayload{
		LocalID: "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		Name:    "Flood drill",
	})
	require.NoError(t, err)
	assert.Equal(t, "9f6a2c1e", res.ServerID)
	assert.Equal(t, PushCreated, res.Status)
}

func TestSyncPushPermanentRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{
			"code":    "unknown_event",
			"message": "eventId does not reference a known event",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")

	_, err := client.Sync.Push(context.Background(), model.KindReport, ReportPayload{LocalID: "x"})

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnprocessableEntity, se.StatusCode)
	assert.Equal(t, "unknown_event", se.Code)
	assert.False(t, se.Temporary())
}

func TestSyncPushServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")

	_, err := client.Sync.Push(context.Background(), model.KindEvent, EventPayload{LocalID: "x"})

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Temporary())
}

func TestMediaUploadBlob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/media/9f6a2c1e/blob", r.URL.Path)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "photo.jpg", header.Filename)

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")

	err := client.Media.UploadBlob(context.Background(), "9f6a2c1e", "photo.jpg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
}
