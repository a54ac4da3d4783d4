package drive

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

func quotaStore(t *testing.T, handler http.HandlerFunc) *Store {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	svc, err := drivev3.NewService(context.Background(),
		option.WithEndpoint(ts.URL+"/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)

	return &Store{svc: svc, log: zerolog.Nop()}
}

func TestGetQuota(t *testing.T) {
	store := quotaStore(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"storageQuota":{"usage":"1073741824","limit":"16106127360"}}`)
	})

	quota := store.GetQuota(context.Background())
	assert.Equal(t, Quota{Used: "1 GB", Limit: "15 GB", Available: "14 GB"}, quota)
}

func TestGetQuotaUnlimitedAccount(t *testing.T) {
	// Unlimited plans omit the limit field, which decodes as zero.
	store := quotaStore(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"storageQuota":{"usage":"1073741824"}}`)
	})

	quota := store.GetQuota(context.Background())
	assert.Equal(t, Quota{Used: "1 GB", Limit: "Unknown", Available: "Unknown"}, quota)
}

func TestGetQuotaLookupFailure(t *testing.T) {
	store := quotaStore(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "backend unavailable", http.StatusInternalServerError)
	})

	quota := store.GetQuota(context.Background())
	assert.Equal(t, Quota{Used: "Unknown", Limit: "Unknown", Available: "Unknown"}, quota)
}
