package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dream-export/internal/config"
	"dream-export/internal/domain/export"
	"dream-export/internal/domain/generation"
	"dream-export/internal/infrastructure/archive"
)

type stubProvider struct {
	fetchPage         func(ctx context.Context, limit, offset int) (generation.Page, error)
	enumerateAll      func(ctx context.Context, maxItems int) generation.Enumeration
	headAssetsBatched func(ctx context.Context, urls []string) []generation.AssetProbe
	downloadAsset     func(ctx context.Context, url string) ([]byte, error)
}

func (s *stubProvider) FetchPage(ctx context.Context, limit, offset int) (generation.Page, error) {
	return s.fetchPage(ctx, limit, offset)
}

func (s *stubProvider) EnumerateAll(ctx context.Context, maxItems int) generation.Enumeration {
	return s.enumerateAll(ctx, maxItems)
}

func (s *stubProvider) HeadAssetsBatched(ctx context.Context, urls []string) []generation.AssetProbe {
	return s.headAssetsBatched(ctx, urls)
}

func (s *stubProvider) DownloadAsset(ctx context.Context, url string) ([]byte, error) {
	return s.downloadAsset(ctx, url)
}

func handlerConfig() *config.Config {
	return &config.Config{
		ProviderAPIKey:      "test-key",
		ProviderPageSize:    50,
		ProviderMaxVideos:   1000,
		ProviderBulkMax:     5000,
		ArchiveMaxItems:     10,
		BucketDownloadLimit: 50,
		DriveFolderName:     "Luma Labs Videos",
	}
}

func completedVideo(id string) generation.Generation {
	return generation.Generation{
		ID:        id,
		State:     generation.StateCompleted,
		Kind:      generation.KindVideo,
		CreatedAt: "2024-06-15T10:30:45.123Z",
		Prompt:    "prompt " + id,
		Assets:    &generation.Assets{Video: "https://cdn.example.com/" + id + ".mp4"},
	}
}

func newRouter(cfg *config.Config, provider export.Provider) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := export.NewService(cfg, provider, archive.NewBuilder(), zerolog.Nop())
	h := NewGenerationHandler(cfg, svc, zerolog.Nop())

	router := gin.New()
	router.GET("/v1/generations", h.List)
	router.POST("/v1/generations/resolve", h.Resolve)
	router.GET("/v1/generations/bulk-export", h.BulkExport)
	router.POST("/v1/generations/download", h.Download)
	return router
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListMissingAPIKey(t *testing.T) {
	cfg := handlerConfig()
	cfg.ProviderAPIKey = ""
	router := newRouter(cfg, &stubProvider{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/generations", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing environment variables: LUMA_API_KEY")
}

func TestListRejectsBadLimit(t *testing.T) {
	router := newRouter(handlerConfig(), &stubProvider{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/generations?limit=abc", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListFetchAllSkipMetadata(t *testing.T) {
	provider := &stubProvider{
		enumerateAll: func(_ context.Context, maxItems int) generation.Enumeration {
			assert.Equal(t, 100, maxItems)
			return generation.Enumeration{
				Generations: []generation.Generation{completedVideo("a")},
				Outcome:     generation.OutcomeTruncated,
			}
		},
	}
	router := newRouter(handlerConfig(), provider)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/generations?fetchAll=true&skipMetadata=true&maxVideos=100", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Generations []struct {
			Metadata struct {
				Size          int64  `json:"size"`
				FormattedSize string `json:"formattedSize"`
			} `json:"metadata"`
		} `json:"generations"`
		HasMore bool   `json:"has_more"`
		Outcome string `json:"outcome"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Generations, 1)
	assert.Equal(t, int64(0), body.Generations[0].Metadata.Size)
	assert.Equal(t, "Loading...", body.Generations[0].Metadata.FormattedSize)
	assert.True(t, body.HasMore)
	assert.Equal(t, "truncated", body.Outcome)
}

func TestDownloadRejectsOversizedArchive(t *testing.T) {
	gens := make([]generation.Generation, 11)
	ids := make([]string, 11)
	for i := range gens {
		id := fmt.Sprintf("gen-%d", i)
		gens[i] = completedVideo(id)
		ids[i] = id
	}
	provider := &stubProvider{
		enumerateAll: func(context.Context, int) generation.Enumeration {
			return generation.Enumeration{Generations: gens, Outcome: generation.OutcomeComplete}
		},
	}
	router := newRouter(handlerConfig(), provider)

	rec := postJSON(router, "/v1/generations/download", gin.H{"videoIds": ids, "format": "zip"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "links")
}

func TestDownloadLinksMode(t *testing.T) {
	provider := &stubProvider{
		enumerateAll: func(context.Context, int) generation.Enumeration {
			return generation.Enumeration{
				Generations: []generation.Generation{completedVideo("a")},
				Outcome:     generation.OutcomeComplete,
			}
		},
	}
	router := newRouter(handlerConfig(), provider)

	rec := postJSON(router, "/v1/generations/download", gin.H{"videoIds": []string{"a", "b"}, "format": "links"})

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Success   bool `json:"success"`
		Total     int  `json:"total"`
		Downloads []struct {
			Size          int64  `json:"size"`
			FormattedSize string `json:"formattedSize"`
		} `json:"downloads"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 1, body.Total)
	require.Len(t, body.Downloads, 1)
	assert.Equal(t, int64(0), body.Downloads[0].Size)
	assert.Equal(t, "Unknown", body.Downloads[0].FormattedSize)
}

func TestDownloadZipHeaders(t *testing.T) {
	provider := &stubProvider{
		enumerateAll: func(context.Context, int) generation.Enumeration {
			return generation.Enumeration{
				Generations: []generation.Generation{completedVideo("a")},
				Outcome:     generation.OutcomeComplete,
			}
		},
		downloadAsset: func(context.Context, string) ([]byte, error) {
			return []byte("video-bytes"), nil
		},
	}
	router := newRouter(handlerConfig(), provider)

	rec := postJSON(router, "/v1/generations/download", gin.H{"videoIds": []string{"a"}})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	expected := fmt.Sprintf(`attachment; filename="luma-videos-%s.zip"`, time.Now().UTC().Format("2006-01-02"))
	assert.Equal(t, expected, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, strconv.Itoa(rec.Body.Len()), rec.Header().Get("Content-Length"))
}

func TestDownloadUnknownIDsIs404(t *testing.T) {
	provider := &stubProvider{
		enumerateAll: func(context.Context, int) generation.Enumeration {
			return generation.Enumeration{
				Generations: []generation.Generation{completedVideo("a")},
				Outcome:     generation.OutcomeComplete,
			}
		},
	}
	router := newRouter(handlerConfig(), provider)

	rec := postJSON(router, "/v1/generations/download", gin.H{"videoIds": []string{"missing"}})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResolveReportsDownloads(t *testing.T) {
	provider := &stubProvider{
		enumerateAll: func(context.Context, int) generation.Enumeration {
			return generation.Enumeration{
				Generations: []generation.Generation{completedVideo("a"), completedVideo("b")},
				Outcome:     generation.OutcomeComplete,
			}
		},
		downloadAsset: func(_ context.Context, url string) ([]byte, error) {
			if url == "https://cdn.example.com/b.mp4" {
				return nil, fmt.Errorf("gone")
			}
			return bytes.Repeat([]byte("x"), 1024), nil
		},
	}
	router := newRouter(handlerConfig(), provider)

	rec := postJSON(router, "/v1/generations/resolve", gin.H{"videoIds": []string{"a", "b"}})

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Success    bool `json:"success"`
		Downloaded int  `json:"downloaded"`
		Failed     int  `json:"failed"`
		Videos     []struct {
			ID   string `json:"id"`
			Size string `json:"size"`
		} `json:"videos"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 1, body.Downloaded)
	assert.Equal(t, 1, body.Failed)
	require.Len(t, body.Videos, 1)
	assert.Equal(t, "a", body.Videos[0].ID)
	assert.Equal(t, "1 KB", body.Videos[0].Size)
}

func TestResolveRejectsEmptyBody(t *testing.T) {
	router := newRouter(handlerConfig(), &stubProvider{})

	rec := postJSON(router, "/v1/generations/resolve", gin.H{"videoIds": []string{}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No video IDs provided")
}

func TestBulkExportTxtAttachment(t *testing.T) {
	provider := &stubProvider{
		enumerateAll: func(context.Context, int) generation.Enumeration {
			return generation.Enumeration{
				Generations: []generation.Generation{completedVideo("a")},
				Outcome:     generation.OutcomeComplete,
			}
		},
	}
	router := newRouter(handlerConfig(), provider)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/generations/bulk-export?format=txt", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "all-luma-videos-")
	assert.Contains(t, rec.Body.String(), "https://cdn.example.com/a.mp4")
	assert.Contains(t, rec.Body.String(), "Created: 2024-06-15T10:30:45.123Z")
}

var _ export.Provider = (*stubProvider)(nil)
