package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
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
	"dream-export/internal/infrastructure/storage/bucket"
	"dream-export/internal/infrastructure/storage/drive"
)

type stubDrive struct {
	ensureFolder func(ctx context.Context, name, parentID string) (string, error)
	uploadBatch  func(ctx context.Context, items []drive.Item, folderID string) []drive.UploadResult
	getQuota     func(ctx context.Context) drive.Quota
}

func (s *stubDrive) EnsureFolder(ctx context.Context, name, parentID string) (string, error) {
	return s.ensureFolder(ctx, name, parentID)
}

func (s *stubDrive) UploadBatch(ctx context.Context, items []drive.Item, folderID string) []drive.UploadResult {
	return s.uploadBatch(ctx, items, folderID)
}

func (s *stubDrive) GetQuota(ctx context.Context) drive.Quota {
	return s.getQuota(ctx)
}

type stubBucket struct {
	folderPath  func(root string, t time.Time) string
	uploadBatch func(ctx context.Context, items []bucket.Item, folderPath string) []bucket.UploadResult
	list        func(ctx context.Context, folder string) (bucket.Listing, error)
	download    func(ctx context.Context, key string) ([]byte, error)
}

func (s *stubBucket) FolderPath(root string, t time.Time) string {
	return s.folderPath(root, t)
}

func (s *stubBucket) UploadBatch(ctx context.Context, items []bucket.Item, folderPath string) []bucket.UploadResult {
	return s.uploadBatch(ctx, items, folderPath)
}

func (s *stubBucket) List(ctx context.Context, folder string) (bucket.Listing, error) {
	return s.list(ctx, folder)
}

func (s *stubBucket) Download(ctx context.Context, key string) ([]byte, error) {
	return s.download(ctx, key)
}

func storageConfig() *config.Config {
	cfg := handlerConfig()
	cfg.DriveClientID = "client"
	cfg.DriveClientSecret = "secret"
	cfg.DriveRedirectURI = "https://localhost/callback"
	cfg.DriveRefreshToken = "refresh"
	cfg.BucketName = "videos"
	cfg.BucketAccessKeyID = "access"
	cfg.BucketSecretKey = "secret"
	return cfg
}

func newStorageRouter(cfg *config.Config, provider export.Provider, driveStore export.DriveStore, bucketStore export.BucketStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := export.NewService(cfg, provider, archive.NewBuilder(), zerolog.Nop())

	driveFactory := func(context.Context) (export.DriveStore, error) { return driveStore, nil }
	bucketFactory := func(context.Context) (export.BucketStore, error) { return bucketStore, nil }

	dh := NewDriveHandler(cfg, svc, driveFactory, zerolog.Nop())
	bh := NewBucketHandler(cfg, svc, bucketFactory, zerolog.Nop())

	router := gin.New()
	router.POST("/v1/drive/upload", dh.Upload)
	router.GET("/v1/drive/quota", dh.Quota)
	router.POST("/v1/bucket/upload", bh.Upload)
	router.GET("/v1/bucket/files", bh.Files)
	router.POST("/v1/bucket/download", bh.Download)
	return router
}

func singleVideoProvider() *stubProvider {
	return &stubProvider{
		enumerateAll: func(context.Context, int) generation.Enumeration {
			return generation.Enumeration{
				Generations: []generation.Generation{completedVideo("a")},
				Outcome:     generation.OutcomeComplete,
			}
		},
		downloadAsset: func(context.Context, string) ([]byte, error) {
			return []byte("data"), nil
		},
	}
}

func TestDriveUploadMissingConfig(t *testing.T) {
	cfg := handlerConfig() // no drive credentials
	router := newStorageRouter(cfg, &stubProvider{}, nil, nil)

	rec := postJSON(router, "/v1/drive/upload", gin.H{"videoIds": []string{"a"}})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Missing environment variables:")
	for _, name := range []string{
		"GOOGLE_DRIVE_CLIENT_ID",
		"GOOGLE_DRIVE_CLIENT_SECRET",
		"GOOGLE_DRIVE_REDIRECT_URI",
		"GOOGLE_DRIVE_REFRESH_TOKEN",
	} {
		assert.Contains(t, body, name)
	}
}

func TestDriveUploadReportsCounts(t *testing.T) {
	store := &stubDrive{
		ensureFolder: func(_ context.Context, name, _ string) (string, error) {
			assert.Equal(t, "My Folder", name)
			return "folder-1", nil
		},
		uploadBatch: func(_ context.Context, items []drive.Item, _ string) []drive.UploadResult {
			results := make([]drive.UploadResult, len(items))
			for i, item := range items {
				results[i] = drive.UploadResult{ID: fmt.Sprintf("f%d", i), Name: item.Filename, Size: "4"}
			}
			return results
		},
		getQuota: func(context.Context) drive.Quota {
			return drive.Quota{Used: "4 Bytes", Limit: "15 GB", Available: "14.99 GB"}
		},
	}
	router := newStorageRouter(storageConfig(), singleVideoProvider(), store, nil)

	rec := postJSON(router, "/v1/drive/upload", gin.H{"videoIds": []string{"a"}, "folderName": "My Folder"})

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Success    bool   `json:"success"`
		FolderID   string `json:"folderId"`
		FolderName string `json:"folderName"`
		Uploaded   int    `json:"uploaded"`
		Failed     int    `json:"failed"`
		Quota      struct {
			Available string `json:"available"`
		} `json:"storageQuota"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "folder-1", body.FolderID)
	assert.Equal(t, "My Folder", body.FolderName)
	assert.Equal(t, 1, body.Uploaded)
	assert.Equal(t, 0, body.Failed)
	assert.Equal(t, "14.99 GB", body.Quota.Available)
}

func TestDriveQuota(t *testing.T) {
	store := &stubDrive{
		getQuota: func(context.Context) drive.Quota {
			return drive.Quota{Used: "1 GB", Limit: "15 GB", Available: "14 GB"}
		},
	}
	router := newStorageRouter(storageConfig(), &stubProvider{}, store, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/drive/quota", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available":"14 GB"`)
}

func TestBucketUploadMissingConfig(t *testing.T) {
	cfg := handlerConfig() // no bucket credentials
	router := newStorageRouter(cfg, &stubProvider{}, nil, nil)

	rec := postJSON(router, "/v1/bucket/upload", gin.H{"videoIds": []string{"a"}})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := rec.Body.String()
	for _, name := range []string{"BUCKET_S3_NAME", "BUCKET_S3_ACCESS_KEY_ID", "BUCKET_S3_SECRET_ACCESS_KEY"} {
		assert.Contains(t, body, name)
	}
}

func TestBucketUploadUsesCalendarPath(t *testing.T) {
	store := &stubBucket{
		folderPath: func(root string, _ time.Time) string {
			assert.Empty(t, root)
			return "luma-videos/2024/06"
		},
		uploadBatch: func(_ context.Context, items []bucket.Item, folderPath string) []bucket.UploadResult {
			assert.Equal(t, "luma-videos/2024/06", folderPath)
			results := make([]bucket.UploadResult, len(items))
			for i, item := range items {
				results[i] = bucket.UploadResult{ID: item.Filename, Name: item.Filename, Size: int64(len(item.Data))}
			}
			return results
		},
	}
	router := newStorageRouter(storageConfig(), singleVideoProvider(), nil, store)

	rec := postJSON(router, "/v1/bucket/upload", gin.H{"videoIds": []string{"a"}})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"folderPath":"luma-videos/2024/06"`)
	assert.Contains(t, rec.Body.String(), `"uploaded":1`)
}

func TestBucketFilesListing(t *testing.T) {
	store := &stubBucket{
		list: func(_ context.Context, folder string) (bucket.Listing, error) {
			assert.Equal(t, "luma-videos/2024/06", folder)
			return bucket.Listing{
				Files: []bucket.FileInfo{{
					Name:        "a.mp4",
					FullPath:    "luma-videos/2024/06/a.mp4",
					DownloadURL: "https://bucket.example.com/a.mp4?sig=x",
					Size:        1024,
				}},
				Folders: []bucket.FolderInfo{{Name: "07", FullPath: "luma-videos/2024/07"}},
			}, nil
		},
	}
	router := newStorageRouter(storageConfig(), &stubProvider{}, nil, store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/bucket/files?folder=luma-videos/2024/06", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Success bool `json:"success"`
		Total   int  `json:"total"`
		Files   []struct {
			Name string `json:"name"`
		} `json:"files"`
		Folders []struct {
			Name string `json:"name"`
		} `json:"folders"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 1, body.Total)
	require.Len(t, body.Files, 1)
	assert.Equal(t, "a.mp4", body.Files[0].Name)
	require.Len(t, body.Folders, 1)
	assert.Equal(t, "07", body.Folders[0].Name)
}

func TestBucketDownloadRejectsEmptyAndOversized(t *testing.T) {
	router := newStorageRouter(storageConfig(), &stubProvider{}, nil, &stubBucket{})

	rec := postJSON(router, "/v1/bucket/download", gin.H{"filePaths": []string{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No file paths provided")

	tooMany := make([]string, 51)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("luma-videos/2024/06/file-%d.mp4", i)
	}
	rec = postJSON(router, "/v1/bucket/download", gin.H{"filePaths": tooMany})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBucketDownloadStreamsZip(t *testing.T) {
	store := &stubBucket{
		download: func(_ context.Context, key string) ([]byte, error) {
			return []byte("stored"), nil
		},
	}
	router := newStorageRouter(storageConfig(), &stubProvider{}, nil, store)

	rec := postJSON(router, "/v1/bucket/download", gin.H{"filePaths": []string{"luma-videos/2024/06/a.mp4"}})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "bucket-videos-")
}
