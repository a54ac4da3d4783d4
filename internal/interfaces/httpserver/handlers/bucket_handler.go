package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"dream-export/internal/config"
	"dream-export/internal/domain/export"
	"dream-export/internal/interfaces/httpserver/requests"
	"dream-export/internal/interfaces/httpserver/responses"
)

// BucketFactory constructs the object store on first use, mirroring the
// deferred construction of the document store.
type BucketFactory func(ctx context.Context) (export.BucketStore, error)

// BucketHandler serves the object-store routes.
type BucketHandler struct {
	cfg      *config.Config
	svc      *export.Service
	newStore BucketFactory
	log      zerolog.Logger
}

func NewBucketHandler(cfg *config.Config, svc *export.Service, factory BucketFactory, log zerolog.Logger) *BucketHandler {
	return &BucketHandler{
		cfg:      cfg,
		svc:      svc,
		newStore: factory,
		log:      log.With().Str("handler", "bucket").Logger(),
	}
}

// Upload re-uploads the requested videos under a calendar partition.
func (h *BucketHandler) Upload(c *gin.Context) {
	missing := append(h.cfg.MissingBucket(), h.cfg.MissingProvider()...)
	if len(missing) > 0 {
		responses.MissingConfig(c, missing)
		return
	}

	var req requests.BucketUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.VideoIDs) == 0 {
		responses.Error(c, http.StatusBadRequest, "No video IDs provided")
		return
	}

	store, err := h.newStore(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("object store construction failed")
		responses.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	report, err := h.svc.UploadToBucket(c.Request.Context(), store, req.VideoIDs, req.FolderName)
	if err != nil {
		responses.ServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.BucketUploadResponse{Success: true, BucketReport: report})
}

// Files lists stored objects and pseudo-folders under a prefix.
func (h *BucketHandler) Files(c *gin.Context) {
	if missing := h.cfg.MissingBucket(); len(missing) > 0 {
		responses.MissingConfig(c, missing)
		return
	}

	store, err := h.newStore(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("object store construction failed")
		responses.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	folder := c.Query("folder")
	listing, err := store.List(c.Request.Context(), folder)
	if err != nil {
		h.log.Error().Err(err).Str("folder", folder).Msg("bucket listing failed")
		responses.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, responses.BucketFilesResponse{
		Success: true,
		Folder:  folder,
		Files:   listing.Files,
		Folders: listing.Folders,
		Total:   len(listing.Files),
	})
}

// Download re-downloads stored objects and streams them as one zip.
func (h *BucketHandler) Download(c *gin.Context) {
	if missing := h.cfg.MissingBucket(); len(missing) > 0 {
		responses.MissingConfig(c, missing)
		return
	}

	var req requests.BucketDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.FilePaths) == 0 {
		responses.Error(c, http.StatusBadRequest, "No file paths provided")
		return
	}

	store, err := h.newStore(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("object store construction failed")
		responses.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	data, err := h.svc.BucketArchive(c.Request.Context(), store, req.FilePaths)
	if err != nil {
		responses.ServiceError(c, err)
		return
	}

	writeZip(c, data, fmt.Sprintf("bucket-videos-%s.zip", time.Now().UTC().Format("2006-01-02")))
}
