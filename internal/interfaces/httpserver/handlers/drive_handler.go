package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"dream-export/internal/config"
	"dream-export/internal/domain/export"
	"dream-export/internal/interfaces/httpserver/requests"
	"dream-export/internal/interfaces/httpserver/responses"
)

// DriveFactory constructs the document store on first use; credentials
// may be absent, so construction is deferred to request time.
type DriveFactory func(ctx context.Context) (export.DriveStore, error)

// DriveHandler serves the document-store upload routes.
type DriveHandler struct {
	cfg      *config.Config
	svc      *export.Service
	newStore DriveFactory
	log      zerolog.Logger
}

func NewDriveHandler(cfg *config.Config, svc *export.Service, factory DriveFactory, log zerolog.Logger) *DriveHandler {
	return &DriveHandler{
		cfg:      cfg,
		svc:      svc,
		newStore: factory,
		log:      log.With().Str("handler", "drive").Logger(),
	}
}

// Upload re-uploads the requested videos into a named folder.
func (h *DriveHandler) Upload(c *gin.Context) {
	missing := append(h.cfg.MissingDrive(), h.cfg.MissingProvider()...)
	if len(missing) > 0 {
		responses.MissingConfig(c, missing)
		return
	}

	var req requests.DriveUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.VideoIDs) == 0 {
		responses.Error(c, http.StatusBadRequest, "No video IDs provided")
		return
	}

	store, err := h.newStore(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("document store construction failed")
		responses.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	report, err := h.svc.UploadToDrive(c.Request.Context(), store, req.VideoIDs, req.FolderName)
	if err != nil {
		responses.ServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.DriveUploadResponse{Success: true, DriveReport: report})
}

// Quota reports account storage usage.
func (h *DriveHandler) Quota(c *gin.Context) {
	if missing := h.cfg.MissingDrive(); len(missing) > 0 {
		responses.MissingConfig(c, missing)
		return
	}

	store, err := h.newStore(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("document store construction failed")
		responses.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, responses.DriveQuotaResponse{
		Success:      true,
		StorageQuota: store.GetQuota(c.Request.Context()),
	})
}
