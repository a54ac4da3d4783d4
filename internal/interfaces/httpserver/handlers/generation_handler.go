package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"dream-export/internal/config"
	"dream-export/internal/domain/export"
	"dream-export/internal/interfaces/httpserver/requests"
	"dream-export/internal/interfaces/httpserver/responses"
	"dream-export/utils/bytefmt"
)

// GenerationHandler serves the provider-facing listing and download routes.
type GenerationHandler struct {
	cfg *config.Config
	svc *export.Service
	log zerolog.Logger
}

func NewGenerationHandler(cfg *config.Config, svc *export.Service, log zerolog.Logger) *GenerationHandler {
	return &GenerationHandler{
		cfg: cfg,
		svc: svc,
		log: log.With().Str("handler", "generation").Logger(),
	}
}

// List returns one page of generations, or the full enumerated set with
// fetchAll=true. skipMetadata defers size probing to the client.
func (h *GenerationHandler) List(c *gin.Context) {
	if missing := h.cfg.MissingProvider(); len(missing) > 0 {
		responses.MissingConfig(c, missing)
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(h.cfg.ProviderPageSize)))
	if err != nil || limit <= 0 {
		responses.Error(c, http.StatusBadRequest, "invalid limit")
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		responses.Error(c, http.StatusBadRequest, "invalid offset")
		return
	}
	maxVideos, err := strconv.Atoi(c.DefaultQuery("maxVideos", "0"))
	if err != nil || maxVideos < 0 {
		responses.Error(c, http.StatusBadRequest, "invalid maxVideos")
		return
	}

	params := export.ListParams{
		Limit:        limit,
		Offset:       offset,
		FetchAll:     c.Query("fetchAll") == "true",
		MaxVideos:    maxVideos,
		SkipMetadata: c.Query("skipMetadata") == "true",
	}

	result, err := h.svc.ListGenerations(c.Request.Context(), params)
	if err != nil {
		h.log.Error().Err(err).Msg("listing generations failed")
		responses.ServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.ListResponse{
		Generations: result.Videos,
		TotalCount:  result.Total,
		HasMore:     result.HasMore,
		Outcome:     string(result.Outcome),
	})
}

// Resolve downloads the requested assets and reports per-item results.
func (h *GenerationHandler) Resolve(c *gin.Context) {
	if missing := h.cfg.MissingProvider(); len(missing) > 0 {
		responses.MissingConfig(c, missing)
		return
	}

	var req requests.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.VideoIDs) == 0 {
		responses.Error(c, http.StatusBadRequest, "No video IDs provided")
		return
	}

	matched, err := h.svc.Resolve(c.Request.Context(), req.VideoIDs)
	if err != nil {
		responses.ServiceError(c, err)
		return
	}

	assets, failures := h.svc.DownloadAssets(c.Request.Context(), matched)
	videos := make([]responses.ResolvedVideo, 0, len(assets))
	for _, a := range assets {
		videos = append(videos, responses.ResolvedVideo{
			ID:       a.GenerationID,
			Filename: a.Filename,
			Size:     bytefmt.Format(int64(len(a.Data))),
		})
	}

	c.JSON(http.StatusOK, responses.ResolveResponse{
		Success:    true,
		Downloaded: len(videos),
		Failed:     len(req.VideoIDs) - len(videos),
		Videos:     videos,
		Failures:   failures,
	})
}

// BulkExport returns the full downloadable set as JSON, or as a plain
// text file the standalone downloader script consumes.
func (h *GenerationHandler) BulkExport(c *gin.Context) {
	if missing := h.cfg.MissingProvider(); len(missing) > 0 {
		responses.MissingConfig(c, missing)
		return
	}

	maxVideos, err := strconv.Atoi(c.DefaultQuery("maxVideos", "0"))
	if err != nil || maxVideos < 0 {
		responses.Error(c, http.StatusBadRequest, "invalid maxVideos")
		return
	}

	result := h.svc.BulkExport(c.Request.Context(), maxVideos)

	if c.DefaultQuery("format", "json") == "txt" {
		filename := fmt.Sprintf("all-luma-videos-%s.txt", time.Now().UTC().Format("2006-01-02"))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, "text/plain", []byte(result.Text()))
		return
	}

	c.JSON(http.StatusOK, responses.BulkResponse{
		Success:           true,
		TotalFound:        result.TotalFound,
		DownloadableCount: len(result.Videos),
		Videos:            result.Videos,
		BulkDownload:      true,
		Note:              fmt.Sprintf("All %d downloadable videos included (no %d video limit)", len(result.Videos), h.cfg.ProviderMaxVideos),
	})
}

// Download streams a zip archive of the requested videos, or returns
// direct links when format=links.
func (h *GenerationHandler) Download(c *gin.Context) {
	if missing := h.cfg.MissingProvider(); len(missing) > 0 {
		responses.MissingConfig(c, missing)
		return
	}

	var req requests.DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.VideoIDs) == 0 {
		responses.Error(c, http.StatusBadRequest, "No video IDs provided")
		return
	}

	if req.Format == "links" {
		links, err := h.svc.LinkList(c.Request.Context(), req.VideoIDs)
		if err != nil {
			responses.ServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, responses.LinksResponse{
			Success:   true,
			Total:     len(links),
			Downloads: links,
		})
		return
	}

	data, err := h.svc.BuildArchive(c.Request.Context(), req.VideoIDs)
	if err != nil {
		responses.ServiceError(c, err)
		return
	}

	writeZip(c, data, fmt.Sprintf("luma-videos-%s.zip", time.Now().UTC().Format("2006-01-02")))
}

// writeZip streams a finished archive with an explicit length so clients
// can show download progress.
func writeZip(c *gin.Context, data []byte, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Length", strconv.Itoa(len(data)))
	c.Data(http.StatusOK, "application/zip", data)
}
