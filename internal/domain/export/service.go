// Package export orchestrates the generation export pipeline: enumerate
// provider records, download their assets, and hand them to an archive
// builder or one of the storage backends.
package export

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"dream-export/internal/config"
	"dream-export/internal/domain/generation"
	"dream-export/internal/infrastructure/archive"
	"dream-export/internal/infrastructure/observability"
	"dream-export/internal/infrastructure/storage/bucket"
	"dream-export/internal/infrastructure/storage/drive"
	"dream-export/utils/bytefmt"
)

// Provider supplies generation records and their binary assets.
type Provider interface {
	FetchPage(ctx context.Context, limit, offset int) (generation.Page, error)
	EnumerateAll(ctx context.Context, maxItems int) generation.Enumeration
	HeadAssetsBatched(ctx context.Context, urls []string) []generation.AssetProbe
	DownloadAsset(ctx context.Context, url string) ([]byte, error)
}

// Archiver packs downloaded assets into a single compressed container.
type Archiver interface {
	Build(items []archive.Item, manifestName string, manifest any) ([]byte, error)
}

// DriveStore is the OAuth document store backend.
type DriveStore interface {
	EnsureFolder(ctx context.Context, name, parentID string) (string, error)
	UploadBatch(ctx context.Context, items []drive.Item, folderID string) []drive.UploadResult
	GetQuota(ctx context.Context) drive.Quota
}

// BucketStore is the S3-compatible object store backend.
type BucketStore interface {
	FolderPath(root string, t time.Time) string
	UploadBatch(ctx context.Context, items []bucket.Item, folderPath string) []bucket.UploadResult
	List(ctx context.Context, folder string) (bucket.Listing, error)
	Download(ctx context.Context, key string) ([]byte, error)
}

// Service wires the provider, archiver and storage backends together.
// Storage backends are passed per call because their credentials may be
// absent; handlers construct them lazily.
type Service struct {
	cfg      *config.Config
	provider Provider
	archiver Archiver
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(cfg *config.Config, provider Provider, archiver Archiver, log zerolog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		provider: provider,
		archiver: archiver,
		log:      log.With().Str("component", "export-service").Logger(),
		now:      time.Now,
	}
}

// ListParams controls the listing endpoint.
type ListParams struct {
	Limit        int
	Offset       int
	FetchAll     bool
	MaxVideos    int
	SkipMetadata bool
}

// VideoMeta extends the provider metadata with probed asset facts.
type VideoMeta struct {
	generation.Meta
	Size          int64  `json:"size"`
	FormattedSize string `json:"formattedSize"`
	ContentType   string `json:"contentType,omitempty"`
}

// Video is one listed generation with enriched metadata. The outer Meta
// field shadows the embedded record's metadata in the JSON output.
type Video struct {
	generation.Generation
	Meta *VideoMeta `json:"metadata,omitempty"`
}

// ListResult is the listing endpoint payload.
type ListResult struct {
	Videos  []Video
	Total   int
	HasMore bool
	Outcome generation.Outcome
}

// ListGenerations returns either a single provider page or the full
// enumerated set. Downloadable items get their asset size probed unless
// SkipMetadata asks for placeholders the client refreshes later.
func (s *Service) ListGenerations(ctx context.Context, params ListParams) (ListResult, error) {
	if !params.FetchAll {
		page, err := s.provider.FetchPage(ctx, params.Limit, params.Offset)
		if err != nil {
			return ListResult{}, err
		}
		return ListResult{
			Videos:  s.enrich(ctx, page.Generations, params.SkipMetadata),
			Total:   len(page.Generations),
			HasMore: page.HasMore,
			Outcome: generation.OutcomeComplete,
		}, nil
	}

	limit := s.cfg.ProviderMaxVideos
	if params.MaxVideos > 0 && params.MaxVideos < limit {
		limit = params.MaxVideos
	}
	enum := s.provider.EnumerateAll(ctx, limit)
	return ListResult{
		Videos:  s.enrich(ctx, enum.Generations, params.SkipMetadata),
		Total:   len(enum.Generations),
		HasMore: !enum.Complete(),
		Outcome: enum.Outcome,
	}, nil
}

// enrich attaches probed size/type metadata to downloadable records.
// With skip set, every downloadable item gets a "Loading..." placeholder
// instead of a probe. Failed probes read "Unknown".
func (s *Service) enrich(ctx context.Context, gens []generation.Generation, skip bool) []Video {
	videos := make([]Video, len(gens))
	var urls []string
	var probeIdx []int

	for i, g := range gens {
		videos[i] = Video{Generation: g}
		if !g.Downloadable() {
			continue
		}
		base := generation.Meta{}
		if g.Meta != nil {
			base = *g.Meta
		}
		if skip {
			videos[i].Meta = &VideoMeta{Meta: base, Size: 0, FormattedSize: "Loading..."}
			continue
		}
		videos[i].Meta = &VideoMeta{Meta: base}
		urls = append(urls, g.VideoURL())
		probeIdx = append(probeIdx, i)
	}

	if len(urls) > 0 {
		probes := s.provider.HeadAssetsBatched(ctx, urls)
		for j, probe := range probes {
			meta := videos[probeIdx[j]].Meta
			if !probe.Known {
				meta.FormattedSize = "Unknown"
				continue
			}
			meta.Size = probe.Size
			meta.FormattedSize = bytefmt.Format(probe.Size)
			meta.ContentType = probe.ContentType
		}
	}

	return videos
}

// Resolve enumerates the provider's downloadable set and keeps only the
// requested IDs. No ID matching anything is ErrNoMatch.
func (s *Service) Resolve(ctx context.Context, ids []string) ([]generation.Generation, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	enum := s.provider.EnumerateAll(ctx, s.cfg.ProviderMaxVideos)
	var matched []generation.Generation
	for _, g := range enum.Generations {
		if wanted[g.ID] {
			matched = append(matched, g)
		}
	}
	if len(matched) == 0 {
		return nil, ErrNoMatch
	}
	return matched, nil
}

// Failure records one per-item download error.
type Failure struct {
	ID  string `json:"id"`
	Err string `json:"error"`
}

// DownloadAssets fetches every asset strictly sequentially, skipping
// failures so one bad URL never sinks the batch.
func (s *Service) DownloadAssets(ctx context.Context, gens []generation.Generation) ([]generation.DownloadedAsset, []Failure) {
	var assets []generation.DownloadedAsset
	var failures []Failure

	for _, g := range gens {
		data, err := s.provider.DownloadAsset(ctx, g.VideoURL())
		if err != nil {
			s.log.Error().Err(err).Str("generation_id", g.ID).Msg("asset download failed, skipping")
			failures = append(failures, Failure{ID: g.ID, Err: err.Error()})
			continue
		}
		assets = append(assets, generation.DownloadedAsset{
			GenerationID: g.ID,
			Filename:     generation.Filename(g),
			Data:         data,
		})
	}

	return assets, failures
}

// BulkVideo is one downloadable entry in a bulk export.
type BulkVideo struct {
	ID          string           `json:"id"`
	Filename    string           `json:"filename"`
	DownloadURL string           `json:"downloadUrl"`
	CreatedAt   string           `json:"created_at"`
	Prompt      string           `json:"prompt,omitempty"`
	State       generation.State `json:"state"`
	Kind        generation.Kind  `json:"generation_type"`
}

// BulkResult is the full downloadable set plus enumeration facts.
type BulkResult struct {
	TotalFound int
	Videos     []BulkVideo
	Outcome    generation.Outcome
}

// BulkExport enumerates with a high cap and returns every downloadable
// record's direct URL. No binaries move here.
func (s *Service) BulkExport(ctx context.Context, maxVideos int) BulkResult {
	limit := s.cfg.ProviderBulkMax
	if maxVideos > 0 && maxVideos < limit {
		limit = maxVideos
	}

	enum := s.provider.EnumerateAll(ctx, limit)
	videos := make([]BulkVideo, 0, len(enum.Generations))
	for _, g := range enum.Generations {
		videos = append(videos, BulkVideo{
			ID:          g.ID,
			Filename:    generation.Filename(g),
			DownloadURL: g.VideoURL(),
			CreatedAt:   g.CreatedAt,
			Prompt:      g.Prompt,
			State:       g.State,
			Kind:        g.Kind,
		})
	}

	return BulkResult{
		TotalFound: len(enum.Generations),
		Videos:     videos,
		Outcome:    enum.Outcome,
	}
}

// Text renders the bulk set in the line-oriented layout the standalone
// downloader script consumes: filename, URL, created, prompt, blank.
func (r BulkResult) Text() string {
	entries := make([]string, 0, len(r.Videos))
	for _, v := range r.Videos {
		prompt := v.Prompt
		if prompt == "" {
			prompt = "N/A"
		}
		entries = append(entries, fmt.Sprintf("%s\n%s\nCreated: %s\nPrompt: %s\n", v.Filename, v.DownloadURL, v.CreatedAt, prompt))
	}
	return strings.Join(entries, "\n")
}

type archiveManifest struct {
	DownloadDate string          `json:"downloadDate"`
	TotalVideos  int             `json:"totalVideos"`
	TotalSize    string          `json:"totalSize"`
	Videos       []manifestVideo `json:"videos"`
}

type manifestVideo struct {
	ID        string           `json:"id"`
	Filename  string           `json:"filename"`
	CreatedAt string           `json:"created_at"`
	Prompt    string           `json:"prompt,omitempty"`
	Meta      *generation.Meta `json:"metadata,omitempty"`
}

// BuildArchive resolves the requested IDs, downloads each asset and
// packs the lot into a zip with a metadata.json manifest. Failed
// downloads become ERROR placeholder entries. Batches above the item
// cap are rejected outright; link mode handles those.
func (s *Service) BuildArchive(ctx context.Context, ids []string) ([]byte, error) {
	ctx, span := observability.GetTracer().Start(ctx, "export.archive")
	defer span.End()

	matched, err := s.Resolve(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(matched) > s.cfg.ArchiveMaxItems {
		return nil, ErrTooManyForArchive
	}

	var items []archive.Item
	var totalSize int64
	succeeded := 0
	for _, g := range matched {
		data, err := s.provider.DownloadAsset(ctx, g.VideoURL())
		if err != nil {
			s.log.Error().Err(err).Str("generation_id", g.ID).Msg("asset download failed")
			items = append(items, archive.Item{ID: g.ID, Err: err})
			continue
		}
		items = append(items, archive.Item{ID: g.ID, Filename: generation.Filename(g), Data: data})
		totalSize += int64(len(data))
		succeeded++
	}
	if succeeded == 0 {
		return nil, ErrNothingDownloaded
	}
	span.SetAttributes(observability.ExportAttributes("archive", len(ids), succeeded)...)

	manifest := archiveManifest{
		DownloadDate: s.now().UTC().Format(time.RFC3339),
		TotalVideos:  len(matched),
		TotalSize:    bytefmt.Format(totalSize),
		Videos:       make([]manifestVideo, 0, len(matched)),
	}
	for _, g := range matched {
		manifest.Videos = append(manifest.Videos, manifestVideo{
			ID:        g.ID,
			Filename:  generation.Filename(g),
			CreatedAt: g.CreatedAt,
			Prompt:    g.Prompt,
			Meta:      g.Meta,
		})
	}

	return s.archiver.Build(items, "metadata.json", manifest)
}

// Link is one direct-download entry.
type Link struct {
	ID            string `json:"id"`
	Filename      string `json:"filename"`
	URL           string `json:"url"`
	Size          int64  `json:"size"`
	FormattedSize string `json:"formattedSize"`
	CreatedAt     string `json:"created_at"`
	Prompt        string `json:"prompt,omitempty"`
}

// LinkList resolves IDs to direct provider URLs without probing sizes;
// link mode trades metadata for speed.
func (s *Service) LinkList(ctx context.Context, ids []string) ([]Link, error) {
	matched, err := s.Resolve(ctx, ids)
	if err != nil {
		return nil, err
	}

	links := make([]Link, 0, len(matched))
	for _, g := range matched {
		links = append(links, Link{
			ID:            g.ID,
			Filename:      generation.Filename(g),
			URL:           g.VideoURL(),
			Size:          0,
			FormattedSize: "Unknown",
			CreatedAt:     g.CreatedAt,
			Prompt:        g.Prompt,
		})
	}
	return links, nil
}

// DriveUploadItem is one stored file tied back to its generation.
type DriveUploadItem struct {
	drive.UploadResult
	OriginalID string `json:"originalId,omitempty"`
}

// DriveReport is the document-store upload summary.
type DriveReport struct {
	FolderID   string            `json:"folderId"`
	FolderName string            `json:"folderName"`
	Uploaded   int               `json:"uploaded"`
	Failed     int               `json:"failed"`
	TotalSize  int64             `json:"totalSize"`
	Quota      drive.Quota       `json:"storageQuota"`
	Results    []DriveUploadItem `json:"results"`
}

// UploadToDrive resolves, downloads and re-uploads the requested assets
// into a named folder, then reports counts alongside the account quota.
func (s *Service) UploadToDrive(ctx context.Context, store DriveStore, ids []string, folderName string) (DriveReport, error) {
	ctx, span := observability.GetTracer().Start(ctx, "export.drive_upload")
	defer span.End()

	if folderName == "" {
		folderName = s.cfg.DriveFolderName
	}

	matched, err := s.Resolve(ctx, ids)
	if err != nil {
		return DriveReport{}, err
	}

	assets, _ := s.DownloadAssets(ctx, matched)
	if len(assets) == 0 {
		return DriveReport{}, ErrNothingDownloaded
	}

	folderID, err := store.EnsureFolder(ctx, folderName, "")
	if err != nil {
		return DriveReport{}, fmt.Errorf("ensure folder %q: %w", folderName, err)
	}

	items := make([]drive.Item, 0, len(assets))
	byFilename := make(map[string]string, len(assets))
	var totalSize int64
	for _, a := range assets {
		items = append(items, drive.Item{ID: a.GenerationID, Filename: a.Filename, Data: a.Data})
		byFilename[a.Filename] = a.GenerationID
		totalSize += int64(len(a.Data))
	}

	results := store.UploadBatch(ctx, items, folderID)
	span.SetAttributes(observability.ExportAttributes("drive_upload", len(ids), len(results))...)
	report := DriveReport{
		FolderID:   folderID,
		FolderName: folderName,
		Uploaded:   len(results),
		Failed:     len(assets) - len(results),
		TotalSize:  totalSize,
		Quota:      store.GetQuota(ctx),
		Results:    make([]DriveUploadItem, 0, len(results)),
	}
	for _, r := range results {
		report.Results = append(report.Results, DriveUploadItem{
			UploadResult: r,
			OriginalID:   byFilename[r.Name],
		})
	}
	return report, nil
}

// BucketUploadItem is one stored object tied back to its generation.
type BucketUploadItem struct {
	bucket.UploadResult
	OriginalID string `json:"originalId,omitempty"`
}

// BucketReport is the object-store upload summary.
type BucketReport struct {
	FolderPath string             `json:"folderPath"`
	Uploaded   int                `json:"uploaded"`
	Failed     int                `json:"failed"`
	TotalSize  string             `json:"totalSize"`
	Results    []BucketUploadItem `json:"results"`
}

// UploadToBucket resolves, downloads and re-uploads the requested assets
// under a calendar-partitioned prefix.
func (s *Service) UploadToBucket(ctx context.Context, store BucketStore, ids []string, folderName string) (BucketReport, error) {
	ctx, span := observability.GetTracer().Start(ctx, "export.bucket_upload")
	defer span.End()

	matched, err := s.Resolve(ctx, ids)
	if err != nil {
		return BucketReport{}, err
	}

	assets, _ := s.DownloadAssets(ctx, matched)
	if len(assets) == 0 {
		return BucketReport{}, ErrNothingDownloaded
	}

	folderPath := store.FolderPath(folderName, s.now())
	items := make([]bucket.Item, 0, len(assets))
	byFilename := make(map[string]string, len(assets))
	var totalSize int64
	for _, a := range assets {
		items = append(items, bucket.Item{ID: a.GenerationID, Filename: a.Filename, Data: a.Data})
		byFilename[a.Filename] = a.GenerationID
		totalSize += int64(len(a.Data))
	}

	results := store.UploadBatch(ctx, items, folderPath)
	span.SetAttributes(observability.ExportAttributes("bucket_upload", len(ids), len(results))...)
	report := BucketReport{
		FolderPath: folderPath,
		Uploaded:   len(results),
		Failed:     len(assets) - len(results),
		TotalSize:  bytefmt.Format(totalSize),
		Results:    make([]BucketUploadItem, 0, len(results)),
	}
	for _, r := range results {
		report.Results = append(report.Results, BucketUploadItem{
			UploadResult: r,
			OriginalID:   byFilename[r.Name],
		})
	}
	return report, nil
}

type bucketArchiveManifest struct {
	DownloadDate        string `json:"downloadDate"`
	RequestedFiles      int    `json:"requestedFiles"`
	SuccessfulDownloads int    `json:"successfulDownloads"`
	FailedDownloads     int    `json:"failedDownloads"`
}

var pathSanitizer = regexp.MustCompile(`[^a-zA-Z0-9]`)

// BucketArchive re-downloads stored objects and packs them into a zip
// with a download_info.json manifest. The batch size is capped to keep
// the response inside the request duration budget.
func (s *Service) BucketArchive(ctx context.Context, store BucketStore, paths []string) ([]byte, error) {
	ctx, span := observability.GetTracer().Start(ctx, "export.bucket_archive")
	defer span.End()

	if len(paths) > s.cfg.BucketDownloadLimit {
		return nil, ErrTooManyFiles
	}

	var items []archive.Item
	succeeded := 0
	for _, p := range paths {
		data, err := store.Download(ctx, p)
		if err != nil {
			s.log.Error().Err(err).Str("path", p).Msg("bucket object download failed")
			items = append(items, archive.Item{ID: pathSanitizer.ReplaceAllString(p, "_"), Err: err})
			continue
		}
		items = append(items, archive.Item{ID: p, Filename: path.Base(p), Data: data})
		succeeded++
	}
	if succeeded == 0 {
		return nil, ErrNothingDownloaded
	}
	span.SetAttributes(observability.ExportAttributes("bucket_archive", len(paths), succeeded)...)

	manifest := bucketArchiveManifest{
		DownloadDate:        s.now().UTC().Format(time.RFC3339),
		RequestedFiles:      len(paths),
		SuccessfulDownloads: succeeded,
		FailedDownloads:     len(paths) - succeeded,
	}
	return s.archiver.Build(items, "download_info.json", manifest)
}
