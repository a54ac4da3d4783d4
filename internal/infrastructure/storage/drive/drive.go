// Package drive implements the Google Drive upload backend.
package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"dream-export/internal/config"
	"dream-export/internal/infrastructure/metrics"
	"dream-export/utils/bytefmt"
)

const (
	folderMimeType = "application/vnd.google-apps.folder"
	videoMimeType  = "video/mp4"
)

// UploadResult describes one stored file. Size stays a string because
// that is how the Drive API reports it on the wire.
type UploadResult struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WebViewLink string `json:"webViewLink"`
	Size        string `json:"size"`
}

// Quota reports account storage usage, formatted for display.
type Quota struct {
	Used      string `json:"used"`
	Limit     string `json:"limit"`
	Available string `json:"available"`
}

// Item is one pending upload.
type Item struct {
	ID       string
	Filename string
	Data     []byte
}

// ProgressFunc receives upload progress as a 0-100 percentage.
type ProgressFunc func(percent int)

// Store wraps the Drive v3 API with the service's upload semantics.
type Store struct {
	svc *drivev3.Service
	log zerolog.Logger
}

// NewStore builds a Drive client from the OAuth client credentials and
// refresh token in the configuration.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Store, error) {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.DriveClientID,
		ClientSecret: cfg.DriveClientSecret,
		RedirectURL:  cfg.DriveRedirectURI,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drivev3.DriveFileScope},
	}
	httpClient := oauthCfg.Client(ctx, &oauth2.Token{RefreshToken: cfg.DriveRefreshToken})

	svc, err := drivev3.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Store{
		svc: svc,
		log: log.With().Str("component", "drive-store").Logger(),
	}, nil
}

// EnsureFolder returns the id of an existing folder with the given name
// (and parent, when set), creating it when absent.
//
// Not idempotent under concurrent callers: two simultaneous calls that
// both miss can each create a folder. The Drive API offers no
// compare-and-create, so the race is accepted.
func (s *Store) EnsureFolder(ctx context.Context, name, parentID string) (string, error) {
	query := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", escapeQuery(name), folderMimeType)
	if parentID != "" {
		query += fmt.Sprintf(" and '%s' in parents", escapeQuery(parentID))
	}

	list, err := s.svc.Files.List().Q(query).Fields("files(id, name)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("search folder %q: %w", name, err)
	}
	if len(list.Files) > 0 {
		return list.Files[0].Id, nil
	}

	meta := &drivev3.File{Name: name, MimeType: folderMimeType}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}
	created, err := s.svc.Files.Create(meta).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create folder %q: %w", name, err)
	}

	s.log.Info().Str("folder", name).Str("id", created.Id).Msg("created drive folder")
	return created.Id, nil
}

func escapeQuery(value string) string {
	return strings.ReplaceAll(value, "'", `\'`)
}

// Upload stores one payload, optionally reporting byte-level progress.
func (s *Store) Upload(ctx context.Context, data []byte, filename, folderID string, onProgress ProgressFunc) (UploadResult, error) {
	meta := &drivev3.File{Name: filename}
	if folderID != "" {
		meta.Parents = []string{folderID}
	}

	var body io.Reader = bytes.NewReader(data)
	if onProgress != nil {
		body = &progressReader{reader: body, total: int64(len(data)), report: onProgress}
	}

	file, err := s.svc.Files.Create(meta).
		Media(body, googleapi.ContentType(videoMimeType)).
		Fields("id, name, webViewLink, size").
		Context(ctx).
		Do()
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("drive", "error").Inc()
		return UploadResult{}, fmt.Errorf("upload %s: %w", filename, err)
	}

	metrics.UploadsTotal.WithLabelValues("drive", "ok").Inc()
	metrics.UploadBytesTotal.WithLabelValues("drive").Add(float64(len(data)))

	size := strconv.FormatInt(file.Size, 10)
	return UploadResult{
		ID:          file.Id,
		Name:        file.Name,
		WebViewLink: file.WebViewLink,
		Size:        size,
	}, nil
}

// UploadBatch uploads items strictly sequentially. A failed item is
// logged and skipped; successes come back in input order, so the result
// can be shorter than the input.
func (s *Store) UploadBatch(ctx context.Context, items []Item, folderID string) []UploadResult {
	results := make([]UploadResult, 0, len(items))
	for _, item := range items {
		result, err := s.Upload(ctx, item.Data, item.Filename, folderID, nil)
		if err != nil {
			s.log.Error().Err(err).Str("filename", item.Filename).Msg("drive upload failed, skipping")
			continue
		}
		results = append(results, result)
	}
	return results
}

// GetQuota reports account storage usage. Failures degrade to "Unknown"
// strings instead of erroring: quota is cosmetic on the upload report.
func (s *Store) GetQuota(ctx context.Context) Quota {
	about, err := s.svc.About.Get().Fields("storageQuota").Context(ctx).Do()
	if err != nil || about.StorageQuota == nil {
		s.log.Warn().Err(err).Msg("drive quota lookup failed")
		return Quota{Used: "Unknown", Limit: "Unknown", Available: "Unknown"}
	}

	used := about.StorageQuota.Usage
	limit := about.StorageQuota.Limit
	// Unlimited accounts report no limit at all.
	if limit <= 0 {
		return Quota{Used: bytefmt.Format(used), Limit: "Unknown", Available: "Unknown"}
	}
	return Quota{
		Used:      bytefmt.Format(used),
		Limit:     bytefmt.Format(limit),
		Available: bytefmt.Format(limit - used),
	}
}

type progressReader struct {
	reader  io.Reader
	total   int64
	read    int64
	lastPct int
	report  ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)
	if n > 0 && p.total > 0 {
		p.read += int64(n)
		pct := int(p.read * 100 / p.total)
		if pct != p.lastPct {
			p.lastPct = pct
			p.report(pct)
		}
	}
	return n, err
}
