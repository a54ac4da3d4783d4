// Package bucket implements the S3-compatible object store backend.
// The backend has no real folders; paths are simulated by key prefixes.
package bucket

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"dream-export/internal/config"
	"dream-export/internal/infrastructure/metrics"
)

const videoMimeType = "video/mp4"

// UploadResult describes one stored object.
type UploadResult struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DownloadURL string `json:"downloadURL"`
	Size        int64  `json:"size"`
	Path        string `json:"path"`
}

// Item is one pending upload.
type Item struct {
	ID       string
	Filename string
	Data     []byte
}

// FileInfo describes one listed object.
type FileInfo struct {
	Name        string    `json:"name"`
	FullPath    string    `json:"fullPath"`
	DownloadURL string    `json:"downloadURL"`
	Size        int64     `json:"size"`
	TimeCreated time.Time `json:"timeCreated"`
	ContentType string    `json:"contentType"`
}

// FolderInfo is a pseudo-folder derived from a common key prefix.
type FolderInfo struct {
	Name     string `json:"name"`
	FullPath string `json:"fullPath"`
}

// Listing is the result of enumerating one prefix.
type Listing struct {
	Files   []FileInfo
	Folders []FolderInfo
}

// ProgressFunc receives upload progress as a 0-100 percentage.
type ProgressFunc func(percent int)

// objectAPI is the subset of the S3 client the store calls.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Store wraps an S3-compatible bucket with the service's semantics.
type Store struct {
	bucket          string
	rootPrefix      string
	presignTTL      time.Duration
	listConcurrency int
	client          objectAPI
	presigner       presignAPI
	log             zerolog.Logger
}

// NewStore builds the S3 client with static credentials and an optional
// custom endpoint (for S3-compatible providers).
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Store, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.BucketEndpoint != "" {
			return aws.Endpoint{
				URL:           cfg.BucketEndpoint,
				PartitionID:   "aws",
				SigningRegion: cfg.BucketRegion,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.BucketRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.BucketAccessKeyID, cfg.BucketSecretKey, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.BucketUsePathStyle
	})

	return &Store{
		bucket:          cfg.BucketName,
		rootPrefix:      strings.Trim(cfg.BucketRootPrefix, "/"),
		presignTTL:      cfg.BucketPresignTTL,
		listConcurrency: cfg.ListConcurrency,
		client:          client,
		presigner:       s3.NewPresignClient(client),
		log:             log.With().Str("component", "bucket-store").Logger(),
	}, nil
}

// FolderPath derives the calendar partition for a point in time:
// {root}/{year}/{month}. An empty root falls back to the configured
// top-level prefix.
func (s *Store) FolderPath(root string, t time.Time) string {
	root = strings.Trim(root, "/")
	if root == "" {
		root = s.rootPrefix
	}
	return fmt.Sprintf("%s/%d/%02d", root, t.Year(), int(t.Month()))
}

// Upload stores one payload under folderPath, optionally reporting
// progress, and returns a presigned download URL for the new object.
func (s *Store) Upload(ctx context.Context, data []byte, filename, folderPath string, onProgress ProgressFunc) (UploadResult, error) {
	key := strings.Trim(folderPath, "/") + "/" + filename

	var body io.Reader = bytes.NewReader(data)
	if onProgress != nil {
		body = &progressReader{reader: body, total: int64(len(data)), report: onProgress}
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(videoMimeType),
	})
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("bucket", "error").Inc()
		return UploadResult{}, fmt.Errorf("upload %s: %w", key, err)
	}

	metrics.UploadsTotal.WithLabelValues("bucket", "ok").Inc()
	metrics.UploadBytesTotal.WithLabelValues("bucket").Add(float64(len(data)))

	url, err := s.presignGet(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("presign after upload failed")
	}

	return UploadResult{
		ID:          filename,
		Name:        filename,
		DownloadURL: url,
		Size:        int64(len(data)),
		Path:        key,
	}, nil
}

// UploadBatch uploads items strictly sequentially with the same
// skip-on-error contract as the Drive backend.
func (s *Store) UploadBatch(ctx context.Context, items []Item, folderPath string) []UploadResult {
	results := make([]UploadResult, 0, len(items))
	for _, item := range items {
		result, err := s.Upload(ctx, item.Data, item.Filename, folderPath, nil)
		if err != nil {
			s.log.Error().Err(err).Str("filename", item.Filename).Msg("bucket upload failed, skipping")
			continue
		}
		results = append(results, result)
	}
	return results
}

// List enumerates one prefix level, following continuation tokens so
// catalogs past the per-page object cap come back whole. Objects get
// their download URL and content type resolved under a bounded fan-out;
// failures drop the item rather than failing the listing. Files come
// back newest first; common prefixes are surfaced as pseudo-folders.
func (s *Store) List(ctx context.Context, folder string) (Listing, error) {
	prefix := strings.Trim(folder, "/")
	if prefix != "" {
		prefix += "/"
	}

	var (
		objects    []types.Object
		prefixes   []string
		seenPrefix = make(map[string]bool)
		token      *string
	)
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			Delimiter:         aws.String("/"),
			ContinuationToken: token,
		})
		if err != nil {
			return Listing{}, fmt.Errorf("list objects under %q: %w", prefix, err)
		}
		objects = append(objects, out.Contents...)
		// Common prefixes can repeat across pages.
		for _, p := range out.CommonPrefixes {
			full := strings.TrimSuffix(aws.ToString(p.Prefix), "/")
			if !seenPrefix[full] {
				seenPrefix[full] = true
				prefixes = append(prefixes, full)
			}
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}

	files := make([]FileInfo, len(objects))
	ok := make([]bool, len(objects))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.listConcurrency)
	for i, obj := range objects {
		group.Go(func() error {
			key := aws.ToString(obj.Key)
			info, err := s.describeObject(groupCtx, key, obj.Size, obj.LastModified)
			if err != nil {
				s.log.Warn().Err(err).Str("key", key).Msg("skipping object in listing")
				return nil
			}
			files[i] = info
			ok[i] = true
			return nil
		})
	}
	_ = group.Wait()

	listing := Listing{}
	for i, keep := range ok {
		if keep {
			listing.Files = append(listing.Files, files[i])
		}
	}
	sort.Slice(listing.Files, func(i, j int) bool {
		return listing.Files[i].TimeCreated.After(listing.Files[j].TimeCreated)
	})

	for _, full := range prefixes {
		parts := strings.Split(full, "/")
		listing.Folders = append(listing.Folders, FolderInfo{
			Name:     parts[len(parts)-1],
			FullPath: full,
		})
	}

	return listing, nil
}

func (s *Store) describeObject(ctx context.Context, key string, size *int64, lastModified *time.Time) (FileInfo, error) {
	url, err := s.presignGet(ctx, key)
	if err != nil {
		return FileInfo{}, err
	}

	contentType := videoMimeType
	if head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err == nil && head.ContentType != nil {
		contentType = aws.ToString(head.ContentType)
	}

	parts := strings.Split(key, "/")
	info := FileInfo{
		Name:        parts[len(parts)-1],
		FullPath:    key,
		DownloadURL: url,
		Size:        aws.ToInt64(size),
		ContentType: contentType,
	}
	if lastModified != nil {
		info.TimeCreated = *lastModified
	}
	return info, nil
}

// Download fetches one object in full, for the bucket-to-archive path.
func (s *Store) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

func (s *Store) presignGet(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignTTL))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
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
