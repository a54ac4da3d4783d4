package responses

import (
	"dream-export/internal/domain/export"
	"dream-export/internal/infrastructure/storage/bucket"
	"dream-export/internal/infrastructure/storage/drive"
)

// ListResponse is the generation listing payload.
type ListResponse struct {
	Generations []export.Video `json:"generations"`
	TotalCount  int            `json:"total_count"`
	HasMore     bool           `json:"has_more"`
	Outcome     string         `json:"outcome,omitempty"`
}

// ResolvedVideo is one successfully downloaded asset in a resolve report.
type ResolvedVideo struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Size     string `json:"size"`
}

// ResolveResponse reports per-item download results for a set of IDs.
type ResolveResponse struct {
	Success    bool             `json:"success"`
	Downloaded int              `json:"downloaded"`
	Failed     int              `json:"failed"`
	Videos     []ResolvedVideo  `json:"videos"`
	Failures   []export.Failure `json:"failures,omitempty"`
}

// LinksResponse lists direct provider download URLs.
type LinksResponse struct {
	Success   bool          `json:"success"`
	Total     int           `json:"total"`
	Downloads []export.Link `json:"downloads"`
}

// BulkResponse is the JSON flavor of the bulk export.
type BulkResponse struct {
	Success           bool               `json:"success"`
	TotalFound        int                `json:"total_found"`
	DownloadableCount int                `json:"downloadable_count"`
	Videos            []export.BulkVideo `json:"videos"`
	BulkDownload      bool               `json:"bulk_download"`
	Note              string             `json:"note"`
}

// DriveUploadResponse wraps the document-store upload report.
type DriveUploadResponse struct {
	Success bool `json:"success"`
	export.DriveReport
}

// DriveQuotaResponse exposes the account quota directly.
type DriveQuotaResponse struct {
	Success      bool        `json:"success"`
	StorageQuota drive.Quota `json:"storageQuota"`
}

// BucketUploadResponse wraps the object-store upload report.
type BucketUploadResponse struct {
	Success bool `json:"success"`
	export.BucketReport
}

// BucketFilesResponse is the stored-object catalog listing.
type BucketFilesResponse struct {
	Success bool                `json:"success"`
	Folder  string              `json:"folder"`
	Files   []bucket.FileInfo   `json:"files"`
	Folders []bucket.FolderInfo `json:"folders"`
	Total   int                 `json:"total"`
}
