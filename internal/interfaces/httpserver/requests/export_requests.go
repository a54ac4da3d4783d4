package requests

// DownloadRequest selects videos for archive or link-list download.
type DownloadRequest struct {
	VideoIDs []string `json:"videoIds" binding:"required"`
	Format   string   `json:"format"`
}

// ResolveRequest selects videos for a download report.
type ResolveRequest struct {
	VideoIDs []string `json:"videoIds" binding:"required"`
}

// DriveUploadRequest selects videos for re-upload to the document store.
type DriveUploadRequest struct {
	VideoIDs   []string `json:"videoIds" binding:"required"`
	FolderName string   `json:"folderName"`
}

// BucketUploadRequest selects videos for re-upload to the object store.
type BucketUploadRequest struct {
	VideoIDs   []string `json:"videoIds" binding:"required"`
	FolderName string   `json:"folderName"`
}

// BucketDownloadRequest selects stored objects for zip re-download.
type BucketDownloadRequest struct {
	FilePaths []string `json:"filePaths" binding:"required"`
}
