package export

import "errors"

var (
	// ErrNoMatch means none of the requested IDs exist in the provider's
	// current generation set. Distinct from "matched but nothing usable".
	ErrNoMatch = errors.New("no valid videos found for the provided IDs")

	// ErrNothingDownloaded means every per-item download failed.
	ErrNothingDownloaded = errors.New("failed to download any videos")

	// ErrTooManyForArchive rejects archive mode above the item cap;
	// callers should switch to the links format instead.
	ErrTooManyForArchive = errors.New("too many videos for archive download, use the links format instead")

	// ErrTooManyFiles rejects oversized bucket re-download batches.
	ErrTooManyFiles = errors.New("too many files selected, select fewer files at a time")
)
