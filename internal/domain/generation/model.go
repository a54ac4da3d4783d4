// Package generation defines the provider-side data model. Records are
// created and mutated only by the generation provider; this service treats
// them as read-only snapshots for the duration of a request.
package generation

// State is the lifecycle state reported by the provider.
type State string

const (
	StateQueued     State = "queued"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Kind identifies the artifact type of a generation.
type Kind string

const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
)

// Assets holds the binary asset URLs attached to a generation.
type Assets struct {
	Video string `json:"video,omitempty"`
	Image string `json:"image,omitempty"`
}

// Meta carries optional descriptive metadata from the provider.
type Meta struct {
	Duration    float64 `json:"duration,omitempty"`
	Resolution  string  `json:"resolution,omitempty"`
	AspectRatio string  `json:"aspect_ratio,omitempty"`
	Model       string  `json:"model,omitempty"`
}

// Generation is one unit of provider-side work output.
type Generation struct {
	ID        string  `json:"id"`
	State     State   `json:"state"`
	Kind      Kind    `json:"generation_type"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at,omitempty"`
	Prompt    string  `json:"prompt,omitempty"`
	Assets    *Assets `json:"assets,omitempty"`
	Meta      *Meta   `json:"metadata,omitempty"`
}

// VideoURL returns the video asset URL, or "" when absent.
func (g Generation) VideoURL() string {
	if g.Assets == nil {
		return ""
	}
	return g.Assets.Video
}

// Downloadable reports whether this record is usable by the export
// pipeline: a completed video with an asset URL.
func (g Generation) Downloadable() bool {
	return g.Kind == KindVideo && g.State == StateCompleted && g.VideoURL() != ""
}

// Page is one page of the provider's list endpoint.
type Page struct {
	Generations []Generation `json:"generations"`
	HasMore     bool         `json:"has_more"`
	TotalCount  int          `json:"total_count,omitempty"`
}

// Outcome tells callers how an enumeration ended.
type Outcome string

const (
	// OutcomeComplete means the provider reported no further pages.
	OutcomeComplete Outcome = "complete"
	// OutcomeTruncated means the item cap was reached before end-of-data.
	OutcomeTruncated Outcome = "truncated"
	// OutcomeAborted means enumeration stopped early after consecutive
	// page failures; Generations holds whatever was accumulated.
	OutcomeAborted Outcome = "aborted"
)

// Enumeration is the materialized result of paging the list endpoint.
type Enumeration struct {
	Generations []Generation
	Outcome     Outcome
}

// Complete reports whether the full matching set was enumerated.
func (e Enumeration) Complete() bool {
	return e.Outcome == OutcomeComplete
}

// AssetProbe is the result of a size/type probe against an asset URL.
// Known distinguishes "probed, zero bytes" from "probe failed".
type AssetProbe struct {
	Size        int64
	ContentType string
	Known       bool
}

// DownloadedAsset is a transient, in-memory copy of one binary asset.
// It is owned by the request that produced it and never persisted.
type DownloadedAsset struct {
	GenerationID string
	Filename     string
	Data         []byte
}
