package domain

import "math"

// AwemeID is the platform identifier of a single video item.
type AwemeID string

// String returns the string representation of the AwemeID.
func (id AwemeID) String() string {
	return string(id)
}

// UnknownTitle is the placeholder the platform (and downstream tooling) uses
// when a clip has no usable title.
const UnknownTitle = "未知"

// VideoRecord is the normalized output of link resolution.
// An empty VideoPlayURL means resolution failed; every other field is best-effort.
type VideoRecord struct {
	Title           string  `json:"title"`
	SourceURL       string  `json:"source_url"`
	Author          string  `json:"author"`
	AwemeID         AwemeID `json:"aweme_id"`
	VideoPlayURL    string  `json:"video_play_url"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// NewVideoRecord creates an empty record for the given input reference.
func NewVideoRecord(sourceURL string) *VideoRecord {
	return &VideoRecord{SourceURL: sourceURL}
}

// Resolved reports whether a playable media URL was found.
func (r *VideoRecord) Resolved() bool {
	return r != nil && r.VideoPlayURL != ""
}

// HasTitle reports whether the record carries a real title rather than a placeholder.
func (r *VideoRecord) HasTitle() bool {
	return r.Title != "" && r.Title != UnknownTitle
}

// RoundedDuration returns the duration rounded to one decimal place.
func (r *VideoRecord) RoundedDuration() float64 {
	return RoundDuration(r.DurationSeconds)
}

// RoundDuration rounds seconds to one decimal place.
func RoundDuration(seconds float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return math.Round(seconds*10) / 10
}
