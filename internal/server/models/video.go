// Package models defines server-side data models persisted in the database.
package models

import "time"

// StatusTranscoding marks a video whose transcode job has been submitted.
const StatusTranscoding = "transcoding"

// Video is a row of the videos table.
type Video struct {
	ID        int64     `json:"id"`
	Caption   string    `json:"caption"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	// Job is the external transcode job handle, if one was submitted.
	Job *string `json:"job,omitempty"`
	// Status is the transcode status; nil until a job is submitted.
	Status *string `json:"status,omitempty"`
}

// UploadIntent is returned to the client after a signed URL was minted and
// the video row was inserted.
type UploadIntent struct {
	SignedURL    string `json:"signedUrl"`
	FileName     string `json:"fileName"`
	VideoID      int64  `json:"videoId"`
	ContentType  string `json:"contentType"`
	CacheControl string `json:"cacheControl,omitempty"`
}

// FieldUpdate is a validated set of column changes for a video. A nil
// pointer leaves the column untouched; Clear* resets a nullable column.
type FieldUpdate struct {
	Caption     *string
	Job         *string
	Status      *string
	ClearJob    bool
	ClearStatus bool
}

// Empty reports whether the update changes nothing.
func (u FieldUpdate) Empty() bool {
	return u.Caption == nil && u.Job == nil && u.Status == nil && !u.ClearJob && !u.ClearStatus
}
