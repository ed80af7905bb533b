// Package models defines server-side data models shared by storage backends
// and services.
package models

import "time"

// ObjectInfo is the listing view of a stored blob.
type ObjectInfo struct {
	// Key is the full storage key, e.g. docs/<owner>/<name>.html.
	Key string
	// Size is the blob length in bytes.
	Size int64
	// Uploaded is the time of the last write.
	Uploaded time.Time
	// ContentType is the MIME type recorded at write time.
	ContentType string
	// ETag is a quoted content validator.
	ETag string
}

// Object is a blob together with its metadata.
type Object struct {
	ObjectInfo
	Body []byte
}
