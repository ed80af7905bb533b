package models

import "time"

// Upload is one file received from a client.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// IngestResult reports the outcome of a document upload.
type IngestResult struct {
	Key            string
	UploadedImages int
}

// DocumentEntry is one row of a document listing. URL is the opaque file
// route for the document; Key is kept for follow-up calls by the owner.
type DocumentEntry struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	URL         string    `json:"url"`
	Size        int64     `json:"size"`
	Uploaded    time.Time `json:"uploaded"`
}

// SystemStatus is the administrator's health overview.
type SystemStatus struct {
	Google     bool   `json:"google"`
	Server     bool   `json:"server"`
	Storage    bool   `json:"storage"`
	Backend    string `json:"backend"`
	MemTotal   uint64 `json:"mem_total,omitempty"`
	MemUsed    uint64 `json:"mem_used,omitempty"`
	MemWarning string `json:"mem_warning,omitempty"`
}
