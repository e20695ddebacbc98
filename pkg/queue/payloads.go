package queue

import "time"

// ItemRef 事件中携带的条目摘要.
type ItemRef struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Name      string  `json:"name"`
	ParentID  *string `json:"parent_id"`
	CreatedBy string  `json:"created_by,omitempty"`
}

// ItemCreatedPayload 条目已创建.
type ItemCreatedPayload struct {
	Item ItemRef `json:"item"`
}

// DocumentUploadedPayload 文档内容已写入.
type DocumentUploadedPayload struct {
	Item         ItemRef `json:"item"`
	OriginalName string  `json:"original_name"`
	StoredName   string  `json:"stored_name"`
	Size         int64   `json:"size"`
	MimeType     string  `json:"mime_type,omitempty"`
	Checksum     string  `json:"checksum,omitempty"`
	Backend      string  `json:"backend"`
}

// ItemDeletedPayload 条目已删除，Descendants 为同时删除的后代 ID（后序）.
type ItemDeletedPayload struct {
	Item         ItemRef  `json:"item"`
	Deleted      int      `json:"deleted"`
	Descendants  []string `json:"descendants,omitempty"`
	FilesRemoved int      `json:"files_removed"`
}

// RegistryReconciledPayload 对账结果.
type RegistryReconciledPayload struct {
	StaleEntries   []string  `json:"stale_entries,omitempty"`
	MissingContent []string  `json:"missing_content,omitempty"`
	OrphanFiles    []string  `json:"orphan_files,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	Duration       string    `json:"duration"`
}
