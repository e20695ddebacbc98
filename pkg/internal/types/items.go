package types

import "time"

// ListItemsQuery 列出条目的查询参数，parentId 为空表示根目录.
type ListItemsQuery struct {
	ParentID string `form:"parentId" json:"parentId,omitempty"`
	Q        string `form:"q"        json:"q,omitempty"`
	Type     string `form:"type"     json:"type,omitempty"     rule:"omitempty,oneof=FOLDER DOCUMENT"`
	Limit    int    `form:"limit"    json:"limit,omitempty"    rule:"omitempty,min=1,max=1000"`
	Offset   int    `form:"offset"   json:"offset,omitempty"   rule:"omitempty,min=0"`
}

// CreateFolderRequest 创建文件夹请求.
type CreateFolderRequest struct {
	Name      string  `json:"name"      rule:"required,max=255"` // 去除首尾空白后校验
	ParentID  *string `json:"parentId"`
	CreatedBy string  `json:"createdBy" rule:"required,max=255"`
}

// CreateDocumentRequest 仅创建文档元数据，不包含文件内容.
type CreateDocumentRequest struct {
	Name          string  `json:"name"          rule:"required,max=255"`
	ParentID      *string `json:"parentId"`
	CreatedBy     string  `json:"createdBy"     rule:"required,max=255"`
	FileSizeBytes *int64  `json:"fileSizeBytes" rule:"omitempty,gte=0"`
}

// UploadRequest multipart 上传的文本字段，文件本身通过 file 字段流式读取.
type UploadRequest struct {
	Name      string  `form:"name"      rule:"omitempty,max=255"`
	ParentID  *string `form:"parentId"`
	CreatedBy string  `form:"createdBy" rule:"omitempty,max=255"`
}

// DeleteItemResponse 删除结果，Deleted 为实际删除的条目数（含后代）.
type DeleteItemResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Deleted int    `json:"deleted"`
}

// ErrorResponse 统一错误响应.
type ErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthResponse 健康检查响应.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// ReconcileReport 登记表对账结果.
type ReconcileReport struct {
	StaleEntries   []string      `json:"staleEntries"`
	MissingContent []string      `json:"missingContent"`
	OrphanFiles    []string      `json:"orphanFiles"`
	StartedAt      time.Time     `json:"startedAt"`
	Duration       time.Duration `json:"duration"`
}
