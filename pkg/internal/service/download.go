package service

import (
	"context"
	"errors"
	"io"

	"github.com/yeisme/docvault/pkg/internal/apperr"
	"github.com/yeisme/docvault/pkg/internal/storage/blob"
)

// Download 待下载的文档内容，调用方负责关闭 Body.
type Download struct {
	Body     io.ReadCloser
	FileName string // 上传时的原始文件名
	MimeType string
	Size     int64
}

// Open 打开文档内容.
func (s *ItemService) Open(ctx context.Context, id string) (*Download, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.KindNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "Document not found")
		}

		return nil, err
	}

	if !item.IsDocument() {
		return nil, apperr.New(apperr.KindInvalidType, "Cannot download a folder")
	}

	entry, ok, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	if !ok {
		return nil, apperr.New(apperr.KindFileNotFound, "File record not found")
	}

	body, obj, err := s.blobs.Open(ctx, entry.StoredName)
	if err != nil {
		if blob.IsNotExist(err) {
			return nil, apperr.New(apperr.KindFileNotFound, "File not found on disk")
		}

		return nil, apperr.Internal(err)
	}

	mimeType := defaultMimeType
	if item.MimeType != nil && *item.MimeType != "" {
		mimeType = *item.MimeType
	}

	return &Download{
		Body:     body,
		FileName: entry.OriginalName,
		MimeType: mimeType,
		Size:     obj.Size,
	}, nil
}
