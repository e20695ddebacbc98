package service

import (
	"context"
	"errors"
	"io"
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/yeisme/docvault/pkg/internal/apperr"
	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/storage/registry"
	"github.com/yeisme/docvault/pkg/internal/store"
	"github.com/yeisme/docvault/pkg/internal/types"
	"github.com/yeisme/docvault/pkg/metrics"
)

const (
	defaultMimeType = "application/octet-stream"
	maxExtensionLen = 16
)

// Staged 已写入存储但尚未登记的上传文件.
type Staged struct {
	Key          string // 存储名，uuid + 规整后的扩展名
	OriginalName string
	Extension    string // 原始扩展名，不含点
	MimeType     string
	Size         int64
	Checksum     string // xxhash64，十六进制
}

// uploadFields 上传表单中需要校验的字段（已应用默认值）.
type uploadFields struct {
	Name      string `json:"name"      rule:"required,max=255"`
	CreatedBy string `json:"createdBy" rule:"required,max=255"`
}

// Stage 将上传内容写入存储，超过大小上限时删除已写入部分并返回 FILE_TOO_LARGE.
func (s *ItemService) Stage(ctx context.Context, originalName, contentType string, r io.Reader) (*Staged, error) {
	originalName = strings.TrimSpace(filepath.Base(originalName))
	if r == nil || originalName == "" || originalName == "." {
		return nil, apperr.New(apperr.KindNoFile, "No file uploaded")
	}

	ext := filepath.Ext(originalName)
	st := &Staged{
		Key:          uuid.NewString() + storageExtension(ext),
		OriginalName: originalName,
		Extension:    strings.TrimPrefix(ext, "."),
		MimeType:     mimeTypeOf(contentType, ext),
	}

	limit := s.opts.MaxUploadBytes
	digest := xxhash.New()
	body := io.TeeReader(io.LimitReader(r, limit+1), digest)

	n, err := s.blobs.Put(ctx, st.Key, body, -1, st.MimeType)
	if err != nil {
		_ = s.blobs.Remove(context.WithoutCancel(ctx), st.Key)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		return nil, apperr.Wrap(apperr.KindInternal, "Failed to upload file", err)
	}

	if n > limit {
		_ = s.blobs.Remove(ctx, st.Key)

		metrics.UploadsRejected.WithLabelValues(string(apperr.KindFileTooLarge)).Inc()

		return nil, apperr.Newf(apperr.KindFileTooLarge, "File exceeds the maximum upload size of %s bytes", strconv.FormatInt(limit, 10))
	}

	st.Size = n
	st.Checksum = strconv.FormatUint(digest.Sum64(), 16)

	return st, nil
}

// Discard 删除未登记的已上传文件.
func (s *ItemService) Discard(ctx context.Context, st *Staged) {
	if st == nil {
		return
	}

	if err := s.blobs.Remove(context.WithoutCancel(ctx), st.Key); err != nil {
		s.log.Warn().Err(err).Str("key", st.Key).Msg("failed to remove staged upload")
	}
}

// Commit 校验上传表单并登记文件、创建文档条目，任何失败都会删除已上传的文件.
//
// 写入顺序为 文件 -> 登记表 -> 条目，条目写入失败时回滚登记表记录.
func (s *ItemService) Commit(ctx context.Context, st *Staged, req *types.UploadRequest) (item *model.Item, err error) {
	defer func() {
		if err != nil {
			s.Discard(ctx, st)
			metrics.UploadsRejected.WithLabelValues(string(apperr.KindOf(err))).Inc()
		}
	}()

	fields := uploadFields{
		Name:      strings.TrimSpace(req.Name),
		CreatedBy: strings.TrimSpace(req.CreatedBy),
	}
	if fields.Name == "" {
		fields.Name = st.OriginalName
	}

	if fields.CreatedBy == "" {
		fields.CreatedBy = s.opts.DefaultCreatedBy
	}

	if err := validate(&fields); err != nil {
		return nil, err
	}

	parentID := parentOf(req.ParentID)

	// 上传接口对缺失与非文件夹父级统一返回 NOT_FOUND
	if _, err := s.items.ResolveParent(ctx, parentID); err != nil {
		if errors.Is(err, apperr.KindInvalidParent) {
			return nil, apperr.New(apperr.KindNotFound, "Parent folder not found")
		}

		return nil, err
	}

	taken, err := s.items.NameTaken(ctx, parentID, model.ItemTypeDocument, fields.Name)
	if err != nil {
		return nil, err
	}

	if taken {
		return nil, store.DuplicateError(model.ItemTypeDocument)
	}

	id := model.NewID()

	entry := registry.Entry{
		OriginalName: st.OriginalName,
		StoredName:   st.Key,
		Path:         s.blobs.Location(st.Key),
		Size:         st.Size,
		Checksum:     st.Checksum,
	}
	if err := s.registry.Put(ctx, id, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to upload file", err)
	}

	size := st.Size
	doc := model.NewDocument(id, fields.Name, parentID, fields.CreatedBy, model.FileMeta{
		SizeBytes: &size,
		MimeType:  st.MimeType,
		Extension: st.Extension,
	})

	if err := s.items.Create(ctx, doc); err != nil {
		if _, _, rmErr := s.registry.Remove(context.WithoutCancel(ctx), id); rmErr != nil {
			s.log.Error().Err(rmErr).Str("id", id).Msg("failed to roll back registry entry")
		}

		return nil, err
	}

	metrics.ItemsCreated.WithLabelValues(string(doc.Type)).Inc()
	metrics.UploadBytes.Observe(float64(st.Size))
	s.events.itemCreated(ctx, doc)
	s.events.documentUploaded(ctx, doc, st, s.blobs.Name())

	return doc, nil
}

// Upload 依次执行 Stage 与 Commit.
func (s *ItemService) Upload(ctx context.Context, req *types.UploadRequest, originalName, contentType string, r io.Reader) (*model.Item, error) {
	st, err := s.Stage(ctx, originalName, contentType, r)
	if err != nil {
		return nil, err
	}

	return s.Commit(ctx, st, req)
}

// storageExtension 存储名使用的扩展名，只保留字母数字组成的短扩展名.
func storageExtension(ext string) string {
	if len(ext) < 2 || len(ext) > maxExtensionLen {
		return ""
	}

	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return ""
		}
	}

	return ext
}

func mimeTypeOf(contentType, ext string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt != defaultMimeType {
		return contentType
	}

	if ext != "" {
		if mt := mime.TypeByExtension(ext); mt != "" {
			return mt
		}
	}

	if contentType != "" {
		return contentType
	}

	return defaultMimeType
}
