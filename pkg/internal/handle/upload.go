package handle

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/internal/apperr"
	"github.com/yeisme/docvault/pkg/internal/service"
	"github.com/yeisme/docvault/pkg/internal/types"
)

const (
	// maxFieldBytes 单个文本表单字段的上限.
	maxFieldBytes = 4 << 10
	// formOverhead 请求体中除文件外允许的额外字节（边界、头部、文本字段）.
	formOverhead = 1 << 20
)

// UploadDocument 上传文件并创建文档条目.
//
// 请求体按 multipart 流式读取，文件内容直接写入存储，不在内存或临时目录中缓存整个请求.
//
//	@Summary		上传文档
//	@Description	multipart 表单：file 为文件，name 可覆盖文件名，parentId 为父文件夹，createdBy 为创建者
//	@Tags			上传
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file		formData	file	true	"文件"
//	@Param			name		formData	string	false	"文档名称，缺省为原始文件名"
//	@Param			parentId	formData	string	false	"父文件夹 ID"
//	@Param			createdBy	formData	string	false	"创建者"
//	@Success		201			{object}	model.Item
//	@Failure		400			{object}	types.ErrorResponse	"NO_FILE 或 VALIDATION_ERROR"
//	@Failure		404			{object}	types.ErrorResponse	"父文件夹不存在"
//	@Failure		409			{object}	types.ErrorResponse	"同名文档已存在"
//	@Failure		413			{object}	types.ErrorResponse	"FILE_TOO_LARGE"
//	@Router			/api/upload [post]
func UploadDocument(c *gin.Context) {
	ctx := c.Request.Context()
	svc := service.NewItemService(ctx)
	limit := configs.GetConfig().Storage.MaxUploadBytes

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+formOverhead)

	mr, err := c.Request.MultipartReader()
	if err != nil {
		Fail(c, apperr.Wrap(apperr.KindNoFile, "No file uploaded", err))
		return
	}

	var (
		req    types.UploadRequest
		staged *service.Staged
	)

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			svc.Discard(ctx, staged)
			Fail(c, readError(err))

			return
		}

		switch part.FormName() {
		case "file":
			// 只接受第一个文件
			if staged != nil || part.FileName() == "" {
				break
			}

			staged, err = svc.Stage(ctx, part.FileName(), part.Header.Get("Content-Type"), part)
			if err != nil {
				_ = part.Close()

				Fail(c, err)

				return
			}
		case "name", "parentId", "createdBy":
			v, err := readField(part)
			if err != nil {
				_ = part.Close()

				svc.Discard(ctx, staged)
				Fail(c, err)

				return
			}

			switch part.FormName() {
			case "name":
				req.Name = v
			case "parentId":
				req.ParentID = &v
			case "createdBy":
				req.CreatedBy = v
			}
		}

		_ = part.Close()
	}

	if staged == nil {
		Fail(c, apperr.New(apperr.KindNoFile, "No file uploaded"))
		return
	}

	item, err := svc.Commit(ctx, staged, &req)
	if err != nil {
		Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// DownloadDocument 以附件形式下载文档内容.
//
//	@Summary	下载文档
//	@Tags		上传
//	@Produce	octet-stream
//	@Param		id	path		string	true	"文档 ID"
//	@Success	200	{file}		binary
//	@Failure	400	{object}	types.ErrorResponse	"INVALID_TYPE"
//	@Failure	404	{object}	types.ErrorResponse	"NOT_FOUND 或 FILE_NOT_FOUND"
//	@Router		/api/upload/{id}/download [get]
func DownloadDocument(c *gin.Context) {
	ctx := c.Request.Context()

	dl, err := service.NewItemService(ctx).Open(ctx, c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	defer dl.Body.Close()

	c.DataFromReader(http.StatusOK, dl.Size, dl.MimeType, dl.Body, map[string]string{
		"Content-Disposition": contentDisposition(dl.FileName),
	})
}

func readField(part io.Reader) (string, error) {
	b, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
	if err != nil {
		return "", readError(err)
	}

	if len(b) > maxFieldBytes {
		return "", apperr.Validation("Request validation failed", map[string]string{
			"form": fmt.Sprintf("form field must be at most %d bytes", maxFieldBytes),
		})
	}

	return string(b), nil
}

func readError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return apperr.Wrap(apperr.KindFileTooLarge, "Request body too large", err)
	}

	return apperr.Wrap(apperr.KindValidation, "Malformed multipart body", err)
}

// contentDisposition 生成 attachment 头，非 ASCII 文件名额外给出 RFC 5987 编码.
func contentDisposition(name string) string {
	fallback := strings.Map(func(r rune) rune {
		switch {
		case r == '"' || r == '\\':
			return '_'
		case r < 0x20 || r == 0x7f:
			return -1
		case r > 0x7e:
			return '_'
		default:
			return r
		}
	}, name)

	header := `attachment; filename="` + fallback + `"`
	if fallback != name {
		header += "; filename*=UTF-8''" + url.PathEscape(name)
	}

	return header
}
