package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/internal/service"
	"github.com/yeisme/docvault/pkg/internal/types"
)

// ListItems 列出某一层级的条目.
//
//	@Summary		列出条目
//	@Description	列出 parentId 下的直接子条目，缺省为根目录；文件夹在前，按名称排序
//	@Tags			条目
//	@Produce		json
//	@Param			parentId	query		string				false	"父文件夹 ID"
//	@Param			q			query		string				false	"名称包含的子串"
//	@Param			type		query		string				false	"FOLDER 或 DOCUMENT"
//	@Param			limit		query		int					false	"返回数量上限"
//	@Param			offset		query		int					false	"跳过数量"
//	@Success		200			{array}		model.Item
//	@Failure		400			{object}	types.ErrorResponse
//	@Router			/api/items [get]
func ListItems(c *gin.Context) {
	var q types.ListItemsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		Fail(c, bindError(err))
		return
	}

	items, err := service.NewItemService(c.Request.Context()).List(c.Request.Context(), &q)
	if err != nil {
		Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// GetItem 获取单个条目.
//
//	@Summary	获取条目
//	@Tags		条目
//	@Produce	json
//	@Param		id	path		string	true	"条目 ID"
//	@Success	200	{object}	model.Item
//	@Failure	404	{object}	types.ErrorResponse
//	@Router		/api/items/{id} [get]
func GetItem(c *gin.Context) {
	item, err := service.NewItemService(c.Request.Context()).Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// CreateFolder 创建文件夹.
//
//	@Summary	创建文件夹
//	@Tags		条目
//	@Accept		json
//	@Produce	json
//	@Param		folder	body		types.CreateFolderRequest	true	"文件夹"
//	@Success	201		{object}	model.Item
//	@Failure	400		{object}	types.ErrorResponse	"VALIDATION_ERROR 或 INVALID_PARENT"
//	@Failure	404		{object}	types.ErrorResponse	"父文件夹不存在"
//	@Failure	409		{object}	types.ErrorResponse	"同名文件夹已存在"
//	@Router		/api/items/folders [post]
func CreateFolder(c *gin.Context) {
	var req types.CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, bindError(err))
		return
	}

	item, err := service.NewItemService(c.Request.Context()).CreateFolder(c.Request.Context(), &req)
	if err != nil {
		Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// CreateDocument 创建文档元数据，不上传内容.
//
//	@Summary	创建文档
//	@Tags		条目
//	@Accept		json
//	@Produce	json
//	@Param		document	body		types.CreateDocumentRequest	true	"文档元数据"
//	@Success	201			{object}	model.Item
//	@Failure	400			{object}	types.ErrorResponse
//	@Failure	404			{object}	types.ErrorResponse
//	@Failure	409			{object}	types.ErrorResponse
//	@Router		/api/items/documents [post]
func CreateDocument(c *gin.Context) {
	var req types.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, bindError(err))
		return
	}

	item, err := service.NewItemService(c.Request.Context()).CreateDocument(c.Request.Context(), &req)
	if err != nil {
		Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// DeleteItem 删除条目，文件夹连同后代一起删除.
//
//	@Summary	删除条目
//	@Tags		条目
//	@Produce	json
//	@Param		id	path		string	true	"条目 ID"
//	@Success	200	{object}	types.DeleteItemResponse
//	@Failure	404	{object}	types.ErrorResponse
//	@Router		/api/items/{id} [delete]
func DeleteItem(c *gin.Context) {
	resp, err := service.NewItemService(c.Request.Context()).Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
