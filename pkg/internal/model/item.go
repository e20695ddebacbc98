// Package model 定义数据库表结构.
package model

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ItemType 条目类型，创建后不可变.
type ItemType string

const (
	ItemTypeFolder   ItemType = "FOLDER"
	ItemTypeDocument ItemType = "DOCUMENT"
)

// Valid 判断类型是否合法.
func (t ItemType) Valid() bool {
	return t == ItemTypeFolder || t == ItemTypeDocument
}

// RootScope 根目录的 scope_key.
const RootScope = ""

// Item 文件夹与文档共用一张表，通过可空的 ParentID 自引用形成树.
//
// 唯一索引覆盖 (scope_key, type, name)，scope_key 为父文件夹 ID，根目录为空串，
// 因此根目录下同样受唯一约束（NULL 在唯一索引中互不冲突）.
type Item struct {
	ID       string   `gorm:"primaryKey;size:26"                                                 json:"id"`
	Type     ItemType `gorm:"size:16;not null;uniqueIndex:idx_items_scope_type_name,priority:2" json:"type"`
	Name     string   `gorm:"size:255;not null;uniqueIndex:idx_items_scope_type_name,priority:3" json:"name"`
	ParentID *string  `gorm:"size:26;index"                                                      json:"parentId"`
	ScopeKey string   `gorm:"size:26;not null;uniqueIndex:idx_items_scope_type_name,priority:1" json:"-"`
	// Children 仅用于声明外键，删除父文件夹前必须先删除子条目.
	Children []Item `gorm:"foreignKey:ParentID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT" json:"-"`

	CreatedBy string `gorm:"size:255;not null" json:"createdBy"`

	// 以下字段仅文档使用，文件夹始终为 NULL.
	FileSizeBytes *int64  `json:"fileSizeBytes"`
	MimeType      *string `gorm:"size:255" json:"mimeType"`
	Extension     *string `gorm:"size:255" json:"extension"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName 表名.
func (Item) TableName() string { return "items" }

// FileMeta 文档的文件元数据.
type FileMeta struct {
	SizeBytes *int64
	MimeType  string
	Extension string
}

var (
	ErrFolderWithFileMeta = errors.New("folder must not carry file metadata")
	ErrInvalidItemType    = errors.New("invalid item type")
)

// NewFolder 创建文件夹条目.
func NewFolder(id, name string, parentID *string, createdBy string) *Item {
	return &Item{
		ID:        id,
		Type:      ItemTypeFolder,
		Name:      name,
		ParentID:  normalizeParent(parentID),
		CreatedBy: createdBy,
	}
}

// NewDocument 创建文档条目，空的 MIME 与扩展名保存为 NULL.
func NewDocument(id, name string, parentID *string, createdBy string, meta FileMeta) *Item {
	return &Item{
		ID:            id,
		Type:          ItemTypeDocument,
		Name:          name,
		ParentID:      normalizeParent(parentID),
		CreatedBy:     createdBy,
		FileSizeBytes: meta.SizeBytes,
		MimeType:      optional(meta.MimeType),
		Extension:     optional(strings.TrimPrefix(meta.Extension, ".")),
	}
}

// IsFolder 是否为文件夹.
func (i *Item) IsFolder() bool { return i.Type == ItemTypeFolder }

// IsDocument 是否为文档.
func (i *Item) IsDocument() bool { return i.Type == ItemTypeDocument }

// Scope 返回父级范围键.
func (i *Item) Scope() string { return ScopeOf(i.ParentID) }

// ScopeOf 将可空的父 ID 转换为 scope_key.
func ScopeOf(parentID *string) string {
	if parentID == nil {
		return RootScope
	}

	return *parentID
}

// BeforeSave 保证 scope_key 与 parent_id 一致，并拒绝带文件元数据的文件夹.
func (i *Item) BeforeSave(_ *gorm.DB) error {
	if !i.Type.Valid() {
		return ErrInvalidItemType
	}

	if i.IsFolder() && (i.FileSizeBytes != nil || i.MimeType != nil || i.Extension != nil) {
		return ErrFolderWithFileMeta
	}

	i.ParentID = normalizeParent(i.ParentID)
	i.ScopeKey = ScopeOf(i.ParentID)

	return nil
}

func normalizeParent(parentID *string) *string {
	if parentID == nil || *parentID == "" {
		return nil
	}

	p := *parentID

	return &p
}

func optional(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
