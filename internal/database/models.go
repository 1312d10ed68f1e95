package database

import (
	"time"

	"gorm.io/datatypes"
)

// UserProfile 表示由身份提供方首次登录时惰性创建的用户档案文档。
// Collections 保存用户收藏的模板 id（有序、写入时去重）；
// Resumes 只是反规范化的冗余列表，权威数据在 ResumeDraft 表。
type UserProfile struct {
	UID         string         `gorm:"primaryKey;size:128"`
	DisplayName string         `gorm:"size:255"`
	PhotoURL    string         `gorm:"size:512"`
	Email       string         `gorm:"size:255"`
	Collections datatypes.JSON `gorm:"type:jsonb"`
	Resumes     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Template 表示公开的简历模板目录条目。
// 创建后除 Favourites 外不可变；Timestamp 由服务端写入，按插入顺序单调递增。
type Template struct {
	ID         string         `gorm:"primaryKey;size:64"`
	Title      string         `gorm:"size:255"`
	Name       string         `gorm:"size:64;index"` // 模板族名，决定编辑器版式
	ImageURL   string         `gorm:"size:512"`
	Tags       datatypes.JSON `gorm:"type:jsonb"`
	Favourites datatypes.JSON `gorm:"type:jsonb"` // 点赞用户 uid，至多出现一次
	Timestamp  time.Time      `gorm:"index;autoCreateTime"`
}

// ResumeDraft 表示用户针对某个模板族的简历草稿。
// ResumeID 是复合键 `<模板族名>-<uid>`，保存永远覆盖同一文档，无版本。
type ResumeDraft struct {
	ResumeID        string         `gorm:"primaryKey;size:191"`
	UID             string         `gorm:"primaryKey;size:128;index"`
	TemplateID      string         `gorm:"size:64"` // 可选：草稿起源的目录模板
	FormData        datatypes.JSON `gorm:"type:jsonb"`
	Education       datatypes.JSON `gorm:"type:jsonb"`
	Experiences     datatypes.JSON `gorm:"type:jsonb"`
	Skills          datatypes.JSON `gorm:"type:jsonb"`
	UserProfilePic  string         `gorm:"type:text"` // data URL，可为空
	PreviewImageURL string         `gorm:"size:512"`
	UpdatedAt       time.Time      // 服务端最后保存时间
}
