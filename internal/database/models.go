package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User 表示系统中的账号信息。
type User struct {
	gorm.Model
	Email        string      `gorm:"uniqueIndex;size:255"`
	FullName     string      `gorm:"size:255"`
	PasswordHash string      `gorm:"size:255"`
	Resumes      []Resume    `gorm:"constraint:OnDelete:CASCADE"`
	Portfolios   []Portfolio `gorm:"constraint:OnDelete:CASCADE"`
}

// PDF export states stored on Resume.PdfStatus.
const (
	PdfStatusNone      = ""
	PdfStatusPending   = "pending"
	PdfStatusCompleted = "completed"
	PdfStatusFailed    = "failed"
)

// Resume 是简历头记录，四个子集合挂在它下面。
// PdfObjectKey/PdfStatus 由导出 worker 维护，不参与版本号。
type Resume struct {
	ID           string  `gorm:"primaryKey;size:36"`
	UserID       uint    `gorm:"index;not null"`
	PortfolioID  *string `gorm:"size:36;index"`
	Title        string  `gorm:"size:255"`
	FullName     string  `gorm:"size:255;not null"`
	ContactEmail string  `gorm:"size:255"`
	Phone        string  `gorm:"size:64"`
	Location     string  `gorm:"size:255"`
	LinkedinURL  string  `gorm:"size:512"`
	WebsiteURL   string  `gorm:"size:512"`
	Summary      string  `gorm:"type:text"`
	Theme        string  `gorm:"size:64"`
	Version      int     `gorm:"not null;default:1"`
	PdfObjectKey string  `gorm:"size:512"`
	PdfStatus    string  `gorm:"size:32"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Experience []ResumeExperience `gorm:"foreignKey:ResumeID;constraint:OnDelete:CASCADE"`
	Education  []ResumeEducation  `gorm:"foreignKey:ResumeID;constraint:OnDelete:CASCADE"`
	Skills     []ResumeSkill      `gorm:"foreignKey:ResumeID;constraint:OnDelete:CASCADE"`
	Projects   []ResumeProject    `gorm:"foreignKey:ResumeID;constraint:OnDelete:CASCADE"`
}

// ResumeExperience 是简历的工作经历行。
type ResumeExperience struct {
	ID          uint   `gorm:"primaryKey"`
	ResumeID    string `gorm:"size:36;index;not null"`
	Sequence    int    `gorm:"not null;default:0"`
	Company     string `gorm:"size:255"`
	Position    string `gorm:"size:255"`
	Description string `gorm:"type:text"`
	StartDate   string `gorm:"size:32"`
	EndDate     string `gorm:"size:32"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ResumeEducation 是简历的教育经历行。
type ResumeEducation struct {
	ID             uint   `gorm:"primaryKey"`
	ResumeID       string `gorm:"size:36;index;not null"`
	Sequence       int    `gorm:"not null;default:0"`
	School         string `gorm:"size:255"`
	Degree         string `gorm:"size:255"`
	FieldOfStudy   string `gorm:"size:255"`
	StartDate      string `gorm:"size:32"`
	GraduationDate string `gorm:"size:32"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ResumeSkill 是简历技能行。
type ResumeSkill struct {
	ID        uint   `gorm:"primaryKey"`
	ResumeID  string `gorm:"size:36;index;not null"`
	Sequence  int    `gorm:"not null;default:0"`
	Name      string `gorm:"size:128"`
	Level     string `gorm:"size:64"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ResumeProject 是简历项目行。
type ResumeProject struct {
	ID           uint   `gorm:"primaryKey"`
	ResumeID     string `gorm:"size:36;index;not null"`
	Sequence     int    `gorm:"not null;default:0"`
	Title        string `gorm:"size:255"`
	Link         string `gorm:"size:512"`
	Description  string `gorm:"type:text"`
	Technologies string `gorm:"size:512"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SkillGroup 是作品集页面上按分类展示的技能组，整体存为一个 JSON 列。
type SkillGroup struct {
	Category string   `json:"category"`
	Skills   []string `json:"skills"`
}

// Portfolio 是作品集头记录，Slug 全局唯一并作为公开访问地址。
type Portfolio struct {
	ID           string                           `gorm:"primaryKey;size:36"`
	UserID       uint                             `gorm:"index;not null"`
	Slug         string                           `gorm:"uniqueIndex;size:64;not null"`
	Title        string                           `gorm:"size:255"`
	FullName     string                           `gorm:"size:255;not null"`
	Bio          string                           `gorm:"type:text"`
	Summary      string                           `gorm:"type:text"`
	ThemeColor   string                           `gorm:"size:32"`
	ContactEmail string                           `gorm:"size:255"`
	GithubURL    string                           `gorm:"size:512"`
	LinkedinURL  string                           `gorm:"size:512"`
	Skills       datatypes.JSONSlice[SkillGroup] `gorm:"type:jsonb"`
	Version      int                              `gorm:"not null;default:1"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Projects   []PortfolioProject    `gorm:"foreignKey:PortfolioID;constraint:OnDelete:CASCADE"`
	Experience []PortfolioExperience `gorm:"foreignKey:PortfolioID;constraint:OnDelete:CASCADE"`
}

// PortfolioProject 是作品集项目行，ImageURL 可以是外链或 user-assets 对象键。
type PortfolioProject struct {
	ID          uint   `gorm:"primaryKey"`
	PortfolioID string `gorm:"size:36;index;not null"`
	Sequence    int    `gorm:"not null;default:0"`
	Name        string `gorm:"size:255"`
	Description string `gorm:"type:text"`
	ImageURL    string `gorm:"size:512"`
	LiveURL     string `gorm:"size:512"`
	GithubURL   string `gorm:"size:512"`
	Tags        string `gorm:"size:512"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PortfolioExperience 是作品集的工作经历行。
type PortfolioExperience struct {
	ID          uint   `gorm:"primaryKey"`
	PortfolioID string `gorm:"size:36;index;not null"`
	Sequence    int    `gorm:"not null;default:0"`
	Company     string `gorm:"size:255"`
	Position    string `gorm:"size:255"`
	Description string `gorm:"type:text"`
	StartDate   string `gorm:"size:32"`
	EndDate     string `gorm:"size:32"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
