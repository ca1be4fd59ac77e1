package document

import (
	"time"

	"resumeBuilder/internal/database"
)

// ExperienceFields are shared by resume and portfolio experience entries.
type ExperienceFields struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

type EducationFields struct {
	School         string `json:"school"`
	Degree         string `json:"degree"`
	FieldOfStudy   string `json:"field_of_study"`
	StartDate      string `json:"start_date"`
	GraduationDate string `json:"graduation_date"`
}

type SkillFields struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

type ResumeProjectFields struct {
	Title        string `json:"title"`
	Link         string `json:"link"`
	Description  string `json:"description"`
	Technologies string `json:"technologies"`
}

// PortfolioProjectFields.ImageURL is an http(s) URL or a user-assets object key.
type PortfolioProjectFields struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	LiveURL     string `json:"live_url"`
	GithubURL   string `json:"github_url"`
	Tags        string `json:"tags"`
}

// ResumeHeader holds the scalar fields of a resume.
type ResumeHeader struct {
	Title        string  `json:"title"`
	FullName     string  `json:"full_name"`
	ContactEmail string  `json:"contact_email"`
	Phone        string  `json:"phone"`
	Location     string  `json:"location"`
	LinkedinURL  string  `json:"linkedin_url"`
	WebsiteURL   string  `json:"website_url"`
	Summary      string  `json:"summary"`
	Theme        string  `json:"theme"`
	PortfolioID  *string `json:"portfolio_id"`
}

// ResumeDraft is the full document a client submits on save. Version is
// the optimistic concurrency token last read by the client; nil skips the check.
type ResumeDraft struct {
	ResumeHeader
	Version    *int                         `json:"version,omitempty"`
	Experience []Entry[ExperienceFields]    `json:"experience"`
	Education  []Entry[EducationFields]     `json:"education"`
	Skills     []Entry[SkillFields]         `json:"skills"`
	Projects   []Entry[ResumeProjectFields] `json:"projects"`
}

// PortfolioHeader holds the scalar fields of a portfolio.
type PortfolioHeader struct {
	Title        string                `json:"title"`
	FullName     string                `json:"full_name"`
	Slug         string                `json:"slug"`
	Bio          string                `json:"bio"`
	Summary      string                `json:"summary"`
	ThemeColor   string                `json:"theme_color"`
	ContactEmail string                `json:"contact_email"`
	GithubURL    string                `json:"github_url"`
	LinkedinURL  string                `json:"linkedin_url"`
	Skills       []database.SkillGroup `json:"skills"`
}

type PortfolioDraft struct {
	PortfolioHeader
	Version    *int                            `json:"version,omitempty"`
	Projects   []Entry[PortfolioProjectFields] `json:"projects"`
	Experience []Entry[ExperienceFields]       `json:"experience"`
}

type Experience struct {
	ID uint `json:"id"`
	ExperienceFields
}

type Education struct {
	ID uint `json:"id"`
	EducationFields
}

type Skill struct {
	ID uint `json:"id"`
	SkillFields
}

type ResumeProject struct {
	ID uint `json:"id"`
	ResumeProjectFields
}

type PortfolioProject struct {
	ID uint `json:"id"`
	PortfolioProjectFields
}

// Resume is the owner view: header plus every child collection in sequence order.
type Resume struct {
	ID string `json:"id"`
	ResumeHeader
	Version    int             `json:"version"`
	PdfStatus  string          `json:"pdf_status,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Experience []Experience    `json:"experience"`
	Education  []Education     `json:"education"`
	Skills     []Skill         `json:"skills"`
	Projects   []ResumeProject `json:"projects"`

	ownerID      uint
	pdfObjectKey string
}

// OwnerID is the user the resume belongs to.
func (r *Resume) OwnerID() uint { return r.ownerID }

// PdfObjectKey is the storage key of the last completed export.
func (r *Resume) PdfObjectKey() string { return r.pdfObjectKey }

type ResumeSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	FullName  string    `json:"full_name"`
	Summary   string    `json:"summary"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Portfolio struct {
	ID string `json:"id"`
	PortfolioHeader
	Version    int                `json:"version"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
	Projects   []PortfolioProject `json:"projects"`
	Experience []Experience       `json:"experience"`

	ownerID uint
}

// OwnerID is the user the portfolio belongs to.
func (p *Portfolio) OwnerID() uint { return p.ownerID }

type PortfolioSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	FullName   string    `json:"full_name"`
	Slug       string    `json:"slug"`
	Bio        string    `json:"bio"`
	ThemeColor string    `json:"theme_color"`
	Version    int       `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
}

// PublicPortfolio is the unauthenticated view: no ids, owner or version.
type PublicPortfolio struct {
	Title        string                   `json:"title"`
	FullName     string                   `json:"full_name"`
	Slug         string                   `json:"slug"`
	Bio          string                   `json:"bio"`
	Summary      string                   `json:"summary"`
	ThemeColor   string                   `json:"theme_color"`
	ContactEmail string                   `json:"contact_email"`
	GithubURL    string                   `json:"github_url"`
	LinkedinURL  string                   `json:"linkedin_url"`
	Skills       []database.SkillGroup    `json:"skills"`
	Projects     []PortfolioProjectFields `json:"projects"`
	Experience   []ExperienceFields       `json:"experience"`

	ownerID uint
}

// OwnerID is used to resolve project image keys; it is never serialized.
func (p *PublicPortfolio) OwnerID() uint { return p.ownerID }
