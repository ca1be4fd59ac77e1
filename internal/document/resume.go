package document

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"resumeBuilder/internal/database"
)

const kindResume = "resume"

func resumeValues(h ResumeHeader) map[string]any {
	return map[string]any{
		"title":         h.Title,
		"full_name":     h.FullName,
		"contact_email": h.ContactEmail,
		"phone":         h.Phone,
		"location":      h.Location,
		"linkedin_url":  h.LinkedinURL,
		"website_url":   h.WebsiteURL,
		"summary":       h.Summary,
		"theme":         h.Theme,
		"portfolio_id":  h.PortfolioID,
	}
}

// checkPortfolioLink rejects links to portfolios the caller does not own.
func checkPortfolioLink(tx *gorm.DB, userID uint, portfolioID *string) error {
	if portfolioID == nil {
		return nil
	}
	var count int64
	if err := tx.Model(&database.Portfolio{}).
		Where("id = ? AND user_id = ?", *portfolioID, userID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return invalid("portfolio_id", "unknown portfolio")
	}
	return nil
}

// CreateResume inserts the header and every submitted child as a new row.
// Claimed ids in the draft are ignored.
func (s *Service) CreateResume(ctx context.Context, userID uint, draft ResumeDraft) (id string, err error) {
	var results []ReconcileResult
	defer func() { s.observe(kindResume, "create", id, err, results) }()

	if err = validateResume(&draft); err != nil {
		return "", err
	}

	newID := uuid.NewString()
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		if err := checkPortfolioLink(tx, userID, draft.PortfolioID); err != nil {
			return err
		}
		h := draft.ResumeHeader
		header := &database.Resume{
			ID:           newID,
			UserID:       userID,
			PortfolioID:  h.PortfolioID,
			Title:        h.Title,
			FullName:     h.FullName,
			ContactEmail: h.ContactEmail,
			Phone:        h.Phone,
			Location:     h.Location,
			LinkedinURL:  h.LinkedinURL,
			WebsiteURL:   h.WebsiteURL,
			Summary:      h.Summary,
			Theme:        h.Theme,
			Version:      1,
		}
		if err := tx.Create(header).Error; err != nil {
			return err
		}

		var err error
		results, err = runSteps(
			func() (ReconcileResult, error) { return insertAll(ctx, tx, resumeExperience, newID, draft.Experience) },
			func() (ReconcileResult, error) { return insertAll(ctx, tx, resumeEducation, newID, draft.Education) },
			func() (ReconcileResult, error) { return insertAll(ctx, tx, resumeSkills, newID, draft.Skills) },
			func() (ReconcileResult, error) { return insertAll(ctx, tx, resumeProjects, newID, draft.Projects) },
		)
		return err
	})
	if err != nil {
		return "", classify("create resume", err)
	}
	return newID, nil
}

// UpdateResume overwrites the header and reconciles the four collections
// in one transaction. Omitted collections are emptied.
func (s *Service) UpdateResume(ctx context.Context, userID uint, id string, draft ResumeDraft) (err error) {
	var results []ReconcileResult
	defer func() { s.observe(kindResume, "update", id, err, results) }()

	if err = validateResume(&draft); err != nil {
		return err
	}
	if err = validateResumeClaims(&draft); err != nil {
		return err
	}

	err = s.inTx(ctx, func(tx *gorm.DB) error {
		if err := checkPortfolioLink(tx, userID, draft.PortfolioID); err != nil {
			return err
		}
		if err := updateHeader(tx, &database.Resume{}, id, userID, draft.Version, resumeValues(draft.ResumeHeader)); err != nil {
			return err
		}

		var err error
		results, err = runSteps(
			func() (ReconcileResult, error) { return Reconcile(ctx, tx, resumeExperience, id, draft.Experience) },
			func() (ReconcileResult, error) { return Reconcile(ctx, tx, resumeEducation, id, draft.Education) },
			func() (ReconcileResult, error) { return Reconcile(ctx, tx, resumeSkills, id, draft.Skills) },
			func() (ReconcileResult, error) { return Reconcile(ctx, tx, resumeProjects, id, draft.Projects) },
		)
		return err
	})
	if err != nil {
		results = nil
		return classify("update resume", err)
	}
	return nil
}

// DeleteResume removes an owned resume and its children.
func (s *Service) DeleteResume(ctx context.Context, userID uint, id string) (err error) {
	defer func() { s.observe(kindResume, "delete", id, err, nil) }()

	err = s.inTx(ctx, func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&database.Resume{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFoundOrUnauthorized
		}
		for _, child := range []any{
			&database.ResumeExperience{},
			&database.ResumeEducation{},
			&database.ResumeSkill{},
			&database.ResumeProject{},
		} {
			if err := tx.Where("resume_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return classify("delete resume", err)
}

// GetResume returns an owned resume with children in display order.
func (s *Service) GetResume(ctx context.Context, userID uint, id string) (*Resume, error) {
	var row database.Resume
	err := s.readTx(ctx, func(tx *gorm.DB) error {
		return tx.Where("id = ? AND user_id = ?", id, userID).
			Preload("Experience", bySequence).
			Preload("Education", bySequence).
			Preload("Skills", bySequence).
			Preload("Projects", bySequence).
			First(&row).Error
	})
	if err != nil {
		return nil, notFound("get resume", err)
	}
	return toResume(&row), nil
}

// ListResumes returns the caller's resumes, newest first.
func (s *Service) ListResumes(ctx context.Context, userID uint) ([]ResumeSummary, error) {
	var rows []database.Resume
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id").
		Find(&rows).Error; err != nil {
		return nil, classify("list resumes", err)
	}

	out := make([]ResumeSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, ResumeSummary{
			ID:        r.ID,
			Title:     r.Title,
			FullName:  r.FullName,
			Summary:   r.Summary,
			Version:   r.Version,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return out, nil
}

// UpdateExport records the export state of an owned resume. An empty
// objectKey keeps the previous key. The version is not touched.
func (s *Service) UpdateExport(ctx context.Context, userID uint, id, status, objectKey string) error {
	values := map[string]any{"pdf_status": status}
	if objectKey != "" {
		values["pdf_object_key"] = objectKey
	}
	res := s.db.WithContext(ctx).
		Model(&database.Resume{}).
		Where("id = ? AND user_id = ?", id, userID).
		UpdateColumns(values)
	if res.Error != nil {
		return classify("update export", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFoundOrUnauthorized
	}
	return nil
}

func toResume(r *database.Resume) *Resume {
	out := &Resume{
		ID: r.ID,
		ResumeHeader: ResumeHeader{
			Title:        r.Title,
			FullName:     r.FullName,
			ContactEmail: r.ContactEmail,
			Phone:        r.Phone,
			Location:     r.Location,
			LinkedinURL:  r.LinkedinURL,
			WebsiteURL:   r.WebsiteURL,
			Summary:      r.Summary,
			Theme:        r.Theme,
			PortfolioID:  r.PortfolioID,
		},
		Version:      r.Version,
		PdfStatus:    r.PdfStatus,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		Experience:   make([]Experience, 0, len(r.Experience)),
		Education:    make([]Education, 0, len(r.Education)),
		Skills:       make([]Skill, 0, len(r.Skills)),
		Projects:     make([]ResumeProject, 0, len(r.Projects)),
		ownerID:      r.UserID,
		pdfObjectKey: r.PdfObjectKey,
	}
	for _, e := range r.Experience {
		out.Experience = append(out.Experience, Experience{ID: e.ID, ExperienceFields: ExperienceFields{
			Company:     e.Company,
			Position:    e.Position,
			Description: e.Description,
			StartDate:   e.StartDate,
			EndDate:     e.EndDate,
		}})
	}
	for _, e := range r.Education {
		out.Education = append(out.Education, Education{ID: e.ID, EducationFields: EducationFields{
			School:         e.School,
			Degree:         e.Degree,
			FieldOfStudy:   e.FieldOfStudy,
			StartDate:      e.StartDate,
			GraduationDate: e.GraduationDate,
		}})
	}
	for _, sk := range r.Skills {
		out.Skills = append(out.Skills, Skill{ID: sk.ID, SkillFields: SkillFields{Name: sk.Name, Level: sk.Level}})
	}
	for _, p := range r.Projects {
		out.Projects = append(out.Projects, ResumeProject{ID: p.ID, ResumeProjectFields: ResumeProjectFields{
			Title:        p.Title,
			Link:         p.Link,
			Description:  p.Description,
			Technologies: p.Technologies,
		}})
	}
	return out
}
