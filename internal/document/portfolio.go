package document

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resumeBuilder/internal/database"
)

const kindPortfolio = "portfolio"

// 作品集表上唯一约束只有 slug。
var portfolioUnique = []string{"slug"}

func skillGroups(groups []database.SkillGroup) datatypes.JSONSlice[database.SkillGroup] {
	if groups == nil {
		groups = []database.SkillGroup{}
	}
	return datatypes.JSONSlice[database.SkillGroup](groups)
}

func portfolioValues(h PortfolioHeader) map[string]any {
	return map[string]any{
		"title":         h.Title,
		"full_name":     h.FullName,
		"slug":          h.Slug,
		"bio":           h.Bio,
		"summary":       h.Summary,
		"theme_color":   h.ThemeColor,
		"contact_email": h.ContactEmail,
		"github_url":    h.GithubURL,
		"linkedin_url":  h.LinkedinURL,
		"skills":        skillGroups(h.Skills),
	}
}

// CreatePortfolio inserts a portfolio. A taken slug is a ConflictError on "slug".
func (s *Service) CreatePortfolio(ctx context.Context, userID uint, draft PortfolioDraft) (id string, err error) {
	var results []ReconcileResult
	defer func() { s.observe(kindPortfolio, "create", id, err, results) }()

	if err = validatePortfolio(userID, &draft); err != nil {
		return "", err
	}

	newID := uuid.NewString()
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		h := draft.PortfolioHeader
		header := &database.Portfolio{
			ID:           newID,
			UserID:       userID,
			Slug:         h.Slug,
			Title:        h.Title,
			FullName:     h.FullName,
			Bio:          h.Bio,
			Summary:      h.Summary,
			ThemeColor:   h.ThemeColor,
			ContactEmail: h.ContactEmail,
			GithubURL:    h.GithubURL,
			LinkedinURL:  h.LinkedinURL,
			Skills:       skillGroups(h.Skills),
			Version:      1,
		}
		if err := tx.Create(header).Error; err != nil {
			return err
		}

		var err error
		results, err = runSteps(
			func() (ReconcileResult, error) { return insertAll(ctx, tx, portfolioProjects, newID, draft.Projects) },
			func() (ReconcileResult, error) { return insertAll(ctx, tx, portfolioExperience, newID, draft.Experience) },
		)
		return err
	})
	if err != nil {
		return "", classify("create portfolio", err, portfolioUnique...)
	}
	return newID, nil
}

// UpdatePortfolio overwrites the header and reconciles projects and experience.
func (s *Service) UpdatePortfolio(ctx context.Context, userID uint, id string, draft PortfolioDraft) (err error) {
	var results []ReconcileResult
	defer func() { s.observe(kindPortfolio, "update", id, err, results) }()

	if err = validatePortfolio(userID, &draft); err != nil {
		return err
	}
	if err = validatePortfolioClaims(&draft); err != nil {
		return err
	}

	err = s.inTx(ctx, func(tx *gorm.DB) error {
		if err := updateHeader(tx, &database.Portfolio{}, id, userID, draft.Version, portfolioValues(draft.PortfolioHeader)); err != nil {
			return err
		}

		var err error
		results, err = runSteps(
			func() (ReconcileResult, error) { return Reconcile(ctx, tx, portfolioProjects, id, draft.Projects) },
			func() (ReconcileResult, error) { return Reconcile(ctx, tx, portfolioExperience, id, draft.Experience) },
		)
		return err
	})
	if err != nil {
		results = nil
		return classify("update portfolio", err, portfolioUnique...)
	}
	return nil
}

// DeletePortfolio removes an owned portfolio, its children, and unlinks
// resumes that pointed at it.
func (s *Service) DeletePortfolio(ctx context.Context, userID uint, id string) (err error) {
	defer func() { s.observe(kindPortfolio, "delete", id, err, nil) }()

	err = s.inTx(ctx, func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&database.Portfolio{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFoundOrUnauthorized
		}
		if err := tx.Model(&database.Resume{}).
			Where("user_id = ? AND portfolio_id = ?", userID, id).
			UpdateColumn("portfolio_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("portfolio_id = ?", id).Delete(&database.PortfolioProject{}).Error; err != nil {
			return err
		}
		return tx.Where("portfolio_id = ?", id).Delete(&database.PortfolioExperience{}).Error
	})
	return classify("delete portfolio", err)
}

// GetPortfolio returns an owned portfolio with children in display order.
func (s *Service) GetPortfolio(ctx context.Context, userID uint, id string) (*Portfolio, error) {
	var row database.Portfolio
	err := s.readTx(ctx, func(tx *gorm.DB) error {
		return tx.Where("id = ? AND user_id = ?", id, userID).
			Preload("Projects", bySequence).
			Preload("Experience", bySequence).
			First(&row).Error
	})
	if err != nil {
		return nil, notFound("get portfolio", err)
	}
	return toPortfolio(&row), nil
}

func (s *Service) ListPortfolios(ctx context.Context, userID uint) ([]PortfolioSummary, error) {
	var rows []database.Portfolio
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id").
		Find(&rows).Error; err != nil {
		return nil, classify("list portfolios", err)
	}

	out := make([]PortfolioSummary, 0, len(rows))
	for _, p := range rows {
		out = append(out, PortfolioSummary{
			ID:         p.ID,
			Title:      p.Title,
			FullName:   p.FullName,
			Slug:       p.Slug,
			Bio:        p.Bio,
			ThemeColor: p.ThemeColor,
			Version:    p.Version,
			CreatedAt:  p.CreatedAt,
		})
	}
	return out, nil
}

// GetPublicPortfolio looks a portfolio up by slug, falling back to its id.
// No ownership check applies; the result carries only public fields.
func (s *Service) GetPublicPortfolio(ctx context.Context, slugOrID string) (*PublicPortfolio, error) {
	var row database.Portfolio
	err := s.readTx(ctx, func(tx *gorm.DB) error {
		load := func(cond string) error {
			return tx.Where(cond, slugOrID).
				Preload("Projects", bySequence).
				Preload("Experience", bySequence).
				First(&row).Error
		}
		err := load("slug = ?")
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if _, parseErr := uuid.Parse(slugOrID); parseErr == nil {
				return load("id = ?")
			}
		}
		return err
	})
	if err != nil {
		return nil, notFound("get public portfolio", err)
	}

	out := &PublicPortfolio{
		Title:        row.Title,
		FullName:     row.FullName,
		Slug:         row.Slug,
		Bio:          row.Bio,
		Summary:      row.Summary,
		ThemeColor:   row.ThemeColor,
		ContactEmail: row.ContactEmail,
		GithubURL:    row.GithubURL,
		LinkedinURL:  row.LinkedinURL,
		Skills:       []database.SkillGroup(row.Skills),
		Projects:     make([]PortfolioProjectFields, 0, len(row.Projects)),
		Experience:   make([]ExperienceFields, 0, len(row.Experience)),
		ownerID:      row.UserID,
	}
	for _, p := range row.Projects {
		out.Projects = append(out.Projects, portfolioProjectFields(p))
	}
	for _, e := range row.Experience {
		out.Experience = append(out.Experience, portfolioExperienceFields(e))
	}
	return out, nil
}

func portfolioProjectFields(p database.PortfolioProject) PortfolioProjectFields {
	return PortfolioProjectFields{
		Name:        p.Name,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		LiveURL:     p.LiveURL,
		GithubURL:   p.GithubURL,
		Tags:        p.Tags,
	}
}

func portfolioExperienceFields(e database.PortfolioExperience) ExperienceFields {
	return ExperienceFields{
		Company:     e.Company,
		Position:    e.Position,
		Description: e.Description,
		StartDate:   e.StartDate,
		EndDate:     e.EndDate,
	}
}

func toPortfolio(p *database.Portfolio) *Portfolio {
	out := &Portfolio{
		ID: p.ID,
		PortfolioHeader: PortfolioHeader{
			Title:        p.Title,
			FullName:     p.FullName,
			Slug:         p.Slug,
			Bio:          p.Bio,
			Summary:      p.Summary,
			ThemeColor:   p.ThemeColor,
			ContactEmail: p.ContactEmail,
			GithubURL:    p.GithubURL,
			LinkedinURL:  p.LinkedinURL,
			Skills:       []database.SkillGroup(p.Skills),
		},
		Version:    p.Version,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
		Projects:   make([]PortfolioProject, 0, len(p.Projects)),
		Experience: make([]Experience, 0, len(p.Experience)),
		ownerID:    p.UserID,
	}
	for _, pr := range p.Projects {
		out.Projects = append(out.Projects, PortfolioProject{ID: pr.ID, PortfolioProjectFields: portfolioProjectFields(pr)})
	}
	for _, e := range p.Experience {
		out.Experience = append(out.Experience, Experience{ID: e.ID, ExperienceFields: portfolioExperienceFields(e)})
	}
	return out
}
