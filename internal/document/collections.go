package document

import "resumeBuilder/internal/database"

var experienceColumns = []string{"sequence", "company", "position", "description", "start_date", "end_date", "updated_at"}

var resumeExperience = Collection[ExperienceFields, database.ResumeExperience]{
	Name:        "experience",
	OwnerColumn: "resume_id",
	Columns:     experienceColumns,
	Build: func(owner string, id uint, seq int, f ExperienceFields) *database.ResumeExperience {
		return &database.ResumeExperience{
			ID:          id,
			ResumeID:    owner,
			Sequence:    seq,
			Company:     f.Company,
			Position:    f.Position,
			Description: f.Description,
			StartDate:   f.StartDate,
			EndDate:     f.EndDate,
		}
	},
}

var resumeEducation = Collection[EducationFields, database.ResumeEducation]{
	Name:        "education",
	OwnerColumn: "resume_id",
	Columns:     []string{"sequence", "school", "degree", "field_of_study", "start_date", "graduation_date", "updated_at"},
	Build: func(owner string, id uint, seq int, f EducationFields) *database.ResumeEducation {
		return &database.ResumeEducation{
			ID:             id,
			ResumeID:       owner,
			Sequence:       seq,
			School:         f.School,
			Degree:         f.Degree,
			FieldOfStudy:   f.FieldOfStudy,
			StartDate:      f.StartDate,
			GraduationDate: f.GraduationDate,
		}
	},
}

var resumeSkills = Collection[SkillFields, database.ResumeSkill]{
	Name:        "skills",
	OwnerColumn: "resume_id",
	Columns:     []string{"sequence", "name", "level", "updated_at"},
	Build: func(owner string, id uint, seq int, f SkillFields) *database.ResumeSkill {
		return &database.ResumeSkill{
			ID:       id,
			ResumeID: owner,
			Sequence: seq,
			Name:     f.Name,
			Level:    f.Level,
		}
	},
}

var resumeProjects = Collection[ResumeProjectFields, database.ResumeProject]{
	Name:        "projects",
	OwnerColumn: "resume_id",
	Columns:     []string{"sequence", "title", "link", "description", "technologies", "updated_at"},
	Build: func(owner string, id uint, seq int, f ResumeProjectFields) *database.ResumeProject {
		return &database.ResumeProject{
			ID:           id,
			ResumeID:     owner,
			Sequence:     seq,
			Title:        f.Title,
			Link:         f.Link,
			Description:  f.Description,
			Technologies: f.Technologies,
		}
	},
}

var portfolioProjects = Collection[PortfolioProjectFields, database.PortfolioProject]{
	Name:        "projects",
	OwnerColumn: "portfolio_id",
	Columns:     []string{"sequence", "name", "description", "image_url", "live_url", "github_url", "tags", "updated_at"},
	Build: func(owner string, id uint, seq int, f PortfolioProjectFields) *database.PortfolioProject {
		return &database.PortfolioProject{
			ID:          id,
			PortfolioID: owner,
			Sequence:    seq,
			Name:        f.Name,
			Description: f.Description,
			ImageURL:    f.ImageURL,
			LiveURL:     f.LiveURL,
			GithubURL:   f.GithubURL,
			Tags:        f.Tags,
		}
	},
}

var portfolioExperience = Collection[ExperienceFields, database.PortfolioExperience]{
	Name:        "experience",
	OwnerColumn: "portfolio_id",
	Columns:     experienceColumns,
	Build: func(owner string, id uint, seq int, f ExperienceFields) *database.PortfolioExperience {
		return &database.PortfolioExperience{
			ID:          id,
			PortfolioID: owner,
			Sequence:    seq,
			Company:     f.Company,
			Position:    f.Position,
			Description: f.Description,
			StartDate:   f.StartDate,
			EndDate:     f.EndDate,
		}
	},
}
