package document

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"

	"resumeBuilder/internal/storage"
)

const maxSlugLength = 64

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// validateResume 在任何写库之前执行，失败时不产生任何状态变化。
func validateResume(d *ResumeDraft) error {
	h := &d.ResumeHeader
	if err := required("full_name", h.FullName); err != nil {
		return err
	}
	if err := optionalEmail("contact_email", h.ContactEmail); err != nil {
		return err
	}
	if err := optionalURL("linkedin_url", h.LinkedinURL); err != nil {
		return err
	}
	if err := optionalURL("website_url", h.WebsiteURL); err != nil {
		return err
	}
	if h.PortfolioID != nil && strings.TrimSpace(*h.PortfolioID) == "" {
		h.PortfolioID = nil
	}

	for i, e := range d.Experience {
		if err := validateExperience(fmt.Sprintf("experience[%d]", i), e.Fields); err != nil {
			return err
		}
	}
	for i, e := range d.Education {
		if err := required(fmt.Sprintf("education[%d].school", i), e.Fields.School); err != nil {
			return err
		}
	}
	for i, e := range d.Skills {
		if err := required(fmt.Sprintf("skills[%d].name", i), e.Fields.Name); err != nil {
			return err
		}
	}
	for i, e := range d.Projects {
		prefix := fmt.Sprintf("projects[%d]", i)
		if err := required(prefix+".title", e.Fields.Title); err != nil {
			return err
		}
		if err := optionalURL(prefix+".link", e.Fields.Link); err != nil {
			return err
		}
	}
	return nil
}

func validatePortfolio(ownerID uint, d *PortfolioDraft) error {
	h := &d.PortfolioHeader
	if err := required("full_name", h.FullName); err != nil {
		return err
	}
	h.Slug = strings.TrimSpace(h.Slug)
	if err := required("slug", h.Slug); err != nil {
		return err
	}
	if len(h.Slug) > maxSlugLength {
		return invalid("slug", "must be at most %d characters", maxSlugLength)
	}
	if !slugPattern.MatchString(h.Slug) {
		return invalid("slug", "may only contain lowercase letters, digits and single dashes")
	}
	if err := optionalEmail("contact_email", h.ContactEmail); err != nil {
		return err
	}
	if err := optionalURL("github_url", h.GithubURL); err != nil {
		return err
	}
	if err := optionalURL("linkedin_url", h.LinkedinURL); err != nil {
		return err
	}
	for i, g := range h.Skills {
		if err := required(fmt.Sprintf("skills[%d].category", i), g.Category); err != nil {
			return err
		}
	}

	for i, e := range d.Projects {
		prefix := fmt.Sprintf("projects[%d]", i)
		if err := required(prefix+".name", e.Fields.Name); err != nil {
			return err
		}
		if img := strings.TrimSpace(e.Fields.ImageURL); img != "" && !isHTTPURL(img) && !storage.IsUserAssetKey(ownerID, img) {
			return invalid(prefix+".image_url", "must be an http(s) URL or an uploaded asset key")
		}
		if err := optionalURL(prefix+".live_url", e.Fields.LiveURL); err != nil {
			return err
		}
		if err := optionalURL(prefix+".github_url", e.Fields.GithubURL); err != nil {
			return err
		}
	}
	for i, e := range d.Experience {
		if err := validateExperience(fmt.Sprintf("experience[%d]", i), e.Fields); err != nil {
			return err
		}
	}
	return nil
}

func validateExperience(prefix string, f ExperienceFields) error {
	return required(prefix+".company", f.Company)
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(field, "is required")
	}
	return nil
}

func optionalEmail(field, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return invalid(field, "must be a valid email address")
	}
	return nil
}

func optionalURL(field, value string) error {
	value = strings.TrimSpace(value)
	if value == "" || isHTTPURL(value) {
		return nil
	}
	return invalid(field, "must be an http(s) URL")
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// uniqueClaims rejects two entries claiming the same row id. It runs before
// the save transaction starts.
func uniqueClaims[F any](name string, entries []Entry[F]) error {
	seen := make(map[uint]int, len(entries))
	for i, e := range entries {
		id, ok := e.ID()
		if !ok {
			continue
		}
		if prev, dup := seen[id]; dup {
			return invalid(fmt.Sprintf("%s[%d].id", name, i), "duplicates %s[%d]", name, prev)
		}
		seen[id] = i
	}
	return nil
}

func validateResumeClaims(d *ResumeDraft) error {
	if err := uniqueClaims(resumeExperience.Name, d.Experience); err != nil {
		return err
	}
	if err := uniqueClaims(resumeEducation.Name, d.Education); err != nil {
		return err
	}
	if err := uniqueClaims(resumeSkills.Name, d.Skills); err != nil {
		return err
	}
	return uniqueClaims(resumeProjects.Name, d.Projects)
}

func validatePortfolioClaims(d *PortfolioDraft) error {
	if err := uniqueClaims(portfolioProjects.Name, d.Projects); err != nil {
		return err
	}
	return uniqueClaims(portfolioExperience.Name, d.Experience)
}
