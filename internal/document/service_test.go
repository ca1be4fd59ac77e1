package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resumeBuilder/internal/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewService(db, slog.New(slog.NewTextHandler(io.Discard, nil))), db
}

func seedUser(t *testing.T, db *gorm.DB, email string) uint {
	t.Helper()
	u := database.User{Email: email, FullName: email}
	require.NoError(t, db.Create(&u).Error)
	return u.ID
}

// countWrites counts create, update and delete statements issued on db.
func countWrites(t *testing.T, db *gorm.DB) *int {
	t.Helper()
	var n int
	count := func(*gorm.DB) { n++ }
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:count_create", count))
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:count_update", count))
	require.NoError(t, db.Callback().Delete().Before("gorm:delete").Register("test:count_delete", count))
	t.Cleanup(func() {
		_ = db.Callback().Create().Remove("test:count_create")
		_ = db.Callback().Update().Remove("test:count_update")
		_ = db.Callback().Delete().Remove("test:count_delete")
	})
	return &n
}

func experienceIDs(r *Resume) []uint {
	ids := make([]uint, 0, len(r.Experience))
	for _, e := range r.Experience {
		ids = append(ids, e.ID)
	}
	return ids
}

func asExisting[F any, V any](views []V, id func(V) uint, fields func(V) F) []Entry[F] {
	out := make([]Entry[F], 0, len(views))
	for _, v := range views {
		out = append(out, Existing(id(v), fields(v)))
	}
	return out
}

func resubmit(r *Resume) ResumeDraft {
	return ResumeDraft{
		ResumeHeader: r.ResumeHeader,
		Experience: asExisting(r.Experience,
			func(e Experience) uint { return e.ID },
			func(e Experience) ExperienceFields { return e.ExperienceFields }),
		Education: asExisting(r.Education,
			func(e Education) uint { return e.ID },
			func(e Education) EducationFields { return e.EducationFields }),
		Skills: asExisting(r.Skills,
			func(s Skill) uint { return s.ID },
			func(s Skill) SkillFields { return s.SkillFields }),
		Projects: asExisting(r.Projects,
			func(p ResumeProject) uint { return p.ID },
			func(p ResumeProject) ResumeProjectFields { return p.ResumeProjectFields }),
	}
}

func fullResumeDraft() ResumeDraft {
	return ResumeDraft{
		ResumeHeader: ResumeHeader{Title: "Backend", FullName: "Ada", Summary: "Builds things"},
		Experience: []Entry[ExperienceFields]{
			New(ExperienceFields{Company: "Acme", Position: "Engineer"}),
			New(ExperienceFields{Company: "Globex", Position: "Lead"}),
		},
		Education: []Entry[EducationFields]{New(EducationFields{School: "MIT"})},
		Skills: []Entry[SkillFields]{
			New(SkillFields{Name: "Go", Level: "expert"}),
			New(SkillFields{Name: "SQL"}),
		},
		Projects: []Entry[ResumeProjectFields]{New(ResumeProjectFields{Title: "Compiler"})},
	}
}

func TestResumeScenario(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	uid := seedUser(t, db, "a@example.com")

	id, err := svc.CreateResume(ctx, uid, ResumeDraft{
		ResumeHeader: ResumeHeader{FullName: "A", Summary: "B"},
		Experience:   []Entry[ExperienceFields]{New(ExperienceFields{Company: "X"})},
	})
	require.NoError(t, err)

	got, err := svc.GetResume(ctx, uid, id)
	require.NoError(t, err)
	require.Len(t, got.Experience, 1)
	first := got.Experience[0]
	require.NotZero(t, first.ID)
	require.Equal(t, "X", first.Company)
	require.Equal(t, 1, got.Version)

	err = svc.UpdateResume(ctx, uid, id, ResumeDraft{
		ResumeHeader: got.ResumeHeader,
		Experience: []Entry[ExperienceFields]{
			Existing(first.ID, first.ExperienceFields),
			New(ExperienceFields{Company: "Y"}),
		},
	})
	require.NoError(t, err)

	got, err = svc.GetResume(ctx, uid, id)
	require.NoError(t, err)
	require.Len(t, got.Experience, 2)
	require.Equal(t, first, got.Experience[0])
	second := got.Experience[1]
	require.Equal(t, "Y", second.Company)
	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, 2, got.Version)

	err = svc.UpdateResume(ctx, uid, id, ResumeDraft{
		ResumeHeader: got.ResumeHeader,
		Experience:   []Entry[ExperienceFields]{Existing(second.ID, second.ExperienceFields)},
	})
	require.NoError(t, err)

	got, err = svc.GetResume(ctx, uid, id)
	require.NoError(t, err)
	require.Equal(t, []uint{second.ID}, experienceIDs(got))

	var count int64
	require.NoError(t, db.Model(&database.ResumeExperience{}).Where("id = ?", first.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestUpdateResumeIsIdempotent(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	uid := seedUser(t, db, "a@example.com")

	id, err := svc.CreateResume(ctx, uid, fullResumeDraft())
	require.NoError(t, err)
	before, err := svc.GetResume(ctx, uid, id)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, svc.UpdateResume(ctx, uid, id, resubmit(before)))
	}

	after, err := svc.GetResume(ctx, uid, id)
	require.NoError(t, err)
	require.Equal(t, before.Experience, after.Experience)
	require.Equal(t, before.Education, after.Education)
	require.Equal(t, before.Skills, after.Skills)
	require.Equal(t, before.Projects, after.Projects)
	require.Equal(t, before.Version+2, after.Version)

	var rows int64
	require.NoError(t, db.Model(&database.ResumeSkill{}).Where("resume_id = ?", id).Count(&rows).Error)
	require.EqualValues(t, 2, rows)
}

func TestUpdateResumeDeletesOmittedRows(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	uid := seedUser(t, db, "a@example.com")

	id, err := svc.CreateResume(ctx, uid, ResumeDraft{
		ResumeHeader: ResumeHeader{FullName: "Ada"},
		Experience: []Entry[ExperienceFields]{
			New(ExperienceFields{Company: "A"}),
			New(ExperienceFields{Company: "B"}),
			New(ExperienceFields{Company: "C"}),
		},
	})
	require.NoError(t, err)
	got, err := svc.GetResume(ctx, uid, id)
	require.NoError(t, err)
	a := got.Experience[0]

	err = svc.UpdateResume(ctx, uid, id, ResumeDraft{
		ResumeHeader: got.ResumeHeader,
		Experience: []Entry[ExperienceFields]{
			Existing(a.ID, ExperienceFields{Company: "A2", Position: "Staff"}),
			New(ExperienceFields{Company: "D"}),
		},
	})
	require.NoError(t, err)

	got, err = svc.GetResume(ctx, uid, id)
	require.NoError(t, err)
	require.Len(t, got.Experience, 2)
	require.Equal(t, a.ID, got.Experience[0].ID)
	require.Equal(t, "A2", got.Experience[0].Company)
	require.Equal(t, "Staff", got.Experience[0].Position)
	require.Equal(t, "D", got.Experience[1].Company)

	var total int64
	require.NoError(t, db.Model(&database.ResumeExperience{}).Where("resume_id = ?", id).Count(&total).Error)
	require.EqualValues(t, 2, total)
}

func TestUpdateResumeExactSetAndOrder(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	uid := seedUser(t, db, "a@example.com")

	id, err := svc.CreateResume(ctx, uid, fullResumeDraft())
	require.NoError(t, err)
	got, err := svc.GetResume(ctx, uid, id)
	require.NoError(t, err)

	// 颠倒顺序并追加一项，读取时应按提交顺序返回。
	draft := resubmit(got)
	draft.Skills = []Entry[SkillFields]{
		Existing(got.Skills[1].ID, got.Skills[1].SkillFields),
		New(SkillFields{Name: "Rust"}),
		Existing(got.Skills[0].ID, got.Skills[0].SkillFields),
	}
	draft.Education = nil
	require.NoError(t, svc.UpdateResume(ctx, uid, id, draft))

	after, err := svc.GetResume(ctx, uid, id)
	require.NoError(t, err)
	require.Empty(t, after.Education)
	require.Len(t, after.Skills, 3)
	require.Equal(t, got.Skills[1].ID, after.Skills[0].ID)
	require.Equal(t, "Rust", after.Skills[1].Name)
	require.NotZero(t, after.Skills[1].ID)
	require.Equal(t, got.Skills[0].ID, after.Skills[2].ID)
}

func TestUpdateResumeOwnershipIsolation(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	owner := seedUser(t, db, "owner@example.com")
	intruder := seedUser(t, db, "intruder@example.com")

	id, err := svc.CreateResume(ctx, owner, fullResumeDraft())
	require.NoError(t, err)
	before, err := svc.GetResume(ctx, owner, id)
	require.NoError(t, err)

	err = svc.UpdateResume(ctx, intruder, id, ResumeDraft{ResumeHeader: ResumeHeader{FullName: "Mallory"}})
	require.ErrorIs(t, err, ErrNotFoundOrUnauthorized)

	_, err = svc.GetResume(ctx, intruder, id)
	require.ErrorIs(t, err, ErrNotFoundOrUnauthorized)
	require.ErrorIs(t, svc.DeleteResume(ctx, intruder, id), ErrNotFoundOrUnauthorized)

	after, err := svc.GetResume(ctx, owner, id)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestUpdateResumeIgnoresForeignRowIDs(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	uid := seedUser(t, db, "a@example.com")

	victimID, err := svc.CreateResume(ctx, uid, fullResumeDraft())
	require.NoError(t, err)
	victim, err := svc.GetResume(ctx, uid, victimID)
	require.NoError(t, err)

	id, err := svc.CreateResume(ctx, uid, ResumeDraft{ResumeHeader: ResumeHeader{FullName: "Other"}})
	require.NoError(t, err)

	// 引用另一份简历的行 id 会被当作新行插入，原行不受影响。
	foreign := victim.Experience[0]
	err = svc.UpdateResume(ctx, uid, id, ResumeDraft{
		ResumeHeader: ResumeHeader{FullName: "Other"},
		Experience:   []Entry[ExperienceFields]{Existing(foreign.ID, ExperienceFields{Company: "Hijacked"})},
	})
	require.NoError(t, err)

	got, err := svc.GetResume(ctx, uid, id)
	require.NoError(t, err)
	require.Len(t, got.Experience, 1)
	require.NotEqual(t, foreign.ID, got.Experience[0].ID)

	stillThere, err := svc.GetResume(ctx, uid, victimID)
	require.NoError(t, err)
	require.Equal(t, victim.Experience, stillThere.Experience)
}

func TestUpdateResumeRejectsDuplicateIDs(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	uid := seedUser(t, db, "a@example.com")

	id, err := svc.CreateResume(ctx, uid, fullResumeDraft())
	require.NoError(t, err)
	before, err := svc.GetResume(ctx, uid, id)
	require.NoError(t, err)

	draft := resubmit(before)
	draft.Title = "Changed"
	dup := before.Experience[0]
	draft.Experience = append(draft.Experience, Existing(dup.ID, dup.ExperienceFields))

	writes := countWrites(t, db)
	err = svc.UpdateResume(ctx, uid, id, draft)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, "experience[2].id", vErr.Field)
	require.Zero(t, *writes, "rejected before any statement reached the store")

	// 未持久化的占位 id 重复同样拒绝
	draft = resubmit(before)
	draft.Skills = append(draft.Skills,
		Existing(9999, SkillFields{Name: "A"}),
		Existing(9999, SkillFields{Name: "B"}))
	err = svc.UpdateResume(ctx, uid, id, draft)
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, fmt.Sprintf("skills[%d].id", len(draft.Skills)-1), vErr.Field)
	require.Zero(t, *writes)

	after, err := svc.GetResume(ctx, uid, id)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestUpdateResumeVersionConflict(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	uid := seedUser(t, db, "a@example.com")

	id, err := svc.CreateResume(ctx, uid, fullResumeDraft())
	require.NoError(t, err)
	base, err := svc.GetResume(ctx, uid, id)
	require.NoError(t, err)

	winner := resubmit(base)
	winner.Version = &base.Version
	winner.Summary = "first writer"
	require.NoError(t, svc.UpdateResume(ctx, uid, id, winner))
	afterWinner, err := svc.GetResume(ctx, uid, id)
	require.NoError(t, err)

	loser := resubmit(base)
	loser.Version = &base.Version
	loser.Summary = "second writer"
	loser.Experience = nil
	err = svc.UpdateResume(ctx, uid, id, loser)
	var cErr *ConflictError
	require.ErrorAs(t, err, &cErr)
	require.Equal(t, "version", cErr.Field)

	got, err := svc.GetResume(ctx, uid, id)
	require.NoError(t, err)
	require.Equal(t, afterWinner, got)
	require.Equal(t, "first writer", got.Summary)
}

func TestUpdateResumeRollsBackOnFailure(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	uid := seedUser(t, db, "a@example.com")

	id, err := svc.CreateResume(ctx, uid, fullResumeDraft())
	require.NoError(t, err)
	before, err := svc.GetResume(ctx, uid, id)
	require.NoError(t, err)

	// skills 是第三个子集合，在它插入时注入失败。
	boom := errors.New("injected insert failure")
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_skills", func(tx *gorm.DB) {
		if tx.Statement.Table == "resume_skills" {
			_ = tx.AddError(boom)
		}
	}))

	draft := resubmit(before)
	draft.Title = "Rewritten"
	draft.Experience = []Entry[ExperienceFields]{New(ExperienceFields{Company: "Initech"})}
	draft.Education = append(draft.Education, New(EducationFields{School: "Stanford"}))
	draft.Skills = append(draft.Skills, New(SkillFields{Name: "Haskell"}))

	err = svc.UpdateResume(ctx, uid, id, draft)
	require.ErrorIs(t, err, boom)

	require.NoError(t, db.Callback().Create().Remove("test:fail_skills"))
	after, err := svc.GetResume(ctx, uid, id)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestCreateResumeValidation(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	uid := seedUser(t, db, "a@example.com")

	cases := []struct {
		name  string
		draft ResumeDraft
		field string
	}{
		{"missing name", ResumeDraft{}, "full_name"},
		{"bad email", ResumeDraft{ResumeHeader: ResumeHeader{FullName: "A", ContactEmail: "nope"}}, "contact_email"},
		{"bad url", ResumeDraft{ResumeHeader: ResumeHeader{FullName: "A", WebsiteURL: "ftp://x"}}, "website_url"},
		{"child field", ResumeDraft{
			ResumeHeader: ResumeHeader{FullName: "A"},
			Experience: []Entry[ExperienceFields]{
				New(ExperienceFields{Company: "ok"}),
				New(ExperienceFields{Position: "no company"}),
			},
		}, "experience[1].company"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateResume(ctx, uid, tc.draft)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			require.Equal(t, tc.field, vErr.Field)
		})
	}

	var count int64
	require.NoError(t, db.Model(&database.Resume{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestResumePortfolioLink(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	uid := seedUser(t, db, "a@example.com")
	other := seedUser(t, db, "b@example.com")

	foreign, err := svc.CreatePortfolio(ctx, other, PortfolioDraft{PortfolioHeader: PortfolioHeader{FullName: "B", Slug: "bee"}})
	require.NoError(t, err)
	_, err = svc.CreateResume(ctx, uid, ResumeDraft{ResumeHeader: ResumeHeader{FullName: "A", PortfolioID: &foreign}})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, "portfolio_id", vErr.Field)

	own, err := svc.CreatePortfolio(ctx, uid, PortfolioDraft{PortfolioHeader: PortfolioHeader{FullName: "A", Slug: "ay"}})
	require.NoError(t, err)
	id, err := svc.CreateResume(ctx, uid, ResumeDraft{ResumeHeader: ResumeHeader{FullName: "A", PortfolioID: &own}})
	require.NoError(t, err)

	require.NoError(t, svc.DeletePortfolio(ctx, uid, own))
	got, err := svc.GetResume(ctx, uid, id)
	require.NoError(t, err)
	require.Nil(t, got.PortfolioID)
}

func TestDeleteResumeRemovesChildren(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	uid := seedUser(t, db, "a@example.com")

	id, err := svc.CreateResume(ctx, uid, fullResumeDraft())
	require.NoError(t, err)
	require.NoError(t, svc.DeleteResume(ctx, uid, id))

	_, err = svc.GetResume(ctx, uid, id)
	require.ErrorIs(t, err, ErrNotFoundOrUnauthorized)
	for _, model := range []any{&database.ResumeExperience{}, &database.ResumeEducation{}, &database.ResumeSkill{}, &database.ResumeProject{}} {
		var n int64
		require.NoError(t, db.Model(model).Where("resume_id = ?", id).Count(&n).Error)
		require.Zero(t, n)
	}
	require.ErrorIs(t, svc.DeleteResume(ctx, uid, id), ErrNotFoundOrUnauthorized)
}

func TestUpdateExportKeepsVersion(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	uid := seedUser(t, db, "a@example.com")

	id, err := svc.CreateResume(ctx, uid, fullResumeDraft())
	require.NoError(t, err)

	require.NoError(t, svc.UpdateExport(ctx, uid, id, database.PdfStatusPending, ""))
	require.NoError(t, svc.UpdateExport(ctx, uid, id, database.PdfStatusCompleted, "exports/1/x.pdf"))

	got, err := svc.GetResume(ctx, uid, id)
	require.NoError(t, err)
	require.Equal(t, 1, got.Version)
	require.Equal(t, database.PdfStatusCompleted, got.PdfStatus)
	require.Equal(t, "exports/1/x.pdf", got.PdfObjectKey())

	require.ErrorIs(t, svc.UpdateExport(ctx, uid+1, id, database.PdfStatusFailed, ""), ErrNotFoundOrUnauthorized)
}

func TestListResumes(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	uid := seedUser(t, db, "a@example.com")
	other := seedUser(t, db, "b@example.com")

	_, err := svc.CreateResume(ctx, uid, fullResumeDraft())
	require.NoError(t, err)
	_, err = svc.CreateResume(ctx, other, fullResumeDraft())
	require.NoError(t, err)

	list, err := svc.ListResumes(ctx, uid)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Ada", list[0].FullName)
}

func TestListResumesNewestFirst(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	uid := seedUser(t, db, "a@example.com")

	older, err := svc.CreateResume(ctx, uid, fullResumeDraft())
	require.NoError(t, err)
	newer, err := svc.CreateResume(ctx, uid, fullResumeDraft())
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Model(&database.Resume{}).Where("id = ?", older).UpdateColumn("created_at", base).Error)
	require.NoError(t, db.Model(&database.Resume{}).Where("id = ?", newer).UpdateColumn("created_at", base.Add(time.Hour)).Error)

	// 编辑旧简历不改变列表顺序
	got, err := svc.GetResume(ctx, uid, older)
	require.NoError(t, err)
	draft := resubmit(got)
	draft.Summary = "edited later"
	require.NoError(t, svc.UpdateResume(ctx, uid, older, draft))

	list, err := svc.ListResumes(ctx, uid)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, newer, list[0].ID)
	require.Equal(t, older, list[1].ID)
}

func TestKind(t *testing.T) {
	require.Equal(t, "ok", Kind(nil))
	require.Equal(t, "not_found", Kind(fmt.Errorf("wrap: %w", ErrNotFoundOrUnauthorized)))
	require.Equal(t, "validation", Kind(invalid("x", "bad")))
	require.Equal(t, "conflict", Kind(&ConflictError{Field: "slug"}))
	require.Equal(t, "transient", Kind(&TransientError{Op: "x", Err: context.DeadlineExceeded}))
	require.Equal(t, "internal", Kind(errors.New("boom")))
}
