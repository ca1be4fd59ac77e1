package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"resumeBuilder/internal/database"
	"resumeBuilder/internal/document"
	"resumeBuilder/internal/storage"
	"resumeBuilder/internal/tasks"
)

func createResume(t *testing.T, env *testEnv, token string) document.Resume {
	t.Helper()
	w := env.do(t, http.MethodPost, "/v1/resumes", token, `{
		"title": "CV",
		"full_name": "Ada Lovelace",
		"experience": [
			{"company": "Analytical Engines", "position": "Programmer", "is_new": true},
			{"id": "tmp-2", "company": "Royal Society"}
		],
		"skills": [{"name": "Mathematics", "level": "expert"}]
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[document.Resume](t, w)
}

func TestResumeLifecycle(t *testing.T) {
	env := newTestEnv(t)
	uid, token := env.login(t, "ada@example.com")

	created := createResume(t, env, token)
	require.Equal(t, 1, created.Version)
	require.Len(t, created.Experience, 2)
	require.Equal(t, "Analytical Engines", created.Experience[0].Company)
	require.Empty(t, created.Education)

	keep := created.Experience[1].ID
	w := env.do(t, http.MethodPut, "/v1/resumes/"+created.ID, token, fmt.Sprintf(`{
		"title": "CV",
		"full_name": "Ada Lovelace",
		"version": 1,
		"experience": [
			{"id": "local-1", "company": "Babbage & Co"},
			{"id": %d, "company": "Royal Society", "position": "Fellow"}
		]
	}`, keep))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[document.Resume](t, w)
	require.Equal(t, 2, updated.Version)
	require.Len(t, updated.Experience, 2)
	require.Equal(t, "Babbage & Co", updated.Experience[0].Company)
	require.Equal(t, keep, updated.Experience[1].ID)
	require.Equal(t, "Fellow", updated.Experience[1].Position)
	require.Empty(t, updated.Skills)

	// stale version
	w = env.do(t, http.MethodPut, "/v1/resumes/"+created.ID, token, `{"full_name": "Ada", "version": 1}`)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "version", decode[map[string]any](t, w)["field"])

	w = env.do(t, http.MethodGet, "/v1/resumes", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]document.ResumeSummary](t, w)
	require.Len(t, list, 1)
	require.Equal(t, created.ID, list[0].ID)

	w = env.do(t, http.MethodDelete, "/v1/resumes/"+created.ID, token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, []string{storage.ExportPrefix(uid, created.ID)}, env.storage.deletedPrefixes)

	w = env.do(t, http.MethodGet, "/v1/resumes/"+created.ID, token, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestResumeValidationAndOwnership(t *testing.T) {
	env := newTestEnv(t)
	_, alice := env.login(t, "alice@example.com")
	_, bob := env.login(t, "bob@example.com")

	w := env.do(t, http.MethodPost, "/v1/resumes", alice, `{"title": "CV", "full_name": "  "}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "full_name", decode[map[string]any](t, w)["field"])

	w = env.do(t, http.MethodPost, "/v1/resumes", alice, `{"full_name": "Alice", "experience": [{"company": ""}]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "experience[0].company", decode[map[string]any](t, w)["field"])

	w = env.do(t, http.MethodPost, "/v1/resumes", alice, `{"full_name": `)
	require.Equal(t, http.StatusBadRequest, w.Code)

	created := createResume(t, env, alice)
	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		w = env.do(t, method, "/v1/resumes/"+created.ID, bob, nil)
		require.Equal(t, http.StatusNotFound, w.Code, method)
	}
	w = env.do(t, http.MethodPut, "/v1/resumes/"+created.ID, bob, `{"full_name": "Bob"}`)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/v1/resumes", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, decode[[]document.ResumeSummary](t, w))
}

func TestResumeExport(t *testing.T) {
	env := newTestEnv(t)
	uid, token := env.login(t, "ada@example.com")
	created := createResume(t, env, token)
	path := "/v1/resumes/" + created.ID + "/export"

	w := env.do(t, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, path, token, nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	body := decode[map[string]any](t, w)
	require.Equal(t, "task-1", body["task_id"])

	require.Len(t, env.tasks.tasks, 1)
	payload, err := tasks.ParseExportPDFPayload(env.tasks.tasks[0])
	require.NoError(t, err)
	require.Equal(t, created.ID, payload.ResumeID)
	require.Equal(t, uid, payload.UserID)
	require.NotEmpty(t, payload.CorrelationID)

	got, err := env.docs.GetResume(context.Background(), uid, created.ID)
	require.NoError(t, err)
	require.Equal(t, database.PdfStatusPending, got.PdfStatus)
	require.Equal(t, created.Version, got.Version)

	w = env.do(t, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusConflict, w.Code)

	key := storage.NewExportKey(uid, created.ID)
	require.NoError(t, env.docs.UpdateExport(context.Background(), uid, created.ID, database.PdfStatusCompleted, key))
	env.storage.uploaded[key] = []byte("%PDF-1.7")

	w = env.do(t, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "https://files.test/"+key+"?filename=CV.pdf", decode[map[string]any](t, w)["url"])

	_, other := env.login(t, "other@example.com")
	w = env.do(t, http.MethodPost, path, other, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Len(t, env.tasks.tasks, 1)
}

func TestResumeExportMissingObject(t *testing.T) {
	env := newTestEnv(t)
	uid, token := env.login(t, "ada@example.com")
	created := createResume(t, env, token)

	key := storage.NewExportKey(uid, created.ID)
	require.NoError(t, env.docs.UpdateExport(context.Background(), uid, created.ID, database.PdfStatusCompleted, key))

	w := env.do(t, http.MethodGet, "/v1/resumes/"+created.ID+"/export", token, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, database.PdfStatusFailed, decode[map[string]any](t, w)["status"])

	got, err := env.docs.GetResume(context.Background(), uid, created.ID)
	require.NoError(t, err)
	require.Equal(t, database.PdfStatusFailed, got.PdfStatus)
}

func TestResumeExportEnqueueFailure(t *testing.T) {
	env := newTestEnv(t)
	uid, token := env.login(t, "ada@example.com")
	created := createResume(t, env, token)
	env.tasks.err = errors.New("redis down")

	w := env.do(t, http.MethodPost, "/v1/resumes/"+created.ID+"/export", token, nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	got, err := env.docs.GetResume(context.Background(), uid, created.ID)
	require.NoError(t, err)
	require.Equal(t, database.PdfStatusFailed, got.PdfStatus)
}

func TestExportFilename(t *testing.T) {
	require.Equal(t, "My CV.pdf", exportFilename(" My CV "))
	require.Equal(t, "resume.pdf", exportFilename("/../"))
	require.Equal(t, "Lebenslauf Müller.pdf", exportFilename(`Lebenslauf "Müller"`))
}
