package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ecoquest-quiz-service/internal/app"
	"ecoquest-quiz-service/internal/domain"
	"ecoquest-quiz-service/internal/infra/memory"
	"ecoquest-quiz-service/internal/scoring"
)

func newTestServer(t *testing.T) (*httptest.Server, *app.QuizStore) {
	t.Helper()
	store := app.NewQuizStore(memory.NewCollectionStore(), app.StoreOptions{Demo: true})
	server := httptest.NewServer(NewRouter(store, RouterOptions{AuthorID: "teacher-9"}))
	t.Cleanup(server.Close)
	return server, store
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestListAndFilterQuizzes(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/quizzes", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if all := decodeBody[[]domain.Quiz](t, resp); len(all) != 2 {
		t.Fatalf("expected 2 quizzes, got %d", len(all))
	}

	resp = doJSON(t, http.MethodGet, server.URL+"/api/quizzes?status=published&search=climate", nil)
	got := decodeBody[[]domain.Quiz](t, resp)
	if len(got) != 1 || got[0].ID != "quiz_climate_basics" {
		t.Fatalf("unexpected filtered list %+v", got)
	}

	resp = doJSON(t, http.MethodGet, server.URL+"/api/courses", nil)
	if courses := decodeBody[[]domain.Course](t, resp); len(courses) != 4 {
		t.Fatalf("expected 4 courses, got %d", len(courses))
	}
}

func TestCreateQuizValidation(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/quizzes", domain.Quiz{Title: "  "})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	body := decodeBody[errorPayload](t, resp)
	for _, key := range []string{"title", "courseId", "questions"} {
		if body.Fields[key] == "" {
			t.Fatalf("expected %s error, got %v", key, body.Fields)
		}
	}

	valid := domain.Quiz{
		Title:    "Coral Reefs",
		CourseID: "course_eco_201",
		Questions: []domain.Question{{
			ID: "q1", Type: domain.TypeTrueFalse, Prompt: "Reefs bleach in warm water", Points: 5,
			Options: []domain.Option{{ID: "t", Text: "True", Correct: true}, {ID: "f", Text: "False"}},
		}},
	}
	resp = doJSON(t, http.MethodPost, server.URL+"/api/quizzes", valid)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	created := decodeBody[domain.Quiz](t, resp)
	if created.ID == "" || created.TeacherID != "teacher-9" || created.Status != domain.StatusDraft {
		t.Fatalf("unexpected created quiz %+v", created)
	}

	valid.Title = "Coral Reefs II"
	resp = doJSON(t, http.MethodPut, server.URL+"/api/quizzes/"+created.ID, valid)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if saved := decodeBody[domain.Quiz](t, resp); saved.ID != created.ID || saved.Title != "Coral Reefs II" {
		t.Fatalf("unexpected saved quiz %+v", saved)
	}
}

func TestQuizLifecycleEndpoints(t *testing.T) {
	server, store := newTestServer(t)
	base := server.URL + "/api/quizzes/"

	resp := doJSON(t, http.MethodPatch, base+"quiz_renewable_energy", map[string]string{"title": "Clean Power"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPatch, base+"quiz_renewable_energy", map[string]string{"status": "archived"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("patch with unknown status: expected 422, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, base+"quiz_renewable_energy/publish", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("publish without confirm: expected 409, got %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodPost, base+"quiz_renewable_energy/publish?confirm=true", nil)
	if q := decodeBody[domain.Quiz](t, resp); q.Status != domain.StatusPublished {
		t.Fatalf("expected published, got %s", q.Status)
	}

	resp = doJSON(t, http.MethodPost, base+"quiz_renewable_energy/duplicate", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("duplicate: expected 201, got %d", resp.StatusCode)
	}
	dup := decodeBody[domain.Quiz](t, resp)
	if dup.Title != "Clean Power (Copy)" || dup.Status != domain.StatusDraft {
		t.Fatalf("unexpected duplicate %+v", dup)
	}

	resp = doJSON(t, http.MethodDelete, base+dup.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}
	if _, ok := store.Quiz(context.Background(), dup.ID); ok {
		t.Fatalf("expected duplicate removed")
	}

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "missing"},
		{http.MethodPatch, "missing"},
		{http.MethodPost, "missing/duplicate"},
		{http.MethodGet, "missing/export"},
		{http.MethodPost, "missing/score"},
	} {
		resp := doJSON(t, tc.method, base+tc.path, map[string]any{})
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s %s: expected 404, got %d", tc.method, tc.path, resp.StatusCode)
		}
	}
}

func TestExportImportEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/quizzes/quiz_climate_basics/export", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export: expected 200, got %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "climate_change_basics.json") {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	var exported bytes.Buffer
	if _, err := exported.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read export: %v", err)
	}

	importResp, err := http.Post(server.URL+"/api/quizzes/import", "application/json", &exported)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	defer importResp.Body.Close()
	if importResp.StatusCode != http.StatusCreated {
		t.Fatalf("import: expected 201, got %d", importResp.StatusCode)
	}
	imported := decodeBody[domain.Quiz](t, importResp)
	if imported.ID == "quiz_climate_basics" || imported.Status != domain.StatusDraft {
		t.Fatalf("unexpected imported quiz %+v", imported)
	}

	badResp, err := http.Post(server.URL+"/api/quizzes/import", "application/json", strings.NewReader(`{"title":"x"}`))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	defer badResp.Body.Close()
	if badResp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid import, got %d", badResp.StatusCode)
	}
}

func TestScoreEndpointAwardsXP(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/quizzes/quiz_climate_basics/score", map[string]any{
		"answers": []domain.Answer{
			{QuestionID: "q_climate_1", SelectedOptions: []string{"o2"}},
			{QuestionID: "q_climate_2", SelectedOptions: []string{"f1"}},
		},
		"learner": domain.Learner{ID: "l1", Level: 1, XPToNextLevel: 100},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody[struct {
		Result  scoring.Result `json:"result"`
		Learner domain.Learner `json:"learner"`
	}](t, resp)
	if body.Result.TotalPoints != 15 || body.Result.EarnedPoints != 10 || body.Result.Percentage != 67 {
		t.Fatalf("unexpected result %+v", body.Result)
	}
	if body.Learner.XP != 10 {
		t.Fatalf("expected 10 XP awarded, got %+v", body.Learner)
	}
}

func TestHealthzAndCORS(t *testing.T) {
	server, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, server.URL+"/api/quizzes", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("expected CORS headers on preflight")
	}

	health := doJSON(t, http.MethodGet, server.URL+"/healthz", nil)
	if health.StatusCode != http.StatusOK {
		t.Fatalf("expected healthy, got %d", health.StatusCode)
	}
}

type unreadableRepository struct {
	*memory.CollectionStore
	down bool
}

func (r *unreadableRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if r.down {
		return nil, false, errors.New("connection refused")
	}
	return r.CollectionStore.Get(ctx, key)
}

func TestUnreadableStorageAnswersUnavailable(t *testing.T) {
	repo := &unreadableRepository{CollectionStore: memory.NewCollectionStore(), down: true}
	store := app.NewQuizStore(repo, app.StoreOptions{Demo: true})
	server := httptest.NewServer(NewRouter(store, RouterOptions{}))
	t.Cleanup(server.Close)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/quizzes", map[string]any{"title": "Soil"})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	if _, ok, _ := repo.CollectionStore.Get(context.Background(), app.QuizzesKey); ok {
		t.Fatalf("nothing may be seeded while storage is unreadable")
	}

	repo.down = false
	list := doJSON(t, http.MethodGet, server.URL+"/api/quizzes", nil)
	if list.StatusCode != http.StatusOK {
		t.Fatalf("expected recovery, got %d", list.StatusCode)
	}
	if quizzes := decodeBody[[]domain.Quiz](t, list); len(quizzes) != 2 {
		t.Fatalf("expected demo quizzes after recovery, got %d", len(quizzes))
	}
}
