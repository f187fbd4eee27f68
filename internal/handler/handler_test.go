package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/kvexam/papergen/internal/archive"
	"github.com/kvexam/papergen/internal/builder"
	"github.com/kvexam/papergen/internal/i18n"
	"github.com/kvexam/papergen/internal/llm"
	"github.com/kvexam/papergen/internal/model"
	"github.com/kvexam/papergen/internal/session"
)

func newTestServer(t *testing.T, gen builder.Generator, cfg Config) *httptest.Server {
	t.Helper()
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	arch, err := archive.New(":memory:")
	if err != nil {
		t.Fatalf("archive.New: %v", err)
	}
	t.Cleanup(func() { arch.Close() })

	h := New(session.NewRegistry(), gen, arch, cfg)
	r := chi.NewRouter()
	r.Use(i18n.Middleware("en"))
	h.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
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
	defer resp.Body.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, out.Bytes()
}

func createSession(t *testing.T, base string) sessionState {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, base+"/sessions", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session: status %d: %s", resp.StatusCode, body)
	}
	var state sessionState
	if err := json.Unmarshal(body, &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return state
}

func selectAllTopics(t *testing.T, base, id string) {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, base+"/sessions/"+id+"/topics/toggle-all", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("toggle-all: status %d: %s", resp.StatusCode, body)
	}
}

func TestWizardFlow(t *testing.T) {
	srv := newTestServer(t, llm.NewMock(), Config{})
	state := createSession(t, srv.URL)

	if state.Spec.ClassLevel != 10 || state.Spec.Subject != "Mathematics" {
		t.Fatalf("unexpected defaults: class %d subject %q", state.Spec.ClassLevel, state.Spec.Subject)
	}
	if state.HasPaper {
		t.Fatal("fresh session already has a paper")
	}

	// Change class; subject falls back to the first subject of the new class.
	resp, body := doJSON(t, http.MethodPut, srv.URL+"/sessions/"+state.ID+"/class", map[string]int{"class_level": 11})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set class: status %d: %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.Spec.ClassLevel != 11 {
		t.Errorf("class not updated: %d", state.Spec.ClassLevel)
	}
	if len(state.Spec.SelectedTopics) != 0 {
		t.Errorf("topics survived a class change: %v", state.Spec.SelectedTopics)
	}

	// Generate before selecting topics is blocked.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/sessions/"+state.ID+"/generate", nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("generate without topics: status %d, want 422", resp.StatusCode)
	}

	selectAllTopics(t, srv.URL, state.ID)

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/sessions/"+state.ID+"/generate", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate: status %d: %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if !state.HasPaper || state.Paper == nil {
		t.Fatal("generation did not produce a paper")
	}
	if got := len(state.Paper.Questions); got != state.Spec.Structure.TotalQuestions {
		t.Errorf("paper has %d questions, structure says %d", got, state.Spec.Structure.TotalQuestions)
	}
}

func TestUnknownSession(t *testing.T) {
	srv := newTestServer(t, llm.NewMock(), Config{})
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/sessions/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown session: status %d, want 404", resp.StatusCode)
	}
}

type failingGenerator struct {
	calls int
}

func (g *failingGenerator) Generate(ctx context.Context, spec model.Specification) (*model.Paper, error) {
	g.calls++
	return nil, errors.New("upstream unavailable")
}

func TestGenerateFailureKeepsSpecAndRetries(t *testing.T) {
	gen := &failingGenerator{}
	srv := newTestServer(t, gen, Config{})
	state := createSession(t, srv.URL)
	selectAllTopics(t, srv.URL, state.ID)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/sessions/"+state.ID+"/generate", nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("failed generate: status %d, want 502: %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/sessions/"+state.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get session: status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.HasPaper {
		t.Error("failed generation left a paper behind")
	}
	if len(state.Spec.SelectedTopics) == 0 {
		t.Error("failed generation discarded selected topics")
	}

	// Same specification, second attempt.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/sessions/"+state.ID+"/generate", nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("retry: status %d, want 502", resp.StatusCode)
	}
	if gen.calls != 2 {
		t.Errorf("generator called %d times, want 2", gen.calls)
	}
}

func TestEditEndpoints(t *testing.T) {
	srv := newTestServer(t, llm.NewMock(), Config{})
	state := createSession(t, srv.URL)
	selectAllTopics(t, srv.URL, state.ID)
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/sessions/"+state.ID+"/generate", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate: status %d: %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}

	q := state.Paper.Questions[0]
	q.QuestionText = "Edited question text."
	resp, body = doJSON(t, http.MethodPut, srv.URL+"/sessions/"+state.ID+"/questions/"+q.ID, q)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update question: status %d: %s", resp.StatusCode, body)
	}
	var editResp struct {
		Updated bool         `json:"updated"`
		Paper   *model.Paper `json:"paper"`
	}
	if err := json.Unmarshal(body, &editResp); err != nil {
		t.Fatalf("decode edit response: %v", err)
	}
	if !editResp.Updated {
		t.Error("expected updated=true for an existing question")
	}
	if editResp.Paper.Questions[0].QuestionText != "Edited question text." {
		t.Errorf("edit not applied: %q", editResp.Paper.Questions[0].QuestionText)
	}

	// Miss is a 200 no-op.
	q.ID = "Q999"
	resp, body = doJSON(t, http.MethodPut, srv.URL+"/sessions/"+state.ID+"/questions/Q999", q)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update missing question: status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &editResp); err != nil {
		t.Fatalf("decode edit response: %v", err)
	}
	if editResp.Updated {
		t.Error("expected updated=false for an unknown id")
	}

	// Delete removes question and key entry.
	target := state.Paper.Questions[1].ID
	resp, body = doJSON(t, http.MethodDelete, srv.URL+"/sessions/"+state.ID+"/questions/"+target, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete question: status %d", resp.StatusCode)
	}
	var delResp struct {
		Deleted bool         `json:"deleted"`
		Paper   *model.Paper `json:"paper"`
	}
	if err := json.Unmarshal(body, &delResp); err != nil {
		t.Fatalf("decode delete response: %v", err)
	}
	if !delResp.Deleted {
		t.Error("expected deleted=true")
	}
	for _, q := range delResp.Paper.Questions {
		if q.ID == target {
			t.Errorf("question %s still present after delete", target)
		}
	}
	for _, a := range delResp.Paper.AnswerKey {
		if a.ID == target {
			t.Errorf("answer key entry %s still present after delete", target)
		}
	}

	// Invalid question type is a 400.
	bad := state.Paper.Questions[0]
	bad.Type = "ESSAY"
	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/sessions/"+state.ID+"/questions/"+bad.ID, bad)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid type: status %d, want 400", resp.StatusCode)
	}
}

func TestPaperRoutes(t *testing.T) {
	srv := newTestServer(t, llm.NewMock(), Config{})
	state := createSession(t, srv.URL)

	// No paper yet.
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/sessions/"+state.ID+"/paper", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("paper before generation: status %d, want 404", resp.StatusCode)
	}

	selectAllTopics(t, srv.URL, state.ID)
	if resp, body := doJSON(t, http.MethodPost, srv.URL+"/sessions/"+state.ID+"/generate", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("generate: status %d: %s", resp.StatusCode, body)
	}

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/sessions/"+state.ID+"/paper?mode=question", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("question paper: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type %q, want text/html", ct)
	}
	doc := string(body)
	if !strings.Contains(doc, "Kendriya Vidyalaya") {
		t.Error("question document missing school name")
	}
	banner := i18n.T(i18n.WithLocalizer(context.Background(), i18n.NewLocalizer("en")), "AnswerKeyBanner")
	if strings.Contains(doc, banner) {
		t.Error("question document shows the answer key banner")
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/sessions/"+state.ID+"/paper?mode=answer", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("answer paper: status %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), banner) {
		t.Error("answer document missing the banner")
	}

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/sessions/"+state.ID+"/paper?mode=pdf", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad mode: status %d, want 400", resp.StatusCode)
	}
}

func TestArchiveRoute(t *testing.T) {
	srv := newTestServer(t, llm.NewMock(), Config{})
	state := createSession(t, srv.URL)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/sessions/"+state.ID+"/archive", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("archive before generation: status %d, want 404", resp.StatusCode)
	}

	selectAllTopics(t, srv.URL, state.ID)
	if resp, body := doJSON(t, http.MethodPost, srv.URL+"/sessions/"+state.ID+"/generate", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("generate: status %d: %s", resp.StatusCode, body)
	}

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/sessions/"+state.ID+"/archive", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("archive: status %d: %s", resp.StatusCode, body)
	}
	var archResp struct {
		ArchiveID int64 `json:"archive_id"`
	}
	if err := json.Unmarshal(body, &archResp); err != nil {
		t.Fatalf("decode archive response: %v", err)
	}
	if archResp.ArchiveID == 0 {
		t.Error("archive returned a zero id")
	}
}

func TestAccessPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("staffroom"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	srv := newTestServer(t, llm.NewMock(), Config{AccessPasswordHash: string(hash)})

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/sessions", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated create: status %d, want 401", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/login", map[string]string{"password": "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong password: status %d, want 401", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/login", map[string]string{"password": "staffroom"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status %d", resp.StatusCode)
	}
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == authCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("login did not set the auth cookie")
	}

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/sessions", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.AddCookie(cookie)
	authed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authenticated create: %v", err)
	}
	defer authed.Body.Close()
	if authed.StatusCode != http.StatusCreated {
		t.Errorf("authenticated create: status %d, want 201", authed.StatusCode)
	}
}

func TestTopicsQueryFilter(t *testing.T) {
	srv := newTestServer(t, llm.NewMock(), Config{})
	state := createSession(t, srv.URL)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/sessions/"+state.ID+"/topics?q=trigono", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("topics filter: status %d", resp.StatusCode)
	}
	var topicsResp struct {
		Topics   []string `json:"topics"`
		Selected []string `json:"selected"`
	}
	if err := json.Unmarshal(body, &topicsResp); err != nil {
		t.Fatalf("decode topics: %v", err)
	}
	if len(topicsResp.Topics) == 0 {
		t.Fatal("filter matched nothing for class 10 Mathematics")
	}
	for _, topic := range topicsResp.Topics {
		if !strings.Contains(strings.ToLower(topic), "trigono") {
			t.Errorf("topic %q does not match the filter", topic)
		}
	}
	if len(topicsResp.Selected) != 0 {
		t.Errorf("filter altered the selection: %v", topicsResp.Selected)
	}
}
