package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lukeborglin-coder/jaice-dashboard-sub005/internal/respno"
	"github.com/lukeborglin-coder/jaice-dashboard-sub005/internal/search"
	"github.com/lukeborglin-coder/jaice-dashboard-sub005/internal/snapshot"
	"github.com/lukeborglin-coder/jaice-dashboard-sub005/internal/store"
)

type fakeDocs struct {
	transcripts map[string][]store.Transcript
	analyses    []store.Analysis
	pingErr     error
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{transcripts: map[string][]store.Transcript{}}
}

func (f *fakeDocs) LoadTranscripts(context.Context) (map[string][]store.Transcript, error) {
	return f.transcripts, nil
}

func (f *fakeDocs) SaveTranscripts(_ context.Context, byProject map[string][]store.Transcript) error {
	f.transcripts = byProject
	return nil
}

func (f *fakeDocs) LoadAnalyses(context.Context) ([]store.Analysis, error) {
	return f.analyses, nil
}

func (f *fakeDocs) SaveAnalyses(_ context.Context, analyses []store.Analysis) error {
	f.analyses = analyses
	return nil
}

func (f *fakeDocs) Ping(context.Context) error {
	return f.pingErr
}

type fakeReconciler struct {
	recomputeFn func(projectID, analysisID string) (respno.Result, error)
	removeFn    func(projectID, analysisID, transcriptID string) (respno.Result, error)
}

func (f *fakeReconciler) Recompute(_ context.Context, projectID, analysisID string) (respno.Result, error) {
	if f.recomputeFn == nil {
		return respno.Result{Updated: true}, nil
	}
	return f.recomputeFn(projectID, analysisID)
}

func (f *fakeReconciler) RemoveTranscript(_ context.Context, projectID, analysisID, transcriptID string) (respno.Result, error) {
	if f.removeFn == nil {
		return respno.Result{Updated: true}, nil
	}
	return f.removeFn(projectID, analysisID, transcriptID)
}

type fakeSearcher struct {
	searchFn           func(q search.Query) search.Response
	indexedTranscripts []search.TranscriptRecord
	indexedAnalyses    []search.AnalysisRecord
	deleted            []string
}

func (f *fakeSearcher) Search(q search.Query) search.Response {
	if f.searchFn == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return f.searchFn(q)
}

func (f *fakeSearcher) IndexTranscript(t search.TranscriptRecord) {
	f.indexedTranscripts = append(f.indexedTranscripts, t)
}

func (f *fakeSearcher) IndexAnalysis(a search.AnalysisRecord) {
	f.indexedAnalyses = append(f.indexedAnalyses, a)
}

func (f *fakeSearcher) DeleteTranscript(id string) {
	f.deleted = append(f.deleted, id)
}

type fakeUploads struct {
	objects map[string][]byte
}

func newFakeUploads() *fakeUploads {
	return &fakeUploads{objects: map[string][]byte{}}
}

func (f *fakeUploads) Put(_ context.Context, key string, body []byte, _ string) error {
	f.objects[key] = body
	return nil
}

func (f *fakeUploads) Get(_ context.Context, key string) ([]byte, error) {
	body, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	return body, nil
}

func (f *fakeUploads) Remove(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

type fakeSnapshots struct {
	recorded []string
}

func (f *fakeSnapshots) Record(_, analysisID string, _ []byte, _, message string) (snapshot.CommitInfo, error) {
	f.recorded = append(f.recorded, analysisID+": "+message)
	return snapshot.CommitInfo{Hash: "abc1234"}, nil
}

func (f *fakeSnapshots) History(string, string, int) ([]snapshot.CommitInfo, error) {
	return []snapshot.CommitInfo{}, nil
}

func (f *fakeSnapshots) Content(string, string, string) ([]byte, error) {
	return []byte(`{}`), nil
}

type testEnv struct {
	docs      *fakeDocs
	engine    *fakeReconciler
	search    *fakeSearcher
	uploads   *fakeUploads
	snapshots *fakeSnapshots
	handler   http.Handler
}

func newTestEnv() *testEnv {
	env := &testEnv{
		docs:      newFakeDocs(),
		engine:    &fakeReconciler{},
		search:    &fakeSearcher{},
		uploads:   newFakeUploads(),
		snapshots: &fakeSnapshots{},
	}
	service := NewService(env.docs, env.engine, env.search, env.uploads, env.snapshots)
	env.handler = NewHTTPServer(service, "*").Handler()
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	recorder := httptest.NewRecorder()
	env.handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv()

	recorder := env.do(t, http.MethodGet, "/api/health", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	var body map[string]any
	decodeResponse(t, recorder, &body)
	if body["ok"] != true {
		t.Errorf("ok = %v, want true", body["ok"])
	}
}

func TestPreflightHasNoBody(t *testing.T) {
	env := newTestEnv()

	recorder := env.do(t, http.MethodOptions, "/api/projects/p1/transcripts", nil)
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", recorder.Code)
	}
	if recorder.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", recorder.Body.String())
	}
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow origin = %q", got)
	}
}

func TestReadyReportsStoreFailure(t *testing.T) {
	env := newTestEnv()
	env.docs.pingErr = errors.New("store offline")

	recorder := env.do(t, http.MethodGet, "/api/ready", nil)
	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "store offline") {
		t.Errorf("body = %s, want the ping error surfaced", recorder.Body.String())
	}
}

func TestListTranscriptsEmptyProject(t *testing.T) {
	env := newTestEnv()

	recorder := env.do(t, http.MethodGet, "/api/projects/p1/transcripts", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), `"transcripts":[]`) {
		t.Errorf("body = %s, want an empty list", recorder.Body.String())
	}
}

func TestUploadTranscript(t *testing.T) {
	env := newTestEnv()

	buf := &bytes.Buffer{}
	form := multipart.NewWriter(buf)
	part, err := form.CreateFormFile("file", "interview1.docx")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("raw transcript text")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	_ = form.WriteField("interviewDate", "2024-03-15")
	_ = form.WriteField("interviewTime", "10:00 AM")
	_ = form.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/projects/p1/transcripts", buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	recorder := httptest.NewRecorder()
	env.handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", recorder.Code, recorder.Body.String())
	}
	var created store.Transcript
	decodeResponse(t, recorder, &created)
	if created.ID == "" || created.UploadedAt == 0 {
		t.Errorf("created = %+v, want id and uploadedAt set", created)
	}
	if created.InterviewDate != "2024-03-15" {
		t.Errorf("interviewDate = %q", created.InterviewDate)
	}

	if len(env.docs.transcripts["p1"]) != 1 {
		t.Fatalf("persisted %d transcripts, want 1", len(env.docs.transcripts["p1"]))
	}
	if got := string(env.uploads.objects[created.FileKey]); got != "raw transcript text" {
		t.Errorf("stored object = %q", got)
	}
	if len(env.search.indexedTranscripts) != 1 {
		t.Errorf("indexed %d transcripts, want 1", len(env.search.indexedTranscripts))
	}
}

func TestDeleteTranscriptCleansUp(t *testing.T) {
	env := newTestEnv()
	env.docs.transcripts["p1"] = []store.Transcript{
		{ID: "t1", FileKey: "projects/p1/transcripts/t1/a.docx"},
		{ID: "t2"},
	}
	env.uploads.objects["projects/p1/transcripts/t1/a.docx"] = []byte("x")

	recorder := env.do(t, http.MethodDelete, "/api/projects/p1/transcripts/t1", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", recorder.Code, recorder.Body.String())
	}
	if len(env.docs.transcripts["p1"]) != 1 || env.docs.transcripts["p1"][0].ID != "t2" {
		t.Errorf("remaining transcripts = %+v", env.docs.transcripts["p1"])
	}
	if _, ok := env.uploads.objects["projects/p1/transcripts/t1/a.docx"]; ok {
		t.Error("stored object survived the delete")
	}
	if len(env.search.deleted) != 1 || env.search.deleted[0] != "t1" {
		t.Errorf("search deletions = %v", env.search.deleted)
	}

	recorder = env.do(t, http.MethodDelete, "/api/projects/p1/transcripts/t1", nil)
	if recorder.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", recorder.Code)
	}
}

func TestRecomputeEndpoint(t *testing.T) {
	env := newTestEnv()
	env.engine.recomputeFn = func(projectID, analysisID string) (respno.Result, error) {
		if projectID != "p1" || analysisID != "an1" {
			t.Errorf("recompute called with %s/%s", projectID, analysisID)
		}
		return respno.Result{Updated: true, Count: 3}, nil
	}

	recorder := env.do(t, http.MethodPost, "/api/projects/p1/analyses/an1/recompute", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	var result respno.Result
	decodeResponse(t, recorder, &result)
	if !result.Updated || result.Count != 3 {
		t.Errorf("result = %+v", result)
	}
}

func TestRemoveTranscriptMissingAnalysisIsNotAnError(t *testing.T) {
	env := newTestEnv()
	env.engine.removeFn = func(string, string, string) (respno.Result, error) {
		return respno.Result{Updated: false}, nil
	}

	recorder := env.do(t, http.MethodDelete, "/api/projects/p1/analyses/gone/transcripts/t1", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), `"updated":false`) {
		t.Errorf("body = %s, want updated:false", recorder.Body.String())
	}
	if len(env.snapshots.recorded) != 0 {
		t.Errorf("recorded %d snapshots, want none", len(env.snapshots.recorded))
	}
}

func TestSaveAnalysisUpsertsRecomputesAndSnapshots(t *testing.T) {
	env := newTestEnv()

	payload := []byte(`{"name":"Message testing","data":{"Themes":[{"transcriptId":"t1"}]},"savedBy":"Avery"}`)
	recorder := env.do(t, http.MethodPut, "/api/projects/p1/analyses/an1", payload)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", recorder.Code, recorder.Body.String())
	}

	if len(env.docs.analyses) != 1 {
		t.Fatalf("persisted %d analyses, want 1", len(env.docs.analyses))
	}
	saved := env.docs.analyses[0]
	if saved.ID != "an1" || saved.ProjectID != "p1" || saved.Name != "Message testing" {
		t.Errorf("saved analysis = %+v", saved)
	}
	if len(env.snapshots.recorded) != 1 || !strings.Contains(env.snapshots.recorded[0], "Message testing") {
		t.Errorf("snapshots = %v", env.snapshots.recorded)
	}
	if len(env.search.indexedAnalyses) != 1 {
		t.Errorf("indexed %d analyses, want 1", len(env.search.indexedAnalyses))
	}
}

func TestGetAnalysisNotFound(t *testing.T) {
	env := newTestEnv()

	recorder := env.do(t, http.MethodGet, "/api/projects/p1/analyses/missing", nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "NOT_FOUND") {
		t.Errorf("body = %s", recorder.Body.String())
	}
}

func TestExportSheetCSV(t *testing.T) {
	env := newTestEnv()
	env.docs.analyses = []store.Analysis{{
		ID:        "an1",
		ProjectID: "p1",
		Data: store.SheetMap{
			"Key Quotes": {
				{"Respondent ID": "R01", "transcriptId": "t1", "Quote": "works well"},
				{"Respondent ID": "R02", "transcriptId": "t2", "Quote": "too slow"},
			},
		},
	}}

	recorder := env.do(t, http.MethodGet, "/api/projects/p1/analyses/an1/sheets/Key%20Quotes/export", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", recorder.Code, recorder.Body.String())
	}
	if got := recorder.Header().Get("Content-Type"); got != "text/csv" {
		t.Errorf("content type = %q", got)
	}
	lines := strings.Split(strings.TrimSpace(recorder.Body.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("csv lines = %d, want header plus 2 rows", len(lines))
	}
	if lines[0] != "Respondent ID,transcriptId,Quote" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "R01,t1,works well" {
		t.Errorf("first row = %q", lines[1])
	}

	recorder = env.do(t, http.MethodGet, "/api/projects/p1/analyses/an1/sheets/Missing/export", nil)
	if recorder.Code != http.StatusNotFound {
		t.Errorf("missing sheet status = %d, want 404", recorder.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	env := newTestEnv()
	var captured search.Query
	env.search.searchFn = func(q search.Query) search.Response {
		captured = q
		return search.Response{Results: []search.Result{{Type: search.ResultTranscript, ID: "t1"}}, Total: 1, Query: q.Text}
	}

	recorder := env.do(t, http.MethodGet, "/api/search?q=oncology&type=transcript&project=p1&limit=5", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	if captured.Text != "oncology" || captured.FilterType != search.ResultTranscript || captured.FilterProjectID != "p1" || captured.Limit != 5 {
		t.Errorf("query = %+v", captured)
	}

	recorder = env.do(t, http.MethodGet, "/api/search?q=x&type=bogus", nil)
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad type status = %d, want 422", recorder.Code)
	}
}
