package rankings

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"

	"talentranker/internal/subscribers"
)

type noopEnsurer struct{}

func (noopEnsurer) Ensure(ctx context.Context, id, email string) (subscribers.Subscriber, error) {
	return subscribers.Subscriber{ID: id, Email: email, PlanID: "starter"}, nil
}

func newTestRouter(t *testing.T, f fixture) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-Test-Sub"); id != "" {
			c.Set("userId", id)
		}
		c.Next()
	})
	NewHandler(f.svc, noopEnsurer{}, 0).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, sub string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sub != "" {
		req.Header.Set("X-Test-Sub", sub)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

type createResponse struct {
	Status        Status `json:"status"`
	RankingRecord Record `json:"rankingRecord"`
}

func TestCreateRankingWithInlineText(t *testing.T) {
	f := newFixture(t, limited(1, 5), keywordScorer)
	router := newTestRouter(t, f)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/rankings", "sub-1", map[string]any{
		"jobTitle":           "Go Engineer",
		"jobDescriptionText": "go services",
		"resumeTexts":        []string{"java", "go for ten years"},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var got createResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != StatusCompleted || got.RankingRecord.JobTitle != "Go Engineer" {
		t.Fatalf("unexpected response %+v", got)
	}
	if len(got.RankingRecord.Results) != 2 || got.RankingRecord.Results[0].Filename != "Resume 2" {
		t.Fatalf("unexpected results %+v", got.RankingRecord.Results)
	}

	get := doJSON(t, router, http.MethodGet, "/api/v1/rankings/"+got.RankingRecord.ID, "sub-1", nil)
	if get.Code != http.StatusOK {
		t.Fatalf("expected 200 on get, got %d", get.Code)
	}
	if other := doJSON(t, router, http.MethodGet, "/api/v1/rankings/"+got.RankingRecord.ID, "sub-2", nil); other.Code != http.StatusNotFound {
		t.Fatalf("foreign record must be 404, got %d", other.Code)
	}

	list := doJSON(t, router, http.MethodGet, "/api/v1/rankings", "sub-1", nil)
	var listed []Record
	if err := json.Unmarshal(list.Body.Bytes(), &listed); err != nil || len(listed) != 1 {
		t.Fatalf("unexpected list %s (%v)", list.Body.String(), err)
	}

	del := doJSON(t, router, http.MethodDelete, "/api/v1/rankings/"+got.RankingRecord.ID, "sub-1", nil)
	if del.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", del.Code)
	}
}

func TestCreateRankingQuotaExceededBody(t *testing.T) {
	f := newFixture(t, limited(1, 1), keywordScorer)
	router := newTestRouter(t, f)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/rankings", "sub-1", map[string]any{
		"jobDescriptionText": "jd",
		"resumeTexts":        []string{"a", "b"},
	})
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", resp.Code, resp.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["kind"] != "QuotaExceeded" || body["dimension"] != "cv" || body["limit"] != float64(1) ||
		body["current"] != float64(0) || body["requested"] != float64(2) {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestCreateRankingValidation(t *testing.T) {
	f := newFixture(t, limited(1, 1), keywordScorer)
	router := newTestRouter(t, f)

	tests := []struct {
		name string
		body any
	}{
		{name: "missing resumes", body: map[string]any{"jobDescriptionText": "jd"}},
		{name: "bad resume id", body: map[string]any{"jobDescriptionText": "jd", "resumeIds": []string{"not-a-uuid"}}},
		{name: "bad jd id", body: map[string]any{"jobDescriptionId": "x", "resumeTexts": []string{"a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, router, http.MethodPost, "/api/v1/rankings", "sub-1", tt.body)
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
			}
		})
	}

	if resp := doJSON(t, router, http.MethodPost, "/api/v1/rankings", "", map[string]any{}); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", resp.Code)
	}
}

func TestCreateRankingFailureIncludesRecordID(t *testing.T) {
	f := newFixture(t, limited(1, 1), nil)
	router := newTestRouter(t, f)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/rankings", "sub-1", map[string]any{
		"jobDescriptionText": "jd",
		"resumeTexts":        []string{"a"},
	})
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	var body struct {
		Error struct {
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	id := body.Error.Details["recordId"]
	if id == "" {
		t.Fatalf("missing record id in %s", resp.Body.String())
	}
	get := doJSON(t, router, http.MethodGet, "/api/v1/rankings/"+id, "sub-1", nil)
	var rec Record
	if err := json.Unmarshal(get.Body.Bytes(), &rec); err != nil || rec.Status != StatusFailed {
		t.Fatalf("expected failed record, got %s", get.Body.String())
	}
}

func TestCreateRankingMultipart(t *testing.T) {
	f := newFixture(t, limited(1, 2), keywordScorer)
	router := newTestRouter(t, f)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	addFile := func(field, name, body string) {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+name+`"`)
		h.Set("Content-Type", "application/pdf")
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		_, _ = part.Write([]byte(body))
	}
	addFile("jd", "Data Engineer.pdf", "go and spark")
	addFile("cvs", "one.pdf", "go")
	addFile("cvs", "two.pdf", "bad scan")
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rankings", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-Test-Sub", "sub-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var got createResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RankingRecord.JobTitle != "Data Engineer" || len(got.RankingRecord.Results) != 2 {
		t.Fatalf("unexpected record %+v", got.RankingRecord)
	}
	if got.RankingRecord.Results[1].Filename != "two.pdf" || got.RankingRecord.Results[1].Error != "extraction failed" {
		t.Fatalf("unexpected results %+v", got.RankingRecord.Results)
	}
}

func TestDeleteProcessingRankingConflicts(t *testing.T) {
	f := newFixture(t, limited(1, 1), keywordScorer)
	router := newTestRouter(t, f)
	rec := Record{ID: "0b9f3a8e-7c55-4c1d-9a55-2f5f7b1d2c11", SubscriberID: "sub-1", Status: StatusProcessing}
	if err := f.repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if resp := doJSON(t, router, http.MethodDelete, "/api/v1/rankings/"+rec.ID, "sub-1", nil); resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}
