package web

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm/logger"

	"github.com/sortdeck/sortdeck/internal/accounting"
	"github.com/sortdeck/sortdeck/internal/store"
	"github.com/sortdeck/sortdeck/pkg/models"
)

// stubClassifier records calls and replays a canned result.
type stubClassifier struct {
	storage *store.Store

	result          *models.ClassificationResult
	refreshedIDs    []string
	invalidatedIDs  []string
	submittedTitles []string
}

func (c *stubClassifier) SubmitIdea(ctx context.Context, planID, title, description string) (*models.Idea, *models.ClassificationResult, error) {
	c.submittedTitles = append(c.submittedTitles, title)
	idea, err := c.storage.CreateIdea(ctx, planID, title, description)
	if err != nil {
		return nil, nil, err
	}
	if c.result != nil {
		idea.BucketID = c.result.BucketID
		idea.Confidence = c.result.Confidence
	}
	return idea, c.result, nil
}

func (c *stubClassifier) RefreshBucketEmbedding(_ context.Context, bucket *models.Bucket) {
	c.refreshedIDs = append(c.refreshedIDs, bucket.ID)
}

func (c *stubClassifier) InvalidatePlan(planID string) {
	c.invalidatedIDs = append(c.invalidatedIDs, planID)
}

type WebSuite struct {
	suite.Suite
	storage    *store.Store
	classifier *stubClassifier
	collector  *accounting.Collector
	svc        *Service
	plan       *models.Plan
}

func (s *WebSuite) SetupTest() {
	var err error
	s.storage, err = store.NewStore(store.Config{
		Path:     filepath.Join(s.T().TempDir(), "test.db"),
		LogLevel: logger.Silent,
	})
	s.Require().NoError(err)

	s.classifier = &stubClassifier{storage: s.storage}
	s.collector = accounting.NewCollector(accounting.Prices{})
	s.svc = NewService("test", s.storage, s.classifier, s.collector)

	s.plan, err = s.storage.CreatePlan(context.Background(), "Q3 roadmap", "")
	s.Require().NoError(err)
}

func (s *WebSuite) TearDownTest() {
	s.storage.Close()
}

func TestWebSuite(t *testing.T) {
	suite.Run(t, new(WebSuite))
}

func (s *WebSuite) request(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.svc.Router().ServeHTTP(rec, req)
	return rec
}

func (s *WebSuite) decode(rec *httptest.ResponseRecorder, out any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), out))
}

func (s *WebSuite) TestHealth() {
	rec := s.request(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, rec.Code)

	var body map[string]any
	s.decode(rec, &body)
	s.Equal("ok", body["status"])
	s.Equal("test", body["version"])
}

func (s *WebSuite) TestCreatePlan() {
	rec := s.request(http.MethodPost, "/api/plans", planRequest{Title: "New board"})
	s.Equal(http.StatusCreated, rec.Code)

	var plan models.Plan
	s.decode(rec, &plan)
	s.NotEmpty(plan.ID)
	s.Equal("New board", plan.Title)
}

func (s *WebSuite) TestCreatePlanRequiresTitle() {
	rec := s.request(http.MethodPost, "/api/plans", planRequest{Title: "   "})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *WebSuite) TestGetPlanNotFound() {
	rec := s.request(http.MethodGet, "/api/plans/nope/", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *WebSuite) TestCreateIdeaReturnsClassification() {
	s.classifier.result = &models.ClassificationResult{BucketID: "b1", Confidence: 88}

	rec := s.request(http.MethodPost, "/api/plans/"+s.plan.ID+"/ideas", ideaRequest{Title: "dark mode"})
	s.Require().Equal(http.StatusCreated, rec.Code)

	var resp ideaResponse
	s.decode(rec, &resp)
	s.Require().NotNil(resp.Classification)
	s.Equal("b1", resp.Classification.BucketID)
	s.Equal(88, resp.Classification.Confidence)
	s.Equal("dark mode", resp.Idea.Title)
	s.Equal([]string{"dark mode"}, s.classifier.submittedTitles)
}

func (s *WebSuite) TestCreateIdeaPendingEmergent() {
	// A nil result means the idea is parked until emergent creation runs.
	rec := s.request(http.MethodPost, "/api/plans/"+s.plan.ID+"/ideas", ideaRequest{Title: "first idea"})
	s.Require().Equal(http.StatusCreated, rec.Code)

	var resp ideaResponse
	s.decode(rec, &resp)
	s.Nil(resp.Classification)
	s.Empty(resp.Idea.BucketID)
}

func (s *WebSuite) TestCreateIdeaUnknownPlan() {
	rec := s.request(http.MethodPost, "/api/plans/nope/ideas", ideaRequest{Title: "idea"})
	s.Equal(http.StatusNotFound, rec.Code)
	s.Empty(s.classifier.submittedTitles)
}

func (s *WebSuite) TestCreateIdeaRequiresTitle() {
	rec := s.request(http.MethodPost, "/api/plans/"+s.plan.ID+"/ideas", ideaRequest{})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *WebSuite) TestListIdeasEmpty() {
	rec := s.request(http.MethodGet, "/api/plans/"+s.plan.ID+"/ideas", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq("[]", rec.Body.String())
}

func (s *WebSuite) TestCreateBucketInvalidatesCache() {
	rec := s.request(http.MethodPost, "/api/plans/"+s.plan.ID+"/buckets", bucketRequest{
		Title:       "Infra",
		AccentColor: "#11AA22",
	})
	s.Require().Equal(http.StatusCreated, rec.Code)

	var bucket models.Bucket
	s.decode(rec, &bucket)
	s.Equal("Infra", bucket.Title)
	s.Equal(1, bucket.DisplayOrder)
	s.Equal([]string{s.plan.ID}, s.classifier.invalidatedIDs)
}

func (s *WebSuite) TestCreateBucketRejectsBadColor() {
	rec := s.request(http.MethodPost, "/api/plans/"+s.plan.ID+"/buckets", bucketRequest{
		Title:       "Infra",
		AccentColor: "red",
	})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Empty(s.classifier.invalidatedIDs)
}

func (s *WebSuite) TestListBuckets() {
	for _, title := range []string{"Infra", "UX"} {
		rec := s.request(http.MethodPost, "/api/plans/"+s.plan.ID+"/buckets", bucketRequest{Title: title})
		s.Require().Equal(http.StatusCreated, rec.Code)
	}

	rec := s.request(http.MethodGet, "/api/plans/"+s.plan.ID+"/buckets", nil)
	s.Equal(http.StatusOK, rec.Code)

	var buckets []models.Bucket
	s.decode(rec, &buckets)
	s.Require().Len(buckets, 2)
	s.Equal("Infra", buckets[0].Title)
	s.Equal("UX", buckets[1].Title)
}

func (s *WebSuite) TestUpdateBucketTitleRefreshesEmbedding() {
	created, err := s.storage.CreateBucket(context.Background(), models.BucketSpec{
		PlanID: s.plan.ID,
		Title:  "Infra",
	})
	s.Require().NoError(err)

	title := "Operations"
	rec := s.request(http.MethodPatch, "/api/buckets/"+created.ID, bucketPatchRequest{Title: &title})
	s.Require().Equal(http.StatusOK, rec.Code)

	var bucket models.Bucket
	s.decode(rec, &bucket)
	s.Equal("Operations", bucket.Title)
	s.Equal([]string{created.ID}, s.classifier.refreshedIDs)
}

func (s *WebSuite) TestUpdateBucketDisplayOrderSkipsRefresh() {
	created, err := s.storage.CreateBucket(context.Background(), models.BucketSpec{
		PlanID: s.plan.ID,
		Title:  "Infra",
	})
	s.Require().NoError(err)

	order := 7
	rec := s.request(http.MethodPatch, "/api/buckets/"+created.ID, bucketPatchRequest{DisplayOrder: &order})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Empty(s.classifier.refreshedIDs, "reordering does not change meaning")
}

func (s *WebSuite) TestUpdateBucketNotFound() {
	title := "x"
	rec := s.request(http.MethodPatch, "/api/buckets/nope", bucketPatchRequest{Title: &title})
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *WebSuite) TestUsageSnapshot() {
	s.collector.RecordEmbedding("hello world", 3)

	rec := s.request(http.MethodGet, "/api/usage", nil)
	s.Equal(http.StatusOK, rec.Code)

	var snap accounting.Snapshot
	s.decode(rec, &snap)
	s.Equal(int64(1), snap.EmbeddingCalls)
	s.Equal(int64(3), snap.EmbeddingTokens)
}
