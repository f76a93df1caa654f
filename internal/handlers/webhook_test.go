package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Jethrr/moodlequest-sub000/internal/middleware"
	"github.com/Jethrr/moodlequest-sub000/internal/realtime"
	"github.com/Jethrr/moodlequest-sub000/internal/repos"
	"github.com/Jethrr/moodlequest-sub000/internal/repos/testutil"
	"github.com/Jethrr/moodlequest-sub000/internal/services"
	"github.com/Jethrr/moodlequest-sub000/internal/types"
)

const testWebhookSecret = "hook-secret"

var moodleIDSeq atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	moodleIDSeq.Store(40000)
}

func nextMoodleID() int64 { return moodleIDSeq.Add(1) }

type webhookFixture struct {
	router *gin.Engine
	user   *types.User
	course *types.Course
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	userRepo := repos.NewUserRepo(db, log)
	courseRepo := repos.NewCourseRepo(db, log)
	questRepo := repos.NewQuestRepo(db, log)
	progRepo := repos.NewQuestProgressRepo(db, log)
	eventRepo := repos.NewEngagementEventRepo(db, log)
	xpRepo := repos.NewExperienceRepo(db, log)
	aggRepo := repos.NewStudentProgressRepo(db, log)
	badgeRepo := repos.NewBadgeRepo(db, log)

	cfg := services.DefaultGamificationConfig()
	experience := services.NewExperienceService(db, log, cfg, xpRepo, aggRepo, nil)
	engagement := services.NewEngagementService(db, log, cfg, progRepo, eventRepo, experience)
	resolver := services.NewQuestResolver(log, questRepo)
	badges := services.NewBadgeService(db, log, badgeRepo, progRepo, xpRepo)
	notifier := services.NewQuestNotifier(log, cfg, &discardEmitter{})
	eventRouter := services.NewEventRouterService(db, log,
		userRepo, courseRepo, aggRepo, resolver, engagement, experience, badges, notifier)

	webhookAuth := middleware.NewWebhookAuthMiddleware(log, testWebhookSecret)
	handler := NewWebhookHandler(log, eventRouter)

	router := gin.New()
	hooks := router.Group("/api/webhooks")
	hooks.Use(webhookAuth.RequireSharedSecret())
	hooks.POST("/moodle/:event", handler.HandleMoodleEvent)

	return &webhookFixture{
		router: router,
		user:   testutil.SeedUser(t, ctx, db, nextMoodleID()),
		course: testutil.SeedCourse(t, ctx, db, nextMoodleID()),
	}
}

func (f *webhookFixture) post(t *testing.T, eventPath string, payload any, secret string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/webhooks/moodle/%s", eventPath), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Webhook-Token", secret)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

type discardEmitter struct{}

func (discardEmitter) Emit(ctx context.Context, n realtime.Notification) error { return nil }

func TestWebhookRejectsMissingSecret(t *testing.T) {
	f := newWebhookFixture(t)

	rec := f.post(t, "quiz_submitted", map[string]any{}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing secret: want 401 got %d", rec.Code)
	}

	rec = f.post(t, "quiz_submitted", map[string]any{}, "wrong-secret")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: want 401 got %d", rec.Code)
	}
}

func TestWebhookUnknownEventIs404(t *testing.T) {
	f := newWebhookFixture(t)

	rec := f.post(t, "calendar_updated", map[string]any{}, testWebhookSecret)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown event: want 404 got %d", rec.Code)
	}
}

func TestWebhookMalformedBodyIs400(t *testing.T) {
	f := newWebhookFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/moodle/quiz_submitted",
		bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Token", testWebhookSecret)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: want 400 got %d", rec.Code)
	}
}

func TestWebhookAcksCompletionEvent(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	activityID := nextMoodleID()
	db := testutil.DB(t)
	testutil.SeedQuest(t, ctx, db, f.course.ID, &activityID)

	rec := f.post(t, "quiz_submitted", map[string]any{
		"course_id": f.course.MoodleCourseID,
		"quiz_id":   activityID,
		"user_id":   f.user.MoodleUserID,
	}, testWebhookSecret)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200 got %d: %s", rec.Code, rec.Body.String())
	}

	var receipt services.EventReceipt
	if err := json.Unmarshal(rec.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if !receipt.Processed || receipt.Status != "ok" {
		t.Fatalf("receipt: %+v", receipt)
	}
}

func TestWebhookAcksUnknownUserAsNoop(t *testing.T) {
	f := newWebhookFixture(t)

	rec := f.post(t, "quiz_submitted", map[string]any{
		"course_id": f.course.MoodleCourseID,
		"quiz_id":   nextMoodleID(),
		"user_id":   int64(777777777),
	}, testWebhookSecret)
	if rec.Code != http.StatusOK {
		t.Fatalf("unknown user still acks: want 200 got %d", rec.Code)
	}

	var receipt services.EventReceipt
	if err := json.Unmarshal(rec.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if receipt.Processed {
		t.Fatalf("unknown user must be a no-op: %+v", receipt)
	}
}
