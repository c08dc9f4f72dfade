package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/framecut/api/internal/middleware"
	"github.com/framecut/api/internal/raster"
	"github.com/framecut/api/internal/repository"
	"github.com/framecut/api/internal/service"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testJWTSecret = "test-secret-for-handlers"

type recordingEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (r *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

type testApp struct {
	app      *fiber.App
	auth     *middleware.AuthMiddleware
	enqueuer *recordingEnqueuer
}

// setupApp wires the API the same way cmd/server does, over in-memory sqlite
// and miniredis.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, repository.Migrate(db))
	repo := repository.NewGormRepository(db)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	enqueuer := &recordingEnqueuer{}
	validate := NewValidator()

	timelineService := service.NewTimelineService(repo)
	previewService := service.NewPreviewService(repo, raster.NewPainter(""))
	renderService := service.NewRenderService(redisClient, enqueuer, repo)

	authMiddleware := middleware.NewLegacyAuthMiddleware(testJWTSecret)
	rateLimiter := middleware.NewRateLimiter(redisClient, zerolog.Nop())

	app := fiber.New()
	routes := &Routes{
		Timelines:    NewTimelineHandler(timelineService, validate),
		Tracks:       NewTrackHandler(timelineService, validate),
		Clips:        NewClipHandler(timelineService, validate),
		Preview:      NewPreviewHandler(previewService),
		Render:       NewRenderHandler(renderService, validate),
		Auth:         authMiddleware.Authenticate(),
		RenderLimit:  rateLimiter.RenderLimit(10000),
		PreviewLimit: rateLimiter.PreviewLimit(10000),
	}
	routes.Register(app)

	return &testApp{app: app, auth: authMiddleware, enqueuer: enqueuer}
}

func (ta *testApp) token(t *testing.T) string {
	t.Helper()
	token, err := ta.auth.GenerateToken("test-user-123", "test@example.com", time.Hour)
	require.NoError(t, err)
	return token
}

func doRequest(app *fiber.App, method, path, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// do performs an authenticated request
func (ta *testApp) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	resp, err := doRequest(ta.app, method, path, body, map[string]string{
		"Authorization": "Bearer " + ta.token(t),
	})
	require.NoError(t, err)
	return resp
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return b
}

func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &result), "body: %s", body)
	return result
}

func parseJSONArray(t *testing.T, resp *http.Response) []interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result []interface{}
	require.NoError(t, json.Unmarshal(body, &result), "body: %s", body)
	return result
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	result := parseJSON(t, resp)
	errObj, ok := result["error"].(map[string]interface{})
	require.True(t, ok, "expected error envelope, got %v", result)
	return errObj["code"].(string)
}

// createTimeline creates a 10s 30fps 1280x720 timeline and returns its id
func (ta *testApp) createTimeline(t *testing.T) string {
	t.Helper()
	resp := ta.do(t, http.MethodPost, "/api/timelines", `{"name":"Demo","duration":10,"fps":30,"width":1280,"height":720}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return parseJSON(t, resp)["id"].(string)
}

func (ta *testApp) createTrack(t *testing.T, timelineID, kind string, order int) string {
	t.Helper()
	body := fmt.Sprintf(`{"name":"%s track","kind":"%s","order":%d}`, kind, kind, order)
	resp := ta.do(t, http.MethodPost, "/api/timelines/"+timelineID+"/tracks", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return parseJSON(t, resp)["id"].(string)
}

func (ta *testApp) createClip(t *testing.T, trackID, body string) *http.Response {
	t.Helper()
	return ta.do(t, http.MethodPost, "/api/tracks/"+trackID+"/clips", body)
}
