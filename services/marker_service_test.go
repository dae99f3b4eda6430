package services

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/trashunter/classifier"
	"github.com/yeremiapane/trashunter/models"
	"github.com/yeremiapane/trashunter/repository"
	"github.com/yeremiapane/trashunter/storage"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// contentClassifier returns the verdict named by the image content, e.g. an
// upload containing "clean" is classified Clean.
type contentClassifier struct {
	err error
}

func (c *contentClassifier) Classify(ctx context.Context, filename string, image io.Reader) (classifier.Verdict, error) {
	if c.err != nil {
		return "", c.err
	}
	b, err := io.ReadAll(image)
	if err != nil {
		return "", err
	}
	return classifier.ParseVerdict(string(b))
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingBroadcaster) Broadcast(event string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

type testEnv struct {
	svc       *MarkerService
	markers   *repository.MarkerRepository
	hunters   *repository.HunterRepository
	media     *storage.Local
	cls       *contentClassifier
	events    *recordingBroadcaster
	uploadDir string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard, TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Marker{}, &models.Hunter{}))

	dir := filepath.Join(t.TempDir(), "uploads")
	media, err := storage.NewLocal(dir, "http://localhost:8000")
	require.NoError(t, err)

	env := &testEnv{
		markers:   repository.NewMarkerRepository(db),
		hunters:   repository.NewHunterRepository(db),
		media:     media,
		cls:       &contentClassifier{},
		events:    &recordingBroadcaster{},
		uploadDir: dir,
	}
	env.svc = NewMarkerService(env.markers, media, env.cls, env.hunters, env.events, MarkerConfig{
		ProximityRadiusMeters: 275,
		ReportPoints:          50,
		CleanupPoints:         100,
	})
	return env
}

func (e *testEnv) uploadedFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.uploadDir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, en := range entries {
		names = append(names, en.Name())
	}
	return names
}

func upload(name, content string) Upload {
	return Upload{Filename: name, Content: strings.NewReader(content)}
}

func (e *testEnv) report(t *testing.T, lat, lng float64) *models.Marker {
	t.Helper()
	m, err := e.svc.SubmitReport(context.Background(), ReportInput{
		Lat: lat, Lng: lng, Note: "bottles", File: upload("dirty.jpg", "pollution"),
	})
	require.NoError(t, err)
	return m
}

func TestSubmitReport_PollutionCreatesDirtyMarker(t *testing.T) {
	env := setupTestEnv(t)

	m, err := env.svc.SubmitReport(context.Background(), ReportInput{
		Lat: 41.0082, Lng: 28.9784, Note: "plastic on the shore", File: upload("shore.jpg", "pollution"),
	})
	require.NoError(t, err)

	assert.NotZero(t, m.ID)
	assert.Equal(t, models.MarkerDirty, m.Status)
	assert.Equal(t, "plastic on the shore", m.Note)
	assert.True(t, strings.HasPrefix(m.ImageURL, "http://localhost:8000/uploads/"))
	assert.True(t, strings.HasSuffix(m.ImageURL, "_shore.jpg"))
	assert.Nil(t, m.CleanImageURL)
	assert.Nil(t, m.CleanedAt)

	files := env.uploadedFiles(t)
	require.Len(t, files, 1)
	assert.Equal(t, m.ImageKey, files[0])
	assert.Equal(t, []string{EventMarkerCreated}, env.events.events)
}

func TestSubmitReport_RejectedVerdictsCreateNothing(t *testing.T) {
	for _, verdict := range []string{"clean", "unrelated"} {
		t.Run(verdict, func(t *testing.T) {
			env := setupTestEnv(t)

			m, err := env.svc.SubmitReport(context.Background(), ReportInput{
				Lat: 1, Lng: 1, Note: "n", File: upload("x.jpg", verdict),
			})
			assert.Nil(t, m)
			assert.ErrorIs(t, err, ErrAIRejected)
			assert.EqualError(t, err, "AI did not detect environmental pollution in this image")

			all, err := env.markers.ListAll(context.Background())
			require.NoError(t, err)
			assert.Empty(t, all)
			assert.Empty(t, env.uploadedFiles(t), "rejected upload is removed")
			assert.Empty(t, env.events.events)
		})
	}
}

func TestSubmitReport_ClassifierFailureIsInternal(t *testing.T) {
	env := setupTestEnv(t)
	env.cls.err = errors.New("embedder unreachable")

	_, err := env.svc.SubmitReport(context.Background(), ReportInput{File: upload("x.jpg", "pollution")})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAIRejected)
	assert.ErrorContains(t, err, "embedder unreachable")
	assert.Empty(t, env.uploadedFiles(t))
}

func TestSubmitReport_AwardsReporter(t *testing.T) {
	env := setupTestEnv(t)
	h := &models.Hunter{FullName: "A", Email: "a@example.com", Password: "x"}
	require.NoError(t, env.hunters.Create(context.Background(), h))

	_, err := env.svc.SubmitReport(context.Background(), ReportInput{
		Lat: 1, Lng: 1, File: upload("x.jpg", "pollution"), ReporterID: &h.ID,
	})
	require.NoError(t, err)

	got, err := env.hunters.GetByID(context.Background(), h.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.Score)
	assert.Equal(t, 0, got.CollectedCount)
}

func TestConfirmCleanup_NotFound(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.svc.ConfirmCleanup(context.Background(), CleanupInput{
		MarkerID: 42, File: upload("c.jpg", "clean"),
	})
	assert.ErrorIs(t, err, ErrMarkerNotFound)
	assert.Empty(t, env.uploadedFiles(t))
}

func TestConfirmCleanup_TooFar(t *testing.T) {
	env := setupTestEnv(t)
	m := env.report(t, 0, 0)

	// 0.003 degrees of latitude is about 333 m
	_, err := env.svc.ConfirmCleanup(context.Background(), CleanupInput{
		MarkerID: m.ID, UserLat: 0.003, UserLng: 0, File: upload("c.jpg", "clean"),
	})

	var tooFar *TooFarError
	require.True(t, errors.As(err, &tooFar))
	assert.InDelta(t, 333.6, tooFar.Distance, 1)
	assert.Equal(t, "You are too far away (333m). You must be within 275m to clean this spot.", err.Error())

	assert.Len(t, env.uploadedFiles(t), 1, "only the report photo is stored")
	got, _ := env.markers.GetByID(context.Background(), m.ID)
	assert.Equal(t, models.MarkerDirty, got.Status)
}

func TestConfirmCleanup_WithinRadiusBoundary(t *testing.T) {
	env := setupTestEnv(t)
	m := env.report(t, 0, 0)

	// about 267 m away
	cleaned, err := env.svc.ConfirmCleanup(context.Background(), CleanupInput{
		MarkerID: m.ID, UserLat: 0.0024, UserLng: 0, File: upload("c.jpg", "clean"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.MarkerCleaned, cleaned.Status)
}

func TestConfirmCleanup_RejectedVerdicts(t *testing.T) {
	for _, verdict := range []string{"pollution", "unrelated"} {
		t.Run(verdict, func(t *testing.T) {
			env := setupTestEnv(t)
			m := env.report(t, 41.0, 29.0)

			_, err := env.svc.ConfirmCleanup(context.Background(), CleanupInput{
				MarkerID: m.ID, UserLat: 41.0, UserLng: 29.0, File: upload("c.jpg", verdict),
			})
			assert.ErrorIs(t, err, ErrAIRejected)
			assert.EqualError(t, err, "AI could not confirm the cleanup")

			got, err := env.markers.GetByID(context.Background(), m.ID)
			require.NoError(t, err)
			assert.Equal(t, models.MarkerDirty, got.Status)
			assert.Nil(t, got.CleanImageURL)
			assert.Nil(t, got.CleanedAt)
			assert.Equal(t, []string{m.ImageKey}, env.uploadedFiles(t))
		})
	}
}

func TestConfirmCleanup_SuccessThenAlreadyCleaned(t *testing.T) {
	env := setupTestEnv(t)
	m := env.report(t, 41.0082, 28.9784)

	cleanedAt := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	env.svc.now = func() time.Time { return cleanedAt }

	cleaned, err := env.svc.ConfirmCleanup(context.Background(), CleanupInput{
		MarkerID: m.ID, UserLat: 41.0083, UserLng: 28.9785, File: upload("after.jpg", "clean"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.MarkerCleaned, cleaned.Status)
	require.NotNil(t, cleaned.CleanImageURL)
	assert.True(t, strings.HasSuffix(*cleaned.CleanImageURL, "_after.jpg"))
	require.NotNil(t, cleaned.CleanedAt)
	assert.True(t, cleanedAt.Equal(*cleaned.CleanedAt))
	assert.Equal(t, m.ImageURL, cleaned.ImageURL)

	firstURL := *cleaned.CleanImageURL
	env.svc.now = func() time.Time { return cleanedAt.Add(time.Hour) }

	_, err = env.svc.ConfirmCleanup(context.Background(), CleanupInput{
		MarkerID: m.ID, UserLat: 41.0083, UserLng: 28.9785, File: upload("again.jpg", "clean"),
	})
	assert.ErrorIs(t, err, ErrAlreadyCleaned)

	got, err := env.markers.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, firstURL, *got.CleanImageURL)
	assert.True(t, cleanedAt.Equal(*got.CleanedAt))
	assert.Len(t, env.uploadedFiles(t), 2)
	assert.Equal(t, []string{EventMarkerCreated, EventMarkerCleaned}, env.events.events)
}

func TestConfirmCleanup_AwardsCleaner(t *testing.T) {
	env := setupTestEnv(t)
	h := &models.Hunter{FullName: "C", Email: "c@example.com", Password: "x"}
	require.NoError(t, env.hunters.Create(context.Background(), h))
	m := env.report(t, 10, 10)

	_, err := env.svc.ConfirmCleanup(context.Background(), CleanupInput{
		MarkerID: m.ID, UserLat: 10, UserLng: 10, File: upload("c.jpg", "clean"), CleanerID: &h.ID,
	})
	require.NoError(t, err)

	got, err := env.hunters.GetByID(context.Background(), h.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Score)
	assert.Equal(t, 1, got.CollectedCount)
}

func TestListMarkers_ReturnsDirtyAndCleaned(t *testing.T) {
	env := setupTestEnv(t)
	a := env.report(t, 1, 1)
	b := env.report(t, 2, 2)
	_, err := env.svc.ConfirmCleanup(context.Background(), CleanupInput{
		MarkerID: b.ID, UserLat: 2, UserLng: 2, File: upload("c.jpg", "clean"),
	})
	require.NoError(t, err)

	all, err := env.svc.ListMarkers(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ID)
	assert.Equal(t, models.MarkerDirty, all[0].Status)
	assert.Equal(t, b.ID, all[1].ID)
	assert.Equal(t, models.MarkerCleaned, all[1].Status)
}
