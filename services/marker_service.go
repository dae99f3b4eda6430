package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/trashunter/classifier"
	"github.com/yeremiapane/trashunter/models"
	"github.com/yeremiapane/trashunter/repository"
	"github.com/yeremiapane/trashunter/storage"
	"github.com/yeremiapane/trashunter/utils"
)

const (
	EventMarkerCreated = "marker_created"
	EventMarkerCleaned = "marker_cleaned"

	msgNoPollution      = "AI did not detect environmental pollution in this image"
	msgCleanupUnconfirm = "AI could not confirm the cleanup"
)

type (
	MarkerStore interface {
		ListAll(ctx context.Context) ([]models.Marker, error)
		Create(ctx context.Context, m *models.Marker) error
		GetByID(ctx context.Context, id uint) (*models.Marker, error)
		TransitionToCleaned(ctx context.Context, id uint, rec repository.CleanupRecord) (*models.Marker, error)
	}

	Classifier interface {
		Classify(ctx context.Context, filename string, image io.Reader) (classifier.Verdict, error)
	}

	ScoreKeeper interface {
		AddPoints(ctx context.Context, hunterID uint, points, collected int) error
	}

	Broadcaster interface {
		Broadcast(event string, data interface{})
	}
)

type MarkerConfig struct {
	ProximityRadiusMeters float64
	ReportPoints          int
	CleanupPoints         int
}

// Upload is a photo received from a client.
type Upload struct {
	Filename string
	Content  io.Reader
}

type ReportInput struct {
	Lat, Lng   float64
	Note       string
	File       Upload
	ReporterID *uint
}

type CleanupInput struct {
	MarkerID         uint
	UserLat, UserLng float64
	File             Upload
	CleanerID        *uint
}

// MarkerService runs the report and cleanup workflows. Scores and events are
// optional; a nil ScoreKeeper or Broadcaster is skipped.
type MarkerService struct {
	markers    MarkerStore
	media      storage.MediaStore
	classifier Classifier
	scores     ScoreKeeper
	events     Broadcaster
	cfg        MarkerConfig
	now        func() time.Time
}

func NewMarkerService(
	markers MarkerStore,
	media storage.MediaStore,
	cls Classifier,
	scores ScoreKeeper,
	events Broadcaster,
	cfg MarkerConfig,
) *MarkerService {
	return &MarkerService{
		markers:    markers,
		media:      media,
		classifier: cls,
		scores:     scores,
		events:     events,
		cfg:        cfg,
		now:        time.Now,
	}
}

func (s *MarkerService) ListMarkers(ctx context.Context) ([]models.Marker, error) {
	return s.markers.ListAll(ctx)
}

func (s *MarkerService) GetMarker(ctx context.Context, id uint) (*models.Marker, error) {
	return s.markers.GetByID(ctx, id)
}

// SubmitReport stores the photo, asks the classifier for a verdict and
// creates a dirty marker when it shows pollution. The stored photo is removed
// again whenever the report does not end up as a marker.
func (s *MarkerService) SubmitReport(ctx context.Context, in ReportInput) (*models.Marker, error) {
	stored, err := s.media.Save(ctx, in.File.Filename, in.File.Content)
	if err != nil {
		return nil, fmt.Errorf("MarkerService - SubmitReport - s.media.Save: %w", err)
	}

	verdict, err := s.classify(ctx, stored.Key)
	if err != nil {
		s.discard(ctx, stored.Key, "classification failed")
		return nil, fmt.Errorf("MarkerService - SubmitReport: %w", err)
	}

	if verdict != classifier.Pollution {
		s.discard(ctx, stored.Key, "report rejected")
		utils.InfoLogger.WithFields(logrus.Fields{
			"verdict": verdict,
			"key":     stored.Key,
		}).Info("report rejected by classifier")
		return nil, &RejectionError{Message: msgNoPollution}
	}

	marker := &models.Marker{
		Lat:        in.Lat,
		Lng:        in.Lng,
		Note:       in.Note,
		ImageURL:   stored.URL,
		ImageKey:   stored.Key,
		ReporterID: in.ReporterID,
	}
	if err := s.markers.Create(ctx, marker); err != nil {
		s.discard(ctx, stored.Key, "marker insert failed")
		return nil, fmt.Errorf("MarkerService - SubmitReport - s.markers.Create: %w", err)
	}

	s.award(ctx, in.ReporterID, s.cfg.ReportPoints, 0)
	s.publish(EventMarkerCreated, marker)

	utils.InfoLogger.WithFields(logrus.Fields{
		"marker_id": marker.ID,
		"lat":       marker.Lat,
		"lng":       marker.Lng,
	}).Info("pollution reported")

	return marker, nil
}

// ConfirmCleanup checks, in order: the marker exists, it is still dirty, the
// user is within the proximity radius, and the classifier sees a clean area.
// Only then is the marker transitioned.
func (s *MarkerService) ConfirmCleanup(ctx context.Context, in CleanupInput) (*models.Marker, error) {
	marker, err := s.markers.GetByID(ctx, in.MarkerID)
	if err != nil {
		return nil, err
	}

	if marker.IsCleaned() {
		return nil, ErrAlreadyCleaned
	}

	distance := utils.DistanceMeters(in.UserLat, in.UserLng, marker.Lat, marker.Lng)
	if distance > s.cfg.ProximityRadiusMeters {
		return nil, &TooFarError{Distance: distance, Radius: s.cfg.ProximityRadiusMeters}
	}

	stored, err := s.media.Save(ctx, in.File.Filename, in.File.Content)
	if err != nil {
		return nil, fmt.Errorf("MarkerService - ConfirmCleanup - s.media.Save: %w", err)
	}

	verdict, err := s.classify(ctx, stored.Key)
	if err != nil {
		s.discard(ctx, stored.Key, "classification failed")
		return nil, fmt.Errorf("MarkerService - ConfirmCleanup: %w", err)
	}

	if verdict != classifier.Clean {
		s.discard(ctx, stored.Key, "cleanup rejected")
		utils.InfoLogger.WithFields(logrus.Fields{
			"marker_id": marker.ID,
			"verdict":   verdict,
		}).Info("cleanup rejected by classifier")
		return nil, &RejectionError{Message: msgCleanupUnconfirm}
	}

	cleaned, err := s.markers.TransitionToCleaned(ctx, marker.ID, repository.CleanupRecord{
		ImageURL:  stored.URL,
		ImageKey:  stored.Key,
		CleanerID: in.CleanerID,
		CleanedAt: s.now(),
	})
	if err != nil {
		s.discard(ctx, stored.Key, "transition failed")
		return nil, err
	}

	s.award(ctx, in.CleanerID, s.cfg.CleanupPoints, 1)
	s.publish(EventMarkerCleaned, cleaned)

	utils.InfoLogger.WithFields(logrus.Fields{
		"marker_id": cleaned.ID,
		"distance":  int(distance),
	}).Info("area cleaned")

	return cleaned, nil
}

func (s *MarkerService) classify(ctx context.Context, key string) (classifier.Verdict, error) {
	rc, err := s.media.Open(ctx, key)
	if err != nil {
		return "", fmt.Errorf("s.media.Open: %w", err)
	}
	defer rc.Close()

	verdict, err := s.classifier.Classify(ctx, key, rc)
	if err != nil {
		return "", fmt.Errorf("s.classifier.Classify: %w", err)
	}
	return verdict, nil
}

// discard removes a stored photo that will not be referenced by any marker.
// A failed delete leaves an orphan; the key is logged so it can be swept.
func (s *MarkerService) discard(ctx context.Context, key, reason string) {
	if err := s.media.Delete(context.WithoutCancel(ctx), key); err != nil {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"key":    key,
			"reason": reason,
		}).WithError(err).Error("orphaned upload")
	}
}

func (s *MarkerService) award(ctx context.Context, hunterID *uint, points, collected int) {
	if s.scores == nil || hunterID == nil {
		return
	}
	if err := s.scores.AddPoints(ctx, *hunterID, points, collected); err != nil {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"hunter_id": *hunterID,
			"points":    points,
		}).WithError(err).Error("failed to award points")
	}
}

func (s *MarkerService) publish(event string, m *models.Marker) {
	if s.events == nil {
		return
	}
	s.events.Broadcast(event, m)
}
