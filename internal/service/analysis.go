package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"log/slog"
	"math"
	"net/http"
	"slices"
	"time"

	"github.com/silentcry/silentcry/internal/alerts"
	"github.com/silentcry/silentcry/internal/metrics"
)

// Accepted upload content types.
var (
	AllowedAudioTypes = []string{"audio/wav", "audio/x-wav", "audio/mpeg"}
	AllowedVideoTypes = []string{"video/mp4", "image/jpeg", "image/png"}
)

const (
	// audioScore stands in for a real audio model.
	audioScore = 0.75
	// darkFrameScore and brightFrameScore are returned depending on the
	// mean channel value of the decoded frame.
	darkFrameScore   = 0.6
	brightFrameScore = 0.2
	darkThreshold    = 100
)

// ErrUndecodableVideo is returned when the video part is not a decodable frame.
var ErrUndecodableVideo = errors.New("unable to decode image/video")

// MediaKind names an upload part.
type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

// MediaError rejects an upload before analysis.
type MediaError struct {
	Kind   MediaKind
	Status int
	Detail string
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Media is one uploaded file.
type Media struct {
	ContentType string
	Size        int64
	Data        []byte
}

// Report is the analysis result returned to callers.
type Report struct {
	Alert      bool           `json:"alert"`
	Scores     ScorePair      `json:"scores"`
	Thresholds ScorePair      `json:"thresholds"`
	Metadata   ReportMetadata `json:"metadata"`
}

// ScorePair holds one value per modality.
type ScorePair struct {
	Audio float64 `json:"audio"`
	Video float64 `json:"video"`
}

// ReportMetadata echoes the uploaded content types.
type ReportMetadata struct {
	AudioType string `json:"audio_type"`
	VideoType string `json:"video_type"`
}

// AnalysisConfig holds the scoring thresholds and upload limits.
type AnalysisConfig struct {
	MinAudioScore float64
	MinVideoScore float64
	MaxFileSize   int64
}

// AnalysisService scores uploads and raises alerts.
type AnalysisService struct {
	cfg       AnalysisConfig
	publisher alerts.Publisher
	logger    *slog.Logger
	metrics   metrics.Recorder
	now       func() time.Time
}

// NewAnalysisService creates a new AnalysisService. publisher may be nil.
func NewAnalysisService(cfg AnalysisConfig, publisher alerts.Publisher, logger *slog.Logger, recorder metrics.Recorder) *AnalysisService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AnalysisService{
		cfg:       cfg,
		publisher: publisher,
		logger:    logger,
		metrics:   recorder,
		now:       time.Now,
	}
}

// Thresholds returns the configured alert thresholds.
func (s *AnalysisService) Thresholds() ScorePair {
	return ScorePair{Audio: s.cfg.MinAudioScore, Video: s.cfg.MinVideoScore}
}

// ValidateMedia checks content type and size of an upload.
func (s *AnalysisService) ValidateMedia(kind MediaKind, m Media) error {
	allowed := AllowedAudioTypes
	label := "Type audio non supporté"
	if kind == MediaVideo {
		allowed = AllowedVideoTypes
		label = "Type vidéo/image non supporté"
	}

	if !slices.Contains(allowed, m.ContentType) {
		return &MediaError{
			Kind:   kind,
			Status: http.StatusBadRequest,
			Detail: fmt.Sprintf("%s. Types autorisés: %v", label, allowed),
		}
	}

	if m.Size > s.cfg.MaxFileSize {
		return &MediaError{
			Kind:   kind,
			Status: http.StatusRequestEntityTooLarge,
			Detail: fmt.Sprintf("Fichier trop volumineux. Taille max: %d bytes", s.cfg.MaxFileSize),
		}
	}

	return nil
}

// Analyze validates both uploads, scores them and publishes an alert when
// either score crosses its threshold. Publishing failures are logged and
// do not fail the analysis.
func (s *AnalysisService) Analyze(ctx context.Context, audio, video Media) (*Report, error) {
	if err := s.ValidateMedia(MediaAudio, audio); err != nil {
		return nil, err
	}
	aScore := audioScore

	if err := s.ValidateMedia(MediaVideo, video); err != nil {
		return nil, err
	}
	vScore, err := scoreFrame(video.Data)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Alert: aScore > s.cfg.MinAudioScore || vScore > s.cfg.MinVideoScore,
		Scores: ScorePair{
			Audio: round2(aScore),
			Video: round2(vScore),
		},
		Thresholds: s.Thresholds(),
		Metadata: ReportMetadata{
			AudioType: audio.ContentType,
			VideoType: video.ContentType,
		},
	}

	if report.Alert {
		s.raise(ctx, report.Scores)
	}

	return report, nil
}

func (s *AnalysisService) raise(ctx context.Context, scores ScorePair) {
	if s.publisher == nil {
		return
	}
	a := alerts.New(alerts.Scores{Audio: scores.Audio, Video: scores.Video}, s.now())
	if err := s.publisher.Publish(ctx, a); err != nil {
		s.metrics.IncAlertPublished("failed")
		s.logger.Error("failed to publish alert", "alert_id", a.ID, "error", err)
		return
	}
	s.metrics.IncAlertPublished("success")
	s.logger.Info("alert_published", "alert_id", a.ID, "audio", scores.Audio, "video", scores.Video)
}

// scoreFrame decodes a still frame and scores it by mean channel brightness.
func scoreFrame(data []byte) (float64, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUndecodableVideo, err)
	}
	if meanChannel(img) < darkThreshold {
		return darkFrameScore, nil
	}
	return brightFrameScore, nil
}

// meanChannel is the mean of the 8-bit R, G and B values over all pixels.
// Alpha is ignored.
func meanChannel(img image.Image) float64 {
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}

	var sum uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			sum += uint64(c.R) + uint64(c.G) + uint64(c.B)
		}
	}
	return float64(sum) / float64(3*n)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
