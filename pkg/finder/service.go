package finder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"bee-finder/pkg/apperr"
	"bee-finder/pkg/database"
	"bee-finder/pkg/genai"
	"bee-finder/pkg/location"
	"bee-finder/pkg/scene"
	"bee-finder/pkg/session"
	"bee-finder/pkg/storage"
	"bee-finder/pkg/weather"
)

// -- Interfaces --

type WeatherService interface {
	Lookup(ctx context.Context, lat, lon string) (weather.Forecast, error)
}

type GenAIService interface {
	GenerateImage(ctx context.Context, prompt string) (*genai.Image, error)
	GenerateFacts(ctx context.Context, prompt string) (genai.Facts, error)
	Animate(ctx context.Context, req genai.VideoRequest) (*genai.Video, error)
}

type HistoryRepo interface {
	SaveGeneration(ctx context.Context, rec database.GenerationRecord) (string, error)
	UpdateVideoURL(ctx context.Context, id, videoURL string) error
}

// -- Service --

type Service struct {
	Locations location.Resolver
	Weather   WeatherService
	GenAI     GenAIService
	Storage   storage.Store
	History   HistoryRepo
	Picker    *scene.Picker
	Sessions  *session.Store

	// UseGCSURIs passes Cloud Storage images to the video model by gs:// URI.
	// Only the Vertex AI backend can read them.
	UseGCSURIs bool

	// ImageOrigins are the URL prefixes of published images that Video may fetch.
	ImageOrigins []string

	now    func() time.Time
	logger *slog.Logger
}

// NewService wires the pipeline. Storage and History may be nil.
func NewService(l location.Resolver, w WeatherService, g GenAIService, st storage.Store, h HistoryRepo, p *scene.Picker, logger *slog.Logger) *Service {
	if p == nil {
		p = scene.NewPicker(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Locations: l,
		Weather:   w,
		GenAI:     g,
		Storage:   st,
		History:   h,
		Picker:    p,
		Sessions:  session.NewStore(),
		now:       time.Now,
		logger:    logger.With("component", "finder"),
	}
}

// StatusCallback is a function that sends real-time updates to the client
type StatusCallback func(event string, data string)

func noStatus(string, string) {}

// Status events.
const (
	EventStatus   = "status"
	EventState    = "state"
	EventProgress = "progress"
	EventError    = "error"
)

// Conditions is what the pipeline knows before a bee is chosen.
type Conditions struct {
	Query    location.Query    `json:"-"`
	Location location.Resolved `json:"location"`
	Weather  weather.Snapshot  `json:"weather"`
}

// LookupConditions validates q, resolves it, then fetches the weather and local hour.
func (s *Service) LookupConditions(ctx context.Context, q location.Query, sendStatus StatusCallback) (Conditions, error) {
	if sendStatus == nil {
		sendStatus = noStatus
	}
	if err := q.Validate(); err != nil {
		return Conditions{}, err
	}

	s.logger.Info("looking up conditions", "query", q.String())
	sendStatus(EventStatus, "Finding your location...")

	loc, err := s.Locations.Resolve(ctx, q)
	if err != nil {
		s.logger.Warn("location lookup failed", "query", q.String(), "error", err)
		return Conditions{}, err
	}
	sendStatus(EventStatus, "Found location: "+loc.DisplayName)

	sendStatus(EventStatus, "Checking the local weather...")
	forecast, err := s.Weather.Lookup(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		s.logger.Warn("weather lookup failed", "location", loc.DisplayName, "error", err)
		return Conditions{}, err
	}
	snap, err := forecast.Snapshot(s.now())
	if err != nil {
		return Conditions{}, err
	}

	s.logger.Info("conditions resolved", "location", loc.DisplayName, "weather", snap.ShortDescription, "hour", snap.LocalHour)
	return Conditions{Query: q, Location: loc, Weather: snap}, nil
}

// composeFor picks a flower for the location and composes the scene for bee.
func (s *Service) composeFor(c Conditions, beeName string) (string, scene.Scene) {
	flower := s.Picker.Flower(c.Location.StateAbbreviation)
	return flower, scene.Compose(scene.Context{
		Location:           c.Location.DisplayName,
		WeatherDescription: c.Weather.ShortDescription,
		FlowerName:         flower,
		BeeName:            beeName,
		Hour:               c.Weather.LocalHour,
	})
}

// Result is the response of a single-request generation.
type Result struct {
	SpeciesName  string           `json:"speciesName"`
	Fact         string           `json:"fact"`
	ImageURL     *string          `json:"imageUrl"`
	BeeName      string           `json:"beeName"`
	BeeMessage   string           `json:"beeMessage"`
	Location     string           `json:"location"`
	Weather      weather.Snapshot `json:"weather"`
	GenerationID string           `json:"generationId,omitempty"`

	Flower string       `json:"-"`
	Bucket scene.Bucket `json:"-"`
	Prompt string       `json:"-"`
}

// Generate runs the whole pipeline in one go. Text and image generation run
// concurrently; a text failure fails the run while an image failure only leaves
// ImageURL nil.
func (s *Service) Generate(ctx context.Context, q location.Query, sendStatus StatusCallback) (*Result, error) {
	if sendStatus == nil {
		sendStatus = noStatus
	}
	m := session.NewMachine(session.Simple)
	fire := func(ev session.Event) {
		if err := m.Fire(ev); err != nil {
			s.logger.Error("unexpected state transition", "error", err)
			return
		}
		sendStatus(EventState, string(m.State()))
	}
	fail := func(err error) (*Result, error) {
		fire(session.Fail)
		e := apperr.From(err)
		sendStatus(EventError, e.Message)
		return nil, e
	}

	fire(session.Submit)

	c, err := s.LookupConditions(ctx, q, sendStatus)
	if err != nil {
		return fail(err)
	}

	bee := s.Picker.Bee()
	flower, sc := s.composeFor(c, bee.Name)
	s.logger.Info("scene composed", "bee", bee.Name, "flower", flower, "bucket", sc.Bucket)

	sendStatus(EventStatus, fmt.Sprintf("Painting %s in %s...", bee.Name, c.Location.DisplayName))

	var (
		facts    genai.Facts
		imageURL *string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		f, err := s.GenAI.GenerateFacts(gctx, sc.Prompt)
		if err != nil {
			return err
		}
		facts = f
		return nil
	})
	g.Go(func() error {
		imageURL = s.generateAndStoreImage(gctx, sc.Prompt)
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("text generation failed", "error", err)
		return fail(err)
	}

	res := &Result{
		SpeciesName: facts.SpeciesName,
		Fact:        facts.Fact,
		ImageURL:    imageURL,
		BeeName:     bee.Name,
		BeeMessage:  sc.Message,
		Location:    c.Location.DisplayName,
		Weather:     c.Weather,
		Flower:      flower,
		Bucket:      sc.Bucket,
		Prompt:      sc.Prompt,
	}
	res.GenerationID = s.record(ctx, c, res)

	fire(session.Succeed)
	return res, nil
}

// generateAndStoreImage returns nil on any failure; the caller degrades gracefully.
func (s *Service) generateAndStoreImage(ctx context.Context, prompt string) *string {
	img, err := s.GenAI.GenerateImage(ctx, prompt)
	if err != nil {
		s.logger.Warn("image generation failed, continuing without image", "error", err)
		return nil
	}
	if s.Storage == nil {
		s.logger.Warn("no storage configured, dropping generated image")
	}
	return s.storeCopy(ctx, img)
}

// record saves the run to history. Failures are logged and ignored.
func (s *Service) record(ctx context.Context, c Conditions, res *Result) string {
	if s.History == nil {
		return ""
	}
	rec := database.GenerationRecord{
		Query:       c.Query.String(),
		Location:    c.Location.DisplayName,
		State:       c.Location.StateAbbreviation,
		Weather:     c.Weather.ShortDescription,
		Hour:        c.Weather.LocalHour,
		Bucket:      string(res.Bucket),
		BeeName:     res.BeeName,
		Flower:      res.Flower,
		SpeciesName: res.SpeciesName,
		Fact:        res.Fact,
	}
	if res.ImageURL != nil {
		rec.ImageURL = *res.ImageURL
	}
	id, err := s.History.SaveGeneration(ctx, rec)
	if err != nil {
		s.logger.Warn("failed to save generation history", "error", err)
		return ""
	}
	return id
}

func (s *Service) recordVideo(ctx context.Context, generationID, url string) {
	if s.History == nil || generationID == "" || url == "" {
		return
	}
	if err := s.History.UpdateVideoURL(ctx, generationID, url); err != nil && !errors.Is(err, database.ErrNotFound) {
		s.logger.Warn("failed to save video url", "generation", generationID, "error", err)
	}
}
