package finder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bee-finder/pkg/apperr"
	"bee-finder/pkg/asset"
	"bee-finder/pkg/genai"
	"bee-finder/pkg/location"
	"bee-finder/pkg/scene"
	"bee-finder/pkg/session"
	"bee-finder/pkg/storage"
	"bee-finder/pkg/weather"
)

// OfferedBees is how many bees a session offers to choose from.
const OfferedBees = 3

const (
	msgSessionNotFound = "That session does not exist. Please start again."
	msgWrongStep       = "That step is not available right now."
	msgBeeNotOffered   = "Please choose one of the bees on offer."
	msgNoImage         = "There is no bee picture to work with yet."
)

// SessionView is the client-facing shape of a session.
type SessionView struct {
	ID        string               `json:"id"`
	State     session.State        `json:"state"`
	Animation session.State        `json:"animationState"`
	Location  *location.Resolved   `json:"location,omitempty"`
	Weather   *weather.Snapshot    `json:"weather,omitempty"`
	Bees      []scene.BeeCharacter `json:"bees,omitempty"`
	Result    *SessionResult       `json:"result,omitempty"`
	Error     string               `json:"error,omitempty"`
}

type SessionResult struct {
	GenerationID string  `json:"generationId,omitempty"`
	BeeName      string  `json:"beeName"`
	Flower       string  `json:"flower"`
	BeeMessage   string  `json:"beeMessage"`
	Fact         string  `json:"fact"`
	ImageURL     string  `json:"imageUrl"`
	DownloadName string  `json:"downloadName"`
	VideoURL     *string `json:"videoUrl"`
}

func viewOf(s *session.Session) *SessionView {
	v := &SessionView{ID: s.ID, State: s.Flow, Animation: s.Animation, Bees: s.Bees, Error: s.LastError}
	if s.Location.DisplayName != "" {
		loc, w := s.Location, s.Weather
		v.Location, v.Weather = &loc, &w
	}
	if r := s.Result; r != nil && r.Image != nil {
		v.Result = &SessionResult{
			GenerationID: r.GenerationID,
			BeeName:      r.BeeName,
			Flower:       r.Flower,
			BeeMessage:   r.Message,
			Fact:         r.Fact,
			ImageURL:     r.Image.URL,
			DownloadName: asset.ImageFileName(r.BeeName, r.Image.MIMEType),
		}
		if r.Video != nil {
			u := r.Video.URL
			v.Result.VideoURL = &u
		}
	}
	return v
}

func sessionErr(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return apperr.Wrap(apperr.NotFound, msgSessionNotFound, err)
	case errors.Is(err, session.ErrInvalidTransition):
		return apperr.Wrap(apperr.InvalidArgument, msgWrongStep, err)
	}
	return err
}

// Session returns the current view of a session.
func (s *Service) Session(id string) (*SessionView, error) {
	sess, err := s.Sessions.Get(id)
	if err != nil {
		return nil, sessionErr(err)
	}
	return viewOf(sess), nil
}

// failSession moves the session into its error state and returns the classified error.
func (s *Service) failSession(id string, cause error, sendStatus StatusCallback) error {
	e := apperr.From(cause)
	sess, err := s.Sessions.Update(id, func(sess *session.Session) error {
		if err := sess.Fire(session.Fail); err != nil {
			return err
		}
		sess.LastError = e.Message
		return nil
	})
	if err != nil {
		s.logger.Warn("could not record session failure", "session", id, "error", err)
	} else {
		sendStatus(EventState, string(sess.Flow))
	}
	sendStatus(EventError, e.Message)
	return e
}

// StartSession creates a session and resolves its location and weather.
func (s *Service) StartSession(ctx context.Context, q location.Query, sendStatus StatusCallback) (*SessionView, error) {
	if sendStatus == nil {
		sendStatus = noStatus
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	created := s.Sessions.Create()
	sess, err := s.Sessions.Update(created.ID, func(sess *session.Session) error {
		return sess.Fire(session.Submit)
	})
	if err != nil {
		return nil, sessionErr(err)
	}
	sendStatus(EventState, string(sess.Flow))

	c, err := s.LookupConditions(ctx, q, sendStatus)
	if err != nil {
		return nil, s.failSession(sess.ID, err, sendStatus)
	}

	bees := s.Picker.Bees(OfferedBees)
	sess, err = s.Sessions.Update(sess.ID, func(sess *session.Session) error {
		if err := sess.Fire(session.LocationReady); err != nil {
			return err
		}
		sess.Query = c.Query
		sess.Location = c.Location
		sess.Weather = c.Weather
		sess.Bees = bees
		return nil
	})
	if err != nil {
		return nil, sessionErr(err)
	}
	sendStatus(EventState, string(sess.Flow))
	s.logger.Info("session ready for bee choice", "session", sess.ID, "location", c.Location.DisplayName)
	return viewOf(sess), nil
}

// ChooseBee records the user's bee and creates its scene image. Image failures
// fail the step; there is no image-less result in this flow.
func (s *Service) ChooseBee(ctx context.Context, id, beeName string, sendStatus StatusCallback) (*SessionView, error) {
	if sendStatus == nil {
		sendStatus = noStatus
	}
	var bee scene.BeeCharacter
	sess, err := s.Sessions.Update(id, func(sess *session.Session) error {
		b, ok := sess.OfferedBee(beeName)
		if !ok && sess.Flow == session.SelectBee {
			return apperr.New(apperr.InvalidArgument, msgBeeNotOffered)
		}
		if err := sess.Fire(session.ChooseBee); err != nil {
			return err
		}
		bee = b
		return nil
	})
	if err != nil {
		return nil, sessionErr(err)
	}
	sendStatus(EventState, string(sess.Flow))

	c := Conditions{Query: sess.Query, Location: sess.Location, Weather: sess.Weather}
	res, err := s.createBee(ctx, c, bee, sendStatus)
	if err != nil {
		return nil, s.failSession(id, err, sendStatus)
	}

	sess, err = s.Sessions.Update(id, func(sess *session.Session) error {
		if err := sess.Fire(session.ImageReady); err != nil {
			return err
		}
		sess.Result = res
		return nil
	})
	if err != nil {
		return nil, sessionErr(err)
	}
	sendStatus(EventState, string(sess.Flow))
	return viewOf(sess), nil
}

func (s *Service) createBee(ctx context.Context, c Conditions, bee scene.BeeCharacter, sendStatus StatusCallback) (*session.Result, error) {
	flower, sc := s.composeFor(c, bee.Name)
	s.logger.Info("creating bee scene", "bee", bee.Name, "flower", flower, "bucket", sc.Bucket)
	sendStatus(EventStatus, fmt.Sprintf("Painting %s on a %s...", bee.Name, flower))

	img, err := s.GenAI.GenerateImage(ctx, sc.Prompt)
	if err != nil {
		return nil, err
	}

	res := &session.Result{
		BeeName: bee.Name,
		Flower:  flower,
		Bucket:  sc.Bucket,
		Prompt:  sc.Prompt,
		Message: sc.Message,
		Fact:    s.Picker.Fact(),
		Image:   asset.New(img.Data, img.MIMEType),
	}

	hist := &Result{
		BeeName:  bee.Name,
		Fact:     res.Fact,
		Flower:   flower,
		Bucket:   sc.Bucket,
		ImageURL: s.storeCopy(ctx, img),
	}
	res.GenerationID = s.record(ctx, c, hist)
	return res, nil
}

// storeCopy uploads img when storage is configured and returns its public URL.
func (s *Service) storeCopy(ctx context.Context, img *genai.Image) *string {
	if s.Storage == nil {
		return nil
	}
	obj, err := s.Storage.Put(ctx, storage.ImagePath(s.now(), img.MIMEType), img.Data, img.MIMEType)
	if err != nil {
		s.logger.Warn("image upload failed", "error", err)
		return nil
	}
	return &obj.URL
}

// AnimateSession turns the session's image into a video. A failure returns the
// animation to idle so the user can try again.
func (s *Service) AnimateSession(ctx context.Context, id string, duration int, sendStatus StatusCallback) (*SessionView, error) {
	if sendStatus == nil {
		sendStatus = noStatus
	}
	sess, err := s.Sessions.Update(id, func(sess *session.Session) error {
		if sess.Result == nil || sess.Result.Image == nil {
			return apperr.New(apperr.InvalidArgument, msgNoImage)
		}
		return sess.FireAnimation(session.StartAnimation)
	})
	if err != nil {
		return nil, sessionErr(err)
	}
	sendStatus(EventState, string(sess.Animation))

	img := sess.Result.Image
	v, err := s.GenAI.Animate(ctx, genai.VideoRequest{
		Image:           &genai.Image{Data: img.Data, MIMEType: img.MIMEType},
		Prompt:          s.Picker.MotionPrompt(),
		DurationSeconds: genai.ClampDuration(duration),
		Progress:        func(m string) { sendStatus(EventProgress, m) },
	})
	if err == nil {
		return s.finishAnimation(ctx, id, sess.Result.GenerationID, s.videoAsset(ctx, v), sendStatus)
	}

	if errors.Is(err, genai.ErrResourceExhausted) {
		err = apperr.Wrap(apperr.Unavailable, msgVideoUnavailable, err)
	}
	e := apperr.From(err)
	if _, uerr := s.Sessions.Update(id, func(sess *session.Session) error {
		return sess.FireAnimation(session.Fail)
	}); uerr != nil {
		s.logger.Warn("could not reset animation", "session", id, "error", uerr)
	}
	sendStatus(EventState, string(session.AnimationIdle))
	sendStatus(EventError, e.Message)
	return nil, e
}

func (s *Service) finishAnimation(ctx context.Context, id, generationID string, video *asset.GeneratedAsset, sendStatus StatusCallback) (*SessionView, error) {
	sess, err := s.Sessions.Update(id, func(sess *session.Session) error {
		if err := sess.FireAnimation(session.Succeed); err != nil {
			return err
		}
		sess.Result.Video = video
		return nil
	})
	if err != nil {
		return nil, sessionErr(err)
	}
	if !strings.HasPrefix(video.URL, "data:") {
		s.recordVideo(ctx, generationID, video.URL)
	}
	sendStatus(EventState, string(sess.Animation))
	return viewOf(sess), nil
}

// videoAsset prefers a public URL and falls back to an inline data URI.
func (s *Service) videoAsset(ctx context.Context, v *genai.Video) *asset.GeneratedAsset {
	if v.URI != "" {
		return &asset.GeneratedAsset{MIMEType: v.MIMEType, URL: v.URI}
	}
	a := asset.New(v.Data, v.MIMEType)
	if s.Storage == nil {
		return a
	}
	url, err := s.publishVideo(ctx, v)
	if err != nil {
		s.logger.Warn("video upload failed, returning inline video", "error", err)
		return a
	}
	a.URL = url
	return a
}

// SessionImage returns the session's image with its download file name.
func (s *Service) SessionImage(id string) (*asset.GeneratedAsset, string, error) {
	sess, err := s.Sessions.Get(id)
	if err != nil {
		return nil, "", sessionErr(err)
	}
	if sess.Result == nil || sess.Result.Image == nil {
		return nil, "", apperr.New(apperr.NotFound, msgNoImage)
	}
	img := sess.Result.Image
	return img, asset.ImageFileName(sess.Result.BeeName, img.MIMEType), nil
}

// ResetSession returns a session to idle and clears everything it gathered.
func (s *Service) ResetSession(id string) (*SessionView, error) {
	sess, err := s.Sessions.Update(id, func(sess *session.Session) error {
		return sess.Fire(session.Reset)
	})
	if err != nil {
		return nil, sessionErr(err)
	}
	return viewOf(sess), nil
}
