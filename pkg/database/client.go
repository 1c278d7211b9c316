package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const generationsCollection = "generations"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("generation not found")

// Repository stores generation history.
type Repository interface {
	SaveGeneration(ctx context.Context, rec GenerationRecord) (string, error)
	UpdateVideoURL(ctx context.Context, id, videoURL string) error
	GetGeneration(ctx context.Context, id string) (*GenerationRecord, error)
	ListGenerations(ctx context.Context, limit int) ([]GenerationRecord, error)
}

type Client struct {
	fs     *firestore.Client
	logger *slog.Logger
}

func NewClient(ctx context.Context, projectID, databaseID string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	logger.Info("initializing firestore", "project", projectID, "database", databaseID)

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return &Client{fs: client, logger: logger.With("component", "database")}, nil
}

// Close closes the Firestore client.
func (c *Client) Close() error {
	return c.fs.Close()
}

// -- Models --

type GenerationRecord struct {
	ID          string    `firestore:"id" json:"id"`
	Query       string    `firestore:"query" json:"query"`
	Location    string    `firestore:"location" json:"location"`
	State       string    `firestore:"state" json:"state"`
	Weather     string    `firestore:"weather" json:"weather"`
	Hour        int       `firestore:"hour" json:"hour"`
	Bucket      string    `firestore:"bucket" json:"bucket"`
	BeeName     string    `firestore:"bee_name" json:"beeName"`
	Flower      string    `firestore:"flower" json:"flower"`
	SpeciesName string    `firestore:"species_name" json:"speciesName"`
	Fact        string    `firestore:"fact" json:"fact"`
	ImageURL    string    `firestore:"image_url" json:"imageUrl"`
	VideoURL    string    `firestore:"video_url" json:"videoUrl"`
	CreatedAt   time.Time `firestore:"created_at" json:"createdAt"`
}

// prepare fills the ID and timestamp of a new record.
func prepare(rec GenerationRecord, now time.Time) GenerationRecord {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	return rec
}

// -- Methods --

// SaveGeneration writes rec, assigning an ID when it has none.
func (c *Client) SaveGeneration(ctx context.Context, rec GenerationRecord) (string, error) {
	rec = prepare(rec, time.Now())
	if _, err := c.fs.Collection(generationsCollection).Doc(rec.ID).Set(ctx, rec); err != nil {
		return "", fmt.Errorf("failed to save generation: %w", err)
	}
	return rec.ID, nil
}

// UpdateVideoURL attaches an animation to an existing record.
func (c *Client) UpdateVideoURL(ctx context.Context, id, videoURL string) error {
	_, err := c.fs.Collection(generationsCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "video_url", Value: videoURL},
	})
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

// GetGeneration retrieves a record by ID.
func (c *Client) GetGeneration(ctx context.Context, id string) (*GenerationRecord, error) {
	doc, err := c.fs.Collection(generationsCollection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec GenerationRecord
	if err := doc.DataTo(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListGenerations returns the newest records first. limit <= 0 returns everything.
func (c *Client) ListGenerations(ctx context.Context, limit int) ([]GenerationRecord, error) {
	q := c.fs.Collection(generationsCollection).OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	iter := q.Documents(ctx)
	defer iter.Stop()

	var records []GenerationRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var rec GenerationRecord
		if err := doc.DataTo(&rec); err != nil {
			c.logger.Warn("failed to parse generation doc", "id", doc.Ref.ID, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

var _ Repository = (*Client)(nil)
