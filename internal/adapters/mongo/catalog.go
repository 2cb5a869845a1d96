// Package mongo backs the metadata port with catalog documents replicated
// from the catalog service. Lookups here only enrich notifications and
// listings; failures degrade display fields, nothing more.
package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/eventura/booking-service/internal/booking"
	"github.com/eventura/booking-service/internal/domain"
	"github.com/eventura/booking-service/internal/observability"
)

type Catalog struct {
	movies *mongo.Collection
	halls  *mongo.Collection
	shows  *mongo.Collection
	logger observability.Logger
}

func NewCatalog(db *mongo.Database, logger observability.Logger) *Catalog {
	return &Catalog{
		movies: db.Collection("movies"),
		halls:  db.Collection("halls"),
		shows:  db.Collection("shows"),
		logger: logger,
	}
}

type movieDoc struct {
	ID    uuid.UUID `bson:"_id"`
	Title string    `bson:"title"`
}

type hallDoc struct {
	ID   uuid.UUID `bson:"_id"`
	Name string    `bson:"name"`
}

type showDoc struct {
	ID        uuid.UUID `bson:"_id"`
	MovieID   uuid.UUID `bson:"movie_id"`
	StartTime time.Time `bson:"start_time"`
}

func (c *Catalog) MovieTitle(ctx context.Context, movieID uuid.UUID) (string, error) {
	var doc movieDoc
	err := c.movies.FindOne(ctx, bson.M{"_id": movieID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return "", errors.Wrapf(domain.ErrNotFound, "movie %s", movieID)
	}
	if err != nil {
		return "", errors.Wrap(err, "loading movie")
	}
	return doc.Title, nil
}

func (c *Catalog) HallName(ctx context.Context, hallID uuid.UUID) (string, error) {
	var doc hallDoc
	err := c.halls.FindOne(ctx, bson.M{"_id": hallID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return "", errors.Wrapf(domain.ErrNotFound, "hall %s", hallID)
	}
	if err != nil {
		return "", errors.Wrap(err, "loading hall")
	}
	return doc.Name, nil
}

func (c *Catalog) Show(ctx context.Context, showID uuid.UUID) (*booking.ShowInfo, error) {
	var doc showDoc
	err := c.shows.FindOne(ctx, bson.M{"_id": showID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, errors.Wrapf(domain.ErrNotFound, "show %s", showID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "loading show")
	}
	return &booking.ShowInfo{MovieID: doc.MovieID, StartTime: doc.StartTime}, nil
}
