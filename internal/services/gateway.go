package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/ecohabit-ai/ecohabit-backend/internal/database"
	"github.com/ecohabit-ai/ecohabit-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrProfileNotFound is returned by a RowStore when no row exists for the
// given identity.
var ErrProfileNotFound = errors.New("profile not found")

// RowStore is per-identity remote document storage: one profile row per user.
type RowStore interface {
	Get(ctx context.Context, id string) (models.Profile, error)
	Upsert(ctx context.Context, id string, p models.Profile) error
}

// Gateway abstracts where profile state lives. Authenticated sessions with a
// configured remote store route to it; everything else routes to the local
// file store. Load never fails: any missing row, malformed blob, or
// transport error yields the default profile. Save failures are logged, not
// surfaced.
type Gateway struct {
	remote RowStore // nil when no remote store is configured
	local  *LocalStore
}

func NewGateway(remote RowStore, local *LocalStore) *Gateway {
	return &Gateway{remote: remote, local: local}
}

// Load fetches the profile for sess. The caller always receives a fully
// initialized profile, never an error.
func (g *Gateway) Load(ctx context.Context, sess Session) models.Profile {
	if g.remote != nil && sess.Kind == SessionAuthenticated {
		p, err := g.remote.Get(ctx, sess.ID)
		if err == nil {
			return p
		}
		if !errors.Is(err, ErrProfileNotFound) {
			log.Printf("profile load failed for %s, using defaults: %v", sess.ID, err)
		}
		return models.DefaultProfile(time.Now().UnixMilli())
	}
	return g.local.Load(sess.ID)
}

// Save persists the profile for sess. Errors are logged and swallowed; the
// next mutation re-triggers the write cycle, so data is delayed, not lost.
func (g *Gateway) Save(ctx context.Context, sess Session, p models.Profile) {
	var err error
	if g.remote != nil && sess.Kind == SessionAuthenticated {
		err = g.remote.Upsert(ctx, sess.ID, p)
	} else {
		err = g.local.Save(sess.ID, p)
	}
	if err != nil {
		log.Printf("profile save failed for %s: %v", sess.ID, err)
	}
}

// profileRow is the MongoDB document shape: the whole profile as a single
// embedded document, last-writer-wins.
type profileRow struct {
	ID        string         `bson:"_id"`
	State     models.Profile `bson:"state"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

// MongoRowStore stores profile rows in the "profiles" collection.
type MongoRowStore struct{}

func NewMongoRowStore() *MongoRowStore { return &MongoRowStore{} }

func (m *MongoRowStore) collection() *mongo.Collection {
	return database.DB.Collection("profiles")
}

func (m *MongoRowStore) Get(ctx context.Context, id string) (models.Profile, error) {
	var row profileRow
	err := m.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&row)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Profile{}, ErrProfileNotFound
		}
		return models.Profile{}, err
	}
	return row.State, nil
}

func (m *MongoRowStore) Upsert(ctx context.Context, id string, p models.Profile) error {
	row := profileRow{ID: id, State: p, UpdatedAt: time.Now().UTC()}
	opts := options.Replace().SetUpsert(true)
	_, err := m.collection().ReplaceOne(ctx, bson.M{"_id": id}, row, opts)
	return err
}
