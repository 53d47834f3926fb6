package mock

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tfecatalog/tfe-catalog/internal/tfe"
)

const (
	workspacesCollection = "workspaces"
	resourcesCollection  = "resources"
)

// resourceDoc is a resource as stored in MongoDB, tagged with its workspace.
type resourceDoc struct {
	ID          string                 `bson:"_id"`
	WorkspaceID string                 `bson:"workspace_id"`
	Seq         int                    `bson:"seq"`
	Type        string                 `bson:"type"`
	Attributes  map[string]interface{} `bson:"attributes"`
}

// MongoStore reads the dataset from MongoDB.
type MongoStore struct {
	client     *mongo.Client
	workspaces *mongo.Collection
	resources  *mongo.Collection
}

// NewMongoStore connects to uri and verifies the connection.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	clientOpts := options.Client().ApplyURI(uri)
	if clientOpts.ConnectTimeout == nil {
		clientOpts.SetConnectTimeout(10 * time.Second)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}

	db := client.Database(dbName)
	return &MongoStore{
		client:     client,
		workspaces: db.Collection(workspacesCollection),
		resources:  db.Collection(resourcesCollection),
	}, nil
}

// Seed replaces the stored dataset with ds.
func (s *MongoStore) Seed(ctx context.Context, ds Dataset) error {
	if _, err := s.workspaces.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to clear workspaces: %w", err)
	}
	if _, err := s.resources.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to clear resources: %w", err)
	}

	if len(ds.Workspaces) > 0 {
		docs := make([]interface{}, 0, len(ds.Workspaces))
		for _, ws := range ds.Workspaces {
			docs = append(docs, ws)
		}
		if _, err := s.workspaces.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("failed to insert workspaces: %w", err)
		}
	}

	for wsID, items := range ds.Resources {
		if len(items) == 0 {
			continue
		}
		docs := make([]interface{}, 0, len(items))
		for i, item := range items {
			docs = append(docs, resourceDoc{
				ID:          item.ID,
				WorkspaceID: wsID,
				Seq:         i,
				Type:        item.Type,
				Attributes:  item.Attributes,
			})
		}
		if _, err := s.resources.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("failed to insert resources of %s: %w", wsID, err)
		}
	}

	_, err := s.resources.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "workspace_id", Value: 1}, {Key: "seq", Value: 1}},
	})
	return err
}

func (s *MongoStore) Workspaces(ctx context.Context) ([]tfe.ResourceObject, error) {
	cursor, err := s.workspaces.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []tfe.ResourceObject
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) Resources(ctx context.Context, workspaceID string) ([]tfe.ResourceObject, bool, error) {
	n, err := s.workspaces.CountDocuments(ctx, bson.M{"_id": workspaceID})
	if err != nil {
		return nil, false, err
	}
	if n == 0 {
		return nil, false, nil
	}

	cursor, err := s.resources.Find(ctx, bson.M{"workspace_id": workspaceID}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, false, err
	}
	defer cursor.Close(ctx)

	var docs []resourceDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, false, err
	}
	out := make([]tfe.ResourceObject, 0, len(docs))
	for _, d := range docs {
		out = append(out, tfe.ResourceObject{ID: d.ID, Type: d.Type, Attributes: d.Attributes})
	}
	return out, true, nil
}

// Close closes the MongoDB connection.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
