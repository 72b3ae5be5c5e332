package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tradingpost/internal/market"
)

const (
	defaultMongoDatabase   = "tradingpost"
	defaultMongoCollection = "inventory"
	inventoryDocumentID    = "warehouse"
)

// inventoryDocument is the single document holding the whole inventory.
type inventoryDocument struct {
	ID        string           `bson:"_id"`
	Products  map[string]int64 `bson:"products"`
	UpdatedAt time.Time        `bson:"updated_at"`
}

// MongoPersister stores the inventory as one MongoDB document that is
// replaced on every save.
type MongoPersister struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoPersister connects to uri and verifies the connection.
// Empty database or collection names fall back to tradingpost/inventory.
func NewMongoPersister(ctx context.Context, uri, database, collection string) (*MongoPersister, error) {
	if database == "" {
		database = defaultMongoDatabase
	}
	if collection == "" {
		collection = defaultMongoCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", uri, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping %s: %w", uri, err)
	}

	return &MongoPersister{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}, nil
}

// Load reads the inventory document. A missing document is an empty inventory.
func (p *MongoPersister) Load(ctx context.Context) (map[market.Product]int64, error) {
	var doc inventoryDocument
	err := p.coll.FindOne(ctx, bson.M{"_id": inventoryDocumentID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return make(map[market.Product]int64), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory document: %w", err)
	}
	return fromDocument(doc)
}

// Save replaces the inventory document, creating it if needed.
func (p *MongoPersister) Save(ctx context.Context, inventory map[market.Product]int64) error {
	doc := toDocument(inventory, time.Now())
	_, err := p.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to write inventory document: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (p *MongoPersister) Close(ctx context.Context) error {
	return p.client.Disconnect(ctx)
}

func toDocument(inventory map[market.Product]int64, now time.Time) inventoryDocument {
	products := make(map[string]int64, len(inventory))
	for product, qty := range inventory {
		products[product.String()] = qty
	}
	return inventoryDocument{
		ID:        inventoryDocumentID,
		Products:  products,
		UpdatedAt: now.UTC(),
	}
}

func fromDocument(doc inventoryDocument) (map[market.Product]int64, error) {
	inventory := make(map[market.Product]int64, len(doc.Products))
	for name, qty := range doc.Products {
		product, err := market.ParseProduct(name)
		if err != nil {
			return nil, err
		}
		if qty < 0 {
			return nil, fmt.Errorf("negative quantity %d for %s", qty, product)
		}
		inventory[product] = qty
	}
	return inventory, nil
}
