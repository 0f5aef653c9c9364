// Package mongo stores transactions as documents in a MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"moneymanager/internal/core"
	"moneymanager/internal/storage"
)

const collectionName = "transactions"

var _ storage.TransactionStore = (*Store)(nil)

type document struct {
	ID          string               `bson:"_id"`
	UserID      string               `bson:"userId"`
	Type        string               `bson:"type"`
	Amount      primitive.Decimal128 `bson:"amount"`
	Category    string               `bson:"category"`
	Division    string               `bson:"division"`
	Account     string               `bson:"account"`
	Description string               `bson:"description"`
	Date        time.Time            `bson:"date"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
	TransferID  string               `bson:"transferId,omitempty"`
}

func toDocument(tx core.Transaction) (document, error) {
	amount, err := primitive.ParseDecimal128(tx.Amount.String())
	if err != nil {
		return document{}, fmt.Errorf("%w: %v", core.ErrInvalidAmount, err)
	}
	return document{
		ID:          tx.ID,
		UserID:      tx.UserID,
		Type:        string(tx.Type),
		Amount:      amount,
		Category:    tx.Category,
		Division:    string(tx.Division),
		Account:     string(tx.Account),
		Description: tx.Description,
		Date:        tx.Date,
		CreatedAt:   tx.CreatedAt,
		UpdatedAt:   tx.UpdatedAt,
		TransferID:  tx.TransferID,
	}, nil
}

func (d document) transaction() (core.Transaction, error) {
	amount, err := decimal.NewFromString(d.Amount.String())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %s has amount %q", core.ErrMalformedRecord, d.ID, d.Amount.String())
	}
	return core.Transaction{
		ID:          d.ID,
		UserID:      d.UserID,
		Type:        core.TxType(d.Type),
		Amount:      amount,
		Category:    d.Category,
		Division:    core.Division(d.Division),
		Account:     core.Account(d.Account),
		Description: d.Description,
		Date:        d.Date,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		TransferID:  d.TransferID,
	}, nil
}

type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New connects to uri, selects database and makes sure the indexes exist.
func New(ctx context.Context, uri, database string, opts ...Option) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &Store{
		client: client,
		coll:   client.Database(database).Collection(collectionName),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "type", Value: 1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "transferId", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx = storage.Stamp(tx, s.now())
	doc, err := toDocument(tx)
	if err != nil {
		return core.Transaction{}, err
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return tx, nil
}

// CreateTransfer inserts both legs in one ordered batch. Without a replica set
// there is no multi-document transaction, so a partial batch is undone by
// deleting every document carrying the transfer id.
func (s *Store) CreateTransfer(ctx context.Context, out, in core.Transaction) ([]core.Transaction, error) {
	if err := storage.CheckTransferPair(out, in); err != nil {
		return nil, err
	}
	now := s.now()
	out = storage.Stamp(out, now)
	in = storage.Stamp(in, now)

	docs := make([]any, 0, 2)
	for _, leg := range []core.Transaction{out, in} {
		doc, err := toDocument(leg)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	if _, err := s.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		_, delErr := s.coll.DeleteMany(context.WithoutCancel(ctx), bson.D{
			{Key: "userId", Value: out.UserID},
			{Key: "transferId", Value: out.TransferID},
		})
		if delErr != nil {
			return nil, fmt.Errorf("%w: insert: %v; compensate: %v", storage.ErrIncompleteTransfer, err, delErr)
		}
		return nil, fmt.Errorf("%w: insert: %v", storage.ErrIncompleteTransfer, err)
	}
	return []core.Transaction{out, in}, nil
}

func (s *Store) Get(ctx context.Context, userID, id string) (core.Transaction, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}, {Key: "userId", Value: userID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return doc.transaction()
}

func (s *Store) Find(ctx context.Context, q core.Query) ([]core.Transaction, error) {
	cur, err := s.coll.Find(ctx, filter(q), findOptions(q))
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	defer cur.Close(ctx)

	var txs []core.Transaction
	for cur.Next(ctx) {
		var doc document
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode transaction: %w", err)
		}
		tx, err := doc.transaction()
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, cur.Err()
}

func (s *Store) Count(ctx context.Context, q core.Query) (int, error) {
	n, err := s.coll.CountDocuments(ctx, filter(q))
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return int(n), nil
}

func (s *Store) Update(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	amount, err := primitive.ParseDecimal128(tx.Amount.String())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %v", core.ErrInvalidAmount, err)
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "type", Value: string(tx.Type)},
		{Key: "amount", Value: amount},
		{Key: "category", Value: tx.Category},
		{Key: "division", Value: string(tx.Division)},
		{Key: "account", Value: string(tx.Account)},
		{Key: "description", Value: tx.Description},
		{Key: "date", Value: tx.Date},
		{Key: "updatedAt", Value: s.now()},
	}}}

	var doc document
	err = s.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: tx.ID}, {Key: "userId", Value: tx.UserID}},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %s: %w", tx.ID, err)
	}
	return doc.transaction()
}

func (s *Store) Delete(ctx context.Context, userID, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}, {Key: "userId", Value: userID}})
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return core.ErrNotFound
	}
	return nil
}

func filter(q core.Query) bson.D {
	f := bson.D{}
	if q.UserID != "" {
		f = append(f, bson.E{Key: "userId", Value: q.UserID})
	}
	if q.Range != nil {
		f = append(f, bson.E{Key: "date", Value: bson.D{
			{Key: "$gte", Value: q.Range.Start},
			{Key: "$lte", Value: q.Range.End},
		}})
	}
	if q.Filters.Division != "" {
		f = append(f, bson.E{Key: "division", Value: string(q.Filters.Division)})
	}
	if q.Filters.Category != "" {
		f = append(f, bson.E{Key: "category", Value: q.Filters.Category})
	}
	if q.Filters.Account != "" {
		f = append(f, bson.E{Key: "account", Value: string(q.Filters.Account)})
	}
	if q.Type != "" {
		f = append(f, bson.E{Key: "type", Value: string(q.Type)})
	}
	if q.TransfersOnly {
		f = append(f, bson.E{Key: "transferId", Value: bson.D{{Key: "$exists", Value: true}, {Key: "$ne", Value: ""}}})
	}
	return f
}

func findOptions(q core.Query) *options.FindOptions {
	dir := -1
	if q.Sort == core.DateAsc {
		dir = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: dir}, {Key: "_id", Value: dir}})
	if q.Skip > 0 {
		opts.SetSkip(int64(q.Skip))
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	return opts
}
