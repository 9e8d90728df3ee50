// Package mongostore keeps pages in a MongoDB collection, one document
// per page keyed by the page id.
package mongostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"pagebuilder/internal/domain"
)

const pagesCollection = "pages"

// pageDoc is the stored shape. The tree is kept as its JSON encoding so
// prop values come back as the same plain maps and slices every store
// produces, rather than BSON documents.
type pageDoc struct {
	ID          string    `bson:"_id"`
	ProjectID   string    `bson:"projectId"`
	Slug        string    `bson:"slug"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	Keywords    string    `bson:"keywords"`
	IsPublic    bool      `bson:"isPublic"`
	IsHomepage  bool      `bson:"isHomepage"`
	LayoutJSON  string    `bson:"layoutJson"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

// Store implements domain.PageCatalog on MongoDB.
type Store struct {
	client *mongo.Client
	pages  *mongo.Collection
}

// New connects to uri and uses database dbName.
func New(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	log.Printf("[STORE] mongo page store on database %s", dbName)
	return &Store{client: client, pages: client.Database(dbName).Collection(pagesCollection)}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) CreatePage(ctx context.Context, p *domain.Page) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	doc, err := toDoc(p)
	if err != nil {
		return err
	}
	if _, err := s.pages.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	return nil
}

func (s *Store) LoadPage(ctx context.Context, id string) (*domain.Page, error) {
	var doc pageDoc
	err := s.pages.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("load page %s: %w", id, domain.ErrPageNotFound)
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "load", PageID: id, Err: err}
	}
	return fromDoc(&doc)
}

// SavePage replaces the stored document. It does not upsert.
func (s *Store) SavePage(ctx context.Context, id string, p *domain.Page) error {
	p.UpdatedAt = time.Now().UTC()
	doc, err := toDoc(p)
	if err != nil {
		return &domain.PersistenceError{Op: "save", PageID: id, Err: err}
	}
	doc.ID = id
	res, err := s.pages.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return &domain.PersistenceError{Op: "save", PageID: id, Err: err}
	}
	if res.MatchedCount == 0 {
		return &domain.PersistenceError{Op: "save", PageID: id, Err: domain.ErrPageNotFound}
	}
	return nil
}

func (s *Store) ListPages(ctx context.Context, projectID string) ([]domain.Page, error) {
	opts := options.Find().SetSort(bson.D{{Key: "isHomepage", Value: -1}, {Key: "slug", Value: 1}})
	cur, err := s.pages.Find(ctx, bson.M{"projectId": projectID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer cur.Close(ctx)

	var pages []domain.Page
	for cur.Next(ctx) {
		var doc pageDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode page: %w", err)
		}
		p, err := fromDoc(&doc)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *p)
	}
	return pages, cur.Err()
}

func (s *Store) DeletePage(ctx context.Context, id string) error {
	res, err := s.pages.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return &domain.PersistenceError{Op: "delete", PageID: id, Err: err}
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete page %s: %w", id, domain.ErrPageNotFound)
	}
	return nil
}

// ── conversion ─────────────────────────────────────────────

func toDoc(p *domain.Page) (*pageDoc, error) {
	layout := p.LayoutData
	if layout.Content == nil {
		layout.Content = domain.Tree{}
	}
	b, err := json.Marshal(layout)
	if err != nil {
		return nil, fmt.Errorf("encode layout: %w", err)
	}
	return &pageDoc{
		ID:          p.ID,
		ProjectID:   p.ProjectID,
		Slug:        p.Slug,
		Title:       p.Title,
		Description: p.Description,
		Keywords:    p.Keywords,
		IsPublic:    p.IsPublic,
		IsHomepage:  p.IsHomepage,
		LayoutJSON:  string(b),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

func fromDoc(d *pageDoc) (*domain.Page, error) {
	p := &domain.Page{
		ID:          d.ID,
		ProjectID:   d.ProjectID,
		Slug:        d.Slug,
		Title:       d.Title,
		Description: d.Description,
		Keywords:    d.Keywords,
		IsPublic:    d.IsPublic,
		IsHomepage:  d.IsHomepage,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.LayoutJSON != "" {
		if err := json.Unmarshal([]byte(d.LayoutJSON), &p.LayoutData); err != nil {
			return nil, fmt.Errorf("decode layout of page %s: %w", d.ID, err)
		}
	}
	if p.LayoutData.Content == nil {
		p.LayoutData.Content = domain.Tree{}
	}
	return p, nil
}
