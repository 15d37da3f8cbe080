package repository

import (
	"context"
	"time"

	"github.com/mutsasns/mutsasns/backend/go-services/internal/article"
	"github.com/mutsasns/mutsasns/backend/go-services/internal/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	articlesCollection = "articles"
	imagesCollection   = "article_images"
	commentsCollection = "comments"
	countersCollection = "counters"
)

// visible adds the soft-delete predicate to a filter. Every read and update
// in this file builds its filter through it.
func visible(f bson.M) bson.M {
	f["deleted"] = false
	return f
}

// MongoArticleRepo implements ArticleRepository on the "articles" collection.
// Ids come from the "articles" counter so ascending _id is creation order.
type MongoArticleRepo struct {
	col *mongo.Collection
	ids *database.Sequence
}

func NewMongoArticleRepo(db *mongo.Database) *MongoArticleRepo {
	col := db.Collection(articlesCollection)
	idx := mongo.IndexModel{Keys: bson.D{{Key: "username", Value: 1}, {Key: "deleted", Value: 1}, {Key: "_id", Value: 1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &MongoArticleRepo{col: col, ids: database.NewSequence(db.Collection(countersCollection), articlesCollection)}
}

func (m *MongoArticleRepo) Create(ctx context.Context, a *article.Article) error {
	id, err := m.ids.Next(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now
	_, err = m.col.InsertOne(ctx, a)
	return err
}

func (m *MongoArticleRepo) findOne(ctx context.Context, filter bson.M) (*article.Article, error) {
	var a article.Article
	if err := m.col.FindOne(ctx, visible(filter)).Decode(&a); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (m *MongoArticleRepo) Get(ctx context.Context, id int64) (*article.Article, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *MongoArticleRepo) GetOwned(ctx context.Context, id int64, username string) (*article.Article, error) {
	return m.findOne(ctx, bson.M{"_id": id, "username": username})
}

func (m *MongoArticleRepo) ListByOwner(ctx context.Context, username string, page, size int) ([]*article.Article, int64, error) {
	filter := visible(bson.M{"username": username})
	total, err := m.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(page) * int64(size)).
		SetLimit(int64(size))
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	out := []*article.Article{}
	for cur.Next(ctx) {
		var a article.Article
		if err := cur.Decode(&a); err != nil {
			return nil, 0, err
		}
		out = append(out, &a)
	}
	return out, total, cur.Err()
}

func (m *MongoArticleRepo) Update(ctx context.Context, a *article.Article) error {
	a.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"title":     a.Title,
		"content":   a.Content,
		"deleted":   a.Deleted,
		"deletedAt": a.DeletedAt,
		"updatedAt": a.UpdatedAt,
	}
	res, err := m.col.UpdateOne(ctx, visible(bson.M{"_id": a.ID}), bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MongoImageRepo implements ImageRepository on "article_images".
type MongoImageRepo struct {
	col *mongo.Collection
	ids *database.Sequence
}

func NewMongoImageRepo(db *mongo.Database) *MongoImageRepo {
	col := db.Collection(imagesCollection)
	idx := mongo.IndexModel{Keys: bson.D{{Key: "articleId", Value: 1}, {Key: "_id", Value: 1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &MongoImageRepo{col: col, ids: database.NewSequence(db.Collection(countersCollection), imagesCollection)}
}

func (m *MongoImageRepo) Create(ctx context.Context, img *article.Image) error {
	id, err := m.ids.Next(ctx)
	if err != nil {
		return err
	}
	img.ID = id
	img.CreatedAt = time.Now().UTC()
	_, err = m.col.InsertOne(ctx, img)
	return err
}

func (m *MongoImageRepo) Get(ctx context.Context, id int64) (*article.Image, error) {
	var img article.Image
	if err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&img); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &img, nil
}

func (m *MongoImageRepo) ListByArticle(ctx context.Context, articleID int64) ([]article.Image, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := m.col.Find(ctx, bson.M{"articleId": articleID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []article.Image{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MongoImageRepo) Delete(ctx context.Context, id int64) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MongoCommentRepo implements CommentRepository on "comments".
type MongoCommentRepo struct {
	col *mongo.Collection
	ids *database.Sequence
}

func NewMongoCommentRepo(db *mongo.Database) *MongoCommentRepo {
	col := db.Collection(commentsCollection)
	idx := mongo.IndexModel{Keys: bson.D{{Key: "articleId", Value: 1}, {Key: "deleted", Value: 1}, {Key: "_id", Value: 1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &MongoCommentRepo{col: col, ids: database.NewSequence(db.Collection(countersCollection), commentsCollection)}
}

func (m *MongoCommentRepo) Create(ctx context.Context, c *article.Comment) error {
	id, err := m.ids.Next(ctx)
	if err != nil {
		return err
	}
	c.ID = id
	c.CreatedAt = time.Now().UTC()
	_, err = m.col.InsertOne(ctx, c)
	return err
}

func (m *MongoCommentRepo) Get(ctx context.Context, id int64) (*article.Comment, error) {
	var c article.Comment
	if err := m.col.FindOne(ctx, visible(bson.M{"_id": id})).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (m *MongoCommentRepo) ListByArticle(ctx context.Context, articleID int64) ([]*article.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := m.col.Find(ctx, visible(bson.M{"articleId": articleID}), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*article.Comment{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MongoCommentRepo) Update(ctx context.Context, c *article.Comment) error {
	set := bson.M{"content": c.Content, "deleted": c.Deleted, "deletedAt": c.DeletedAt}
	res, err := m.col.UpdateOne(ctx, visible(bson.M{"_id": c.ID}), bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
