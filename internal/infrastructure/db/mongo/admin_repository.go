package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lumiereluxe/site-backend/internal/core/domain"
)

const adminCollection = "admins"

type AdminRepository struct {
	coll *mongo.Collection
}

func NewAdminRepository(db *mongo.Database) *AdminRepository {
	return &AdminRepository{coll: db.Collection(adminCollection)}
}

type mongoAdmin struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Username         string             `bson:"username"`
	Email            string             `bson:"email"`
	PasswordHash     string             `bson:"password_hash"`
	Role             string             `bson:"role"`
	CreatedAt        time.Time          `bson:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at"`
	ResetTokenHash   string             `bson:"reset_token_hash,omitempty"`
	ResetTokenExpiry *time.Time         `bson:"reset_token_expiry,omitempty"`
}

// EnsureIndexes creates the unique username index and the sparse reset digest
// index. Safe to call on every start.
func (r *AdminRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_username"),
		},
		{
			Keys:    bson.D{{Key: "reset_token_hash", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("reset_token_hash"),
		},
	})
	if err != nil {
		return fmt.Errorf("create admin indexes: %w", err)
	}
	return nil
}

func (r *AdminRepository) Create(ctx context.Context, admin *domain.Admin) (*domain.Admin, error) {
	doc := toDocument(admin)
	doc.ID = primitive.NilObjectID

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrAdminExists
		}
		return nil, fmt.Errorf("insert admin: %w", err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return toDomain(doc), nil
}

func (r *AdminRepository) FindByUsername(ctx context.Context, username string) (*domain.Admin, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *AdminRepository) FindByResetTokenHash(ctx context.Context, tokenHash string) (*domain.Admin, error) {
	if tokenHash == "" {
		return nil, domain.ErrAdminNotFound
	}
	return r.findOne(ctx, bson.M{"reset_token_hash": tokenHash})
}

func (r *AdminRepository) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"username": username},
		bson.M{"$set": bson.M{
			"password_hash": passwordHash,
			"updated_at":    time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAdminNotFound
	}
	return nil
}

func (r *AdminRepository) SetResetToken(ctx context.Context, username, tokenHash string, expiry time.Time) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"username": username},
		bson.M{"$set": bson.M{
			"reset_token_hash":   tokenHash,
			"reset_token_expiry": expiry.UTC(),
			"updated_at":         time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAdminNotFound
	}
	return nil
}

func (r *AdminRepository) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) error {
	if tokenHash == "" {
		return domain.ErrInvalidResetToken
	}
	res, err := r.coll.UpdateOne(ctx,
		consumeFilter(tokenHash, now),
		bson.M{
			"$set": bson.M{
				"password_hash": passwordHash,
				"updated_at":    now.UTC(),
			},
			"$unset": bson.M{
				"reset_token_hash":   "",
				"reset_token_expiry": "",
			},
		},
	)
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrInvalidResetToken
	}
	return nil
}

// consumeFilter matches the holder of tokenHash only while its expiry is
// strictly after now.
func consumeFilter(tokenHash string, now time.Time) bson.M {
	return bson.M{
		"reset_token_hash":   tokenHash,
		"reset_token_expiry": bson.M{"$gt": now.UTC()},
	}
}

func (r *AdminRepository) findOne(ctx context.Context, filter bson.M) (*domain.Admin, error) {
	var doc mongoAdmin
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAdminNotFound
		}
		return nil, fmt.Errorf("find admin: %w", err)
	}
	return toDomain(doc), nil
}

func toDocument(a *domain.Admin) mongoAdmin {
	doc := mongoAdmin{
		Username:         a.Username,
		Email:            a.Email,
		PasswordHash:     a.PasswordHash,
		Role:             a.Role,
		CreatedAt:        a.CreatedAt.UTC(),
		UpdatedAt:        a.UpdatedAt.UTC(),
		ResetTokenHash:   a.ResetTokenHash,
		ResetTokenExpiry: a.ResetTokenExpiry,
	}
	if oid, err := primitive.ObjectIDFromHex(a.ID); err == nil {
		doc.ID = oid
	}
	return doc
}

func toDomain(doc mongoAdmin) *domain.Admin {
	admin := &domain.Admin{
		Username:       doc.Username,
		Email:          doc.Email,
		PasswordHash:   doc.PasswordHash,
		Role:           doc.Role,
		CreatedAt:      doc.CreatedAt.UTC(),
		UpdatedAt:      doc.UpdatedAt.UTC(),
		ResetTokenHash: doc.ResetTokenHash,
	}
	if !doc.ID.IsZero() {
		admin.ID = doc.ID.Hex()
	}
	if doc.ResetTokenExpiry != nil {
		exp := doc.ResetTokenExpiry.UTC()
		admin.ResetTokenExpiry = &exp
	}
	return admin
}
