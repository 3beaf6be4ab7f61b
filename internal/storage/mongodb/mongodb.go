package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"finapi/internal/domain/models"
	"finapi/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type Storage struct {
	client *mongo.Client
	users  *mongo.Collection
	tokens *mongo.Collection
}

type userDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Lastname  string    `bson:"lastname"`
	Username  string    `bson:"username"`
	Email     string    `bson:"email"`
	PassHash  string    `bson:"pass_hash"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type refreshTokenDoc struct {
	ID           string     `bson:"_id"`
	UserID       string     `bson:"user_id"`
	TokenHash    string     `bson:"token_hash"`
	IssuedAt     time.Time  `bson:"issued_at"`
	ExpiresAt    time.Time  `bson:"expires_at"`
	RevokedAt    *time.Time `bson:"revoked_at,omitempty"`
	ReplacedByID *string    `bson:"replaced_by_id,omitempty"`
}

// New creates a new MongoDB storage instance and sets up indexes.
func New(ctx context.Context, uri, database string) (*Storage, error) {
	const op = "storage.mongodb.New"

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: connect: %w", op, err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	db := client.Database(database)
	s := &Storage{
		client: client,
		users:  db.Collection("users"),
		tokens: db.Collection("refresh_tokens"),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("%s: indexes: %w", op, err)
	}

	return s, nil
}

func (s *Storage) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users.username index: %w", err)
	}

	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users.email index: %w", err)
	}

	_, err = s.tokens.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "token_hash", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("refresh_tokens.token_hash index: %w", err)
	}

	_, err = s.tokens.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("refresh_tokens.user_id index: %w", err)
	}

	_, err = s.tokens.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "expires_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("refresh_tokens.expires_at index: %w", err)
	}

	return nil
}

// Close disconnects from MongoDB.
func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Storage) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage.mongodb.SaveUser"

	doc := userDoc{
		ID:        user.ID.String(),
		Name:      user.Name,
		Lastname:  user.Lastname,
		Username:  user.Username,
		Email:     user.Email,
		PassHash:  user.PassHash,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}

	_, err := s.users.InsertOne(ctx, doc)
	if err != nil {
		if isDuplicateKeyError(err) {
			if strings.Contains(err.Error(), "email") {
				return fmt.Errorf("%s: %w", op, storage.ErrEmailTaken)
			}
			return fmt.Errorf("%s: %w", op, storage.ErrUsernameTaken)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) UserByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	const op = "storage.mongodb.UserByIdentifier"

	filter := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "username", Value: identifier}},
		bson.D{{Key: "email", Value: identifier}},
	}}}

	return s.findUser(ctx, op, filter)
}

func (s *Storage) UserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	const op = "storage.mongodb.UserByID"
	return s.findUser(ctx, op, bson.D{{Key: "_id", Value: userID.String()}})
}

func (s *Storage) UsernameExists(ctx context.Context, username string) (bool, error) {
	const op = "storage.mongodb.UsernameExists"

	count, err := s.users.CountDocuments(ctx, bson.D{{Key: "username", Value: username}})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return count > 0, nil
}

func (s *Storage) EmailExists(ctx context.Context, email string) (bool, error) {
	const op = "storage.mongodb.EmailExists"

	count, err := s.users.CountDocuments(ctx, bson.D{{Key: "email", Value: email}})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return count > 0, nil
}

func (s *Storage) Users(ctx context.Context, limit, offset int) ([]models.User, error) {
	const op = "storage.mongodb.Users"

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := s.users.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	for cursor.Next(ctx) {
		var doc userDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		user, err := doc.toModel()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, *user)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

func (s *Storage) CountUsers(ctx context.Context) (int, error) {
	const op = "storage.mongodb.CountUsers"

	count, err := s.users.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(count), nil
}

func (s *Storage) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	const op = "storage.mongodb.DeleteUser"

	res, err := s.users.DeleteOne(ctx, bson.D{{Key: "_id", Value: userID.String()}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

func (s *Storage) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	const op = "storage.mongodb.SaveRefreshToken"

	_, err := s.tokens.InsertOne(ctx, tokenToDoc(token))
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrTokenHashCollision)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) RefreshTokenByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	const op = "storage.mongodb.RefreshTokenByHash"

	var doc refreshTokenDoc
	err := s.tokens.FindOne(ctx, bson.D{{Key: "token_hash", Value: tokenHash}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrTokenNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return doc.toModel()
}

// RotateRefreshToken inserts the successor, then revokes the source record
// only if it is still active. Losing the revoke race removes the successor
// again so no second chain tip survives.
func (s *Storage) RotateRefreshToken(ctx context.Context, oldID uuid.UUID, revokedAt time.Time, next *models.RefreshToken) error {
	const op = "storage.mongodb.RotateRefreshToken"

	if _, err := s.tokens.InsertOne(ctx, tokenToDoc(next)); err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrTokenHashCollision)
		}
		return fmt.Errorf("%s: insert new: %w", op, err)
	}

	res, err := s.tokens.UpdateOne(ctx,
		bson.D{
			{Key: "_id", Value: oldID.String()},
			{Key: "revoked_at", Value: nil},
		},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "revoked_at", Value: revokedAt},
			{Key: "replaced_by_id", Value: next.ID.String()},
		}}},
	)
	if err != nil {
		return fmt.Errorf("%s: revoke old: %w", op, err)
	}
	if res.MatchedCount == 0 {
		_, _ = s.tokens.DeleteOne(ctx, bson.D{{Key: "_id", Value: next.ID.String()}})
		return fmt.Errorf("%s: %w", op, storage.ErrTokenRevoked)
	}

	return nil
}

func (s *Storage) RevokeRefreshToken(ctx context.Context, id uuid.UUID, revokedAt time.Time) error {
	const op = "storage.mongodb.RevokeRefreshToken"

	res, err := s.tokens.UpdateOne(ctx,
		bson.D{
			{Key: "_id", Value: id.String()},
			{Key: "revoked_at", Value: nil},
		},
		bson.D{{Key: "$set", Value: bson.D{{Key: "revoked_at", Value: revokedAt}}}},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrTokenRevoked)
	}
	return nil
}

func (s *Storage) findUser(ctx context.Context, op string, filter bson.D) (*models.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := doc.toModel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func (d userDoc) toModel() (*models.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	return &models.User{
		ID:        id,
		Name:      d.Name,
		Lastname:  d.Lastname,
		Username:  d.Username,
		Email:     d.Email,
		PassHash:  d.PassHash,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

func (d refreshTokenDoc) toModel() (*models.RefreshToken, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, err
	}

	token := &models.RefreshToken{
		ID:        id,
		UserID:    userID,
		TokenHash: d.TokenHash,
		IssuedAt:  d.IssuedAt,
		ExpiresAt: d.ExpiresAt,
		RevokedAt: d.RevokedAt,
	}
	if d.ReplacedByID != nil {
		rid, err := uuid.Parse(*d.ReplacedByID)
		if err != nil {
			return nil, err
		}
		token.ReplacedByID = &rid
	}
	return token, nil
}

func tokenToDoc(token *models.RefreshToken) refreshTokenDoc {
	doc := refreshTokenDoc{
		ID:        token.ID.String(),
		UserID:    token.UserID.String(),
		TokenHash: token.TokenHash,
		IssuedAt:  token.IssuedAt,
		ExpiresAt: token.ExpiresAt,
		RevokedAt: token.RevokedAt,
	}
	if token.ReplacedByID != nil {
		rid := token.ReplacedByID.String()
		doc.ReplacedByID = &rid
	}
	return doc
}

// isDuplicateKeyError checks if the error is a MongoDB duplicate key error (code 11000).
func isDuplicateKeyError(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return false
}
