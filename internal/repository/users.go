package repository

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"go.uber.org/zap"

	"github.com/a3888968/wiseguide-backend/internal/domain"
	"github.com/a3888968/wiseguide-backend/internal/store"
	appErrors "github.com/a3888968/wiseguide-backend/pkg/errors"
)

type ddbUser struct {
	SystemID       string    `dynamodbav:"SystemId"`
	Username       string    `dynamodbav:"Username"`
	Email          string    `dynamodbav:"Email"`
	Name           string    `dynamodbav:"Name,omitempty"`
	Biography      string    `dynamodbav:"Biography,omitempty"`
	Summary        string    `dynamodbav:"Summary,omitempty"`
	HashedPassword string    `dynamodbav:"HashedPassword"`
	Roles          []string  `dynamodbav:"Role,stringset,omitempty"`
	System         ddbSystem `dynamodbav:"System"`
}

func toDdbUser(u domain.User) ddbUser {
	return ddbUser{
		SystemID:       u.System.SystemID,
		Username:       u.Username,
		Email:          u.Email,
		Name:           u.Name,
		Biography:      u.Biography,
		Summary:        u.Summary,
		HashedPassword: u.HashedPassword,
		Roles:          u.Roles,
		System:         toDdbSystem(u.System),
	}
}

func (r ddbUser) toDomain() domain.User {
	return domain.User{
		Username:       r.Username,
		Email:          r.Email,
		Name:           r.Name,
		Biography:      r.Biography,
		Summary:        r.Summary,
		HashedPassword: r.HashedPassword,
		Roles:          r.Roles,
		System:         r.System.toDomain(),
	}
}

// UserChanges carries the account fields an update may touch. Nil means
// unchanged; Roles replaces the whole role set when non-nil.
type UserChanges struct {
	Email          *string
	Name           *string
	Biography      *string
	Summary        *string
	HashedPassword *string
	Roles          []string
}

// UserRepository manages user accounts, keyed per system. Each user carries
// a snapshot of its system; SystemRepository refreshes those snapshots on
// system changes.
type UserRepository struct {
	store  store.Store
	tables Tables
	logger *zap.Logger
}

// NewUserRepository creates a UserRepository.
func NewUserRepository(s store.Store, tables Tables, logger *zap.Logger) *UserRepository {
	return &UserRepository{store: s, tables: tables, logger: logger}
}

// PutUser creates a user. The email is checked first within the system, then
// the username is claimed with a conditional put. Two concurrent signups with
// the same email can both pass the pre-check; the username claim stays
// authoritative.
func (r *UserRepository) PutUser(ctx context.Context, user domain.User) error {
	existing, err := r.GetUserByEmail(ctx, user.System.SystemID, user.Email)
	if err != nil && !appErrors.IsNotFound(err) {
		return appErrors.Wrap(err, "failed to check email")
	}
	if existing != nil {
		return appErrors.NewConflict(appErrors.CodeEmailExists, "email already in use")
	}

	item, err := attributevalue.MarshalMap(toDdbUser(user))
	if err != nil {
		return appErrors.NewInternal("failed to marshal user", err)
	}
	cond := &store.ConditionSet{All: []store.Condition{store.AttrNotExists("Username")}}
	err = r.store.Put(ctx, r.tables.Users(), item, cond)
	if appErrors.HasCode(err, appErrors.CodeConditionViolated) {
		return appErrors.NewConflict(appErrors.CodeUsernameExists, "username already in use")
	}
	if err != nil {
		return appErrors.Wrap(err, "failed to create user")
	}
	r.logger.Debug("created user",
		zap.String("systemId", user.System.SystemID),
		zap.String("username", user.Username))
	return nil
}

// GetUser fetches a user of a system by username.
func (r *UserRepository) GetUser(ctx context.Context, systemID, username string) (domain.User, error) {
	item, err := r.store.Get(ctx, r.tables.Users(), store.Key{
		"SystemId": store.S(systemID),
		"Username": store.S(username),
	})
	if err != nil {
		return domain.User{}, appErrors.Wrap(err, "failed to get user")
	}
	if item == nil {
		return domain.User{}, appErrors.NewNotFound("user_not_found", "user does not exist")
	}
	var row ddbUser
	if err := attributevalue.UnmarshalMap(item, &row); err != nil {
		return domain.User{}, appErrors.NewInternal("failed to unmarshal user", err)
	}
	return row.toDomain(), nil
}

// GetUserByEmail looks a user up through the per-system email index. Returns
// a NotFound error when no user in the system has the email.
func (r *UserRepository) GetUserByEmail(ctx context.Context, systemID, email string) (*domain.User, error) {
	items, err := queryAll(ctx, r.store, r.tables.Users(), store.Query{
		IndexName: EmailIndex,
		KeyConditions: []store.Condition{
			store.Eq("SystemId", systemID),
			store.Eq("Email", email),
		},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to query email index")
	}
	if len(items) == 0 {
		return nil, appErrors.NewNotFound("user_not_found", "no user with that email")
	}
	var row ddbUser
	if err := attributevalue.UnmarshalMap(items[0], &row); err != nil {
		return nil, appErrors.NewInternal("failed to unmarshal user", err)
	}
	user := row.toDomain()
	return &user, nil
}

// ListUsersBySystem returns every user in a system.
func (r *UserRepository) ListUsersBySystem(ctx context.Context, systemID string) ([]domain.User, error) {
	items, err := queryAll(ctx, r.store, r.tables.Users(), store.Query{
		KeyConditions: []store.Condition{store.Eq("SystemId", systemID)},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to list users")
	}
	users := make([]domain.User, 0, len(items))
	for _, item := range items {
		var row ddbUser
		if err := attributevalue.UnmarshalMap(item, &row); err != nil {
			return nil, appErrors.NewInternal("failed to unmarshal user", err)
		}
		users = append(users, row.toDomain())
	}
	return users, nil
}

// UpdateUser rewrites the changed account fields. An email change re-checks
// uniqueness within the system, tolerating the user's own record.
func (r *UserRepository) UpdateUser(ctx context.Context, systemID, username string, changes UserChanges) (domain.User, error) {
	set := map[string]any{}
	if changes.Email != nil {
		existing, err := r.GetUserByEmail(ctx, systemID, *changes.Email)
		if err != nil && !appErrors.IsNotFound(err) {
			return domain.User{}, appErrors.Wrap(err, "failed to check email")
		}
		if existing != nil && existing.Username != username {
			return domain.User{}, appErrors.NewConflict(appErrors.CodeEmailExists, "email already in use")
		}
		set["Email"] = *changes.Email
	}
	if changes.Name != nil {
		set["Name"] = *changes.Name
	}
	if changes.Biography != nil {
		set["Biography"] = *changes.Biography
	}
	if changes.Summary != nil {
		set["Summary"] = *changes.Summary
	}
	if changes.HashedPassword != nil {
		set["HashedPassword"] = *changes.HashedPassword
	}
	if changes.Roles != nil {
		set["Role"] = store.StringSet(changes.Roles)
	}
	if len(set) == 0 {
		return r.GetUser(ctx, systemID, username)
	}

	cond := &store.ConditionSet{All: []store.Condition{store.AttrExists("Username")}}
	item, err := r.store.Update(ctx, r.tables.Users(), store.Key{
		"SystemId": store.S(systemID),
		"Username": store.S(username),
	}, store.Update{Set: set}, cond)
	if appErrors.HasCode(err, appErrors.CodeConditionViolated) {
		return domain.User{}, appErrors.NewNotFound("user_not_found", "user does not exist")
	}
	if err != nil {
		return domain.User{}, appErrors.Wrap(err, "failed to update user")
	}
	var row ddbUser
	if err := attributevalue.UnmarshalMap(item, &row); err != nil {
		return domain.User{}, appErrors.NewInternal("failed to unmarshal user", err)
	}
	return row.toDomain(), nil
}

// DeleteUser removes a user record.
func (r *UserRepository) DeleteUser(ctx context.Context, systemID, username string) error {
	cond := &store.ConditionSet{All: []store.Condition{store.AttrExists("Username")}}
	err := r.store.Delete(ctx, r.tables.Users(), store.Key{
		"SystemId": store.S(systemID),
		"Username": store.S(username),
	}, cond)
	if appErrors.HasCode(err, appErrors.CodeConditionViolated) {
		return appErrors.NewNotFound("user_not_found", "user does not exist")
	}
	if err != nil {
		return appErrors.Wrap(err, "failed to delete user")
	}
	return nil
}
