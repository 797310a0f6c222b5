package repository

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"go.uber.org/zap"

	"github.com/a3888968/wiseguide-backend/internal/domain"
	"github.com/a3888968/wiseguide-backend/internal/store"
	appErrors "github.com/a3888968/wiseguide-backend/pkg/errors"
)

type ddbCategory struct {
	SystemID string `dynamodbav:"SystemId"`
	Name     string `dynamodbav:"Name"`
}

// CategoryRepository manages the per-system category labels. Removing or
// renaming a label fans out to every occurrence tagged with it.
type CategoryRepository struct {
	store      store.Store
	tables     Tables
	logger     *zap.Logger
	propagator *Propagator
	mirror     OccurrenceMirror
}

// NewCategoryRepository creates a CategoryRepository.
func NewCategoryRepository(s store.Store, tables Tables, logger *zap.Logger, mirror OccurrenceMirror) *CategoryRepository {
	return &CategoryRepository{
		store:      s,
		tables:     tables,
		logger:     logger,
		propagator: NewPropagator(logger),
		mirror:     mirror,
	}
}

// CreateCategory defines a new category name in a system.
func (r *CategoryRepository) CreateCategory(ctx context.Context, category domain.Category) error {
	item, err := attributevalue.MarshalMap(ddbCategory{SystemID: category.SystemID, Name: category.Name})
	if err != nil {
		return appErrors.NewInternal("failed to marshal category", err)
	}
	cond := &store.ConditionSet{All: []store.Condition{store.AttrNotExists("SystemId")}}
	err = r.store.Put(ctx, r.tables.Categories(), item, cond)
	if appErrors.HasCode(err, appErrors.CodeConditionViolated) {
		return appErrors.NewConflict(appErrors.CodeCategoryExists, "category already exists")
	}
	if err != nil {
		return appErrors.Wrap(err, "failed to create category")
	}
	return nil
}

// ListCategories returns every category of a system.
func (r *CategoryRepository) ListCategories(ctx context.Context, systemID string) ([]domain.Category, error) {
	items, err := queryAll(ctx, r.store, r.tables.Categories(), store.Query{
		KeyConditions: []store.Condition{store.Eq("SystemId", systemID)},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to list categories")
	}
	categories := make([]domain.Category, 0, len(items))
	for _, item := range items {
		var row ddbCategory
		if err := attributevalue.UnmarshalMap(item, &row); err != nil {
			return nil, appErrors.NewInternal("failed to unmarshal category", err)
		}
		categories = append(categories, domain.Category{SystemID: row.SystemID, Name: row.Name})
	}
	return categories, nil
}

// DeleteCategory removes a category and strips the tag from every occurrence
// that carries it.
func (r *CategoryRepository) DeleteCategory(ctx context.Context, systemID, name string) error {
	if err := r.deleteRow(ctx, systemID, name); err != nil {
		return err
	}
	r.replaceInEvents(ctx, systemID, name, nil)
	return nil
}

// UpdateCategory renames a category: the old row is deleted, the new name is
// claimed, and every tagged occurrence is rewritten to the new name.
func (r *CategoryRepository) UpdateCategory(ctx context.Context, systemID, name, newName string) error {
	if err := r.deleteRow(ctx, systemID, name); err != nil {
		return err
	}
	if err := r.CreateCategory(ctx, domain.Category{SystemID: systemID, Name: newName}); err != nil {
		return err
	}
	r.replaceInEvents(ctx, systemID, name, &newName)
	return nil
}

func (r *CategoryRepository) deleteRow(ctx context.Context, systemID, name string) error {
	cond := &store.ConditionSet{All: []store.Condition{store.AttrExists("SystemId")}}
	err := r.store.Delete(ctx, r.tables.Categories(), store.Key{
		"SystemId": store.S(systemID),
		"Name":     store.S(name),
	}, cond)
	if appErrors.HasCode(err, appErrors.CodeConditionViolated) {
		return appErrors.NewNotFound(appErrors.CodeCategoryNotFound, "category does not exist")
	}
	if err != nil {
		return appErrors.Wrap(err, "failed to delete category")
	}
	return nil
}

// replaceInEvents strips the old tag from every tagged occurrence, adding the
// new one when set, then refreshes the agenda mirrors of the touched rows.
// The removal and the addition are separate writes because a single update
// cannot both shrink and grow the same set. Best-effort, like the other
// snapshot fan-outs.
func (r *CategoryRepository) replaceInEvents(ctx context.Context, systemID, name string, newName *string) {
	items, err := queryAll(ctx, r.store, r.tables.Events(), store.Query{
		IndexName:     StartIndex,
		KeyConditions: []store.Condition{store.Eq("SystemId", systemID)},
		Filter:        []store.Condition{store.ContainsValue("Categories", name)},
	})
	if err != nil {
		r.logger.Warn("failed to list occurrences for category replacement",
			zap.String("systemId", systemID),
			zap.String("category", name),
			zap.Error(err))
		return
	}
	rows := make(map[string]ddbOccurrence, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		var row ddbOccurrence
		if err := attributevalue.UnmarshalMap(item, &row); err != nil {
			continue
		}
		rows[row.OccurrenceID] = row
		ids = append(ids, row.OccurrenceID)
	}

	r.propagator.Apply(ctx, "replaceCategoryInEvents", ids, func(ctx context.Context, occurrenceID string) error {
		key := store.Key{
			"SystemId":     store.S(systemID),
			"OccurrenceId": store.S(occurrenceID),
		}
		strip := store.Update{DeleteFromSet: map[string]any{"Categories": store.StringSet([]string{name})}}
		if len(rows[occurrenceID].Categories) == 1 {
			strip = store.Update{Remove: []string{"Categories"}}
		}
		cond := &store.ConditionSet{All: []store.Condition{store.ContainsValue("Categories", name)}}
		item, err := r.store.Update(ctx, r.tables.Events(), key, strip, cond)
		if err != nil {
			return err
		}
		if newName != nil {
			add := store.Update{Add: map[string]any{"Categories": store.StringSet([]string{*newName})}}
			if item, err = r.store.Update(ctx, r.tables.Events(), key, add, nil); err != nil {
				return err
			}
		}
		if r.mirror != nil {
			var row ddbOccurrence
			if err := attributevalue.UnmarshalMap(item, &row); err != nil {
				return err
			}
			r.mirror.RefreshOccurrenceDetails(ctx, row.toDomain())
		}
		return nil
	})
}
