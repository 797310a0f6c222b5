package repository

import (
	"context"

	"github.com/a3888968/wiseguide-backend/internal/store"
)

// queryAll drains every page of a query.
func queryAll(ctx context.Context, s store.Store, table string, q store.Query) ([]store.Item, error) {
	var items []store.Item
	for {
		page, err := s.Query(ctx, table, q)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
		if len(page.LastEvaluatedKey) == 0 {
			return items, nil
		}
		q.ExclusiveStartKey = page.LastEvaluatedKey
	}
}
