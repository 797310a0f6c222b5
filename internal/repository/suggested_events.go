package repository

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"go.uber.org/zap"

	"github.com/a3888968/wiseguide-backend/internal/domain"
	"github.com/a3888968/wiseguide-backend/internal/store"
	appErrors "github.com/a3888968/wiseguide-backend/pkg/errors"
)

// DefaultSuggestionCount is how many suggestions a lookup returns.
const DefaultSuggestionCount = 3

// Suggestions are stored as a string set of "eventId#score" members under a
// target id, which is either a username or an agenda id. The analysis
// pipeline writes them; the API only reads the top few.
type ddbSuggestions struct {
	TargetID    string   `dynamodbav:"TargetId"`
	Suggestions []string `dynamodbav:"Suggestions,stringset,omitempty"`
}

// SuggestedEventRepository stores scored event recommendations.
type SuggestedEventRepository struct {
	store  store.Store
	tables Tables
	logger *zap.Logger
}

// NewSuggestedEventRepository creates a SuggestedEventRepository.
func NewSuggestedEventRepository(s store.Store, tables Tables, logger *zap.Logger) *SuggestedEventRepository {
	return &SuggestedEventRepository{store: s, tables: tables, logger: logger}
}

// PutSuggestions replaces the suggestion set for a target.
func (r *SuggestedEventRepository) PutSuggestions(ctx context.Context, targetID string, suggestions []domain.SuggestedEvent) error {
	members := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		members = append(members, s.EventID+"#"+strconv.FormatFloat(s.Score, 'f', -1, 64))
	}
	item, err := attributevalue.MarshalMap(ddbSuggestions{TargetID: targetID, Suggestions: members})
	if err != nil {
		return appErrors.NewInternal("failed to marshal suggestions", err)
	}
	if err := r.store.Put(ctx, r.tables.SuggestedEvents(), item, nil); err != nil {
		return appErrors.Wrap(err, "failed to put suggestions")
	}
	return nil
}

// TopSuggestions returns the highest-scored suggestions for a target, best
// first. A target with no suggestions gets an empty list, not an error.
func (r *SuggestedEventRepository) TopSuggestions(ctx context.Context, targetID string, limit int) ([]domain.SuggestedEvent, error) {
	if limit <= 0 {
		limit = DefaultSuggestionCount
	}
	item, err := r.store.Get(ctx, r.tables.SuggestedEvents(), store.Key{"TargetId": store.S(targetID)})
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to get suggestions")
	}
	if item == nil {
		return []domain.SuggestedEvent{}, nil
	}
	var row ddbSuggestions
	if err := attributevalue.UnmarshalMap(item, &row); err != nil {
		return nil, appErrors.NewInternal("failed to unmarshal suggestions", err)
	}

	suggestions := make([]domain.SuggestedEvent, 0, len(row.Suggestions))
	for _, member := range row.Suggestions {
		sep := strings.LastIndexByte(member, '#')
		if sep < 0 {
			r.logger.Warn("skipping malformed suggestion member",
				zap.String("targetId", targetID),
				zap.String("member", member))
			continue
		}
		score, err := strconv.ParseFloat(member[sep+1:], 64)
		if err != nil {
			r.logger.Warn("skipping malformed suggestion score",
				zap.String("targetId", targetID),
				zap.String("member", member))
			continue
		}
		suggestions = append(suggestions, domain.SuggestedEvent{EventID: member[:sep], Score: score})
	}
	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].EventID < suggestions[j].EventID
	})
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}
