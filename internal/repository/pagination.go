package repository

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/a3888968/wiseguide-backend/internal/store"
	appErrors "github.com/a3888968/wiseguide-backend/pkg/errors"
)

// MinPageFill is the minimum number of results a listing page accumulates
// before returning, as long as more data remains.
const MinPageFill = 15

// cursorAttr is the wire form of one key attribute inside a cursor token.
type cursorAttr struct {
	S *string `json:"s,omitempty"`
	N *string `json:"n,omitempty"`
}

// EncodeCursor converts a last-evaluated key into an opaque page token.
func EncodeCursor(key store.Key) (string, error) {
	if len(key) == 0 {
		return "", nil
	}
	wire := make(map[string]cursorAttr, len(key))
	for attr, av := range key {
		switch t := av.(type) {
		case *types.AttributeValueMemberS:
			v := t.Value
			wire[attr] = cursorAttr{S: &v}
		case *types.AttributeValueMemberN:
			v := t.Value
			wire[attr] = cursorAttr{N: &v}
		default:
			return "", appErrors.NewInternal(fmt.Sprintf("unsupported cursor attribute %s", attr), nil)
		}
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return "", appErrors.NewInternal("failed to encode cursor", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// DecodeCursor converts a page token back into a start key. An empty token
// decodes to a nil key.
func DecodeCursor(token string) (store.Key, error) {
	if token == "" {
		return nil, nil
	}
	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, appErrors.NewValidation("bad_cursor", "invalid page token")
	}
	var wire map[string]cursorAttr
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, appErrors.NewValidation("bad_cursor", "invalid page token")
	}
	key := make(store.Key, len(wire))
	for attr, ca := range wire {
		switch {
		case ca.S != nil:
			key[attr] = &types.AttributeValueMemberS{Value: *ca.S}
		case ca.N != nil:
			key[attr] = &types.AttributeValueMemberN{Value: *ca.N}
		default:
			return nil, appErrors.NewValidation("bad_cursor", "invalid page token")
		}
	}
	return key, nil
}
