// Package picker samples posts in random, non-repeating order.
package picker

import (
	"context"
	"errors"
	"fmt"
	"sort"

	jsoniter "github.com/json-iterator/go"

	"github.com/vertotem/Mastodon-Random-Picker/internal/store"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// SeenKeyPrefix namespaces viewed-set entries in the store by account id.
const SeenKeyPrefix = "seen_statuses_"

// ViewedSet is the persisted set of already-sampled post ids for one
// account. Every mutation is persisted synchronously before it is reported
// as done; the set never expires on its own.
type ViewedSet struct {
	st        *store.Store
	accountID string
	ids       map[string]struct{}
}

// LoadViewed loads the viewed set for an account, empty if nothing is
// stored yet.
func LoadViewed(ctx context.Context, st *store.Store, accountID string) (*ViewedSet, error) {
	if accountID == "" {
		return nil, errors.New("account id is required")
	}

	v := &ViewedSet{st: st, accountID: accountID, ids: make(map[string]struct{})}

	raw, ok, err := st.Get(ctx, SeenKeyPrefix+accountID)
	if err != nil {
		return nil, fmt.Errorf("load viewed set: %w", err)
	}
	if !ok {
		return v, nil
	}

	var ids []string
	if err := jsonCodec.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("decode viewed set: %w", err)
	}
	for _, id := range ids {
		v.ids[id] = struct{}{}
	}
	return v, nil
}

// Has reports whether a post id was already sampled.
func (v *ViewedSet) Has(id string) bool {
	_, ok := v.ids[id]
	return ok
}

// Len returns the number of viewed ids.
func (v *ViewedSet) Len() int {
	return len(v.ids)
}

// IDs returns the viewed ids, sorted for stable persistence.
func (v *ViewedSet) IDs() []string {
	ids := make([]string, 0, len(v.ids))
	for id := range v.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Mark records a post id as viewed and persists the set immediately.
func (v *ViewedSet) Mark(ctx context.Context, id string) error {
	v.ids[id] = struct{}{}
	return v.save(ctx)
}

// MarkAll records a batch of ids (snapshot import) with one persist.
func (v *ViewedSet) MarkAll(ctx context.Context, ids []string) error {
	for _, id := range ids {
		v.ids[id] = struct{}{}
	}
	return v.save(ctx)
}

// Clear empties the set and removes its store entry.
func (v *ViewedSet) Clear(ctx context.Context) error {
	v.ids = make(map[string]struct{})
	if err := v.st.Delete(ctx, SeenKeyPrefix+v.accountID); err != nil {
		return fmt.Errorf("clear viewed set: %w", err)
	}
	return nil
}

func (v *ViewedSet) save(ctx context.Context) error {
	data, err := jsonCodec.Marshal(v.IDs())
	if err != nil {
		return fmt.Errorf("encode viewed set: %w", err)
	}
	if err := v.st.Set(ctx, SeenKeyPrefix+v.accountID, string(data)); err != nil {
		return fmt.Errorf("save viewed set: %w", err)
	}
	return nil
}
