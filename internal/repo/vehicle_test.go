package repo_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/summitupfitters/slugsvc/internal/cms"
	"github.com/summitupfitters/slugsvc/internal/domain"
	"github.com/summitupfitters/slugsvc/internal/repo"
)

// fakeStore is a hand-written test double for the store client.
// query returns the value to decode into the caller's target; it is
// round-tripped through JSON to mimic the wire.
type fakeStore struct {
	query              func(query string, params map[string]any) (any, error)
	transactions       func(documentID string, limit int) ([]cms.Transaction, error)
	documentAtRevision func(documentID, revision string) (any, error)
	commit             func(mutations []cms.Mutation) error

	committed [][]cms.Mutation
}

func (f *fakeStore) Query(_ context.Context, query string, params map[string]any, into any) error {
	result, err := f.query(query, params)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, into)
}

func (f *fakeStore) Transactions(_ context.Context, documentID string, limit int) ([]cms.Transaction, error) {
	return f.transactions(documentID, limit)
}

func (f *fakeStore) DocumentAtRevision(_ context.Context, documentID, revision string, into any) error {
	result, err := f.documentAtRevision(documentID, revision)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, into)
}

func (f *fakeStore) Commit(_ context.Context, mutations []cms.Mutation) error {
	f.committed = append(f.committed, mutations)
	if f.commit != nil {
		return f.commit(mutations)
	}
	return nil
}

// ---- FindByIdentifier ------------------------------------------------------

// TestFindByIdentifier_prefersExactMatch verifies the lookup precedence:
// an exact case-sensitive match beats a case-insensitive one beats a fuzzy
// one, regardless of result order.
func TestFindByIdentifier_prefersExactMatch(t *testing.T) {
	candidates := []domain.Vehicle{
		{ID: "fuzzy", Slug: domain.Slug{Current: "super-alpha-van"}},
		{ID: "ci", Slug: domain.Slug{Current: "Alpha-Van"}},
		{ID: "exact", Slug: domain.Slug{Current: "alpha-van"}},
	}
	r := repo.NewVehicleRepo(&fakeStore{
		query: func(q string, params map[string]any) (any, error) {
			assert.Equal(t, "alpha-van", params["slug"])
			assert.Equal(t, "*alpha-van*", params["pattern"])
			return candidates, nil
		},
	})

	got, err := r.FindByIdentifier(context.Background(), "alpha-van")

	require.NoError(t, err)
	assert.Equal(t, "exact", got.ID)
}

func TestFindByIdentifier_caseInsensitiveBeatsFuzzy(t *testing.T) {
	candidates := []domain.Vehicle{
		{ID: "fuzzy", Slug: domain.Slug{Current: "super-alpha-van"}},
		{ID: "ci", Slug: domain.Slug{Current: "ALPHA-VAN"}},
	}
	r := repo.NewVehicleRepo(&fakeStore{
		query: func(q string, params map[string]any) (any, error) { return candidates, nil },
	})

	got, err := r.FindByIdentifier(context.Background(), "alpha-van")

	require.NoError(t, err)
	assert.Equal(t, "ci", got.ID)
}

// TestFindByIdentifier_tiesBreakByUpdateRecency relies on the store ordering
// candidates most-recently-updated first; within one rank the first wins.
func TestFindByIdentifier_tiesBreakByUpdateRecency(t *testing.T) {
	candidates := []domain.Vehicle{
		{ID: "newer-fuzzy", Slug: domain.Slug{Current: "alpha-van-xl"}},
		{ID: "older-fuzzy", Slug: domain.Slug{Current: "alpha-van-lt"}},
	}
	r := repo.NewVehicleRepo(&fakeStore{
		query: func(q string, params map[string]any) (any, error) { return candidates, nil },
	})

	got, err := r.FindByIdentifier(context.Background(), "alpha-van")

	require.NoError(t, err)
	assert.Equal(t, "newer-fuzzy", got.ID)
}

func TestFindByIdentifier_noMatch(t *testing.T) {
	r := repo.NewVehicleRepo(&fakeStore{
		query: func(q string, params map[string]any) (any, error) { return nil, nil },
	})

	_, err := r.FindByIdentifier(context.Background(), "nope")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ---- Get -------------------------------------------------------------------

func TestGet_notFound(t *testing.T) {
	r := repo.NewVehicleRepo(&fakeStore{
		query: func(q string, params map[string]any) (any, error) { return nil, nil },
	})

	_, err := r.Get(context.Background(), "vehicle-404")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGet_projectsHistoryDefinedness(t *testing.T) {
	r := repo.NewVehicleRepo(&fakeStore{
		query: func(q string, params map[string]any) (any, error) {
			assert.Contains(t, q, "defined(slugHistory)")
			return map[string]any{"_id": "vehicle-1", "hasHistory": true}, nil
		},
	})

	v, err := r.Get(context.Background(), "vehicle-1")

	require.NoError(t, err)
	assert.True(t, v.HasHistory)
}

// ---- foreign-claim queries -------------------------------------------------

func TestOtherWithCurrentSlug_excludesSelf(t *testing.T) {
	r := repo.NewVehicleRepo(&fakeStore{
		query: func(q string, params map[string]any) (any, error) {
			assert.Contains(t, q, "_id != $self")
			assert.Equal(t, "vehicle-1", params["self"])
			assert.Equal(t, "foo", params["slug"])
			return map[string]any{"_id": "vehicle-2", "title": "Bravo Van"}, nil
		},
	})

	other, err := r.OtherWithCurrentSlug(context.Background(), "vehicle-1", "foo")

	require.NoError(t, err)
	assert.Equal(t, "vehicle-2", other.ID)
}

func TestOtherWithAlias_none(t *testing.T) {
	r := repo.NewVehicleRepo(&fakeStore{
		query: func(q string, params map[string]any) (any, error) {
			assert.Contains(t, q, "$slug in slugAliases")
			return nil, nil
		},
	})

	_, err := r.OtherWithAlias(context.Background(), "vehicle-1", "foo")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOtherWithHistorySlug_queriesHistoryValues(t *testing.T) {
	r := repo.NewVehicleRepo(&fakeStore{
		query: func(q string, params map[string]any) (any, error) {
			assert.Contains(t, q, "$slug in slugHistory[].slug")
			return nil, nil
		},
	})

	_, err := r.OtherWithHistorySlug(context.Background(), "vehicle-1", "foo")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ---- history writes --------------------------------------------------------

func TestSetSlugHistory_patchesFullArray(t *testing.T) {
	store := &fakeStore{}
	r := repo.NewVehicleRepo(store)

	entries := []domain.SlugHistoryEntry{{Key: "k1", Slug: "old-name"}}
	err := r.SetSlugHistory(context.Background(), "vehicle-1", entries)

	require.NoError(t, err)
	require.Len(t, store.committed, 1)
	patch := store.committed[0][0].Patch
	require.NotNil(t, patch)
	assert.Equal(t, "vehicle-1", patch.ID)
	assert.Contains(t, patch.Set, "slugHistory")
	assert.Nil(t, patch.SetIfMissing)
}

func TestInitSlugHistory_usesSetIfMissing(t *testing.T) {
	store := &fakeStore{}
	r := repo.NewVehicleRepo(store)

	err := r.InitSlugHistory(context.Background(), "vehicle-1")

	require.NoError(t, err)
	require.Len(t, store.committed, 1)
	patch := store.committed[0][0].Patch
	require.NotNil(t, patch)
	assert.Nil(t, patch.Set)
	assert.Contains(t, patch.SetIfMissing, "slugHistory")
}

// ---- PriorState ------------------------------------------------------------

func TestPriorState_fetchesSecondMostRecentTransaction(t *testing.T) {
	ts := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	r := repo.NewVehicleRepo(&fakeStore{
		transactions: func(documentID string, limit int) ([]cms.Transaction, error) {
			assert.Equal(t, 2, limit)
			return []cms.Transaction{
				{ID: "tx2", ResultRev: "rev2"},
				{ID: "tx1", ResultRev: "rev1", Timestamp: ts},
			}, nil
		},
		documentAtRevision: func(documentID, revision string) (any, error) {
			assert.Equal(t, "rev1", revision)
			return map[string]any{"_id": "vehicle-1", "slug": map[string]any{"current": "old-name"}}, nil
		},
	})

	prior, err := r.PriorState(context.Background(), "vehicle-1")

	require.NoError(t, err)
	assert.Equal(t, "old-name", prior.Slug.Current)
	// Snapshot carried no _updatedAt: the transaction timestamp fills in.
	assert.Equal(t, ts, prior.UpdatedAt)
}

func TestPriorState_singleTransactionIsInconclusive(t *testing.T) {
	r := repo.NewVehicleRepo(&fakeStore{
		transactions: func(documentID string, limit int) ([]cms.Transaction, error) {
			return []cms.Transaction{{ID: "tx1", ResultRev: "rev1"}}, nil
		},
	})

	_, err := r.PriorState(context.Background(), "vehicle-1")

	assert.ErrorIs(t, err, domain.ErrPriorStateUnknown)
}

func TestPriorState_missingSnapshotIsInconclusive(t *testing.T) {
	r := repo.NewVehicleRepo(&fakeStore{
		transactions: func(documentID string, limit int) ([]cms.Transaction, error) {
			return []cms.Transaction{{ResultRev: "rev2"}, {ResultRev: "rev1"}}, nil
		},
		documentAtRevision: func(documentID, revision string) (any, error) {
			return nil, domain.ErrNotFound
		},
	})

	_, err := r.PriorState(context.Background(), "vehicle-1")

	assert.ErrorIs(t, err, domain.ErrPriorStateUnknown)
}

func TestPriorState_historyUnavailablePropagates(t *testing.T) {
	r := repo.NewVehicleRepo(&fakeStore{
		transactions: func(documentID string, limit int) ([]cms.Transaction, error) {
			return nil, domain.ErrHistoryUnavailable
		},
	})

	_, err := r.PriorState(context.Background(), "vehicle-1")

	assert.ErrorIs(t, err, domain.ErrHistoryUnavailable)
}

func TestListAllSlugData_queryError(t *testing.T) {
	storeErr := errors.New("store down")
	r := repo.NewVehicleRepo(&fakeStore{
		query: func(q string, params map[string]any) (any, error) {
			require.True(t, strings.Contains(q, `_type == "vehicle"`))
			return nil, storeErr
		},
	})

	_, err := r.ListAllSlugData(context.Background())

	assert.ErrorIs(t, err, storeErr)
}
