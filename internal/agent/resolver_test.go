package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront-agent/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOrderDisplayIDVariants(t *testing.T) {
	r := &OrderResolver{Store: newFakeStore()}
	ctx := context.Background()

	a, err := r.ResolveOrder(ctx, "#A005A01")
	require.NoError(t, err)
	b, err := r.ResolveOrder(ctx, "a005a01")
	require.NoError(t, err)

	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, anuID, a.ID)
	assert.Equal(t, a.ID, b.ID)
}

func TestResolveOrderInternalIDFirst(t *testing.T) {
	store := newFakeStore()
	// a customer whose name collides with Ramu's internal id
	store.orders = append(store.orders, db.Order{
		ID: "99999999-0000-4000-8000-000000000000", OrderID: "A009A01", FullName: ramuID,
		CreatedAt: time.Date(2026, 3, 11, 0, 0, 0, 0, ist),
	})
	r := &OrderResolver{Store: store}

	o, err := r.ResolveOrder(context.Background(), ramuID)
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, ramuID, o.ID)
	assert.Equal(t, []string{"OrderByID"}, store.calls)
}

func TestResolveOrderSkipsInternalLookupForOtherShapes(t *testing.T) {
	store := newFakeStore()
	r := &OrderResolver{Store: store}

	_, err := r.ResolveOrder(context.Background(), "A006A01")
	require.NoError(t, err)
	assert.False(t, store.called("OrderByID"))
}

func TestResolveOrderByNameNewestWins(t *testing.T) {
	store := newFakeStore()
	store.orders = append(store.orders, db.Order{
		ID: "22222222-3333-4444-8555-666666666666", OrderID: "A005A02", FullName: "Anu Sharma",
		CreatedAt: time.Date(2026, 3, 12, 0, 0, 0, 0, ist),
	})
	r := &OrderResolver{Store: store}

	o, err := r.ResolveOrder(context.Background(), "anu")
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, "A005A02", o.OrderID)
}

func TestResolveOrderNotFound(t *testing.T) {
	r := &OrderResolver{Store: newFakeStore()}

	for _, id := range []string{"nobody", "", "  ", "#"} {
		o, err := r.ResolveOrder(context.Background(), id)
		assert.NoError(t, err, id)
		assert.Nil(t, o, id)
	}
}

func TestResolveOrderFallsThroughStoreErrors(t *testing.T) {
	store := newFakeStore()
	store.errs["OrderByDisplayID"] = errors.New("index rebuilding")
	r := &OrderResolver{Store: store}

	o, err := r.ResolveOrder(context.Background(), "Ramu")
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, "A006A01", o.OrderID)
}

func TestResolveOrderAllStepsFail(t *testing.T) {
	store := newFakeStore()
	store.errs["OrderByDisplayID"] = errors.New("down")
	store.errs["LatestOrderByName"] = errors.New("still down")
	r := &OrderResolver{Store: store}

	o, err := r.ResolveOrder(context.Background(), "Ramu")
	assert.Nil(t, o)
	assert.EqualError(t, err, "still down")
}

func TestNormalizeIdentifier(t *testing.T) {
	assert.Equal(t, "A005A01", NormalizeIdentifier("  #A005A01 "))
	assert.Equal(t, "#A005A01", NormalizeIdentifier("##A005A01"))
	assert.Equal(t, "anu", NormalizeIdentifier("anu"))
}
