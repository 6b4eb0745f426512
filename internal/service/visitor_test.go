package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisitorService_RefreshUserView(t *testing.T) {
	views := newSpyViews(t)
	svc := NewVisitorService(views, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, svc.RecordVisit(ctx, "p1", "u1"))
	require.NoError(t, svc.RecordVisit(ctx, "p2", "u1"))
	require.NoError(t, svc.RecordVisit(ctx, "p1", "u2"))

	require.NoError(t, svc.RefreshUserView(ctx, "u1", []string{"p3"}))

	for _, p := range []string{"p1", "p2"} {
		visitors, err := svc.Visitors(ctx, p)
		require.NoError(t, err)
		assert.NotContains(t, visitors, "u1", "stale edge left on %s", p)
	}

	visitors, err := svc.Visitors(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, visitors, "other users untouched")

	visitors, err = svc.Visitors(ctx, "p3")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, visitors)

	products, err := svc.ProductsForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p3"}, products)
}

func TestVisitorService_PropagatesCacheErrors(t *testing.T) {
	views := newSpyViews(t)
	views.fail["GetProductsForUser"] = errors.New("redis down")
	svc := NewVisitorService(views, zerolog.Nop())

	err := svc.RefreshUserView(context.Background(), "u1", []string{"p1"})
	assert.Equal(t, KindUnknown, KindOf(err))
	assert.Zero(t, views.count("RemoveProductsForUser"), "clear never runs without the read")
}
