package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"freshmart-api/internal/cache"
	"freshmart-api/internal/model"
	"freshmart-api/internal/repository"
	"freshmart-api/internal/scheduler"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ingredientFixture struct {
	svc   *IngredientService
	repo  *fakeIngredientRepo
	views *spyViews
	sched *fakeScheduler
	logs  *bytes.Buffer
}

func newIngredientFixture(t *testing.T, items ...model.Ingredient) *ingredientFixture {
	t.Helper()
	f := &ingredientFixture{
		repo:  newFakeIngredientRepo(items...),
		views: newSpyViews(t),
		sched: newFakeScheduler(),
		logs:  &bytes.Buffer{},
	}
	f.svc = NewIngredientService(f.repo, f.views, f.sched, zerolog.New(f.logs))
	f.svc.now = func() time.Time { return baseTime }
	return f
}

func ingredient(id string, expiredAt time.Time) model.Ingredient {
	return model.Ingredient{
		ID:        id,
		Name:      "ingredient " + id,
		Price:     decimal.RequireFromString("2.5"),
		Unit:      "kg",
		Status:    model.StatusInStock,
		ExpiredAt: expiredAt,
	}
}

func TestIngredientService_Create_ArmsTimerAndDropsSnapshot(t *testing.T) {
	f := newIngredientFixture(t)
	in := ingredient("i1", baseTime.Add(10*time.Second))

	created, err := f.svc.Create(context.Background(), &in)
	require.NoError(t, err)
	assert.Equal(t, "i1", created.ID)

	require.Len(t, f.sched.scheduled, 1)
	call := f.sched.scheduled[0]
	assert.Equal(t, "delete-ingredient-i1", call.Name)
	assert.True(t, call.FireAt.Equal(baseTime.Add(10*time.Second)))

	assert.Equal(t, []string{"collection:" + cache.CollectionIngredients}, f.views.deleted)
}

func TestIngredientService_Create_AssignsIDAndDefaultStatus(t *testing.T) {
	f := newIngredientFixture(t)
	in := model.Ingredient{Name: "Salt", ExpiredAt: baseTime.Add(time.Hour)}

	created, err := f.svc.Create(context.Background(), &in)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.StatusInStock, created.Status)
	assert.Equal(t, IngredientJobName(created.ID), f.sched.last().Name)
}

func TestIngredientService_Create_RejectsInvalidInput(t *testing.T) {
	f := newIngredientFixture(t)

	_, err := f.svc.Create(context.Background(), &model.Ingredient{Name: " "})
	assert.Equal(t, KindInvalid, KindOf(err))

	_, err = f.svc.Create(context.Background(), &model.Ingredient{Name: "x", Status: "ROTTEN"})
	assert.Equal(t, KindInvalid, KindOf(err))

	assert.Empty(t, f.sched.scheduled)
	assert.Zero(t, f.views.total())
}

func TestIngredientService_ExpireActionMarksExpired(t *testing.T) {
	f := newIngredientFixture(t)
	in := ingredient("i1", baseTime.Add(time.Minute))
	_, err := f.svc.Create(context.Background(), &in)
	require.NoError(t, err)

	deletesBefore := f.views.count("DeleteCollection")
	require.NoError(t, f.sched.last().Action(context.Background()))

	assert.Equal(t, model.StatusExpired, f.repo.status("i1"))
	assert.Equal(t, deletesBefore+1, f.views.count("DeleteCollection"))
}

func TestIngredientService_ExpireActionToleratesDeletedRow(t *testing.T) {
	f := newIngredientFixture(t)
	in := ingredient("i1", baseTime.Add(time.Minute))
	_, err := f.svc.Create(context.Background(), &in)
	require.NoError(t, err)
	action := f.sched.last().Action

	delete(f.repo.items, "i1")

	assert.NoError(t, action(context.Background()))
}

func TestIngredientService_Update_PastExpiry(t *testing.T) {
	f := newIngredientFixture(t, ingredient("i1", baseTime.Add(time.Hour)))
	past := baseTime.Add(-10 * time.Second)

	updated, err := f.svc.Update(context.Background(), "i1", model.IngredientUpdate{ExpiredAt: &past})
	require.NoError(t, err)
	assert.True(t, updated.ExpiredAt.Equal(past))

	require.Len(t, f.sched.scheduled, 1)
	assert.True(t, f.sched.last().FireAt.Equal(past))
}

func TestIngredientService_Update_InvalidatesDependentPriceHashes(t *testing.T) {
	f := newIngredientFixture(t, ingredient("i1", baseTime.Add(time.Hour)))
	f.repo.links["i1"] = []string{"p1", "p2"}
	price := decimal.RequireFromString("9.99")
	later := baseTime.Add(2 * time.Hour)

	_, err := f.svc.Update(context.Background(), "i1", model.IngredientUpdate{Price: &price, ExpiredAt: &later})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"collection:" + cache.CollectionIngredients,
		"prices:p1",
		"prices:p2",
	}, f.views.deleted)
	assert.True(t, f.sched.last().FireAt.Equal(later))
}

func TestIngredientService_Update_NotFound(t *testing.T) {
	f := newIngredientFixture(t)
	name := "x"

	_, err := f.svc.Update(context.Background(), "missing", model.IngredientUpdate{Name: &name})
	assert.True(t, IsNotFound(err))
	assert.Empty(t, f.sched.scheduled)
	assert.Zero(t, f.views.total())
}

func TestIngredientService_Delete_NotFoundSkipsSideEffects(t *testing.T) {
	f := newIngredientFixture(t)

	err := f.svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.Empty(t, f.sched.cancelled)
	assert.Zero(t, f.views.total())
}

func TestIngredientService_Delete(t *testing.T) {
	f := newIngredientFixture(t, ingredient("i1", baseTime.Add(time.Hour)))
	f.repo.links["i1"] = []string{"p1"}

	require.NoError(t, f.svc.Delete(context.Background(), "i1"))

	assert.Equal(t, []string{"delete-ingredient-i1"}, f.sched.cancelled)
	assert.ElementsMatch(t, []string{
		"collection:" + cache.CollectionIngredients,
		"collection:" + cache.CollectionProducts,
		"prices:p1",
	}, f.views.deleted)
}

func TestIngredientService_Delete_DropsProductSnapshotWhenLinked(t *testing.T) {
	ctx := context.Background()
	bread := []model.Product{{ID: "bread", Ingredients: []model.ProductIngredient{
		{IngredientID: "flour", Quantity: decimal.NewFromInt(1)},
		{IngredientID: "milk", Quantity: decimal.NewFromInt(1)},
	}}}

	f := newIngredientFixture(t, ingredient("milk", baseTime.Add(time.Hour)), ingredient("salt", baseTime.Add(time.Hour)))
	f.repo.links["milk"] = []string{"bread"}
	require.NoError(t, f.views.store.StoreCollection(ctx, cache.CollectionProducts, bread))

	require.NoError(t, f.svc.Delete(ctx, "salt"))
	exists, err := f.views.store.CheckExists(ctx, cache.CollectionProducts)
	require.NoError(t, err)
	assert.True(t, exists, "unlinked ingredient leaves the product snapshot alone")

	require.NoError(t, f.svc.Delete(ctx, "milk"))
	exists, err = f.views.store.CheckExists(ctx, cache.CollectionProducts)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIngredientService_Update_KeepsProductSnapshot(t *testing.T) {
	f := newIngredientFixture(t, ingredient("i1", baseTime.Add(time.Hour)))
	f.repo.links["i1"] = []string{"p1"}
	price := decimal.RequireFromString("3")

	_, err := f.svc.Update(context.Background(), "i1", model.IngredientUpdate{Price: &price})
	require.NoError(t, err)
	assert.NotContains(t, f.views.deleted, "collection:"+cache.CollectionProducts)
}

func TestIngredientService_StoreFailureAbortsBeforeSideEffects(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{name: "connection lost", err: fmt.Errorf("create ingredient: %w", repository.ErrConnectionLost), kind: KindUnavailable},
		{name: "unknown", err: errors.New("constraint violated"), kind: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIngredientFixture(t)
			f.repo.err = tt.err
			in := ingredient("i1", baseTime.Add(time.Hour))

			_, err := f.svc.Create(context.Background(), &in)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.ErrorIs(t, err, tt.err)

			assert.Empty(t, f.sched.scheduled)
			assert.Zero(t, f.views.total())
		})
	}
}

func TestIngredientService_UnknownErrorIsLoggedWithAction(t *testing.T) {
	f := newIngredientFixture(t)
	f.repo.err = errors.New("disk full")
	in := ingredient("i1", baseTime.Add(time.Hour))

	_, err := f.svc.Create(context.Background(), &in)
	require.Error(t, err)

	assert.Contains(t, f.logs.String(), `"action":"create ingredient"`)
	assert.Contains(t, f.logs.String(), "disk full")
}

func TestIngredientService_CacheFailureAfterCommit(t *testing.T) {
	f := newIngredientFixture(t)
	f.views.fail["DeleteCollection"] = errors.New("redis down")
	in := ingredient("i1", baseTime.Add(time.Hour))

	_, err := f.svc.Create(context.Background(), &in)
	assert.Equal(t, KindCacheInconsistency, KindOf(err))

	_, stored := f.repo.items["i1"]
	assert.True(t, stored, "write is not rolled back")
	assert.Len(t, f.sched.scheduled, 1, "timer armed for the committed write")
	assert.Contains(t, f.logs.String(), "cache out of sync")
}

func TestIngredientService_ListReadsThroughSnapshot(t *testing.T) {
	f := newIngredientFixture(t, ingredient("i1", baseTime.Add(time.Hour)))
	ctx := context.Background()

	first, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, second, 1)
	assert.Len(t, f.repo.findManyCalls(), 1, "second read served from snapshot")

	in := ingredient("i2", baseTime.Add(time.Hour))
	_, err = f.svc.Create(ctx, &in)
	require.NoError(t, err)

	third, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, third, 2)
	assert.Len(t, f.repo.findManyCalls(), 2, "create dropped the snapshot")
}

func TestIngredientService_ListDegradesOnCacheFailure(t *testing.T) {
	f := newIngredientFixture(t, ingredient("i1", baseTime.Add(time.Hour)))
	f.views.fail["CheckExists"] = errors.New("redis down")

	items, err := f.svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Zero(t, f.views.count("StoreCollection"))
}

func TestIngredientService_Rearm(t *testing.T) {
	expired := ingredient("old", baseTime.Add(-time.Hour))
	alreadyExpired := ingredient("gone", baseTime.Add(-time.Hour))
	alreadyExpired.Status = model.StatusExpired

	f := newIngredientFixture(t,
		ingredient("fresh", baseTime.Add(time.Hour)),
		expired,
		alreadyExpired,
	)

	armed, swept, err := f.svc.Rearm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, armed)
	assert.Equal(t, 1, swept)

	require.Len(t, f.sched.scheduled, 1)
	assert.Equal(t, "delete-ingredient-fresh", f.sched.scheduled[0].Name)
	assert.Equal(t, model.StatusExpired, f.repo.status("old"))
	assert.Equal(t, model.StatusInStock, f.repo.status("fresh"))
}

func TestIngredientService_SweepExpired(t *testing.T) {
	f := newIngredientFixture(t,
		ingredient("fresh", baseTime.Add(time.Hour)),
		ingredient("old", baseTime.Add(-time.Minute)),
	)

	n, err := f.svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, model.StatusExpired, f.repo.status("old"))
	assert.Empty(t, f.sched.scheduled)
}

// The create → fire path against the real scheduler and clock.
func TestIngredientService_TimerFiresWithRealScheduler(t *testing.T) {
	repo := newFakeIngredientRepo()
	views := newSpyViews(t)
	sched := scheduler.New(scheduler.WithLogger(zerolog.Nop()))
	t.Cleanup(sched.Stop)

	svc := NewIngredientService(repo, views, sched, zerolog.Nop())
	in := ingredient("i1", time.Now().Add(30*time.Millisecond))

	_, err := svc.Create(context.Background(), &in)
	require.NoError(t, err)
	assert.True(t, sched.Exists(IngredientJobName("i1")))

	require.Eventually(t, func() bool {
		return repo.status("i1") == model.StatusExpired
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return !sched.Exists(IngredientJobName("i1"))
	}, time.Second, 5*time.Millisecond)
}

// Rescheduling into the past removes the live timer and only warns.
func TestIngredientService_UpdateToPastWithRealScheduler(t *testing.T) {
	repo := newFakeIngredientRepo()
	var logs bytes.Buffer
	sched := scheduler.New(scheduler.WithLogger(zerolog.New(&logs)))
	t.Cleanup(sched.Stop)

	svc := NewIngredientService(repo, newSpyViews(t), sched, zerolog.Nop())
	in := ingredient("i1", time.Now().Add(time.Hour))
	_, err := svc.Create(context.Background(), &in)
	require.NoError(t, err)
	require.True(t, sched.Exists(IngredientJobName("i1")))

	past := time.Now().Add(-10 * time.Second)
	_, err = svc.Update(context.Background(), "i1", model.IngredientUpdate{ExpiredAt: &past})
	require.NoError(t, err)

	assert.False(t, sched.Exists(IngredientJobName("i1")))
	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Equal(t, model.StatusInStock, repo.status("i1"))
}
