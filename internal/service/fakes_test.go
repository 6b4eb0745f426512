package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"freshmart-api/internal/cache"
	"freshmart-api/internal/model"
	"freshmart-api/internal/repository"
	"freshmart-api/internal/scheduler"

	"github.com/rs/zerolog"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// --- scheduler spy ---

type scheduleCall struct {
	Name   string
	FireAt time.Time
	Action scheduler.Action
}

type fakeScheduler struct {
	mu        sync.Mutex
	now       func() time.Time
	scheduled []scheduleCall
	cancelled []string
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{now: func() time.Time { return baseTime }}
}

func (f *fakeScheduler) ScheduleOrReschedule(name string, fireAt time.Time, action scheduler.Action) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, scheduleCall{Name: name, FireAt: fireAt, Action: action})
	return fireAt.After(f.now())
}

func (f *fakeScheduler) Cancel(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, name)
}

func (f *fakeScheduler) last() scheduleCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scheduled[len(f.scheduled)-1]
}

// --- view cache spy ---

// spyViews forwards to a real cache.Store over a MemoryStore, counting calls
// and optionally failing selected methods.
type spyViews struct {
	store *cache.Store

	mu           sync.Mutex
	calls        map[string]int
	fail         map[string]error
	storedPrices []map[string]model.PriceRecord
	deleted      []string
}

func newSpyViews(t *testing.T, opts ...cache.StoreOption) *spyViews {
	t.Helper()
	kv := cache.NewMemoryStore()
	t.Cleanup(func() { kv.Close() })
	opts = append([]cache.StoreOption{cache.WithLogger(zerolog.Nop())}, opts...)
	return &spyViews{
		store: cache.NewStore(kv, "test", opts...),
		calls: make(map[string]int),
		fail:  make(map[string]error),
	}
}

func (v *spyViews) record(method string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls[method]++
	return v.fail[method]
}

func (v *spyViews) count(method string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls[method]
}

func (v *spyViews) total() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for _, c := range v.calls {
		n += c
	}
	return n
}

func (v *spyViews) CheckExists(ctx context.Context, collection string) (bool, error) {
	if err := v.record("CheckExists"); err != nil {
		return false, err
	}
	return v.store.CheckExists(ctx, collection)
}

func (v *spyViews) GetCollection(ctx context.Context, collection string, dest any) error {
	if err := v.record("GetCollection"); err != nil {
		return err
	}
	return v.store.GetCollection(ctx, collection, dest)
}

func (v *spyViews) StoreCollection(ctx context.Context, collection string, items any) error {
	if err := v.record("StoreCollection"); err != nil {
		return err
	}
	return v.store.StoreCollection(ctx, collection, items)
}

func (v *spyViews) DeleteCollection(ctx context.Context, collection string) error {
	if err := v.record("DeleteCollection"); err != nil {
		return err
	}
	v.mu.Lock()
	v.deleted = append(v.deleted, "collection:"+collection)
	v.mu.Unlock()
	return v.store.DeleteCollection(ctx, collection)
}

func (v *spyViews) GetProductIngredientPrices(ctx context.Context, productID string, ingredientIDs []string) ([]*model.PriceRecord, error) {
	if err := v.record("GetProductIngredientPrices"); err != nil {
		return nil, err
	}
	return v.store.GetProductIngredientPrices(ctx, productID, ingredientIDs)
}

func (v *spyViews) StoreProductIngredientPrices(ctx context.Context, productID string, records map[string]model.PriceRecord) error {
	if err := v.record("StoreProductIngredientPrices"); err != nil {
		return err
	}
	v.mu.Lock()
	v.storedPrices = append(v.storedPrices, records)
	v.mu.Unlock()
	return v.store.StoreProductIngredientPrices(ctx, productID, records)
}

func (v *spyViews) DeleteProductIngredientPrices(ctx context.Context, productID string) error {
	if err := v.record("DeleteProductIngredientPrices"); err != nil {
		return err
	}
	v.mu.Lock()
	v.deleted = append(v.deleted, "prices:"+productID)
	v.mu.Unlock()
	return v.store.DeleteProductIngredientPrices(ctx, productID)
}

func (v *spyViews) InvalidateIngredientPrices(ctx context.Context, ingredientID string, productIDs ...string) ([]string, error) {
	if err := v.record("InvalidateIngredientPrices"); err != nil {
		return nil, err
	}
	dropped, err := v.store.InvalidateIngredientPrices(ctx, ingredientID, productIDs...)
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	for _, productID := range dropped {
		v.deleted = append(v.deleted, "prices:"+productID)
	}
	v.mu.Unlock()
	return dropped, nil
}

func (v *spyViews) RecordVisit(ctx context.Context, productID, userID string) error {
	if err := v.record("RecordVisit"); err != nil {
		return err
	}
	return v.store.RecordVisit(ctx, productID, userID)
}

func (v *spyViews) GetVisitors(ctx context.Context, productID string) ([]string, error) {
	if err := v.record("GetVisitors"); err != nil {
		return nil, err
	}
	return v.store.GetVisitors(ctx, productID)
}

func (v *spyViews) RemoveVisit(ctx context.Context, productID, userID string) error {
	if err := v.record("RemoveVisit"); err != nil {
		return err
	}
	return v.store.RemoveVisit(ctx, productID, userID)
}

func (v *spyViews) RemoveAllVisitsForProduct(ctx context.Context, productID string) error {
	if err := v.record("RemoveAllVisitsForProduct"); err != nil {
		return err
	}
	return v.store.RemoveAllVisitsForProduct(ctx, productID)
}

func (v *spyViews) RecordProductsForUser(ctx context.Context, productIDs []string, userID string) error {
	if err := v.record("RecordProductsForUser"); err != nil {
		return err
	}
	return v.store.RecordProductsForUser(ctx, productIDs, userID)
}

func (v *spyViews) GetProductsForUser(ctx context.Context, userID string) ([]string, error) {
	if err := v.record("GetProductsForUser"); err != nil {
		return nil, err
	}
	return v.store.GetProductsForUser(ctx, userID)
}

func (v *spyViews) RemoveProductsForUser(ctx context.Context, userID string) error {
	if err := v.record("RemoveProductsForUser"); err != nil {
		return err
	}
	return v.store.RemoveProductsForUser(ctx, userID)
}

// --- repositories ---

type fakeIngredientRepo struct {
	mu       sync.Mutex
	items    map[string]model.Ingredient
	links    map[string][]string
	err      error
	findMany []model.IngredientFilter
	// afterFind runs once, after the next FindMany has read its rows.
	afterFind func()
}

func newFakeIngredientRepo(items ...model.Ingredient) *fakeIngredientRepo {
	r := &fakeIngredientRepo{items: make(map[string]model.Ingredient), links: make(map[string][]string)}
	for _, in := range items {
		r.items[in.ID] = in
	}
	return r
}

func (r *fakeIngredientRepo) status(id string) model.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id].Status
}

func (r *fakeIngredientRepo) findManyCalls() []model.IngredientFilter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.IngredientFilter(nil), r.findMany...)
}

func (r *fakeIngredientRepo) Create(ctx context.Context, in *model.Ingredient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.items[in.ID] = *in
	return nil
}

func (r *fakeIngredientRepo) Update(ctx context.Context, id string, upd model.IngredientUpdate) (*model.Ingredient, []string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, nil, r.err
	}
	in, ok := r.items[id]
	if !ok {
		return nil, nil, repository.ErrNotFound
	}
	if upd.Name != nil {
		in.Name = *upd.Name
	}
	if upd.Price != nil {
		in.Price = *upd.Price
	}
	if upd.Unit != nil {
		in.Unit = *upd.Unit
	}
	if upd.Status != nil {
		in.Status = *upd.Status
	}
	if upd.ExpiredAt != nil {
		in.ExpiredAt = *upd.ExpiredAt
	}
	r.items[id] = in
	return &in, append([]string(nil), r.links[id]...), nil
}

func (r *fakeIngredientRepo) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	in, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	in.Status = status
	r.items[id] = in
	return nil
}

func (r *fakeIngredientRepo) Delete(ctx context.Context, id string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if _, ok := r.items[id]; !ok {
		return nil, repository.ErrNotFound
	}
	delete(r.items, id)
	linked := r.links[id]
	delete(r.links, id)
	return linked, nil
}

func (r *fakeIngredientRepo) FindByID(ctx context.Context, id string) (*model.Ingredient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	in, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &in, nil
}

func (r *fakeIngredientRepo) FindMany(ctx context.Context, filter model.IngredientFilter) ([]model.Ingredient, error) {
	out, err := r.findManyLocked(filter)
	if hook := r.takeAfterFind(); hook != nil {
		hook()
	}
	return out, err
}

func (r *fakeIngredientRepo) takeAfterFind() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	hook := r.afterFind
	r.afterFind = nil
	return hook
}

func (r *fakeIngredientRepo) findManyLocked(filter model.IngredientFilter) ([]model.Ingredient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findMany = append(r.findMany, filter)
	if r.err != nil {
		return nil, r.err
	}

	out := make([]model.Ingredient, 0)
	for _, in := range r.items {
		if len(filter.IDs) > 0 && !contains(filter.IDs, in.ID) {
			continue
		}
		if containsStatus(filter.ExcludeStatus, in.Status) {
			continue
		}
		out = append(out, in)
	}
	return out, nil
}

func (r *fakeIngredientRepo) FindProductIDsByIngredient(ctx context.Context, id string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return append([]string(nil), r.links[id]...), nil
}

type fakeProductRepo struct {
	mu    sync.Mutex
	items map[string]model.Product
	err   error
}

func newFakeProductRepo(items ...model.Product) *fakeProductRepo {
	r := &fakeProductRepo{items: make(map[string]model.Product)}
	for _, p := range items {
		r.items[p.ID] = p
	}
	return r
}

func (r *fakeProductRepo) status(id string) model.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id].Status
}

func (r *fakeProductRepo) Create(ctx context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.items[p.ID] = *p
	return nil
}

func (r *fakeProductRepo) Update(ctx context.Context, id string, upd model.ProductUpdate) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Status != nil {
		p.Status = *upd.Status
	}
	if upd.ExpiredAt != nil {
		p.ExpiredAt = *upd.ExpiredAt
	}
	if upd.Ingredients != nil {
		p.Ingredients = upd.Ingredients
	}
	r.items[id] = p
	return &p, nil
}

func (r *fakeProductRepo) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	p, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = status
	r.items[id] = p
	return nil
}

func (r *fakeProductRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeProductRepo) FindByID(ctx context.Context, id string) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *fakeProductRepo) FindMany(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]model.Product, 0)
	for _, p := range r.items {
		if len(filter.IDs) > 0 && !contains(filter.IDs, p.ID) {
			continue
		}
		if containsStatus(filter.ExcludeStatus, p.Status) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

type fakeCategoryRepo struct {
	mu       sync.Mutex
	items    map[string]model.Category
	findAlls int
}

func (r *fakeCategoryRepo) Create(ctx context.Context, c *model.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[c.ID] = *c
	return nil
}

func (r *fakeCategoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeCategoryRepo) FindAll(ctx context.Context) ([]model.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findAlls++
	out := make([]model.Category, 0, len(r.items))
	for _, c := range r.items {
		out = append(out, c)
	}
	return out, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsStatus(list []model.Status, v model.Status) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

var (
	_ repository.IngredientRepository = (*fakeIngredientRepo)(nil)
	_ repository.ProductRepository    = (*fakeProductRepo)(nil)
	_ repository.CategoryRepository   = (*fakeCategoryRepo)(nil)
	_ ViewCache                       = (*spyViews)(nil)
	_ Scheduler                       = (*fakeScheduler)(nil)
)
