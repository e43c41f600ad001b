package sync

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bolsas-cloud/fullsync/internal/domain/catalog"
	"github.com/bolsas-cloud/fullsync/internal/domain/pipeline"
	"github.com/bolsas-cloud/fullsync/internal/domain/replenish"
	"github.com/bolsas-cloud/fullsync/internal/domain/sales"
	"github.com/bolsas-cloud/fullsync/internal/domain/settings"
	"github.com/bolsas-cloud/fullsync/internal/domain/shared"
	"github.com/bolsas-cloud/fullsync/internal/infrastructure/meli"
)

// ---------------------------------------------------------------------------
// Gateway fake
// ---------------------------------------------------------------------------

type fakeGateway struct {
	mu sync.Mutex

	listingIDs  []string
	listings    []catalog.Listing
	details     map[string]*meli.FulfillmentDetails
	stock       map[string]int
	orders      []sales.Record
	adSpend     []sales.AdSpend
	err         error
	stockCalls  int
	priceCalls  []PriceUpdate
	stockPushes []StockUpdate
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		details: make(map[string]*meli.FulfillmentDetails),
		stock:   make(map[string]int),
	}
}

func (g *fakeGateway) ResolveSellerID(context.Context) (string, error) {
	return "42", g.err
}

func (g *fakeGateway) FetchAllListingIDs(context.Context) ([]string, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.listingIDs, nil
}

func (g *fakeGateway) FetchListings(_ context.Context, ids []string) ([]catalog.Listing, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.listings, nil
}

func (g *fakeGateway) FetchFulfillmentDetails(_ context.Context, listingID string) (*meli.FulfillmentDetails, error) {
	if g.err != nil {
		return nil, g.err
	}
	d, ok := g.details[listingID]
	if !ok {
		return nil, meli.ErrRequestFailed
	}
	return d, nil
}

func (g *fakeGateway) FetchFulfillmentStock(_ context.Context, inventoryID string) (*meli.FulfillmentStock, error) {
	g.mu.Lock()
	g.stockCalls++
	g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	return &meli.FulfillmentStock{InventoryID: inventoryID, AvailableQuantity: g.stock[inventoryID]}, nil
}

func (g *fakeGateway) FetchOrders(_ context.Context, from, to time.Time) ([]sales.Record, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.orders, nil
}

func (g *fakeGateway) FetchAdSpend(_ context.Context, from, to time.Time) ([]sales.AdSpend, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.adSpend, nil
}

func (g *fakeGateway) UpdatePrice(_ context.Context, listingID string, price decimal.Decimal) error {
	if g.err != nil {
		return g.err
	}
	g.mu.Lock()
	g.priceCalls = append(g.priceCalls, PriceUpdate{ListingID: listingID, Price: price})
	g.mu.Unlock()
	return nil
}

func (g *fakeGateway) UpdateStock(_ context.Context, listingID string, quantity int) error {
	if g.err != nil {
		return g.err
	}
	g.mu.Lock()
	g.stockPushes = append(g.stockPushes, StockUpdate{ListingID: listingID, Quantity: quantity})
	g.mu.Unlock()
	return nil
}

var _ Gateway = (*fakeGateway)(nil)

// ---------------------------------------------------------------------------
// Repository fakes
// ---------------------------------------------------------------------------

type fakeListingRepo struct {
	mu       sync.Mutex
	listings map[string]catalog.Listing
}

func newFakeListingRepo() *fakeListingRepo {
	return &fakeListingRepo{listings: make(map[string]catalog.Listing)}
}

func (r *fakeListingRepo) FindByID(_ context.Context, listingID string) (*catalog.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[listingID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &l, nil
}

func (r *fakeListingRepo) FindAll(context.Context) ([]catalog.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]catalog.Listing, 0, len(r.listings))
	for _, l := range r.listings {
		all = append(all, l)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ListingID < all[j].ListingID })
	return all, nil
}

func (r *fakeListingRepo) FindMissingInventoryID(context.Context) ([]catalog.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var missing []catalog.Listing
	for _, l := range r.listings {
		if l.InventoryID == "" {
			missing = append(missing, l)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].ListingID < missing[j].ListingID })
	return missing, nil
}

func (r *fakeListingRepo) UpsertBatch(_ context.Context, listings []catalog.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range listings {
		r.listings[l.ListingID] = l
	}
	return nil
}

func (r *fakeListingRepo) UpdateInventoryID(_ context.Context, listingID, inventoryID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[listingID]
	if !ok {
		return shared.ErrNotFound
	}
	l.InventoryID = inventoryID
	r.listings[listingID] = l
	return nil
}

func (r *fakeListingRepo) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.listings)), nil
}

var _ catalog.ListingRepository = (*fakeListingRepo)(nil)

type fakeRecordRepo struct {
	mu      sync.Mutex
	records map[string]sales.Record
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: make(map[string]sales.Record)}
}

func (r *fakeRecordRepo) UpsertBatch(_ context.Context, records []sales.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		r.records[rec.OrderID+"/"+rec.ListingID] = rec
	}
	return nil
}

func (r *fakeRecordRepo) FindSince(_ context.Context, since time.Time) ([]sales.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []sales.Record
	for _, rec := range r.records {
		if !rec.OrderDate.Before(since) {
			found = append(found, rec)
		}
	}
	return found, nil
}

func (r *fakeRecordRepo) TotalQuantitySince(_ context.Context, since time.Time) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	totals := make(map[string]int)
	for _, rec := range r.records {
		if !rec.OrderDate.Before(since) {
			totals[rec.DemandKey()] += rec.Quantity
		}
	}
	return totals, nil
}

func (r *fakeRecordRepo) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.records)), nil
}

var _ sales.RecordRepository = (*fakeRecordRepo)(nil)

type fakeAdSpendRepo struct {
	mu    sync.Mutex
	spend map[string]sales.AdSpend
}

func newFakeAdSpendRepo() *fakeAdSpendRepo {
	return &fakeAdSpendRepo{spend: make(map[string]sales.AdSpend)}
}

func (r *fakeAdSpendRepo) UpsertBatch(_ context.Context, spend []sales.AdSpend) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range spend {
		r.spend[s.Date.Format("2006-01-02")+"/"+s.CampaignID] = s
	}
	return nil
}

func (r *fakeAdSpendRepo) FindBetween(_ context.Context, from, to time.Time) ([]sales.AdSpend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []sales.AdSpend
	for _, s := range r.spend {
		if !s.Date.Before(from) && !s.Date.After(to) {
			found = append(found, s)
		}
	}
	return found, nil
}

var _ sales.AdSpendRepository = (*fakeAdSpendRepo)(nil)

type fakeResultRepo struct {
	mu      sync.Mutex
	results []replenish.Result
	writes  int
}

func (r *fakeResultRepo) ReplaceAll(_ context.Context, results []replenish.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append([]replenish.Result(nil), results...)
	r.writes++
	return nil
}

func (r *fakeResultRepo) FindAll(context.Context) ([]replenish.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]replenish.Result(nil), r.results...), nil
}

var _ replenish.ResultRepository = (*fakeResultRepo)(nil)

type fakeSettingsStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeSettingsStore() *fakeSettingsStore {
	return &fakeSettingsStore{values: make(map[string]string)}
}

func (s *fakeSettingsStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *fakeSettingsStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

var _ settings.Store = (*fakeSettingsStore)(nil)

// ---------------------------------------------------------------------------
// Pipeline fakes
// ---------------------------------------------------------------------------

type fakeRunRepo struct {
	mu   sync.Mutex
	runs map[uuid.UUID]pipeline.Run
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{runs: make(map[uuid.UUID]pipeline.Run)}
}

func (r *fakeRunRepo) Create(_ context.Context, run *pipeline.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = *run
	return nil
}

func (r *fakeRunRepo) Update(_ context.Context, run *pipeline.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = *run
	return nil
}

func (r *fakeRunRepo) FindByID(_ context.Context, id uuid.UUID) (*pipeline.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &run, nil
}

func (r *fakeRunRepo) FindLatest(context.Context) (*pipeline.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *pipeline.Run
	for id := range r.runs {
		run := r.runs[id]
		if latest == nil || run.StartedAt.After(latest.StartedAt) {
			latest = &run
		}
	}
	return latest, nil
}

var _ pipeline.RunRepository = (*fakeRunRepo)(nil)

type fakeContinuationStore struct {
	mu            sync.Mutex
	continuations map[uuid.UUID]pipeline.Continuation
}

func newFakeContinuationStore() *fakeContinuationStore {
	return &fakeContinuationStore{continuations: make(map[uuid.UUID]pipeline.Continuation)}
}

func (s *fakeContinuationStore) ScheduleOnce(_ context.Context, c *pipeline.Continuation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.continuations[c.ID] = *c
	return nil
}

func (s *fakeContinuationStore) CancelAllMatching(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.continuations {
		if strings.HasPrefix(string(c.Stage), prefix) {
			delete(s.continuations, id)
		}
	}
	return nil
}

func (s *fakeContinuationStore) Due(_ context.Context, now time.Time, limit int) ([]pipeline.Continuation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []pipeline.Continuation
	for _, c := range s.continuations {
		if !c.FireAt.After(now) && len(due) < limit {
			due = append(due, c)
		}
	}
	return due, nil
}

func (s *fakeContinuationStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.continuations, id)
	return nil
}

func (s *fakeContinuationStore) PendingMatching(_ context.Context, prefix string) ([]pipeline.Continuation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []pipeline.Continuation
	for _, c := range s.continuations {
		if strings.HasPrefix(string(c.Stage), prefix) {
			pending = append(pending, c)
		}
	}
	return pending, nil
}

var _ pipeline.ContinuationStore = (*fakeContinuationStore)(nil)

// fakeStage is a pipeline stage with scripted behavior
type fakeStage struct {
	name     pipeline.StageName
	err      error
	failures int // fail only the first N executions; 0 means every one
	executed int
}

func (s *fakeStage) Name() pipeline.StageName { return s.name }

func (s *fakeStage) Execute(context.Context, *pipeline.Run) error {
	s.executed++
	if s.err != nil && (s.failures == 0 || s.executed <= s.failures) {
		return s.err
	}
	return nil
}
