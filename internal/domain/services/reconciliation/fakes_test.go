package reconciliation

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/fund-service/fund_service/internal/domain/entities"
)

// MockAllocationSource is a mock implementation of AllocationSource
type MockAllocationSource struct {
	mock.Mock
}

func (m *MockAllocationSource) GetRecommendation(ctx context.Context, fundID uuid.UUID) ([]entities.Recommendation, error) {
	args := m.Called(ctx, fundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Recommendation), args.Error(1)
}

// MockPriceOracle is a mock implementation of PriceOracle
type MockPriceOracle struct {
	mock.Mock
}

func (m *MockPriceOracle) GetPrice(ctx context.Context, assetID string) (decimal.Decimal, error) {
	args := m.Called(ctx, assetID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockTradeExecutor is a mock implementation of TradeExecutor
type MockTradeExecutor struct {
	mock.Mock
}

func (m *MockTradeExecutor) Execute(ctx context.Context, fund *entities.Fund, intent *entities.TradeIntent) (*entities.ExecutionResult, error) {
	args := m.Called(ctx, fund, intent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ExecutionResult), args.Error(1)
}

type positionKey struct {
	fundID  uuid.UUID
	assetID string
}

// positionStore keeps positions in memory and hands out copies
type positionStore struct {
	mu      sync.Mutex
	rows    map[positionKey]*entities.Position
	order   []positionKey
	upserts int

	listOpenErr error
}

func newPositionStore(positions ...*entities.Position) *positionStore {
	s := &positionStore{rows: make(map[positionKey]*entities.Position)}
	for _, p := range positions {
		_ = s.Upsert(context.Background(), p)
	}
	s.upserts = 0
	return s
}

func (s *positionStore) Get(_ context.Context, fundID uuid.UUID, assetID string) (*entities.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[positionKey{fundID, assetID}]
	if !ok {
		return nil, entities.ErrPositionNotFound
	}
	return p.Clone(), nil
}

func (s *positionStore) Upsert(_ context.Context, p *entities.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := positionKey{p.FundID, p.AssetID}
	if _, ok := s.rows[key]; !ok {
		s.order = append(s.order, key)
	}
	s.rows[key] = p.Clone()
	s.upserts++
	return nil
}

func (s *positionStore) list(fundID uuid.UUID, keep func(*entities.Position) bool) []*entities.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entities.Position
	for _, key := range s.order {
		p := s.rows[key]
		if key.fundID == fundID && keep(p) {
			out = append(out, p.Clone())
		}
	}
	return out
}

func (s *positionStore) ListOpenPositions(_ context.Context, fundID uuid.UUID) ([]*entities.Position, error) {
	if s.listOpenErr != nil {
		return nil, s.listOpenErr
	}
	return s.list(fundID, func(p *entities.Position) bool { return p.Status == entities.PositionStatusHold }), nil
}

func (s *positionStore) ListAll(_ context.Context, fundID uuid.UUID) ([]*entities.Position, error) {
	return s.list(fundID, func(*entities.Position) bool { return true }), nil
}

func (s *positionStore) ListByStatus(_ context.Context, fundID uuid.UUID, status entities.PositionStatus) ([]*entities.Position, error) {
	return s.list(fundID, func(p *entities.Position) bool { return p.Status == status }), nil
}

type tradeStore struct {
	mu     sync.Mutex
	trades []*entities.TradeRecord
}

func (s *tradeStore) Create(_ context.Context, t *entities.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *t
	s.trades = append(s.trades, &c)
	return nil
}

func (s *tradeStore) ListByFund(_ context.Context, fundID uuid.UUID, limit, offset int) ([]*entities.TradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entities.TradeRecord
	for _, t := range s.trades {
		if t.FundID == fundID {
			out = append(out, t)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

type fundStore struct {
	mu      sync.Mutex
	funds   map[uuid.UUID]*entities.Fund
	updates []*entities.FundUpdate
	history []*entities.PnLHistoryEntry
}

func newFundStore(funds ...*entities.Fund) *fundStore {
	s := &fundStore{funds: make(map[uuid.UUID]*entities.Fund)}
	for _, f := range funds {
		c := *f
		s.funds[f.ID] = &c
	}
	return s
}

func (s *fundStore) GetByID(_ context.Context, id uuid.UUID) (*entities.Fund, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.funds[id]
	if !ok {
		return nil, entities.ErrFundNotFound
	}
	c := *f
	return &c, nil
}

func (s *fundStore) ListActive(_ context.Context) ([]*entities.Fund, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entities.Fund
	for _, f := range s.funds {
		if f.IsActive() {
			c := *f
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *fundStore) ListIDs(_ context.Context) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(s.funds))
	for id := range s.funds {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *fundStore) ApplyCycleUpdate(_ context.Context, u *entities.FundUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.funds[u.FundID]
	if !ok {
		return entities.ErrFundNotFound
	}
	f.BaseCurrencyBalance = f.BaseCurrencyBalance.Add(u.BalanceDelta)
	f.NetAssetValue = u.NetAssetValue
	f.RealizedProfit = u.RealizedProfit
	f.UnrealizedProfit = u.UnrealizedProfit
	f.TotalPnLPercent = u.TotalPnLPercent
	at := u.ReconciledAt
	f.LastReconciledAt = &at
	s.updates = append(s.updates, u)
	h := u.History
	s.history = append(s.history, &h)
	return nil
}

func (s *fundStore) ListHistory(_ context.Context, fundID uuid.UUID, limit int) ([]*entities.PnLHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entities.PnLHistoryEntry
	for _, h := range s.history {
		if h.FundID == fundID {
			out = append(out, h)
		}
	}
	if limit > 0 && limit < len(out) {
		out = out[len(out)-limit:]
	}
	return out, nil
}
