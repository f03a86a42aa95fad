package quota

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockQuotaStore is an in-memory store.QuotaStore safe for concurrent use.
// Fn fields override behavior when set.
type mockQuotaStore struct {
	mu     sync.Mutex
	quotas map[uuid.UUID]domain.UserQuota

	getByUserIDFn func(ctx context.Context, userID uuid.UUID) (*domain.UserQuota, error)
	updateFn      func(ctx context.Context, quota *domain.UserQuota) error
}

func newMockQuotaStore() *mockQuotaStore {
	return &mockQuotaStore{quotas: make(map[uuid.UUID]domain.UserQuota)}
}

func (m *mockQuotaStore) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.UserQuota, error) {
	if m.getByUserIDFn != nil {
		return m.getByUserIDFn(ctx, userID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	quota, ok := m.quotas[userID]
	if !ok {
		return nil, store.ErrQuotaNotFound
	}
	copied := quota
	return &copied, nil
}

func (m *mockQuotaStore) Update(ctx context.Context, quota *domain.UserQuota) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, quota)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotas[quota.UserID] = *quota
	return nil
}

func (m *mockQuotaStore) WithTx(tx *sql.Tx) store.QuotaStore {
	return m
}

func (m *mockQuotaStore) balance(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quotas[userID].CreditsRemaining
}

func (m *mockQuotaStore) seed(t *testing.T, userID uuid.UUID, tier domain.QuotaTier, credits int) {
	t.Helper()
	quota, err := domain.NewUserQuota(userID, tier, credits)
	require.NoError(t, err)
	m.mu.Lock()
	m.quotas[userID] = *quota
	m.mu.Unlock()
}

func testLimits() map[domain.QuotaTier]domain.TierLimits {
	return map[domain.QuotaTier]domain.TierLimits{
		domain.QuotaTierFree: {MonthlyCredits: 30, MaxImagesPerDay: 10, OnDemandAllowed: false},
		domain.QuotaTierPlus: {MonthlyCredits: 150, MaxImagesPerDay: 40, OnDemandAllowed: true},
		domain.QuotaTierPro:  {MonthlyCredits: 500, MaxImagesPerDay: 0, OnDemandAllowed: true},
	}
}

func newTestLedger(qs store.QuotaStore) *Ledger {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewLedger(qs, testLimits(), logger)
}

func TestReserveAndCommitRefundsUnused(t *testing.T) {
	t.Parallel()

	qs := newMockQuotaStore()
	userID := uuid.New()
	qs.seed(t, userID, domain.QuotaTierFree, 10)
	ledger := newTestLedger(qs)

	reservation, err := ledger.Reserve(context.Background(), userID, 5, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, qs.balance(userID), "hold is taken up front")

	// Only 3 of 5 requests succeeded; 2 credits come back.
	require.NoError(t, ledger.Commit(context.Background(), reservation.ID, 3, 3))
	assert.Equal(t, 7, qs.balance(userID))

	quota, err := qs.GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 3, quota.ImagesGeneratedToday)
}

func TestReserveInsufficientCredits(t *testing.T) {
	t.Parallel()

	qs := newMockQuotaStore()
	userID := uuid.New()
	qs.seed(t, userID, domain.QuotaTierFree, 3)
	ledger := newTestLedger(qs)

	_, err := ledger.Reserve(context.Background(), userID, 5, 5)

	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, 3, qs.balance(userID), "failed reservation must not charge")
}

func TestReserveDailyLimit(t *testing.T) {
	t.Parallel()

	qs := newMockQuotaStore()
	userID := uuid.New()
	qs.seed(t, userID, domain.QuotaTierFree, 30)
	ledger := newTestLedger(qs)

	// Free tier allows 10 images per day.
	_, err := ledger.Reserve(context.Background(), userID, 11, 11)
	assert.ErrorIs(t, err, ErrDailyLimitExceeded)
	assert.Equal(t, 30, qs.balance(userID))

	reservation, err := ledger.Reserve(context.Background(), userID, 8, 8)
	require.NoError(t, err)
	require.NoError(t, ledger.Commit(context.Background(), reservation.ID, 8, 8))

	// 8 images recorded today, 2 left.
	_, err = ledger.Reserve(context.Background(), userID, 3, 3)
	assert.ErrorIs(t, err, ErrDailyLimitExceeded)

	_, err = ledger.Reserve(context.Background(), userID, 2, 2)
	assert.NoError(t, err)
}

func TestReserveDailyLimitCountsUnsettledHolds(t *testing.T) {
	t.Parallel()

	qs := newMockQuotaStore()
	userID := uuid.New()
	qs.seed(t, userID, domain.QuotaTierFree, 30)
	ledger := newTestLedger(qs)

	// Free tier allows 10 images per day. A second batch must see the first
	// batch's hold even though nothing has committed yet.
	first, err := ledger.Reserve(context.Background(), userID, 6, 6)
	require.NoError(t, err)

	_, err = ledger.Reserve(context.Background(), userID, 6, 6)
	assert.ErrorIs(t, err, ErrDailyLimitExceeded)

	_, err = ledger.Reserve(context.Background(), userID, 4, 4)
	assert.NoError(t, err)

	// Releasing the first hold frees its image headroom again.
	require.NoError(t, ledger.Release(context.Background(), first.ID))

	_, err = ledger.Reserve(context.Background(), userID, 6, 6)
	assert.NoError(t, err)
}

func TestReleaseRefundsInFull(t *testing.T) {
	t.Parallel()

	qs := newMockQuotaStore()
	userID := uuid.New()
	qs.seed(t, userID, domain.QuotaTierPlus, 20)
	ledger := newTestLedger(qs)

	reservation, err := ledger.Reserve(context.Background(), userID, 6, 6)
	require.NoError(t, err)
	assert.Equal(t, 14, qs.balance(userID))

	require.NoError(t, ledger.Release(context.Background(), reservation.ID))
	assert.Equal(t, 20, qs.balance(userID))

	quota, err := qs.GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Zero(t, quota.ImagesGeneratedToday, "release records no usage")
}

func TestReservationSettlesAtMostOnce(t *testing.T) {
	t.Parallel()

	qs := newMockQuotaStore()
	userID := uuid.New()
	qs.seed(t, userID, domain.QuotaTierPlus, 20)
	ledger := newTestLedger(qs)

	reservation, err := ledger.Reserve(context.Background(), userID, 4, 4)
	require.NoError(t, err)

	require.NoError(t, ledger.Commit(context.Background(), reservation.ID, 4, 4))

	err = ledger.Commit(context.Background(), reservation.ID, 4, 4)
	assert.ErrorIs(t, err, ErrReservationNotFound, "double commit must fail")

	err = ledger.Release(context.Background(), reservation.ID)
	assert.ErrorIs(t, err, ErrReservationNotFound, "commit then release must fail")
}

func TestCommitClampsToReserved(t *testing.T) {
	t.Parallel()

	qs := newMockQuotaStore()
	userID := uuid.New()
	qs.seed(t, userID, domain.QuotaTierPlus, 20)
	ledger := newTestLedger(qs)

	reservation, err := ledger.Reserve(context.Background(), userID, 5, 5)
	require.NoError(t, err)

	// Claiming more than reserved charges only the reserved amount.
	require.NoError(t, ledger.Commit(context.Background(), reservation.ID, 50, 5))
	assert.Equal(t, 15, qs.balance(userID))
}

func TestConcurrentReserveNeverOversells(t *testing.T) {
	t.Parallel()

	qs := newMockQuotaStore()
	userID := uuid.New()
	qs.seed(t, userID, domain.QuotaTierPro, 10)
	ledger := newTestLedger(qs)

	const workers = 50
	var (
		wg        sync.WaitGroup
		succeeded int
		mu        sync.Mutex
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Reserve(context.Background(), userID, 1, 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded, "exactly the available credits may be reserved")
	assert.Equal(t, 0, qs.balance(userID))
	assert.GreaterOrEqual(t, qs.balance(userID), 0, "balance never goes negative")
}

func TestReserveStoreFailure(t *testing.T) {
	t.Parallel()

	qs := newMockQuotaStore()
	userID := uuid.New()
	qs.seed(t, userID, domain.QuotaTierFree, 10)
	qs.updateFn = func(ctx context.Context, quota *domain.UserQuota) error {
		return errors.New("connection reset")
	}
	ledger := newTestLedger(qs)

	_, err := ledger.Reserve(context.Background(), userID, 5, 5)

	require.Error(t, err)
	assert.Equal(t, 10, qs.balance(userID), "failed persistence leaves the stored balance intact")
}

func TestAllowOnDemand(t *testing.T) {
	t.Parallel()

	qs := newMockQuotaStore()
	freeUser := uuid.New()
	proUser := uuid.New()
	qs.seed(t, freeUser, domain.QuotaTierFree, 10)
	qs.seed(t, proUser, domain.QuotaTierPro, 10)
	ledger := newTestLedger(qs)

	assert.ErrorIs(t, ledger.AllowOnDemand(context.Background(), freeUser), ErrOnDemandNotAllowed)
	assert.NoError(t, ledger.AllowOnDemand(context.Background(), proUser))
}

func TestReserveUnknownUser(t *testing.T) {
	t.Parallel()

	ledger := newTestLedger(newMockQuotaStore())

	_, err := ledger.Reserve(context.Background(), uuid.New(), 1, 1)
	assert.ErrorIs(t, err, store.ErrQuotaNotFound)
}

func TestDailyCounterRollsOverOnCommit(t *testing.T) {
	t.Parallel()

	qs := newMockQuotaStore()
	userID := uuid.New()
	qs.seed(t, userID, domain.QuotaTierFree, 30)

	// Backdate the day so the counter is stale.
	qs.mu.Lock()
	q := qs.quotas[userID]
	q.ImagesGeneratedToday = 9
	q.DayStartedAt = time.Now().UTC().Add(-25 * time.Hour)
	qs.quotas[userID] = q
	qs.mu.Unlock()

	ledger := newTestLedger(qs)

	// 9 stale images would block a 5-image reservation; the rollover
	// makes room.
	reservation, err := ledger.Reserve(context.Background(), userID, 5, 5)
	require.NoError(t, err)
	require.NoError(t, ledger.Commit(context.Background(), reservation.ID, 5, 5))

	quota, err := qs.GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 5, quota.ImagesGeneratedToday)
}
