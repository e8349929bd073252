package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application/services/testhelpers"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/infrastructure/persistence/postgres"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RepositoryTestSuite struct {
	suite.Suite
	testDB *testhelpers.TestDatabase
	repos  postgres.Repositories
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (suite *RepositoryTestSuite) SetupSuite() {
	suite.testDB = testhelpers.SetupTestDatabase(suite.T())
	suite.repos = postgres.NewRepositories(suite.testDB.DB.Pool)
}

func (suite *RepositoryTestSuite) TearDownSuite() {
	suite.testDB.Cleanup(suite.T())
}

func (suite *RepositoryTestSuite) SetupTest() {
	suite.testDB.CleanTables(suite.T())
}

func (suite *RepositoryTestSuite) newCart(ttl time.Duration) *domain.Cart {
	cart, err := domain.NewCart(uuid.NewString(), "customer-1", domain.CurrencyUSD, ttl, time.Now().UTC())
	suite.Require().NoError(err)
	suite.Require().NoError(suite.repos.Carts.Create(context.Background(), cart))
	return cart
}

// newOrder stores an order for one unit of a fresh product without going
// through the services.
func (suite *RepositoryTestSuite) newOrder() *domain.Order {
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Microsecond)
	product := testhelpers.SeedProduct(suite.T(), suite.testDB.DB, "sku-"+uuid.NewString()[:8], 1000, "0.14", -1)

	cart, err := domain.NewCart(uuid.NewString(), "customer-1", domain.CurrencyUSD, time.Hour, at)
	suite.Require().NoError(err)
	_, err = cart.AddLine(uuid.NewString(), product, 1, nil, at)
	suite.Require().NoError(err)
	snap, err := cart.Freeze(at)
	suite.Require().NoError(err)

	number, err := suite.repos.Orders.NextOrderNumber(ctx, "FM", at.Year())
	suite.Require().NoError(err)
	order, err := domain.NewOrderFromSnapshot(uuid.NewString(), number, "ficmart", snap, uuid.NewString, at)
	suite.Require().NoError(err)
	suite.Require().NoError(suite.repos.Orders.Create(ctx, order))
	return order
}

// ============================================================================
// ORDERS
// ============================================================================

func (suite *RepositoryTestSuite) Test_NextOrderNumber_PerPrefixAndYear() {
	t := suite.T()
	ctx := context.Background()

	first, err := suite.repos.Orders.NextOrderNumber(ctx, "FM", 2026)
	require.NoError(t, err)
	second, err := suite.repos.Orders.NextOrderNumber(ctx, "FM", 2026)
	require.NoError(t, err)
	nextYear, err := suite.repos.Orders.NextOrderNumber(ctx, "FM", 2027)
	require.NoError(t, err)
	other, err := suite.repos.Orders.NextOrderNumber(ctx, "XS", 2026)
	require.NoError(t, err)

	assert.Equal(t, "FM-2026-000001", first)
	assert.Equal(t, "FM-2026-000002", second)
	assert.Equal(t, "FM-2027-000001", nextYear)
	assert.Equal(t, "XS-2026-000001", other)
}

func (suite *RepositoryTestSuite) Test_Order_RoundTrip() {
	t := suite.T()
	order := suite.newOrder()

	stored, err := suite.repos.Orders.FindByID(context.Background(), order.ID)

	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, stored.OrderNumber)
	assert.Equal(t, order.Total, stored.Total)
	assert.Equal(t, order.TaxAmount, stored.TaxAmount)
	assert.Equal(t, domain.OrderCreated, stored.Status)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, order.Items[0].ProductID, stored.Items[0].ProductID)

	byCart, err := suite.repos.Orders.FindByCartID(context.Background(), order.CartID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byCart.ID)
}

func (suite *RepositoryTestSuite) Test_Order_UpdateStatusDetectsStaleWrite() {
	t := suite.T()
	ctx := context.Background()
	order := suite.newOrder()
	at := time.Now().UTC()

	winner, err := suite.repos.Orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	loser, err := suite.repos.Orders.FindByID(ctx, order.ID)
	require.NoError(t, err)

	_, err = winner.AwaitPayment(domain.ProviderCard, "pi-1", at)
	require.NoError(t, err)
	require.NoError(t, suite.repos.Orders.UpdateStatus(ctx, winner, domain.OrderCreated))

	_, err = loser.Cancel("too slow", "ops-1", at)
	require.NoError(t, err)
	err = suite.repos.Orders.UpdateStatus(ctx, loser, domain.OrderCreated)

	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeStaleWrite))
	stored, err := suite.repos.Orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderAwaitingPayment, stored.Status)
}

func (suite *RepositoryTestSuite) Test_Order_EventsFilteredByVisibility() {
	t := suite.T()
	ctx := context.Background()
	order := suite.newOrder()
	at := time.Now().UTC()

	for _, ev := range []*domain.OrderEvent{order.Created(at), order.StockDecrementFailed("sku-1", 1, at.Add(time.Millisecond))} {
		ev.ID = uuid.NewString()
		require.NoError(t, suite.repos.Orders.AppendEvent(ctx, ev))
	}

	all, err := suite.repos.Orders.ListEvents(ctx, order.ID, false)
	require.NoError(t, err)
	visible, err := suite.repos.Orders.ListEvents(ctx, order.ID, true)
	require.NoError(t, err)

	require.Len(t, all, 2)
	assert.Equal(t, domain.EventOrderCreated, all[0].Type)
	require.Len(t, visible, 1)
	assert.Equal(t, domain.EventOrderCreated, visible[0].Type)
}

// ============================================================================
// CATALOG
// ============================================================================

func (suite *RepositoryTestSuite) Test_DecrementStock_IsConditional() {
	t := suite.T()
	ctx := context.Background()
	testhelpers.SeedProduct(t, suite.testDB.DB, "sku-tracked", 1000, "0.14", 3)

	ok, err := suite.repos.Catalog.DecrementStock(ctx, "sku-tracked", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = suite.repos.Catalog.DecrementStock(ctx, "sku-tracked", 2)
	require.NoError(t, err)
	assert.False(t, ok)

	product, err := suite.repos.Catalog.FindProduct(ctx, "sku-tracked")
	require.NoError(t, err)
	assert.Equal(t, 1, product.Stock)
}

func (suite *RepositoryTestSuite) Test_DecrementStock_UntrackedAlwaysSucceeds() {
	t := suite.T()
	testhelpers.SeedProduct(t, suite.testDB.DB, "sku-service", 1000, "0.14", -1)

	ok, err := suite.repos.Catalog.DecrementStock(context.Background(), "sku-service", 1000)

	require.NoError(t, err)
	assert.True(t, ok)
}

func (suite *RepositoryTestSuite) Test_FindProduct_PricesPerCurrency() {
	t := suite.T()
	testhelpers.SeedProduct(t, suite.testDB.DB, "sku-priced", 2500, "0.14", 5)

	product, err := suite.repos.Catalog.FindProduct(context.Background(), "sku-priced")

	require.NoError(t, err)
	assert.Equal(t, int64(2500), product.Prices[domain.CurrencyUSD])
	assert.Equal(t, int64(2250000), product.Prices[domain.CurrencyAOA])
	assert.Equal(t, "0.14", product.TaxRate.String())

	_, err = suite.repos.Catalog.FindProduct(context.Background(), "sku-missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func (suite *RepositoryTestSuite) Test_RedeemCoupon_RespectsUsageLimit() {
	t := suite.T()
	ctx := context.Background()
	limit := 1
	testhelpers.SeedFixedCoupon(t, suite.testDB.DB, "ONCE", 500, &limit)

	ok, err := suite.repos.Catalog.RedeemCoupon(ctx, "ONCE", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = suite.repos.Catalog.RedeemCoupon(ctx, "ONCE", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	coupon, err := suite.repos.Catalog.FindCoupon(ctx, "ONCE")
	require.NoError(t, err)
	assert.Equal(t, 1, coupon.UsedCount)
}

// ============================================================================
// CARTS
// ============================================================================

func (suite *RepositoryTestSuite) Test_Cart_FreezeOnlyOnce() {
	t := suite.T()
	ctx := context.Background()
	cart := suite.newCart(time.Hour)

	frozen, err := suite.repos.Carts.Freeze(ctx, cart.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, frozen)

	frozen, err = suite.repos.Carts.Freeze(ctx, cart.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, frozen)

	require.NoError(t, suite.repos.Carts.Reactivate(ctx, cart.ID, time.Now()))
	stored, err := suite.repos.Carts.FindByID(ctx, cart.ID)
	require.NoError(t, err)
	assert.True(t, stored.Active)
	assert.Nil(t, stored.CheckedOutAt)
}

func (suite *RepositoryTestSuite) Test_Cart_DeleteExpired() {
	t := suite.T()
	ctx := context.Background()
	expired := suite.newCart(-time.Hour)
	live := suite.newCart(time.Hour)
	checkedOut := suite.newCart(-time.Hour)
	_, err := suite.repos.Carts.Freeze(ctx, checkedOut.ID, time.Now())
	require.NoError(t, err)

	deleted, err := suite.repos.Carts.DeleteExpired(ctx, time.Now(), 10)
	require.NoError(t, err)

	assert.Equal(t, []string{expired.ID}, deleted)
	_, err = suite.repos.Carts.FindByID(ctx, live.ID)
	assert.NoError(t, err)
	_, err = suite.repos.Carts.FindByID(ctx, checkedOut.ID)
	assert.NoError(t, err, "checked-out carts are kept for their orders")
}

// ============================================================================
// IDEMPOTENCY AND OUTBOX
// ============================================================================

func (suite *RepositoryTestSuite) Test_Idempotency_LockLifecycle() {
	t := suite.T()
	ctx := context.Background()
	paymentID := uuid.NewString()

	require.NoError(t, suite.repos.Idempotency.AcquireLock(ctx, "key-1", paymentID, "hash", time.Now()))
	err := suite.repos.Idempotency.AcquireLock(ctx, "key-1", uuid.NewString(), "hash", time.Now())
	assert.ErrorIs(t, err, postgres.ErrDuplicateIdempotencyKey)

	key, err := suite.repos.Idempotency.FindByKey(ctx, "key-1")
	require.NoError(t, err)
	assert.NotNil(t, key.LockedAt)
	assert.Equal(t, paymentID, key.PaymentID)

	require.NoError(t, suite.repos.Idempotency.ReleaseLock(ctx, "key-1"))
	key, err = suite.repos.Idempotency.FindByKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Nil(t, key.LockedAt)
}

// enqueue stores n notifications for order, one millisecond apart.
func (suite *RepositoryTestSuite) enqueue(order *domain.Order, n int, at time.Time) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = uuid.NewString()
		suite.Require().NoError(suite.repos.Outbox.Enqueue(context.Background(), &domain.Notification{
			ID:          ids[i],
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			EventType:   domain.EventPaymentConfirmed,
			Status:      domain.OrderPaid,
			Payload:     map[string]any{"total": order.Total},
			CreatedAt:   at.Add(time.Duration(i) * time.Millisecond),
		}))
	}
	return ids
}

func (suite *RepositoryTestSuite) Test_Outbox_ClaimAndMark() {
	t := suite.T()
	ctx := context.Background()
	order := suite.newOrder()
	at := time.Now().UTC()
	ids := suite.enqueue(order, 2, at)

	pending, err := suite.repos.Outbox.ClaimUnpublished(ctx, 2, 10, at, time.Minute)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, ids[0], pending[0].ID)
	assert.EqualValues(t, order.Total, pending[0].Payload["total"])

	require.NoError(t, suite.repos.Outbox.MarkPublished(ctx, ids[0], at))
	require.NoError(t, suite.repos.Outbox.MarkFailed(ctx, ids[1]))
	require.NoError(t, suite.repos.Outbox.MarkFailed(ctx, ids[1]))

	pending, err = suite.repos.Outbox.ClaimUnpublished(ctx, 2, 10, at, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, pending, "published and exhausted rows are skipped")
}

func (suite *RepositoryTestSuite) Test_Outbox_LeasedRowsAreSkippedUntilExpiry() {
	t := suite.T()
	ctx := context.Background()
	order := suite.newOrder()
	at := time.Now().UTC()
	ids := suite.enqueue(order, 1, at)

	first, err := suite.repos.Outbox.ClaimUnpublished(ctx, 5, 10, at, time.Minute)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := suite.repos.Outbox.ClaimUnpublished(ctx, 5, 10, at.Add(30*time.Second), time.Minute)
	require.NoError(t, err)
	assert.Empty(t, second)

	// a publisher that died mid-batch gives the row back once the lease ends
	again, err := suite.repos.Outbox.ClaimUnpublished(ctx, 5, 10, at.Add(2*time.Minute), time.Minute)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, ids[0], again[0].ID)
}

func (suite *RepositoryTestSuite) Test_Outbox_ConcurrentClaimsNeverOverlap() {
	t := suite.T()
	ctx := context.Background()
	order := suite.newOrder()
	at := time.Now().UTC()
	const rows, publishers = 20, 4
	suite.enqueue(order, rows, at)

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		seen = map[string]int{}
	)
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := suite.repos.Outbox.ClaimUnpublished(ctx, 5, 10, at, time.Minute)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			for _, n := range claimed {
				seen[n.ID]++
			}
		}()
	}
	wg.Wait()

	rest, err := suite.repos.Outbox.ClaimUnpublished(ctx, 5, rows, at, time.Minute)
	require.NoError(t, err)
	for _, n := range rest {
		seen[n.ID]++
	}

	assert.Len(t, seen, rows)
	for id, count := range seen {
		assert.Equal(t, 1, count, "row %s claimed more than once", id)
	}
}
