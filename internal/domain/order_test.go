package domain_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestOrder(t *testing.T) *domain.Order {
	t.Helper()
	cart := newCart(t)
	_, err := cart.AddLine("line-1", newProduct("p-1", 10000, "0.14"), 2, nil, cartNow)
	require.NoError(t, err)
	snap, err := cart.Freeze(cartNow)
	require.NoError(t, err)

	n := 0
	order, err := domain.NewOrderFromSnapshot("order-1", "FM-2026-000001", "tenant-1", snap, func() string {
		n++
		return "item-" + strconv.Itoa(n)
	}, cartNow)
	require.NoError(t, err)
	return order
}

func paidOrder(t *testing.T) *domain.Order {
	t.Helper()
	o := createTestOrder(t)
	_, err := o.AwaitPayment(domain.ProviderCard, "card_ref", cartNow)
	require.NoError(t, err)
	_, err = o.MarkPaid("pay-1", cartNow)
	require.NoError(t, err)
	return o
}

func TestFormatOrderNumber(t *testing.T) {
	assert.Equal(t, "FM-2026-000042", domain.FormatOrderNumber("FM", 2026, 42))
	assert.Equal(t, "FM-2026-1234567", domain.FormatOrderNumber("FM", 2026, 1234567))
}

func TestNewOrderFromSnapshot(t *testing.T) {
	o := createTestOrder(t)

	assert.Equal(t, domain.OrderCreated, o.Status)
	assert.Equal(t, int64(20000), o.Total)
	assert.Equal(t, int64(2456), o.TaxAmount)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "item-1", o.Items[0].ID)
	assert.Equal(t, 2, o.Items[0].Quantity)
}

func TestOrder_StateTransitions(t *testing.T) {
	t.Run("created -> awaiting_payment records the method", func(t *testing.T) {
		o := createTestOrder(t)

		ev, err := o.AwaitPayment(domain.ProviderBankTransfer, "bank_ref", cartNow)

		require.NoError(t, err)
		assert.Equal(t, domain.OrderAwaitingPayment, o.Status)
		assert.Equal(t, domain.ProviderBankTransfer, *o.PaymentMethod)
		assert.Equal(t, "bank_ref", *o.PaymentReference)
		assert.Equal(t, domain.EventPaymentRequested, ev.Type)
	})

	t.Run("a retried attempt stays awaiting payment", func(t *testing.T) {
		o := createTestOrder(t)
		_, _ = o.AwaitPayment(domain.ProviderCard, "first", cartNow)

		_, err := o.AwaitPayment(domain.ProviderWallet, "second", cartNow)

		require.NoError(t, err)
		assert.Equal(t, domain.ProviderWallet, *o.PaymentMethod)
	})

	t.Run("service fulfillment path", func(t *testing.T) {
		o := paidOrder(t)
		start := cartNow.Add(24 * time.Hour)
		end := start.Add(2 * time.Hour)

		_, err := o.StartProcessing("ops", cartNow)
		require.NoError(t, err)
		_, err = o.Assign("Team A", &start, &end, "ops", cartNow)
		require.NoError(t, err)
		_, err = o.StartWork("team-a", cartNow)
		require.NoError(t, err)
		ev, err := o.Complete("all good", "team-a", cartNow)
		require.NoError(t, err)

		assert.Equal(t, domain.OrderCompleted, o.Status)
		assert.Equal(t, "Team A", *o.AssignedTeam)
		assert.NotNil(t, o.ActualEnd)
		assert.NotNil(t, o.CompletedAt)
		assert.Equal(t, domain.EventWorkCompleted, ev.Type)
	})

	t.Run("physical goods path", func(t *testing.T) {
		o := paidOrder(t)

		_, err := o.StartProcessing("ops", cartNow)
		require.NoError(t, err)
		_, err = o.Dispatch("TRK-1", "DHL", "ops", cartNow)
		require.NoError(t, err)
		_, err = o.Deliver("courier", cartNow)
		require.NoError(t, err)

		assert.Equal(t, domain.OrderDelivered, o.Status)
		assert.Equal(t, "TRK-1", *o.TrackingNumber)
		assert.NotNil(t, o.ActualDelivery)
	})

	t.Run("in_progress requires assigned", func(t *testing.T) {
		o := paidOrder(t)
		_, _ = o.StartProcessing("ops", cartNow)

		_, err := o.StartWork("team", cartNow)

		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("assign requires a team", func(t *testing.T) {
		o := paidOrder(t)
		_, _ = o.StartProcessing("ops", cartNow)

		_, err := o.Assign("", nil, nil, "ops", cartNow)

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Equal(t, domain.OrderProcessing, o.Status)
	})

	t.Run("cannot mark paid before payment was requested", func(t *testing.T) {
		o := createTestOrder(t)

		_, err := o.MarkPaid("pay-1", cartNow)

		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("paid or later", func(t *testing.T) {
		o := createTestOrder(t)
		assert.False(t, o.IsPaidOrLater())

		o = paidOrder(t)
		assert.True(t, o.IsPaidOrLater())
	})
}

func TestOrder_Cancel(t *testing.T) {
	t.Run("allowed before completion", func(t *testing.T) {
		o := paidOrder(t)

		ev, err := o.Cancel("customer request", "ops", cartNow)

		require.NoError(t, err)
		assert.Equal(t, domain.OrderCancelled, o.Status)
		assert.Equal(t, "customer request", *o.CancellationReason)
		assert.True(t, ev.CustomerVisible)
	})

	t.Run("refused after completion or delivery", func(t *testing.T) {
		o := paidOrder(t)
		_, _ = o.StartProcessing("ops", cartNow)
		_, _ = o.Dispatch("", "", "ops", cartNow)
		_, _ = o.Deliver("ops", cartNow)

		_, err := o.Cancel("too late", "ops", cartNow)

		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("refused twice", func(t *testing.T) {
		o := createTestOrder(t)
		_, _ = o.Cancel("", "ops", cartNow)

		_, err := o.Cancel("", "ops", cartNow)

		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestOrder_RecordRefund(t *testing.T) {
	t.Run("partial then full", func(t *testing.T) {
		o := paidOrder(t)

		_, err := o.RecordRefund("pay-1", 5000, false, "", "ops", cartNow)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderPartiallyRefunded, o.Status)

		ev, err := o.RecordRefund("pay-1", 15000, true, "", "ops", cartNow)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderRefunded, o.Status)
		assert.Equal(t, domain.EventRefunded, ev.Type)
	})

	t.Run("cancelled order keeps its status", func(t *testing.T) {
		o := paidOrder(t)
		_, _ = o.Cancel("", "ops", cartNow)

		ev, err := o.RecordRefund("pay-1", 20000, true, "cancelled", "ops", cartNow)

		require.NoError(t, err)
		assert.Equal(t, domain.OrderCancelled, o.Status)
		assert.Equal(t, domain.EventRefunded, ev.Type)
	})

	t.Run("order in fulfillment keeps its status", func(t *testing.T) {
		o := paidOrder(t)
		_, _ = o.StartProcessing("ops", cartNow)
		_, _ = o.Dispatch("TRK-1", "", "ops", cartNow)

		ev, err := o.RecordRefund("pay-1", 5000, false, "", "ops", cartNow)

		require.NoError(t, err)
		assert.Equal(t, domain.OrderDispatched, o.Status)
		assert.Equal(t, domain.EventPartiallyRefunded, ev.Type)
		assert.True(t, ev.CustomerVisible)
	})

	t.Run("refused before payment", func(t *testing.T) {
		o := createTestOrder(t)

		_, err := o.RecordRefund("pay-1", 5000, false, "", "ops", cartNow)

		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Equal(t, domain.OrderCreated, o.Status)
	})
}

func TestOrder_WaivePayment(t *testing.T) {
	t.Run("zero total goes straight to paid", func(t *testing.T) {
		o := createTestOrder(t)
		o.Total = 0

		ev, err := o.WaivePayment(cartNow)

		require.NoError(t, err)
		assert.Equal(t, domain.OrderPaid, o.Status)
		assert.Equal(t, domain.EventPaymentConfirmed, ev.Type)
		require.NotNil(t, o.PaymentConfirmedAt)

		_, err = o.StartProcessing("ops", cartNow)
		assert.NoError(t, err)
	})

	t.Run("refused while money is owed", func(t *testing.T) {
		o := createTestOrder(t)

		_, err := o.WaivePayment(cartNow)

		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Equal(t, domain.OrderCreated, o.Status)
	})
}

// No operation moves an order out of a terminal state.
func TestOrder_TerminalClosure(t *testing.T) {
	ops := map[string]func(o *domain.Order) error{
		"await":    func(o *domain.Order) error { _, err := o.AwaitPayment(domain.ProviderCard, "", cartNow); return err },
		"paid":     func(o *domain.Order) error { _, err := o.MarkPaid("p", cartNow); return err },
		"process":  func(o *domain.Order) error { _, err := o.StartProcessing("", cartNow); return err },
		"assign":   func(o *domain.Order) error { _, err := o.Assign("t", nil, nil, "", cartNow); return err },
		"start":    func(o *domain.Order) error { _, err := o.StartWork("", cartNow); return err },
		"complete": func(o *domain.Order) error { _, err := o.Complete("", "", cartNow); return err },
		"dispatch": func(o *domain.Order) error { _, err := o.Dispatch("", "", "", cartNow); return err },
		"deliver":  func(o *domain.Order) error { _, err := o.Deliver("", cartNow); return err },
		"cancel":   func(o *domain.Order) error { _, err := o.Cancel("", "", cartNow); return err },
	}

	terminal := map[string]func(t *testing.T) *domain.Order{
		"cancelled": func(t *testing.T) *domain.Order {
			o := createTestOrder(t)
			_, _ = o.Cancel("", "", cartNow)
			return o
		},
		"refunded": func(t *testing.T) *domain.Order {
			o := paidOrder(t)
			_, _ = o.RecordRefund("p", o.Total, true, "", "", cartNow)
			return o
		},
	}

	for stateName, build := range terminal {
		for opName, op := range ops {
			t.Run(stateName+"/"+opName, func(t *testing.T) {
				o := build(t)
				before := o.Status

				err := op(o)

				assert.ErrorIs(t, err, domain.ErrInvalidTransition)
				assert.Equal(t, before, o.Status)
			})
		}
	}
}
