package orders_test

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nongxian/apperr"
	"nongxian/catalog"
	"nongxian/coupons"
	"nongxian/db"
	"nongxian/defaults"
	"nongxian/mailer"
	"nongxian/models"
	"nongxian/mq"
	"nongxian/orders"
	"nongxian/store"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeNotifier struct {
	confirmErr error
	adminErr   error
	confirmed  []string
	admin      []string
}

func (f *fakeNotifier) OrderConfirmation(_ context.Context, o models.Order) (*mailer.SendResult, error) {
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	f.confirmed = append(f.confirmed, o.ID)
	return &mailer.SendResult{MessageID: "m"}, nil
}

func (f *fakeNotifier) AdminNewOrder(_ context.Context, o models.Order) (*mailer.SendResult, error) {
	if f.adminErr != nil {
		return nil, f.adminErr
	}
	f.admin = append(f.admin, o.ID)
	return &mailer.SendResult{MessageID: "a"}, nil
}

type recorder struct{ events []mq.Event }

func (r *recorder) Emit(_ context.Context, ev mq.Event) { r.events = append(r.events, ev) }

type fixture struct {
	svc      *orders.Service
	repos    *db.Repos
	notifier *fakeNotifier
	events   *recorder
}

// failingOrders refuses every order write.
type failingOrders struct{ store.Repository[models.Order] }

func (failingOrders) AddWithID(context.Context, string, models.Order) error {
	return errors.New("write concern timeout")
}

// failingCounter logs usage fine but cannot bump usedCount.
type failingCounter struct{ store.Repository[models.Coupon] }

func (failingCounter) Increment(context.Context, string, string, *int) error {
	return errors.New("connection reset")
}

func newFixture(t *testing.T, wrap ...func(*db.Repos)) fixture {
	t.Helper()
	repos := db.NewMemoryRepos()
	ctx := context.Background()
	for _, c := range defaults.Coupons(now.Add(-time.Hour)) {
		require.NoError(t, repos.Coupons.AddWithID(ctx, c.Code, c))
	}
	for _, p := range defaults.Products(now) {
		require.NoError(t, repos.Products.AddWithID(ctx, p.ID, p))
	}
	for _, w := range wrap {
		w(repos)
	}
	clock := func() time.Time { return now }
	cps := coupons.NewService(repos.Coupons, repos.CouponUsage).WithClock(clock)
	n := &fakeNotifier{}
	ev := &recorder{}
	svc := orders.NewService(repos.Orders, catalog.New(repos), cps, n, ev).WithClock(clock)
	return fixture{svc: svc, repos: repos, notifier: n, events: ev}
}

func submission(payment string) orders.Submission {
	return orders.Submission{
		UserID:   "user-1",
		Shipping: validShipping(),
		Payment:  orders.PaymentForm{PaymentMethod: payment},
		Items: []models.CartItem{
			{ID: "p-mango", Name: "玉井愛文芒果", Category: "fruit", Price: 680, Quantity: 1},
			{ID: "p-rice", Name: "池上契作米", Category: "grain", Price: 360, Quantity: 2},
		},
	}
}

func TestSubmit_CreditCardWithCoupon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub := submission(defaults.PaymentCreditCard)
	sub.CouponCode = "welcome100"
	res, err := f.svc.Submit(ctx, sub)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.True(t, res.EmailSent)
	assert.Equal(t, "ORD1748779200000", res.OrderID)

	o := res.Order
	assert.Equal(t, 1400, o.Subtotal)
	assert.Equal(t, 150, o.ShippingFee)
	assert.Equal(t, 1450, o.Total)
	assert.Equal(t, models.PaymentPaid, o.PaymentStatus)
	assert.Equal(t, models.OrderPending, o.Status)
	require.NotNil(t, o.AppliedCoupon)
	assert.Equal(t, "WELCOME100", o.AppliedCoupon.Code)
	assert.Equal(t, 100, o.DiscountAmount)
	assert.Nil(t, o.ShippingInfo)

	stored, err := f.repos.Orders.GetByID(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, o.Total, stored.Total)
	assert.Equal(t, models.NotificationSent, stored.EmailNotifications[models.NotifyOrderConfirmation].Status)
	assert.True(t, stored.EmailNotifications[models.NotifyOrderConfirmation].Sent)

	coupon, err := f.repos.Coupons.GetByID(ctx, "WELCOME100")
	require.NoError(t, err)
	assert.Equal(t, 1, coupon.UsedCount)

	assert.Equal(t, []string{res.OrderID}, f.notifier.confirmed)
	assert.Equal(t, []string{res.OrderID}, f.notifier.admin)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, mq.OrderCreated, f.events.events[0].Type)
}

func TestSubmit_EmailFailureStillSucceeds(t *testing.T) {
	f := newFixture(t)
	f.notifier.confirmErr = apperr.TransportError("郵件服務連線失敗", errors.New("dial tcp: refused"))
	f.notifier.adminErr = errors.New("relay down")
	ctx := context.Background()

	res, err := f.svc.Submit(ctx, submission(defaults.PaymentATM))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.EmailSent)
	assert.Equal(t, models.PaymentPending, res.Order.PaymentStatus)
	assert.Equal(t, models.NotificationFailed, res.Order.EmailNotifications[models.NotifyOrderConfirmation].Status)

	stored, err := f.repos.Orders.GetByID(ctx, res.OrderID)
	require.NoError(t, err)
	n := stored.EmailNotifications[models.NotifyOrderConfirmation]
	assert.Equal(t, models.NotificationFailed, n.Status)
	assert.False(t, n.Sent)
	assert.Contains(t, n.Error, "郵件服務連線失敗")
}

func TestSubmit_DisabledEmailIsNotSent(t *testing.T) {
	f := newFixture(t)
	f.notifier.confirmErr = mailer.ErrDisabled

	res, err := f.svc.Submit(context.Background(), submission(defaults.PaymentATM))
	require.NoError(t, err)
	assert.Equal(t, models.NotificationNotSent, res.Order.EmailNotifications[models.NotifyOrderConfirmation].Status)
}

func TestSubmit_InvalidCouponRejectsOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub := submission(defaults.PaymentATM)
	sub.CouponCode = "FRUIT20"
	sub.Items = []models.CartItem{{ID: "p-rice", Category: "grain", Price: 360, Quantity: 1}}
	_, err := f.svc.Submit(ctx, sub)
	require.Error(t, err)
	assert.Equal(t, coupons.ErrNoApplicable, apperr.MessageOf(err, ""))

	all, err := f.repos.Orders.GetAll(ctx, "", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSubmit_ValidationErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub := submission(defaults.PaymentATM)
	sub.Items = nil
	_, err := f.svc.Submit(ctx, sub)
	assert.True(t, apperr.Is(err, apperr.Validation))

	sub = submission("bitcoin")
	_, err = f.svc.Submit(ctx, sub)
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestSubmit_SameMillisecondGetsNextID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Submit(ctx, submission(defaults.PaymentATM))
	require.NoError(t, err)
	second, err := f.svc.Submit(ctx, submission(defaults.PaymentATM))
	require.NoError(t, err)
	assert.Equal(t, "ORD1748779200000", first.OrderID)
	assert.Equal(t, "ORD1748779200001", second.OrderID)
}

func TestSubmit_PricesFromCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub := submission(defaults.PaymentCreditCard)
	sub.Items = []models.CartItem{{ID: "p-mango", Name: "便宜芒果", Category: "vegetable", Price: 1, Quantity: 5}}
	res, err := f.svc.Submit(ctx, sub)
	require.NoError(t, err)

	o := res.Order
	require.Len(t, o.Items, 1)
	assert.Equal(t, 680, o.Items[0].Price)
	assert.Equal(t, "玉井愛文芒果", o.Items[0].Name)
	assert.Equal(t, defaults.CategoryFruit, o.Items[0].Category)
	assert.Equal(t, "玉井果園", o.Items[0].Farm)
	assert.Equal(t, 5, o.Items[0].Quantity)
	assert.Equal(t, 3400, o.Subtotal)
	assert.Equal(t, o.Subtotal+o.ShippingFee, o.Total)
}

func TestSubmit_RelabelledItemGetsNoCategoryCoupon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub := submission(defaults.PaymentATM)
	sub.CouponCode = "FRUIT20"
	sub.Items = []models.CartItem{{ID: "p-rice", Category: "fruit", Price: 360, Quantity: 3}}
	_, err := f.svc.Submit(ctx, sub)
	require.Error(t, err)
	assert.Equal(t, coupons.ErrNoApplicable, apperr.MessageOf(err, ""))
}

func TestSubmit_UnknownOrInactiveProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repos.Products.Update(ctx, "p-jam", map[string]any{"isActive": false}))

	for _, id := range []string{"p-unicorn", "p-jam"} {
		sub := submission(defaults.PaymentATM)
		sub.Items = []models.CartItem{{ID: id, Price: 1, Quantity: 1}}
		_, err := f.svc.Submit(ctx, sub)
		assert.True(t, apperr.Is(err, apperr.Validation), id)
	}

	sub := submission(defaults.PaymentATM)
	sub.Items[0].Quantity = 0
	_, err := f.svc.Submit(ctx, sub)
	assert.True(t, apperr.Is(err, apperr.Validation))

	all, err := f.repos.Orders.GetAll(ctx, "", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSubmit_OrderWriteFailureAborts(t *testing.T) {
	f := newFixture(t, func(r *db.Repos) { r.Orders = failingOrders{r.Orders} })
	ctx := context.Background()

	sub := submission(defaults.PaymentCreditCard)
	sub.CouponCode = "WELCOME100"
	_, err := f.svc.Submit(ctx, sub)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Internal))

	assert.Empty(t, f.notifier.confirmed)
	assert.Empty(t, f.notifier.admin)
	assert.Empty(t, f.events.events)

	coupon, err := f.repos.Coupons.GetByID(ctx, "WELCOME100")
	require.NoError(t, err)
	assert.Zero(t, coupon.UsedCount)
	usage, err := f.repos.CouponUsage.GetAll(ctx, "", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, usage)
}

func TestSubmit_CouponRecordFailureStillSucceeds(t *testing.T) {
	f := newFixture(t, func(r *db.Repos) { r.Coupons = failingCounter{r.Coupons} })
	ctx := context.Background()

	var logs strings.Builder
	log.SetOutput(&logs)
	defer log.SetOutput(os.Stderr)

	sub := submission(defaults.PaymentCreditCard)
	sub.CouponCode = "WELCOME100"
	res, err := f.svc.Submit(ctx, sub)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 100, res.Order.DiscountAmount)

	_, err = f.repos.Orders.GetByID(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, []string{res.OrderID}, f.notifier.confirmed)
	assert.Len(t, f.events.events, 1)
	assert.Contains(t, logs.String(), "recording coupon WELCOME100 failed")

	coupon, err := f.repos.Coupons.GetByID(ctx, "WELCOME100")
	require.NoError(t, err)
	assert.Zero(t, coupon.UsedCount)
}

func TestSubmit_GuestCouponCapFollowsEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub := submission(defaults.PaymentATM)
	sub.UserID = ""
	sub.CouponCode = "WELCOME100"
	_, err := f.svc.Submit(ctx, sub)
	require.NoError(t, err)

	usage, err := f.repos.CouponUsage.GetAll(ctx, "", 0, 0)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, "guest:ming@example.com", usage[0].UserID)

	sub.Shipping.Email = "MING@example.com"
	_, err = f.svc.Submit(ctx, sub)
	require.Error(t, err)
	assert.Equal(t, coupons.ErrUserLimit, apperr.MessageOf(err, ""))

	assert.Equal(t, "user-1", orders.CouponHolder("user-1", "ming@example.com"))
}

func TestShippingFee(t *testing.T) {
	m := models.DeliveryMethod{Fee: 150, FreeShippingThreshold: 1500}
	assert.Equal(t, 150, orders.ShippingFee(m, 1499))
	assert.Equal(t, 0, orders.ShippingFee(m, 1500))
	assert.Equal(t, 60, orders.ShippingFee(models.DeliveryMethod{Fee: 60}, 100000))
}

func TestUpdateStatus_KeepsShippingInfo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Submit(ctx, submission(defaults.PaymentATM))
	require.NoError(t, err)
	info := models.ShippingInfo{Carrier: "tcat", TrackingNumber: "T1", ShippedDate: now}
	require.NoError(t, f.repos.Orders.Update(ctx, res.OrderID, map[string]any{"shippingInfo": info}))

	require.NoError(t, f.svc.UpdateStatus(ctx, res.OrderID, models.OrderPending))
	assert.True(t, apperr.Is(f.svc.UpdateStatus(ctx, res.OrderID, "lost"), apperr.Validation))
	assert.True(t, apperr.Is(f.svc.UpdateStatus(ctx, "ORD0", models.OrderShipped), apperr.NotFound))

	got, err := f.svc.Get(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, got.Status)
	require.NotNil(t, got.ShippingInfo)
	assert.Equal(t, "T1", got.ShippingInfo.TrackingNumber)
}

func TestList_FilterAndOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Submit(ctx, submission(defaults.PaymentATM))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, submission(defaults.PaymentATM))
	require.NoError(t, err)
	require.NoError(t, f.svc.UpdateStatus(ctx, a.OrderID, models.OrderProcessing))

	processing, err := f.svc.List(ctx, models.OrderProcessing, 0)
	require.NoError(t, err)
	require.Len(t, processing, 1)
	assert.Equal(t, a.OrderID, processing[0].ID)

	mine, err := f.svc.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}
