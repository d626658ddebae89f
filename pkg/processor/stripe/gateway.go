package stripe

import (
	"context"
	"fmt"

	"giving-ledger-be/pkg/processor"
	"giving-ledger-be/pkg/stripemeta"

	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// latestPaymentIntentPaths covers the invoice shape before and after the
// processor moved payment intents under invoice.payments.
var latestPaymentIntentPaths = [][]string{
	{"latest_invoice", "payment_intent"},
	{"latest_invoice", "payments", "data", "0", "payment", "payment_intent"},
}

var latestChargePaths = [][]string{
	{"latest_invoice", "charge"},
	{"latest_invoice", "payments", "data", "0", "payment", "charge"},
}

type Gateway struct {
	sc *client.API
}

func NewGateway(secretKey string) *Gateway {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &Gateway{sc: sc}
}

// NewGatewayWithBackends points the client at custom backends (stripe-mock, tests).
func NewGatewayWithBackends(secretKey string, backends *stripeapi.Backends) *Gateway {
	sc := &client.API{}
	sc.Init(secretKey, backends)
	return &Gateway{sc: sc}
}

func (g *Gateway) CreateCustomer(ctx context.Context, params processor.CustomerParams) (string, error) {
	p := &stripeapi.CustomerParams{}
	p.Context = ctx
	if params.Email != "" {
		p.Email = stripeapi.String(params.Email)
	}
	if params.Name != "" {
		p.Name = stripeapi.String(params.Name)
	}
	for k, v := range params.Metadata {
		p.AddMetadata(k, v)
	}
	cust, err := g.sc.Customers.New(p)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return cust.ID, nil
}

func (g *Gateway) CreatePrice(ctx context.Context, params processor.PriceParams) (*processor.Price, error) {
	p := &stripeapi.PriceParams{
		Currency:   stripeapi.String(params.Currency),
		UnitAmount: stripeapi.Int64(params.AmountCents),
		Recurring: &stripeapi.PriceRecurringParams{
			Interval: stripeapi.String(params.Interval),
		},
	}
	p.Context = ctx
	if params.ProductId != "" {
		p.Product = stripeapi.String(params.ProductId)
	} else {
		p.ProductData = &stripeapi.PriceProductDataParams{
			Name: stripeapi.String("Recurring gift"),
		}
	}
	price, err := g.sc.Prices.New(p)
	if err != nil {
		return nil, fmt.Errorf("create price: %w", err)
	}
	return &processor.Price{
		Id:        price.ID,
		ProductId: stripemeta.ExtractID(price.Product),
	}, nil
}

func (g *Gateway) CreateSubscription(ctx context.Context, params processor.SubscriptionParams) (*processor.Subscription, error) {
	if params.PaymentMethodId != "" {
		attach := &stripeapi.PaymentMethodAttachParams{
			Customer: stripeapi.String(params.CustomerId),
		}
		attach.Context = ctx
		if _, err := g.sc.PaymentMethods.Attach(params.PaymentMethodId, attach); err != nil {
			return nil, fmt.Errorf("attach payment method: %w", err)
		}
	}

	p := &stripeapi.SubscriptionParams{
		Customer: stripeapi.String(params.CustomerId),
		Items: []*stripeapi.SubscriptionItemsParams{
			{Price: stripeapi.String(params.PriceId)},
		},
	}
	p.Context = ctx
	if params.PaymentMethodId != "" {
		p.DefaultPaymentMethod = stripeapi.String(params.PaymentMethodId)
	}
	for k, v := range params.Metadata {
		p.AddMetadata(k, v)
	}
	if params.IdempotencyKey != "" {
		p.SetIdempotencyKey(params.IdempotencyKey)
	}
	p.AddExpand("latest_invoice.payments")

	sub, err := g.sc.Subscriptions.New(p)
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	return ToSubscription(sub), nil
}

func (g *Gateway) GetSubscription(ctx context.Context, subscriptionId string) (*processor.Subscription, error) {
	p := &stripeapi.SubscriptionParams{}
	p.Context = ctx
	p.AddExpand("latest_invoice.payments")
	sub, err := g.sc.Subscriptions.Get(subscriptionId, p)
	if err != nil {
		return nil, fmt.Errorf("retrieve subscription: %w", err)
	}
	return ToSubscription(sub), nil
}

func (g *Gateway) UpdateSubscription(ctx context.Context, subscriptionId string, params processor.SubscriptionUpdateParams) (*processor.Subscription, error) {
	p := &stripeapi.SubscriptionParams{}
	p.Context = ctx
	if params.CancelAtPeriodEnd != nil {
		p.CancelAtPeriodEnd = stripeapi.Bool(*params.CancelAtPeriodEnd)
	}
	if params.PriceId != "" {
		item := &stripeapi.SubscriptionItemsParams{Price: stripeapi.String(params.PriceId)}
		if params.ItemId != "" {
			item.ID = stripeapi.String(params.ItemId)
		}
		p.Items = []*stripeapi.SubscriptionItemsParams{item}
		p.ProrationBehavior = stripeapi.String("none")
	}
	if params.IdempotencyKey != "" {
		p.SetIdempotencyKey(params.IdempotencyKey)
	}
	p.AddExpand("latest_invoice.payments")

	sub, err := g.sc.Subscriptions.Update(subscriptionId, p)
	if err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}
	return ToSubscription(sub), nil
}

func (g *Gateway) CreateRefund(ctx context.Context, params processor.RefundParams) (*processor.Refund, error) {
	p := &stripeapi.RefundParams{
		Charge: stripeapi.String(params.ChargeId),
	}
	p.Context = ctx
	if params.AmountCents > 0 {
		p.Amount = stripeapi.Int64(params.AmountCents)
	}
	for k, v := range params.Metadata {
		p.AddMetadata(k, v)
	}
	if params.IdempotencyKey != "" {
		p.SetIdempotencyKey(params.IdempotencyKey)
	}
	r, err := g.sc.Refunds.New(p)
	if err != nil {
		return nil, fmt.Errorf("create refund: %w", err)
	}
	return &processor.Refund{
		Id:          r.ID,
		ChargeId:    stripemeta.ExtractID(r.Charge),
		AmountCents: r.Amount,
		Currency:    string(r.Currency),
		Status:      string(r.Status),
		Reason:      string(r.Reason),
	}, nil
}

func (g *Gateway) GetCharge(ctx context.Context, chargeId string) (*processor.Charge, error) {
	p := &stripeapi.ChargeParams{}
	p.Context = ctx
	ch, err := g.sc.Charges.Get(chargeId, p)
	if err != nil {
		return nil, fmt.Errorf("retrieve charge: %w", err)
	}
	return ToCharge(ch), nil
}

// ToSubscription folds a processor subscription into the fields the ledger
// stores. Period bounds live on the first item in current API versions and on
// the subscription itself in older payloads.
func ToSubscription(sub *stripeapi.Subscription) *processor.Subscription {
	if sub == nil {
		return nil
	}
	out := &processor.Subscription{
		Id:                sub.ID,
		CustomerId:        stripemeta.ExtractID(sub.Customer),
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		Metadata:          sub.Metadata,
	}

	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		out.ItemId = item.ID
		out.CurrentPeriodStart = processor.UnixTime(item.CurrentPeriodStart)
		out.CurrentPeriodEnd = processor.UnixTime(item.CurrentPeriodEnd)
		if item.Price != nil {
			out.PriceId = item.Price.ID
			out.ProductId = stripemeta.ExtractID(item.Price.Product)
			out.AmountCents = item.Price.UnitAmount
			out.Currency = string(item.Price.Currency)
			if item.Price.Recurring != nil {
				out.Interval = string(item.Price.Recurring.Interval)
			}
		}
	}

	if sub.LatestInvoice != nil {
		out.LatestInvoiceId = sub.LatestInvoice.ID
		out.LatestInvoiceStatus = string(sub.LatestInvoice.Status)
		out.LatestInvoiceAmountCents = invoiceAmount(sub.LatestInvoice.AmountPaid, sub.LatestInvoice.AmountDue)
	}

	var raw any
	if sub.LastResponse != nil && len(sub.LastResponse.RawJSON) > 0 {
		raw = sub.LastResponse.RawJSON
	}
	if raw != nil {
		if out.CurrentPeriodStart == nil {
			out.CurrentPeriodStart = processor.UnixTime(stripemeta.Int64(stripemeta.Lookup(raw, "current_period_start")))
			out.CurrentPeriodEnd = processor.UnixTime(stripemeta.Int64(stripemeta.Lookup(raw, "current_period_end")))
		}
		if out.LatestInvoiceAmountCents == 0 {
			out.LatestInvoiceAmountCents = invoiceAmount(
				stripemeta.Int64(stripemeta.Lookup(raw, "latest_invoice", "amount_paid")),
				stripemeta.Int64(stripemeta.Lookup(raw, "latest_invoice", "amount_due")),
			)
		}
		out.LatestPaymentIntentId = firstID(raw, latestPaymentIntentPaths)
		out.LatestChargeId = firstID(raw, latestChargePaths)
	}
	return out
}

func ToCharge(ch *stripeapi.Charge) *processor.Charge {
	if ch == nil {
		return nil
	}
	return &processor.Charge{
		Id:              ch.ID,
		PaymentIntentId: stripemeta.ExtractID(ch.PaymentIntent),
		AmountCents:     ch.Amount,
		Currency:        string(ch.Currency),
		Paid:            ch.Paid,
		Status:          string(ch.Status),
		ReceiptUrl:      stripemeta.ReceiptURLFromCharge(ch),
		CardMeta:        stripemeta.CardMetaFromCharge(ch),
		Created:         processor.UnixTime(ch.Created),
	}
}

func invoiceAmount(paid, due int64) int64 {
	if paid > 0 {
		return paid
	}
	return due
}

func firstID(raw any, paths [][]string) string {
	for _, path := range paths {
		if id := stripemeta.ExtractID(stripemeta.Lookup(raw, path...)); id != "" {
			return id
		}
	}
	return ""
}
