package testutil

import (
	"context"
	"fmt"
	"sync"

	"giving-ledger-be/pkg/processor"
)

// FakeGateway is an in-memory processor. Err, when set, fails every call.
type FakeGateway struct {
	mu sync.Mutex

	Err error

	Subscriptions map[string]*processor.Subscription
	Charges       map[string]*processor.Charge

	// NextSubscription is returned by CreateSubscription when set.
	NextSubscription *processor.Subscription

	Calls            []string
	SubscriptionArgs []processor.SubscriptionParams
	UpdateArgs       []processor.SubscriptionUpdateParams
	PriceArgs        []processor.PriceParams
	RefundArgs       []processor.RefundParams

	priceAmounts map[string]int64
	seq          int
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		Subscriptions: map[string]*processor.Subscription{},
		Charges:       map[string]*processor.Charge{},
		priceAmounts:  map[string]int64{},
	}
}

func (g *FakeGateway) next(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s_%d", prefix, g.seq)
}

func (g *FakeGateway) record(call string) error {
	g.Calls = append(g.Calls, call)
	return g.Err
}

// CallCount reports how many times call was made.
func (g *FakeGateway) CallCount(call string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.Calls {
		if c == call {
			n++
		}
	}
	return n
}

func (g *FakeGateway) CreateCustomer(ctx context.Context, params processor.CustomerParams) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("CreateCustomer"); err != nil {
		return "", err
	}
	return g.next("cus"), nil
}

func (g *FakeGateway) CreatePrice(ctx context.Context, params processor.PriceParams) (*processor.Price, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("CreatePrice"); err != nil {
		return nil, err
	}
	g.PriceArgs = append(g.PriceArgs, params)
	productId := params.ProductId
	if productId == "" {
		productId = "prod_default"
	}
	price := &processor.Price{Id: g.next("price"), ProductId: productId}
	g.priceAmounts[price.Id] = params.AmountCents
	return price, nil
}

func (g *FakeGateway) CreateSubscription(ctx context.Context, params processor.SubscriptionParams) (*processor.Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("CreateSubscription"); err != nil {
		return nil, err
	}
	g.SubscriptionArgs = append(g.SubscriptionArgs, params)

	sub := g.NextSubscription
	if sub == nil {
		sub = &processor.Subscription{Id: g.next("sub"), Status: processor.SubscriptionIncomplete}
	}
	copied := *sub
	copied.CustomerId = params.CustomerId
	copied.PriceId = params.PriceId
	copied.Metadata = params.Metadata
	g.Subscriptions[copied.Id] = &copied
	out := copied
	return &out, nil
}

func (g *FakeGateway) GetSubscription(ctx context.Context, subscriptionId string) (*processor.Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("GetSubscription"); err != nil {
		return nil, err
	}
	sub, ok := g.Subscriptions[subscriptionId]
	if !ok {
		return nil, fmt.Errorf("no such subscription: %s", subscriptionId)
	}
	out := *sub
	return &out, nil
}

func (g *FakeGateway) UpdateSubscription(ctx context.Context, subscriptionId string, params processor.SubscriptionUpdateParams) (*processor.Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("UpdateSubscription"); err != nil {
		return nil, err
	}
	g.UpdateArgs = append(g.UpdateArgs, params)

	sub, ok := g.Subscriptions[subscriptionId]
	if !ok {
		return nil, fmt.Errorf("no such subscription: %s", subscriptionId)
	}
	if params.CancelAtPeriodEnd != nil {
		sub.CancelAtPeriodEnd = *params.CancelAtPeriodEnd
	}
	if params.PriceId != "" {
		sub.PriceId = params.PriceId
		sub.AmountCents = g.priceAmounts[params.PriceId]
	}
	out := *sub
	return &out, nil
}

func (g *FakeGateway) CreateRefund(ctx context.Context, params processor.RefundParams) (*processor.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("CreateRefund"); err != nil {
		return nil, err
	}
	g.RefundArgs = append(g.RefundArgs, params)
	return &processor.Refund{
		Id:          g.next("re"),
		ChargeId:    params.ChargeId,
		AmountCents: params.AmountCents,
		Currency:    "usd",
		Status:      "succeeded",
	}, nil
}

func (g *FakeGateway) GetCharge(ctx context.Context, chargeId string) (*processor.Charge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("GetCharge"); err != nil {
		return nil, err
	}
	ch, ok := g.Charges[chargeId]
	if !ok {
		return nil, fmt.Errorf("no such charge: %s", chargeId)
	}
	out := *ch
	return &out, nil
}
