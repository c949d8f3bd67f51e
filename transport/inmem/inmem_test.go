package inmem_test

import (
	"context"
	"testing"
	"time"

	"github.com/wealthops/advisory-mesh/transport"
	"github.com/wealthops/advisory-mesh/transport/inmem"
)

func testConfig() inmem.Config {
	return inmem.Config{
		BufferSize:             10,
		MaxDeliveryCount:       3,
		InitialRedeliveryDelay: time.Millisecond,
		MaxRedeliveryDelay:     5 * time.Millisecond,
	}
}

func receive(t *testing.T, ch <-chan transport.Delivery, timeout time.Duration) transport.Delivery {
	t.Helper()
	select {
	case d, ok := <-ch:
		if !ok {
			t.Fatal("delivery channel closed")
		}
		return d
	case <-time.After(timeout):
		t.Fatal("timeout waiting for delivery")
	}
	return nil
}

func TestBus_PublishTargeted(t *testing.T) {
	bus := inmem.New(testConfig())
	defer bus.Close()

	ctx := context.Background()
	nl2sql, err := bus.Subscribe(ctx, "nl2sql")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	vector, err := bus.Subscribe(ctx, "vector")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	props := map[string]string{transport.PropTo: "nl2sql", transport.PropIntent: "TopCash"}
	if err := bus.Publish(ctx, []byte(`{"kind":"request"}`), props); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	d := receive(t, nl2sql, time.Second)
	if string(d.Body()) != `{"kind":"request"}` {
		t.Errorf("Body() = %s, want request bytes", d.Body())
	}
	if d.Count() != 1 {
		t.Errorf("Count() = %d, want 1", d.Count())
	}
	if d.Props()[transport.PropIntent] != "TopCash" {
		t.Errorf("Props()[intent] = %s, want TopCash", d.Props()[transport.PropIntent])
	}
	d.Ack()

	select {
	case <-vector:
		t.Error("vector subscription should not receive targeted delivery")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_PublishMultipleRecipients(t *testing.T) {
	bus := inmem.New(testConfig())
	defer bus.Close()

	ctx := context.Background()
	nl2sql, _ := bus.Subscribe(ctx, "nl2sql")
	api, _ := bus.Subscribe(ctx, "api")

	props := map[string]string{transport.PropTo: "nl2sql,api"}
	if err := bus.Publish(ctx, []byte("x"), props); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	receive(t, nl2sql, time.Second).Ack()
	receive(t, api, time.Second).Ack()
}

func TestBus_PublishBroadcast(t *testing.T) {
	bus := inmem.New(testConfig())
	defer bus.Close()

	ctx := context.Background()
	first, _ := bus.Subscribe(ctx, "nl2sql")
	second, _ := bus.Subscribe(ctx, "vector")

	if err := bus.Publish(ctx, []byte("x"), nil); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	receive(t, first, time.Second).Ack()
	receive(t, second, time.Second).Ack()
}

func TestDelivery_AbandonRedelivers(t *testing.T) {
	bus := inmem.New(testConfig())
	defer bus.Close()

	ctx := context.Background()
	ch, _ := bus.Subscribe(ctx, "nl2sql")

	props := map[string]string{transport.PropTo: "nl2sql"}
	if err := bus.Publish(ctx, []byte("retry-me"), props); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	first := receive(t, ch, time.Second)
	if first.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", first.Count())
	}
	first.Abandon()

	second := receive(t, ch, time.Second)
	if second.Count() != 2 {
		t.Errorf("redelivery Count() = %d, want 2", second.Count())
	}
	second.Ack()
}

func TestDelivery_SettleOnce(t *testing.T) {
	bus := inmem.New(testConfig())
	defer bus.Close()

	ctx := context.Background()
	ch, _ := bus.Subscribe(ctx, "nl2sql")
	bus.Publish(ctx, []byte("x"), map[string]string{transport.PropTo: "nl2sql"})

	d := receive(t, ch, time.Second)
	d.Ack()
	d.Abandon() // no-op after Ack

	select {
	case <-ch:
		t.Error("settled delivery should not be redelivered")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_DeadLetterAfterMaxDeliveries(t *testing.T) {
	bus := inmem.New(testConfig())
	defer bus.Close()

	ctx := context.Background()
	ch, _ := bus.Subscribe(ctx, "nl2sql")
	bus.Publish(ctx, []byte("poison"), map[string]string{transport.PropTo: "nl2sql"})

	for i := 1; i <= 3; i++ {
		d := receive(t, ch, time.Second)
		if d.Count() != i {
			t.Fatalf("attempt %d Count() = %d", i, d.Count())
		}
		d.Abandon()
	}

	select {
	case dl := <-bus.DeadLetters():
		if dl.Subscription != "nl2sql" {
			t.Errorf("DeadLetter.Subscription = %s, want nl2sql", dl.Subscription)
		}
		if dl.Deliveries != 3 {
			t.Errorf("DeadLetter.Deliveries = %d, want 3", dl.Deliveries)
		}
		if string(dl.Body) != "poison" {
			t.Errorf("DeadLetter.Body = %s, want poison", dl.Body)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for dead letter")
	}

	select {
	case <-ch:
		t.Error("dead-lettered envelope should not be redelivered")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_CloseIdempotent(t *testing.T) {
	bus := inmem.New(testConfig())
	if err := bus.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if err := bus.Publish(context.Background(), []byte("x"), nil); err != transport.ErrClosed {
		t.Errorf("Publish() after close error = %v, want ErrClosed", err)
	}
	if _, err := bus.Subscribe(context.Background(), "nl2sql"); err != transport.ErrClosed {
		t.Errorf("Subscribe() after close error = %v, want ErrClosed", err)
	}
}
