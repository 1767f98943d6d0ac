package services

import (
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"YellowbellPOS/app/models"
)

func TestEventBusSurvivesPanickingSink(t *testing.T) {
	var got []models.EventType
	bus := NewEventBus(
		EventSinkFunc(func(_ context.Context, evt models.Event) {
			panic("display disconnected")
		}),
	)
	bus.Subscribe(EventSinkFunc(func(_ context.Context, evt models.Event) {
		got = append(got, evt.Type)
	}))

	bus.Publish(context.Background(), models.Event{Type: models.EventOrderPlaced})
	bus.Publish(context.Background(), models.Event{Type: models.EventItemCooked})

	if len(got) != 2 || got[0] != models.EventOrderPlaced || got[1] != models.EventItemCooked {
		t.Errorf("delivered = %v", got)
	}
}

func TestEventsArePublishedAfterCommit(t *testing.T) {
	b, _ := newTestBackend(t, true)

	// A sink that reads the store proves the transaction is over when it runs
	var seen int
	b.Bus.Subscribe(EventSinkFunc(func(_ context.Context, evt models.Event) {
		if evt.Type != models.EventOrderPlaced {
			return
		}
		orders, err := b.Orders.GetCustomerOrders()
		if err != nil {
			t.Errorf("read inside sink: %v", err)
			return
		}
		seen = len(orders)
	}))

	placeOrder(t, b, "Ana", CartLine{ItemID: "8", Quantity: 1})
	if seen != 1 {
		t.Errorf("sink saw %d orders, want 1", seen)
	}
}

func TestKitchenEventClassification(t *testing.T) {
	kitchen := []models.EventType{
		models.EventOrderPlaced, models.EventOrderDeleted, models.EventItemCooked,
		models.EventCookUndone, models.EventOrderDelivered, models.EventOrderUndelivered,
	}
	for _, kind := range kitchen {
		if !(models.Event{Type: kind}).IsKitchenEvent() {
			t.Errorf("%s is not a kitchen event", kind)
		}
	}
	for _, kind := range []models.EventType{models.EventInventoryChanged, models.EventPreparedConfirmed, models.EventNotification} {
		if (models.Event{Type: kind}).IsKitchenEvent() {
			t.Errorf("%s is a kitchen event", kind)
		}
	}
}

func TestLoggerWritesDailyFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	logger := newLoggerService(dir, &console)
	t.Cleanup(logger.Close)

	logger.LogWarning("Mirror disabled", "no credentials")
	logger.LogError("Store close failed", os.ErrClosed)

	if logger.GetLogDirectory() != dir {
		t.Errorf("log dir = %s", logger.GetLogDirectory())
	}
	if filepath.Dir(logger.GetTodayLogPath()) != dir {
		t.Errorf("today's log = %s", logger.GetTodayLogPath())
	}

	data, err := os.ReadFile(logger.GetTodayLogPath())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	for _, want := range []string{"[WARNING] Mirror disabled | no credentials", "[ERROR] Store close failed | Error: file already closed"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log file missing %q", want)
		}
		if !strings.Contains(console.String(), want) {
			t.Errorf("console missing %q", want)
		}
	}
}

func TestLoggerRecoverPanic(t *testing.T) {
	var console bytes.Buffer
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	logger := newLoggerService(t.TempDir(), &console)
	t.Cleanup(logger.Close)

	func() {
		defer logger.RecoverPanic()
		panic("printer jammed")
	}()

	if !strings.Contains(console.String(), "[PANIC] Recovered from panic: printer jammed") {
		t.Errorf("console = %s", console.String())
	}
}
