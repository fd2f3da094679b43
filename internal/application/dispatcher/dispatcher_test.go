package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/fieldops/internal/domain/event"
)

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *recordingLogger) Info(msg string, keysAndValues ...interface{}) {}

func (l *recordingLogger) Error(msg string, keysAndValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) errorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}

func newQuoteEvent() *event.Event {
	return event.NewEvent(event.TypeQuoteStatusChanged, 1, 42, map[string]interface{}{"to": "survey_booked"})
}

func TestSubscribeAndDispatch(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	var got *event.Event
	d.Subscribe(event.TypeQuoteStatusChanged, func(ctx context.Context, evt *event.Event) error {
		got = evt
		return nil
	})

	evt := newQuoteEvent()
	require.NoError(t, d.Dispatch(context.Background(), evt))
	require.NotNil(t, got)
	assert.Equal(t, evt.ID, got.ID)
	assert.Equal(t, "survey_booked", got.GetPayloadString("to"))
}

func TestDispatch_OnlyMatchingType(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	called := false
	d.Subscribe(event.TypeInvoiceCreated, func(ctx context.Context, evt *event.Event) error {
		called = true
		return nil
	})

	require.NoError(t, d.Dispatch(context.Background(), newQuoteEvent()))
	assert.False(t, called)
}

func TestDispatch_StopsAtFirstError(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	second := false
	d.SubscribeNamed(event.TypeQuoteStatusChanged, "failing", func(ctx context.Context, evt *event.Event) error {
		return errors.New("boom")
	})
	d.SubscribeNamed(event.TypeQuoteStatusChanged, "after", func(ctx context.Context, evt *event.Event) error {
		second = true
		return nil
	})

	err := d.Dispatch(context.Background(), newQuoteEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failing")
	assert.False(t, second)
}

func TestDispatch_RecoversPanic(t *testing.T) {
	logger := &recordingLogger{}
	d := NewDispatcher(WithLogger(logger))
	defer d.Close()

	d.Subscribe(event.TypeQuoteStatusChanged, func(ctx context.Context, evt *event.Event) error {
		panic("handler exploded")
	})

	err := d.Dispatch(context.Background(), newQuoteEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
	assert.GreaterOrEqual(t, logger.errorCount(), 1)
}

func TestUnsubscribe(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	var calls []string
	d.SubscribeNamed(event.TypeQuoteStatusChanged, "one", func(ctx context.Context, evt *event.Event) error {
		calls = append(calls, "one")
		return nil
	})
	d.SubscribeNamed(event.TypeQuoteStatusChanged, "two", func(ctx context.Context, evt *event.Event) error {
		calls = append(calls, "two")
		return nil
	})
	d.Unsubscribe(event.TypeQuoteStatusChanged, "one")

	require.NoError(t, d.Dispatch(context.Background(), newQuoteEvent()))
	assert.Equal(t, []string{"two"}, calls)
}

func TestDispatchAsync_SurvivesCancelledContext(t *testing.T) {
	logger := &recordingLogger{}
	d := NewDispatcher(WithLogger(logger))

	var count int32
	var sawCancel atomic.Bool
	for i := 0; i < 3; i++ {
		d.Subscribe(event.TypeInvoiceCreated, func(ctx context.Context, evt *event.Event) error {
			time.Sleep(10 * time.Millisecond)
			if ctx.Err() != nil {
				sawCancel.Store(true)
			}
			atomic.AddInt32(&count, 1)
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.DispatchAsync(ctx, event.NewEvent(event.TypeInvoiceCreated, 1, 7, nil))
	cancel()

	require.NoError(t, d.Close())
	assert.Equal(t, int32(3), atomic.LoadInt32(&count))
	assert.False(t, sawCancel.Load())
}

func TestDispatchAsync_HandlerTimeout(t *testing.T) {
	d := NewDispatcher(WithHandlerTimeout(20 * time.Millisecond))

	var deadlineHit atomic.Bool
	d.Subscribe(event.TypeInvoiceCreated, func(ctx context.Context, evt *event.Event) error {
		<-ctx.Done()
		deadlineHit.Store(errors.Is(ctx.Err(), context.DeadlineExceeded))
		return ctx.Err()
	})

	d.DispatchAsync(context.Background(), event.NewEvent(event.TypeInvoiceCreated, 1, 7, nil))
	require.NoError(t, d.Close())
	assert.True(t, deadlineHit.Load())
}

func TestDispatchAsync_LogsHandlerErrors(t *testing.T) {
	logger := &recordingLogger{}
	d := NewDispatcher(WithLogger(logger))

	d.Subscribe(event.TypeInvoiceCreated, func(ctx context.Context, evt *event.Event) error {
		return errors.New("render failed")
	})
	d.DispatchAsync(context.Background(), event.NewEvent(event.TypeInvoiceCreated, 1, 7, nil))
	require.NoError(t, d.Close())

	assert.Equal(t, 1, logger.errorCount())
}

func TestListHandlers(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	assert.Empty(t, d.ListHandlers(event.TypeQuoteStatusChanged))

	noop := func(ctx context.Context, evt *event.Event) error { return nil }
	d.SubscribeNamed(event.TypeQuoteStatusChanged, "broadcast", noop)
	d.SubscribeNamed(event.TypeQuoteStatusChanged, "notify", noop)
	d.SubscribeNamed(event.TypeInvoiceCreated, "render", noop)

	handlers := d.ListHandlers(event.TypeQuoteStatusChanged)
	require.Len(t, handlers, 2)
	assert.Equal(t, "broadcast", handlers[0].Name)
	assert.Equal(t, event.TypeQuoteStatusChanged, handlers[0].EventType)
	assert.Nil(t, handlers[0].Handler)
}

func TestClose(t *testing.T) {
	d := NewDispatcher()
	require.NoError(t, d.Close())
	assert.Error(t, d.Close())
	assert.Error(t, d.Dispatch(context.Background(), newQuoteEvent()))

	// no panic and no handler run after close
	d.DispatchAsync(context.Background(), newQuoteEvent())
}

func TestClose_WaitsForHandlersAcceptedDuringClose(t *testing.T) {
	d := NewDispatcher(WithLogger(&recordingLogger{}))

	var started, finished atomic.Int32
	d.Subscribe(event.TypeQuoteStatusChanged, func(ctx context.Context, evt *event.Event) error {
		started.Add(1)
		time.Sleep(time.Millisecond)
		finished.Add(1)
		return nil
	})

	var producers sync.WaitGroup
	for i := 0; i < 50; i++ {
		producers.Add(1)
		go func() {
			defer producers.Done()
			d.DispatchAsync(context.Background(), newQuoteEvent())
		}()
	}

	require.NoError(t, d.Close())
	assert.Equal(t, started.Load(), finished.Load())

	producers.Wait()
	assert.Equal(t, started.Load(), finished.Load())
}

func TestConcurrentSubscribe(t *testing.T) {
	d := NewDispatcher()
	defer d.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			d.SubscribeNamed(event.TypeSurveyStatusChanged, fmt.Sprintf("handler-%d", id), func(ctx context.Context, evt *event.Event) error {
				return nil
			})
		}(i)
	}
	wg.Wait()

	assert.Len(t, d.ListHandlers(event.TypeSurveyStatusChanged), 20)
}
