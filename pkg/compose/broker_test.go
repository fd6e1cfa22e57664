package compose

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_Subscribe(t *testing.T) {
	broker := NewBroker(10)
	defer broker.Close()

	ch := broker.Subscribe("ui")
	require.NotNil(t, ch)
	assert.Equal(t, 1, broker.SubscriberCount())
}

func TestBroker_SubscribeDuplicate(t *testing.T) {
	broker := NewBroker(10)
	defer broker.Close()

	ch1 := broker.Subscribe("ui")
	ch2 := broker.Subscribe("ui")

	assert.Equal(t, ch1, ch2, "expected same channel for duplicate subscription")
	assert.Equal(t, 1, broker.SubscriberCount())
}

func TestBroker_Unsubscribe(t *testing.T) {
	broker := NewBroker(10)
	defer broker.Close()

	ch := broker.Subscribe("ui")
	broker.Unsubscribe("ui")

	_, ok := <-ch
	assert.False(t, ok, "expected channel to be closed")
	assert.Equal(t, 0, broker.SubscriberCount())
}

func TestBroker_Publish(t *testing.T) {
	broker := NewBroker(10)
	defer broker.Close()

	ch := broker.Subscribe("ui")

	broker.Publish(UploadFailed("t1", ReasonURLNotFound, nil))

	select {
	case received := <-ch:
		failed, ok := received.(*UploadFailedEvent)
		require.True(t, ok)
		assert.Equal(t, "t1", failed.TaskID)
		assert.Equal(t, ReasonURLNotFound, failed.Reason)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
}

func TestBroker_PublishMultipleSubscribers(t *testing.T) {
	broker := NewBroker(10)
	defer broker.Close()

	ch1 := broker.Subscribe("ui")
	ch2 := broker.Subscribe("log")

	broker.Publish(UploadStarted("t1", "image/png", 42))

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case received := <-ch:
			started, ok := received.(*UploadStartedEvent)
			require.True(t, ok, "subscriber %d: expected UploadStartedEvent", i)
			assert.Equal(t, "t1", started.TaskID, "subscriber %d", i)
		case <-time.After(100 * time.Millisecond):
			t.Errorf("subscriber %d: timeout waiting for event", i)
		}
	}
}

func TestBroker_PublishFullBuffer(t *testing.T) {
	broker := NewBroker(1)
	defer broker.Close()

	ch := broker.Subscribe("slow")

	broker.Publish(BufferChanged("one"))
	broker.Publish(BufferChanged("two"))

	select {
	case <-ch:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	select {
	case <-ch:
		t.Error("unexpected second event, it should have been dropped")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroker_PublishNoSubscribers(t *testing.T) {
	broker := NewBroker(10)
	defer broker.Close()

	broker.Publish(KeyWarning())
}

func TestBroker_PublishSync(t *testing.T) {
	broker := NewBroker(10)
	defer broker.Close()

	ch := broker.Subscribe("ui")

	go func() {
		broker.PublishSync(Submitted(1, "hello"))
	}()

	select {
	case received := <-ch:
		_, ok := received.(*SubmittedEvent)
		require.True(t, ok)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for sync event")
	}
}

func TestBroker_Close(t *testing.T) {
	broker := NewBroker(10)

	ch1 := broker.Subscribe("ui")
	ch2 := broker.Subscribe("log")

	broker.Close()

	_, ok1 := <-ch1
	_, ok2 := <-ch2
	assert.False(t, ok1, "expected ch1 to be closed")
	assert.False(t, ok2, "expected ch2 to be closed")

	broker.Publish(KeyWarning())

	ch3 := broker.Subscribe("late")
	_, ok3 := <-ch3
	assert.False(t, ok3, "expected closed channel from subscribe after close")
}

func TestBroker_CloseIdempotent(t *testing.T) {
	broker := NewBroker(10)

	broker.Subscribe("ui")

	broker.Close()
	broker.Close()
}

func TestBroker_ConcurrentAccess(t *testing.T) {
	broker := NewBroker(100)
	defer broker.Close()

	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			ch := broker.Subscribe(fmt.Sprintf("sub-%d", id))

			for n := 0; n < 5; n++ {
				select {
				case <-ch:
				case <-time.After(100 * time.Millisecond):
				}
			}
		}(i)
	}

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 10; n++ {
				broker.Publish(BufferChanged("x"))
			}
		}()
	}

	wg.Wait()
}
