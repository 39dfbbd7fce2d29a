package presence

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSub records what it receives. A non-positive capacity means unlimited.
type fakeSub struct {
	mu       sync.Mutex
	capacity int
	got      []Message
}

func (f *fakeSub) Send(msg Message) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.capacity > 0 && len(f.got) >= f.capacity {
		return false
	}
	f.got = append(f.got, msg)
	return true
}

func (f *fakeSub) received() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.got...)
}

func TestWatch_Idempotent(t *testing.T) {
	r := NewRegistry()
	sub := &fakeSub{}

	r.Watch(sub, "u1")
	r.Watch(sub, "u1")

	assert.Equal(t, 1, r.Watchers("u1"))
	assert.Equal(t, []string{"u1"}, r.Subscriptions(sub))

	n := r.Deliver("u1", Message{Type: TypeMentionNew})
	assert.Equal(t, 1, n)
	assert.Len(t, sub.received(), 1, "a double watch must not double-deliver")
}

func TestUnwatch(t *testing.T) {
	r := NewRegistry()
	sub := &fakeSub{}

	r.Watch(sub, "u1")
	r.Watch(sub, "u2")
	r.Unwatch(sub, "u1")

	assert.Equal(t, 0, r.Watchers("u1"))
	assert.Equal(t, []string{"u2"}, r.Subscriptions(sub))
	assert.Equal(t, 0, r.Deliver("u1", Message{Type: TypeMentionNew}))
}

func TestUnwatch_Absent(t *testing.T) {
	r := NewRegistry()
	sub := &fakeSub{}

	assert.NotPanics(t, func() { r.Unwatch(sub, "nobody") })

	r.Watch(sub, "u1")
	r.Unwatch(sub, "u2")
	assert.Equal(t, []string{"u1"}, r.Subscriptions(sub))
}

func TestRemove_DropsAllRegistrations(t *testing.T) {
	r := NewRegistry()
	gone := &fakeSub{}
	stays := &fakeSub{}

	r.Watch(gone, "u1")
	r.Watch(gone, "u2")
	r.Watch(stays, "u1")

	r.Remove(gone)

	assert.Empty(t, r.Subscriptions(gone))
	assert.Equal(t, 1, r.Watchers("u1"))
	assert.Equal(t, 0, r.Watchers("u2"))
	assert.Equal(t, 1, r.Connections())

	r.Deliver("u1", Message{Type: TypeMentionNew})
	assert.Empty(t, gone.received())
	assert.Len(t, stays.received(), 1)
}

func TestDeliver_FansOutToAllWatchers(t *testing.T) {
	r := NewRegistry()
	a, b, other := &fakeSub{}, &fakeSub{}, &fakeSub{}

	r.Watch(a, "u1")
	r.Watch(b, "u1")
	r.Watch(other, "u2")

	msg := Message{Type: TypeMentionNew, Data: "payload"}
	n := r.Deliver("u1", msg)

	assert.Equal(t, 2, n)
	assert.Equal(t, []Message{msg}, a.received())
	assert.Equal(t, []Message{msg}, b.received())
	assert.Empty(t, other.received())
}

func TestDeliver_NoWatchers(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, 0, r.Deliver("u1", Message{Type: TypeMentionNew}))
}

func TestDeliver_FullSubscriberIsSkipped(t *testing.T) {
	r := NewRegistry()
	full := &fakeSub{capacity: 1}
	ok := &fakeSub{}

	r.Watch(full, "u1")
	r.Watch(ok, "u1")

	assert.Equal(t, 2, r.Deliver("u1", Message{Type: TypeMentionNew}))
	assert.Equal(t, 1, r.Deliver("u1", Message{Type: TypeMentionNew}))

	assert.Len(t, full.received(), 1)
	assert.Len(t, ok.received(), 2)
}

func TestRegistry_ConcurrentUse(t *testing.T) {
	r := NewRegistry()
	const workers = 16

	subs := make([]*fakeSub, workers)
	for i := range subs {
		subs[i] = &fakeSub{}
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				user := fmt.Sprintf("u%d", j%5)
				r.Watch(subs[i], user)
				r.Deliver(user, Message{Type: TypeMentionNew})
				if j%3 == 0 {
					r.Unwatch(subs[i], user)
				}
			}
			r.Remove(subs[i])
		}(i)
	}
	wg.Wait()

	require.Equal(t, 0, r.Connections())
	for j := 0; j < 5; j++ {
		assert.Equal(t, 0, r.Watchers(fmt.Sprintf("u%d", j)))
	}
}
