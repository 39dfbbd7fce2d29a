// Package presence tracks which live connections are watching which users'
// mentions.
//
// The Registry is a many-to-many index between Subscribers (one per open
// websocket) and user ids. It is created by the server, handed to the
// websocket handler (which mutates it) and to the mention notifier (which
// reads it), and lives exactly as long as the server does.
package presence

import (
	"sort"
	"sync"
)

// Message types carried over the real-time channel.
const (
	TypeWatch      = "watchUserMentions"
	TypeUnwatch    = "unwatchUserMentions"
	TypeMentionNew = "mention:new"
	TypeError      = "error"
)

// Message is the {"type", "data"} envelope written to a connection.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Subscriber is one live connection.
//
// Send must not block. It returns false when the message could not be queued
// (buffer full or connection already gone).
type Subscriber interface {
	Send(msg Message) bool
}

// Registry maps user ids to the subscribers watching them, and back.
// The zero value is not usable; call NewRegistry.
type Registry struct {
	mu       sync.RWMutex
	watchers map[string]map[Subscriber]struct{}
	watching map[Subscriber]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		watchers: make(map[string]map[Subscriber]struct{}),
		watching: make(map[Subscriber]map[string]struct{}),
	}
}

// Watch registers sub as a listener for mentions of userID.
// Watching the same user twice is the same as watching it once.
func (r *Registry) Watch(sub Subscriber, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.watchers[userID]
	if !ok {
		subs = make(map[Subscriber]struct{})
		r.watchers[userID] = subs
	}
	subs[sub] = struct{}{}

	users, ok := r.watching[sub]
	if !ok {
		users = make(map[string]struct{})
		r.watching[sub] = users
	}
	users[userID] = struct{}{}
}

// Unwatch removes one registration. Removing one that does not exist is a
// no-op.
func (r *Registry) Unwatch(sub Subscriber, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unwatchLocked(sub, userID)
}

// Remove drops every registration held by sub. Called when a connection
// closes.
func (r *Registry) Remove(sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for userID := range r.watching[sub] {
		r.unwatchLocked(sub, userID)
	}
	delete(r.watching, sub)
}

func (r *Registry) unwatchLocked(sub Subscriber, userID string) {
	if subs, ok := r.watchers[userID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(r.watchers, userID)
		}
	}
	if users, ok := r.watching[sub]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(r.watching, sub)
		}
	}
}

// Deliver sends msg to every subscriber currently watching userID and
// returns how many accepted it. Zero means the message was dropped; nothing
// is queued for later.
//
// The subscriber set is copied under the read lock and sent to after it is
// released, so a slow Send never holds up Watch or Remove.
func (r *Registry) Deliver(userID string, msg Message) int {
	r.mu.RLock()
	subs := make([]Subscriber, 0, len(r.watchers[userID]))
	for sub := range r.watchers[userID] {
		subs = append(subs, sub)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		if sub.Send(msg) {
			delivered++
		}
	}
	return delivered
}

// Watchers returns the number of subscribers watching userID.
func (r *Registry) Watchers(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.watchers[userID])
}

// Subscriptions returns the user ids sub is watching, sorted.
func (r *Registry) Subscriptions(sub Subscriber) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.watching[sub]))
	for userID := range r.watching[sub] {
		out = append(out, userID)
	}
	sort.Strings(out)
	return out
}

// Connections returns the number of subscribers holding at least one
// registration.
func (r *Registry) Connections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.watching)
}
