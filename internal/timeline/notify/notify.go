// Package notify delivers timeline change notifications to the
// presentation layer.
//
// A Change names an object by id and a set of roles that describe which of
// its observable attributes moved. Observers can listen to every change or
// to a single object. The presentation layer is the only consumer; nothing
// here feeds back into validation.
package notify

import (
	"strings"
	"sync"

	"github.com/dshills/cutstorm/internal/timeline/ident"
)

// ChangeType represents the kind of change.
type ChangeType int

const (
	// ChangeUpdate indicates attributes of an existing object changed.
	ChangeUpdate ChangeType = iota

	// ChangeInsert indicates an object became visible on the timeline.
	ChangeInsert

	// ChangeRemove indicates an object left the timeline.
	ChangeRemove
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeUpdate:
		return "update"
	case ChangeInsert:
		return "insert"
	case ChangeRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Role is a bit set of observable attributes.
type Role uint16

// Roles emitted by the timeline model.
const (
	RoleStart Role = 1 << iota
	RoleDuration
	RoleTrack
	RoleFakePosition
	RoleFakeTrack
	RoleATrack
	RoleState
	RoleGroup
)

var roleNames = []struct {
	role Role
	name string
}{
	{RoleStart, "start"},
	{RoleDuration, "duration"},
	{RoleTrack, "track"},
	{RoleFakePosition, "fakePosition"},
	{RoleFakeTrack, "fakeTrack"},
	{RoleATrack, "aTrack"},
	{RoleState, "state"},
	{RoleGroup, "group"},
}

// Has reports whether every role in other is set.
func (r Role) Has(other Role) bool {
	return r&other == other
}

// String returns the role names joined by '|'.
func (r Role) String() string {
	var names []string
	for _, rn := range roleNames {
		if r&rn.role != 0 {
			names = append(names, rn.name)
		}
	}
	return strings.Join(names, "|")
}

// Change represents one notification.
type Change struct {
	// Item is the changed clip, composition, track or group.
	Item ident.ID

	// Type is the kind of change.
	Type ChangeType

	// Roles lists the attributes that changed for ChangeUpdate.
	Roles Role
}

// Observer is called when a change is delivered.
type Observer func(change Change)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	notifier *Notifier
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

// Notifier manages change subscriptions.
type Notifier struct {
	mu sync.RWMutex

	globalObservers map[uint64]Observer
	itemObservers   map[ident.ID]map[uint64]Observer

	nextID uint64

	async  bool
	buffer chan Change
	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithAsync enables asynchronous delivery through a buffered queue.
func WithAsync(bufferSize int) Option {
	return func(n *Notifier) {
		if bufferSize > 0 {
			n.async = true
			n.buffer = make(chan Change, bufferSize)
		}
	}
}

// New creates a new Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		globalObservers: make(map[uint64]Observer),
		itemObservers:   make(map[ident.ID]map[uint64]Observer),
		done:            make(chan struct{}),
	}

	for _, opt := range opts {
		opt(n)
	}

	if n.async {
		n.wg.Add(1)
		go n.processAsync()
	}

	return n
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.globalObservers[id] = observer

	return &Subscription{id: id, notifier: n}
}

// SubscribeItem registers an observer for changes to one object.
func (n *Notifier) SubscribeItem(item ident.ID, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++

	if n.itemObservers[item] == nil {
		n.itemObservers[item] = make(map[uint64]Observer)
	}
	n.itemObservers[item][id] = observer

	return &Subscription{id: id, notifier: n}
}

// Notify sends a change to all relevant observers.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return
	}
	n.mu.RUnlock()

	if n.async {
		select {
		case n.buffer <- change:
		case <-n.done:
		}
		return
	}

	n.deliver(change)
}

// Close shuts down the notifier. It is safe to call Close multiple times.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.globalObservers, id)
	for item, observers := range n.itemObservers {
		delete(observers, id)
		if len(observers) == 0 {
			delete(n.itemObservers, item)
		}
	}
}

// deliver calls matching observers outside the lock.
func (n *Notifier) deliver(change Change) {
	n.mu.RLock()
	observers := make([]Observer, 0, len(n.globalObservers))
	for _, obs := range n.globalObservers {
		observers = append(observers, obs)
	}
	for _, obs := range n.itemObservers[change.Item] {
		observers = append(observers, obs)
	}
	n.mu.RUnlock()

	for _, obs := range observers {
		obs(change)
	}
}

func (n *Notifier) processAsync() {
	defer n.wg.Done()

	for {
		select {
		case change := <-n.buffer:
			n.deliver(change)
		case <-n.done:
			// Drain remaining buffered changes
			for {
				select {
				case change := <-n.buffer:
					n.deliver(change)
				default:
					return
				}
			}
		}
	}
}

// Batch accumulates changes and delivers them together. Updates for the same
// object are folded into one change with the union of their roles.
type Batch struct {
	notifier *Notifier
	changes  []Change
	index    map[ident.ID]int
}

// NewBatch creates a batch bound to n.
func (n *Notifier) NewBatch() *Batch {
	return &Batch{notifier: n, index: make(map[ident.ID]int)}
}

// Add queues a change.
func (b *Batch) Add(change Change) {
	if change.Type == ChangeUpdate {
		if i, ok := b.index[change.Item]; ok {
			b.changes[i].Roles |= change.Roles
			return
		}
		b.index[change.Item] = len(b.changes)
	} else {
		// Structural changes break folding for the object.
		delete(b.index, change.Item)
	}
	b.changes = append(b.changes, change)
}

// Update queues an attribute change.
func (b *Batch) Update(item ident.ID, roles Role) {
	b.Add(Change{Item: item, Type: ChangeUpdate, Roles: roles})
}

// Len returns the number of pending changes.
func (b *Batch) Len() int {
	return len(b.changes)
}

// Commit delivers every pending change and empties the batch.
func (b *Batch) Commit() {
	changes := b.changes
	b.Discard()
	for _, c := range changes {
		b.notifier.Notify(c)
	}
}

// Discard drops every pending change.
func (b *Batch) Discard() {
	b.changes = nil
	b.index = make(map[ident.ID]int)
}
