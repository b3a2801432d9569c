package issue

import "sync"

// PlanListRefresher notifies subscribers that plan lists should be reloaded.
type PlanListRefresher struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func()
}

// NewPlanListRefresher creates a refresher with no subscribers.
func NewPlanListRefresher() *PlanListRefresher {
	return &PlanListRefresher{subs: make(map[int]func())}
}

// Subscribe registers fn and returns a function that removes it.
func (r *PlanListRefresher) Subscribe(fn func()) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

// Refresh calls every current subscriber.
func (r *PlanListRefresher) Refresh() {
	r.mu.Lock()
	fns := make([]func(), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
