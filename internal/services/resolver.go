package services

import (
	"sync"
)

// SessionKind is an explicit tag instead of the original's string-prefix
// guesswork about what a user ID means.
type SessionKind int

const (
	SessionNone SessionKind = iota
	SessionGuest
	SessionAuthenticated
)

// Session is the identity the sync engine operates under.
type Session struct {
	Kind  SessionKind
	ID    string
	Email string
}

// GuestSession is the deterministic identity produced when no auth backend
// is configured, so subscribers never wait on a session that cannot arrive.
var GuestSession = Session{
	Kind:  SessionGuest,
	ID:    "guest",
	Email: "guest@ecohabit.local",
}

// IsZero reports whether the session carries no identity.
func (s Session) IsZero() bool { return s.Kind == SessionNone }

// ClearIdentity durably removes a cached identity (the Redis session token).
// Must be called before subscribers are notified of a sign-out.
type ClearIdentity func(token string) error

// Resolver owns the current session value and delivers it to subscribers:
// once immediately on subscribe, then again on every change. It replaces the
// original's module-level "current user" cached in device storage.
type Resolver struct {
	mu      sync.Mutex
	current Session
	subs    map[int]func(Session)
	nextID  int
	clear   ClearIdentity
}

// NewResolver builds a resolver. When guestFallback is true (auth backend
// unconfigured) the initial session is the fixed guest identity rather than
// none, so the app is usable with zero configuration.
func NewResolver(guestFallback bool, clear ClearIdentity) *Resolver {
	r := &Resolver{
		subs:  make(map[int]func(Session)),
		clear: clear,
	}
	if guestFallback {
		r.current = GuestSession
	}
	return r
}

// Current returns the current session, which may be the zero Session.
func (r *Resolver) Current() Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Subscribe registers fn, delivers the current session to it immediately,
// and returns an unsubscribe handle. Unsubscribing twice is a no-op.
func (r *Resolver) Subscribe(fn func(Session)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	current := r.current
	r.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

// Establish publishes a newly authenticated session.
func (r *Resolver) Establish(sess Session) {
	r.publish(sess)
}

// SignOut durably clears the cached identity for token, then publishes the
// post-logout session (guest when in guest fallback, none otherwise).
func (r *Resolver) SignOut(token string, guestFallback bool) error {
	var err error
	if r.clear != nil {
		err = r.clear(token)
	}
	next := Session{}
	if guestFallback {
		next = GuestSession
	}
	r.publish(next)
	return err
}

func (r *Resolver) publish(sess Session) {
	r.mu.Lock()
	r.current = sess
	fns := make([]func(Session), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(sess)
	}
}
