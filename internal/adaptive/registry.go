package adaptive

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RyanBlaney/speech-coach/internal/random"
	"github.com/RyanBlaney/speech-coach/pkg/logging"
)

// RegistryConfig controls session lifetime
type RegistryConfig struct {
	TTL             time.Duration `mapstructure:"session_ttl"`      // Idle time after which a session is dropped
	JanitorInterval time.Duration `mapstructure:"janitor_interval"` // How often expired sessions are swept
	Seed            int64         `mapstructure:"seed"`             // Message picker seed; zero seeds from the clock
}

// DefaultRegistryConfig returns the standard lifetimes
func DefaultRegistryConfig() *RegistryConfig {
	return &RegistryConfig{
		TTL:             30 * time.Minute,
		JanitorInterval: time.Minute,
	}
}

// Registry keys controllers by session id
type Registry struct {
	config *RegistryConfig
	policy *Policy
	clock  func() time.Time
	rng    random.Source
	logger logging.Logger

	mu       sync.RWMutex
	sessions map[string]*Controller
}

// NewRegistry creates an empty registry
func NewRegistry(config *RegistryConfig, policy *Policy, logger logging.Logger) *Registry {
	if config == nil {
		config = DefaultRegistryConfig()
	}
	if policy == nil {
		policy = DefaultPolicy()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Registry{
		config:   config,
		policy:   policy,
		clock:    time.Now,
		rng:      random.New(config.Seed),
		logger:   logger,
		sessions: make(map[string]*Controller),
	}
}

// SetClock replaces time.Now for the registry and every controller it creates afterwards
func (r *Registry) SetClock(clock func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock = clock
}

// NewSessionID returns a fresh random session id
func NewSessionID() string {
	return uuid.NewString()
}

// Get returns the controller of an existing session
func (r *Registry) Get(id string) (*Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.sessions[id]
	return c, ok
}

// GetOrCreate returns the controller for id, creating it when missing.
// An empty id gets a freshly generated one.
func (r *Registry) GetOrCreate(id string) *Controller {
	if id != "" {
		if c, ok := r.Get(id); ok {
			return c
		}
	} else {
		id = NewSessionID()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.sessions[id]; ok {
		return c
	}
	c := NewController(id, r.policy, r.logger, WithClock(r.clock), WithRandom(r.rng))
	r.sessions[id] = c
	r.logger.Debug("Session created", logging.Fields{"session_id": id, "sessions": len(r.sessions)})
	return c
}

// Reset clears the stats of a session; reports whether it existed
func (r *Registry) Reset(id string) bool {
	c, ok := r.Get(id)
	if !ok {
		return false
	}
	c.Reset()
	return true
}

// Delete removes a session; reports whether it existed
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Expire drops sessions idle longer than the TTL and returns how many were removed
func (r *Registry) Expire(now time.Time) int {
	if r.config.TTL <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, c := range r.sessions {
		if now.Sub(c.LastActivity()) > r.config.TTL {
			delete(r.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Info("Expired idle sessions", logging.Fields{"removed": removed, "remaining": len(r.sessions)})
	}
	return removed
}

// Run sweeps expired sessions until ctx is done
func (r *Registry) Run(ctx context.Context) {
	interval := r.config.JanitorInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.RLock()
			now := r.clock()
			r.mu.RUnlock()
			r.Expire(now)
		}
	}
}
