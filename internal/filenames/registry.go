// Package filenames issues the opaque tokens that name every file belonging
// to a download job.
package filenames

import (
	"crypto/sha1" //nolint:gosec
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Registry hands out filenames that are unique for the process lifetime.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	secret string
	issued map[string]struct{}
	now    func() time.Time
}

// Option customizes a Registry.
type Option func(*Registry)

// WithClock overrides the time source used to derive names.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// New constructs an empty registry keyed by secret.
func New(secret string, opts ...Option) *Registry {
	r := &Registry{
		secret: secret,
		issued: make(map[string]struct{}),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Allocate derives a fresh filename for requestor and records it as issued.
func (r *Registry) Allocate(requestor string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for attempt := 0; ; attempt++ {
		name := derive(requestor, r.now(), r.secret, attempt)
		if _, taken := r.issued[name]; !taken {
			r.issued[name] = struct{}{}
			return name
		}
	}
}

// Contains reports whether name has been issued or seeded.
func (r *Registry) Contains(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.issued[name]
	return ok
}

// Seed marks existing names as taken.
func (r *Registry) Seed(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			r.issued[name] = struct{}{}
		}
	}
}

// SeedFromDir marks the name of every file in dir as taken. The name is the
// portion before the first ".". A missing directory seeds nothing.
func (r *Registry) SeedFromDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		base, _, _ := strings.Cut(entry.Name(), ".")
		names = append(names, base)
	}
	r.Seed(names...)
	return len(names), nil
}

// Len returns the number of names known to the registry.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.issued)
}

// derive hashes "requestor,seconds,secret" and keeps every fourth hex digit.
// Retries after a collision salt the input with the attempt number.
func derive(requestor string, at time.Time, secret string, attempt int) string {
	seconds := strconv.FormatFloat(float64(at.UnixNano())/1e9, 'f', -1, 64)
	input := requestor + "," + seconds + "," + secret
	if attempt > 0 {
		input += "," + strconv.Itoa(attempt)
	}
	sum := sha1.Sum([]byte(input)) //nolint:gosec
	digest := hex.EncodeToString(sum[:])
	out := make([]byte, 0, len(digest)/4)
	for i := 0; i < len(digest); i += 4 {
		out = append(out, digest[i])
	}
	return string(out)
}
