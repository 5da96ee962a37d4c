package stage

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrCancelled is returned by handlers when their worker generation has been
// retired. It is not a failure: the job is left untouched for the current
// generation to resume.
var ErrCancelled = errors.New("stage cancelled: worker generation retired")

// Token identifies one worker generation.
type Token struct {
	ID   string
	done chan struct{}
}

// Done is closed once the generation has been retired.
func (t *Token) Done() <-chan struct{} {
	if t == nil {
		return nil
	}
	return t.done
}

// Retired reports whether the generation has been superseded or stopped.
func (t *Token) Retired() bool {
	if t == nil {
		return false
	}
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Generations tracks the single active worker generation.
type Generations struct {
	mu     sync.Mutex
	active *Token
}

// Begin starts a new generation and retires the previous one.
func (g *Generations) Begin() *Token {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active != nil {
		close(g.active.done)
	}
	g.active = &Token{ID: uuid.NewString(), done: make(chan struct{})}
	return g.active
}

// Retire ends the active generation without starting a new one.
func (g *Generations) Retire() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active != nil {
		close(g.active.done)
		g.active = nil
	}
}

// Active returns the current generation, or nil when none is running.
func (g *Generations) Active() *Token {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

type tokenKey struct{}

// WithToken stores the generation token on the context for Checkpoint.
func WithToken(ctx context.Context, tok *Token) context.Context {
	return context.WithValue(ctx, tokenKey{}, tok)
}

// TokenFromContext returns the generation token attached to ctx.
func TokenFromContext(ctx context.Context) *Token {
	tok, _ := ctx.Value(tokenKey{}).(*Token)
	return tok
}

// Checkpoint returns ErrCancelled when the context's generation has been
// retired or the context itself is done. A context without a token only
// observes its own cancellation.
func Checkpoint(ctx context.Context) error {
	if ctx.Err() != nil {
		return ErrCancelled
	}
	if TokenFromContext(ctx).Retired() {
		return ErrCancelled
	}
	return nil
}
