package cache_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"go.trai.ch/hoard/internal/core/domain"
	"go.trai.ch/hoard/internal/core/ports"
	"go.trai.ch/hoard/internal/core/ports/mocks"
	"go.trai.ch/hoard/internal/engine/cache"
	"go.uber.org/mock/gomock"
)

// quietLogger returns a mock logger that accepts any output.
func quietLogger(ctrl *gomock.Controller) *mocks.MockLogger {
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any()).AnyTimes()
	return log
}

// placement records tier moves without moving anything.
type placement struct {
	mu        sync.Mutex
	active    map[domain.CanonicalKey]bool
	promotes  int
	demotes   int
	freed     []domain.CanonicalKey
	promoteFn func(domain.CanonicalKey) error
}

func newPlacement() *placement {
	return &placement{active: make(map[domain.CanonicalKey]bool)}
}

func (p *placement) Promote(_ context.Context, key domain.CanonicalKey, _ domain.Artifact) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.promoteFn != nil {
		if err := p.promoteFn(key); err != nil {
			return err
		}
	}
	p.promotes++
	p.active[key] = true
	return nil
}

func (p *placement) Demote(_ context.Context, key domain.CanonicalKey, _ domain.Artifact) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.demotes++
	delete(p.active, key)
	return nil
}

func (p *placement) Free(_ context.Context, key domain.CanonicalKey, _ domain.Artifact) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, key)
	p.freed = append(p.freed, key)
}

func (p *placement) Freed() []domain.CanonicalKey {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.CanonicalKey(nil), p.freed...)
}

func (p *placement) Counts() (promotes, demotes int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.promotes, p.demotes
}

// countingLoad returns a LoadFunc producing a fresh handle of the given size, and its call counter.
func countingLoad(size int64) (cache.LoadFunc, *atomic.Int32) {
	var calls atomic.Int32
	return func(context.Context) (domain.Artifact, error) {
		n := calls.Add(1)
		return domain.Artifact{Handle: &handle{gen: int(n)}, Size: size}, nil
	}, &calls
}

type handle struct {
	gen int
}

func sized(size int64) cache.LoadFunc {
	load, _ := countingLoad(size)
	return load
}

func key(name string) domain.CanonicalKey {
	return domain.MustResolve(name, "sd-1", "main", "")
}

// manualClock is a test clock that only moves when told to.
type manualClock struct {
	now atomic.Int64
}

func (c *manualClock) Now() int64 {
	return c.now.Load()
}

func (c *manualClock) Advance() {
	c.now.Add(1)
}

func newStore(t *testing.T, opts cache.Options) (*cache.Store, *placement) {
	t.Helper()
	ctrl := gomock.NewController(t)
	dev := newPlacement()
	return cache.NewStore(opts, dev, quietLogger(ctrl), nil), dev
}

// spans records the names of started spans and the errors recorded on them.
type spans struct {
	mu     sync.Mutex
	names  []string
	errors []error
}

func (s *spans) Start(ctx context.Context, name string, _ ...ports.SpanOption) (context.Context, ports.Span) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, name)
	return ctx, &span{rec: s}
}

func (s *spans) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.names...)
}

type span struct {
	rec *spans
}

func (*span) End()                        {}
func (*span) SetAttribute(string, any)    {}
func (*span) Write(p []byte) (int, error) { return len(p), nil }

func (s *span) RecordError(err error) {
	s.rec.mu.Lock()
	defer s.rec.mu.Unlock()
	s.rec.errors = append(s.rec.errors, err)
}
