package storage

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrInjected is returned by Chaos for the calls it chose to fail.
var ErrInjected = errors.New("storage: injected fault")

// ChaosOptions configures fault injection. The zero value injects nothing.
type ChaosOptions struct {
	FailureRate float64       `yaml:"failure_rate"` // 0.0 to 1.0
	Latency     time.Duration `yaml:"latency"`
	Seed        uint64        `yaml:"seed"`
}

func (o ChaosOptions) Enabled() bool { return o.FailureRate > 0 || o.Latency > 0 }

// Chaos wraps a Store, delaying every call by Latency and failing a
// FailureRate share of them with ErrInjected. It is used for resilience
// drills against a running daemon and for failure tests.
type Chaos struct {
	Store
	tracer trace.Tracer

	mu      sync.Mutex
	opts    ChaosOptions
	rnd     *rand.Rand
	injects int
}

func NewChaos(s Store, opts ChaosOptions) *Chaos {
	return &Chaos{
		Store:  s,
		tracer: otel.Tracer("libraryos/storage/chaos"),
		opts:   opts,
		rnd:    rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
	}
}

// SetFailureRate changes the failure share for subsequent calls.
func (c *Chaos) SetFailureRate(rate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.FailureRate = rate
}

// Injected reports how many calls were failed so far.
func (c *Chaos) Injected() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.injects
}

func (c *Chaos) Get(ctx context.Context, key string) ([]byte, error) {
	if err := c.inject(ctx, "get", key); err != nil {
		return nil, err
	}
	return c.Store.Get(ctx, key)
}

func (c *Chaos) Put(ctx context.Context, key string, data []byte) error {
	if err := c.inject(ctx, "put", key); err != nil {
		return err
	}
	return c.Store.Put(ctx, key, data)
}

func (c *Chaos) inject(ctx context.Context, op, key string) error {
	c.mu.Lock()
	latency := c.opts.Latency
	fail := c.opts.FailureRate > 0 && c.rnd.Float64() < c.opts.FailureRate
	if fail {
		c.injects++
	}
	c.mu.Unlock()

	if latency == 0 && !fail {
		return nil
	}

	ctx, span := c.tracer.Start(ctx, "chaos.inject",
		trace.WithAttributes(
			attribute.String("store.op", op),
			attribute.String("store.key", key),
			attribute.Int64("chaos.latency_ms", latency.Milliseconds()),
			attribute.Bool("chaos.fail", fail),
		),
	)
	defer span.End()
	span.AddEvent("injecting_chaos")

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if fail {
		return ErrInjected
	}
	return nil
}
