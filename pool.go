package sqlsession

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fernandezvara/sqlsession/hooks"
)

// Pool is an explicitly constructed set of reusable backend connections.
// It is the only structure shared across sessions; lease and release
// bookkeeping is serialized under a mutex. Construct one per process and
// inject it into each Session.
type Pool struct {
	driver Driver
	cfg    Config
	logger *slog.Logger
	hooks  []hooks.QueryHook

	mu     sync.Mutex
	conns  map[*PoolConn]struct{}
	open   int // dialed or mid-dial, never exceeds cfg.MaxConns
	leased int
	closed bool
	free   chan *PoolConn
}

// PoolConn is one leased backend connection. Exactly one in-flight session
// borrows it at a time.
type PoolConn struct {
	pool   *Pool
	conn   Conn
	leased bool // guarded by pool.mu; the double-release guard
}

// Conn returns the underlying backend connection.
func (pc *PoolConn) Conn() Conn {
	return pc.conn
}

// PoolStats contains connection pool counters
type PoolStats struct {
	MaxConns int
	Open     int
	Leased   int
	Idle     int
}

// NewPool creates a pool backed by the pgx driver using cfg's DSN.
func NewPool(cfg Config) (*Pool, error) {
	if cfg.Host == "" || cfg.Database == "" {
		return nil, &Error{
			Code:    CodeConnectionFailed,
			Message: "database host and name are required",
			Op:      "NewPool",
		}
	}
	cfg.applyDefaults()
	return NewPoolWithDriver(newPgxDriver(cfg.DSN(), cfg.DialTimeout), cfg)
}

// NewPoolWithDriver creates a pool over an explicit backend driver.
func NewPoolWithDriver(driver Driver, cfg Config) (*Pool, error) {
	cfg.applyDefaults()

	p := &Pool{
		driver: driver,
		cfg:    cfg,
		logger: cfg.Logger,
		conns:  make(map[*PoolConn]struct{}),
		free:   make(chan *PoolConn, cfg.MaxConns),
	}

	// Observability hooks shared by every session on this pool
	if cfg.Logger != nil && (cfg.LogQueries || cfg.LogSlowQueries > 0) {
		p.hooks = append(p.hooks, hooks.NewLoggerHook(cfg.Logger, cfg.LogQueries, cfg.LogSlowQueries))
	}
	if cfg.MetricsRegistry != nil {
		hook, err := hooks.NewMetricsHook(cfg.MetricsRegistry)
		if err != nil {
			return nil, fmt.Errorf("sqlsession: failed to create metrics hook: %w", err)
		}
		p.hooks = append(p.hooks, hook)
	}
	if cfg.Tracer != nil {
		p.hooks = append(p.hooks, hooks.NewTracingHook(cfg.Tracer))
	}

	p.logger.Info("database pool created",
		slog.String("host", cfg.Host),
		slog.String("database", cfg.Database),
		slog.Int("max_conns", cfg.MaxConns),
	)

	return p, nil
}

// Acquire leases one connection. It reuses an idle connection when available,
// dials lazily while under MaxConns, and otherwise waits until a connection
// is released. The wait is bounded by Config.AcquireTimeout (zero blocks
// until ctx is done). After Shutdown, Acquire fails with ErrPoolClosed.
func (p *Pool) Acquire(ctx context.Context) (*PoolConn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, &Error{Code: CodePoolClosed, Message: "pool is closed", Op: "Acquire"}
	}

	select {
	case pc := <-p.free:
		return p.leaseLocked(pc)
	default:
	}

	if p.open < p.cfg.MaxConns {
		p.open++
		p.mu.Unlock()
		return p.dial(ctx)
	}
	p.mu.Unlock()

	return p.wait(ctx)
}

// leaseLocked marks an idle connection leased. Called with p.mu held;
// releases it before returning. A faulted idle connection escalates through
// the fatal policy.
func (p *Pool) leaseLocked(pc *PoolConn) (*PoolConn, error) {
	if pc.conn.Closed() {
		delete(p.conns, pc)
		p.open--
		p.mu.Unlock()
		return nil, p.fatal(fmt.Errorf("idle connection is broken"))
	}
	pc.leased = true
	p.leased++
	p.mu.Unlock()
	return pc, nil
}

func (p *Pool) dial(ctx context.Context) (*PoolConn, error) {
	conn, err := p.driver.Connect(ctx)
	if err != nil {
		p.mu.Lock()
		p.open--
		p.mu.Unlock()
		return nil, &Error{
			Code:    CodeConnectionFailed,
			Message: "failed to connect to database",
			Op:      "Acquire",
			Cause:   err,
		}
	}

	pc := &PoolConn{pool: p, conn: conn, leased: true}
	p.mu.Lock()
	if p.closed {
		p.open--
		p.mu.Unlock()
		_ = conn.Close(ctx)
		return nil, &Error{Code: CodePoolClosed, Message: "pool is closed", Op: "Acquire"}
	}
	p.conns[pc] = struct{}{}
	p.leased++
	p.mu.Unlock()
	return pc, nil
}

func (p *Pool) wait(ctx context.Context) (*PoolConn, error) {
	var timeout <-chan time.Time
	if p.cfg.AcquireTimeout > 0 {
		timer := time.NewTimer(p.cfg.AcquireTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case pc := <-p.free:
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, &Error{Code: CodePoolClosed, Message: "pool is closed", Op: "Acquire"}
		}
		return p.leaseLocked(pc)
	case <-timeout:
		return nil, &Error{
			Code:    CodePoolExhausted,
			Message: fmt.Sprintf("no connection available within %s", p.cfg.AcquireTimeout),
			Op:      "Acquire",
		}
	case <-ctx.Done():
		return nil, &Error{
			Code:    CodePoolExhausted,
			Message: "acquire cancelled",
			Op:      "Acquire",
			Cause:   ctx.Err(),
		}
	}
}

// Release returns a connection to the pool. Releasing an already-released
// connection is a no-op; the leased flag keeps the free set consistent. A
// connection found broken on release escalates through the fatal policy.
func (p *Pool) Release(pc *PoolConn) {
	if pc == nil {
		return
	}
	p.mu.Lock()
	if !pc.leased {
		p.mu.Unlock()
		return
	}
	pc.leased = false
	p.leased--

	if p.closed {
		delete(p.conns, pc)
		p.open--
		p.mu.Unlock()
		_ = pc.conn.Close(context.Background())
		return
	}
	if pc.conn.Closed() {
		delete(p.conns, pc)
		p.open--
		p.mu.Unlock()
		_ = p.fatal(fmt.Errorf("connection broken on release"))
		return
	}
	p.mu.Unlock()

	// Never blocks: free is sized to MaxConns and each conn is in it at most
	// once thanks to the leased flag.
	p.free <- pc
}

// Shutdown drains and closes every connection exactly once. Subsequent
// Acquire calls fail with ErrPoolClosed. This is the process-wide teardown;
// individual sessions release their own connection via Session.Close.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	conns := make([]*PoolConn, 0, len(p.conns))
	for pc := range p.conns {
		conns = append(conns, pc)
		pc.leased = false
	}
	p.conns = make(map[*PoolConn]struct{})
	p.open = 0
	p.leased = 0
	p.mu.Unlock()

	for {
		select {
		case <-p.free:
			continue
		default:
		}
		break
	}

	var firstErr error
	for _, pc := range conns {
		if err := pc.conn.Close(ctx); err != nil {
			p.logger.Warn("error closing pooled connection", slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	p.logger.Info("database pool closed", slog.Int("closed_conns", len(conns)))
	return firstErr
}

// Stats returns current pool counters
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		MaxConns: p.cfg.MaxConns,
		Open:     p.open,
		Leased:   p.leased,
		Idle:     p.open - p.leased,
	}
}

// fatal logs an unrecoverable pool-level fault and escalates through the
// configured handler. The default handler terminates the process: a
// corrupted shared pool cannot safely serve further sessions.
func (p *Pool) fatal(cause error) error {
	err := &Error{
		Code:    CodeFatalPool,
		Message: "unrecoverable pool fault",
		Op:      "Pool",
		Cause:   cause,
	}
	p.logger.Error("fatal database pool error", slog.String("error", cause.Error()))
	p.cfg.FatalHandler(err)
	return err
}
