// Command authcore-loadtest drives an Engine against Redis (or an
// in-process miniredis) and reports latency percentiles for the login,
// validate and lockout paths.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/audit"
	"github.com/MrEthical07/authcore/config"
	"github.com/MrEthical07/authcore/model"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/store/postgres"
	"github.com/MrEthical07/authcore/store/redisstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const loadPassword = "Load-Test-Passw0rd"

func main() {
	var (
		users       = flag.Int("users", 2000, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase")
		configPath  = flag.String("config", "", "optional config file; AUTHCORE_* env vars apply either way")
		verbose     = flag.Bool("v", false, "log engine warnings to stderr")
		auditDSN    = flag.String("audit-postgres", "", "append audit entries to this Postgres DSN (default AUTHCORE_POSTGRES_DSN)")
		auditJSON   = flag.String("audit-json", "", "write audit entries as JSON lines to this file")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	settings, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}
	// Audit output would dominate the measurement.
	settings.Engine.Audit.DropIfFull = true
	settings.Engine.Metrics.EnableLatencyHistograms = true

	client, cleanup, err := connect(settings.RedisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	logger := zap.NewNop()
	if *verbose {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()

	builder := authcore.New().
		WithConfig(settings.Engine).
		WithRedis(client).
		WithLogger(logger)

	if *auditDSN == "" {
		*auditDSN = settings.PostgresDSN
	}
	closeAudit, err := attachAudit(context.Background(), builder, logger, *auditDSN, *auditJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audit: %v\n", err)
		os.Exit(1)
	}
	defer closeAudit()

	engine, err := builder.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	ctx := context.Background()
	emails, err := seed(ctx, client, settings.Engine, *users)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}

	var (
		tokensMu sync.Mutex
		tokens   = make([]string, 0, *ops)
	)
	loginStats := run(*ops, *concurrency, func(r *rand.Rand, i int) error {
		email := emails[r.Intn(len(emails))]
		res, err := engine.Login(clientCtx(i), authcore.LoginRequest{Email: email, Password: loadPassword})
		if err != nil {
			return err
		}
		tokensMu.Lock()
		tokens = append(tokens, res.Token)
		tokensMu.Unlock()
		return nil
	})

	validateStats := run(*ops, *concurrency, func(r *rand.Rand, i int) error {
		if len(tokens) == 0 {
			return errors.New("no sessions")
		}
		_, err := engine.ValidateSession(clientCtx(i), tokens[r.Intn(len(tokens))])
		return err
	})

	// Wrong passwords against a small slice of accounts; most attempts end
	// at the lockout admission check.
	victims := emails[:min(len(emails), 10)]
	lockoutStats := run(*ops, *concurrency, func(r *rand.Rand, i int) error {
		_, err := engine.Login(clientCtx(i), authcore.LoginRequest{Email: victims[r.Intn(len(victims))], Password: "wrong"})
		if errors.Is(err, authcore.ErrInvalidCredentials) || errors.Is(err, authcore.ErrAccountLocked) {
			return nil
		}
		return err
	})

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("validate", validateStats)
	printStats("lockout", lockoutStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("counters: login_success=%d login_failure=%d account_locked=%d session_created=%d audit_dropped=%d\n",
		snap.Counters[authcore.MetricLoginSuccess],
		snap.Counters[authcore.MetricLoginFailure],
		snap.Counters[authcore.MetricAccountLocked],
		snap.Counters[authcore.MetricSessionCreated],
		engine.AuditDropped(),
	)
}

// attachAudit adds the optional Postgres and JSON-lines audit outputs.
// The returned func releases them and must run after the engine closes.
func attachAudit(ctx context.Context, b *authcore.Builder, logger *zap.Logger, dsn, jsonPath string) (func(), error) {
	var closers []func()
	release := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if dsn != "" {
		db, err := postgres.Open(dsn)
		if err != nil {
			return release, err
		}
		closers = append(closers, func() { _ = db.Close() })

		store := postgres.NewAuditStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			release()
			return func() {}, err
		}
		b.WithAuditStore(store, func(e audit.Entry, err error) {
			logger.Warn("audit append failed", zap.String("audit_id", e.ID), zap.Error(err))
		})
		fmt.Println("auditing to postgres")
	}

	if jsonPath != "" {
		f, err := os.Create(jsonPath)
		if err != nil {
			release()
			return func() {}, err
		}
		closers = append(closers, func() { _ = f.Close() })
		b.WithAuditWriter(f)
		fmt.Printf("auditing to %s\n", jsonPath)
	}

	return release, nil
}

func connect(addr string) (redis.UniversalClient, func(), error) {
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

// seed stores n active accounts sharing one Argon2 hash.
func seed(ctx context.Context, client redis.UniversalClient, cfg authcore.Config, n int) ([]string, error) {
	hasher, err := password.NewArgon2(cfg.PasswordHash)
	if err != nil {
		return nil, err
	}
	hash, err := hasher.Hash(loadPassword)
	if err != nil {
		return nil, err
	}

	repo := redisstore.NewUsers(client, cfg.Redis.Namespace)
	emails := make([]string, n)
	start := time.Now()
	for i := 0; i < n; i++ {
		emails[i] = fmt.Sprintf("user%d@load.test", i)
		err := repo.Put(ctx, model.User{
			ID:                fmt.Sprintf("u-%d", i),
			Email:             emails[i],
			Role:              "member",
			Active:            true,
			PasswordHash:      hash,
			PasswordCreatedAt: start,
		})
		if err != nil {
			return nil, err
		}
	}
	fmt.Printf("seeded %d users in %s\n", n, time.Since(start).Round(time.Millisecond))
	return emails, nil
}

// clientCtx spreads requests over a few addresses so risk analysis sees
// both known and new clients.
func clientCtx(i int) context.Context {
	ctx := authcore.WithClientIP(context.Background(), fmt.Sprintf("10.0.0.%d", i%4+1))
	return authcore.WithUserAgent(ctx, "authcore-loadtest/1.0")
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func run(ops, concurrency int, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, ops)
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
