package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"os"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// settings are read from the environment once at startup.
type settings struct {
	baseURL     string
	duration    time.Duration
	warmup      time.Duration
	concurrency int
	stateID     int
}

func loadSettings() settings {
	return settings{
		baseURL:     getenv("BASE_URL", "http://localhost:3000"),
		duration:    getenvDuration("DURATION", 5*time.Second),
		warmup:      getenvDuration("WARMUP", time.Second),
		concurrency: getenvInt("CONCURRENCY", 20),
		stateID:     getenvInt("STATE_ID", 1),
	}
}

type requestFunc func(ctx context.Context, iter uint64) (*http.Request, error)

type scenario struct {
	name    string
	prepare func(ctx context.Context) error
	request requestFunc
}

// loadClient issues the requests of every scenario against one base URL.
type loadClient struct {
	cfg    settings
	http   *http.Client
	runID  int64
	seq    atomic.Uint64
	sample string // Location of the district created by ensureDistrict
}

func main() {
	cfg := loadSettings()
	if os.Getenv("RESET_DB") == "1" {
		if err := resetDB(); err != nil {
			fmt.Printf("reset db failed: %v\n", err)
		} else {
			fmt.Println("DB reset done")
		}
	}

	lc := &loadClient{
		cfg:   cfg,
		runID: time.Now().UnixNano(),
		http: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        cfg.concurrency * 4,
				MaxIdleConnsPerHost: cfg.concurrency * 4,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}

	for _, sc := range lc.scenarios() {
		fmt.Printf("\n=== Scenario: %s ===\n", sc.name)
		if sc.prepare != nil {
			if err := sc.prepare(context.Background()); err != nil {
				fmt.Printf("prepare failed: %v\n", err)
				continue
			}
		}
		lc.run(sc).report(os.Stdout, cfg)
	}
}

func (lc *loadClient) scenarios() []scenario {
	return []scenario{
		{name: "health", request: lc.get("/health")},
		{name: "states_list", request: lc.get("/states/")},
		{name: "state_stats", request: lc.get(fmt.Sprintf("/states/%d/stats/", lc.cfg.stateID))},
		{name: "district_create", request: lc.createDistrict},
		{name: "district_get", prepare: lc.ensureDistrict, request: lc.getSample},
		{name: "mixed", prepare: lc.ensureDistrict, request: lc.mixed},
	}
}

// run drives sc with cfg.concurrency workers, discarding the warmup window.
func (lc *loadClient) run(sc scenario) *recorder {
	if lc.cfg.warmup > 0 {
		fmt.Printf("Warmup for %s...\n", lc.cfg.warmup)
		lc.drive(sc.request, lc.cfg.warmup, newRecorder())
	}
	rec := newRecorder()
	rec.elapsed = lc.drive(sc.request, lc.cfg.duration, rec)
	return rec
}

func (lc *loadClient) drive(request requestFunc, d time.Duration, rec *recorder) time.Duration {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	var (
		wg   sync.WaitGroup
		iter atomic.Uint64
	)
	start := time.Now()
	for range lc.cfg.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				req, err := request(ctx, iter.Add(1))
				if err != nil {
					rec.observe(nil, err, 0)
					continue
				}
				began := time.Now()
				resp, err := lc.http.Do(req)
				took := time.Since(began)
				if resp != nil {
					_, _ = io.Copy(io.Discard, resp.Body)
					_ = resp.Body.Close()
				}
				if ctx.Err() != nil && err != nil {
					return
				}
				rec.observe(resp, err, took)
			}
		}()
	}
	wg.Wait()
	return time.Since(start)
}

func (lc *loadClient) get(path string) requestFunc {
	url := lc.cfg.baseURL + path
	return func(ctx context.Context, _ uint64) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	}
}

func (lc *loadClient) getSample(ctx context.Context, iter uint64) (*http.Request, error) {
	return lc.get(lc.sample)(ctx, iter)
}

func (lc *loadClient) createDistrict(ctx context.Context, _ uint64) (*http.Request, error) {
	body := fmt.Sprintf(
		`{"districtName":"load-%d-%d","stateId":%d,"cases":100,"cured":80,"active":15,"deaths":5}`,
		lc.runID, lc.seq.Add(1), lc.cfg.stateID,
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, lc.cfg.baseURL+"/districts/", bytes.NewBufferString(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// mixed reads three times for every write.
func (lc *loadClient) mixed(ctx context.Context, iter uint64) (*http.Request, error) {
	switch iter % 4 {
	case 0:
		return lc.get("/states/")(ctx, iter)
	case 1:
		return lc.get(fmt.Sprintf("/states/%d/stats/", lc.cfg.stateID))(ctx, iter)
	case 2:
		return lc.getSample(ctx, iter)
	default:
		return lc.createDistrict(ctx, iter)
	}
}

func (lc *loadClient) ensureDistrict(ctx context.Context) error {
	if lc.sample != "" {
		return nil
	}
	req, err := lc.createDistrict(ctx, 0)
	if err != nil {
		return err
	}
	resp, err := lc.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("create district: status %d", resp.StatusCode)
	}
	if lc.sample = resp.Header.Get("Location"); lc.sample == "" {
		return errors.New("create district: missing Location header")
	}
	return nil
}

// recorder aggregates the outcome of every request of one scenario run.
type recorder struct {
	mu        sync.Mutex
	latencies []time.Duration
	statuses  map[int]int
	failures  map[string]int
	elapsed   time.Duration
}

func newRecorder() *recorder {
	return &recorder{statuses: make(map[int]int), failures: make(map[string]int)}
}

func (r *recorder) observe(resp *http.Response, err error, took time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if resp != nil {
		r.statuses[resp.StatusCode]++
		r.latencies = append(r.latencies, took)
	}
	if kind, failed := failureKind(resp, err); failed {
		r.failures[kind]++
	}
}

func (r *recorder) report(w io.Writer, cfg settings) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var total, failed int
	for _, n := range r.statuses {
		total += n
	}
	for _, n := range r.failures {
		failed += n
	}
	slices.Sort(r.latencies)

	fmt.Fprintf(w, "Duration: %s, Concurrency: %d\n", r.elapsed.Round(time.Millisecond), cfg.concurrency)
	fmt.Fprintf(w, "Total requests: %d\n", total)
	fmt.Fprintf(w, "Errors/5xx: %d\n", failed)
	fmt.Fprintf(w, "RPS: %.2f\n", float64(total)/r.elapsed.Seconds())
	if len(r.latencies) > 0 {
		fmt.Fprintf(w, "Latency: min=%s, max=%s, p50=%s, p95=%s, p99=%s\n",
			r.latencies[0], r.latencies[len(r.latencies)-1],
			quantile(r.latencies, 50), quantile(r.latencies, 95), quantile(r.latencies, 99))
	}
	if len(r.statuses) > 0 {
		fmt.Fprintln(w, "Status codes:")
		for _, code := range slices.Sorted(maps.Keys(r.statuses)) {
			fmt.Fprintf(w, "  %d: %d\n", code, r.statuses[code])
		}
	}
	if len(r.failures) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, kind := range slices.Sorted(maps.Keys(r.failures)) {
			fmt.Fprintf(w, "  %s: %d\n", kind, r.failures[kind])
		}
	}
}

// quantile returns the nearest-rank pct-th percentile of sorted.
func quantile(sorted []time.Duration, pct int) time.Duration {
	rank := (pct*len(sorted) + 99) / 100
	return sorted[max(rank-1, 0)]
}

func failureKind(resp *http.Response, err error) (string, bool) {
	switch {
	case err == nil && resp != nil && resp.StatusCode < http.StatusInternalServerError:
		return "", false
	case err == nil && resp != nil:
		return "http_" + strconv.Itoa(resp.StatusCode), true
	case errors.Is(err, syscall.ECONNREFUSED):
		return "conn_refused", true
	case errors.Is(err, syscall.ECONNRESET):
		return "conn_reset", true
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout", true
	case err != nil:
		return err.Error(), true
	default:
		return "unknown", true
	}
}

// resetDB removes every district created by previous runs; states are
// provisioned out of band and left alone.
func resetDB() error {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return errors.New("DATABASE_URL required for RESET_DB")
	}
	db, err := sql.Open(getenv("DB_DRIVER", "sqlite3"), dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.ExecContext(context.Background(), `DELETE FROM district WHERE district_name LIKE 'load-%'`)
	return err
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if out, err := strconv.Atoi(os.Getenv(key)); err == nil && out > 0 {
		return out
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return def
}
