package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront-cart/internal/domain"
	"github.com/vladislavdragonenkov/storefront-cart/internal/service/httppanel"
)

const (
	statusTransportError = "transport_error"
	scenarioKey          = "scenario"
)

type loadMode string

const (
	modeAdd               loadMode = "add"
	modeAddCheckout       loadMode = "add-checkout"
	modeAddUpdateCheckout loadMode = "add-update-checkout"
)

type config struct {
	baseURL     string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	timeout     time.Duration
	mode        loadMode
	items       int
	price       string
	outputPath  string
}

// latencyStats в миллисекундах.
type latencyStats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type endpointReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Statuses  map[string]int64 `json:"statuses"`
	LatencyMs latencyStats     `json:"latency_ms"`
}

type report struct {
	StartedAt         time.Time                 `json:"started_at"`
	DurationSeconds   float64                   `json:"duration_seconds"`
	TotalScenarios    int64                     `json:"total_scenarios"`
	SuccessScenarios  int64                     `json:"success_scenarios"`
	FailedScenarios   int64                     `json:"failed_scenarios"`
	ErrorRate         float64                   `json:"error_rate"`
	RPS               float64                   `json:"rps"`
	ScenarioLatencyMs latencyStats              `json:"scenario_latency_ms"`
	Endpoints         map[string]endpointReport `json:"endpoints"`
}

type sample struct {
	latencyMs float64
	status    string
	ok        bool
}

// collector копит замеры по каждому эндпоинту панели и по сценарию целиком.
type collector struct {
	mu      sync.Mutex
	samples map[string][]sample
}

func newCollector() *collector {
	return &collector{samples: make(map[string][]sample)}
}

func (c *collector) record(endpoint string, latency time.Duration, status string, ok bool) {
	c.mu.Lock()
	c.samples[endpoint] = append(c.samples[endpoint], sample{
		latencyMs: float64(latency.Microseconds()) / 1000.0,
		status:    status,
		ok:        ok,
	})
	c.mu.Unlock()
}

func summarize(samples []sample) endpointReport {
	rep := endpointReport{Statuses: make(map[string]int64)}
	latencies := make([]float64, 0, len(samples))
	for _, s := range samples {
		rep.Calls++
		if s.ok {
			rep.Success++
		} else {
			rep.Failed++
		}
		rep.Statuses[s.status]++
		latencies = append(latencies, s.latencyMs)
	}
	rep.ErrorRate = ratio(rep.Failed, rep.Calls)
	rep.LatencyMs = buildLatencyStats(latencies)
	return rep
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		Endpoints:       make(map[string]endpointReport, len(c.samples)),
	}
	for name, samples := range c.samples {
		if name == scenarioKey {
			continue
		}
		result.Endpoints[name] = summarize(samples)
	}

	scenarios := summarize(c.samples[scenarioKey])
	result.TotalScenarios = scenarios.Calls
	result.SuccessScenarios = scenarios.Success
	result.FailedScenarios = scenarios.Failed
	result.ErrorRate = scenarios.ErrorRate
	result.ScenarioLatencyMs = scenarios.LatencyMs
	if duration > 0 {
		result.RPS = float64(result.TotalScenarios) / duration.Seconds()
	}

	return result
}

func parseConfig(args []string) (config, error) {
	var cfg config
	var modeValue, timeoutValue, durationValue string

	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.StringVar(&cfg.baseURL, "addr", "http://localhost:8080", "cart panel base URL")
	fs.IntVar(&cfg.total, "total", 400, "total scenarios to execute in count mode; in duration mode only used when explicitly set")
	fs.StringVar(&durationValue, "duration", "0s", "optional time-based run duration (e.g. 10m, 15m)")
	fs.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	fs.StringVar(&timeoutValue, "timeout", "5s", "per-request timeout")
	fs.StringVar(&modeValue, "mode", string(modeAdd), "load mode: add | add-checkout | add-update-checkout")
	fs.IntVar(&cfg.items, "items", 3, "distinct products added per scenario")
	fs.StringVar(&cfg.price, "price", "120 ج", "product price as shown on the storefront")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	timeout, err := time.ParseDuration(strings.TrimSpace(timeoutValue))
	if err != nil {
		return cfg, fmt.Errorf("parse timeout: %w", err)
	}
	cfg.timeout = timeout

	duration, err := time.ParseDuration(strings.TrimSpace(durationValue))
	if err != nil {
		return cfg, fmt.Errorf("parse duration: %w", err)
	}
	cfg.duration = duration

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode
	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")

	if cfg.baseURL == "" {
		return cfg, errors.New("addr is required")
	}
	if cfg.duration < 0 {
		return cfg, errors.New("duration must be >= 0")
	}
	if cfg.duration == 0 && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when duration is not set")
	}
	if cfg.duration > 0 && cfg.totalSet && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	}
	if cfg.concurrency <= 0 {
		return cfg, errors.New("concurrency must be > 0")
	}
	if cfg.timeout <= 0 {
		return cfg, errors.New("timeout must be > 0")
	}
	if cfg.items <= 0 {
		return cfg, errors.New("items must be > 0")
	}

	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch loadMode(strings.TrimSpace(value)) {
	case modeAdd:
		return modeAdd, nil
	case modeAddCheckout:
		return modeAddCheckout, nil
	case modeAddUpdateCheckout:
		return modeAddUpdateCheckout, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        cfg.concurrency,
			MaxIdleConnsPerHost: cfg.concurrency,
		},
	}

	result := run(client, cfg)

	printReport(os.Stdout, result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}

	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

// run раздаёт сценарии воркерам и собирает отчёт.
func run(client *http.Client, cfg config) report {
	startedAt := time.Now()
	col := newCollector()

	jobs := make(chan int, cfg.concurrency*2)
	var wg sync.WaitGroup
	for range cfg.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				_ = runScenario(client, cfg, id, col)
			}
		}()
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	return col.buildReport(startedAt, time.Since(startedAt))
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}

		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

// runScenario проходит путь покупателя в собственной сессии корзины.
func runScenario(client *http.Client, cfg config, index int, col *collector) (err error) {
	scenarioStart := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "failed"
		}
		col.record(scenarioKey, time.Since(scenarioStart), status, err == nil)
	}()

	c := &panelClient{http: client, cfg: cfg, session: uuid.NewString(), col: col}

	for i := 0; i < cfg.items; i++ {
		body := httppanel.AddItemRequest{
			ID:    fmt.Sprintf("lt-%d-%d", index, i),
			Title: fmt.Sprintf("Load item %d", i),
			Price: cfg.price,
		}
		if err := c.do("AddItem", http.MethodPost, "/cart/items", body, nil); err != nil {
			return err
		}
	}

	if cfg.mode == modeAdd {
		return nil
	}

	expected := cfg.items
	if cfg.mode == modeAddUpdateCheckout {
		path := fmt.Sprintf("/cart/items/lt-%d-0/quantity", index)
		qty := 3
		if err := c.do("UpdateQuantity", http.MethodPut, path, httppanel.UpdateQuantityRequest{Quantity: &qty}, nil); err != nil {
			return err
		}
		expected += qty - 1

		var snapshot domain.CartSnapshot
		if err := c.do("GetCart", http.MethodGet, "/cart", nil, &snapshot); err != nil {
			return err
		}
		if snapshot.TotalItemCount != expected {
			return fmt.Errorf("unexpected item count: got %d, want %d", snapshot.TotalItemCount, expected)
		}
	}

	var resp httppanel.CheckoutResponse
	if err := c.do("Checkout", http.MethodPost, "/cart/checkout", nil, &resp); err != nil {
		return err
	}
	if resp.Cart.TotalItemCount != expected {
		return fmt.Errorf("checkout sent %d items, want %d", resp.Cart.TotalItemCount, expected)
	}
	return nil
}

type panelClient struct {
	http    *http.Client
	cfg     config
	session string
	col     *collector
}

// do выполняет запрос к панели в сессии клиента и декодирует ответ в out.
func (c *panelClient) do(method, httpMethod, path string, body, out any) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, c.cfg.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set(httppanel.SessionHeader, c.session)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.col.record(method, time.Since(start), statusTransportError, false)
		return err
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	c.col.record(method, time.Since(start), strconv.Itoa(resp.StatusCode), ok)
	if !ok {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s %s: unexpected status %d", httpMethod, path, resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func writeJSONReport(path string, result report) error {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return errors.New("output path must point to a file")
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	// #nosec G304 -- путь задаётся явно флагом -output.
	file, err := os.Create(cleanPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printReport(out io.Writer, result report, cfg config) {
	_, _ = fmt.Fprintf(out, "cart panel load test: mode=%s run=%s\n", cfg.mode, runTarget(cfg))
	_, _ = fmt.Fprintf(out, "scenarios=%d ok=%d failed=%d error_rate=%.4f duration=%.2fs rps=%.2f\n",
		result.TotalScenarios, result.SuccessScenarios, result.FailedScenarios,
		result.ErrorRate, result.DurationSeconds, result.RPS)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ENDPOINT\tCALLS\tFAILED\tP50 MS\tP95 MS\tP99 MS\tMAX MS")
	writeRow := func(name string, calls, failed int64, l latencyStats) {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\t%.2f\t%.2f\t%.2f\n", name, calls, failed, l.P50, l.P95, l.P99, l.Max)
	}
	writeRow(scenarioKey, result.TotalScenarios, result.FailedScenarios, result.ScenarioLatencyMs)

	names := make([]string, 0, len(result.Endpoints))
	for name := range result.Endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ep := result.Endpoints[name]
		writeRow(name, ep.Calls, ep.Failed, ep.LatencyMs)
	}
	_ = tw.Flush()
}

func runTarget(cfg config) string {
	switch {
	case cfg.duration <= 0:
		return fmt.Sprintf("count:%d", cfg.total)
	case cfg.totalSet:
		return fmt.Sprintf("duration:%s,max-total:%d", cfg.duration, cfg.total)
	default:
		return fmt.Sprintf("duration:%s", cfg.duration)
	}
}

func buildLatencyStats(values []float64) latencyStats {
	if len(values) == 0 {
		return latencyStats{}
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	return latencyStats{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

// percentile по отсортированной выборке с линейной интерполяцией между соседями.
func percentile(sorted []float64, p float64) float64 {
	switch len(sorted) {
	case 0:
		return 0
	case 1:
		return sorted[0]
	}

	rank := p / 100.0 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}

func ratio(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total)
}
