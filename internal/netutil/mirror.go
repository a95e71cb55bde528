package netutil

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"AccessDeck/internal/logger"
)

// MirrorSource is one candidate deployment of a remote service.
type MirrorSource struct {
	Name     string
	URL      string
	Priority int // lower wins on equal latency
}

type MirrorResult struct {
	Source  MirrorSource
	Latency time.Duration
	Success bool
	Status  int
	Error   error
}

// MirrorSelector probes every source and remembers the fastest reachable one.
type MirrorSelector struct {
	sources    []MirrorSource
	testPath   string
	timeout    time.Duration
	cacheDur   time.Duration
	client     *http.Client
	cachedBest *MirrorSource
	cachedAt   time.Time
	mu         sync.RWMutex
}

func NewMirrorSelector(sources []MirrorSource, testPath string, timeout, cacheDuration time.Duration) *MirrorSelector {
	return &MirrorSelector{
		sources:  sources,
		testPath: testPath,
		timeout:  timeout,
		cacheDur: cacheDuration,
		client:   &http.Client{},
	}
}

// GetBest returns the cached choice or probes again once the cache expires.
// With every probe failing it falls back to the first source.
func (m *MirrorSelector) GetBest(ctx context.Context) *MirrorSource {
	if len(m.sources) == 0 {
		return nil
	}
	m.mu.RLock()
	if m.cachedBest != nil && time.Since(m.cachedAt) < m.cacheDur {
		best := m.cachedBest
		m.mu.RUnlock()
		return best
	}
	m.mu.RUnlock()

	if len(m.sources) == 1 {
		return &m.sources[0]
	}

	var successful []MirrorResult
	for _, r := range m.TestAll(ctx) {
		if r.Success {
			successful = append(successful, r)
		}
	}
	if len(successful) == 0 {
		logger.Config.Warn().Str("fallback", m.sources[0].URL).Msg("no backend candidate reachable")
		return &m.sources[0]
	}

	sort.Slice(successful, func(i, j int) bool {
		if successful[i].Latency == successful[j].Latency {
			return successful[i].Source.Priority < successful[j].Source.Priority
		}
		return successful[i].Latency < successful[j].Latency
	})

	best := successful[0].Source
	logger.Config.Info().
		Str("backend", best.URL).
		Dur("latency", successful[0].Latency).
		Msg("selected backend")

	m.mu.Lock()
	m.cachedBest = &best
	m.cachedAt = time.Now()
	m.mu.Unlock()
	return &best
}

// TestAll probes every source concurrently. Results keep source order.
func (m *MirrorSelector) TestAll(ctx context.Context) []MirrorResult {
	results := make([]MirrorResult, len(m.sources))
	var wg sync.WaitGroup
	for i, source := range m.sources {
		wg.Add(1)
		go func(idx int, src MirrorSource) {
			defer wg.Done()
			results[idx] = m.testOne(ctx, src)
		}(i, source)
	}
	wg.Wait()
	return results
}

// testOne counts any answer below 500 as reachable; the backend has no
// dedicated health route and answers HEAD / with 404 on some deployments.
func (m *MirrorSelector) testOne(ctx context.Context, source MirrorSource) MirrorResult {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, source.URL+m.testPath, nil)
	if err != nil {
		return MirrorResult{Source: source, Error: err}
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return MirrorResult{Source: source, Error: err}
	}
	resp.Body.Close()

	return MirrorResult{
		Source:  source,
		Latency: time.Since(start),
		Success: resp.StatusCode < http.StatusInternalServerError,
		Status:  resp.StatusCode,
	}
}

func (m *MirrorSelector) InvalidateCache() {
	m.mu.Lock()
	m.cachedBest = nil
	m.mu.Unlock()
}
