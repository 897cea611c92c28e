package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const (
	baseURL      = "http://127.0.0.1:8080"
	numWorkers   = 50
	testDuration = 10 * time.Second
	numChannels  = 200
	numVideos    = 2000
	numKeywords  = 100
)

var kinds = []string{"channel", "video", "keyword"}

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

func main() {
	fmt.Println("=== SDS Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s\n", numWorkers, testDuration)
	fmt.Printf("Channels: %d | Videos: %d | Keywords: %d\n\n", numChannels, numVideos, numKeywords)

	// Wait for server
	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	// Phase 1: Seed observations
	fmt.Println("\n--- Phase 1: Seeding observations (POST /stats) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		return doPostStats(rng)
	})

	// Wait for at least one flush
	fmt.Println("\nWaiting 12s for flush...")
	time.Sleep(12 * time.Second)

	// Phase 2: Mixed read/write load
	fmt.Println("\n--- Phase 2: Mixed load (70% POST, 30% GET) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.70:
			return doPostStats(rng)
		case r < 0.85:
			return doGetDoc(rng)
		default:
			return doGetOutdated(rng)
		}
	})

	// Phase 3: Read-heavy load
	fmt.Println("\n--- Phase 3: Read-heavy load (10% POST, 90% GET) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.10:
			return doPostStats(rng)
		case r < 0.70:
			return doGetDoc(rng)
		default:
			return doGetOutdated(rng)
		}
	})
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(rng)
					totalOps.Add(1)
					results <- r
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-22s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + repeat("-", 88))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		avg := avgDuration(s.latencies)
		p50 := percentile(s.latencies, 0.50)
		p95 := percentile(s.latencies, 0.95)
		p99 := percentile(s.latencies, 0.99)

		fmt.Printf("  %-22s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors, fmtDur(avg), fmtDur(p50), fmtDur(p95), fmtDur(p99))
	}

	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + repeat("-", 88))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

func randomID(rng *rand.Rand, kind string) string {
	switch kind {
	case "channel":
		return fmt.Sprintf("ch_%d", rng.Intn(numChannels)+1)
	case "video":
		return fmt.Sprintf("vid_%d", rng.Intn(numVideos)+1)
	default:
		return fmt.Sprintf("kw_%d", rng.Intn(numKeywords)+1)
	}
}

func doPostStats(rng *rand.Rand) result {
	kind := kinds[rng.Intn(len(kinds))]
	body := map[string]interface{}{
		"kind":       kind,
		"id":         randomID(rng, kind),
		"fetched_at": time.Now().UTC().Format(time.RFC3339),
	}
	switch kind {
	case "channel":
		body["subscribers"] = rng.Intn(1_000_000)
		body["views"] = rng.Intn(100_000_000)
		body["total_videos_count"] = rng.Intn(5000) + 1
	case "video":
		body["views"] = rng.Intn(10_000_000)
		body["likes"] = rng.Intn(100_000)
		body["comments"] = rng.Intn(10_000)
	default:
		body["monthly_searches"] = rng.Intn(500_000)
		body["videos_count"] = rng.Intn(100_000)
	}

	data, _ := json.Marshal(body)
	start := time.Now()
	resp, err := httpClient.Post(baseURL+"/stats", "application/json", bytes.NewReader(data))
	lat := time.Since(start)
	if err != nil {
		return result{"POST /stats", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"POST /stats", resp.StatusCode, lat, resp.StatusCode != 201}
}

func doGetDoc(rng *rand.Rand) result {
	kind := kinds[rng.Intn(len(kinds))]
	url := fmt.Sprintf("%s/%s?id=%s", baseURL, kind, randomID(rng, kind))
	start := time.Now()
	resp, err := httpClient.Get(url)
	lat := time.Since(start)
	endpoint := "GET /" + kind
	if err != nil {
		return result{endpoint, 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	// 404 is expected until the first flush lands
	ok := resp.StatusCode == 200 || resp.StatusCode == 404
	return result{endpoint, resp.StatusCode, lat, !ok}
}

func doGetOutdated(rng *rand.Rand) result {
	kind := kinds[rng.Intn(len(kinds))]
	url := fmt.Sprintf("%s/outdated?kind=%s&policy=last&limit=100", baseURL, kind)
	start := time.Now()
	resp, err := httpClient.Get(url)
	lat := time.Since(start)
	if err != nil {
		return result{"GET /outdated", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"GET /outdated", resp.StatusCode, lat, resp.StatusCode != 200}
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
