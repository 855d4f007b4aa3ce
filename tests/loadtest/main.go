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
	baseURL      = "http://127.0.0.1:18090"
	numWorkers   = 50
	testDuration = 10 * time.Second
	numDevices   = 200
	numDomains   = 100
)

var categories = []string{"social", "gaming", "streaming", "news", "shopping"}

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

func deviceMAC(n int) string {
	return fmt.Sprintf("aa:bb:cc:dd:%02x:%02x", n/256, n%256)
}

func domainName(n int) string {
	return fmt.Sprintf("site%d.example.com", n)
}

func main() {
	fmt.Println("=== NetGuard Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s\n", numWorkers, testDuration)
	fmt.Printf("Devices: %d | Domains: %d\n\n", numDevices, numDomains)

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

	// Phase 1: Register the device fleet
	fmt.Println("\n--- Phase 1: Registering devices (POST /devices/register) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		return doRegister(rng)
	})

	// Phase 2: Mixed admin/write load
	fmt.Println("\n--- Phase 2: Mixed load (60% writes, 40% reads) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.20:
			return doRegister(rng)
		case r < 0.35:
			return doSetLimit(rng)
		case r < 0.50:
			return doBlockSite(rng)
		case r < 0.60:
			return doSetCategory(rng)
		case r < 0.75:
			return doGetStatus(rng)
		case r < 0.90:
			return doGetDevices()
		default:
			return doGetReport(rng)
		}
	})

	// Phase 3: Read-heavy load
	fmt.Println("\n--- Phase 3: Read-heavy load (10% writes, 90% reads) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.10:
			return doSetLimit(rng)
		case r < 0.40:
			return doGetStatus(rng)
		case r < 0.60:
			return doGetDevices()
		case r < 0.80:
			return doGetReport(rng)
		default:
			return doGetBlockedSites()
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

	fmt.Printf("\n  %-28s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + repeat("-", 94))

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

		fmt.Printf("  %-28s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors, fmtDur(avg), fmtDur(p50), fmtDur(p95), fmtDur(p99))
	}

	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + repeat("-", 94))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

func doJSONPost(endpoint string, body map[string]interface{}, wantStatus int) result {
	data, _ := json.Marshal(body)
	start := time.Now()
	resp, err := httpClient.Post(baseURL+endpoint, "application/json", bytes.NewReader(data))
	lat := time.Since(start)
	if err != nil {
		return result{"POST " + endpoint, 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"POST " + endpoint, resp.StatusCode, lat, resp.StatusCode != wantStatus}
}

func doGet(endpoint, url string) result {
	start := time.Now()
	resp, err := httpClient.Get(url)
	lat := time.Since(start)
	if err != nil {
		return result{"GET " + endpoint, 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"GET " + endpoint, resp.StatusCode, lat, resp.StatusCode != 200}
}

func doRegister(rng *rand.Rand) result {
	n := rng.Intn(numDevices)
	return doJSONPost("/devices/register", map[string]interface{}{
		"mac_address": deviceMAC(n),
		"name":        fmt.Sprintf("device-%d", n),
		"type":        "laptop",
	}, 201)
}

func doSetLimit(rng *rand.Rand) result {
	return doJSONPost("/devices/limit", map[string]interface{}{
		"device_id":              deviceMAC(rng.Intn(numDevices)),
		"daily_limit_mb":         rng.Intn(2000) + 100,
		"notification_threshold": 80,
	}, 202)
}

func doBlockSite(rng *rand.Rand) result {
	return doJSONPost("/sites/block", map[string]interface{}{
		"domain": domainName(rng.Intn(numDomains)),
		"reason": "load test",
	}, 200)
}

func doSetCategory(rng *rand.Rand) result {
	return doJSONPost("/sites/category", map[string]interface{}{
		"domain":   domainName(rng.Intn(numDomains)),
		"category": categories[rng.Intn(len(categories))],
	}, 200)
}

func doGetStatus(rng *rand.Rand) result {
	url := fmt.Sprintf("%s/devices/status?d=%s", baseURL, deviceMAC(rng.Intn(numDevices)))
	return doGet("/devices/status", url)
}

func doGetDevices() result {
	return doGet("/devices/list", baseURL+"/devices/list")
}

func doGetReport(rng *rand.Rand) result {
	url := fmt.Sprintf("%s/report?d=%s&days=%d", baseURL, deviceMAC(rng.Intn(numDevices)), rng.Intn(30)+1)
	return doGet("/report", url)
}

func doGetBlockedSites() result {
	return doGet("/sites/list", baseURL+"/sites/list")
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
