// Command memcache-bench drives a Client with concurrent workers and reports
// throughput/latency, grounded on pior-memcache's cmd/memcache-bench tool
// but rewired against the Operation/Future core's Get/Set/Incr/Delete.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hlagg/memcache"
)

type operationType string

const (
	opCacheHit     operationType = "cache-hit"
	opDynamicValue operationType = "dynamic-value"
	opCacheMiss    operationType = "cache-miss"
	opIncrement    operationType = "increment"
	opDelete       operationType = "delete"
	opAll          operationType = "all"
)

type benchmarkResult struct {
	Operation    operationType
	Duration     time.Duration
	TotalOps     int64
	Successes    int64
	Failures     int64
	AvgLatency   time.Duration
	OpsPerSecond float64
	Correctness  bool
	ErrorMessage string
}

func main() {
	var (
		operation   = flag.String("operation", "all", "Operation type: cache-hit, dynamic-value, cache-miss, increment, delete, or all")
		duration    = flag.Duration("duration", 5*time.Second, "Duration to run benchmarks")
		concurrency = flag.Int("concurrency", 1, "Number of concurrent workers")
		servers     = flag.String("servers", "localhost:11211", "Comma-separated list of memcache servers")
	)
	flag.Parse()

	fmt.Printf("Memcache Benchmark Tool\n")
	fmt.Printf("=======================\n")
	fmt.Printf("Operation: %s\n", *operation)
	fmt.Printf("Duration: %v\n", *duration)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Servers: %s\n", *servers)
	fmt.Println()

	cfg := memcache.Config{
		Servers:    strings.Split(*servers, ","),
		OpQueueMax: 8192,
	}
	client, err := memcache.NewClient(cfg)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	fmt.Print("Testing connection...")
	ctx := context.Background()
	if _, err := client.Get(ctx, "test-connection-key"); err != nil {
		fmt.Printf(" failed: %v\n", err)
		fmt.Printf("Make sure memcached is running on %s\n", *servers)
		return
	}
	fmt.Println(" success!")
	fmt.Println()

	if operationType(*operation) == opAll {
		runAllOperations(client, *duration, *concurrency)
	} else {
		result := runSingleOperation(client, operationType(*operation), *duration, *concurrency)
		printResult(result)
	}
}

func runAllOperations(client *memcache.Client, duration time.Duration, concurrency int) {
	operations := []operationType{opCacheHit, opDynamicValue, opCacheMiss, opIncrement, opDelete}
	for _, op := range operations {
		fmt.Printf("\n--- Running %s benchmark ---\n", op)
		result := runSingleOperation(client, op, duration, concurrency)
		printResult(result)
		time.Sleep(500 * time.Millisecond)
	}
}

func runSingleOperation(client *memcache.Client, operation operationType, duration time.Duration, concurrency int) *benchmarkResult {
	switch operation {
	case opCacheHit:
		return runCacheHitBenchmark(client, duration, concurrency)
	case opDynamicValue:
		return runDynamicValueBenchmark(client, duration, concurrency)
	case opCacheMiss:
		return runCacheMissBenchmark(client, duration, concurrency)
	case opIncrement:
		return runIncrementBenchmark(client, duration, concurrency)
	case opDelete:
		return runDeleteBenchmark(client, duration, concurrency)
	default:
		return &benchmarkResult{Operation: operation, Correctness: false, ErrorMessage: fmt.Sprintf("Unknown operation: %s", operation)}
	}
}

// Cache-hit: 1 set then repeated gets of the same key.
func runCacheHitBenchmark(client *memcache.Client, duration time.Duration, concurrency int) *benchmarkResult {
	ctx := context.Background()
	key := "cache-hit-key"
	value := []byte("cache-hit-value")

	fmt.Printf("Setting up initial value for cache-hit test...\n")
	if err := client.Set(ctx, key, memcache.CachedData{Bytes: value}, int64(time.Hour.Seconds())); err != nil {
		return &benchmarkResult{Operation: opCacheHit, Correctness: false, ErrorMessage: fmt.Sprintf("Failed to set initial value: %v", err)}
	}

	fmt.Printf("Starting cache-hit benchmark with %d workers for %v...\n", concurrency, duration)

	result := &benchmarkResult{Operation: opCacheHit, Correctness: true}
	var totalOps, successes, failures, totalLatency int64

	startTime := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Since(startTime) < duration {
				for j := 0; j < 100; j++ {
					opStart := time.Now()
					item, err := client.Get(ctx, key)
					latency := time.Since(opStart)

					atomic.AddInt64(&totalOps, 1)
					atomic.AddInt64(&totalLatency, int64(latency))

					if err != nil || !item.Found {
						atomic.AddInt64(&failures, 1)
					} else {
						atomic.AddInt64(&successes, 1)
						if string(item.Value.Bytes) != string(value) {
							result.Correctness = false
							result.ErrorMessage = "Value mismatch"
						}
					}
				}
				time.Sleep(10 * time.Millisecond)
			}
		}()
	}
	wg.Wait()

	finish(result, startTime, totalOps, successes, failures, totalLatency)
	return result
}

// Dynamic-value: 1 set then 1 get of a freshly generated key each iteration.
func runDynamicValueBenchmark(client *memcache.Client, duration time.Duration, concurrency int) *benchmarkResult {
	ctx := context.Background()
	result := &benchmarkResult{Operation: opDynamicValue, Correctness: true}
	var totalOps, successes, failures, totalLatency int64

	startTime := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			opCount := 0
			for time.Since(startTime) < duration {
				key := fmt.Sprintf("dynamic-key-%d-%d", workerID, opCount)
				value := []byte(fmt.Sprintf("dynamic-value-%d-%d", workerID, opCount))

				opStart := time.Now()
				err := client.Set(ctx, key, memcache.CachedData{Bytes: value}, int64(time.Hour.Seconds()))
				atomic.AddInt64(&totalOps, 1)
				atomic.AddInt64(&totalLatency, int64(time.Since(opStart)))
				if err != nil {
					atomic.AddInt64(&failures, 1)
					opCount++
					continue
				}
				atomic.AddInt64(&successes, 1)

				opStart = time.Now()
				item, err := client.Get(ctx, key)
				atomic.AddInt64(&totalOps, 1)
				atomic.AddInt64(&totalLatency, int64(time.Since(opStart)))

				if err != nil || !item.Found {
					atomic.AddInt64(&failures, 1)
				} else {
					atomic.AddInt64(&successes, 1)
					if string(item.Value.Bytes) != string(value) {
						result.Correctness = false
						result.ErrorMessage = "Value mismatch"
					}
				}
				opCount++
			}
		}(i)
	}
	wg.Wait()

	finish(result, startTime, totalOps, successes, failures, totalLatency)
	return result
}

// Cache-miss: 1 get on a key that was never set.
func runCacheMissBenchmark(client *memcache.Client, duration time.Duration, concurrency int) *benchmarkResult {
	ctx := context.Background()
	result := &benchmarkResult{Operation: opCacheMiss, Correctness: true}
	var totalOps, successes, failures, totalLatency int64

	startTime := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			opCount := 0
			for time.Since(startTime) < duration {
				key := fmt.Sprintf("nonexistent-key-%d-%d", workerID, opCount)

				opStart := time.Now()
				item, err := client.Get(ctx, key)
				atomic.AddInt64(&totalOps, 1)
				atomic.AddInt64(&totalLatency, int64(time.Since(opStart)))

				if err != nil {
					atomic.AddInt64(&failures, 1)
				} else if !item.Found {
					atomic.AddInt64(&successes, 1)
				} else {
					atomic.AddInt64(&failures, 1)
					result.Correctness = false
					result.ErrorMessage = "Expected cache miss but got value"
				}
				opCount++
			}
		}(i)
	}
	wg.Wait()

	finish(result, startTime, totalOps, successes, failures, totalLatency)
	return result
}

// Increment: repeated Incr then 1 get to confirm the counter still parses.
func runIncrementBenchmark(client *memcache.Client, duration time.Duration, concurrency int) *benchmarkResult {
	ctx := context.Background()
	key := "increment-key"

	if err := client.Set(ctx, key, memcache.CachedData{Bytes: []byte("0")}, int64(time.Hour.Seconds())); err != nil {
		return &benchmarkResult{Operation: opIncrement, Correctness: false, ErrorMessage: fmt.Sprintf("Failed to initialize counter: %v", err)}
	}

	result := &benchmarkResult{Operation: opIncrement, Correctness: true}
	var totalOps, successes, failures, totalLatency int64

	startTime := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Since(startTime) < duration {
				for j := 0; j < 100; j++ {
					opStart := time.Now()
					_, err := client.Incr(ctx, key, 1)
					atomic.AddInt64(&totalOps, 1)
					atomic.AddInt64(&totalLatency, int64(time.Since(opStart)))
					if err != nil {
						atomic.AddInt64(&failures, 1)
					} else {
						atomic.AddInt64(&successes, 1)
					}
				}

				opStart := time.Now()
				item, err := client.Get(ctx, key)
				atomic.AddInt64(&totalOps, 1)
				atomic.AddInt64(&totalLatency, int64(time.Since(opStart)))
				if err != nil || !item.Found {
					atomic.AddInt64(&failures, 1)
				} else {
					atomic.AddInt64(&successes, 1)
				}
			}
		}()
	}
	wg.Wait()

	finish(result, startTime, totalOps, successes, failures, totalLatency)
	return result
}

// Delete: 1 set then 1 delete of a freshly generated key each iteration.
func runDeleteBenchmark(client *memcache.Client, duration time.Duration, concurrency int) *benchmarkResult {
	ctx := context.Background()
	result := &benchmarkResult{Operation: opDelete, Correctness: true}
	var totalOps, successes, failures, totalLatency int64

	startTime := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			opCount := 0
			for time.Since(startTime) < duration {
				key := fmt.Sprintf("delete-key-%d-%d", workerID, opCount)
				value := []byte(fmt.Sprintf("delete-value-%d-%d", workerID, opCount))

				opStart := time.Now()
				err := client.Set(ctx, key, memcache.CachedData{Bytes: value}, int64(time.Hour.Seconds()))
				atomic.AddInt64(&totalOps, 1)
				atomic.AddInt64(&totalLatency, int64(time.Since(opStart)))
				if err != nil {
					atomic.AddInt64(&failures, 1)
					opCount++
					continue
				}
				atomic.AddInt64(&successes, 1)

				opStart = time.Now()
				_, err = client.Delete(ctx, key)
				atomic.AddInt64(&totalOps, 1)
				atomic.AddInt64(&totalLatency, int64(time.Since(opStart)))
				if err != nil {
					atomic.AddInt64(&failures, 1)
				} else {
					atomic.AddInt64(&successes, 1)
				}
				opCount++
			}
		}(i)
	}
	wg.Wait()

	finish(result, startTime, totalOps, successes, failures, totalLatency)
	return result
}

func finish(result *benchmarkResult, startTime time.Time, totalOps, successes, failures, totalLatency int64) {
	result.Duration = time.Since(startTime)
	result.TotalOps = totalOps
	result.Successes = successes
	result.Failures = failures
	if totalOps > 0 {
		result.AvgLatency = time.Duration(totalLatency / totalOps)
		result.OpsPerSecond = float64(totalOps) / result.Duration.Seconds()
	}
}

func printResult(result *benchmarkResult) {
	fmt.Printf("Operation: %s\n", result.Operation)
	fmt.Printf("Duration: %v\n", result.Duration)
	fmt.Printf("Total Operations: %d\n", result.TotalOps)
	fmt.Printf("Successes: %d\n", result.Successes)
	fmt.Printf("Failures: %d\n", result.Failures)
	if result.TotalOps > 0 {
		fmt.Printf("Success Rate: %.2f%%\n", float64(result.Successes)/float64(result.TotalOps)*100)
		fmt.Printf("Ops/sec: %.2f\n", result.OpsPerSecond)
		fmt.Printf("Avg Latency: %v\n", result.AvgLatency)
	}
	fmt.Printf("Correctness: %t\n", result.Correctness)
	if result.ErrorMessage != "" {
		fmt.Printf("Error: %s\n", result.ErrorMessage)
	}
	fmt.Println()
}
