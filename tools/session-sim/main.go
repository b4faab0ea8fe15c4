package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Simulates browser page sessions against the collector: each worker
// plays a page load as an NDJSON signal batch (page view, scrolls,
// clicks, an occasional form submit) the way the snippet's sendBeacon
// flush would deliver it.
func main() {
	targetURL := flag.String("url", "http://localhost:8080/collect", "Collector URL")
	trackingKey := flag.String("tracking-key", "key_demo", "Tracking key sent with each session")
	concurrency := flag.Int("c", 10, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the simulation")
	rps := flag.Int("rps", 200, "Page sessions per second limit")
	flag.Parse()

	log.Printf("Starting session simulation on %s", *targetURL)
	log.Printf("Concurrency: %d, Duration: %s, Sessions/s: %d", *concurrency, *duration, *rps)

	var wg sync.WaitGroup
	var successCount, errorCount atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), 100) // Allow bursts up to 100

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			client := &http.Client{
				Timeout: 5 * time.Second,
			}

			for {
				select {
				case <-ctx.Done():
					return
				default:
					limiter.Wait(ctx)

					body := buildSessionBatch(*trackingKey, workerID)
					req, err := http.NewRequestWithContext(ctx, http.MethodPost, *targetURL, body)
					if err != nil {
						continue
					}
					req.Header.Set("Content-Type", "application/x-ndjson")

					resp, err := client.Do(req)
					if err != nil {
						errorCount.Add(1)
						continue
					}

					if resp.StatusCode == http.StatusAccepted {
						successCount.Add(1)
					} else {
						errorCount.Add(1)
					}
					resp.Body.Close()
				}
			}
		}(i)
	}

	wg.Wait()

	totalSessions := successCount.Load() + errorCount.Load()
	actualRate := float64(totalSessions) / duration.Seconds()

	log.Println("Session simulation finished.")
	log.Printf("Total Sessions: %d", totalSessions)
	log.Printf("Accepted (202): %d", successCount.Load())
	log.Printf("Errors: %d", errorCount.Load())
	log.Printf("Actual Sessions/s: %.2f", actualRate)
}

func buildSessionBatch(trackingKey string, workerID int) *bytes.Buffer {
	pageLoadID := uuid.NewString()
	pageURL := fmt.Sprintf("https://demo.example/page-%d?utm_source=sim&utm_medium=load", workerID)

	var batch bytes.Buffer
	writeSignal := func(format string, args ...any) {
		batch.WriteString(fmt.Sprintf(format, args...))
		batch.WriteByte('\n')
	}

	writeSignal(`{"page_load_id":"%s","type":"page_view","tracking_key":"%s","page":{"url":"%s","title":"Simulated Page"}}`,
		pageLoadID, trackingKey, pageURL)

	for _, pct := range []int{20 + rand.IntN(30), 50 + rand.IntN(30), 80 + rand.IntN(20)} {
		writeSignal(`{"page_load_id":"%s","type":"scroll","percent":%d}`, pageLoadID, pct)
	}

	writeSignal(`{"page_load_id":"%s","type":"click","element":{"tag":"a","classes":"nav-item","text":"Pricing","href":"/pricing"}}`, pageLoadID)

	if rand.IntN(4) == 0 {
		writeSignal(`{"page_load_id":"%s","type":"field_focus","form":{"name":"signup"}}`, pageLoadID)
		writeSignal(`{"page_load_id":"%s","type":"form_submit","form":{"name":"signup"},"form_fields":{"email":"sim-%d@example.com","first_name":"Sim"}}`,
			pageLoadID, workerID)
	}

	writeSignal(`{"page_load_id":"%s","type":"visibility","hidden":true}`, pageLoadID)

	return &batch
}
