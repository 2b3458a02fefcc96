package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

func main() {
	// Configuration
	url := "http://localhost:8080/api/v1/webhooks/timesheet"
	contentType := "application/json"

	numTimesheets := 5000
	deliveriesPerTimesheet := 2 // The vendor redelivers, so every payload goes out twice
	totalRequests := numTimesheets * deliveriesPerTimesheet
	concurrency := 50 // Number of concurrent requests to avoid local port exhaustion

	fmt.Printf("Starting load test: %d timesheets (%d deliveries each) to %s with concurrency %d\n", numTimesheets, deliveriesPerTimesheet, url, concurrency)

	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency) // Semaphore to limit concurrency

	var acceptedCount int64
	var duplicateCount int64
	var failCount int64

	startUnix := time.Now().Unix()
	startTime := time.Now()

	for i := 0; i < numTimesheets; i++ {
		wg.Add(1)
		sem <- struct{}{} // Acquire token

		timesheetID := 100000 + i

		go func(id int) {
			defer wg.Done()
			defer func() { <-sem }() // Release token

			payload := []byte(fmt.Sprintf(
				`{"topic": "timesheet.insert", "data": [{"Id": %d, "Employee": %d, "IsInProgress": true, "StartTime": %d}]}`,
				id, id%500, startUnix,
			))

			for j := 0; j < deliveriesPerTimesheet; j++ {
				resp, err := http.Post(url, contentType, bytes.NewBuffer(payload))
				if err != nil {
					atomic.AddInt64(&failCount, 1)
					continue
				}

				var body struct {
					Status string `json:"status"`
				}
				if resp.StatusCode >= 200 && resp.StatusCode < 300 {
					json.NewDecoder(resp.Body).Decode(&body)
					switch body.Status {
					case "duplicate":
						atomic.AddInt64(&duplicateCount, 1)
					default:
						atomic.AddInt64(&acceptedCount, 1)
					}
				} else {
					atomic.AddInt64(&failCount, 1)
				}
				resp.Body.Close()
			}
		}(timesheetID)
	}

	wg.Wait()
	duration := time.Since(startTime)

	fmt.Println("\n--- Load Test Results ---")
	fmt.Printf("Total Duration: %v\n", duration)
	fmt.Printf("Total Requests: %d\n", totalRequests)
	fmt.Printf("Accepted:       %d\n", acceptedCount)
	fmt.Printf("Duplicates:     %d\n", duplicateCount)
	fmt.Printf("Failed:         %d\n", failCount)
	fmt.Printf("Requests/Sec:   %.2f\n", float64(totalRequests)/duration.Seconds())
}
