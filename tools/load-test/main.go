package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Fires concurrent arrive/leave requests at the same employees. With per-subject
// serialization every round should yield exactly one success and the rest 409s.
func main() {
	baseURL := flag.String("url", "http://localhost:8080/api/v1/employees", "employees collection URL")
	numEmployees := flag.Int("employees", 200, "number of employees to register")
	racers := flag.Int("racers", 5, "concurrent identical requests per employee and action")
	concurrency := flag.Int("concurrency", 50, "max in-flight requests")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	fmt.Printf("Registering %d employees at %s\n", *numEmployees, *baseURL)
	ids := make([]string, 0, *numEmployees)
	for i := 0; i < *numEmployees; i++ {
		id, err := register(client, *baseURL, i)
		if err != nil {
			fmt.Printf("Registration failed: %v\n", err)
			return
		}
		ids = append(ids, id)
	}

	var (
		wg        sync.WaitGroup
		sem       = make(chan struct{}, *concurrency)
		success   int64
		conflicts int64
		failures  int64
	)

	startTime := time.Now()
	for _, action := range []string{"entrada", "saida"} {
		for _, id := range ids {
			payload, _ := json.Marshal(map[string]string{"id": id, "action": action})
			for j := 0; j < *racers; j++ {
				wg.Add(1)
				sem <- struct{}{}
				go func() {
					defer wg.Done()
					defer func() { <-sem }()

					req, _ := http.NewRequest(http.MethodPut, *baseURL, bytes.NewReader(payload))
					req.Header.Set("Content-Type", "application/json")
					resp, err := client.Do(req)
					if err != nil {
						atomic.AddInt64(&failures, 1)
						return
					}
					resp.Body.Close()

					switch {
					case resp.StatusCode == http.StatusOK:
						atomic.AddInt64(&success, 1)
					case resp.StatusCode == http.StatusConflict:
						atomic.AddInt64(&conflicts, 1)
					default:
						atomic.AddInt64(&failures, 1)
					}
				}()
			}
		}
		// Every arrive must land before the leaves start.
		wg.Wait()
	}
	duration := time.Since(startTime)
	total := 2 * len(ids) * *racers

	fmt.Println("\n--- Load Test Results ---")
	fmt.Printf("Total Duration: %v\n", duration)
	fmt.Printf("Total Requests: %d\n", total)
	fmt.Printf("Accepted:       %d (expected %d)\n", success, 2*len(ids))
	fmt.Printf("Conflicts:      %d\n", conflicts)
	fmt.Printf("Failed:         %d\n", failures)
	fmt.Printf("Requests/Sec:   %.2f\n", float64(total)/duration.Seconds())
}

func register(client *http.Client, url string, i int) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"name":       fmt.Sprintf("Load Test %d", i),
		"cpf":        fmt.Sprintf("%011d", i),
		"nascimento": "1990-01-01",
		"admissao":   "2024-01-01",
		"salario":    "1000",
		"numero":     fmt.Sprintf("%d", i),
		"email":      fmt.Sprintf("load-test-%d@example.com", i),
		"address":    "Load street",
		"contract":   "CLT",
		"role":       "tester",
	})
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", err
	}
	return created.ID, nil
}
