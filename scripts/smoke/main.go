package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Smoke-checks a running instance: probes the operational endpoints and
// a handful of read paths, verifying status codes and that API bodies
// are well-formed response envelopes. Exits non-zero when a critical
// probe fails, so it can gate deployments.

type probe struct {
	Method     string
	Path       string
	WantStatus int
	Envelope   bool
	Critical   bool
}

type result struct {
	Probe    probe
	Status   int
	Duration time.Duration
	Err      error
}

func defaultProbes(prefix string) []probe {
	return []probe{
		{Method: http.MethodGet, Path: "/health", WantStatus: http.StatusOK, Critical: true},
		{Method: http.MethodGet, Path: "/ready", WantStatus: http.StatusOK, Critical: true},
		{Method: http.MethodGet, Path: "/metrics", WantStatus: http.StatusOK},
		{Method: http.MethodGet, Path: prefix + "/occupancies", WantStatus: http.StatusOK, Envelope: true, Critical: true},
		{Method: http.MethodGet, Path: prefix + "/occupancies/daily", WantStatus: http.StatusOK, Envelope: true},
		{Method: http.MethodGet, Path: prefix + "/profile/last-occupancies-modifications", WantStatus: http.StatusOK, Envelope: true, Critical: true},
	}
}

func main() {
	var (
		base    string
		prefix  string
		timeout time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&prefix, "prefix", "/api/v1", "API route prefix")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	client := &http.Client{Timeout: timeout}

	var (
		results []result
		failed  int
	)
	for _, p := range defaultProbes(prefix) {
		res := runProbe(client, base, p)
		if res.Err != nil && p.Critical {
			failed++
		}
		results = append(results, res)
	}

	printReport(results)

	fmt.Printf("Critical failures: %d\n", failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func runProbe(client *http.Client, base string, p probe) result {
	res := result{Probe: p}

	url := strings.TrimRight(base, "/") + p.Path
	req, err := http.NewRequest(p.Method, url, nil)
	if err != nil {
		res.Err = err
		return res
	}

	start := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = fmt.Errorf("request failed: %w", err)
		return res
	}
	defer resp.Body.Close()

	res.Status = resp.StatusCode
	if resp.StatusCode != p.WantStatus {
		res.Err = fmt.Errorf("status %d, want %d", resp.StatusCode, p.WantStatus)
		return res
	}

	if p.Envelope {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			res.Err = fmt.Errorf("read body: %w", err)
			return res
		}
		res.Err = checkEnvelope(body)
	}

	return res
}

// checkEnvelope verifies the body is a JSON envelope carrying a data
// field and no error.
func checkEnvelope(body []byte) error {
	var envelope struct {
		Data  json.RawMessage        `json:"data"`
		Error map[string]interface{} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("malformed envelope: %w", err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("envelope carries error: %v", envelope.Error)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return fmt.Errorf("envelope has no data")
	}
	return nil
}

func printReport(results []result) {
	fmt.Println("Smoke Report")
	fmt.Println("============")
	for _, res := range results {
		status := "OK"
		if res.Err != nil {
			status = "FAIL"
		}
		fmt.Printf("[%s] %s %s\n", status, res.Probe.Method, res.Probe.Path)
		fmt.Printf("  Status: %d (%s)\n", res.Status, res.Duration)
		if res.Err != nil {
			fmt.Printf("  Error: %v | Critical: %t\n", res.Err, res.Probe.Critical)
		}
	}
}
