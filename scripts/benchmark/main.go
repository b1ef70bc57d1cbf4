package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/use-agent/streamgrab/models"
)

// CLI flags
var (
	apiURL   = flag.String("api-url", "http://localhost:5000", "streamgrab API base URL")
	apiKey   = flag.String("api-key", "", "API key for authenticated requests")
	channels = flag.String("channels", "ary-news,geo-news-live,green-entertainment,hum-tv-live", "comma-separated channel slugs")
	runs     = flag.Int("runs", 3, "forced extractions per channel")
	pause    = flag.Duration("pause", 2*time.Second, "pause between runs so the gate is free")
	output   = flag.String("output", "benchmark-results.json", "JSON output file path")
)

type runResult struct {
	Run            int              `json:"run"`
	Success        bool             `json:"success"`
	HTTPStatus     int              `json:"http_status"`
	ElapsedSeconds float64          `json:"elapsed_seconds"`
	Score          int              `json:"score,omitempty"`
	CapturedCount  int              `json:"captured_count"`
	Attempts       int              `json:"attempts,omitempty"`
	ErrorKind      models.ErrorKind `json:"error_kind,omitempty"`
	Error          string           `json:"error,omitempty"`
}

type channelResult struct {
	Channel     string      `json:"channel"`
	Runs        []runResult `json:"runs"`
	SuccessRate float64     `json:"success_rate"`
	AvgSeconds  float64     `json:"avg_seconds"`
}

type benchmarkReport struct {
	Timestamp      string          `json:"timestamp"`
	APIURL         string          `json:"api_url"`
	RunsPerChannel int             `json:"runs_per_channel"`
	Results        []channelResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== streamgrab Benchmark ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Runs:      %d per channel\n", *runs)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		APIURL:         *apiURL,
		RunsPerChannel: *runs,
	}
	client := &http.Client{Timeout: 200 * time.Second}

	for _, ch := range strings.Split(*channels, ",") {
		ch = strings.TrimSpace(ch)
		if ch == "" {
			continue
		}
		fmt.Printf("Benchmarking %s ...\n", ch)
		cr := channelResult{Channel: ch}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := extractOnce(client, ch, i)
			if rr.Success {
				fmt.Printf("OK  %.2fs  score %d\n", rr.ElapsedSeconds, rr.Score)
			} else {
				fmt.Printf("FAILED: %s %s\n", rr.ErrorKind, rr.Error)
			}
			cr.Runs = append(cr.Runs, rr)
			time.Sleep(*pause)
		}

		cr.SuccessRate, cr.AvgSeconds = summarize(cr.Runs)
		report.Results = append(report.Results, cr)
		fmt.Println()
	}

	printTable(report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func extractOnce(client *http.Client, channel string, run int) runResult {
	rr := runResult{Run: run}

	q := url.Values{"channel": {channel}, "force": {"1"}}
	req, err := http.NewRequest(http.MethodGet, *apiURL+"/api/v1/stream?"+q.Encode(), nil)
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()
	rr.HTTPStatus = resp.StatusCode

	var res models.ExtractionResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.Success = res.Success
	rr.ElapsedSeconds = res.ElapsedSeconds
	rr.Score = res.Score
	rr.CapturedCount = res.CapturedCount
	rr.Attempts = res.Attempts
	rr.ErrorKind = res.ErrorKind
	rr.Error = res.Error
	return rr
}

// summarize returns the success rate and the mean elapsed time of the
// successful runs.
func summarize(runs []runResult) (float64, float64) {
	if len(runs) == 0 {
		return 0, 0
	}
	var ok int
	var total float64
	for _, r := range runs {
		if r.Success {
			ok++
			total += r.ElapsedSeconds
		}
	}
	if ok == 0 {
		return 0, 0
	}
	return float64(ok) / float64(len(runs)), total / float64(ok)
}

func printTable(results []channelResult) {
	fmt.Println(strings.Repeat("─", 72))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Channel\tSuccess\tAvg Time\tFailures\n")
	fmt.Fprintf(w, "───────\t───────\t────────\t────────\n")

	for _, r := range results {
		avg := "-"
		if r.AvgSeconds > 0 {
			avg = fmt.Sprintf("%.2fs", r.AvgSeconds)
		}
		fmt.Fprintf(w, "%s\t%.0f%%\t%s\t%s\n", r.Channel, r.SuccessRate*100, avg, failureKinds(r.Runs))
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 72))
}

// failureKinds counts failures by kind, e.g. "PREMIUM_GATED×2".
func failureKinds(runs []runResult) string {
	counts := map[string]int{}
	var order []string
	for _, r := range runs {
		if r.Success {
			continue
		}
		k := string(r.ErrorKind)
		if k == "" {
			k = "REQUEST"
		}
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}
	if len(order) == 0 {
		return "-"
	}
	parts := make([]string, len(order))
	for i, k := range order {
		parts[i] = fmt.Sprintf("%s×%d", k, counts[k])
	}
	return strings.Join(parts, ", ")
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
