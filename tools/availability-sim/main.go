package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// Drives a local scheduling service end to end: creates a campaign, joins
// two players, posts sample weekly patterns and one blackout, then prints
// the overlap result.
func main() {
	var (
		baseURL    = flag.String("base-url", getenv("BASE_URL", "http://localhost:8080"), "service base url")
		passphrase = flag.String("passphrase", getenv("PASSPHRASE", "dragons"), "campaign join passphrase")
		startDate  = flag.String("start-date", getenv("START_DATE", nextMonday()), "campaign start date (YYYY-MM-DD)")
		days       = flag.Int("days", 14, "campaign window length in days")
	)
	flag.Parse()

	base := strings.TrimRight(*baseURL, "/")
	start, err := time.Parse("2006-01-02", *startDate)
	if err != nil {
		fatal("invalid start date: " + *startDate)
	}
	end := start.AddDate(0, 0, *days-1)

	created := postJSON(base+"/api/v1/campaigns", "", map[string]any{
		"name":          "Curse of the Sim Lich",
		"timezone":      "UTC",
		"start_date":    start.Format("2006-01-02"),
		"end_date":      end.Format("2006-01-02"),
		"earliest_time": "17:00",
		"latest_time":   "23:00",
		"passphrase":    *passphrase,
		"gm_name":       "gm",
	})
	campaignID := created["campaign_id"].(string)
	gmToken := created["access_token"].(string)
	fmt.Printf("campaign=%s\n", campaignID)

	// GM runs sessions any weekday evening.
	postJSON(base+"/api/v1/availability/patterns", gmToken, map[string]any{
		"patterns": weekdayEvenings("available"),
	})

	for _, name := range []string{"alice", "bob"} {
		joined := postJSON(base+"/api/v1/campaigns/join", "", map[string]any{
			"campaign_id":  campaignID,
			"passphrase":   *passphrase,
			"display_name": name,
		})
		token := joined["access_token"].(string)
		fmt.Printf("joined=%s participant=%s\n", name, joined["participant_id"])

		postJSON(base+"/api/v1/availability/patterns", token, map[string]any{
			"patterns": weekdayEvenings("available"),
		})
		if name == "bob" {
			// Bob is out on the first Friday.
			friday := start.AddDate(0, 0, (5-int(start.Weekday())+7)%7)
			postJSON(base+"/api/v1/availability/exceptions", token, map[string]any{
				"date":   friday.Format("2006-01-02"),
				"start":  "17:00",
				"end":    "23:00",
				"reason": "work trip",
			})
		}
	}

	overlap := getJSON(base+"/api/v1/campaigns/overlap", gmToken)
	out, _ := json.MarshalIndent(overlap, "", "  ")
	fmt.Println(string(out))
}

func weekdayEvenings(polarity string) []map[string]any {
	var patterns []map[string]any
	for weekday := 1; weekday <= 5; weekday++ {
		patterns = append(patterns, map[string]any{
			"weekday":  weekday,
			"start":    "18:00",
			"end":      "22:00",
			"polarity": polarity,
		})
	}
	return patterns
}

func postJSON(url, token string, body map[string]any) map[string]any {
	payload, err := json.Marshal(body)
	if err != nil {
		fatal(err.Error())
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		fatal(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return doJSON(req)
}

func getJSON(url, token string) map[string]any {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		fatal(err.Error())
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return doJSON(req)
}

func doJSON(req *http.Request) map[string]any {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		fatal(fmt.Sprintf("%s %s -> status=%d", req.Method, req.URL.Path, resp.StatusCode))
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fatal(err.Error())
	}
	return out
}

func nextMonday() string {
	now := time.Now().UTC()
	offset := (int(time.Monday) - int(now.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	return now.AddDate(0, 0, offset).Format("2006-01-02")
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
