package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	version = "dev"

	serverURL string
	jsonOut   bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "newsctl",
	Short:   "Operate a running news orchestrator",
	Version: version,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Trigger an ingestion run now",
	Long: `Trigger the fetch-score-dedup-store pipeline immediately, outside
its schedule. The run happens asynchronously on the server; use
"newsctl status" to watch it complete.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return triggerTask("fetch_articles")
	},
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Trigger digest generation now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return triggerTask("generate_digest")
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show scheduler and source health",
	RunE:  showStatus,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show stored article and duplicate counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON("/v1/articles/stats")
	},
}

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the most recent daily digest",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON("/v1/digests/latest")
	},
}

func init() {
	defaultURL := os.Getenv("NEWS_SERVER_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:9020"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultURL, "orchestrator base URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print raw JSON responses")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(latestCmd)
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

func triggerTask(name string) error {
	resp, err := httpClient().Post(serverURL+"/v1/admin/tasks/"+name+"/run", "application/json", nil)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		fmt.Printf("Task %s triggered.\n", name)
		return nil
	case http.StatusConflict:
		return fmt.Errorf("task %s is already running", name)
	case http.StatusNotFound:
		return fmt.Errorf("task %s is not registered on the server", name)
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected response %d: %s", resp.StatusCode, body)
	}
}

func fetchJSON(path string, out any) error {
	resp, err := httpClient().Get(serverURL + path)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("not found: %s", path)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected response %d: %s", resp.StatusCode, body)
	}
	return json.Unmarshal(body, out)
}

func printJSON(path string) error {
	var raw json.RawMessage
	if err := fetchJSON(path, &raw); err != nil {
		return err
	}
	pretty, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(pretty))
	return nil
}

type taskStatus struct {
	Name        string     `json:"name"`
	IsRunning   bool       `json:"is_running"`
	LastRun     *time.Time `json:"last_run"`
	NextRun     *time.Time `json:"next_run"`
	RunCount    int        `json:"run_count"`
	ErrorCount  int        `json:"error_count"`
	SuccessRate float64    `json:"success_rate"`
}

type schedulerStatus struct {
	IsRunning   bool         `json:"is_running"`
	TotalTasks  int          `json:"total_tasks"`
	Tasks       []taskStatus `json:"tasks"`
	NextTaskRun *time.Time   `json:"next_task_run"`
}

func showStatus(cmd *cobra.Command, args []string) error {
	if jsonOut {
		if err := printJSON("/v1/status/scheduler"); err != nil {
			return err
		}
		return printJSON("/v1/status/sources")
	}

	var sched schedulerStatus
	if err := fetchJSON("/v1/status/scheduler", &sched); err != nil {
		return err
	}

	fmt.Printf("Scheduler running: %v (%d tasks)\n", sched.IsRunning, sched.TotalTasks)
	for _, t := range sched.Tasks {
		state := "idle"
		if t.IsRunning {
			state = "running"
		}
		next := "-"
		if t.NextRun != nil {
			next = t.NextRun.Format(time.RFC3339)
		}
		fmt.Printf("  %-20s %-8s runs=%d errors=%d success=%.0f%% next=%s\n",
			t.Name, state, t.RunCount, t.ErrorCount, t.SuccessRate*100, next)
	}

	var sources struct {
		Sources []struct {
			Source      string `json:"source"`
			ErrorCount  int    `json:"error_count"`
			CircuitOpen bool   `json:"circuit_open"`
		} `json:"sources"`
	}
	if err := fetchJSON("/v1/status/sources", &sources); err != nil {
		return err
	}

	fmt.Println("Sources:")
	for _, s := range sources.Sources {
		circuit := "closed"
		if s.CircuitOpen {
			circuit = "OPEN"
		}
		fmt.Printf("  %-15s errors=%d circuit=%s\n", s.Source, s.ErrorCount, circuit)
	}
	return nil
}
