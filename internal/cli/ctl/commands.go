// Package ctl provides CLI commands that talk to a running shell.
package ctl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// DefaultAPIURL is where the control API of a locally running shell listens.
const DefaultAPIURL = "http://127.0.0.1:46124"

// APIClient is a client for the shell's control API.
type APIClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewAPIClient creates a new API client.
func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// NewCommands creates the ctl command tree.
func NewCommands() *cobra.Command {
	var apiURL string
	var apiToken string

	root := &cobra.Command{
		Use:   "ctl",
		Short: "Control a running World Monitor shell",
	}

	root.PersistentFlags().StringVar(&apiURL, "api", DefaultAPIURL, "Control API URL")
	root.PersistentFlags().StringVar(&apiToken, "token", os.Getenv("WORLDMONITOR_API_TOKEN"), "Control API token")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show sidecar status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewAPIClient(apiURL, apiToken).ShowStatus()
		},
	}

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Show shell and sidecar health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewAPIClient(apiURL, apiToken).CheckHealth()
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the sidecar process",
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewAPIClient(apiURL, apiToken).RestartSidecar()
		},
	}

	// Event commands
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect recent shell events",
	}

	var eventCount int
	eventsTailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Show recent events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewAPIClient(apiURL, apiToken).TailEvents(eventCount)
		},
	}
	eventsTailCmd.Flags().IntVarP(&eventCount, "count", "n", 20, "Number of events to show")

	eventsErrorsCmd := &cobra.Command{
		Use:   "errors",
		Short: "Show error events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewAPIClient(apiURL, apiToken).ShowEventErrors()
		},
	}

	eventsClearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear event history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewAPIClient(apiURL, apiToken).ClearEvents()
		},
	}

	eventsCmd.AddCommand(eventsTailCmd, eventsErrorsCmd, eventsClearCmd)

	// Cache commands
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the persistent cache",
	}

	cacheKeysCmd := &cobra.Command{
		Use:   "keys",
		Short: "List cache keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewAPIClient(apiURL, apiToken).ListCacheKeys()
		},
	}

	cacheGetCmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Print a cache entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewAPIClient(apiURL, apiToken).GetCacheEntry(args[0])
		},
	}

	cacheDeleteCmd := &cobra.Command{
		Use:   "delete [key]",
		Short: "Delete a cache entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewAPIClient(apiURL, apiToken).DeleteCacheEntry(args[0])
		},
	}

	cacheCmd.AddCommand(cacheKeysCmd, cacheGetCmd, cacheDeleteCmd)

	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Open the log folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewAPIClient(apiURL, apiToken).OpenLogs()
		},
	}

	openCmd := &cobra.Command{
		Use:   "open [url]",
		Short: "Open an external URL through the shell",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewAPIClient(apiURL, apiToken).OpenURL(args[0])
		},
	}

	root.AddCommand(statusCmd, healthCmd, restartCmd, eventsCmd, cacheCmd, logsCmd, openCmd)
	return root
}

func (c *APIClient) doRequest(method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}

	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.Client.Do(req)
}

func (c *APIClient) getJSON(path string, v interface{}) error {
	resp, err := c.doRequest("GET", path, nil)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *APIClient) postExpectOK(path, action string, body io.Reader) error {
	resp, err := c.doRequest("POST", path, body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s failed: %s - %s", action, resp.Status, string(b))
	}
	return nil
}

// ShowStatus shows the sidecar status of a running shell.
func (c *APIClient) ShowStatus() error {
	var status map[string]interface{}
	if err := c.getJSON("/api/v1/sidecar/", &status); err != nil {
		return err
	}

	fmt.Printf("Running: %v\n", status["running"])
	if pid, ok := status["pid"].(float64); ok {
		fmt.Printf("PID: %.0f\n", pid)
	}
	if runID, ok := status["run_id"].(string); ok && runID != "" {
		fmt.Printf("Run: %v\n", runID)
	}
	if started, ok := status["started_at"].(string); ok && started != "" {
		fmt.Printf("Started: %v\n", started)
	}
	if restarts, ok := status["restarts"].(float64); ok {
		fmt.Printf("Restarts: %.0f\n", restarts)
	}
	if lastExit, ok := status["last_exit"].(string); ok && lastExit != "" {
		fmt.Printf("Last exit: %v\n", lastExit)
	}

	return nil
}

// CheckHealth shows the shell health summary.
func (c *APIClient) CheckHealth() error {
	var health map[string]interface{}
	if err := c.getJSON("/api/v1/health", &health); err != nil {
		return err
	}

	fmt.Printf("Health: %v\n", health["status"])
	if sc, ok := health["sidecar"].(map[string]interface{}); ok {
		fmt.Printf("Sidecar healthy: %v\n", sc["healthy"])
	}
	return nil
}

// RestartSidecar asks the shell to restart its sidecar.
func (c *APIClient) RestartSidecar() error {
	if err := c.postExpectOK("/api/v1/sidecar/restart", "restart", nil); err != nil {
		return err
	}
	fmt.Println("Sidecar restarted")
	return nil
}

// TailEvents prints the most recent events.
func (c *APIClient) TailEvents(count int) error {
	var entries []map[string]interface{}
	if err := c.getJSON("/api/v1/events/last/"+strconv.Itoa(count), &entries); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTYPE\tMESSAGE")

	for _, e := range entries {
		timestamp := ""
		if t, ok := e["timestamp"].(string); ok {
			if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
				timestamp = parsed.Format("15:04:05")
			}
		}
		msg := e["message"]
		if errStr, ok := e["error"].(string); ok && errStr != "" {
			msg = fmt.Sprintf("%v (%s)", msg, errStr)
		}
		fmt.Fprintf(w, "%s\t%v\t%v\n", timestamp, e["type"], msg)
	}

	return w.Flush()
}

// ShowEventErrors prints error events.
func (c *APIClient) ShowEventErrors() error {
	var entries []map[string]interface{}
	if err := c.getJSON("/api/v1/events/errors", &entries); err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No errors")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%v  %v  %v\n", e["timestamp"], e["message"], e["error"])
	}
	return nil
}

// ClearEvents clears the event history.
func (c *APIClient) ClearEvents() error {
	resp, err := c.doRequest("DELETE", "/api/v1/events/", nil)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("clear failed: %s - %s", resp.Status, string(body))
	}

	fmt.Println("Events cleared")
	return nil
}

// ListCacheKeys prints the persistent cache keys.
func (c *APIClient) ListCacheKeys() error {
	var keys []string
	if err := c.getJSON("/api/v1/cache/", &keys); err != nil {
		return err
	}

	for _, key := range keys {
		fmt.Println(key)
	}
	return nil
}

// GetCacheEntry prints one cache entry as JSON.
func (c *APIClient) GetCacheEntry(key string) error {
	var value json.RawMessage
	if err := c.getJSON("/api/v1/cache/"+key, &value); err != nil {
		return err
	}

	fmt.Println(string(value))
	return nil
}

// DeleteCacheEntry removes one cache entry.
func (c *APIClient) DeleteCacheEntry(key string) error {
	resp, err := c.doRequest("DELETE", "/api/v1/cache/"+key, nil)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete failed: %s - %s", resp.Status, string(body))
	}

	fmt.Println("Deleted")
	return nil
}

// OpenLogs asks the shell to open its log folder.
func (c *APIClient) OpenLogs() error {
	if err := c.postExpectOK("/api/v1/logs/open", "open", nil); err != nil {
		return err
	}
	fmt.Println("Log folder opened")
	return nil
}

// OpenURL asks the shell to open an external URL.
func (c *APIClient) OpenURL(raw string) error {
	payload, err := json.Marshal(map[string]string{"url": raw})
	if err != nil {
		return err
	}
	if err := c.postExpectOK("/api/v1/open-url", "open", bytes.NewReader(payload)); err != nil {
		return err
	}
	fmt.Println("Opened")
	return nil
}
