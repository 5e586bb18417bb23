// Package main implements the planctl CLI for manual operations against
// the plannerd HTTP server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the plannerd HTTP server
	serverURL string
	// authToken is the bearer token sent on API requests
	authToken string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "planctl",
	Short: "CLI for plannerd HTTP server operations",
	Long: `planctl is a command-line interface for interacting with the plannerd server.
It provides commands for viewing the reconciled calendar, managing tasks,
and working with scheduling suggestions.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9180", "plannerd server URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("PLANNERD_TOKEN"), "bearer token for the API")
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(calendarCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(regenerateCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(denyCmd)
	rootCmd.AddCommand(pencilCmd)
	rootCmd.AddCommand(unpencilCmd)
	rootCmd.AddCommand(tasksCmd)
}

// HealthResponse matches internal/httpapi HealthResponse
type HealthResponse struct {
	Status string `json:"status"`
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check plannerd server health",
	Long: `Check the health status of the plannerd HTTP server.

Examples:
  # Check health
  planctl health

  # Check health on a different server
  planctl health --server http://localhost:9280`,
	RunE: runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect to %s: %v\n", serverURL, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	var healthResp HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Server Status: %s\n", healthResp.Status)
	fmt.Printf("Server URL: %s\n", serverURL)
	return nil
}

// apiRequest issues an authenticated request against the API and returns
// the response body for 2xx statuses.
func apiRequest(method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, serverURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to %s: %w", serverURL+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp)
	}
	return io.ReadAll(resp.Body)
}

func statusError(resp *http.Response) error {
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
	}
	return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
}

// printJSON pretty-prints a JSON response body.
func printJSON(body []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		// Not JSON; print raw.
		fmt.Println(string(body))
		return nil
	}
	fmt.Println(buf.String())
	return nil
}
