package integration

import (
	"net/http"
	"os"
	"testing"
	"time"
)

// BaseURL points the suite at a running API process.
var BaseURL = "http://localhost:8080"

func TestMain(m *testing.M) {
	if url := os.Getenv("VAULTBACK_API_URL"); url != "" {
		BaseURL = url
	}

	os.Exit(m.Run())
}

// requireServer skips the test when no API process is reachable, so the
// suite is safe to run everywhere and only bites against a live stack.
func requireServer(t *testing.T) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(BaseURL + "/health")
	if err != nil {
		t.Skipf("API not reachable at %s: %v", BaseURL, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Skipf("API health check returned %d", resp.StatusCode)
	}
}
