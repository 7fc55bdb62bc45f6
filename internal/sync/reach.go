package sync

import (
	"context"
	"net/http"
	"time"
)

// HTTPReach reports the server reachable when a HEAD request to url gets
// any response at all. Status codes do not matter.
func HTTPReach(url string, timeout time.Duration) ReachFunc {
	client := &http.Client{Timeout: timeout}
	return func(ctx context.Context) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return true
	}
}

// Offline is a ReachFunc that never reaches the server
func Offline(context.Context) bool { return false }
