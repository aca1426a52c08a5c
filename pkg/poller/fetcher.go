package poller

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"server/internal/domain"

	"github.com/go-resty/resty/v2"
)

// HTTPFetch builds a FetchFunc against the service's fetch endpoint,
// GET {baseURL}/content/{id}.
func HTTPFetch(client *resty.Client, baseURL, contentID string) FetchFunc {
	url := fmt.Sprintf("%s/content/%s", strings.TrimRight(baseURL, "/"), contentID)
	return func(ctx context.Context) (*domain.Content, error) {
		var record domain.Content
		resp, err := client.R().
			SetContext(ctx).
			SetResult(&record).
			Get(url)
		if err != nil {
			return nil, fmt.Errorf("fetch content %s: %w", contentID, err)
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("fetch content %s: unexpected status %d", contentID, resp.StatusCode())
		}
		return &record, nil
	}
}
