package checks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RDAPAgeLookup resolves domain registration age via the public RDAP
// bootstrap service. No RDAP/WHOIS client exists anywhere in the
// example pack, so this talks plain JSON-over-HTTP with net/http
// rather than reaching for an unrelated library.
type RDAPAgeLookup struct {
	client *http.Client
}

func NewRDAPAgeLookup() *RDAPAgeLookup {
	return &RDAPAgeLookup{client: &http.Client{Timeout: 3 * time.Second}}
}

type rdapResponse struct {
	Events []struct {
		Action string `json:"eventAction"`
		Date   string `json:"eventDate"`
	} `json:"events"`
}

func (l *RDAPAgeLookup) AgeDays(ctx context.Context, domain string) (int, bool, error) {
	url := fmt.Sprintf("https://rdap.org/domain/%s", domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, false, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return 0, false, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, false, nil
	}

	var parsed rdapResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, false, nil
	}

	for _, event := range parsed.Events {
		if event.Action != "registration" {
			continue
		}
		registered, err := time.Parse(time.RFC3339, event.Date)
		if err != nil {
			return 0, false, nil
		}
		return int(time.Since(registered).Hours() / 24), true, nil
	}
	return 0, false, nil
}
