package preflight

import (
	"context"
	"fmt"
	"time"

	"cardscan/internal/api"
)

// StatusFetcher returns server status; satisfied by *apiclient.Client.
type StatusFetcher interface {
	Status(ctx context.Context) (api.Status, error)
}

// ServerProbe reports whether cardscand answered a status request.
type ServerProbe struct {
	Reachable bool
	URL       string
	Status    api.Status
	Err       error
}

// ProbeServer asks the server for its status with a short timeout.
func ProbeServer(ctx context.Context, client StatusFetcher, url string) ServerProbe {
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	status, err := client.Status(probeCtx)
	if err != nil {
		return ServerProbe{URL: url, Err: err}
	}
	return ServerProbe{Reachable: true, URL: url, Status: status}
}

// ServerDetail renders a display-friendly summary for status output.
func (p ServerProbe) ServerDetail() string {
	if !p.Reachable {
		if p.Err != nil {
			return fmt.Sprintf("Not reachable at %s (%v)", p.URL, p.Err)
		}
		return fmt.Sprintf("Not reachable at %s", p.URL)
	}
	return fmt.Sprintf("Running at %s (pid %d)", p.URL, p.Status.PID)
}
