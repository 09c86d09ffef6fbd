package httpx

import (
	"net/http"
	"strings"
)

// ProviderIDHeader carries the authenticated provider identity, set by the gateway.
const ProviderIDHeader = "X-Provider-Id"

func ProviderIDFromRequest(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(ProviderIDHeader))
}
