package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bnema/zerowrap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/hangar/internal/adapters/dto"
)

func TestNetworkAllowlist(t *testing.T) {
	// A registry reachable from the office VPN, fronted by an ingress at 10.0.0.1.
	vpn := []string{"100.64.0.0/10", "fd7a:115c:a1e0::/48"}
	ingress := []string{"10.0.0.1"}

	tests := []struct {
		name       string
		allowed    []string
		trusted    []string
		remoteAddr string
		xff        string
		wantStatus int
	}{
		{name: "no allowlist", remoteAddr: "203.0.113.50:1234", wantStatus: http.StatusOK},
		{name: "VPN client pulls", allowed: vpn, remoteAddr: "100.100.1.1:1234", wantStatus: http.StatusOK},
		{name: "VPN IPv6 client pulls", allowed: vpn, remoteAddr: "[fd7a:115c:a1e0::12]:1234", wantStatus: http.StatusOK},
		{name: "internet client rejected", allowed: vpn, remoteAddr: "203.0.113.50:1234", wantStatus: http.StatusForbidden},
		{name: "loopback health check", allowed: vpn, remoteAddr: "127.0.0.2:1234", wantStatus: http.StatusOK},
		{name: "IPv6 loopback", allowed: vpn, remoteAddr: "[::1]:1234", wantStatus: http.StatusOK},
		{
			name:       "VPN client through ingress",
			allowed:    vpn,
			trusted:    ingress,
			remoteAddr: "10.0.0.1:443",
			xff:        "100.100.1.1",
			wantStatus: http.StatusOK,
		},
		{
			name:       "internet client through ingress",
			allowed:    vpn,
			trusted:    ingress,
			remoteAddr: "10.0.0.1:443",
			xff:        "203.0.113.50",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "forged VPN address before real client",
			allowed:    vpn,
			trusted:    ingress,
			remoteAddr: "10.0.0.1:443",
			xff:        "100.100.1.1, 203.0.113.50",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "header from untrusted peer ignored",
			allowed:    vpn,
			remoteAddr: "203.0.113.50:1234",
			xff:        "100.100.1.1",
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NetworkAllowlist(ParseNetworks(tt.allowed), ParseNetworks(tt.trusted))(okHandler())

			req := httptest.NewRequest(http.MethodGet, "/v2/app/manifests/latest", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusForbidden {
				var body dto.ErrorResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, "client network not allowed", body.Error)
			}
		})
	}
}

func TestNetworkAllowlist_LogsResolvedClient(t *testing.T) {
	var buf bytes.Buffer
	handler := NetworkAllowlist(ParseNetworks([]string{"100.64.0.0/10"}), ParseNetworks([]string{"10.0.0.0/8"}))(okHandler())

	req := httptest.NewRequest(http.MethodPut, "/v2/app/blobs/uploads/", nil)
	req.RemoteAddr = "10.1.2.3:443"
	req.Header.Set("X-Forwarded-For", "203.0.113.50, 10.9.9.9")
	req = req.WithContext(zerowrap.WithCtx(context.Background(), jsonLogger(&buf)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "client outside allowed networks", lines[0]["message"])
	assert.Equal(t, "203.0.113.50", lines[0][zerowrap.FieldClientIP])
	assert.Equal(t, http.MethodPut, lines[0][zerowrap.FieldMethod])
}
