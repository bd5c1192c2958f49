package middleware

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetClientIP(t *testing.T) {
	// Ingress controller at 10.0.0.0/8 and a sidecar on loopback.
	trusted := ParseNetworks([]string{"10.0.0.0/8", "127.0.0.1"})

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xRealIP    string
		trusted    []*net.IPNet
		want       string
	}{
		{
			name:       "direct push",
			remoteAddr: "198.51.100.20:53211",
			want:       "198.51.100.20",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "198.51.100.20",
			want:       "198.51.100.20",
		},
		{
			name:       "headers ignored without trusted proxies",
			remoteAddr: "198.51.100.20:53211",
			xff:        "203.0.113.9",
			xRealIP:    "203.0.113.9",
			want:       "198.51.100.20",
		},
		{
			name:       "headers ignored from untrusted peer",
			remoteAddr: "198.51.100.20:53211",
			xff:        "203.0.113.9",
			trusted:    trusted,
			want:       "198.51.100.20",
		},
		{
			name:       "single hop through ingress",
			remoteAddr: "10.4.0.7:443",
			xff:        "203.0.113.9",
			trusted:    trusted,
			want:       "203.0.113.9",
		},
		{
			name:       "trusted hops are skipped from the right",
			remoteAddr: "127.0.0.1:8080",
			xff:        "203.0.113.9, 10.4.0.7",
			trusted:    trusted,
			want:       "203.0.113.9",
		},
		{
			name:       "forged leading entry does not win",
			remoteAddr: "10.4.0.7:443",
			xff:        "192.0.2.1, 203.0.113.9",
			trusted:    trusted,
			want:       "203.0.113.9",
		},
		{
			name:       "garbage hop stops the walk",
			remoteAddr: "10.4.0.7:443",
			xff:        "not-an-ip, 10.4.0.8",
			trusted:    trusted,
			want:       "10.4.0.8",
		},
		{
			name:       "X-Real-IP when X-Forwarded-For is absent",
			remoteAddr: "10.4.0.7:443",
			xRealIP:    "203.0.113.9",
			trusted:    trusted,
			want:       "203.0.113.9",
		},
		{
			name:       "invalid X-Real-IP falls back to peer",
			remoteAddr: "10.4.0.7:443",
			xRealIP:    "registry.example.com",
			trusted:    trusted,
			want:       "10.4.0.7",
		},
		{
			name:       "IPv6 client behind ingress",
			remoteAddr: "10.4.0.7:443",
			xff:        "2001:db8::42",
			trusted:    trusted,
			want:       "2001:db8::42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v2/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}

			assert.Equal(t, tt.want, GetClientIP(req, tt.trusted))
		})
	}
}

func TestParseNetworks(t *testing.T) {
	nets := ParseNetworks([]string{"10.0.0.0/8", "192.0.2.10", "2001:db8::1", "::1/128", "proxy.local"})
	require.Len(t, nets, 4, "unparseable entries are skipped")

	assert.Equal(t, "10.0.0.0/8", nets[0].String())
	assert.Equal(t, "192.0.2.10/32", nets[1].String())
	assert.Equal(t, "2001:db8::1/128", nets[2].String())
	assert.Equal(t, "::1/128", nets[3].String())

	assert.Empty(t, ParseNetworks(nil))
}

func TestInNetworks(t *testing.T) {
	nets := ParseNetworks([]string{"10.0.0.0/8", "192.0.2.10", "::1"})

	tests := []struct {
		ip   string
		want bool
	}{
		{ip: "10.200.1.1", want: true},
		{ip: "192.0.2.10", want: true},
		{ip: "192.0.2.11", want: false},
		{ip: "::1", want: true},
		{ip: "::ffff:10.0.0.1", want: true},
		{ip: "", want: false},
		{ip: "10.0.0.1:5000", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.want, InNetworks(tt.ip, nets))
		})
	}
	assert.False(t, InNetworks("10.0.0.1", nil))
}
