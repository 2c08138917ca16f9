package ipchecker

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	_, err := New("10.0.0.0")
	assert.Error(t, err)

	checker, err := New("")
	require.NoError(t, err)
	assert.False(t, checker.Check(net.ParseIP("10.0.0.1")))
}

func newLoginRequest(remoteAddr string, headers map[string]string) *http.Request {
	request := httptest.NewRequest(http.MethodPost, "/api/users/login", nil)
	request.RemoteAddr = remoteAddr
	for key, value := range headers {
		request.Header.Set(key, value)
	}
	return request
}

func TestGetClientIP(t *testing.T) {
	type tTestCase struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expected   string
	}
	testCases := []tTestCase{
		{"proxy_real_ip", map[string]string{"X-Real-IP": "192.0.2.1", "X-Forwarded-For": "192.0.2.2"}, "10.0.0.5:1234", "192.0.2.1"},
		{"proxy_forwarded_for_rightmost", map[string]string{"X-Forwarded-For": "198.51.100.9, 192.0.2.2"}, "10.0.0.5:1234", "192.0.2.2"},
		{"proxy_garbage_forwarded_for", map[string]string{"X-Forwarded-For": "nonsense"}, "10.0.0.5:1234", "10.0.0.5"},
		{"proxy_without_headers", nil, "10.0.0.5:1234", "10.0.0.5"},
		{"direct_real_ip_ignored", map[string]string{"X-Real-IP": "10.1.1.1"}, "203.0.113.7:1234", "203.0.113.7"},
		{"direct_forwarded_for_ignored", map[string]string{"X-Forwarded-For": "10.2.2.2"}, "203.0.113.7:1234", "203.0.113.7"},
		{"remote_addr", nil, "203.0.113.7:1234", "203.0.113.7"},
	}

	checker, err := New("10.0.0.0/8")
	require.NoError(t, err)

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			ip, err := checker.GetClientIP(newLoginRequest(testCase.remoteAddr, testCase.headers))
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, ip.String())
		})
	}
}

func TestGetClientIPWithoutTrustedSubnetIgnoresHeaders(t *testing.T) {
	checker, err := New("")
	require.NoError(t, err)

	ip, err := checker.GetClientIP(newLoginRequest("192.0.2.1:1234", map[string]string{
		"X-Real-IP":       "10.1.1.1",
		"X-Forwarded-For": "10.2.2.2",
	}))
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.1", ip.String())
}

func TestThrottleKey(t *testing.T) {
	checker, err := New("10.0.0.0/8")
	require.NoError(t, err)

	assert.Equal(t, "", checker.ThrottleKey(newLoginRequest("10.9.9.9:5000", nil)))
	assert.Equal(t, "192.0.2.7", checker.ThrottleKey(newLoginRequest("192.0.2.7:5000", nil)))
	assert.Equal(t, "", checker.ThrottleKey(newLoginRequest("no-port", nil)))
	assert.Equal(t, "192.0.2.8", checker.ThrottleKey(newLoginRequest("10.9.9.9:5000", map[string]string{"X-Real-IP": "192.0.2.8"})))
}

func TestThrottleKeyIgnoresSpoofedHeaders(t *testing.T) {
	type tTestCase struct {
		name    string
		headers map[string]string
	}
	testCases := []tTestCase{
		{"trusted_forwarded_for", map[string]string{"X-Forwarded-For": "10.1.2.3"}},
		{"trusted_real_ip", map[string]string{"X-Real-IP": "10.1.2.3"}},
		{"rotating_forwarded_for_1", map[string]string{"X-Forwarded-For": "198.51.100.1"}},
		{"rotating_forwarded_for_2", map[string]string{"X-Forwarded-For": "198.51.100.2"}},
		{"chained_forwarded_for", map[string]string{"X-Forwarded-For": "198.51.100.3, 10.4.4.4"}},
	}

	checker, err := New("10.0.0.0/8")
	require.NoError(t, err)

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, "203.0.113.7", checker.ThrottleKey(newLoginRequest("203.0.113.7:4000", testCase.headers)))
		})
	}
}
