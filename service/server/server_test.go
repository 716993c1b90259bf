package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brojonat/clawsignal/service/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(scanner WalletScanner, m *metrics.Metrics) *httptest.Server {
	s := New(":0", testConfig(), scanner, m, testLogger())
	return httptest.NewServer(s.Handler())
}

func TestServer_ScanRoutes(t *testing.T) {
	scanner := &fakeScanner{report: sampleReport(testWallet)}
	ts := newTestServer(scanner, metrics.NewMetrics(prometheus.NewRegistry()))
	defer ts.Close()

	for _, path := range []string{"/scan", "/api/scan"} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + path + "?wallet=" + testWallet + "&premium=1")
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
		})
	}
	require.Len(t, scanner.calls, 2)
	assert.True(t, scanner.calls[1].premium)
}

func TestServer_Preflight(t *testing.T) {
	scanner := &fakeScanner{report: sampleReport(testWallet)}
	ts := newTestServer(scanner, nil)
	defer ts.Close()

	for _, path := range []string{"/scan", "/api/scan", "/anything"} {
		t.Run(path, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodOptions, ts.URL+path+"?wallet="+testWallet, nil)
			require.NoError(t, err)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusNoContent, resp.StatusCode)
			assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "GET, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
			assert.Equal(t, "Content-Type", resp.Header.Get("Access-Control-Allow-Headers"))
			assert.Zero(t, resp.ContentLength)
		})
	}
	assert.Empty(t, scanner.calls, "preflight never scans")
}

func TestServer_ErrorsCarryCORS(t *testing.T) {
	ts := newTestServer(&fakeScanner{}, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/scan")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(&fakeScanner{}, nil)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/scan?wallet="+testWallet, "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(&fakeScanner{}, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_MetricsEndpointOnlyWithMetrics(t *testing.T) {
	without := newTestServer(&fakeScanner{}, nil)
	defer without.Close()

	resp, err := http.Get(without.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	with := newTestServer(&fakeScanner{}, metrics.NewMetrics(prometheus.NewRegistry()))
	defer with.Close()

	resp, err = http.Get(with.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
