// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestObserveRequest(t *testing.T) {
	before := testutil.ToFloat64(requestsTotal.WithLabelValues("search", OutcomeError))
	ObserveRequest("search", errors.New("boom"))
	after := testutil.ToFloat64(requestsTotal.WithLabelValues("search", OutcomeError))
	assert.Equal(t, before+1, after)
}

func TestObserveEventAndMalformed(t *testing.T) {
	beforeEvt := testutil.ToFloat64(researchEventsTotal.WithLabelValues("complete"))
	beforeBad := testutil.ToFloat64(malformedLinesTotal)

	ObserveEvent("complete")
	ObserveMalformedLine()

	assert.Equal(t, beforeEvt+1, testutil.ToFloat64(researchEventsTotal.WithLabelValues("complete")))
	assert.Equal(t, beforeBad+1, testutil.ToFloat64(malformedLinesTotal))
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	ObserveRequest("stats", nil)
	ObserveResearch(1500 * time.Millisecond)

	path := filepath.Join(t.TempDir(), "mosaic.prom")
	require.NoError(t, WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "mosaic_requests_total")
	assert.Contains(t, string(data), "mosaic_research_seconds_bucket")
}
