package metrics

import (
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/dronedispatch/core/metrics"
	"github.com/kilianp07/dronedispatch/infra/logger"
	"github.com/kilianp07/dronedispatch/internal/testutil"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestServeExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	require.NoError(t, sink.RecordAssignment(coremetrics.AssignmentRecord{CarrierID: "DR-001"}))

	addr := freeAddr(t)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- Serve(ctx, addr, reg, logger.NopLogger{}) }()

	waitCtx, waitCancel := context.WithTimeout(ctx, testutil.MetricTimeout)
	defer waitCancel()
	require.NoError(t, testutil.WaitForMetric(waitCtx, fmt.Sprintf("http://%s/metrics", addr), `drone_assignments_total{carrier_id="DR-001"} 1`))

	cancel()
	require.NoError(t, <-errc)
}
