package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserve(t *testing.T) {
	Init(prometheus.NewRegistry())

	ObserveQuery("find_all", time.Now(), nil)
	ObserveQuery("find_all", time.Now(), errors.New("boom"))
	ObserveWrite(5, nil)
	IncRateLimited("ip")

	assert.Equal(t, 1.0, testutil.ToFloat64(influxQueries.WithLabelValues("find_all", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(influxQueries.WithLabelValues("find_all", ResultError)))
	assert.Equal(t, 5.0, testutil.ToFloat64(influxWrites.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rateLimited.WithLabelValues("ip")))
}
