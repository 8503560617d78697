package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveUpstream(t *testing.T) {
	ObserveUpstream("gateway", "send_text", time.Now(), nil)
	ObserveUpstream("gateway", "send_text", time.Now(), errors.New("timeout"))

	// one series per status label
	assert.GreaterOrEqual(t, testutil.CollectAndCount(UpstreamDuration), 2)
}

func TestEnvelopesTotal(t *testing.T) {
	counter := EnvelopesTotal.WithLabelValues("skip", "from_me")
	before := testutil.ToFloat64(counter)

	counter.Inc()

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
