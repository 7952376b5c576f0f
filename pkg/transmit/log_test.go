package transmit

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/itohio/fanguard/pkg/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// once returns rec on the first call only.
func once(rec dispatch.Record) func() (dispatch.Record, bool) {
	taken := false
	return func() (dispatch.Record, bool) {
		if taken {
			return dispatch.Record{}, false
		}
		taken = true
		return rec, true
	}
}

func TestLog_WritesRecordsAndRedelivery(t *testing.T) {
	var out syncBuffer
	l := NewLog(slog.New(slog.NewTextHandler(&out, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	records := make(chan dispatch.Record, 2)
	records <- dispatch.Record{TimestampMs: 7}

	l.Start(ctx, records, once(dispatch.Record{Anomaly: true, TimestampMs: 3}))

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "time_stamp=7")
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-l.Done()

	s := out.String()
	assert.Contains(t, s, "time_stamp=3 anomaly=true")
	assert.Equal(t, 1, strings.Count(s, "redelivered=true"))
	assert.Less(t, strings.Index(s, "time_stamp=3"), strings.Index(s, "time_stamp=7"))
}

func TestLog_RedeliversLaterAnomalyOnce(t *testing.T) {
	var out syncBuffer
	l := NewLog(slog.New(slog.NewTextHandler(&out, nil)))
	d := dispatch.New(dispatch.NewQueue(10), l, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The first window starts the sink; let it drain before the anomaly.
	d.Publish(ctx, dispatch.Record{TimestampMs: 1000})
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "time_stamp=1000")
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	d.Publish(ctx, dispatch.Record{Anomaly: true, TimestampMs: 2000})
	for i := range 7 {
		d.Publish(ctx, dispatch.Record{TimestampMs: uint32(3000 + 1000*i)})
	}

	// Nine records plus one redelivery.
	require.Eventually(t, func() bool {
		return strings.Count(out.String(), "msg=record") == 10
	}, time.Second, 5*time.Millisecond)

	s := out.String()
	assert.True(t, d.AnomalySent())
	assert.Equal(t, 1, strings.Count(s, "redelivered=true"))
	assert.Contains(t, s, "time_stamp=2000 anomaly=true rms_x=0 rms_y=0 rms_z=0 redelivered=true")

	cancel()
	<-l.Done()
}
