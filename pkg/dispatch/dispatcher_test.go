package dispatch

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/itohio/fanguard/pkg/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransmitter struct {
	starts    atomic.Int32
	records   <-chan Record
	redeliver func() (Record, bool)
}

func (f *fakeTransmitter) Start(_ context.Context, records <-chan Record, redeliver func() (Record, bool)) {
	f.starts.Add(1)
	f.records = records
	f.redeliver = redeliver
}

func TestQueue_TrySend(t *testing.T) {
	q := NewQueue(2)

	assert.True(t, q.TrySend(Record{TimestampMs: 1}))
	assert.True(t, q.TrySend(Record{TimestampMs: 2}))
	assert.False(t, q.TrySend(Record{TimestampMs: 3}), "full queue must drop")
	assert.Equal(t, uint64(1), q.Dropped())
	assert.Equal(t, 2, q.Len())

	assert.Equal(t, uint32(1), (<-q.Records()).TimestampMs)
	assert.Equal(t, uint32(2), (<-q.Records()).TimestampMs)
}

func TestRecord_JSON(t *testing.T) {
	data, err := json.Marshal(Record{Anomaly: true, TimestampMs: 42, RMS: sample.RMS{0.5, 1, 0.25}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"anomaly":true,"time_stamp":42,"rms":[0.5,1,0.25]}`, string(data))
}

func TestDispatcher_StartsTransmissionOnce(t *testing.T) {
	tx := &fakeTransmitter{}
	q := NewQueue(10)
	d := New(q, tx, nil)

	assert.False(t, d.TransmissionStarted())

	for i := range 5 {
		d.Publish(context.Background(), Record{TimestampMs: uint32(i)})
		assert.True(t, d.TransmissionStarted())
	}

	assert.Equal(t, int32(1), tx.starts.Load())
	require.NotNil(t, tx.records)

	// Records reach the consumer in publish order.
	for i := range 5 {
		assert.Equal(t, uint32(i), (<-tx.records).TimestampMs)
	}
}

func TestDispatcher_FullQueueDrops(t *testing.T) {
	tx := &fakeTransmitter{}
	d := New(NewQueue(1), tx, nil)

	assert.True(t, d.Publish(context.Background(), Record{TimestampMs: 1}))
	assert.False(t, d.Publish(context.Background(), Record{TimestampMs: 2}))
	assert.Equal(t, int32(1), tx.starts.Load())
}

func TestDispatcher_AnomalyRedeliveredAtMostOnce(t *testing.T) {
	tx := &fakeTransmitter{}
	d := New(NewQueue(100), tx, nil)
	ctx := context.Background()

	_, ok := d.TakeAnomaly()
	assert.False(t, ok, "nothing latched yet")

	d.Publish(ctx, Record{TimestampMs: 1})
	assert.False(t, d.AnomalyDetected())

	d.Publish(ctx, Record{Anomaly: true, TimestampMs: 2})
	d.Publish(ctx, Record{Anomaly: true, TimestampMs: 3})
	assert.True(t, d.AnomalyDetected())

	rec, ok := tx.redeliver()
	require.True(t, ok)
	assert.Equal(t, uint32(3), rec.TimestampMs, "most recent anomaly is redelivered")
	assert.True(t, rec.Anomaly)
	assert.True(t, d.AnomalySent())

	for i := range 10 {
		d.Publish(ctx, Record{Anomaly: i%2 == 0, TimestampMs: uint32(10 + i)})
		_, ok := d.TakeAnomaly()
		assert.False(t, ok)
	}
}

func TestDispatcher_ConcurrentTakeAnomaly(t *testing.T) {
	d := New(NewQueue(10), &fakeTransmitter{}, nil)
	d.Publish(context.Background(), Record{Anomaly: true, TimestampMs: 7})

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := d.TakeAnomaly(); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}
