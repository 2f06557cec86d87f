package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"VolPulse/internal/domain/models"
	pkgch "VolPulse/pkg/clickhouse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishCall struct {
	topic string
	key   string
	value interface{}
}

type fakePublisher struct {
	calls  []publishCall
	err    error
	closed bool
}

func (p *fakePublisher) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	p.calls = append(p.calls, publishCall{topic: topic, key: string(key), value: value})
	return p.err
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

func TestKafkaAlertSinkKeysByPattern(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewKafkaAlertSink(pub, "volpulse.alerts")
	alert := models.AlertPayload{Type: models.PatternSurge, Confidence: 90}

	require.NoError(t, sink.Deliver(context.Background(), alert))
	require.Len(t, pub.calls, 1)
	assert.Equal(t, "volpulse.alerts", pub.calls[0].topic)
	assert.Equal(t, "surge", pub.calls[0].key)
	assert.Equal(t, alert, pub.calls[0].value)

	require.NoError(t, sink.Close())
	assert.True(t, pub.closed)
}

func TestKafkaAlertSinkWrapsError(t *testing.T) {
	boom := errors.New("broker down")
	sink := NewKafkaAlertSink(&fakePublisher{err: boom}, "a")
	err := sink.Deliver(context.Background(), models.AlertPayload{Type: models.PatternCrash})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "crash")
}

type fakeRows struct {
	data [][]any
	i    int
}

func (r *fakeRows) Next() bool {
	r.i++
	return r.i <= len(r.data)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.i-1]
	*dest[0].(*time.Time) = row[0].(time.Time)
	*dest[1].(*string) = row[1].(string)
	for k := 2; k < 6; k++ {
		*dest[k].(*float64) = row[k].(float64)
	}
	return nil
}

func (r *fakeRows) Err() error   { return nil }
func (r *fakeRows) Close() error { return nil }

type fakeDB struct {
	execQuery string
	execArgs  []any
	queryArgs []any
	rows      *fakeRows
	err       error
}

func (d *fakeDB) Exec(_ context.Context, q string, args ...any) error {
	d.execQuery, d.execArgs = q, args
	return d.err
}

func (d *fakeDB) Query(_ context.Context, _ string, args ...any) (pkgch.Rows, error) {
	d.queryArgs = args
	if d.err != nil {
		return nil, d.err
	}
	return d.rows, nil
}

func (d *fakeDB) Health(context.Context) error { return d.err }

func TestArchiveAppend(t *testing.T) {
	db := &fakeDB{}
	a := NewClickHouseTransitionArchive(db, "pattern_transitions", nil)
	ts := time.Unix(1_700_000_000, 0).UTC()

	err := a.Append(context.Background(), models.Transition{
		Timestamp: ts, Type: models.PatternBreakout, Confidence: 95, Trend: 5, Volatility: 3, Velocity: 5,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(db.execQuery, "INSERT INTO pattern_transitions"))
	assert.Equal(t, []any{ts, "breakout", 95.0, 5.0, 3.0, 5.0}, db.execArgs)
}

func TestArchiveLatest(t *testing.T) {
	ts := time.Unix(1_700_000_000, 0).UTC()
	db := &fakeDB{rows: &fakeRows{data: [][]any{
		{ts.Add(time.Minute), "crash", 80.0, -2.5, 1.0, -2.5},
		{ts, "surge", 90.0, 4.0, 0.0, 4.0},
	}}}
	a := NewClickHouseTransitionArchive(db, "t", nil)

	got, err := a.Latest(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []any{10}, db.queryArgs)
	require.Len(t, got, 2)
	assert.Equal(t, models.PatternCrash, got[0].Type)
	assert.Equal(t, ts.Add(time.Minute), got[0].Timestamp)
	assert.Equal(t, models.PatternSurge, got[1].Type)
	assert.Equal(t, 4.0, got[1].Trend)
}

func TestArchiveErrors(t *testing.T) {
	db := &fakeDB{err: errors.New("down")}
	a := NewClickHouseTransitionArchive(db, "t", nil)
	assert.Error(t, a.Append(context.Background(), models.Transition{}))
	_, err := a.Latest(context.Background(), 1)
	assert.Error(t, err)
	assert.Error(t, a.Health(context.Background()))
}

func TestTransitionSchema(t *testing.T) {
	stmts := TransitionSchema("pattern_transitions")
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS pattern_transitions")
	assert.Contains(t, stmts[0], "MergeTree")
}

func TestLogAlertSink(t *testing.T) {
	s := NewLogAlertSink(nil)
	assert.NoError(t, s.Deliver(context.Background(), models.AlertPayload{Type: models.PatternSteady}))
	assert.NoError(t, s.Close())
}
