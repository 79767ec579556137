package forecasts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"weatheralert/internal/types"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Fetch(ctx context.Context, loc types.Location) (*types.ForecastSnapshot, error) {
	args := m.Called(ctx, loc)
	snap, _ := args.Get(0).(*types.ForecastSnapshot)
	return snap, args.Error(1)
}

type mockCacheStore struct {
	mock.Mock
}

func (m *mockCacheStore) Get(ctx context.Context, key string, now time.Time) ([]byte, bool, error) {
	args := m.Called(ctx, key, now)
	data, _ := args.Get(0).([]byte)
	return data, args.Bool(1), args.Error(2)
}

func (m *mockCacheStore) Put(ctx context.Context, key string, payload []byte, fetchedAt, expiresAt time.Time) error {
	args := m.Called(ctx, key, payload, fetchedAt, expiresAt)
	return args.Error(0)
}

func newCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec()
	require.NoError(t, err)
	return c
}

func TestCachedSource_HitSkipsUpstream(t *testing.T) {
	codec := newCodec(t)
	encoded, err := codec.Encode(sampleSnapshot())
	require.NoError(t, err)

	upstream := new(mockSource)
	store := new(mockCacheStore)
	store.On("Get", mock.Anything, "55.76,37.62,Europe/Moscow", fetchTime).Return(encoded, true, nil)

	src := NewCachedSource(upstream, store, codec, 30*time.Minute, types.FixedClock{T: fetchTime}, nil)
	snap, err := src.Fetch(context.Background(), testLocation())
	require.NoError(t, err)
	assert.Len(t, snap.Days, 1)
	upstream.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestCachedSource_MissFetchesAndStores(t *testing.T) {
	upstream := new(mockSource)
	store := new(mockCacheStore)
	store.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(nil, false, nil)
	upstream.On("Fetch", mock.Anything, testLocation()).Return(sampleSnapshot(), nil)
	store.On("Put", mock.Anything, "55.76,37.62,Europe/Moscow", mock.Anything, fetchTime, fetchTime.Add(30*time.Minute)).Return(nil)

	src := NewCachedSource(upstream, store, newCodec(t), 30*time.Minute, types.FixedClock{T: fetchTime}, nil)
	_, err := src.Fetch(context.Background(), testLocation())
	require.NoError(t, err)
	store.AssertExpectations(t)
	upstream.AssertExpectations(t)
}

func TestCachedSource_CacheFailuresFallThrough(t *testing.T) {
	upstream := new(mockSource)
	store := new(mockCacheStore)
	store.On("Get", mock.Anything, mock.Anything, mock.Anything).Return([]byte{0xff}, true, nil)
	upstream.On("Fetch", mock.Anything, mock.Anything).Return(sampleSnapshot(), nil)
	store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))

	src := NewCachedSource(upstream, store, newCodec(t), time.Minute, types.FixedClock{T: fetchTime}, nil)
	snap, err := src.Fetch(context.Background(), testLocation())
	require.NoError(t, err, "cache errors must not fail the fetch")
	assert.NotNil(t, snap)
}

func TestCachedSource_UpstreamErrorPropagates(t *testing.T) {
	upstream := new(mockSource)
	store := new(mockCacheStore)
	store.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(nil, false, errors.New("timeout"))
	permanent := types.NewAppError(types.ErrCodeFetchPermanent, "bad location", nil)
	upstream.On("Fetch", mock.Anything, mock.Anything).Return(nil, permanent)

	src := NewCachedSource(upstream, store, newCodec(t), time.Minute, types.FixedClock{T: fetchTime}, nil)
	_, err := src.Fetch(context.Background(), testLocation())
	assert.True(t, types.IsPermanentFetch(err))
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCachedSource_ZeroTTLBypasses(t *testing.T) {
	upstream := new(mockSource)
	store := new(mockCacheStore)
	upstream.On("Fetch", mock.Anything, mock.Anything).Return(sampleSnapshot(), nil)

	src := NewCachedSource(upstream, store, newCodec(t), 0, nil, nil)
	_, err := src.Fetch(context.Background(), testLocation())
	require.NoError(t, err)
	store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}
