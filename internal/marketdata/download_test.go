package marketdata

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "stockperf/internal/errors"
)

func TestDownload(t *testing.T) {
	inner := newFakeProvider()
	inner.bars["MSFT"] = []Bar{
		{Date: date(2015, 1, 2), AdjClose: 40.07},
		{Date: date(2015, 1, 5), AdjClose: 39.70},
	}
	inner.bars["AAPL"] = []Bar{
		{Date: date(2015, 1, 2), AdjClose: 24.37},
		{Date: date(2015, 1, 6), AdjClose: 23.68},
	}

	frame, err := Download(context.Background(), inner, []string{"MSFT", "AAPL"}, cacheStart, cacheEnd, DownloadOptions{Workers: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT"}, frame.Columns)
	require.Equal(t, 3, frame.Len())
	assert.Equal(t, 24.37, frame.At(0, 0))
	assert.True(t, math.IsNaN(frame.At(1, 0)))
	assert.True(t, math.IsNaN(frame.At(2, 1)))
	assert.Equal(t, 1, inner.callCount("AAPL"))
	assert.Equal(t, 1, inner.callCount("MSFT"))
}

func TestDownload_Errors(t *testing.T) {
	t.Run("no tickers", func(t *testing.T) {
		_, err := Download(context.Background(), newFakeProvider(), nil, cacheStart, cacheEnd, DownloadOptions{})
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	})

	t.Run("empty history", func(t *testing.T) {
		inner := newFakeProvider()
		inner.bars["AAPL"] = aaplBars

		_, err := Download(context.Background(), inner, []string{"AAPL", "META"}, cacheStart, cacheEnd, DownloadOptions{})
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
		assert.Contains(t, err.Error(), "META")
	})

	t.Run("provider failure", func(t *testing.T) {
		boom := errors.New("timeout")
		inner := newFakeProvider()
		inner.bars["AAPL"] = aaplBars
		inner.errs["MSFT"] = boom

		_, err := Download(context.Background(), inner, []string{"AAPL", "MSFT"}, cacheStart, cacheEnd, DownloadOptions{Workers: 1})
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "download MSFT")
	})
}
