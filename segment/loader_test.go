package segment_test

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/chaos-io/cutout/segment"
	"github.com/chaos-io/cutout/segment/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestLoader_Ready(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	seg := mocks.NewMockSegmenter(ctrl)
	backend := mocks.NewMockBackend(ctrl)

	release := make(chan struct{})
	backend.EXPECT().Load(gomock.Any(), segment.DefaultModelConfig()).DoAndReturn(
		func(ctx context.Context, _ segment.ModelConfig) (segment.Segmenter, error) {
			<-release
			return seg, nil
		}).Times(1)

	loader := segment.NewLoader(backend, segment.DefaultModelConfig(), time.Second)
	loader.Start(context.Background())
	loader.Start(context.Background())

	assert.Equal(t, segment.LoaderLoading, loader.State())
	assert.False(t, loader.Ready())
	_, err := loader.Segmenter()
	assert.ErrorIs(t, err, segment.ErrModelNotReady)
	_, err = loader.SegmentPerson(context.Background(), image.NewNRGBA(image.Rect(0, 0, 1, 1)), segment.DefaultOptions())
	assert.ErrorIs(t, err, segment.ErrModelNotReady)

	close(release)
	got, err := loader.Wait(context.Background())
	require.NoError(t, err)
	assert.Same(t, seg, got)
	assert.True(t, loader.Ready())
	assert.NoError(t, loader.Err())
	assert.Equal(t, "ready", loader.State().String())
}

func TestLoader_Failure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	backend.EXPECT().Load(gomock.Any(), gomock.Any()).Return(nil, errors.New("404 weights")).Times(1)

	loader := segment.NewLoader(backend, segment.DefaultModelConfig(), 0)
	require.NoError(t, loader.Run(context.Background()))

	assert.Equal(t, segment.LoaderFailed, loader.State())
	assert.ErrorIs(t, loader.Err(), segment.ErrModelLoad)
	assert.Contains(t, loader.Err().Error(), "404 weights")

	_, err := loader.Segmenter()
	assert.ErrorIs(t, err, segment.ErrModelLoad)

	// 不重试
	loader.Start(context.Background())
	<-loader.Done()
	assert.Equal(t, segment.LoaderFailed, loader.State())
}

func TestLoader_Timeout(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	backend.EXPECT().Load(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ segment.ModelConfig) (segment.Segmenter, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	loader := segment.NewLoader(backend, segment.DefaultModelConfig(), 20*time.Millisecond)
	loader.Start(context.Background())
	_, err := loader.Wait(context.Background())
	assert.ErrorIs(t, err, segment.ErrModelLoad)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type backendFunc func(ctx context.Context, cfg segment.ModelConfig) (segment.Segmenter, error)

func (f backendFunc) Load(ctx context.Context, cfg segment.ModelConfig) (segment.Segmenter, error) {
	return f(ctx, cfg)
}

func TestLoader_WaitCanceled(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	defer close(block)
	loader := segment.NewLoader(backendFunc(func(ctx context.Context, _ segment.ModelConfig) (segment.Segmenter, error) {
		<-block
		return nil, errors.New("closed")
	}), segment.DefaultModelConfig(), 0)
	loader.Start(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := loader.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoader_NilSegmenter(t *testing.T) {
	t.Parallel()

	loader := segment.NewLoader(backendFunc(func(context.Context, segment.ModelConfig) (segment.Segmenter, error) {
		return nil, nil
	}), segment.DefaultModelConfig(), 0)
	loader.Start(context.Background())

	_, err := loader.Wait(context.Background())
	assert.ErrorIs(t, err, segment.ErrModelLoad)
}

func TestMask(t *testing.T) {
	t.Parallel()

	m := segment.NewMask(3, 2)
	assert.Equal(t, 6, m.Len())
	assert.Zero(t, m.Coverage())

	m.Set(2, 1, true)
	assert.True(t, m.Foreground(5))
	assert.False(t, m.Foreground(4))
	assert.InDelta(t, 1.0/6, m.Coverage(), 1e-9)

	m.Set(2, 1, false)
	assert.False(t, m.Foreground(5))
	assert.Zero(t, (&segment.Mask{}).Coverage())
}
