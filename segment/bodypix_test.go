package segment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	nhttp "github.com/chaos-io/cutout/util/http"
	"github.com/chaos-io/cutout/util/http/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newModelServer 模拟外部模型服务：左半边背景，右半边前景
func newModelServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var cfg ModelConfig
		require.NoError(t, json.NewDecoder(r.Body).Decode(&cfg))
		assert.Equal(t, DefaultModelConfig(), cfg)

		_ = json.NewEncoder(w).Encode(map[string]string{"model_id": "bp-1", "architecture": cfg.Architecture})
	})
	mux.HandleFunc("/v1/models/bp-1/segment-person", func(w http.ResponseWriter, r *http.Request) {
		var req segmentReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultOptions(), req.Options)

		raw, err := base64.StdEncoding.DecodeString(req.Image)
		require.NoError(t, err)
		img, err := png.Decode(bytes.NewReader(raw))
		require.NoError(t, err)
		assert.Equal(t, req.Width, img.Bounds().Dx())
		assert.Equal(t, req.Height, img.Bounds().Dy())

		mask := NewMask(req.Width, req.Height)
		for y := 0; y < req.Height; y++ {
			for x := req.Width / 2; x < req.Width; x++ {
				mask.Set(x, y, true)
			}
		}
		_ = json.NewEncoder(w).Encode(segmentResp{Width: mask.Width, Height: mask.Height, Data: mask.Data})
	})
	return httptest.NewServer(mux)
}

func solid(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	return img
}

func TestBodyPix_LoadAndSegment(t *testing.T) {
	t.Parallel()

	server := newModelServer(t)
	defer server.Close()

	b := NewBodyPix(server.URL+"/", 0, 0)
	seg, err := b.Load(context.Background(), DefaultModelConfig())
	require.NoError(t, err)

	mask, err := seg.SegmentPerson(context.Background(), solid(8, 4), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 8, mask.Width)
	assert.Equal(t, 4, mask.Height)
	require.Equal(t, 32, mask.Len())
	assert.False(t, mask.Foreground(0))
	assert.True(t, mask.Foreground(7))
	assert.InDelta(t, 0.5, mask.Coverage(), 1e-9)
}

func TestBodyPix_LoadFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("weights unavailable"))
	}))
	defer server.Close()

	_, err := NewBodyPix(server.URL, 0, 0).Load(context.Background(), DefaultModelConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelLoad)
	assert.Contains(t, err.Error(), "weights unavailable")
}

func TestBodyPix_LoadEmptyModelID(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	_, err := NewBodyPix(server.URL, 0, 0).Load(context.Background(), DefaultModelConfig())
	assert.ErrorIs(t, err, ErrModelLoad)
}

func TestBodyPix_SegmentErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		resp    func(p *segmentResp)
		callErr error
		wantMsg string
	}{
		{
			name:    "transport error",
			callErr: errors.New("connection refused"),
			wantMsg: "connection refused",
		},
		{
			name: "mask size mismatch",
			resp: func(p *segmentResp) {
				p.Width, p.Height, p.Data = 4, 4, make([]byte, 3)
			},
			wantMsg: "mask 4x4 carries 3 values",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			cli := mocks.NewMockIClient(ctrl)
			cli.EXPECT().DoHTTPRequest(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, p *nhttp.RequestParam) error {
					if tt.callErr != nil {
						return tt.callErr
					}
					tt.resp(p.Response.(*segmentResp))
					return nil
				})

			model := &bodyPixModel{b: NewBodyPixWithClient("http://model", 0, cli), id: "bp-1"}
			_, err := model.SegmentPerson(context.Background(), solid(4, 4), DefaultOptions())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSegmentation)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestBodyPix_SegmentDefaultsMaskSize(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	cli := mocks.NewMockIClient(ctrl)
	cli.EXPECT().DoHTTPRequest(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, p *nhttp.RequestParam) error {
			assert.Equal(t, "http://model/v1/models/bp%2F1/segment-person", p.RequestURI)
			p.Response.(*segmentResp).Data = make([]byte, 6)
			return nil
		})

	model := &bodyPixModel{b: NewBodyPixWithClient("http://model", 0, cli), id: "bp/1"}
	mask, err := model.SegmentPerson(context.Background(), solid(3, 2), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, mask.Width)
	assert.Equal(t, 2, mask.Height)
}

// slowModelServer 加载和分割都延迟 delay 才返回
func slowModelServer(t *testing.T, delay time.Duration) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(delay)
		_ = json.NewEncoder(w).Encode(map[string]string{"model_id": "slow"})
	})
	mux.HandleFunc("/v1/models/slow/segment-person", func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(delay)
		_ = json.NewEncoder(w).Encode(segmentResp{Width: 1, Height: 1, Data: []byte{1}})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestBodyPix_LoadOutlivesRequestTimeout(t *testing.T) {
	t.Parallel()

	server := slowModelServer(t, 200*time.Millisecond)
	b := NewBodyPix(server.URL, 5*time.Second, 50*time.Millisecond)

	seg, err := b.Load(context.Background(), DefaultModelConfig())
	require.NoError(t, err)

	_, err = seg.SegmentPerson(context.Background(), solid(1, 1), DefaultOptions())
	assert.ErrorIs(t, err, ErrSegmentation)
}
