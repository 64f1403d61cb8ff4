package segment

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"net/url"
	"strings"
	"time"

	"github.com/chaos-io/cutout/util"
	nhttp "github.com/chaos-io/cutout/util/http"
	"go.uber.org/zap"
)

const (
	BodyPixModel = "BodyPix"

	modelsPath  = "/v1/models"
	segmentPath = "/segment-person"
)

// BodyPix 通过 HTTP 调用外部模型服务
//
//	POST {endpoint}/v1/models                          加载模型，返回 model_id
//	POST {endpoint}/v1/models/{model_id}/segment-person 单张图片人像分割
type BodyPix struct {
	endpoint string
	timeout  time.Duration
	cli      nhttp.IClient
}

// NewBodyPix 客户端整体超时取两者较大值，加载由 Loader 的 ctx 限时，分割请求按 requestTimeout 限时
func NewBodyPix(endpoint string, loadTimeout, requestTimeout time.Duration) *BodyPix {
	return NewBodyPixWithClient(endpoint, requestTimeout,
		nhttp.NewHTTPClientWithTimeout(max(loadTimeout, requestTimeout)))
}

func NewBodyPixWithClient(endpoint string, timeout time.Duration, cli nhttp.IClient) *BodyPix {
	return &BodyPix{
		endpoint: strings.TrimRight(endpoint, "/"),
		timeout:  timeout,
		cli:      cli,
	}
}

type loadModelResp struct {
	ModelID      string `json:"model_id"`
	Architecture string `json:"architecture"`
}

func (b *BodyPix) Load(ctx context.Context, cfg ModelConfig) (Segmenter, error) {
	resp := &loadModelResp{}
	reqParam := &nhttp.RequestParam{
		RequestURI: b.endpoint + modelsPath,
		Method:     "POST",
		Header:     map[string]string{"Content-Type": "application/json"},
		Body:       cfg,
		Response:   resp,
	}
	if err := b.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}
	if resp.ModelID == "" {
		return nil, fmt.Errorf("%w: empty model id", ErrModelLoad)
	}

	util.Logger.Debug("model loaded",
		zap.String("model", BodyPixModel),
		zap.String("model_id", resp.ModelID),
		zap.String("architecture", resp.Architecture))

	return &bodyPixModel{b: b, id: resp.ModelID}, nil
}

type bodyPixModel struct {
	b  *BodyPix
	id string
}

type segmentReq struct {
	Image  string `json:"image"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Options
}

type segmentResp struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   []byte `json:"data"`
}

func (m *bodyPixModel) SegmentPerson(ctx context.Context, img image.Image, opts Options) (*Mask, error) {
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		return nil, fmt.Errorf("%w: encode image: %w", ErrSegmentation, err)
	}

	bounds := img.Bounds()
	req := segmentReq{
		Image:   base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
		Options: opts,
	}

	resp := &segmentResp{}
	reqParam := &nhttp.RequestParam{
		RequestURI: m.b.endpoint + modelsPath + "/" + url.PathEscape(m.id) + segmentPath,
		Method:     "POST",
		Header:     map[string]string{"Content-Type": "application/json"},
		Body:       req,
		Response:   resp,
		Timeout:    m.b.timeout,
	}
	if err := m.b.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSegmentation, err)
	}

	// 服务端未返回尺寸时按请求图片尺寸解释
	if resp.Width == 0 && resp.Height == 0 {
		resp.Width, resp.Height = req.Width, req.Height
	}
	if resp.Width*resp.Height != len(resp.Data) {
		return nil, fmt.Errorf("%w: mask %dx%d carries %d values",
			ErrSegmentation, resp.Width, resp.Height, len(resp.Data))
	}

	return &Mask{Width: resp.Width, Height: resp.Height, Data: resp.Data}, nil
}
