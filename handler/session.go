package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/chaos-io/cutout/matting"
	"github.com/chaos-io/cutout/model"
	"github.com/chaos-io/cutout/segment"
	"github.com/chaos-io/cutout/session"
	"github.com/chaos-io/cutout/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const imageField = "image"

// ModelInfo 模型状态，由 segment.Loader 实现
type ModelInfo interface {
	State() segment.LoaderState
}

type SessionHandler struct {
	sessions *session.Manager
	model    ModelInfo
	modelCfg segment.ModelConfig
	maxSize  int64
}

func NewSessionHandler(sessions *session.Manager, m ModelInfo, modelCfg segment.ModelConfig, maxSize int64) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		model:    m,
		modelCfg: modelCfg,
		maxSize:  maxSize,
	}
}

// Register 注册路由
func (h *SessionHandler) Register(api *gin.RouterGroup) {
	api.GET("/model", h.Model)
	api.POST("/sessions", h.Create)
	api.GET("/sessions/:id", h.Get)
	api.DELETE("/sessions/:id", h.Delete)
	api.POST("/sessions/:id/image", h.Upload)
	api.POST("/sessions/:id/toggle", h.Toggle)
	api.POST("/sessions/:id/reset", h.Reset)
	api.GET("/sessions/:id/view", h.View)
	api.GET("/sessions/:id/original", h.Original)
	api.GET("/sessions/:id/download", h.Download)
}

// Model 查询模型加载状态
func (h *SessionHandler) Model(c *gin.Context) {
	state := h.model.State()
	c.JSON(http.StatusOK, model.ModelStatus{
		State:        state.String(),
		Ready:        state == segment.LoaderReady,
		Architecture: h.modelCfg.Architecture,
		OutputStride: h.modelCfg.OutputStride,
		Multiplier:   h.modelCfg.Multiplier,
		QuantBytes:   h.modelCfg.QuantBytes,
	})
}

func (h *SessionHandler) Create(c *gin.Context) {
	snap := h.sessions.Create().Snapshot()
	c.JSON(http.StatusCreated, model.SessionResponse{Success: true, Message: "会话已创建", Data: &snap})
}

func (h *SessionHandler) Get(c *gin.Context) {
	ctrl, ok := h.lookup(c)
	if !ok {
		return
	}
	snap := ctrl.Snapshot()
	c.JSON(http.StatusOK, model.SessionResponse{Success: true, Message: "查询成功", Data: &snap})
}

func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Upload 处理单张图片上传
func (h *SessionHandler) Upload(c *gin.Context) {
	ctrl, ok := h.lookup(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxSize+1<<20)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.tooLarge(c)
			return
		}
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "请上传图片文件",
			Error:   err.Error(),
		})
		return
	}

	files := form.File[imageField]
	if len(files) != 1 {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: fmt.Sprintf("只能上传一张图片，收到 %d 个文件", len(files)),
		})
		return
	}
	file := files[0]

	if file.Size > h.maxSize {
		h.tooLarge(c)
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !matting.IsImageType(contentType) {
		c.JSON(http.StatusUnsupportedMediaType, model.ErrorResponse{
			Success: false,
			Message: "不支持的文件类型，仅支持 image/*",
		})
		return
	}

	data, err := readFile(file, h.maxSize)
	if err != nil {
		util.Logger.Error("failed to read uploaded file", zap.Error(err))
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "读取文件失败",
			Error:   err.Error(),
		})
		return
	}

	snap, err := ctrl.Drop(c.Request.Context(), session.Upload{
		Filename:    file.Filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	// 处理失败时状态回到 idle，错误只记录日志
	c.JSON(http.StatusOK, model.SessionResponse{Success: true, Message: "处理完成", Data: &snap})
}

func (h *SessionHandler) Toggle(c *gin.Context) {
	ctrl, ok := h.lookup(c)
	if !ok {
		return
	}
	snap, err := ctrl.Toggle()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.SessionResponse{Success: true, Message: "已切换", Data: &snap})
}

func (h *SessionHandler) Reset(c *gin.Context) {
	ctrl, ok := h.lookup(c)
	if !ok {
		return
	}
	snap := ctrl.Reset()
	c.JSON(http.StatusOK, model.SessionResponse{Success: true, Message: "已重置", Data: &snap})
}

// View 返回当前展示的图层
func (h *SessionHandler) View(c *gin.Context) {
	ctrl, ok := h.lookup(c)
	if !ok {
		return
	}
	layer, err := ctrl.View()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, layer.ContentType, layer.Data)
}

func (h *SessionHandler) Original(c *gin.Context) {
	ctrl, ok := h.lookup(c)
	if !ok {
		return
	}
	uri, err := ctrl.OriginalDataURI()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.OriginalResponse{Success: true, DataURI: uri})
}

// Download 下载透明背景 PNG
func (h *SessionHandler) Download(c *gin.Context) {
	ctrl, ok := h.lookup(c)
	if !ok {
		return
	}
	data, err := ctrl.Download()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", matting.DownloadName))
	c.Data(http.StatusOK, matting.PNGMime, data)
}

func (h *SessionHandler) lookup(c *gin.Context) (*session.Controller, bool) {
	ctrl, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return ctrl, true
}

func (h *SessionHandler) tooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, model.ErrorResponse{
		Success: false,
		Message: fmt.Sprintf("文件大小超过限制 (%d MB)", h.maxSize/(1024*1024)),
	})
}

func (h *SessionHandler) fail(c *gin.Context, err error) {
	status, message := http.StatusInternalServerError, "处理失败"
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		status, message = http.StatusNotFound, "会话不存在"
	case errors.Is(err, segment.ErrModelNotReady):
		status, message = http.StatusServiceUnavailable, "模型尚未就绪"
	case errors.Is(err, session.ErrSuperseded):
		status, message = http.StatusConflict, "已被新的上传取代"
	case errors.Is(err, session.ErrInvalidTransition):
		status, message = http.StatusConflict, "当前状态不支持该操作"
	}
	if status == http.StatusInternalServerError {
		util.Logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, model.ErrorResponse{Success: false, Message: message, Error: err.Error()})
}

func readFile(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return util.ReadLimited(f, limit)
}
