package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"

	"retractor-go/internal/parser"
	"retractor-go/internal/service"
	"retractor-go/internal/storage"
	"retractor-go/internal/types"
)

// HeaderRequestID 响应中回传的请求ID
const HeaderRequestID = "X-Request-ID"

// ResumeService 由 service.ResumeService 实现
type ResumeService interface {
	ParseText(ctx context.Context, text string) (service.Outcome, error)
	ParseUpload(ctx context.Context, filename string, r io.Reader) (service.Outcome, error)
	ParseObject(ctx context.Context, objectKey string) (service.Outcome, error)
}

// ResumeHandler 简历解析接口
type ResumeHandler struct {
	svc    ResumeService
	logger zerolog.Logger
}

// NewResumeHandler 创建简历解析接口
func NewResumeHandler(svc ResumeService, logger zerolog.Logger) *ResumeHandler {
	return &ResumeHandler{
		svc:    svc,
		logger: logger.With().Str("component", "resume_handler").Logger(),
	}
}

// ParseRequest JSON 请求体，object_key 优先于 text
type ParseRequest struct {
	Text      *string `json:"text"`
	ObjectKey string  `json:"object_key,omitempty"`
}

// ParseResponse 解析响应
type ParseResponse struct {
	RequestID string              `json:"request_id"`
	Cached    bool                `json:"cached"`
	Resume    *types.ParsedResume `json:"resume"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Error     string `json:"error"`
}

// HandleParse POST /api/v1/resume/parse
// multipart 表单字段 file，或 JSON {"text": "..."} / {"object_key": "..."}
func (h *ResumeHandler) HandleParse(c context.Context, ctx *app.RequestContext) {
	requestID := newRequestID()
	ctx.Response.Header.Set(HeaderRequestID, requestID)
	log := h.logger.With().Str("request_id", requestID).Logger()

	var (
		outcome service.Outcome
		err     error
	)
	contentType := string(ctx.ContentType())
	switch {
	case strings.HasPrefix(contentType, "multipart/form-data"):
		fileHeader, ferr := ctx.FormFile("file")
		if ferr != nil {
			ctx.JSON(consts.StatusBadRequest, ErrorResponse{RequestID: requestID, Error: "文件未找到"})
			return
		}
		file, ferr := fileHeader.Open()
		if ferr != nil {
			ctx.JSON(consts.StatusInternalServerError, ErrorResponse{RequestID: requestID, Error: "打开文件失败"})
			return
		}
		defer file.Close()
		log.Info().Str("filename", fileHeader.Filename).Int64("size", fileHeader.Size).Msg("收到简历文件")
		outcome, err = h.svc.ParseUpload(c, fileHeader.Filename, file)

	default:
		var req ParseRequest
		dec := json.NewDecoder(bytes.NewReader(ctx.Request.Body()))
		if derr := dec.Decode(&req); derr != nil {
			ctx.JSON(consts.StatusBadRequest, ErrorResponse{RequestID: requestID, Error: "请求体不是合法的JSON"})
			return
		}
		switch {
		case req.ObjectKey != "":
			log.Info().Str("object_key", req.ObjectKey).Msg("按对象键解析简历")
			outcome, err = h.svc.ParseObject(c, req.ObjectKey)
		case req.Text != nil:
			outcome, err = h.svc.ParseText(c, *req.Text)
		default:
			ctx.JSON(consts.StatusBadRequest, ErrorResponse{RequestID: requestID, Error: "需要 file、text 或 object_key"})
			return
		}
	}

	if err != nil {
		status := statusFor(err)
		if status >= consts.StatusInternalServerError {
			log.Error().Err(err).Int("status", status).Msg("简历解析失败")
		} else {
			log.Warn().Err(err).Int("status", status).Msg("简历解析请求被拒绝")
		}
		ctx.JSON(status, ErrorResponse{RequestID: requestID, Error: err.Error()})
		return
	}

	ctx.JSON(consts.StatusOK, ParseResponse{
		RequestID: requestID,
		Cached:    outcome.Cached,
		Resume:    outcome.Resume,
	})
}

// HandleHealth GET /api/v1/health
func (h *ResumeHandler) HandleHealth(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]string{"status": "ok"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUnsupportedFormat):
		return consts.StatusUnsupportedMediaType
	case errors.Is(err, service.ErrFileTooLarge):
		return consts.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrEmptyInput):
		return consts.StatusBadRequest
	case errors.Is(err, service.ErrNoObjectStore):
		return consts.StatusNotImplemented
	case errors.Is(err, storage.ErrObjectNotFound):
		return consts.StatusNotFound
	case errors.Is(err, parser.ErrReadDocument):
		return consts.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return consts.StatusGatewayTimeout
	default:
		return consts.StatusInternalServerError
	}
}

// newRequestID 使用按时间有序的UUIDv7
func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Must(uuid.NewV4()).String()
	}
	return id.String()
}
