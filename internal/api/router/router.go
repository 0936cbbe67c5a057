package router

import (
	"context"
	"slices"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"

	"retractor-go/internal/api/handler"
)

// HeaderAPIKey 鉴权请求头
const HeaderAPIKey = "X-API-Key"

// Options 路由选项
type Options struct {
	APIKeys      []string // 为空时不鉴权
	RequestLimit int      // 同时处理的解析请求数，<=0 不限制
}

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, resumeHandler *handler.ResumeHandler, opts Options) {
	h.Use(accessLog())

	api := h.Group("/api/v1")

	// 健康检查不鉴权
	api.GET("/health", resumeHandler.HandleHealth)

	parse := []app.HandlerFunc{}
	if len(opts.APIKeys) > 0 {
		parse = append(parse, apiKeyAuth(opts.APIKeys))
	}
	if opts.RequestLimit > 0 {
		parse = append(parse, limitConcurrency(opts.RequestLimit))
	}
	parse = append(parse, resumeHandler.HandleParse)
	api.POST("/resume/parse", parse...)
}

func accessLog() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		glog.CtxDebugf(c, "Request: %s %s", string(ctx.Method()), string(ctx.Path()))
		ctx.Next(c)
		glog.CtxInfof(c, "Response: %s %s status %d", string(ctx.Method()), string(ctx.Path()), ctx.Response.StatusCode())
	}
}

// apiKeyAuth 校验 X-API-Key
func apiKeyAuth(keys []string) app.HandlerFunc {
	allowed := slices.Clone(keys)
	return keyauth.New(
		keyauth.WithKeyLookUp("header:"+HeaderAPIKey, ""),
		keyauth.WithValidator(func(_ context.Context, _ *app.RequestContext, key string) (bool, error) {
			return slices.Contains(allowed, key), nil
		}),
		keyauth.WithErrorHandler(func(_ context.Context, ctx *app.RequestContext, _ error) {
			ctx.AbortWithStatusJSON(consts.StatusUnauthorized, handler.ErrorResponse{Error: "API Key 无效或缺失"})
		}),
	)
}

// limitConcurrency 超过并发上限时直接返回 503
func limitConcurrency(n int) app.HandlerFunc {
	sem := make(chan struct{}, n)
	return func(c context.Context, ctx *app.RequestContext) {
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
			ctx.Next(c)
		default:
			ctx.AbortWithStatusJSON(consts.StatusServiceUnavailable, handler.ErrorResponse{Error: "服务繁忙，请稍后重试"})
		}
	}
}
