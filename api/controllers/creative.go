package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/mylxsw/festival-server/api/controllers/common"
	"github.com/mylxsw/festival-server/pkg/creative"
	"github.com/mylxsw/festival-server/pkg/repo"
	"github.com/mylxsw/glacier/infra"
	"github.com/mylxsw/glacier/web"
)

// CreativeController 老照片修复、节日诗词及创作记录
type CreativeController struct {
	restorer *creative.Restorer    `autowire:"@"`
	poems    *creative.PoemService `autowire:"@"`
	records  *repo.RecordRepo      `autowire:"@"`
}

func NewCreativeController(resolver infra.Resolver) web.Controller {
	ctl := CreativeController{}
	resolver.AutoWire(&ctl)

	return &ctl
}

func (ctl *CreativeController) Register(router web.Router) {
	router.Group("/restorations", func(router web.Router) {
		router.Post("/", ctl.Restore)
	})

	router.Group("/poems", func(router web.Router) {
		router.Post("/", ctl.Poem)
	})

	router.Group("/records", func(router web.Router) {
		router.Get("/{id}", ctl.Record)
	})
}

// Restore 老照片修复
func (ctl *CreativeController) Restore(ctx context.Context, webCtx web.Context) web.Response {
	var req creative.RestoreRequest
	if err := webCtx.Unmarshal(&req); err != nil {
		return webCtx.JSONError(common.ErrInvalidRequest, http.StatusBadRequest)
	}

	req.UserKey = webCtx.Header("X-Real-IP")

	res, err := ctl.restorer.Restore(ctx, req)
	return common.Result(webCtx, res, err)
}

// Poem 节日诗词配图
func (ctl *CreativeController) Poem(ctx context.Context, webCtx web.Context) web.Response {
	var req creative.PoemRequest
	if err := webCtx.Unmarshal(&req); err != nil {
		return webCtx.JSONError(common.ErrInvalidRequest, http.StatusBadRequest)
	}

	req.UserKey = webCtx.Header("X-Real-IP")

	res, err := ctl.poems.Create(ctx, req)
	return common.Result(webCtx, res, err)
}

// Record 查询创作记录
func (ctl *CreativeController) Record(ctx context.Context, webCtx web.Context) web.Response {
	id, err := strconv.ParseInt(webCtx.PathVar("id"), 10, 64)
	if err != nil || id <= 0 {
		return webCtx.JSONError(common.ErrInvalidRequest, http.StatusBadRequest)
	}

	rec, err := ctl.records.Get(ctx, id)
	if err != nil {
		return common.Error(webCtx, err)
	}

	return webCtx.JSON(rec)
}
