package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/tiered-shortener/internal/analytics"
	"github.com/serroba/tiered-shortener/internal/messaging"
	"github.com/serroba/tiered-shortener/internal/quota"
	"github.com/serroba/tiered-shortener/internal/shortener"
	"go.uber.org/zap"
)

// LinkHandler handles link creation, listing and redirects.
type LinkHandler struct {
	service       *shortener.Service
	resolver      *shortener.Resolver
	gate          *quota.Gate
	baseURL       string
	publishCreate messaging.Publish[analytics.LinkCreatedEvent]
	logger        *zap.Logger
}

// NewLinkHandler creates a new link handler.
func NewLinkHandler(
	service *shortener.Service,
	resolver *shortener.Resolver,
	gate *quota.Gate,
	baseURL string,
	publishCreate messaging.Publish[analytics.LinkCreatedEvent],
	logger *zap.Logger,
) *LinkHandler {
	return &LinkHandler{
		service:       service,
		resolver:      resolver,
		gate:          gate,
		baseURL:       baseURL,
		publishCreate: publishCreate,
		logger:        logger,
	}
}

func (h *LinkHandler) CreateLink(ctx context.Context, req *CreateLinkRequest) (*CreateLinkResponse, error) {
	acct, ok := AccountFromContext(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("authentication required")
	}

	if err := h.gate.Authorize(acct); err != nil {
		h.logger.Info("quota exceeded",
			zap.String("accountId", acct.ID),
			zap.Int("tier", acct.Tier),
			zap.Int64("requestCount", acct.RequestCount),
		)

		return nil, toHTTPError(err, h.logger, "quota check failed")
	}

	result, err := h.service.Shorten(ctx, acct, shortener.Request{
		LongURL:     req.Body.URL,
		CustomToken: req.Body.CustomToken,
	})
	if err != nil {
		return nil, toHTTPError(err, h.logger, "failed to shorten url")
	}

	resp := &CreateLinkResponse{
		Status: http.StatusOK,
		Body:   h.linkBody(result.Link),
	}
	resp.Location = resp.Body.ShortURL

	if result.Created {
		resp.Status = http.StatusCreated

		h.publishCreated(ctx, result.Link, req.Body.CustomToken != "")
	}

	return resp, nil
}

func (h *LinkHandler) ListLinks(ctx context.Context, _ *struct{}) (*ListLinksResponse, error) {
	acct, ok := AccountFromContext(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("authentication required")
	}

	links, err := h.service.List(ctx, acct)
	if err != nil {
		return nil, toHTTPError(err, h.logger, "failed to list links")
	}

	resp := &ListLinksResponse{}
	resp.Body.Links = make([]LinkBody, 0, len(links))

	for _, link := range links {
		resp.Body.Links = append(resp.Body.Links, h.linkBody(link))
	}

	return resp, nil
}

func (h *LinkHandler) Redirect(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	longURL, err := h.resolver.Resolve(ctx, req.Token)
	if err != nil {
		return nil, toHTTPError(err, h.logger, "failed to resolve token")
	}

	return &RedirectResponse{
		Status:   http.StatusFound,
		Location: longURL,
	}, nil
}

func (h *LinkHandler) publishCreated(ctx context.Context, link *shortener.Link, custom bool) {
	meta := RequestMetaFromContext(ctx)
	event := &analytics.LinkCreatedEvent{
		Token:     string(link.Token),
		LongURL:   link.LongURL,
		AccountID: link.AccountID,
		Custom:    custom,
		CreatedAt: link.CreatedAt,
		ClientIP:  meta.ClientIP,
		UserAgent: meta.UserAgent,
	}

	if err := h.publishCreate(ctx, event); err != nil {
		h.logger.Error("failed to publish link created event",
			zap.String("token", event.Token),
			zap.Error(err),
		)
	}
}

func (h *LinkHandler) linkBody(link *shortener.Link) LinkBody {
	return LinkBody{
		ShortToken: string(link.Token),
		ShortURL:   fmt.Sprintf("%s/%s", h.baseURL, link.Token),
		LongURL:    link.LongURL,
		HitCount:   link.HitCount,
		CreatedAt:  link.CreatedAt,
	}
}
