package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumecraft/internal/api/middleware"
	"resumecraft/internal/catalog"
	"resumecraft/internal/database"
	"resumecraft/internal/docstore"
	"resumecraft/internal/gateway"
	"resumecraft/internal/session"
)

// UserHandler 负责当前用户档案与收藏/点赞开关。
type UserHandler struct {
	catalog *catalog.Service
	logger  *slog.Logger
}

func NewUserHandler(catalogService *catalog.Service, logger *slog.Logger) *UserHandler {
	return &UserHandler{catalog: catalogService, logger: logger}
}

type profileResponse struct {
	UID         string   `json:"uid"`
	DisplayName string   `json:"displayName"`
	PhotoURL    string   `json:"photoURL"`
	Email       string   `json:"email"`
	Collections []string `json:"collections"`
}

func toProfileResponse(user *docstore.UserProfileDoc) profileResponse {
	collections := user.Collections
	if collections == nil {
		collections = []string{}
	}
	return profileResponse{
		UID:         user.UID,
		DisplayName: user.DisplayName,
		PhotoURL:    user.PhotoURL,
		Email:       user.Email,
		Collections: collections,
	}
}

// GET /api/v1/me
// 首次见到的用户会在这里落下种子档案，之后原样返回。
func (h *UserHandler) GetMe(c *gin.Context) {
	cred := middleware.CredentialFromContext(c)
	if cred == nil {
		AbortUnauthorized(c)
		return
	}

	user := h.catalog.User(c.Request.Context(), session.StaticStream(cred), cred.UID)
	if user == nil {
		Internal(c, "failed to load profile")
		return
	}
	c.JSON(http.StatusOK, toProfileResponse(user))
}

type toggleResponse struct {
	Added       bool     `json:"added"`
	Collections []string `json:"collections,omitempty"`
	Favourites  []string `json:"favourites,omitempty"`
}

// POST /api/v1/templates/:id/collections
// 开关语义：已在收藏则移除，否则加入。连按两次回到原状态。
func (h *UserHandler) ToggleCollection(c *gin.Context) {
	cred := middleware.CredentialFromContext(c)
	if cred == nil {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	user, tpl, ok := h.resolveToggleTargets(c, cred)
	if !ok {
		return
	}

	added, err := h.catalog.SaveToCollections(ctx, user, tpl)
	if err != nil {
		middleware.LoggerFromContext(c).Error("toggle collection failed", slog.Any("error", err))
		Internal(c, "failed to update collections")
		return
	}

	// 返回开关后的最新名单，省一次客户端刷新。
	fresh := h.catalog.User(ctx, session.StaticStream(cred), cred.UID)
	resp := toggleResponse{Added: added}
	if fresh != nil {
		resp.Collections = fresh.Collections
	}
	c.JSON(http.StatusOK, resp)
}

// POST /api/v1/templates/:id/favourites
func (h *UserHandler) ToggleFavourite(c *gin.Context) {
	cred := middleware.CredentialFromContext(c)
	if cred == nil {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	user, tpl, ok := h.resolveToggleTargets(c, cred)
	if !ok {
		return
	}

	added, err := h.catalog.SaveToFavourites(ctx, user, tpl)
	if err != nil {
		middleware.LoggerFromContext(c).Error("toggle favourite failed", slog.Any("error", err))
		Internal(c, "failed to update favourites")
		return
	}

	resp := toggleResponse{Added: added}
	if fresh, err := h.catalog.TemplateDetail(ctx, tpl.ID); err == nil {
		resp.Favourites = stringList(fresh.Favourites)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) resolveToggleTargets(c *gin.Context, cred *session.Credential) (*docstore.UserProfileDoc, *database.Template, bool) {
	ctx := c.Request.Context()

	tpl, err := h.catalog.TemplateDetail(ctx, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrInvalidArgument):
			BadRequest(c, "invalid template id")
		case errors.Is(err, gateway.ErrNotFound):
			NotFound(c, "template not found")
		default:
			Internal(c, "failed to query template")
		}
		return nil, nil, false
	}

	user := h.catalog.User(ctx, session.StaticStream(cred), cred.UID)
	if user == nil {
		Internal(c, "failed to load profile")
		return nil, nil, false
	}
	return user, tpl, true
}
