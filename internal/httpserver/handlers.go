package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tienda-barrio/internal/catalog"
	adminsvc "tienda-barrio/internal/service/admin"
	categorysvc "tienda-barrio/internal/service/category"
	productsvc "tienda-barrio/internal/service/product"
)

type handlers struct {
	products     ProductService
	categories   CategoryService
	admin        AdminService
	logger       zerolog.Logger
	cookieSecure bool
}

func (h *handlers) listProducts(c *gin.Context) {
	f := catalog.Filter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}
	if raw, ok := c.GetQuery("available"); ok && raw != "" {
		switch strings.ToLower(raw) {
		case "true":
			v := true
			f.Available = &v
		case "false":
			v := false
			f.Available = &v
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "available must be true or false"})
			return
		}
	}

	products, err := h.products.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *handlers) getProduct(c *gin.Context) {
	p, err := h.products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

func (h *handlers) listCategories(c *gin.Context) {
	cats, err := h.categories.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats})
}

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	sess, err := h.admin.Login(c.Request.Context(), req.Password)
	switch {
	case errors.Is(err, adminsvc.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	case errors.Is(err, adminsvc.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "admin login disabled"})
		return
	case err != nil:
		writeError(c, err)
		return
	}

	maxAge := int(time.Until(sess.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, sess.Token, maxAge, "/api/admin", "", h.cookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"token": sess.Token, "expiresAt": sess.ExpiresAt})
}

func (h *handlers) logout(c *gin.Context) {
	if err := h.admin.Logout(c.Request.Context(), c.GetString(tokenKey)); err != nil {
		writeError(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, "", -1, "/api/admin", "", h.cookieSecure, true)
	c.Status(http.StatusNoContent)
}

func (h *handlers) adminListProducts(c *gin.Context) {
	products, err := h.products.ListAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *handlers) createProduct(c *gin.Context) {
	var in productsvc.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeBindError(c, err)
		return
	}
	p, err := h.products.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	h.logger.Info().Str("product_id", p.ID).Str("slug", p.Slug).Msg("admin.product_created")
	c.JSON(http.StatusCreated, gin.H{"product": p})
}

func (h *handlers) updateProduct(c *gin.Context) {
	var in productsvc.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeBindError(c, err)
		return
	}
	p, err := h.products.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

func (h *handlers) deleteProduct(c *gin.Context) {
	if err := h.products.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	h.logger.Info().Str("product_id", c.Param("id")).Msg("admin.product_deleted")
	c.Status(http.StatusNoContent)
}

func (h *handlers) createVariant(c *gin.Context) {
	var in productsvc.VariantInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeBindError(c, err)
		return
	}
	v, err := h.products.CreateVariant(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"variant": v})
}

func (h *handlers) updateVariant(c *gin.Context) {
	var in productsvc.VariantInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeBindError(c, err)
		return
	}
	v, err := h.products.UpdateVariant(c.Request.Context(), c.Param("id"), c.Param("variantId"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"variant": v})
}

func (h *handlers) deleteVariant(c *gin.Context) {
	if err := h.products.DeleteVariant(c.Request.Context(), c.Param("id"), c.Param("variantId")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) createCategory(c *gin.Context) {
	var in categorysvc.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		writeBindError(c, err)
		return
	}
	cat, err := h.categories.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"category": cat})
}

func (h *handlers) updateCategory(c *gin.Context) {
	var in categorysvc.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		writeBindError(c, err)
		return
	}
	cat, err := h.categories.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": cat})
}

func (h *handlers) deleteCategory(c *gin.Context) {
	if err := h.categories.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
