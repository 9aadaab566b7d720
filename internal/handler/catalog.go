package handler

import (
	"errors"
	"net/http"
	"strconv"

	"tillsync/internal/apierror"
	"tillsync/internal/repository"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CatalogHandler serves the locally replicated catalog. Everything here reads
// the pull mirror; nothing touches the backend directly.
type CatalogHandler struct{ repo repository.CatalogRepository }

func NewCatalogHandler(repo repository.CatalogRepository) *CatalogHandler {
	return &CatalogHandler{repo: repo}
}

func (h *CatalogHandler) SearchProducts(c *gin.Context) {
	query := c.Query("q")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
	if limit < 1 || limit > 100 {
		limit = 25
	}
	products, err := h.repo.SearchProducts(c.Request.Context(), query, limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": products})
}

func (h *CatalogHandler) ProductByBarcode(c *gin.Context) {
	product, err := h.repo.FindProductByBarcode(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, apierror.New("product not found"))
			return
		}
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *CatalogHandler) ProductByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid product id"))
		return
	}
	product, err := h.repo.FindProductByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, apierror.New("product not found"))
			return
		}
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.repo.ListCategories(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": categories})
}

func (h *CatalogHandler) ListBrands(c *gin.Context) {
	brands, err := h.repo.ListBrands(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": brands})
}

func (h *CatalogHandler) SearchCustomers(c *gin.Context) {
	query := c.Query("q")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
	if limit < 1 || limit > 100 {
		limit = 25
	}
	customers, err := h.repo.SearchCustomers(c.Request.Context(), query, limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": customers})
}
