package handler

import (
	"net/http"

	"shopapi/internal/config"
	"shopapi/internal/repository"
	"shopapi/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// /products のAPI（GETは公開、書き込みはADMIN/SUPPORT）
type ProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

type ProductCreateRequest struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"`
	Category    string          `json:"category"`

	Stock           int64  `json:"stock"`
	ShippingAddress string `json:"shipping_address"`

	DownloadLink string `json:"download_link"`
	License      string `json:"license"`
}

type ProductUpdateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	ImageURL    string `json:"image_url"`
}

type StockUpdateRequest struct {
	Name  string `json:"name"`
	Stock int64  `json:"stock"`
}

type PriceUpdateRequest struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

func (h *ProductHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/products")

	g.GET("", h.list)
	g.GET("/in-stock", h.listInStock)
	g.GET("/price", h.listByPriceRange)
	g.GET("/sorted/:sort", h.listSorted)
	g.GET("/name/:name", h.getByName)
	g.GET("/category/:category", h.listByCategory)
	g.GET("/:id", h.getByID)

	staff := staffOnly(cfg, userRepo)
	g.POST("", h.create, staff...)
	g.PUT("/:id", h.update, staff...)
	g.PATCH("/stock", h.updateStock, staff...)
	g.PATCH("/price", h.updatePrice, staff...)
	g.PATCH("/:id/disable", h.disable, staff...)
	g.DELETE("/:id", h.delete, staff...)
	g.GET("/:id/stock-history", h.stockHistory, staff...)
}

func (h *ProductHandler) create(c echo.Context) error {
	var req ProductCreateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	p, err := h.uc.Create(c.Request().Context(), usecase.CreateProductInput{
		Kind:            req.Type,
		Name:            req.Name,
		Price:           req.Price,
		Description:     req.Description,
		ImageURL:        req.ImageURL,
		Category:        req.Category,
		Stock:           req.Stock,
		ShippingAddress: req.ShippingAddress,
		DownloadLink:    req.DownloadLink,
		License:         req.License,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, toProductResponse(p))
}

func (h *ProductHandler) list(c echo.Context) error {
	items, err := h.uc.List(c.Request().Context(), repository.ProductSortNone)
	if err != nil {
		return writeError(c, err)
	}
	return listJSON(c, toProductResponses(items))
}

func (h *ProductHandler) listSorted(c echo.Context) error {
	var sort repository.ProductSort
	switch c.Param("sort") {
	case "price-asc":
		sort = repository.ProductSortPriceAsc
	case "price-desc":
		sort = repository.ProductSortPriceDesc
	case "name":
		sort = repository.ProductSortName
	default:
		return badRequest(c, "invalid sort")
	}

	items, err := h.uc.List(c.Request().Context(), sort)
	if err != nil {
		return writeError(c, err)
	}
	return listJSON(c, toProductResponses(items))
}

func (h *ProductHandler) getByID(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	p, found, err := h.uc.GetByID(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	if !found {
		return notFound(c, "product not found")
	}
	return c.JSON(http.StatusOK, toProductResponse(p))
}

func (h *ProductHandler) getByName(c echo.Context) error {
	p, found, err := h.uc.GetByName(c.Request().Context(), c.Param("name"))
	if err != nil {
		return writeError(c, err)
	}
	if !found {
		return notFound(c, "product not found")
	}
	return c.JSON(http.StatusOK, toProductResponse(p))
}

func (h *ProductHandler) listByCategory(c echo.Context) error {
	items, err := h.uc.ListByCategory(c.Request().Context(), c.Param("category"))
	if err != nil {
		return writeError(c, err)
	}
	return listJSON(c, toProductResponses(items))
}

// min/maxのどちらかが無ければ空（204）
func (h *ProductHandler) listByPriceRange(c echo.Context) error {
	var minPrice, maxPrice *decimal.Decimal
	if v := c.QueryParam("min"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return badRequest(c, "invalid min")
		}
		minPrice = &d
	}
	if v := c.QueryParam("max"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return badRequest(c, "invalid max")
		}
		maxPrice = &d
	}

	items, err := h.uc.ListByPriceRange(c.Request().Context(), minPrice, maxPrice)
	if err != nil {
		return writeError(c, err)
	}
	return listJSON(c, toProductResponses(items))
}

func (h *ProductHandler) listInStock(c echo.Context) error {
	items, err := h.uc.ListInStock(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return listJSON(c, toProductResponses(items))
}

func (h *ProductHandler) update(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req ProductUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	updated, err := h.uc.Update(c.Request().Context(), id, usecase.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return writeError(c, err)
	}
	if !updated {
		return notFound(c, "product not found")
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

// 物理商品でない / 存在しない → 404
func (h *ProductHandler) updateStock(c echo.Context) error {
	var req StockUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	updated, err := h.uc.UpdateStock(c.Request().Context(), req.Name, req.Stock)
	if err != nil {
		return writeError(c, err)
	}
	if !updated {
		return notFound(c, "physical product not found")
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "stock updated"})
}

func (h *ProductHandler) updatePrice(c echo.Context) error {
	var req PriceUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	updated, err := h.uc.UpdatePrice(c.Request().Context(), req.Name, req.Price)
	if err != nil {
		return writeError(c, err)
	}
	if !updated {
		return notFound(c, "product not found")
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "price updated"})
}

func (h *ProductHandler) disable(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	disabled, err := h.uc.Disable(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	if !disabled {
		return notFound(c, "product not found")
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "disabled"})
}

func (h *ProductHandler) delete(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	deleted, err := h.uc.Delete(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	if !deleted {
		return notFound(c, "product not found")
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *ProductHandler) stockHistory(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	adjs, err := h.uc.ListStockHistory(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return listJSON(c, adjs)
}
