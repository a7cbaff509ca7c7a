package controllers

import (
	"net/http"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/fitforge/fitforge/app/models"
	"github.com/fitforge/fitforge/app/repositories"
	"github.com/fitforge/fitforge/app/services"
	"github.com/fitforge/fitforge/pkg/apperr"
	"github.com/fitforge/fitforge/pkg/bind"
	"github.com/fitforge/fitforge/pkg/ctx"
)

const maxImageBytes = 10 << 20

type ProductController struct {
	catalog *services.CatalogService
}

func NewProductController(catalog *services.CatalogService) *ProductController {
	return &ProductController{catalog: catalog}
}

// GET /api/products?category=&status=&minPrice=&maxPrice=&search=&inStock=&onSale=&sort=&page=&limit=
//
// status defaults to active; status=all lists every status.
func (pc *ProductController) Index(c *ctx.Context) {
	q := repositories.ProductQuery{
		Category: models.ProductCategory(c.Query("category")),
		Search:   c.Query("search"),
		InStock:  c.QueryBool("inStock"),
		OnSale:   c.QueryBool("onSale"),
		Sort:     repositories.ProductSort(c.Query("sort")),
		Page:     c.QueryInt("page", 1),
		Limit:    c.QueryInt("limit", 20),
	}
	if status := c.DefaultQuery("status", string(models.StatusActive)); status != "all" {
		q.Status = models.CatalogStatus(status)
	}

	var ok bool
	if q.MinPrice, ok = queryDecimal(c, "minPrice"); !ok {
		return
	}
	if q.MaxPrice, ok = queryDecimal(c, "maxPrice"); !ok {
		return
	}

	items, page, err := pc.catalog.ListProducts(c.Context(), q)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Paginated(items, page)
}

func queryDecimal(c *ctx.Context, key string) (*decimal.Decimal, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		c.Fail(apperr.Validation("invalid_"+key, "%s must be a non-negative number", key))
		return nil, false
	}
	return &d, true
}

func (pc *ProductController) Show(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	product, err := pc.catalog.GetProduct(c.Context(), id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(product)
}

type availability struct {
	ProductID uint `json:"productId"`
	Quantity  int  `json:"quantity"`
	Available bool `json:"available"`
}

// GET /api/products/{id}/availability?quantity=
func (pc *ProductController) Availability(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	qty := c.QueryInt("quantity", 1)
	available, err := pc.catalog.GetAvailability(c.Context(), id, qty)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(availability{ProductID: id, Quantity: qty, Available: available})
}

func (pc *ProductController) Store(c *ctx.Context) {
	var input services.ProductInput
	if !c.BindJSON(&input) {
		return
	}
	product, err := pc.catalog.CreateProduct(c.Context(), input)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(product)
}

func (pc *ProductController) Update(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	var input services.ProductInput
	if !c.BindJSON(&input) {
		return
	}
	product, err := pc.catalog.UpdateProduct(c.Context(), id, input)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(product)
}

// Destroy archives the product. Its rows stay for order history.
func (pc *ProductController) Destroy(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	if err := pc.catalog.ArchiveProduct(c.Context(), id); err != nil {
		c.Fail(err)
		return
	}
	c.NoContent()
}

type stockInput struct {
	Delta int `json:"delta" validate:"required"`
}

// PATCH /api/products/{id}/stock {"delta": -3}
func (pc *ProductController) AdjustStock(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	var input stockInput
	if !c.BindJSON(&input) {
		return
	}
	product, err := pc.catalog.AdjustStock(c.Context(), id, input.Delta)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(product)
}

// POST /api/products/{id}/image (multipart field "image")
func (pc *ProductController) UploadImage(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	c.R.Body = http.MaxBytesReader(c.W, c.R.Body, maxImageBytes+1<<20)
	if err := bind.Multipart(c.R, maxImageBytes); err != nil {
		c.Fail(err)
		return
	}
	file, header, err := c.R.FormFile("image")
	if err != nil {
		c.Fail(apperr.Validation("image_required", "multipart field \"image\" is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	switch contentType {
	case "image/jpeg", "image/png", "image/webp", "image/gif":
	default:
		c.Fail(apperr.Validation("invalid_image_type", "image must be jpeg, png, webp or gif"))
		return
	}

	product, err := pc.catalog.UploadImage(c.Context(), id, filepath.Base(header.Filename), contentType, file)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(product)
}

func (pc *ProductController) Review(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	caller, ok := c.Principal()
	if !ok {
		c.Unauthorized()
		return
	}
	var input services.ReviewInput
	if !c.BindJSON(&input) {
		return
	}
	review, err := pc.catalog.AddReview(c.Context(), caller, models.TargetProduct, id, input)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created(review)
}
