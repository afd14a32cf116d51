package transport

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xinodeprinz/edstock-server/internal/domain"
	"github.com/xinodeprinz/edstock-server/internal/middleware"
	"github.com/xinodeprinz/edstock-server/internal/notify"
	"github.com/xinodeprinz/edstock-server/internal/photo"
	"github.com/xinodeprinz/edstock-server/internal/service"
)

const (
	photoField = "photo"

	// Room for the text fields next to the largest accepted photo
	maxProductBody = photo.MaxUploadSize + 1<<20
)

// TriggerResponse is the body of a successful low-stock run
type TriggerResponse struct {
	Message string         `json:"message"`
	Report  *notify.Report `json:"report"`
}

// ProductHandler handles HTTP requests for products
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes. Reads are public.
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/categories", h.Categories)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Get("/low-stocks", h.TriggerLowStock)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// List handles GET /products?search=&categoryId=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.ProductFilter{
		Search:     strings.TrimSpace(r.URL.Query().Get("search")),
		CategoryID: strings.TrimSpace(r.URL.Query().Get("categoryId")),
	}

	products, err := h.productService.List(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to retrieve products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// Get handles GET /products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.productService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to retrieve product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Categories handles GET /products/categories
func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.productService.Categories(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to retrieve categories")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

// Create handles multipart POST /products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	form, upload, ok := h.parseProductForm(w, r)
	if !ok {
		return
	}
	defer closeUpload(upload)

	result, err := h.productService.Create(r.Context(), form, upload)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to create product")
		return
	}

	h.logger.Info("Product created", zap.String("product_id", result.Product.ProductID))
	respondWithProduct(w, http.StatusCreated, result)
}

// Update handles multipart PUT /products/{id}. Omitted fields keep their values.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	form, upload, ok := h.parseProductForm(w, r)
	if !ok {
		return
	}
	defer closeUpload(upload)

	result, err := h.productService.Update(r.Context(), chi.URLParam(r, "id"), form, upload)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to update product")
		return
	}

	respondWithProduct(w, http.StatusOK, result)
}

// Delete handles DELETE /products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.productService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondWithServiceError(w, h.logger, err, "failed to delete product")
		return
	}

	middleware.RespondWithMessage(w, http.StatusOK, "Product deleted successfully")
}

// TriggerLowStock handles GET /products/low-stocks?threshold=
func (h *ProductHandler) TriggerLowStock(w http.ResponseWriter, r *http.Request) {
	threshold := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("threshold")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			middleware.RespondWithErrorDetails(w, http.StatusBadRequest, "threshold must be a positive integer",
				map[string]interface{}{"field": "threshold"})
			return
		}
		threshold = n
	}

	report, err := h.productService.TriggerLowStock(r.Context(), threshold)
	if err != nil {
		h.logger.Error("Low-stock notification failed", zap.Error(err))
		middleware.RespondWithErrorDetails(w, http.StatusInternalServerError, service.ErrNotificationFailed.Error(),
			map[string]interface{}{"report": report})
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, TriggerResponse{
		Message: "Email sent to all super admins about low stocks.",
		Report:  report,
	})
}

func respondWithProduct(w http.ResponseWriter, status int, result *service.ProductResult) {
	if result.NotificationErr != nil {
		w.Header().Set(middleware.NotificationStatusHeader, "failed")
	}
	middleware.RespondWithJSON(w, status, result.Product)
}

// parseProductForm reads the text fields and the optional photo part. It
// writes the error response itself when parsing fails.
func (h *ProductHandler) parseProductForm(w http.ResponseWriter, r *http.Request) (service.ProductForm, *photo.Upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxProductBody)

	err := r.ParseMultipartForm(photo.MaxUploadSize)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithServiceError(w, h.logger, &photo.ValidationError{Field: photoField, Err: photo.ErrTooLarge}, "")
			return service.ProductForm{}, nil, false
		}
		h.logger.Debug("Failed to parse product form", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return service.ProductForm{}, nil, false
	}

	form := service.ProductForm{
		ProductID:     formValue(r, "productId"),
		Name:          formValue(r, "name"),
		Price:         formValue(r, "price"),
		Rating:        formValue(r, "rating"),
		StockQuantity: formValue(r, "stockQuantity"),
		CategoryID:    formValue(r, "categoryId"),
		Location:      formValue(r, "location"),
		SKU:           formValue(r, "sku"),
		Supplier:      formValue(r, "supplier"),
	}

	if r.MultipartForm == nil || len(r.MultipartForm.File[photoField]) == 0 {
		return form, nil, true
	}

	header := r.MultipartForm.File[photoField][0]
	file, err := header.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded photo", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid photo upload")
		return service.ProductForm{}, nil, false
	}

	return form, &photo.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, true
}

// formValue returns nil when key was not sent at all
func formValue(r *http.Request, key string) *string {
	values, ok := r.PostForm[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

func closeUpload(upload *photo.Upload) {
	if upload == nil {
		return
	}
	if c, ok := upload.Body.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}
