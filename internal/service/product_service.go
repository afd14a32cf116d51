package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xinodeprinz/edstock-server/internal/config"
	"github.com/xinodeprinz/edstock-server/internal/domain"
	"github.com/xinodeprinz/edstock-server/internal/notify"
	"github.com/xinodeprinz/edstock-server/internal/photo"
	"github.com/xinodeprinz/edstock-server/internal/repository"
)

var (
	maxRating = decimal.NewFromInt(5)
	// NUMERIC(12, 2)
	maxPrice = decimal.RequireFromString("9999999999.99")
)

const moneyScale = 2

// ProductForm carries raw product fields as received. A nil field was not
// supplied; on update it keeps the stored value.
type ProductForm struct {
	ProductID     *string
	Name          *string
	Price         *string
	Rating        *string
	StockQuantity *string
	CategoryID    *string
	Location      *string
	SKU           *string
	Supplier      *string
}

// ProductResult is a committed product mutation and the low-stock run it caused
type ProductResult struct {
	Product         *domain.Product
	Notification    *notify.Report
	NotificationErr error
}

// LowStockNotifier runs the low-stock report
type LowStockNotifier interface {
	Run(ctx context.Context, threshold int) (*notify.Report, error)
	DefaultThreshold() int
}

// ProductService defines the interface for product business logic
type ProductService interface {
	List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Categories(ctx context.Context) ([]*domain.Category, error)
	Create(ctx context.Context, form ProductForm, upload *photo.Upload) (*ProductResult, error)
	Update(ctx context.Context, id string, form ProductForm, upload *photo.Upload) (*ProductResult, error)
	Delete(ctx context.Context, id string) error
	TriggerLowStock(ctx context.Context, threshold int) (*notify.Report, error)
}

// ProductOptions select the low-stock trigger and failure policies
type ProductOptions struct {
	Trigger config.NotifyTrigger
	Failure config.NotifyFailure
}

type productService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	photos     *photo.Manager
	notifier   LowStockNotifier
	logger     *zap.Logger
	opts       ProductOptions
}

// NewProductService creates a new instance of ProductService
func NewProductService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	photos *photo.Manager,
	notifier LowStockNotifier,
	logger *zap.Logger,
	opts ProductOptions,
) ProductService {
	if opts.Trigger == "" {
		opts.Trigger = config.TriggerAlways
	}
	if opts.Failure == "" {
		opts.Failure = config.FailureReport
	}
	return &productService{
		products:   products,
		categories: categories,
		photos:     photos,
		notifier:   notifier,
		logger:     logger,
		opts:       opts,
	}
}

func (s *productService) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	return s.products.List(ctx, filter)
}

func (s *productService) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

func (s *productService) Categories(ctx context.Context) ([]*domain.Category, error) {
	return s.categories.List(ctx)
}

// Create validates the form and upload, stores the photo, inserts the row and
// then runs the low-stock report according to the trigger policy.
func (s *productService) Create(ctx context.Context, form ProductForm, upload *photo.Upload) (*ProductResult, error) {
	required := []struct {
		field string
		value *string
	}{
		{"name", form.Name},
		{"price", form.Price},
		{"stockQuantity", form.StockQuantity},
		{"categoryId", form.CategoryID},
	}
	for _, r := range required {
		if r.value == nil || strings.TrimSpace(*r.value) == "" {
			return nil, invalid(r.field, "is required")
		}
	}

	product := &domain.Product{ProductID: uuid.NewString()}
	if id := text(form.ProductID); id != nil {
		product.ProductID = *id
	}
	if err := applyForm(product, form); err != nil {
		return nil, err
	}

	if err := photo.Admit(upload); err != nil {
		return nil, err
	}

	err := s.photos.AttachOnCreate(ctx, upload, func(path *string) error {
		product.Photo = path
		return s.products.Create(ctx, product)
	})
	if err != nil {
		return nil, mapProductWriteError(err)
	}

	s.logger.Info("Product created", zap.String("product_id", product.ProductID))
	s.resolveCategory(ctx, product)

	result := &ProductResult{Product: product}
	return result, s.afterMutation(ctx, nil, product, result)
}

// Update applies the supplied fields to an existing product
func (s *productService) Update(ctx context.Context, id string, form ProductForm, upload *photo.Upload) (*ProductResult, error) {
	if err := photo.Admit(upload); err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previousStock := product.StockQuantity
	previousPhoto := product.Photo

	if form.Name != nil && strings.TrimSpace(*form.Name) == "" {
		return nil, invalid("name", "must not be empty")
	}
	if form.CategoryID != nil && strings.TrimSpace(*form.CategoryID) == "" {
		return nil, invalid("categoryId", "must not be empty")
	}
	if err := applyForm(product, form); err != nil {
		return nil, err
	}

	err = s.photos.ReplaceOnUpdate(ctx, previousPhoto, upload, func(path *string) error {
		product.Photo = path
		return s.products.Update(ctx, product)
	})
	if err != nil {
		return nil, mapProductWriteError(err)
	}

	s.logger.Info("Product updated", zap.String("product_id", product.ProductID))
	s.resolveCategory(ctx, product)

	result := &ProductResult{Product: product}
	return result, s.afterMutation(ctx, &previousStock, product, result)
}

// Delete removes the row first and the photo after, so a rejected delete
// never loses the photo.
func (s *productService) Delete(ctx context.Context, id string) error {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}

	if product.HasPhoto() {
		s.photos.RemoveOnDelete(ctx, product.Photo)
	}
	s.logger.Info("Product deleted", zap.String("product_id", id))
	return nil
}

// resolveCategory fills the embedded category so mutation responses match
// reads. The row is already committed, so a failed lookup is only logged.
func (s *productService) resolveCategory(ctx context.Context, p *domain.Product) {
	if p.Category != nil && p.Category.CategoryID == p.CategoryID {
		return
	}
	category, err := s.categories.FindByID(ctx, p.CategoryID)
	if err != nil {
		s.logger.Warn("Failed to resolve product category",
			zap.String("product_id", p.ProductID),
			zap.String("category_id", p.CategoryID),
			zap.Error(err),
		)
		p.Category = nil
		return
	}
	p.Category = category
}

func (s *productService) TriggerLowStock(ctx context.Context, threshold int) (*notify.Report, error) {
	if threshold < 1 {
		threshold = s.notifier.DefaultThreshold()
	}
	return s.notifier.Run(ctx, threshold)
}

func (s *productService) shouldNotify(previousStock *int, stock int) bool {
	if s.opts.Trigger != config.TriggerCrossing {
		return true
	}
	threshold := s.notifier.DefaultThreshold()
	return stock < threshold && (previousStock == nil || *previousStock >= threshold)
}

// afterMutation runs the report for a committed mutation. Only the propagate
// policy turns a failed run into an error.
func (s *productService) afterMutation(ctx context.Context, previousStock *int, product *domain.Product, result *ProductResult) error {
	if !s.shouldNotify(previousStock, product.StockQuantity) {
		return nil
	}

	report, err := s.notifier.Run(ctx, s.notifier.DefaultThreshold())
	result.Notification = report
	if err == nil {
		return nil
	}

	result.NotificationErr = err
	s.logger.Error("Low-stock notification failed after product mutation",
		zap.String("product_id", product.ProductID),
		zap.String("policy", string(s.opts.Failure)),
		zap.Error(err),
	)

	if s.opts.Failure == config.FailurePropagate {
		return fmt.Errorf("%w: %w", ErrNotificationFailed, err)
	}
	return nil
}

func mapProductWriteError(err error) error {
	if errors.Is(err, repository.ErrCategoryNotFound) {
		return invalid("categoryId", "category does not exist")
	}
	if errors.Is(err, repository.ErrProductAlreadyExists) {
		return invalid("productId", "a product with this ID already exists")
	}
	return err
}

func applyForm(p *domain.Product, form ProductForm) error {
	if form.Name != nil {
		p.Name = strings.TrimSpace(*form.Name)
	}

	if form.Price != nil {
		price, err := decimal.NewFromString(strings.TrimSpace(*form.Price))
		if err != nil {
			return invalid("price", "must be a number")
		}
		if price.IsNegative() {
			return invalid("price", "must not be negative")
		}
		if price.GreaterThan(maxPrice) {
			return invalid("price", "must not exceed %s", maxPrice.StringFixed(moneyScale))
		}
		if !hasScale(price, moneyScale) {
			return invalid("price", "must have at most %d decimal places", moneyScale)
		}
		p.Price = price
	}

	if form.Rating != nil {
		raw := strings.TrimSpace(*form.Rating)
		if raw == "" {
			p.Rating = decimal.NullDecimal{}
		} else {
			rating, err := decimal.NewFromString(raw)
			if err != nil {
				return invalid("rating", "must be a number")
			}
			if rating.IsNegative() || rating.GreaterThan(maxRating) {
				return invalid("rating", "must be between 0 and 5")
			}
			if !hasScale(rating, moneyScale) {
				return invalid("rating", "must have at most %d decimal places", moneyScale)
			}
			p.Rating = decimal.NewNullDecimal(rating)
		}
	}

	if form.StockQuantity != nil {
		stock, err := strconv.ParseInt(strings.TrimSpace(*form.StockQuantity), 10, 32)
		if errors.Is(err, strconv.ErrRange) {
			return invalid("stockQuantity", "must not exceed %d", math.MaxInt32)
		}
		if err != nil {
			return invalid("stockQuantity", "must be an integer")
		}
		if stock < 0 {
			return invalid("stockQuantity", "must not be negative")
		}
		p.StockQuantity = int(stock)
	}

	if form.CategoryID != nil {
		categoryID := strings.TrimSpace(*form.CategoryID)
		if categoryID != p.CategoryID {
			p.Category = nil
		}
		p.CategoryID = categoryID
	}
	if form.Location != nil {
		p.Location = text(form.Location)
	}
	if form.SKU != nil {
		p.SKU = text(form.SKU)
	}
	if form.Supplier != nil {
		p.Supplier = text(form.Supplier)
	}

	return nil
}

// hasScale reports whether d fits in the given number of fractional digits
// without rounding
func hasScale(d decimal.Decimal, scale int32) bool {
	return d.Equal(d.Truncate(scale))
}

// text trims s and maps blank input to nil
func text(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
