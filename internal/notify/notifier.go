// Package notify emails the low-stock report to every super admin.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/xinodeprinz/edstock-server/internal/domain"
	"github.com/xinodeprinz/edstock-server/internal/metrics"
)

// DefaultThreshold is used when a run is given no positive threshold
const DefaultThreshold = 10

// ProductSource lists products below a stock threshold
type ProductSource interface {
	ListBelowStock(ctx context.Context, threshold int) ([]*domain.Product, error)
}

// RecipientSource lists users by role
type RecipientSource interface {
	ListByRole(ctx context.Context, role domain.Role) ([]*domain.User, error)
}

// DeliveryError is a failed send to one recipient
type DeliveryError struct {
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to send low-stock report to %s: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Report summarises one run
type Report struct {
	Threshold  int      `json:"threshold"`
	Products   int      `json:"products"`
	Recipients int      `json:"recipients"`
	Sent       int      `json:"sent"`
	Failures   []string `json:"failures,omitempty"`
}

// Options tune a Notifier
type Options struct {
	DefaultThreshold int
	// IsolateFailures keeps delivering after a failed send
	IsolateFailures bool
}

// Notifier scans stock and mails the report
type Notifier struct {
	products   ProductSource
	recipients RecipientSource
	mailer     Mailer
	logger     *zap.Logger
	metrics    *metrics.Metrics
	opts       Options
}

// NewNotifier creates a notifier
func NewNotifier(products ProductSource, recipients RecipientSource, mailer Mailer, logger *zap.Logger, m *metrics.Metrics, opts Options) *Notifier {
	if opts.DefaultThreshold < 1 {
		opts.DefaultThreshold = DefaultThreshold
	}
	return &Notifier{
		products:   products,
		recipients: recipients,
		mailer:     mailer,
		logger:     logger,
		metrics:    m,
		opts:       opts,
	}
}

// DefaultThreshold returns the threshold used by mutation-triggered runs
func (n *Notifier) DefaultThreshold() int {
	return n.opts.DefaultThreshold
}

// Run emails every super admin the list of products whose stock is strictly
// below threshold. Nothing is sent when no product is low or no admin exists.
// The returned report is never nil.
func (n *Notifier) Run(ctx context.Context, threshold int) (*Report, error) {
	if threshold < 1 {
		threshold = n.opts.DefaultThreshold
	}
	report := &Report{Threshold: threshold}

	products, err := n.products.ListBelowStock(ctx, threshold)
	if err != nil {
		n.metrics.LowStockRun(metrics.OutcomeFailed)
		return report, fmt.Errorf("failed to load low-stock products: %w", err)
	}
	report.Products = len(products)

	if len(products) == 0 {
		n.logger.Info("No products with low stock found", zap.Int("threshold", threshold))
		n.metrics.LowStockRun(metrics.OutcomeNoLowStock)
		return report, nil
	}

	admins, err := n.recipients.ListByRole(ctx, domain.RoleSuperAdmin)
	if err != nil {
		n.metrics.LowStockRun(metrics.OutcomeFailed)
		return report, fmt.Errorf("failed to load report recipients: %w", err)
	}
	report.Recipients = len(admins)

	if len(admins) == 0 {
		n.logger.Warn("No super admin users found to notify", zap.Int("low_stock_products", len(products)))
		n.metrics.LowStockRun(metrics.OutcomeNoAdmins)
		return report, nil
	}

	body, err := Render(threshold, products)
	if err != nil {
		n.metrics.LowStockRun(metrics.OutcomeFailed)
		return report, err
	}

	var errs error
	for _, admin := range admins {
		msg := Message{To: admin.Email, ToName: admin.Name, Subject: Subject, HTML: body}

		if err := n.mailer.Send(ctx, msg); err != nil {
			derr := &DeliveryError{Recipient: admin.Email, Err: err}
			report.Failures = append(report.Failures, derr.Error())
			n.metrics.LowStockEmail(metrics.ResultFailed)
			n.logger.Error("Failed to send low stock notification",
				zap.String("recipient", admin.Email),
				zap.Error(err),
			)

			if !n.opts.IsolateFailures {
				n.metrics.LowStockRun(metrics.OutcomeFailed)
				return report, derr
			}
			errs = multierr.Append(errs, derr)
			continue
		}

		report.Sent++
		n.metrics.LowStockEmail(metrics.ResultSent)
		n.logger.Info("Low stock notification sent",
			zap.String("name", admin.Name),
			zap.String("recipient", admin.Email),
		)
	}

	if errs != nil {
		n.metrics.LowStockRun(metrics.OutcomeFailed)
		return report, errs
	}

	n.metrics.LowStockRun(metrics.OutcomeSent)
	n.logger.Info("Successfully sent low stock notifications",
		zap.Int("products", len(products)),
		zap.Int("recipients", report.Sent),
	)
	return report, nil
}
