package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"storefront-bff/internal/cart"
	"storefront-bff/internal/logging"
	"storefront-bff/internal/models"
	"storefront-bff/internal/notify"
)

type Step string

const (
	StepDetails  Step = "details"
	StepPayment  Step = "payment"
	StepComplete Step = "complete"
)

var (
	ErrPlacementInFlight = errors.New("order placement already in progress")
	ErrWrongStep         = errors.New("action not allowed at current checkout step")
	ErrInvalidDetails    = errors.New("shipping details are invalid")
	ErrInvalidPayment    = errors.New("unknown payment method")
	ErrEmptyCart         = errors.New("cart is empty")
)

var (
	shippingDhaka = decimal.NewFromInt(80)
	shippingOther = decimal.NewFromInt(130)

	phonePattern = regexp.MustCompile(`^\d{7,}$`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// OrderPlacer sends a finished order upstream.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, order models.OrderRequest) (*models.OrderResult, error)
}

// FieldErrors maps a shipping field name to its message.
type FieldErrors map[string]string

// ShippingCost is a flat rate keyed on whether the address mentions Dhaka.
func ShippingCost(address string) decimal.Decimal {
	if strings.Contains(strings.ToLower(address), "dhaka") {
		return shippingDhaka
	}
	return shippingOther
}

func ValidateDetails(d models.ShippingDetails) FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(d.Name) == "" {
		errs["name"] = "Full Name is required."
	}
	if strings.TrimSpace(d.Phone) == "" {
		errs["phone"] = "Phone Number is required."
	} else if !phonePattern.MatchString(whitespace.ReplaceAllString(d.Phone, "")) {
		errs["phone"] = "Please enter a valid phone number."
	}
	if strings.TrimSpace(d.Address) == "" {
		errs["address"] = "Delivery Location is required."
	}
	return errs
}

type Summary struct {
	Step         Step                   `json:"step"`
	Items        []models.CartLine      `json:"items"`
	Shipping     models.ShippingDetails `json:"shippingDetails"`
	Subtotal     decimal.Decimal        `json:"subtotal"`
	ShippingCost decimal.Decimal        `json:"shippingCost"`
	Total        decimal.Decimal        `json:"total"`
	FieldErrors  FieldErrors            `json:"fieldErrors,omitempty"`
	OrderID      string                 `json:"orderId,omitempty"`
	Processing   bool                   `json:"processing"`
}

// Flow walks one visitor from shipping details to a placed order.
type Flow struct {
	mu           sync.Mutex
	step         Step
	details      models.ShippingDetails
	shippingCost decimal.Decimal
	fieldErrors  FieldErrors
	orderID      string

	inFlight atomic.Bool
	closed   atomic.Bool

	cart     *cart.Store
	placer   OrderPlacer
	notifier notify.Notifier
	logger   *slog.Logger
}

func NewFlow(store *cart.Store, placer OrderPlacer, notifier notify.Notifier) *Flow {
	return &Flow{
		step:         StepDetails,
		shippingCost: decimal.Zero,
		cart:         store,
		placer:       placer,
		notifier:     notifier,
		logger:       logging.New("checkout"),
	}
}

func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Enter reports whether the caller should be sent away because there is
// nothing to check out. A completed checkout never redirects.
func (f *Flow) Enter() bool {
	if f.Step() == StepComplete || !f.cart.State().Empty() {
		return false
	}
	f.notifier.Notify("Your cart is empty.", models.NotificationInfo)
	return true
}

func (f *Flow) SubmitDetails(d models.ShippingDetails) (FieldErrors, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inFlight.Load() {
		return nil, ErrPlacementInFlight
	}
	if f.step != StepDetails {
		return nil, ErrWrongStep
	}

	f.details = d
	f.fieldErrors = ValidateDetails(d)
	if len(f.fieldErrors) > 0 {
		f.notifier.Notify("Please fill in all required fields correctly.", models.NotificationError)
		return f.fieldErrors, ErrInvalidDetails
	}

	f.shippingCost = ShippingCost(d.Address)
	f.step = StepPayment
	return nil, nil
}

func (f *Flow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inFlight.Load() {
		return ErrPlacementInFlight
	}
	if f.step != StepPayment {
		return ErrWrongStep
	}
	f.step = StepDetails
	return nil
}

// PlaceOrder submits the current cart. Only one placement may be outstanding;
// overlapping calls get ErrPlacementInFlight without reaching the API, and
// so do Back and SubmitDetails until it returns.
func (f *Flow) PlaceOrder(ctx context.Context, method models.PaymentMethod) (*models.OrderResult, error) {
	if !method.Valid() {
		return nil, ErrInvalidPayment
	}
	if !f.inFlight.CompareAndSwap(false, true) {
		return nil, ErrPlacementInFlight
	}
	defer f.inFlight.Store(false)

	f.mu.Lock()
	if f.step != StepPayment {
		f.mu.Unlock()
		return nil, ErrWrongStep
	}
	state := f.cart.State()
	if state.Empty() {
		f.mu.Unlock()
		return nil, ErrEmptyCart
	}
	subtotal := state.Subtotal()
	order := models.OrderRequest{
		CartItems:       state.Lines,
		ShippingDetails: f.details,
		Subtotal:        subtotal,
		ShippingCost:    f.shippingCost,
		Total:           subtotal.Add(f.shippingCost),
		PaymentMethod:   method,
	}
	f.mu.Unlock()

	result, err := f.placer.PlaceOrder(ctx, order)
	if err != nil {
		f.logger.Error("Order placement failed", "error", err)
		if !f.closed.Load() {
			f.notifier.Notify("An error occurred while placing your order. Please try again.", models.NotificationError)
		}
		return nil, fmt.Errorf("place order: %w", err)
	}

	if !result.Success {
		if !f.closed.Load() {
			f.notifier.Notify("Failed to place order. Please try again.", models.NotificationError)
		}
		return result, nil
	}

	// The order exists upstream, so the cart goes even if nobody is watching.
	f.cart.Dispatch(cart.ClearCart{})
	if f.closed.Load() {
		f.logger.Info("Order placed after checkout was abandoned", "order_id", result.OrderID)
		return result, nil
	}

	f.mu.Lock()
	f.step = StepComplete
	f.orderID = result.OrderID
	f.mu.Unlock()

	f.notifier.Notify("Order placed successfully!", models.NotificationSuccess)
	return result, nil
}

func (f *Flow) Summary() Summary {
	f.mu.Lock()
	defer f.mu.Unlock()

	state := f.cart.State()
	subtotal := state.Subtotal()
	return Summary{
		Step:         f.step,
		Items:        state.Lines,
		Shipping:     f.details,
		Subtotal:     subtotal,
		ShippingCost: f.shippingCost,
		Total:        subtotal.Add(f.shippingCost),
		FieldErrors:  f.fieldErrors,
		OrderID:      f.orderID,
		Processing:   f.inFlight.Load(),
	}
}

// Close marks the flow abandoned; late responses no longer notify or
// change the step.
func (f *Flow) Close() {
	f.closed.Store(true)
}

func (f *Flow) Closed() bool {
	return f.closed.Load()
}
