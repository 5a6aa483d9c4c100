package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	address "github.com/quickmed/quickmed-backend/internal/address"
	"github.com/quickmed/quickmed-backend/internal/cart"
	medicine "github.com/quickmed/quickmed-backend/internal/medicines"
	prescription "github.com/quickmed/quickmed-backend/internal/prescriptions"
	"github.com/quickmed/quickmed-backend/internal/repo"
	"github.com/quickmed/quickmed-backend/internal/rules"
	"github.com/quickmed/quickmed-backend/pkg/auth"
	"github.com/quickmed/quickmed-backend/pkg/config"
	"github.com/quickmed/quickmed-backend/pkg/db/models"
	"github.com/quickmed/quickmed-backend/pkg/enums"
	pkgerrors "github.com/quickmed/quickmed-backend/pkg/errors"
	"github.com/quickmed/quickmed-backend/pkg/logger"
	"github.com/quickmed/quickmed-backend/pkg/metrics"
	"github.com/quickmed/quickmed-backend/pkg/pagination"
	"github.com/quickmed/quickmed-backend/pkg/storage"
)

const (
	placedNote          = "Order placed"
	deliveryConfirmNote = "Delivery confirmed with proof."
	emergencyNote       = "Emergency delivery dispatched"
	emergencyWindow     = 15 * time.Minute
)

// Service runs the order workflow: placement from the cart, status
// progression and the read paths around it.
type Service interface {
	PlaceOrder(ctx context.Context, userID int64, input PlaceOrderInput) (*OrderDTO, error)
	UpdateOrderStatus(ctx context.Context, actor auth.Principal, orderID int64, input UpdateStatusInput) (*OrderDTO, error)
	GetOrder(ctx context.Context, caller auth.Principal, orderID int64) (*OrderDTO, error)
	ListOrders(ctx context.Context, userID int64, params pagination.Params) (*pagination.Page[OrderDTO], error)
	TrackOrder(ctx context.Context, caller auth.Principal, orderID int64) ([]TrackingDTO, error)
	ConfirmDelivery(ctx context.Context, partner auth.Principal, orderID int64, input ConfirmDeliveryInput) (*OrderDTO, error)
	DispatchEmergency(ctx context.Context, admin auth.Principal, orderID int64) (*OrderDTO, error)
}

type PlaceOrderInput struct {
	AddressID     int64
	PaymentMethod string
	DeliveryNotes *string
}

type UpdateStatusInput struct {
	Status   string
	Notes    *string
	Location *string
}

type ConfirmDeliveryInput struct {
	ProofKey string
	Notes    *string
}

// ServiceParams bundles the dependencies of the order service.
type ServiceParams struct {
	Repo          Repository
	Tx            txRunner
	Carts         cart.CartRepository
	Addresses     address.Repository
	Medicines     medicine.Repository
	Prescriptions prescription.Repository
	Partners      partnerPicker
	Resolver      storage.Resolver
	Metrics       *metrics.OrderMetrics
	Logger        *logger.Logger
	Config        config.OrdersConfig
}

type service struct {
	repo          Repository
	tx            txRunner
	carts         cart.CartRepository
	addresses     address.Repository
	medicines     medicine.Repository
	prescriptions prescription.Repository
	partners      partnerPicker
	resolver      storage.Resolver
	metrics       *metrics.OrderMetrics
	logg          *logger.Logger
	cfg           config.OrdersConfig
	now           clock
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Carts == nil:
		return nil, fmt.Errorf("cart repository required")
	case params.Addresses == nil:
		return nil, fmt.Errorf("address repository required")
	case params.Medicines == nil:
		return nil, fmt.Errorf("medicine repository required")
	case params.Prescriptions == nil:
		return nil, fmt.Errorf("prescription repository required")
	case params.Partners == nil:
		return nil, fmt.Errorf("delivery partner lookup required")
	}
	cfg := params.Config
	if cfg.DeliveryWindow <= 0 {
		cfg.DeliveryWindow = 30 * time.Minute
	}
	if cfg.TxMaxAttempts <= 0 {
		cfg.TxMaxAttempts = 1
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:          params.Repo,
		tx:            params.Tx,
		carts:         params.Carts,
		addresses:     params.Addresses,
		medicines:     params.Medicines,
		prescriptions: params.Prescriptions,
		partners:      params.Partners,
		resolver:      params.Resolver,
		metrics:       params.Metrics,
		logg:          logg,
		cfg:           cfg,
		now:           time.Now,
	}, nil
}

// PlaceOrder converts the user's cart into an order in one transaction.
// Checks run in a fixed order and the first failure wins: empty cart,
// address ownership, stock for every line, then prescriptions for every
// prescription-only line. A malformed payment_method is rejected as a
// request validation error before any of these run.
func (s *service) PlaceOrder(ctx context.Context, userID int64, input PlaceOrderInput) (*OrderDTO, error) {
	started := s.now()
	ctx = s.logg.WithUserID(ctx, userID)

	method, err := enums.ParsePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment_method")
	}

	var orderID int64
	onRetry := func(attempt int, err error) {
		s.metrics.IncTxRetry("place_order")
		s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "order.place.retry")
	}
	err = s.tx.WithTxRetry(ctx, s.cfg.TxMaxAttempts, onRetry, func(tx *gorm.DB) error {
		id, err := s.placeInTx(ctx, tx, userID, method, input)
		orderID = id
		return err
	})
	s.metrics.ObservePlacement(s.now().Sub(started))
	if err != nil {
		s.recordPlacementFailure(ctx, err)
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "place order")
	}

	s.metrics.IncPlaced()
	ctx = s.logg.WithOrderID(ctx, orderID)
	s.logg.Info(ctx, "order.placed")
	return s.loadDetail(ctx, orderID)
}

func (s *service) placeInTx(ctx context.Context, tx *gorm.DB, userID int64, method enums.PaymentMethod, input PlaceOrderInput) (int64, error) {
	now := s.now().UTC()

	c, err := s.carts.WithTx(tx).FindByUser(ctx, userID)
	if err != nil && !repo.IsNotFound(err) {
		return 0, err
	}
	if c == nil || len(c.Items) == 0 {
		return 0, rules.EmptyCart()
	}

	if _, err := s.addresses.WithTx(tx).FindByIDForUser(ctx, input.AddressID, userID); err != nil {
		if repo.IsNotFound(err) {
			return 0, rules.AddressNotFound()
		}
		return 0, err
	}

	txMeds := s.medicines.WithTx(tx)
	ids := make([]int64, 0, len(c.Items))
	for _, line := range c.Items {
		ids = append(ids, line.MedicineID)
	}
	locked, err := txMeds.FindForUpdate(ctx, ids)
	if err != nil {
		return 0, err
	}
	meds := make(map[int64]*models.Medicine, len(locked))
	for i := range locked {
		meds[locked[i].ID] = &locked[i]
	}

	for _, line := range c.Items {
		m, ok := meds[line.MedicineID]
		if !ok {
			return 0, rules.MedicineNotFound()
		}
		if m.Stock < line.Quantity {
			return 0, rules.InsufficientStock(m.ID, m.Name, m.Stock, line.Quantity)
		}
	}

	if err := s.checkPrescriptions(ctx, tx, userID, c.Items, meds, now); err != nil {
		return 0, err
	}

	total := decimal.Zero
	for _, line := range c.Items {
		total = total.Add(meds[line.MedicineID].Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	estimate := now.Add(s.cfg.DeliveryWindow)
	order := &models.Order{
		UserID:                userID,
		AddressID:             input.AddressID,
		TotalAmount:           total.Round(2),
		Status:                enums.OrderStatusPending,
		PaymentStatus:         enums.PaymentStatusPending,
		PaymentMethod:         method,
		DeliveryNotes:         trimmedOrNil(input.DeliveryNotes),
		EstimatedDeliveryTime: &estimate,
	}

	txRepo := s.repo.WithTx(tx)
	if err := txRepo.CreateOrder(ctx, order); err != nil {
		return 0, err
	}

	items := make([]models.OrderItem, 0, len(c.Items))
	for _, line := range c.Items {
		items = append(items, models.OrderItem{
			OrderID:        order.ID,
			MedicineID:     line.MedicineID,
			Quantity:       line.Quantity,
			UnitPrice:      meds[line.MedicineID].Price,
			PrescriptionID: line.PrescriptionID,
		})
	}
	if err := txRepo.CreateItems(ctx, items); err != nil {
		return 0, err
	}

	// decrement in lock order
	for _, m := range locked {
		qty := 0
		for _, line := range c.Items {
			if line.MedicineID == m.ID {
				qty += line.Quantity
			}
		}
		ok, err := txMeds.DecrementStock(ctx, m.ID, qty)
		if err != nil {
			return 0, err
		}
		if !ok {
			// stock moved since the locked read; report what is left now
			available := 0
			if fresh, err := txMeds.FindByID(ctx, m.ID); err == nil {
				available = fresh.Stock
			}
			return 0, rules.InsufficientStock(m.ID, m.Name, available, qty)
		}
	}

	note := placedNote
	if err := txRepo.AppendTracking(ctx, &models.OrderTracking{
		OrderID:   order.ID,
		Status:    enums.OrderStatusPending,
		Notes:     &note,
		UpdatedBy: userID,
		Timestamp: now,
	}); err != nil {
		return 0, err
	}

	if _, err := s.carts.WithTx(tx).ClearItems(ctx, c.ID); err != nil {
		return 0, err
	}
	return order.ID, nil
}

func (s *service) checkPrescriptions(ctx context.Context, tx *gorm.DB, userID int64, lines []models.CartItem, meds map[int64]*models.Medicine, now time.Time) error {
	var ids []int64
	for _, line := range lines {
		if meds[line.MedicineID].PrescriptionRequired && line.PrescriptionID != nil {
			ids = append(ids, *line.PrescriptionID)
		}
	}
	found, err := s.prescriptions.WithTx(tx).FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, line := range lines {
		m := meds[line.MedicineID]
		if !m.PrescriptionRequired {
			continue
		}
		if line.PrescriptionID == nil {
			return rules.PrescriptionRequired(m.ID, m.Name)
		}
		if err := rules.CheckPrescription(found[*line.PrescriptionID], userID, now); err != nil {
			return err
		}
	}
	return nil
}

// UpdateOrderStatus moves an order forward (or cancels it) on behalf of an
// admin or delivery partner and records the change in the tracking history.
func (s *service) UpdateOrderStatus(ctx context.Context, actor auth.Principal, orderID int64, input UpdateStatusInput) (*OrderDTO, error) {
	if !actor.CanManageOrders() {
		return nil, rules.Forbidden("Not authorized to update order status")
	}
	next, err := enums.ParseOrderStatus(strings.TrimSpace(input.Status))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}

	ctx = s.logg.WithOrderID(s.logg.WithUserID(ctx, actor.UserID), orderID)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, txRepo, orderID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(next) {
			return rules.InvalidTransition(order.Status.String(), next.String())
		}

		now := s.now().UTC()
		updates := map[string]any{"status": next}
		if next == enums.OrderStatusOutForDelivery && actor.IsDeliveryPartner {
			updates["delivery_partner_id"] = actor.UserID
		}
		if next == enums.OrderStatusDelivered {
			updates["actual_delivery_time"] = now
		}
		if err := txRepo.UpdateFields(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		return s.appendTracking(ctx, txRepo, &models.OrderTracking{
			OrderID:   order.ID,
			Status:    next,
			Location:  trimmedOrNil(input.Location),
			Notes:     trimmedOrNil(input.Notes),
			UpdatedBy: actor.UserID,
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(next.String(), actor.Role())
	s.logg.Info(s.logg.WithField(ctx, "status", next.String()), "order.status_updated")
	return s.loadDetail(ctx, orderID)
}

// ConfirmDelivery marks an order delivered by its assigned partner, keeping
// the proof-of-delivery key in the tracking entry's location.
func (s *service) ConfirmDelivery(ctx context.Context, partner auth.Principal, orderID int64, input ConfirmDeliveryInput) (*OrderDTO, error) {
	if !partner.IsDeliveryPartner {
		return nil, rules.Forbidden("Delivery partner access required")
	}
	proof, err := storage.CleanKey(input.ProofKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid proof_key")
	}

	ctx = s.logg.WithOrderID(s.logg.WithUserID(ctx, partner.UserID), orderID)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, txRepo, orderID)
		if err != nil {
			return err
		}
		if order.DeliveryPartnerID == nil || *order.DeliveryPartnerID != partner.UserID {
			return rules.Forbidden("This order is not assigned to you")
		}
		if !order.Status.CanTransitionTo(enums.OrderStatusDelivered) {
			return rules.InvalidTransition(order.Status.String(), enums.OrderStatusDelivered.String())
		}

		now := s.now().UTC()
		if err := txRepo.UpdateFields(ctx, order.ID, map[string]any{
			"status":               enums.OrderStatusDelivered,
			"actual_delivery_time": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm delivery")
		}

		note := deliveryConfirmNote
		if extra := trimmedOrNil(input.Notes); extra != nil {
			note += " " + *extra
		}
		return s.appendTracking(ctx, txRepo, &models.OrderTracking{
			OrderID:   order.ID,
			Status:    enums.OrderStatusDelivered,
			Location:  &proof,
			Notes:     &note,
			UpdatedBy: partner.UserID,
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(enums.OrderStatusDelivered.String(), partner.Role())
	s.logg.Info(ctx, "order.delivery_confirmed")
	return s.loadDetail(ctx, orderID)
}

// DispatchEmergency hands the order to the first active delivery partner,
// moves it to processing and promises delivery within the emergency window.
func (s *service) DispatchEmergency(ctx context.Context, admin auth.Principal, orderID int64) (*OrderDTO, error) {
	if !admin.IsAdmin {
		return nil, rules.Forbidden("Pharmacy admin access required")
	}

	ctx = s.logg.WithOrderID(s.logg.WithUserID(ctx, admin.UserID), orderID)
	var partnerID int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, txRepo, orderID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(enums.OrderStatusProcessing) {
			return rules.InvalidTransition(order.Status.String(), enums.OrderStatusProcessing.String())
		}

		partner, err := s.partners.FirstActiveDeliveryPartner(ctx)
		if err != nil {
			if repo.IsNotFound(err) {
				return rules.NoDeliveryPartner()
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find delivery partner")
		}
		partnerID = partner.ID

		now := s.now().UTC()
		if err := txRepo.UpdateFields(ctx, order.ID, map[string]any{
			"status":                  enums.OrderStatusProcessing,
			"delivery_partner_id":     partner.ID,
			"estimated_delivery_time": now.Add(emergencyWindow),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dispatch emergency delivery")
		}
		note := emergencyNote
		return s.appendTracking(ctx, txRepo, &models.OrderTracking{
			OrderID:   order.ID,
			Status:    enums.OrderStatusProcessing,
			Notes:     &note,
			UpdatedBy: admin.UserID,
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(enums.OrderStatusProcessing.String(), admin.Role())
	s.logg.Info(s.logg.WithField(ctx, "delivery_partner_id", partnerID), "order.emergency_dispatched")
	return s.loadDetail(ctx, orderID)
}

func (s *service) GetOrder(ctx context.Context, caller auth.Principal, orderID int64) (*OrderDTO, error) {
	order, err := s.repo.FindDetail(ctx, orderID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, rules.OrderNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !canView(caller, order) {
		return nil, rules.Forbidden("Not authorized to view this order")
	}
	return NewOrderDTO(ctx, order, s.resolver), nil
}

func (s *service) ListOrders(ctx context.Context, userID int64, params pagination.Params) (*pagination.Page[OrderDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListForUser(ctx, userID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page := pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	out := pagination.Page[OrderDTO]{
		Items:      make([]OrderDTO, 0, len(page.Items)),
		NextCursor: page.NextCursor,
	}
	for i := range page.Items {
		out.Items = append(out.Items, *NewOrderDTO(ctx, &page.Items[i], s.resolver))
	}
	return &out, nil
}

func (s *service) TrackOrder(ctx context.Context, caller auth.Principal, orderID int64) ([]TrackingDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, rules.OrderNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !canView(caller, order) {
		return nil, rules.Forbidden("Not authorized to track this order")
	}
	rows, err := s.repo.ListTracking(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tracking")
	}
	return newTrackingDTOs(ctx, rows, s.resolver), nil
}

func (s *service) lockOrder(ctx context.Context, txRepo Repository, orderID int64) (*models.Order, error) {
	order, err := txRepo.FindForUpdate(ctx, orderID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, rules.OrderNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) appendTracking(ctx context.Context, txRepo Repository, entry *models.OrderTracking) error {
	if err := txRepo.AppendTracking(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking")
	}
	return nil
}

func (s *service) loadDetail(ctx context.Context, orderID int64) (*OrderDTO, error) {
	order, err := s.repo.FindDetail(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order detail")
	}
	return NewOrderDTO(ctx, order, s.resolver), nil
}

func (s *service) recordPlacementFailure(ctx context.Context, err error) {
	kind := rules.KindOf(err)
	if kind == "" {
		s.metrics.IncPlacementFailure("error")
		s.logg.Error(ctx, "order.place.failed", err)
		return
	}
	s.metrics.IncPlacementFailure(string(kind))
	s.logg.Info(s.logg.WithField(ctx, "reason", string(kind)), "order.place.rejected")
}

func canView(caller auth.Principal, order *models.Order) bool {
	return order.UserID == caller.UserID || caller.CanManageOrders()
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
