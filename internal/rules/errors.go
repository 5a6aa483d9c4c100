// Package rules holds the domain error kinds and the checks shared by the
// cart, prescription and order services.
package rules

import (
	"fmt"

	pkgerrors "github.com/quickmed/quickmed-backend/pkg/errors"
)

// Kind identifies a domain failure independent of its HTTP mapping.
type Kind string

const (
	KindEmptyCart            Kind = "empty_cart"
	KindAddressNotFound      Kind = "address_not_found"
	KindInsufficientStock    Kind = "insufficient_stock"
	KindInvalidPrescription  Kind = "invalid_prescription"
	KindExpiredPrescription  Kind = "expired_prescription"
	KindPrescriptionRequired Kind = "prescription_required"
	KindOrderNotFound        Kind = "order_not_found"
	KindMedicineNotFound     Kind = "medicine_not_found"
	KindCategoryNotFound     Kind = "category_not_found"
	KindCartItemNotFound     Kind = "cart_item_not_found"
	KindPrescriptionNotFound Kind = "prescription_not_found"
	KindInvalidTransition    Kind = "invalid_transition"
	KindForbidden            Kind = "forbidden"
	KindNoDeliveryPartner    Kind = "no_delivery_partner"
)

const reasonKey = "reason"

func newKind(code pkgerrors.Code, kind Kind, message string, extra map[string]any) *pkgerrors.Error {
	details := map[string]any{reasonKey: string(kind)}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(code, message).WithDetails(details)
}

// KindOf returns the domain kind carried by err, or "".
func KindOf(err error) Kind {
	return Kind(pkgerrors.DetailString(err, reasonKey))
}

// IsKind reports whether err is the given domain failure.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func EmptyCart() error {
	return newKind(pkgerrors.CodeValidation, KindEmptyCart, "Cart is empty", nil)
}

func AddressNotFound() error {
	return newKind(pkgerrors.CodeNotFound, KindAddressNotFound, "Address not found", nil)
}

// InsufficientStock reports the first line that cannot be filled.
func InsufficientStock(medicineID int64, name string, available, requested int) error {
	return newKind(pkgerrors.CodeConflict, KindInsufficientStock,
		fmt.Sprintf("Not enough stock for %s. Available: %d", name, available),
		map[string]any{
			"medicine_id": medicineID,
			"name":        name,
			"available":   available,
			"requested":   requested,
		})
}

func InvalidPrescription() error {
	return newKind(pkgerrors.CodeValidation, KindInvalidPrescription, "Invalid or unverified prescription", nil)
}

func ExpiredPrescription() error {
	return newKind(pkgerrors.CodeValidation, KindExpiredPrescription, "Prescription has expired", nil)
}

func PrescriptionRequired(medicineID int64, name string) error {
	return newKind(pkgerrors.CodeValidation, KindPrescriptionRequired,
		fmt.Sprintf("Prescription required for %s", name),
		map[string]any{"medicine_id": medicineID})
}

func OrderNotFound() error {
	return newKind(pkgerrors.CodeNotFound, KindOrderNotFound, "Order not found", nil)
}

func MedicineNotFound() error {
	return newKind(pkgerrors.CodeNotFound, KindMedicineNotFound, "Medicine not found", nil)
}

func CategoryNotFound() error {
	return newKind(pkgerrors.CodeNotFound, KindCategoryNotFound, "Category not found", nil)
}

func CartItemNotFound() error {
	return newKind(pkgerrors.CodeNotFound, KindCartItemNotFound, "Cart item not found", nil)
}

func PrescriptionNotFound() error {
	return newKind(pkgerrors.CodeNotFound, KindPrescriptionNotFound, "Prescription not found", nil)
}

func NoDeliveryPartner() error {
	return newKind(pkgerrors.CodeNotFound, KindNoDeliveryPartner, "No delivery partners available", nil)
}

func InvalidTransition(from, to string) error {
	return newKind(pkgerrors.CodeStateConflict, KindInvalidTransition,
		fmt.Sprintf("Cannot change order status from %s to %s", from, to),
		map[string]any{"from": from, "to": to})
}

func Forbidden(message string) error {
	if message == "" {
		message = "Not authorized"
	}
	return newKind(pkgerrors.CodeForbidden, KindForbidden, message, nil)
}
