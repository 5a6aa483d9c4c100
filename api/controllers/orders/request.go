package orders

import internalorders "github.com/quickmed/quickmed-backend/internal/orders"

type placeOrderRequest struct {
	AddressID     int64   `json:"address_id" validate:"required,gt=0"`
	PaymentMethod string  `json:"payment_method" validate:"required"`
	DeliveryNotes *string `json:"delivery_notes,omitempty" validate:"omitempty,max=500"`
}

func (p placeOrderRequest) toInput() internalorders.PlaceOrderInput {
	return internalorders.PlaceOrderInput{
		AddressID:     p.AddressID,
		PaymentMethod: p.PaymentMethod,
		DeliveryNotes: p.DeliveryNotes,
	}
}

type statusUpdateRequest struct {
	Status   string  `json:"status" validate:"required"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=500"`
	Location *string `json:"location,omitempty" validate:"omitempty,max=255"`
}

type deliveryProofRequest struct {
	ProofKey      string  `json:"proof_key" validate:"required,max=512"`
	DeliveryNotes *string `json:"delivery_notes,omitempty" validate:"omitempty,max=500"`
}
