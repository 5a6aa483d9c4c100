package cart

type addItemRequest struct {
	MedicineID     int64  `json:"medicine_id" validate:"required,gt=0"`
	Quantity       int    `json:"quantity" validate:"required,min=1,max=100"`
	PrescriptionID *int64 `json:"prescription_id,omitempty" validate:"omitempty,gt=0"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=100"`
}

type validatePrescriptionRequest struct {
	CartItemID     int64 `json:"cart_item_id" validate:"required,gt=0"`
	PrescriptionID int64 `json:"prescription_id" validate:"required,gt=0"`
}
