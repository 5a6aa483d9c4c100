package models

// All lists every persisted model in dependency order for sqlite AutoMigrate in tests.
func All() []any {
	return []any{
		&User{},
		&Address{},
		&Category{},
		&Medicine{},
		&Prescription{},
		&PrescriptionMedicine{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&OrderTracking{},
	}
}
