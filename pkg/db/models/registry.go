package models

// All lists every persisted model. sqlite schemas are built from these tags;
// Postgres uses the goose migrations.
func All() []any {
	return []any{
		&User{},
		&CartItem{},
		&Order{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
