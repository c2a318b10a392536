package models

// All lists every persisted model; used for SQLite schema creation.
func All() []any {
	return []any{
		&User{},
		&Memorial{},
		&Condolence{},
		&Candle{},
		&Payment{},
		&Subscription{},
	}
}
