package models

// AlertTables lists the models owned by the alert pipeline, in foreign key order.
func AlertTables() []any {
	return []any{&Account{}, &TollPlaza{}, &Notification{}}
}
