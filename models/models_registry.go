package models

// ModelTypeRegistry lists every persisted model by type name.
var ModelTypeRegistry = map[string]interface{}{
	"BillingRun": BillingRun{},
	"Invoice":    Invoice{},
	"Payment":    Payment{},
	"Resident":   Resident{},
	"Room":       Room{},
	"RoomType":   RoomType{},
	"Tenancy":    Tenancy{},
}
