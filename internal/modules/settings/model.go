// README: Business settings singleton: pricing, daily goal, and contact card.
package settings

// Settings is the single settings/app document. Read by all roles, written
// only by the owner, merged on write.
type Settings struct {
	TankCapacityLiters float64 `firestore:"tankCapacityLiters" json:"tankCapacityLiters"`
	PricePer1000       float64 `firestore:"pricePer1000" json:"pricePer1000"`
	DeliveryFee        float64 `firestore:"deliveryFee" json:"deliveryFee"`
	DailyGoal          int     `firestore:"dailyGoal" json:"dailyGoal"`

	BusinessName    string `firestore:"businessName" json:"businessName"`
	BusinessPhone   string `firestore:"businessPhone" json:"businessPhone"`
	BusinessEmail   string `firestore:"businessEmail" json:"businessEmail"`
	BusinessAddress string `firestore:"businessAddress" json:"businessAddress"`
	Whatsapp        string `firestore:"whatsapp" json:"whatsapp"`
	Hours           string `firestore:"hours" json:"hours"`
	Note            string `firestore:"note" json:"note"`
}

// Update is a partial settings write; nil fields are left untouched by the
// merge.
type Update struct {
	TankCapacityLiters *float64 `json:"tankCapacityLiters"`
	PricePer1000       *float64 `json:"pricePer1000"`
	DeliveryFee        *float64 `json:"deliveryFee"`
	DailyGoal          *int     `json:"dailyGoal"`

	BusinessName    *string `json:"businessName"`
	BusinessPhone   *string `json:"businessPhone"`
	BusinessEmail   *string `json:"businessEmail"`
	BusinessAddress *string `json:"businessAddress"`
	Whatsapp        *string `json:"whatsapp"`
	Hours           *string `json:"hours"`
	Note            *string `json:"note"`
}

// fields maps the set fields to their document paths.
func (u Update) fields() map[string]interface{} {
	m := map[string]interface{}{}
	if u.TankCapacityLiters != nil {
		m["tankCapacityLiters"] = *u.TankCapacityLiters
	}
	if u.PricePer1000 != nil {
		m["pricePer1000"] = *u.PricePer1000
	}
	if u.DeliveryFee != nil {
		m["deliveryFee"] = *u.DeliveryFee
	}
	if u.DailyGoal != nil {
		m["dailyGoal"] = *u.DailyGoal
	}
	if u.BusinessName != nil {
		m["businessName"] = *u.BusinessName
	}
	if u.BusinessPhone != nil {
		m["businessPhone"] = *u.BusinessPhone
	}
	if u.BusinessEmail != nil {
		m["businessEmail"] = *u.BusinessEmail
	}
	if u.BusinessAddress != nil {
		m["businessAddress"] = *u.BusinessAddress
	}
	if u.Whatsapp != nil {
		m["whatsapp"] = *u.Whatsapp
	}
	if u.Hours != nil {
		m["hours"] = *u.Hours
	}
	if u.Note != nil {
		m["note"] = *u.Note
	}
	return m
}
