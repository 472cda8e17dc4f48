// README: Today's rollup: counts, liters, revenue, goal progress.
package metrics

import "waterline/internal/modules/order"

// Today is a pure function of one order snapshot plus the current settings.
// It is derived, never authoritative, and recomputed from scratch on every
// snapshot.
type Today struct {
	TotalOrders     int                  `json:"totalOrders"`
	TotalLiters     float64              `json:"totalLiters"`
	ByStatus        map[order.Status]int `json:"byStatus"`
	DeliveredOrders int                  `json:"deliveredOrders"`
	DeliveredLiters float64              `json:"deliveredLiters"`

	// Revenue is zero with Priced=false until the owner configures a
	// positive price per 1000 liters.
	Revenue float64 `json:"revenue"`
	Priced  bool    `json:"priced"`

	// GoalProgress is delivered/dailyGoal capped at 1, zero with
	// GoalSet=false when no goal is configured.
	GoalProgress float64 `json:"goalProgress"`
	GoalSet      bool    `json:"goalSet"`
}
