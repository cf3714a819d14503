package models

// Event types published to refrigerator subscribers after a change commits.
const (
	EventRefrigeratorUpdate = "refrigerator_update"
	EventCategoryUpdate     = "category_update"
	EventIngredientUpdate   = "ingredient_update"
)

// Event actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

type Event struct {
	Type           string      `json:"type"`
	Action         string      `json:"action"`
	RefrigeratorID int         `json:"refrigerator_id"`
	ActorID        string      `json:"actor_id,omitempty"`
	Data           interface{} `json:"data,omitempty"`
}
