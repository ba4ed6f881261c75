package dto

// UpsertContentRequest creates or updates a content block by key
type UpsertContentRequest struct {
	Key  string `form:"key" validate:"required,max=255"`
	Text string `form:"text" validate:"omitempty"`
}

// BotContentDTO is the public projection of a content block
type BotContentDTO struct {
	ID    uint   `json:"id"`
	Key   string `json:"key"`
	Text  string `json:"text"`
	Image string `json:"image"`
}
