package domain

import "time"

// Category classifies tickets. Only existence checks matter to the
// lifecycle engine; category management is a separate concern.
type Category struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// SubCategory refines a Category.
type SubCategory struct {
	ID         string
	CategoryID string
	Name       string
	CreatedAt  time.Time
}
