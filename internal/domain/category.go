package domain

// Category is a node of the classification taxonomy. Value is the stable key
// stored on transactions; ParentID links sub categories to their parent.
type Category struct {
	ID                  int64  `json:"id"`
	Value               string `json:"value"`
	Name                string `json:"name"`
	IconName            string `json:"iconName,omitempty"`
	Color               string `json:"color,omitempty"`
	Emoji               string `json:"emoji,omitempty"`
	IsDefault           bool   `json:"isDefault"`
	IsEnabled           bool   `json:"isEnabled"`
	ParentID            *int64 `json:"parentId,omitempty"`
	ExcludeFromCashFlow bool   `json:"excludeFromCashFlow,omitempty"`
}

// CategoryPatch is a partial category update. Value is immutable once created.
type CategoryPatch struct {
	Name                *string `json:"name,omitempty"`
	IconName            *string `json:"iconName,omitempty"`
	Color               *string `json:"color,omitempty"`
	Emoji               *string `json:"emoji,omitempty"`
	IsEnabled           *bool   `json:"isEnabled,omitempty"`
	ParentID            *int64  `json:"parentId,omitempty"`
	ClearParent         bool    `json:"clearParent,omitempty"`
	ExcludeFromCashFlow *bool   `json:"excludeFromCashFlow,omitempty"`
}

// Apply merges p into c.
func (p CategoryPatch) Apply(c Category) Category {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.IconName != nil {
		c.IconName = *p.IconName
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.Emoji != nil {
		c.Emoji = *p.Emoji
	}
	if p.IsEnabled != nil {
		c.IsEnabled = *p.IsEnabled
	}
	if p.ClearParent {
		c.ParentID = nil
	} else if p.ParentID != nil {
		parent := *p.ParentID
		c.ParentID = &parent
	}
	if p.ExcludeFromCashFlow != nil {
		c.ExcludeFromCashFlow = *p.ExcludeFromCashFlow
	}
	return c
}
