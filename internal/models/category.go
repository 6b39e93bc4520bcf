package models

type Category struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color" yaml:"color"`
}

type CategoryWithCount struct {
	Category
	TaskCount int `json:"taskCount"`
}

type CategoryPatch struct {
	Name  *string
	Color *string
}

func (p CategoryPatch) Apply(c *Category) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
}
