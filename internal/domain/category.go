package domain

import "github.com/phrazzld/querykit/internal/schema"

// Category groups tasks. Names are unique.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name" validate:"required,max=100"`
}

// NewCategory creates a Category that has not been stored yet.
func NewCategory(name string) (*Category, error) {
	c := &Category{Name: name}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks if the Category has valid data.
func (c *Category) Validate() error {
	return validateStruct("Category", c)
}

// Changes returns the change set that creates the category.
func (c *Category) Changes() (schema.ChangeSet, error) {
	if err := c.Validate(); err != nil {
		return schema.ChangeSet{}, err
	}
	return schema.NewChangeSet(schema.Categories, map[string]any{"name": c.Name})
}

// CategoryFromRecord decodes a Category record.
func CategoryFromRecord(r schema.Record) (Category, error) {
	id, err := requireInt(r, "id")
	if err != nil {
		return Category{}, err
	}
	name, err := requireString(r, "name")
	if err != nil {
		return Category{}, err
	}
	return Category{ID: id, Name: name}, nil
}
