package domain

import (
	"time"

	"github.com/phrazzld/querykit/internal/schema"
)

// Task is a to-do item, optionally filed under a Category.
// CreatedAt is assigned by the store.
type Task struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"       validate:"required,max=200"`
	Done       bool      `json:"done"`
	CreatedAt  time.Time `json:"created_at"`
	CategoryID *int64    `json:"category_id" validate:"omitnil,gt=0"`
}

// NewTask creates a Task that has not been stored yet. A nil categoryID
// leaves the task uncategorized.
func NewTask(title string, categoryID *int64) (*Task, error) {
	t := &Task{Title: title, CategoryID: categoryID}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	return validateStruct("Task", t)
}

// Changes returns the change set that creates the task. CreatedAt is left
// to the store default.
func (t *Task) Changes() (schema.ChangeSet, error) {
	if err := t.Validate(); err != nil {
		return schema.ChangeSet{}, err
	}
	values := map[string]any{
		"title": t.Title,
		"done":  t.Done,
	}
	if t.CategoryID != nil {
		values["category_id"] = *t.CategoryID
	}
	return schema.NewChangeSet(schema.Tasks, values)
}

// TaskFromRecord decodes a Task record.
func TaskFromRecord(r schema.Record) (Task, error) {
	var (
		t   Task
		err error
	)
	if t.ID, err = requireInt(r, "id"); err != nil {
		return Task{}, err
	}
	if t.Title, err = requireString(r, "title"); err != nil {
		return Task{}, err
	}
	if t.Done, err = requireBool(r, "done"); err != nil {
		return Task{}, err
	}
	if t.CreatedAt, err = requireTime(r, "created_at"); err != nil {
		return Task{}, err
	}
	if t.CategoryID, err = optionalInt(r, "category_id"); err != nil {
		return Task{}, err
	}
	return t, nil
}
