package schema

// The entities every querykit store carries.
var (
	Users = MustEntity("User", "users",
		Field{Name: "id", Type: Integer, Identity: true, Unique: true},
		Field{Name: "username", Type: String, Unique: true},
		Field{Name: "email", Type: String, Unique: true},
		Field{Name: "age", Type: Integer, Default: int64(0)},
	)

	Categories = MustEntity("Category", "categories",
		Field{Name: "id", Type: Integer, Identity: true, Unique: true},
		Field{Name: "name", Type: String, Unique: true},
	)

	Tasks = MustEntity("Task", "tasks",
		Field{Name: "id", Type: Integer, Identity: true, Unique: true},
		Field{Name: "title", Type: String},
		Field{Name: "done", Type: Boolean, Default: false},
		Field{Name: "created_at", Type: Timestamp, Default: DefaultNow},
		Field{Name: "category_id", Type: Integer, Nullable: true,
			References: &Reference{Entity: "Category", Field: "id", OnDelete: SetNull}},
	)
)

var defaultRegistry = mustRegistry(Users, Categories, Tasks)

// Default returns the registry holding User, Category and Task.
func Default() *Registry {
	return defaultRegistry
}

func mustRegistry(entities ...*Entity) *Registry {
	r, err := NewRegistry(entities...)
	if err != nil {
		panic(err)
	}
	return r
}
