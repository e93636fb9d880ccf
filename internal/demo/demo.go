package demo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/querykit/internal/console"
	"github.com/phrazzld/querykit/internal/domain"
	"github.com/phrazzld/querykit/internal/platform/logger"
	"github.com/phrazzld/querykit/internal/query"
	"github.com/phrazzld/querykit/internal/schema"
	"github.com/phrazzld/querykit/internal/store"
)

// PageSize is the page size of the pagination step.
const PageSize = 2

// errDiscard makes the rollback step's transaction body fail on purpose.
var errDiscard = errors.New("discarding demo transaction")

// ErrUnexpected reports a step whose outcome differs from the script.
var ErrUnexpected = errors.New("demo step produced an unexpected result")

type walkthrough struct {
	st     store.Store
	out    *console.Renderer
	logger *slog.Logger
}

// Run performs the walkthrough against st, narrating through out. It expects
// an empty dataset and leaves one behind.
func Run(ctx context.Context, st store.Store, out *console.Renderer) error {
	w := &walkthrough{
		st:     st,
		out:    out,
		logger: logger.FromContext(ctx).With(slog.String("component", "demo")),
	}

	steps := []struct {
		title string
		run   func(context.Context) error
	}{
		{"Seeding categories and users", w.seed},
		{"Inserting a batch with a duplicate email", w.duplicateBatch},
		{"Filtering", w.filter},
		{fmt.Sprintf("Paginating users, %d per page", PageSize), w.paginate},
		{"Updating minors to age 18", w.update},
		{"Tasks joined with their categories", w.join},
		{"Committed transaction", w.commit},
		{"Rolled back transaction", w.rollback},
		{"Deleting a category", w.deleteCategory},
		{"Cleaning up", w.cleanup},
	}
	for i, step := range steps {
		w.out.Title(fmt.Sprintf("%d. %s", i+1, step.title))
		w.logger.Debug("running demo step", slog.Int("step", i+1), slog.String("title", step.title))
		if err := step.run(ctx); err != nil {
			return fmt.Errorf("demo step %d (%s): %w", i+1, step.title, err)
		}
	}
	return nil
}

func (w *walkthrough) show(e *schema.Entity, recs []schema.Record) error {
	return w.out.Records(e.FieldNames(), recs)
}

func (w *walkthrough) seed(ctx context.Context) error {
	var categories []schema.ChangeSet
	for _, name := range []string{"Work", "Personal"} {
		c, err := domain.NewCategory(name)
		if err != nil {
			return err
		}
		cs, err := c.Changes()
		if err != nil {
			return err
		}
		categories = append(categories, cs)
	}
	created, err := w.insert(ctx, schema.Categories, categories...)
	if err != nil {
		return err
	}
	if err := w.show(schema.Categories, created); err != nil {
		return err
	}

	users, err := userChanges(
		domain.User{Username: "alice", Email: "alice@example.com", Age: 30},
		domain.User{Username: "bob", Email: "bob@example.org", Age: 17},
		domain.User{Username: "carol", Email: "carol@example.com", Age: 45},
		domain.User{Username: "dave", Email: "dave@example.net", Age: 22},
		domain.User{Username: "eve", Email: "eve@example.com", Age: 15},
	)
	if err != nil {
		return err
	}
	created, err = w.insert(ctx, schema.Users, users...)
	if err != nil {
		return err
	}
	return w.show(schema.Users, created)
}

func userChanges(users ...domain.User) ([]schema.ChangeSet, error) {
	out := make([]schema.ChangeSet, 0, len(users))
	for _, u := range users {
		cs, err := u.Changes()
		if err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, nil
}

func (w *walkthrough) insert(ctx context.Context, e *schema.Entity, rows ...schema.ChangeSet) ([]schema.Record, error) {
	stmt, err := query.NewInsert(e, rows...)
	if err != nil {
		return nil, err
	}
	return w.st.Insert(ctx, stmt)
}

func (w *walkthrough) find(ctx context.Context, e *schema.Entity, opts ...query.Option) ([]schema.Record, error) {
	stmt, err := query.NewSelect(e, opts...)
	if err != nil {
		return nil, err
	}
	return w.st.Find(ctx, stmt)
}

func (w *walkthrough) duplicateBatch(ctx context.Context) error {
	users, err := userChanges(
		domain.User{Username: "frank", Email: "frank@example.com", Age: 28},
		domain.User{Username: "mallory", Email: "alice@example.com", Age: 33},
	)
	if err != nil {
		return err
	}
	_, err = w.insert(ctx, schema.Users, users...)
	if !errors.Is(err, store.ErrDuplicate) {
		return fmt.Errorf("%w: duplicate batch returned %v", ErrUnexpected, err)
	}
	if err := w.out.Error(err); err != nil {
		return err
	}

	frank, err := w.find(ctx, schema.Users, query.Where(query.Must(query.On(schema.Users).Eq("username", "frank"))))
	if err != nil {
		return err
	}
	if len(frank) != 0 {
		return fmt.Errorf("%w: half of a failed batch was stored", ErrUnexpected)
	}
	w.out.Note("no user of the failed batch was stored")
	return nil
}

func (w *walkthrough) filter(ctx context.Context) error {
	u := query.On(schema.Users)

	w.out.Note("email contains %q", "example.com")
	recs, err := w.find(ctx, schema.Users, query.Where(query.Must(u.Contains("email", "example.com"))))
	if err != nil {
		return err
	}
	if err := w.show(schema.Users, recs); err != nil {
		return err
	}

	w.out.Note("18 <= age <= 40")
	adults, err := query.And(query.Must(u.Gte("age", 18)), query.Must(u.Lte("age", 40)))
	if err != nil {
		return err
	}
	recs, err = w.find(ctx, schema.Users, query.Where(adults), query.OrderBy("age", query.Asc))
	if err != nil {
		return err
	}
	if err := w.show(schema.Users, recs); err != nil {
		return err
	}

	w.out.Note("username = eve or age > 40")
	either, err := query.Or(query.Must(u.Eq("username", "eve")), query.Must(u.Gt("age", 40)))
	if err != nil {
		return err
	}
	recs, err = w.find(ctx, schema.Users, query.Where(either))
	if err != nil {
		return err
	}
	return w.show(schema.Users, recs)
}

func (w *walkthrough) paginate(ctx context.Context) error {
	for page := 0; ; page++ {
		recs, err := w.find(ctx, schema.Users,
			query.OrderBy("username", query.Asc),
			query.Limit(PageSize),
			query.Offset(page*PageSize))
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			w.out.Note("page %d is empty", page+1)
			return nil
		}
		w.out.Note("page %d", page+1)
		if err := w.show(schema.Users, recs); err != nil {
			return err
		}
	}
}

func (w *walkthrough) update(ctx context.Context) error {
	changes, err := schema.NewChangeSet(schema.Users, map[string]any{"age": 18})
	if err != nil {
		return err
	}
	stmt, err := query.NewUpdate(changes, query.Must(query.On(schema.Users).Lt("age", 18)))
	if err != nil {
		return err
	}
	recs, err := w.st.Update(ctx, stmt)
	if err != nil {
		return err
	}
	return w.show(schema.Users, recs)
}

func (w *walkthrough) categoryID(ctx context.Context, name string) (int64, error) {
	recs, err := w.find(ctx, schema.Categories,
		query.Where(query.Must(query.On(schema.Categories).Eq("name", name))))
	if err != nil {
		return 0, err
	}
	if len(recs) != 1 {
		return 0, fmt.Errorf("%w: category %q matched %d records", ErrUnexpected, name, len(recs))
	}
	cats, err := domain.Decode(recs, domain.CategoryFromRecord)
	if err != nil {
		return 0, err
	}
	return cats[0].ID, nil
}

func (w *walkthrough) join(ctx context.Context) error {
	work, err := w.categoryID(ctx, "Work")
	if err != nil {
		return err
	}
	personal, err := w.categoryID(ctx, "Personal")
	if err != nil {
		return err
	}

	var rows []schema.ChangeSet
	for _, seed := range []struct {
		title    string
		category *int64
	}{
		{"Write report", &work},
		{"Buy groceries", &personal},
		{"Read a book", nil},
	} {
		t, err := domain.NewTask(seed.title, seed.category)
		if err != nil {
			return err
		}
		cs, err := t.Changes()
		if err != nil {
			return err
		}
		rows = append(rows, cs)
	}
	if _, err := w.insert(ctx, schema.Tasks, rows...); err != nil {
		return err
	}
	return w.showTasks(ctx)
}

func (w *walkthrough) showTasks(ctx context.Context) error {
	stmt, err := query.NewJoin(schema.Tasks, schema.Categories,
		query.JoinOn("category_id", "id"),
		[]query.Column{
			query.Primary("id"),
			query.Primary("title"),
			query.Primary("done"),
			query.Joined("name").As("category"),
		},
		query.OrderBy("id", query.Asc))
	if err != nil {
		return err
	}
	recs, err := w.st.FindWithJoin(ctx, stmt)
	if err != nil {
		return err
	}
	return w.out.Records(stmt.ColumnNames(), recs)
}

// commit creates a category and a task filed under it in one transaction,
// using the identity the first insert returned.
func (w *walkthrough) commit(ctx context.Context) error {
	err := w.st.RunInTransaction(ctx, func(ctx context.Context, tx store.Executor) error {
		c, err := domain.NewCategory("Errands")
		if err != nil {
			return err
		}
		cs, err := c.Changes()
		if err != nil {
			return err
		}
		stmt, err := query.NewInsert(schema.Categories, cs)
		if err != nil {
			return err
		}
		created, err := tx.Insert(ctx, stmt)
		if err != nil {
			return err
		}
		cats, err := domain.Decode(created, domain.CategoryFromRecord)
		if err != nil {
			return err
		}

		t, err := domain.NewTask("Post letters", &cats[0].ID)
		if err != nil {
			return err
		}
		ts, err := t.Changes()
		if err != nil {
			return err
		}
		stmt, err = query.NewInsert(schema.Tasks, ts)
		if err != nil {
			return err
		}
		_, err = tx.Insert(ctx, stmt)
		return err
	})
	if err != nil {
		return err
	}
	w.out.Note("committed category Errands with its first task")
	return w.showTasks(ctx)
}

func (w *walkthrough) rollback(ctx context.Context) error {
	err := w.st.RunInTransaction(ctx, func(ctx context.Context, tx store.Executor) error {
		users, err := userChanges(domain.User{Username: "temp", Email: "temp@example.com", Age: 50})
		if err != nil {
			return err
		}
		stmt, err := query.NewInsert(schema.Users, users...)
		if err != nil {
			return err
		}
		if _, err := tx.Insert(ctx, stmt); err != nil {
			return err
		}
		return errDiscard
	})
	if !errors.Is(err, store.ErrTransactionAborted) || !errors.Is(err, errDiscard) {
		return fmt.Errorf("%w: rollback step returned %v", ErrUnexpected, err)
	}

	recs, err := w.find(ctx, schema.Users,
		query.Where(query.Must(query.On(schema.Users).Eq("username", "temp"))))
	if err != nil {
		return err
	}
	if len(recs) != 0 {
		return fmt.Errorf("%w: rolled back user is visible", ErrUnexpected)
	}
	w.out.Note("user temp was inserted and rolled back; it is not stored")
	return nil
}

func (w *walkthrough) deleteCategory(ctx context.Context) error {
	stmt, err := query.NewDelete(query.Must(query.On(schema.Categories).Eq("name", "Personal")))
	if err != nil {
		return err
	}
	recs, err := w.st.Delete(ctx, stmt)
	if err != nil {
		return err
	}
	if err := w.show(schema.Categories, recs); err != nil {
		return err
	}
	w.out.Note("tasks of a deleted category keep existing without a category")
	return w.showTasks(ctx)
}

func (w *walkthrough) cleanup(ctx context.Context) error {
	for _, e := range []*schema.Entity{schema.Tasks, schema.Categories, schema.Users} {
		stmt, err := query.NewDeleteAll(e)
		if err != nil {
			return err
		}
		recs, err := w.st.Delete(ctx, stmt)
		if err != nil {
			return err
		}
		w.out.Note("deleted %d %s", len(recs), e.Table())
	}
	return nil
}
