package store

import (
	"context"
	"database/sql"
	"errors"

	"graphd/internal/model"
)

// SQLiteCatalog stores categories, types and users.
type SQLiteCatalog struct {
	db *DB
}

var _ CatalogRepository = (*SQLiteCatalog)(nil)

// NewCatalogRepository returns the catalog repository on db.
func NewCatalogRepository(db *DB) *SQLiteCatalog {
	return &SQLiteCatalog{db: db}
}

func (r *SQLiteCatalog) InsertCategory(ctx context.Context, c model.Category) error {
	_, err := r.db.conn(ctx).ExecContext(ctx,
		`INSERT INTO categories (id, name, shape, width, height) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Shape, c.Width, c.Height)
	if err != nil {
		return dbError("insert category", c.ID, err)
	}
	return nil
}

func (r *SQLiteCatalog) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	var c model.Category
	err := r.db.conn(ctx).QueryRowContext(ctx,
		`SELECT id, name, shape, width, height FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Shape, &c.Width, &c.Height)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError("get category", id, err)
	}
	return &c, nil
}

func (r *SQLiteCatalog) GetCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx,
		`SELECT id, name, shape, width, height FROM categories ORDER BY rowid`)
	if err != nil {
		return nil, dbError("get categories", "", err)
	}
	defer rows.Close()
	out := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Shape, &c.Width, &c.Height); err != nil {
			return nil, dbError("get categories", "", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("get categories", "", err)
	}
	return out, nil
}

func (r *SQLiteCatalog) UpdateCategory(ctx context.Context, c model.Category) (bool, error) {
	res, err := r.db.conn(ctx).ExecContext(ctx,
		`UPDATE categories SET name = ?, shape = ?, width = ?, height = ? WHERE id = ?`,
		c.Name, c.Shape, c.Width, c.Height, c.ID)
	if err != nil {
		return false, dbError("update category", c.ID, err)
	}
	return affected(res)
}

func (r *SQLiteCatalog) DeleteCategory(ctx context.Context, id string) (bool, error) {
	res, err := r.db.conn(ctx).ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return false, dbError("delete category", id, err)
	}
	return affected(res)
}

func (r *SQLiteCatalog) InsertType(ctx context.Context, t model.Type) error {
	_, err := r.db.conn(ctx).ExecContext(ctx, `INSERT INTO types (id, name) VALUES (?, ?)`, t.ID, t.Name)
	if err != nil {
		return dbError("insert type", t.ID, err)
	}
	return nil
}

func (r *SQLiteCatalog) GetType(ctx context.Context, id string) (*model.Type, error) {
	var t model.Type
	err := r.db.conn(ctx).QueryRowContext(ctx, `SELECT id, name FROM types WHERE id = ?`, id).Scan(&t.ID, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError("get type", id, err)
	}
	return &t, nil
}

func (r *SQLiteCatalog) GetTypes(ctx context.Context) ([]model.Type, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx, `SELECT id, name FROM types ORDER BY rowid`)
	if err != nil {
		return nil, dbError("get types", "", err)
	}
	defer rows.Close()
	out := []model.Type{}
	for rows.Next() {
		var t model.Type
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, dbError("get types", "", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("get types", "", err)
	}
	return out, nil
}

func (r *SQLiteCatalog) UpdateType(ctx context.Context, t model.Type) (bool, error) {
	res, err := r.db.conn(ctx).ExecContext(ctx, `UPDATE types SET name = ? WHERE id = ?`, t.Name, t.ID)
	if err != nil {
		return false, dbError("update type", t.ID, err)
	}
	return affected(res)
}

func (r *SQLiteCatalog) DeleteType(ctx context.Context, id string) (bool, error) {
	res, err := r.db.conn(ctx).ExecContext(ctx, `DELETE FROM types WHERE id = ?`, id)
	if err != nil {
		return false, dbError("delete type", id, err)
	}
	return affected(res)
}

func (r *SQLiteCatalog) InsertUser(ctx context.Context, u model.User) error {
	_, err := r.db.conn(ctx).ExecContext(ctx, `INSERT INTO users (id, user_group) VALUES (?, ?)`, u.ID, string(u.Group))
	if err != nil {
		return dbError("insert user", u.ID, err)
	}
	return nil
}

func (r *SQLiteCatalog) GetUser(ctx context.Context, id string) (*model.User, error) {
	var (
		u     model.User
		group string
	)
	err := r.db.conn(ctx).QueryRowContext(ctx, `SELECT id, user_group FROM users WHERE id = ?`, id).Scan(&u.ID, &group)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError("get user", id, err)
	}
	u.Group = model.Group(group)
	return &u, nil
}

func (r *SQLiteCatalog) UpdateUser(ctx context.Context, u model.User) (bool, error) {
	res, err := r.db.conn(ctx).ExecContext(ctx, `UPDATE users SET user_group = ? WHERE id = ?`, string(u.Group), u.ID)
	if err != nil {
		return false, dbError("update user", u.ID, err)
	}
	return affected(res)
}
