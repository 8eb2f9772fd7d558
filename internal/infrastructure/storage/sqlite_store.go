package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"OsintGraph/internal/domain"
	"OsintGraph/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS articles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT UNIQUE NOT NULL,
	title TEXT,
	description TEXT,
	source_name TEXT NOT NULL,
	summary TEXT,
	source_indicator TEXT NOT NULL,
	category TEXT,
	severity TEXT,
	publish_date TIMESTAMP,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS entities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	UNIQUE(name, type)
);

CREATE TABLE IF NOT EXISTS relationships (
	article_id INTEGER,
	entity_id INTEGER,
	FOREIGN KEY(article_id) REFERENCES articles(id) ON DELETE CASCADE,
	FOREIGN KEY(entity_id) REFERENCES entities(id) ON DELETE CASCADE,
	PRIMARY KEY (article_id, entity_id)
);
`

// SQLiteStore persists the article/entity graph in an embedded sqlite file.
type SQLiteStore struct {
	db *sql.DB
}

var _ ports.GraphStore = (*SQLiteStore)(nil)

// Open opens (or creates) the database at path, enables WAL and foreign
// keys, and initializes the schema.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// HasArticle reports whether the canonical URL is already recorded.
func (s *SQLiteStore) HasArticle(ctx context.Context, url string) (bool, error) {
	query, args, err := sq.Select("1").From("articles").Where(sq.Eq{"url": url}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query article %s: %w", url, err)
	}
	return true, nil
}

// InsertArticle writes the article and its entity links in one transaction.
// A duplicate URL is a no-op: the existing record wins and inserted is false.
func (s *SQLiteStore) InsertArticle(ctx context.Context, article domain.Article, entities []domain.Entity) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query, args, err := sq.Insert("articles").
		Columns("url", "title", "description", "source_name", "summary",
			"source_indicator", "category", "severity", "publish_date").
		Values(article.URL, article.Title, article.Description, article.SourceName,
			article.Summary, string(article.SourceIndicator), article.Category,
			string(article.Severity), formatDate(article.PublishDate)).
		Suffix("ON CONFLICT(url) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert article %s: %w", article.URL, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	articleID, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("last insert id: %w", err)
	}

	if err := s.linkEntities(ctx, tx, articleID, entities); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit insert: %w", err)
	}
	return true, nil
}

// UpdateArticle rewrites the record identified by article.URL and fully
// replaces its relationships (delete-then-reinsert, never merged).
// created_at is deliberately left untouched.
func (s *SQLiteStore) UpdateArticle(ctx context.Context, article domain.Article, entities []domain.Entity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query, args, err := sq.Update("articles").
		Set("title", article.Title).
		Set("description", article.Description).
		Set("summary", article.Summary).
		Set("source_indicator", string(article.SourceIndicator)).
		Set("category", article.Category).
		Set("severity", string(article.Severity)).
		Set("publish_date", formatDate(article.PublishDate)).
		Where(sq.Eq{"url": article.URL}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update article %s: %w", article.URL, err)
	}

	var articleID int64
	query, args, err = sq.Select("id").From("articles").Where(sq.Eq{"url": article.URL}).ToSql()
	if err != nil {
		return fmt.Errorf("build select: %w", err)
	}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&articleID); err != nil {
		return fmt.Errorf("lookup article %s: %w", article.URL, err)
	}

	query, args, err = sq.Delete("relationships").Where(sq.Eq{"article_id": articleID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear relationships: %w", err)
	}

	if err := s.linkEntities(ctx, tx, articleID, entities); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}
	return nil
}

// FallbackArticles lists records still tagged fallback, optionally filtered
// to one source name.
func (s *SQLiteStore) FallbackArticles(ctx context.Context, sourceName string) ([]domain.Article, error) {
	builder := sq.Select("id", "url", "title", "description", "source_name",
		"summary", "source_indicator", "category", "severity", "publish_date").
		From("articles").
		Where(sq.Eq{"source_indicator": string(domain.IndicatorFallback)}).
		OrderBy("id")
	if sourceName != "" {
		builder = builder.Where(sq.Eq{"source_name": sourceName})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fallbacks: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		var (
			a       domain.Article
			pubDate sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.URL, &a.Title, &a.Description, &a.SourceName,
			&a.Summary, &a.SourceIndicator, &a.Category, &a.Severity, &pubDate); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		a.PublishDate = parseDate(pubDate)
		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return articles, nil
}

// EntityByName returns the stored entity for (name, type), if any.
func (s *SQLiteStore) EntityByName(ctx context.Context, name string, typ domain.EntityType) (*domain.Entity, error) {
	query, args, err := sq.Select("id", "name", "type").From("entities").
		Where(sq.Eq{"name": name, "type": string(typ)}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var e domain.Entity
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&e.ID, &e.Name, &e.Type)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query entity %s: %w", name, err)
	}
	return &e, nil
}

// linkEntities upserts each entity and links it to the article. Entities are
// looked up first and inserted only when absent, so repeated mentions across
// articles share one row.
func (s *SQLiteStore) linkEntities(ctx context.Context, tx *sql.Tx, articleID int64, entities []domain.Entity) error {
	for _, entity := range entities {
		entityID, err := upsertEntity(ctx, tx, entity)
		if err != nil {
			return err
		}

		query, args, err := sq.Insert("relationships").
			Columns("article_id", "entity_id").
			Values(articleID, entityID).
			Suffix("ON CONFLICT(article_id, entity_id) DO NOTHING").
			ToSql()
		if err != nil {
			return fmt.Errorf("build link: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("link entity %s: %w", entity.Name, err)
		}
	}
	return nil
}

func upsertEntity(ctx context.Context, tx *sql.Tx, entity domain.Entity) (int64, error) {
	query, args, err := sq.Select("id").From("entities").
		Where(sq.Eq{"name": entity.Name, "type": string(entity.Type)}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build entity select: %w", err)
	}

	var id int64
	err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("lookup entity %s: %w", entity.Name, err)
	}

	query, args, err = sq.Insert("entities").Columns("name", "type").
		Values(entity.Name, string(entity.Type)).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build entity insert: %w", err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert entity %s: %w", entity.Name, err)
	}
	return res.LastInsertId()
}

func formatDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseDate(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, v.String)
	if err != nil {
		return nil
	}
	return &parsed
}
