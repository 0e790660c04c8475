package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/postgres"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresSource reads documents from a table with id, title and
// description columns, ordered by id.
type PostgresSource struct {
	client *postgres.Client
	table  string
	logger *slog.Logger
}

func NewPostgresSource(client *postgres.Client, table string) (*PostgresSource, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid corpus table name %q", table)
	}
	return &PostgresSource{
		client: client,
		table:  table,
		logger: slog.Default().With("component", "corpus-postgres"),
	}, nil
}

func (p *PostgresSource) Documents(ctx context.Context) ([]Document, error) {
	query := fmt.Sprintf(`SELECT id, title, COALESCE(description, '') FROM %s ORDER BY id`, p.table)
	rows, err := p.client.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying corpus table %s: %w", p.table, err)
	}
	defer rows.Close()

	docs := make([]Document, 0, 256)
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Title, &d.Description); err != nil {
			return nil, fmt.Errorf("scanning corpus row: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating corpus rows: %w", err)
	}
	p.logger.Info("corpus loaded", "table", p.table, "documents", len(docs))
	return docs, nil
}
