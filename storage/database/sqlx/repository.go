package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/qacenter/qacenter/core"
	"github.com/qacenter/qacenter/storage/database"
)

// repository holds what every sqlx repository needs: a default executor and a query builder
// using the engine's placeholders.
type repository struct {
	exec core.DBExecutor
	sb   sq.StatementBuilderType
}

func newRepository(exec core.DBExecutor, engine string) repository {
	var format sq.PlaceholderFormat = sq.Dollar
	if engine == database.SQLite {
		format = sq.Question
	}
	return repository{
		exec: exec,
		sb:   sq.StatementBuilder.PlaceholderFormat(format),
	}
}

// getExec prefers the executor handed by a service (usually a *sql.Tx).
func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

func (repo repository) execSql(ctx context.Context, b sq.Sqlizer, exec []core.DBExecutor) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := repo.getExec(exec).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// selectInto runs the query and scans every row into dest, a pointer to a slice of db-tagged structs.
func (repo repository) selectInto(ctx context.Context, dest interface{}, b sq.SelectBuilder, exec []core.DBExecutor) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	rows, err := repo.getExec(exec).QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	return sqlx.StructScan(rows, dest)
}
