package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/qacenter/qacenter/core"
	"github.com/qacenter/qacenter/core/user"
)

const usersTable = "users"

var userColumns = []string{"id", "name", "email", "username", "password_hash", "role", "created_at", "updated_at", "last_login"}

type userRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor, engine string) *userRepository {
	return &userRepository{repository: newRepository(exec, engine)}
}

func (repo userRepository) toRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        usr.Email,
		Username:     usr.Username,
		PasswordHash: string(usr.PasswordHash),
		Role:         string(usr.Role),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) fromRow(row userRow) user.User {
	return user.User{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		Username:     row.Username,
		PasswordHash: []byte(row.PasswordHash),
		Role:         user.Role(row.Role),
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
		LastLogin:    row.LastLogin.Time.UTC(),
	}
}

func (repo userRepository) query(ctx context.Context, b sq.SelectBuilder, exec []core.DBExecutor) ([]user.User, error) {
	var rows []userRow
	if err := repo.selectInto(ctx, &rows, b, exec); err != nil {
		return nil, err
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.fromRow(row))
	}
	return users, nil
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	b := repo.sb.Select("username", "email").
		From(usersTable).
		Where(sq.Or{sq.Eq{"username": username}, sq.Eq{"email": email}})
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		b = b.Where(sq.NotEq{"id": ids})
	}

	var rows []struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	if err := repo.selectInto(ctx, &rows, b.Limit(2), exec); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, row := range rows {
		if row.Username == username {
			return user.ErrUsernameExists
		}
	}
	if len(rows) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	row := repo.toRow(usr)
	b := repo.sb.Insert(usersTable).
		Columns(userColumns...).
		Values(row.ID, row.Name, row.Email, row.Username, row.PasswordHash, row.Role, row.CreatedAt, row.UpdatedAt, row.LastLogin)
	if _, err := repo.execSql(ctx, b, exec); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	b := repo.sb.Select(userColumns...).From(usersTable)

	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + core.CleanString(filter.Search, true /* lower */) + "%"
			b = b.Where(sq.Or{
				sq.Like{"LOWER(name)": val},
				sq.Like{"LOWER(username)": val},
				sq.Like{"LOWER(email)": val},
			})
		}
		if len(filter.Roles) > 0 {
			b = b.Where(sq.Eq{"role": rolesToStrings(filter.Roles)})
		}
		if len(filter.ExcludeRoles) > 0 {
			b = b.Where(sq.NotEq{"role": rolesToStrings(filter.ExcludeRoles)})
		}
		if len(filter.ExcludeIDs) > 0 {
			b = b.Where(sq.NotEq{"id": filter.ExcludeIDs})
		}
	}

	if len(ordering) > 0 {
		for _, ord := range ordering {
			b = b.OrderBy(ord.String())
		}
	} else {
		b = b.OrderBy("name ASC")
	}

	users, err := repo.query(ctx, b, exec)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	b := repo.sb.Select(userColumns...).From(usersTable).Limit(1)
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		b = b.Where(sq.Eq{"id": filter.ID})
	case filter.UsernameOrEmail != "":
		b = b.Where(sq.Or{sq.Eq{"username": filter.UsernameOrEmail}, sq.Eq{"email": filter.UsernameOrEmail}})
	default:
		return user.User{}, user.ErrNotFound
	}

	users, err := repo.query(ctx, b, exec)
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding user")
	}
	if len(users) == 0 {
		return user.User{}, user.ErrNotFound
	}
	return users[0], nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	row := repo.toRow(usr)
	b := repo.sb.Update(usersTable).
		SetMap(map[string]interface{}{
			"name":          row.Name,
			"email":         row.Email,
			"username":      row.Username,
			"password_hash": row.PasswordHash,
			"role":          row.Role,
			"updated_at":    row.UpdatedAt,
			"last_login":    row.LastLogin,
		}).
		Where(sq.Eq{"id": row.ID})
	cnt, err := repo.execSql(ctx, b, exec)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if cnt == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) HasEvaluations(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error) {
	b := repo.sb.Select("id").
		From(evaluationsTable).
		Where(sq.Or{sq.Eq{"evaluator_id": id}, sq.Eq{"evaluated_user_id": id}}).
		Limit(1)
	var rows []struct {
		ID string `db:"id"`
	}
	if err := repo.selectInto(ctx, &rows, b, exec); err != nil {
		return false, errors.Wrap(err, "checking user evaluations")
	}
	return len(rows) > 0, nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	cnt, err := repo.execSql(ctx, repo.sb.Delete(usersTable).Where(sq.Eq{"id": ids}), exec)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return int(cnt), nil
}

func rolesToStrings(roles []user.Role) []string {
	ss := make([]string, 0, len(roles))
	for _, r := range roles {
		ss = append(ss, string(r))
	}
	return ss
}
