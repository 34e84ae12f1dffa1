package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"bqrelay/relay/config"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSink 把每行写成 jsonb，表结构:
//
//	CREATE TABLE events (insert_id uuid PRIMARY KEY, payload jsonb NOT NULL, received_at timestamptz NOT NULL);
type PostgresSink struct {
	pool  *pgxpool.Pool
	query string
	newID func() string
}

// NewPostgresSink 创建连接池并检查连通性
func NewPostgresSink(ctx context.Context, cfg config.PostgresConfig) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresSink{
		pool:  pool,
		query: insertQuery(cfg.Table),
		newID: func() string { return uuid.New().String() },
	}, nil
}

// insertQuery 表名支持 schema.table 写法
func insertQuery(table string) string {
	ident := pgx.Identifier(strings.Split(table, "."))
	return fmt.Sprintf(`INSERT INTO %s (insert_id, payload, received_at) VALUES ($1, $2::jsonb, NOW())`, ident.Sanitize())
}

func (s *PostgresSink) Insert(ctx context.Context, payload any) error {
	rows := Rows(payload)
	if len(rows) == 0 {
		return NewError(http.StatusBadRequest, "nothing to insert", nil)
	}

	batch := &pgx.Batch{}
	for i, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return NewError(http.StatusBadRequest, fmt.Sprintf("row %d is not serializable", i), err)
		}
		batch.Queue(s.query, s.newID(), string(data))
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(rows); i++ {
		if _, err := results.Exec(); err != nil {
			return postgresError(fmt.Errorf("insert row #%d: %w", i, err))
		}
	}
	return nil
}

func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}

// postgresError 数据异常(22)和约束冲突(23)视为客户端数据问题
func postgresError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 {
		switch pgErr.Code[:2] {
		case "22", "23":
			return NewError(http.StatusUnprocessableEntity, "row rejected by postgres", err)
		}
	}
	return NewError(0, "postgres insert failed", err)
}
