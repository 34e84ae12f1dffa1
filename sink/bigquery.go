package sink

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"bqrelay/relay/config"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// BigQuerySink 通过 streaming insert 写入 BigQuery 表
type BigQuerySink struct {
	client   *bigquery.Client
	inserter rowPutter
	newID    func() string
}

type rowPutter interface {
	Put(ctx context.Context, src interface{}) error
}

// NewBigQuerySink 创建 BigQuery 客户端，未配置密钥文件时使用默认凭据
func NewBigQuerySink(ctx context.Context, cfg config.BigQueryConfig) (*BigQuerySink, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := bigquery.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}

	inserter := client.Dataset(cfg.DatasetID).Table(cfg.TableID).Inserter()
	// 表结构之外的字段直接忽略，而不是整行拒绝
	inserter.IgnoreUnknownValues = true

	return &BigQuerySink{
		client:   client,
		inserter: inserter,
		newID:    func() string { return uuid.New().String() },
	}, nil
}

func (s *BigQuerySink) Insert(ctx context.Context, payload any) error {
	rows := Rows(payload)
	if len(rows) == 0 {
		return NewError(http.StatusBadRequest, "nothing to insert", nil)
	}

	savers := make([]bigquery.ValueSaver, 0, len(rows))
	for _, row := range rows {
		savers = append(savers, &rowSaver{row: row, insertID: s.newID()})
	}

	if err := s.inserter.Put(ctx, savers); err != nil {
		return bigQueryError(err)
	}
	return nil
}

func (s *BigQuerySink) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// rowSaver 把一行数据交给 BigQuery，insertID 用于服务端去重
type rowSaver struct {
	row      Row
	insertID string
}

func (r *rowSaver) Save() (map[string]bigquery.Value, string, error) {
	values := make(map[string]bigquery.Value, len(r.row))
	for k, v := range r.row {
		values[k] = v
	}
	return values, r.insertID, nil
}

// bigQueryError API 错误保留状态码，行级错误没有状态码
func bigQueryError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return NewError(apiErr.Code, "bigquery rejected the insert", err)
	}

	var multi bigquery.PutMultiError
	if errors.As(err, &multi) {
		return NewError(0, fmt.Sprintf("bigquery rejected %d row(s)", len(multi)), err)
	}

	return NewError(0, "bigquery insert failed", err)
}
