package sink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bqrelay/relay/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// 单个事务最多写入的 item 数
const maxTransactItems = 100

type transactWriter interface {
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// DynamoDBSink 每行一个 item，分区键为 id。一个 payload 在一个事务里写入，要么全部成功要么全部失败
type DynamoDBSink struct {
	client transactWriter
	table  string
	newID  func() string
	now    func() time.Time
}

// NewDynamoDBSink 使用默认凭据链加载 AWS 配置
func NewDynamoDBSink(ctx context.Context, cfg config.DynamoDBConfig) (*DynamoDBSink, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return newDynamoDBSink(client, cfg.Table), nil
}

func newDynamoDBSink(client transactWriter, table string) *DynamoDBSink {
	return &DynamoDBSink{
		client: client,
		table:  table,
		newID:  func() string { return uuid.New().String() },
		now:    time.Now,
	}
}

// item 生成事务中 Put 的属性，id 和 received_at 覆盖同名字段
func (s *DynamoDBSink) item(row Row) map[string]any {
	values, _ := plainNumbers(row).(map[string]any)
	values["id"] = s.newID()
	values["received_at"] = s.now().UTC().Format(time.RFC3339Nano)
	return values
}

func (s *DynamoDBSink) Insert(ctx context.Context, payload any) error {
	rows := Rows(payload)
	if len(rows) == 0 {
		return NewError(http.StatusBadRequest, "nothing to insert", nil)
	}
	if len(rows) > maxTransactItems {
		return NewError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("at most %d rows per request", maxTransactItems), nil)
	}

	items := make([]types.TransactWriteItem, 0, len(rows))
	for i, row := range rows {
		item, err := attributevalue.MarshalMap(s.item(row))
		if err != nil {
			return NewError(http.StatusBadRequest, fmt.Sprintf("row %d cannot be marshalled", i), err)
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName: aws.String(s.table),
				Item:      item,
			},
		})
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems:      items,
		ClientRequestToken: aws.String(s.newID()),
	})
	if err != nil {
		return dynamoError(fmt.Errorf("write %d rows: %w", len(items), err))
	}
	return nil
}

func (s *DynamoDBSink) Close() error {
	return nil
}

// dynamoError 保留 AWS 返回的 HTTP 状态码
func dynamoError(err error) error {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return NewError(respErr.HTTPStatusCode(), "dynamodb rejected the insert", err)
	}
	return NewError(0, "dynamodb insert failed", err)
}
