package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bqrelay/relay/config"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// MySQL 错误码：数据过长、JSON 非法
const (
	mysqlErrDataTooLong = 1406
	mysqlErrInvalidJSON = 3140
)

// EventRecord mysql 中的一行，payload 保存整行 JSON
type EventRecord struct {
	ID         uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	InsertID   string    `gorm:"column:insert_id;size:36;uniqueIndex"`
	ReceivedAt time.Time `gorm:"column:received_at;index"`
	Payload    string    `gorm:"column:payload;type:json"`
}

// MySQLSink 基于 gorm 写入 mysql
type MySQLSink struct {
	db    *gorm.DB
	table string
	newID func() string
	now   func() time.Time
}

// NewMySQLSink 连接 mysql 并确保目标表存在
func NewMySQLSink(cfg config.MySQLConfig) (*MySQLSink, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect mysql: %w", err)
	}
	if cfg.Debug {
		db = db.Debug()
	}

	if err := db.Table(cfg.Table).AutoMigrate(&EventRecord{}); err != nil {
		return nil, fmt.Errorf("migrate table %s: %w", cfg.Table, err)
	}

	return newMySQLSink(db, cfg.Table), nil
}

func newMySQLSink(db *gorm.DB, table string) *MySQLSink {
	return &MySQLSink{
		db:    db,
		table: table,
		newID: func() string { return uuid.New().String() },
		now:   time.Now,
	}
}

// records 把 payload 转成待写入的记录
func (s *MySQLSink) records(payload any) ([]EventRecord, error) {
	rows := Rows(payload)
	now := s.now().UTC()

	records := make([]EventRecord, 0, len(rows))
	for i, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return nil, NewError(http.StatusBadRequest, fmt.Sprintf("row %d is not serializable", i), err)
		}
		records = append(records, EventRecord{
			InsertID:   s.newID(),
			ReceivedAt: now,
			Payload:    string(data),
		})
	}
	return records, nil
}

func (s *MySQLSink) Insert(ctx context.Context, payload any) error {
	records, err := s.records(payload)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return NewError(http.StatusBadRequest, "nothing to insert", nil)
	}

	if err := s.db.WithContext(ctx).Table(s.table).Create(&records).Error; err != nil {
		return mysqlError(err)
	}
	return nil
}

func (s *MySQLSink) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func mysqlError(err error) error {
	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlErrDataTooLong, mysqlErrInvalidJSON:
			return NewError(http.StatusUnprocessableEntity, "row rejected by mysql", err)
		}
	}
	return NewError(0, "mysql insert failed", err)
}
