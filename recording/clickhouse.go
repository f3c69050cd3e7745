package recording

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/fatih/structs"
	"github.com/joho/godotenv"
	"github.com/tebeka/atexit"
)

// ClickHouseConfig holds the connection settings of a ClickHouse recorder.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string

	// BatchSize is the number of buffered rows that triggers a flush. Zero
	// selects the default.
	BatchSize int
}

// ClickHouseConfigFromEnv reads the connection settings from the SCHEDSIM_CH_*
// environment variables, loading a .env file first when one is present.
func ClickHouseConfigFromEnv() ClickHouseConfig {
	_ = godotenv.Load()

	port := 9000
	if s := os.Getenv("SCHEDSIM_CH_PORT"); s != "" {
		p, err := strconv.Atoi(s)
		if err != nil {
			panic(fmt.Errorf("invalid SCHEDSIM_CH_PORT: %w", err))
		}
		port = p
	}

	cfg := ClickHouseConfig{
		Host:     os.Getenv("SCHEDSIM_CH_HOST"),
		Port:     port,
		Database: os.Getenv("SCHEDSIM_CH_DB"),
		Username: os.Getenv("SCHEDSIM_CH_USER"),
		Password: os.Getenv("SCHEDSIM_CH_PASSWORD"),
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	if cfg.Username == "" {
		cfg.Username = "default"
	}

	return cfg
}

// clickHouseRecorder implements DataRecorder over a ClickHouse connection.
// Rows buffer in memory and ship in batches.
type clickHouseRecorder struct {
	conn      clickhouse.Conn
	batchSize int

	tables     map[string]*table
	entryCount int
}

// NewClickHouseRecorder connects to ClickHouse and returns a DataRecorder
// over it. Connection failures panic; a recorder either works or does not
// exist.
func NewClickHouseRecorder(cfg ClickHouseConfig) DataRecorder {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100000
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      time.Second * 30,
		MaxOpenConns:     5,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	})
	if err != nil {
		panic(fmt.Errorf("failed to connect to ClickHouse: %w", err))
	}

	if err := conn.Ping(context.Background()); err != nil {
		panic(fmt.Errorf("failed to ping ClickHouse: %w", err))
	}

	r := &clickHouseRecorder{
		conn:      conn,
		batchSize: cfg.BatchSize,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { r.Flush() })

	return r
}

func (r *clickHouseRecorder) CreateTable(tableName string, sampleEntry any) {
	structType := reflect.TypeOf(sampleEntry)

	cols := make([]string, 0, structType.NumField())
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		cols = append(cols,
			field.Name+" "+clickHouseType(field.Type.Kind()))
	}

	firstCol := structType.Field(0).Name
	createSQL := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s) ENGINE = MergeTree() ORDER BY %s",
		tableName, strings.Join(cols, ", "), firstCol)

	err := r.conn.Exec(context.Background(), createSQL)
	if err != nil {
		panic(fmt.Errorf("failed to create table %s: %w", tableName, err))
	}

	r.tables[tableName] = &table{
		structType: structType,
		entries:    []any{},
	}
}

func clickHouseType(kind reflect.Kind) string {
	switch kind {
	case reflect.Bool:
		return "Bool"
	case reflect.Int, reflect.Int8, reflect.Int16,
		reflect.Int32, reflect.Int64:
		return "Int64"
	case reflect.Uint, reflect.Uint8, reflect.Uint16,
		reflect.Uint32, reflect.Uint64:
		return "UInt64"
	case reflect.Float32, reflect.Float64:
		return "Float64"
	case reflect.String:
		return "String"
	default:
		panic("entry must be a flat struct of scalar fields")
	}
}

func (r *clickHouseRecorder) InsertData(tableName string, entry any) {
	table, exists := r.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	table.entries = append(table.entries, entry)

	r.entryCount++
	if r.entryCount >= r.batchSize {
		r.Flush()
	}
}

func (r *clickHouseRecorder) ListTables() []string {
	tables := make([]string, 0, len(r.tables))
	for table := range r.tables {
		tables = append(tables, table)
	}

	return tables
}

func (r *clickHouseRecorder) Flush() {
	if r.entryCount == 0 {
		return
	}

	ctx := context.Background()

	for tableName, table := range r.tables {
		if len(table.entries) == 0 {
			continue
		}

		names := structs.Names(table.entries[0])
		insertSQL := fmt.Sprintf("INSERT INTO %s (%s)",
			tableName, strings.Join(names, ", "))

		batch, err := r.conn.PrepareBatch(ctx, insertSQL)
		if err != nil {
			panic(err)
		}

		for _, entry := range table.entries {
			values := reflect.ValueOf(entry)
			row := make([]any, 0, values.NumField())
			for i := 0; i < values.NumField(); i++ {
				row = append(row, normalizeClickHouseValue(values.Field(i)))
			}

			err := batch.Append(row...)
			if err != nil {
				panic(err)
			}
		}

		err = batch.Send()
		if err != nil {
			panic(err)
		}

		table.entries = nil
	}

	r.entryCount = 0
}

// normalizeClickHouseValue widens scalars to the column types CreateTable
// declared.
func normalizeClickHouseValue(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16,
		reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16,
		reflect.Uint32, reflect.Uint64:
		return v.Uint()
	case reflect.Float32, reflect.Float64:
		return v.Float()
	default:
		return v.Interface()
	}
}

func (r *clickHouseRecorder) Close() error {
	r.Flush()
	return r.conn.Close()
}
