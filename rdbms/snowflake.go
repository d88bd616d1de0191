package rdbms

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/relloyd/deskpipe/constants"
	"github.com/relloyd/deskpipe/logger"
	sf "github.com/snowflakedb/gosnowflake"
)

type SnowflakeConnectionDetails struct {
	Account   string `errorTxt:"Snowflake account" mandatory:"yes"`
	DBName    string `errorTxt:"Snowflake db name" mandatory:"yes"`
	Schema    string `errorTxt:"Snowflake schema"`
	User      string `errorTxt:"Snowflake username" mandatory:"yes"`
	Password  string `errorTxt:"Snowflake password" mandatory:"yes"`
	Warehouse string `errorTxt:"Snowflake warehouse"`
	RoleName  string `errorTxt:"Snowflake role name"`
}

func (d SnowflakeConnectionDetails) String() string {
	return fmt.Sprintf("%v:%v@%v/%v?schema=%v&warehouse=%v&role=%v",
		d.User,
		"xxxxxxx",
		d.Account,
		d.DBName,
		d.Schema,
		d.Warehouse,
		d.RoleName,
	)
}

var snowflakeDialect = dialect{
	name:        constants.ConnectionTypeSnowflake,
	placeholder: QuestionMarkPlaceholder,
	typeNames: map[ColumnType]string{
		ColumnTypeString:    "VARCHAR",
		ColumnTypeInt64:     "NUMBER(38,0)",
		ColumnTypeFloat64:   "FLOAT",
		ColumnTypeBool:      "BOOLEAN",
		ColumnTypeTimestamp: "TIMESTAMP_TZ",
	},
	columnType: func(dataType string) ColumnType {
		switch t := strings.ToUpper(dataType); {
		case t == "NUMBER" || t == "INTEGER" || t == "BIGINT":
			return ColumnTypeInt64
		case t == "FLOAT" || t == "DOUBLE" || t == "REAL":
			return ColumnTypeFloat64
		case t == "BOOLEAN":
			return ColumnTypeBool
		case strings.HasPrefix(t, "TIMESTAMP"):
			return ColumnTypeTimestamp
		default:
			return ColumnTypeString
		}
	},
}

// NewSnowflakeSink opens the Snowflake database specified by dsn, which may have a 'snowflake://' prefix.
func NewSnowflakeSink(ctx context.Context, log logger.Logger, dsn string) (*SqlSink, error) {
	d, err := SnowflakeParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	log.Info("opening database connection: ", d)
	db, err := sql.Open("snowflake", strings.TrimPrefix(dsn, "snowflake://"))
	if err != nil {
		return nil, err
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error connecting to Snowflake: %w", err)
	}
	log.Info("Successful database connection to Snowflake.")
	return &SqlSink{log: log, db: db, dialect: snowflakeDialect}, nil
}

// SnowflakeParseDSN converts a Snowflake DSN into native connection details.
// The prefix 'snowflake://' is removed from the DSN if it exists.
func SnowflakeParseDSN(d string) (*SnowflakeConnectionDetails, error) {
	re := regexp.MustCompile("^snowflake://")
	if !re.MatchString(d) {
		return nil, errors.New("unsupported Snowflake DSN format")
	}
	cfg, err := sf.ParseDSN(strings.TrimPrefix(d, "snowflake://"))
	if err != nil {
		return nil, err
	}
	retval := &SnowflakeConnectionDetails{
		User:      cfg.User,
		Password:  cfg.Password,
		Schema:    cfg.Schema,
		DBName:    cfg.Database,
		Account:   cfg.Account,
		RoleName:  cfg.Role,
		Warehouse: cfg.Warehouse,
	}
	if cfg.Region != "" { // if region exists in the parsed config...
		retval.Account = fmt.Sprintf("%v.%v", retval.Account, cfg.Region)
	}
	return retval, nil
}
