package postgres

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Kseniia567/fraud-detection-ADD/internal/domain"
)

// maxBindParameters is PostgreSQL's limit on bind parameters per statement.
const maxBindParameters = 65535

var rawColumns = []string{
	"cc_num", "first", "last", "transaction_time",
	"category", "amount", "merchant", "merchant_latitude",
	"merchant_longitude", "job", "zip", "gender", "city", "city_pop",
	"state", "latitude", "longitude", "unix_time", "is_fraud",
}

var processedColumns = []string{
	"merchant", "transaction_time", "category", "job_category", "amt",
	"gender", "city", "state", "is_fraud", "hour", "age_at_transaction",
	"day_of_week", "month", "is_weekend", "year", "lat", "long",
}

// rawRow maps a raw record onto rawColumns. Only an unreadable
// transaction time makes the record unusable.
func rawRow(r domain.RawRecord) ([]any, error) {
	txTime, err := bindTime(r.TransDateTransTime)
	if err != nil {
		return nil, err
	}

	var isFraud any
	if r.IsFraud.Valid {
		isFraud = 0
		if r.IsFraud.Bool {
			isFraud = 1
		}
	}

	return []any{
		r.CCNum.SQLValue(),
		r.First.SQLValue(),
		r.Last.SQLValue(),
		txTime,
		r.Category.SQLValue(),
		r.Amount.SQLValue(),
		r.Merchant.SQLValue(),
		r.MerchLat.SQLValue(),
		r.MerchLong.SQLValue(),
		r.Job.SQLValue(),
		r.Zip.SQLValue(),
		r.Gender.SQLValue(),
		r.City.SQLValue(),
		r.CityPop.SQLValue(),
		r.State.SQLValue(),
		r.Lat.SQLValue(),
		r.Long.SQLValue(),
		r.UnixTime.SQLValue(),
		isFraud,
	}, nil
}

// processedRow maps a cleaned record onto processedColumns. An absent job
// category defaults to "Other".
func processedRow(r domain.CleanedRecord) ([]any, error) {
	txTime, err := bindTime(r.TransDateTransTime)
	if err != nil {
		return nil, err
	}

	jobCategory := strings.TrimSpace(r.JobCategory)
	if jobCategory == "" {
		jobCategory = domain.JobCategoryOther
	}

	return []any{
		r.Merchant.SQLValue(),
		txTime,
		r.Category.SQLValue(),
		jobCategory,
		r.Amount.SQLValue(),
		r.Gender.SQLValue(),
		r.City.SQLValue(),
		r.State.SQLValue(),
		r.IsFraud,
		r.Hour.SQLValue(),
		r.AgeAtTransaction.SQLValue(),
		r.DayOfWeek.SQLValue(),
		r.Month.SQLValue(),
		r.IsWeekend.SQLValue(),
		r.Year.SQLValue(),
		r.Lat.SQLValue(),
		r.Long.SQLValue(),
	}, nil
}

func bindTime(v domain.Text) (any, error) {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil, nil
	}
	t, err := domain.ParseISOTime(v.String)
	if err != nil {
		return nil, fmt.Errorf("transaction time: %w", err)
	}
	return t.UTC().Truncate(time.Microsecond), nil
}

// buildInsert renders one multi-row INSERT for rows, numbering the bind
// parameters in row-major order.
func buildInsert(table string, columns []string, rows [][]any) (string, []any) {
	var sb strings.Builder
	args := make([]any, 0, len(rows)*len(columns))

	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(") VALUES ")

	n := 1
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j := range columns {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			n++
		}
		sb.WriteByte(')')
		args = append(args, row...)
	}

	return sb.String(), args
}

// chunkRows splits rows so that no statement exceeds the bind parameter limit.
func chunkRows(rows [][]any, columnCount int) [][][]any {
	perStatement := maxBindParameters / columnCount
	var chunks [][][]any
	for start := 0; start < len(rows); start += perStatement {
		end := start + perStatement
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, rows[start:end])
	}
	return chunks
}
