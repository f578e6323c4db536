package emitter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Kseniia567/fraud-detection-ADD/internal/domain"
)

// columnSetters assigns one dataset column to a raw record. Columns that are
// not listed here, such as an unnamed index column, are ignored.
var columnSetters = map[string]func(r *domain.RawRecord, v string){
	"trans_date_trans_time": func(r *domain.RawRecord, v string) { r.TransDateTransTime = text(v) },
	"cc_num":                func(r *domain.RawRecord, v string) { r.CCNum = text(v) },
	"merchant":              func(r *domain.RawRecord, v string) { r.Merchant = text(v) },
	"category":              func(r *domain.RawRecord, v string) { r.Category = text(v) },
	"amt":                   func(r *domain.RawRecord, v string) { r.Amount = domain.ParseFloat(v) },
	"first":                 func(r *domain.RawRecord, v string) { r.First = text(v) },
	"last":                  func(r *domain.RawRecord, v string) { r.Last = text(v) },
	"gender":                func(r *domain.RawRecord, v string) { r.Gender = text(v) },
	"street":                func(r *domain.RawRecord, v string) { r.Street = text(v) },
	"city":                  func(r *domain.RawRecord, v string) { r.City = text(v) },
	"state":                 func(r *domain.RawRecord, v string) { r.State = text(v) },
	"zip":                   func(r *domain.RawRecord, v string) { r.Zip = text(v) },
	"lat":                   func(r *domain.RawRecord, v string) { r.Lat = domain.ParseFloat(v) },
	"long":                  func(r *domain.RawRecord, v string) { r.Long = domain.ParseFloat(v) },
	"city_pop":              func(r *domain.RawRecord, v string) { r.CityPop = domain.ParseInt(v) },
	"job":                   func(r *domain.RawRecord, v string) { r.Job = text(v) },
	"dob":                   func(r *domain.RawRecord, v string) { r.DOB = text(v) },
	"trans_num":             func(r *domain.RawRecord, v string) { r.TransNum = text(v) },
	"unix_time":             func(r *domain.RawRecord, v string) { r.UnixTime = domain.ParseInt(v) },
	"merch_lat":             func(r *domain.RawRecord, v string) { r.MerchLat = domain.ParseFloat(v) },
	"merch_long":            func(r *domain.RawRecord, v string) { r.MerchLong = domain.ParseFloat(v) },
	"is_fraud":              func(r *domain.RawRecord, v string) { r.IsFraud = domain.ParseBool(v) },
}

// text maps an empty cell to null.
func text(v string) domain.Text {
	if v == "" {
		return domain.Text{}
	}
	return domain.NewText(v)
}

// ReadFile loads the whole dataset at path into memory.
func ReadFile(path string) ([]domain.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
	defer f.Close()

	records, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// ReadCSV parses a dataset with a header row. Columns are matched by header
// name; rows shorter than the header leave the missing fields null.
func ReadCSV(r io.Reader) ([]domain.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: dataset is empty", domain.ErrSourceUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %w", domain.ErrSourceUnavailable, err)
	}

	setters := make([]func(*domain.RawRecord, string), len(header))
	known := 0
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if set, ok := columnSetters[name]; ok {
			setters[i] = set
			known++
		}
	}
	if known == 0 {
		return nil, fmt.Errorf("%w: header has no dataset columns", domain.ErrSourceUnavailable)
	}

	var records []domain.RawRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", domain.ErrSourceUnavailable, line, err)
		}

		var rec domain.RawRecord
		for i, v := range row {
			if i < len(setters) && setters[i] != nil {
				setters[i](&rec, v)
			}
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: dataset has no records", domain.ErrSourceUnavailable)
	}
	return records, nil
}
