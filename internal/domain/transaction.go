package domain

import (
	"fmt"
	"strings"
	"time"
)

// TransactionTimeLayout is the transaction timestamp format of the dataset and
// the canonical form cleaned records carry on the wire.
const TransactionTimeLayout = "2006-01-02 15:04:05"

// JobCategoryOther is assigned when no keyword matches a job title.
const JobCategoryOther = "Other"

// RawRecord is one transaction exactly as ingested from the dataset.
type RawRecord struct {
	TransDateTransTime Text  `json:"trans_date_trans_time"`
	CCNum              Text  `json:"cc_num"`
	Merchant           Text  `json:"merchant"`
	Category           Text  `json:"category"`
	Amount             Float `json:"amt"`
	First              Text  `json:"first"`
	Last               Text  `json:"last"`
	Gender             Text  `json:"gender"`
	Street             Text  `json:"street"`
	City               Text  `json:"city"`
	State              Text  `json:"state"`
	Zip                Text  `json:"zip"`
	Lat                Float `json:"lat"`
	Long               Float `json:"long"`
	CityPop            Int   `json:"city_pop"`
	Job                Text  `json:"job"`
	DOB                Text  `json:"dob"`
	TransNum           Text  `json:"trans_num"`
	UnixTime           Int   `json:"unix_time"`
	MerchLat           Float `json:"merch_lat"`
	MerchLong          Float `json:"merch_long"`
	IsFraud            Bool  `json:"is_fraud"`
}

// CleanedRecord is derived 1:1 from a RawRecord with personal fields removed
// and analytics features added. JobCategory is never empty.
type CleanedRecord struct {
	TransDateTransTime Text   `json:"trans_date_trans_time"`
	Merchant           Text   `json:"merchant"`
	Category           Text   `json:"category"`
	Amount             Float  `json:"amt"`
	Gender             Text   `json:"gender"`
	City               Text   `json:"city"`
	State              Text   `json:"state"`
	Lat                Float  `json:"lat"`
	Long               Float  `json:"long"`
	TransNum           Text   `json:"trans_num"`
	UnixTime           Int    `json:"unix_time"`
	MerchLat           Float  `json:"merch_lat"`
	MerchLong          Float  `json:"merch_long"`
	IsFraud            bool   `json:"is_fraud"`
	AgeAtTransaction   Int    `json:"age_at_transaction"`
	JobCategory        string `json:"job_category"`
	Hour               Int    `json:"hour"`
	DayOfWeek          Int    `json:"day_of_week"`
	Month              Int    `json:"month"`
	Year               Int    `json:"year"`
	IsWeekend          Bool   `json:"is_weekend"`
}

// PIIColumns are removed by cleaning.
var PIIColumns = []string{"cc_num", "first", "last", "street", "zip", "dob", "job", "city_pop"}

// DerivedColumns are added by cleaning.
var DerivedColumns = []string{"age_at_transaction", "job_category", "hour", "day_of_week", "month", "year", "is_weekend"}

// ParseTransactionTime parses the dataset timestamp layout only.
func ParseTransactionTime(s string) (time.Time, error) {
	return time.Parse(TransactionTimeLayout, strings.TrimSpace(s))
}

var isoLayouts = []string{
	TransactionTimeLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02",
}

// ParseISOTime accepts the ISO-8601 variants a producer may emit for a
// timestamp, with either a space or a T separator.
func ParseISOTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised timestamp %q", ErrRecordMalformed, s)
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006",
	"2006/01/02",
}

// ParseDate parses a date of birth in any of the common dataset layouts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised date %q", ErrRecordMalformed, s)
}
