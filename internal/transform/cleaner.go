package transform

import (
	"time"

	"github.com/Kseniia567/fraud-detection-ADD/internal/domain"
)

// Cleaner turns raw batches into cleaned batches. It is stateless apart from
// its category table and safe for concurrent use.
type Cleaner struct {
	categories CategoryTable
}

// NewCleaner creates a cleaner; a nil or empty table selects the defaults.
func NewCleaner(categories CategoryTable) *Cleaner {
	if len(categories) == 0 {
		categories = DefaultCategories()
	}
	return &Cleaner{categories: categories}
}

// Categories returns the table the cleaner classifies with.
func (c *Cleaner) Categories() CategoryTable {
	return c.categories
}

// Clean deduplicates the batch and derives one cleaned record per remaining
// raw record, in order. The input is not modified.
func (c *Cleaner) Clean(batch []domain.RawRecord) []domain.CleanedRecord {
	unique := Dedupe(batch)
	out := make([]domain.CleanedRecord, 0, len(unique))
	for _, r := range unique {
		out = append(out, c.CleanRecord(r))
	}
	return out
}

// CleanRecord never fails: fields that cannot be derived are left null.
func (c *Cleaner) CleanRecord(r domain.RawRecord) domain.CleanedRecord {
	txTime, txOK := parseTransactionTime(r.TransDateTransTime)
	dob, dobOK := parseDOB(r.DOB)

	var age domain.Int
	if txOK && dobOK {
		age = domain.NewInt(int64(AgeAt(dob, txTime)))
	}

	var canonical domain.Text
	if txOK {
		canonical = domain.NewText(txTime.Format(domain.TransactionTimeLayout))
	}

	features := ExtractTimeFeatures(txTime, txOK)

	return domain.CleanedRecord{
		TransDateTransTime: canonical,
		Merchant:           r.Merchant,
		Category:           r.Category,
		Amount:             r.Amount,
		Gender:             r.Gender,
		City:               r.City,
		State:              r.State,
		Lat:                r.Lat,
		Long:               r.Long,
		TransNum:           r.TransNum,
		UnixTime:           r.UnixTime,
		MerchLat:           r.MerchLat,
		MerchLong:          r.MerchLong,
		IsFraud:            r.IsFraud.Valid && r.IsFraud.Bool,
		AgeAtTransaction:   age,
		JobCategory:        c.categories.Classify(r.Job),
		Hour:               features.Hour,
		DayOfWeek:          features.DayOfWeek,
		Month:              features.Month,
		Year:               features.Year,
		IsWeekend:          features.IsWeekend,
	}
}

// Dedupe drops exact duplicates, keeping the first occurrence of each record.
func Dedupe(batch []domain.RawRecord) []domain.RawRecord {
	seen := make(map[domain.RawRecord]struct{}, len(batch))
	out := make([]domain.RawRecord, 0, len(batch))
	for _, r := range batch {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

func parseTransactionTime(v domain.Text) (time.Time, bool) {
	if !v.Valid {
		return time.Time{}, false
	}
	t, err := domain.ParseTransactionTime(v.String)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func parseDOB(v domain.Text) (time.Time, bool) {
	if !v.Valid {
		return time.Time{}, false
	}
	t, err := domain.ParseDate(v.String)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
