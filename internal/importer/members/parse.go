// Package members parses member bulk import CSV files.
package members

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/parish-ledger/backend/internal/models"
	"github.com/shopspring/decimal"
)

// Columns that have to be present in the header line. All other known
// columns are optional.
var requiredColumns = []string{"names", "category", "phonenumber", "location", "monthlycontributionamount"}

// Parse parses a member import CSV file.
//
// The first line is the header and maps column names to fields, so
// column order does not matter. Parsing is all-or-nothing: the first
// invalid line fails the whole file and nothing is returned.
func Parse(f io.Reader) ([]models.Member, error) {
	reader := csv.NewReader(f)

	header, err := reader.Read()
	if err == io.EOF {
		return []models.Member{}, nil
	}
	if err != nil {
		return []models.Member{}, fmt.Errorf("could not read the CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return []models.Member{}, fmt.Errorf("the CSV header is missing the %q column", name)
		}
	}

	field := func(record []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var parsed []models.Member

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return csvReadError(reader, fmt.Errorf("could not read line in CSV: %w", err))
		}

		member := models.Member{
			Names:       field(record, "names"),
			Category:    models.MemberCategory(field(record, "category")),
			PhoneNumber: field(record, "phonenumber"),
			Location:    field(record, "location"),
			Email:       field(record, "email"),
			Gender:      field(record, "gender"),
			Age:         field(record, "age"),
			Control:     field(record, "control"),
			Status:      models.MemberStatus(field(record, "status")),
		}

		if member.Names == "" || member.PhoneNumber == "" || member.Location == "" || member.Category == "" {
			return csvReadError(reader, errors.New("names, category, phoneNumber and location must all be set"))
		}

		rawAmount := field(record, "monthlycontributionamount")
		if rawAmount == "" {
			return csvReadError(reader, errors.New("the monthly contribution amount must be set"))
		}

		amount, err := decimal.NewFromString(rawAmount)
		if err != nil {
			return csvReadError(reader, errors.New("the monthly contribution amount could not be parsed to a decimal"))
		}
		if amount.IsNegative() {
			return csvReadError(reader, models.ErrMonthlyAmountNegative)
		}
		member.MonthlyContributionAmount = amount

		if raw := field(record, "registrationdate"); raw != "" {
			date, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return csvReadError(reader, fmt.Errorf("could not parse the registration date: %w", err))
			}
			member.RegistrationDate = date
		}

		parsed = append(parsed, member)
	}

	if parsed == nil {
		parsed = []models.Member{}
	}

	return parsed, nil
}

// csvReadError wraps an error with the line of the input it occurred
// in.
func csvReadError(r *csv.Reader, err error) ([]models.Member, error) {
	// always use the first field, we are only interested in the line
	line, _ := r.FieldPos(0)

	return []models.Member{}, fmt.Errorf("error in line %d of the CSV: %w", line, err)
}
