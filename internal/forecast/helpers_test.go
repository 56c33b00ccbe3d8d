package forecast

import (
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/shopspring/decimal"
)

func date(year int, month time.Month, day int) civil.Date {
	return civil.Date{Year: year, Month: month, Day: day}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func txn(id string, d civil.Date, description, amount string) model.Transaction {
	return model.Transaction{
		ID:          id,
		Date:        d,
		Description: description,
		Amount:      dec(amount),
	}
}

// literalHistory is two months of salary, rent and internet.
func literalHistory() []model.Transaction {
	return []model.Transaction{
		txn("t1", date(2025, time.January, 1), "Salary", "3000"),
		txn("t2", date(2025, time.January, 2), "Rent", "-1500"),
		txn("t3", date(2025, time.January, 15), "Internet", "-60"),
		txn("t4", date(2025, time.February, 1), "Salary", "3000"),
		txn("t5", date(2025, time.February, 2), "Rent", "-1500"),
		txn("t6", date(2025, time.February, 15), "Internet", "-60"),
	}
}

func dates(txns []model.Transaction) []civil.Date {
	out := make([]civil.Date, 0, len(txns))
	for _, t := range txns {
		out = append(out, t.Date)
	}
	return out
}

func pointStrings(points []model.CashPoint) []string {
	out := make([]string, 0, len(points))
	for _, p := range points {
		out = append(out, fmt.Sprintf("%s %s", p.BucketDate, p.Balance.StringFixed(2)))
	}
	return out
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	if !dec(want).Equal(got) {
		t.Errorf("expected %s, got %s", want, got.String())
	}
}
