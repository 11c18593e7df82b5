// Package quotes persists priced quotes. A quote is a numbered header plus
// line items; each item keeps the itemized breakdown that produced its price
// so saved quotes stay explainable after catalog prices change.
package quotes

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is one saved quote with its line items.
type Quote struct {
	ID            int64
	QuoteNumber   string
	CustomerName  string
	CustomerEmail string
	UserInitials  string
	TotalPrice    decimal.Decimal
	CreatedAt     string
	Items         []Item
}

// Item is one quoted line: a full part number or a spare part.
type Item struct {
	ID          int64
	PartNumber  string
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
	Breakdown   []string
}

// Summary is one row of a quote listing; items are not loaded.
type Summary struct {
	ID           int64
	QuoteNumber  string
	CustomerName string
	UserInitials string
	TotalPrice   decimal.Decimal
	CreatedAt    string
}

// Store reads and writes saved quotes.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// NextNumber generates the next quote number for the given initials and day.
// Numbers follow INITIALS + MMDDYY + letter; the letter increments across the
// quotes already saved that day and wraps to A past Z.
func (s *Store) NextNumber(initials string, now time.Time) (string, error) {
	base := strings.ToUpper(strings.TrimSpace(initials)) + now.Format("010206")

	var last string
	err := s.db.QueryRow(`
		SELECT quote_number
		FROM quotes
		WHERE quote_number LIKE ?
		ORDER BY quote_number DESC
		LIMIT 1
	`, base+"%").Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return base + "A", nil
	}
	if err != nil {
		return "", fmt.Errorf("query last quote number: %w", err)
	}

	letter := byte('A')
	if len(last) > len(base) {
		letter = last[len(base)] + 1
		if letter > 'Z' {
			letter = 'A'
		}
	}
	return base + string(letter), nil
}

// Save writes the quote header and all items in one transaction and fills in
// the generated IDs. Item line totals are computed from unit price and
// quantity; a quantity below one is stored as one.
func (s *Store) Save(q *Quote) error {
	if q.QuoteNumber == "" {
		return fmt.Errorf("quote number is required")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin quote transaction: %w", err)
	}

	res, err := tx.Exec(`
		INSERT INTO quotes (quote_number, customer_name, customer_email, user_initials, total_price)
		VALUES (?, ?, ?, ?, ?)
	`, q.QuoteNumber, q.CustomerName, q.CustomerEmail, q.UserInitials, q.TotalPrice.InexactFloat64())
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert quote %s: %w", q.QuoteNumber, err)
	}
	q.ID, err = res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("read quote id: %w", err)
	}

	for i := range q.Items {
		item := &q.Items[i]
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		item.LineTotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))

		breakdown, err := json.Marshal(item.Breakdown)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode breakdown for %s: %w", item.PartNumber, err)
		}

		res, err := tx.Exec(`
			INSERT INTO quote_items (quote_id, part_number, description, quantity, unit_price, line_total, breakdown)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, q.ID, item.PartNumber, item.Description, item.Quantity,
			item.UnitPrice.InexactFloat64(), item.LineTotal.InexactFloat64(), string(breakdown))
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert quote item %s: %w", item.PartNumber, err)
		}
		item.ID, err = res.LastInsertId()
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("read quote item id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit quote %s: %w", q.QuoteNumber, err)
	}
	return nil
}

// Get loads one quote with its items. The second return reports whether the
// quote number exists.
func (s *Store) Get(quoteNumber string) (Quote, bool, error) {
	var q Quote
	var total float64
	err := s.db.QueryRow(`
		SELECT id, quote_number, customer_name, customer_email, user_initials, total_price, created_at
		FROM quotes
		WHERE quote_number = ?
	`, quoteNumber).Scan(&q.ID, &q.QuoteNumber, &q.CustomerName, &q.CustomerEmail, &q.UserInitials, &total, &q.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Quote{}, false, nil
	}
	if err != nil {
		return Quote{}, false, fmt.Errorf("query quote %s: %w", quoteNumber, err)
	}
	q.TotalPrice = decimal.NewFromFloat(total)

	rows, err := s.db.Query(`
		SELECT id, part_number, description, quantity, unit_price, line_total, breakdown
		FROM quote_items
		WHERE quote_id = ?
		ORDER BY id
	`, q.ID)
	if err != nil {
		return Quote{}, false, fmt.Errorf("query quote items: %w", err)
	}
	defer rows.Close()

	q.Items = make([]Item, 0)
	for rows.Next() {
		var item Item
		var unit, line float64
		var breakdown string
		if err := rows.Scan(&item.ID, &item.PartNumber, &item.Description, &item.Quantity, &unit, &line, &breakdown); err != nil {
			return Quote{}, false, fmt.Errorf("scan quote item: %w", err)
		}
		item.UnitPrice = decimal.NewFromFloat(unit)
		item.LineTotal = decimal.NewFromFloat(line)
		if err := json.Unmarshal([]byte(breakdown), &item.Breakdown); err != nil {
			return Quote{}, false, fmt.Errorf("decode breakdown for %s: %w", item.PartNumber, err)
		}
		q.Items = append(q.Items, item)
	}
	if err := rows.Err(); err != nil {
		return Quote{}, false, fmt.Errorf("iterate quote items: %w", err)
	}

	return q, true, nil
}

// List returns quote summaries newest first. A non-empty query filters by
// substring over the quote number and customer name.
func (s *Store) List(query string) ([]Summary, error) {
	search := "%" + query + "%"
	rows, err := s.db.Query(`
		SELECT id, quote_number, customer_name, user_initials, total_price, created_at
		FROM quotes
		WHERE (? = '' OR quote_number LIKE ? OR customer_name LIKE ?)
		ORDER BY datetime(created_at) DESC, id DESC
	`, query, search, search)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	summaries := make([]Summary, 0)
	for rows.Next() {
		var sum Summary
		var total float64
		if err := rows.Scan(&sum.ID, &sum.QuoteNumber, &sum.CustomerName, &sum.UserInitials, &total, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		sum.TotalPrice = decimal.NewFromFloat(total)
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}

	return summaries, nil
}
