package walletloader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"batch_payout/internal/domain/entity"
	"batch_payout/internal/pkg/utils"
)

// DefaultMaxRows is the largest number of recipients accepted from one file.
const DefaultMaxRows = 100

// RecipientFileLoader parses "address,amount" recipient lists.
type RecipientFileLoader struct {
	maxRows    int
	loggerInfo func(msg string, args ...any)
}

// NewRecipientFileLoader creates a new RecipientFileLoader. maxRows <= 0 selects DefaultMaxRows.
func NewRecipientFileLoader(maxRows int, loggerInfo func(msg string, args ...any)) *RecipientFileLoader {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &RecipientFileLoader{maxRows: maxRows, loggerInfo: loggerInfo}
}

// LoadRecipients reads recipients from the file at path.
func (l *RecipientFileLoader) LoadRecipients(path string) ([]entity.Recipient, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recipient file %s: %w", path, err)
	}
	defer file.Close()

	recipients, err := l.ParseRecipients(file)
	if err != nil {
		return nil, err
	}
	if l.loggerInfo != nil {
		l.loggerInfo("Recipients loaded successfully from file", "count", len(recipients), "path", path)
	}
	return recipients, nil
}

// ParseRecipients reads "address,amount" rows from r. Blank lines and a header row
// (one mentioning recipientId or starting with "address") are skipped. Empty addresses are
// left for request validation to reject; malformed ones fail with the 1-based data row number.
func (l *RecipientFileLoader) ParseRecipients(r io.Reader) ([]entity.Recipient, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	records, err := reader.ReadAll()
	if err != nil {
		return nil, invalid("Error parsing CSV file. Please ensure it has the correct format: address,amount", err)
	}

	rows := make([][]string, 0, len(records))
	for _, record := range records {
		if isBlank(record) {
			continue
		}
		rows = append(rows, record)
	}
	if len(rows) > 0 && isHeader(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, invalid("CSV file contains no recipients", nil)
	}
	if len(rows) > l.maxRows {
		return nil, invalid(fmt.Sprintf("CSV contains too many rows. Maximum allowed is %d", l.maxRows), nil)
	}

	recipients := make([]entity.Recipient, 0, len(rows))
	for i, row := range rows {
		recipient := entity.Recipient{Address: strings.TrimSpace(row[0])}
		if len(row) > 1 {
			recipient.Amount = strings.TrimSpace(row[1])
		}
		if recipient.Address != "" && !utils.IsEVMAddress(recipient.Address) {
			return nil, invalid(fmt.Sprintf("Invalid Ethereum address format in row %d: %s", i+1, recipient.Address), nil)
		}
		recipients = append(recipients, recipient)
	}
	return recipients, nil
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func isHeader(record []string) bool {
	for _, cell := range record {
		if strings.Contains(cell, "recipientId") {
			return true
		}
	}
	return strings.EqualFold(strings.TrimSpace(record[0]), "address")
}

func invalid(message string, cause error) error {
	if cause == nil {
		cause = errors.New(message)
	}
	return entity.NewFlowError(entity.ErrValidation, message, cause)
}
