package walletloader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"batch_payout/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	addrA = "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	addrB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func TestParseRecipients(t *testing.T) {
	input := "recipientId,amount\n" + addrA + ", 10\n\n" + addrB + ",0.5\n"

	recipients, err := NewRecipientFileLoader(0, nil).ParseRecipients(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []entity.Recipient{
		{Address: addrA, Amount: "10"},
		{Address: addrB, Amount: "0.5"},
	}, recipients)
}

func TestParseRecipients_WithoutHeader(t *testing.T) {
	recipients, err := NewRecipientFileLoader(0, nil).ParseRecipients(strings.NewReader(addrA + ",1"))
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, "1", recipients[0].Amount)
}

func TestParseRecipients_InvalidAddress(t *testing.T) {
	input := "address,amount\n" + addrA + ",1\n0x1234,2\n"

	_, err := NewRecipientFileLoader(0, nil).ParseRecipients(strings.NewReader(input))
	require.ErrorIs(t, err, entity.ErrValidation)
	assert.Equal(t, "Invalid Ethereum address format in row 2: 0x1234", err.Error())
}

func TestParseRecipients_TooManyRows(t *testing.T) {
	input := strings.Repeat(addrA+",1\n", 3)

	_, err := NewRecipientFileLoader(2, nil).ParseRecipients(strings.NewReader(input))
	require.ErrorIs(t, err, entity.ErrValidation)
	assert.Equal(t, "CSV contains too many rows. Maximum allowed is 2", err.Error())
}

func TestParseRecipients_Empty(t *testing.T) {
	_, err := NewRecipientFileLoader(0, nil).ParseRecipients(strings.NewReader("recipientId,amount\n"))
	require.ErrorIs(t, err, entity.ErrValidation)
}

func TestLoadRecipients(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payout.csv")
	require.NoError(t, os.WriteFile(path, []byte(addrB+",3\n"), 0o600))

	var logged bool
	recipients, err := NewRecipientFileLoader(0, func(string, ...any) { logged = true }).LoadRecipients(path)
	require.NoError(t, err)
	assert.Equal(t, []entity.Recipient{{Address: addrB, Amount: "3"}}, recipients)
	assert.True(t, logged)

	_, err = NewRecipientFileLoader(0, nil).LoadRecipients(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}
