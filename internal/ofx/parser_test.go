package ofx

import (
	"context"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/Veraticus/spice-forecast/internal/model"
	"github.com/aclindsa/ofxgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Sample OFX data for testing.
const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-125.00
<FITID>2024012001
<NAME>Whole Foods Market
</STMTTRN>
<STMTTRN>
<TRNTYPE>CHECK
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>-500.00
<FITID>2024012501
<CHECKNUM>1234
<NAME>CHECK #1234
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const sampleCreditCardOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>USD
<CCACCTFROM>
<ACCTID>4111111111111111
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240110120000[0:GMT]
<TRNAMT>-45.99
<FITID>CC2024011001
<NAME>AMAZON.COM*RT4Y7HG2
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-15.00
<FITID>CC2024011501
<NAME>NETFLIX.COM
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-500.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestParseFile(t *testing.T) {
	tests := []struct {
		name             string
		ofxData          string
		expectedCount    int
		expectedAccounts []string
		expectedError    bool
	}{
		{
			name:             "valid bank statement",
			ofxData:          sampleBankOFX,
			expectedCount:    3,
			expectedAccounts: []string{"1234567890"},
		},
		{
			name:             "valid credit card statement",
			ofxData:          sampleCreditCardOFX,
			expectedCount:    2,
			expectedAccounts: []string{"4111111111111111"},
		},
		{
			name:          "invalid OFX data",
			ofxData:       "not valid OFX",
			expectedError: true,
		},
		{
			name:          "empty OFX",
			ofxData:       "",
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser()
			result, err := parser.ParseFile(context.Background(), strings.NewReader(tt.ofxData))

			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, result.Transactions, tt.expectedCount)
			assert.Equal(t, tt.expectedAccounts, result.Accounts)
		})
	}
}

func TestParseFile_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewParser().ParseFile(ctx, strings.NewReader(sampleBankOFX))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseBankTransactions(t *testing.T) {
	result, err := NewParser().ParseFile(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 3)

	tx1 := result.Transactions[0]
	assert.Equal(t, "2024011501", tx1.ID)
	assert.Equal(t, "STARBUCKS STORE #1234", tx1.Description)
	assert.Equal(t, "-25.50", tx1.Amount.StringFixed(2))
	assert.Equal(t, "1234567890", tx1.AccountID)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.January, Day: 15}, tx1.Date)
	assert.Equal(t, model.SourceOFX, tx1.Source)
	assert.NotEmpty(t, tx1.Hash)

	tx2 := result.Transactions[1]
	assert.Equal(t, "Whole Foods Market", tx2.Description)
	assert.Equal(t, "-125.00", tx2.Amount.StringFixed(2))

	tx3 := result.Transactions[2]
	assert.Equal(t, "CHECK #1234", tx3.Description)
	assert.Equal(t, "-500.00", tx3.Amount.StringFixed(2))
}

func TestParseLedgerBalance(t *testing.T) {
	result, err := NewParser().ParseFile(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, result.Checkpoints, 1)

	cp := result.Checkpoints[0]
	assert.Equal(t, "1234567890", cp.AccountID)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.January, Day: 31}, cp.Date)
	assert.Equal(t, "1000.00", cp.Balance.StringFixed(2))
	assert.Equal(t, model.SourceOFX, cp.Source)

	result, err = NewParser().ParseFile(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	require.Len(t, result.Checkpoints, 1)
	assert.Equal(t, "-500.00", result.Checkpoints[0].Balance.StringFixed(2))
}

func TestParseCreditCardTransactions(t *testing.T) {
	result, err := NewParser().ParseFile(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)

	tx1 := result.Transactions[0]
	assert.Equal(t, "CC2024011001", tx1.ID)
	assert.Equal(t, "AMAZON.COM*RT4Y7HG2", tx1.Description)
	assert.Equal(t, "-45.99", tx1.Amount.StringFixed(2))
	assert.Equal(t, "4111111111111111", tx1.AccountID)

	tx2 := result.Transactions[1]
	assert.Equal(t, "NETFLIX.COM", tx2.Description)
	assert.Equal(t, "-15.00", tx2.Amount.StringFixed(2))
}

func TestExtractMerchantName(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name     string
		tx       ofxgo.Transaction
		expected string
	}{
		{"remove POS prefix", ofxgo.Transaction{Name: "POS PURCHASE STARBUCKS"}, "STARBUCKS"},
		{"remove DEBIT CARD prefix", ofxgo.Transaction{Name: "DEBIT CARD PURCHASE WHOLE FOODS"}, "WHOLE FOODS"},
		{"keep clean name", ofxgo.Transaction{Name: "NETFLIX.COM"}, "NETFLIX.COM"},
		{"trim whitespace", ofxgo.Transaction{Name: "  AMAZON.COM  "}, "AMAZON.COM"},
		{"strip posting date", ofxgo.Transaction{Name: "CHECK CARD 01/15 SHELL OIL"}, "SHELL OIL"},
		{"generic name uses memo", ofxgo.Transaction{Name: "DEBIT", Memo: "CITY WATER UTILITY"}, "CITY WATER UTILITY"},
		{"payee preferred", ofxgo.Transaction{Name: "ACH 1234", Payee: &ofxgo.Payee{Name: "Landlord LLC"}}, "Landlord LLC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parser.extractMerchantName(tt.tx))
		})
	}
}

func TestConvertTransaction_MissingFITID(t *testing.T) {
	parser := NewParser()
	tx := ofxgo.Transaction{
		Name:     "RENT",
		DtPosted: ofxgo.Date{Time: time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)},
	}
	tx.TrnAmt.SetFrac64(-150000, 100)

	first, err := parser.convertTransaction(tx, "checking")
	require.NoError(t, err)
	second, err := parser.convertTransaction(tx, "checking")
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "-1500.00", first.Amount.StringFixed(2))
}
