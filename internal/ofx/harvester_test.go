package ofx

import (
	"context"
	"strings"
	"testing"

	"github.com/aclindsa/ofxgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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
<DTPOSTED>20240105120000[0:GMT]
<TRNAMT>-850.00
<FITID>2024010501
<NAME>ACH DEBIT DAVID BROWN
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240112120000[0:GMT]
<TRNAMT>-850.00
<FITID>2024011201
<NAME>DAVID BROWN
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-92.14
<FITID>2024011501
<NAME>CITY UTILITIES
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
<NAME>ACME INSURANCE CO
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240118120000[0:GMT]
<TRNAMT>-30.00
<FITID>CC2024011801
<NAME>PAYMENT
<MEMO>ALICE JOHNSON
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

func TestRecipientsFromBankStatement(t *testing.T) {
	h := NewHarvester()
	recipients, err := h.Recipients(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)

	// DAVID BROWN appears twice (once behind an ACH prefix) and merges into
	// one record; the check entry is skipped entirely.
	require.Len(t, recipients, 2)

	david := recipients[0]
	assert.Equal(t, "DAVID BROWN", david.DisplayName)
	assert.Contains(t, david.Aliases, "ACH DEBIT DAVID BROWN")
	assert.False(t, david.Verified)
	assert.Equal(t, "ofx", david.Attributes["source"])
	assert.Equal(t, "1234567890", david.Attributes["account"])
	assert.NotEmpty(t, david.ID)

	assert.Equal(t, "CITY UTILITIES", recipients[1].DisplayName)
}

func TestRecipientsFromCreditCardStatement(t *testing.T) {
	h := NewHarvester()
	recipients, err := h.Recipients(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	require.Len(t, recipients, 2)

	assert.Equal(t, "ACME INSURANCE CO", recipients[0].DisplayName)
	// The generic PAYMENT name falls back to the memo field.
	assert.Equal(t, "ALICE JOHNSON", recipients[1].DisplayName)
}

func TestRecipientsRejectsInvalidInput(t *testing.T) {
	h := NewHarvester()

	_, err := h.Recipients(context.Background(), strings.NewReader("not valid OFX"))
	assert.Error(t, err)

	_, err = h.Recipients(context.Background(), strings.NewReader(""))
	assert.Error(t, err)
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"ach prefix", "ACH DEBIT DAVID BROWN", "DAVID BROWN"},
		{"zelle prefix", "ZELLE PAYMENT TO SARAH CHEN", "SARAH CHEN"},
		{"pos prefix", "POS PURCHASE CITY UTILITIES", "CITY UTILITIES"},
		{"leading date", "01/15 ACME INSURANCE", "ACME INSURANCE"},
		{"clean name untouched", "DAVID BROWN", "DAVID BROWN"},
		{"whitespace trimmed", "  DAVID BROWN  ", "DAVID BROWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cleanName(tt.input))
		})
	}
}

func TestPayeeNamePrefersPayeeAggregate(t *testing.T) {
	tx := ofxgo.Transaction{
		Name:  ofxgo.String("GENERIC DESCRIPTOR 991"),
		Payee: &ofxgo.Payee{Name: ofxgo.String("Sarah Chen")},
	}
	raw, cleaned := payeeName(tx)
	assert.Equal(t, "Sarah Chen", raw)
	assert.Equal(t, "Sarah Chen", cleaned)
}

func TestIsGenericDescription(t *testing.T) {
	assert.True(t, isGenericDescription("PAYMENT"))
	assert.True(t, isGenericDescription("debit"))
	assert.False(t, isGenericDescription("DAVID BROWN"))
}
