// Package ofx harvests payee names from OFX/QFX statement exports. Imported
// payees become unverified recipient records so that utterances like "pay my
// landlord" have something to match against before anyone curates the index.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/google/uuid"

	"github.com/ridgelinebank/teller/internal/model"
)

// Harvester extracts recipient candidates from OFX/QFX files.
type Harvester struct {
	logger *slog.Logger
}

// NewHarvester creates a new OFX harvester.
func NewHarvester() *Harvester {
	return &Harvester{logger: slog.Default().With("component", "ofx")}
}

var (
	severityRe = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	openTagRe  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	leadDateRe = regexp.MustCompile(`^\d{2}/\d{2} `)
)

// preprocess fixes common formatting issues in real-world OFX exports:
// mixed-case severity values and SGML-style tags missing their closing
// bracket.
func (h *Harvester) preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRe.ReplaceAllStringFunc(content, strings.ToUpper)
	content = openTagRe.ReplaceAllString(content, "$1>")
	return content
}

// Recipients parses an OFX/QFX file and returns one recipient per distinct
// payee. Generic descriptions and check entries are skipped; duplicate
// spellings of the same payee collapse into aliases on a single record.
func (h *Harvester) Recipients(ctx context.Context, reader io.Reader) ([]model.Recipient, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(h.preprocess(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	merged := make(map[string]*model.Recipient)
	var order []string
	var statements, seen int

	collect := func(accountID string, txns []ofxgo.Transaction) {
		for _, tx := range txns {
			seen++
			raw, name := payeeName(tx)
			if name == "" || isGenericDescription(name) || strings.HasPrefix(strings.ToUpper(name), "CHECK #") {
				continue
			}
			h.merge(merged, &order, name, raw, accountID)
		}
	}

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			statements++
			collect(string(stmt.BankAcctFrom.AcctID), stmt.BankTranList.Transactions)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			statements++
			collect(string(stmt.CCAcctFrom.AcctID), stmt.BankTranList.Transactions)
		}
	}

	recipients := make([]model.Recipient, 0, len(order))
	for _, key := range order {
		recipients = append(recipients, *merged[key])
	}

	h.logger.Info("Harvested payees from OFX file",
		"statements", statements,
		"transactions", seen,
		"recipients", len(recipients))

	return recipients, nil
}

func (h *Harvester) merge(merged map[string]*model.Recipient, order *[]string, name, raw, accountID string) {
	key := strings.ToLower(name)
	r, ok := merged[key]
	if !ok {
		r = &model.Recipient{
			ID:          uuid.NewString(),
			DisplayName: name,
			Attributes:  map[string]string{"source": "ofx"},
			Verified:    false,
			CreatedAt:   time.Now().UTC(),
		}
		if accountID != "" {
			r.Attributes["account"] = accountID
		}
		merged[key] = r
		*order = append(*order, key)
	}
	if raw != name && !containsFold(r.Aliases, raw) && !strings.EqualFold(raw, name) {
		r.Aliases = append(r.Aliases, raw)
	}
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// payeeName returns the raw and cleaned payee name for a transaction. The
// PAYEE aggregate is preferred when present; otherwise NAME, with MEMO as a
// fallback when NAME is too generic to identify anyone.
func payeeName(tx ofxgo.Transaction) (raw, cleaned string) {
	if tx.Payee != nil && tx.Payee.Name != "" {
		raw = string(tx.Payee.Name)
		return raw, cleanName(raw)
	}

	raw = string(tx.Name)
	if tx.Memo != "" && isGenericDescription(raw) {
		raw = string(tx.Memo)
	}
	return raw, cleanName(raw)
}

// cleanName strips processor noise from a statement description.
func cleanName(name string) string {
	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"ACH CREDIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
		"ONLINE TRANSFER TO ",
		"ZELLE PAYMENT TO ",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = strings.TrimSpace(name[len(prefix):])
			break
		}
	}

	// Some processors prepend the posting date, e.g. "01/15 STARBUCKS".
	if leadDateRe.MatchString(name) {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

// isGenericDescription reports whether a description is too generic to name
// a payee.
func isGenericDescription(name string) bool {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "TRANSFER",
		"POS TRANSACTION", "CARD PURCHASE", "WITHDRAWAL", "DEPOSIT":
		return true
	}
	return false
}
