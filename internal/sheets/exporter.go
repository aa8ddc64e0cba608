package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/ridgelinebank/teller/internal/common"
	"github.com/ridgelinebank/teller/internal/model"
	"github.com/ridgelinebank/teller/internal/service"
)

// Exporter writes audit records to a Google Sheets spreadsheet.
type Exporter struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

var _ service.AuditSink = (*Exporter)(nil)

// NewExporter creates a new Google Sheets audit exporter.
func NewExporter(ctx context.Context, config Config, logger *slog.Logger) (*Exporter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Exporter{
		config:  config,
		service: srv,
		logger:  logger,
	}, nil
}

// WriteAudit implements the AuditSink interface. The sheet is rewritten in
// full on every export so that it always mirrors the audit log exactly.
func (e *Exporter) WriteAudit(ctx context.Context, records []model.AuditRecord) error {
	e.logger.Info("starting audit export", "records", len(records))

	spreadsheetID, err := e.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	if clearErr := e.clearSheet(ctx, spreadsheetID); clearErr != nil {
		return fmt.Errorf("failed to clear sheet: %w", clearErr)
	}

	values := e.prepareRows(records)

	retryOpts := service.RetryOptions{
		MaxAttempts:  e.config.RetryAttempts,
		InitialDelay: e.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	err = common.WithRetry(ctx, func() error {
		return e.writeRows(ctx, spreadsheetID, values)
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	if e.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return e.applyFormatting(ctx, spreadsheetID, len(values))
		}, retryOpts)
		if err != nil {
			// Formatting is cosmetic; the export itself succeeded.
			e.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	e.logger.Info("audit export completed",
		"spreadsheet_id", spreadsheetID,
		"rows_written", len(values))

	return nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		oauthConfig := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}

		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}

		tokenSource = oauthConfig.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// getOrCreateSpreadsheet gets an existing spreadsheet or creates a new one.
func (e *Exporter) getOrCreateSpreadsheet(ctx context.Context) (string, error) {
	if e.config.SpreadsheetID != "" {
		_, err := e.service.Spreadsheets.Get(e.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", e.config.SpreadsheetID, err)
		}
		return e.config.SpreadsheetID, nil
	}

	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    e.config.SpreadsheetName,
			TimeZone: e.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{
			{
				Properties: &sheets.SheetProperties{
					Title: "Audit Log",
				},
			},
		},
	}

	created, err := e.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	e.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	return created.SpreadsheetId, nil
}

// clearSheet clears all data from the sheet.
func (e *Exporter) clearSheet(ctx context.Context, spreadsheetID string) error {
	_, err := e.service.Spreadsheets.Values.Clear(spreadsheetID, "A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// prepareRows renders audit records as spreadsheet rows, oldest first so the
// sheet reads top to bottom like a transcript.
func (e *Exporter) prepareRows(records []model.AuditRecord) [][]any {
	sorted := make([]model.AuditRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].SessionID != sorted[j].SessionID {
			return sorted[i].SessionID < sorted[j].SessionID
		}
		return sorted[i].Turn < sorted[j].Turn
	})

	values := make([][]any, 0, len(sorted)+1)
	values = append(values, []any{
		"Timestamp",
		"Session",
		"Turn",
		"Input",
		"Intent",
		"Category",
		"Confidence",
		"State",
		"Outcome",
		"Rules",
		"Execution Ref",
		"Failure Detail",
	})

	for _, rec := range sorted {
		values = append(values, []any{
			rec.Timestamp.Format(time.RFC3339),
			rec.SessionID,
			rec.Turn,
			rec.InputText,
			rec.Classification.IntentID,
			rec.Classification.Category,
			fmt.Sprintf("%.2f", rec.Classification.Confidence),
			string(rec.DecisionState),
			string(rec.Outcome),
			rulesSummary(rec.RulesApplied),
			rec.ExecutionRef,
			rec.FailureDetail,
		})
	}

	return values
}

// rulesSummary flattens rule outcomes into one readable cell.
func rulesSummary(outcomes []model.RuleOutcome) string {
	if len(outcomes) == 0 {
		return ""
	}

	parts := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		part := fmt.Sprintf("%s=%s", o.RuleName, o.Result)
		if o.Detail != "" {
			part += " (" + o.Detail + ")"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, "; ")
}

// writeRows writes the rows to the spreadsheet in batches.
func (e *Exporter) writeRows(ctx context.Context, spreadsheetID string, values [][]any) error {
	for i := 0; i < len(values); i += e.config.BatchSize {
		end := i + e.config.BatchSize
		if end > len(values) {
			end = len(values)
		}

		valueRange := &sheets.ValueRange{
			Values: values[i:end],
		}

		rangeStr := fmt.Sprintf("A%d", i+1)
		_, err := e.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, valueRange).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		e.logger.Debug("wrote batch", "start_row", i+1, "rows", end-i)
	}

	return nil
}

// applyFormatting bolds and freezes the header row and resizes the columns.
func (e *Exporter) applyFormatting(ctx context.Context, spreadsheetID string, totalRows int) error {
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          0,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   12,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{
							Bold: true,
						},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    0,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   12,
				},
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId: 0,
					GridProperties: &sheets.GridProperties{
						FrozenRowCount: 1,
					},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
	}

	if totalRows > 1 {
		requests = append(requests, &sheets.Request{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          0,
					StartRowIndex:    1,
					EndRowIndex:      int64(totalRows),
					StartColumnIndex: 6,
					EndColumnIndex:   7,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						NumberFormat: &sheets.NumberFormat{
							Type:    "NUMBER",
							Pattern: "0.00",
						},
					},
				},
				Fields: "userEnteredFormat.numberFormat",
			},
		})
	}

	batchUpdate := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}

	_, err := e.service.Spreadsheets.BatchUpdate(spreadsheetID, batchUpdate).Context(ctx).Do()
	return err
}
