package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Veraticus/spice-forecast/internal/common"
	"github.com/Veraticus/spice-forecast/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// headerRows is the number of rows above the first bucket row.
const headerRows = 3

// Writer implements ProjectionWriter for Google Sheets.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a new Google Sheets projection writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		config:  config,
		service: srv,
		logger:  logger,
	}, nil
}

// WriteProjection replaces the forecast sheet's contents with the report.
func (w *Writer) WriteProjection(ctx context.Context, report *ProjectionReport) error {
	w.logger.Info("starting projection export",
		"rows", len(report.Rows),
		"warnings", len(report.Warnings),
		"date_range", fmt.Sprintf("%s to %s", report.Start, report.End))

	retryOpts := service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	var spreadsheetID string
	var sheetID int64
	err := common.WithRetry(ctx, func() error {
		var err error
		spreadsheetID, sheetID, err = w.getOrCreateSpreadsheet(ctx)
		return err
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	if clearErr := w.clearSheet(ctx, spreadsheetID); clearErr != nil {
		return fmt.Errorf("failed to clear sheet: %w", clearErr)
	}

	values := prepareProjectionData(report)

	err = common.WithRetry(ctx, func() error {
		return w.writeData(ctx, spreadsheetID, values)
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return w.applyFormatting(ctx, spreadsheetID, sheetID, report)
		}, retryOpts)
		if err != nil {
			// Formatting is cosmetic; the data is already written.
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("projection export completed",
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
		client := oauthConfig(config.ClientID, config.ClientSecret, "")
		tokenSource = client.TokenSource(ctx, &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		})
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// getOrCreateSpreadsheet returns the spreadsheet ID and the ID of the forecast
// tab, creating whichever is missing.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, int64, error) {
	if w.config.SpreadsheetID != "" {
		existing, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return "", 0, fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}

		if id, ok := findSheet(existing, w.config.SheetName); ok {
			return w.config.SpreadsheetID, id, nil
		}

		resp, err := w.service.Spreadsheets.BatchUpdate(w.config.SpreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: w.config.SheetName},
				},
			}},
		}).Context(ctx).Do()
		if err != nil {
			return "", 0, fmt.Errorf("unable to add sheet %q: %w", w.config.SheetName, err)
		}
		return w.config.SpreadsheetID, resp.Replies[0].AddSheet.Properties.SheetId, nil
	}

	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{Title: w.config.SheetName}},
		},
	}

	created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", 0, fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	// Later runs reuse the spreadsheet instead of creating another.
	w.config.SpreadsheetID = created.SpreadsheetId

	id, _ := findSheet(created, w.config.SheetName)
	return created.SpreadsheetId, id, nil
}

func findSheet(spreadsheet *sheets.Spreadsheet, title string) (int64, bool) {
	for _, s := range spreadsheet.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return s.Properties.SheetId, true
		}
	}
	return 0, false
}

func (w *Writer) sheetRange(cells string) string {
	return fmt.Sprintf("'%s'!%s", w.config.SheetName, cells)
}

// clearSheet clears all data from the forecast tab.
func (w *Writer) clearSheet(ctx context.Context, spreadsheetID string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, w.sheetRange("A:Z"), &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// prepareProjectionData lays the report out as sheet rows. Money is written as
// fixed two-decimal strings so USER_ENTERED input parses it as numbers.
func prepareProjectionData(report *ProjectionReport) [][]any {
	values := make([][]any, 0, headerRows+len(report.Rows)+3+len(report.Warnings))

	values = append(values,
		[]any{
			"Cash Flow Forecast",
			fmt.Sprintf("%s - %s", report.Start, report.End),
			fmt.Sprintf("bucket %s", report.Bucket),
		},
		[]any{},
	)

	header := []any{"Bucket", "Inflow", "Outflow", "Balance"}
	for _, acct := range report.Accounts {
		header = append(header, acct)
	}
	header = append(header, "Projected")
	values = append(values, header)

	for _, row := range report.Rows {
		line := []any{
			row.BucketDate.String(),
			row.Inflow.StringFixed(2),
			row.Outflow.StringFixed(2),
			row.Balance.StringFixed(2),
		}
		for _, b := range row.AccountBalances {
			if b.Valid {
				line = append(line, b.Decimal.StringFixed(2))
			} else {
				line = append(line, "")
			}
		}
		projected := ""
		if row.IsProjected {
			projected = "yes"
		}
		values = append(values, append(line, projected))
	}

	if len(report.Warnings) > 0 {
		values = append(values,
			[]any{},
			[]any{"Low Balance Warnings"},
			[]any{"Date", "Account", "Balance", "Threshold"},
		)
		for _, warning := range report.Warnings {
			values = append(values, []any{
				warning.Date.String(),
				warning.AccountID,
				warning.Balance.StringFixed(2),
				warning.Threshold.StringFixed(2),
			})
		}
	}

	return values
}

// writeData writes the data to the spreadsheet in batches.
func (w *Writer) writeData(ctx context.Context, spreadsheetID string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))

		batch := values[i:end]
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, w.sheetRange(fmt.Sprintf("A%d", i+1)), &sheets.ValueRange{
			Values: batch,
		}).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "start_row", i+1, "rows", len(batch))
	}

	return nil
}

// applyFormatting bolds the title and header, formats money columns as
// currency and freezes the header.
func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, sheetID int64, report *ProjectionReport) error {
	moneyColumns := int64(3 + len(report.Accounts))
	lastRow := int64(headerRows + len(report.Rows))

	bold := func(startRow, endRow int64) *sheets.Request {
		return &sheets.Request{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:       sheetID,
					StartRowIndex: startRow,
					EndRowIndex:   endRow,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{Bold: true},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		}
	}

	requests := []*sheets.Request{
		bold(0, 1),
		bold(headerRows-1, headerRows),
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    headerRows,
					EndRowIndex:      lastRow,
					StartColumnIndex: 1,
					EndColumnIndex:   1 + moneyColumns,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						NumberFormat: &sheets.NumberFormat{
							Type:    "CURRENCY",
							Pattern: "$#,##0.00",
						},
					},
				},
				Fields: "userEnteredFormat.numberFormat",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   2 + moneyColumns,
				},
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId: sheetID,
					GridProperties: &sheets.GridProperties{
						FrozenRowCount: headerRows,
					},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
	}

	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return err
}

var _ ProjectionWriter = (*Writer)(nil)
