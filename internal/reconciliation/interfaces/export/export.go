package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	reconciliation "cashup/internal/reconciliation/domain"
)

// Content types of the rendered documents.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func money(v fmt.Stringer) string {
	return "$" + v.String()
}

// BuildRecordPDF renders one reconciliation as a PDF.
func BuildRecordPDF(rec reconciliation.Record) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Cash Reconciliation")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Date: %s", rec.Date))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Employee: %s", rec.Employee))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Status: %s", rec.Status))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Submitted: %s", rec.SubmittedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	if rec.BagNumber != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Bag: %s", rec.BagNumber))
		pdf.Ln(5)
	}
	if rec.ReviewedAt != nil {
		pdf.Cell(0, 6, fmt.Sprintf("Reviewed: %s by %s", rec.ReviewedAt.Format(time.RFC3339), rec.ReviewedBy))
		pdf.Ln(5)
	}

	s := rec.Summary
	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(80, 6, "Summary", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 6, "Amount", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, row := range []struct {
		label string
		value string
	}{
		{"Total sales", s.TotalSales.StringFixed(2)},
		{"EFTPOS", s.TotalEftpos.StringFixed(2)},
		{"Payouts", s.Payouts.StringFixed(2)},
		{"Expected banking", s.ExpectedBanking.StringFixed(2)},
		{"Actual banking", s.ActualBanking.StringFixed(2)},
		{"Variance", s.Variance.StringFixed(2)},
	} {
		pdf.CellFormat(80, 6, row.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, row.value, "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(2)
	pdf.Cell(0, 6, fmt.Sprintf("Balanced: %t (%s)", rec.Calculations.IsBalanced, rec.Calculations.Classification))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(50, 6, "Register", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Notes", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Loose coins", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Coin rolls", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Bankable", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, reg := range rec.Registers {
		pdf.CellFormat(50, 6, reg.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, reg.Breakdown.NotesTotal.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, reg.Breakdown.LooseTotal.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, reg.Breakdown.CoinRollTotal.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, reg.Bankable.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	for _, term := range rec.POSTerminals {
		if !term.Enabled {
			continue
		}
		pdf.Cell(0, 6, fmt.Sprintf("%s: %s", term.Name, money(term.Amount)))
		pdf.Ln(5)
	}
	if rec.Comments != "" {
		pdf.Ln(3)
		pdf.MultiCell(0, 5, "Comments: "+rec.Comments, "", "L", false)
	}
	if rec.ManagerComments != "" {
		pdf.MultiCell(0, 5, "Manager: "+rec.ManagerComments, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildRecordXLSX renders one reconciliation as a workbook with a summary
// sheet and a per-register count sheet.
func BuildRecordXLSX(rec reconciliation.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	summarySheet := "summary"
	countsSheet := "counts"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(countsSheet); err != nil {
		return nil, err
	}

	s := rec.Summary
	rows := [][]any{
		{"Cash Reconciliation"},
		{},
		{"Date", rec.Date},
		{"Employee", rec.Employee},
		{"Status", string(rec.Status)},
		{"Bag", rec.BagNumber},
		{"Total sales", s.TotalSales.InexactFloat64()},
		{"EFTPOS", s.TotalEftpos.InexactFloat64()},
		{"Payouts", s.Payouts.InexactFloat64()},
		{"Expected banking", s.ExpectedBanking.InexactFloat64()},
		{"Actual banking", s.ActualBanking.InexactFloat64()},
		{"Variance", s.Variance.InexactFloat64()},
		{"Balanced", rec.Calculations.IsBalanced},
		{"Classification", string(rec.Calculations.Classification)},
		{"Comments", rec.Comments},
		{"Manager comments", rec.ManagerComments},
	}
	for i, row := range rows {
		if err := setRow(f, summarySheet, i+1, row); err != nil {
			return nil, err
		}
	}

	header := []any{"Denomination"}
	for _, reg := range rec.Registers {
		header = append(header, reg.Name)
	}
	if err := setRow(f, countsSheet, 1, header); err != nil {
		return nil, err
	}
	for i, den := range reconciliation.Denominations() {
		row := []any{den.Label()}
		for _, reg := range rec.Registers {
			v, err := reg.Counts.Get(den)
			if err != nil {
				return nil, err
			}
			row = append(row, v)
		}
		if err := setRow(f, countsSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildListXLSX renders a list of records, one per row.
func BuildListXLSX(records []reconciliation.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := "reconciliations"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	header := []any{"ID", "Date", "Employee", "Status", "Total sales", "EFTPOS", "Payouts", "Expected", "Actual", "Variance", "Classification"}
	if err := setRow(f, sheet, 1, header); err != nil {
		return nil, err
	}
	for i, rec := range records {
		s := rec.Summary
		row := []any{
			rec.ID, rec.Date, rec.Employee, string(rec.Status),
			s.TotalSales.InexactFloat64(), s.TotalEftpos.InexactFloat64(), s.Payouts.InexactFloat64(),
			s.ExpectedBanking.InexactFloat64(), s.ActualBanking.InexactFloat64(), s.Variance.InexactFloat64(),
			string(rec.Calculations.Classification),
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	if len(values) == 0 {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
