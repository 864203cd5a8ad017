package payrollhandler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"hrpay/internal/domain/payroll"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/middleware"
	"hrpay/internal/transport/http/shared"
)

const disbursementSheet = "Disbursement"

var disbursementHeader = []string{"employee_id", "employee_name", "bank_account", "net_amount"}

func (h *Handler) handleExportBankFile(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	date, ok := runDate(w, r)
	if !ok {
		return
	}
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "csv"
	}
	v := shared.NewValidator()
	v.Enum("format", format, []string{"csv", "xlsx"}, "must be csv or xlsx")
	if v.Reject(w, requestID) {
		return
	}

	rows, err := h.Service.ExportBankFile(r.Context(), date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	name := "bank-file-" + date.Format(payroll.DateLayout)
	if format == "xlsx" {
		h.writeBankXLSX(w, r, name, rows)
		return
	}
	h.writeBankCSV(w, name, rows)
}

func (h *Handler) writeBankCSV(w http.ResponseWriter, name string, rows []payroll.DisbursementRow) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+name+".csv")
	writer := csv.NewWriter(w)
	if err := writer.Write(disbursementHeader); err != nil {
		h.Logger.Warn("bank file header write failed", zap.Error(err))
	}
	for _, row := range rows {
		if err := writer.Write([]string{row.EmployeeID, row.EmployeeName, row.BankAccount, row.NetAmount.StringFixed(2)}); err != nil {
			h.Logger.Warn("bank file row write failed", zap.String("employeeId", row.EmployeeID), zap.Error(err))
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.Logger.Warn("bank file flush failed", zap.Error(err))
	}
}

func (h *Handler) writeBankXLSX(w http.ResponseWriter, r *http.Request, name string, rows []payroll.DisbursementRow) {
	buf, err := bankWorkbook(rows)
	if err != nil {
		h.Logger.Error("bank file workbook failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to build bank file", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+name+".xlsx")
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.Logger.Warn("bank file write failed", zap.Error(err))
	}
}

func bankWorkbook(rows []payroll.DisbursementRow) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", disbursementSheet); err != nil {
		return nil, err
	}
	header := make([]any, 0, len(disbursementHeader))
	for _, col := range disbursementHeader {
		header = append(header, col)
	}
	if err := f.SetSheetRow(disbursementSheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		amount, _ := row.NetAmount.Round(2).Float64()
		values := []any{row.EmployeeID, row.EmployeeName, row.BankAccount, amount}
		if err := f.SetSheetRow(disbursementSheet, cell, &values); err != nil {
			return nil, err
		}
	}
	return f.WriteToBuffer()
}

// handleDownloadPayslip renders a payslip once it has been published. With
// PayslipDir set the rendered file is kept and served on later requests.
func (h *Handler) handleDownloadPayslip(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	p, err := h.Service.GetPayslip(r.Context(), chi.URLParam(r, "payslipID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !h.payslipVisibleOrFail(w, r, user, p) {
		return
	}
	if !p.Status.AtLeast(payroll.PayslipPublished) {
		api.Fail(w, http.StatusConflict, "invalid_state", fmt.Sprintf("payslip %s is %s; documents are available once published", p.ID, p.Status), requestID)
		return
	}

	if h.PayslipDir != "" {
		path := filepath.Join(h.PayslipDir, payslipPDFName(p))
		if _, err := os.Stat(path); err == nil {
			http.ServeFile(w, r, path)
			return
		}
		if err := h.storePayslipPDF(p, path); err != nil {
			h.Logger.Warn("payslip pdf cache failed", zap.String("payslipId", p.ID), zap.Error(err))
		} else {
			http.ServeFile(w, r, path)
			return
		}
	}

	var buf bytes.Buffer
	if err := payslipPDF(p).Output(&buf); err != nil {
		h.Logger.Error("payslip pdf generation failed", zap.String("payslipId", p.ID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "payslip_generate_failed", "failed to render payslip", requestID)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=payslip-"+p.ID+".pdf")
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.Logger.Warn("payslip pdf write failed", zap.Error(err))
	}
}

// payslipPDFName keys a cached document by everything the PDF renders that can
// change after publishing.
func payslipPDFName(p payroll.Payslip) string {
	name := p.ID + "-" + string(p.Status)
	if p.Signature != nil {
		name += "-signed-" + strconv.FormatInt(p.Signature.SignedAt.Unix(), 10)
	}
	return name + ".pdf"
}

func (h *Handler) storePayslipPDF(p payroll.Payslip, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return payslipPDF(p).OutputFileAndClose(path)
}

func payslipPDF(p payroll.Payslip) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	title := "Payslip"
	if p.Kind == payroll.PayslipCorrection {
		title = "Payslip Correction"
	}
	pdf.Cell(40, 10, title)
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	line := func(label, value string) {
		pdf.CellFormat(70, 7, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, value, "", 1, "R", false, 0, "")
	}
	line("Employee", fmt.Sprintf("%s (%s)", p.EmployeeName, p.EmployeeID))
	line("Period", fmt.Sprintf("%s to %s", p.PeriodStart.Format(payroll.DateLayout), p.PeriodEnd.Format(payroll.DateLayout)))
	line("Issued", p.IssueDate.Format(payroll.DateLayout))
	line("Frequency", string(p.Frequency))
	if p.RunLabel != "" {
		line("Run", p.RunLabel)
	}
	pdf.Ln(4)

	line("Gross", p.Gross.StringFixed(2))
	line("Allowances", p.Allowances.StringFixed(2))
	line("Holiday adjustment", p.HolidayAdjustment.StringFixed(2))
	line("SSS", p.GovDeductions.SSS.StringFixed(2))
	line("PhilHealth", p.GovDeductions.PhilHealth.StringFixed(2))
	line("Pag-IBIG", p.GovDeductions.PagIBIG.StringFixed(2))
	line("Withholding tax", p.GovDeductions.Tax.StringFixed(2))
	line("Loan deductions", p.LoanDeduction.StringFixed(2))
	line("Other deductions", p.OtherDeductions.StringFixed(2))
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 12)
	line("Net pay", p.Net.StringFixed(2))

	if p.Signature != nil {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 9)
		pdf.Cell(0, 6, fmt.Sprintf("Signed %s, digest %s", p.Signature.SignedAt.Format(payroll.DateLayout), p.Signature.Digest))
	}
	return pdf
}
