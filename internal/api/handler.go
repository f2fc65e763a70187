// Package api exposes single-document extraction over HTTP: upload one
// statement PDF, get back the normalized account and transactions.
package api

import (
	"fmt"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-batch/internal/batch"
	"github.com/insightdelivered/statement-batch/internal/extractor"
	"github.com/insightdelivered/statement-batch/internal/fields"
	"github.com/insightdelivered/statement-batch/internal/logger"
	"github.com/insightdelivered/statement-batch/internal/models"
	"github.com/insightdelivered/statement-batch/internal/txparse"
	"github.com/insightdelivered/statement-batch/internal/writer"
)

// ExtractResponse is the JSON response from the /api/extract endpoint.
type ExtractResponse struct {
	Success      bool                 `json:"success"`
	Error        string               `json:"error,omitempty"`
	Outcome      *models.Outcome      `json:"outcome,omitempty"`
	Account      *models.Account      `json:"account,omitempty"`
	Transactions []models.Transaction `json:"transactions"`
	// CSV carries the transactions table inline, ready to save as a file.
	CSV         string          `json:"csv,omitempty"`
	TotalDebit  decimal.Decimal `json:"totalDebit"`
	TotalCredit decimal.Decimal `json:"totalCredit"`
	Count       int             `json:"count"`
}

// Handler holds the extraction dependencies for the HTTP surface.
type Handler struct {
	Matcher *fields.Matcher
	Policy  txparse.Policy
}

// App builds the fiber application with all routes registered.
func (h *Handler) App() *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: 32 << 20, // statement PDFs are small; 32MB is generous
	})
	app.Get("/api/health", h.HandleHealth)
	app.Post("/api/extract", h.HandleExtract)
	return app
}

func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"engine": "fiber",
	})
}

func (h *Handler) HandleExtract(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "No file uploaded. Use form field 'file'.")
	}
	if !strings.HasSuffix(strings.ToLower(file.Filename), ".pdf") {
		return writeError(c, fiber.StatusBadRequest, "Only PDF files are supported.")
	}

	tmp, err := os.CreateTemp("", "statement-*.pdf")
	if err != nil {
		return writeError(c, fiber.StatusInternalServerError, "Failed to create temp file.")
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := c.SaveFile(file, tmpPath); err != nil {
		return writeError(c, fiber.StatusInternalServerError, "Failed to save uploaded file.")
	}

	pages, err := extractor.ExtractPages(tmpPath)
	if err != nil {
		return writeError(c, fiber.StatusUnprocessableEntity, fmt.Sprintf("PDF extraction failed: %v", err))
	}

	doc := extractor.PagesToDocument(file.Filename, pages, 0)
	log := logger.FromContext(c.UserContext())
	acc, txns, outcome := batch.ProcessDocument(doc, h.Matcher, h.Policy, log)
	if outcome.Kind == models.OutcomeFatal {
		return writeError(c, fiber.StatusUnprocessableEntity, outcome.Reason)
	}

	var totalDebit, totalCredit decimal.Decimal
	for _, t := range txns {
		if t.Debit != nil {
			totalDebit = totalDebit.Add(*t.Debit)
		}
		if t.Credit != nil {
			totalCredit = totalCredit.Add(*t.Credit)
		}
	}

	// nil marshals to JSON null, not [].
	if txns == nil {
		txns = []models.Transaction{}
	}

	csvText, err := writer.TransactionsCSV(txns)
	if err != nil {
		return writeError(c, fiber.StatusInternalServerError, "Failed to render CSV.")
	}

	return c.JSON(ExtractResponse{
		Success:      true,
		Outcome:      &outcome,
		Account:      &acc,
		Transactions: txns,
		CSV:          csvText,
		TotalDebit:   totalDebit,
		TotalCredit:  totalCredit,
		Count:        len(txns),
	})
}

func writeError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ExtractResponse{
		Success:      false,
		Error:        msg,
		Transactions: []models.Transaction{},
	})
}
