package csvbridge

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/pkg/errors"

	"github.com/talkincode/toughcrm/internal/domain"
)

const (
	ExportFilename     = "clientes.csv"
	ExportXLSXFilename = "clientes.xlsx"
	summarySheet       = "Clientes"
)

var SummaryHeader = []string{"ID", "Documento", "Nombre Completo", "Cantidad de Facturas"}

// SummaryRow is one line of the client summary export
type SummaryRow struct {
	ID           int64
	Documento    string
	FullName     string
	InvoiceCount int
}

func (r SummaryRow) record() []string {
	return []string{
		strconv.FormatInt(r.ID, 10),
		r.Documento,
		r.FullName,
		strconv.Itoa(r.InvoiceCount),
	}
}

// SummaryRows joins clients with their invoice counts. Invoices are counted
// first, then clients are listed; writes landing in between are visible to
// one side only.
func (b *Bridge) SummaryRows() []SummaryRow {
	counts := make(map[int64]int)
	b.invoices.Ascend(func(inv domain.Invoice) bool {
		counts[inv.ClientID]++
		return true
	})

	clients := b.clients.List()
	rows := make([]SummaryRow, 0, len(clients))
	for _, c := range clients {
		rows = append(rows, SummaryRow{
			ID:           c.ID,
			Documento:    c.Documento,
			FullName:     c.FullName(),
			InvoiceCount: counts[c.ID],
		})
	}
	return rows
}

// ExportClientSummary writes the summary CSV row by row. flush, when not nil,
// is called after every row so the caller can push bytes to the network.
// Fields are quoted only when they contain separators, quotes or newlines.
func (b *Bridge) ExportClientSummary(ctx context.Context, w io.Writer, flush func()) error {
	cw := csv.NewWriter(w)
	writeRow := func(rec []string) error {
		if err := cw.Write(rec); err != nil {
			return err
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
		if flush != nil {
			flush()
		}
		return nil
	}

	if err := writeRow(SummaryHeader); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, row := range b.SummaryRows() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeRow(row.record()); err != nil {
			return errors.Wrapf(err, "write csv row for client %d", row.ID)
		}
	}
	return nil
}

// ExportClientSummaryXLSX writes the same rows as a single-sheet workbook
func (b *Bridge) ExportClientSummaryXLSX(w io.Writer) error {
	xlsx := excelize.NewFile()
	xlsx.SetSheetName("Sheet1", summarySheet)

	for col, h := range SummaryHeader {
		xlsx.SetCellValue(summarySheet, cellName(col, 1), h)
	}
	for i, row := range b.SummaryRows() {
		line := i + 2
		xlsx.SetCellValue(summarySheet, cellName(0, line), row.ID)
		xlsx.SetCellValue(summarySheet, cellName(1, line), row.Documento)
		xlsx.SetCellValue(summarySheet, cellName(2, line), row.FullName)
		xlsx.SetCellValue(summarySheet, cellName(3, line), row.InvoiceCount)
	}
	return errors.Wrap(xlsx.Write(w), "write xlsx")
}

// cellName supports the four summary columns only
func cellName(col, row int) string {
	return fmt.Sprintf("%c%d", 'A'+col, row)
}
