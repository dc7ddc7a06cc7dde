// Package pdf genera el reporte Z (cierre de turno) de una sesión de caja.
//
// Layout de la página (tirilla A4):
//
//	┌──────────────────────────────────────────────┐
//	│  HEADER: Sede + Caja   │  Sesión N° + Estado  │
//	│  ──────────────────────────────────────────  │
//	│  APERTURA / CIERRE: fechas y responsables     │
//	│  ──────────────────────────────────────────  │
//	│  VENTAS: efectivo / tarjeta / otros / total   │
//	│  AJUSTES: anulaciones / reembolsos            │
//	│  ──────────────────────────────────────────  │
//	│  ARQUEO: fondo, esperado, contado, diferencia │
//	│  FOOTER: QR con el id de la sesión            │
//	└──────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"github.com/jhoicas/mercado-ledger/internal/application/ports"
	"github.com/jhoicas/mercado-ledger/internal/domain/entity"
	"github.com/jhoicas/mercado-ledger/pkg/precision"
)

var _ ports.SessionReportGenerator = (*SessionReportGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorRed     = &props.Color{Red: 170, Green: 20, Blue: 20}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// SessionReportGenerator implementa ports.SessionReportGenerator con Maroto v2.
type SessionReportGenerator struct {
	lang   language.Tag
	symbol string
	loc    *time.Location
}

// NewSessionReportGenerator construye el generador. lang y symbol definen el
// formato de los montos; tz la zona horaria de las fechas (nil = UTC).
func NewSessionReportGenerator(lang language.Tag, symbol string, tz *time.Location) *SessionReportGenerator {
	if tz == nil {
		tz = time.UTC
	}
	return &SessionReportGenerator{lang: lang, symbol: symbol, loc: tz}
}

// GenerateSessionReport genera el PDF y devuelve sus bytes.
func (g *SessionReportGenerator) GenerateSessionReport(_ context.Context, s *entity.Session, location *entity.Location) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("pdf: sesión nil")
	}
	locationName := s.LocationID
	if location != nil {
		locationName = location.Name
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(15).WithRightMargin(15).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(fmt.Sprintf("Reporte Z - sesión %d", s.SessionNumber), true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(g.headerRow(s, locationName))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(g.shiftRow(s))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(sectionRow("VENTAS"))
	m.AddRows(
		g.amountRow("Efectivo", s.TotalCash, false),
		g.amountRow("Tarjeta", s.TotalCard, false),
		g.amountRow("Otros medios", s.TotalOther, false),
		countRow("Transacciones", s.TotalTransactions),
		g.amountRow("TOTAL VENTAS", s.TotalSales, true),
	)

	m.AddRows(sectionRow("AJUSTES"))
	m.AddRows(
		g.amountRow(fmt.Sprintf("Anulaciones (%d)", s.VoidCount), s.TotalVoids, false),
		g.amountRow(fmt.Sprintf("Reembolsos (%d)", s.RefundCount), s.TotalRefunds, false),
	)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(sectionRow("ARQUEO DE CAJA"))
	m.AddRows(g.amountRow("Fondo inicial", s.OpeningCash, false))
	m.AddRows(g.cashRows(s)...)

	m.AddRows(line.NewRow(4))
	m.AddRows(row.New(40).Add(
		col.New(4).Add(code.NewQr(s.ID, props.Rect{Percent: 90, Center: true})),
		col.New(8).Add(
			text.New("Sesión "+s.ID, props.Text{Size: 7, Top: 4, Left: 3, Color: colorGray}),
			text.New("Caja "+s.RegisterID, props.Text{Size: 7, Top: 9, Left: 3, Color: colorGray}),
		),
	))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar reporte: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func (g *SessionReportGenerator) headerRow(s *entity.Session, locationName string) core.Row {
	status := "ABIERTA"
	if !s.IsOpen() {
		status = "CERRADA"
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(locationName, props.Text{Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1}),
			text.New("Caja: "+s.RegisterID, props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(5).Add(
			text.New("REPORTE Z", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1}),
			text.New(fmt.Sprintf("Sesión N° %d", s.SessionNumber), props.Text{Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7}),
			text.New(status, props.Text{Size: 8, Align: align.Right, Top: 14, Color: colorGray}),
		),
	)
}

func (g *SessionReportGenerator) shiftRow(s *entity.Session) core.Row {
	closed := "-"
	closedBy := "-"
	if s.ClosedAt != nil {
		closed = g.formatTime(*s.ClosedAt)
		closedBy = nonEmpty(s.ClosedBy, "-")
	}
	return row.New(14).Add(
		col.New(6).Add(
			text.New("APERTURA", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(g.formatTime(s.OpenedAt), props.Text{Size: 8, Top: 6}),
			text.New("Responsable: "+nonEmpty(s.UserID, "-"), props.Text{Size: 8, Top: 10, Color: colorGray}),
		),
		col.New(6).Add(
			text.New("CIERRE", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(closed, props.Text{Size: 8, Top: 6}),
			text.New("Responsable: "+closedBy, props.Text{Size: 8, Top: 10, Color: colorGray}),
		),
	)
}

func (g *SessionReportGenerator) cashRows(s *entity.Session) []core.Row {
	expected := precision.Add(s.OpeningCash, s.TotalCash)
	if s.ExpectedCash != nil {
		expected = *s.ExpectedCash
	}
	rows := []core.Row{g.amountRow("Efectivo esperado", expected, true)}
	if s.ClosingCash == nil {
		return append(rows, row.New(6).Add(col.New(12).Add(
			text.New("Sin arqueo registrado", props.Text{Size: 8, Color: colorGray, Top: 1}),
		)))
	}
	rows = append(rows, g.amountRow("Efectivo contado", *s.ClosingCash, false))
	if s.CashDifference != nil {
		diff := *s.CashDifference
		r := g.amountRow("Diferencia", diff, true)
		if !precision.IsZero(diff) {
			r = row.New(6).Add(
				col.New(8).Add(text.New("Diferencia", props.Text{Style: fontstyle.Bold, Size: 9, Color: colorRed, Top: 1})),
				col.New(4).Add(text.New(g.money(diff), props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Color: colorRed, Top: 1})),
			)
		}
		rows = append(rows, r)
	}
	return rows
}

func sectionRow(title string) core.Row {
	return row.New(8).Add(col.New(12).Add(
		text.New(title, props.Text{Style: fontstyle.Bold, Size: 9, Color: colorPrimary, Top: 2}),
	))
}

func (g *SessionReportGenerator) amountRow(label string, amount decimal.Decimal, bold bool) core.Row {
	style := fontstyle.Normal
	if bold {
		style = fontstyle.Bold
	}
	return row.New(6).Add(
		col.New(8).Add(text.New(label, props.Text{Style: style, Size: 9, Top: 1})),
		col.New(4).Add(text.New(g.money(amount), props.Text{Style: style, Size: 9, Align: align.Right, Top: 1})),
	)
}

func countRow(label string, n int64) core.Row {
	return row.New(6).Add(
		col.New(8).Add(text.New(label, props.Text{Size: 9, Top: 1})),
		col.New(4).Add(text.New(fmt.Sprintf("%d", n), props.Text{Size: 9, Align: align.Right, Top: 1})),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (g *SessionReportGenerator) money(d decimal.Decimal) string {
	return precision.FormatCurrency(d, g.lang, g.symbol)
}

func (g *SessionReportGenerator) formatTime(t time.Time) string {
	return t.In(g.loc).Format("02/01/2006 15:04")
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
