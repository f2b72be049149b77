package analysis

import (
	"context"

	"github.com/jonathan/balance-validator/internal/types"
)

// FixtureClient returns a fixed example result. It backs demos and offline use
// when no endpoint is configured.
type FixtureClient struct{}

// NewFixtureClient returns the example-result client.
func NewFixtureClient() *FixtureClient {
	return &FixtureClient{}
}

func (FixtureClient) Analyze(_ context.Context, _ Document) (*types.ValidationResult, error) {
	return ExampleResult(), nil
}

func (FixtureClient) Close() error { return nil }

// ExampleResult returns a fresh copy of the documented example: FLAGGED,
// eleven checklist items, with sums (item "2") and note 2.2 (item "3.2.I") in error.
func ExampleResult() *types.ValidationResult {
	return &types.ValidationResult{
		Summary: types.AuditSummary{
			Status:        types.StatusFlagged,
			Conclusion:    "Se detectaron inconsistencias materiales en los cálculos del ejercicio. Existen errores de suma en el Activo Corriente del ESP y en el subtotal de la Nota 2.2.",
			Confidence:    types.ConfidenceHigh,
			CompanyName:   "EMPRESA MODELO S.R.L.",
			TaxID:         "30-12345678-7",
			PeriodEndDate: "30/06/2024",
		},
		Items: []types.ChecklistItem{
			{
				ID:            "1",
				Text:          "1. Revisión del tipeado a partir del borrador",
				CurrentStatus: types.CheckOK,
				PriorStatus:   types.CheckOK,
				Notes:         "La información es consistente en su estructura general.",
			},
			{
				ID:            "2",
				Text:          "2. Revisión de cálculos y sumas horizontales y verticales",
				CurrentStatus: types.CheckError,
				PriorStatus:   types.CheckOK,
				Notes:         "Error en suma de Activo Corriente 2024: diferencia de $1,000 detectada.",
			},
			{
				ID:            "3.1.I",
				Text:          "3.1.I Estado de Situacion Patrimonial: Activo = Pasivo + Patrimonio Neto",
				CurrentStatus: types.CheckOK,
				PriorStatus:   types.CheckOK,
				Notes:         "La igualdad contable se mantiene en los totales expuestos.",
			},
			{
				ID:            "3.1.I.b",
				Text:          "Patrimonio Neto = Estado de Evolución del Patrimonio Neto",
				CurrentStatus: types.CheckOK,
				PriorStatus:   types.CheckOK,
				Notes:         "El Patrimonio Neto al cierre coincide entre el ESP y el EEPN.",
			},
			{
				ID:            "3.1.II",
				Text:          "II. Estado de Resultados: Resultado del ejercicio = Estado de Evolución del Patrimonio Neto",
				CurrentStatus: types.CheckOK,
				PriorStatus:   types.CheckOK,
				Notes:         "El resultado neto es consistente entre el ER y el EEPN.",
			},
			{
				ID:            "3.1.III.a",
				Text:          "III. Estado de Flujo de Efectivo: Estado de Situación Patrimonial (fondos al inicio / cierre)",
				CurrentStatus: types.CheckOK,
				PriorStatus:   types.CheckOK,
				Notes:         "Los saldos de efectivo coinciden con el rubro Caja y Bancos del ESP.",
			},
			{
				ID:            "3.2.I",
				Text:          "3.2.I Notas: Estado de Situación Patrimonial",
				CurrentStatus: types.CheckError,
				PriorStatus:   types.CheckOK,
				Notes:         "Inconsistencia en Nota 2.2: El subtotal no coincide con el importe del ESP.",
			},
			{
				ID:            "3.3",
				Text:          "3.3 Estados Contables con Anexos (Bienes de Uso, Gastos, etc)",
				CurrentStatus: types.CheckOK,
				PriorStatus:   types.CheckOK,
				Notes:         "El valor residual de Bienes de Uso coincide entre el ESP y el Anexo I.",
			},
			{
				ID:            "3.6",
				Text:          "3.6 Anexos entre sí: Anexo Bienes de Uso / Cuadro de Gastos",
				CurrentStatus: types.CheckOK,
				PriorStatus:   types.CheckOK,
				Notes:         "La amortización del ejercicio es idéntica en ambos anexos.",
			},
			{
				ID:            "4-5",
				Text:          "4 y 5. Revisión de fechas, Informe del Auditor y datos de los firmantes",
				CurrentStatus: types.CheckOK,
				PriorStatus:   types.CheckNotApplicable,
				Notes:         "Fechas y firmas consistentes en todo el documento.",
			},
			{
				ID:            "6",
				Text:          "6. Verificación pase a libros rubricados",
				CurrentStatus: types.CheckNotApplicable,
				PriorStatus:   types.CheckNotApplicable,
				Notes:         "PENDIENTE MANUAL",
			},
		},
	}
}
