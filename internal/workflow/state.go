package workflow

import (
	"errors"

	"github.com/jonathan/balance-validator/internal/types"
)

// Screen is one of the four views of the workflow.
type Screen string

const (
	ScreenUpload     Screen = "upload"
	ScreenProcessing Screen = "processing"
	ScreenResults    Screen = "results"
	ScreenHistory    Screen = "history"
)

// Valid reports whether s names a known screen.
func (s Screen) Valid() bool {
	switch s {
	case ScreenUpload, ScreenProcessing, ScreenResults, ScreenHistory:
		return true
	}
	return false
}

// Title returns the page heading shown for the screen.
func (s Screen) Title() string {
	switch s {
	case ScreenProcessing:
		return "Procesando..."
	case ScreenResults:
		return "Resultados de Validación"
	case ScreenHistory:
		return "Historial"
	default:
		return "Analizar balance"
	}
}

// State is a snapshot of the workflow. Result is set only on the results screen.
type State struct {
	Screen         Screen                  `json:"screen"`
	FileName       string                  `json:"file_name,omitempty"`
	Result         *types.ValidationResult `json:"result,omitempty"`
	Error          string                  `json:"error,omitempty"`
	ProcessingTime float64                 `json:"processing_time,omitempty"`
	// EntryID is the history entry being viewed, when the results came from history.
	EntryID string `json:"entry_id,omitempty"`
}

func (s State) clone() State {
	s.Result = s.Result.Clone()
	return s
}

// MsgNotPDF is shown when the selected file is not a PDF.
const MsgNotPDF = "Por favor, seleccione un archivo PDF."

// MsgNotOnUpload rejects a submission made while results or history are on
// screen. The state is left as it is.
const MsgNotOnUpload = "Vuelva a la pantalla de carga para analizar un nuevo balance."

// ErrBusy is returned by Submit while an analysis is already running.
var ErrBusy = errors.New("an analysis is already in progress")

// InputError rejects a submission before any analysis is attempted.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}
