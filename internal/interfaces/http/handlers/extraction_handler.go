package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MedRecord-NER/internal/application/extraction"
	"github.com/turtacn/MedRecord-NER/internal/domain/patient"
	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedRecord-NER/internal/intelligence/medner"
	"github.com/turtacn/MedRecord-NER/internal/interfaces/http/middleware"
)

// ExtractionHandler serves the entity and patient extraction endpoints.
type ExtractionHandler struct {
	svc    extraction.Service
	logger logging.Logger
}

// NewExtractionHandler creates an ExtractionHandler.
func NewExtractionHandler(svc extraction.Service, logger logging.Logger) *ExtractionHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ExtractionHandler{svc: svc, logger: logger.Named("handler.extraction")}
}

// TextRequest is the body of predict and extract-manual.
type TextRequest struct {
	Text       string `json:"text" binding:"required"`
	DocumentID string `json:"document_id,omitempty"`
}

// AutoExtractRequest is the body of extract-auto.  APIKey overrides the
// server's splitter key for this request; gemini_api_key is accepted for
// older clients.
type AutoExtractRequest struct {
	Text         string `json:"text" binding:"required"`
	DocumentID   string `json:"document_id,omitempty"`
	APIKey       string `json:"api_key,omitempty"`
	GeminiAPIKey string `json:"gemini_api_key,omitempty"`
}

// EntityResponse is one entity in API responses.  Start and End are rune
// offsets, -1 when the entity could not be located.
type EntityResponse struct {
	Text       string  `json:"text"`
	Tag        string  `json:"tag"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
}

// DiagnosticsResponse exposes what the pipeline did to produce the entities.
type DiagnosticsResponse struct {
	DocumentID    string   `json:"document_id"`
	Chunks        int      `json:"chunks"`
	SoftFixes     int      `json:"soft_fixes"`
	LocatorMisses int      `json:"locator_misses"`
	Normalized    bool     `json:"normalized"`
	Warnings      []string `json:"warnings"`
}

// PredictResponse is the body of a successful predict call.
type PredictResponse struct {
	Success        bool                `json:"success"`
	Entities       []EntityResponse    `json:"entities"`
	Diagnostics    DiagnosticsResponse `json:"diagnostics"`
	ProcessingTime float64             `json:"processing_time"`
}

// ManualExtractResponse is the body of a successful extract-manual call.
type ManualExtractResponse struct {
	Success        bool                   `json:"success"`
	DocumentID     string                 `json:"document_id"`
	Entities       []EntityResponse       `json:"entities"`
	PatientRecord  *patient.PatientRecord `json:"patient_record"`
	Warnings       []string               `json:"warnings"`
	ProcessingTime float64                `json:"processing_time"`
}

// PatientSegmentResponse is one patient in an extract-auto response.
type PatientSegmentResponse struct {
	PatientIndex  int                    `json:"patient_index"`
	OriginalText  string                 `json:"original_text"`
	Entities      []EntityResponse       `json:"entities"`
	PatientRecord *patient.PatientRecord `json:"patient_record"`
	Identified    bool                   `json:"identified"`
}

// AutoExtractResponse is the body of a successful extract-auto call.
type AutoExtractResponse struct {
	Success        bool                     `json:"success"`
	DocumentID     string                   `json:"document_id"`
	Provider       string                   `json:"provider"`
	NumPatients    int                      `json:"num_patients"`
	Patients       []PatientSegmentResponse `json:"patients"`
	Warnings       []string                 `json:"warnings"`
	ProcessingTime float64                  `json:"processing_time"`
}

// SplitResponse is the body of a successful split call.
type SplitResponse struct {
	Success        bool     `json:"success"`
	Provider       string   `json:"provider"`
	NumSegments    int      `json:"num_segments"`
	Segments       []string `json:"segments"`
	Warning        string   `json:"warning,omitempty"`
	ProcessingTime float64  `json:"processing_time"`
}

func toEntityResponses(es []medner.LocatedEntity) []EntityResponse {
	out := make([]EntityResponse, len(es))
	for i, e := range es {
		out[i] = EntityResponse{Text: e.Text, Tag: e.Type.String(), Start: e.Start, End: e.End, Confidence: e.Confidence}
	}
	return out
}

// Predict handles POST /api/ner/predict.
func (h *ExtractionHandler) Predict(c *gin.Context) {
	start := time.Now()
	var req TextRequest
	if !bindJSON(c, start, &req) {
		return
	}

	res, err := h.svc.Predict(c.Request.Context(), &extraction.PredictInput{DocumentID: req.DocumentID, Text: req.Text})
	if err != nil {
		h.logFailure(c, "predict", err)
		writeAppError(c, start, err)
		return
	}

	c.JSON(http.StatusOK, PredictResponse{
		Success:  true,
		Entities: toEntityResponses(res.Entities),
		Diagnostics: DiagnosticsResponse{
			DocumentID:    res.DocumentID,
			Chunks:        res.Chunks,
			SoftFixes:     res.SoftFixes,
			LocatorMisses: len(res.LocatorMisses),
			Normalized:    res.Normalized,
			Warnings:      res.Warnings,
		},
		ProcessingTime: elapsed(start),
	})
}

// ExtractManual handles POST /api/ner/extract-manual.
func (h *ExtractionHandler) ExtractManual(c *gin.Context) {
	start := time.Now()
	var req TextRequest
	if !bindJSON(c, start, &req) {
		return
	}

	res, err := h.svc.ExtractManual(c.Request.Context(), &extraction.ExtractInput{DocumentID: req.DocumentID, Text: req.Text})
	if err != nil {
		h.logFailure(c, "extract-manual", err)
		writeAppError(c, start, err)
		return
	}

	c.JSON(http.StatusOK, ManualExtractResponse{
		Success:        true,
		DocumentID:     res.DocumentID,
		Entities:       toEntityResponses(res.Entities),
		PatientRecord:  res.Record,
		Warnings:       res.Warnings,
		ProcessingTime: elapsed(start),
	})
}

// ExtractAuto handles POST /api/ner/extract-auto.
func (h *ExtractionHandler) ExtractAuto(c *gin.Context) {
	start := time.Now()
	var req AutoExtractRequest
	if !bindJSON(c, start, &req) {
		return
	}
	key := req.APIKey
	if key == "" {
		key = req.GeminiAPIKey
	}

	res, err := h.svc.ExtractAuto(c.Request.Context(), &extraction.ExtractInput{DocumentID: req.DocumentID, Text: req.Text, APIKey: key})
	if err != nil {
		h.logFailure(c, "extract-auto", err)
		writeAppError(c, start, err)
		return
	}

	patients := make([]PatientSegmentResponse, len(res.Patients))
	for i, p := range res.Patients {
		patients[i] = PatientSegmentResponse{
			PatientIndex:  p.Index,
			OriginalText:  p.Text,
			Entities:      toEntityResponses(p.Entities),
			PatientRecord: p.Record,
			Identified:    p.Identified,
		}
	}
	c.JSON(http.StatusOK, AutoExtractResponse{
		Success:        true,
		DocumentID:     res.DocumentID,
		Provider:       res.Provider,
		NumPatients:    len(patients),
		Patients:       patients,
		Warnings:       res.Warnings,
		ProcessingTime: elapsed(start),
	})
}

// Split handles POST /api/ner/split.  It only runs the patient splitter.
func (h *ExtractionHandler) Split(c *gin.Context) {
	start := time.Now()
	var req AutoExtractRequest
	if !bindJSON(c, start, &req) {
		return
	}
	key := req.APIKey
	if key == "" {
		key = req.GeminiAPIKey
	}

	res, err := h.svc.Split(c.Request.Context(), &extraction.ExtractInput{DocumentID: req.DocumentID, Text: req.Text, APIKey: key})
	if err != nil {
		h.logFailure(c, "split", err)
		writeAppError(c, start, err)
		return
	}

	c.JSON(http.StatusOK, SplitResponse{
		Success:        true,
		Provider:       res.Provider,
		NumSegments:    len(res.Segments),
		Segments:       res.Segments,
		Warning:        res.Warning,
		ProcessingTime: elapsed(start),
	})
}

func (h *ExtractionHandler) logFailure(c *gin.Context, op string, err error) {
	h.logger.Warn("extraction request failed",
		logging.String("operation", op),
		logging.String(logging.FieldRequestID, middleware.GetRequestID(c)),
		logging.Err(err))
}

//Personal.AI order the ending
