// Package messaging adapts the extraction service to Kafka: documents come
// in on one topic and patient records go out on another.
package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tidwall/gjson"

	"github.com/turtacn/MedRecord-NER/internal/application/extraction"
	"github.com/turtacn/MedRecord-NER/internal/domain/patient"
	"github.com/turtacn/MedRecord-NER/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedRecord-NER/internal/intelligence/medner"
	"github.com/turtacn/MedRecord-NER/pkg/errors"
)

// Extraction modes accepted in DocumentMessage.Mode.
const (
	ModeManual = "manual"
	ModeAuto   = "auto"
)

// SourceService is stamped on every published envelope.
const SourceService = "medrec-worker"

// DocumentMessage is the body of a document-topic message.  It may also
// arrive as the payload of a kafka.EventEnvelope.
type DocumentMessage struct {
	DocumentID string `json:"document_id"`
	Text       string `json:"text"`
	Mode       string `json:"mode,omitempty"` // "manual" (default) | "auto"
	APIKey     string `json:"api_key,omitempty"`
}

// Entity is an entity in a published record.
type Entity struct {
	Text       string  `json:"text"`
	Tag        string  `json:"tag"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
}

// PatientOutput is one patient of a processed document.
type PatientOutput struct {
	Index      int                    `json:"patient_index"`
	Text       string                 `json:"original_text"`
	Entities   []Entity               `json:"entities"`
	Record     *patient.PatientRecord `json:"patient_record"`
	Identified bool                   `json:"identified"`
}

// RecordMessage is the payload published to the record topic.
type RecordMessage struct {
	DocumentID  string          `json:"document_id"`
	Mode        string          `json:"mode"`
	Provider    string          `json:"provider,omitempty"`
	Patients    []PatientOutput `json:"patients"`
	Warnings    []string        `json:"warnings"`
	ProcessedAt time.Time       `json:"processed_at"`
}

// DocumentHandler extracts patient records from document messages.
type DocumentHandler struct {
	svc         extraction.Service
	publisher   kafka.Publisher
	recordTopic string
	logger      logging.Logger
}

// NewDocumentHandler creates a DocumentHandler that publishes to recordTopic.
func NewDocumentHandler(svc extraction.Service, publisher kafka.Publisher, recordTopic string, logger logging.Logger) *DocumentHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &DocumentHandler{svc: svc, publisher: publisher, recordTopic: recordTopic, logger: logger.Named("worker.documents")}
}

// Handle is a kafka.MessageHandler.  Malformed messages and documents the
// service rejects as invalid fail permanently; everything else is retried
// by the consumer.
func (h *DocumentHandler) Handle(ctx context.Context, msg *kafka.Message) error {
	doc, err := DecodeDocument(msg.Value)
	if err != nil {
		return kafka.Permanent(err)
	}
	if doc.DocumentID == "" {
		doc.DocumentID = string(msg.Key)
	}

	log := h.logger.With(logging.String(logging.FieldDocumentID, doc.DocumentID), logging.String("mode", doc.Mode))
	out, err := h.extract(ctx, doc)
	if err != nil {
		if code := errors.GetCode(err); errors.IsClientError(code) {
			log.Warn("document rejected", logging.Err(err))
			return kafka.Permanent(err)
		}
		return err
	}

	env, err := kafka.NewEventEnvelope(kafka.EventRecordsExtracted, SourceService, out)
	if err != nil {
		return kafka.Permanent(err)
	}
	if trace := msg.Headers["trace_id"]; trace != "" {
		env.TraceID = trace
	}
	pm, err := env.ToMessage(h.recordTopic, out.DocumentID)
	if err != nil {
		return kafka.Permanent(err)
	}
	if err := h.publisher.Publish(ctx, pm); err != nil {
		return err
	}
	log.Info("records published", logging.Int("patients", len(out.Patients)))
	return nil
}

func (h *DocumentHandler) extract(ctx context.Context, doc *DocumentMessage) (*RecordMessage, error) {
	in := &extraction.ExtractInput{DocumentID: doc.DocumentID, Text: doc.Text, APIKey: doc.APIKey}
	out := &RecordMessage{Mode: doc.Mode, ProcessedAt: time.Now().UTC()}

	switch doc.Mode {
	case ModeAuto:
		res, err := h.svc.ExtractAuto(ctx, in)
		if err != nil {
			return nil, err
		}
		out.DocumentID = res.DocumentID
		out.Provider = res.Provider
		out.Warnings = res.Warnings
		out.Patients = make([]PatientOutput, len(res.Patients))
		for i, p := range res.Patients {
			out.Patients[i] = PatientOutput{Index: p.Index, Text: p.Text, Entities: toEntities(p.Entities), Record: p.Record, Identified: p.Identified}
		}
	default:
		res, err := h.svc.ExtractManual(ctx, in)
		if err != nil {
			return nil, err
		}
		out.DocumentID = res.DocumentID
		out.Warnings = res.Warnings
		out.Patients = []PatientOutput{{
			Index:      1,
			Text:       doc.Text,
			Entities:   toEntities(res.Entities),
			Record:     res.Record,
			Identified: res.Record.HasMinimumInfo(),
		}}
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	return out, nil
}

// DecodeDocument parses a plain DocumentMessage or an envelope carrying one.
// An empty mode becomes ModeManual.
func DecodeDocument(value []byte) (*DocumentMessage, error) {
	if !gjson.ValidBytes(value) {
		return nil, errors.New(errors.ErrCodeSerialization, "document message is not valid JSON")
	}
	raw := value
	if p := gjson.GetBytes(value, "payload"); p.Exists() && gjson.GetBytes(value, "event_type").Exists() {
		raw = []byte(p.Raw)
	}

	var doc DocumentMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode document message")
	}
	switch doc.Mode {
	case "":
		doc.Mode = ModeManual
	case ModeManual, ModeAuto:
	default:
		return nil, errors.Newf(errors.ErrCodeValidation, "unknown mode %q", doc.Mode)
	}
	return &doc, nil
}

func toEntities(es []medner.LocatedEntity) []Entity {
	out := make([]Entity, len(es))
	for i, e := range es {
		out[i] = Entity{Text: e.Text, Tag: e.Type.String(), Start: e.Start, End: e.End, Confidence: e.Confidence}
	}
	return out
}

//Personal.AI order the ending
