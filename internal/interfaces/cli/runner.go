package cli

import (
	"context"
	"time"

	"github.com/turtacn/MedRecord-NER/internal/application/extraction"
	"github.com/turtacn/MedRecord-NER/internal/bootstrap"
	"github.com/turtacn/MedRecord-NER/internal/config"
	"github.com/turtacn/MedRecord-NER/internal/domain/patient"
	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedRecord-NER/internal/intelligence/medner"
	"github.com/turtacn/MedRecord-NER/pkg/client"
)

// Runner executes extraction requests.  Responses use the API wire types so
// that in-process and remote runs print identically.
type Runner interface {
	Predict(ctx context.Context, req *client.TextRequest) (*client.PredictResponse, error)
	ExtractManual(ctx context.Context, req *client.TextRequest) (*client.ManualResponse, error)
	ExtractAuto(ctx context.Context, req *client.AutoRequest) (*client.AutoResponse, error)
	Split(ctx context.Context, req *client.AutoRequest) (*client.SplitResponse, error)
	Health(ctx context.Context) (*client.HealthResponse, error)
	Close() error
}

// RunnerFactory builds the Runner for one command invocation.
type RunnerFactory func(ctx context.Context, cfg *config.Config, opts *RootOptions, logger logging.Logger) (Runner, error)

// DefaultRunnerFactory talks to opts.ServerAddr when set and builds the
// extraction stack in-process otherwise.
func DefaultRunnerFactory(ctx context.Context, cfg *config.Config, opts *RootOptions, logger logging.Logger) (Runner, error) {
	if opts.ServerAddr != "" {
		c, err := client.NewClient(opts.ServerAddr,
			client.WithTimeout(opts.Timeout),
			client.WithUserAgent("medrec-cli/"+Version),
			client.WithBearerToken(opts.Token))
		if err != nil {
			return nil, err
		}
		return NewRemoteRunner(c), nil
	}

	components, err := bootstrap.Build(ctx, cfg, logger, nil)
	if err != nil {
		return nil, err
	}
	return NewLocalRunner(components.Service, components.Close), nil
}

// remoteRunner forwards to the API server.
type remoteRunner struct {
	*client.NERClient
}

// NewRemoteRunner returns a Runner backed by c.
func NewRemoteRunner(c *client.Client) Runner {
	return remoteRunner{NERClient: c.NER()}
}

func (remoteRunner) Close() error { return nil }

// localRunner calls the extraction service directly.
type localRunner struct {
	svc     extraction.Service
	closeFn func() error
}

// NewLocalRunner returns a Runner over svc.  closeFn, when non-nil, is
// called by Close.
func NewLocalRunner(svc extraction.Service, closeFn func() error) Runner {
	return &localRunner{svc: svc, closeFn: closeFn}
}

func (r *localRunner) Predict(ctx context.Context, req *client.TextRequest) (*client.PredictResponse, error) {
	start := time.Now()
	res, err := r.svc.Predict(ctx, &extraction.PredictInput{DocumentID: req.DocumentID, Text: req.Text})
	if err != nil {
		return nil, err
	}
	return &client.PredictResponse{
		Success:  true,
		Entities: toEntities(res.Entities),
		Diagnostics: client.Diagnostics{
			DocumentID:    res.DocumentID,
			Chunks:        res.Chunks,
			SoftFixes:     res.SoftFixes,
			LocatorMisses: len(res.LocatorMisses),
			Normalized:    res.Normalized,
			Warnings:      res.Warnings,
		},
		ProcessingTime: time.Since(start).Seconds(),
	}, nil
}

func (r *localRunner) ExtractManual(ctx context.Context, req *client.TextRequest) (*client.ManualResponse, error) {
	start := time.Now()
	res, err := r.svc.ExtractManual(ctx, &extraction.ExtractInput{DocumentID: req.DocumentID, Text: req.Text})
	if err != nil {
		return nil, err
	}
	return &client.ManualResponse{
		Success:        true,
		DocumentID:     res.DocumentID,
		Entities:       toEntities(res.Entities),
		PatientRecord:  toRecord(res.Record),
		Warnings:       res.Warnings,
		ProcessingTime: time.Since(start).Seconds(),
	}, nil
}

func (r *localRunner) ExtractAuto(ctx context.Context, req *client.AutoRequest) (*client.AutoResponse, error) {
	start := time.Now()
	res, err := r.svc.ExtractAuto(ctx, &extraction.ExtractInput{DocumentID: req.DocumentID, Text: req.Text, APIKey: req.APIKey})
	if err != nil {
		return nil, err
	}
	patients := make([]client.PatientSegment, len(res.Patients))
	for i, p := range res.Patients {
		patients[i] = client.PatientSegment{
			PatientIndex:  p.Index,
			OriginalText:  p.Text,
			Entities:      toEntities(p.Entities),
			PatientRecord: toRecord(p.Record),
			Identified:    p.Identified,
		}
	}
	return &client.AutoResponse{
		Success:        true,
		DocumentID:     res.DocumentID,
		Provider:       res.Provider,
		NumPatients:    len(patients),
		Patients:       patients,
		Warnings:       res.Warnings,
		ProcessingTime: time.Since(start).Seconds(),
	}, nil
}

func (r *localRunner) Split(ctx context.Context, req *client.AutoRequest) (*client.SplitResponse, error) {
	start := time.Now()
	res, err := r.svc.Split(ctx, &extraction.ExtractInput{DocumentID: req.DocumentID, Text: req.Text, APIKey: req.APIKey})
	if err != nil {
		return nil, err
	}
	return &client.SplitResponse{
		Success:        true,
		Provider:       res.Provider,
		NumSegments:    len(res.Segments),
		Segments:       res.Segments,
		Warning:        res.Warning,
		ProcessingTime: time.Since(start).Seconds(),
	}, nil
}

func (r *localRunner) Health(ctx context.Context) (*client.HealthResponse, error) {
	h := r.svc.Health(ctx)
	return &client.HealthResponse{
		Status:              h.Status,
		ModelLoaded:         h.ModelLoaded,
		NormalizerAvailable: h.NormalizerAvailable,
		SplitterConfigured:  h.SplitterConfigured,
		SplitterProvider:    h.SplitterProvider,
		Version:             Version,
	}, nil
}

func (r *localRunner) Close() error {
	if r.closeFn == nil {
		return nil
	}
	return r.closeFn()
}

func toEntities(es []medner.LocatedEntity) []client.Entity {
	out := make([]client.Entity, len(es))
	for i, e := range es {
		out[i] = client.Entity{Text: e.Text, Tag: e.Type.String(), Start: e.Start, End: e.End, Confidence: e.Confidence}
	}
	return out
}

func toRecord(r *patient.PatientRecord) *client.PatientRecord {
	if r == nil {
		return nil
	}
	return &client.PatientRecord{
		PatientID:           r.PatientID,
		Name:                r.Name,
		Age:                 r.Age,
		Gender:              r.Gender,
		Job:                 r.Job,
		Locations:           r.Locations,
		Organizations:       r.Organizations,
		Transportations:     r.Transportations,
		SymptomsAndDiseases: r.SymptomsAndDiseases,
		Dates:               client.Dates(r.Dates),
		Confidence:          r.Confidence,
		Warnings:            r.Warnings,
	}
}

//Personal.AI order the ending
