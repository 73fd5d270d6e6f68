package client

import "context"

// Entity is one located entity.  Start and End are rune offsets into the
// submitted text, -1 when the entity could not be located.
type Entity struct {
	Text       string  `json:"text"`
	Tag        string  `json:"tag"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Diagnostics describes how the server produced a predict response.
type Diagnostics struct {
	DocumentID    string   `json:"document_id"`
	Chunks        int      `json:"chunks"`
	SoftFixes     int      `json:"soft_fixes"`
	LocatorMisses int      `json:"locator_misses"`
	Normalized    bool     `json:"normalized"`
	Warnings      []string `json:"warnings"`
}

// Dates groups DATE entities by the event they belong to.
type Dates struct {
	Admission []string `json:"admission_date"`
	Test      []string `json:"test_date"`
	Positive  []string `json:"positive_date"`
	Negative  []string `json:"negative_date"`
	Discharge []string `json:"discharge_date"`
	Entry     []string `json:"entry_date"`
	Recovery  []string `json:"recovery_date"`
	Death     []string `json:"death_date"`
	Unknown   []string `json:"unknown_date"`
}

// PatientRecord is the structured record of one patient.
type PatientRecord struct {
	PatientID           string   `json:"patient_id"`
	Name                string   `json:"name"`
	Age                 string   `json:"age"`
	Gender              string   `json:"gender"`
	Job                 string   `json:"job"`
	Locations           []string `json:"locations"`
	Organizations       []string `json:"organizations"`
	Transportations     []string `json:"transportations"`
	SymptomsAndDiseases []string `json:"symptoms_and_diseases"`
	Dates               Dates    `json:"dates"`
	Confidence          float64  `json:"confidence"`
	Warnings            []string `json:"warnings"`
}

// TextRequest is the body of Predict and ExtractManual.
type TextRequest struct {
	Text       string `json:"text"`
	DocumentID string `json:"document_id,omitempty"`
}

// AutoRequest is the body of ExtractAuto and Split.  APIKey overrides the
// server's splitter key.
type AutoRequest struct {
	Text       string `json:"text"`
	DocumentID string `json:"document_id,omitempty"`
	APIKey     string `json:"api_key,omitempty"`
}

type PredictResponse struct {
	Success        bool        `json:"success"`
	Entities       []Entity    `json:"entities"`
	Diagnostics    Diagnostics `json:"diagnostics"`
	ProcessingTime float64     `json:"processing_time"`
}

type ManualResponse struct {
	Success        bool           `json:"success"`
	DocumentID     string         `json:"document_id"`
	Entities       []Entity       `json:"entities"`
	PatientRecord  *PatientRecord `json:"patient_record"`
	Warnings       []string       `json:"warnings"`
	ProcessingTime float64        `json:"processing_time"`
}

type PatientSegment struct {
	PatientIndex  int            `json:"patient_index"`
	OriginalText  string         `json:"original_text"`
	Entities      []Entity       `json:"entities"`
	PatientRecord *PatientRecord `json:"patient_record"`
	Identified    bool           `json:"identified"`
}

type AutoResponse struct {
	Success        bool             `json:"success"`
	DocumentID     string           `json:"document_id"`
	Provider       string           `json:"provider"`
	NumPatients    int              `json:"num_patients"`
	Patients       []PatientSegment `json:"patients"`
	Warnings       []string         `json:"warnings"`
	ProcessingTime float64          `json:"processing_time"`
}

type SplitResponse struct {
	Success        bool     `json:"success"`
	Provider       string   `json:"provider"`
	NumSegments    int      `json:"num_segments"`
	Segments       []string `json:"segments"`
	Warning        string   `json:"warning,omitempty"`
	ProcessingTime float64  `json:"processing_time"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status              string `json:"status"`
	ModelLoaded         bool   `json:"model_loaded"`
	NormalizerAvailable bool   `json:"normalizer_available"`
	SplitterConfigured  bool   `json:"splitter_configured"`
	SplitterProvider    string `json:"splitter_provider"`
	Version             string `json:"version"`
}

// NERClient calls the /api/ner endpoints.
type NERClient struct {
	client *Client
}

func (n *NERClient) Predict(ctx context.Context, req *TextRequest) (*PredictResponse, error) {
	var resp PredictResponse
	if err := n.client.post(ctx, "/api/ner/predict", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (n *NERClient) ExtractManual(ctx context.Context, req *TextRequest) (*ManualResponse, error) {
	var resp ManualResponse
	if err := n.client.post(ctx, "/api/ner/extract-manual", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (n *NERClient) ExtractAuto(ctx context.Context, req *AutoRequest) (*AutoResponse, error) {
	var resp AutoResponse
	if err := n.client.post(ctx, "/api/ner/extract-auto", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (n *NERClient) Split(ctx context.Context, req *AutoRequest) (*SplitResponse, error) {
	var resp SplitResponse
	if err := n.client.post(ctx, "/api/ner/split", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health reports which server features are available.
func (n *NERClient) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := n.client.get(ctx, "/api/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

//Personal.AI order the ending
