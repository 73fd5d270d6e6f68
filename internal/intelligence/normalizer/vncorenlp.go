package normalizer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"

	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedRecord-NER/pkg/errors"
)

// ErrSegmenterUnavailable is returned while the server has not answered a
// probe.
var ErrSegmenterUnavailable = errors.New(errors.ErrCodeNormalizerUnavailable, "word segmenter unavailable")

// probeText is segmented by Init to verify the server end to end.
const probeText = "Bệnh nhân"

// VnCoreNLPConfig points at a VnCoreNLP server.
type VnCoreNLPConfig struct {
	URL        string
	Timeout    time.Duration
	Annotators []string
}

// VnCoreNLP is a client for the VnCoreNLP server's /handle endpoint.  The
// server answers
//
//	{"status": true, "sentences": [[{"form": "Bệnh_nhân", ...}, ...], ...]}
type VnCoreNLP struct {
	cfg       VnCoreNLPConfig
	client    *http.Client
	logger    logging.Logger
	available atomic.Bool
}

// NewVnCoreNLP creates a client.  It is unavailable until Init succeeds.
func NewVnCoreNLP(cfg VnCoreNLPConfig, httpClient *http.Client, logger logging.Logger) (*VnCoreNLP, error) {
	if cfg.URL == "" {
		return nil, errors.New(errors.ErrCodeValidation, "vncorenlp url cannot be empty")
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if len(cfg.Annotators) == 0 {
		cfg.Annotators = []string{"wseg"}
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &VnCoreNLP{cfg: cfg, client: httpClient, logger: logger.Named("normalizer.vncorenlp")}, nil
}

// Init probes the server and marks the client available on success.
func (v *VnCoreNLP) Init(ctx context.Context) error {
	if _, err := v.segment(ctx, probeText); err != nil {
		v.available.Store(false)
		v.logger.Warn("word segmenter probe failed", logging.String("url", v.cfg.URL), logging.Err(err))
		return err
	}
	v.available.Store(true)
	v.logger.Info("word segmenter ready", logging.String("url", v.cfg.URL))
	return nil
}

func (v *VnCoreNLP) IsAvailable() bool { return v.available.Load() }

// Normalize segments text and joins the words of all sentences with single
// spaces.
func (v *VnCoreNLP) Normalize(ctx context.Context, text string) (string, error) {
	if !v.IsAvailable() {
		return "", ErrSegmenterUnavailable
	}
	return v.segment(ctx, text)
}

func (v *VnCoreNLP) segment(ctx context.Context, text string) (string, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("props", strings.Join(v.cfg.Annotators, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.URL+"/handle", strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "build segmentation request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "word segmentation cancelled")
		}
		return "", errors.Wrap(err, errors.ErrCodeNormalizerUnavailable, "word segmenter unreachable").WithDetail(v.cfg.URL)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeExternalService, "read segmentation response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.New(errors.ErrCodeExternalService, "word segmenter returned an error").
			WithDetail(fmt.Sprintf("HTTP %d", resp.StatusCode))
	}
	if !gjson.ValidBytes(data) {
		return "", errors.New(errors.ErrCodeExternalService, "word segmenter returned invalid JSON")
	}
	if st := gjson.GetBytes(data, "status"); st.Exists() && !st.Bool() {
		msg := gjson.GetBytes(data, "error").String()
		if msg == "" {
			msg = "word segmenter rejected the request"
		}
		return "", errors.New(errors.ErrCodeExternalService, msg)
	}

	var words []string
	for _, sentence := range gjson.GetBytes(data, "sentences").Array() {
		for _, w := range sentence.Get("#.form").Array() {
			if f := w.String(); f != "" {
				words = append(words, f)
			}
		}
	}
	return strings.Join(words, " "), nil
}

//Personal.AI order the ending
