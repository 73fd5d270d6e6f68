package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MedRecord-NER/internal/config"
	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedRecord-NER/pkg/client"
	"github.com/turtacn/MedRecord-NER/pkg/errors"
)

// fakeRunner records requests and returns canned responses.
type fakeRunner struct {
	predictReq *client.TextRequest
	manualReq  *client.TextRequest
	autoReq    *client.AutoRequest
	splitReq   *client.AutoRequest
	closed     int
	err        error

	predict *client.PredictResponse
	manual  *client.ManualResponse
	auto    *client.AutoResponse
	split   *client.SplitResponse
	health  *client.HealthResponse
}

func (f *fakeRunner) Predict(_ context.Context, req *client.TextRequest) (*client.PredictResponse, error) {
	f.predictReq = req
	return f.predict, f.err
}

func (f *fakeRunner) ExtractManual(_ context.Context, req *client.TextRequest) (*client.ManualResponse, error) {
	f.manualReq = req
	return f.manual, f.err
}

func (f *fakeRunner) ExtractAuto(_ context.Context, req *client.AutoRequest) (*client.AutoResponse, error) {
	f.autoReq = req
	return f.auto, f.err
}

func (f *fakeRunner) Split(_ context.Context, req *client.AutoRequest) (*client.SplitResponse, error) {
	f.splitReq = req
	return f.split, f.err
}

func (f *fakeRunner) Health(context.Context) (*client.HealthResponse, error) {
	return f.health, f.err
}

func (f *fakeRunner) Close() error {
	f.closed++
	return nil
}

func (f *fakeRunner) factory() RunnerFactory {
	return func(context.Context, *config.Config, *RootOptions, logging.Logger) (Runner, error) {
		return f, nil
	}
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "medrec.yaml")
	require.NoError(t, os.WriteFile(path, []byte("normalizer:\n  provider: identity\nsplitter:\n  provider: heuristic\n"), 0o600))
	return path
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, factory RunnerFactory, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommandWithFactory(factory)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", writeTestConfig(t), "--no-color"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "medrec", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.Contains(t, cmd.Version, Version)

	subs := map[string]bool{}
	for _, sub := range cmd.Commands() {
		subs[sub.Name()] = true
	}
	for _, name := range []string{"predict", "extract", "split", "health"} {
		assert.True(t, subs[name], "missing subcommand %q", name)
	}

	for _, name := range []string{"config", "log-level", "output", "verbose", "no-color", "timeout", "server", "token"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing flag --%s", name)
	}
	assert.Equal(t, "text", cmd.PersistentFlags().Lookup("output").DefValue)
	assert.Equal(t, "", cmd.PersistentFlags().Lookup("server").DefValue)
}

func TestRootCommand_UnknownOutputFormat(t *testing.T) {
	f := &fakeRunner{}
	_, _, err := execute(t, f.factory(), "", "-o", "yaml", "predict", "--text", "x")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
	assert.Nil(t, f.predictReq)
}

func TestRootCommand_BadConfigPath(t *testing.T) {
	f := &fakeRunner{}
	cmd := NewRootCommandWithFactory(f.factory())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "health"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config initialization failed")
}

func TestRootCommand_FactoryError(t *testing.T) {
	boom := errors.New(errors.ErrCodeServiceUnavailable, "model server down")
	factory := func(context.Context, *config.Config, *RootOptions, logging.Logger) (Runner, error) {
		return nil, boom
	}
	_, _, err := execute(t, factory, "", "health")
	assert.ErrorIs(t, err, boom)
}

func TestRootCommand_FactoryReceivesOptions(t *testing.T) {
	var got *RootOptions
	var gotCfg *config.Config
	f := &fakeRunner{health: &client.HealthResponse{Status: "online"}}
	factory := func(_ context.Context, cfg *config.Config, opts *RootOptions, _ logging.Logger) (Runner, error) {
		got, gotCfg = opts, cfg
		return f, nil
	}
	_, _, err := execute(t, factory, "", "--server", "http://api:8080", "health")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "http://api:8080", got.ServerAddr)
	assert.Equal(t, "identity", gotCfg.Normalizer.Provider)
	assert.Equal(t, 1, f.closed)
}

func TestGetCLIContext_Missing(t *testing.T) {
	cmd := NewPredictCmd()
	_, err := GetCLIContext(cmd)
	assert.Error(t, err)

	cmd.SetContext(context.Background())
	_, err = GetCLIContext(cmd)
	assert.Error(t, err)
}

func TestPrintResult_FallsBackToJSONWithoutContext(t *testing.T) {
	cmd := NewPredictCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, PrintResult(cmd, map[string]int{"n": 1}))
	assert.JSONEq(t, `{"n":1}`, out.String())
}

func TestPrintError(t *testing.T) {
	cmd := NewPredictCmd()
	var errOut bytes.Buffer
	cmd.SetErr(&errOut)

	PrintError(cmd, nil)
	assert.Empty(t, errOut.String())

	PrintError(cmd, errors.New(errors.ErrCodeBadRequest, "bad"))
	assert.Contains(t, errOut.String(), "Error:")
	assert.Contains(t, errOut.String(), "bad")
}

func TestFormatTable(t *testing.T) {
	out := FormatTable([]string{"Tag", "Text"}, [][]string{{"NAME", "Nguyễn Văn A"}, {"AGE"}})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Tag   Text        ", lines[0])
	assert.Equal(t, "----  ------------", lines[1])
	assert.Equal(t, "NAME  Nguyễn Văn A", lines[2])
	assert.Equal(t, "AGE               ", lines[3])

	assert.Empty(t, FormatTable(nil, nil))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", truncateString("abc", 5))
	assert.Equal(t, "Nguy...", truncateString("Nguyễn Văn A", 7))
	assert.Equal(t, "ab", truncateString("abcdef", 2))
}

//Personal.AI order the ending
