package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/turtacn/MedRecord-NER/pkg/client"
)

var entityHeaders = []string{"#", "Tag", "Text", "Offsets", "Confidence"}

var (
	headingColor = color.New(color.Bold).SprintFunc()
	warnColor    = color.New(color.FgYellow).SprintFunc()
)

func entityRows(es []client.Entity) [][]string {
	rows := make([][]string, len(es))
	for i, e := range es {
		rows[i] = []string{
			fmt.Sprintf("%d", i+1),
			e.Tag,
			truncateString(e.Text, 40),
			formatOffsets(e),
			fmt.Sprintf("%.2f", e.Confidence),
		}
	}
	return rows
}

func writeWarnings(sb *strings.Builder, warnings []string) {
	for _, w := range warnings {
		sb.WriteString(warnColor("warning: "))
		sb.WriteString(w)
		sb.WriteString("\n")
	}
}

// writeRecord prints the non-empty fields of rec, one per line.
func writeRecord(sb *strings.Builder, rec *client.PatientRecord) {
	if rec == nil {
		return
	}
	field := func(name, val string) {
		if val != "" {
			fmt.Fprintf(sb, "  %-22s %s\n", name+":", val)
		}
	}
	list := func(name string, vals []string) {
		field(name, strings.Join(vals, "; "))
	}

	field("patient_id", rec.PatientID)
	field("name", rec.Name)
	field("age", rec.Age)
	field("gender", rec.Gender)
	field("job", rec.Job)
	list("locations", rec.Locations)
	list("organizations", rec.Organizations)
	list("transportations", rec.Transportations)
	list("symptoms_and_diseases", rec.SymptomsAndDiseases)
	d := rec.Dates
	list("admission_date", d.Admission)
	list("test_date", d.Test)
	list("positive_date", d.Positive)
	list("negative_date", d.Negative)
	list("discharge_date", d.Discharge)
	list("entry_date", d.Entry)
	list("recovery_date", d.Recovery)
	list("death_date", d.Death)
	list("unknown_date", d.Unknown)
	fmt.Fprintf(sb, "  %-22s %.2f\n", "confidence:", rec.Confidence)
	writeWarnings(sb, rec.Warnings)
}

// predictView renders a predict response.
type predictView struct{ resp *client.PredictResponse }

func (v predictView) MarshalJSON() ([]byte, error) { return json.Marshal(v.resp) }
func (v predictView) TableHeaders() []string       { return entityHeaders }
func (v predictView) TableRows() [][]string        { return entityRows(v.resp.Entities) }

func (v predictView) String() string {
	var sb strings.Builder
	d := v.resp.Diagnostics
	fmt.Fprintf(&sb, "%s %s: %d entities, %d chunk(s), %.3fs\n",
		headingColor("Document"), d.DocumentID, len(v.resp.Entities), d.Chunks, v.resp.ProcessingTime)
	if len(v.resp.Entities) > 0 {
		sb.WriteString(FormatTable(entityHeaders, entityRows(v.resp.Entities)))
	}
	if d.SoftFixes > 0 || d.LocatorMisses > 0 {
		fmt.Fprintf(&sb, "soft fixes: %d, unlocated entities: %d\n", d.SoftFixes, d.LocatorMisses)
	}
	writeWarnings(&sb, d.Warnings)
	return sb.String()
}

// manualView renders an extract response in manual mode.
type manualView struct{ resp *client.ManualResponse }

func (v manualView) MarshalJSON() ([]byte, error) { return json.Marshal(v.resp) }
func (v manualView) TableHeaders() []string       { return entityHeaders }
func (v manualView) TableRows() [][]string        { return entityRows(v.resp.Entities) }

func (v manualView) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s: %d entities, %.3fs\n",
		headingColor("Document"), v.resp.DocumentID, len(v.resp.Entities), v.resp.ProcessingTime)
	if v.resp.PatientRecord != nil {
		sb.WriteString(headingColor("Patient record") + "\n")
		writeRecord(&sb, v.resp.PatientRecord)
	}
	writeWarnings(&sb, v.resp.Warnings)
	return sb.String()
}

// autoView renders an extract response in auto mode.
type autoView struct{ resp *client.AutoResponse }

func (v autoView) MarshalJSON() ([]byte, error) { return json.Marshal(v.resp) }

func (v autoView) TableHeaders() []string {
	return []string{"Patient", "Name", "Age", "Gender", "Entities", "Confidence"}
}

func (v autoView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.resp.Patients))
	for _, p := range v.resp.Patients {
		row := []string{fmt.Sprintf("%d", p.PatientIndex), "", "", "", fmt.Sprintf("%d", len(p.Entities)), ""}
		if rec := p.PatientRecord; rec != nil {
			row[1], row[2], row[3] = truncateString(rec.Name, 30), rec.Age, rec.Gender
			row[5] = fmt.Sprintf("%.2f", rec.Confidence)
		}
		rows = append(rows, row)
	}
	return rows
}

func (v autoView) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s: %d patient(s) via %s, %.3fs\n",
		headingColor("Document"), v.resp.DocumentID, v.resp.NumPatients, v.resp.Provider, v.resp.ProcessingTime)
	for _, p := range v.resp.Patients {
		fmt.Fprintf(&sb, "%s (%d entities)\n", headingColor(fmt.Sprintf("Patient %d", p.PatientIndex)), len(p.Entities))
		writeRecord(&sb, p.PatientRecord)
	}
	writeWarnings(&sb, v.resp.Warnings)
	return sb.String()
}

// splitView renders a split response.
type splitView struct{ resp *client.SplitResponse }

func (v splitView) MarshalJSON() ([]byte, error) { return json.Marshal(v.resp) }
func (v splitView) TableHeaders() []string       { return []string{"#", "Segment"} }

func (v splitView) TableRows() [][]string {
	rows := make([][]string, len(v.resp.Segments))
	for i, s := range v.resp.Segments {
		rows[i] = []string{fmt.Sprintf("%d", i+1), truncateString(strings.Join(strings.Fields(s), " "), 80)}
	}
	return rows
}

func (v splitView) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %d segment(s) via %s\n", headingColor("Split:"), v.resp.NumSegments, v.resp.Provider)
	for i, s := range v.resp.Segments {
		fmt.Fprintf(&sb, "--- %d ---\n%s\n", i+1, strings.TrimSpace(s))
	}
	if v.resp.Warning != "" {
		writeWarnings(&sb, []string{v.resp.Warning})
	}
	return sb.String()
}

// healthView renders a health report.
type healthView struct{ resp *client.HealthResponse }

func (v healthView) MarshalJSON() ([]byte, error) { return json.Marshal(v.resp) }
func (v healthView) TableHeaders() []string       { return []string{"Component", "Available"} }

func (v healthView) TableRows() [][]string {
	return [][]string{
		{"model", fmt.Sprintf("%t", v.resp.ModelLoaded)},
		{"normalizer", fmt.Sprintf("%t", v.resp.NormalizerAvailable)},
		{"splitter (" + v.resp.SplitterProvider + ")", fmt.Sprintf("%t", v.resp.SplitterConfigured)},
	}
}

func (v healthView) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", headingColor("Status:"), v.resp.Status)
	for _, row := range v.TableRows() {
		fmt.Fprintf(&sb, "  %-24s %s\n", row[0], row[1])
	}
	return sb.String()
}

//Personal.AI order the ending
