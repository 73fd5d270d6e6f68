package patient

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/turtacn/MedRecord-NER/internal/intelligence/medner"
)

// Assemble builds the record of a single patient from that patient's
// entities.  rawText is the text the entity offsets point into; it supplies
// date context and gender cues.
func Assemble(entities []medner.LocatedEntity, rawText string) *PatientRecord {
	rec := NewPatientRecord()

	ordered := append([]medner.LocatedEntity(nil), entities...)
	medner.SortEntities(ordered)
	groups := make(map[medner.EntityType][]medner.LocatedEntity)
	for _, e := range ordered {
		groups[e.Type] = append(groups[e.Type], e)
	}

	rec.PatientID = joinTexts(groups[medner.EntityPatientID])
	rec.Name = joinTexts(groups[medner.EntityName])
	rec.Age = joinTexts(groups[medner.EntityAge])
	rec.Job = joinTexts(groups[medner.EntityJob])
	rec.Gender = NormalizeGender(joinTexts(groups[medner.EntityGender]))
	if rec.Gender == "" {
		rec.Gender = InferGender(rawText, rec.Name, rec.Job)
	}

	rec.Locations = appendTexts(rec.Locations, groups[medner.EntityLocation])
	rec.Organizations = appendTexts(rec.Organizations, groups[medner.EntityOrganization])
	rec.Transportations = appendTexts(rec.Transportations, groups[medner.EntityTransportation])
	rec.SymptomsAndDiseases = appendTexts(rec.SymptomsAndDiseases, groups[medner.EntitySymptomAndDisease])

	raw := []rune(rawText)
	for _, d := range groups[medner.EntityDate] {
		rec.Dates.Add(ClassifyDate(raw, d), d.Text)
	}

	if len(ordered) > 0 {
		sum := 0.0
		for _, e := range ordered {
			sum += e.Confidence
		}
		rec.Confidence = sum / float64(len(ordered))
	}

	if rec.PatientID == "" && rec.Name == "" {
		rec.Warnings = append(rec.Warnings, WarnMissingIdentification)
	}
	if rec.Age == "" && rec.Gender == "" {
		rec.Warnings = append(rec.Warnings, WarnMissingPersonalInfo)
	}
	if len(ordered) == 0 {
		rec.Warnings = append(rec.Warnings, WarnNoEntities)
		rec.Confidence = 0
	}
	return rec
}

func joinTexts(es []medner.LocatedEntity) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Text
	}
	return strings.Join(parts, " ")
}

func appendTexts(dst []string, es []medner.LocatedEntity) []string {
	for _, e := range es {
		dst = append(dst, e.Text)
	}
	return dst
}

// ClassifyDate picks the bucket of a DATE entity from the keywords within
// DateContextWindow runes of it.  Unlocated dates have no context and are
// Unknown.  The window is composed before matching, so decomposed input
// classifies like composed input.
func ClassifyDate(raw []rune, d medner.LocatedEntity) DateBucket {
	if !d.Located() {
		return BucketUnknown
	}
	lo := d.Start - DateContextWindow
	if lo < 0 {
		lo = 0
	}
	hi := d.End + DateContextWindow
	if hi > len(raw) {
		hi = len(raw)
	}
	if lo >= hi {
		return BucketUnknown
	}
	context := norm.NFC.String(strings.ToLower(string(raw[lo:hi])))
	for _, rule := range dateRules {
		for _, kw := range rule.keywords {
			if strings.Contains(context, kw) {
				return rule.bucket
			}
		}
	}
	return BucketUnknown
}

// NormalizeGender maps the known spellings of male and female to GenderMale
// and GenderFemale and capitalizes anything else.
func NormalizeGender(g string) string {
	g = strings.TrimSpace(g)
	if g == "" {
		return ""
	}
	lower := norm.NFC.String(strings.ToLower(g))
	switch {
	case maleVariants.Contains(lower):
		return GenderMale
	case femaleVariants.Contains(lower):
		return GenderFemale
	}
	r, size := utf8.DecodeRuneInString(lower)
	return string(unicode.ToUpper(r)) + lower[size:]
}

// InferGender guesses the gender of a patient the model did not tag one
// for.  Address terms in the text decide first, then the name, then the
// job.  An empty result means no stage was decisive.
func InferGender(rawText, name, job string) string {
	rawText, name, job = norm.NFC.String(rawText), norm.NFC.String(name), norm.NFC.String(job)
	if g := genderFromContext(rawText); g != "" {
		return g
	}
	if g := genderFromName(name); g != "" {
		return g
	}
	return genderFromJob(job)
}

func genderFromContext(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	male, female := 0, 0
	for _, re := range maleContext {
		if re.MatchString(text) {
			male++
		}
	}
	for _, re := range femaleContext {
		if re.MatchString(text) {
			female++
		}
	}
	switch {
	case male > female:
		return GenderMale
	case female > male:
		return GenderFemale
	}
	return ""
}

func genderFromName(name string) string {
	words := strings.Fields(strings.ToLower(name))
	if len(words) >= 2 {
		middle := words[len(words)-2]
		switch {
		case maleMiddleNames.Contains(middle):
			return GenderMale
		case femaleMiddleNames.Contains(middle):
			return GenderFemale
		}
	}
	if len(words) >= 1 {
		given := words[len(words)-1]
		switch {
		case maleGivenNames.Contains(given):
			return GenderMale
		case femaleGivenNames.Contains(given):
			return GenderFemale
		}
	}
	return ""
}

func genderFromJob(job string) string {
	if job == "" {
		return ""
	}
	lower := strings.ToLower(job)
	for _, kw := range maleJobs {
		if strings.Contains(lower, kw) {
			return GenderMale
		}
	}
	for _, kw := range femaleJobs {
		if strings.Contains(lower, kw) {
			return GenderFemale
		}
	}
	return ""
}

//Personal.AI order the ending
