// Package medner turns token-level BIO predictions of a Vietnamese medical
// NER model into entities with rune offsets into the original document.
package medner

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EntityType is the closed set of entity categories the model predicts.
type EntityType int

const (
	EntityUnknown EntityType = iota
	EntityPatientID
	EntityName
	EntityAge
	EntityGender
	EntityJob
	EntityLocation
	EntityOrganization
	EntitySymptomAndDisease
	EntityTransportation
	EntityDate
)

var entityTypeNames = map[EntityType]string{
	EntityPatientID:         "PATIENT_ID",
	EntityName:              "NAME",
	EntityAge:               "AGE",
	EntityGender:            "GENDER",
	EntityJob:               "JOB",
	EntityLocation:          "LOCATION",
	EntityOrganization:      "ORGANIZATION",
	EntitySymptomAndDisease: "SYMPTOM_AND_DISEASE",
	EntityTransportation:    "TRANSPORTATION",
	EntityDate:              "DATE",
}

var entityTypesByName = func() map[string]EntityType {
	m := make(map[string]EntityType, len(entityTypeNames))
	for t, n := range entityTypeNames {
		m[n] = t
	}
	return m
}()

// AllEntityTypes lists every known type in declaration order.
var AllEntityTypes = []EntityType{
	EntityPatientID, EntityName, EntityAge, EntityGender, EntityJob,
	EntityLocation, EntityOrganization, EntitySymptomAndDisease,
	EntityTransportation, EntityDate,
}

func (t EntityType) String() string {
	if n, ok := entityTypeNames[t]; ok {
		return n
	}
	return "UNKNOWN"
}

// Valid reports whether t is one of the known types.
func (t EntityType) Valid() bool {
	_, ok := entityTypeNames[t]
	return ok
}

// ParseEntityType maps a label suffix such as "NAME" to its EntityType.
func ParseEntityType(s string) (EntityType, error) {
	if t, ok := entityTypesByName[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	return EntityUnknown, fmt.Errorf("unknown entity type %q", s)
}

func (t EntityType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *EntityType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseEntityType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ---------------------------------------------------------------------------
// BIO labels
// ---------------------------------------------------------------------------

const (
	PrefixBegin   byte = 'B'
	PrefixInside  byte = 'I'
	PrefixOutside byte = 'O'
)

// TagLabel is one parsed BIO label.
type TagLabel struct {
	Prefix byte
	Type   EntityType
}

// Outside is the "O" label.
var Outside = TagLabel{Prefix: PrefixOutside}

func (l TagLabel) String() string {
	if l.Prefix == PrefixOutside {
		return "O"
	}
	return string(l.Prefix) + "-" + l.Type.String()
}

// ParseTagLabel parses "O", "B-<TYPE>" or "I-<TYPE>". A malformed label or
// one naming an unknown type parses as Outside and returns an error the
// caller may log.
func ParseTagLabel(s string) (TagLabel, error) {
	s = strings.TrimSpace(s)
	if s == "O" {
		return Outside, nil
	}
	if len(s) < 3 || s[1] != '-' || (s[0] != PrefixBegin && s[0] != PrefixInside) {
		return Outside, fmt.Errorf("malformed label %q", s)
	}
	t, err := ParseEntityType(s[2:])
	if err != nil {
		return Outside, err
	}
	return TagLabel{Prefix: s[0], Type: t}, nil
}

// DefaultLabels is the model's output label order.
var DefaultLabels = []string{
	"O",
	"B-AGE", "I-AGE",
	"B-DATE", "I-DATE",
	"B-GENDER",
	"B-JOB", "I-JOB",
	"B-LOCATION", "I-LOCATION",
	"B-NAME", "I-NAME",
	"B-ORGANIZATION", "I-ORGANIZATION",
	"B-PATIENT_ID", "I-PATIENT_ID",
	"B-SYMPTOM_AND_DISEASE", "I-SYMPTOM_AND_DISEASE",
	"B-TRANSPORTATION", "I-TRANSPORTATION",
}

//Personal.AI order the ending
