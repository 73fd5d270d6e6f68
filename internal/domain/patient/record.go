// Package patient turns the located entities of one medical record into a
// structured PatientRecord.  Everything here is pure: no I/O, no clocks, no
// shared state.
package patient

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// DateBucket names one event a DATE entity can be attached to.  The value
// doubles as the JSON key of the bucket.
type DateBucket string

const (
	BucketAdmission DateBucket = "admission_date"
	BucketTest      DateBucket = "test_date"
	BucketPositive  DateBucket = "positive_date"
	BucketNegative  DateBucket = "negative_date"
	BucketDischarge DateBucket = "discharge_date"
	BucketEntry     DateBucket = "entry_date"
	BucketRecovery  DateBucket = "recovery_date"
	BucketDeath     DateBucket = "death_date"
	BucketUnknown   DateBucket = "unknown_date"
)

// AllBuckets lists the buckets in serialization order.
var AllBuckets = []DateBucket{
	BucketAdmission, BucketTest, BucketPositive, BucketNegative, BucketDischarge,
	BucketEntry, BucketRecovery, BucketDeath, BucketUnknown,
}

// DateBuckets partitions the DATE entities of a record.  Every bucket is
// always serialized, as [] when empty.
type DateBuckets struct {
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

// NewDateBuckets returns buckets with every slice non-nil.
func NewDateBuckets() DateBuckets {
	return DateBuckets{
		Admission: []string{},
		Test:      []string{},
		Positive:  []string{},
		Negative:  []string{},
		Discharge: []string{},
		Entry:     []string{},
		Recovery:  []string{},
		Death:     []string{},
		Unknown:   []string{},
	}
}

func (d *DateBuckets) slot(b DateBucket) *[]string {
	switch b {
	case BucketAdmission:
		return &d.Admission
	case BucketTest:
		return &d.Test
	case BucketPositive:
		return &d.Positive
	case BucketNegative:
		return &d.Negative
	case BucketDischarge:
		return &d.Discharge
	case BucketEntry:
		return &d.Entry
	case BucketRecovery:
		return &d.Recovery
	case BucketDeath:
		return &d.Death
	default:
		return &d.Unknown
	}
}

// Add appends date to bucket b.  Unrecognized buckets land in Unknown.
func (d *DateBuckets) Add(b DateBucket, date string) {
	s := d.slot(b)
	*s = append(*s, date)
}

// Get returns the dates in bucket b.
func (d *DateBuckets) Get(b DateBucket) []string {
	return *d.slot(b)
}

// Total counts dates across all buckets.
func (d *DateBuckets) Total() int {
	n := 0
	for _, b := range AllBuckets {
		n += len(d.Get(b))
	}
	return n
}

// PatientRecord is the structured view of one patient.
type PatientRecord struct {
	PatientID           string      `json:"patient_id"`
	Name                string      `json:"name"`
	Age                 string      `json:"age"`
	Gender              string      `json:"gender"`
	Job                 string      `json:"job"`
	Locations           []string    `json:"locations"`
	Organizations       []string    `json:"organizations"`
	Transportations     []string    `json:"transportations"`
	SymptomsAndDiseases []string    `json:"symptoms_and_diseases"`
	Dates               DateBuckets `json:"dates"`
	Confidence          float64     `json:"confidence"`
	Warnings            []string    `json:"warnings"`
}

// NewPatientRecord returns an empty record whose list fields are non-nil.
func NewPatientRecord() *PatientRecord {
	return &PatientRecord{
		Locations:           []string{},
		Organizations:       []string{},
		Transportations:     []string{},
		SymptomsAndDiseases: []string{},
		Dates:               NewDateBuckets(),
		Warnings:            []string{},
	}
}

// HasMinimumInfo reports whether the record identifies a patient: an ID, or
// a name together with an age or gender.
func (r *PatientRecord) HasMinimumInfo() bool {
	if r == nil {
		return false
	}
	return r.PatientID != "" || (r.Name != "" && (r.Age != "" || r.Gender != ""))
}

// MergeWith folds other into r.  Scalars keep the first non-empty value,
// lists become order-preserving unions and Confidence is the maximum.
func (r *PatientRecord) MergeWith(other *PatientRecord) {
	if other == nil {
		return
	}
	firstNonEmpty(&r.PatientID, other.PatientID)
	firstNonEmpty(&r.Name, other.Name)
	firstNonEmpty(&r.Age, other.Age)
	firstNonEmpty(&r.Gender, other.Gender)
	firstNonEmpty(&r.Job, other.Job)

	r.Locations = union(r.Locations, other.Locations)
	r.Organizations = union(r.Organizations, other.Organizations)
	r.Transportations = union(r.Transportations, other.Transportations)
	r.SymptomsAndDiseases = union(r.SymptomsAndDiseases, other.SymptomsAndDiseases)
	for _, b := range AllBuckets {
		s := r.Dates.slot(b)
		*s = union(*s, other.Dates.Get(b))
	}
	r.Warnings = union(r.Warnings, other.Warnings)

	if other.Confidence > r.Confidence {
		r.Confidence = other.Confidence
	}
}

func firstNonEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

// union returns the distinct values of a then b in first-seen order.
func union(a, b []string) []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if seen.Add(v) {
				out = append(out, v)
			}
		}
	}
	return out
}

//Personal.AI order the ending
