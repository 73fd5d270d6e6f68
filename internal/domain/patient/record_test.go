package patient

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPatientRecord_SerializesEveryBucket(t *testing.T) {
	data, err := json.Marshal(NewPatientRecord())
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	dates, ok := decoded["dates"].(map[string]interface{})
	require.True(t, ok)
	require.Len(t, dates, len(AllBuckets))
	for _, b := range AllBuckets {
		v, ok := dates[string(b)]
		require.True(t, ok, b)
		assert.Equal(t, []interface{}{}, v, b)
	}
	assert.Equal(t, []interface{}{}, decoded["locations"])
	assert.Equal(t, []interface{}{}, decoded["warnings"])
}

func TestDateBuckets_AddGet(t *testing.T) {
	d := NewDateBuckets()
	for _, b := range AllBuckets {
		d.Add(b, string(b))
	}
	d.Add(DateBucket("bogus"), "x")

	for _, b := range AllBuckets {
		if b == BucketUnknown {
			assert.Equal(t, []string{string(b), "x"}, d.Get(b))
			continue
		}
		assert.Equal(t, []string{string(b)}, d.Get(b))
	}
	assert.Equal(t, len(AllBuckets)+1, d.Total())
}

func TestPatientRecord_HasMinimumInfo(t *testing.T) {
	tests := []struct {
		name string
		rec  *PatientRecord
		want bool
	}{
		{"nil", nil, false},
		{"empty", NewPatientRecord(), false},
		{"id only", &PatientRecord{PatientID: "BN01"}, true},
		{"name only", &PatientRecord{Name: "Lê Văn Tám"}, false},
		{"name and age", &PatientRecord{Name: "Lê Văn Tám", Age: "40"}, true},
		{"name and gender", &PatientRecord{Name: "Lê Văn Tám", Gender: GenderMale}, true},
		{"age and gender without name", &PatientRecord{Age: "40", Gender: GenderMale}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.HasMinimumInfo())
		})
	}
}

func TestPatientRecord_MergeWith(t *testing.T) {
	a := NewPatientRecord()
	a.Name = "Nguyễn Văn An"
	a.Locations = []string{"Hà Nội", "Hải Phòng"}
	a.Dates.Add(BucketAdmission, "12/3")
	a.Warnings = []string{WarnMissingIdentification}
	a.Confidence = 0.6

	b := NewPatientRecord()
	b.Name = "An"
	b.PatientID = "BN-1"
	b.Age = "45"
	b.Locations = []string{"Hải Phòng", "Huế"}
	b.SymptomsAndDiseases = []string{"sốt"}
	b.Dates.Add(BucketAdmission, "12/3")
	b.Dates.Add(BucketDischarge, "20/3")
	b.Warnings = []string{WarnMissingIdentification, WarnMissingPersonalInfo}
	b.Confidence = 0.8

	a.MergeWith(b)
	assert.Equal(t, "Nguyễn Văn An", a.Name)
	assert.Equal(t, "BN-1", a.PatientID)
	assert.Equal(t, "45", a.Age)
	assert.Equal(t, []string{"Hà Nội", "Hải Phòng", "Huế"}, a.Locations)
	assert.Equal(t, []string{"sốt"}, a.SymptomsAndDiseases)
	assert.Equal(t, []string{"12/3"}, a.Dates.Admission)
	assert.Equal(t, []string{"20/3"}, a.Dates.Discharge)
	assert.Equal(t, []string{}, a.Dates.Death)
	assert.Equal(t, []string{WarnMissingIdentification, WarnMissingPersonalInfo}, a.Warnings)
	assert.Equal(t, 0.8, a.Confidence)

	a.MergeWith(nil)
	assert.Equal(t, "BN-1", a.PatientID)
}

func TestPatientRecord_MergeWithKeepsHigherConfidence(t *testing.T) {
	a := NewPatientRecord()
	a.Confidence = 0.9
	b := NewPatientRecord()
	b.Confidence = 0.3
	a.MergeWith(b)
	assert.Equal(t, 0.9, a.Confidence)
}

//Personal.AI order the ending
