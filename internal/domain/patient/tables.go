package patient

import (
	"regexp"

	mapset "github.com/deckarep/golang-set/v2"
)

// Normalized gender values.
const (
	GenderMale   = "Nam"
	GenderFemale = "Nữ"
)

// DateContextWindow is how many runes on each side of a DATE entity are
// searched for event keywords.
const DateContextWindow = 50

// dateRule maps event keywords to a bucket.  Rules are tried in order and
// the first rule with a keyword in the context wins.
type dateRule struct {
	bucket   DateBucket
	keywords []string
}

var dateRules = []dateRule{
	{BucketAdmission, []string{"nhập viện", "vào viện", "nhập vào", "đưa vào"}},
	{BucketDischarge, []string{"xuất viện", "ra viện", "ra khỏi", "về nhà"}},
	{BucketTest, []string{"xét nghiệm", "test", "lấy mẫu", "khám"}},
	{BucketPositive, []string{"dương tính", "nhiễm", "mắc", "phát hiện"}},
	{BucketNegative, []string{"âm tính", "khỏi bệnh", "hồi phục"}},
	{BucketEntry, []string{"nhập cảnh", "vào cảnh", "bay từ", "từ nước"}},
	{BucketDeath, []string{"tử vong", "qua đời", "chết"}},
	{BucketRecovery, []string{"khỏi", "hồi phục", "bình phục"}},
}

var (
	maleVariants   = mapset.NewSet[string]("nam", "male", "trai", "boy", "man", "nam giới")
	femaleVariants = mapset.NewSet[string]("nữ", "nu", "female", "gái", "girl", "woman", "nữ giới")
)

// Go's \b only knows ASCII word characters, which splits Vietnamese words
// at every diacritic.
const (
	wordStart = `(?:^|[^\p{L}\p{N}_])`
	wordEnd   = `(?:[^\p{L}\p{N}_]|$)`
)

// word matches term as a whole word, case-insensitively.
func word(term string) string {
	return wordStart + `(?i:` + regexp.QuoteMeta(term) + `)` + wordEnd
}

// titled matches an address term followed by a capitalized name, as in
// "ông Nguyễn".
func titled(term string) string {
	return wordStart + `(?i:` + regexp.QuoteMeta(term) + `)\s+\p{Lu}`
}

func mustCompileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// Gender context patterns.  Each pattern votes at most once however often
// it matches.
var (
	maleContext = mustCompileAll(
		word("anh"), word("ông"), word("chú"), word("bác")+`.*`+word("anh"),
		word("nam"), word("trai"), word("con trai"), word("cháu trai"),
		word("thầy giáo"), word("thầy"), word("giáo viên nam"),
		titled("ông"), titled("anh"),
	)
	femaleContext = mustCompileAll(
		word("chị"), word("cô"), word("bà"), word("bác")+`.*`+word("chị"),
		word("nữ"), word("gái"), word("con gái"), word("cháu gái"),
		word("cô giáo"), word("giáo viên nữ"),
		titled("chị"), titled("cô"), titled("bà"),
	)
)

// Name tables.  The second-to-last word of a Vietnamese name is usually the
// middle name, the last word the given name.
var (
	maleMiddleNames   = mapset.NewSet[string]("văn", "đức", "hữu", "quang", "minh", "hoàng", "tuấn", "công")
	femaleMiddleNames = mapset.NewSet[string]("thị", "như", "kim", "thu", "hương", "thanh", "mai", "phương")
	maleGivenNames    = mapset.NewSet[string]("anh", "dũng", "hùng", "nam", "long", "phong", "sơn", "tuấn", "cường")
	// "anh" is given to both sexes and never votes female.
	femaleGivenNames = mapset.NewSet[string]("hoa", "lan", "mai", "hương", "linh", "nga", "trang", "thảo")
)

// Job keywords, matched as substrings of the lower-cased JOB text.  Male
// keywords are checked first.
var (
	maleJobs = []string{
		"thầy giáo", "thầy", "kỹ sư", "lái xe", "tài xế",
		"công nhân xây dựng", "thợ xây", "thợ điện", "thợ máy",
		"bác sĩ nam", "ông", "anh",
	}
	femaleJobs = []string{
		"cô giáo", "cô", "y tá", "điều dưỡng", "nữ hộ sinh",
		"bà", "chị", "giúp việc", "phụ bếp", "bác sĩ nữ",
	}
)

// Record warnings.
const (
	WarnMissingIdentification = "missing identification"
	WarnMissingPersonalInfo   = "missing basic personal info"
	WarnNoEntities            = "no entities extracted"
)

//Personal.AI order the ending
