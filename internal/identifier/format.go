package identifier

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/gosimple/slug"
)

const (
	PrefixPolicyNumber = "INS"
	PrefixTransaction  = "TXN"
	PrefixClaim        = "CLM"
)

// Format renders prefix-bucket-seq with seq zero padded to width.
func Format(prefix, bucket string, seq int64, width int) string {
	if width < 1 {
		width = 1
	}
	return fmt.Sprintf("%s-%s-%0*d", prefix, bucket, width, seq)
}

// Key is the counter key shared by every identifier in a bucket.
func Key(prefix, bucket string) string {
	return prefix + "-" + bucket
}

// PolicyNumberBucket buckets policy numbers by insurer code and year.
func PolicyNumberBucket(insurerCode string, at time.Time) string {
	return strings.ToUpper(strings.TrimSpace(insurerCode)) + "-" + at.UTC().Format("2006")
}

// TransactionBucket buckets payment transaction ids by calendar day.
func TransactionBucket(at time.Time) string {
	return at.UTC().Format("20060102")
}

// ClaimBucket buckets claim numbers by year and month.
func ClaimBucket(at time.Time) string {
	return at.UTC().Format("200601")
}

// InsurerCode returns code when set, otherwise the first three letters or
// digits of the slugged name in upper case.
func InsurerCode(code, name string) string {
	if c := strings.ToUpper(strings.TrimSpace(code)); c != "" {
		return c
	}
	var b strings.Builder
	for _, r := range slug.Make(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
			if b.Len() == 3 {
				break
			}
		}
	}
	if b.Len() == 0 {
		return "GEN"
	}
	return b.String()
}
