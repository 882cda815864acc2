package profile

import "fmt"

// Bucket names a credit balance pool in the profile system. There is one
// Ikigai bucket and one Ideation bucket per learning module.
type Bucket string

const (
	BucketIkigai    Bucket = "ikigai_balance"
	BucketIdeation1 Bucket = "ideation_balance_1"
	BucketIdeation2 Bucket = "ideation_balance_2"
	BucketIdeation3 Bucket = "ideation_balance_3"
	BucketIdeation4 Bucket = "ideation_balance_4"
)

// Default grant sizes, in raw token-equivalents (1000 tokens = 1 credit).
const (
	DefaultIkigaiBalance   = 15000
	DefaultIdeationBalance = 40000
)

// IsIdeation reports whether the bucket is one of the per-module pools.
func (b Bucket) IsIdeation() bool {
	return b != BucketIkigai
}

// IdeationBucket returns the bucket for a 1-based module number.
func IdeationBucket(moduleNumber int) (Bucket, error) {
	switch moduleNumber {
	case 1:
		return BucketIdeation1, nil
	case 2:
		return BucketIdeation2, nil
	case 3:
		return BucketIdeation3, nil
	case 4:
		return BucketIdeation4, nil
	}
	return "", fmt.Errorf("no ideation bucket for module %d", moduleNumber)
}
