package selection

import (
	"strings"

	"github.com/hyperifyio/execbrief/internal/classify"
)

// Bucket is one of the four selection target categories.
type Bucket string

const (
	BucketProduct  Bucket = "product"
	BucketTech     Bucket = "tech"
	BucketBusiness Bucket = "business"
	BucketOther    Bucket = "other"
)

// quotaBuckets lists the buckets that carry minimum quotas, in the order
// the round-robin visits them.
var quotaBuckets = []Bucket{BucketProduct, BucketTech, BucketBusiness}

// categoryBucket is the primary mapping from the classifier label.
var categoryBucket = map[classify.Category]Bucket{
	classify.Consumer:   BucketProduct,
	classify.Gaming:     BucketProduct,
	classify.Technology: BucketTech,
	classify.AI:         BucketTech,
	classify.Security:   BucketTech,
	classify.Climate:    BucketTech,
	classify.Health:     BucketTech,
	classify.Startups:   BucketBusiness,
	classify.Finance:    BucketBusiness,
	classify.Policy:     BucketBusiness,
	classify.General:    BucketOther,
}

// secondaryBucketKeywords rescue items the classifier left in general.
// Checked in bucket order; first hit wins.
var secondaryBucketKeywords = []struct {
	bucket Bucket
	words  []string
}{
	{BucketProduct, []string{"launches", "unveils", "ships", "releases", "new device", "new app", "hands-on", "pre-order"}},
	{BucketBusiness, []string{"funding", "acquires", "acquisition", "revenue", "layoffs", "ipo", "partnership", "valuation"}},
	{BucketTech, []string{"open source", "benchmark", "research paper", "protocol", "framework", "compiler", "dataset"}},
}

// BucketFor maps a classified item into its selection bucket. Items the
// classifier could not place fall through to a keyword table over title
// and body before landing in other.
func BucketFor(cat classify.Category, title, body string) Bucket {
	if b, ok := categoryBucket[cat]; ok && b != BucketOther {
		return b
	}
	hay := strings.ToLower(title + " " + body)
	for _, entry := range secondaryBucketKeywords {
		for _, w := range entry.words {
			if strings.Contains(hay, w) {
				return entry.bucket
			}
		}
	}
	return BucketOther
}
