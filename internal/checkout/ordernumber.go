package checkout

import (
	"crypto/rand"
	"fmt"
	"time"
)

const orderNumberPrefix = "MKL"

// suffixAlphabet omits 0/O and 1/I so order numbers survive being read out
// loud over the phone.
const suffixAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const suffixLength = 6

// newOrderNumber produces a human-readable candidate such as
// MKL-20260823-7GQ4XN. Uniqueness is not guaranteed here; the unique index
// on orders.order_number rejects collisions and the caller retries.
func newOrderNumber(now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", orderNumberPrefix, now.Format("20060102"), randomSuffix(suffixLength))
}

func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// time-derived suffix rather than panic mid-checkout.
		ts := time.Now().UnixNano()
		for i := range buf {
			buf[i] = suffixAlphabet[int(ts>>uint(i*5))%len(suffixAlphabet)]
		}
		return string(buf)
	}
	for i := range buf {
		buf[i] = suffixAlphabet[int(buf[i])%len(suffixAlphabet)]
	}
	return string(buf)
}
