package cache

import (
	"fmt"
	"time"
)

// Key namespaces. The time bucket embedded in each key is the staleness
// control: writers and readers share an entry only while the bucket id holds,
// so entries refresh naturally without coordinated invalidation. The bucket
// is a refresh interval, not the velocity window itself.
const (
	velocityBucket        = 60 * time.Second
	ipHistoryBucket       = 300 * time.Second
	customerHistoryBucket = 60 * time.Second
)

// VelocityKey names the cached velocity snapshot for a customer email.
func VelocityKey(email string, now time.Time) string {
	return fmt.Sprintf("velocity:%s:%d", email, bucket(now, velocityBucket))
}

// IPHistoryKey names the cached transaction history for an IP.
func IPHistoryKey(ip string, now time.Time) string {
	return fmt.Sprintf("ip_history:%s:%d", ip, bucket(now, ipHistoryBucket))
}

// CustomerHistoryKey names the cached transaction history for a customer.
func CustomerHistoryKey(email string, now time.Time) string {
	return fmt.Sprintf("customer_history:%s:%d", email, bucket(now, customerHistoryBucket))
}

func bucket(now time.Time, size time.Duration) int64 {
	return now.Unix() / int64(size/time.Second)
}
