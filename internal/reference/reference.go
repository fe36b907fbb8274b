package reference

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// New builds a payment reference of the form <PREFIX>-<TS36>-<RAND36>,
// base-36 uppercase. The timestamp plus a crypto-random component makes it
// collision-resistant across concurrent callers with no shared counter.
func New(prefix string) string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// rand.Read failing means the platform RNG is broken; fall back to
		// the clock's sub-millisecond bits so references stay unique enough.
		binary.BigEndian.PutUint64(buf[:], uint64(time.Now().UnixNano()))
	}
	n := binary.BigEndian.Uint64(buf[:]) % (36 * 36 * 36 * 36 * 36 * 36)
	rnd := strings.ToUpper(strconv.FormatUint(n, 36))

	return fmt.Sprintf("%s-%s-%s", prefix, ts, rnd)
}

// ForOrder builds the instant-EFT transaction reference
// ORDER-<orderID>-<TS36>-<RAND36>. The provider echoes this string back in
// notifications; OrderIDFrom relies on the segment layout, so the format is
// a wire contract.
func ForOrder(orderID string) string {
	return New("ORDER-" + orderID)
}

// OrderIDFrom extracts the order id from an ORDER-<id>-... reference.
// Returns false when the reference does not carry an embedded order id.
func OrderIDFrom(ref string) (string, bool) {
	parts := strings.Split(ref, "-")
	if len(parts) < 4 || parts[0] != "ORDER" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
