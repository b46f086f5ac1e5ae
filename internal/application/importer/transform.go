package importer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// chromiumEpochOffsetMs is the distance between 1601-01-01 and 1970-01-01
const chromiumEpochOffsetMs int64 = 11644473600000

const idHashLength = 40

// ChromiumMillis converts microseconds since 1601-01-01 to Unix milliseconds.
// Missing or non-numeric values yield now.
func ChromiumMillis(raw string, now time.Time) int64 {
	us, ok := parseMicros(raw)
	if !ok {
		return now.UnixMilli()
	}
	return us/1000 - chromiumEpochOffsetMs
}

// FirefoxMillis converts microseconds since the Unix epoch to milliseconds.
// Missing or non-numeric values yield now.
func FirefoxMillis(raw string, now time.Time) int64 {
	us, ok := parseMicros(raw)
	if !ok {
		return now.UnixMilli()
	}
	return us / 1000
}

func parseMicros(raw string) (int64, bool) {
	us, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || us <= 0 {
		return 0, false
	}
	return us, true
}

// RecordID derives the stable id of an imported record from its source tag,
// the raw vendor timestamp and the URL
func RecordID(tag, rawTimestamp, url string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s", tag, rawTimestamp, url)
	return tag + "_" + hex.EncodeToString(h.Sum(nil))[:idHashLength]
}

// rawString renders a scanned column as the vendor's textual timestamp
func rawString(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(value)
	case string:
		return value
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		return strconv.FormatFloat(value, 'f', 0, 64)
	default:
		return fmt.Sprint(value)
	}
}
