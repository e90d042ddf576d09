package domain

import (
	"math/rand"
	"strconv"
	"strings"
	"time"
)

const idSuffixLen = 9

// 36^9, the number of distinct 9-digit base36 suffixes.
const idSuffixSpace = int64(101559956668416)

// GenerateID returns "{prefix}_{unixMillis}_{suffix}" where suffix is 9 random base36 digits.
func GenerateID(prefix string) string {
	return generateIDAt(prefix, time.Now())
}

func generateIDAt(prefix string, now time.Time) string {
	suffix := strconv.FormatInt(rand.Int63n(idSuffixSpace), 36)
	if pad := idSuffixLen - len(suffix); pad > 0 {
		suffix = strings.Repeat("0", pad) + suffix
	}
	return prefix + "_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix
}
