package chunk

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/zeebo/xxh3"
)

// Digest returns an xxh3 hash of the batch's column names and values. Two
// batches with the same columns and rows hash equally, which lets operators
// compare loads without re-reading the table.
func Digest(b *Batch) uint64 {
	h := xxh3.New()
	buf := make([]byte, 0, 256)

	for _, c := range b.Columns {
		buf = append(buf[:0], c.Name...)
		buf = append(buf, 0x1f)
		_, _ = h.Write(buf)
	}
	for _, row := range b.Rows {
		buf = buf[:0]
		for _, v := range row {
			buf = appendValue(buf, v)
			buf = append(buf, 0x1f)
		}
		buf = append(buf, 0x1e)
		_, _ = h.Write(buf)
	}
	return h.Sum64()
}

func appendValue(buf []byte, v any) []byte {
	switch x := v.(type) {
	case nil:
		return append(buf, 0)
	case string:
		return append(buf, x...)
	case int64:
		return strconv.AppendInt(buf, x, 10)
	case int:
		return strconv.AppendInt(buf, int64(x), 10)
	case float64:
		return strconv.AppendUint(buf, math.Float64bits(x), 16)
	case bool:
		return strconv.AppendBool(buf, x)
	case time.Time:
		return strconv.AppendInt(buf, x.UnixNano(), 10)
	}
	return fmt.Append(buf, v)
}
