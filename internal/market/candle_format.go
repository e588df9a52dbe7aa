package market

import (
	"fmt"
	"math"
	"strings"
	"time"
)

func (c Candle) TimeString() string {
	if c.Timestamp <= 0 {
		return "-"
	}
	return time.UnixMilli(c.Timestamp).UTC().Format("01-02 15:04") + "Z"
}

// Snapshot 把一段 K 线压缩成一行提示词摘要：收盘、区间涨跌、高低点。
func (cs Candles) Snapshot(interval string) string {
	if len(cs) == 0 {
		return ""
	}
	first := cs[0]
	last := cs[len(cs)-1]
	base := first.Close
	if base == 0 {
		base = first.Open
	}
	changePct := 0.0
	if base != 0 {
		changePct = (last.Close - base) / base * 100
	}
	low := math.MaxFloat64
	high := -math.MaxFloat64
	for _, bar := range cs {
		if bar.Low < low {
			low = bar.Low
		}
		if bar.High > high {
			high = bar.High
		}
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("close≈%.4f", last.Close))
	iv := strings.TrimSpace(interval)
	if iv == "" {
		iv = "window"
	}
	if base != 0 {
		sb.WriteString(fmt.Sprintf(" (%+.2f%%/%s)", changePct, iv))
	}
	if low != math.MaxFloat64 && high != -math.MaxFloat64 {
		sb.WriteString(fmt.Sprintf(", 区间 %.4f–%.4f", low, high))
	}
	sb.WriteString(fmt.Sprintf(", bars=%d, 截至 %s", len(cs), last.TimeString()))
	return sb.String()
}
