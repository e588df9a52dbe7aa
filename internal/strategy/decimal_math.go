package strategy

import (
	"math"

	"github.com/shopspring/decimal"
)

// 价格比较统一走 decimal，避免浮点误差把等值价格判成穿越。

func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(val)
}

func decToFloat(val decimal.Decimal) float64 {
	f, _ := val.Float64()
	return f
}

func decimalCompare(a, b float64) int {
	return decFromFloat(a).Cmp(decFromFloat(b))
}

func decimalGTE(a, b float64) bool { return decimalCompare(a, b) >= 0 }
func decimalLTE(a, b float64) bool { return decimalCompare(a, b) <= 0 }
func decimalGT(a, b float64) bool  { return decimalCompare(a, b) > 0 }
func decimalLT(a, b float64) bool  { return decimalCompare(a, b) < 0 }

// relativePrice 计算 entry 按百分比偏移后的价格，pct 为小数（0.01=1%），
// 方向由 side 决定：long 为正向上，short 反向。
func relativePrice(entry, pct float64, long bool) float64 {
	if entry <= 0 {
		return 0
	}
	base := decFromFloat(entry)
	p := decFromFloat(pct)
	one := decimal.NewFromInt(1)
	if long {
		return decToFloat(base.Mul(one.Add(p)))
	}
	return decToFloat(base.Mul(one.Sub(p)))
}
