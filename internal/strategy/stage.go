// Package strategy 实现资金档位选择与持仓风险分析。
package strategy

import (
	"fmt"
	"strings"

	"github.com/jialazhu/okx1204/internal/riskpolicy"
)

// ClassifyStage 按账户总权益选出当前风险档位。纯查表，无副作用。
func ClassifyStage(policy riskpolicy.Policy, totalEquity float64) riskpolicy.Stage {
	return policy.StageFor(totalEquity)
}

// StageNarrative 生成档位的提示词描述，供决策提示使用。
func StageNarrative(s riskpolicy.Stage) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("当前资金档位：%s（杠杆上限 %.0fx，单笔风险系数 %.0f%%）", s.Name, s.Leverage, s.RiskFactor*100))
	if s.AllowDCA {
		b.WriteString("，允许亏损区间内加仓摊低成本")
	} else {
		b.WriteString("，禁止亏损加仓")
	}
	b.WriteString(fmt.Sprintf("，仓位保证金占比上限 %.0f%%", s.MaxPositionRatio*100))
	return b.String()
}
