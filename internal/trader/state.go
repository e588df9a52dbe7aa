package trader

import (
	"sync"
	"time"

	"github.com/jialazhu/okx1204/internal/analysis/indicator"
	"github.com/jialazhu/okx1204/internal/decision"
	"github.com/jialazhu/okx1204/internal/market"
	"github.com/jialazhu/okx1204/internal/riskpolicy"
	"github.com/jialazhu/okx1204/internal/strategy"
	"github.com/jialazhu/okx1204/internal/types"
)

// Snapshot 引擎对外暴露的最新状态。
// 行情与分析结果刷新节奏不同：行情已更新而决策尚未重算属于正常状态，
// 读取方必须把这种"部分新鲜"视为常态而不是错误。
type Snapshot struct {
	Instrument string                  `json:"instrument"`
	Ticker     market.Ticker           `json:"ticker"`
	Candles    market.Candles          `json:"-"`
	Balance    types.AccountBalance    `json:"balance"`
	Position   types.Position          `json:"position"`
	Indicators indicator.Snapshot      `json:"indicators"`
	Report     indicator.Report        `json:"report"`
	Stage      riskpolicy.Stage        `json:"stage"`
	Assessment strategy.Assessment     `json:"assessment"`
	Decision   *decision.FinalDecision `json:"decision,omitempty"`
	PolledAt   time.Time               `json:"polled_at"`
	AnalyzedAt time.Time               `json:"analyzed_at"`
}

// State 单写多读的状态容器：写入只来自引擎的轮询周期，
// 读取来自状态查询接口。
type State struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewState(instrument string) *State {
	return &State{snap: Snapshot{Instrument: instrument}}
}

// Get 返回快照副本。
func (s *State) Get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// SetMarket 轮询阶段刷新行情与账户。
func (s *State) SetMarket(tk market.Ticker, cs market.Candles, bal types.AccountBalance, pos types.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Ticker = tk
	s.snap.Candles = cs
	s.snap.Balance = bal
	s.snap.Position = pos
	s.snap.PolledAt = time.Now()
}

// SetAnalysis 分析周期结束后写入指标、评估与最终决策。
func (s *State) SetAnalysis(ind indicator.Snapshot, rep indicator.Report, stage riskpolicy.Stage, as strategy.Assessment, fd *decision.FinalDecision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Indicators = ind
	s.snap.Report = rep
	s.snap.Stage = stage
	s.snap.Assessment = as
	if fd != nil {
		s.snap.Decision = fd
	}
	s.snap.AnalyzedAt = time.Now()
}
