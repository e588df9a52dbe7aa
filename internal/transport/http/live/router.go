package livehttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jialazhu/okx1204/internal/config"
	"github.com/jialazhu/okx1204/internal/decision"
	"github.com/jialazhu/okx1204/internal/logger"
	"github.com/jialazhu/okx1204/internal/trader"
)

// EngineControl 引擎启停能力。
type EngineControl interface {
	Start()
	Stop()
	Enabled() bool
}

// Router 挂载实盘状态、历史、日志与控制接口。
type Router struct {
	State     *trader.State
	Engine    EngineControl
	Decisions *decision.Builder
	Logs      *logger.Ring
	Configs   *config.Manager
}

// Register 将路由挂载到 /api/live 分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/status", r.handleStatus)
	group.GET("/decisions", r.handleDecisions)
	group.GET("/logs", r.handleLogs)
	group.POST("/engine/start", r.handleEngineStart)
	group.POST("/engine/stop", r.handleEngineStop)
	group.GET("/config", r.handleConfigGet)
	group.PUT("/config", r.handleConfigUpdate)
}

// handleStatus 返回最近一次已知快照。行情与决策的新鲜度可能不同，
// 由 polled_at / analyzed_at 两个时间戳表达，读取方自行判断。
func (r *Router) handleStatus(c *gin.Context) {
	snap := r.State.Get()
	c.JSON(http.StatusOK, gin.H{
		"engine_running": r.Engine.Enabled(),
		"snapshot":       snap,
	})
}

// handleDecisions 历史查询。?minutes=30 按时间过滤，?active=1 只看非 HOLD。
func (r *Router) handleDecisions(c *gin.Context) {
	filter := decision.HistoryFilter{}
	if mins, err := strconv.Atoi(c.Query("minutes")); err == nil && mins > 0 {
		filter.Since = time.Now().Add(-time.Duration(mins) * time.Minute)
	}
	if active := c.Query("active"); active == "1" || active == "true" {
		filter.ExcludeHold = true
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	c.JSON(http.StatusOK, gin.H{"decisions": r.Decisions.History(filter)})
}

func (r *Router) handleLogs(c *gin.Context) {
	n, err := strconv.Atoi(c.DefaultQuery("n", "100"))
	if err != nil || n <= 0 {
		n = 100
	}
	c.JSON(http.StatusOK, gin.H{"logs": r.Logs.Tail(n)})
}

func (r *Router) handleEngineStart(c *gin.Context) {
	r.Engine.Start()
	c.JSON(http.StatusOK, gin.H{"running": true})
}

func (r *Router) handleEngineStop(c *gin.Context) {
	r.Engine.Stop()
	c.JSON(http.StatusOK, gin.H{"running": false})
}

// handleConfigGet 返回掩码后的配置视图，密钥永不回传明文。
func (r *Router) handleConfigGet(c *gin.Context) {
	c.JSON(http.StatusOK, r.Configs.Masked())
}

// handleConfigUpdate 凭据更新。掩码哨兵表示保留现有密钥。
func (r *Router) handleConfigUpdate(c *gin.Context) {
	var patch config.CredentialPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求体格式错误: " + err.Error()})
		return
	}
	r.Configs.Apply(patch)
	c.JSON(http.StatusOK, r.Configs.Masked())
}
