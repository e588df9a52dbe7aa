package riskpolicy

// policySchemaJSON 是 risk_policy.yaml 的 JSON Schema。
// 只约束形状与取值范围；档位连续性检查在 validatePolicy 里做。
const policySchemaJSON = `{
  "type": "object",
  "required": ["stages"],
  "properties": {
    "stages": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "leverage", "risk_factor"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "min_equity": {"type": "number", "minimum": 0},
          "max_equity": {"type": "number", "minimum": 0},
          "leverage": {"type": "number", "exclusiveMinimum": 0, "maximum": 125},
          "risk_factor": {"type": "number", "exclusiveMinimum": 0, "maximum": 1},
          "allow_dca": {"type": "boolean"},
          "max_position_ratio": {"type": "number", "minimum": 0, "maximum": 1}
        }
      }
    },
    "profit_ladder": {
      "type": "object",
      "properties": {
        "buffer_pct": {"type": "number", "minimum": 0},
        "break_even_pct": {"type": "number", "minimum": 0},
        "partial_pct": {"type": "number", "minimum": 0},
        "partial_lock_ratio": {"type": "number", "minimum": 0, "maximum": 1},
        "deep_lock_ratio": {"type": "number", "minimum": 0, "maximum": 1}
      }
    },
    "dca": {
      "type": "object",
      "properties": {
        "min_drawdown_pct": {"type": "number", "minimum": 0},
        "max_drawdown_pct": {"type": "number", "minimum": 0}
      }
    },
    "pyramid": {
      "type": "object",
      "properties": {
        "min_roi_pct": {"type": "number", "minimum": 0}
      }
    },
    "min_notional_first": {"type": "number", "exclusiveMinimum": 0},
    "min_notional_add": {"type": "number", "exclusiveMinimum": 0},
    "safety_reserve": {"type": "number", "exclusiveMinimum": 0, "maximum": 1},
    "max_loss_fraction": {"type": "number", "exclusiveMinimum": 0, "exclusiveMaximum": 1},
    "fee_rate": {"type": "number", "minimum": 0},
    "confidence_boost_floor": {"type": "number", "minimum": 0, "maximum": 100},
    "stop_buffer_pct": {"type": "number", "minimum": 0}
  }
}`
