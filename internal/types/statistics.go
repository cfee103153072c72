package types

// Summary holds the aggregate performance metrics of one backtest run.
type Summary struct {
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital" csv:"initial_capital"`
	FinalEquity    float64 `yaml:"final_equity" json:"final_equity" csv:"final_equity"`
	TotalReturn    float64 `yaml:"total_return" json:"total_return" csv:"total_return"`
	TradingDays    int     `yaml:"trading_days" json:"trading_days" csv:"trading_days"`
	TotalTrades    int     `yaml:"total_trades" json:"total_trades" csv:"total_trades"`
	WinCount       int     `yaml:"win_count" json:"win_count" csv:"win_count"`
	LossCount      int     `yaml:"loss_count" json:"loss_count" csv:"loss_count"`
	WinRate        float64 `yaml:"win_rate" json:"win_rate" csv:"win_rate"`
	ProfitFactor   float64 `yaml:"profit_factor" json:"profit_factor" csv:"profit_factor"`
	AvgPnL         float64 `yaml:"avg_pnl" json:"avg_pnl" csv:"avg_pnl"`
	AvgWin         float64 `yaml:"avg_win" json:"avg_win" csv:"avg_win"`
	AvgLoss        float64 `yaml:"avg_loss" json:"avg_loss" csv:"avg_loss"`
	RiskReward     float64 `yaml:"risk_reward" json:"risk_reward" csv:"risk_reward"`
	MaxDrawdown    float64 `yaml:"max_drawdown" json:"max_drawdown" csv:"max_drawdown"`
	MaxDrawdownPct float64 `yaml:"max_drawdown_pct" json:"max_drawdown_pct" csv:"max_drawdown_pct"`
	SharpeRatio    float64 `yaml:"sharpe_ratio" json:"sharpe_ratio" csv:"sharpe_ratio"`
}
