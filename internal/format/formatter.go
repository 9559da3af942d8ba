// Package format 把事件渲染成人类可读的控制台行。
// 纯展示层：输入是解析好的事件，输出是字符串，不影响连接逻辑。
package format

import (
	"fmt"
	"strings"

	"github.com/segmentio/encoding/json"
	"github.com/shopspring/decimal"

	"pumpwatch.com/internal/stream"
)

type Formatter struct{}

func NewFormatter() *Formatter { return &Formatter{} }

// Format 按事件类型渲染一行。payload 字段缺失/类型不对时降级输出，不报错。
func (f *Formatter) Format(ev *stream.Event) string {
	ts := ev.ReceivedAt.Format("15:04:05")

	switch ev.Type {
	case stream.EventConnected:
		connID := asString(ev.Data["connection_id"], "unknown")
		endpoint := asString(ev.Data["endpoint"], "unknown")
		return fmt.Sprintf("✅ [%s] Connected: %s (ID: %s)", ts, endpoint, connID)
	case stream.EventPing:
		if n, ok := ev.Data["connections"]; ok {
			return fmt.Sprintf("💗 [%s] Keepalive ping (connections: %v)", ts, n)
		}
		return fmt.Sprintf("💗 [%s] Keepalive ping", ts)
	case stream.EventTrade:
		return f.formatTrade(ts, ev.Data)
	case stream.EventNewCoin:
		return f.formatNewCoin(ts, ev.Data)
	case stream.EventNewCoinDetailed:
		return f.formatNewCoinDetailed(ts, ev.Data)
	case stream.EventGraduated:
		return f.formatGraduated(ts, ev.Data)
	case stream.EventPumpTrade:
		return f.formatPumpTrade(ts, ev.Data)
	default:
		return fmt.Sprintf("📨 [%s] %s: %s", ts, ev.Name, truncate(string(ev.Raw), 100))
	}
}

func (f *Formatter) formatTrade(ts string, data map[string]any) string {
	trade, ok := firstTrade(data)
	if !ok {
		return fmt.Sprintf("📈 [%s] Trade: Empty data array", ts)
	}

	isBuy := asBool(trade["isBuy"], true)
	sol := asDecimal(trade["solAmount"]).Abs()
	mcap := asDecimal(trade["marketCap"])

	updated := asMap(trade["updatedData"])
	ticker := asString(updated["ticker"], "UNKNOWN")
	name := asString(updated["name"], "Unknown")

	action := "🟢 BUY"
	if !isBuy {
		action = "🔴 SELL"
	}
	return fmt.Sprintf("%s [%s] %s (%s) | 💰 %s SOL | 💎 %s",
		action, ts, ticker, truncate(name, 20), sol.StringFixed(6), usd(mcap))
}

func (f *Formatter) formatNewCoin(ts string, data map[string]any) string {
	coin := unwrap(data)

	name := asString(coin["name"], "Unknown Token")
	ticker := asString(coin["ticker"], "UNKNOWN")
	mcap := asDecimal(coin["marketCap"])
	mint := asString(coin["mint"], "N/A")

	return fmt.Sprintf("🪙 [%s] New Token: %s (%s) | 💎 %s | 🏠 %s",
		ts, ticker, truncate(name, 25), usd(mcap), truncate(mint, 8))
}

func (f *Formatter) formatNewCoinDetailed(ts string, data map[string]any) string {
	coin := unwrap(data)

	symbol := asString(coin["symbol"], "UNKNOWN")
	name := asString(coin["name"], "Unknown Token")
	mcap := asDecimal(coin["usd_market_cap"])
	if mcap.IsZero() {
		mcap = asDecimal(coin["market_cap"])
	}
	creator := asString(coin["creator"], "N/A")
	supply := asDecimal(coin["total_supply"])

	var socials strings.Builder
	if asString(coin["twitter"], "") != "" {
		socials.WriteString("🐦")
	}
	if asString(coin["website"], "") != "" {
		socials.WriteString("🌐")
	}
	if asString(coin["telegram"], "") != "" {
		socials.WriteString("💬")
	}

	supplyStr := "N/A"
	if !supply.IsZero() {
		supplyStr = group(supply.StringFixed(0))
	}

	return fmt.Sprintf("🪙✨ [%s] %s (%s) | 💎 %s | 👤 %s | 📊 %s %s",
		ts, symbol, truncate(name, 20), usd(mcap), truncate(creator, 8), supplyStr, socials.String())
}

func (f *Formatter) formatGraduated(ts string, data map[string]any) string {
	coin := unwrap(data)

	name := asString(coin["name"], "Unknown Token")
	ticker := asString(coin["ticker"], "UNKNOWN")
	mcap := asDecimal(coin["marketCap"])
	ath := asDecimal(coin["allTimeHighMarketCap"])
	holders := asDecimal(coin["numHolders"])
	snipers := asDecimal(coin["sniperCount"])
	volume := asDecimal(coin["volume"])

	warn := ""
	if snipers.IsPositive() {
		warn = fmt.Sprintf(" ⚠️ %s sniper", snipers.StringFixed(0))
	}

	return fmt.Sprintf("🎓 [%s] GRADUATED: %s (%s) | 💎 %s | 🏆 ATH: %s | 👥 %s | 📊 %s SOL%s",
		ts, ticker, truncate(name, 20), usd(mcap), usd(ath),
		holders.StringFixed(0), group(volume.StringFixed(2)), warn)
}

func (f *Formatter) formatPumpTrade(ts string, data map[string]any) string {
	trade, ok := firstTrade(data)
	if !ok {
		return fmt.Sprintf("🔄 [%s] PumpSwap: Empty data array", ts)
	}

	isBuy := asBool(trade["isBuy"], true)
	sol := asDecimal(trade["solAmount"]).Abs()
	mcap := asDecimal(trade["marketCap"])

	updated := asMap(trade["updatedData"])
	ticker := asString(updated["ticker"], "UNKNOWN")
	name := asString(updated["name"], "Unknown")
	volume := asDecimal(updated["volume"])

	action := "🟢 BUY"
	if !isBuy {
		action = "🔴 SELL"
	}
	return fmt.Sprintf("%s [%s] 🔄 %s (%s) | 💰 %s SOL | 💎 %s | 📊 %s VOL",
		action, ts, ticker, truncate(name, 18), sol.StringFixed(6), usd(mcap),
		group(volume.StringFixed(2)))
}

// FormatRaw debug 模式下输出缩进 JSON。
func FormatRaw(ev *stream.Event) string {
	buf, err := json.MarshalIndent(ev.Data, "", "  ")
	if err != nil {
		return fmt.Sprintf("🔍 RAW [%s]: %s", ev.Name, string(ev.Raw))
	}
	return fmt.Sprintf("🔍 RAW [%s]:\n%s", ev.Name, string(buf))
}

// ---- payload 取值辅助：字段类型不可信，全部宽松转换 ----

// unwrap 兼容 {"data": {...}, "event_type": ...} 包装和裸对象两种形态
func unwrap(data map[string]any) map[string]any {
	if inner := asMap(data["data"]); inner != nil {
		return inner
	}
	return data
}

// firstTrade trade 类事件的 data 是数组，取第一条
func firstTrade(data map[string]any) (map[string]any, bool) {
	arr, ok := data["data"].([]any)
	if !ok || len(arr) == 0 {
		return nil, false
	}
	m, ok := arr[0].(map[string]any)
	return m, ok
}

func asString(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asBool(v any, def bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

// asDecimal 数字可能是 JSON number 也可能是字符串，解析失败按 0 处理
func asDecimal(v any) decimal.Decimal {
	switch x := v.(type) {
	case string:
		d, err := decimal.NewFromString(x)
		if err != nil {
			return decimal.Zero
		}
		return d
	case float64:
		return decimal.NewFromFloat(x)
	case int64:
		return decimal.NewFromInt(x)
	case json.Number:
		d, err := decimal.NewFromString(string(x))
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

func usd(d decimal.Decimal) string {
	return "$" + group(d.StringFixed(2))
}

// group 千分位分组："1234567.89" -> "1,234,567.89"
func group(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	n := len(intPart)
	for i, c := range intPart {
		if i > 0 && (n-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}

	out := b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
