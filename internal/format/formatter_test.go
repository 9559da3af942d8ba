package format

import (
	"strings"
	"testing"
	"time"

	"pumpwatch.com/internal/stream"
)

var at = time.Date(2026, 8, 27, 9, 30, 0, 0, time.UTC)

func tradePayload(isBuy bool) map[string]any {
	return map[string]any{
		"data": []any{
			map[string]any{
				"isBuy":     isBuy,
				"solAmount": 1.5,
				"marketCap": 35500.25,
				"updatedData": map[string]any{
					"ticker": "DOGE",
					"name":   "Doge Wif Hat",
					"volume": 1234567.891,
				},
			},
		},
	}
}

func TestFormatTrade(t *testing.T) {
	f := NewFormatter()

	t.Run("buy", func(t *testing.T) {
		got := f.Format(&stream.Event{Type: stream.EventTrade, Name: "trade", Data: tradePayload(true), ReceivedAt: at})
		want := "🟢 BUY [09:30:00] DOGE (Doge Wif Hat) | 💰 1.500000 SOL | 💎 $35,500.25"
		if got != want {
			t.Fatalf("got %q\nwant %q", got, want)
		}
	})

	t.Run("sell", func(t *testing.T) {
		got := f.Format(&stream.Event{Type: stream.EventTrade, Name: "trade", Data: tradePayload(false), ReceivedAt: at})
		if !strings.HasPrefix(got, "🔴 SELL") {
			t.Fatalf("sell prefix missing: %q", got)
		}
	})

	t.Run("empty array", func(t *testing.T) {
		got := f.Format(&stream.Event{Type: stream.EventTrade, Name: "trade", Data: map[string]any{"data": []any{}}, ReceivedAt: at})
		if !strings.Contains(got, "Empty data array") {
			t.Fatalf("empty array fallback missing: %q", got)
		}
	})

	t.Run("negative sol amount shows absolute", func(t *testing.T) {
		p := tradePayload(false)
		p["data"].([]any)[0].(map[string]any)["solAmount"] = -2.5
		got := f.Format(&stream.Event{Type: stream.EventTrade, Name: "trade", Data: p, ReceivedAt: at})
		if !strings.Contains(got, "2.500000 SOL") {
			t.Fatalf("abs value missing: %q", got)
		}
	})
}

func TestFormatNewCoin(t *testing.T) {
	f := NewFormatter()
	ev := &stream.Event{
		Type: stream.EventNewCoin,
		Name: "new_coin",
		Data: map[string]any{
			"name":      "Moon Cat",
			"ticker":    "MCAT",
			"marketCap": 5000.0,
			"mint":      "So11111111111111111111111111111111111111112",
		},
		ReceivedAt: at,
	}
	got := f.Format(ev)
	want := "🪙 [09:30:00] New Token: MCAT (Moon Cat) | 💎 $5,000.00 | 🏠 So111111..."
	if got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
}

func TestFormatNewCoinDetailed(t *testing.T) {
	f := NewFormatter()

	// 包装形态：{"data": {...}}，带社交链接
	ev := &stream.Event{
		Type: stream.EventNewCoinDetailed,
		Name: "new_coin_detailed",
		Data: map[string]any{
			"data": map[string]any{
				"symbol":         "MCAT",
				"name":           "Moon Cat",
				"usd_market_cap": 4200.5,
				"creator":        "ABCDEFGHIJKL",
				"total_supply":   1000000000.0,
				"twitter":        "https://x.com/mcat",
				"website":        "https://mcat.io",
			},
		},
		ReceivedAt: at,
	}
	got := f.Format(ev)
	for _, frag := range []string{"🪙✨", "MCAT", "$4,200.50", "ABCDEFGH...", "1,000,000,000", "🐦", "🌐"} {
		if !strings.Contains(got, frag) {
			t.Fatalf("missing %q in %q", frag, got)
		}
	}
	if strings.Contains(got, "💬") {
		t.Fatalf("no telegram set, got %q", got)
	}
}

func TestFormatGraduated(t *testing.T) {
	f := NewFormatter()
	ev := &stream.Event{
		Type: stream.EventGraduated,
		Name: "graduated",
		Data: map[string]any{
			"ticker":               "MCAT",
			"name":                 "Moon Cat",
			"marketCap":            69420.0,
			"allTimeHighMarketCap": 100000.0,
			"numHolders":           321.0,
			"sniperCount":          4.0,
			"volume":               12345.678,
		},
		ReceivedAt: at,
	}
	got := f.Format(ev)
	for _, frag := range []string{"🎓", "GRADUATED: MCAT", "$69,420.00", "ATH: $100,000.00", "👥 321", "12,345.68 SOL", "⚠️ 4 sniper"} {
		if !strings.Contains(got, frag) {
			t.Fatalf("missing %q in %q", frag, got)
		}
	}

	// sniperCount 为零不告警
	ev.Data["sniperCount"] = 0.0
	if got := f.Format(ev); strings.Contains(got, "sniper") {
		t.Fatalf("zero snipers must not warn: %q", got)
	}
}

func TestFormatProtocolAndUnknown(t *testing.T) {
	f := NewFormatter()

	got := f.Format(&stream.Event{
		Type:       stream.EventConnected,
		Name:       "connected",
		Data:       map[string]any{"connection_id": "abc123", "endpoint": "all"},
		ReceivedAt: at,
	})
	if got != "✅ [09:30:00] Connected: all (ID: abc123)" {
		t.Fatalf("connected line: %q", got)
	}

	got = f.Format(&stream.Event{Type: stream.EventPing, Name: "ping", Data: map[string]any{}, ReceivedAt: at})
	if got != "💗 [09:30:00] Keepalive ping" {
		t.Fatalf("ping line: %q", got)
	}

	raw := []byte(`{"something":"odd"}`)
	got = f.Format(&stream.Event{Type: stream.EventUnknown, Name: "mystery", Raw: raw, ReceivedAt: at})
	if !strings.Contains(got, "📨") || !strings.Contains(got, "mystery") {
		t.Fatalf("unknown fallback: %q", got)
	}
}

func TestGroup(t *testing.T) {
	cases := map[string]string{
		"0":           "0",
		"999":         "999",
		"1000":        "1,000",
		"1234567.89":  "1,234,567.89",
		"-1234567.89": "-1,234,567.89",
		"100.5":       "100.5",
	}
	for in, want := range cases {
		if got := group(in); got != want {
			t.Errorf("group(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAsDecimal(t *testing.T) {
	if !asDecimal("12.5").Equal(asDecimal(12.5)) {
		t.Fatal("string and float forms must agree")
	}
	if !asDecimal("garbage").IsZero() {
		t.Fatal("unparseable string must be zero")
	}
	if !asDecimal(nil).IsZero() {
		t.Fatal("nil must be zero")
	}
	if !asDecimal(int64(7)).Equal(asDecimal("7")) {
		t.Fatal("int64 form must agree")
	}
}
